package bankclient

import (
	"testing"
	"time"
)

func TestCredential_ValidAt_Boundary(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cred := &Credential{
		AccessToken: "tok",
		IssuedAt:    issued.Unix(),
		ExpiresIn:   900,
	}
	buffer := 60 * time.Second

	tests := []struct {
		name string
		age  int64 // seconds since issuance
		want bool
	}{
		{name: "fresh", age: 0, want: true},
		{name: "one second before buffer", age: 839, want: true},
		{name: "exactly at buffer", age: 840, want: false},
		{name: "inside buffer", age: 870, want: false},
		{name: "fully expired", age: 900, want: false},
		{name: "long expired", age: 5000, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := issued.Add(time.Duration(tt.age) * time.Second)
			if got := cred.ValidAt(now, buffer); got != tt.want {
				t.Errorf("ValidAt(age=%ds) = %v, want %v", tt.age, got, tt.want)
			}
		})
	}
}

func TestCredential_ValidAt_Missing(t *testing.T) {
	now := time.Now()

	var nilCred *Credential
	if nilCred.ValidAt(now, DefaultSafetyBuffer) {
		t.Error("nil credential should never be valid")
	}

	empty := &Credential{IssuedAt: now.Unix(), ExpiresIn: 900}
	if empty.ValidAt(now, DefaultSafetyBuffer) {
		t.Error("credential without access token should never be valid")
	}
}

func TestCredential_HasRefreshToken(t *testing.T) {
	tests := []struct {
		name string
		cred *Credential
		want bool
	}{
		{name: "nil", cred: nil, want: false},
		{name: "empty", cred: &Credential{}, want: false},
		{name: "present", cred: &Credential{RefreshToken: "r"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cred.HasRefreshToken(); got != tt.want {
				t.Errorf("HasRefreshToken() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCredential_ExpiresAt(t *testing.T) {
	cred := &Credential{AccessToken: "tok", IssuedAt: 1000, ExpiresIn: 900}
	if got := cred.ExpiresAt().Unix(); got != 1900 {
		t.Errorf("ExpiresAt() = %d, want 1900", got)
	}
}
