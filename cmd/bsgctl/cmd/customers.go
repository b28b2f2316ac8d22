package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/bsglabs/bankclient/cmd/bsgctl/internal/output"
)

var customersCmd = &cobra.Command{
	Use:   "customers",
	Short: "CRM customer operations",
}

var customersSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search customers by free text",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCustomersSearch,
}

var customersShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one customer",
	Args:  cobra.ExactArgs(1),
	RunE:  runCustomersShow,
}

func init() {
	rootCmd.AddCommand(customersCmd)
	customersCmd.AddCommand(customersSearchCmd)
	customersCmd.AddCommand(customersShowCmd)

	customersSearchCmd.Flags().Bool("json", false, "output as JSON")
}

func runCustomersSearch(cmd *cobra.Command, args []string) error {
	sessions, svc, err := buildSession()
	if err != nil {
		return err
	}
	requireSession(sessions)

	query := ""
	if len(args) > 0 {
		query = args[0]
	}

	customers, err := svc.SearchCustomers(cmd.Context(), query)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(customers)
	}

	if len(customers) == 0 {
		newPrinter().Info("no customers found")
		return nil
	}

	table := output.NewTable([]string{"ID", "NAME", "EMAIL", "SEGMENT"})
	for _, c := range customers {
		table.AddRow([]string{c.ID, c.Name, c.Email, c.Segment})
	}
	table.Render()
	return nil
}

func runCustomersShow(cmd *cobra.Command, args []string) error {
	sessions, svc, err := buildSession()
	if err != nil {
		return err
	}
	requireSession(sessions)

	customer, err := svc.GetCustomer(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	printer := newPrinter()
	printer.Print("id:      %s", customer.ID)
	printer.Print("name:    %s", customer.Name)
	if customer.Email != "" {
		printer.Print("email:   %s", customer.Email)
	}
	if customer.Segment != "" {
		printer.Print("segment: %s", customer.Segment)
	}
	return nil
}
