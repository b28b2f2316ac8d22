package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bsglabs/bankclient/banking"
	"github.com/bsglabs/bankclient/cmd/bsgctl/internal/output"
)

var loansCmd = &cobra.Command{
	Use:   "loans",
	Short: "Loan application operations",
}

var loansApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Submit a loan application",
	Long: `Submit a loan application for a customer.

Example:
  bsgctl loans apply --customer c-1 --amount 25000 --currency EUR --term 48 --purpose car`,
	RunE: runLoansApply,
}

var loansShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a loan application and its status",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoansShow,
}

func init() {
	rootCmd.AddCommand(loansCmd)
	loansCmd.AddCommand(loansApplyCmd)
	loansCmd.AddCommand(loansShowCmd)

	loansApplyCmd.Flags().String("customer", "", "customer id")
	loansApplyCmd.Flags().Float64("amount", 0, "requested amount")
	loansApplyCmd.Flags().String("currency", "EUR", "currency code")
	loansApplyCmd.Flags().Int("term", 12, "term in months")
	loansApplyCmd.Flags().String("purpose", "", "loan purpose")
	_ = loansApplyCmd.MarkFlagRequired("customer")
	_ = loansApplyCmd.MarkFlagRequired("amount")
}

func runLoansApply(cmd *cobra.Command, args []string) error {
	sessions, svc, err := buildSession()
	if err != nil {
		return err
	}
	requireSession(sessions)

	customerID, _ := cmd.Flags().GetString("customer")
	amount, _ := cmd.Flags().GetFloat64("amount")
	currency, _ := cmd.Flags().GetString("currency")
	term, _ := cmd.Flags().GetInt("term")
	purpose, _ := cmd.Flags().GetString("purpose")

	loan, err := svc.CreateLoanApplication(cmd.Context(), banking.LoanApplicationRequest{
		CustomerID: customerID,
		Amount:     amount,
		Currency:   currency,
		TermMonths: term,
		Purpose:    purpose,
	})
	if err != nil {
		return err
	}

	printer := newPrinter()
	printer.Success("application %s submitted", loan.ID)
	printLoan(printer, loan)
	return nil
}

func runLoansShow(cmd *cobra.Command, args []string) error {
	sessions, svc, err := buildSession()
	if err != nil {
		return err
	}
	requireSession(sessions)

	loan, err := svc.GetLoanApplication(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	printLoan(newPrinter(), loan)
	return nil
}

func printLoan(printer *output.Printer, loan *banking.LoanApplication) {
	printer.Print("id:       %s", loan.ID)
	printer.Print("customer: %s", loan.CustomerID)
	printer.Print("amount:   %s", output.Money(loan.Amount, loan.Currency))
	printer.Print("term:     %d months", loan.TermMonths)
	if loan.Purpose != "" {
		printer.Print("purpose:  %s", loan.Purpose)
	}
	printer.Print("status:   %s", printer.StatusBadge(loan.Status))
}
