package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/bsglabs/bankclient/cmd/bsgctl/internal/output"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts <customer-id>",
	Short: "List a customer's accounts",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccounts,
}

var transactionsCmd = &cobra.Command{
	Use:   "transactions <account-id>",
	Short: "List an account's booked movements",
	Args:  cobra.ExactArgs(1),
	RunE:  runTransactions,
}

func init() {
	rootCmd.AddCommand(accountsCmd)
	rootCmd.AddCommand(transactionsCmd)

	accountsCmd.Flags().Bool("json", false, "output as JSON")
	transactionsCmd.Flags().Bool("json", false, "output as JSON")
}

func runAccounts(cmd *cobra.Command, args []string) error {
	sessions, svc, err := buildSession()
	if err != nil {
		return err
	}
	requireSession(sessions)

	accounts, err := svc.ListAccounts(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(accounts)
	}

	if len(accounts) == 0 {
		newPrinter().Info("no accounts found")
		return nil
	}

	table := output.NewTable([]string{"ID", "NUMBER", "BALANCE"})
	for _, a := range accounts {
		table.AddRow([]string{a.ID, a.Number, output.Money(a.Balance, a.Currency)})
	}
	table.Render()
	return nil
}

func runTransactions(cmd *cobra.Command, args []string) error {
	sessions, svc, err := buildSession()
	if err != nil {
		return err
	}
	requireSession(sessions)

	transactions, err := svc.ListTransactions(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(transactions)
	}

	if len(transactions) == 0 {
		newPrinter().Info("no transactions found")
		return nil
	}

	table := output.NewTable([]string{"BOOKED", "AMOUNT", "DESCRIPTION"})
	for _, tx := range transactions {
		table.AddRow([]string{
			tx.BookedAt.Local().Format("2006-01-02 15:04"),
			output.Money(tx.Amount, tx.Currency),
			tx.Description,
		})
	}
	table.Render()
	return nil
}
