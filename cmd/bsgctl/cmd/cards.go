package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bsglabs/bankclient/cmd/bsgctl/internal/output"
)

var cardsCmd = &cobra.Command{
	Use:   "cards",
	Short: "Debit card operations",
}

var cardsListCmd = &cobra.Command{
	Use:   "list <customer-id>",
	Short: "List a customer's debit cards",
	Args:  cobra.ExactArgs(1),
	RunE:  runCardsList,
}

var cardsFreezeCmd = &cobra.Command{
	Use:   "freeze <card-id>",
	Short: "Freeze a debit card",
	Args:  cobra.ExactArgs(1),
	RunE:  runCardsFreeze,
}

func init() {
	rootCmd.AddCommand(cardsCmd)
	cardsCmd.AddCommand(cardsListCmd)
	cardsCmd.AddCommand(cardsFreezeCmd)
}

func runCardsList(cmd *cobra.Command, args []string) error {
	sessions, svc, err := buildSession()
	if err != nil {
		return err
	}
	requireSession(sessions)

	cards, err := svc.ListCards(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	printer := newPrinter()
	if len(cards) == 0 {
		printer.Info("no cards found")
		return nil
	}

	table := output.NewTable([]string{"ID", "NUMBER", "EXPIRES", "STATUS"})
	for _, c := range cards {
		table.AddRow([]string{
			c.ID,
			c.MaskedNumber,
			fmt.Sprintf("%02d/%d", c.ExpiryMonth, c.ExpiryYear),
			printer.StatusBadge(c.Status),
		})
	}
	table.Render()
	return nil
}

func runCardsFreeze(cmd *cobra.Command, args []string) error {
	sessions, svc, err := buildSession()
	if err != nil {
		return err
	}
	requireSession(sessions)

	card, err := svc.FreezeCard(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	newPrinter().Success("card %s is now %s", card.ID, card.Status)
	return nil
}
