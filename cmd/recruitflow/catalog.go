package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/foxzi/recruitflow/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Campaign example catalog commands",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the built-in campaign examples",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat := catalog.Default()

		table := tablewriter.NewWriter(os.Stdout)
		table.Header([]string{"ID", "Type", "Steps", "Days", "Collateral", "Goal"})

		for _, ex := range cat.All() {
			table.Append([]string{
				ex.ID,
				string(ex.CampaignType),
				strconv.Itoa(ex.SequenceAndExamples.Steps),
				strconv.Itoa(ex.SequenceAndExamples.Duration),
				strings.Join(ex.CollateralToUse, ", "),
				truncate(ex.Goal, 60),
			})
		}

		table.Render()
		fmt.Printf("%d examples\n", cat.Len())
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogListCmd)
	rootCmd.AddCommand(catalogCmd)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
