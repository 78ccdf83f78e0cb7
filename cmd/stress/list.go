package main

import (
	"chat-stress/internal"
	"chat-stress/repositories"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the recorded users still waiting for a cleanup",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openIdentityStore(a)
			if err != nil {
				return err
			}
			defer db.Close()

			identities, err := repositories.NewIdentityRepository(db).List()
			if err != nil {
				return err
			}
			rows := make([]internal.InspectRow, 0, len(identities))
			for _, identity := range identities {
				rows = append(rows, internal.DefaultMapper(identity))
			}
			printIdentities(cmd.OutOrStdout(), rows)
			return nil
		},
	}
}

func printIdentities(out io.Writer, rows []internal.InspectRow) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Email", "Domain"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, row := range rows {
		table.Append([]string{row.Email, row.Domain})
	}
	table.Render()
	_, _ = fmt.Fprintf(out, "\n%d recorded users\n", len(rows))
}
