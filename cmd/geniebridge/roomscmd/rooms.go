// Package roomscmd lists the Genie rooms the configured workspace exposes.
package roomscmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mosaicworks/geniebridge/cmd/geniebridge/bootstrap"
	"github.com/mosaicworks/geniebridge/internal/format"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "List available Genie rooms",
		RunE:  run,
	}
	cmd.Flags().String("genie-host", "", "Databricks workspace base URL")
	cmd.Flags().String("genie-token", "", "Databricks API token")
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	client, err := bootstrap.GenieClient(cmd)
	if err != nil {
		return err
	}
	rooms, err := client.ListRooms(cmd.Context())
	if err != nil {
		return err
	}
	if len(rooms) == 0 {
		cmd.Println("No Genie rooms available.")
		return nil
	}
	rows := make([][]string, 0, len(rooms))
	for _, room := range rooms {
		rows = append(rows, []string{room.ID, room.Name})
	}
	fmt.Fprintln(cmd.OutOrStdout(), format.TextGrid([]string{"ID", "NAME"}, rows))
	return nil
}
