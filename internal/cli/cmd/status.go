package cmd

import (
	"github.com/charmbracelet/log"
	"github.com/matjam/smoothtile/internal/cli/cmd/utils"
	"github.com/matjam/smoothtile/internal/ipc"
	"github.com/spf13/cobra"
)

func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get smoothtile status",
		Long:  `Returns the current status of the smoothtile daemon and its viewer.`,
		Run: func(cmd *cobra.Command, args []string) {
			response, err := ipc.SendStatus()
			if err != nil {
				log.Errorf("Error sending command: %v", err)
				return
			}

			utils.PrintJSONColored(response)
		},
	}
}
