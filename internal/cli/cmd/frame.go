package cmd

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/matjam/smoothtile/internal/ipc"
	"github.com/matjam/smoothtile/internal/types"
	"github.com/spf13/cobra"
)

func NewFrameCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "frame [frame]",
		Short: "Show a frame, optionally with a style",
		Example: `  smoothtile frame 3
  smoothtile frame 0 --style '{"bands":[{"frame":1,"palette":"#f00"},{"frame":2,"palette":"#0f0"}]}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			frame, err := parseFrame(args[0])
			if err != nil {
				return err
			}
			raw, _ := c.Flags().GetString("style")
			style, err := types.ParseStyle([]byte(raw))
			if err != nil {
				return err
			}

			if err := ipc.SendFrame(frame, style); err != nil {
				log.Fatalf("Failed to send 'frame' command: %v", err)
			}
			log.Infof("Requested frame %d", frame)
			return nil
		},
	}
	c.Flags().String("style", "", "style as a JSON object")
	return c
}

func parseFrame(s string) (int, error) {
	frame, err := strconv.Atoi(s)
	if err != nil || frame < 0 {
		return 0, fmt.Errorf("frame must be a non-negative integer, got %q", s)
	}
	return frame, nil
}
