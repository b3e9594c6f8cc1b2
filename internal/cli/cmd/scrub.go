package cmd

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/matjam/smoothtile/internal/ipc"
	"github.com/spf13/cobra"
)

// NewScrubCmd sends a run of frame requests, the way a slider does while it
// is dragged. Only the last one is guaranteed to be shown.
func NewScrubCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "scrub [frame] [frame] ...",
		Short: "Request several frames in quick succession",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			frames := make([]int, len(args))
			for i, arg := range args {
				f, err := parseFrame(arg)
				if err != nil {
					return err
				}
				frames[i] = f
			}
			interval, _ := c.Flags().GetDuration("interval")

			for i, f := range frames {
				if i > 0 && interval > 0 {
					time.Sleep(interval)
				}
				if err := ipc.SendFrame(f, nil); err != nil {
					log.Fatalf("Failed to send 'frame' command: %v", err)
				}
			}
			log.Infof("Requested %d frames, settling on frame %d", len(frames), frames[len(frames)-1])
			return nil
		},
	}
	c.Flags().Duration("interval", 0, "delay between requests")
	return c
}
