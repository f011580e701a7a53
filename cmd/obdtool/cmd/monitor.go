package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func init() {
	monitorCmd.Flags().Duration("interval", time.Second, "poll interval")
	rootCmd.AddCommand(monitorCmd)
}

var monitorCmd = &cobra.Command{
	Use:   "monitor <key>...",
	Short: "poll parameters continuously until interrupted",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		interval, _ := cmd.Flags().GetDuration("interval")
		c, err := initClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		keyColor := color.New(color.FgGreen).SprintFunc()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case err := <-c.Err():
				return err
			}
		})
		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				for _, key := range args {
					value, err := c.GetPID(ctx, key, false)
					if err != nil {
						fmt.Printf("%s: %v\n", keyColor(key), err)
						continue
					}
					fmt.Printf("%s: %s\n", keyColor(key), value)
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
				}
			}
		})
		return g.Wait()
	},
}
