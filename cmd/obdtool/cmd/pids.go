package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(pidsCmd)
}

var pidsCmd = &cobra.Command{
	Use:   "pids",
	Short: "scan which PIDs the ECU supports",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := initClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		pids, err := c.GetSupportedPIDs(cmd.Context())
		if err != nil {
			return err
		}
		for _, p := range pids {
			fmt.Printf("0x%02X ", p)
		}
		fmt.Println()
		return nil
	},
}
