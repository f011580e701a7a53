package cmd

import (
	"fmt"

	"github.com/roffe/goobd"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(adaptersCmd)
}

var adaptersCmd = &cobra.Command{
	Use:   "adapters",
	Short: "list available adapters",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, info := range goobd.ListAdapters() {
			fmt.Println(info.String())
		}
		return nil
	},
}
