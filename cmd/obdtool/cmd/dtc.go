package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func init() {
	dtcCmd.Flags().Bool("clear", false, "clear stored codes after reading")
	rootCmd.AddCommand(dtcCmd)
}

var dtcCmd = &cobra.Command{
	Use:   "dtc",
	Short: "show stored trouble codes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := initClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		codes, err := c.GetDTCs(ctx)
		if err != nil {
			return err
		}
		if len(codes) == 0 {
			fmt.Println("no stored trouble codes")
			return nil
		}
		for _, code := range codes {
			color.Red(code)
		}

		if clear, _ := cmd.Flags().GetBool("clear"); clear {
			if err := c.ClearDTCs(ctx); err != nil {
				return err
			}
			fmt.Println("cleared")
		}
		return nil
	},
}
