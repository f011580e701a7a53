package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(vinCmd)
}

var vinCmd = &cobra.Command{
	Use:   "vin",
	Short: "read the vehicle identification number",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := initClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		vin, err := c.GetVIN(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println("VIN:", vin)
		return nil
	},
}
