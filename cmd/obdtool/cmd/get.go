package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roffe/goobd/pkg/pid"
	"github.com/spf13/cobra"
)

func init() {
	getCmd.Flags().Bool("freeze", false, "read the freeze frame snapshot instead of live data")
	rootCmd.AddCommand(getCmd)
}

var getCmd = &cobra.Command{
	Use:   "get <key>...",
	Short: "read one or more parameters by key",
	Long:  "known keys:\n  " + strings.Join(columns(pid.Keys()), "\n  "),
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		freeze, _ := cmd.Flags().GetBool("freeze")
		c, err := initClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		for _, key := range args {
			value, err := c.GetPID(ctx, key, freeze)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", key, value)
		}
		return nil
	},
}

func columns(keys []string) []string {
	sort.Strings(keys)
	var out []string
	for i := 0; i < len(keys); i += 4 {
		end := i + 4
		if end > len(keys) {
			end = len(keys)
		}
		out = append(out, strings.Join(keys[i:end], ", "))
	}
	return out
}
