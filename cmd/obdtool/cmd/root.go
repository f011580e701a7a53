package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/roffe/goobd"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "obdtool",
	Short:        "OBD-II diagnostics over CAN",
	Long:         `Read live parameters, trouble codes and the VIN from an ECU over a CAN bus`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) {
	rootCmd.ExecuteContext(ctx)
}

const (
	flagAdapter  = "adapter"
	flagPort     = "port"
	flagBaudrate = "baudrate"
	flagCANRate  = "canrate"
	flagExtended = "extended"
	flagDebug    = "debug"
	flagTimeout  = "timeout"
)

func init() {
	log.SetFlags(log.Lshortfile | log.LstdFlags)

	pf := rootCmd.PersistentFlags()
	pf.StringP(flagAdapter, "a", "SLCan", "what adapter to use")
	pf.StringP(flagPort, "p", "*", "com-port, * = select interactively")
	pf.IntP(flagBaudrate, "b", 115200, "baudrate")
	pf.Float64P(flagCANRate, "r", 500, "CAN bus rate in kbit")
	pf.BoolP(flagExtended, "e", false, "use 29-bit extended addressing")
	pf.BoolP(flagDebug, "d", false, "debug mode")
	pf.IntP(flagTimeout, "t", 1000, "response timeout in milliseconds")
}

func initClient(cmd *cobra.Command) (*goobd.Client, error) {
	ctx := cmd.Context()
	flags := cmd.Flags()
	adapterName, _ := flags.GetString(flagAdapter)
	port, _ := flags.GetString(flagPort)
	baudrate, _ := flags.GetInt(flagBaudrate)
	canRate, _ := flags.GetFloat64(flagCANRate)
	extended, _ := flags.GetBool(flagExtended)
	debug, _ := flags.GetBool(flagDebug)
	timeout, _ := flags.GetInt(flagTimeout)

	info, err := adapterInfo(adapterName)
	if err != nil {
		return nil, err
	}
	if info.RequiresSerialPort && port == "*" {
		port, err = selectPort()
		if err != nil {
			return nil, err
		}
	}

	device, err := goobd.NewAdapter(adapterName, &goobd.AdapterConfig{
		Debug:         debug,
		Port:          port,
		PortBaudrate:  baudrate,
		CANRate:       canRate,
		UseExtendedID: extended,
	})
	if err != nil {
		return nil, err
	}

	opts := []goobd.Option{
		goobd.WithTimeout(time.Duration(timeout) * time.Millisecond),
	}
	if extended {
		opts = append(opts, goobd.WithExtendedAddressing())
	}
	return goobd.New(ctx, device, opts...)
}

func adapterInfo(name string) (*goobd.AdapterInfo, error) {
	for _, info := range goobd.ListAdapters() {
		if info.Name == name {
			return &info, nil
		}
	}
	return nil, fmt.Errorf("unknown adapter %q, see obdtool adapters", name)
}

func selectPort() (string, error) {
	ports, err := goobd.ListPorts()
	if err != nil {
		return "", err
	}
	prompt := promptui.Select{
		Label:    "Select com-port",
		HideHelp: true,
		Items:    ports,
	}
	_, port, err := prompt.Run()
	return port, err
}
