package cmd

import (
	"fmt"
	"github.com/ValentinKolb/goporto/cmd/ct"
	"github.com/ValentinKolb/goporto/cmd/serve"
	"github.com/ValentinKolb/goporto/cmd/util"
	"github.com/ValentinKolb/goporto/cmd/volume"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "goporto",
		Short: "client for the porto container daemon",
		Long: fmt.Sprintf(`goporto (v%s)

A client for the porto container daemon. It talks to the daemon over its
unix socket and manages containers, volumes, layers and storages.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of goporto",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("goporto v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(ct.ContainerCommands)
	RootCmd.AddCommand(volume.VolumeCommands)
	RootCmd.AddCommand(volume.LayerCommands)
	RootCmd.AddCommand(volume.StorageCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "protobuf", util.WrapString("serializer to use (protobuf, json); the real daemon only speaks protobuf"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
