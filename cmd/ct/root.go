package ct

import (
	"github.com/ValentinKolb/goporto/cmd/util"
	"github.com/ValentinKolb/goporto/rpc/client"
	"github.com/spf13/cobra"
)

var (
	conn *client.Connection

	// ContainerCommands represents the container command group
	ContainerCommands = &cobra.Command{
		Use:                "ct",
		Short:              "Perform container operations",
		PersistentPreRunE:  setupConnection,
		PersistentPostRunE: closeConnection,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common connection flags
	util.SetupClientFlags(ContainerCommands)

	// Add subcommands
	ContainerCommands.AddCommand(listCmd)
	ContainerCommands.AddCommand(createCmd)
	ContainerCommands.AddCommand(destroyCmd)
	ContainerCommands.AddCommand(getCmd)
	ContainerCommands.AddCommand(setCmd)
	ContainerCommands.AddCommand(startCmd)
	ContainerCommands.AddCommand(stopCmd)
	ContainerCommands.AddCommand(killCmd)
	ContainerCommands.AddCommand(pauseCmd)
	ContainerCommands.AddCommand(resumeCmd)
	ContainerCommands.AddCommand(waitCmd)
	ContainerCommands.AddCommand(runCmd)
	ContainerCommands.AddCommand(propertiesCmd)
	ContainerCommands.AddCommand(versionCmd)
	ContainerCommands.AddCommand(perfTestCmd)
}

// setupConnection creates the daemon connection used by all subcommands
func setupConnection(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	conn, err = util.NewConnection()
	return err
}

func closeConnection(_ *cobra.Command, _ []string) error {
	return util.CloseConnection(conn)
}
