package volume

import (
	"github.com/ValentinKolb/goporto/cmd/util"
	"github.com/ValentinKolb/goporto/rpc/client"
	"github.com/spf13/cobra"
)

var (
	conn *client.Connection

	// VolumeCommands represents the volume command group
	VolumeCommands = &cobra.Command{
		Use:                "volume",
		Short:              "Perform volume operations",
		PersistentPreRunE:  setupConnection,
		PersistentPostRunE: closeConnection,
	}

	// LayerCommands represents the layer command group
	LayerCommands = &cobra.Command{
		Use:                "layer",
		Short:              "Perform layer operations",
		PersistentPreRunE:  setupConnection,
		PersistentPostRunE: closeConnection,
	}

	// StorageCommands represents the storage command group
	StorageCommands = &cobra.Command{
		Use:                "storage",
		Short:              "Perform storage and meta storage operations",
		PersistentPreRunE:  setupConnection,
		PersistentPostRunE: closeConnection,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	for _, group := range []*cobra.Command{VolumeCommands, LayerCommands, StorageCommands} {
		util.SetupClientFlags(group)
	}
	for _, group := range []*cobra.Command{LayerCommands, StorageCommands} {
		group.PersistentFlags().String("place", "", util.WrapString("Storage place (empty for the daemon default)"))
	}

	VolumeCommands.AddCommand(volumeListCmd)
	VolumeCommands.AddCommand(volumeCreateCmd)
	VolumeCommands.AddCommand(volumeLinkCmd)
	VolumeCommands.AddCommand(volumeUnlinkCmd)
	VolumeCommands.AddCommand(volumeTuneCmd)
	VolumeCommands.AddCommand(volumeDestroyCmd)
	VolumeCommands.AddCommand(volumeExportCmd)
	VolumeCommands.AddCommand(volumePropertiesCmd)

	LayerCommands.AddCommand(layerListCmd)
	LayerCommands.AddCommand(layerImportCmd)
	LayerCommands.AddCommand(layerExportCmd)
	LayerCommands.AddCommand(layerRemoveCmd)
	LayerCommands.AddCommand(layerPrivateCmd)

	StorageCommands.AddCommand(storageListCmd)
	StorageCommands.AddCommand(storageImportCmd)
	StorageCommands.AddCommand(storageExportCmd)
	StorageCommands.AddCommand(storageRemoveCmd)
	StorageCommands.AddCommand(metaCreateCmd)
	StorageCommands.AddCommand(metaResizeCmd)
	StorageCommands.AddCommand(metaRemoveCmd)
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
