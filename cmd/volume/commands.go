package volume

import (
	"fmt"
	"github.com/ValentinKolb/goporto/cmd/util"
	"github.com/ValentinKolb/goporto/rpc/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Volumes
// --------------------------------------------------------------------------

var (
	volumeListCmd = &cobra.Command{
		Use:   "list [path]",
		Short: "Lists volumes, optionally only the one at path",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			volumes, err := conn.ListVolumes(path, viper.GetString("container"))
			if err != nil {
				return err
			}
			for _, v := range volumes {
				printVolume(v)
			}
			return nil
		},
	}
	volumeCreateCmd = &cobra.Command{
		Use:   "create [path] [property=value...]",
		Short: "Creates a volume; use \"\" as path to let the daemon choose one",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			props, err := util.ParseProperties(args[1:])
			if err != nil {
				return err
			}
			v, err := conn.CreateVolume(args[0], props)
			if err != nil {
				return err
			}
			fmt.Println(v.Path())
			return nil
		},
	}
	volumeLinkCmd = &cobra.Command{
		Use:   "link [path] [container]",
		Short: "Links a volume to a container",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := client.LinkOptions{
				Target:   viper.GetString("target"),
				ReadOnly: viper.GetBool("read-only"),
				Required: viper.GetBool("required"),
			}
			if err := conn.LinkVolume(args[0], args[1], opts); err != nil {
				return err
			}
			fmt.Println("linked successfully")
			return nil
		},
	}
	volumeUnlinkCmd = &cobra.Command{
		Use:   "unlink [path] [container]",
		Short: "Unlinks a volume from a container (*** for all containers)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := conn.UnlinkVolume(args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("unlinked successfully")
			return nil
		},
	}
	volumeTuneCmd = &cobra.Command{
		Use:   "tune [path] [property=value...]",
		Short: "Changes properties of a volume",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			props, err := util.ParseProperties(args[1:])
			if err != nil {
				return err
			}
			if err := conn.TuneVolume(args[0], props); err != nil {
				return err
			}
			fmt.Println("tuned successfully")
			return nil
		},
	}
	volumeDestroyCmd = &cobra.Command{
		Use:   "destroy [path]",
		Short: "Unlinks a volume from all containers, which deletes it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := conn.DestroyVolume(args[0]); err != nil {
				return err
			}
			fmt.Println("destroyed successfully")
			return nil
		},
	}
	volumeExportCmd = &cobra.Command{
		Use:   "export [path] [tarball]",
		Short: "Packs the upper layer of a volume into a tarball",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := conn.ExportLayer(args[0], args[1], viper.GetString("compress")); err != nil {
				return err
			}
			fmt.Println("exported successfully")
			return nil
		},
	}
	volumePropertiesCmd = &cobra.Command{
		Use:   "properties",
		Short: "Lists the volume properties supported by the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := conn.ListVolumeProperties()
			if err != nil {
				return err
			}
			for _, p := range list {
				fmt.Printf("%-24s%s\n", p.Name, strings.TrimSpace(p.Desc))
			}
			return nil
		},
	}
)

// --------------------------------------------------------------------------
// Layers
// --------------------------------------------------------------------------

var (
	layerListCmd = &cobra.Command{
		Use:   "list [mask]",
		Short: "Lists layers, optionally matching a mask",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			layers, err := conn.ListLayers(viper.GetString("place"), maskArg(args))
			if err != nil {
				return err
			}
			for _, l := range layers {
				s := l.Snapshot()
				fmt.Printf("%-32s owner=%s:%s last_usage=%ds private=%q\n", s.Name, s.OwnerUser, s.OwnerGroup, s.LastUsage, s.PrivateValue)
			}
			return nil
		},
	}
	layerImportCmd = &cobra.Command{
		Use:   "import [name] [tarball]",
		Short: "Unpacks a tarball into a new layer (or on top of an existing one with --merge)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := archiveOptions()
			var err error
			if viper.GetBool("merge") {
				err = conn.MergeLayer(args[0], args[1], opts)
			} else {
				_, err = conn.ImportLayer(args[0], args[1], opts)
			}
			if err != nil {
				return err
			}
			fmt.Println("imported successfully")
			return nil
		},
	}
	layerExportCmd = &cobra.Command{
		Use:   "export [name] [tarball]",
		Short: "Packs a layer into a tarball",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			layer, err := conn.FindLayer(args[0], viper.GetString("place"))
			if err != nil {
				return err
			}
			if err := layer.Export(args[1], viper.GetString("compress")); err != nil {
				return err
			}
			fmt.Println("exported successfully")
			return nil
		},
	}
	layerRemoveCmd = &cobra.Command{
		Use:   "remove [name]",
		Short: "Removes a layer that no volume uses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := conn.RemoveLayer(args[0], viper.GetString("place")); err != nil {
				return err
			}
			fmt.Println("removed successfully")
			return nil
		},
	}
	layerPrivateCmd = &cobra.Command{
		Use:   "private [name] [value]",
		Short: "Reads the private value of a layer, or replaces it if a value is given",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			place := viper.GetString("place")
			if len(args) == 2 {
				if err := conn.SetLayerPrivate(args[0], place, args[1]); err != nil {
					return err
				}
				fmt.Println("set successfully")
				return nil
			}
			value, err := conn.GetLayerPrivate(args[0], place)
			if err != nil {
				return err
			}
			fmt.Println(value)
			return nil
		},
	}
)

// --------------------------------------------------------------------------
// Storages
// --------------------------------------------------------------------------

var (
	storageListCmd = &cobra.Command{
		Use:   "list [mask]",
		Short: "Lists storages and meta storages, optionally matching a mask",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			place, mask := viper.GetString("place"), maskArg(args)
			storages, err := conn.ListStorages(place, mask)
			if err != nil {
				return err
			}
			for _, st := range storages {
				s := st.Snapshot()
				fmt.Printf("%-32s owner=%s:%s last_usage=%ds private=%q\n", s.Name, s.OwnerUser, s.OwnerGroup, s.LastUsage, s.PrivateValue)
			}

			metas, err := conn.ListMetaStorages(place, mask)
			if err != nil {
				return err
			}
			for _, m := range metas {
				s := m.Snapshot()
				fmt.Printf("%-32s meta space=%d/%d inodes=%d/%d private=%q\n", s.Name, s.SpaceUsed, s.SpaceLimit, s.InodeUsed, s.InodeLimit, s.PrivateValue)
			}
			return nil
		},
	}
	storageImportCmd = &cobra.Command{
		Use:   "import [name] [tarball]",
		Short: "Unpacks a tarball into a new storage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := conn.ImportStorage(args[0], args[1], archiveOptions()); err != nil {
				return err
			}
			fmt.Println("imported successfully")
			return nil
		},
	}
	storageExportCmd = &cobra.Command{
		Use:   "export [name] [tarball]",
		Short: "Packs a storage into a tarball",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := conn.ExportStorage(args[0], args[1], archiveOptions()); err != nil {
				return err
			}
			fmt.Println("exported successfully")
			return nil
		},
	}
	storageRemoveCmd = &cobra.Command{
		Use:   "remove [name]",
		Short: "Removes a storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := conn.RemoveStorage(args[0], viper.GetString("place")); err != nil {
				return err
			}
			fmt.Println("removed successfully")
			return nil
		},
	}
	metaCreateCmd = &cobra.Command{
		Use:   "create-meta [name] [space-limit] [inode-limit]",
		Short: "Creates a meta storage with space (bytes) and inode limits",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := metaOptions(args[1], args[2])
			if err != nil {
				return err
			}
			if _, err := conn.CreateMetaStorage(args[0], opts); err != nil {
				return err
			}
			fmt.Println("created successfully")
			return nil
		},
	}
	metaResizeCmd = &cobra.Command{
		Use:   "resize-meta [name] [space-limit] [inode-limit]",
		Short: "Changes the limits of a meta storage (0 keeps a limit)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := metaOptions(args[1], args[2])
			if err != nil {
				return err
			}
			if err := conn.ResizeMetaStorage(args[0], opts); err != nil {
				return err
			}
			fmt.Println("resized successfully")
			return nil
		},
	}
	metaRemoveCmd = &cobra.Command{
		Use:   "remove-meta [name]",
		Short: "Removes an empty meta storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := conn.RemoveMetaStorage(args[0], viper.GetString("place")); err != nil {
				return err
			}
			fmt.Println("removed successfully")
			return nil
		},
	}
)

func init() {
	key := "container"
	volumeListCmd.Flags().String(key, "", util.WrapString("Only list volumes linked to this container"))

	key = "target"
	volumeLinkCmd.Flags().String(key, "", util.WrapString("Mount point inside the container (empty keeps the volume path)"))
	key = "read-only"
	volumeLinkCmd.Flags().Bool(key, false, util.WrapString("Link the volume read-only"))
	key = "required"
	volumeLinkCmd.Flags().Bool(key, false, util.WrapString("The container fails to start without the volume"))

	key = "compress"
	for _, cmd := range []*cobra.Command{volumeExportCmd, layerImportCmd, layerExportCmd, storageImportCmd, storageExportCmd} {
		cmd.Flags().String(key, "", util.WrapString("Archive format (e.g. tar.gz, empty lets the daemon guess)"))
	}

	key = "private"
	for _, cmd := range []*cobra.Command{layerImportCmd, storageImportCmd, metaCreateCmd} {
		cmd.Flags().String(key, "", util.WrapString("Free-form private value stored with the record"))
	}

	key = "merge"
	layerImportCmd.Flags().Bool(key, false, util.WrapString("Merge the tarball into an existing layer"))
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func maskArg(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return ""
}

func archiveOptions() client.ArchiveOptions {
	return client.ArchiveOptions{
		Place:        viper.GetString("place"),
		PrivateValue: viper.GetString("private"),
		Compress:     viper.GetString("compress"),
	}
}

func metaOptions(space, inodes string) (client.MetaStorageOptions, error) {
	spaceLimit, err := strconv.ParseUint(space, 10, 64)
	if err != nil {
		return client.MetaStorageOptions{}, fmt.Errorf("space-limit must be a number: %w", err)
	}
	inodeLimit, err := strconv.ParseUint(inodes, 10, 64)
	if err != nil {
		return client.MetaStorageOptions{}, fmt.Errorf("inode-limit must be a number: %w", err)
	}
	return client.MetaStorageOptions{
		Place:        viper.GetString("place"),
		PrivateValue: viper.GetString("private"),
		SpaceLimit:   spaceLimit,
		InodeLimit:   inodeLimit,
	}, nil
}

func printVolume(v *client.Volume) {
	s := v.Snapshot()
	fmt.Println(s.Path)
	for _, name := range slices.Sorted(maps.Keys(s.Properties)) {
		fmt.Printf("  %-20s%s\n", name, s.Properties[name])
	}
	if len(s.Containers) > 0 {
		fmt.Printf("  %-20s%s\n", "containers", strings.Join(s.Containers, " "))
	}
}
