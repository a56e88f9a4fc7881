package ct

import (
	"fmt"
	"github.com/ValentinKolb/goporto/cmd/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"sort"
	"strconv"
	"strings"
	"syscall"
)

var (
	listCmd = &cobra.Command{
		Use:   "list [mask]",
		Short: "Lists containers, optionally matching a mask (e.g. a/***)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mask := ""
			if len(args) == 1 {
				mask = args[0]
			}
			names, err := conn.List(mask)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
	createCmd = &cobra.Command{
		Use:   "create [name]",
		Short: "Creates a stopped container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if viper.GetBool("weak") {
				_, err = conn.CreateWeak(args[0])
			} else {
				_, err = conn.Create(args[0])
			}
			if err != nil {
				return err
			}
			fmt.Println("created successfully")
			return nil
		},
	}
	destroyCmd = &cobra.Command{
		Use:   "destroy [name]",
		Short: "Destroys a container and all its children",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := conn.Destroy(args[0]); err != nil {
				return err
			}
			fmt.Println("destroyed successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [name] [property...]",
		Short: "Reads properties of a container",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, properties := args[0], args[1:]
			if len(properties) == 1 {
				value, err := conn.GetProperty(name, properties[0])
				if err != nil {
					return err
				}
				fmt.Println(value)
				return nil
			}

			result, err := conn.Get([]string{name}, properties)
			if err != nil {
				return err
			}
			for _, property := range properties {
				v, ok := result[name][property]
				switch {
				case !ok:
					fmt.Printf("%s = <no value>\n", property)
				case v.Err != nil:
					fmt.Printf("%s = <error: %v>\n", property, v.Err)
				default:
					fmt.Printf("%s = %s\n", property, v.Value)
				}
			}
			return nil
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [name] [property] [value]",
		Short: "Writes a property of a container",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := conn.SetProperty(args[0], args[1], args[2]); err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	startCmd = &cobra.Command{
		Use:   "start [name]",
		Short: "Starts a stopped container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := conn.Start(args[0]); err != nil {
				return err
			}
			fmt.Println("started successfully")
			return nil
		},
	}
	stopCmd = &cobra.Command{
		Use:   "stop [name]",
		Short: "Stops a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, err := util.ParseDuration(viper.GetString("grace"))
			if err != nil {
				return fmt.Errorf("grace must be a duration: %w", err)
			}
			if err := conn.Stop(args[0], timeout); err != nil {
				return err
			}
			fmt.Println("stopped successfully")
			return nil
		},
	}
	killCmd = &cobra.Command{
		Use:   "kill [name] [signal]",
		Short: "Sends a signal (default SIGTERM) to the main process of a container",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sig := int(syscall.SIGTERM)
			if len(args) == 2 {
				var err error
				if sig, err = strconv.Atoi(args[1]); err != nil {
					return fmt.Errorf("signal must be a number: %w", err)
				}
			}
			if err := conn.Kill(args[0], sig); err != nil {
				return err
			}
			fmt.Println("killed successfully")
			return nil
		},
	}
	pauseCmd = &cobra.Command{
		Use:   "pause [name]",
		Short: "Freezes a running container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := conn.Pause(args[0]); err != nil {
				return err
			}
			fmt.Println("paused successfully")
			return nil
		},
	}
	resumeCmd = &cobra.Command{
		Use:   "resume [name]",
		Short: "Thaws a paused container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := conn.Resume(args[0]); err != nil {
				return err
			}
			fmt.Println("resumed successfully")
			return nil
		},
	}
	waitCmd = &cobra.Command{
		Use:   "wait [name...]",
		Short: "Waits until one of the containers is dead or stopped",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, err := util.ParseDuration(viper.GetString("wait-timeout"))
			if err != nil {
				return fmt.Errorf("wait-timeout must be a duration: %w", err)
			}
			result, err := conn.Wait(args, nil, timeout)
			if err != nil {
				return err
			}
			if result.Timeout() {
				fmt.Println("timeout")
				return nil
			}
			fmt.Printf("name=%s, state=%s\n", result.Name, result.State)
			return nil
		},
	}
	runCmd = &cobra.Command{
		Use:   "run [name] [property=value...]",
		Short: "Creates a container, sets the properties and starts it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			props, err := util.ParseProperties(args[1:])
			if err != nil {
				return err
			}
			if viper.GetBool("weak") {
				_, err = conn.RunWeak(args[0], props)
			} else {
				_, err = conn.Run(args[0], props)
			}
			if err != nil {
				return err
			}
			fmt.Println("started successfully")
			return nil
		},
	}
	propertiesCmd = &cobra.Command{
		Use:   "properties",
		Short: "Lists the container properties supported by the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := conn.ListProperties()
			if err != nil {
				return err
			}
			sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
			for _, p := range list {
				fmt.Printf("%-24s%s\n", p.Name, strings.TrimSpace(p.Desc))
			}
			return nil
		},
	}
	versionCmd = &cobra.Command{
		Use:   "daemon-version",
		Short: "Prints the version of the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tag, revision, err := conn.Version()
			if err != nil {
				return err
			}
			fmt.Printf("tag=%s, revision=%s\n", tag, revision)
			return nil
		},
	}
)

func init() {
	key := "weak"
	createCmd.Flags().Bool(key, false, util.WrapString("Create a weak container that the daemon destroys when the client disconnects"))
	runCmd.Flags().Bool(key, false, util.WrapString("Run a weak container that the daemon destroys when the client disconnects"))

	key = "grace"
	stopCmd.Flags().String(key, "-1", util.WrapString("Grace period before the daemon kills the container (e.g. 10s, -1 for the daemon default)"))

	key = "wait-timeout"
	waitCmd.Flags().String(key, "-1", util.WrapString("How long to wait (e.g. 30s, -1 for forever)"))
}
