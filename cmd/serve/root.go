package serve

import (
	"fmt"
	cmdUtil "github.com/ValentinKolb/goporto/cmd/util"
	"github.com/ValentinKolb/goporto/internal/daemontest"
	"github.com/ValentinKolb/goporto/rpc/common"
	"github.com/ValentinKolb/goporto/rpc/server"
	"github.com/ValentinKolb/goporto/rpc/transport/unix"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"os/signal"
	"syscall"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:   "serve",
		Short: "Start an in-memory mock daemon",
		Long: `Start an in-memory daemon that speaks the daemon protocol on a unix socket. It emulates containers, volumes, layers and storages without running anything and is meant for trying out and benchmarking clients.

The configuration can be set via command line flags or environment variables. The format of the environment variables is GOPORTO_<flag> (e.g. GOPORTO_ENDPOINT=/tmp/portod.socket)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitClientConfig)

	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "/tmp/goporto.socket", cmdUtil.WrapString("Path of the unix socket to listen on"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 0, cmdUtil.WrapString("Timeout in seconds for reading one request and writing its response (0 disables it, waits may block longer)"))

	key = "buffer-size"
	ServeCmd.PersistentFlags().Int(key, 64, cmdUtil.WrapString("Size of the read and write buffers per connection (in KB)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	if serveCmdConfig.Endpoint == "" {
		return fmt.Errorf("endpoint must not be empty")
	}
	if viper.GetInt("buffer-size") <= 0 {
		return fmt.Errorf("buffer-size must be positive")
	}
	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// run serves the mock daemon until SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	daemon := daemontest.New()
	serv := server.NewRPCServer(
		*serveCmdConfig,
		unix.NewUnixServerTransport(viper.GetInt("buffer-size")*1024),
		s,
		daemon,
	)
	if err := serv.Start(); err != nil {
		return err
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	sig := <-stop
	server.Logger.Infof("Received %s, shutting down", sig)

	// blocked waits hold their handlers, release them before closing the transport
	_ = daemon.Close()
	return serv.Close()
}
