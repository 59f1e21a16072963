package serve

import (
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	cmdUtil "github.com/ValentinKolb/smolDB/cmd/util"
	"github.com/ValentinKolb/smolDB/lib/logging"
	"github.com/ValentinKolb/smolDB/rpc/common"
	"github.com/ValentinKolb/smolDB/rpc/server"
	"github.com/VictoriaMetrics/metrics"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the smolDB server",
		Long:    `Start the smolDB server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is SMOLDB_<flag> (e.g. SMOLDB_ENDPOINT=0.0.0.0:9000)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8222", cmdUtil.WrapString("The address on which the server will listen (host:port for tcp, a socket path for unix)"))

	key = "data-dir"
	ServeCmd.PersistentFlags().String(key, "data", cmdUtil.WrapString("The directory used for storing the database files"))

	key = "in-memory"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Run without persistent storage. All data is lost when the server stops"))

	key = "no-evict"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Keep idle databases resident in memory. Dirty state is still flushed to disk"))

	key = "sweep-interval"
	ServeCmd.PersistentFlags().Int64(key, 10, cmdUtil.WrapString("How often the invalidation sweep runs, in seconds. Idle databases are flushed and evicted by their own invalidation time"))

	key = "super-admins"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Comma-separated list of access keys that hold the admin tier on every database"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 30, cmdUtil.WrapString("Idle timeout in seconds for client connections"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("The address on which Prometheus metrics are served (e.g. localhost:9100). Empty disables the metrics listener"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.DataDir = viper.GetString("data-dir")
	serveCmdConfig.InMemory = viper.GetBool("in-memory")
	serveCmdConfig.NoEvict = viper.GetBool("no-evict")
	serveCmdConfig.SweepIntervalSecond = viper.GetInt64("sweep-interval")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	// parse super admins, dropping empty entries
	serveCmdConfig.SuperAdmins = nil
	for _, key := range strings.Split(viper.GetString("super-admins"), ",") {
		if key = strings.TrimSpace(key); key != "" {
			serveCmdConfig.SuperAdmins = append(serveCmdConfig.SuperAdmins, key)
		}
	}

	if serveCmdConfig.SweepIntervalSecond <= 0 {
		return fmt.Errorf("sweep-interval must be positive")
	}

	return nil
}

// run starts the smolDB server
func run(cmd *cobra.Command, _ []string) error {
	logger := logging.GetLogger("serve")

	// parse the serializer
	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	// parse the transport
	t, err := cmdUtil.GetServerTransport()
	if err != nil {
		return err
	}

	serv, err := server.NewRPCServer(*serveCmdConfig, s, t)
	if err != nil {
		return err
	}

	fmt.Println(serveCmdConfig.String())

	// optional Prometheus metrics listener
	if serveCmdConfig.MetricsEndpoint != "" {
		go func() {
			mux := http.NewServeMux()
			mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
				metrics.WritePrometheus(w, true)
			})
			if err := http.ListenAndServe(serveCmdConfig.MetricsEndpoint, mux); err != nil {
				logger.Errorw("metrics listener failed", "error", err)
			}
		}()
	}

	// stop on SIGINT/SIGTERM, flushing all dirty databases
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		if err := serv.Shutdown(); err != nil {
			logger.Errorw("shutdown failed", "error", err)
		}
	}()

	return serv.Serve()
}

// initConfig reads in serveCmdConfig file and ENV variables if set.
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("smoldb")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}
