package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/smolDB/cmd/db"
	"github.com/ValentinKolb/smolDB/cmd/serve"
	"github.com/ValentinKolb/smolDB/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "smoldb",
		Short: "small network key-value database server",
		Long: fmt.Sprintf(`smolDB (v%s)

A small network-accessible key-value database server with named
databases, per-database access control and automatic flushing of idle
databases to disk.`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of smolDB",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("smolDB v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(db.DatabaseCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "json", util.WrapString("serializer to use (json, gob)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (tcp, unix)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
