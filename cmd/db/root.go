package db

import (
	"github.com/ValentinKolb/smolDB/cmd/util"
	"github.com/ValentinKolb/smolDB/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcClient *client.Client

	// DatabaseCommands represents the db command group
	DatabaseCommands = &cobra.Command{
		Use:               "db",
		Short:             "Perform database operations against a running server",
		PersistentPreRunE: setupClient,
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if rpcClient != nil {
				_ = rpcClient.Close()
			}
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the db command
	util.SetupRPCClientFlags(DatabaseCommands)

	// Add subcommands
	DatabaseCommands.AddCommand(createCmd)
	DatabaseCommands.AddCommand(dropCmd)
	DatabaseCommands.AddCommand(readCmd)
	DatabaseCommands.AddCommand(writeCmd)
	DatabaseCommands.AddCommand(delCmd)
	DatabaseCommands.AddCommand(listCmd)
	DatabaseCommands.AddCommand(contentsCmd)
	DatabaseCommands.AddCommand(roleCmd)
	DatabaseCommands.AddCommand(settingsCmd)
	DatabaseCommands.AddCommand(setSettingsCmd)
	DatabaseCommands.AddCommand(addUserCmd)
	DatabaseCommands.AddCommand(rmUserCmd)
	DatabaseCommands.AddCommand(addAdminCmd)
	DatabaseCommands.AddCommand(rmAdminCmd)
}

// setupClient initializes the RPC client
func setupClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Get client configuration components
	config := util.GetClientConfig()

	// Get serializer and transport
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetClientTransport()
	if err != nil {
		return err
	}

	// Create the client
	rpcClient, err = client.NewClient(*config, s, t)
	return err
}
