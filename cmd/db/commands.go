package db

import (
	"encoding/json"
	"fmt"

	libdb "github.com/ValentinKolb/smolDB/lib/db"
	"github.com/spf13/cobra"
)

var (
	createCmd = &cobra.Command{
		Use:   "create [db] [settings-json]",
		Short: "Creates a database with the given settings (defaults if omitted), the client's access key becomes its admin",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var settings *libdb.Settings
			if len(args) == 2 {
				settings = &libdb.Settings{}
				if err := json.Unmarshal([]byte(args[1]), settings); err != nil {
					return fmt.Errorf("invalid settings: %w", err)
				}
			}
			if err := rpcClient.CreateDB(args[0], settings); err != nil {
				return err
			}
			fmt.Println("created successfully")
			return nil
		},
	}
	dropCmd = &cobra.Command{
		Use:   "drop [db]",
		Short: "Deletes a database and its file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcClient.DeleteDB(args[0]); err != nil {
				return err
			}
			fmt.Println("dropped successfully")
			return nil
		},
	}
	readCmd = &cobra.Command{
		Use:   "read [db] [location]",
		Short: "Reads the payload stored at a location",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := rpcClient.Read(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Println(data)
			return nil
		},
	}
	writeCmd = &cobra.Command{
		Use:   "write [db] [location] [data]",
		Short: "Writes a payload to a location",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			previous, existed, err := rpcClient.Write(args[0], args[1], args[2])
			if err != nil {
				return err
			}
			if existed {
				fmt.Printf("written successfully, replaced %q\n", previous)
			} else {
				fmt.Println("written successfully")
			}
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [db] [location]",
		Short: "Removes a location and prints the payload it held",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := rpcClient.DeleteData(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("deleted %q\n", removed)
			return nil
		},
	}
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Lists all databases on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := rpcClient.ListDatabases()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
	contentsCmd = &cobra.Command{
		Use:   "contents [db]",
		Short: "Lists the full contents of a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contents, err := rpcClient.ListContents(args[0])
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(contents, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	roleCmd = &cobra.Command{
		Use:   "role [db]",
		Short: "Prints the role the client's access key resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := rpcClient.GetRole(args[0])
			if err != nil {
				return err
			}
			fmt.Println(role)
			return nil
		},
	}
	settingsCmd = &cobra.Command{
		Use:   "settings [db]",
		Short: "Prints the settings of a database as JSON (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := rpcClient.GetSettings(args[0])
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(settings, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	setSettingsCmd = &cobra.Command{
		Use:   "set-settings [db] [json]",
		Short: "Replaces the settings of a database with the given JSON (admin only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var settings libdb.Settings
			if err := json.Unmarshal([]byte(args[1]), &settings); err != nil {
				return fmt.Errorf("invalid settings: %w", err)
			}
			if err := rpcClient.ChangeSettings(args[0], settings); err != nil {
				return err
			}
			fmt.Println("settings updated successfully")
			return nil
		},
	}
	addUserCmd = &cobra.Command{
		Use:   "add-user [db] [key]",
		Short: "Adds a key to the user list of a database (admin only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcClient.AddUser(args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("user added successfully")
			return nil
		},
	}
	rmUserCmd = &cobra.Command{
		Use:   "rm-user [db] [key]",
		Short: "Removes a key from the user list of a database (admin only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcClient.RemoveUser(args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("user removed successfully")
			return nil
		},
	}
	addAdminCmd = &cobra.Command{
		Use:   "add-admin [db] [key]",
		Short: "Adds a key to the admin list of a database (admin only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcClient.AddAdmin(args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("admin added successfully")
			return nil
		},
	}
	rmAdminCmd = &cobra.Command{
		Use:   "rm-admin [db] [key]",
		Short: "Removes a key from the admin list of a database (admin only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcClient.RemoveAdmin(args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("admin removed successfully")
			return nil
		},
	}
)
