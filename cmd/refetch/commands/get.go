package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/fivetwenty-io/refetch/pkg/refetch"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// NewGetCommand creates the get command
func NewGetCommand() *cobra.Command {
	var noAuth bool

	cmd := &cobra.Command{
		Use:   "get IDENTIFIER",
		Short: "Fetch a resource once",
		Long:  "Perform a single authorized fetch of the given resource identifier and print the decoded payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient()
			if err != nil {
				return err
			}

			opts := refetch.DefaultOptions[map[string]interface{}]()
			opts.Auth = !noAuth

			ctx := context.Background()

			payload, err := refetch.Fetch(ctx, client, args[0], opts)
			if err != nil {
				return fmt.Errorf("fetching %s: %w", args[0], err)
			}

			output := viper.GetString("output")
			switch output {
			case "json":
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(payload)
			case "yaml":
				encoder := yaml.NewEncoder(cmd.OutOrStdout())
				return encoder.Encode(payload)
			default:
				keys := make([]string, 0, len(payload))
				for key := range payload {
					keys = append(keys, key)
				}
				sort.Strings(keys)

				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Field", "Value")
				for _, key := range keys {
					_ = table.Append(key, fmt.Sprintf("%v", payload[key]))
				}
				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&noAuth, "no-auth", false, "skip the Authorization header")

	return cmd
}
