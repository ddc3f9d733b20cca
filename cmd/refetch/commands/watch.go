package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fivetwenty-io/refetch/pkg/refetch"
	"github.com/fivetwenty-io/refetch/pkg/refetch/feed"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewWatchCommand creates the watch command
func NewWatchCommand() *cobra.Command {
	var (
		noAuth  bool
		subject string
		natsURL string
	)

	cmd := &cobra.Command{
		Use:   "watch IDENTIFIER",
		Short: "Observe a resource and re-fetch on identifier changes",
		Long: `Observe the given resource identifier and print every state change.

New identifiers are read from stdin (one per line), or from a NATS subject
when --subject is set. Each new identifier supersedes the in-flight request.
Stop with Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := refetch.DefaultOptions[json.RawMessage]()
			opts.Auth = !noAuth
			opts.Extract = func(body []byte) (json.RawMessage, error) {
				return json.RawMessage(body), nil
			}

			obs := refetch.Observe(ctx, client, args[0], opts)

			source, err := identifierFeed(subject, natsURL)
			if err != nil {
				return err
			}

			go func() {
				_ = feed.Drive(ctx, obs, source)
			}()

			return printStates(ctx, cmd, obs)
		},
	}

	cmd.Flags().BoolVar(&noAuth, "no-auth", false, "skip the Authorization header")
	cmd.Flags().StringVar(&subject, "subject", "", "NATS subject to read identifiers from")
	cmd.Flags().StringVar(&natsURL, "nats-url", "", "NATS server URL (defaults to nats://127.0.0.1:4222)")

	return cmd
}

// identifierFeed picks the identifier source: a NATS subject when requested,
// otherwise stdin lines.
func identifierFeed(subject, natsURL string) (feed.Feed, error) {
	if subject != "" {
		natsFeed, err := feed.NewNATSFeed(&feed.NATSConfig{URL: natsURL, Subject: subject})
		if err != nil {
			return nil, fmt.Errorf("creating NATS feed: %w", err)
		}

		return natsFeed, nil
	}

	lines := make(chan string)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Text()
			if line != "" {
				lines <- line
			}
		}
	}()

	return feed.NewChannelFeed(lines), nil
}

// printStates streams state changes until the context ends. JSON output is
// line-oriented; the default renders a table of observed transitions on exit.
func printStates(ctx context.Context, cmd *cobra.Command, obs *refetch.Observation[json.RawMessage]) error {
	type row struct {
		at     time.Time
		loaded bool
		errMsg string
		size   int
	}

	var rows []row

	jsonOut := viper.GetString("output") == "json"
	encoder := json.NewEncoder(cmd.OutOrStdout())

	for {
		select {
		case <-ctx.Done():
			if jsonOut {
				return nil
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.Header("Time", "Loaded", "Error", "Bytes")
			for _, r := range rows {
				_ = table.Append(r.at.Format(time.TimeOnly), fmt.Sprintf("%t", r.loaded), r.errMsg, fmt.Sprintf("%d", r.size))
			}
			if err := table.Render(); err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}

			return nil

		case state := <-obs.Changes():
			if jsonOut {
				_ = encoder.Encode(map[string]interface{}{
					"loaded": state.Loaded,
					"error":  state.Err,
					"data":   state.Data,
				})

				continue
			}

			size := 0
			if state.Data != nil {
				size = len(*state.Data)
			}

			rows = append(rows, row{at: time.Now(), loaded: state.Loaded, errMsg: state.Err, size: size})
		}
	}
}
