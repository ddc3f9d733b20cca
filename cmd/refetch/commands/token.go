package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// Static errors for err113 compliance.
var (
	ErrNoTokenConfigured = errors.New("no token configured")
)

// NewTokenCommand creates the token command group
func NewTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the stored authorization credential",
	}

	cmd.AddCommand(newTokenSetCommand())
	cmd.AddCommand(newTokenShowCommand())

	return cmd
}

func newTokenSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set [VALUE]",
		Short: "Store the authorization header value",
		Long: `Store the authorization header value in the config file.

The value is attached verbatim to requests, so include the scheme if the API
expects one (e.g. "Bearer xyz"). With no argument the value is prompted for
without echo.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string

			if len(args) == 1 {
				token = args[0]
			} else {
				fmt.Fprint(os.Stderr, "Token: ")

				raw, err := term.ReadPassword(int(os.Stdin.Fd()))

				fmt.Fprintln(os.Stderr)

				if err != nil {
					return fmt.Errorf("reading token: %w", err)
				}

				token = strings.TrimSpace(string(raw))
			}

			viper.Set("token", token)

			if err := viper.WriteConfig(); err != nil {
				// First write when no config file exists yet.
				if err := viper.SafeWriteConfig(); err != nil {
					return fmt.Errorf("writing config: %w", err)
				}
			}

			cmd.Println("Token stored")

			return nil
		},
	}
}

func newTokenShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the stored credential (masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			token := viper.GetString("token")
			if token == "" {
				return ErrNoTokenConfigured
			}

			cmd.Println(maskToken(token))

			return nil
		},
	}
}

// maskToken keeps enough of the value to recognize it without leaking it.
func maskToken(token string) string {
	const visible = 4

	if len(token) <= visible*2 {
		return strings.Repeat("*", len(token))
	}

	return token[:visible] + strings.Repeat("*", len(token)-visible*2) + token[len(token)-visible:]
}
