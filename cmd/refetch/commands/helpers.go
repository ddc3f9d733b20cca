package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/fivetwenty-io/refetch/pkg/refetch"
	"github.com/spf13/viper"
)

// Static errors for err113 compliance.
var (
	ErrNoAPIConfigured = errors.New("no API base URL configured (use --api or set it in the config file)")
)

// createClient builds a refetch client from the effective configuration.
func createClient() (*refetch.Client, error) {
	api := viper.GetString("api")
	if api == "" {
		return nil, ErrNoAPIConfigured
	}

	config := &refetch.Config{
		BaseURL:     api,
		AccessToken: viper.GetString("token"),
		Debug:       viper.GetBool("verbose"),
	}

	if config.Debug {
		config.Logger = &stderrLogger{}
	}

	client, err := refetch.New(config)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}

	return client, nil
}

// stderrLogger is a minimal refetch.Logger for --verbose runs.
type stderrLogger struct{}

func (l *stderrLogger) log(level, msg string, fields map[string]interface{}) {
	fmt.Fprintf(os.Stderr, "[%s] %s %v\n", level, msg, fields)
}

func (l *stderrLogger) Debug(msg string, fields map[string]interface{}) { l.log("debug", msg, fields) }
func (l *stderrLogger) Info(msg string, fields map[string]interface{})  { l.log("info", msg, fields) }
func (l *stderrLogger) Warn(msg string, fields map[string]interface{})  { l.log("warn", msg, fields) }
func (l *stderrLogger) Error(msg string, fields map[string]interface{}) { l.log("error", msg, fields) }
