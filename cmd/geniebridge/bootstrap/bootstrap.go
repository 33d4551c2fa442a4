// Package bootstrap builds the shared runtime pieces (logger, Genie client,
// state store) from flags and viper config for the CLI commands.
package bootstrap

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mosaicworks/geniebridge/internal/configutil"
	"github.com/mosaicworks/geniebridge/internal/genie"
	"github.com/mosaicworks/geniebridge/internal/logutil"
	"github.com/mosaicworks/geniebridge/internal/store"
)

func Logger(cmd *cobra.Command) (*slog.Logger, error) {
	return logutil.New(
		configutil.FlagOrViperString(cmd, "log-format", "log.format"),
		configutil.FlagOrViperString(cmd, "log-level", "log.level"),
	)
}

func GenieClient(cmd *cobra.Command) (*genie.Client, error) {
	host := strings.TrimSpace(configutil.FlagOrViperString(cmd, "genie-host", "genie.host"))
	if host == "" {
		return nil, fmt.Errorf("missing genie.host (set via --genie-host or GENIEBRIDGE_GENIE_HOST)")
	}
	token := strings.TrimSpace(configutil.FlagOrViperString(cmd, "genie-token", "genie.token"))
	if token == "" {
		return nil, fmt.Errorf("missing genie.token (set via --genie-token or GENIEBRIDGE_GENIE_TOKEN)")
	}
	return genie.NewClient(genie.ClientOptions{
		Host:        host,
		Token:       token,
		HTTPTimeout: viper.GetDuration("genie.http_timeout"),
	})
}

// Store picks the backend by driver name. "memory" keeps everything in
// process and is meant for development only.
func Store(cmd *cobra.Command, logger *slog.Logger) (store.Store, error) {
	driver := strings.ToLower(strings.TrimSpace(configutil.FlagOrViperString(cmd, "store-driver", "store.driver")))
	switch driver {
	case "", "memory":
		return store.NewMemory(), nil
	case "postgres":
		dsn := strings.TrimSpace(configutil.FlagOrViperString(cmd, "store-dsn", "store.dsn"))
		if dsn == "" {
			return nil, fmt.Errorf("missing store.dsn (set via --store-dsn or GENIEBRIDGE_STORE_DSN)")
		}
		return store.OpenPostgres(store.PostgresOptions{
			DSN:    dsn,
			Logger: logger,
		})
	default:
		return nil, fmt.Errorf("unknown store.driver %q (expected memory or postgres)", driver)
	}
}

// PollInterval and PollAttempts allow operators to tighten or relax the
// answer wait budget without a rebuild.
func PollAttempts() int {
	if v := viper.GetInt("genie.poll_attempts"); v > 0 {
		return v
	}
	return 0
}

func PollInterval() time.Duration {
	if v := viper.GetDuration("genie.poll_interval"); v > 0 {
		return v
	}
	return 0
}
