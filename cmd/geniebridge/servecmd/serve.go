// Package servecmd runs the long-lived Slack socket-mode bridge.
package servecmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mosaicworks/geniebridge/cmd/geniebridge/bootstrap"
	"github.com/mosaicworks/geniebridge/internal/await"
	"github.com/mosaicworks/geniebridge/internal/bot"
	"github.com/mosaicworks/geniebridge/internal/chart"
	"github.com/mosaicworks/geniebridge/internal/configutil"
	"github.com/mosaicworks/geniebridge/internal/genie"
	"github.com/mosaicworks/geniebridge/internal/healthcheck"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Slack to Genie bridge with Socket Mode",
		RunE:  run,
	}
	cmd.Flags().String("slack-bot-token", "", "Slack bot token (xoxb-)")
	cmd.Flags().String("slack-app-token", "", "Slack app-level token (xapp-)")
	cmd.Flags().String("genie-host", "", "Databricks workspace base URL")
	cmd.Flags().String("genie-token", "", "Databricks API token")
	cmd.Flags().String("store-driver", "", "State store driver: memory or postgres")
	cmd.Flags().String("store-dsn", "", "Postgres DSN for the state store")
	cmd.Flags().String("health-listen", "", "Health check listen address, e.g. :8080")
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	logger, err := bootstrap.Logger(cmd)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	botToken := strings.TrimSpace(configutil.FlagOrViperString(cmd, "slack-bot-token", "slack.bot_token"))
	if botToken == "" {
		return fmt.Errorf("missing slack.bot_token (set via --slack-bot-token or GENIEBRIDGE_SLACK_BOT_TOKEN)")
	}
	appToken := strings.TrimSpace(configutil.FlagOrViperString(cmd, "slack-app-token", "slack.app_token"))
	if appToken == "" {
		return fmt.Errorf("missing slack.app_token (set via --slack-app-token or GENIEBRIDGE_SLACK_APP_TOKEN)")
	}

	genieClient, err := bootstrap.GenieClient(cmd)
	if err != nil {
		return err
	}
	st, err := bootstrap.Store(cmd, logger)
	if err != nil {
		return err
	}

	charts, err := chartsFromViper(logger)
	if err != nil {
		return err
	}

	api := slack.New(botToken, slack.OptionAppLevelToken(appToken))
	socket := socketmode.New(api)

	orchestrator, err := bot.New(bot.Options{
		Logger: logger,
		Genie:  genieClient,
		Store:  st,
		Sender: bot.NewSlackSender(api),
		Charts: charts,
		Wait: await.Config{
			Attempts: bootstrap.PollAttempts(),
			Interval: bootstrap.PollInterval(),
		},
		DefaultRoom: genie.Room{
			ID:   strings.TrimSpace(viper.GetString("genie.room_id")),
			Name: strings.TrimSpace(viper.GetString("genie.room_name")),
		},
	})
	if err != nil {
		return err
	}
	runner, err := bot.NewRunner(bot.RunnerOptions{
		Logger: logger,
		API:    api,
		Socket: socket,
		Bot:    orchestrator,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	healthListen := healthcheck.NormalizeListen(configutil.FlagOrViperString(cmd, "health-listen", "health.listen"))
	if healthListen != "" {
		healthServer, err := healthcheck.StartServer(ctx, logger, healthListen, "serve")
		if err != nil {
			logger.Warn("health_server_start_error", "addr", healthListen, "error", err.Error())
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				_ = healthServer.Shutdown(shutdownCtx)
				cancel()
			}()
		}
	}

	logger.Info("serve_starting")
	return runner.Run(ctx)
}

// chartsFromViper assembles the optional chart pipeline. Disabled returns
// (nil, nil); a half-configured pipeline is an error rather than a silent
// no-op.
func chartsFromViper(logger *slog.Logger) (*chart.Generator, error) {
	if !viper.GetBool("chart.enabled") {
		return nil, nil
	}
	specs, err := chart.NewSpecGenerator(chart.SpecGeneratorOptions{
		Token:   viper.GetString("chart.llm_token"),
		Model:   viper.GetString("chart.llm_model"),
		BaseURL: viper.GetString("chart.llm_base_url"),
	})
	if err != nil {
		return nil, fmt.Errorf("chart.enabled: %w", err)
	}
	renderer, err := chart.NewRenderer(chart.RendererOptions{
		BaseURL: viper.GetString("chart.render_url"),
	})
	if err != nil {
		return nil, fmt.Errorf("chart.enabled: %w", err)
	}
	return chart.NewGenerator(specs, renderer, logger), nil
}
