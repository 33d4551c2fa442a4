package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mosaicworks/geniebridge/cmd/geniebridge/roomscmd"
	"github.com/mosaicworks/geniebridge/cmd/geniebridge/servecmd"
	"github.com/mosaicworks/geniebridge/cmd/geniebridge/statecmd"
)

func main() {
	// A local .env is a development convenience; absence is fine.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "geniebridge",
		Short:        "Slack assistant bridge to Databricks Genie",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "Config file path")
	root.PersistentFlags().String("log-format", "", "Log format: text or json")
	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")

	cobra.OnInitialize(func() { initConfig(root) })

	root.AddCommand(servecmd.New())
	root.AddCommand(roomscmd.New())
	root.AddCommand(statecmd.New())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func initConfig(root *cobra.Command) {
	viper.SetEnvPrefix("GENIEBRIDGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	cfg, _ := root.PersistentFlags().GetString("config")
	if strings.TrimSpace(cfg) != "" {
		viper.SetConfigFile(cfg)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintln(os.Stderr, "read config:", err)
		}
	}
}
