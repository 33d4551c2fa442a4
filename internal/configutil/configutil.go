// Package configutil resolves settings that can arrive either as a cobra
// flag or a viper key. An explicitly changed flag wins; otherwise the viper
// value (config file or env) applies, falling back to the flag default.
package configutil

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// The non-zero Get fallback covers values that arrive only through
// AutomaticEnv, which IsSet does not always observe.

func FlagOrViperString(cmd *cobra.Command, flagName, viperKey string) string {
	if cmd != nil && flagName != "" && cmd.Flags().Changed(flagName) {
		if v, err := cmd.Flags().GetString(flagName); err == nil {
			return v
		}
	}
	if viperKey != "" {
		if viper.IsSet(viperKey) {
			return viper.GetString(viperKey)
		}
		if v := viper.GetString(viperKey); v != "" {
			return v
		}
	}
	if cmd != nil && flagName != "" {
		if v, err := cmd.Flags().GetString(flagName); err == nil {
			return v
		}
	}
	return ""
}

func FlagOrViperBool(cmd *cobra.Command, flagName, viperKey string) bool {
	if cmd != nil && flagName != "" && cmd.Flags().Changed(flagName) {
		if v, err := cmd.Flags().GetBool(flagName); err == nil {
			return v
		}
	}
	if viperKey != "" {
		if viper.IsSet(viperKey) || viper.GetBool(viperKey) {
			return viper.GetBool(viperKey)
		}
	}
	if cmd != nil && flagName != "" {
		if v, err := cmd.Flags().GetBool(flagName); err == nil {
			return v
		}
	}
	return false
}

func FlagOrViperInt(cmd *cobra.Command, flagName, viperKey string) int {
	if cmd != nil && flagName != "" && cmd.Flags().Changed(flagName) {
		if v, err := cmd.Flags().GetInt(flagName); err == nil {
			return v
		}
	}
	if viperKey != "" {
		if viper.IsSet(viperKey) {
			return viper.GetInt(viperKey)
		}
		if v := viper.GetInt(viperKey); v != 0 {
			return v
		}
	}
	if cmd != nil && flagName != "" {
		if v, err := cmd.Flags().GetInt(flagName); err == nil {
			return v
		}
	}
	return 0
}

func FlagOrViperDuration(cmd *cobra.Command, flagName, viperKey string) time.Duration {
	if cmd != nil && flagName != "" && cmd.Flags().Changed(flagName) {
		if v, err := cmd.Flags().GetDuration(flagName); err == nil {
			return v
		}
	}
	if viperKey != "" {
		if viper.IsSet(viperKey) {
			return viper.GetDuration(viperKey)
		}
		if v := viper.GetDuration(viperKey); v != 0 {
			return v
		}
	}
	if cmd != nil && flagName != "" {
		if v, err := cmd.Flags().GetDuration(flagName); err == nil {
			return v
		}
	}
	return 0
}

func FlagOrViperStringArray(cmd *cobra.Command, flagName, viperKey string) []string {
	if cmd != nil && flagName != "" && cmd.Flags().Changed(flagName) {
		if v, err := cmd.Flags().GetStringArray(flagName); err == nil {
			return v
		}
	}
	if viperKey != "" {
		if viper.IsSet(viperKey) {
			return viper.GetStringSlice(viperKey)
		}
		if v := viper.GetStringSlice(viperKey); len(v) > 0 {
			return v
		}
	}
	if cmd != nil && flagName != "" {
		if v, err := cmd.Flags().GetStringArray(flagName); err == nil {
			return v
		}
	}
	return nil
}
