// The Licensed Work is (c) 2024 Fintechain
// SPDX-License-Identifier: BUSL-1.1

package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ConfigFlagName     = "config"
	ConfigURLFlagName  = "config-url"
	BlockstoreFlagName = "blockstore"
)

// BindFlags binds the persistent engine flags and wires them into viper.
func BindFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	bindStringFlag(flags, ConfigFlagName, "config.json", "path to configuration file or 'env' to load from environment")
	bindStringFlag(flags, ConfigURLFlagName, "", "URL of shared chain configuration")
	bindStringFlag(flags, BlockstoreFlagName, "./lvldbdata", "path to levelDB data directory")
}

func bindStringFlag(flags *pflag.FlagSet, name, value, usage string) {
	flags.String(name, value, usage)
	_ = viper.BindPFlag(name, flags.Lookup(name))
}
