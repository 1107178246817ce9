// config.go - Daemon configuration via viper.

package config

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// Config collects every tunable of the daemon. Values come from the
// config file, environment and flags, in the usual viper precedence.
type Config struct {
	// TreeDepth fixes the accumulator capacity at 2^depth notes.
	TreeDepth int `mapstructure:"tree-depth"`
	// RootWindow bounds the accepted-root history; 0 keeps every root.
	RootWindow int `mapstructure:"root-window"`

	FeeRatePerMillion uint64 `mapstructure:"fee-rate"`
	SlippagePerMille  uint64 `mapstructure:"slippage"`

	// DataDir holds the badger registry; empty selects the in-memory
	// registry (dev mode).
	DataDir string `mapstructure:"data-dir"`
	Listen  string `mapstructure:"listen"`

	FeeSink  string `mapstructure:"fee-sink"`
	LogLevel string `mapstructure:"log-level"`
}

// Defaults returns the shipped configuration.
func Defaults() Config {
	return Config{
		TreeDepth:         20,
		RootWindow:        128,
		FeeRatePerMillion: 5_000, // 0.5%
		SlippagePerMille:  10,    // 1%
		Listen:            "127.0.0.1:8580",
		LogLevel:          "info",
	}
}

// SetDefaults seeds a viper instance with the shipped defaults so flags
// and files only need to override.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("tree-depth", d.TreeDepth)
	v.SetDefault("root-window", d.RootWindow)
	v.SetDefault("fee-rate", d.FeeRatePerMillion)
	v.SetDefault("slippage", d.SlippagePerMille)
	v.SetDefault("data-dir", d.DataDir)
	v.SetDefault("listen", d.Listen)
	v.SetDefault("fee-sink", d.FeeSink)
	v.SetDefault("log-level", d.LogLevel)
}

// Load unmarshals and validates the assembled configuration.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.TreeDepth < 1 || c.TreeDepth > 32 {
		return fmt.Errorf("config: tree depth %d outside [1,32]", c.TreeDepth)
	}
	if c.RootWindow < 0 {
		return fmt.Errorf("config: negative root window")
	}
	if c.FeeRatePerMillion > 1_000_000 {
		return fmt.Errorf("config: fee rate %d above one million", c.FeeRatePerMillion)
	}
	if c.SlippagePerMille > 1000 {
		return fmt.Errorf("config: slippage %d above one thousand", c.SlippagePerMille)
	}
	if c.FeeSink != "" && !common.IsHexAddress(c.FeeSink) {
		return fmt.Errorf("config: fee sink %q is not an address", c.FeeSink)
	}
	return nil
}

// FeeSinkAddress parses the configured sink, zero address when unset.
func (c Config) FeeSinkAddress() common.Address {
	if c.FeeSink == "" {
		return common.Address{}
	}
	return common.HexToAddress(c.FeeSink)
}
