//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package main

import (
	"fmt"
	"time"

	"github.com/markkurossi/tallier/field"
	"github.com/markkurossi/tallier/p2p"
	"github.com/spf13/viper"
)

// Config defines the committee configuration.
type Config struct {
	Parties   int           `mapstructure:"parties"`
	Threshold int           `mapstructure:"threshold"`
	Prime     uint32        `mapstructure:"prime"`
	Quorum    int           `mapstructure:"quorum"`
	Host      string        `mapstructure:"host"`
	BasePort  int           `mapstructure:"base_port"`
	Linger    time.Duration `mapstructure:"linger"`
	Verbose   bool          `mapstructure:"verbose"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("parties", 3)
	v.SetDefault("threshold", 2)
	v.SetDefault("prime", field.Mersenne31)
	v.SetDefault("quorum", 0)
	v.SetDefault("host", p2p.DefaultHost)
	v.SetDefault("base_port", p2p.DefaultBasePort)
	v.SetDefault("linger", time.Second)
	v.SetDefault("verbose", false)
	return v
}

// readConfig reads the YAML configuration file. An empty file name
// returns the default configuration.
func readConfig(v *viper.Viper, file string) (*Config, error) {
	if len(file) > 0 {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	config := new(Config)
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if config.Parties < 1 {
		return nil, fmt.Errorf("invalid number of parties: %d", config.Parties)
	}
	return config, nil
}

// Network returns the network configuration of party id.
func (c *Config) Network(id int) p2p.Config {
	return p2p.Config{
		ID:       id,
		Parties:  c.Parties,
		Host:     c.Host,
		BasePort: c.BasePort,
		Linger:   c.Linger,
		Verbose:  c.Verbose,
	}
}
