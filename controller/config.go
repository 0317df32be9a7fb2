/***
Copyright 2014 Cisco Systems Inc. All rights reserved.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at
http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package controller

import (
	"io/ioutil"
	"net"
	"strconv"

	"github.com/contiv/libOpenflow/openflow13"
	"github.com/contiv/ofdpa/core"
	"github.com/contiv/ofdpa/l2switch"
	"github.com/contiv/ofdpa/ofdpa"
	"github.com/contiv/ofdpa/resources"
	"github.com/contiv/ofdpa/utils"
	"github.com/urfave/cli"
	"gopkg.in/yaml.v3"
)

// Config is the controller configuration
type Config struct {
	ListenAddress  string           `yaml:"listenAddress"`
	InspectAddress string           `yaml:"inspectAddress"`
	VlanID         uint16           `yaml:"vlan"`
	Priority       uint16           `yaml:"priority"`
	GroupBase      uint32           `yaml:"groupBase"`
	Tables         map[string]uint8 `yaml:"tables"`
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() *Config {
	return &Config{
		ListenAddress:  ":6633",
		InspectAddress: ":9090",
		VlanID:         l2switch.DefaultVlanID,
		Priority:       l2switch.DefaultPriority,
		GroupBase:      resources.DefaultGroupIDBase,
	}
}

// LoadFile overlays the yaml file at path onto the config
func (c *Config) LoadFile(path string) error {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return core.Wrap(core.ConfigurationError, err, "reading config file %s", path)
	}
	return c.Load(data)
}

// Load overlays yaml data onto the config
func (c *Config) Load(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return core.Wrap(core.ConfigurationError, err, "parsing config")
	}
	return nil
}

// Validate checks the config for values the controller cannot run with
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.ListenAddress); err != nil {
		return core.Wrap(core.ConfigurationError, err, "invalid listen address %q", c.ListenAddress)
	}
	if c.InspectAddress != "" {
		if _, _, err := net.SplitHostPort(c.InspectAddress); err != nil {
			return core.Wrap(core.ConfigurationError, err, "invalid inspect address %q", c.InspectAddress)
		}
	}
	if c.VlanID == 0 || c.VlanID > 4094 {
		return core.KindErrorf(core.ConfigurationError, "invalid vlan %d, must be 1-4094", c.VlanID)
	}
	if c.GroupBase > openflow13.OFPG_MAX {
		return core.KindErrorf(core.ConfigurationError, "group base 0x%x exceeds 0x%x", c.GroupBase, openflow13.OFPG_MAX)
	}
	for name := range c.Tables {
		if _, err := ofdpa.DefaultRegistry().TableID(name); err != nil {
			return err
		}
	}
	return nil
}

// MergeFlags applies explicitly set controller flags over the config
func (c *Config) MergeFlags(ctx *cli.Context) error {
	if ctx.IsSet(utils.FlagListenAddress) {
		c.ListenAddress = ctx.String(utils.FlagListenAddress)
	}
	if ctx.IsSet(utils.FlagInspectAddress) {
		c.InspectAddress = ctx.String(utils.FlagInspectAddress)
	}
	if ctx.IsSet(utils.FlagVlan) {
		vlan := ctx.Int(utils.FlagVlan)
		if vlan < 0 || vlan > 0xffff {
			return core.KindErrorf(core.ConfigurationError, "invalid vlan %d", vlan)
		}
		c.VlanID = uint16(vlan)
	}
	if ctx.IsSet(utils.FlagPriority) {
		priority := ctx.Int(utils.FlagPriority)
		if priority < 0 || priority > 0xffff {
			return core.KindErrorf(core.ConfigurationError, "invalid priority %d", priority)
		}
		c.Priority = uint16(priority)
	}
	if ctx.IsSet(utils.FlagGroupBase) {
		base, err := ParseGroupBase(ctx.String(utils.FlagGroupBase))
		if err != nil {
			return err
		}
		c.GroupBase = base
	}
	return nil
}

// ParseGroupBase parses a group id given in decimal, 0x hex or 0 octal
func ParseGroupBase(s string) (uint32, error) {
	base, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, core.Wrap(core.ConfigurationError, err, "invalid group base %q", s)
	}
	return uint32(base), nil
}

// ConfigFromContext builds the config from defaults, the --config file and
// the command line, in increasing precedence, and validates it.
func ConfigFromContext(ctx *cli.Context) (*Config, error) {
	cfg := DefaultConfig()
	if path := ctx.String(utils.FlagConfig); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.MergeFlags(ctx); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
