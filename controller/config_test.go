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
	"flag"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/contiv/ofdpa/core"
	"github.com/contiv/ofdpa/utils"
	"github.com/urfave/cli"
)

// newContext parses args against the controller flags
func newContext(t *testing.T, args ...string) *cli.Context {
	set := flag.NewFlagSet("ofdpad", flag.ContinueOnError)
	for _, f := range utils.BuildControllerFlags("ofdpad") {
		f.Apply(set)
	}
	if err := set.Parse(args); err != nil {
		t.Fatalf("error parsing %v: %v", args, err)
	}
	return cli.NewContext(cli.NewApp(), set, nil)
}

func writeConfig(t *testing.T, content string) string {
	dir, err := ioutil.TempDir("", "ofdpad")
	if err != nil {
		t.Fatalf("error creating temp dir: %v", err)
	}
	path := filepath.Join(dir, "ofdpad.yaml")
	if err := ioutil.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("error writing config: %v", err)
	}
	return path
}

func TestDefaultConfigFromContext(t *testing.T) {
	cfg, err := ConfigFromContext(newContext(t))
	if err != nil {
		t.Fatalf("error building config: %v", err)
	}
	if cfg.ListenAddress != ":6633" || cfg.InspectAddress != ":9090" ||
		cfg.VlanID != 10 || cfg.Priority != 1 || cfg.GroupBase != 0xa0001 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestConfigFilePrecedence(t *testing.T) {
	path := writeConfig(t, `
listenAddress: 127.0.0.1:6653
vlan: 20
priority: 5
groupBase: 0xb0000
tables:
  bridging: 51
`)
	defer os.RemoveAll(filepath.Dir(path))

	cfg, err := ConfigFromContext(newContext(t, "--config", path, "--vlan", "30"))
	if err != nil {
		t.Fatalf("error building config: %v", err)
	}
	if cfg.ListenAddress != "127.0.0.1:6653" || cfg.Priority != 5 || cfg.GroupBase != 0xb0000 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.VlanID != 30 {
		t.Fatalf("explicit flag should win over the file, got vlan %d", cfg.VlanID)
	}
	if cfg.Tables["bridging"] != 51 {
		t.Fatalf("table override not loaded: %+v", cfg.Tables)
	}
}

func TestInvalidConfigs(t *testing.T) {
	for _, args := range [][]string{
		{"--vlan", "0"},
		{"--vlan", "4095"},
		{"--vlan", "-1"},
		{"--priority", "70000"},
		{"--group-base", "0xffffff01"},
		{"--group-base", "lots"},
		{"--listen-address", "6633"},
		{"--inspect-address", "nowhere"},
		{"--config", "/nonexistent/ofdpad.yaml"},
	} {
		_, err := ConfigFromContext(newContext(t, args...))
		if !core.IsKind(err, core.ConfigurationError) {
			t.Fatalf("%v: expected a configuration error, got %v", args, err)
		}
	}
}

func TestUnknownTableOverride(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Load([]byte("tables:\n  egress: 70\n")); err != nil {
		t.Fatalf("error loading config: %v", err)
	}
	if err := cfg.Validate(); !core.IsKind(err, core.ConfigurationError) {
		t.Fatalf("expected a configuration error, got %v", err)
	}
}

func TestMalformedYaml(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Load([]byte("vlan: [")); !core.IsKind(err, core.ConfigurationError) {
		t.Fatalf("expected a configuration error, got %v", err)
	}
}

func TestEmptyInspectAddress(t *testing.T) {
	cfg, err := ConfigFromContext(newContext(t, "--inspect-address", ""))
	if err != nil {
		t.Fatalf("error building config: %v", err)
	}
	if cfg.InspectAddress != "" {
		t.Fatalf("inspect address should be disabled, got %q", cfg.InspectAddress)
	}
}

func TestParseGroupBase(t *testing.T) {
	for s, exp := range map[string]uint32{"0xa0001": 0xa0001, "655361": 655361, "010": 8} {
		base, err := ParseGroupBase(s)
		if err != nil || base != exp {
			t.Fatalf("%q: expected %d, got %d (%v)", s, exp, base, err)
		}
	}
}
