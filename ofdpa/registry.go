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

// Package ofdpa maps the logical names used by the controller onto the
// OF-DPA pipeline table ids and the OpenFlow 1.3 constants of libOpenflow.
package ofdpa

import (
	"sort"
	"strings"

	"github.com/contiv/libOpenflow/openflow13"
	"github.com/contiv/ofdpa/core"
)

// Logical table names
const (
	TableACL      = "acl"
	TableVLAN     = "vlan"
	TableMAC      = "mac"
	TableBridging = "bridging"
)

// Logical command names, used for both flow-mods and group-mods
const (
	CmdAdd    = "add"
	CmdModify = "modify"
	CmdDelete = "delete"
)

// Logical group types
const (
	GroupIndirect     = "indirect"
	GroupSelect       = "select"
	GroupFastFailover = "fastfailover"
	GroupAll          = "all"
)

// Default OF-DPA table ids
const (
	OfdpaVlanTableID     = 10
	OfdpaTermMacTableID  = 20
	OfdpaBridgingTableID = 50
	OfdpaACLTableID      = 60
)

var defaultTables = map[string]uint8{
	TableACL:      OfdpaACLTableID,
	TableVLAN:     OfdpaVlanTableID,
	TableMAC:      OfdpaTermMacTableID,
	TableBridging: OfdpaBridgingTableID,
}

var flowCommands = map[string]uint8{
	CmdAdd:    openflow13.FC_ADD,
	CmdModify: openflow13.FC_MODIFY,
	CmdDelete: openflow13.FC_DELETE,
}

var groupCommands = map[string]uint16{
	CmdAdd:    openflow13.OFPGC_ADD,
	CmdModify: openflow13.OFPGC_MODIFY,
	CmdDelete: openflow13.OFPGC_DELETE,
}

var groupTypes = map[string]uint8{
	GroupIndirect:     openflow13.OFPGT_INDIRECT,
	GroupSelect:       openflow13.OFPGT_SELECT,
	GroupFastFailover: openflow13.OFPGT_FF,
	GroupAll:          openflow13.OFPGT_ALL,
}

// Registry is an immutable lookup of pipeline tables and protocol constants
type Registry struct {
	tables map[string]uint8
}

// normalize accepts "bridging", "BRIDGING" and "TABLE_BRIDGING"
func normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.TrimPrefix(name, "table_")
}

// NewRegistry builds a registry from the OF-DPA defaults and the given table
// overrides. An override for an unknown logical table is a ConfigurationError.
func NewRegistry(overrides map[string]uint8) (*Registry, error) {
	reg := &Registry{tables: make(map[string]uint8, len(defaultTables))}
	for name, id := range defaultTables {
		reg.tables[name] = id
	}

	for name, id := range overrides {
		key := normalize(name)
		if _, ok := defaultTables[key]; !ok {
			return nil, core.KindErrorf(core.ConfigurationError,
				"unknown pipeline table %q (known: %s)", name, strings.Join(TableNames(), ", "))
		}
		reg.tables[key] = id
	}

	return reg, nil
}

// DefaultRegistry returns a registry with the stock OF-DPA table ids
func DefaultRegistry() *Registry {
	reg, _ := NewRegistry(nil)
	return reg
}

// TableNames returns the sorted logical table names
func TableNames() []string {
	names := make([]string, 0, len(defaultTables))
	for name := range defaultTables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TableID returns the table id for a logical table name
func (r *Registry) TableID(name string) (uint8, error) {
	id, ok := r.tables[normalize(name)]
	if !ok {
		return 0, core.KindErrorf(core.ConfigurationError, "unknown pipeline table %q", name)
	}
	return id, nil
}

// Tables returns a copy of the logical name to table id mapping
func (r *Registry) Tables() map[string]uint8 {
	tables := make(map[string]uint8, len(r.tables))
	for name, id := range r.tables {
		tables[name] = id
	}
	return tables
}

// ModCommand returns the flow-mod command for add/modify/delete
func (r *Registry) ModCommand(kind string) (uint8, error) {
	cmd, ok := flowCommands[normalize(kind)]
	if !ok {
		return 0, core.KindErrorf(core.ConfigurationError, "unknown flow-mod command %q", kind)
	}
	return cmd, nil
}

// GroupCommand returns the group-mod command for add/modify/delete
func (r *Registry) GroupCommand(kind string) (uint16, error) {
	cmd, ok := groupCommands[normalize(kind)]
	if !ok {
		return 0, core.KindErrorf(core.ConfigurationError, "unknown group-mod command %q", kind)
	}
	return cmd, nil
}

// GroupType returns the group type for indirect/select/fastfailover/all
func (r *Registry) GroupType(kind string) (uint8, error) {
	gt, ok := groupTypes[normalize(kind)]
	if !ok {
		return 0, core.KindErrorf(core.ConfigurationError, "unknown group type %q", kind)
	}
	return gt, nil
}

// WildcardPort is the "any" port sentinel
func (r *Registry) WildcardPort() uint32 {
	return openflow13.P_ANY
}

// WildcardGroup is the "any" group sentinel
func (r *Registry) WildcardGroup() uint32 {
	return openflow13.OFPG_ANY
}
