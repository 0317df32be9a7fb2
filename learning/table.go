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

// Package learning keeps the per-switch station location table: the port on
// which each source MAC was last seen.
package learning

import (
	"bytes"
	"net"
	"sort"
	"sync"

	"github.com/contiv/ofdpa/core"
)

// macKey is the comparable form of a 48-bit MAC
type macKey [6]byte

func keyOf(mac net.HardwareAddr) (macKey, bool) {
	var k macKey
	if len(mac) != len(k) {
		return k, false
	}
	copy(k[:], mac)
	return k, true
}

// Entry is one learned binding
type Entry struct {
	MAC  string `json:"mac"`
	Port uint32 `json:"port"`
}

// Table maps source MACs to ingress ports for one switch
type Table struct {
	lock    sync.RWMutex
	entries map[macKey]uint32
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{entries: make(map[macKey]uint32)}
}

// Learn binds mac to port, replacing any previous binding. Addresses that
// are not 48 bits long are ignored.
func (t *Table) Learn(mac net.HardwareAddr, port uint32) {
	k, ok := keyOf(mac)
	if !ok {
		return
	}

	t.lock.Lock()
	t.entries[k] = port
	t.lock.Unlock()
}

// Lookup returns the port mac was last seen on, or core.ErrNotFound
func (t *Table) Lookup(mac net.HardwareAddr) (uint32, error) {
	k, ok := keyOf(mac)
	if !ok {
		return 0, core.ErrNotFound
	}

	t.lock.RLock()
	defer t.lock.RUnlock()

	port, found := t.entries[k]
	if !found {
		return 0, core.ErrNotFound
	}
	return port, nil
}

// Len returns the number of learned addresses
func (t *Table) Len() int {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return len(t.entries)
}

// Entries returns a snapshot sorted by MAC
func (t *Table) Entries() []Entry {
	type binding struct {
		key  macKey
		port uint32
	}

	t.lock.RLock()
	bindings := make([]binding, 0, len(t.entries))
	for k, port := range t.entries {
		bindings = append(bindings, binding{k, port})
	}
	t.lock.RUnlock()

	sort.Slice(bindings, func(i, j int) bool {
		return bytes.Compare(bindings[i].key[:], bindings[j].key[:]) < 0
	})

	entries := make([]Entry, 0, len(bindings))
	for _, b := range bindings {
		k := b.key
		entries = append(entries, Entry{MAC: net.HardwareAddr(k[:]).String(), Port: b.port})
	}
	return entries
}
