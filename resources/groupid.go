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

package resources

import (
	"sync/atomic"

	"github.com/contiv/libOpenflow/openflow13"
	"github.com/contiv/ofdpa/core"
)

// DefaultGroupIDBase is the first group id handed out. It follows the L2
// interface group prefix used on OF-DPA switches.
const DefaultGroupIDBase uint32 = 0xa0001

// GroupIDAllocator hands out strictly increasing group ids. A single
// allocator is shared by every switch session; ids are never reused.
type GroupIDAllocator struct {
	base uint32
	next uint64 // offset from base of the next id
}

// NewGroupIDAllocator creates an allocator whose first id is base
func NewGroupIDAllocator(base uint32) (*GroupIDAllocator, error) {
	if base > openflow13.OFPG_MAX {
		return nil, core.KindErrorf(core.ConfigurationError,
			"group id base 0x%x is above the last usable group 0x%x", base, uint32(openflow13.OFPG_MAX))
	}
	return &GroupIDAllocator{base: base}, nil
}

// Next returns the next group id
func (a *GroupIDAllocator) Next() (uint32, error) {
	off := atomic.AddUint64(&a.next, 1) - 1
	id := uint64(a.base) + off
	if id > openflow13.OFPG_MAX {
		return 0, core.Errorf("group id space exhausted after 0x%x", uint32(openflow13.OFPG_MAX))
	}
	return uint32(id), nil
}

// Last returns the most recently allocated id, or 0 if none was allocated
func (a *GroupIDAllocator) Last() uint32 {
	off := atomic.LoadUint64(&a.next)
	if off == 0 {
		return 0
	}
	id := uint64(a.base) + off - 1
	if id > openflow13.OFPG_MAX {
		return openflow13.OFPG_MAX
	}
	return uint32(id)
}

// Base returns the first id of the allocator
func (a *GroupIDAllocator) Base() uint32 {
	return a.base
}

// Allocated returns how many ids were handed out
func (a *GroupIDAllocator) Allocated() uint64 {
	off := atomic.LoadUint64(&a.next)
	if limit := uint64(openflow13.OFPG_MAX) - uint64(a.base) + 1; off > limit {
		return limit
	}
	return off
}
