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

package l2switch

import (
	"sync/atomic"
	"time"

	"github.com/contiv/ofdpa/learning"
)

// State is the lifecycle state of a switch session
type State int32

// session states
const (
	Disconnected State = iota
	Connected
	Learning
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case Learning:
		return "learning"
	}
	return "unknown"
}

// Session is the controller's view of one attached switch
type Session struct {
	dpid        string
	macs        *learning.Table
	state       int32
	connectedAt time.Time

	packetIns uint64
	floods    uint64
	installs  uint64
	dropped   uint64
	lastGroup uint32
}

// SessionInfo is the inspect view of a session
type SessionInfo struct {
	DPID        string           `json:"dpid"`
	State       string           `json:"state"`
	ConnectedAt time.Time        `json:"connectedAt"`
	PacketIns   uint64           `json:"packetIns"`
	Floods      uint64           `json:"floods"`
	Installs    uint64           `json:"installs"`
	Dropped     uint64           `json:"dropped"`
	LastGroup   uint32           `json:"lastGroup"`
	MACs        []learning.Entry `json:"macs"`
}

func newSession(dpid string) *Session {
	return &Session{
		dpid:        dpid,
		macs:        learning.NewTable(),
		state:       int32(Connected),
		connectedAt: time.Now(),
	}
}

// DPID returns the datapath id of the session's switch
func (s *Session) DPID() string {
	return s.dpid
}

// State returns the current lifecycle state
func (s *Session) State() State {
	return State(atomic.LoadInt32(&s.state))
}

// MACs returns the session's learning table
func (s *Session) MACs() *learning.Table {
	return s.macs
}

// packetIn counts a packet-in and moves a connected session to learning
func (s *Session) packetIn() {
	atomic.AddUint64(&s.packetIns, 1)
	atomic.CompareAndSwapInt32(&s.state, int32(Connected), int32(Learning))
}

func (s *Session) disconnect() {
	atomic.StoreInt32(&s.state, int32(Disconnected))
}

func (s *Session) installed(groupID uint32) {
	atomic.AddUint64(&s.installs, 1)
	atomic.StoreUint32(&s.lastGroup, groupID)
}

// Info returns a snapshot of the session
func (s *Session) Info() SessionInfo {
	return SessionInfo{
		DPID:        s.dpid,
		State:       s.State().String(),
		ConnectedAt: s.connectedAt,
		PacketIns:   atomic.LoadUint64(&s.packetIns),
		Floods:      atomic.LoadUint64(&s.floods),
		Installs:    atomic.LoadUint64(&s.installs),
		Dropped:     atomic.LoadUint64(&s.dropped),
		LastGroup:   atomic.LoadUint32(&s.lastGroup),
		MACs:        s.macs.Entries(),
	}
}
