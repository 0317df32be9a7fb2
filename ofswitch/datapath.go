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

// Package ofswitch adapts the ofctrl OpenFlow 1.3 runtime to the l2switch
// event handler.
package ofswitch

import (
	"sync/atomic"

	"github.com/contiv/libOpenflow/openflow13"
	"github.com/contiv/libOpenflow/util"
	"github.com/contiv/ofdpa/core"
)

// sender is the part of *ofctrl.OFSwitch a datapath needs
type sender interface {
	Send(req util.Message)
}

// Datapath sends pipeline programming to one connected switch
type Datapath struct {
	dpid   string
	sw     sender
	closed int32
}

func newDatapath(dpid string, sw sender) *Datapath {
	return &Datapath{dpid: dpid, sw: sw}
}

// DPID returns the datapath id in colon separated hex form
func (d *Datapath) DPID() string {
	return d.dpid
}

// close stops further sends; the switch's outbound stream is gone once it
// disconnects.
func (d *Datapath) close() {
	atomic.StoreInt32(&d.closed, 1)
}

// Connected is false once the switch disconnected
func (d *Datapath) Connected() bool {
	return atomic.LoadInt32(&d.closed) == 0
}

func (d *Datapath) send(msg util.Message) error {
	if d.sw == nil || !d.Connected() {
		return core.KindErrorf(core.TransportError, "switch %s is not connected", d.dpid)
	}
	d.sw.Send(msg)
	return nil
}

// SendFlowMod queues a flow-mod to the switch
func (d *Datapath) SendFlowMod(mod *openflow13.FlowMod) error {
	return d.send(mod)
}

// SendGroupMod queues a group-mod to the switch
func (d *Datapath) SendGroupMod(mod *openflow13.GroupMod) error {
	return d.send(mod)
}

// SendPacketOut queues a packet-out to the switch
func (d *Datapath) SendPacketOut(pkt *openflow13.PacketOut) error {
	return d.send(pkt)
}
