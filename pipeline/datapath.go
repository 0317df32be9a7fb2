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

// Package pipeline builds and sends the OF-DPA table and group programming
// for reactive L2 forwarding.
//
// A learned unicast path is three objects on the switch:
//
//	VLAN table      in_port, vlan_vid          -> goto MAC table
//	Bridging table  eth_dst/ff:ff:ff:ff:ff:ff,
//	                vlan_vid                    -> write-actions group G
//	Group G         indirect                    -> output port P
//
// plus a match-all priority 0 entry in the ACL table that sends misses to
// the controller. Group G is always sent before the bridging entry that
// references it.
package pipeline

import (
	"github.com/contiv/libOpenflow/openflow13"
)

// NoBuffer is the packet-in/packet-out buffer id meaning "data is inline"
const NoBuffer uint32 = 0xffffffff

// Datapath is the send side of one attached switch. Sends are one-way: a nil
// error means the message was queued to the transport, not that the switch
// applied it.
type Datapath interface {
	// DPID identifies the switch
	DPID() string
	SendFlowMod(mod *openflow13.FlowMod) error
	SendGroupMod(mod *openflow13.GroupMod) error
	SendPacketOut(pkt *openflow13.PacketOut) error
}
