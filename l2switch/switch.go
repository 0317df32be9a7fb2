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

// Package l2switch implements reactive MAC learning on top of the OF-DPA
// bridging pipeline. Every switch gets a session holding its learning
// table; packet-ins teach the table where sources live and, once a
// destination is known, a unicast path is programmed so later frames stay
// in hardware.
package l2switch

import (
	"net"
	"sort"
	"sync/atomic"

	"github.com/contiv/libOpenflow/openflow13"
	"github.com/contiv/ofdpa/core"
	"github.com/contiv/ofdpa/pipeline"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	cmap "github.com/streamrail/concurrent-map"

	log "github.com/Sirupsen/logrus"
)

// Defaults used when nothing else is configured
const (
	DefaultVlanID   = 10
	DefaultPriority = 1
)

// FloodPort is the output used when the destination has not been learned
const FloodPort = openflow13.P_FLOOD

// HairpinPort is the output used when the destination sits behind the
// ingress port
const HairpinPort = openflow13.P_IN_PORT

// Config holds the forwarding parameters applied to every learned path
type Config struct {
	VlanID   uint16
	Priority uint16
}

// DefaultConfig returns vlan 10 at priority 1
func DefaultConfig() Config {
	return Config{VlanID: DefaultVlanID, Priority: DefaultPriority}
}

// PacketIn is a frame the switch sent to the controller
type PacketIn struct {
	Frame    []byte // raw ethernet frame
	InPort   uint32 // ingress port
	BufferID uint32 // switch buffer holding the frame, or pipeline.NoBuffer
}

// Switch handles switch lifecycle and packet-in events for all attached
// switches.
type Switch struct {
	config   Config
	prog     *pipeline.Programmer
	sessions cmap.ConcurrentMap // dpid -> *Session
}

// NewSwitch creates an event handler programming paths through prog
func NewSwitch(config Config, prog *pipeline.Programmer) (*Switch, error) {
	if config.VlanID == 0 || config.VlanID > 4094 {
		return nil, core.KindErrorf(core.ConfigurationError, "invalid vlan %d", config.VlanID)
	}

	return &Switch{
		config:   config,
		prog:     prog,
		sessions: cmap.New(),
	}, nil
}

// Config returns the forwarding parameters
func (sw *Switch) Config() Config {
	return sw.config
}

// SwitchConnected registers a fresh session for the switch and installs the
// miss-to-controller entry. A switch that reconnects starts with an empty
// learning table.
func (sw *Switch) SwitchConnected(dp pipeline.Datapath) {
	dpid := dp.DPID()
	if old, ok := sw.Session(dpid); ok {
		log.Infof("Switch %s reconnected, discarding %d learned addresses", dpid, old.MACs().Len())
		old.disconnect()
	}
	sw.sessions.Set(dpid, newSession(dpid))
	log.Infof("Switch %s connected", dpid)

	if err := sw.prog.InstallMissToController(dp); err != nil {
		log.Errorf("Error installing baseline entry on %s. Err: %v", dpid, err)
	}
}

// SwitchDisconnected drops the switch's session. Entries already programmed
// on the switch are left alone.
func (sw *Switch) SwitchDisconnected(dpid string) {
	v, ok := sw.sessions.Pop(dpid)
	if !ok {
		log.Warnf("Disconnect for unknown switch %s", dpid)
		return
	}
	sess := v.(*Session)
	sess.disconnect()
	log.Infof("Switch %s disconnected, %d learned addresses discarded", dpid, sess.MACs().Len())
}

// Session returns the session of a connected switch
func (sw *Switch) Session(dpid string) (*Session, bool) {
	v, ok := sw.sessions.Get(dpid)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// session returns the switch's session, creating one for a switch whose
// connect event was never seen.
func (sw *Switch) session(dpid string) *Session {
	if sess, ok := sw.Session(dpid); ok {
		return sess
	}

	sess := newSession(dpid)
	if sw.sessions.SetIfAbsent(dpid, sess) {
		log.Infof("Created session for switch %s on first packet-in", dpid)
		return sess
	}
	if found, ok := sw.Session(dpid); ok {
		return found
	}
	return sess
}

// PacketRcvd learns the frame's source, programs a path when the
// destination is known and forwards the frame. Failures are logged; the
// frame is still forwarded whenever a packet-out can be built.
func (sw *Switch) PacketRcvd(dp pipeline.Datapath, pkt PacketIn) {
	dpid := dp.DPID()
	sess := sw.session(dpid)

	packet := gopacket.NewPacket(pkt.Frame, layers.LayerTypeEthernet, gopacket.Default)
	ethLayer := packet.Layer(layers.LayerTypeEthernet)
	if ethLayer == nil {
		atomic.AddUint64(&sess.dropped, 1)
		log.Debugf("Dropping undecodable %d byte frame from %s port %d", len(pkt.Frame), dpid, pkt.InPort)
		return
	}
	sess.packetIn()
	eth := ethLayer.(*layers.Ethernet)
	src, dst := eth.SrcMAC, eth.DstMAC

	log.Debugf("packet in %s %s %s %d", dpid, src, dst, pkt.InPort)

	// group addresses never identify a station location
	if !isGroupAddr(src) {
		sess.macs.Learn(src, pkt.InPort)
	}

	outPort := uint32(FloodPort)
	if port, err := sess.macs.Lookup(dst); err == nil {
		outPort = port
	}

	if outPort == FloodPort {
		atomic.AddUint64(&sess.floods, 1)
	} else {
		path := pipeline.UnicastPath{
			VlanID:   sw.config.VlanID,
			Dst:      dst,
			OutPort:  outPort,
			InPort:   pkt.InPort,
			Priority: sw.config.Priority,
		}
		groupID, err := sw.prog.InstallUnicastPath(dp, path)
		if err != nil {
			log.Errorf("Error installing path to %s on %s. Err: %v", dst, dpid, err)
		} else {
			sess.installed(groupID)
		}
	}

	// a switch only sends back out of the ingress port through IN_PORT
	if outPort == pkt.InPort {
		outPort = HairpinPort
	}
	pktOut := pipeline.NewPacketOut(pkt.BufferID, pkt.InPort, outPort, pkt.Frame)
	if err := sw.prog.SendPacketOut(dp, pktOut); err != nil {
		log.Errorf("Error forwarding frame on %s. Err: %v", dpid, err)
	}
}

func isGroupAddr(mac net.HardwareAddr) bool {
	return len(mac) == 0 || mac[0]&0x01 != 0
}

// Inspect returns every session, ordered by datapath id
func (sw *Switch) Inspect() []SessionInfo {
	infos := []SessionInfo{}
	for _, v := range sw.sessions.Items() {
		infos = append(infos, v.(*Session).Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].DPID < infos[j].DPID })
	return infos
}

// InspectSession returns one session or core.ErrNotFound
func (sw *Switch) InspectSession(dpid string) (SessionInfo, error) {
	sess, ok := sw.Session(dpid)
	if !ok {
		return SessionInfo{}, core.ErrNotFound
	}
	return sess.Info(), nil
}
