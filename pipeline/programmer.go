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

package pipeline

import (
	"net"
	"sync/atomic"

	"github.com/contiv/libOpenflow/openflow13"
	"github.com/contiv/libOpenflow/util"
	"github.com/contiv/ofdpa/core"
	"github.com/contiv/ofdpa/ofdpa"
	"github.com/contiv/ofdpa/resources"

	log "github.com/Sirupsen/logrus"
)

// exactMac is the bridging table mask for a full destination match
var exactMac = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// MissPriority is the priority of the ACL miss-to-controller entry
const MissPriority = 0

// UnicastPath describes the hardware path towards one learned destination
type UnicastPath struct {
	VlanID   uint16           // vlan the destination lives on
	Dst      net.HardwareAddr // destination station
	OutPort  uint32           // port the destination was learned on
	InPort   uint32           // ingress port to admit in the VLAN table; 0 matches any port
	Priority uint16           // priority of the VLAN and bridging entries
}

// Stats counts the messages the programmer queued
type Stats struct {
	GroupMods  uint64 `json:"groupMods"`
	FlowMods   uint64 `json:"flowMods"`
	PacketOuts uint64 `json:"packetOuts"`
	Failures   uint64 `json:"failures"`
}

// Programmer emits the table and group programming for unicast paths. It
// keeps no per-switch state; callers decide when a path needs installing.
type Programmer struct {
	groups *resources.GroupIDAllocator

	aclTable      uint8
	vlanTable     uint8
	macTable      uint8
	bridgingTable uint8
	flowAdd       uint8
	groupAdd      uint16
	groupIndirect uint8
	anyPort       uint32
	anyGroup      uint32

	groupMods  uint64
	flowMods   uint64
	packetOuts uint64
	failures   uint64
}

// NewProgrammer resolves every table and constant the programmer uses from
// the registry. A resolution failure is a ConfigurationError and is meant to
// stop the controller from starting.
func NewProgrammer(reg *ofdpa.Registry, groups *resources.GroupIDAllocator) (*Programmer, error) {
	var err error
	p := &Programmer{groups: groups}

	tables := []struct {
		name string
		id   *uint8
	}{
		{ofdpa.TableACL, &p.aclTable},
		{ofdpa.TableVLAN, &p.vlanTable},
		{ofdpa.TableMAC, &p.macTable},
		{ofdpa.TableBridging, &p.bridgingTable},
	}
	for _, tbl := range tables {
		if *tbl.id, err = reg.TableID(tbl.name); err != nil {
			return nil, err
		}
	}

	if p.flowAdd, err = reg.ModCommand(ofdpa.CmdAdd); err != nil {
		return nil, err
	}
	if p.groupAdd, err = reg.GroupCommand(ofdpa.CmdAdd); err != nil {
		return nil, err
	}
	if p.groupIndirect, err = reg.GroupType(ofdpa.GroupIndirect); err != nil {
		return nil, err
	}
	p.anyPort = reg.WildcardPort()
	p.anyGroup = reg.WildcardGroup()

	return p, nil
}

// newFlowMod returns an "add" flow-mod with no cookie and no timeouts
func (p *Programmer) newFlowMod(tableID uint8, priority uint16) *openflow13.FlowMod {
	flowMod := openflow13.NewFlowMod()
	flowMod.Cookie = 0
	flowMod.CookieMask = 0
	flowMod.TableId = tableID
	flowMod.Command = p.flowAdd
	flowMod.IdleTimeout = 0
	flowMod.HardTimeout = 0
	flowMod.Priority = priority
	flowMod.BufferId = NoBuffer
	flowMod.OutPort = p.anyPort
	flowMod.OutGroup = p.anyGroup
	flowMod.Flags = 0
	return flowMod
}

func (p *Programmer) sendFlow(dp Datapath, flowMod *openflow13.FlowMod) error {
	log.Debugf("Sending flowmod to %s: %+v", dp.DPID(), flowMod)
	if err := dp.SendFlowMod(flowMod); err != nil {
		atomic.AddUint64(&p.failures, 1)
		return err
	}
	atomic.AddUint64(&p.flowMods, 1)
	return nil
}

// InstallMissToController installs the ACL entry that sends every unmatched
// frame to the controller without buffering it on the switch.
func (p *Programmer) InstallMissToController(dp Datapath) error {
	flowMod := p.newFlowMod(p.aclTable, MissPriority)

	outputAct := openflow13.NewActionOutput(openflow13.P_CONTROLLER)
	outputAct.MaxLen = openflow13.OFPCML_NO_BUFFER
	instr := openflow13.NewInstrApplyActions()
	instr.AddAction(outputAct, false)
	flowMod.AddInstruction(instr)

	if err := p.sendFlow(dp, flowMod); err != nil {
		return core.Wrap(core.PipelineProgramError, err,
			"installing miss-to-controller entry on %s", dp.DPID())
	}

	log.Infof("Installed miss-to-controller entry in table %d on %s", p.aclTable, dp.DPID())
	return nil
}

func (p *Programmer) validate(path UnicastPath) error {
	if len(path.Dst) != len(exactMac) {
		return core.KindErrorf(core.PipelineProgramError, "invalid destination mac %q", path.Dst.String())
	}
	if path.VlanID == 0 || path.VlanID > 4094 {
		return core.KindErrorf(core.PipelineProgramError, "invalid vlan %d", path.VlanID)
	}
	if path.OutPort == 0 || path.OutPort > openflow13.P_MAX {
		return core.KindErrorf(core.PipelineProgramError, "invalid output port 0x%x", path.OutPort)
	}
	return nil
}

// InstallUnicastPath allocates an L2 group for the path and installs the
// group, the VLAN table entry and the bridging table entry, in that order.
// It returns the group id. A failed step stops the remaining steps. No
// existence check is done: every call allocates a new group.
func (p *Programmer) InstallUnicastPath(dp Datapath, path UnicastPath) (uint32, error) {
	if err := p.validate(path); err != nil {
		return 0, err
	}

	groupID, err := p.groups.Next()
	if err != nil {
		return 0, core.Wrap(core.PipelineProgramError, err, "allocating group for %s", path.Dst)
	}

	// L2 group with a single output bucket
	groupMod := openflow13.NewGroupMod()
	groupMod.Command = p.groupAdd
	groupMod.Type = p.groupIndirect
	groupMod.GroupId = groupID

	bkt := openflow13.NewBucket()
	bkt.Weight = 0
	bkt.WatchPort = p.anyPort
	bkt.WatchGroup = p.anyGroup
	bkt.AddAction(openflow13.NewActionOutput(path.OutPort))
	groupMod.AddBucket(*bkt)

	log.Debugf("Sending groupmod to %s: %+v", dp.DPID(), groupMod)
	if err := dp.SendGroupMod(groupMod); err != nil {
		atomic.AddUint64(&p.failures, 1)
		return groupID, core.Wrap(core.PipelineProgramError, err,
			"installing group 0x%x on %s", groupID, dp.DPID())
	}
	atomic.AddUint64(&p.groupMods, 1)

	// vlan table: admit the vlan and continue to the MAC table
	vlanFlow := p.newFlowMod(p.vlanTable, path.Priority)
	if path.InPort != 0 {
		vlanFlow.Match.AddField(*openflow13.NewInPortField(path.InPort))
	}
	vlanFlow.Match.AddField(*openflow13.NewVlanIdField(path.VlanID, nil))
	vlanFlow.AddInstruction(openflow13.NewInstrGotoTable(p.macTable))

	if err := p.sendFlow(dp, vlanFlow); err != nil {
		return groupID, core.Wrap(core.PipelineProgramError, err,
			"installing vlan %d entry on %s", path.VlanID, dp.DPID())
	}

	// bridging table: exact destination on the vlan, forward via the group
	mask := exactMac
	bridgeFlow := p.newFlowMod(p.bridgingTable, path.Priority)
	bridgeFlow.Match.AddField(*openflow13.NewEthDstField(path.Dst, &mask))
	bridgeFlow.Match.AddField(*openflow13.NewVlanIdField(path.VlanID, nil))
	instr := openflow13.NewInstrWriteActions()
	instr.AddAction(openflow13.NewActionGroup(groupID), false)
	bridgeFlow.AddInstruction(instr)

	if err := p.sendFlow(dp, bridgeFlow); err != nil {
		return groupID, core.Wrap(core.PipelineProgramError, err,
			"installing bridging entry for %s on %s", path.Dst, dp.DPID())
	}

	log.Infof("Installed path to %s vlan %d via group 0x%x port %d on %s",
		path.Dst, path.VlanID, groupID, path.OutPort, dp.DPID())
	return groupID, nil
}

// NewPacketOut builds a packet-out of the frame to outPort. The frame is
// carried inline, byte for byte, only when the switch did not buffer it.
func NewPacketOut(bufferID, inPort, outPort uint32, frame []byte) *openflow13.PacketOut {
	pktOut := openflow13.NewPacketOut()
	pktOut.BufferId = bufferID
	pktOut.InPort = inPort
	pktOut.AddAction(openflow13.NewActionOutput(outPort))

	if bufferID != NoBuffer {
		pktOut.Data = util.NewBuffer(nil)
	} else {
		pktOut.Data = util.NewBuffer(frame)
	}
	return pktOut
}

// SendPacketOut sends a built packet-out and counts it
func (p *Programmer) SendPacketOut(dp Datapath, pktOut *openflow13.PacketOut) error {
	if err := dp.SendPacketOut(pktOut); err != nil {
		atomic.AddUint64(&p.failures, 1)
		return core.Wrap(core.TransportError, err, "sending packet-out to %s", dp.DPID())
	}
	atomic.AddUint64(&p.packetOuts, 1)
	return nil
}

// Stats returns a snapshot of the counters
func (p *Programmer) Stats() Stats {
	return Stats{
		GroupMods:  atomic.LoadUint64(&p.groupMods),
		FlowMods:   atomic.LoadUint64(&p.flowMods),
		PacketOuts: atomic.LoadUint64(&p.packetOuts),
		Failures:   atomic.LoadUint64(&p.failures),
	}
}

// Groups returns the group id allocator used by the programmer
func (p *Programmer) Groups() *resources.GroupIDAllocator {
	return p.groups
}
