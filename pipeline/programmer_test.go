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
	"bytes"
	"errors"
	"net"
	"testing"

	"github.com/contiv/libOpenflow/openflow13"
	"github.com/contiv/ofdpa/core"
	"github.com/contiv/ofdpa/ofdpa"
	"github.com/contiv/ofdpa/resources"
)

// recordingDatapath keeps every message in send order. failOn makes the
// n-th send (1 based) fail.
type recordingDatapath struct {
	sent   []interface{}
	sends  int
	failOn int
}

var errSend = errors.New("connection reset")

func (d *recordingDatapath) DPID() string { return "00:00:00:00:00:00:00:01" }

func (d *recordingDatapath) record(msg interface{}) error {
	d.sends++
	if d.sends == d.failOn {
		return errSend
	}
	d.sent = append(d.sent, msg)
	return nil
}

func (d *recordingDatapath) SendFlowMod(mod *openflow13.FlowMod) error { return d.record(mod) }
func (d *recordingDatapath) SendGroupMod(mod *openflow13.GroupMod) error { return d.record(mod) }
func (d *recordingDatapath) SendPacketOut(p *openflow13.PacketOut) error { return d.record(p) }

func newTestProgrammer(t *testing.T) *Programmer {
	groups, err := resources.NewGroupIDAllocator(resources.DefaultGroupIDBase)
	if err != nil {
		t.Fatalf("error creating allocator: %v", err)
	}
	p, err := NewProgrammer(ofdpa.DefaultRegistry(), groups)
	if err != nil {
		t.Fatalf("error creating programmer: %v", err)
	}
	return p
}

var (
	hostB = net.HardwareAddr{0x00, 0x00, 0x00, 0x00, 0x00, 0x0b}
	pathB = UnicastPath{VlanID: 10, Dst: hostB, OutPort: 2, InPort: 1, Priority: 1}
)

func checkFlowDefaults(t *testing.T, flow *openflow13.FlowMod) {
	if flow.Command != openflow13.FC_ADD || flow.Cookie != 0 ||
		flow.IdleTimeout != 0 || flow.HardTimeout != 0 || flow.BufferId != NoBuffer ||
		flow.OutPort != openflow13.P_ANY || flow.OutGroup != openflow13.OFPG_ANY {
		t.Fatalf("unexpected flowmod header: %+v", flow)
	}
}

func TestMissToController(t *testing.T) {
	p := newTestProgrammer(t)
	dp := &recordingDatapath{}

	if err := p.InstallMissToController(dp); err != nil {
		t.Fatalf("error installing miss entry: %v", err)
	}
	if len(dp.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(dp.sent))
	}
	flow, ok := dp.sent[0].(*openflow13.FlowMod)
	if !ok {
		t.Fatalf("expected a flowmod, got %T", dp.sent[0])
	}
	checkFlowDefaults(t, flow)
	if flow.TableId != ofdpa.OfdpaACLTableID || flow.Priority != 0 {
		t.Fatalf("miss entry in table %d priority %d", flow.TableId, flow.Priority)
	}
	if len(flow.Match.Fields) != 0 {
		t.Fatalf("miss entry should match everything, has %d fields", len(flow.Match.Fields))
	}
	if len(flow.Instructions) != 1 {
		t.Fatalf("expected one instruction, got %d", len(flow.Instructions))
	}
	instr, ok := flow.Instructions[0].(*openflow13.InstrActions)
	if !ok || instr.InstrHeader.Type != openflow13.InstrType_APPLY_ACTIONS {
		t.Fatalf("expected apply-actions, got %+v", flow.Instructions[0])
	}
	out, ok := instr.Actions[0].(*openflow13.ActionOutput)
	if !ok || out.Port != openflow13.P_CONTROLLER || out.MaxLen != openflow13.OFPCML_NO_BUFFER {
		t.Fatalf("expected unbuffered output to controller, got %+v", instr.Actions[0])
	}
	if p.Stats().FlowMods != 1 {
		t.Fatalf("flowmod counter: %+v", p.Stats())
	}
}

func TestUnicastPathOrder(t *testing.T) {
	p := newTestProgrammer(t)
	dp := &recordingDatapath{}

	groupID, err := p.InstallUnicastPath(dp, pathB)
	if err != nil {
		t.Fatalf("error installing path: %v", err)
	}
	if groupID != resources.DefaultGroupIDBase {
		t.Fatalf("first group id 0x%x, expected 0x%x", groupID, resources.DefaultGroupIDBase)
	}
	if len(dp.sent) != 3 {
		t.Fatalf("expected three messages, got %d", len(dp.sent))
	}

	group, ok := dp.sent[0].(*openflow13.GroupMod)
	if !ok {
		t.Fatalf("first message should be the group, got %T", dp.sent[0])
	}
	if group.Command != openflow13.OFPGC_ADD || group.Type != openflow13.OFPGT_INDIRECT ||
		group.GroupId != groupID || len(group.Buckets) != 1 {
		t.Fatalf("unexpected group: %+v", group)
	}
	bkt := group.Buckets[0]
	if bkt.Weight != 0 || bkt.WatchPort != openflow13.P_ANY || bkt.WatchGroup != openflow13.OFPG_ANY {
		t.Fatalf("unexpected bucket: %+v", bkt)
	}
	if out, ok := bkt.Actions[0].(*openflow13.ActionOutput); !ok || out.Port != 2 {
		t.Fatalf("bucket should output to port 2, got %+v", bkt.Actions[0])
	}

	vlanFlow, ok := dp.sent[1].(*openflow13.FlowMod)
	if !ok || vlanFlow.TableId != ofdpa.OfdpaVlanTableID {
		t.Fatalf("second message should be the vlan entry, got %+v", dp.sent[1])
	}
	checkFlowDefaults(t, vlanFlow)
	if vlanFlow.Priority != 1 || len(vlanFlow.Match.Fields) != 2 {
		t.Fatalf("unexpected vlan entry: %+v", vlanFlow)
	}
	if f := vlanFlow.Match.Fields[0]; f.Field != openflow13.OXM_FIELD_IN_PORT ||
		f.Value.(*openflow13.InPortField).InPort != 1 {
		t.Fatalf("vlan entry should match in_port 1, got %+v", f)
	}
	if f := vlanFlow.Match.Fields[1]; f.Field != openflow13.OXM_FIELD_VLAN_VID ||
		f.Value.(*openflow13.VlanIdField).VlanId&0xfff != 10 {
		t.Fatalf("vlan entry should match vlan 10, got %+v", f)
	}
	if gt, ok := vlanFlow.Instructions[0].(*openflow13.InstrGotoTable); !ok || gt.TableId != ofdpa.OfdpaTermMacTableID {
		t.Fatalf("vlan entry should go to the MAC table, got %+v", vlanFlow.Instructions[0])
	}

	bridgeFlow, ok := dp.sent[2].(*openflow13.FlowMod)
	if !ok || bridgeFlow.TableId != ofdpa.OfdpaBridgingTableID {
		t.Fatalf("third message should be the bridging entry, got %+v", dp.sent[2])
	}
	checkFlowDefaults(t, bridgeFlow)
	if len(bridgeFlow.Match.Fields) != 2 {
		t.Fatalf("unexpected bridging match: %+v", bridgeFlow.Match)
	}
	dst := bridgeFlow.Match.Fields[0]
	if dst.Field != openflow13.OXM_FIELD_ETH_DST || !dst.HasMask ||
		dst.Value.(*openflow13.EthDstField).EthDst.String() != hostB.String() ||
		dst.Mask.(*openflow13.EthDstField).EthDst.String() != "ff:ff:ff:ff:ff:ff" {
		t.Fatalf("bridging entry should match eth_dst exactly, got %+v", dst)
	}
	instr, ok := bridgeFlow.Instructions[0].(*openflow13.InstrActions)
	if !ok || instr.InstrHeader.Type != openflow13.InstrType_WRITE_ACTIONS {
		t.Fatalf("expected write-actions, got %+v", bridgeFlow.Instructions[0])
	}
	if act, ok := instr.Actions[0].(*openflow13.ActionGroup); !ok || act.GroupId != groupID {
		t.Fatalf("bridging entry should reference group 0x%x, got %+v", groupID, instr.Actions[0])
	}

	stats := p.Stats()
	if stats.GroupMods != 1 || stats.FlowMods != 2 || stats.Failures != 0 {
		t.Fatalf("unexpected counters: %+v", stats)
	}
}

func TestUnicastPathWithoutIngress(t *testing.T) {
	p := newTestProgrammer(t)
	dp := &recordingDatapath{}

	path := pathB
	path.InPort = 0
	if _, err := p.InstallUnicastPath(dp, path); err != nil {
		t.Fatalf("error installing path: %v", err)
	}
	vlanFlow := dp.sent[1].(*openflow13.FlowMod)
	if len(vlanFlow.Match.Fields) != 1 || vlanFlow.Match.Fields[0].Field != openflow13.OXM_FIELD_VLAN_VID {
		t.Fatalf("vlan entry should only match the vlan, got %+v", vlanFlow.Match.Fields)
	}
}

func TestRepeatedInstallAllocatesNewGroups(t *testing.T) {
	p := newTestProgrammer(t)
	dp := &recordingDatapath{}

	first, err := p.InstallUnicastPath(dp, pathB)
	if err != nil {
		t.Fatalf("error installing path: %v", err)
	}
	second, err := p.InstallUnicastPath(dp, pathB)
	if err != nil {
		t.Fatalf("error installing path: %v", err)
	}
	if second != first+1 {
		t.Fatalf("expected group 0x%x, got 0x%x", first+1, second)
	}
	if len(dp.sent) != 6 {
		t.Fatalf("expected six messages, got %d", len(dp.sent))
	}
}

func TestUnicastPathStopsOnFailure(t *testing.T) {
	for failOn, expSent := range map[int]int{1: 0, 2: 1, 3: 2} {
		p := newTestProgrammer(t)
		dp := &recordingDatapath{failOn: failOn}

		_, err := p.InstallUnicastPath(dp, pathB)
		if err == nil {
			t.Fatalf("send %d: expected an error", failOn)
		}
		if !core.IsKind(err, core.PipelineProgramError) {
			t.Fatalf("send %d: expected a pipeline error, got %v", failOn, err)
		}
		if !errors.Is(err, errSend) {
			t.Fatalf("send %d: cause lost: %v", failOn, err)
		}
		if dp.sends != failOn || len(dp.sent) != expSent {
			t.Fatalf("send %d: %d sends, %d delivered", failOn, dp.sends, len(dp.sent))
		}
		if p.Stats().Failures != 1 {
			t.Fatalf("send %d: failure not counted: %+v", failOn, p.Stats())
		}
	}
}

func TestInvalidPath(t *testing.T) {
	p := newTestProgrammer(t)
	dp := &recordingDatapath{}

	bad := []UnicastPath{
		{VlanID: 10, Dst: net.HardwareAddr{0x1, 0x2}, OutPort: 2},
		{VlanID: 0, Dst: hostB, OutPort: 2},
		{VlanID: 4095, Dst: hostB, OutPort: 2},
		{VlanID: 10, Dst: hostB, OutPort: 0},
		{VlanID: 10, Dst: hostB, OutPort: openflow13.P_FLOOD},
	}
	for _, path := range bad {
		if _, err := p.InstallUnicastPath(dp, path); err == nil {
			t.Fatalf("expected %+v to be rejected", path)
		}
	}
	if len(dp.sent) != 0 || p.Groups().Allocated() != 0 {
		t.Fatalf("rejected paths must not program or allocate")
	}
}

func TestRegistryOverridesTables(t *testing.T) {
	reg, err := ofdpa.NewRegistry(map[string]uint8{ofdpa.TableBridging: 51})
	if err != nil {
		t.Fatalf("error creating registry: %v", err)
	}
	groups, _ := resources.NewGroupIDAllocator(resources.DefaultGroupIDBase)
	p, err := NewProgrammer(reg, groups)
	if err != nil {
		t.Fatalf("error creating programmer: %v", err)
	}
	dp := &recordingDatapath{}
	if _, err := p.InstallUnicastPath(dp, pathB); err != nil {
		t.Fatalf("error installing path: %v", err)
	}
	if tbl := dp.sent[2].(*openflow13.FlowMod).TableId; tbl != 51 {
		t.Fatalf("bridging entry went to table %d", tbl)
	}
}

var (
	// ipv4 header with one options word, udp payload "hi!!"
	ipv4OptionsFrame = []byte{
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x00, 0x00, 0x0a, 0x08, 0x00,
		0x46, 0x00, 0x00, 0x24, 0x00, 0x00, 0x00, 0x00, 0x40, 0x11, 0x00, 0x00,
		0x0a, 0x00, 0x00, 0x01, 0x0a, 0x00, 0x00, 0x02, 0x01, 0x01, 0x01, 0x00,
		0x13, 0x88, 0x13, 0x89, 0x00, 0x0c, 0x00, 0x00, 0x68, 0x69, 0x21, 0x21,
	}

	// ipv4 header length field below the 20 byte minimum
	shortIHLFrame = []byte{
		0x00, 0x00, 0x00, 0x00, 0x00, 0x0b, 0x00, 0x00, 0x00, 0x00, 0x00, 0x0a, 0x08, 0x00,
		0x44, 0x00, 0x00, 0x14, 0x00, 0x00, 0x00, 0x00, 0x40, 0x11, 0x00, 0x00,
		0x0a, 0x00, 0x00, 0x01, 0x0a, 0x00, 0x00, 0x02,
	}

	arpRequestFrame = []byte{
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x00, 0x00, 0x0a, 0x08, 0x06,
		0x00, 0x01, 0x08, 0x00, 0x06, 0x04, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x0a, 0x0a, 0x00, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x0a, 0x00, 0x00, 0x02,
	}

	experimentalFrame = []byte{
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x00, 0x00, 0x0a, 0x88, 0xb5,
		0xde, 0xad, 0xbe, 0xef,
	}
)

func TestPacketOutCarriesFrameUnchanged(t *testing.T) {
	frames := map[string][]byte{
		"ipv4 options": ipv4OptionsFrame,
		"short ihl":    shortIHLFrame,
		"arp":          arpRequestFrame,
		"experimental": experimentalFrame,
	}

	for name, frame := range frames {
		sent := append([]byte(nil), frame...)
		pktOut := NewPacketOut(NoBuffer, 1, openflow13.P_FLOOD, sent)
		if pktOut.BufferId != NoBuffer || pktOut.InPort != 1 {
			t.Fatalf("%s: unexpected packet-out header: %+v", name, pktOut)
		}
		if out := pktOut.Actions[0].(*openflow13.ActionOutput); out.Port != openflow13.P_FLOOD {
			t.Fatalf("%s: expected flood output, got %+v", name, out)
		}

		data, err := pktOut.Data.MarshalBinary()
		if err != nil {
			t.Fatalf("%s: error encoding data: %v", name, err)
		}
		if !bytes.Equal(data, frame) {
			t.Fatalf("%s: frame changed\nin:  %x\nout: %x", name, frame, data)
		}

		msg, err := pktOut.MarshalBinary()
		if err != nil {
			t.Fatalf("%s: error encoding packet-out: %v", name, err)
		}
		if int(pktOut.Len()) != len(msg) || !bytes.HasSuffix(msg, frame) {
			t.Fatalf("%s: packet-out does not end with the frame: %x", name, msg)
		}
	}
}

func TestPacketOut(t *testing.T) {
	pktOut := NewPacketOut(7, 1, 2, arpRequestFrame)
	if pktOut.BufferId != 7 || pktOut.Data.Len() != 0 {
		t.Fatalf("buffered packet-out should not carry data: %+v", pktOut)
	}
	msg, err := pktOut.MarshalBinary()
	if err != nil {
		t.Fatalf("error encoding packet-out: %v", err)
	}
	if int(pktOut.Len()) != len(msg) {
		t.Fatalf("packet-out length %d, encoded %d bytes", pktOut.Len(), len(msg))
	}

	p := newTestProgrammer(t)
	dp := &recordingDatapath{}
	if err := p.SendPacketOut(dp, pktOut); err != nil {
		t.Fatalf("error sending packet-out: %v", err)
	}
	if p.Stats().PacketOuts != 1 {
		t.Fatalf("packet-out not counted: %+v", p.Stats())
	}

	dp = &recordingDatapath{failOn: 1}
	if err := p.SendPacketOut(dp, pktOut); !core.IsKind(err, core.TransportError) {
		t.Fatalf("expected a transport error, got %v", err)
	}
	if p.Stats().Failures != 1 {
		t.Fatalf("failed packet-out not counted: %+v", p.Stats())
	}
}
