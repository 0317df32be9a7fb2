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

package ofswitch

import (
	"github.com/contiv/libOpenflow/openflow13"
	"github.com/contiv/ofdpa/core"
	"github.com/contiv/ofdpa/l2switch"
	"github.com/contiv/ofdpa/pipeline"
	"github.com/contiv/ofnet/ofctrl"
	cmap "github.com/streamrail/concurrent-map"

	log "github.com/Sirupsen/logrus"
)

// Handler consumes switch events
type Handler interface {
	SwitchConnected(dp pipeline.Datapath)
	SwitchDisconnected(dpid string)
	PacketRcvd(dp pipeline.Datapath, pkt l2switch.PacketIn)
}

// App receives ofctrl callbacks and forwards them to a Handler
type App struct {
	handler   Handler
	datapaths cmap.ConcurrentMap // dpid -> *Datapath
}

// NewApp creates an ofctrl application driving handler
func NewApp(handler Handler) *App {
	return &App{
		handler:   handler,
		datapaths: cmap.New(),
	}
}

// SwitchConnected is called by ofctrl after the features handshake
func (a *App) SwitchConnected(sw *ofctrl.OFSwitch) {
	a.connected(sw.DPID().String(), sw)
}

// SwitchDisconnected is called by ofctrl when the switch stream fails
func (a *App) SwitchDisconnected(sw *ofctrl.OFSwitch) {
	a.disconnected(sw.DPID().String())
}

// PacketRcvd is called by ofctrl for every packet-in
func (a *App) PacketRcvd(sw *ofctrl.OFSwitch, pkt *ofctrl.PacketIn) {
	a.packetIn(sw.DPID().String(), sw, (*openflow13.PacketIn)(pkt))
}

// MultipartReply is called by ofctrl for multipart replies; none are requested
func (a *App) MultipartReply(sw *ofctrl.OFSwitch, rep *openflow13.MultipartReply) {
	log.Debugf("Ignoring multipart reply from %s: %+v", sw.DPID(), rep)
}

func (a *App) connected(dpid string, sw sender) {
	dp := newDatapath(dpid, sw)
	if v, ok := a.datapaths.Get(dpid); ok {
		v.(*Datapath).close()
	}
	a.datapaths.Set(dpid, dp)
	a.handler.SwitchConnected(dp)
}

func (a *App) disconnected(dpid string) {
	if v, ok := a.datapaths.Pop(dpid); ok {
		v.(*Datapath).close()
	}
	a.handler.SwitchDisconnected(dpid)
}

func (a *App) packetIn(dpid string, sw sender, pkt *openflow13.PacketIn) {
	dp, ok := a.Datapath(dpid)
	if !ok {
		// packet-in raced the connect callback
		dp = newDatapath(dpid, sw)
		if !a.datapaths.SetIfAbsent(dpid, dp) {
			dp, _ = a.Datapath(dpid)
		}
	}

	event, err := ConvertPacketIn(pkt)
	if err != nil {
		log.Errorf("Error decoding packet-in from %s. Err: %v", dpid, err)
		return
	}
	a.handler.PacketRcvd(dp, event)
}

// Datapath returns the datapath of a connected switch
func (a *App) Datapath(dpid string) (*Datapath, bool) {
	v, ok := a.datapaths.Get(dpid)
	if !ok {
		return nil, false
	}
	return v.(*Datapath), true
}

// InPort returns the ingress port carried in a packet-in match
func InPort(match openflow13.Match) (uint32, error) {
	if match.Type != openflow13.MatchType_OXM {
		return 0, core.Errorf("unsupported match type %d", match.Type)
	}
	for _, field := range match.Fields {
		if field.Field != openflow13.OXM_FIELD_IN_PORT {
			continue
		}
		if inPort, ok := field.Value.(*openflow13.InPortField); ok {
			return inPort.InPort, nil
		}
	}
	return 0, core.Errorf("packet-in has no in_port")
}

// ConvertPacketIn turns an ofctrl packet-in into a handler event
func ConvertPacketIn(pkt *openflow13.PacketIn) (l2switch.PacketIn, error) {
	inPort, err := InPort(pkt.Match)
	if err != nil {
		return l2switch.PacketIn{}, err
	}

	frame, err := pkt.Data.MarshalBinary()
	if err != nil {
		return l2switch.PacketIn{}, core.Errorf("encoding packet-in frame: %v", err)
	}

	return l2switch.PacketIn{
		Frame:    frame,
		InPort:   inPort,
		BufferID: pkt.BufferId,
	}, nil
}
