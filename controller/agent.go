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

// Package controller wires the reactive L2 controller together: the table
// registry, the group allocator, the pipeline programmer, the switch event
// handler and the OpenFlow listener, plus a read-only inspect REST api.
package controller

import (
	"net"
	"net/http"

	"github.com/contiv/ofdpa/l2switch"
	"github.com/contiv/ofdpa/ofdpa"
	"github.com/contiv/ofdpa/ofswitch"
	"github.com/contiv/ofdpa/pipeline"
	"github.com/contiv/ofdpa/resources"
	"github.com/contiv/ofdpa/utils"
	"github.com/contiv/ofdpa/version"
	"github.com/contiv/ofnet/ofctrl"
	"github.com/gorilla/mux"

	log "github.com/Sirupsen/logrus"
)

// Agent is a running controller instance
type Agent struct {
	config   *Config
	registry *ofdpa.Registry
	groups   *resources.GroupIDAllocator
	prog     *pipeline.Programmer
	l2sw     *l2switch.Switch
	app      *ofswitch.App
	ctrler   *ofctrl.Controller
	listener net.Listener
}

// GroupsInfo is the inspect view of group allocation
type GroupsInfo struct {
	Base      uint32         `json:"base"`
	Last      uint32         `json:"last"`
	Allocated uint64         `json:"allocated"`
	Messages  pipeline.Stats `json:"messages"`
}

// NewAgent builds every component from the config. Nothing listens until
// Start is called.
func NewAgent(config *Config) (*Agent, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	registry, err := ofdpa.NewRegistry(config.Tables)
	if err != nil {
		return nil, err
	}
	groups, err := resources.NewGroupIDAllocator(config.GroupBase)
	if err != nil {
		return nil, err
	}
	prog, err := pipeline.NewProgrammer(registry, groups)
	if err != nil {
		return nil, err
	}
	l2sw, err := l2switch.NewSwitch(l2switch.Config{VlanID: config.VlanID, Priority: config.Priority}, prog)
	if err != nil {
		return nil, err
	}

	ag := &Agent{
		config:   config,
		registry: registry,
		groups:   groups,
		prog:     prog,
		l2sw:     l2sw,
		app:      ofswitch.NewApp(l2sw),
	}
	return ag, nil
}

// Switch returns the packet event handler
func (ag *Agent) Switch() *l2switch.Switch {
	return ag.l2sw
}

// Start begins accepting switch connections and serving the inspect api
func (ag *Agent) Start() error {
	if ag.config.InspectAddress != "" {
		listener, err := net.Listen("tcp", ag.config.InspectAddress)
		if err != nil {
			return err
		}
		ag.listener = listener
		go ag.serveRequests(listener)
	}

	ag.ctrler = ofctrl.NewController(ag.app)
	go ag.ctrler.Listen(ag.config.ListenAddress)

	log.Infof("Controller listening for switches on %s, vlan %d, priority %d, groups from 0x%x",
		ag.config.ListenAddress, ag.config.VlanID, ag.config.Priority, ag.config.GroupBase)
	return nil
}

// Stop closes the inspect listener. The openflow listener is left to the
// process exit: ofctrl's Delete waits for every switch connection to end.
func (ag *Agent) Stop() {
	if ag.listener != nil {
		ag.listener.Close()
	}
}

// Router returns the inspect api routes
func (ag *Agent) Router() *mux.Router {
	router := mux.NewRouter()

	s := router.Methods("GET").Subrouter()
	s.HandleFunc("/inspect/switches", utils.MakeHTTPHandler(ag.inspectSwitches))
	s.HandleFunc("/inspect/switches/{dpid}", utils.MakeHTTPHandler(ag.inspectSwitch))
	s.HandleFunc("/inspect/groups", utils.MakeHTTPHandler(ag.inspectGroups))
	s.HandleFunc("/inspect/tables", utils.MakeHTTPHandler(ag.inspectTables))
	s.HandleFunc("/version", utils.MakeHTTPHandler(getVersion))

	router.NotFoundHandler = http.HandlerFunc(utils.UnknownAction)
	return router
}

// serveRequests serve REST api requests
func (ag *Agent) serveRequests(listener net.Listener) {
	server := &http.Server{Handler: ag.Router()}

	log.Infof("Inspect api listening on %s", listener.Addr())
	if err := server.Serve(listener); err != nil {
		log.Infof("Inspect api stopped: %v", err)
	}
}

func (ag *Agent) inspectSwitches(w http.ResponseWriter, r *http.Request, vars map[string]string) (interface{}, error) {
	return ag.l2sw.Inspect(), nil
}

func (ag *Agent) inspectSwitch(w http.ResponseWriter, r *http.Request, vars map[string]string) (interface{}, error) {
	info, err := ag.l2sw.InspectSession(vars["dpid"])
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (ag *Agent) inspectGroups(w http.ResponseWriter, r *http.Request, vars map[string]string) (interface{}, error) {
	return GroupsInfo{
		Base:      ag.groups.Base(),
		Last:      ag.groups.Last(),
		Allocated: ag.groups.Allocated(),
		Messages:  ag.prog.Stats(),
	}, nil
}

func (ag *Agent) inspectTables(w http.ResponseWriter, r *http.Request, vars map[string]string) (interface{}, error) {
	return ag.registry.Tables(), nil
}

func getVersion(w http.ResponseWriter, r *http.Request, vars map[string]string) (interface{}, error) {
	return version.Get(), nil
}
