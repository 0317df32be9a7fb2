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

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/Sirupsen/logrus"
	"github.com/contiv/ofdpa/controller"
	"github.com/contiv/ofdpa/utils"
	"github.com/contiv/ofdpa/version"
	"github.com/urfave/cli"
	"gopkg.in/yaml.v3"
)

const binName = "ofdpad"

func initController(ctx *cli.Context) (*controller.Agent, error) {
	// 1. validate and init logging
	if err := utils.InitLogging(binName, ctx); err != nil {
		return nil, err
	}

	// 2. defaults, config file, then flags
	cfg, err := controller.ConfigFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if ctx.Bool("print-config") {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, err
		}
		fmt.Print(string(out))
		os.Exit(0)
	}

	// 3. build the controller
	return controller.NewAgent(cfg)
}

func runController(agent *controller.Agent) error {
	if err := agent.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logrus.Infof("Received %v, shutting down", sig)
	agent.Stop()
	return nil
}

// inspect fetches one inspect resource and prints it as indented json
func inspect(ctx *cli.Context) error {
	args := ctx.Args()
	if len(args) == 0 {
		return cli.NewExitError("usage: ofdpad inspect switches|switch <dpid>|groups|tables", 22)
	}

	var path string
	switch args[0] {
	case "switches", "groups", "tables":
		path = "/inspect/" + args[0]
	case "switch":
		if len(args) < 2 {
			return cli.NewExitError("switch requires a datapath id", 22)
		}
		path = "/inspect/switches/" + args[1]
	default:
		return cli.NewExitError(fmt.Sprintf("unknown inspect resource %q", args[0]), 22)
	}

	var resp interface{}
	if err := utils.HTTPGet(strings.TrimSuffix(ctx.String("url"), "/")+path, &resp); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = binName
	app.Version = "\n" + version.String()
	app.Usage = "reactive L2 switching controller for OF-DPA switches"
	ofdpadFlags := []cli.Flag{
		cli.BoolFlag{
			Name:  "print-config",
			Usage: "print the effective configuration as yaml and exit",
		},
	}
	app.Flags = utils.FlattenFlags(ofdpadFlags, utils.BuildControllerFlags(binName), utils.BuildLogFlags(binName))
	sort.Sort(cli.FlagsByName(app.Flags))
	app.Action = func(ctx *cli.Context) error {
		agent, err := initController(ctx)
		if err != nil {
			errmsg := err.Error()
			logrus.Error(errmsg)
			// use 22 Invalid argument as error return code
			return cli.NewExitError(errmsg, 22)
		}
		if err := runController(agent); err != nil {
			logrus.Error(err.Error())
			return cli.NewExitError(err.Error(), 1)
		}
		return nil
	}
	app.Commands = []cli.Command{
		{
			Name:      "inspect",
			Usage:     "show controller state from a running ofdpad",
			ArgsUsage: "switches|switch <dpid>|groups|tables",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "url",
					Value: "http://127.0.0.1:9090",
					Usage: "inspect api url of the controller",
				},
			},
			Action: inspect,
		},
	}
	app.Run(os.Args)
}
