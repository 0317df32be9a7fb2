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

package utils

import (
	"fmt"
	"log/syslog"
	"net/url"
	"strings"
	"time"

	"github.com/Sirupsen/logrus"
	logrus_syslog "github.com/Sirupsen/logrus/hooks/syslog"
	"github.com/urfave/cli"
)

// Controller flag names
const (
	FlagListenAddress  = "listen-address"
	FlagInspectAddress = "inspect-address"
	FlagVlan           = "vlan"
	FlagPriority       = "priority"
	FlagGroupBase      = "group-base"
	FlagConfig         = "config"
)

// envVar returns the environment variable backing a flag of binary
func envVar(binary, flag string) string {
	name := strings.ToUpper(strings.Replace(flag, "-", "_", -1))
	return fmt.Sprintf("CONTIV_%s_%s", strings.ToUpper(binary), name)
}

// BuildControllerFlags CLI controller flags for given binary
func BuildControllerFlags(binary string) []cli.Flag {
	binLower := strings.ToLower(binary)
	return []cli.Flag{
		cli.StringFlag{
			Name:   FlagListenAddress + ", listen",
			Value:  ":6633",
			EnvVar: envVar(binary, FlagListenAddress),
			Usage:  fmt.Sprintf("set %s openflow listen address in format [host]:port", binLower),
		},
		cli.StringFlag{
			Name:   FlagInspectAddress,
			Value:  ":9090",
			EnvVar: envVar(binary, FlagInspectAddress),
			Usage:  fmt.Sprintf("set %s inspect REST api address, empty disables it", binLower),
		},
		cli.IntFlag{
			Name:   FlagVlan,
			Value:  10,
			EnvVar: envVar(binary, FlagVlan),
			Usage:  "vlan id programmed for learned destinations (1-4094)",
		},
		cli.IntFlag{
			Name:   FlagPriority,
			Value:  1,
			EnvVar: envVar(binary, FlagPriority),
			Usage:  "priority of the vlan and bridging table entries",
		},
		cli.StringFlag{
			Name:   FlagGroupBase,
			Value:  "0xa0001",
			EnvVar: envVar(binary, FlagGroupBase),
			Usage:  "first L2 group id handed out",
		},
		cli.StringFlag{
			Name:   FlagConfig + ", c",
			EnvVar: envVar(binary, FlagConfig),
			Usage:  fmt.Sprintf("yaml config file for %s, explicitly set flags take precedence", binLower),
		},
	}
}

// BuildLogFlags CLI logging flags for given binary
func BuildLogFlags(binary string) []cli.Flag {
	binLower := strings.ToLower(binary)
	return []cli.Flag{
		cli.StringFlag{
			Name:   "log-level",
			Value:  "INFO",
			EnvVar: envVar(binary, "log-level"),
			Usage:  fmt.Sprintf("set %s log level, options: [DEBUG, INFO, WARN, ERROR]", binLower),
		},
		cli.BoolFlag{
			Name:   "use-json-log, json-log",
			EnvVar: envVar(binary, "use-json-log"),
			Usage:  fmt.Sprintf("set %s log format to json if this flag is provided", binLower),
		},
		cli.BoolFlag{
			Name:   "use-syslog, syslog",
			EnvVar: envVar(binary, "use-syslog"),
			Usage:  fmt.Sprintf("set %s send log to syslog if this flag is provided", binLower),
		},
		cli.StringFlag{
			Name:   "syslog-url",
			Value:  "udp://127.0.0.1:514",
			EnvVar: envVar(binary, "syslog-url"),
			Usage:  fmt.Sprintf("set %s syslog url in format protocol://ip:port", binLower),
		},
	}
}

// syslogPriority maps a log level to the syslog priority of the hook
func syslogPriority(level logrus.Level) syslog.Priority {
	switch level {
	case logrus.PanicLevel, logrus.FatalLevel:
		return syslog.LOG_CRIT
	case logrus.ErrorLevel:
		return syslog.LOG_ERR
	case logrus.WarnLevel:
		return syslog.LOG_WARNING
	case logrus.DebugLevel:
		return syslog.LOG_DEBUG
	}
	return syslog.LOG_INFO
}

func configureSyslog(binary string, loglevel logrus.Level, syslogRawURL string) error {
	// tty detection is useless when writing to syslog
	if tf, ok := logrus.StandardLogger().Formatter.(*logrus.TextFormatter); ok {
		tf.DisableColors = true
	}

	syslogURL, err := url.Parse(syslogRawURL)
	if err != nil {
		return fmt.Errorf("Failed parsing syslog spec %q: %v", syslogRawURL, err.Error())
	}

	hook, err := logrus_syslog.NewSyslogHook(syslogURL.Scheme, syslogURL.Host, syslogPriority(loglevel), binary)
	if err != nil {
		return fmt.Errorf("Failed connecting to syslog %q: %v", syslogRawURL, err.Error())
	}

	logrus.AddHook(hook)
	return nil
}

// InitLogging initiates logging from CLI options
func InitLogging(binary string, ctx *cli.Context) error {
	logLevel, err := logrus.ParseLevel(ctx.String("log-level"))
	if err != nil {
		return err
	}
	logrus.SetLevel(logLevel)

	if ctx.Bool("use-json-log") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.StampNano})
	}

	if ctx.Bool("use-syslog") {
		syslogURL := ctx.String("syslog-url")
		if err := configureSyslog(binary, logLevel, syslogURL); err != nil {
			return err
		}
		logrus.Infof("Using %v syslog config: %v", binary, syslogURL)
	}

	logrus.Infof("Using %v log level: %v", binary, logLevel)
	return nil
}

// FlattenFlags concatenate slices of flags into one slice
func FlattenFlags(flagSlices ...[]cli.Flag) []cli.Flag {
	var flags []cli.Flag
	for _, slice := range flagSlices {
		flags = append(flags, slice...)
	}
	return flags
}
