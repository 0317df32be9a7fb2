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

// Package version holds the build information of ofdpad. It is stamped at
// link time:
//
//	go build -ldflags "-X github.com/contiv/ofdpa/version.version=1.0.0 \
//	    -X github.com/contiv/ofdpa/version.gitCommit=$(git rev-parse --short HEAD) \
//	    -X github.com/contiv/ofdpa/version.buildTime=$(date -u +%FT%TZ)" ./ofdpad
//
// Fields not stamped are reported as "unknown".
package version

import "fmt"

var (
	gitCommit string
	version   string
	buildTime string
)

// Info is the version and build information of the ofdpad binary
type Info struct {
	GitCommit string `json:"gitCommit"`
	Version   string `json:"version"`
	BuildTime string `json:"buildTime"`
}

const unstamped = "unknown"

func orUnknown(s string) string {
	if s == "" {
		return unstamped
	}
	return s
}

// Get returns the information stamped into the binary, served on /version
// and printed by ofdpad --version
func Get() *Info {
	return &Info{
		GitCommit: orUnknown(gitCommit),
		Version:   orUnknown(version),
		BuildTime: orUnknown(buildTime),
	}
}

// String returns printable version string
func String() string {
	return StringFromInfo(Get())
}

// StringFromInfo prints the versioning details
func StringFromInfo(ver *Info) string {
	return fmt.Sprintf("Version: %s\n", ver.Version) +
		fmt.Sprintf("GitCommit: %s\n", ver.GitCommit) +
		fmt.Sprintf("BuildTime: %s\n", ver.BuildTime)
}
