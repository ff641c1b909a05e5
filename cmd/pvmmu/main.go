// Copyright 2026 The pvmmu Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Binary pvmmu exercises the page-table hierarchy manager against the
// in-process hypervisor simulator.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

var (
	debug      = flag.Bool("debug", false, "enable debug logging, including update-queue traces.")
	configPath = flag.String("config", "", "TOML file overriding pool and machine defaults.")
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(new(Walk), "")
	subcommands.Register(new(Churn), "")

	flag.Parse()
	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	os.Exit(int(subcommands.Execute(context.Background())))
}

// fatalf logs and exits without running deferred cleanup; commands call it
// only for unrecoverable setup failures.
func fatalf(format string, args ...any) {
	logrus.Fatalf(format, args...)
}
