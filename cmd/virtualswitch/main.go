/*
Copyright 2025.

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
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"

	"github.com/vswitchd/virtualswitch/internal/bridge"
)

func main() {
	var development bool
	var metricsInterval time.Duration

	flag.BoolVar(&development, "development", false, "use a human-readable, more verbose log encoding")
	flag.DurationVar(&metricsInterval, "metrics-interval", bridge.DefaultMetricsInterval, "how often to log a metrics snapshot")
	flag.Parse()

	log := newLogger(development)

	interfaces := flag.Args()
	if len(interfaces) < 1 {
		bridge.Fatal(log, fmt.Errorf("at least one interface is required, got %d", len(interfaces)))
	}

	ports := make([]bridge.Port, 0, len(interfaces))
	for _, name := range interfaces {
		port, err := bridge.NewRawPort(name, log)
		if err != nil {
			bridge.Fatal(log, err)
		}
		ports = append(ports, port)
	}

	sw := bridge.NewSwitch(ports, log)
	supervisor := bridge.NewSupervisor(sw, ports, log, metricsInterval)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := supervisor.Run(ctx); err != nil {
		log.Error(err, "virtual switch exited with an error")
		os.Exit(1)
	}
}

// newLogger builds the program's one logr.Logger, backed by zap the way the
// rest of this module's idiom does it. development swaps the production
// JSON encoder for zap's console encoder, for interactive use.
func newLogger(development bool) logr.Logger {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	zl, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "PANIC: failed to build logger: %v\n", err)
		os.Exit(1)
	}

	return zapr.NewLogger(zl).WithName("virtualswitch")
}
