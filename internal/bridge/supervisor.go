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

package bridge

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
)

// DefaultMetricsInterval is the production cadence of the metrics sink.
// Tests construct a Supervisor with a shorter interval instead of waiting
// a full minute; production callers should leave this as-is.
const DefaultMetricsInterval = 60 * time.Second

// Supervisor owns the lifecycle of one running switch over an
// already-constructed port set: it spawns one receiver goroutine per port,
// the metrics sink, and the switching loop, and waits for all of them. A
// port exists before its receiver is started; on shutdown every port is
// closed while its receiver may still be blocked in ReceiveNext, which is
// what makes that receiver return.
type Supervisor struct {
	sw              *Switch
	ports           []Port
	log             logr.Logger
	metricsInterval time.Duration
}

// NewSupervisor builds a Supervisor over an already-constructed Switch and
// the same port set it was given.
func NewSupervisor(sw *Switch, ports []Port, log logr.Logger, metricsInterval time.Duration) *Supervisor {
	if metricsInterval <= 0 {
		metricsInterval = DefaultMetricsInterval
	}
	return &Supervisor{sw: sw, ports: ports, log: log.WithName("supervisor"), metricsInterval: metricsInterval}
}

// Run spawns every worker and blocks until ctx is cancelled, at which point
// it closes every port (unblocking any goroutine parked in ReceiveNext),
// waits for all workers to unwind, and returns the first non-nil error any
// of them reported.
func (sp *Supervisor) Run(ctx context.Context) error {
	sp.log.Info("starting virtual layer 2 switch", "ports", len(sp.ports))

	g, gctx := errgroup.WithContext(ctx)

	for _, port := range sp.ports {
		port := port
		sp.log.Info("starting frame receiver", "interface", port.Name())
		g.Go(func() error {
			sp.sw.RunReceiver(gctx, port)
			return nil
		})
	}

	sp.log.Info("starting metrics sink")
	g.Go(func() error {
		sp.runMetricsSink(gctx)
		return nil
	})

	sp.log.Info("starting main switch loop")
	g.Go(func() error {
		sp.sw.RunSwitchLoop(gctx)
		return nil
	})

	// Closing every port is what actually unblocks a receiver parked in a
	// blocking kernel read; cancelling gctx alone only stops the loops that
	// poll it explicitly (the switch loop and the metrics sink).
	go func() {
		<-gctx.Done()
		for _, port := range sp.ports {
			if err := port.Close(); err != nil {
				sp.log.Error(err, "error closing port", "interface", port.Name())
			}
		}
	}()

	err := g.Wait()
	sp.log.Info("virtual layer 2 switch stopped")
	return err
}

// runMetricsSink samples the switch's counters on a fixed interval and logs
// a structured snapshot, until ctx is cancelled.
func (sp *Supervisor) runMetricsSink(ctx context.Context) {
	ticker := time.NewTicker(sp.metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := sp.sw.Snapshot()
			sp.log.Info("metrics report",
				"receivedFrames", snap.ReceivedFrames,
				"sentFrames", snap.SentFrames,
				"floodCount", snap.FloodCount,
				"readErrors", snap.ReadErrors,
				"sendErrors", snap.SendErrors,
				"floodErrors", snap.FloodErrors,
			)
		}
	}
}
