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
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Snapshot is a point-in-time read of every switch counter. Atomicity
// across fields is not guaranteed — each counter is individually
// consistent, which is all the spec requires of a diagnostic snapshot.
type Snapshot struct {
	ReceivedFrames uint64
	SentFrames     uint64
	FloodCount     uint64
	ReadErrors     uint64
	SendErrors     uint64
	FloodErrors    uint64
}

// counters backs the switch's six monotonic counters with
// prometheus.Counter instead of plain atomics: the counter type already
// gives us lock-free concurrent Inc from any number of goroutines, and
// Write(*dto.Metric) gives Snapshot a value to read back without needing a
// parallel sync/atomic field per counter. The registry they are added to
// is private to the Switch and is gathered in-process only — nothing ever
// exposes it over HTTP, so no listener is introduced.
type counters struct {
	registry *prometheus.Registry

	receivedFrames prometheus.Counter
	sentFrames     prometheus.Counter
	floodCount     prometheus.Counter
	readErrors     prometheus.Counter
	sendErrors     prometheus.Counter
	floodErrors    prometheus.Counter
}

func newCounters() *counters {
	c := &counters{
		registry: prometheus.NewRegistry(),
		receivedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "virtualswitch_received_frames_total",
			Help: "Number of frames successfully received across all ports.",
		}),
		sentFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "virtualswitch_sent_frames_total",
			Help: "Number of frames successfully transmitted on an egress port.",
		}),
		floodCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "virtualswitch_flood_total",
			Help: "Number of frames for which the flood decision was taken.",
		}),
		readErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "virtualswitch_read_errors_total",
			Help: "Number of receive failures across all ports.",
		}),
		sendErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "virtualswitch_send_errors_total",
			Help: "Number of unicast send failures.",
		}),
		floodErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "virtualswitch_flood_errors_total",
			Help: "Number of flood send failures (the failing send that aborts a flood).",
		}),
	}
	c.registry.MustRegister(
		c.receivedFrames,
		c.sentFrames,
		c.floodCount,
		c.readErrors,
		c.sendErrors,
		c.floodErrors,
	)
	return c
}

func (c *counters) Snapshot() Snapshot {
	return Snapshot{
		ReceivedFrames: readCounter(c.receivedFrames),
		SentFrames:     readCounter(c.sentFrames),
		FloodCount:     readCounter(c.floodCount),
		ReadErrors:     readCounter(c.readErrors),
		SendErrors:     readCounter(c.sendErrors),
		FloodErrors:    readCounter(c.floodErrors),
	}
}

// Gather exposes the underlying registry's MetricFamily view, used by tests
// to confirm the Prometheus-side values agree with Snapshot.
func (c *counters) Gather() ([]*dto.MetricFamily, error) {
	return c.registry.Gather()
}

func readCounter(c prometheus.Counter) uint64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return uint64(m.GetCounter().GetValue())
}
