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

	"github.com/go-logr/logr"
	dto "github.com/prometheus/client_model/go"
)

// defaultQueueCapacity bounds how far receivers may run ahead of the
// switching loop. It only affects backpressure, never ordering or drops.
const defaultQueueCapacity = 256

// Switch holds the CAM table, ingress queue, and counters for one running
// bridge instance, and drives the single-threaded switching loop described
// in the design: dequeue, learn, decide flood-or-unicast, emit.
type Switch struct {
	ports []Port
	cam   *camTable
	queue *ingressQueue
	ctrs  *counters
	log   logr.Logger
}

// NewSwitch constructs a switch over the given set of ports. ports is kept
// as-is: duplicate entries or entries that alias each other are a
// configuration error the spec explicitly declines to guard against.
func NewSwitch(ports []Port, log logr.Logger) *Switch {
	return &Switch{
		ports: ports,
		cam:   newCAMTable(),
		queue: newIngressQueue(defaultQueueCapacity),
		ctrs:  newCounters(),
		log:   log.WithName("switch"),
	}
}

// Snapshot returns the current values of all six counters.
func (s *Switch) Snapshot() Snapshot { return s.ctrs.Snapshot() }

// Gather exposes the switch's private Prometheus registry for callers that
// want the same values in MetricFamily form. The metrics sink
// (runMetricsSink in supervisor.go) logs Snapshot only and does not call it.
func (s *Switch) Gather() ([]*dto.MetricFamily, error) { return s.ctrs.Gather() }

// queueLen reports the current depth of the ingress queue. Exposed only to
// tests in this package.
func (s *Switch) queueLen() int { return s.queue.Len() }

// deliver records a successfully-read frame and, unless it is too short to
// be a valid Ethernet header, pushes it onto the ingress queue. A short
// read still counts toward received_frames (ReceiveNext itself succeeded)
// but is discarded here rather than handed to the switching loop, per the
// spec's split between "receive_next succeeded" and "frame is well-formed".
func (s *Switch) deliver(frame Frame, ingress Port) {
	s.ctrs.receivedFrames.Inc()
	if len(frame.Buf) < MinFrameLength {
		s.log.Info("discarding malformed frame", "interface", ingress.Name(), "length", len(frame.Buf))
		return
	}
	s.queue.Push(frame, ingress)
}

// RunReceiver blocks on port.ReceiveNext in a loop, pushing every frame it
// reads onto the switch's ingress queue, until ctx is cancelled. A failed
// ReceiveNext is counted as a read error and retried; it ends the loop only
// when ctx is already done (as after the supervisor closes the port on
// shutdown). It is meant to run as its own goroutine, one per port — see
// Supervisor.Run.
func (s *Switch) RunReceiver(ctx context.Context, port Port) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame, ok := port.ReceiveNext()
		if !ok {
			s.ctrs.readErrors.Inc()
			s.log.Info("receive failed, skipping", "interface", port.Name())
			if ctx.Err() != nil {
				return
			}
			continue
		}
		s.deliver(frame, port)
	}
}

// RunSwitchLoop pops one (frame, ingress) pair at a time and switches it
// until ctx is cancelled.
func (s *Switch) RunSwitchLoop(ctx context.Context) {
	for {
		entry, ok := s.queue.Pop(ctx)
		if !ok {
			return
		}
		s.processOne(entry.frame, entry.ingress)
	}
}

// processOne implements the decision in full: learn, decide, flood or
// unicast. Exported to tests within the package as a deterministic,
// single-call alternative to driving the queue end to end.
func (s *Switch) processOne(frame Frame, ingress Port) {
	s.cam.Learn(frame.SourceMAC, ingress)

	dest, known := s.cam.Lookup(frame.DestMAC)
	if frame.DestMAC.IsBroadcast() || !known {
		s.flood(frame, ingress)
		return
	}
	s.unicast(frame, ingress, dest)
}

func (s *Switch) flood(frame Frame, ingress Port) {
	s.ctrs.floodCount.Inc()
	for _, egress := range s.ports {
		if egress.IdentityEquals(ingress) {
			continue
		}
		if !egress.Send(frame) {
			s.ctrs.floodErrors.Inc()
			s.log.Error(nil, "flood send failed, abandoning remainder of flood",
				"egressInterface", egress.Name(),
				"ethertype", describeEtherType(frame.Buf))
			return
		}
		s.ctrs.sentFrames.Inc()
	}
}

func (s *Switch) unicast(frame Frame, ingress, egress Port) {
	if !egress.Send(frame) {
		s.ctrs.sendErrors.Inc()
		s.log.Error(nil, "unicast send failed",
			"ingressInterface", ingress.Name(),
			"egressInterface", egress.Name(),
			"ethertype", describeEtherType(frame.Buf))
		return
	}
	s.ctrs.sentFrames.Inc()
}
