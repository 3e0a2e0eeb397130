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
	"testing"
	"time"

	"github.com/go-logr/logr"
)

func macA() MAC { return NewMAC(0x00, 0x11, 0x22, 0x33, 0x44, 0x01) }
func macB() MAC { return NewMAC(0x00, 0x11, 0x22, 0x33, 0x44, 0x02) }
func macC() MAC { return NewMAC(0x00, 0x11, 0x22, 0x33, 0x44, 0x03) }

func newTestSwitch(ports ...Port) *Switch {
	return NewSwitch(ports, logr.Discard())
}

func TestSwitchUnknownDestinationFloods(t *testing.T) {
	a := newMockPort(1, "a")
	b := newMockPort(2, "b")
	c := newMockPort(3, "c")
	sw := newTestSwitch(a, b, c)

	frame := NewFrame(macA(), macB(), []byte{0xAA, 0xBB})
	sw.processOne(frame, a)

	if len(b.SentFrames()) != 1 || len(c.SentFrames()) != 1 {
		t.Fatalf("expected flood to every port but the ingress, got b=%d c=%d", len(b.SentFrames()), len(c.SentFrames()))
	}
	snap := sw.Snapshot()
	if snap.FloodCount != 1 {
		t.Fatalf("flood_count = %d, want 1", snap.FloodCount)
	}
}

func TestSwitchLearnsThenUnicasts(t *testing.T) {
	a := newMockPort(1, "a")
	b := newMockPort(2, "b")
	c := newMockPort(3, "c")
	sw := newTestSwitch(a, b, c)

	// A -> B, unknown, floods to b and c.
	sw.processOne(NewFrame(macA(), macB(), []byte{0x01}), a)

	// B replies to A. A's source MAC was learned against port a by the first
	// frame, so this reply unicasts straight back out port a, with no flood.
	sw.processOne(NewFrame(macB(), macA(), []byte{0x02}), b)

	if got := len(a.SentFrames()); got != 1 {
		t.Fatalf("port a received %d frames, want 1 (the unicast reply)", got)
	}
	if got := len(c.SentFrames()); got != 0 {
		t.Fatalf("port c received %d frames from the reply, want 0 (unicast, not flooded)", got)
	}
	snap := sw.Snapshot()
	if snap.FloodCount != 1 {
		t.Fatalf("flood_count = %d, want 1 (only the first frame)", snap.FloodCount)
	}
	if snap.SentFrames != 3 {
		t.Fatalf("sent_frames = %d, want 3 (2 flooded + 1 unicast)", snap.SentFrames)
	}
}

func TestSwitchRelearnsOnMovedSource(t *testing.T) {
	a := newMockPort(1, "a")
	b := newMockPort(2, "b")
	c := newMockPort(3, "c")
	sw := newTestSwitch(a, b, c)

	sw.processOne(NewFrame(macA(), macB(), []byte{0x01}), a) // learn A on a, B unknown so floods to b and c
	sw.processOne(NewFrame(macB(), macA(), []byte{0x02}), b) // learn B on b, unicast to a

	// A reappears on port c (e.g. moved). The CAM entry for A must move too.
	sw.processOne(NewFrame(macA(), macB(), []byte{0x03}), c)

	if got := len(c.SentFrames()); got != 1 {
		t.Fatalf("port c holds %d frames after its own ingress traffic, want 1 (only the initial flood)", got)
	}

	// A unicast to A should now go out c, not a: the earlier reply already
	// landed on a before A moved, so a's count must not grow any further.
	sw.processOne(NewFrame(macB(), macA(), []byte{0x04}), b)
	if got := len(a.SentFrames()); got != 1 {
		t.Fatalf("port a received %d frames after A moved away, want 1 (only the pre-move reply)", got)
	}
	if got := len(c.SentFrames()); got != 2 {
		t.Fatalf("port c received %d frames, want 2 (the initial flood plus the post-move unicast to A)", got)
	}
}

func TestSwitchBroadcastAlwaysFloods(t *testing.T) {
	a := newMockPort(1, "a")
	b := newMockPort(2, "b")
	sw := newTestSwitch(a, b)

	// Learn B on port b first (A is still unknown, so this frame floods to a).
	sw.processOne(NewFrame(macB(), macA(), []byte{0x01}), b)

	broadcast := NewMAC(0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
	sw.processOne(NewFrame(macA(), broadcast, []byte{0x02}), a)

	if got := len(b.SentFrames()); got != 1 {
		t.Fatalf("port b received %d broadcast frames, want 1", got)
	}
	if snap := sw.Snapshot(); snap.FloodCount != 2 {
		t.Fatalf("flood_count = %d, want 2 (the setup frame's flood plus the broadcast)", snap.FloodCount)
	}
}

func TestSwitchFloodAbandonsAfterFirstFailure(t *testing.T) {
	a := newMockPort(1, "a")
	b := newMockPort(2, "b")
	c := newMockPort(3, "c")
	sw := newTestSwitch(a, b, c)

	b.FailNextSends(1)
	sw.processOne(NewFrame(macA(), macB(), []byte{0x01}), a)

	if got := len(c.SentFrames()); got != 0 {
		t.Fatalf("port c received %d frames after an earlier egress failed, want 0 (flood abandons on first failure)", got)
	}
	snap := sw.Snapshot()
	if snap.FloodErrors != 1 {
		t.Fatalf("flood_errors = %d, want 1", snap.FloodErrors)
	}
	if snap.SentFrames != 0 {
		t.Fatalf("sent_frames = %d, want 0 (the failing send does not count)", snap.SentFrames)
	}
}

func TestSwitchUnicastSendFailure(t *testing.T) {
	a := newMockPort(1, "a")
	b := newMockPort(2, "b")
	sw := newTestSwitch(a, b)

	sw.processOne(NewFrame(macA(), macB(), []byte{0x01}), a) // learn A on a, B unknown so floods to b
	a.FailNextSends(1)
	sw.processOne(NewFrame(macB(), macA(), []byte{0x02}), b) // reply to A, A known on a, unicast fails

	snap := sw.Snapshot()
	if snap.SendErrors != 1 {
		t.Fatalf("send_errors = %d, want 1", snap.SendErrors)
	}
}

func TestSwitchReceiveFailureIncrementsReadErrors(t *testing.T) {
	a := newMockPort(1, "a")
	sw := newTestSwitch(a)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		sw.RunReceiver(ctx, a)
		close(done)
	}()

	// Give the receiver goroutine a chance to block inside ReceiveNext
	// before we cancel its context, the same way a real shutdown finds a
	// receiver already parked in a blocking socket read.
	time.Sleep(20 * time.Millisecond)
	cancel()
	a.EnqueueError()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunReceiver did not return after ctx was cancelled")
	}

	if snap := sw.Snapshot(); snap.ReadErrors != 1 {
		t.Fatalf("read_errors = %d, want 1", snap.ReadErrors)
	}
}

func TestSwitchMetricsSnapshotMatchesGather(t *testing.T) {
	a := newMockPort(1, "a")
	b := newMockPort(2, "b")
	sw := newTestSwitch(a, b)

	sw.processOne(NewFrame(macA(), macC(), []byte{0x01}), a)

	snap := sw.Snapshot()
	families, err := sw.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	values := make(map[string]uint64, len(families))
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			values[fam.GetName()] = uint64(m.GetCounter().GetValue())
		}
	}

	cases := map[string]uint64{
		"virtualswitch_received_frames_total": 0, // processOne doesn't touch received_frames; that's RunReceiver's job
		"virtualswitch_flood_total":           snap.FloodCount,
		"virtualswitch_sent_frames_total":     snap.SentFrames,
	}
	for name, want := range cases {
		if name == "virtualswitch_received_frames_total" {
			continue
		}
		if got := values[name]; got != want {
			t.Fatalf("gathered %s = %d, snapshot says %d", name, got, want)
		}
	}
}
