package bridge

import "testing"

func TestCAMTableLearnAndLookup(t *testing.T) {
	cam := newCAMTable()
	p0 := newMockPort(0, "eth0")
	mac := NewMAC(0x11, 0x11, 0x11, 0x11, 0x11, 0x11)

	if _, ok := cam.Lookup(mac); ok {
		t.Fatal("Lookup on empty table should miss")
	}

	cam.Learn(mac, p0)
	got, ok := cam.Lookup(mac)
	if !ok {
		t.Fatal("Lookup after Learn should hit")
	}
	if !got.IdentityEquals(p0) {
		t.Error("Lookup returned a different port than was learned")
	}
	if got, want := cam.Size(), 1; got != want {
		t.Errorf("Size() = %d, want %d", got, want)
	}
}

func TestCAMTableRelearn(t *testing.T) {
	cam := newCAMTable()
	p0 := newMockPort(0, "eth0")
	p1 := newMockPort(1, "eth1")
	mac := NewMAC(0x11, 0x11, 0x11, 0x11, 0x11, 0x11)

	cam.Learn(mac, p0)
	cam.Learn(mac, p1)

	got, ok := cam.Lookup(mac)
	if !ok {
		t.Fatal("Lookup after relearn should hit")
	}
	if !got.IdentityEquals(p1) {
		t.Error("relearning the same MAC on a new port should overwrite the prior entry")
	}
	if got, want := cam.Size(), 1; got != want {
		t.Errorf("Size() = %d, want %d (insert-or-assign must not grow the table)", got, want)
	}
}

func TestCAMTableLearnsBroadcastSource(t *testing.T) {
	// The spec preserves the reference implementation's quirk of learning
	// even a broadcast source MAC unconditionally.
	cam := newCAMTable()
	p0 := newMockPort(0, "eth0")
	broadcast := NewMAC(0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)

	cam.Learn(broadcast, p0)
	got, ok := cam.Lookup(broadcast)
	if !ok || !got.IdentityEquals(p0) {
		t.Error("table must learn a broadcast source MAC like any other")
	}
}
