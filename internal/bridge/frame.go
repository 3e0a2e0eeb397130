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
	"errors"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// MinFrameLength is the shortest buffer NewFrameFromBuffer accepts: a bare
// 14-byte Ethernet header with no payload.
const MinFrameLength = 14

// MaxFrameLength is the largest buffer a Port may hand back: a standard
// 1518-byte Ethernet frame (1500 bytes of payload, the 14-byte header and
// the 4-byte frame check sequence) plus one 4-byte 802.1Q VLAN tag.
const MaxFrameLength = 1522

var errFrameTooShort = errors.New("bridge: frame shorter than an Ethernet header")

// Frame is an immutable Ethernet frame as received off the wire: the
// source and destination MAC pulled out of the header, and the full
// header-plus-payload buffer exactly as captured. Buf is always a private
// copy — it never aliases a Port's reusable receive buffer.
type Frame struct {
	SourceMAC MAC
	DestMAC   MAC
	Buf       []byte
}

// NewFrame constructs a Frame from already-parsed addresses and an owned
// buffer. Callers that already hold a private copy of buf (as every Port
// implementation in this package does) should prefer this over
// NewFrameFromBuffer to avoid a second copy.
func NewFrame(src, dst MAC, buf []byte) Frame {
	return Frame{SourceMAC: src, DestMAC: dst, Buf: buf}
}

// NewFrameFromBuffer parses a raw receive buffer of length L >= 14 into a
// Frame: destination MAC at offset 0, source MAC at offset 6, and the full
// [0, L) span captured as Buf. The returned Frame owns a copy of raw; the
// caller's buffer may be reused immediately after this returns.
func NewFrameFromBuffer(raw []byte) (Frame, error) {
	if len(raw) < MinFrameLength {
		return Frame{}, fmt.Errorf("%w: got %d bytes", errFrameTooShort, len(raw))
	}
	buf := make([]byte, len(raw))
	copy(buf, raw)
	return Frame{
		DestMAC:   MACFromBytes(buf[0:6]),
		SourceMAC: MACFromBytes(buf[6:12]),
		Buf:       buf,
	}, nil
}

// newRawFrame builds a Frame directly from a captured buffer without
// NewFrameFromBuffer's length check. It is for Port implementations only:
// a Port hands back every buffer it reads, well-formed or not, and leaves
// the judgment of "long enough to be a real Ethernet frame" to the
// receiver task, which discards anything shorter than MinFrameLength
// after counting it as received. buf must already be a private copy.
func newRawFrame(buf []byte) Frame {
	var dst, src MAC
	if len(buf) >= 12 {
		dst = MACFromBytes(buf[0:6])
		src = MACFromBytes(buf[6:12])
	}
	return Frame{SourceMAC: src, DestMAC: dst, Buf: buf}
}

// describeEtherType decodes the EtherType (and, for a VLAN-tagged frame,
// the inner EtherType) purely for diagnostic log lines. It never feeds
// back into the switching decision, so a decode failure is reported as
// "unknown" rather than propagated.
func describeEtherType(buf []byte) string {
	pkt := gopacket.NewPacket(buf, layers.LayerTypeEthernet, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	ethLayer := pkt.Layer(layers.LayerTypeEthernet)
	if ethLayer == nil {
		return "unknown"
	}
	eth, ok := ethLayer.(*layers.Ethernet)
	if !ok {
		return "unknown"
	}
	if eth.EthernetType == layers.EthernetTypeDot1Q {
		if dot1q, ok := pkt.Layer(layers.LayerTypeDot1Q).(*layers.Dot1Q); ok {
			return fmt.Sprintf("802.1Q/%s", dot1q.Type)
		}
	}
	return eth.EthernetType.String()
}
