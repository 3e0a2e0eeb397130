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

import "fmt"

// broadcastInt is the integer view of FF:FF:FF:FF:FF:FF.
const broadcastInt = 0xFFFFFFFFFFFF

// MAC is an immutable 48-bit Ethernet hardware address. The zero value is
// the all-zeros address, not a valid sentinel for "absent" — callers that
// need an optional MAC should use a separate boolean or pointer.
type MAC struct {
	octets [6]byte
	bits   uint64 // octets packed big-endian into the low 48 bits
}

// NewMAC builds a MAC from its six octets in wire order.
func NewMAC(o0, o1, o2, o3, o4, o5 byte) MAC {
	octets := [6]byte{o0, o1, o2, o3, o4, o5}
	return MAC{octets: octets, bits: packMAC(octets)}
}

// MACFromBytes builds a MAC from a 6-byte slice. Panics if b is shorter than 6 bytes,
// matching the reference implementation's assumption that callers have already
// validated frame length.
func MACFromBytes(b []byte) MAC {
	var octets [6]byte
	copy(octets[:], b[:6])
	return MAC{octets: octets, bits: packMAC(octets)}
}

func packMAC(o [6]byte) uint64 {
	return uint64(o[0])<<40 | uint64(o[1])<<32 | uint64(o[2])<<24 |
		uint64(o[3])<<16 | uint64(o[4])<<8 | uint64(o[5])
}

// Octets returns the six octets of the address in wire order.
func (m MAC) Octets() [6]byte { return m.octets }

// Uint64 returns the 64-bit integer view used for ordering and hashing:
// the octets packed big-endian into the low 48 bits.
func (m MAC) Uint64() uint64 { return m.bits }

// Less reports whether m sorts before other under the integer view.
func (m MAC) Less(other MAC) bool { return m.bits < other.bits }

// IsBroadcast reports whether all 48 bits of the address are set.
func (m MAC) IsBroadcast() bool { return m.bits == broadcastInt }

// String renders the address as six uppercase hex pairs separated by colons,
// e.g. "AA:BB:CC:DD:EE:FF".
func (m MAC) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X",
		m.octets[0], m.octets[1], m.octets[2], m.octets[3], m.octets[4], m.octets[5])
}
