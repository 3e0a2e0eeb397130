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

// camTable is the content-addressable-memory table mapping a learned
// source MAC to the port it was last seen on. It is touched only by the
// switching loop goroutine, so it carries no lock: adding one here would
// only protect against a concurrency pattern this package never creates.
// There is no expiry and no size cap — both are explicit non-goals.
type camTable struct {
	entries map[uint64]Port
}

func newCAMTable() *camTable {
	return &camTable{entries: make(map[uint64]Port)}
}

// Learn records (or overwrites) the port on which mac was last seen.
func (c *camTable) Learn(mac MAC, port Port) {
	c.entries[mac.Uint64()] = port
}

// Lookup returns the port last learned for mac, if any.
func (c *camTable) Lookup(mac MAC) (Port, bool) {
	port, ok := c.entries[mac.Uint64()]
	return port, ok
}

// Size reports the number of distinct MACs currently learned. Exposed for tests.
func (c *camTable) Size() int {
	return len(c.entries)
}
