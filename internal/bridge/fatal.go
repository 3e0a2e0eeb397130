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
	"fmt"
	"os"
	"runtime"

	"github.com/go-logr/logr"
)

// Fatal mirrors the reference implementation's PANIC macro: it reports the
// caller's file and line alongside err, then terminates the process. It is
// reserved for the handful of failures the spec calls fatal — socket
// creation, interface index lookup, bind, and missing CLI arguments — all
// of which happen before any port is usable and none of which have a
// meaningful soft-failure path.
func Fatal(log logr.Logger, err error) {
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		file, line = "unknown", 0
	}
	log.Error(err, fmt.Sprintf("PANIC %s:%d", file, line))
	os.Exit(1)
}
