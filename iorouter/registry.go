/*
 * Copyright 2024 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package iorouter

// NewDefaultRouter returns a Router with every core driver registered:
// stdin, stdout, stderr, file (append), fileov (overwrite), and ring
// (ring-store addressed). Foreign drivers (a GUI driver, a clipboard
// driver, and similar) are registered separately by their owners; they are
// not part of the core contract.
func NewDefaultRouter() (*Router, error) {
	r := NewRouter()
	drivers := []Driver{
		newStdinDriver(),
		newStdoutDriver(),
		newStderrDriver(),
		newFileDriver(),
		newFileovDriver(),
		NewRingDriver("ring"),
	}
	for _, d := range drivers {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}
