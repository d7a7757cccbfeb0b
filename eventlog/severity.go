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

// Package eventlog is severity-routed logging built on iorouter: each of
// the seven severities can be routed to its own channel with its own
// format string, with bulk setters to address a level and everything
// above or below it. The router is the package's only cross-component
// dependency.
package eventlog

// Severity is one of the seven log levels, ordered least to most severe.
type Severity int

const (
	NoLog Severity = iota
	Debug
	Diag
	Info
	Warning
	Error
	Fatal
)

var names = [...]string{"NoLog", "Debug", "Diag", "Info", "Warning", "Error", "Fatal"}
var letters = [...]string{"N", "D", "G", "I", "W", "E", "F"}

// String returns the severity's name, e.g. "Warning".
func (s Severity) String() string {
	if s < NoLog || s > Fatal {
		return "Unknown"
	}
	return names[s]
}

// Letter returns the severity's single-character abbreviation, e.g. "W".
func (s Severity) Letter() string {
	if s < NoLog || s > Fatal {
		return "?"
	}
	return letters[s]
}
