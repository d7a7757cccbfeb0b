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

package eventlog

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cloudwego/ringstore/cache/mempool"
	"github.com/cloudwego/ringstore/iorouter"
)

type route struct {
	ch     *iorouter.Channel
	format string
}

// Logger routes each severity to its own iorouter.Channel with its own
// format string. Routing changes take the mutex; Emit only holds it long
// enough to copy out the one route it needs.
type Logger struct {
	mu     sync.Mutex
	routes [Fatal + 1]*route

	// panicCh is read by SafePrintf without locking, since SafePrintf must
	// remain usable from a panic-recovery path that cannot assume mu is
	// free.
	panicCh atomic.Pointer[iorouter.Channel]
}

// NewLogger returns a Logger with every severity unrouted (NoLog behavior:
// Emit is a no-op until SetRoute/SetRouteAbove/SetRouteBelow/SetRouteAll is
// called for that level).
func NewLogger() *Logger { return &Logger{} }

// SetRoute routes level to ch, rendering messages through format.
func (lg *Logger) SetRoute(level Severity, ch *iorouter.Channel, format string) {
	lg.mu.Lock()
	defer lg.mu.Unlock()
	lg.routes[level] = &route{ch: ch, format: format}
}

// SetRouteAbove routes level and every more severe level to ch/format.
func (lg *Logger) SetRouteAbove(level Severity, ch *iorouter.Channel, format string) {
	lg.mu.Lock()
	defer lg.mu.Unlock()
	for lv := level; lv <= Fatal; lv++ {
		lg.routes[lv] = &route{ch: ch, format: format}
	}
}

// SetRouteBelow routes level and every less severe level to ch/format.
func (lg *Logger) SetRouteBelow(level Severity, ch *iorouter.Channel, format string) {
	lg.mu.Lock()
	defer lg.mu.Unlock()
	for lv := NoLog; lv <= level; lv++ {
		lg.routes[lv] = &route{ch: ch, format: format}
	}
}

// SetRouteAll routes every severity to ch/format.
func (lg *Logger) SetRouteAll(ch *iorouter.Channel, format string) {
	lg.SetRouteAbove(NoLog, ch, format)
}

// SetPanicChannel designates ch as SafePrintf's emergency output.
func (lg *Logger) SetPanicChannel(ch *iorouter.Channel) { lg.panicCh.Store(ch) }

func callerInfo(skip int) (loc, fn string) {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "?:0", "?"
	}
	loc = filepath.Base(file) + ":" + strconv.Itoa(line)
	fn = "?"
	if f := runtime.FuncForPC(pc); f != nil {
		fn = f.Name()
	}
	return loc, fn
}

// render expands format's placeholders into a mempool-backed buffer the
// caller must mempool.Free once written:
//
//	%t time (epoch seconds)   %n severity name     %l severity letter
//	%p program (basename)     %P program (full path)  %i process id
//	%s source file:line       %F calling function  %o origin tag
//	%c numeric code           %m message            %% literal '%'
func render(pattern string, level Severity, origin string, code int, message, loc, fn string) []byte {
	buf := mempool.Malloc(0)
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c != '%' || i+1 >= len(pattern) {
			buf = mempool.Append(buf, c)
			continue
		}
		i++
		switch pattern[i] {
		case 't':
			buf = mempool.AppendStr(buf, strconv.FormatInt(time.Now().Unix(), 10))
		case 'n':
			buf = mempool.AppendStr(buf, level.String())
		case 'l':
			buf = mempool.AppendStr(buf, level.Letter())
		case 'p':
			buf = mempool.AppendStr(buf, filepath.Base(os.Args[0]))
		case 'P':
			buf = mempool.AppendStr(buf, os.Args[0])
		case 'i':
			buf = mempool.AppendStr(buf, strconv.Itoa(os.Getpid()))
		case 's':
			buf = mempool.AppendStr(buf, loc)
		case 'F':
			buf = mempool.AppendStr(buf, fn)
		case 'o':
			buf = mempool.AppendStr(buf, origin)
		case 'c':
			buf = mempool.AppendStr(buf, strconv.Itoa(code))
		case 'm':
			buf = mempool.AppendStr(buf, message)
		case '%':
			buf = mempool.Append(buf, '%')
		default:
			buf = mempool.Append(buf, '%', pattern[i])
		}
	}
	return buf
}

// Emit formats args into format (fmt.Sprintf-style) to produce the "message"
// placeholder, renders level's routed format string around it, and writes
// the result to level's channel. A level with no route configured is a
// silent no-op, matching NoLog semantics.
func (lg *Logger) Emit(level Severity, origin string, code int, format string, args ...interface{}) error {
	if level < NoLog || level > Fatal {
		return fmt.Errorf("eventlog: invalid severity %d", level)
	}
	lg.mu.Lock()
	rt := lg.routes[level]
	lg.mu.Unlock()
	if rt == nil || rt.ch == nil {
		return nil
	}

	message := fmt.Sprintf(format, args...)
	loc, fn := callerInfo(3)
	buf := render(rt.format, level, origin, code, message, loc, fn)
	_, err := rt.ch.Write(buf)
	mempool.Free(buf)
	if err != nil {
		return err
	}
	if level == Fatal {
		return rt.ch.Flush()
	}
	return nil
}

func (lg *Logger) Debugf(origin string, code int, format string, args ...interface{}) error {
	return lg.Emit(Debug, origin, code, format, args...)
}

func (lg *Logger) Diagf(origin string, code int, format string, args ...interface{}) error {
	return lg.Emit(Diag, origin, code, format, args...)
}

func (lg *Logger) Infof(origin string, code int, format string, args ...interface{}) error {
	return lg.Emit(Info, origin, code, format, args...)
}

func (lg *Logger) Warningf(origin string, code int, format string, args ...interface{}) error {
	return lg.Emit(Warning, origin, code, format, args...)
}

func (lg *Logger) Errorf(origin string, code int, format string, args ...interface{}) error {
	return lg.Emit(Error, origin, code, format, args...)
}

func (lg *Logger) Fatalf(origin string, code int, format string, args ...interface{}) error {
	return lg.Emit(Fatal, origin, code, format, args...)
}

// exitFunc is overridden by tests so Die doesn't tear down the test binary.
var exitFunc = os.Exit

// Die emits at Fatal, then terminates the process with exit code 1.
func (lg *Logger) Die(origin string, code int, format string, args ...interface{}) {
	_ = lg.Emit(Fatal, origin, code, format, args...)
	exitFunc(1)
}

// SafePrintf writes a formatted message straight to the panic channel
// (see SetPanicChannel), bypassing routing, the per-level format table,
// and any channel's pending-write buffer. It formats the message with
// fmt.Sprintf, copies it into one mempool-backed scratch buffer, and takes
// no Logger lock, so it can be called from a panic-recovery path racing
// the rest of the program.
func (lg *Logger) SafePrintf(format string, args ...interface{}) error {
	ch := lg.panicCh.Load()
	if ch == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	buf := mempool.Malloc(0)
	buf = mempool.AppendStr(buf, message)
	buf = mempool.Append(buf, '\n')
	_, err := ch.WriteDirect(buf)
	mempool.Free(buf)
	return err
}
