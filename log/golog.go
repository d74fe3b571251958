// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package log

import (
	"flag"
	"fmt"
	golog "log"
	"sync/atomic"
)

var golevel = Info

var called int32

// AddFlags adds the standard -log level flag to the flag.CommandLine
// flag set.
func AddFlags() {
	if atomic.AddInt32(&called, 1) != 1 {
		Error.Printf("log.AddFlags: called twice!")
		return
	}
	flag.Var(new(logFlag), "log", "set log level (off, error, info, debug)")
}

const (
	Ldate         = golog.Ldate
	Ltime         = golog.Ltime
	Lmicroseconds = golog.Lmicroseconds
	Lshortfile    = golog.Lshortfile
)

// SetFlags sets the output flags for the Go standard logger.
func SetFlags(flag int) {
	golog.SetFlags(flag)
}

type logFlag string

func (f logFlag) String() string {
	return string(f)
}

func (f *logFlag) Set(level string) error {
	var l Level
	switch level {
	case "off":
		l = Off
	case "error":
		l = Error
	case "info":
		l = Info
	case "debug":
		l = Debug
	default:
		return fmt.Errorf("invalid log level %q", level)
	}
	golevel = l
	return nil
}

// Get implements flag.Getter.
func (logFlag) Get() interface{} {
	return golevel
}

type gologOutputter struct{}

func (gologOutputter) Level() Level { return golevel }

func (gologOutputter) Output(calldepth int, level Level, s string) error {
	if golevel < level {
		return nil
	}
	return golog.Output(calldepth+1, s)
}
