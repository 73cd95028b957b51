// Copyright 2024 The ever-vm Authors
// This file is part of ever-vm.
//
// ever-vm is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// ever-vm is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with ever-vm. If not, see <http://www.gnu.org/licenses/>.

// Package log provides structured, leveled logging for the VM core, in the
// call-site style used throughout the surrounding node: Info("msg", "k", v, ...).
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Lvl is a logging level.
type Lvl int

const (
	LvlCrit Lvl = iota
	LvlError
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

func (l Lvl) String() string {
	switch l {
	case LvlCrit:
		return "CRIT"
	case LvlError:
		return "ERROR"
	case LvlWarn:
		return "WARN"
	case LvlInfo:
		return "INFO"
	case LvlDebug:
		return "DEBUG"
	default:
		return "TRACE"
	}
}

var levelColor = map[Lvl]*color.Color{
	LvlCrit:  color.New(color.FgMagenta, color.Bold),
	LvlError: color.New(color.FgRed),
	LvlWarn:  color.New(color.FgYellow),
	LvlInfo:  color.New(color.FgGreen),
	LvlDebug: color.New(color.FgCyan),
	LvlTrace: color.New(color.FgWhite),
}

// Logger emits leveled, keyed records. New builds one that logs at LvlInfo
// to os.Stderr; the zero value has no output writer. Use Root() to obtain the process-wide instance contracts and
// handlers normally log through.
type Logger struct {
	mu       sync.Mutex
	out      io.Writer
	colorize bool
	level    Lvl
	ctx      []interface{}
}

var root = New()

// Root returns the process-wide root logger.
func Root() *Logger { return root }

// New creates a standalone logger writing to a colorized stderr when
// attached to a terminal, plain stderr otherwise.
func New(ctx ...interface{}) *Logger {
	w := colorable.NewColorableStderr()
	return &Logger{
		out:      w,
		colorize: isatty.IsTerminal(os.Stderr.Fd()),
		level:    LvlInfo,
		ctx:      ctx,
	}
}

// SetLevel adjusts the minimum level this logger emits.
func (l *Logger) SetLevel(lvl Lvl) { l.level = lvl }

// New returns a child logger with additional persistent key-value context.
func (l *Logger) New(ctx ...interface{}) *Logger {
	child := &Logger{out: l.out, colorize: l.colorize, level: l.level}
	child.ctx = append(append([]interface{}{}, l.ctx...), ctx...)
	return child
}

func (l *Logger) write(lvl Lvl, msg string, kv []interface{}) {
	if lvl > l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	caller := ""
	if cs := stack.Caller(2); true {
		caller = fmt.Sprintf("%+v", cs)
	}

	ts := time.Now().Format("2006-01-02T15:04:05.000")
	prefix := fmt.Sprintf("%-5s", lvl)
	if l.colorize {
		if c, ok := levelColor[lvl]; ok {
			prefix = c.Sprintf("%-5s", lvl)
		}
	}

	fmt.Fprintf(l.out, "%s [%s] %s", ts, prefix, msg)
	all := append(append([]interface{}{}, l.ctx...), kv...)
	for i := 0; i+1 < len(all); i += 2 {
		fmt.Fprintf(l.out, " %v=%v", all[i], all[i+1])
	}
	if len(all)%2 == 1 {
		fmt.Fprintf(l.out, " %v=MISSING", all[len(all)-1])
	}
	fmt.Fprintf(l.out, " caller=%s\n", caller)
}

func (l *Logger) Crit(msg string, kv ...interface{})  { l.write(LvlCrit, msg, kv) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.write(LvlError, msg, kv) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.write(LvlWarn, msg, kv) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.write(LvlInfo, msg, kv) }
func (l *Logger) Debug(msg string, kv ...interface{}) { l.write(LvlDebug, msg, kv) }
func (l *Logger) Trace(msg string, kv ...interface{}) { l.write(LvlTrace, msg, kv) }

// Package-level helpers delegate to the root logger, matching the call-site
// convention (log.Info("msg", "k", v)) used throughout the surrounding node.
func Crit(msg string, kv ...interface{})  { root.Crit(msg, kv...) }
func Error(msg string, kv ...interface{}) { root.Error(msg, kv...) }
func Warn(msg string, kv ...interface{})  { root.Warn(msg, kv...) }
func Info(msg string, kv ...interface{})  { root.Info(msg, kv...) }
func Debug(msg string, kv ...interface{}) { root.Debug(msg, kv...) }
func Trace(msg string, kv ...interface{}) { root.Trace(msg, kv...) }

// SetLevel adjusts the root logger's level.
func SetLevel(lvl Lvl) { root.SetLevel(lvl) }
