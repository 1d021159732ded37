/*
 * Copyright 2022 CloudWeGo Authors
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

// Package diag carries the advisory progress records emitted by the
// transformations. Sinks are fire-and-forget: a record that cannot be
// written is dropped.
package diag

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Fields are the structured attributes of a record.
type Fields map[string]interface{}

// Record is one diagnostic event.
type Record struct {
	Pass    string
	Event   string
	Message string
	Fields  Fields
}

func (r Record) String() string {
	if len(r.Fields) == 0 {
		return fmt.Sprintf("[%s] %s", r.Pass, r.Message)
	}

	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kv := make([]string, 0, len(keys))
	for _, k := range keys {
		kv = append(kv, fmt.Sprintf("%s=%v", k, r.Fields[k]))
	}
	return fmt.Sprintf("[%s] %s (%s)", r.Pass, r.Message, strings.Join(kv, " "))
}

// Sink receives diagnostic records.
type Sink interface {
	Emit(r Record)
}

type discard struct{}

func (discard) Emit(Record) {}

// Discard drops every record.
var Discard Sink = discard{}

type loggerSink struct {
	log   logrus.FieldLogger
	level logrus.Level
}

// Logger emits every record as a logrus entry at the given level, with
// "pass" and "event" fields plus the record fields.
func Logger(log logrus.FieldLogger, level logrus.Level) Sink {
	return &loggerSink{log: log, level: level}
}

func (s *loggerSink) Emit(r Record) {
	fields := logrus.Fields{
		"pass":  r.Pass,
		"event": r.Event,
	}
	for k, v := range r.Fields {
		fields[k] = v
	}

	entry := s.log.WithFields(fields)
	switch s.level {
	case logrus.TraceLevel, logrus.DebugLevel:
		entry.Debug(r.Message)
	case logrus.WarnLevel:
		entry.Warn(r.Message)
	default:
		entry.Info(r.Message)
	}
}

type writerSink struct {
	mu sync.Mutex
	w  io.Writer
}

// Writer emits every record as one line of plain text. Write errors are
// ignored.
func Writer(w io.Writer) Sink {
	return &writerSink{w: w}
}

func (s *writerSink) Emit(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.w, r.String()+"\n")
}

// Recorder keeps every record in memory.
type Recorder struct {
	mu      sync.Mutex
	Records []Record
}

func (s *Recorder) Emit(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Records = append(s.Records, r)
}

// Events returns the event names recorded so far, in order.
func (s *Recorder) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make([]string, 0, len(s.Records))
	for _, r := range s.Records {
		ret = append(ret, r.Event)
	}
	return ret
}

// Tee fans a record out to several sinks.
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}

type tee []Sink

func (t tee) Emit(r Record) {
	for _, s := range t {
		s.Emit(r)
	}
}

// OrDiscard returns s, or Discard when s is nil.
func OrDiscard(s Sink) Sink {
	if s == nil {
		return Discard
	}
	return s
}
