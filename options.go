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

package rewire

import (
	"fmt"
	"io"

	"github.com/cloudwego/rewire/internal/diag"
	"github.com/cloudwego/rewire/internal/opts"
	"github.com/cloudwego/rewire/internal/xform"
	"github.com/sirupsen/logrus"
)

// Option is the property setter function for opts.Options.
type Option func(*opts.Options)

type (
	// Sink receives the diagnostic records emitted by the passes. Emitting is
	// fire-and-forget: a sink that cannot deliver a record drops it.
	Sink = diag.Sink

	// Record is one diagnostic record.
	Record = diag.Record

	// Fields are the structured attributes of a Record.
	Fields = diag.Fields
)

// LogSink emits every record through log at the given level.
func LogSink(log logrus.FieldLogger, level logrus.Level) Sink {
	return diag.Logger(log, level)
}

// WriterSink emits every record as a line of text to w.
func WriterSink(w io.Writer) Sink {
	return diag.Writer(w)
}

// WithVerify checks use-list consistency before and after every pass.
//
// The default value of this option is "true", or the value of the
// REWIRE_VERIFY environment variable.
func WithVerify(v bool) Option {
	return func(o *opts.Options) { o.Verify = v }
}

// WithLoopSimplify inserts canonical preheaders before loop-invariant code
// motion runs, so loops entered from several places can be optimized too.
//
// The default value of this option is "false", or the value of the
// REWIRE_LOOP_SIMPLIFY environment variable.
func WithLoopSimplify(v bool) Option {
	return func(o *opts.Options) { o.LoopSimplify = v }
}

// WithSkipNoPreheader makes loop-invariant code motion skip loops without a
// canonical preheader instead of failing.
func WithSkipNoPreheader(v bool) Option {
	return func(o *opts.Options) { o.SkipNoPreheader = v }
}

// WithSink sets where diagnostic records go. A nil sink drops them.
func WithSink(s Sink) Option {
	return func(o *opts.Options) { o.Sink = diag.OrDiscard(s) }
}

// WithPasses sets the passes run by Optimize, in order.
//
// The default pipeline is "divmul,licm", or the value of the REWIRE_PASSES
// environment variable.
func WithPasses(names ...string) Option {
	for _, name := range names {
		if _, ok := xform.Lookup(name); !ok {
			panic(fmt.Sprintf("rewire: unknown pass: %q", name))
		}
	}
	return func(o *opts.Options) { o.Passes = append([]string(nil), names...) }
}

func buildOptions(options []Option) opts.Options {
	o := opts.GetDefaultOptions()
	for _, fn := range options {
		fn(&o)
	}
	return o
}
