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

// Package rewire performs local, verifiable rewrites over a use-def graph of
// basic blocks: pattern-triggered instruction replacement with use rewiring,
// and loop-invariant code motion driven to a fixpoint.
//
// Every entry point reports whether it changed anything. Progress records go
// to the sink set with WithSink. With verification on, which is the default,
// use-list consistency is checked before and after each transformation.
package rewire

import (
	"github.com/cloudwego/rewire/internal/xform"
	"github.com/cloudwego/rewire/ir"
	"github.com/pkg/errors"
)

// Policy decides whether a rewrite continues after its first match.
type Policy = xform.Policy

const (
	Exhaustive = xform.Exhaustive
	FirstMatch = xform.FirstMatch
)

type (
	// Pattern selects instructions to replace and builds their replacement.
	Pattern = xform.Pattern

	// Matcher builds a Pattern from a predicate and a synthesizer.
	Matcher = xform.Matcher

	// DivToMul replaces integer divisions with multiplications.
	DivToMul = xform.DivToMul

	// BinaryToMul replaces arithmetic other than mul with multiplications.
	BinaryToMul = xform.BinaryToMul

	// Hoist records one instruction moved out of a loop.
	Hoist = xform.Hoist

	// LoopRecord is the size of one loop of a loop nest.
	LoopRecord = xform.LoopRecord
)

// Redirect points every operand slot reading old at nv instead. old stays
// where it is, even when it ends up unused.
//
// ir.Redirect only checks the uses old has recorded. With verification on,
// the function holding old or nv is checked as a whole before and after, so
// slots missing from a use-list are reported too.
func Redirect(old ir.Value, nv ir.Value, options ...Option) error {
	o := buildOptions(options)
	fn := owner(old, nv)
	if fn == nil {
		return ir.Redirect(old, nv)
	}
	_, err := verified(fn, o.Verify, "redirect", func() (bool, error) {
		return true, ir.Redirect(old, nv)
	})
	return err
}

func owner(vals ...ir.Value) *ir.Func {
	for _, v := range vals {
		if p, ok := v.(*ir.Instr); ok && p.Block != nil {
			return p.Block.Func
		}
	}
	return nil
}

func verified(fn *ir.Func, verify bool, what string, action func() (bool, error)) (bool, error) {
	if verify {
		if err := ir.Verify(fn); err != nil {
			return false, errors.Wrapf(err, "function %s: before %s", fn.Name, what)
		}
	}

	/* run the transformation */
	changed, err := action()
	if err != nil || !verify {
		return changed, err
	}

	/* the output must be consistent as well */
	if err = ir.Verify(fn); err != nil {
		return changed, errors.Wrapf(err, "function %s: after %s", fn.Name, what)
	}
	return changed, nil
}

// RewriteFunc redirects the consumers of the instructions of fn matched by
// pattern to the values it synthesizes, following policy.
func RewriteFunc(fn *ir.Func, pattern Pattern, policy Policy, options ...Option) (bool, error) {
	o := buildOptions(options)
	pass := xform.Rewrite{
		Name:    "rewrite",
		Pattern: pattern,
		Policy:  policy,
		Sink:    o.Sink,
	}
	return verified(fn, o.Verify, "rewrite", func() (bool, error) {
		return pass.Run(fn)
	})
}

// HoistLoop moves the invariant instructions of loop to its preheader, until
// none is left. The loop must have a canonical preheader, otherwise a
// *StructuralPrecondition is returned and nothing changes.
func HoistLoop(loop *ir.Loop, options ...Option) (bool, error) {
	o := buildOptions(options)
	pass := xform.LICM{Sink: o.Sink}
	return verified(loop.Header.Func, o.Verify, "licm", func() (bool, error) {
		return pass.Run(loop)
	})
}

// HoistFunc runs HoistLoop over every loop of fn, inner loops first. With
// WithLoopSimplify, missing preheaders are inserted first.
func HoistFunc(fn *ir.Func, options ...Option) (bool, error) {
	o := buildOptions(options)
	return verified(fn, o.Verify, "licm", func() (bool, error) {
		changed := false

		/* canonical preheaders first */
		if o.LoopSimplify {
			ok, err := xform.LoopSimplify{Sink: o.Sink}.Apply(fn)
			if err != nil {
				return ok, err
			}
			changed = ok
		}

		/* then the fixpoint */
		ok, err := xform.LICM{Sink: o.Sink, SkipNoPreheader: o.SkipNoPreheader}.Apply(fn)
		return changed || ok, err
	})
}

// ReportLoops lists the loops of fn depth-first, with their nesting depth
// starting at 0 and their number of blocks.
func ReportLoops(fn *ir.Func, options ...Option) []LoopRecord {
	o := buildOptions(options)
	return xform.ReportLoops(ir.FindLoops(fn), o.Sink)
}

// Optimize runs the configured pipeline over fn.
func Optimize(fn *ir.Func, options ...Option) (bool, error) {
	o := buildOptions(options)
	return xform.Run(fn, &o)
}
