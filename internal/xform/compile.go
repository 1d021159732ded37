/*
 * Copyright 2022 ByteDance Inc.
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

package xform

import (
    `sync/atomic`

    `github.com/cloudwego/rewire/internal/opts`
    `github.com/cloudwego/rewire/ir`
    `github.com/pkg/errors`
)

// Pass is a transformation over a whole function. It reports whether the
// function changed.
type Pass interface {
    Apply(fn *ir.Func) (bool, error)
}

type PassDescriptor struct {
    Name string
    Desc string
    New  func(o *opts.Options) Pass
}

var Passes = [...]PassDescriptor {
    { Name: "divmul"   , Desc: "Integer Division Rewriting"  , New: newDivMul },
    { Name: "binmul"   , Desc: "Binary Arithmetic Rewriting" , New: newBinMul },
    { Name: "simplify" , Desc: "Preheader Insertion"         , New: newLoopSimplify },
    { Name: "licm"     , Desc: "Loop-Invariant Code Motion"  , New: newLICM },
    { Name: "tdce"     , Desc: "Trivial Dead-Code Removal"   , New: newTDCE },
    { Name: "loops"    , Desc: "Loop Nest Report"            , New: newLoopReport },
}

func newDivMul(o *opts.Options) Pass {
    return Rewrite { Name: "divmul", Pattern: DivToMul{}, Policy: Exhaustive, Sink: o.Sink }
}

func newBinMul(o *opts.Options) Pass {
    return Rewrite { Name: "binmul", Pattern: BinaryToMul{}, Policy: FirstMatch, Sink: o.Sink }
}

func newLoopSimplify(o *opts.Options) Pass { return LoopSimplify { Sink: o.Sink } }
func newTDCE(o *opts.Options) Pass         { return TDCE { Sink: o.Sink } }
func newLoopReport(o *opts.Options) Pass   { return LoopReport { Sink: o.Sink } }

func newLICM(o *opts.Options) Pass {
    return LICM { Sink: o.Sink, SkipNoPreheader: o.SkipNoPreheader }
}

// Lookup finds a pass by name.
func Lookup(name string) (PassDescriptor, bool) {
    for _, p := range Passes {
        if p.Name == name {
            return p, true
        }
    }
    return PassDescriptor{}, false
}

// Run executes the pipeline of o over fn, in order. With o.Verify, the
// use-lists are checked before the first pass and after every pass, and an
// inconsistency stops the pipeline.
func Run(fn *ir.Func, o *opts.Options) (bool, error) {
    var ps []PassDescriptor
    names := o.Pipeline()

    /* resolve every pass before running anything */
    for _, name := range names {
        if p, ok := Lookup(name); !ok {
            return false, errors.Errorf("unknown pass %q", name)
        } else {
            ps = append(ps, p)
        }
    }

    /* nothing to do */
    if len(ps) == 0 {
        return false, nil
    }

    /* the input must be consistent */
    if o.Verify {
        if err := ir.Verify(fn); err != nil {
            return false, errors.Wrapf(err, "function %s: before %s", fn.Name, names[0])
        }
    }

    /* run every pass */
    changed := false
    for _, p := range ps {
        ok, err := p.New(o).Apply(fn)
        changed = changed || ok
        atomic.AddUint64(&PassCount, 1)

        /* check for errors */
        if err != nil {
            return changed, errors.Wrapf(err, "function %s: %s", fn.Name, p.Desc)
        }

        /* the output must be consistent */
        if o.Verify {
            if err = ir.Verify(fn); err != nil {
                return changed, errors.Wrapf(err, "function %s: after %s", fn.Name, p.Desc)
            }
        }
    }
    return changed, nil
}
