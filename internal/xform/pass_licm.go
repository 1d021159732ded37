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
    `fmt`
    `sync/atomic`

    `github.com/cloudwego/rewire/internal/diag`
    `github.com/cloudwego/rewire/ir`
    `github.com/deckarep/golang-set/v2`
    `github.com/pkg/errors`
)

// Hoist records one instruction moved out of a loop.
type Hoist struct {
    Instr *ir.Instr
    From  *ir.BasicBlock
    Round int
}

func (self Hoist) String() string {
    return fmt.Sprintf("round %d: %s (from .%s)", self.Round, self.Instr, self.From.Name)
}

// LICM moves loop-invariant instructions into the loop preheader.
type LICM struct {
    Sink            diag.Sink
    SkipNoPreheader bool
}

// scan returns the first invariant instruction of the loop, in block order
// then instruction order.
func (self LICM) scan(loop *ir.Loop, hoisted mapset.Set[*ir.Instr]) *ir.Instr {
    for _, bb := range loop.Blocks {
        for _, p := range bb.Ins {
            if IsInvariant(p, loop, hoisted) {
                return p
            }
        }
    }
    return nil
}

// Hoist runs the fixpoint over one loop. Each round scans the loop from
// the top and stops at the first invariant instruction, which is moved to
// the end of the preheader before the next round starts over. A round that
// finds nothing ends the run. The hoists are returned in the order they
// happened.
//
// A loop without a canonical preheader is left untouched and reported as a
// *ir.StructuralPrecondition.
func (self LICM) Hoist(loop *ir.Loop) ([]Hoist, error) {
    var ret []Hoist
    sink := diag.OrDiscard(self.Sink)

    /* find out where to put the hoisted instructions */
    pre := loop.Preheader()
    if pre == nil {
        return nil, &ir.StructuralPrecondition {
            Loop   : loop.Header.Name,
            Reason : fmt.Sprintf("no canonical preheader (%d predecessors outside the loop)", len(loop.OutsidePreds())),
        }
    }

    /* restart the scan after every hoist */
    hoisted := mapset.NewThreadUnsafeSet[*ir.Instr]()
    for round := 1;; round++ {
        atomic.AddUint64(&RoundCount, 1)
        sink.Emit(diag.Record {
            Pass    : "licm",
            Event   : "round",
            Message : "Iteration begin......",
            Fields  : diag.Fields { "loop": loop.Header.Name, "round": round },
        })

        /* a clean scan ends the fixpoint */
        p := self.scan(loop, hoisted)
        if p == nil {
            return ret, nil
        }

        /* move it before the preheader terminator */
        from := p.Block
        ir.Move(p, pre, len(pre.Ins))
        hoisted.Add(p)
        ret = append(ret, Hoist { Instr: p, From: from, Round: round })
        atomic.AddUint64(&HoistCount, 1)

        /* report the hoist */
        sink.Emit(diag.Record {
            Pass    : "licm",
            Event   : "hoist",
            Message : "Found invariant " + p.String(),
            Fields  : diag.Fields { "loop": loop.Header.Name, "from": from.Name, "to": pre.Name },
        })
        sink.Emit(diag.Record {
            Pass    : "licm",
            Event   : "done",
            Message : "This Iteration is done!",
            Fields  : diag.Fields { "loop": loop.Header.Name, "round": round },
        })
    }
}

// Run is Hoist without the trace. It reports whether anything moved.
func (self LICM) Run(loop *ir.Loop) (bool, error) {
    hs, err := self.Hoist(loop)
    return len(hs) != 0, err
}

// Apply runs the fixpoint over every loop of fn, inner loops first, so an
// instruction hoisted into an inner preheader may leave the enclosing loop
// too. Hoisting never changes the control flow, so the loop forest is
// computed once.
func (self LICM) Apply(fn *ir.Func) (bool, error) {
    changed := false
    sink := diag.OrDiscard(self.Sink)

    /* visit the loops innermost first */
    for _, loop := range ir.FindLoops(fn).PostOrder() {
        ok, err := self.Run(loop)
        changed = changed || ok

        /* loops without a preheader may be skipped */
        var sp *ir.StructuralPrecondition
        if err == nil {
            continue
        } else if !self.SkipNoPreheader || !errors.As(err, &sp) {
            return changed, errors.Wrapf(err, "licm: function %s", fn.Name)
        }

        /* report the skipped loop */
        sink.Emit(diag.Record {
            Pass    : "licm",
            Event   : "skip",
            Message : "Loop skipped: " + sp.Reason,
            Fields  : diag.Fields { "loop": loop.Header.Name },
        })
    }
    return changed, nil
}
