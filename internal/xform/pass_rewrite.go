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
    `github.com/pkg/errors`
)

// Policy decides what the rewrite pass does after a successful rewrite.
type Policy uint8

const (
    // Exhaustive visits every instruction of the function exactly once.
    Exhaustive Policy = iota

    // FirstMatch stops right after the first rewrite.
    FirstMatch
)

func (self Policy) String() string {
    switch self {
        case Exhaustive : return "exhaustive"
        case FirstMatch : return "first-match"
        default         : return fmt.Sprintf("Policy(%d)", uint8(self))
    }
}

// Pattern selects instructions to replace and builds their replacement.
//
// Synthesize is called with the builder positioned right before the matched
// instruction. It must only create new instructions, and must reject
// instructions Match does not accept with a *ir.PreconditionViolation.
type Pattern interface {
    Match(p *ir.Instr) bool
    Synthesize(b *ir.Builder, p *ir.Instr) (ir.Value, error)
}

// Rewrite replaces the value of every matched instruction with a synthesized
// one by redirecting its consumers. The matched instruction itself stays in
// its block, unused.
type Rewrite struct {
    Name    string
    Pattern Pattern
    Policy  Policy
    Sink    diag.Sink
}

func (self Rewrite) describe() string {
    if s, ok := self.Pattern.(fmt.Stringer); ok {
        return s.String()
    } else {
        return self.Name
    }
}

// Run walks every block over a snapshot of its instructions, so the
// instructions inserted by the synthesizer are never visited. Instructions
// that have no consumers are skipped: there is nothing to redirect, which
// also makes a second exhaustive run a no-op.
func (self Rewrite) Run(fn *ir.Func) (bool, error) {
    changed := false
    sink := diag.OrDiscard(self.Sink)
    bd := ir.NewBuilder(fn)

    /* scan every block */
    for _, bb := range fn.Blocks {
        ins := make([]*ir.Instr, len(bb.Ins))
        copy(ins, bb.Ins)

        /* check every instruction of the snapshot */
        for _, p := range ins {
            if p.Block != bb || !self.Pattern.Match(p) || len(p.Uses()) == 0 {
                continue
            }

            /* build the replacement right before the match */
            v, err := self.Pattern.Synthesize(bd.SetInsertBefore(p), p)
            if err != nil {
                return changed, errors.Wrapf(err, "%s: synthesize %s", self.Name, p.Name())
            } else if v == nil {
                return changed, mismatch(self.Name, p, "synthesizer produced no value")
            }

            /* report the match */
            sink.Emit(diag.Record {
                Pass    : self.Name,
                Event   : "match",
                Message : fmt.Sprintf("Found %s Instruction!", self.describe()),
                Fields  : diag.Fields {
                    "block" : bb.Name,
                    "from"  : p.String(),
                    "to"    : v.String(),
                },
            })

            /* move every consumer over */
            if err = ir.Redirect(p, v); err != nil {
                return changed, errors.Wrapf(err, "%s: redirect %s", self.Name, p.Name())
            }

            /* stop after the first one if needed */
            changed = true
            atomic.AddUint64(&RewriteCount, 1)
            if self.Policy == FirstMatch {
                return true, nil
            }
        }
    }
    return changed, nil
}

func (self Rewrite) Apply(fn *ir.Func) (bool, error) {
    return self.Run(fn)
}
