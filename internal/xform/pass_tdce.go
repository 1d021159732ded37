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

    `github.com/cloudwego/rewire/internal/diag`
    `github.com/cloudwego/rewire/ir`
    `github.com/deckarep/golang-set/v2`
    `github.com/pkg/errors`
)

// TDCE removes trivial dead-code such as unused pure definitions. Removing
// one instruction may leave its operands unused, so it runs until nothing
// changes.
type TDCE struct {
    Sink diag.Sink
}

func removable(p *ir.Instr) bool {
    return p.HasResult() && (p.Op == ir.OpPhi || p.Op.IsPure()) && len(p.Uses()) == 0
}

func (self TDCE) Apply(fn *ir.Func) (bool, error) {
    changed := false
    sink := diag.OrDiscard(self.Sink)

    /* repeat until stable */
    for {
        dead := mapset.NewThreadUnsafeSet[*ir.Instr]()

        /* Phase 1: Mark all the unused definitions */
        for _, bb := range fn.Blocks {
            for _, p := range bb.Ins {
                if removable(p) {
                    dead.Add(p)
                }
            }
        }

        /* no more modifications */
        if dead.Cardinality() == 0 {
            return changed, nil
        }

        /* Phase 2: Remove them, releasing their operands */
        for _, bb := range fn.Blocks {
            ins := make([]*ir.Instr, len(bb.Ins))
            copy(ins, bb.Ins)

            /* check every instruction of the snapshot */
            for _, p := range ins {
                if !dead.Contains(p) {
                    continue
                }

                /* report before it is gone */
                sink.Emit(diag.Record {
                    Pass    : "tdce",
                    Event   : "remove",
                    Message : "Removed dead instruction " + p.String(),
                    Fields  : diag.Fields { "block": bb.Name },
                })

                /* unlink it */
                if err := ir.Remove(p); err != nil {
                    return changed, errors.Wrapf(err, "tdce: function %s", fn.Name)
                }
                atomic.AddUint64(&RemoveCount, 1)
            }
        }

        /* go for another round */
        changed = true
    }
}
