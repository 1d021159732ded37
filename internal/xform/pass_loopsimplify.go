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
)

// LoopSimplify gives every loop a canonical preheader: a block outside the
// loop whose only successor is the header, and which is the only
// predecessor of the header from outside the loop.
//
// The new block takes over every edge entering the header from outside.
// Header phis get a single incoming value from it, merged through a new phi
// in the preheader when the outside values differ. A loop headed by the
// entry block gets a new entry block.
type LoopSimplify struct {
    Sink diag.Sink
}

func (self LoopSimplify) Apply(fn *ir.Func) (bool, error) {
    changed := false
    sink := diag.OrDiscard(self.Sink)

    /* one loop at a time, the forest changes with the graph */
    for {
        var loop *ir.Loop
        for _, l := range ir.FindLoops(fn).PostOrder() {
            if l.Preheader() == nil {
                loop = l
                break
            }
        }

        /* all the loops are in canonical form */
        if loop == nil {
            return changed, nil
        }

        /* insert the preheader */
        pre := insertPreheader(fn, loop)
        atomic.AddUint64(&PreheaderCount, 1)
        changed = true

        /* report the new block */
        sink.Emit(diag.Record {
            Pass    : "simplify",
            Event   : "preheader",
            Message : "Inserted preheader ." + pre.Name,
            Fields  : diag.Fields { "loop": loop.Header.Name },
        })
    }
}

func insertPreheader(fn *ir.Func, loop *ir.Loop) *ir.BasicBlock {
    h := loop.Header
    outs := loop.OutsidePreds()
    from := mapset.NewThreadUnsafeSet[*ir.BasicBlock](outs...)

    /* place the new block right before the header */
    pre := fn.CreateBlock(fn.Fresh(h.Name + ".preheader"))
    fn.MoveBlockBefore(pre, h)
    bd := ir.NewBuilder(fn).SetBlock(pre)

    /* patch the Phi nodes */
    for _, phi := range h.Phis() {
        var vals []ir.Value
        var srcs []*ir.BasicBlock

        /* collect the values flowing in from outside */
        for i, bb := range phi.Incoming {
            if from.Contains(bb) {
                vals = append(vals, phi.Operand(i))
                srcs = append(srcs, bb)
            }
        }

        /* nothing comes from outside */
        if len(vals) == 0 {
            continue
        }

        /* merge them if they differ */
        v := vals[0]
        for _, w := range vals[1:] {
            if w != v {
                v = mergeIncoming(bd, phi, vals, srcs)
                break
            }
        }

        /* the header now sees a single outside edge */
        phi.RemoveIncoming(func(bb *ir.BasicBlock) bool { return from.Contains(bb) })
        bd.AddIncoming(phi, v, pre)
    }

    /* retarget every outside edge, then link the preheader */
    for _, bb := range outs {
        bb.ReplaceTarget(h, pre)
    }

    /* fall into the header */
    bd.Jump(h)
    fn.Rebuild()
    return pre
}

func mergeIncoming(bd *ir.Builder, phi *ir.Instr, vals []ir.Value, srcs []*ir.BasicBlock) *ir.Instr {
    np := bd.Phi("", phi.Type())
    for i, v := range vals {
        bd.AddIncoming(np, v, srcs[i])
    }
    return np
}
