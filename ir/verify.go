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

package ir

// Verify checks that every operand slot of fn and every use-list entry of
// the values defined in fn agree with each other: slot (I, k) reads V iff
// {I, k} is recorded exactly once in V's use-list.
func Verify(fn *Func) error {
    var vals []Value
    defs := make(map[Value]bool)
    blocks := make(map[*BasicBlock]bool, len(fn.Blocks))

    /* collect all the values defined by the function */
    for _, p := range fn.Params {
        defs[p] = true
        vals = append(vals, p)
    }

    /* check block membership on the way */
    for _, bb := range fn.Blocks {
        blocks[bb] = true
        for _, p := range bb.Ins {
            if p.Block != bb {
                return &InvariantViolation {
                    Value  : p.Name(),
                    User   : bb.Name,
                    Index  : -1,
                    Reason : "instruction does not belong to the block listing it",
                }
            }
            defs[p] = true
            vals = append(vals, p)
        }
        if bb.Term != nil && bb.Term.Block != bb {
            return &InvariantViolation {
                Value  : bb.Term.Name(),
                User   : bb.Name,
                Index  : -1,
                Reason : "terminator does not belong to the block listing it",
            }
        }
    }

    /* Phase 1: every slot is recorded exactly once */
    var err error
    fn.ForEach(func(p *Instr) {
        for i := 0; err == nil && i < len(p.args); i++ {
            v := p.args[i]
            u := Use { User: p, Index: i }

            /* check the slot */
            if v == nil {
                err = &InvariantViolation { Value: "<nil>", User: p.Name(), Index: i, Reason: "empty operand slot" }
            } else if !defs[v] {
                err = violation(v, u, "operand is not defined in function " + fn.Name)
            } else if n := v.uselist().count(u); n != 1 {
                err = violation(v, u, "operand slot is not recorded exactly once in the use-list")
            }
        }
    })

    /* check for errors */
    if err != nil {
        return err
    }

    /* Phase 2: every recorded use is a live slot */
    for _, v := range vals {
        for _, u := range v.uselist().uses {
            if u.User == nil {
                return &InvariantViolation { Value: v.Name(), Index: u.Index, Reason: "use without a user" }
            }
            if u.User.Block == nil || !blocks[u.User.Block] {
                return violation(v, u, "use by an instruction outside the function")
            }
            if u.Index < 0 || u.Index >= len(u.User.args) || u.User.args[u.Index] != v {
                return violation(v, u, "use-list entry does not match the operand slot")
            }
        }
    }
    return nil
}
