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

// Redirect points every operand slot currently reading old at nv instead.
// The use-list of old is snapshotted first, so callers may hold their own
// copy of it across the call. old is left in place even when it ends up
// unused.
//
// Every recorded use is checked before any slot is touched: either all of
// them move or none does. Only the recorded uses are checked. A slot reading
// old that is missing from its use-list is not found here, Verify finds it.
//
// nv may not read old itself unless it is a phi, the result would be an
// instruction depending on its own value.
func Redirect(old Value, nv Value) error {
    if old == nil || nv == nil {
        return &PreconditionViolation {
            Pass   : "redirect",
            Reason : "nil value",
        }
    }

    /* redirecting to itself changes nothing */
    if old == nv {
        return nil
    }

    /* both sides must agree on the result type */
    if old.Type() != Void && nv.Type() != Void && old.Type() != nv.Type() {
        return &PreconditionViolation {
            Pass   : "redirect",
            Instr  : old.Name(),
            Reason : "replacement " + nv.Name() + " has type " + nv.Type().String() + ", want " + old.Type().String(),
        }
    }

    /* Phase 1: validate the snapshot */
    uses := old.Uses()
    for _, u := range uses {
        if u.User == nil {
            return &InvariantViolation {
                Value  : old.Name(),
                Index  : u.Index,
                Reason : "use without a user",
            }
        }
        if u.Index < 0 || u.Index >= len(u.User.args) {
            return violation(old, u, "operand index out of range")
        }
        if u.User.args[u.Index] != old {
            return violation(old, u, "operand slot does not reference the value")
        }
        if old.uselist().count(u) != 1 {
            return violation(old, u, "use recorded more than once")
        }
        if Value(u.User) == nv && u.User.Op != OpPhi {
            return &PreconditionViolation {
                Pass   : "redirect",
                Instr  : old.Name(),
                Reason : "replacement " + nv.Name() + " reads the value it replaces",
            }
        }
    }

    /* Phase 2: move every slot */
    for _, u := range uses {
        u.User.SetOperand(u.Index, nv)
    }

    /* nothing may be left behind */
    if rem := old.uselist().uses; len(rem) != 0 {
        return violation(old, rem[0], "use survived redirection")
    }
    return nil
}

// Remove deletes an unused instruction from its block and releases the
// slots it reads.
func Remove(p *Instr) error {
    if n := len(p.uses); n != 0 {
        return &PreconditionViolation {
            Pass   : "remove",
            Instr  : p.String(),
            Reason : "instruction is still used",
        }
    }

    /* unlink the operands */
    p.dropOperands()
    bb := p.Block

    /* detach from the block */
    if bb == nil {
        return nil
    } else if bb.Term == p {
        bb.Term, p.Block = nil, nil
        return nil
    } else if !bb.Detach(p) {
        return &InvariantViolation {
            Value  : p.Name(),
            User   : bb.Name,
            Index  : -1,
            Reason : "instruction is not listed in its block",
        }
    } else {
        return nil
    }
}

// Move relocates p to position i of block bb. Its identity, operands and
// uses are unchanged.
func Move(p *Instr, bb *BasicBlock, i int) {
    if p.Block != nil {
        p.Block.Detach(p)
    }
    bb.Insert(i, p)
}
