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

import (
    `fmt`
)

type BasicBlock struct {
    Id   int
    Name string
    Ins  []*Instr
    Term *Instr
    Pred []*BasicBlock
    Func *Func
}

func (self *BasicBlock) String() string {
    return fmt.Sprintf("bb_%d(.%s)", self.Id, self.Name)
}

// Succs returns the successors named by the terminator.
func (self *BasicBlock) Succs() []*BasicBlock {
    if self.Term == nil {
        return nil
    } else {
        return self.Term.Targets
    }
}

// Index returns the position of p in the block, or -1.
func (self *BasicBlock) Index(p *Instr) int {
    for i, v := range self.Ins {
        if v == p {
            return i
        }
    }
    return -1
}

// Insert places p at position i of the block.
func (self *BasicBlock) Insert(i int, p *Instr) {
    if p.Op.IsTerminator() {
        panic("ir: terminator inserted as an ordinary instruction: " + p.String())
    }

    /* allocate one slot and shift the tail */
    self.Ins = append(self.Ins, nil)
    copy(self.Ins[i + 1:], self.Ins[i:])

    /* attach the instruction */
    p.Block = self
    self.Ins[i] = p
}

// Append places p at the end of the block, before the terminator.
func (self *BasicBlock) Append(p *Instr) {
    self.Insert(len(self.Ins), p)
}

// Detach removes p from the block without touching its operands or uses.
// It reports whether p was found.
func (self *BasicBlock) Detach(p *Instr) bool {
    if i := self.Index(p); i < 0 {
        return false
    } else {
        self.Ins = append(self.Ins[:i], self.Ins[i + 1:]...)
        p.Block = nil
        return true
    }
}

// SetTerm replaces the block terminator. The previous terminator, if any,
// releases its operands.
func (self *BasicBlock) SetTerm(p *Instr) {
    if !p.Op.IsTerminator() {
        panic("ir: not a terminator: " + p.String())
    }

    /* release the old terminator */
    if self.Term != nil {
        self.Term.dropOperands()
        self.Term.Block = nil
    }

    /* attach the new one */
    p.Block = self
    self.Term = p
}

// Phis returns the leading phi instructions of the block.
func (self *BasicBlock) Phis() []*Instr {
    n := 0
    for n < len(self.Ins) && self.Ins[n].Op == OpPhi { n++ }
    return self.Ins[:n]
}

// ReplaceTarget rewrites every edge from the block to old so it goes to nb.
func (self *BasicBlock) ReplaceTarget(old *BasicBlock, nb *BasicBlock) {
    if self.Term != nil {
        for i, bb := range self.Term.Targets {
            if bb == old {
                self.Term.Targets[i] = nb
            }
        }
    }
}
