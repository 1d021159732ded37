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

// Builder creates instructions at an insertion point: either the end of a
// block, or right before an existing instruction.
type Builder struct {
    fn     *Func
    bb     *BasicBlock
    before *Instr
}

func NewBuilder(fn *Func) *Builder {
    return &Builder{fn: fn}
}

func (self *Builder) Func() *Func {
    return self.fn
}

func (self *Builder) Block() *BasicBlock {
    return self.bb
}

// SetBlock moves the insertion point to the end of bb.
func (self *Builder) SetBlock(bb *BasicBlock) *Builder {
    self.bb = bb
    self.before = nil
    return self
}

// SetInsertBefore moves the insertion point right before p. Instructions
// created afterwards keep their creation order, all before p.
func (self *Builder) SetInsertBefore(p *Instr) *Builder {
    if p.Block == nil {
        panic("ir: insertion point is not attached to a block: " + p.String())
    }
    self.bb = p.Block
    self.before = p
    return self
}

func (self *Builder) insert(p *Instr) *Instr {
    if self.bb == nil {
        panic("ir: builder has no insertion point")
    }

    /* phi nodes always go to the head of the block */
    if p.Op == OpPhi {
        self.bb.Insert(len(self.bb.Phis()), p)
        return p
    }

    /* insert before the marker, or append */
    if self.before == nil {
        self.bb.Append(p)
    } else if i := self.bb.Index(self.before); i < 0 {
        panic("ir: insertion point left its block: " + self.before.String())
    } else {
        self.bb.Insert(i, p)
    }
    return p
}

func (self *Builder) create(op Op, dest string, ty Type, args []Value) *Instr {
    if n := op.Arity(); n >= 0 && n != len(args) {
        panic(fmt.Sprintf("ir: %s takes %d operands, got %d", op, n, len(args)))
    }

    /* allocate a name for value-producing instructions */
    if ty != Void && dest == "" {
        dest = self.fn.Fresh("v")
    } else if dest != "" {
        self.fn.Reserve(dest)
    }

    /* build the instruction */
    p := &Instr {
        Id   : self.fn.allocId(),
        Op   : op,
        Dest : dest,
        Ty   : ty,
    }

    /* link the operands */
    for _, v := range args {
        p.appendOperand(v)
    }
    return p
}

// Emit creates and inserts an arbitrary non-terminator instruction.
// Instructions with a non-void type always get a destination name.
func (self *Builder) Emit(op Op, dest string, ty Type, args ...Value) *Instr {
    if op.IsTerminator() {
        panic("ir: use Jump, Branch or Return to emit terminators")
    }
    return self.insert(self.create(op, dest, ty, args))
}

func (self *Builder) Const(dest string, v int64) *Instr {
    p := self.create(OpConst, dest, Int, nil)
    p.Aux = v
    return self.insert(p)
}

func (self *Builder) ConstBool(dest string, v bool) *Instr {
    p := self.create(OpConst, dest, Bool, nil)
    if v { p.Aux = 1 }
    return self.insert(p)
}

// Binary emits a two-operand instruction, typed by the op.
func (self *Builder) Binary(op Op, dest string, x Value, y Value) *Instr {
    if !op.IsBinary() {
        panic("ir: not a binary op: " + op.String())
    } else if op.IsArith() {
        return self.Emit(op, dest, Int, x, y)
    } else {
        return self.Emit(op, dest, Bool, x, y)
    }
}

func (self *Builder) Add(dest string, x Value, y Value) *Instr { return self.Binary(OpAdd, dest, x, y) }
func (self *Builder) Sub(dest string, x Value, y Value) *Instr { return self.Binary(OpSub, dest, x, y) }
func (self *Builder) Mul(dest string, x Value, y Value) *Instr { return self.Binary(OpMul, dest, x, y) }
func (self *Builder) Div(dest string, x Value, y Value) *Instr { return self.Binary(OpDiv, dest, x, y) }
func (self *Builder) Lt(dest string, x Value, y Value)  *Instr { return self.Binary(OpLt, dest, x, y) }

// Phi emits an empty phi at the head of the current block. Sources are
// added with AddIncoming.
func (self *Builder) Phi(dest string, ty Type) *Instr {
    return self.insert(self.create(OpPhi, dest, ty, nil))
}

// AddIncoming adds the value v flowing into phi from block from.
func (self *Builder) AddIncoming(phi *Instr, v Value, from *BasicBlock) {
    if phi.Op != OpPhi {
        panic("ir: not a phi: " + phi.String())
    }
    phi.appendOperand(v)
    phi.Incoming = append(phi.Incoming, from)
}

func (self *Builder) Call(dest string, ty Type, callee string, args ...Value) *Instr {
    p := self.create(OpCall, dest, ty, args)
    p.Callee = callee
    return self.insert(p)
}

func (self *Builder) Print(args ...Value) *Instr {
    return self.Emit(OpPrint, "", Void, args...)
}

func (self *Builder) terminate(p *Instr, succs ...*BasicBlock) *Instr {
    if self.bb == nil {
        panic("ir: builder has no insertion point")
    }

    /* attach the terminator */
    rebuild := self.bb.Term != nil
    p.Targets = succs
    self.bb.SetTerm(p)

    /* update predecessors */
    if rebuild {
        self.fn.Rebuild()
    } else {
        seen := make(map[*BasicBlock]bool, len(succs))
        for _, to := range succs {
            if !seen[to] {
                seen[to] = true
                to.Pred = append(to.Pred, self.bb)
            }
        }
    }
    return p
}

func (self *Builder) Jump(to *BasicBlock) *Instr {
    return self.terminate(self.create(OpJump, "", Void, nil), to)
}

func (self *Builder) Branch(cond Value, t *BasicBlock, f *BasicBlock) *Instr {
    return self.terminate(self.create(OpBranch, "", Void, []Value { cond }), t, f)
}

// Return ends the block, returning v unless it is nil.
func (self *Builder) Return(v Value) *Instr {
    if v == nil {
        return self.terminate(self.create(OpReturn, "", Void, nil))
    } else {
        return self.terminate(self.create(OpReturn, "", Void, []Value { v }))
    }
}
