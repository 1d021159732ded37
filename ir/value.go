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
    `strings`
)

// Value is anything an instruction can read through an operand slot.
// Values compare by identity.
type Value interface {
    fmt.Stringer
    Name() string
    Type() Type
    Uses() []Use
    uselist() *useList
}

// Use names one operand slot reading a Value.
type Use struct {
    User  *Instr
    Index int
}

func (self Use) String() string {
    return fmt.Sprintf("%s#%d", self.User.Name(), self.Index)
}

// useList is a non-owning index of the slots reading a value. It never keeps
// the value alive and never frees it.
type useList struct {
    uses []Use
}

func (self *useList) Uses() []Use {
    ret := make([]Use, len(self.uses))
    copy(ret, self.uses)
    return ret
}

func (self *useList) uselist() *useList {
    return self
}

func (self *useList) add(u Use) {
    self.uses = append(self.uses, u)
}

func (self *useList) remove(u Use) bool {
    for i, v := range self.uses {
        if v == u {
            copy(self.uses[i:], self.uses[i + 1:])
            self.uses = self.uses[:len(self.uses) - 1]
            return true
        }
    }
    return false
}

func (self *useList) count(u Use) (n int) {
    for _, v := range self.uses {
        if v == u {
            n++
        }
    }
    return
}

// Param is a function argument. It is defined before every block of the
// function, hence outside of every loop.
type Param struct {
    useList
    Id  int
    Var string
    Ty  Type
}

func (self *Param) Name() string { return self.Var }
func (self *Param) Type() Type   { return self.Ty }

func (self *Param) String() string {
    return fmt.Sprintf("%s: %s", self.Var, self.Ty)
}

// Forward stands for a value that is referenced before it is defined, such
// as a phi source coming from a back edge. Loaders redirect every use of it
// to the real definition once that exists. A Forward is never part of a
// function, so Verify rejects any slot still reading one.
type Forward struct {
    useList
    Var string
}

func NewForward(name string) *Forward {
    return &Forward { Var: name }
}

func (self *Forward) Name() string   { return self.Var }
func (self *Forward) Type() Type     { return Void }
func (self *Forward) String() string { return "forward " + self.Var }

// Instr is an instruction. When it produces a result it is also the Value
// holding that result.
type Instr struct {
    useList
    Id       int
    Op       Op
    Dest     string
    Ty       Type
    Aux      int64
    Callee   string
    Targets  []*BasicBlock
    Incoming []*BasicBlock
    Block    *BasicBlock
    args     []Value
}

func (self *Instr) Type() Type {
    return self.Ty
}

// Name returns the destination variable, or a synthetic name for
// instructions that produce nothing.
func (self *Instr) Name() string {
    if self.Dest != "" {
        return self.Dest
    } else {
        return fmt.Sprintf("_%s.%d", self.Op, self.Id)
    }
}

// HasResult reports whether the instruction defines a value.
func (self *Instr) HasResult() bool {
    return self.Dest != ""
}

func (self *Instr) NumOperands() int {
    return len(self.args)
}

func (self *Instr) Operand(i int) Value {
    return self.args[i]
}

// Operands returns a copy of the operand slots.
func (self *Instr) Operands() []Value {
    ret := make([]Value, len(self.args))
    copy(ret, self.args)
    return ret
}

// SetOperand points slot i at v, moving the Use from the old value's
// use-list to v's.
func (self *Instr) SetOperand(i int, v Value) {
    if v == nil {
        panic("ir: nil operand")
    }

    /* unlink from the previous value */
    u := Use { User: self, Index: i }
    if old := self.args[i]; old != nil {
        old.uselist().remove(u)
    }

    /* link to the new one */
    self.args[i] = v
    v.uselist().add(u)
}

// appendOperand adds a new trailing slot reading v.
func (self *Instr) appendOperand(v Value) {
    self.args = append(self.args, nil)
    self.SetOperand(len(self.args) - 1, v)
}

// dropOperands unlinks every slot of the instruction from the values it
// reads. The slots are left nil.
func (self *Instr) dropOperands() {
    for i, v := range self.args {
        if v != nil {
            v.uselist().remove(Use { User: self, Index: i })
            self.args[i] = nil
        }
    }
}

// RemoveIncoming drops every source of a phi flowing in from a block for
// which drop returns true. The remaining slots are renumbered.
func (self *Instr) RemoveIncoming(drop func(bb *BasicBlock) bool) {
    args := self.Operands()
    from := self.Incoming

    /* unlink everything first, the indices are about to change */
    self.dropOperands()
    self.args = self.args[:0]
    self.Incoming = nil

    /* relink the survivors */
    for i, v := range args {
        if !drop(from[i]) {
            self.appendOperand(v)
            self.Incoming = append(self.Incoming, from[i])
        }
    }
}

// IsTerminator reports whether the instruction ends its block.
func (self *Instr) IsTerminator() bool {
    return self.Op.IsTerminator()
}

func (self *Instr) String() string {
    var sb strings.Builder

    /* destination if any */
    if self.Dest != "" {
        sb.WriteString(self.Dest)
        if self.Ty != Void {
            sb.WriteString(": ")
            sb.WriteString(string(self.Ty))
        }
        sb.WriteString(" = ")
    }

    /* opcode and call target */
    sb.WriteString(self.Op.String())
    if self.Callee != "" {
        sb.WriteString(" @")
        sb.WriteString(self.Callee)
    }

    /* literal value */
    if self.Op == OpConst {
        if self.Ty == Bool {
            sb.WriteString(fmt.Sprintf(" %t", self.Aux != 0))
        } else {
            sb.WriteString(fmt.Sprintf(" %d", self.Aux))
        }
    }

    /* operands */
    for _, v := range self.args {
        if v == nil {
            sb.WriteString(" <nil>")
        } else {
            sb.WriteString(" ")
            sb.WriteString(v.Name())
        }
    }

    /* phi sources and branch targets */
    for _, bb := range self.Incoming { sb.WriteString(" ." + bb.Name) }
    for _, bb := range self.Targets  { sb.WriteString(" ." + bb.Name) }
    return sb.String()
}
