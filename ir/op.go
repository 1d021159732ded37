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

type Op uint8

const (
    OpInvalid Op = iota
    OpConst
    OpId
    OpAdd
    OpSub
    OpMul
    OpDiv
    OpEq
    OpLt
    OpGt
    OpLe
    OpGe
    OpNot
    OpAnd
    OpOr
    OpPhi
    OpCall
    OpPrint
    OpNop
    OpAlloc
    OpFree
    OpStore
    OpLoad
    OpPtrAdd
    OpJump
    OpBranch
    OpReturn
)

var _OpNames = [...]string {
    OpInvalid : "<invalid>",
    OpConst   : "const",
    OpId      : "id",
    OpAdd     : "add",
    OpSub     : "sub",
    OpMul     : "mul",
    OpDiv     : "div",
    OpEq      : "eq",
    OpLt      : "lt",
    OpGt      : "gt",
    OpLe      : "le",
    OpGe      : "ge",
    OpNot     : "not",
    OpAnd     : "and",
    OpOr      : "or",
    OpPhi     : "phi",
    OpCall    : "call",
    OpPrint   : "print",
    OpNop     : "nop",
    OpAlloc   : "alloc",
    OpFree    : "free",
    OpStore   : "store",
    OpLoad    : "load",
    OpPtrAdd  : "ptradd",
    OpJump    : "jmp",
    OpBranch  : "br",
    OpReturn  : "ret",
}

var _OpByName = func() map[string]Op {
    ret := make(map[string]Op, len(_OpNames))
    for op, name := range _OpNames[1:] { ret[name] = Op(op + 1) }
    return ret
}()

// LookupOp resolves an opcode by its textual name.
func LookupOp(name string) (Op, bool) {
    op, ok := _OpByName[name]
    return op, ok
}

func (self Op) String() string {
    if int(self) < len(_OpNames) {
        return _OpNames[self]
    } else {
        return _OpNames[OpInvalid]
    }
}

// IsTerminator reports whether the op ends a basic block.
func (self Op) IsTerminator() bool {
    return self == OpJump || self == OpBranch || self == OpReturn
}

// IsBinary reports whether the op takes exactly two value operands and
// produces a result from them alone.
func (self Op) IsBinary() bool {
    switch self {
        case OpAdd, OpSub, OpMul, OpDiv : return true
        case OpEq, OpLt, OpGt, OpLe, OpGe : return true
        case OpAnd, OpOr : return true
        default : return false
    }
}

// IsArith reports whether the op is a binary integer arithmetic op.
func (self Op) IsArith() bool {
    return self == OpAdd || self == OpSub || self == OpMul || self == OpDiv
}

// IsPure reports whether the op has no effect beyond producing its result.
// Division is pure but may trap, callers that speculate must check the divisor.
func (self Op) IsPure() bool {
    switch self {
        case OpConst, OpId, OpNot, OpPtrAdd : return true
        default                             : return self.IsBinary()
    }
}

// Arity returns the exact operand count required by the op, or -1 when the
// count is variable.
func (self Op) Arity() int {
    switch {
        case self == OpConst, self == OpJump, self == OpNop, self == OpInvalid : return 0
        case self == OpId, self == OpNot, self == OpAlloc, self == OpFree     : return 1
        case self == OpLoad, self == OpBranch                                 : return 1
        case self == OpStore, self == OpPtrAdd, self.IsBinary()               : return 2
        default                                                               : return -1
    }
}

type Type string

const (
    Void Type = ""
    Int  Type = "int"
    Bool Type = "bool"
)

// Ptr returns the pointer type to t.
func Ptr(t Type) Type {
    return Type("ptr<" + string(t) + ">")
}

func (self Type) String() string {
    if self == Void {
        return "void"
    } else {
        return string(self)
    }
}
