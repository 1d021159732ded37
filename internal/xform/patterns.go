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
    `github.com/cloudwego/rewire/ir`
)

// DivToMul turns every integer division into a multiplication of the same
// operands.
type DivToMul struct{}

func (DivToMul) String() string {
    return "Integer Division"
}

func (DivToMul) Match(p *ir.Instr) bool {
    return p.Op == ir.OpDiv
}

func (self DivToMul) Synthesize(b *ir.Builder, p *ir.Instr) (ir.Value, error) {
    if !self.Match(p) {
        return nil, mismatch("divmul", p, "not an integer division")
    } else {
        return b.Mul("", p.Operand(0), p.Operand(1)), nil
    }
}

// BinaryToMul turns an integer arithmetic instruction other than mul into a
// multiplication of the same operands.
type BinaryToMul struct{}

func (BinaryToMul) String() string {
    return "Binary Arithmetic"
}

func (BinaryToMul) Match(p *ir.Instr) bool {
    return p.Op.IsArith() && p.Op != ir.OpMul
}

func (self BinaryToMul) Synthesize(b *ir.Builder, p *ir.Instr) (ir.Value, error) {
    if !self.Match(p) {
        return nil, mismatch("binmul", p, "not a binary arithmetic instruction other than mul")
    } else {
        return b.Mul("", p.Operand(0), p.Operand(1)), nil
    }
}

// Matcher adapts a predicate and a synthesizer into a Pattern. The
// synthesizer is only called on instructions Pred accepts.
type Matcher struct {
    Desc  string
    Pred  func(p *ir.Instr) bool
    Synth func(b *ir.Builder, p *ir.Instr) (ir.Value, error)
}

func (self Matcher) String() string {
    return self.Desc
}

func (self Matcher) Match(p *ir.Instr) bool {
    return self.Pred(p)
}

func (self Matcher) Synthesize(b *ir.Builder, p *ir.Instr) (ir.Value, error) {
    if !self.Pred(p) {
        return nil, mismatch(self.Desc, p, "instruction does not match")
    } else {
        return self.Synth(b, p)
    }
}

func mismatch(pass string, p *ir.Instr, reason string) error {
    return &ir.PreconditionViolation {
        Pass   : pass,
        Instr  : p.String(),
        Reason : reason,
    }
}
