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
    `testing`

    `github.com/stretchr/testify/require`
)

func TestFunc_String(t *testing.T) {
    fn, _ := straightLine()
    require.Equal(t, `@f(a: int, b: int): int {
.entry:
  x: int = div a b;
  y: int = add x x;
  print y x;
  ret y;
}`, fn.String())
}

func TestBuilder_Names(t *testing.T) {
    fn := NewFunc("g", Void)
    fn.AddParam("v.1", Int)
    b := NewBuilder(fn).SetBlock(fn.CreateBlock(""))
    c := b.Const("", 7)
    d := b.ConstBool("", true)
    require.Equal(t, "b.1", fn.Entry().Name)
    require.Equal(t, "v.2", c.Name())
    require.Equal(t, "v.3", d.Name())
    require.Equal(t, "v.2: int = const 7", c.String())
    require.Equal(t, "v.3: bool = const true", d.String())

    /* effects get a synthetic name */
    p := b.Print(c)
    require.False(t, p.HasResult())
    require.Equal(t, fmt.Sprintf("_print.%d", p.Id), p.Name())
}

func TestBuilder_InsertionPoint(t *testing.T) {
    fn, ins := straightLine()
    b := NewBuilder(fn).SetInsertBefore(ins["y"])
    m1 := b.Mul("m1", fn.Params[0], fn.Params[1])
    m2 := b.Mul("m2", m1, m1)
    require.Equal(t, []*Instr { ins["x"], m1, m2, ins["y"], ins["print"] }, fn.Entry().Ins)

    /* phis always land in front */
    phi := b.Phi("p", Int)
    require.Same(t, phi, fn.Entry().Ins[0])
    require.Equal(t, []*Instr { phi }, fn.Entry().Phis())
}

func TestBuilder_Arity(t *testing.T) {
    fn, _ := straightLine()
    b := NewBuilder(fn).SetBlock(fn.Entry())
    require.Panics(t, func() { b.Emit(OpAdd, "z", Int, fn.Params[0]) })
    require.Panics(t, func() { b.Emit(OpJump, "", Void) })
    require.Panics(t, func() { NewBuilder(fn).Const("k", 1) })
}

func TestFunc_Rebuild(t *testing.T) {
    fn := nested()
    inner := fn.Block("inner")
    require.Equal(t, []string { "outer", "body" }, names(inner.Pred))

    /* retarget the latch, then recompute */
    fn.Block("body").ReplaceTarget(inner, fn.Block("exit"))
    fn.Rebuild()
    require.Equal(t, []string { "outer" }, names(inner.Pred))
    require.Equal(t, []string { "outer", "body" }, names(fn.Block("exit").Pred))
}

func TestOp_Lookup(t *testing.T) {
    for _, name := range []string { "const", "div", "phi", "ptradd", "jmp", "br", "ret" } {
        op, ok := LookupOp(name)
        require.True(t, ok, name)
        require.Equal(t, name, op.String())
    }
    _, ok := LookupOp("speculate")
    require.False(t, ok)
    require.True(t, OpDiv.IsPure())
    require.False(t, OpCall.IsPure())
    require.True(t, OpBranch.IsTerminator())
    require.Equal(t, Type("ptr<int>"), Ptr(Int))
    require.Equal(t, "void", Void.String())
}

func TestFunc_MoveBlockBefore(t *testing.T) {
    fn := nested()
    fn.MoveBlockBefore(fn.Block("exit"), fn.Block("inner"))
    require.Equal(t, []string { "entry", "outer", "exit", "inner", "body" }, names(fn.Blocks))
    fn.MoveBlockBefore(fn.Block("body"), fn.Entry())
    require.Equal(t, "body", fn.Entry().Name)
    require.Len(t, fn.Blocks, 5)
}

func TestInstr_RemoveIncoming(t *testing.T) {
    fn := nested()
    i := fn.Lookup("i").(*Instr)
    zero := fn.Lookup("zero").(*Instr)
    i2 := fn.Lookup("i2").(*Instr)
    require.Equal(t, []Value { zero, i2 }, i.Operands())

    /* drop the entry edge, the back edge moves to slot 0 */
    i.RemoveIncoming(func(bb *BasicBlock) bool { return bb == fn.Entry() })
    require.Equal(t, []Value { i2 }, i.Operands())
    require.Equal(t, []string { "inner" }, names(i.Incoming))
    require.Equal(t, []Use { { User: i, Index: 0 } }, i2.Uses())
    require.NoError(t, Verify(fn))
}
