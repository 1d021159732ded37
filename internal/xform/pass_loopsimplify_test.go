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
    `strings`
    `testing`

    `github.com/cloudwego/rewire/internal/diag`
    `github.com/cloudwego/rewire/ir`
    `github.com/stretchr/testify/require`
)

func TestLoopSimplify_MergesPhis(t *testing.T) {
    var rec diag.Recorder
    fn := twoEntries()
    changed, err := LoopSimplify { Sink: &rec }.Apply(fn)
    require.NoError(t, err)
    require.True(t, changed)
    require.Equal(t, []string { "preheader" }, rec.Events())

    /* the new block sits before the header */
    loop := ir.FindLoops(fn).Roots[0]
    pre := loop.Preheader()
    require.NotNil(t, pre)
    require.True(t, strings.HasPrefix(pre.Name, "header.preheader"))
    require.Equal(t, []string { "entry", "side", pre.Name, "header", "exit" }, names(fn.Blocks))
    require.Equal(t, []string { "entry", "side" }, names(pre.Pred))

    /* one and two are merged in the preheader */
    require.Len(t, pre.Ins, 1)
    m := pre.Ins[0]
    require.Equal(t, ir.OpPhi, m.Op)
    require.Equal(t, []ir.Value { fn.Lookup("one"), fn.Lookup("two") }, m.Operands())
    require.Equal(t, []string { "entry", "side" }, names(m.Incoming))

    /* the header phi sees the back edge and the preheader */
    k := instr(t, fn, "k")
    require.Equal(t, []ir.Value { fn.Lookup("k2"), m }, k.Operands())
    require.Equal(t, []string { "header", pre.Name }, names(k.Incoming))
    verify(t, fn)

    /* already canonical */
    changed, err = LoopSimplify{}.Apply(fn)
    require.NoError(t, err)
    require.False(t, changed)
}

func TestLoopSimplify_SameValue(t *testing.T) {
    fn := twoEntries()
    k := instr(t, fn, "k")
    two := instr(t, fn, "two")
    k.SetOperand(1, fn.Lookup("one"))
    require.NoError(t, ir.Remove(two))

    /* no merge needed */
    _, err := LoopSimplify{}.Apply(fn)
    require.NoError(t, err)
    pre := ir.FindLoops(fn).Roots[0].Preheader()
    require.Empty(t, pre.Ins)
    require.Equal(t, []ir.Value { fn.Lookup("k2"), fn.Lookup("one") }, k.Operands())
    verify(t, fn)
}

func TestLoopSimplify_EntryHeader(t *testing.T) {
    fn := ir.NewFunc("spin", ir.Int)
    p := fn.AddParam("p", ir.Int)
    q := fn.AddParam("q", ir.Int)
    entry := fn.CreateBlock("entry")
    exit := fn.CreateBlock("exit")
    b := ir.NewBuilder(fn).SetBlock(entry)
    x := b.Add("x", p, q)
    b.Branch(b.Lt("c", x, q), entry, exit)
    b.SetBlock(exit).Return(x)

    /* a new entry block is created */
    changed, err := LoopSimplify{}.Apply(fn)
    require.NoError(t, err)
    require.True(t, changed)
    require.NotSame(t, entry, fn.Entry())
    require.Same(t, fn.Entry(), ir.FindLoops(fn).Roots[0].Preheader())

    /* and LICM can use it */
    changed, err = LICM{}.Apply(fn)
    require.NoError(t, err)
    require.True(t, changed)
    require.Same(t, fn.Entry(), x.Block)
    verify(t, fn)
}

func TestLoopSimplify_CriticalEdge(t *testing.T) {
    fn := simpleLoop()
    entry := fn.Block("entry")
    exit := fn.Block("exit")

    /* make the entry branch around the loop */
    b := ir.NewBuilder(fn).SetBlock(entry)
    b.Branch(b.ConstBool("t", true), fn.Block("header"), exit)
    require.Nil(t, ir.FindLoops(fn).Roots[0].Preheader())

    /* the edge into the header gets its own block */
    changed, err := LoopSimplify{}.Apply(fn)
    require.NoError(t, err)
    require.True(t, changed)
    pre := ir.FindLoops(fn).Roots[0].Preheader()
    require.NotNil(t, pre)
    require.Equal(t, []string { pre.Name, "exit" }, names(entry.Succs()))
    require.Equal(t, []string { "header", pre.Name }, names(instr(t, fn, "i").Incoming))
    verify(t, fn)
}
