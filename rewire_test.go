/*
 * Copyright 2022 CloudWeGo Authors
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

package rewire

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/rewire/ir"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func lookup(t *testing.T, fn *ir.Func, name string) *ir.Instr {
	p, ok := fn.Lookup(name).(*ir.Instr)
	require.True(t, ok, "no instruction %s in\n%s", name, fn)
	return p
}

func TestScenarioA_DivisionBecomesMultiplication(t *testing.T) {
	var buf bytes.Buffer
	fn := ir.NewFunc("div", ir.Int)
	a := fn.AddParam("a", ir.Int)
	b := fn.AddParam("b", ir.Int)
	bd := ir.NewBuilder(fn).SetBlock(fn.CreateBlock("entry"))
	c := bd.Div("c", a, b)
	ret := bd.Return(c)

	changed, err := RewriteFunc(fn, DivToMul{}, Exhaustive, WithSink(WriterSink(&buf)))
	require.NoError(t, err)
	require.True(t, changed)

	/* the return now reads a * b, c is left in place */
	m, ok := ret.Operand(0).(*ir.Instr)
	require.True(t, ok)
	require.Equal(t, ir.OpMul, m.Op)
	require.Equal(t, []ir.Value{a, b}, m.Operands())
	require.Empty(t, c.Uses())
	require.Same(t, c, fn.Entry().Ins[1])
	require.Contains(t, buf.String(), "Found Integer Division Instruction!")

	/* running it again finds nothing to do */
	changed, err = RewriteFunc(fn, DivToMul{}, Exhaustive)
	require.NoError(t, err)
	require.False(t, changed)
}

func TestScenarioA_FirstMatch(t *testing.T) {
	fn := ir.NewFunc("twice", ir.Void)
	a := fn.AddParam("a", ir.Int)
	b := fn.AddParam("b", ir.Int)
	bd := ir.NewBuilder(fn).SetBlock(fn.CreateBlock("entry"))
	x := bd.Div("x", a, b)
	y := bd.Div("y", x, b)
	bd.Print(y)
	bd.Return(nil)

	changed, err := RewriteFunc(fn, DivToMul{}, FirstMatch)
	require.NoError(t, err)
	require.True(t, changed)
	require.Empty(t, x.Uses())
	require.Len(t, y.Uses(), 1)
}

// counting builds the loop of the loop-invariant scenario:
//
//	entry:  i0 = const 0; jmp header
//	header: i = phi; x = add p q; y = add x r; i1 = add i y; br (i1 < n) header exit
//	exit:   ret i
func counting() (*ir.Func, *ir.BasicBlock) {
	fn := ir.NewFunc("counting", ir.Int)
	p := fn.AddParam("p", ir.Int)
	q := fn.AddParam("q", ir.Int)
	r := fn.AddParam("r", ir.Int)
	n := fn.AddParam("n", ir.Int)
	entry := fn.CreateBlock("entry")
	header := fn.CreateBlock("header")
	exit := fn.CreateBlock("exit")
	b := ir.NewBuilder(fn)

	b.SetBlock(entry)
	i0 := b.Const("i0", 0)
	b.Jump(header)

	b.SetBlock(header)
	i := b.Phi("i", ir.Int)
	x := b.Add("x", p, q)
	y := b.Add("y", x, r)
	i1 := b.Add("i1", i, y)
	b.Branch(b.Lt("c", i1, n), header, exit)
	b.AddIncoming(i, i0, entry)
	b.AddIncoming(i, i1, header)

	b.SetBlock(exit).Return(i)
	return fn, entry
}

func TestScenarioB_TransitiveHoist(t *testing.T) {
	fn, entry := counting()
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	changed, err := HoistFunc(fn, WithSink(LogSink(log, logrus.DebugLevel)))
	require.NoError(t, err)
	require.True(t, changed)

	/* x then y, at the end of the preheader */
	x := lookup(t, fn, "x")
	y := lookup(t, fn, "y")
	require.Same(t, entry, x.Block)
	require.Same(t, entry, y.Block)
	require.Equal(t, []*ir.Instr{lookup(t, fn, "i0"), x, y}, entry.Ins)
	require.Len(t, fn.Block("header").Ins, 3)

	/* two hoists, each announced */
	found := 0
	for _, e := range hook.AllEntries() {
		if strings.HasPrefix(e.Message, "Found invariant") {
			found++
		}
	}
	require.Equal(t, 2, found)

	/* a second run changes nothing */
	changed, err = HoistFunc(fn)
	require.NoError(t, err)
	require.False(t, changed)
}

func TestScenarioB_NoPreheader(t *testing.T) {
	fn := ir.NewFunc("entered", ir.Void)
	p := fn.AddParam("p", ir.Int)
	entry := fn.CreateBlock("entry")
	side := fn.CreateBlock("side")
	header := fn.CreateBlock("header")
	exit := fn.CreateBlock("exit")
	b := ir.NewBuilder(fn)
	c := b.SetBlock(entry).Lt("c", p, p)
	b.Branch(c, side, header)
	b.SetBlock(side).Jump(header)
	x := b.SetBlock(header).Add("x", p, p)
	b.Print(x)
	b.Branch(c, header, exit)
	b.SetBlock(exit).Return(nil)
	before := fn.String()

	/* the loop cannot be hoisted from as it is */
	loop := ir.FindLoops(fn).Roots[0]
	changed, err := HoistLoop(loop)
	var sp *StructuralPrecondition
	require.True(t, errors.As(err, &sp))
	require.Equal(t, "header", sp.Loop)
	require.False(t, changed)
	require.Equal(t, before, fn.String())

	/* skipping leaves it alone */
	changed, err = HoistFunc(fn, WithSkipNoPreheader(true))
	require.NoError(t, err)
	require.False(t, changed)

	/* with a preheader inserted, x moves out */
	changed, err = HoistFunc(fn, WithLoopSimplify(true))
	require.NoError(t, err)
	require.True(t, changed)
	require.NotSame(t, header, x.Block)
	require.Equal(t, []*ir.BasicBlock{header}, x.Block.Succs())
}

func TestScenarioC_LoopNest(t *testing.T) {
	fn := ir.NewFunc("nest", ir.Void)
	n := fn.AddParam("n", ir.Int)
	entry := fn.CreateBlock("entry")
	outer := fn.CreateBlock("outer")
	inner := fn.CreateBlock("inner")
	body := fn.CreateBlock("body")
	latch := fn.CreateBlock("latch")
	exit := fn.CreateBlock("exit")
	b := ir.NewBuilder(fn)
	c := b.SetBlock(entry).Lt("c", n, n)
	b.Jump(outer)
	b.SetBlock(outer).Branch(c, inner, exit)
	b.SetBlock(inner).Branch(c, body, latch)
	b.SetBlock(body).Jump(inner)
	b.SetBlock(latch).Jump(outer)
	b.SetBlock(exit).Return(nil)

	var buf bytes.Buffer
	rs := ReportLoops(fn, WithSink(WriterSink(&buf)))
	require.Equal(t, []LoopRecord{
		{Depth: 0, Blocks: 4, Header: "outer"},
		{Depth: 1, Blocks: 2, Header: "inner"},
	}, rs)
	require.Equal(t, "[loops] Loop Level 0 has 4 blocks (header=outer)\n"+
		"[loops] Loop Level 1 has 2 blocks (header=inner)\n", buf.String())

	/* no loops, no records */
	flat := ir.NewFunc("flat", ir.Void)
	ir.NewBuilder(flat).SetBlock(flat.CreateBlock("entry")).Return(nil)
	require.Empty(t, ReportLoops(flat))
}

// innerLatch builds a nest whose inner header is also the latch of the
// outer loop:
//
//	entry -> outer -> inner <-> body
//	           ^        |
//	           +--------+      outer -> exit
func innerLatch() *ir.Func {
	fn := ir.NewFunc("latch", ir.Void)
	n := fn.AddParam("n", ir.Int)
	entry := fn.CreateBlock("entry")
	outer := fn.CreateBlock("outer")
	inner := fn.CreateBlock("inner")
	body := fn.CreateBlock("body")
	exit := fn.CreateBlock("exit")
	b := ir.NewBuilder(fn)
	c := b.SetBlock(entry).Lt("c", n, n)
	b.Jump(outer)
	b.SetBlock(outer).Branch(c, inner, exit)
	b.SetBlock(inner).Branch(c, body, outer)
	b.SetBlock(body).Jump(inner)
	b.SetBlock(exit).Return(nil)
	return fn
}

func TestScenarioC_InnerHeaderIsOuterLatch(t *testing.T) {
	var buf bytes.Buffer
	rs := ReportLoops(innerLatch(), WithSink(WriterSink(&buf)))
	require.Equal(t, []LoopRecord{
		{Depth: 0, Blocks: 3, Header: "outer"},
		{Depth: 1, Blocks: 2, Header: "inner"},
	}, rs)
	require.Equal(t, "[loops] Loop Level 0 has 3 blocks (header=outer)\n"+
		"[loops] Loop Level 1 has 2 blocks (header=inner)\n", buf.String())
}

func TestScenarioD_RedirectWithoutUses(t *testing.T) {
	fn := ir.NewFunc("unused", ir.Void)
	a := fn.AddParam("a", ir.Int)
	bd := ir.NewBuilder(fn).SetBlock(fn.CreateBlock("entry"))
	x := bd.Add("x", a, a)
	y := bd.Mul("y", a, a)
	bd.Return(nil)
	before := fn.String()

	require.NoError(t, Redirect(x, y))
	require.Equal(t, before, fn.String())
	require.Empty(t, x.Uses())
	require.Empty(t, y.Uses())
	require.NoError(t, ir.Verify(fn))
}

func TestRedirect_Preconditions(t *testing.T) {
	fn := ir.NewFunc("pre", ir.Void)
	a := fn.AddParam("a", ir.Int)
	bd := ir.NewBuilder(fn).SetBlock(fn.CreateBlock("entry"))
	x := bd.Add("x", a, a)
	bd.Print(x)
	bd.Return(nil)

	var pv *PreconditionViolation
	require.True(t, errors.As(Redirect(x, nil), &pv))
	require.Equal(t, "redirect", pv.Pass)

	/* a value redirected to itself keeps its uses */
	require.NoError(t, Redirect(x, x))
	require.Len(t, x.Uses(), 1)
}

func TestRedirect_VerifiesFunction(t *testing.T) {
	fn := ir.NewFunc("owner", ir.Void)
	a := fn.AddParam("a", ir.Int)
	bd := ir.NewBuilder(fn).SetBlock(fn.CreateBlock("entry"))
	x := bd.Add("x", a, a)
	y := bd.Mul("y", a, a)
	bd.Print(x)
	bd.Return(nil)

	/* a slot of another function reads x */
	other := ir.NewFunc("other", ir.Void)
	ob := ir.NewBuilder(other).SetBlock(other.CreateBlock("entry"))
	ob.Print(x)
	ob.Return(nil)

	var iv *InvariantViolation
	err := Redirect(x, y)
	require.True(t, errors.As(err, &iv), "%v", err)
	require.Len(t, x.Uses(), 2)
	require.Empty(t, y.Uses())

	/* without verification only the recorded uses matter */
	require.NoError(t, Redirect(x, y, WithVerify(false)))
	require.Empty(t, x.Uses())
	require.Len(t, y.Uses(), 2)
}

func TestOptimize_Pipeline(t *testing.T) {
	fn, entry := counting()
	b := ir.NewBuilder(fn).SetInsertBefore(lookup(t, fn, "i1"))
	d := b.Div("d", lookup(t, fn, "y"), fn.Params[0])
	b.Print(d)

	var buf bytes.Buffer
	changed, err := Optimize(fn, WithPasses("divmul", "licm", "tdce"), WithSink(WriterSink(&buf)))
	require.NoError(t, err)
	require.True(t, changed)

	/* the division is gone, its replacement hoisted with x and y */
	require.Nil(t, fn.Lookup("d"))
	for _, p := range entry.Ins {
		require.NotEqual(t, ir.OpDiv, p.Op)
	}
	require.Len(t, entry.Ins, 4)
	require.Contains(t, buf.String(), "[divmul]")
	require.Contains(t, buf.String(), "[licm]")
}

func TestOptimize_Errors(t *testing.T) {
	fn, _ := counting()
	require.Panics(t, func() { WithPasses("nope") })

	/* an empty pipeline is a no-op */
	changed, err := Optimize(fn, WithPasses())
	require.NoError(t, err)
	require.False(t, changed)
}
