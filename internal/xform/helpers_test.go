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
    `testing`

    `github.com/cloudwego/rewire/ir`
    `github.com/davecgh/go-spew/spew`
    `github.com/stretchr/testify/require`
)

func names(bbs []*ir.BasicBlock) []string {
    ret := make([]string, 0, len(bbs))
    for _, bb := range bbs {
        ret = append(ret, bb.Name)
    }
    return ret
}

func instr(t testing.TB, fn *ir.Func, name string) *ir.Instr {
    p, ok := fn.Lookup(name).(*ir.Instr)
    require.True(t, ok, "no instruction named %s in\n%s", name, fn)
    return p
}

func verify(t testing.TB, fn *ir.Func) {
    require.NoError(t, ir.Verify(fn), spew.Sdump(fn.String()))
}

// simpleLoop builds a single-block loop whose header computes x = p + q and
// y = x + r, both invariant:
//
//   entry -> header -> header
//              \-> exit
func simpleLoop() *ir.Func {
    fn := ir.NewFunc("simple", ir.Int)
    p := fn.AddParam("p", ir.Int)
    q := fn.AddParam("q", ir.Int)
    r := fn.AddParam("r", ir.Int)
    n := fn.AddParam("n", ir.Int)
    entry := fn.CreateBlock("entry")
    header := fn.CreateBlock("header")
    exit := fn.CreateBlock("exit")
    b := ir.NewBuilder(fn)

    /* entry */
    b.SetBlock(entry)
    zero := b.Const("zero", 0)
    one := b.Const("one", 1)
    b.Jump(header)

    /* header, also the latch */
    b.SetBlock(header)
    i := b.Phi("i", ir.Int)
    x := b.Add("x", p, q)
    y := b.Add("y", x, r)
    i1 := b.Add("i1", i, one)
    s := b.Add("s", i1, y)
    c := b.Lt("c", s, n)
    b.Branch(c, header, exit)
    b.AddIncoming(i, zero, entry)
    b.AddIncoming(i, i1, header)

    /* exit */
    b.SetBlock(exit)
    b.Return(i)
    return fn
}

// nestedLoops builds an outer loop of three blocks around a two-block inner
// loop:
//
//   entry -> outer -> inner -> body -> inner
//                       \-> outer     \-> exit (from outer)
func nestedLoops() *ir.Func {
    fn := ir.NewFunc("nested", ir.Void)
    n := fn.AddParam("n", ir.Int)
    entry := fn.CreateBlock("entry")
    outer := fn.CreateBlock("outer")
    inner := fn.CreateBlock("inner")
    body := fn.CreateBlock("body")
    exit := fn.CreateBlock("exit")
    b := ir.NewBuilder(fn)

    /* entry */
    b.SetBlock(entry)
    zero := b.Const("zero", 0)
    b.Jump(outer)

    /* outer header */
    b.SetBlock(outer)
    c := b.Lt("c", zero, n)
    b.Branch(c, inner, exit)

    /* inner header */
    b.SetBlock(inner)
    d := b.Lt("d", n, zero)
    b.Branch(d, body, outer)

    /* inner body */
    b.SetBlock(body).Jump(inner)
    b.SetBlock(exit).Return(nil)
    return fn
}

// twoEntries builds a loop entered both from entry and from side, so it has
// no canonical preheader. The header phi receives a different value from
// each of them.
func twoEntries() *ir.Func {
    fn := ir.NewFunc("twoentries", ir.Int)
    p := fn.AddParam("p", ir.Int)
    q := fn.AddParam("q", ir.Int)
    n := fn.AddParam("n", ir.Int)
    entry := fn.CreateBlock("entry")
    side := fn.CreateBlock("side")
    header := fn.CreateBlock("header")
    exit := fn.CreateBlock("exit")
    b := ir.NewBuilder(fn)

    /* entry */
    b.SetBlock(entry)
    one := b.Const("one", 1)
    c := b.Lt("c", p, q)
    b.Branch(c, side, header)

    /* side */
    b.SetBlock(side)
    two := b.Const("two", 2)
    b.Jump(header)

    /* header */
    b.SetBlock(header)
    k := b.Phi("k", ir.Int)
    x := b.Mul("x", p, q)
    k2 := b.Add("k2", k, x)
    d := b.Lt("d", k2, n)
    b.Branch(d, header, exit)
    b.AddIncoming(k, one, entry)
    b.AddIncoming(k, two, side)
    b.AddIncoming(k, k2, header)

    /* exit */
    b.SetBlock(exit)
    b.Return(k)
    return fn
}
