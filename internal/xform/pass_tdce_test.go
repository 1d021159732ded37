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

    `github.com/cloudwego/rewire/internal/diag`
    `github.com/cloudwego/rewire/ir`
    `github.com/stretchr/testify/require`
)

func TestTDCE_Chain(t *testing.T) {
    var rec diag.Recorder
    fn := ir.NewFunc("dead", ir.Void)
    p := fn.AddParam("p", ir.Int)
    q := fn.AddParam("q", ir.Int)
    b := ir.NewBuilder(fn).SetBlock(fn.CreateBlock("entry"))
    x := b.Add("x", p, q)
    b.Mul("y", x, x)
    b.Const("z", 3)
    b.Call("r", ir.Int, "effect", p)
    b.Print(p)
    b.Return(nil)

    /* y and z go first, then x */
    changed, err := TDCE { Sink: &rec }.Apply(fn)
    require.NoError(t, err)
    require.True(t, changed)
    require.Equal(t, []string { "r", fn.Entry().Ins[1].Name() }, instrNames(fn.Entry().Ins))
    require.Len(t, rec.Records, 3)
    require.Empty(t, x.Uses())
    require.Nil(t, x.Block)
    require.Len(t, p.Uses(), 2)
    verify(t, fn)

    /* nothing left */
    changed, err = TDCE{}.Apply(fn)
    require.NoError(t, err)
    require.False(t, changed)
}

func TestTDCE_AfterRewrite(t *testing.T) {
    fn := divide()
    _, err := Rewrite { Name: "divmul", Pattern: DivToMul{}, Policy: Exhaustive }.Run(fn)
    require.NoError(t, err)
    require.Len(t, fn.Entry().Ins, 2)

    /* the superseded division is gone */
    changed, err := TDCE{}.Apply(fn)
    require.NoError(t, err)
    require.True(t, changed)
    require.Len(t, fn.Entry().Ins, 1)
    require.Equal(t, ir.OpMul, fn.Entry().Ins[0].Op)
    verify(t, fn)
}
