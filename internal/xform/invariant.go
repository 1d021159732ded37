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
    `github.com/deckarep/golang-set/v2`
)

// hoistable reports whether executing p once before the loop instead of on
// every iteration cannot change what the program does.
func hoistable(p *ir.Instr) bool {
    switch {
        case p.IsTerminator()   : return false
        case p.Op == ir.OpPhi   : return false
        case !p.Op.IsPure()     : return false
        case p.Op != ir.OpDiv   : return true
        default                 : return isNonZeroConst(p.Operand(1))
    }
}

// isNonZeroConst reports whether v is a constant other than zero. Only such
// divisors make a division safe to speculate.
func isNonZeroConst(v ir.Value) bool {
    p, ok := v.(*ir.Instr)
    return ok && p.Op == ir.OpConst && p.Aux != 0
}

// IsInvariant reports whether p sits in loop and computes the same value on
// every iteration: it must be hoistable and each of its operands must be a
// function argument, an instruction outside the loop, or an instruction in
// hoisted. The answer is computed from the current operands every time.
func IsInvariant(p *ir.Instr, loop *ir.Loop, hoisted mapset.Set[*ir.Instr]) bool {
    if !loop.ContainsInstr(p) || !hoistable(p) {
        return false
    }

    /* check every operand */
    for _, v := range p.Operands() {
        switch q := v.(type) {
            case *ir.Param:
                continue
            case *ir.Instr:
                if loop.ContainsInstr(q) && (hoisted == nil || !hoisted.Contains(q)) {
                    return false
                }
            default:
                return false
        }
    }
    return true
}
