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

package irjson

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/cloudwego/rewire/ir"
	"github.com/pkg/errors"
)

// Encode writes fns to w as an indented JSON program.
func Encode(w io.Writer, fns ...*ir.Func) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(Dump(fns...)), "irjson: encode")
}

// Dump converts fns to their JSON form. Every block gets a label.
func Dump(fns ...*ir.Func) *Program {
	ret := &Program{Functions: make([]Function, 0, len(fns))}
	for _, fn := range fns {
		ret.Functions = append(ret.Functions, dumpFunc(fn))
	}
	return ret
}

func dumpFunc(fn *ir.Func) Function {
	ret := Function{
		Name:   fn.Name,
		Type:   typeRef(fn.Ret),
		Instrs: []Instruction{},
	}

	/* arguments */
	for _, p := range fn.Params {
		ret.Args = append(ret.Args, Arg{Name: p.Var, Type: Type(p.Ty)})
	}

	/* blocks, each starting with its label */
	for _, bb := range fn.Blocks {
		ret.Instrs = append(ret.Instrs, Instruction{Label: bb.Name})
		for _, p := range bb.Ins {
			ret.Instrs = append(ret.Instrs, dumpInstr(p))
		}
		if bb.Term != nil {
			ret.Instrs = append(ret.Instrs, dumpInstr(bb.Term))
		}
	}
	return ret
}

func dumpInstr(p *ir.Instr) Instruction {
	ret := Instruction{
		Op:   p.Op.String(),
		Dest: p.Dest,
		Type: typeRef(p.Ty),
	}

	/* operands by name */
	for _, v := range p.Operands() {
		ret.Args = append(ret.Args, v.Name())
	}

	/* call target */
	if p.Callee != "" {
		ret.Funcs = []string{p.Callee}
	}

	/* phi sources, or branch targets */
	for _, bb := range p.Incoming {
		ret.Labels = append(ret.Labels, bb.Name)
	}
	for _, bb := range p.Targets {
		ret.Labels = append(ret.Labels, bb.Name)
	}

	/* literal value */
	if p.Op == ir.OpConst {
		if p.Ty == ir.Bool {
			ret.Value = json.RawMessage(strconv.FormatBool(p.Aux != 0))
		} else {
			ret.Value = json.RawMessage(strconv.FormatInt(p.Aux, 10))
		}
	}
	return ret
}
