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
	"sort"

	"github.com/cloudwego/rewire/ir"
	"github.com/pkg/errors"
)

// Undefined is the variable name Bril uses for phi sources with no value.
// Such programs are rejected.
const Undefined = "__undefined"

// Decode reads a JSON program from r and builds its functions.
func Decode(r io.Reader) ([]*ir.Func, error) {
	var prog Program
	if err := json.NewDecoder(r).Decode(&prog); err != nil {
		return nil, errors.Wrap(err, "irjson: decode")
	}
	return Load(&prog)
}

// Load builds the functions of prog. Every function is checked with
// ir.Verify before it is returned.
func Load(prog *Program) ([]*ir.Func, error) {
	ret := make([]*ir.Func, 0, len(prog.Functions))
	for i := range prog.Functions {
		fn, err := loadFunc(&prog.Functions[i])
		if err != nil {
			return nil, errors.Wrapf(err, "irjson: function @%s", prog.Functions[i].Name)
		}
		ret = append(ret, fn)
	}
	return ret, nil
}

type rawBlock struct {
	name string
	ins  []Instruction
}

// formBlocks splits an instruction list into basic blocks. A label starts
// a new block, a terminator ends the current one.
func formBlocks(instrs []Instruction) []rawBlock {
	cur := -1
	ret := []rawBlock(nil)

	/* scan every instruction */
	for _, p := range instrs {
		if p.IsLabel() {
			ret = append(ret, rawBlock{name: p.Label})
			cur = len(ret) - 1
			continue
		}

		/* anonymous block */
		if cur < 0 {
			ret = append(ret, rawBlock{})
			cur = len(ret) - 1
		}

		/* terminators end the block */
		ret[cur].ins = append(ret[cur].ins, p)
		if op, ok := ir.LookupOp(p.Op); ok && op.IsTerminator() {
			cur = -1
		}
	}
	return ret
}

type loader struct {
	fn     *ir.Func
	bd     *ir.Builder
	defs   map[string]ir.Value
	fwds   map[string]*ir.Forward
	blocks map[string]*ir.BasicBlock
}

func loadFunc(f *Function) (*ir.Func, error) {
	fn := ir.NewFunc(f.Name, typeOf(f.Type))
	ld := &loader{
		fn:     fn,
		bd:     ir.NewBuilder(fn),
		defs:   make(map[string]ir.Value),
		fwds:   make(map[string]*ir.Forward),
		blocks: make(map[string]*ir.BasicBlock),
	}

	/* function arguments */
	for _, a := range f.Args {
		if err := ld.define(a.Name, fn.AddParam(a.Name, ir.Type(a.Type))); err != nil {
			return nil, err
		}
	}

	/* program labels win over the names of anonymous blocks */
	raws := formBlocks(f.Instrs)
	for _, rb := range raws {
		if rb.name != "" {
			fn.Reserve(rb.name)
		}
	}

	/* create all the blocks first, branches may go forward */
	bbs := make([]*ir.BasicBlock, len(raws))
	for i, rb := range raws {
		if _, ok := ld.blocks[rb.name]; ok && rb.name != "" {
			return nil, errors.Errorf("duplicated label .%s", rb.name)
		}
		bbs[i] = fn.CreateBlock(rb.name)
		ld.blocks[bbs[i].Name] = bbs[i]
	}

	/* a function without instructions just returns */
	if len(bbs) == 0 {
		bbs = append(bbs, fn.CreateBlock("entry"))
	}

	/* fill every block */
	for i, bb := range bbs {
		ld.bd.SetBlock(bb)
		if i < len(raws) {
			for _, p := range raws[i].ins {
				if err := ld.emit(p); err != nil {
					return nil, errors.Wrapf(err, "block .%s", bb.Name)
				}
			}
		}

		/* fall through to the next block, or off the function */
		if bb.Term != nil {
			continue
		} else if i+1 < len(bbs) {
			ld.bd.Jump(bbs[i+1])
		} else if fn.Ret == ir.Void {
			ld.bd.Return(nil)
		} else {
			return nil, errors.Errorf("block .%s falls off the end of a function returning %s", bb.Name, fn.Ret)
		}
	}

	/* resolve the forward references */
	if err := ld.resolve(); err != nil {
		return nil, err
	}

	/* the result must be consistent */
	if err := ir.Verify(fn); err != nil {
		return nil, err
	}
	return fn, nil
}

func (self *loader) define(name string, v ir.Value) error {
	if _, ok := self.defs[name]; ok {
		return errors.Errorf("variable %s is assigned more than once, the program is not in SSA form", name)
	} else {
		self.defs[name] = v
		return nil
	}
}

func (self *loader) value(name string) (ir.Value, error) {
	if name == Undefined {
		return nil, errors.Errorf("undefined phi source %s", Undefined)
	} else if v, ok := self.defs[name]; ok {
		return v, nil
	} else if f, ok := self.fwds[name]; ok {
		return f, nil
	} else {
		f = ir.NewForward(name)
		self.fwds[name] = f
		return f, nil
	}
}

func (self *loader) values(names []string) ([]ir.Value, error) {
	ret := make([]ir.Value, 0, len(names))
	for _, name := range names {
		if v, err := self.value(name); err != nil {
			return nil, err
		} else {
			ret = append(ret, v)
		}
	}
	return ret, nil
}

func (self *loader) block(label string) (*ir.BasicBlock, error) {
	if bb, ok := self.blocks[label]; !ok {
		return nil, errors.Errorf("unknown label .%s", label)
	} else {
		return bb, nil
	}
}

// resolve points every use of a forward reference at its definition.
func (self *loader) resolve() error {
	keys := make([]string, 0, len(self.fwds))
	for name := range self.fwds {
		keys = append(keys, name)
	}

	/* deterministic error reporting */
	sort.Strings(keys)
	for _, name := range keys {
		if v, ok := self.defs[name]; !ok {
			return errors.Errorf("undefined variable %s", name)
		} else if err := ir.Redirect(self.fwds[name], v); err != nil {
			return err
		}
	}
	return nil
}

func (self *loader) emit(p Instruction) error {
	op, ok := ir.LookupOp(p.Op)
	if !ok {
		return errors.Errorf("unknown op %q", p.Op)
	}

	/* value operations must be typed */
	ty := typeOf(p.Type)
	if p.Dest != "" && ty == ir.Void {
		return errors.Errorf("%s: missing type", p.Dest)
	}

	/* check the operand count */
	if n := op.Arity(); n >= 0 && n != len(p.Args) {
		return errors.Errorf("%s takes %d arguments, got %d", op, n, len(p.Args))
	}

	/* resolve the arguments */
	args, err := self.values(p.Args)
	if err != nil {
		return err
	}

	/* build the instruction */
	var v *ir.Instr
	switch op {
	case ir.OpConst:
		v, err = self.constant(p, ty)
	case ir.OpPhi:
		v, err = self.phi(p, ty, args)
	case ir.OpCall:
		v, err = self.call(p, ty, args)
	case ir.OpJump, ir.OpBranch, ir.OpReturn:
		err = self.terminator(p, op, args)
	default:
		v = self.bd.Emit(op, p.Dest, ty, args...)
	}

	/* record the definition */
	if err != nil {
		return err
	} else if p.Dest == "" {
		return nil
	} else if v == nil {
		return errors.Errorf("%s does not produce a value", op)
	} else {
		return self.define(p.Dest, v)
	}
}

func (self *loader) constant(p Instruction, ty ir.Type) (*ir.Instr, error) {
	var iv int64
	var bv bool

	/* only integer and boolean literals exist */
	switch ty {
	case ir.Int:
		if err := json.Unmarshal(p.Value, &iv); err != nil {
			return nil, errors.Wrapf(err, "%s: invalid int literal", p.Dest)
		}
		return self.bd.Const(p.Dest, iv), nil
	case ir.Bool:
		if err := json.Unmarshal(p.Value, &bv); err != nil {
			return nil, errors.Wrapf(err, "%s: invalid bool literal", p.Dest)
		}
		return self.bd.ConstBool(p.Dest, bv), nil
	default:
		return nil, errors.Errorf("%s: unsupported literal type %s", p.Dest, ty)
	}
}

func (self *loader) phi(p Instruction, ty ir.Type, args []ir.Value) (*ir.Instr, error) {
	if len(args) != len(p.Labels) {
		return nil, errors.Errorf("%s: phi has %d arguments but %d labels", p.Dest, len(args), len(p.Labels))
	}

	/* add every source */
	v := self.bd.Phi(p.Dest, ty)
	for i, label := range p.Labels {
		if bb, err := self.block(label); err != nil {
			return nil, err
		} else {
			self.bd.AddIncoming(v, args[i], bb)
		}
	}
	return v, nil
}

func (self *loader) call(p Instruction, ty ir.Type, args []ir.Value) (*ir.Instr, error) {
	if len(p.Funcs) != 1 {
		return nil, errors.Errorf("call names %d functions", len(p.Funcs))
	} else {
		return self.bd.Call(p.Dest, ty, p.Funcs[0], args...), nil
	}
}

func (self *loader) terminator(p Instruction, op ir.Op, args []ir.Value) error {
	var err error
	var bbs []*ir.BasicBlock

	/* resolve the targets */
	for _, label := range p.Labels {
		var bb *ir.BasicBlock
		if bb, err = self.block(label); err != nil {
			return err
		}
		bbs = append(bbs, bb)
	}

	/* build the terminator */
	switch {
	case op == ir.OpJump && len(bbs) == 1:
		self.bd.Jump(bbs[0])
	case op == ir.OpBranch && len(bbs) == 2:
		self.bd.Branch(args[0], bbs[0], bbs[1])
	case op == ir.OpReturn && len(args) == 0 && len(bbs) == 0:
		self.bd.Return(nil)
	case op == ir.OpReturn && len(args) == 1 && len(bbs) == 0:
		self.bd.Return(args[0])
	default:
		return errors.Errorf("malformed %s with %d arguments and %d labels", op, len(args), len(bbs))
	}
	return nil
}
