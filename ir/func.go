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
    `strings`
)

// Func is a function body: a list of basic blocks, the first being the entry.
type Func struct {
    Name   string
    Ret    Type
    Params []*Param
    Blocks []*BasicBlock
    nextId int
    names  map[string]int
}

func NewFunc(name string, ret Type) *Func {
    return &Func {
        Name  : name,
        Ret   : ret,
        names : make(map[string]int),
    }
}

func (self *Func) Entry() *BasicBlock {
    if len(self.Blocks) == 0 {
        return nil
    } else {
        return self.Blocks[0]
    }
}

func (self *Func) allocId() int {
    self.nextId++
    return self.nextId
}

// MaxId returns an upper bound of every block and instruction ID in the function.
func (self *Func) MaxId() int {
    return self.nextId
}

// Fresh returns a variable or label name starting with prefix that is not
// used anywhere in the function.
func (self *Func) Fresh(prefix string) string {
    for {
        self.names[prefix]++
        name := fmt.Sprintf("%s.%d", prefix, self.names[prefix])
        if _, ok := self.names[name]; !ok {
            self.names[name] = 0
            return name
        }
    }
}

// Reserve marks name as taken so Fresh never returns it.
func (self *Func) Reserve(name string) {
    if _, ok := self.names[name]; !ok {
        self.names[name] = 0
    }
}

// AddParam appends a function argument.
func (self *Func) AddParam(name string, ty Type) *Param {
    p := &Param {
        Id  : self.allocId(),
        Var : name,
        Ty  : ty,
    }
    self.Reserve(name)
    self.Params = append(self.Params, p)
    return p
}

// CreateBlock appends a new empty block. An empty name gets a fresh label.
func (self *Func) CreateBlock(name string) *BasicBlock {
    if name == "" {
        name = self.Fresh("b")
    } else {
        self.Reserve(name)
    }

    /* allocate the block */
    bb := &BasicBlock {
        Id   : self.allocId(),
        Name : name,
        Func : self,
    }

    /* add to block list */
    self.Blocks = append(self.Blocks, bb)
    return bb
}

// MoveBlockBefore moves bb right in front of at in the block list. Moving
// a block before the entry makes it the new entry.
func (self *Func) MoveBlockBefore(bb *BasicBlock, at *BasicBlock) {
    var i int
    var ret []*BasicBlock

    /* remove bb from the list */
    for _, p := range self.Blocks {
        if p != bb {
            self.Blocks[i] = p
            i++
        }
    }

    /* reinsert it in front of at */
    for _, p := range self.Blocks[:i] {
        if p == at {
            ret = append(ret, bb)
        }
        ret = append(ret, p)
    }

    /* at is not in the list, keep bb at the end */
    if len(ret) == i {
        ret = append(ret, bb)
    }
    self.Blocks = ret
}

// Block looks up a block by label.
func (self *Func) Block(name string) *BasicBlock {
    for _, bb := range self.Blocks {
        if bb.Name == name {
            return bb
        }
    }
    return nil
}

// Rebuild recomputes every predecessor list from the terminators.
func (self *Func) Rebuild() {
    for _, bb := range self.Blocks {
        bb.Pred = bb.Pred[:0]
    }

    /* add each edge once */
    for _, bb := range self.Blocks {
        seen := make(map[*BasicBlock]bool)
        for _, to := range bb.Succs() {
            if !seen[to] {
                seen[to] = true
                to.Pred = append(to.Pred, bb)
            }
        }
    }
}

// ForEach calls action for every ordinary instruction and terminator in
// block order.
func (self *Func) ForEach(action func(p *Instr)) {
    for _, bb := range self.Blocks {
        for _, p := range bb.Ins {
            action(p)
        }
        if bb.Term != nil {
            action(bb.Term)
        }
    }
}

// Lookup finds the value named name, either a parameter or an instruction result.
func (self *Func) Lookup(name string) Value {
    for _, p := range self.Params {
        if p.Var == name {
            return p
        }
    }
    for _, bb := range self.Blocks {
        for _, p := range bb.Ins {
            if p.Dest == name {
                return p
            }
        }
    }
    return nil
}

func (self *Func) String() string {
    var sb strings.Builder
    args := make([]string, 0, len(self.Params))

    /* signature */
    for _, p := range self.Params {
        args = append(args, p.String())
    }

    /* return type if any */
    sb.WriteString(fmt.Sprintf("@%s(%s)", self.Name, strings.Join(args, ", ")))
    if self.Ret != Void {
        sb.WriteString(": " + string(self.Ret))
    }

    /* dump every block */
    sb.WriteString(" {\n")
    for _, bb := range self.Blocks {
        sb.WriteString(fmt.Sprintf(".%s:\n", bb.Name))
        for _, p := range bb.Ins {
            sb.WriteString(fmt.Sprintf("  %s;\n", p))
        }
        if bb.Term != nil {
            sb.WriteString(fmt.Sprintf("  %s;\n", bb.Term))
        }
    }

    /* close the body */
    sb.WriteString("}")
    return sb.String()
}
