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

// Package irjson reads and writes functions in the JSON form of the Bril
// intermediate language. Programs must already be in SSA form: every
// variable is assigned once, and merges are expressed with phi.
package irjson

import (
	"encoding/json"
	"strings"

	"github.com/cloudwego/rewire/ir"
	"github.com/pkg/errors"
)

// Program is the top-level JSON document.
type Program struct {
	Functions []Function `json:"functions"`
}

// Function is one function of a Program. Type is nil for functions that
// return nothing.
type Function struct {
	Name   string        `json:"name"`
	Args   []Arg         `json:"args,omitempty"`
	Type   *Type         `json:"type,omitempty"`
	Instrs []Instruction `json:"instrs"`
}

type Arg struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// Instruction is either a label (only Label set) or an operation.
type Instruction struct {
	Label  string          `json:"label,omitempty"`
	Op     string          `json:"op,omitempty"`
	Dest   string          `json:"dest,omitempty"`
	Type   *Type           `json:"type,omitempty"`
	Args   []string        `json:"args,omitempty"`
	Funcs  []string        `json:"funcs,omitempty"`
	Labels []string        `json:"labels,omitempty"`
	Value  json.RawMessage `json:"value,omitempty"`
}

// IsLabel reports whether the entry marks the start of a block.
func (self Instruction) IsLabel() bool {
	return self.Op == "" && self.Label != ""
}

// Type is a Bril type: a name such as "int", or {"ptr": T}.
type Type ir.Type

func (self Type) MarshalJSON() ([]byte, error) {
	if s := string(self); strings.HasPrefix(s, "ptr<") && strings.HasSuffix(s, ">") {
		return json.Marshal(map[string]Type{"ptr": Type(s[4 : len(s)-1])})
	} else {
		return json.Marshal(s)
	}
}

func (self *Type) UnmarshalJSON(buf []byte) error {
	var name string
	var ptr map[string]Type

	/* plain type name */
	if err := json.Unmarshal(buf, &name); err == nil {
		*self = Type(name)
		return nil
	}

	/* parameterized pointer type */
	if err := json.Unmarshal(buf, &ptr); err != nil {
		return errors.Wrap(err, "invalid type")
	} else if elem, ok := ptr["ptr"]; !ok || len(ptr) != 1 {
		return errors.Errorf("invalid type %s", buf)
	} else {
		*self = Type(ir.Ptr(ir.Type(elem)))
		return nil
	}
}

func typeOf(t *Type) ir.Type {
	if t == nil {
		return ir.Void
	} else {
		return ir.Type(*t)
	}
}

func typeRef(t ir.Type) *Type {
	if t == ir.Void {
		return nil
	} else {
		v := Type(t)
		return &v
	}
}
