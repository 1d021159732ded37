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
)

// PreconditionViolation occurs when a transformation is handed an input it
// was never meant to accept, such as a synthesizer called on an instruction
// its pattern does not match.
type PreconditionViolation struct {
    Pass   string
    Instr  string
    Reason string
}

func (self PreconditionViolation) Error() string {
    if self.Instr == "" {
        return fmt.Sprintf("PreconditionViolation(%s): %s", self.Pass, self.Reason)
    } else {
        return fmt.Sprintf("PreconditionViolation(%s): %s: %s", self.Pass, self.Instr, self.Reason)
    }
}

// StructuralPrecondition occurs when the graph lacks a shape a
// transformation depends on, such as a loop without a canonical preheader.
type StructuralPrecondition struct {
    Loop   string
    Reason string
}

func (self StructuralPrecondition) Error() string {
    return fmt.Sprintf("StructuralPrecondition(loop %s): %s", self.Loop, self.Reason)
}

// InvariantViolation occurs when an operand slot and a use-list disagree.
// The graph is corrupted and no transformation may continue on it.
type InvariantViolation struct {
    Value  string
    User   string
    Index  int
    Reason string
}

func (self InvariantViolation) Error() string {
    return fmt.Sprintf(
        "InvariantViolation(%s, used by %s#%d): %s",
        self.Value,
        self.User,
        self.Index,
        self.Reason,
    )
}

func violation(v Value, u Use, reason string) *InvariantViolation {
    return &InvariantViolation {
        Value  : v.Name(),
        User   : u.User.Name(),
        Index  : u.Index,
        Reason : reason,
    }
}
