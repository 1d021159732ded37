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
	"github.com/cloudwego/rewire/ir"
)

type (
	// PreconditionViolation occurs when a transformation is handed an input it
	// does not accept, such as a synthesizer called on an instruction its
	// pattern does not match.
	PreconditionViolation = ir.PreconditionViolation

	// StructuralPrecondition occurs when a loop lacks the shape a
	// transformation depends on, such as a canonical preheader.
	StructuralPrecondition = ir.StructuralPrecondition

	// InvariantViolation occurs when an operand slot and a use-list disagree.
	InvariantViolation = ir.InvariantViolation
)
