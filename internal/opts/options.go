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

package opts

import (
	"github.com/cloudwego/rewire/internal/diag"
)

type Options struct {
	Verify          bool
	LoopSimplify    bool
	SkipNoPreheader bool
	Passes          []string
	Sink            diag.Sink
}

// Pipeline returns the passes to run. With LoopSimplify, a "simplify" pass
// runs right before the first "licm" unless the list already has one.
func (self *Options) Pipeline() []string {
	if !self.LoopSimplify {
		return self.Passes
	}
	for _, p := range self.Passes {
		if p == "simplify" {
			return self.Passes
		}
	}

	done := false
	ret := make([]string, 0, len(self.Passes)+1)
	for _, p := range self.Passes {
		if p == "licm" && !done {
			done = true
			ret = append(ret, "simplify")
		}
		ret = append(ret, p)
	}
	return ret
}

func GetDefaultOptions() Options {
	return Options{
		Verify:       Verify,
		LoopSimplify: LoopSimplify,
		Passes:       append([]string(nil), Passes...),
		Sink:         diag.Discard,
	}
}
