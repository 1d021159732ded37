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

package debug

import (
	"sync/atomic"

	"github.com/cloudwego/rewire/internal/xform"
)

// A Stats records statistics about the passes run so far in this process.
type Stats struct {
	Passes  int
	Rewrite RewriteStats
	LICM    LICMStats
	Cleanup CleanupStats
}

// A RewriteStats records statistics about pattern rewrites.
type RewriteStats struct {
	Redirected int
}

// A LICMStats records statistics about loop-invariant code motion.
type LICMStats struct {
	Rounds  int
	Hoisted int
}

// A CleanupStats records statistics about the supporting passes.
type CleanupStats struct {
	Removed    int
	Preheaders int
}

// GetStats returns statistics of the passes.
func GetStats() Stats {
	return Stats{
		Passes: int(atomic.LoadUint64(&xform.PassCount)),
		Rewrite: RewriteStats{
			Redirected: int(atomic.LoadUint64(&xform.RewriteCount)),
		},
		LICM: LICMStats{
			Rounds:  int(atomic.LoadUint64(&xform.RoundCount)),
			Hoisted: int(atomic.LoadUint64(&xform.HoistCount)),
		},
		Cleanup: CleanupStats{
			Removed:    int(atomic.LoadUint64(&xform.RemoveCount)),
			Preheaders: int(atomic.LoadUint64(&xform.PreheaderCount)),
		},
	}
}
