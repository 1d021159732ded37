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
    `fmt`

    `github.com/cloudwego/rewire/internal/diag`
    `github.com/cloudwego/rewire/ir`
)

// LoopRecord is the size of one loop of a loop nest. Depth starts at 0 for
// top-level loops.
type LoopRecord struct {
    Depth  int
    Blocks int
    Header string
}

// ReportLoops walks the loop forest depth-first, parents before children,
// and records the number of blocks of every loop. The blocks of a loop
// include those of its sub-loops.
func ReportLoops(lf *ir.LoopForest, sink diag.Sink) []LoopRecord {
    var ret []LoopRecord
    var walk func(*ir.Loop, int)
    sink = diag.OrDiscard(sink)

    /* record, then descend */
    walk = func(l *ir.Loop, depth int) {
        ret = append(ret, LoopRecord {
            Depth  : depth,
            Blocks : len(l.Blocks),
            Header : l.Header.Name,
        })
        sink.Emit(diag.Record {
            Pass    : "loops",
            Event   : "level",
            Message : fmt.Sprintf("Loop Level %d has %d blocks", depth, len(l.Blocks)),
            Fields  : diag.Fields { "header": l.Header.Name },
        })
        for _, c := range l.Children {
            walk(c, depth + 1)
        }
    }

    /* every tree of the forest */
    for _, l := range lf.Roots {
        walk(l, 0)
    }
    return ret
}

// LoopReport is ReportLoops as a pass. It never changes the function.
type LoopReport struct {
    Sink diag.Sink
}

func (self LoopReport) Apply(fn *ir.Func) (bool, error) {
    ReportLoops(ir.FindLoops(fn), self.Sink)
    return false, nil
}
