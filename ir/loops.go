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
    `sort`

    `github.com/deckarep/golang-set/v2`
    `github.com/oleiade/lane`
)

// Loop is a natural loop: a header block plus every block that reaches one
// of its latches without going through the header. Blocks lists the header
// first, then the other blocks in function order, including the blocks of
// nested loops.
type Loop struct {
    Header   *BasicBlock
    Blocks   []*BasicBlock
    Latches  []*BasicBlock
    Parent   *Loop
    Children []*Loop
    Depth    int
    set      mapset.Set[*BasicBlock]
}

func (self *Loop) String() string {
    return fmt.Sprintf("loop(.%s, depth=%d, blocks=%d)", self.Header.Name, self.Depth, len(self.Blocks))
}

func (self *Loop) Contains(bb *BasicBlock) bool {
    return bb != nil && self.set.Contains(bb)
}

// ContainsInstr reports whether p currently sits in one of the loop blocks.
func (self *Loop) ContainsInstr(p *Instr) bool {
    return self.Contains(p.Block)
}

// OutsidePreds returns the predecessors of the header that are not part of
// the loop, in predecessor order.
func (self *Loop) OutsidePreds() []*BasicBlock {
    var ret []*BasicBlock
    for _, p := range self.Header.Pred {
        if !self.Contains(p) {
            ret = append(ret, p)
        }
    }
    return ret
}

// Preheader returns the canonical preheader: the only predecessor of the
// header outside the loop, whose only successor is the header. It returns
// nil when the loop has no such block.
func (self *Loop) Preheader() *BasicBlock {
    preds := self.OutsidePreds()
    if len(preds) != 1 {
        return nil
    }

    /* the preheader must flow into the header only */
    p := preds[0]
    for _, to := range p.Succs() {
        if to != self.Header {
            return nil
        }
    }

    /* it must also terminate properly */
    if p.Term == nil {
        return nil
    } else {
        return p
    }
}

// ExitBlocks returns the blocks outside the loop that are targeted from
// inside it, without duplicates, in discovery order.
func (self *Loop) ExitBlocks() []*BasicBlock {
    var ret []*BasicBlock
    seen := mapset.NewThreadUnsafeSet[*BasicBlock]()

    /* scan every edge leaving the loop */
    for _, bb := range self.Blocks {
        for _, to := range bb.Succs() {
            if !self.Contains(to) && seen.Add(to) {
                ret = append(ret, to)
            }
        }
    }
    return ret
}

// LoopForest is the set of natural loops of a function.
type LoopForest struct {
    Roots       []*Loop
    Irreducible [][]*BasicBlock
    Dom         *DominatorTree
    innermost   map[*BasicBlock]*Loop
}

// Of returns the innermost loop containing bb, or nil.
func (self *LoopForest) Of(bb *BasicBlock) *Loop {
    return self.innermost[bb]
}

// Empty reports whether the function has no loop at all.
func (self *LoopForest) Empty() bool {
    return len(self.Roots) == 0
}

// PostOrder lists every loop, children before their parent.
func (self *LoopForest) PostOrder() []*Loop {
    var ret []*Loop
    var walk func(*Loop)

    /* depth-first, children first */
    walk = func(l *Loop) {
        for _, c := range l.Children { walk(c) }
        ret = append(ret, l)
    }

    /* walk all the trees */
    for _, l := range self.Roots {
        walk(l)
    }
    return ret
}

// FindLoops discovers the natural loops of fn from its back edges, that is
// the edges going to a block that dominates their source.
func FindLoops(fn *Func) *LoopForest {
    ret := &LoopForest {
        innermost: make(map[*BasicBlock]*Loop),
    }

    /* no blocks, no loops */
    if fn.Entry() == nil {
        return ret
    }

    /* predecessor lists must be current */
    fn.Rebuild()

    /* block order, used to keep everything deterministic */
    pos := make(map[*BasicBlock]int, len(fn.Blocks))
    for i, bb := range fn.Blocks {
        pos[bb] = i
    }

    /* Phase 1: Find all the back edges, grouped by header */
    var heads []*BasicBlock
    dt := BuildDominatorTree(fn.Entry())
    latches := make(map[*BasicBlock][]*BasicBlock)

    /* scan every reachable block */
    for _, bb := range fn.Blocks {
        if dt.Reachable(bb) {
            for _, h := range bb.Succs() {
                if dt.Dominates(h, bb) {
                    if _, ok := latches[h]; !ok { heads = append(heads, h) }
                    latches[h] = append(latches[h], bb)
                }
            }
        }
    }

    /* headers in block order */
    sort.Slice(heads, func(i int, j int) bool {
        return pos[heads[i]] < pos[heads[j]]
    })

    /* Phase 2: Collect the body of each loop */
    loops := make([]*Loop, 0, len(heads))
    for _, h := range heads {
        loops = append(loops, naturalLoop(h, latches[h], dt, pos))
    }

    /* Phase 3: Nest the loops, the parent is the smallest enclosing loop */
    bysize := make([]*Loop, len(loops))
    copy(bysize, loops)
    sort.SliceStable(bysize, func(i int, j int) bool {
        return len(bysize[i].Blocks) < len(bysize[j].Blocks)
    })

    /* link each loop to its parent */
    for i, l := range bysize {
        for _, p := range bysize[i + 1:] {
            if p.Contains(l.Header) {
                l.Parent = p
                break
            }
        }
    }

    /* build the trees, in header order */
    for _, l := range loops {
        if l.Parent == nil {
            ret.Roots = append(ret.Roots, l)
        } else {
            l.Parent.Children = append(l.Parent.Children, l)
        }
    }

    /* assign the depths */
    for _, l := range loops {
        for p := l; p != nil; p = p.Parent {
            l.Depth++
        }
    }

    /* map every block to its innermost loop */
    for _, l := range bysize {
        for _, bb := range l.Blocks {
            if _, ok := ret.innermost[bb]; !ok {
                ret.innermost[bb] = l
            }
        }
    }

    /* Phase 4: Cyclic regions without a dominating header */
    for _, region := range NewGraph(fn).CyclicRegions() {
        if !coveredByLoop(region, loops) {
            ret.Irreducible = append(ret.Irreducible, region)
        }
    }

    /* all done */
    ret.Dom = dt
    return ret
}

func naturalLoop(h *BasicBlock, latches []*BasicBlock, dt *DominatorTree, pos map[*BasicBlock]int) *Loop {
    st := lane.NewStack()
    set := mapset.NewThreadUnsafeSet[*BasicBlock](h)

    /* walk backwards from the latches, stopping at the header */
    for _, bb := range latches {
        if set.Add(bb) {
            st.Push(bb)
        }
    }

    /* add every predecessor not seen yet */
    for !st.Empty() {
        bb := st.Pop().(*BasicBlock)
        for _, p := range bb.Pred {
            if dt.Reachable(p) && set.Add(p) {
                st.Push(p)
            }
        }
    }

    /* header first, then block order */
    blocks := set.ToSlice()
    sort.Slice(blocks, func(i int, j int) bool {
        if blocks[i] == h {
            return true
        } else if blocks[j] == h {
            return false
        } else {
            return pos[blocks[i]] < pos[blocks[j]]
        }
    })

    /* latches in block order */
    lt := make([]*BasicBlock, len(latches))
    copy(lt, latches)
    sort.Slice(lt, func(i int, j int) bool {
        return pos[lt[i]] < pos[lt[j]]
    })

    /* construct the loop */
    return &Loop {
        Header  : h,
        Blocks  : blocks,
        Latches : lt,
        set     : set,
    }
}

func coveredByLoop(region []*BasicBlock, loops []*Loop) bool {
    for _, l := range loops {
        covered := true
        for _, bb := range region {
            if !l.Contains(bb) {
                covered = false
                break
            }
        }
        if covered {
            return true
        }
    }
    return false
}
