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
    `sort`

    `gonum.org/v1/gonum/graph`
    `gonum.org/v1/gonum/graph/simple`
    `gonum.org/v1/gonum/graph/topo`
)

// Graph is the control-flow graph of a function seen as a gonum directed
// graph. Node IDs are block IDs. simple.DirectedGraph rejects self-loops, so
// those are kept on the side.
type Graph struct {
    *simple.DirectedGraph
    fn     *Func
    blocks map[int64]*BasicBlock
    loops  map[int64]bool
}

// NewGraph exports the blocks of fn reachable from the entry.
func NewGraph(fn *Func) *Graph {
    g := &Graph {
        DirectedGraph : simple.NewDirectedGraph(),
        fn            : fn,
        blocks        : make(map[int64]*BasicBlock),
        loops         : make(map[int64]bool),
    }

    /* nothing to export */
    if fn.Entry() == nil {
        return g
    }

    /* breadth-first over the reachable blocks */
    q := []*BasicBlock { fn.Entry() }
    g.addBlock(fn.Entry())

    /* add every edge */
    for len(q) != 0 {
        bb := q[0]
        q = q[1:]

        /* link the successors */
        for _, to := range bb.Succs() {
            if g.Node(int64(to.Id)) == nil {
                g.addBlock(to)
                q = append(q, to)
            }
            if to == bb {
                g.loops[int64(bb.Id)] = true
            } else {
                g.SetEdge(simple.Edge { F: simple.Node(bb.Id), T: simple.Node(to.Id) })
            }
        }
    }
    return g
}

func (self *Graph) addBlock(bb *BasicBlock) {
    self.AddNode(simple.Node(bb.Id))
    self.blocks[int64(bb.Id)] = bb
}

// Block maps a graph node back to its block.
func (self *Graph) Block(n graph.Node) *BasicBlock {
    return self.blocks[n.ID()]
}

// CyclicRegions returns the maximal strongly connected regions that contain
// at least one cycle, each sorted in function block order.
func (self *Graph) CyclicRegions() [][]*BasicBlock {
    var ret [][]*BasicBlock
    pos := make(map[*BasicBlock]int, len(self.fn.Blocks))

    /* block order of the function */
    for i, bb := range self.fn.Blocks {
        pos[bb] = i
    }

    /* find all the SCCs */
    for _, scc := range topo.TarjanSCC(self.DirectedGraph) {
        if len(scc) == 1 && !self.loops[scc[0].ID()] {
            continue
        }

        /* convert to blocks */
        region := make([]*BasicBlock, 0, len(scc))
        for _, n := range scc {
            region = append(region, self.Block(n))
        }

        /* sort by block order */
        sort.Slice(region, func(i int, j int) bool {
            return pos[region[i]] < pos[region[j]]
        })

        /* add to result */
        ret = append(ret, region)
    }

    /* deterministic region order */
    sort.Slice(ret, func(i int, j int) bool {
        return pos[ret[i][0]] < pos[ret[j][0]]
    })
    return ret
}
