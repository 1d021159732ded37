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
    `html`
    `strings`

    `github.com/oleiade/lane`
)

func dotrow(ss string) string {
    vv := strings.ReplaceAll(html.EscapeString(ss), " ", "&nbsp;")
    return fmt.Sprintf("<tr><td align=\"left\">%s</td></tr>\n", vv)
}

func dotblock(bb *BasicBlock, lf *LoopForest) string {
    var w int
    var ins []string
    var pred []string

    /* instructions, including the terminator */
    lines := make([]string, 0, len(bb.Ins) + 1)
    for _, v := range bb.Ins { lines = append(lines, v.String()) }
    if bb.Term != nil { lines = append(lines, bb.Term.String()) }

    /* dump every line */
    for _, ss := range lines {
        ins = append(ins, dotrow(ss))
        if len(ss) > w {
            w = len(ss)
        }
    }

    /* predecessors */
    for _, d := range bb.Pred {
        pred = append(pred, "." + d.Name)
    }

    /* immediate dominator */
    idomby := "∅"
    if d := lf.Dom.DominatedBy[bb.Id]; d != nil {
        idomby = "." + d.Name
    }

    /* innermost loop */
    loop := "-"
    if l := lf.Of(bb); l != nil {
        loop = fmt.Sprintf(".%s (depth %d)", l.Header.Name, l.Depth)
    }

    /* block metadata */
    meta := []string {
        fmt.Sprintf("# pred = {%s}", strings.Join(pred, ", ")),
        fmt.Sprintf("# idom_by = %s", idomby),
        fmt.Sprintf("# loop = %s", loop),
    }

    /* dump the metadata */
    for i, ss := range meta {
        meta[i] = dotrow(ss)
        if len(ss) > w {
            w = len(ss)
        }
    }

    /* build the table */
    buf := []string {
        "<table border=\"1\" cellborder=\"0\" cellspacing=\"0\">\n",
        fmt.Sprintf("<tr><td width=\"%d\">.%s</td></tr>\n", w * 10 + 5, html.EscapeString(bb.Name)),
        "<hr/>\n",
    }

    /* add all the sections */
    buf = append(buf, meta...)
    if len(ins) != 0 {
        buf = append(buf, "<hr/>\n")
        buf = append(buf, ins...)
    }

    /* close the table */
    buf = append(buf, "</table>")
    return strings.Join(buf, "")
}

// DOT renders the blocks of fn reachable from the entry as a Graphviz graph,
// annotated with predecessors, immediate dominators and loop membership.
func DOT(fn *Func, lf *LoopForest) string {
    q := lane.NewQueue()
    n := make(map[int]bool)
    e := make(map[[2]int]bool)

    /* graph header */
    buf := []string {
        fmt.Sprintf("digraph %q {", fn.Name),
        `    graph [ fontname = "Fira Code" ]`,
        `    node [ fontname = "Fira Code" fontsize="16" shape = "plaintext" ]`,
        `    edge [ fontname = "Fira Code" ]`,
    }

    /* empty function */
    if fn.Entry() == nil {
        return strings.Join(append(buf, "}"), "\n")
    }

    /* entry edge */
    buf = append(buf,
        `    START [ shape = "circle" ]`,
        fmt.Sprintf(`    START -> bb_%d`, fn.Entry().Id),
    )

    /* breadth-first over the reachable blocks */
    n[fn.Entry().Id] = true
    for q.Enqueue(fn.Entry()); !q.Empty(); {
        p := q.Dequeue().(*BasicBlock)
        buf = append(buf, fmt.Sprintf(`    bb_%d [ label = < %s > ]`, p.Id, dotblock(p, lf)))

        /* label the edges */
        for i, ln := range p.Succs() {
            if !n[ln.Id] {
                n[ln.Id] = true
                q.Enqueue(ln)
            }

            /* back edges are drawn dashed */
            style := ""
            if lf.Dom.Dominates(ln, p) {
                style = ` style = "dashed"`
            }

            /* add each edge once */
            edge := [2]int { p.Id, ln.Id }
            if !e[edge] {
                e[edge] = true
                switch {
                    case p.Term.Op == OpJump : buf = append(buf, fmt.Sprintf(`    bb_%d -> bb_%d [ label = "goto"%s ]`, p.Id, ln.Id, style))
                    case i == 0              : buf = append(buf, fmt.Sprintf(`    bb_%d -> bb_%d [ label = "true"%s ]`, p.Id, ln.Id, style))
                    default                  : buf = append(buf, fmt.Sprintf(`    bb_%d -> bb_%d [ label = "false"%s ]`, p.Id, ln.Id, style))
                }
            }
        }
    }

    /* close the graph */
    buf = append(buf, "}")
    return strings.Join(buf, "\n")
}
