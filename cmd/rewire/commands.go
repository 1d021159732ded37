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

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cloudwego/rewire"
	"github.com/cloudwego/rewire/internal/opts"
	"github.com/cloudwego/rewire/internal/xform"
	"github.com/cloudwego/rewire/ir"
	"github.com/cloudwego/rewire/irjson"
	"github.com/oleiade/lane"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type globalOptions struct {
	input           string
	format          string
	verbose         bool
	verify          bool
	loopSimplify    bool
	skipNoPreheader bool
}

func newRootCommand() *cobra.Command {
	var g globalOptions
	cmd := &cobra.Command{
		Use:           "rewire",
		Short:         "Rewrite functions of a JSON program",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Usage()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&g.input, "input", "i", "-", "JSON program to read, - for stdin")
	flags.StringVarP(&g.format, "format", "f", "text", "output format: text, json or dot")
	flags.BoolVarP(&g.verbose, "verbose", "v", false, "log every diagnostic record")
	flags.BoolVar(&g.verify, "verify", opts.Verify, "check use-lists before and after every pass")
	flags.BoolVar(&g.loopSimplify, "loop-simplify", opts.LoopSimplify, "insert preheaders before hoisting")
	flags.BoolVar(&g.skipNoPreheader, "skip-no-preheader", false, "skip loops without a preheader instead of failing")

	/* one command per pass */
	for _, p := range xform.Passes {
		if p.Name != "loops" {
			cmd.AddCommand(newPassCommand(&g, p))
		}
	}

	cmd.AddCommand(
		newPipelineCommand(&g),
		newLoopsCommand(&g),
		newVerifyCommand(&g),
		newDomCommand(&g),
	)
	return cmd
}

func (g *globalOptions) logger(cmd *cobra.Command) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(cmd.ErrOrStderr())
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	log.SetLevel(opts.LogLevel)
	if g.verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

func (g *globalOptions) load(cmd *cobra.Command) ([]*ir.Func, error) {
	var r io.Reader
	if g.input == "" || g.input == "-" {
		r = cmd.InOrStdin()
	} else {
		fp, err := os.Open(g.input)
		if err != nil {
			return nil, err
		}
		defer fp.Close()
		r = fp
	}

	fns, err := irjson.Decode(r)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", g.input)
	}
	return fns, nil
}

func (g *globalOptions) options(log logrus.FieldLogger, passes []string) []rewire.Option {
	return []rewire.Option{
		rewire.WithVerify(g.verify),
		rewire.WithLoopSimplify(g.loopSimplify),
		rewire.WithSkipNoPreheader(g.skipNoPreheader),
		rewire.WithSink(rewire.LogSink(log, logrus.DebugLevel)),
		rewire.WithPasses(passes...),
	}
}

func (g *globalOptions) print(w io.Writer, fns []*ir.Func) error {
	switch g.format {
	case "json":
		return irjson.Encode(w, fns...)
	case "dot":
		for _, fn := range fns {
			fmt.Fprintln(w, ir.DOT(fn, ir.FindLoops(fn)))
		}
		return nil
	case "text":
		for _, fn := range fns {
			fmt.Fprintln(w, fn)
		}
		return nil
	default:
		return errors.Errorf("unknown output format %q", g.format)
	}
}

func (g *globalOptions) run(cmd *cobra.Command, passes []string) error {
	log := g.logger(cmd)
	fns, err := g.load(cmd)
	if err != nil {
		return err
	}

	for _, fn := range fns {
		changed, err := rewire.Optimize(fn, g.options(log, passes)...)
		if err != nil {
			log.WithError(err).WithField("function", fn.Name).Error("rewrite failed")
			return err
		}
		log.WithField("function", fn.Name).Infof("changed: %t", changed)
	}
	return g.print(cmd.OutOrStdout(), fns)
}

func newPassCommand(g *globalOptions, p xform.PassDescriptor) *cobra.Command {
	return &cobra.Command{
		Use:   p.Name,
		Short: "Run " + p.Desc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(cmd, []string{p.Name})
		},
	}
}

func newPipelineCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pipeline [PASS...]",
		Short: fmt.Sprintf("Run several passes in order (default %q)", strings.Join(opts.Passes, ",")),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = opts.Passes
			}
			for _, name := range args {
				if _, ok := xform.Lookup(name); !ok {
					return errors.Errorf("unknown pass %q", name)
				}
			}
			return g.run(cmd, args)
		},
	}
}

func newLoopsCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "loops",
		Short: "Print the loop nest of every function",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fns, err := g.load(cmd)
			if err != nil {
				return err
			}
			for _, fn := range fns {
				for _, r := range rewire.ReportLoops(fn) {
					fmt.Fprintf(cmd.OutOrStdout(), "@%s: Loop Level %d has %d blocks (.%s)\n", fn.Name, r.Depth, r.Blocks, r.Header)
				}
			}
			return nil
		},
	}
}

func newVerifyCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the use-lists of every function",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fns, err := g.load(cmd)
			if err != nil {
				return err
			}
			for _, fn := range fns {
				if err = ir.Verify(fn); err != nil {
					return errors.Wrapf(err, "function %s", fn.Name)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "@%s: ok\n", fn.Name)
			}
			return nil
		},
	}
}

func newDomCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dom",
		Short: "Print the immediate dominator of every reachable block",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fns, err := g.load(cmd)
			if err != nil {
				return err
			}
			for _, fn := range fns {
				if fn.Entry() == nil {
					continue
				}
				dt := ir.BuildDominatorTree(fn.Entry())
				for _, bb := range dominatorsFirst(dt) {
					idom := "-"
					if d := dt.DominatedBy[bb.Id]; d != nil {
						idom = "." + d.Name
					}
					fmt.Fprintf(cmd.OutOrStdout(), "@%s: .%s <- %s\n", fn.Name, bb.Name, idom)
				}
			}
			return nil
		},
	}
}

// dominatorsFirst lists the reachable blocks in pre-order over the dominator
// tree, so every block comes after its immediate dominator.
func dominatorsFirst(dt *ir.DominatorTree) []*ir.BasicBlock {
	var ret []*ir.BasicBlock
	st := lane.NewStack()
	st.Push(dt.Root)

	for !st.Empty() {
		bb := st.Pop().(*ir.BasicBlock)
		ret = append(ret, bb)

		/* first child on top */
		kids := dt.DominatorOf[bb.Id]
		for i := len(kids) - 1; i >= 0; i-- {
			st.Push(kids[i])
		}
	}
	return ret
}
