// Copyright (c) 2024 The Falcon Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.
package main

import (
	"flag"
	"fmt"
	"os"

	"chococ/backend"
	"chococ/dialect/riscv"
	"chococ/frontend"
	"chococ/ir"
	"chococ/lower"
	"chococ/transform"

	"github.com/fatih/color"
)

// stopAfter names a pipeline stopping point, per spec.md section 6's CLI
// surface: the driver runs the pipeline up to and including the named
// stage, then emits whatever that stage produced.
type stopAfter string

const (
	stopType  stopAfter = "type"
	stopWarn  stopAfter = "warn"
	stopIR    stopAfter = "ir"
	stopFold  stopAfter = "fold"
	stopRISCV stopAfter = "riscv"
	stopAll   stopAfter = "all"
)

func main() {
	stopFlag := flag.String("stop-after", string(stopAll), "pipeline stopping point: type, warn, ir, fold, riscv, all")
	emitFlag := flag.String("emit", "riscv", "output format: riscv (assembly) or mlir (IR dump)")
	debug := flag.Bool("debug", false, "trace each pass to stderr")
	out := flag.String("o", "", "output destination (default: stdout)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Println("Usage: chococ [flags] source.py")
		flag.PrintDefaults()
		os.Exit(1)
	}
	source, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		color.Red("error: %s", err)
		os.Exit(1)
	}

	dst := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			color.Red("error: %s", err)
			os.Exit(1)
		}
		defer f.Close()
		dst = f
	}

	d := &driver{stop: stopAfter(*stopFlag), emit: *emitFlag, debug: *debug, out: dst}
	d.run(string(source))
}

// driver carries the pipeline's shared flags across its stages, the same
// "Debug bool field gates a fmt trace" pattern falcon's own passes use.
type driver struct {
	stop  stopAfter
	emit  string
	debug bool
	out   *os.File
}

func (d *driver) trace(stage string) {
	if d.debug {
		fmt.Fprintf(os.Stderr, "[chococ] completed %s\n", stage)
	}
}

// run drives the pipeline to the requested stopping point. Per spec.md
// section 6's documented quirk, a SyntaxError or SemanticError prints its
// message and the process still exits 0 -- only an internal invariant
// failure (surfaced as a panic via utils.Fatal/Assert) should produce a
// non-zero exit, and those propagate and crash the process rather than
// being caught here.
func (d *driver) run(source string) {
	m := ir.NewModule()
	prog, err := frontend.Parse(m, source)
	if err != nil {
		d.reportUserError(err)
		return
	}
	d.trace("type")
	if d.stop == stopType {
		fmt.Fprintln(d.out, ir.Print(m))
		return
	}

	if err := lower.ValidateAssignTargets(m); err != nil {
		d.reportUserError(err)
		return
	}
	d.trace("warn")
	if d.stop == stopWarn {
		fmt.Fprintln(d.out, ir.Print(m))
		return
	}

	flatModule, err := lower.LowerProgram(prog)
	if err != nil {
		d.reportUserError(err)
		return
	}
	transform.IntroduceLibraryCalls(flatModule)
	transform.ExpandForLoops(flatModule)
	d.trace("ir")
	if d.stop == stopIR {
		fmt.Fprintln(d.out, ir.Print(flatModule))
		return
	}

	transform.ConstantFold(flatModule)
	transform.DeadCodeEliminate(flatModule)
	d.trace("fold")
	if d.stop == stopFold {
		fmt.Fprintln(d.out, ir.Print(flatModule))
		return
	}

	instrs := backend.Compile(flatModule)
	d.trace("riscv")

	if d.emit == "mlir" {
		fmt.Fprintln(d.out, ir.Print(flatModule))
		return
	}
	fmt.Fprintln(d.out, riscv.PrintAssembly(instrs))
}

// reportUserError prints a SyntaxError or SemanticError the way a test
// harness expects: one colored line on d.out, exit code 0.
func (d *driver) reportUserError(err error) {
	color.New(color.FgRed).Fprintln(d.out, err)
}
