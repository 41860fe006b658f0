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
package ir

import (
	"fmt"
	"strings"
)

// Print renders module as a debug IR dump: each operation with its result
// values, operand references, attribute dictionary and nested regions in
// braces. Round-trip is not required (spec.md section 6).
func Print(module *Module) string {
	var b strings.Builder
	printRegion(&b, module.Body, 0)
	return b.String()
}

func printRegion(b *strings.Builder, r *Region, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, blk := range r.Blocks {
		if len(blk.Args) > 0 {
			args := make([]string, len(blk.Args))
			for i, a := range blk.Args {
				args[i] = fmt.Sprintf("%s: %s", a.String(), a.Type.String())
			}
			fmt.Fprintf(b, "%s^bb%d(%s):\n", indent, blk.ID(), strings.Join(args, ", "))
		}
		for _, op := range blk.Ops {
			printOp(b, op, depth)
		}
	}
}

func printOp(b *strings.Builder, op *Operation, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%s%s\n", indent, op.String())
	for _, r := range op.Regions {
		fmt.Fprintf(b, "%s{\n", indent)
		printRegion(b, r, depth+1)
		fmt.Fprintf(b, "%s}\n", indent)
	}
}
