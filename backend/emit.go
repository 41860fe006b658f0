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

package backend

import (
	"chococ/dialect/riscv"
	"chococ/dialect/riscvssa"
	"chococ/ir"
)

// Compile runs C7 (Flat->riscv_ssa lowering) then C8 (register allocation
// and riscv_ssa->riscv emission) and flattens every function plus the
// runtime routines into the single top-level instruction stream the
// printer expects, grounded on function_lowering.py's FunctionPattern
// (inline each func body under its label) and its `jal ra, _main` entry
// prologue.
func Compile(flatModule *ir.Module) []*ir.Operation {
	riscvSSA := LowerModule(flatModule)
	physical := ir.NewModule()

	var instrs []*ir.Operation
	instrs = append(instrs, riscv.NewJal(physical, riscv.RA, "_main", "program entry"))
	// The compiled program always exits 0, regardless of how _main returns,
	// matching register_allocation.py's exit_ops; only the runtime error
	// traps exit 1.
	instrs = append(instrs, riscv.NewLi(physical, riscv.A(0), 0, ""))
	instrs = append(instrs, riscv.NewLi(physical, riscv.A(7), syscallExit, ""))
	instrs = append(instrs, riscv.NewEcall(physical, "exit(0)"))

	for _, fn := range riscvSSA.Body.Entry().Ops {
		if fn.Kind != riscvssa.KindFunc {
			continue
		}
		instrs = append(instrs, lowerFunction(physical, fn)...)
	}

	instrs = append(instrs, printInt(physical)...)
	instrs = append(instrs, printBool(physical)...)
	instrs = append(instrs, printStr(physical)...)
	instrs = append(instrs, readInput(physical)...)
	instrs = append(instrs, listConcat(physical)...)
	instrs = append(instrs, strEq(physical)...)

	// The four mandatory runtime traps, grounded on register_allocation.py's
	// add_print_error call sites and their exact messages: each one prints
	// and exits(1), never returning.
	instrs = append(instrs, printError(physical, trapLenNone, "TypeError: object of type 'NoneType' has no len()")...)
	instrs = append(instrs, printError(physical, trapListIndexOOB, "IndexError: list index out of range")...)
	instrs = append(instrs, printError(physical, trapListIndexNone, "TypeError: 'NoneType' object is not subscriptable")...)
	instrs = append(instrs, printError(physical, trapDivZero, "DivByZero: Division by zero")...)

	return instrs
}
