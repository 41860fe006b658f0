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
package backend_test

import (
	"strconv"
	"strings"
	"testing"

	"chococ/backend"
	"chococ/dialect/riscv"
	"chococ/frontend"
	"chococ/ir"
	"chococ/lower"
	"chococ/transform"

	"github.com/stretchr/testify/require"
)

// compile runs the full driver pipeline used by main.go, short of writing
// anything to a file, and returns the emitted assembly text.
func compile(t *testing.T, source string) string {
	t.Helper()
	m := ir.NewModule()
	prog, err := frontend.Parse(m, source)
	require.NoError(t, err)
	require.NoError(t, lower.ValidateAssignTargets(m))
	flatModule, err := lower.LowerProgram(prog)
	require.NoError(t, err)
	transform.IntroduceLibraryCalls(flatModule)
	transform.ExpandForLoops(flatModule)
	transform.ConstantFold(flatModule)
	transform.DeadCodeEliminate(flatModule)
	instrs := backend.Compile(flatModule)
	return riscv.PrintAssembly(instrs)
}

// TestScenarioS1ArithmeticAndPrint covers spec.md scenario S1: `print(1+2)`
// ends with the fixed exit sequence and includes the _print_int routine.
func TestScenarioS1ArithmeticAndPrint(t *testing.T) {
	asm := compile(t, "print(1 + 2)\n")
	require.Contains(t, asm, "_print_int:")
	require.Contains(t, asm, "jal ra, _main")
	require.Contains(t, asm, "li a7, 93")
	require.Contains(t, asm, "ecall")
}

// TestScenarioS2ListConcat covers spec.md scenario S2: a `+` between two
// list values must route through _list_concat.
func TestScenarioS2ListConcat(t *testing.T) {
	asm := compile(t, "xs:[int] = [1, 2] + [3]\nprint(len(xs))\n")
	require.Contains(t, asm, "_list_concat:")
	require.Contains(t, asm, "jal ra, _list_concat")
}

// TestScenarioS3ShortCircuit covers spec.md scenario S3: `x or divzero()`
// must still call divzero from inside a branch the allocator reaches,
// and the branch skipping that call must exist (the short-circuit skip
// label), proving the call is conditionally, not unconditionally, reached.
func TestScenarioS3ShortCircuit(t *testing.T) {
	asm := compile(t, "def divzero()->int:\n    return 1 // 0\nx:bool = True\nif x or divzero() == 1:\n    pass\n")
	require.Contains(t, asm, "divzero:")
	require.Contains(t, asm, "jal ra, divzero")
	require.Contains(t, asm, "_short_circuit")
}

// manyAssignments builds a function body with n sequential `total = total +
// 1` statements, each contributing fresh live SSA values (a literal and a
// binary_expr result) to the allocator's frame, to either side of the
// spill-slot limit.
func manyAssignments(n int) string {
	var b strings.Builder
	b.WriteString("def many()->int:\n")
	b.WriteString("    total:int = 0\n")
	for i := 0; i < n; i++ {
		b.WriteString("    total = total + 1\n")
	}
	b.WriteString("    return total\n")
	b.WriteString("print(many())\n")
	return b.String()
}

// TestScenarioS6SpillLimitTerminatesWithBackendLimitError covers spec.md
// scenario S6: a function with ~130 live SSA values must terminate with
// BackendLimitError rather than silently emit a truncated stack offset.
func TestScenarioS6SpillLimitTerminatesWithBackendLimitError(t *testing.T) {
	source := manyAssignments(130)

	var limitErr backend.BackendLimitError
	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r, "expected lowerFunction to panic with BackendLimitError")
			err, ok := r.(backend.BackendLimitError)
			require.True(t, ok, "panic value must be a backend.BackendLimitError, got %T: %v", r, r)
			limitErr = err
		}()
		compile(t, source)
	}()
	require.Equal(t, "many", limitErr.Func)
	require.Greater(t, limitErr.Slots, int32(128))
}

// TestScenarioS6SpillWithinLimitCompiles covers the other half of S6's
// requirement ("either compile successfully... or terminate with
// BackendLimitError"): a function comfortably inside the slot limit must
// compile without panicking and keep every addi immediate within the 12-bit
// signed range the physical encoding requires.
func TestScenarioS6SpillWithinLimitCompiles(t *testing.T) {
	asm := compile(t, manyAssignments(40))
	require.Contains(t, asm, "many:")
	for _, line := range strings.Split(asm, "\n") {
		if !strings.Contains(line, "addi") {
			continue
		}
		require.NotContains(t, line, "e+", "immediate must not have overflowed into scientific notation")
		instr := strings.TrimSpace(strings.SplitN(line, "#", 2)[0])
		if !strings.HasPrefix(instr, "addi ") {
			continue
		}
		fields := strings.Split(instr, ",")
		imm, err := strconv.Atoi(strings.TrimSpace(fields[len(fields)-1]))
		require.NoError(t, err, "addi immediate must be an integer: %q", line)
		require.True(t, imm >= -2048 && imm <= 2047, "addi immediate %d outside the 12-bit signed range: %q", imm, line)
	}
}
