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

import "fmt"

// VerifyError wraps a single operation's verification failure.
type VerifyError struct {
	Op      *Operation
	Message string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("IRVerificationError: %s: %s", e.Op.Kind.String(), e.Message)
}

// VerifyFunc is one operation kind's local verification predicate.
type VerifyFunc func(*Operation) error

var verifiers = map[OpKind]VerifyFunc{}

// RegisterVerifier installs the verification predicate for kind. Dialects
// call this from an init() function.
func RegisterVerifier(kind OpKind, fn VerifyFunc) {
	verifiers[kind] = fn
}

// Verify walks module invoking every operation's registered predicate
// (operations with no registered predicate are assumed trivially valid),
// recursing into nested regions.
func Verify(module *Module) error {
	return verifyRegion(module.Body)
}

func verifyRegion(r *Region) error {
	for _, b := range r.Blocks {
		for _, op := range b.Ops {
			if fn, ok := verifiers[op.Kind]; ok {
				if err := fn(op); err != nil {
					return err
				}
			}
			for _, nested := range op.Regions {
				if err := verifyRegion(nested); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// CheckDefUseConsistency recomputes the use-multiset by scanning every
// operand position and compares it against each value's recorded Uses,
// per testable property 1.
func CheckDefUseConsistency(module *Module) error {
	expected := map[*Value]int{}
	walkCountOperands(module.Body, expected)
	seen := map[*Value]int{}
	walkCollectDefs(module.Body, seen)
	for v := range seen {
		if len(v.Uses) != expected[v] {
			return fmt.Errorf("def-use mismatch on %s: recorded %d uses, scan found %d", v.String(), len(v.Uses), expected[v])
		}
	}
	for v, want := range expected {
		if len(v.Uses) != want {
			return fmt.Errorf("def-use mismatch on %s: recorded %d uses, scan found %d", v.String(), len(v.Uses), want)
		}
	}
	return nil
}

func walkCountOperands(r *Region, counts map[*Value]int) {
	for _, b := range r.Blocks {
		for _, op := range b.Ops {
			for _, operand := range op.Operands {
				counts[operand]++
			}
			for _, nested := range op.Regions {
				walkCountOperands(nested, counts)
			}
		}
	}
}

func walkCollectDefs(r *Region, seen map[*Value]int) {
	for _, b := range r.Blocks {
		for _, arg := range b.Args {
			seen[arg] = 1
		}
		for _, op := range b.Ops {
			for _, res := range op.Results {
				seen[res] = 1
			}
			for _, nested := range op.Regions {
				walkCollectDefs(nested, seen)
			}
		}
	}
}
