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

package lower

import (
	"fmt"

	"chococ/dialect/ast"
	"chococ/ir"
)

// ValidateAssignTargets walks every assign operation in module and reports a
// SemanticError if its target is anything other than a name or an index
// expression. The frontend's parser already restricts targets grammatically
// to these two shapes; this pass re-checks the IR directly so a module built
// or rewritten by some other path still gets the same guarantee, grounded on
// check_assign_target.py's visit_assign.
func ValidateAssignTargets(module *ir.Module) error {
	return walkOps(module.Body, func(op *ir.Operation) error {
		if op.Kind != ast.KindAssign {
			return nil
		}
		if !ast.AssignIsIndexTarget(op) {
			if ast.AssignTargetName(op) == "" {
				return fmt.Errorf("SemanticError: assignment target must be a variable name or index expression")
			}
		}
		return nil
	})
}

func walkOps(r *ir.Region, fn func(*ir.Operation) error) error {
	for _, op := range r.Entry().Ops {
		if err := fn(op); err != nil {
			return err
		}
		for _, sub := range op.Regions {
			if err := walkOps(sub, fn); err != nil {
				return err
			}
		}
	}
	return nil
}
