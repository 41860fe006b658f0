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

// Package lower implements AST->Flat lowering (C5): translating the typed
// source AST into flat SSA with explicit allocs/loads/stores. Grounded on
// _examples/original_source/choco/choco_ast_to_choco_flat.py.
package lower

import (
	"fmt"

	"chococ/attr"
	"chococ/dialect/ast"
	"chococ/dialect/flat"
	"chococ/ir"
	"chococ/types"
	"chococ/utils"
)

// ctx is the naming context: a stack-scoped mapping from source identifier
// to its governing SSA value (a memloc), chained to a parent by reference
// so that a child scope's writes never mutate the parent (see the design
// note "scoped naming context... singly-linked chain of scope records").
type ctx struct {
	parent *ctx
	vars   map[string]*ir.Value
}

func newCtx(parent *ctx) *ctx { return &ctx{parent: parent, vars: map[string]*ir.Value{}} }

func (c *ctx) lookup(name string) (*ir.Value, bool) {
	for s := c; s != nil; s = s.parent {
		if v, ok := s.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

func (c *ctx) bind(name string, v *ir.Value) { c.vars[name] = v }

// Lowerer holds the target module and the destination block currently being
// appended to during translation.
type Lowerer struct {
	m   *ir.Module
	blk *ir.Block
}

// LowerProgram translates an ast.Program into a flat module: a synthesized
// func_def "_main" holding the program's var-defs and top-level statements,
// followed by one func_def per source function definition.
func LowerProgram(prog *ir.Operation) (*ir.Module, error) {
	out := ir.NewModule()
	defsRegion, stmtsRegion := prog.Regions[0], prog.Regions[1]

	mainFn := flat.NewFuncDef(out, "_main", nil, types.NoneType())
	out.Body.Entry().Append(mainFn)
	l := &Lowerer{m: out, blk: flat.FuncDefBody(mainFn)}
	topCtx := newCtx(nil)

	var funcDefs []*ir.Operation
	for _, op := range defsRegion.Entry().Ops {
		switch op.Kind {
		case ast.KindVarDef:
			if err := l.lowerVarDef(topCtx, op); err != nil {
				return nil, err
			}
		case ast.KindFuncDef:
			funcDefs = append(funcDefs, op)
		case ast.KindGlobalDecl, ast.KindNonlocalDecl:
			// discarded: writes to outer-scope memlocs already express the
			// semantics (spec.md's "Global declarations" note).
		}
	}

	for _, op := range stmtsRegion.Entry().Ops {
		if err := l.lowerStmt(topCtx, op); err != nil {
			return nil, err
		}
	}
	retNone := flat.NewLiteral(out, types.NoneType(), attr.NoneAttr{})
	l.blk.Append(retNone)
	l.blk.Append(flat.NewReturn(out, retNone.Result()))

	for _, fd := range funcDefs {
		if err := l.lowerFuncDef(topCtx, fd); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (l *Lowerer) lowerFuncDef(parent *ctx, fd *ir.Operation) error {
	name := ast.FuncDefName(fd)
	paramNames := ast.FuncDefParamNames(fd)
	paramTypes := ast.FuncDefParamTypes(fd)
	retType := ast.FuncDefRetType(fd)

	flatFn := flat.NewFuncDef(l.m, name, paramTypes, retType)
	l.m.Body.Entry().Append(flatFn)
	body := flat.FuncDefBody(flatFn)
	saved := l.blk
	l.blk = body
	fnCtx := newCtx(parent)

	// For each parameter, insert at function entry: alloc for its declared
	// type, then store of the incoming block argument. The block argument
	// has no other uses at this point, so no use rewriting is done; the
	// body reads the parameter through the alloc's memloc.
	for i, pt := range paramTypes {
		allocOp := flat.NewAlloc(l.m, pt)
		l.blk.Append(allocOp)
		storeOp := flat.NewStore(l.m, allocOp.Result(), body.Args[i])
		l.blk.Append(storeOp)
		fnCtx.bind(paramNames[i], allocOp.Result())
	}

	defsRegion, stmtsRegion := ast.FuncDefBody(fd)
	for _, op := range defsRegion.Ops {
		if op.Kind == ast.KindVarDef {
			if err := l.lowerVarDef(fnCtx, op); err != nil {
				return err
			}
		}
	}
	for _, op := range stmtsRegion.Ops {
		if err := l.lowerStmt(fnCtx, op); err != nil {
			return err
		}
	}
	if len(l.blk.Ops) == 0 || l.blk.Ops[len(l.blk.Ops)-1].Kind != flat.KindReturn {
		noneLit := flat.NewLiteral(l.m, types.NoneType(), attr.NoneAttr{})
		l.blk.Append(noneLit)
		l.blk.Append(flat.NewReturn(l.m, noneLit.Result()))
	}
	l.blk = saved
	return nil
}

func (l *Lowerer) lowerVarDef(c *ctx, op *ir.Operation) error {
	name := ast.VarDefName(op)
	varType := ast.VarDefType(op)
	initValue, err := l.lowerExprLoaded(c, op.Operands[0])
	if err != nil {
		return err
	}
	allocOp := flat.NewAlloc(l.m, varType)
	l.blk.Append(allocOp)
	l.blk.Append(flat.NewStore(l.m, allocOp.Result(), initValue))
	c.bind(name, allocOp.Result())
	return nil
}

func (l *Lowerer) lowerStmt(c *ctx, op *ir.Operation) error {
	switch op.Kind {
	case ast.KindPass:
		return nil
	case ast.KindReturn:
		var v *ir.Value
		var err error
		if len(op.Operands) == 0 {
			// bare `return`: synthesize a None literal (the original's
			// translate_return behavior).
			lit := flat.NewLiteral(l.m, types.NoneType(), attr.NoneAttr{})
			l.blk.Append(lit)
			v = lit.Result()
		} else {
			v, err = l.lowerExprLoaded(c, op.Operands[0])
			if err != nil {
				return err
			}
		}
		l.blk.Append(flat.NewReturn(l.m, v))
		return nil
	case ast.KindAssign:
		return l.lowerAssign(c, op)
	case ast.KindIf:
		return l.lowerIf(c, op)
	case ast.KindWhile:
		return l.lowerWhile(c, op)
	case ast.KindFor:
		return l.lowerFor(c, op)
	case ast.KindGlobalDecl, ast.KindNonlocalDecl:
		return nil
	case ast.KindCallExpr:
		_, err := l.lowerExpr(c, op.Result(), false)
		return err
	default:
		utils.Unimplement()
		return nil
	}
}

// split_multi_assign: a chain `a = b = expr` is represented here as nested
// Assign operations (outer wraps inner as its value operand); compute the
// value ONCE by walking to the innermost Assign's real value expression,
// then emit one store per target, outermost first.
func (l *Lowerer) lowerAssign(c *ctx, op *ir.Operation) error {
	var targets []*ir.Operation
	cur := op
	for cur.Kind == ast.KindAssign {
		targets = append(targets, cur)
		valOperand := ast.AssignValue(cur)
		if valOperand.Def != nil && valOperand.Def.Kind == ast.KindAssign {
			cur = valOperand.Def
			continue
		}
		break
	}
	valueExpr := ast.AssignValue(targets[len(targets)-1])
	value, err := l.lowerExprLoaded(c, valueExpr)
	if err != nil {
		return err
	}
	for _, t := range targets {
		if ast.AssignIsIndexTarget(t) {
			base, err := l.lowerExprLoaded(c, t.Operands[0])
			if err != nil {
				return err
			}
			index, err := l.lowerExprLoaded(c, t.Operands[1])
			if err != nil {
				return err
			}
			addrOp := flat.NewGetAddress(l.m, base, index, value.Type)
			l.blk.Append(addrOp)
			l.blk.Append(flat.NewStore(l.m, addrOp.Result(), value))
		} else {
			name := ast.AssignTargetName(t)
			memloc, ok := c.lookup(name)
			if !ok {
				return fmt.Errorf("SemanticError: assignment to undeclared identifier %q", name)
			}
			l.blk.Append(flat.NewStore(l.m, memloc, value))
		}
	}
	return nil
}

func (l *Lowerer) lowerIf(c *ctx, op *ir.Operation) error {
	cond, err := l.lowerExprLoaded(c, op.Operands[0])
	if err != nil {
		return err
	}
	ifOp, thenR, elseR := flat.NewIf(l.m, cond)
	l.blk.Append(ifOp)
	saved := l.blk
	l.blk = thenR.Entry()
	for _, s := range op.Regions[0].Entry().Ops {
		if err := l.lowerStmt(c, s); err != nil {
			return err
		}
	}
	l.blk = elseR.Entry()
	for _, s := range op.Regions[1].Entry().Ops {
		if err := l.lowerStmt(c, s); err != nil {
			return err
		}
	}
	l.blk = saved
	return nil
}

func (l *Lowerer) lowerWhile(c *ctx, op *ir.Operation) error {
	whileOp, condR, bodyR := flat.NewWhile(l.m)
	l.blk.Append(whileOp)
	saved := l.blk
	l.blk = condR.Entry()
	cond, err := l.lowerExprLoaded(c, op.Operands[0])
	if err != nil {
		return err
	}
	l.blk.Append(flat.NewYield(l.m, cond))
	l.blk = bodyR.Entry()
	for _, s := range op.Regions[0].Entry().Ops {
		if err := l.lowerStmt(c, s); err != nil {
			return err
		}
	}
	l.blk = saved
	return nil
}

func (l *Lowerer) lowerFor(c *ctx, op *ir.Operation) error {
	iterName := ast.ForIterName(op)
	iterable, err := l.lowerExprLoaded(c, op.Operands[0])
	if err != nil {
		return err
	}
	elemType := types.Object()
	if iterable.Type.IsList() {
		elemType = *iterable.Type.Elem
	} else if iterable.Type.IsStr() {
		elemType = types.Str()
	}
	allocOp := flat.NewAlloc(l.m, elemType)
	l.blk.Append(allocOp)
	c.bind(iterName, allocOp.Result())

	forOp, bodyR := flat.NewFor(l.m, allocOp.Result(), iterable)
	l.blk.Append(forOp)
	saved := l.blk
	l.blk = bodyR.Entry()
	for _, s := range op.Regions[0].Entry().Ops {
		if err := l.lowerStmt(c, s); err != nil {
			return err
		}
	}
	l.blk = saved
	return nil
}

// lowerExprLoaded lowers v and, if it resolved to a memloc standing in for
// an identifier, inserts a load — "an identifier returns its bound memloc;
// if used in a context expecting a value, a load is inserted".
func (l *Lowerer) lowerExprLoaded(c *ctx, v *ir.Value) (*ir.Value, error) {
	return l.lowerExpr(c, v, true)
}

func (l *Lowerer) lowerExpr(c *ctx, v *ir.Value, load bool) (*ir.Value, error) {
	op := v.Def
	switch op.Kind {
	case ast.KindLiteral:
		lit := flat.NewLiteral(l.m, v.Type, ast.LiteralValue(op))
		l.blk.Append(lit)
		return lit.Result(), nil
	case ast.KindIdExpr:
		memloc, ok := c.lookup(ast.IdExprName(op))
		if !ok {
			return nil, fmt.Errorf("SemanticError: undeclared identifier %q", ast.IdExprName(op))
		}
		if !load {
			return memloc, nil
		}
		loadOp := flat.NewLoad(l.m, memloc)
		l.blk.Append(loadOp)
		return loadOp.Result(), nil
	case ast.KindUnaryExpr:
		operand, err := l.lowerExprLoaded(c, op.Operands[0])
		if err != nil {
			return nil, err
		}
		u := flat.NewUnaryExpr(l.m, ast.UnaryExprOp(op), operand, v.Type)
		l.blk.Append(u)
		return u.Result(), nil
	case ast.KindBinaryExpr:
		return l.lowerBinaryExpr(c, op, v.Type)
	case ast.KindIfExpr:
		return l.lowerIfExpr(c, op, v.Type)
	case ast.KindListExpr:
		var elems []*ir.Value
		for _, o := range op.Operands {
			e, err := l.lowerExprLoaded(c, o)
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		elemType := types.Object()
		if v.Type.IsList() {
			elemType = *v.Type.Elem
		}
		le := flat.NewListExpr(l.m, elems, elemType)
		l.blk.Append(le)
		return le.Result(), nil
	case ast.KindIndexExpr:
		return l.lowerIndexExpr(c, op, v.Type, load)
	case ast.KindCallExpr:
		name := ast.CallExprFuncName(op)
		var args []*ir.Value
		for _, o := range op.Operands {
			a, err := l.lowerExprLoaded(c, o)
			if err != nil {
				return nil, err
			}
			args = append(args, a)
		}
		if name == "len" {
			lenOp := flat.NewLen(l.m, args[0])
			l.blk.Append(lenOp)
			return lenOp.Result(), nil
		}
		call := flat.NewCallExpr(l.m, name, args, v.Type)
		l.blk.Append(call)
		return call.Result(), nil
	default:
		utils.Unimplement()
		return nil, nil
	}
}

// lowerBinaryExpr implements translate_binary_expr's type-join special
// cases: `+` on mismatched lists joins to a common list type (resolved
// fully once library-call introduction rewrites list/str `+` to
// _list_concat), `is` allows heterogeneous operands, and comparisons
// always produce bool. `or`/`and` preserve short-circuit evaluation via
// effectful_binary_expr rather than being pre-lowered to `if`.
func (l *Lowerer) lowerBinaryExpr(c *ctx, op *ir.Operation, resultType types.Type) (*ir.Value, error) {
	opName := ast.BinaryExprOp(op)
	if opName == "or" || opName == "and" {
		lhs, err := l.lowerExprLoaded(c, op.Operands[0])
		if err != nil {
			return nil, err
		}
		effOp, lhsRegion, rhsRegion := flat.NewEffectfulBinaryExpr(l.m, opName, lhs, resultType)
		l.blk.Append(effOp)
		saved := l.blk
		l.blk = lhsRegion.Entry()
		l.blk.Append(flat.NewYield(l.m, lhs))
		l.blk = rhsRegion.Entry()
		rhs, err := l.lowerExprLoaded(c, op.Operands[1])
		if err != nil {
			return nil, err
		}
		l.blk.Append(flat.NewYield(l.m, rhs))
		l.blk = saved
		return effOp.Result(), nil
	}
	lhs, err := l.lowerExprLoaded(c, op.Operands[0])
	if err != nil {
		return nil, err
	}
	rhs, err := l.lowerExprLoaded(c, op.Operands[1])
	if err != nil {
		return nil, err
	}
	b := flat.NewBinaryExpr(l.m, opName, lhs, rhs, resultType)
	l.blk.Append(b)
	return b.Result(), nil
}

// lowerIfExpr trusts the then-branch's type without joining with or_else,
// matching translate_if_expr.
func (l *Lowerer) lowerIfExpr(c *ctx, op *ir.Operation, resultType types.Type) (*ir.Value, error) {
	cond, err := l.lowerExprLoaded(c, op.Operands[0])
	if err != nil {
		return nil, err
	}
	ifeOp, thenR, elseR := flat.NewIfExpr(l.m, cond, resultType)
	l.blk.Append(ifeOp)
	saved := l.blk
	l.blk = thenR.Entry()
	thenVal, err := l.lowerExprLoaded(c, op.Operands[1])
	if err != nil {
		return nil, err
	}
	l.blk.Append(flat.NewYield(l.m, thenVal))
	l.blk = elseR.Entry()
	elseVal, err := l.lowerExprLoaded(c, op.Operands[2])
	if err != nil {
		return nil, err
	}
	l.blk.Append(flat.NewYield(l.m, elseVal))
	l.blk = saved
	return ifeOp.Result(), nil
}

// lowerIndexExpr dispatches to index_string when indexing a string, or
// get_address when indexing a list, per spec.md 4.4; when load is false
// (this index expression is an assignment target), the memloc is returned
// unloaded for the caller to store into instead.
func (l *Lowerer) lowerIndexExpr(c *ctx, op *ir.Operation, resultType types.Type, load bool) (*ir.Value, error) {
	base, err := l.lowerExprLoaded(c, op.Operands[0])
	if err != nil {
		return nil, err
	}
	index, err := l.lowerExprLoaded(c, op.Operands[1])
	if err != nil {
		return nil, err
	}
	var addr *ir.Operation
	if base.Type.IsStr() {
		addr = flat.NewIndexString(l.m, base, index)
	} else {
		addr = flat.NewGetAddress(l.m, base, index, resultType)
	}
	l.blk.Append(addr)
	if !load {
		return addr.Result(), nil
	}
	loadOp := flat.NewLoad(l.m, addr.Result())
	l.blk.Append(loadOp)
	return loadOp.Result(), nil
}
