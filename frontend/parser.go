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
package frontend

import (
	"fmt"

	"chococ/attr"
	"chococ/dialect/ast"
	"chococ/ir"
	"chococ/types"
)

// SemanticError is a recoverable, user-facing error raised by the frontend's
// minimal type annotator: invalid assignment target, undeclared identifier,
// type mismatch, or an unsupported print() argument type. Per spec.md
// section 7 these propagate to the driver, which prints one line and exits.
type SemanticError struct {
	Line, Column int
	Message      string
}

func (e *SemanticError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("SemanticError: %s", e.Message)
	}
	return fmt.Sprintf("SemanticError: line %d, column %d: %s", e.Line, e.Column, e.Message)
}

type funcSig struct {
	params []types.Type
	ret    types.Type
}

type scope struct {
	parent *scope
	vars   map[string]types.Type
}

func newScope(parent *scope) *scope { return &scope{parent: parent, vars: map[string]types.Type{}} }

func (s *scope) lookup(name string) (types.Type, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if t, ok := sc.vars[name]; ok {
			return t, true
		}
	}
	return types.Type{}, false
}

type Parser struct {
	toks  []Token
	pos   int
	m     *ir.Module
	funcs map[string]funcSig
	top   *scope
}

// Parse lexes and parses source into a verified AST-dialect module. It
// returns the module's program operation.
func Parse(m *ir.Module, source string) (*ir.Operation, error) {
	toks, err := NewLexer(source).Tokenize()
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks, m: m, funcs: map[string]funcSig{
		"print": {params: []types.Type{types.Object()}, ret: types.NoneType()},
		"input": {params: nil, ret: types.Str()},
		"len":   {params: []types.Type{types.Object()}, ret: types.Int()},
	}, top: newScope(nil)}
	return p.parseProgram()
}

func (p *Parser) cur() Token  { return p.toks[p.pos] }
func (p *Parser) advance() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}
func (p *Parser) at(k TokenKind) bool { return p.cur().Kind == k }
func (p *Parser) expect(k TokenKind, what string) (Token, error) {
	if !p.at(k) {
		return Token{}, &SyntaxError{Line: p.cur().Line, Column: p.cur().Column, Message: "expected " + what}
	}
	return p.advance(), nil
}
func (p *Parser) skipNewlines() {
	for p.at(TkNewline) {
		p.advance()
	}
}

func (p *Parser) parseProgram() (*ir.Operation, error) {
	prog, defs, stmts := ast.NewProgram(p.m)
	p.skipNewlines()
	for (p.at(TkName) && p.toks[p.pos+1].Kind == TkColon) || p.at(TkDef) {
		if p.at(TkDef) {
			op, err := p.parseFuncDef()
			if err != nil {
				return nil, err
			}
			defs.Entry().Append(op)
		} else {
			op, err := p.parseVarDef()
			if err != nil {
				return nil, err
			}
			defs.Entry().Append(op)
		}
		p.skipNewlines()
	}
	for !p.at(TkEOF) {
		op, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		if op != nil {
			stmts.Entry().Append(op)
		}
		p.skipNewlines()
	}
	p.m.Body.Entry().Append(prog)
	return prog, nil
}

func (p *Parser) parseType() (types.Type, error) {
	if p.at(TkLBracket) {
		p.advance()
		elem, err := p.parseType()
		if err != nil {
			return types.Type{}, err
		}
		if _, err := p.expect(TkRBracket, "']'"); err != nil {
			return types.Type{}, err
		}
		return types.List(elem), nil
	}
	tok, err := p.expect(TkName, "type name")
	if err != nil {
		return types.Type{}, err
	}
	switch tok.Text {
	case "int":
		return types.Int(), nil
	case "bool":
		return types.Bool(), nil
	case "str":
		return types.Str(), nil
	case "object":
		return types.Object(), nil
	default:
		return types.Object(), nil
	}
}

func (p *Parser) parseVarDef() (*ir.Operation, error) {
	name, err := p.expect(TkName, "identifier")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TkColon, "':'"); err != nil {
		return nil, err
	}
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TkEq, "'='"); err != nil {
		return nil, err
	}
	initExpr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TkNewline, "newline"); err != nil {
		return nil, err
	}
	p.top.vars[name.Text] = t
	return ast.NewVarDef(p.m, name.Text, t, initExpr), nil
}

func (p *Parser) parseFuncDef() (*ir.Operation, error) {
	p.advance() // 'def'
	name, err := p.expect(TkName, "function name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TkLParen, "'('"); err != nil {
		return nil, err
	}
	var paramNames []string
	var paramTypes []types.Type
	for !p.at(TkRParen) {
		pn, err := p.expect(TkName, "parameter name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TkColon, "':'"); err != nil {
			return nil, err
		}
		pt, err := p.parseType()
		if err != nil {
			return nil, err
		}
		paramNames = append(paramNames, pn.Text)
		paramTypes = append(paramTypes, pt)
		if p.at(TkComma) {
			p.advance()
		}
	}
	p.advance() // ')'
	retType := types.NoneType()
	if p.at(TkArrow) {
		p.advance()
		retType, err = p.parseType()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TkColon, "':'"); err != nil {
		return nil, err
	}
	if _, err := p.expect(TkNewline, "newline"); err != nil {
		return nil, err
	}
	if _, err := p.expect(TkIndent, "indented block"); err != nil {
		return nil, err
	}

	p.funcs[name.Text] = funcSig{params: paramTypes, ret: retType}
	savedTop := p.top
	fnScope := newScope(savedTop)
	for i, pn := range paramNames {
		fnScope.vars[pn] = paramTypes[i]
	}
	p.top = fnScope

	op, defs, stmts := ast.NewFuncDef(p.m, name.Text, paramNames, paramTypes, retType)
	p.skipNewlines()
	for (p.at(TkName) && p.toks[p.pos+1].Kind == TkColon) {
		vd, err := p.parseVarDef()
		if err != nil {
			return nil, err
		}
		defs.Entry().Append(vd)
		p.skipNewlines()
	}
	for !p.at(TkDedent) {
		st, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		if st != nil {
			stmts.Entry().Append(st)
		}
		p.skipNewlines()
	}
	p.advance() // DEDENT
	p.top = savedTop
	return op, nil
}

func (p *Parser) parseBlock() ([]*ir.Operation, error) {
	if _, err := p.expect(TkNewline, "newline"); err != nil {
		return nil, err
	}
	if _, err := p.expect(TkIndent, "indented block"); err != nil {
		return nil, err
	}
	var ops []*ir.Operation
	p.skipNewlines()
	for !p.at(TkDedent) {
		st, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		if st != nil {
			ops = append(ops, st)
		}
		p.skipNewlines()
	}
	p.advance() // DEDENT
	return ops, nil
}

func (p *Parser) parseStmt() (*ir.Operation, error) {
	switch p.cur().Kind {
	case TkPass:
		p.advance()
		_, err := p.expect(TkNewline, "newline")
		return ast.NewPass(p.m), err
	case TkReturn:
		p.advance()
		ret := ast.NewReturn(p.m, nil)
		if !p.at(TkNewline) {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			ret = ast.NewReturn(p.m, e)
		}
		if _, err := p.expect(TkNewline, "newline"); err != nil {
			return nil, err
		}
		return ret, nil
	case TkGlobal:
		p.advance()
		name, err := p.expect(TkName, "identifier")
		if err != nil {
			return nil, err
		}
		_, err = p.expect(TkNewline, "newline")
		return ast.NewGlobalDecl(p.m, name.Text), err
	case TkNonlocal:
		p.advance()
		name, err := p.expect(TkName, "identifier")
		if err != nil {
			return nil, err
		}
		_, err = p.expect(TkNewline, "newline")
		return ast.NewNonlocalDecl(p.m, name.Text), err
	case TkIf:
		return p.parseIf()
	case TkWhile:
		return p.parseWhile()
	case TkFor:
		return p.parseFor()
	default:
		return p.parseSimpleOrAssign()
	}
}

func (p *Parser) parseIf() (*ir.Operation, error) {
	p.advance() // if
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if cond.Type.Kind != types.KindBool {
		return nil, p.semanticHere("if condition must be bool")
	}
	if _, err := p.expect(TkColon, "':'"); err != nil {
		return nil, err
	}
	thenOps, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	op, thenR, elseR := ast.NewIf(p.m, cond)
	for _, o := range thenOps {
		thenR.Entry().Append(o)
	}
	if p.at(TkElif) {
		nested, err := p.parseIf()
		if err != nil {
			return nil, err
		}
		elseR.Entry().Append(nested)
	} else if p.at(TkElse) {
		p.advance()
		if _, err := p.expect(TkColon, "':'"); err != nil {
			return nil, err
		}
		elseOps, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		for _, o := range elseOps {
			elseR.Entry().Append(o)
		}
	}
	return op, nil
}

func (p *Parser) parseWhile() (*ir.Operation, error) {
	p.advance()
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TkColon, "':'"); err != nil {
		return nil, err
	}
	bodyOps, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	op, body := ast.NewWhile(p.m, cond)
	for _, o := range bodyOps {
		body.Entry().Append(o)
	}
	return op, nil
}

func (p *Parser) parseFor() (*ir.Operation, error) {
	p.advance()
	name, err := p.expect(TkName, "identifier")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TkIn, "'in'"); err != nil {
		return nil, err
	}
	iterable, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !iterable.Type.IsList() && !iterable.Type.IsStr() {
		return nil, p.semanticHere("for loop iterable must be a list or str")
	}
	elemType := types.Object()
	if iterable.Type.IsList() {
		elemType = *iterable.Type.Elem
	} else {
		elemType = types.Str()
	}
	p.top.vars[name.Text] = elemType
	if _, err := p.expect(TkColon, "':'"); err != nil {
		return nil, err
	}
	bodyOps, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	op, body := ast.NewFor(p.m, name.Text, iterable)
	for _, o := range bodyOps {
		body.Entry().Append(o)
	}
	return op, nil
}

func (p *Parser) semanticHere(msg string) error {
	return &SemanticError{Line: p.cur().Line, Column: p.cur().Column, Message: msg}
}

// exprNodeKindName maps an ast-dialect expression operation to the
// human-readable node-kind name check_assign_target.py's SemanticError
// names, e.g. "Literal", "BinaryExpr".
func exprNodeKindName(op *ir.Operation) string {
	switch op.Kind {
	case ast.KindLiteral:
		return "Literal"
	case ast.KindUnaryExpr:
		return "UnaryExpr"
	case ast.KindBinaryExpr:
		return "BinaryExpr"
	case ast.KindIfExpr:
		return "IfExpr"
	case ast.KindListExpr:
		return "ListExpr"
	case ast.KindCallExpr:
		return "CallExpr"
	default:
		return op.Kind.Name
	}
}

// parseSimpleOrAssign parses a statement that starts with an expression:
// either a bare expression-statement (a call) or one or more `target =`
// prefixes followed by a final value expression. Chained targets
// (`a = b = expr`) are built as nested Assign operations per
// NewAssignToName's doc comment, right-associatively, matching
// split_multi_assign's semantics in the original lowering.
func (p *Parser) parseSimpleOrAssign() (*ir.Operation, error) {
	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !p.at(TkEq) {
		if _, err := p.expect(TkNewline, "newline"); err != nil {
			return nil, err
		}
		if first.Def == nil || first.Def.Kind != ast.KindCallExpr {
			return nil, p.semanticHere("expression statement must be a call")
		}
		return first.Def, nil
	}

	type target struct {
		name    string
		isIndex bool
		base    *ir.Value
		index   *ir.Value
	}
	targets := []target{exprToTarget(first)}
	if targets[0].name == "" && !targets[0].isIndex {
		return nil, &SemanticError{Line: p.cur().Line, Column: p.cur().Column,
			Message: fmt.Sprintf("%s is not a valid assignment target", exprNodeKindName(first.Def))}
	}
	for p.at(TkEq) {
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.at(TkEq) {
			t := exprToTarget(e)
			if t.name == "" && !t.isIndex {
				return nil, &SemanticError{Line: p.cur().Line, Column: p.cur().Column,
					Message: fmt.Sprintf("%s is not a valid assignment target", exprNodeKindName(e.Def))}
			}
			targets = append(targets, t)
			continue
		}
		if _, err := p.expect(TkNewline, "newline"); err != nil {
			return nil, err
		}
		value := e
		var last *ir.Operation
		for i := len(targets) - 1; i >= 0; i-- {
			t := targets[i]
			if t.isIndex {
				last = ast.NewAssignToIndex(p.m, t.base, t.index, value)
			} else {
				last = ast.NewAssignToName(p.m, t.name, value)
			}
			value = last.Result()
		}
		return last, nil
	}
	return nil, p.semanticHere("malformed assignment")
}

func exprToTarget(v *ir.Value) struct {
	name    string
	isIndex bool
	base    *ir.Value
	index   *ir.Value
} {
	if v.Def == nil {
		return struct {
			name    string
			isIndex bool
			base    *ir.Value
			index   *ir.Value
		}{}
	}
	switch v.Def.Kind {
	case ast.KindIdExpr:
		return struct {
			name    string
			isIndex bool
			base    *ir.Value
			index   *ir.Value
		}{name: ast.IdExprName(v.Def)}
	case ast.KindIndexExpr:
		return struct {
			name    string
			isIndex bool
			base    *ir.Value
			index   *ir.Value
		}{isIndex: true, base: v.Def.Operands[0], index: v.Def.Operands[1]}
	default:
		return struct {
			name    string
			isIndex bool
			base    *ir.Value
			index   *ir.Value
		}{}
	}
}

// --- expressions, by precedence, lowest first ---

func (p *Parser) parseExpr() (*ir.Value, error) { return p.parseTernary() }

func (p *Parser) parseTernary() (*ir.Value, error) {
	thenExpr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.at(TkIf) {
		return thenExpr, nil
	}
	p.advance()
	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TkElse, "'else'"); err != nil {
		return nil, err
	}
	elseExpr, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return ast.NewIfExpr(p.m, cond, thenExpr, elseExpr, thenExpr.Type).Result(), nil
}

func (p *Parser) parseOr() (*ir.Value, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.at(TkOr) {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinaryExpr(p.m, "or", left, right, types.Bool()).Result()
	}
	return left, nil
}

func (p *Parser) parseAnd() (*ir.Value, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.at(TkAnd) {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinaryExpr(p.m, "and", left, right, types.Bool()).Result()
	}
	return left, nil
}

func (p *Parser) parseNot() (*ir.Value, error) {
	if p.at(TkNot) {
		p.advance()
		v, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryExpr(p.m, "not", v, types.Bool()).Result(), nil
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() (*ir.Value, error) {
	left, err := p.parseArith()
	if err != nil {
		return nil, err
	}
	ops := map[TokenKind]string{TkEqEq: "==", TkNotEq: "!=", TkLt: "<", TkLe: "<=", TkGt: ">", TkGe: ">=", TkIs: "is"}
	if op, ok := ops[p.cur().Kind]; ok {
		p.advance()
		right, err := p.parseArith()
		if err != nil {
			return nil, err
		}
		return ast.NewBinaryExpr(p.m, op, left, right, types.Bool()).Result(), nil
	}
	return left, nil
}

func (p *Parser) parseArith() (*ir.Value, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.at(TkPlus) || p.at(TkMinus) {
		op := "+"
		if p.at(TkMinus) {
			op = "-"
		}
		p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		resultType, err := p.binaryResultType(op, left.Type, right.Type)
		if err != nil {
			return nil, err
		}
		left = ast.NewBinaryExpr(p.m, op, left, right, resultType).Result()
	}
	return left, nil
}

func (p *Parser) parseTerm() (*ir.Value, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	ops := map[TokenKind]string{TkStar: "*", TkSlashSlash: "//", TkPercent: "%"}
	for {
		op, ok := ops[p.cur().Kind]
		if !ok {
			break
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinaryExpr(p.m, op, left, right, types.Int()).Result()
	}
	return left, nil
}

func (p *Parser) parseUnary() (*ir.Value, error) {
	if p.at(TkMinus) {
		p.advance()
		v, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryExpr(p.m, "-", v, types.Int()).Result(), nil
	}
	return p.parsePostfix()
}

func (p *Parser) binaryResultType(op string, l, r types.Type) (types.Type, error) {
	if op != "+" {
		return types.Int(), nil
	}
	if l.IsInt() && r.IsInt() {
		return types.Int(), nil
	}
	if l.IsStr() && r.IsStr() {
		return types.Str(), nil
	}
	if l.IsList() || r.IsList() || l.Kind == types.KindEmpty || r.Kind == types.KindEmpty {
		return types.Join(l, r), nil
	}
	return types.Type{}, p.semanticHere(fmt.Sprintf("cannot apply '+' to %s and %s", l, r))
}

func (p *Parser) parsePostfix() (*ir.Value, error) {
	v, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.at(TkLBracket) {
		p.advance()
		idx, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TkRBracket, "']'"); err != nil {
			return nil, err
		}
		elemType := types.Object()
		if v.Type.IsList() {
			elemType = *v.Type.Elem
		} else if v.Type.IsStr() {
			elemType = types.Str()
		}
		v = ast.NewIndexExpr(p.m, v, idx, elemType).Result()
	}
	return v, nil
}

func (p *Parser) parsePrimary() (*ir.Value, error) {
	tok := p.cur()
	switch tok.Kind {
	case TkInt:
		p.advance()
		var n int32
		fmt.Sscanf(tok.Text, "%d", &n)
		return ast.NewLiteral(p.m, types.Int(), attr.IntAttr{V: n}).Result(), nil
	case TkString:
		p.advance()
		return ast.NewLiteral(p.m, types.Str(), attr.StringAttr{V: tok.Text}).Result(), nil
	case TkTrue:
		p.advance()
		return ast.NewLiteral(p.m, types.Bool(), attr.BoolAttr{V: true}).Result(), nil
	case TkFalse:
		p.advance()
		return ast.NewLiteral(p.m, types.Bool(), attr.BoolAttr{V: false}).Result(), nil
	case TkNone:
		p.advance()
		return ast.NewLiteral(p.m, types.NoneType(), attr.NoneAttr{}).Result(), nil
	case TkLParen:
		p.advance()
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TkRParen, "')'"); err != nil {
			return nil, err
		}
		return v, nil
	case TkLBracket:
		p.advance()
		var elems []*ir.Value
		for !p.at(TkRBracket) {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if p.at(TkComma) {
				p.advance()
			}
		}
		p.advance() // ']'
		elemType := types.Object()
		resultType := types.EmptyType()
		if len(elems) > 0 {
			elemType = elems[0].Type
			for _, e := range elems[1:] {
				elemType = types.Join(elemType, e.Type)
			}
			resultType = types.List(elemType)
		}
		return ast.NewListExpr(p.m, elems, resultType).Result(), nil
	case TkName:
		p.advance()
		if p.at(TkLParen) {
			p.advance()
			var args []*ir.Value
			for !p.at(TkRParen) {
				a, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				if p.at(TkComma) {
					p.advance()
				}
			}
			p.advance() // ')'
			sig, ok := p.funcs[tok.Text]
			if !ok {
				return nil, &SemanticError{Line: tok.Line, Column: tok.Column, Message: fmt.Sprintf("undeclared function %q", tok.Text)}
			}
			if tok.Text == "print" {
				if len(args) != 1 || !(args[0].Type.IsBool() || args[0].Type.IsInt() || args[0].Type.IsStr()) {
					return nil, &SemanticError{Line: tok.Line, Column: tok.Column, Message: "print() argument must be bool, int, or str"}
				}
			}
			return ast.NewCallExpr(p.m, tok.Text, args, sig.ret).Result(), nil
		}
		t, ok := p.top.lookup(tok.Text)
		if !ok {
			return nil, &SemanticError{Line: tok.Line, Column: tok.Column, Message: fmt.Sprintf("undeclared identifier %q", tok.Text)}
		}
		return ast.NewIdExpr(p.m, tok.Text, t).Result(), nil
	}
	return nil, &SyntaxError{Line: tok.Line, Column: tok.Column, Message: "expected expression"}
}
