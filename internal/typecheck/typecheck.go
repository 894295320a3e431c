// Package typecheck implements a single pass over the tree that
// threads a lexically scoped symbol table and assigns a types.Type to
// every expression, per spec §4.4.
package typecheck

import (
	"cc64/internal/ast"
	"cc64/internal/ccerrors"
	"cc64/internal/token"
	"cc64/internal/types"
)

// scope is a flat name-to-type map; Checker keeps a stack of these,
// one per block/if-branch/loop-body/function-body, innermost last.
type scope map[string]types.Type

// Checker walks a *ast.Program once, in place, annotating every
// expression node's Type().
type Checker struct {
	scopes []scope

	// currentReturn is the enclosing function's declared return type,
	// or nil outside any function. Saved and restored around each
	// function body (spec §4.4's function-declaration rule).
	currentReturn types.Type

	errors []*ccerrors.CompilerError
}

// New creates a Checker with a single, empty file-level scope.
func New() *Checker {
	return &Checker{scopes: []scope{{}}}
}

// Errors returns every type/semantic error found by Check.
func (c *Checker) Errors() []*ccerrors.CompilerError { return c.errors }

func (c *Checker) addErrorf(pos token.Position, format string, args ...any) {
	c.errors = append(c.errors, ccerrors.NewType(pos, format, args...))
}

func (c *Checker) enterScope() { c.scopes = append(c.scopes, scope{}) }
func (c *Checker) exitScope()  { c.scopes = c.scopes[:len(c.scopes)-1] }

func (c *Checker) define(name string, ty types.Type) {
	c.scopes[len(c.scopes)-1][name] = ty
}

func (c *Checker) lookup(name string) (types.Type, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if ty, ok := c.scopes[i][name]; ok {
			return ty, true
		}
	}
	return nil, false
}

// Check runs the type checker over prog and returns every error it
// recorded; the slice is empty for a well-typed program.
func Check(prog *ast.Program) []*ccerrors.CompilerError {
	c := New()
	for _, d := range prog.Decls {
		c.checkDecl(d)
	}
	return c.errors
}

// ---- Declarations ----

func (c *Checker) checkDecl(d ast.Decl) {
	switch n := d.(type) {
	case *ast.VarDecl:
		c.checkVarDecl(n)
	case *ast.FuncDecl:
		c.checkFuncDecl(n)
	}
}

func (c *Checker) checkVarDecl(n *ast.VarDecl) {
	if n.Init != nil {
		initType := c.checkExpr(n.Init)
		if !types.Compatible(initType, n.Type) {
			c.addErrorf(n.TokPos, "cannot initialize variable of type %s with value of type %s", n.Type, initType)
		}
	}
	c.define(n.Name, n.Type)
}

func (c *Checker) checkFuncDecl(n *ast.FuncDecl) {
	c.define(n.Name, n.FuncType())

	if n.Body == nil {
		return
	}

	prevReturn := c.currentReturn
	c.currentReturn = n.ReturnType

	c.enterScope()
	for _, p := range n.Params {
		if p.Name == "..." {
			continue
		}
		c.define(p.Name, p.Type)
	}
	c.checkStmt(n.Body)
	c.exitScope()

	c.currentReturn = prevReturn
}

// ---- Statements ----

func (c *Checker) checkStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.ExprStmt:
		c.checkExpr(n.X)
	case *ast.ReturnStmt:
		c.checkReturn(n)
	case *ast.IfStmt:
		c.checkExpr(n.Cond)
		c.enterScope()
		c.checkStmt(n.Then)
		c.exitScope()
		if n.Else != nil {
			c.enterScope()
			c.checkStmt(n.Else)
			c.exitScope()
		}
	case *ast.WhileStmt:
		c.checkExpr(n.Cond)
		c.enterScope()
		c.checkStmt(n.Body)
		c.exitScope()
	case *ast.ForStmt:
		c.enterScope()
		if n.Init != nil {
			c.checkStmt(n.Init)
		}
		if n.Cond != nil {
			c.checkExpr(n.Cond)
		}
		if n.Post != nil {
			c.checkExpr(n.Post)
		}
		c.checkStmt(n.Body)
		c.exitScope()
	case *ast.BlockStmt:
		c.enterScope()
		for _, stmt := range n.Stmts {
			c.checkStmt(stmt)
		}
		c.exitScope()
	case *ast.DeclStmt:
		c.checkVarDecl(n.D)
	}
}

func (c *Checker) checkReturn(n *ast.ReturnStmt) {
	if c.currentReturn == nil {
		c.addErrorf(n.TokPos, "return statement outside of function")
		return
	}

	if n.Value == nil {
		if _, ok := c.currentReturn.(types.Void); !ok {
			c.addErrorf(n.TokPos, "cannot return void from function with return type %s", c.currentReturn)
		}
		return
	}

	valType := c.checkExpr(n.Value)
	if !types.Compatible(valType, c.currentReturn) {
		c.addErrorf(n.TokPos, "cannot return value of type %s from function with return type %s", valType, c.currentReturn)
	}
}

// ---- Expressions ----

// checkExpr assigns and returns n's type, recursing into its operands
// first. Errors leave the node typed as Int so that callers higher up
// the tree can keep checking without cascading nil-type panics.
func (c *Checker) checkExpr(e ast.Expr) types.Type {
	var ty types.Type

	switch n := e.(type) {
	case *ast.IntLiteral:
		ty = types.Int{}
	case *ast.CharLiteral:
		ty = types.Char{}
	case *ast.StringLiteral:
		ty = types.Pointer{Elem: types.Char{}}
	case *ast.Ident:
		ty = c.checkIdent(n)
	case *ast.BinaryExpr:
		ty = c.checkBinary(n)
	case *ast.UnaryExpr:
		ty = c.checkUnary(n)
	case *ast.CallExpr:
		ty = c.checkCall(n)
	case *ast.SizeofExpr:
		ty = c.checkSizeof(n)
	default:
		ty = types.Int{}
	}

	e.SetType(ty)
	return ty
}

func (c *Checker) checkIdent(n *ast.Ident) types.Type {
	if ty, ok := c.lookup(n.Name); ok {
		return ty
	}
	c.addErrorf(n.TokPos, "undefined variable: %s", n.Name)
	return types.Int{}
}

func widen(a, b types.Type) types.Type {
	if _, ok := a.(types.Long); ok {
		return types.Long{}
	}
	if _, ok := b.(types.Long); ok {
		return types.Long{}
	}
	return types.Int{}
}

func (c *Checker) checkBinary(n *ast.BinaryExpr) types.Type {
	left := c.checkExpr(n.Left)
	right := c.checkExpr(n.Right)

	switch n.Op {
	case "=":
		if !types.Compatible(left, right) {
			c.addErrorf(n.TokPos, "cannot assign value of type %s to variable of type %s", right, left)
		}
		return left

	case "+":
		switch {
		case types.IsInteger(left) && types.IsInteger(right):
			return widen(left, right)
		case types.IsPointerLike(left) && types.IsInteger(right):
			return types.Decay(left)
		case types.IsInteger(left) && types.IsPointerLike(right):
			return types.Decay(right)
		default:
			c.addErrorf(n.TokPos, "invalid operands for addition: %s and %s", left, right)
			return types.Int{}
		}

	case "-":
		switch {
		case types.IsInteger(left) && types.IsInteger(right):
			return widen(left, right)
		case types.IsPointerLike(left) && types.IsInteger(right):
			return types.Decay(left)
		case types.IsPointerLike(left) && types.IsPointerLike(right):
			return types.Int{}
		default:
			c.addErrorf(n.TokPos, "invalid operands for subtraction: %s and %s", left, right)
			return types.Int{}
		}

	case "*", "/", "%":
		if types.IsInteger(left) && types.IsInteger(right) {
			return widen(left, right)
		}
		c.addErrorf(n.TokPos, "invalid operands for arithmetic operation: %s and %s", left, right)
		return types.Int{}

	case "==", "!=":
		if types.Compatible(left, right) {
			return types.Int{}
		}
		c.addErrorf(n.TokPos, "invalid operands for comparison: %s and %s", left, right)
		return types.Int{}

	case "<", "<=", ">", ">=":
		if (types.IsInteger(left) && types.IsInteger(right)) ||
			(types.IsPointerLike(left) && types.IsPointerLike(right)) {
			return types.Int{}
		}
		c.addErrorf(n.TokPos, "invalid operands for comparison: %s and %s", left, right)
		return types.Int{}

	case "&&", "||":
		return types.Int{}

	case "&", "|", "^", "<<", ">>":
		if types.IsInteger(left) && types.IsInteger(right) {
			return widen(left, right)
		}
		c.addErrorf(n.TokPos, "invalid operands for bitwise operation: %s and %s", left, right)
		return types.Int{}

	default:
		c.addErrorf(n.TokPos, "unknown binary operator %q", n.Op)
		return types.Int{}
	}
}

func (c *Checker) checkUnary(n *ast.UnaryExpr) types.Type {
	if n.Op == "&" {
		operand := c.checkExpr(n.Operand)
		return types.Pointer{Elem: operand}
	}

	operand := c.checkExpr(n.Operand)

	switch n.Op {
	case "-":
		if types.IsInteger(operand) {
			return operand
		}
		c.addErrorf(n.TokPos, "cannot negate non-integer type: %s", operand)
		return types.Int{}
	case "!":
		return types.Int{}
	case "~":
		if types.IsInteger(operand) {
			return operand
		}
		c.addErrorf(n.TokPos, "cannot apply bitwise not to non-integer type: %s", operand)
		return types.Int{}
	case "*":
		if elem, ok := types.ElemType(operand); ok {
			return elem
		}
		c.addErrorf(n.TokPos, "cannot dereference non-pointer type: %s", operand)
		return types.Int{}
	default:
		c.addErrorf(n.TokPos, "unknown unary operator %q", n.Op)
		return types.Int{}
	}
}

func (c *Checker) checkCall(n *ast.CallExpr) types.Type {
	calleeType, ok := c.lookup(n.Callee)
	if !ok {
		c.addErrorf(n.TokPos, "undefined function: %s", n.Callee)
		for _, a := range n.Args {
			c.checkExpr(a)
		}
		return types.Int{}
	}

	fn, ok := calleeType.(types.Function)
	if !ok {
		c.addErrorf(n.TokPos, "%s is not a function", n.Callee)
		for _, a := range n.Args {
			c.checkExpr(a)
		}
		return types.Int{}
	}

	if !fn.Variadic && len(n.Args) != len(fn.Params) {
		c.addErrorf(n.TokPos, "function %s expects %d arguments, but %d were provided", n.Callee, len(fn.Params), len(n.Args))
	}

	checkCount := len(fn.Params)
	if len(n.Args) < checkCount {
		checkCount = len(n.Args)
	}
	for i := 0; i < checkCount; i++ {
		argType := c.checkExpr(n.Args[i])
		if !types.Compatible(argType, fn.Params[i]) {
			c.addErrorf(n.TokPos, "argument %d has type %s, but function %s expects %s", i+1, argType, n.Callee, fn.Params[i])
		}
	}
	for i := checkCount; i < len(n.Args); i++ {
		c.checkExpr(n.Args[i])
	}

	return fn.Return
}

func (c *Checker) checkSizeof(n *ast.SizeofExpr) types.Type {
	if n.ValueArg != nil {
		c.checkExpr(n.ValueArg)
	}
	return types.Long{}
}
