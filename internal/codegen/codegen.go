// Package codegen lowers a type-checked tree to x86-64 assembly in
// Intel syntax, targeting the Microsoft x64 calling convention
// (spec §4.5).
package codegen

import (
	"fmt"
	"strings"

	"cc64/internal/ast"
	"cc64/internal/ccerrors"
	"cc64/internal/types"
)

// externFuncs is the supported runtime surface declared in the
// prolog (spec §4.5/§6).
var externFuncs = []string{"puts", "printf", "scanf", "putchar", "getchar", "atoi"}

// paramRegisters holds the Microsoft x64 integer argument registers,
// in order.
var paramRegisters = []string{"rcx", "rdx", "r8", "r9"}

// variable records a local's home or a global's kind; Offset is
// meaningful only when IsLocal is true.
type variable struct {
	Offset  int
	Type    types.Type
	IsLocal bool
}

// Generator emits assembly for a single translation unit. It is not
// safe for concurrent use and is meant to be used once per
// compilation, mirroring the single-threaded resource model of §5.
type Generator struct {
	out strings.Builder

	labelCount int
	strings_   []string // .rodata string-literal table, indexed by .LCn

	// scopes holds one map per lexically open block, innermost last.
	// Unlike the reference generator's single flat table, cc64 keeps a
	// stack here so a shadowed inner declaration does not clobber the
	// outer variable's stack slot — the corrected resolution of the
	// scope asymmetry named in spec §9.
	scopes []map[string]variable

	globals map[string]variable

	currentFunction string
	stackOffset     int

	errors []*ccerrors.CompilerError
}

// New creates an empty Generator.
func New() *Generator {
	return &Generator{globals: map[string]variable{}}
}

// Errors returns every code-generation error recorded so far.
func (g *Generator) Errors() []*ccerrors.CompilerError { return g.errors }

func (g *Generator) addErrorf(format string, args ...any) {
	g.errors = append(g.errors, ccerrors.NewCodeGen(format, args...))
}

func (g *Generator) emit(format string, args ...any) {
	fmt.Fprintf(&g.out, "    "+format+"\n", args...)
}

func (g *Generator) emitLabel(name string) {
	fmt.Fprintf(&g.out, "%s:\n", name)
}

func (g *Generator) emitRaw(line string) {
	g.out.WriteString(line)
	g.out.WriteByte('\n')
}

func (g *Generator) nextLabel(prefix string) string {
	label := fmt.Sprintf(".%s%d", prefix, g.labelCount)
	g.labelCount++
	return label
}

func (g *Generator) pushScope()  { g.scopes = append(g.scopes, map[string]variable{}) }
func (g *Generator) popScope()   { g.scopes = g.scopes[:len(g.scopes)-1] }

func (g *Generator) defineLocal(name string, v variable) {
	g.scopes[len(g.scopes)-1][name] = v
}

func (g *Generator) lookupLocal(name string) (variable, bool) {
	for i := len(g.scopes) - 1; i >= 0; i-- {
		if v, ok := g.scopes[i][name]; ok {
			return v, true
		}
	}
	return variable{}, false
}

// Generate lowers prog to a complete assembly file and returns it as
// text, along with any code-generation errors encountered.
func Generate(prog *ast.Program) (string, []*ccerrors.CompilerError) {
	g := New()
	g.emitHeader()

	// First pass: record every function's signature in globals before
	// any body is lowered. Call lowering emits `call name` directly and
	// does not consult this table.
	for _, d := range prog.Decls {
		if fn, ok := d.(*ast.FuncDecl); ok {
			g.globals[fn.Name] = variable{Type: fn.FuncType()}
		}
	}

	for _, d := range prog.Decls {
		g.genDecl(d)
	}

	g.emitStringLiterals()

	return g.out.String(), g.errors
}

func (g *Generator) emitHeader() {
	g.emit(".intel_syntax noprefix")
	g.emit(".text")
	g.emit(".globl main")
	for _, name := range externFuncs {
		g.emit(".extern %s", name)
	}
}

func (g *Generator) emitStringLiterals() {
	if len(g.strings_) == 0 {
		return
	}
	g.out.WriteString("\n")
	g.emitRaw(".section .rodata")
	for i, s := range g.strings_ {
		g.emitLabel(fmt.Sprintf(".LC%d", i))
		escaped := strings.ReplaceAll(s, "\n", "\\n")
		g.emit(`.ascii "%s"`, escaped)
		g.emit(".byte 0")
	}
}

// ---- Declarations ----

func (g *Generator) genDecl(d ast.Decl) {
	switch n := d.(type) {
	case *ast.VarDecl:
		g.genGlobalVar(n)
	case *ast.FuncDecl:
		g.genFunc(n)
	}
}

// genGlobalVar lowers a file-scope variable to a .data entry. A
// constant initializer is folded at compile time and seeded directly;
// a non-constant one is rejected (ferricc rejects it too — a .data
// section can only be seeded with a value known at assembly time, §7
// supplement).
func (g *Generator) genGlobalVar(n *ast.VarDecl) {
	g.globals[n.Name] = variable{Type: n.Type}

	var initValue int64
	if n.Init != nil {
		v, ok := evalConstInt(n.Init)
		if !ok {
			g.addErrorf("global variable %s: initializer must be a constant expression", n.Name)
		}
		initValue = v
	}

	g.emitRaw("    .data")
	g.emit(".globl %s", n.Name)
	g.emitLabel(n.Name)

	switch t := n.Type.(type) {
	case types.Char:
		g.emit(".byte %d", initValue)
	case types.Int:
		g.emit(".long %d", initValue)
	case types.Long:
		g.emit(".quad %d", initValue)
	case types.Array:
		if t.Size == nil {
			g.addErrorf("unsupported global variable type: %s", n.Type)
		} else if n.Init != nil {
			g.addErrorf("global variable %s: array initializers are not implemented", n.Name)
		} else {
			g.emit(".zero %d", types.SizeOf(t))
		}
	default:
		g.addErrorf("unsupported global variable type: %s", n.Type)
	}

	g.emitRaw("    .text")
}

// evalConstInt folds the constant-expression subset a global
// initializer may use: integer/char literals and unary minus over
// either, applied recursively. Anything else is not a constant
// expression cc64 can seed .data with.
func evalConstInt(e ast.Expr) (int64, bool) {
	switch n := e.(type) {
	case *ast.IntLiteral:
		return n.Value, true
	case *ast.CharLiteral:
		return int64(n.Value), true
	case *ast.UnaryExpr:
		if n.Op != "-" {
			return 0, false
		}
		v, ok := evalConstInt(n.Operand)
		return -v, ok
	default:
		return 0, false
	}
}

func (g *Generator) genFunc(n *ast.FuncDecl) {
	if n.Body == nil {
		return // prototype: name and type already recorded, no code
	}

	g.currentFunction = n.Name
	g.scopes = []map[string]variable{{}}
	g.stackOffset = 0

	g.emitLabel(n.Name)
	g.emit("push rbp")
	g.emit("mov rbp, rsp")

	for i, p := range n.Params {
		if p.Name == "..." {
			continue
		}
		g.stackOffset += 8 // every parameter home is 8 bytes (spec §4.5)
		g.defineLocal(p.Name, variable{Offset: g.stackOffset, Type: p.Type, IsLocal: true})

		if i >= len(paramRegisters) {
			g.addErrorf("stack parameters not implemented for function %s", n.Name)
			continue
		}
		g.emit("push %s", paramRegisters[i])
	}

	g.genStmt(n.Body)

	g.emitLabel(fmt.Sprintf(".%sret", n.Name))
	g.emit("mov rsp, rbp")
	g.emit("pop rbp")
	g.emit("ret")

	g.currentFunction = ""
}

// ---- Statements ----

func (g *Generator) genStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.ExprStmt:
		g.genExpr(n.X)
	case *ast.ReturnStmt:
		g.genReturn(n)
	case *ast.IfStmt:
		g.genIf(n)
	case *ast.WhileStmt:
		g.genWhile(n)
	case *ast.ForStmt:
		g.genFor(n)
	case *ast.BlockStmt:
		g.pushScope()
		for _, stmt := range n.Stmts {
			g.genStmt(stmt)
		}
		g.popScope()
	case *ast.DeclStmt:
		g.genLocalVar(n.D)
	}
}

func (g *Generator) genReturn(n *ast.ReturnStmt) {
	if n.Value != nil {
		g.genExpr(n.Value)
	}
	if g.currentFunction == "" {
		g.addErrorf("return statement outside of function")
		return
	}
	g.emit("jmp .%sret", g.currentFunction)
}

func (g *Generator) genIf(n *ast.IfStmt) {
	elseLabel := g.nextLabel("else")
	endLabel := g.nextLabel("endif")

	g.genExpr(n.Cond)
	g.emit("cmp rax, 0")
	g.emit("je %s", elseLabel)

	g.genStmt(n.Then)
	g.emit("jmp %s", endLabel)

	g.emitLabel(elseLabel)
	if n.Else != nil {
		g.genStmt(n.Else)
	}
	g.emitLabel(endLabel)
}

func (g *Generator) genWhile(n *ast.WhileStmt) {
	startLabel := g.nextLabel("while")
	endLabel := g.nextLabel("endwhile")

	g.emitLabel(startLabel)
	g.genExpr(n.Cond)
	g.emit("cmp rax, 0")
	g.emit("je %s", endLabel)

	g.genStmt(n.Body)
	g.emit("jmp %s", startLabel)

	g.emitLabel(endLabel)
}

func (g *Generator) genFor(n *ast.ForStmt) {
	startLabel := g.nextLabel("for")
	endLabel := g.nextLabel("endfor")
	incLabel := g.nextLabel("forinc")

	g.pushScope()
	if n.Init != nil {
		g.genStmt(n.Init)
	}

	g.emitLabel(startLabel)
	if n.Cond != nil {
		g.genExpr(n.Cond)
		g.emit("cmp rax, 0")
		g.emit("je %s", endLabel)
	}

	g.genStmt(n.Body)

	g.emitLabel(incLabel)
	if n.Post != nil {
		g.genExpr(n.Post)
	}
	g.emit("jmp %s", startLabel)

	g.emitLabel(endLabel)
	g.popScope()
}

func (g *Generator) genLocalVar(n *ast.VarDecl) {
	size := types.SizeOf(n.Type)
	align := types.AlignOf(n.Type)

	g.stackOffset = types.AlignUp(g.stackOffset+size, align)
	g.defineLocal(n.Name, variable{Offset: g.stackOffset, Type: n.Type, IsLocal: true})

	g.emit("sub rsp, %d", size)

	if n.Init != nil {
		g.genExpr(n.Init)
		g.emit("mov [rbp-%d], rax", g.stackOffset)
	}
}

// ---- Expressions ----

func (g *Generator) genExpr(e ast.Expr) {
	switch n := e.(type) {
	case *ast.IntLiteral:
		g.emit("mov rax, %d", n.Value)
	case *ast.CharLiteral:
		g.emit("mov rax, %d", n.Value)
	case *ast.StringLiteral:
		g.genStringLiteral(n)
	case *ast.Ident:
		g.genIdent(n)
	case *ast.BinaryExpr:
		g.genBinary(n)
	case *ast.UnaryExpr:
		g.genUnary(n)
	case *ast.CallExpr:
		g.genCall(n)
	case *ast.SizeofExpr:
		g.genSizeof(n)
	default:
		g.addErrorf("unhandled expression node %T", e)
	}
}

// genStringLiteral never interns: every occurrence gets a fresh .LCn
// entry (spec §9's open question, decided against interning).
func (g *Generator) genStringLiteral(n *ast.StringLiteral) {
	index := len(g.strings_)
	g.strings_ = append(g.strings_, n.Value)
	g.emit("lea rax, [rip + .LC%d]", index)
}

func (g *Generator) genIdent(n *ast.Ident) {
	if v, ok := g.lookupLocal(n.Name); ok {
		switch v.Type.(type) {
		case types.Array:
			g.emit("lea rax, [rbp-%d]", v.Offset)
		default:
			g.emit("mov rax, [rbp-%d]", v.Offset)
		}
		return
	}
	g.emit("mov rax, [%s]", n.Name)
}

func (g *Generator) genBinary(n *ast.BinaryExpr) {
	if n.Op == "=" {
		g.genAssign(n)
		return
	}
	if n.Op == "&&" {
		g.genLogicalAnd(n)
		return
	}
	if n.Op == "||" {
		g.genLogicalOr(n)
		return
	}

	g.genExpr(n.Left)
	g.emit("push rax")
	g.genExpr(n.Right)
	g.emit("pop rcx") // rcx = left, rax = right

	switch n.Op {
	case "+":
		g.emit("add rax, rcx")
	case "-":
		g.emit("sub rcx, rax")
		g.emit("mov rax, rcx")
	case "*":
		g.emit("imul rax, rcx")
	case "/":
		g.genSignedDivide(false)
	case "%":
		g.genSignedDivide(true)
	case "==":
		g.emit("cmp rcx, rax")
		g.emit("sete al")
		g.emit("movzx rax, al")
	case "!=":
		g.emit("cmp rcx, rax")
		g.emit("setne al")
		g.emit("movzx rax, al")
	case "<":
		g.emit("cmp rcx, rax")
		g.emit("setl al")
		g.emit("movzx rax, al")
	case "<=":
		g.emit("cmp rcx, rax")
		g.emit("setle al")
		g.emit("movzx rax, al")
	case ">":
		g.emit("cmp rcx, rax")
		g.emit("setg al")
		g.emit("movzx rax, al")
	case ">=":
		g.emit("cmp rcx, rax")
		g.emit("setge al")
		g.emit("movzx rax, al")
	case "&":
		g.emit("and rax, rcx")
	case "|":
		g.emit("or rax, rcx")
	case "^":
		g.emit("xor rax, rcx")
	case "<<":
		g.genShift("shl")
	case ">>":
		g.genShift("shr")
	default:
		g.addErrorf("unsupported binary operator %q", n.Op)
	}
}

// genSignedDivide lowers rcx / rax (quotient) or rcx % rax (remainder)
// using the signed idiv instruction with a cqo sign-extension of the
// dividend into rdx:rax, correcting the reference generator's
// unsigned div (spec §9's open question, decided in favor of the fix).
func (g *Generator) genSignedDivide(remainder bool) {
	g.emit("mov r11, rax") // save divisor (right operand) past the mov below
	g.emit("mov rax, rcx") // dividend (left operand) into rax
	g.emit("cqo")          // sign-extend rax into rdx:rax
	g.emit("idiv r11")
	if remainder {
		g.emit("mov rax, rdx")
	}
}

// genShift lowers rcx << rax / rcx >> rax: the value to shift (left
// operand) ends up in rax, the shift amount (right operand) in cl.
func (g *Generator) genShift(op string) {
	g.emit("mov r11, rax") // save shift count (right operand)
	g.emit("mov rax, rcx") // value to shift (left operand)
	g.emit("mov rcx, r11")
	g.emit("%s rax, cl", op)
}

func (g *Generator) genLogicalAnd(n *ast.BinaryExpr) {
	endLabel := g.nextLabel("land")

	// A zero left operand skips the right one and leaves 0 in rax.
	g.genExpr(n.Left)
	g.emit("cmp rax, 0")
	g.emit("je %s", endLabel)

	g.genExpr(n.Right)
	g.emit("cmp rax, 0")
	g.emit("setne al")
	g.emit("movzx rax, al")

	g.emitLabel(endLabel)
}

func (g *Generator) genLogicalOr(n *ast.BinaryExpr) {
	endLabel := g.nextLabel("lor")

	// A non-zero left operand skips the right one; both paths are
	// normalized to 0/1 after the label.
	g.genExpr(n.Left)
	g.emit("cmp rax, 0")
	g.emit("jne %s", endLabel)

	g.genExpr(n.Right)

	g.emitLabel(endLabel)
	g.emit("cmp rax, 0")
	g.emit("setne al")
	g.emit("movzx rax, al")
}

func (g *Generator) genAssign(n *ast.BinaryExpr) {
	switch left := n.Left.(type) {
	case *ast.Ident:
		g.genExpr(n.Right)
		if v, ok := g.lookupLocal(left.Name); ok {
			g.emit("mov [rbp-%d], rax", v.Offset)
		} else {
			g.emit("mov [%s], rax", left.Name)
		}
	case *ast.UnaryExpr:
		if left.Op != "*" {
			g.addErrorf("left operand of assignment must be an identifier or dereferenced pointer")
			return
		}
		g.genExpr(n.Right)
		g.emit("push rax")
		g.genExpr(left.Operand)
		g.emit("pop rcx")
		g.emit("mov [rax], rcx")
	default:
		g.addErrorf("left operand of assignment must be an identifier or dereferenced pointer")
	}
}

func (g *Generator) genUnary(n *ast.UnaryExpr) {
	if n.Op == "&" {
		g.genAddressOf(n)
		return
	}

	g.genExpr(n.Operand)

	switch n.Op {
	case "-":
		g.emit("neg rax")
	case "!":
		g.emit("cmp rax, 0")
		g.emit("sete al")
		g.emit("movzx rax, al")
	case "~":
		g.emit("not rax")
	case "*":
		g.emit("mov rax, [rax]")
	default:
		g.addErrorf("unsupported unary operator %q", n.Op)
	}
}

func (g *Generator) genAddressOf(n *ast.UnaryExpr) {
	ident, ok := n.Operand.(*ast.Ident)
	if !ok {
		g.addErrorf("cannot take address of non-lvalue")
		return
	}
	if v, ok := g.lookupLocal(ident.Name); ok {
		g.emit("lea rax, [rbp-%d]", v.Offset)
		return
	}
	g.emit("lea rax, [%s]", ident.Name)
}

func (g *Generator) genCall(n *ast.CallExpr) {
	for _, reg := range []string{"rbx", "rsi", "rdi", "rcx", "rdx", "r8", "r9", "r10", "r11"} {
		g.emit("push %s", reg)
	}

	for i, arg := range n.Args {
		g.genExpr(arg)
		if i < len(paramRegisters) {
			g.emit("mov %s, rax", paramRegisters[i])
		} else {
			g.emit("push rax")
		}
	}

	g.emit("call %s", n.Callee)

	if len(n.Args) > len(paramRegisters) {
		stackArgs := len(n.Args) - len(paramRegisters)
		g.emit("add rsp, %d", stackArgs*8)
	}

	for _, reg := range []string{"r11", "r10", "r9", "r8", "rdx", "rcx", "rdi", "rsi", "rbx"} {
		g.emit("pop %s", reg)
	}
}

// genSizeof lowers to an immediate load of the operand type's size,
// computed at compile time; the value-form's operand is never
// evaluated at runtime (spec §7 supplement).
func (g *Generator) genSizeof(n *ast.SizeofExpr) {
	var ty types.Type
	if n.ValueArg != nil {
		ty = n.ValueArg.Type()
	} else {
		ty = n.TypeArg
	}
	g.emit("mov rax, %d", types.SizeOf(ty))
}
