// Package jsast defines the typed-JavaScript AST node shapes consumed
// by internal/script. Producing this AST (i.e. parsing JS/TS source)
// is explicitly out of scope (spec §1: "the typed-JavaScript AST
// provider, a pre-existing parser the core consumes") — this package
// only declares the shapes the external parser is assumed to hand the
// script analyzer, using the same exhaustive tagged-variant style as
// internal/template (spec §9).
package jsast

// NodeKind tags every Node's concrete variant.
type NodeKind int

const (
	KindProgram NodeKind = iota
	KindVarDecl
	KindDeclarator
	KindFunctionDecl
	KindArrowFunction
	KindFunctionExpr
	KindBlockStatement
	KindExpressionStatement
	KindReturnStatement
	KindIfStatement
	KindCallExpr
	KindMemberExpr
	KindIdentifier
	KindLiteral
	KindTemplateLiteral
	KindUnaryExpr
	KindAssignmentExpr
	KindObjectExpr
	KindObjectProperty
	KindArrayExpr
	KindSpreadElement
	KindObjectPattern
	KindArrayPattern
	KindImportDecl
	KindImportSpecifier
	KindExportNamedDecl
	KindExportTypeDecl
)

// Span is a byte range into the script block's text.
type Span struct {
	Start int
	End   int
}

// Node is implemented by every AST node. Visitors switch exhaustively
// on Kind() rather than relying on open polymorphism (spec §9).
type Node interface {
	Kind() NodeKind
	Span() Span
}

type base struct {
	K NodeKind
	S Span
}

func (b base) Kind() NodeKind { return b.K }
func (b base) Span() Span     { return b.S }

// Program is the script block's top level.
type Program struct {
	base
	Body []Node
}

func NewProgram(sp Span, body []Node) *Program {
	return &Program{base{KindProgram, sp}, body}
}

// DeclKind distinguishes const/let/var.
type DeclKind int

const (
	DeclConst DeclKind = iota
	DeclLet
	DeclVar
)

// VarDecl is a `const|let|var` statement with one or more declarators.
type VarDecl struct {
	base
	DeclKind     DeclKind
	Declarators  []*Declarator
}

func NewVarDecl(sp Span, kind DeclKind, decls []*Declarator) *VarDecl {
	return &VarDecl{base{KindVarDecl, sp}, kind, decls}
}

// Declarator binds Id (an Identifier, ObjectPattern, or ArrayPattern)
// to an optional Init expression.
type Declarator struct {
	base
	Id   Node
	Init Node // nil for an uninitialized `let x`
}

func NewDeclarator(sp Span, id, init Node) *Declarator {
	return &Declarator{base{KindDeclarator, sp}, id, init}
}

// Identifier is a bare name reference.
type Identifier struct {
	base
	Name string
}

func NewIdentifier(sp Span, name string) *Identifier {
	return &Identifier{base{KindIdentifier, sp}, name}
}

// LiteralKind distinguishes literal subtypes.
type LiteralKind int

const (
	LitString LiteralKind = iota
	LitNumber
	LitBoolean
	LitNull
)

// Literal is a string/number/boolean/null literal.
type Literal struct {
	base
	LitKind LiteralKind
	Raw     string
}

func NewLiteral(sp Span, kind LiteralKind, raw string) *Literal {
	return &Literal{base{KindLiteral, sp}, kind, raw}
}

// TemplateLiteral is a backtick string; HasExpressions is false for a
// template literal with no `${...}` substitutions (treated as a
// literal for binding classification, spec §4.3.1).
type TemplateLiteral struct {
	base
	HasExpressions bool
}

func NewTemplateLiteral(sp Span, hasExprs bool) *TemplateLiteral {
	return &TemplateLiteral{base{KindTemplateLiteral, sp}, hasExprs}
}

// UnaryExpr covers numeric unary negation (`-5`) and other prefix
// unary operators.
type UnaryExpr struct {
	base
	Operator string
	Argument Node
}

func NewUnaryExpr(sp Span, op string, arg Node) *UnaryExpr {
	return &UnaryExpr{base{KindUnaryExpr, sp}, op, arg}
}

// FunctionDecl is a named `function foo() {}` declaration.
type FunctionDecl struct {
	base
	Name    string
	Params  []Node
	Body    *BlockStatement
	IsAsync bool
}

func NewFunctionDecl(sp Span, name string, params []Node, body *BlockStatement, async bool) *FunctionDecl {
	return &FunctionDecl{base{KindFunctionDecl, sp}, name, params, body, async}
}

// ArrowFunction is `(...) => expr` or `(...) => { ... }`. ExprBody is
// set when the arrow has a concise (non-block) body.
type ArrowFunction struct {
	base
	Params   []Node
	Body     *BlockStatement
	ExprBody Node
	IsAsync  bool
}

func NewArrowFunction(sp Span, params []Node, body *BlockStatement, exprBody Node, async bool) *ArrowFunction {
	return &ArrowFunction{base{KindArrowFunction, sp}, params, body, exprBody, async}
}

// FunctionExpr is an anonymous/named `function` expression.
type FunctionExpr struct {
	base
	Name    string
	Params  []Node
	Body    *BlockStatement
	IsAsync bool
}

func NewFunctionExpr(sp Span, name string, params []Node, body *BlockStatement, async bool) *FunctionExpr {
	return &FunctionExpr{base{KindFunctionExpr, sp}, name, params, body, async}
}

// BlockStatement is `{ ... }`.
type BlockStatement struct {
	base
	Body []Node
}

func NewBlockStatement(sp Span, body []Node) *BlockStatement {
	return &BlockStatement{base{KindBlockStatement, sp}, body}
}

// ExpressionStatement wraps a bare expression used as a statement.
type ExpressionStatement struct {
	base
	Expression Node
}

func NewExpressionStatement(sp Span, expr Node) *ExpressionStatement {
	return &ExpressionStatement{base{KindExpressionStatement, sp}, expr}
}

// ReturnStatement is `return expr;`.
type ReturnStatement struct {
	base
	Argument Node // nil for a bare `return;`
}

func NewReturnStatement(sp Span, arg Node) *ReturnStatement {
	return &ReturnStatement{base{KindReturnStatement, sp}, arg}
}

// IfStatement models control flow inside setup bodies; the script
// analyzer descends into both branches during its single traversal.
type IfStatement struct {
	base
	Test       Node
	Consequent Node
	Alternate  Node // nil when there is no else
}

func NewIfStatement(sp Span, test, cons, alt Node) *IfStatement {
	return &IfStatement{base{KindIfStatement, sp}, test, cons, alt}
}

// CallExpr is `callee(args...)`.
type CallExpr struct {
	base
	Callee Node
	Args   []Node
}

func NewCallExpr(sp Span, callee Node, args []Node) *CallExpr {
	return &CallExpr{base{KindCallExpr, sp}, callee, args}
}

// MemberExpr is `object.property` or `object[computed]`.
type MemberExpr struct {
	base
	Object   Node
	Property Node
	Computed bool
}

func NewMemberExpr(sp Span, object, property Node, computed bool) *MemberExpr {
	return &MemberExpr{base{KindMemberExpr, sp}, object, property, computed}
}

// AssignmentExpr is `target = value` (or a compound-assignment
// operator variant).
type AssignmentExpr struct {
	base
	Operator string
	Target   Node
	Value    Node
}

func NewAssignmentExpr(sp Span, op string, target, value Node) *AssignmentExpr {
	return &AssignmentExpr{base{KindAssignmentExpr, sp}, op, target, value}
}

// ObjectProperty is one `key: value` (or shorthand `{ key }`) pair.
type ObjectProperty struct {
	base
	Key       Node
	Value     Node
	Shorthand bool
	Computed  bool
}

func NewObjectProperty(sp Span, key, value Node, shorthand, computed bool) *ObjectProperty {
	return &ObjectProperty{base{KindObjectProperty, sp}, key, value, shorthand, computed}
}

// ObjectExpr is `{ ... }` as a value expression.
type ObjectExpr struct {
	base
	Properties []*ObjectProperty
	Spreads    []Node
}

func NewObjectExpr(sp Span, props []*ObjectProperty, spreads []Node) *ObjectExpr {
	return &ObjectExpr{base{KindObjectExpr, sp}, props, spreads}
}

// ArrayExpr is `[ ... ]` as a value expression.
type ArrayExpr struct {
	base
	Elements []Node
}

func NewArrayExpr(sp Span, elems []Node) *ArrayExpr {
	return &ArrayExpr{base{KindArrayExpr, sp}, elems}
}

// SpreadElement is `...expr` used inside an array/object/call.
type SpreadElement struct {
	base
	Argument Node
}

func NewSpreadElement(sp Span, arg Node) *SpreadElement {
	return &SpreadElement{base{KindSpreadElement, sp}, arg}
}

// ObjectPattern is a `{ a, b: c, ...rest }` destructuring target.
type ObjectPattern struct {
	base
	Properties []*ObjectProperty
	Rest       *Identifier
}

func NewObjectPattern(sp Span, props []*ObjectProperty, rest *Identifier) *ObjectPattern {
	return &ObjectPattern{base{KindObjectPattern, sp}, props, rest}
}

// ArrayPattern is a `[a, , b]` destructuring target.
type ArrayPattern struct {
	base
	Elements []Node // may contain nil holes
}

func NewArrayPattern(sp Span, elems []Node) *ArrayPattern {
	return &ArrayPattern{base{KindArrayPattern, sp}, elems}
}

// ImportSpecifier is one named/default/namespace binding of an
// ImportDecl.
type ImportSpecifier struct {
	base
	Imported string // "" for a default/namespace import
	Local    string
	IsDefault bool
	IsNamespace bool
}

func NewImportSpecifier(sp Span, imported, local string, isDefault, isNamespace bool) *ImportSpecifier {
	return &ImportSpecifier{base{KindImportSpecifier, sp}, imported, local, isDefault, isNamespace}
}

// ImportDecl is `import { a as b } from "source"`.
type ImportDecl struct {
	base
	Source      string
	Specifiers  []*ImportSpecifier
}

func NewImportDecl(sp Span, source string, specs []*ImportSpecifier) *ImportDecl {
	return &ImportDecl{base{KindImportDecl, sp}, source, specs}
}

// ExportNamedDecl is `export const|let|function ...` (a value export;
// invalid inside script-setup, spec §4.3.6).
type ExportNamedDecl struct {
	base
	Declaration Node
}

func NewExportNamedDecl(sp Span, decl Node) *ExportNamedDecl {
	return &ExportNamedDecl{base{KindExportNamedDecl, sp}, decl}
}

// ExportTypeDecl is `export type T = ...` / `export interface T {}` —
// always allowed inside script-setup.
type ExportTypeDecl struct {
	base
	Name string
}

func NewExportTypeDecl(sp Span, name string) *ExportTypeDecl {
	return &ExportTypeDecl{base{KindExportTypeDecl, sp}, name}
}
