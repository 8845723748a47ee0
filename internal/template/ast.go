// Package template holds the template AST (C2 data model, spec §3) and
// the parser that builds it from tokenizer (C1) events. All nodes are
// allocated from a single per-SFC arena.Arena; a parent node
// exclusively owns its children for the compile's lifetime (spec §9).
package template

import "github.com/rex-template-analyzer/sfc/internal/arena"

// Loc is an absolute byte range into the original SFC source.
type Loc struct {
	Start int
	End   int
}

// TagType classifies an Element per the configured "is native tag"
// predicate (spec §4.2).
type TagType int

const (
	TagNative TagType = iota
	TagComponent
	TagSlot
	TagTemplate
)

// ChildKind tags the variant a Child actually holds; visitors switch
// exhaustively over this (spec §9, "tagged variants end-to-end").
type ChildKind int

const (
	KindElement ChildKind = iota
	KindText
	KindInterpolation
	KindComment
	KindIf
	KindFor
	KindIfBranch
	KindTextCall
	KindCompoundExpression
	KindHoisted
)

// ExprKind tags Expr's variant.
type ExprKind int

const (
	ExprSimple ExprKind = iota
	ExprCompound
)

// Expr is either a Simple expression (raw source text) or a Compound
// one assembled from literal fragments, nested Simple exprs, and
// helper references inserted by the transform pipeline (§4.4/§4.5).
type Expr struct {
	Kind ExprKind
	Loc  Loc

	// Simple
	Content  string
	IsStatic bool

	// Compound
	Children []CompoundPart
}

// CompoundPart is one fragment of a Compound expression: exactly one
// of Text, Expr, or Helper is set.
type CompoundPart struct {
	Text   string
	Expr   *Expr
	Helper string
}

// PropKind tags a Prop's variant.
type PropKind int

const (
	PropAttribute PropKind = iota
	PropDirective
)

// Prop is an Element's attribute or directive, prior to the
// normalization transforms of §4.4.
type Prop struct {
	Kind PropKind
	Loc  Loc

	// Attribute
	Name  string
	Value *string

	// Directive
	DirName    string // normalized name, e.g. "bind", "on", "if", "for", "model", "slot"
	Arg        *Expr
	Exp        *Expr
	Modifiers  []string
	IsDynamic  bool // true when the directive's argument was written as [expr]
}

// Child is the tagged-variant node every template AST child is. Only
// the fields relevant to Kind are populated; the rest are zero.
type Child struct {
	Kind ChildKind
	Loc  Loc

	// Element
	Tag             string
	TagType         TagType
	Props           []*Prop
	HoistedPropsIdx int // -1 when not hoisted

	// shared by Element/If/For/IfBranch/Root-level containers
	Children []*Child

	// Text / Comment
	Content string

	// Interpolation / TextCall
	Expr *Expr

	// If
	Branches []*Child // each KindIfBranch

	// IfBranch
	Condition *Expr // nil on the final (else) branch
	UserKey   *Prop

	// For
	Source     *Expr
	ValueAlias *Expr
	KeyAlias   *Expr
	IndexAlias *Expr
	KeyProp    *Expr

	// codegen bookkeeping attached by the transform pipeline (§4.4)
	PatchFlag    int
	DynamicProps []string
	Cached       bool
	CacheIndex   int
	IsBlock      bool
}

// Root owns the arena for one SFC template compile (spec §3).
type Root struct {
	Children   []*Child
	Helpers    map[string]bool
	Hoists     []*Expr
	Components []string
	Directives []string

	arena *arena.Arena[Child]
	exprs *arena.Arena[Expr]
	props *arena.Arena[Prop]
	names *arena.Interner
}

// NewRoot allocates a fresh Root with its own arenas.
func NewRoot() *Root {
	return &Root{
		Helpers: make(map[string]bool),
		arena:   &arena.Arena[Child]{},
		exprs:   &arena.Arena[Expr]{},
		props:   &arena.Arena[Prop]{},
		names:   arena.NewInterner(),
	}
}

func (r *Root) newChild(kind ChildKind, loc Loc) *Child {
	c := r.arena.New()
	c.Kind = kind
	c.Loc = loc
	c.HoistedPropsIdx = -1
	return c
}

func (r *Root) newExpr(kind ExprKind, loc Loc) *Expr {
	e := r.exprs.New()
	e.Kind = kind
	e.Loc = loc
	return e
}

func (r *Root) newProp(kind PropKind, loc Loc) *Prop {
	p := r.props.New()
	p.Kind = kind
	p.Loc = loc
	return p
}

func (r *Root) intern(s string) string { return r.names.Intern(s) }

// NewForNode, NewIfNode and NewIfBranchNode let the transform pipeline
// synthesize structural nodes from the same arena the parser used
// (spec §4.4.1).
func (r *Root) NewForNode(loc Loc) *Child      { return r.newChild(KindFor, loc) }
func (r *Root) NewIfNode(loc Loc) *Child       { return r.newChild(KindIf, loc) }
func (r *Root) NewIfBranchNode(loc Loc) *Child { return r.newChild(KindIfBranch, loc) }
func (r *Root) NewTextCallNode(loc Loc) *Child { return r.newChild(KindTextCall, loc) }
func (r *Root) NewHoistedNode(loc Loc) *Child  { return r.newChild(KindHoisted, loc) }

// NewExpr exposes the arena-backed Expr allocator to other packages in
// the compile pipeline.
func (r *Root) NewExpr(kind ExprKind, loc Loc) *Expr { return r.newExpr(kind, loc) }

// NewProp does the same for Prop.
func (r *Root) NewProp(kind PropKind, loc Loc) *Prop { return r.newProp(kind, loc) }

// AddHelper registers a runtime helper name in the root's helper set
// (spec §4.4.9, "helper accounting") so the preamble imports exactly
// what is used.
func (r *Root) AddHelper(name string) { r.Helpers[name] = true }
