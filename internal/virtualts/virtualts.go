// Package virtualts implements the C6 virtual-module synthesizer: it
// assembles a typed-JavaScript document an external checker can
// consume, and a sorted mapping vector that remaps the checker's
// diagnostics back to SFC source positions (spec §4.6).
package virtualts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rex-template-analyzer/sfc/internal/template"
)

// MappingKind tags one VizeMapping's provenance.
type MappingKind int

const (
	KindScript MappingKind = iota
	KindTemplateExpr
	KindInjectedGlobal
	KindPadding
)

// Range is a half-open byte range.
type Range struct {
	Start int
	End   int
}

// Mapping is one VizeMapping entry (spec §3).
type Mapping struct {
	SrcRange Range
	GenRange Range
	Kind     MappingKind
}

// Global is one framework-injected ambient declared in the header.
type Global struct {
	Name           string
	TypeAnnotation string
	DefaultValue   string
	// UseDeclareConst selects `declare const name: annotation` over
	// `const name = default_value`, per the checker's preference.
	UseDeclareConst bool
}

// Options configures one synthesis call.
type Options struct {
	Globals       []Global
	ScriptSetup   string
	ScriptSetupOffset int
	Script        string
	ScriptOffset  int
}

// Document is the C6 deliverable.
type Document struct {
	Code     string
	Mappings []Mapping // sorted by GenRange.Start
}

// Synthesize builds the virtual document for one SFC compile (spec
// §4.6, steps 1-4).
func Synthesize(root *template.Root, opts Options) *Document {
	var sb strings.Builder
	var mappings []Mapping

	writeHeader(&sb, &mappings, opts.Globals)

	if opts.ScriptSetup != "" {
		appendVerbatim(&sb, &mappings, opts.ScriptSetup, opts.ScriptSetupOffset)
	}
	if opts.Script != "" {
		appendVerbatim(&sb, &mappings, opts.Script, opts.ScriptOffset)
	}

	if root != nil {
		writeTemplateFunction(&sb, &mappings, root)
	}

	sort.Slice(mappings, func(i, j int) bool { return mappings[i].GenRange.Start < mappings[j].GenRange.Start })
	return &Document{Code: sb.String(), Mappings: mappings}
}

func writeHeader(sb *strings.Builder, mappings *[]Mapping, globals []Global) {
	for _, g := range globals {
		start := sb.Len()
		if g.UseDeclareConst {
			fmt.Fprintf(sb, "declare const %s: %s\n", g.Name, g.TypeAnnotation)
		} else {
			fmt.Fprintf(sb, "const %s = %s\n", g.Name, g.DefaultValue)
		}
		*mappings = append(*mappings, Mapping{
			GenRange: Range{Start: start, End: sb.Len()},
			Kind:     KindInjectedGlobal,
		})
	}
}

// appendVerbatim copies src byte-for-byte (preceded by one synthetic
// newline to keep line numbers aligned) and records an identity-offset
// script mapping (spec §4.6, step 2).
func appendVerbatim(sb *strings.Builder, mappings *[]Mapping, src string, srcOffset int) {
	sb.WriteByte('\n')
	genStart := sb.Len()
	sb.WriteString(src)
	*mappings = append(*mappings, Mapping{
		SrcRange: Range{Start: srcOffset, End: srcOffset + len(src)},
		GenRange: Range{Start: genStart, End: genStart + len(src)},
		Kind:     KindScript,
	})
}

// writeTemplateFunction emits __VLS_template() with one statement per
// non-trivial expression, plus padding declarations for v-for aliases
// (spec §4.6, steps 3-4). Slot-scope variables get no padding
// declaration.
func writeTemplateFunction(sb *strings.Builder, mappings *[]Mapping, root *template.Root) {
	sb.WriteString("\nfunction __VLS_template() {\n")
	for _, c := range root.Children {
		writeTemplateChild(sb, mappings, c)
	}
	sb.WriteString("}\n")
}

func writeTemplateChild(sb *strings.Builder, mappings *[]Mapping, c *template.Child) {
	switch c.Kind {
	case template.KindInterpolation, template.KindTextCall:
		writeExprStatement(sb, mappings, c.Expr)
	case template.KindElement:
		for _, p := range c.Props {
			if p.Kind == template.PropDirective {
				writeExprStatement(sb, mappings, p.Exp)
				writeExprStatement(sb, mappings, p.Arg)
			}
		}
		for _, sub := range c.Children {
			writeTemplateChild(sb, mappings, sub)
		}
	case template.KindIf:
		for _, b := range c.Branches {
			writeExprStatement(sb, mappings, b.Condition)
			for _, sub := range b.Children {
				writeTemplateChild(sb, mappings, sub)
			}
		}
	case template.KindFor:
		writePadding(sb, mappings, c)
		for _, sub := range c.Children {
			writeTemplateChild(sb, mappings, sub)
		}
	}
}

func writeExprStatement(sb *strings.Builder, mappings *[]Mapping, e *template.Expr) {
	if e == nil || e.Kind != template.ExprSimple || e.Content == "" {
		return
	}
	genStart := sb.Len()
	fmt.Fprintf(sb, "(%s);\n", e.Content)
	exprGenStart := genStart + 1 // past the opening paren
	*mappings = append(*mappings, Mapping{
		SrcRange: Range{Start: e.Loc.Start, End: e.Loc.End},
		GenRange: Range{Start: exprGenStart, End: exprGenStart + len(e.Content)},
		Kind:     KindTemplateExpr,
	})
}

// writePadding synthesizes `let value, key, index` declarations for a
// For node's aliases so references inside wrapped expressions resolve;
// these carry no source provenance (spec §4.6, step 4).
func writePadding(sb *strings.Builder, mappings *[]Mapping, forNode *template.Child) {
	names := []string{}
	for _, a := range []*template.Expr{forNode.ValueAlias, forNode.KeyAlias, forNode.IndexAlias} {
		if a != nil && a.Content != "" {
			names = append(names, a.Content)
		}
	}
	if len(names) == 0 {
		return
	}
	start := sb.Len()
	fmt.Fprintf(sb, "let %s;\n", strings.Join(names, ", "))
	*mappings = append(*mappings, Mapping{
		GenRange: Range{Start: start, End: sb.Len()},
		Kind:     KindPadding,
	})
}

// Remap converts a (genOffset) position in the virtual document back
// to an SFC byte offset, per the binary-search algorithm in spec §4.6.
// ok is false when no mapping contains genOffset ("unmapped").
func (d *Document) Remap(genOffset int) (srcOffset int, ok bool) {
	i := sort.Search(len(d.Mappings), func(i int) bool {
		return d.Mappings[i].GenRange.Start > genOffset
	})
	if i == 0 {
		return 0, false
	}
	m := d.Mappings[i-1]
	if genOffset < m.GenRange.Start || genOffset >= m.GenRange.End {
		return 0, false
	}
	if m.Kind == KindPadding || m.Kind == KindInjectedGlobal {
		return 0, false
	}
	src := m.SrcRange.Start + (genOffset - m.GenRange.Start)
	if src >= m.SrcRange.End {
		src = m.SrcRange.End - 1
	}
	return src, true
}
