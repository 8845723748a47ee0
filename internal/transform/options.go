// Package transform implements the C4 template transform pipeline: a
// fixed, ordered sequence of AST-rewriting passes over a
// template.Root, each informed by the script analyzer's SetupSummary
// (spec §4.4).
package transform

// Mode selects the codegen preamble style (spec §6). The transform
// passes do not read it; $setup-prefixing is switched off by Inline
// instead.
type Mode int

const (
	ModeModule Mode = iota
	ModeFunction
)

// TemplateGlobal is one framework-injected ambient declared in the
// virtual-module header and, for transform purposes, exempted from
// $setup/$props/_ctx prefixing.
type TemplateGlobal struct {
	Name           string
	TypeAnnotation string
	DefaultValue   string
}

// BindingTable lets a caller override the analyzer's own binding
// classification (spec §6: "when provided, replaces the analyzer's
// result").
type BindingTable map[string]string

// Options is the configuration surface shared by the transform
// pipeline and the code generator (spec §6).
type Options struct {
	Mode               Mode
	SSR                bool
	ScopeID            string // not read by the transform passes or the code generator; no scope-id attribute is injected
	PrefixIdentifiers  bool
	HoistStatic        bool
	IsTS               bool
	BindingMetadata    BindingTable
	RuntimeModuleName  string
	RuntimeGlobalName  string
	Inline             bool
	TemplateGlobals    []TemplateGlobal
}

// DefaultOptions mirrors the teacher's AnalysisConfig/DefaultConfig
// pattern (analyzer/ast/types.go) — explicit defaults, no global
// state.
func DefaultOptions() Options {
	return Options{
		Mode:              ModeModule,
		PrefixIdentifiers: true,
		HoistStatic:       true,
		RuntimeModuleName: "vue",
		RuntimeGlobalName: "Vue",
	}
}

func (o Options) isTemplateGlobal(name string) bool {
	for _, g := range o.TemplateGlobals {
		if g.Name == name {
			return true
		}
	}
	return false
}
