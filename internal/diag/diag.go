// Package diag is the shared error/diagnostic model for every compiler
// stage (C8). No stage returns an error from a partial compile; they all
// append to a *Bag and keep going.
package diag

import (
	"fmt"
	"sort"
)

// Severity mirrors the wire protocol's 1..4 scale used by the checker
// orchestrator and the socket daemon, so a diag.Severity can be written
// straight onto the wire without translation.
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInfo
	SeverityHint
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	case SeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}

// Category groups codes for filtering/reporting; it has no bearing on
// severity.
type Category int

const (
	CategoryLex Category = iota
	CategoryParse
	CategoryTransform
	CategoryAnalysis
	CategorySynthesis
	CategoryOrchestrator
)

// Code is the closed enum of diagnostic names from spec §7.
type Code int

const (
	_ Code = iota

	// Lex / parse (§4.1, §4.2)
	CodeEofInTag
	CodeEofInComment
	CodeMissingEndTagName
	CodeInvalidDynamicArgument
	CodeDuplicateAttribute
	CodeDirectiveOnNonElement

	// Transform (§4.4)
	CodeUnknownDirective
	CodeInvalidVForExpression
	CodeInvalidVModelTarget
	CodeDuplicateSlotName
	CodeKeyOnTemplateSlot

	// Analysis (§4.3)
	CodeInvalidExportInScriptSetup
	CodeReactivityLoss
	CodeSetupContextViolation
	CodeUnmatchedInject
	CodeUnusedProvide

	// Synthesis (§4.6)
	CodeUnmappableExpression

	// Orchestrator (§4.7)
	CodeSpawnFailed
	CodeCommunicationError
	CodeResponseError
	CodeTimeout
	CodeNotInitialized
	CodeProcessTerminated
)

var codeNames = map[Code]string{
	CodeEofInTag:                   "EofInTag",
	CodeEofInComment:               "EofInComment",
	CodeMissingEndTagName:          "MissingEndTagName",
	CodeInvalidDynamicArgument:     "InvalidDynamicArgument",
	CodeDuplicateAttribute:         "DuplicateAttribute",
	CodeDirectiveOnNonElement:      "DirectiveOnNonElement",
	CodeUnknownDirective:           "UnknownDirective",
	CodeInvalidVForExpression:      "InvalidVForExpression",
	CodeInvalidVModelTarget:        "InvalidVModelTarget",
	CodeDuplicateSlotName:          "DuplicateSlotName",
	CodeKeyOnTemplateSlot:          "KeyOnTemplateSlot",
	CodeInvalidExportInScriptSetup: "InvalidExportInScriptSetup",
	CodeReactivityLoss:             "ReactivityLoss",
	CodeSetupContextViolation:      "SetupContextViolation",
	CodeUnmatchedInject:            "UnmatchedInject",
	CodeUnusedProvide:              "UnusedProvide",
	CodeUnmappableExpression:       "UnmappableExpression",
	CodeSpawnFailed:                "SpawnFailed",
	CodeCommunicationError:         "CommunicationError",
	CodeResponseError:              "ResponseError",
	CodeTimeout:                    "Timeout",
	CodeNotInitialized:             "NotInitialized",
	CodeProcessTerminated:          "ProcessTerminated",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "Unknown"
}

// Category classifies a code for filtering; ranges mirror the
// declaration order above.
func (c Code) Category() Category {
	switch {
	case c >= CodeEofInTag && c <= CodeDirectiveOnNonElement:
		return CategoryLex
	case c >= CodeUnknownDirective && c <= CodeKeyOnTemplateSlot:
		return CategoryTransform
	case c >= CodeInvalidExportInScriptSetup && c <= CodeUnusedProvide:
		return CategoryAnalysis
	case c == CodeUnmappableExpression:
		return CategorySynthesis
	case c >= CodeSpawnFailed && c <= CodeProcessTerminated:
		return CategoryOrchestrator
	default:
		return CategoryParse
	}
}

// Range is a half-open byte range into some source text (SFC source or
// the virtual-TS document, depending on who holds the Diagnostic).
type Range struct {
	Start int
	End   int
}

// Related attaches secondary context to a Diagnostic, e.g. "binding
// declared here".
type Related struct {
	Range   Range
	Message string
}

// Diagnostic is the uniform shape every stage appends (§4.8).
type Diagnostic struct {
	Code     Code
	Severity Severity
	Message  string
	Range    Range
	Source   string
	Related  []Related

	// Unmapped is set by the virtual-module remapper (§4.6) when a
	// checker diagnostic's generated offset fell outside every
	// VizeMapping; Range then holds the *virtual* position instead of
	// an SFC position.
	Unmapped bool
}

// Bag is the per-SFC (or per-request) append-only diagnostic sink.
// Every stage receives one and never aborts because of it.
type Bag struct {
	items []Diagnostic
}

func NewBag() *Bag { return &Bag{} }

func (b *Bag) Add(d Diagnostic) { b.items = append(b.items, d) }

func (b *Bag) Addf(code Code, sev Severity, rng Range, source, format string, args ...any) {
	b.Add(Diagnostic{
		Code:     code,
		Severity: sev,
		Range:    rng,
		Source:   source,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Items returns diagnostics sorted by range start then code, the order
// spec §5 requires within one SFC ("appended in AST source order
// within a stage"); sorting gives a stable cross-stage merge too.
func (b *Bag) Items() []Diagnostic {
	out := make([]Diagnostic, len(b.items))
	copy(out, b.items)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Range.Start != out[j].Range.Start {
			return out[i].Range.Start < out[j].Range.Start
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// HasErrors reports whether any diagnostic is Error severity — the
// signal a batch compiler uses for its process exit code (§7).
func (b *Bag) HasErrors() bool {
	for _, d := range b.items {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (b *Bag) Len() int { return len(b.items) }
