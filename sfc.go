// Package sfc is the top-level compiler API (spec §6, "Compiler API
// (library surface)"): it wires C1 tokenizer → C2 template parser → C3
// script analyzer → C4 transform pipeline → C5 codegen / C6
// virtual-module synthesizer / C7 checker orchestrator into the three
// entry points callers actually use: CompileSFC, GenerateVirtualTS, and
// CheckServer.Check.
package sfc

import (
	"context"
	"fmt"

	"github.com/rex-template-analyzer/sfc/internal/checker"
	"github.com/rex-template-analyzer/sfc/internal/codegen"
	"github.com/rex-template-analyzer/sfc/internal/diag"
	"github.com/rex-template-analyzer/sfc/internal/jsast"
	"github.com/rex-template-analyzer/sfc/internal/script"
	"github.com/rex-template-analyzer/sfc/internal/template"
	"github.com/rex-template-analyzer/sfc/internal/transform"
	"github.com/rex-template-analyzer/sfc/internal/virtualts"
)

// ScriptParser produces a typed-JS AST from one script block's source
// text. This is this module's seam for the "typed-JavaScript AST
// provider, a pre-existing parser the core consumes" collaborator
// spec.md §1 places out of scope: CompileSFC never parses JS/TS
// itself, it only walks an AST handed to it. Callers without a real
// TS-aware frontend wired in may leave this nil; CompileSFC then runs
// without a SetupSummary (nil), and every template expression is
// treated as an unresolved _ctx. reference, never Props/Setup.
type ScriptParser func(src string, isScriptSetup bool) (*jsast.Program, error)

// Options is the single explicit configuration struct threaded to
// every entry point (spec §6 "Configuration surface"; SPEC_FULL.md §3
// "a plain Options/Config struct... exactly as the teacher's
// AnalysisConfig/DefaultConfig pattern").
type Options struct {
	Transform   transform.Options
	Template    template.Options
	Target      codegen.Target
	ParseScript ScriptParser
	Globals     []virtualts.Global
}

// DefaultOptions mirrors transform.DefaultOptions()/template.DefaultOptions().
func DefaultOptions() Options {
	return Options{
		Transform: transform.DefaultOptions(),
		Template:  template.DefaultOptions(),
		Target:    codegen.TargetClient,
	}
}

// CompileResult is compile_sfc's return shape (spec §6): `{
// render_code, preamble, style_results[], diagnostics[], source_map? }`.
// VirtualTS stands in for source_map — the mapping vector a checker
// would consume is exactly the virtual module's Mappings.
type CompileResult struct {
	RenderCode  string
	Preamble    string
	StyleResults []StyleBlock
	Diagnostics []diag.Diagnostic
	VirtualTS   *virtualts.Document
}

// CompileSFC turns one SFC source file into a render function, its
// helper preamble, pass-through style blocks, the merged diagnostics
// from every stage, and the virtual module a checker would validate it
// against (spec §6, §7 "parsing and analysis never stop; they
// collect").
func CompileSFC(source string, opts Options) *CompileResult {
	blocks := splitBlocks(source)

	templateSrc, templateOffset := "", 0
	if blocks.Template != nil {
		templateSrc, templateOffset = blocks.Template.Content, blocks.Template.Offset
	}
	root, parseBag := template.Parse([]byte(templateSrc), opts.Template)

	summary, scriptDiags := analyzeScript(blocks, opts.ParseScript)

	transformBag := transform.Run(root, summary, opts.Transform)

	gen := codegen.Generate(root, summary, codegen.Options{Options: opts.Transform, Target: opts.Target})

	vtsOpts := virtualts.Options{Globals: opts.Globals}
	if blocks.ScriptSetup != nil {
		vtsOpts.ScriptSetup = blocks.ScriptSetup.Content
		vtsOpts.ScriptSetupOffset = blocks.ScriptSetup.Offset
	}
	if blocks.Script != nil {
		vtsOpts.Script = blocks.Script.Content
		vtsOpts.ScriptOffset = blocks.Script.Offset
	}
	vts := virtualts.Synthesize(root, vtsOpts)
	for i := range vts.Mappings {
		if vts.Mappings[i].Kind == virtualts.KindTemplateExpr {
			vts.Mappings[i].SrcRange.Start += templateOffset
			vts.Mappings[i].SrcRange.End += templateOffset
		}
	}

	all := make([]diag.Diagnostic, 0, parseBag.Len()+transformBag.Len()+len(scriptDiags))
	all = append(all, shiftDiagnostics(parseBag.Items(), templateOffset)...)
	all = append(all, shiftDiagnostics(transformBag.Items(), templateOffset)...)
	all = append(all, scriptDiags...)

	return &CompileResult{
		RenderCode:   gen.Code,
		Preamble:     gen.Preamble,
		StyleResults: blocks.Styles,
		Diagnostics:  all,
		VirtualTS:    vts,
	}
}

// shiftDiagnostics rewrites each diagnostic's range from "offset within
// the <template> block" to "offset within the whole SFC source",
// leaving an already-whole-file range (offset 0) untouched.
func shiftDiagnostics(items []diag.Diagnostic, offset int) []diag.Diagnostic {
	if offset == 0 {
		return items
	}
	out := make([]diag.Diagnostic, len(items))
	for i, d := range items {
		d.Range.Start += offset
		d.Range.End += offset
		for j := range d.Related {
			d.Related[j].Range.Start += offset
			d.Related[j].Range.End += offset
		}
		out[i] = d
	}
	return out
}

// GenerateVirtualTS is the library surface's second entry point (spec
// §6: "generate_virtual_ts(script_setup?, script?, template_ast?,
// script_offset, template_offset, options)"), exposed directly for
// callers that already hold a parsed template and just want the
// virtual module.
func GenerateVirtualTS(scriptSetup, scriptBody string, templateAST *template.Root, scriptSetupOffset, scriptOffset int, globals []virtualts.Global) *virtualts.Document {
	if templateAST == nil {
		templateAST = template.NewRoot()
	}
	return virtualts.Synthesize(templateAST, virtualts.Options{
		Globals:           globals,
		ScriptSetup:       scriptSetup,
		ScriptSetupOffset: scriptSetupOffset,
		Script:            scriptBody,
		ScriptOffset:      scriptOffset,
	})
}

// analyzeScript runs C3 over whichever script block is present,
// preferring <script setup> as the primary setup function (a component
// with both blocks still has exactly one setup scope), and translates
// the resulting SetupSummary's own violation bookkeeping
// (InvalidExports/Losses/ProvideInject/CallGraph) into diag.Diagnostic
// entries (spec §7, "Analysis" category).
func analyzeScript(blocks Blocks, parse ScriptParser) (*script.SetupSummary, []diag.Diagnostic) {
	if parse == nil {
		return nil, nil
	}

	var prog *jsast.Program
	isSetup := false
	var offset int
	switch {
	case blocks.ScriptSetup != nil:
		p, err := parse(blocks.ScriptSetup.Content, true)
		if err != nil || p == nil {
			return nil, nil
		}
		prog, isSetup, offset = p, true, blocks.ScriptSetup.Offset
	case blocks.Script != nil:
		p, err := parse(blocks.Script.Content, false)
		if err != nil || p == nil {
			return nil, nil
		}
		prog, isSetup, offset = p, false, blocks.Script.Offset
	default:
		return nil, nil
	}

	summary := script.Analyze(prog, script.Options{IsScriptSetup: isSetup})
	return summary, translateScriptDiagnostics(summary, offset)
}

func translateScriptDiagnostics(s *script.SetupSummary, offset int) []diag.Diagnostic {
	var out []diag.Diagnostic
	shift := func(sp script.Span) diag.Range {
		return diag.Range{Start: offset + sp.Start, End: offset + sp.End}
	}

	for _, sp := range s.InvalidExports {
		out = append(out, diag.Diagnostic{
			Code: diag.CodeInvalidExportInScriptSetup, Severity: diag.SeverityError,
			Range: shift(sp), Source: "script",
			Message: "value exports are not allowed inside <script setup>",
		})
	}

	for name, r := range s.Reactivity {
		for _, loss := range r.Losses {
			sev := diag.SeverityWarning
			switch loss.Severity {
			case script.SevError:
				sev = diag.SeverityError
			case script.SevInfo:
				sev = diag.SeverityInfo
			case script.SevHint:
				sev = diag.SeverityHint
			}
			out = append(out, diag.Diagnostic{
				Code: diag.CodeReactivityLoss, Severity: sev,
				Range: shift(loss.Span), Source: "script",
				Message: fmt.Sprintf("%s loses reactivity here (%s)", name, loss.Suggestion),
			})
		}
	}

	// Same-file provide/inject cross-check only; cross-component
	// matching is project-level analysis, out of scope (spec §1).
	provided := make(map[string]bool, len(s.ProvideInject.Provides))
	for _, p := range s.ProvideInject.Provides {
		if p.Key != "" {
			provided[p.Key] = true
		}
	}
	injected := make(map[string]bool, len(s.ProvideInject.Injects))
	for _, inj := range s.ProvideInject.Injects {
		if inj.Key != "" {
			injected[inj.Key] = true
			if !provided[inj.Key] {
				out = append(out, diag.Diagnostic{
					Code: diag.CodeUnmatchedInject, Severity: diag.SeverityInfo,
					Range: shift(inj.Span), Source: "script",
					Message: fmt.Sprintf("inject key %q has no matching provide in this file", inj.Key),
				})
			}
		}
	}
	for _, p := range s.ProvideInject.Provides {
		if p.Key != "" && !injected[p.Key] {
			out = append(out, diag.Diagnostic{
				Code: diag.CodeUnusedProvide, Severity: diag.SeverityHint,
				Range: shift(p.Span), Source: "script",
				Message: fmt.Sprintf("provide key %q is not injected anywhere in this file", p.Key),
			})
		}
	}

	for _, edge := range s.CallGraph.Edges {
		if !vueSetupOnlyAPIs[edge.Callee] {
			continue
		}
		if !s.CallGraph.SetupContext[edge.Caller] {
			out = append(out, diag.Diagnostic{
				Code: diag.CodeSetupContextViolation, Severity: diag.SeverityError,
				Source: "script",
				Message: fmt.Sprintf("%s() called outside setup context", edge.Callee),
			})
		}
	}

	return out
}

// vueSetupOnlyAPIs mirrors internal/script's unexported vueAPIs set
// (spec §4.3.4); duplicated here rather than exported, since this
// translation is purely an sfc-level diagnostic convenience and
// shouldn't widen script's public surface.
var vueSetupOnlyAPIs = map[string]bool{
	"ref": true, "shallowRef": true, "reactive": true, "shallowReactive": true,
	"readonly": true, "shallowReadonly": true, "computed": true, "watch": true,
	"watchEffect": true, "provide": true, "inject": true, "onMounted": true,
	"onUnmounted": true, "onUpdated": true, "onBeforeMount": true,
	"onBeforeUnmount": true, "getCurrentInstance": true, "toRefs": true, "toRef": true,
}

// CheckServer exposes the one-shot `CheckServer.check(uri, content) →
// { diagnostics, virtualTs, errorCount }` library entry point (spec
// §6) and doubles as a checker.Engine for checker.Serve. It compiles
// the SFC through C1-C6 itself, then — when a Pool is configured —
// drives the C7 checker orchestrator over the synthesized virtual
// module (C6) and remaps its diagnostics back to SFC coordinates
// (spec §4.6 "Diagnostic remapping", §4.7).
type CheckServer struct {
	Opts Options
	Pool *checker.Pool // nil: compiler-only diagnostics, no external type-check
}

// NewCheckServer builds a CheckServer compiling with opts. pool may be
// nil for callers that only want C1-C6 diagnostics without driving an
// external checker subprocess.
func NewCheckServer(opts Options, pool *checker.Pool) *CheckServer {
	return &CheckServer{Opts: opts, Pool: pool}
}

// Check compiles content as if it were the SFC at uri, folds in the
// external checker's type diagnostics for its synthesized virtual
// module (when a Pool is configured), and reports everything in
// checker wire shape alongside the virtual-TS text and an error count
// (spec §6 wire shape: `{diagnostics, virtualTs, errorCount}`).
func (s *CheckServer) Check(uri, content string) ([]checker.Diagnostic, string, int, error) {
	res := CompileSFC(content, s.Opts)

	diags := make([]checker.Diagnostic, 0, len(res.Diagnostics))
	errCount := 0
	for _, d := range res.Diagnostics {
		if d.Severity == diag.SeverityError {
			errCount++
		}
		diags = append(diags, checker.Diagnostic{
			Range:    byteRangeToLineChar(content, d.Range),
			Severity: d.Severity,
			Code:     d.Code.String(),
			Message:  d.Message,
			Source:   d.Source,
		})
	}

	vts := ""
	if res.VirtualTS != nil {
		vts = res.VirtualTS.Code
	}

	if s.Pool != nil && res.VirtualTS != nil {
		checked, err := s.checkVirtualModule(uri, content, res.VirtualTS)
		if err != nil {
			return diags, vts, errCount, err
		}
		for _, d := range checked {
			if d.Severity == diag.SeverityError {
				errCount++
			}
		}
		diags = append(diags, checked...)
	}

	return diags, vts, errCount, nil
}

// Engine adapts Check to checker.Engine's signature, for wiring a
// CheckServer straight into checker.Serve.
func (s *CheckServer) Engine() checker.Engine { return s.Check }

// virtualURI derives the checker-facing URI for uri's synthesized
// virtual module — a distinct document from the SFC source it was
// derived from (spec §4.6).
func virtualURI(uri string) string { return uri + ".__vls.ts" }

// checkVirtualModule opens vts.Code on the checker orchestrator's
// subprocess pool (C7), pulls its diagnostics for the virtual
// document, and remaps each one from virtual-document coordinates
// back to SFC source coordinates via vts.Remap before returning it in
// checker wire shape (spec §4.6 "Diagnostic remapping").
func (s *CheckServer) checkVirtualModule(uri, content string, vts *virtualts.Document) ([]checker.Diagnostic, error) {
	vuri := virtualURI(uri)
	if err := s.Pool.Open(vuri, "typescript", vts.Code); err != nil {
		return nil, err
	}

	raw, err := s.Pool.Diagnostic(context.Background(), vuri)
	if err != nil {
		return nil, err
	}

	out := make([]checker.Diagnostic, 0, len(raw))
	for _, d := range raw {
		out = append(out, remapCheckerDiagnostic(d, content, vts))
	}
	return out, nil
}

// remapCheckerDiagnostic converts d's range from the virtual
// document's (line, col) coordinates to SFC source (line, col) by way
// of Document.Remap's byte-offset mapping. A range with no mapping
// (e.g. a diagnostic on a synthesized padding declaration) is reported
// at its virtual position, flagged unmapped (spec §4.6).
func remapCheckerDiagnostic(d checker.Diagnostic, content string, vts *virtualts.Document) checker.Diagnostic {
	startSrc, startOK := vts.Remap(lineCharToByteOffset(vts.Code, d.Range.Start))
	endSrc, endOK := vts.Remap(lineCharToByteOffset(vts.Code, d.Range.End))
	if !startOK {
		d.Source = appendUnmapped(d.Source)
		return d
	}
	if !endOK || endSrc < startSrc {
		endSrc = startSrc
	}
	d.Range = checker.Range{
		Start: byteOffsetToPosition(content, startSrc),
		End:   byteOffsetToPosition(content, endSrc),
	}
	if d.Source == "" {
		d.Source = "checker"
	}
	return d
}

func appendUnmapped(source string) string {
	if source == "" {
		return "checker (unmapped)"
	}
	return source + " (unmapped)"
}

func byteRangeToLineChar(content string, r diag.Range) checker.Range {
	return checker.Range{
		Start: byteOffsetToPosition(content, r.Start),
		End:   byteOffsetToPosition(content, r.End),
	}
}

func byteOffsetToPosition(content string, offset int) checker.Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(content) {
		offset = len(content)
	}
	line, lastNL := 0, -1
	for i := 0; i < offset; i++ {
		if content[i] == '\n' {
			line++
			lastNL = i
		}
	}
	return checker.Position{Line: line, Character: offset - lastNL - 1}
}

// lineCharToByteOffset is byteOffsetToPosition's inverse: it walks
// content counting newlines until pos's (line, character) is reached,
// needed to turn a checker diagnostic's LSP-style position back into a
// byte offset before handing it to Document.Remap.
func lineCharToByteOffset(content string, pos checker.Position) int {
	line, char := 0, 0
	for i := 0; i < len(content); i++ {
		if line == pos.Line && char == pos.Character {
			return i
		}
		if content[i] == '\n' {
			line++
			char = 0
		} else {
			char++
		}
	}
	return len(content)
}
