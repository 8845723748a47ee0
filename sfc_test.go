package sfc

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"

	"github.com/rex-template-analyzer/sfc/internal/checker"
	"github.com/rex-template-analyzer/sfc/internal/jsast"
	"github.com/rex-template-analyzer/sfc/internal/virtualts"
)

func TestCompileSFCTemplateOnly(t *testing.T) {
	src := `<template><div class="greeting">{{ msg }}</div></template>`
	res := CompileSFC(src, DefaultOptions())

	if !strings.Contains(res.RenderCode, "toDisplayString") {
		t.Errorf("render code should interpolate msg, got %s", res.RenderCode)
	}
	if !strings.Contains(res.Preamble, "createElementBlock") {
		t.Errorf("preamble missing createElementBlock, got %s", res.Preamble)
	}
	if res.VirtualTS == nil || res.VirtualTS.Code == "" {
		t.Error("expected a non-empty virtual module")
	}
}

func TestCompileSFCWithScriptSetupBindings(t *testing.T) {
	src := `<template><div>{{ count }}</div></template>
<script setup>
const count = ref(0)
</script>`

	opts := DefaultOptions()
	opts.ParseScript = func(scriptSrc string, isSetup bool) (*jsast.Program, error) {
		sp := func(a, b int) jsast.Span { return jsast.Span{Start: a, End: b} }
		prog := jsast.NewProgram(sp(0, len(scriptSrc)), []jsast.Node{
			jsast.NewVarDecl(sp(1, 23), jsast.DeclConst, []*jsast.Declarator{
				jsast.NewDeclarator(sp(7, 22), jsast.NewIdentifier(sp(7, 12), "count"),
					jsast.NewCallExpr(sp(15, 22), jsast.NewIdentifier(sp(15, 18), "ref"),
						[]jsast.Node{jsast.NewLiteral(sp(19, 20), jsast.LitNumber, "0")})),
			}),
		})
		return prog, nil
	}

	res := CompileSFC(src, opts)

	if !strings.Contains(res.RenderCode, "$setup.count") {
		t.Errorf("count should be prefixed with $setup., got %s", res.RenderCode)
	}
	if !strings.Contains(res.VirtualTS.Code, "const count = ref(0)") {
		t.Errorf("virtual module should embed script setup verbatim, got %s", res.VirtualTS.Code)
	}
}

func TestCompileSFCNoScriptParserDegradesToCtxPrefix(t *testing.T) {
	src := `<template><div>{{ count }}</div></template>
<script setup>
const count = ref(0)
</script>`

	res := CompileSFC(src, DefaultOptions())

	if !strings.Contains(res.RenderCode, "_ctx.count") {
		t.Errorf("with no ParseScript hook, count should fall back to _ctx., got %s", res.RenderCode)
	}
}

func TestCompileSFCStylePassthrough(t *testing.T) {
	src := `<template><div/></template>
<style scoped>
.greeting { color: red; }
</style>`

	res := CompileSFC(src, DefaultOptions())
	if len(res.StyleResults) != 1 {
		t.Fatalf("expected 1 style block, got %d", len(res.StyleResults))
	}
	if !res.StyleResults[0].Scoped {
		t.Error("style block should be detected as scoped")
	}
	if !strings.Contains(res.StyleResults[0].Content, "color: red") {
		t.Errorf("style content mismatch: %q", res.StyleResults[0].Content)
	}
}

func TestGenerateVirtualTSStandalone(t *testing.T) {
	doc := GenerateVirtualTS("const x = 1", "", nil, 0, 0, nil)
	if !strings.Contains(doc.Code, "const x = 1") {
		t.Errorf("expected script setup embedded verbatim, got %s", doc.Code)
	}
}

// TestCompileSFCFixture exercises the testdata/counter.sfc.txtar
// fixture end to end, without a ParseScript hook (script analysis is
// skipped, so only the template-driven parts of the fixture apply).
func TestCompileSFCFixture(t *testing.T) {
	raw, err := os.ReadFile("testdata/counter.sfc.txtar")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	a := txtar.Parse(raw)

	var input, wantRender string
	for _, f := range a.Files {
		switch f.Name {
		case "input.sfc":
			input = string(f.Data)
		case "want.render.contains":
			wantRender = strings.TrimSpace(string(f.Data))
		}
	}
	if input == "" || wantRender == "" {
		t.Fatalf("fixture missing input.sfc or want.render.contains: %+v", a.Files)
	}

	res := CompileSFC(input, DefaultOptions())
	if !strings.Contains(res.RenderCode, wantRender) {
		t.Errorf("render code missing %q, got %s", wantRender, res.RenderCode)
	}
	if len(res.StyleResults) != 1 || !res.StyleResults[0].Scoped {
		t.Errorf("expected one scoped style block, got %+v", res.StyleResults)
	}
}

func TestCheckServerCheck(t *testing.T) {
	cs := NewCheckServer(DefaultOptions(), nil)
	diags, vts, errCount, err := cs.Check("file:///a.sfc", `<template><div :key="x"></div></template>`)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if vts == "" {
		t.Error("expected non-empty virtual TS")
	}
	_ = diags
	_ = errCount
}

// fakeCheckerTransport answers initialize and textDocument/diagnostic
// requests in-process, standing in for a real external checker
// subprocess so CheckServer.Check's Pool-driving path can be exercised
// without spawning one.
type fakeCheckerTransport struct {
	diagAt checker.Position
	respCh chan []byte
}

func newFakeCheckerTransport(diagAt checker.Position) *fakeCheckerTransport {
	return &fakeCheckerTransport{diagAt: diagAt, respCh: make(chan []byte, 8)}
}

func (f *fakeCheckerTransport) Send(body []byte) error {
	var req struct {
		ID     int64  `json:"id"`
		Method string `json:"method"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return err
	}
	if req.ID == 0 {
		return nil // notification (initialized, didOpen): no response
	}
	var result any
	switch req.Method {
	case "textDocument/diagnostic":
		result = map[string]any{"items": []map[string]any{{
			"range": map[string]any{
				"start": map[string]any{"line": f.diagAt.Line, "character": f.diagAt.Character},
				"end":   map[string]any{"line": f.diagAt.Line, "character": f.diagAt.Character + 5},
			},
			"severity": 1,
			"message":  "externally type-checked diagnostic",
		}}}
	default:
		result = map[string]any{}
	}
	resp, err := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
	if err != nil {
		return err
	}
	f.respCh <- resp
	return nil
}

func (f *fakeCheckerTransport) Recv() ([]byte, error) {
	b, ok := <-f.respCh
	if !ok {
		return nil, io.EOF
	}
	return b, nil
}

func (f *fakeCheckerTransport) Close() error {
	close(f.respCh)
	return nil
}

// TestCheckServerCheckDrivesPoolAndRemaps verifies Check actually
// drives the configured Pool over the synthesized virtual module
// (rather than just relabeling its own compile diagnostics) and
// remaps the pool's virtual-document-coordinate diagnostic back to an
// SFC source position via virtualts.Document.Remap.
func TestCheckServerCheckDrivesPoolAndRemaps(t *testing.T) {
	src := "<script setup>\nconst count = ref(0)\n</script>\n<template>{{ count }}</template>"

	precompiled := CompileSFC(src, DefaultOptions())
	if precompiled.VirtualTS == nil {
		t.Fatal("expected a virtual module")
	}
	var scriptMapping *virtualts.Mapping
	for i := range precompiled.VirtualTS.Mappings {
		if precompiled.VirtualTS.Mappings[i].Kind == virtualts.KindScript {
			scriptMapping = &precompiled.VirtualTS.Mappings[i]
			break
		}
	}
	if scriptMapping == nil {
		t.Fatal("expected a KindScript mapping for the script-setup body")
	}

	const into = 7 // "\nconst " is 7 bytes; lands on "count"
	genOffset := scriptMapping.GenRange.Start + into
	wantSrcOffset := scriptMapping.SrcRange.Start + into
	diagAt := byteOffsetToPosition(precompiled.VirtualTS.Code, genOffset)
	wantPos := byteOffsetToPosition(src, wantSrcOffset)

	transport := newFakeCheckerTransport(diagAt)
	ctx := context.Background()
	pool, err := checker.NewPool(ctx, nil, func(ctx context.Context, chunk []string) (checker.Transport, error) {
		return transport, nil
	}, nil)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Shutdown(ctx)

	cs := NewCheckServer(DefaultOptions(), pool)
	diags, _, errCount, err := cs.Check("file:///a.sfc", src)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if errCount == 0 {
		t.Error("expected the external diagnostic to count as an error")
	}

	var found *checker.Diagnostic
	for i := range diags {
		if diags[i].Message == "externally type-checked diagnostic" {
			found = &diags[i]
			break
		}
	}
	if found == nil {
		t.Fatalf("external checker diagnostic missing from Check's output: %+v", diags)
	}
	if found.Range.Start != wantPos {
		t.Errorf("remapped range.Start = %+v, want %+v (SFC position of %q)", found.Range.Start, wantPos, "count")
	}
	if strings.Contains(found.Source, "unmapped") {
		t.Errorf("diagnostic should have remapped cleanly, got Source=%q", found.Source)
	}
}
