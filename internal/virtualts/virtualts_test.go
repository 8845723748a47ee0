package virtualts

import (
	"strings"
	"testing"

	"golang.org/x/tools/txtar"

	"github.com/rex-template-analyzer/sfc/internal/template"
)

const fixture = `
-- input.vue.template --
<p>{{ msg }}</p>
-- want.contains --
function __VLS_template
(msg);
`

func parseFixture(t *testing.T) *txtar.Archive {
	t.Helper()
	return txtar.Parse([]byte(fixture))
}

func fileContent(a *txtar.Archive, name string) string {
	for _, f := range a.Files {
		if f.Name == name {
			return string(f.Data)
		}
	}
	return ""
}

func TestSynthesizeTemplateExprMapping(t *testing.T) {
	a := parseFixture(t)
	tplSrc := strings.TrimSuffix(fileContent(a, "input.vue.template"), "\n")
	want := strings.TrimSuffix(fileContent(a, "want.contains"), "\n")

	root, bag := template.Parse([]byte(tplSrc), template.DefaultOptions())
	if bag.HasErrors() {
		t.Fatalf("parse errors: %+v", bag.Items())
	}

	doc := Synthesize(root, Options{
		Globals: []Global{{Name: "$t", TypeAnnotation: "(key: string) => string", UseDeclareConst: true}},
	})

	for _, want := range strings.Split(want, "\n") {
		if want == "" {
			continue
		}
		if !strings.Contains(doc.Code, want) {
			t.Errorf("virtual doc missing %q, got:\n%s", want, doc.Code)
		}
	}

	var found bool
	for _, m := range doc.Mappings {
		if m.Kind == KindTemplateExpr {
			found = true
			if doc.Code[m.GenRange.Start:m.GenRange.End] != "msg" {
				t.Errorf("template_expr mapping text = %q, want %q", doc.Code[m.GenRange.Start:m.GenRange.End], "msg")
			}
		}
	}
	if !found {
		t.Fatalf("no template_expr mapping recorded")
	}
}

func TestRemapFindsSourceOffset(t *testing.T) {
	root, bag := template.Parse([]byte(`<p>{{ msg }}</p>`), template.DefaultOptions())
	if bag.HasErrors() {
		t.Fatalf("parse errors: %+v", bag.Items())
	}
	doc := Synthesize(root, Options{})

	var exprMapping Mapping
	for _, m := range doc.Mappings {
		if m.Kind == KindTemplateExpr {
			exprMapping = m
		}
	}
	if exprMapping.GenRange.End == 0 {
		t.Fatal("expected a template_expr mapping")
	}

	src, ok := doc.Remap(exprMapping.GenRange.Start + 1)
	if !ok {
		t.Fatal("expected a successful remap inside the mapped range")
	}
	if src < exprMapping.SrcRange.Start || src >= exprMapping.SrcRange.End {
		t.Errorf("remapped src offset %d out of range %+v", src, exprMapping.SrcRange)
	}
}

func TestRemapUnmappedOutsideAnyRange(t *testing.T) {
	root, _ := template.Parse([]byte(`<p>{{ msg }}</p>`), template.DefaultOptions())
	doc := Synthesize(root, Options{})

	_, ok := doc.Remap(len(doc.Code) + 1000)
	if ok {
		t.Error("offset far past the document end should be unmapped")
	}
}
