package codegen

import (
	"strings"
	"testing"

	"github.com/rex-template-analyzer/sfc/internal/template"
	"github.com/rex-template-analyzer/sfc/internal/transform"
)

func buildRoot(t *testing.T, src string) *template.Root {
	t.Helper()
	root, bag := template.Parse([]byte(src), template.DefaultOptions())
	if bag.HasErrors() {
		t.Fatalf("parse errors: %+v", bag.Items())
	}
	transform.Run(root, nil, transform.DefaultOptions())
	return root
}

func TestGenerateSingleRootElement(t *testing.T) {
	root := buildRoot(t, `<div>{{ msg }}</div>`)
	res := Generate(root, nil, Options{Options: transform.DefaultOptions(), Target: TargetClient})

	if !strings.Contains(res.Code, "openBlock") {
		t.Errorf("single dynamic root should open a block, code = %s", res.Code)
	}
	if !strings.Contains(res.Code, "toDisplayString") {
		t.Errorf("interpolation should go through toDisplayString, code = %s", res.Code)
	}
	if !strings.Contains(res.Preamble, "createElementBlock") {
		t.Errorf("preamble should import createElementBlock, got %q", res.Preamble)
	}
}

func TestGenerateHoistedStaticElement(t *testing.T) {
	root := buildRoot(t, `<div><p>static</p><span>{{ dyn }}</span></div>`)
	res := Generate(root, nil, Options{Options: transform.DefaultOptions(), Target: TargetClient})

	if !strings.Contains(res.Code, "_hoisted_1") {
		t.Errorf("expected a _hoisted_1 reference, code = %s", res.Code)
	}
	if !strings.Contains(res.Code, "/*#__PURE__*/") {
		t.Errorf("hoisted VNodeCall should be PURE-annotated, code = %s", res.Code)
	}
}

func TestGenerateKeyQuoting(t *testing.T) {
	if propKey("data-id") == "data-id" {
		t.Errorf("non-identifier key should be quoted")
	}
	if propKey("class") != "class" {
		t.Errorf("identifier key should not be quoted, got %q", propKey("class"))
	}
}

func TestSSRGeneratesPushCalls(t *testing.T) {
	root := buildRoot(t, `<div>{{ msg }}</div>`)
	res := Generate(root, nil, Options{Options: transform.DefaultOptions(), Target: TargetSSR})

	if !strings.Contains(res.Code, "_push(") {
		t.Errorf("SSR output should contain _push calls, code = %s", res.Code)
	}
	if !strings.Contains(res.Code, "ssrInterpolate") {
		t.Errorf("SSR interpolation should use ssrInterpolate, code = %s", res.Code)
	}
}
