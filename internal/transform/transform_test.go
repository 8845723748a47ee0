package transform

import (
	"testing"

	"github.com/rex-template-analyzer/sfc/internal/script"
	"github.com/rex-template-analyzer/sfc/internal/template"
)

func parseTpl(t *testing.T, src string) *template.Root {
	t.Helper()
	root, bag := template.Parse([]byte(src), template.DefaultOptions())
	if bag.HasErrors() {
		t.Fatalf("parse errors: %+v", bag.Items())
	}
	return root
}

func TestLiftIfElseChain(t *testing.T) {
	root := parseTpl(t, `<div v-if="a"></div><span v-else-if="b"></span><p v-else></p>`)
	Run(root, nil, DefaultOptions())

	if len(root.Children) != 1 {
		t.Fatalf("want one lifted If node, got %d children", len(root.Children))
	}
	ifNode := root.Children[0]
	if ifNode.Kind != template.KindIf {
		t.Fatalf("want KindIf, got %v", ifNode.Kind)
	}
	if len(ifNode.Branches) != 3 {
		t.Fatalf("want 3 branches, got %d", len(ifNode.Branches))
	}
	if ifNode.Branches[0].Condition == nil || ifNode.Branches[0].Condition.Content != "_ctx.a" {
		t.Errorf("branch 0 condition = %+v", ifNode.Branches[0].Condition)
	}
	if ifNode.Branches[2].Condition != nil {
		t.Errorf("else branch should have nil condition, got %+v", ifNode.Branches[2].Condition)
	}
}

func TestWrapForWithDestructuredValue(t *testing.T) {
	root := parseTpl(t, `<li v-for="(item, index) in items" :key="item.id">{{ item.name }}</li>`)
	Run(root, nil, DefaultOptions())

	if len(root.Children) != 1 || root.Children[0].Kind != template.KindFor {
		t.Fatalf("want one For node, got %+v", root.Children)
	}
	forNode := root.Children[0]
	if forNode.ValueAlias == nil || forNode.ValueAlias.Content != "item" {
		t.Errorf("ValueAlias = %+v", forNode.ValueAlias)
	}
	if forNode.KeyAlias == nil || forNode.KeyAlias.Content != "index" {
		t.Errorf("KeyAlias = %+v", forNode.KeyAlias)
	}
	if forNode.Source == nil || forNode.Source.Content != "_ctx.items" {
		t.Errorf("Source = %+v", forNode.Source)
	}
	if forNode.PatchFlag&int(PatchKeyedFragment) == 0 {
		t.Errorf("PatchFlag = %v, want KEYED_FRAGMENT set", PatchFlag(forNode.PatchFlag))
	}
}

func TestVIfLiftsOutsideVFor(t *testing.T) {
	root := parseTpl(t, `<template v-if="show" v-for="x in xs"><li>{{ x }}</li></template>`)
	Run(root, nil, DefaultOptions())

	if len(root.Children) != 1 || root.Children[0].Kind != template.KindIf {
		t.Fatalf("v-if must lift outside v-for, got %+v", root.Children)
	}
	branch := root.Children[0].Branches[0]
	if len(branch.Children) != 1 || branch.Children[0].Kind != template.KindFor {
		t.Fatalf("If branch should wrap a For node, got %+v", branch.Children)
	}
}

func TestExpressionPrefixing(t *testing.T) {
	root := parseTpl(t, `<p>{{ count }}</p>`)
	sum := &script.SetupSummary{Bindings: map[string]script.BindingKind{"count": script.SetupRef}}
	Run(root, sum, DefaultOptions())

	interp := root.Children[0].Children[0]
	if interp.Expr.Content != "$setup.count" {
		t.Errorf("Content = %q, want $setup.count", interp.Expr.Content)
	}
}

func TestPropsPrefixing(t *testing.T) {
	root := parseTpl(t, `<p>{{ title }}</p>`)
	sum := &script.SetupSummary{Bindings: map[string]script.BindingKind{"title": script.Props}}
	Run(root, sum, DefaultOptions())

	interp := root.Children[0].Children[0]
	if interp.Expr.Content != "$props.title" {
		t.Errorf("Content = %q, want $props.title", interp.Expr.Content)
	}
}

func TestVForLocalNotPrefixed(t *testing.T) {
	root := parseTpl(t, `<li v-for="item in items">{{ item }}</li>`)
	sum := &script.SetupSummary{Bindings: map[string]script.BindingKind{"items": script.SetupRef}}
	Run(root, sum, DefaultOptions())

	forNode := root.Children[0]
	interp := forNode.Children[0].Children[0]
	if interp.Expr.Content != "item" {
		t.Errorf("v-for local should not be prefixed, got %q", interp.Expr.Content)
	}
	if forNode.Source.Content != "$setup.items" {
		t.Errorf("Source = %q, want $setup.items", forNode.Source.Content)
	}
}

func TestVModelExpansionOnComponent(t *testing.T) {
	root := parseTpl(t, `<MyInput v-model="name"></MyInput>`)
	Run(root, nil, DefaultOptions())

	el := root.Children[0]
	var sawValue, sawUpdate bool
	for _, p := range el.Props {
		if p.DirName == "bind" && p.Arg != nil && p.Arg.Content == "modelValue" {
			sawValue = true
		}
		if p.DirName == "on" && p.Arg != nil && p.Arg.Content == "update:modelValue" {
			sawUpdate = true
		}
	}
	if !sawValue || !sawUpdate {
		t.Fatalf("v-model did not expand into modelValue/update:modelValue, props = %+v", el.Props)
	}
	if !root.Helpers["vModelDynamic"] {
		t.Errorf("expected vModelDynamic helper to be registered")
	}
}

func TestVOnHandlerClassification(t *testing.T) {
	root := parseTpl(t, `<button @click.stop="onClick"></button>`)
	Run(root, nil, DefaultOptions())

	el := root.Children[0]
	p := el.Props[0]
	if p.Exp.Content != "_ctx.onClick" {
		t.Errorf("method reference should be left verbatim, got %q", p.Exp.Content)
	}
	if !root.Helpers["withModifiers"] {
		t.Errorf("expected withModifiers helper for .stop")
	}
}

func TestVOnInlineStatementWrapped(t *testing.T) {
	root := parseTpl(t, `<button @click="count++"></button>`)
	Run(root, nil, DefaultOptions())

	p := root.Children[0].Props[0]
	if p.Exp.Content != "$event => (_ctx.count++)" {
		t.Errorf("inline statement should be wrapped, got %q", p.Exp.Content)
	}
}

func TestVBindClassMerge(t *testing.T) {
	root := parseTpl(t, `<div class="a" :class="b"></div>`)
	Run(root, nil, DefaultOptions())

	el := root.Children[0]
	if len(el.Props) != 1 {
		t.Fatalf("static class should be merged away, props = %+v", el.Props)
	}
	if el.Props[0].Exp.Content != `["a", _ctx.b]` {
		t.Errorf("merged class expr = %q", el.Props[0].Exp.Content)
	}
	if !root.Helpers["normalizeClass"] {
		t.Errorf("expected normalizeClass helper")
	}
}

func TestStaticHoisting(t *testing.T) {
	root := parseTpl(t, `<div><p>static</p><span>{{ dyn }}</span></div>`)
	Run(root, nil, DefaultOptions())

	outer := root.Children[0]
	if outer.Children[0].Kind != template.KindHoisted {
		t.Fatalf("static <p> should be hoisted, got %v", outer.Children[0].Kind)
	}
	if len(root.Hoists) != 1 {
		t.Fatalf("want one hoisted expr, got %d", len(root.Hoists))
	}
}

func TestVOnceCachesAndBails(t *testing.T) {
	root := parseTpl(t, `<div v-once>{{ dyn }}</div>`)
	Run(root, nil, DefaultOptions())

	el := root.Children[0]
	if !el.Cached || PatchFlag(el.PatchFlag) != PatchCached {
		t.Errorf("v-once should set Cached + CACHED flag, got Cached=%v flag=%v", el.Cached, PatchFlag(el.PatchFlag))
	}
}
