package template

import "testing"

func findElement(children []*Child, tag string) *Child {
	for _, c := range children {
		if c.Kind == KindElement && c.Tag == tag {
			return c
		}
	}
	return nil
}

func TestParseSimpleInterpolation(t *testing.T) {
	root, bag := Parse([]byte(`<div>{{ msg }}</div>`), DefaultOptions())
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %+v", bag.Items())
	}
	div := findElement(root.Children, "div")
	if div == nil {
		t.Fatalf("root.Children = %+v, want a <div>", root.Children)
	}
	if len(div.Children) != 1 || div.Children[0].Kind != KindInterpolation {
		t.Fatalf("div.Children = %+v, want one interpolation", div.Children)
	}
	if div.Children[0].Expr.Content != "msg" {
		t.Errorf("interpolation content = %q, want %q", div.Children[0].Expr.Content, "msg")
	}
}

func TestParseComponentClassification(t *testing.T) {
	root, _ := Parse([]byte(`<MyComp v-model="val"/>`), DefaultOptions())
	el := findElement(root.Children, "MyComp")
	if el == nil {
		t.Fatal("MyComp not found")
	}
	if el.TagType != TagComponent {
		t.Errorf("TagType = %v, want TagComponent", el.TagType)
	}
	if len(root.Components) != 1 || root.Components[0] != "MyComp" {
		t.Errorf("root.Components = %v", root.Components)
	}
	if len(el.Props) != 1 || el.Props[0].Kind != PropDirective || el.Props[0].DirName != "model" {
		t.Fatalf("props = %+v", el.Props)
	}
}

func TestParseShorthandDirectives(t *testing.T) {
	root, _ := Parse([]byte(`<div :class="cls" @click.stop="go"></div>`), DefaultOptions())
	div := findElement(root.Children, "div")
	if len(div.Props) != 2 {
		t.Fatalf("props = %+v, want 2", div.Props)
	}
	bind := div.Props[0]
	if bind.DirName != "bind" || bind.Arg == nil || bind.Arg.Content != "class" {
		t.Errorf("bind prop = %+v", bind)
	}
	on := div.Props[1]
	if on.DirName != "on" || on.Arg == nil || on.Arg.Content != "click" {
		t.Errorf("on prop = %+v", on)
	}
	if len(on.Modifiers) != 1 || on.Modifiers[0] != "stop" {
		t.Errorf("on.Modifiers = %v, want [stop]", on.Modifiers)
	}
}

func TestParseVPreSuppressesChildInterpolation(t *testing.T) {
	root, _ := Parse([]byte(`<div v-pre>{{ raw }}</div>`), DefaultOptions())
	div := findElement(root.Children, "div")
	if len(div.Children) != 1 || div.Children[0].Kind != KindText {
		t.Fatalf("div.Children = %+v, want raw text under v-pre", div.Children)
	}
}

func TestParseNestedElements(t *testing.T) {
	root, bag := Parse([]byte(`<ul><li>a</li><li>b</li></ul>`), DefaultOptions())
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %+v", bag.Items())
	}
	ul := findElement(root.Children, "ul")
	if ul == nil || len(ul.Children) != 2 {
		t.Fatalf("ul.Children = %+v, want 2 <li>", ul.Children)
	}
}
