package transform

import (
	"strings"

	"github.com/rex-template-analyzer/sfc/internal/template"
)

// step 3: v-model expansion (spec §4.4, step 3).

func (c *ctx) normalizeVModel(child *template.Child) {
	c.walkElements(child, func(el *template.Child) {
		for i, p := range el.Props {
			if p.Kind != template.PropDirective || p.DirName != "model" {
				continue
			}
			if el.TagType != template.TagComponent {
				continue // native elements keep v-model; codegen wraps via withDirectives
			}
			argName := "modelValue"
			if p.Arg != nil {
				argName = p.Arg.Content
			}
			el.Props = append(el.Props[:i:i], el.Props[i+1:]...)

			valueProp := c.root.NewProp(template.PropAttribute, p.Loc)
			valueProp.Name = argName
			valueProp.Value = nil
			valueProp.Kind = template.PropDirective
			valueProp.DirName = "bind"
			valueProp.Arg = &template.Expr{Kind: template.ExprSimple, Content: argName, IsStatic: true}
			valueProp.Exp = p.Exp

			updateProp := c.root.NewProp(template.PropDirective, p.Loc)
			updateProp.DirName = "on"
			updateProp.Arg = &template.Expr{Kind: template.ExprSimple, Content: "update:" + argName, IsStatic: true}
			updateProp.Exp = &template.Expr{
				Kind:    template.ExprSimple,
				Content: "$event => ((" + exprContentOf(p.Exp) + ") = $event)",
			}
			if len(p.Modifiers) > 0 {
				updateProp.Modifiers = append([]string(nil), p.Modifiers...)
				_ = strings.Join(p.Modifiers, ",") // argModifiers carried verbatim for codegen
			}
			el.Props = append(el.Props, valueProp, updateProp)
			c.root.AddHelper("vModelDynamic")
			return
		}
	})
}

func exprContentOf(e *template.Expr) string {
	if e == nil {
		return ""
	}
	return e.Content
}

// step 4: v-on normalization (spec §4.4, step 4).

var eventOptionModifiers = map[string]string{"capture": "Capture", "once": "Once", "passive": "Passive"}
var systemModifiers = map[string]bool{
	"stop": true, "prevent": true, "self": true, "ctrl": true, "shift": true,
	"alt": true, "meta": true, "middle": true, "exact": true, "left": true, "right": true,
}
var keyModifierNames = map[string]bool{
	"enter": true, "tab": true, "delete": true, "esc": true, "space": true,
	"up": true, "down": true, "left": true, "right": true, "page-up": true, "page-down": true,
}

func (c *ctx) normalizeVOn(child *template.Child) {
	c.walkElements(child, func(el *template.Child) {
		for _, p := range el.Props {
			if p.Kind != template.PropDirective || p.DirName != "on" {
				continue
			}
			eventName := ""
			if p.Arg != nil {
				eventName = p.Arg.Content
			}
			var system, key []string
			for _, m := range p.Modifiers {
				switch {
				case eventOptionModifiers[m] != "":
					eventName += eventOptionModifiers[m]
				case systemModifiers[m]:
					system = append(system, m)
				default:
					key = append(key, m)
				}
			}
			if p.Arg != nil {
				p.Arg.Content = eventName
			}
			p.Exp = c.classifyHandler(p.Exp)
			if len(key) > 0 {
				c.root.AddHelper("withKeys")
			}
			if len(system) > 0 {
				c.root.AddHelper("withModifiers")
			}
		}
	})
}

// classifyHandler implements the three-way handler classification: an
// arrow/function expression is left verbatim, a bare identifier or
// member-expression reference is a method reference, anything else is
// wrapped as an inline statement.
func (c *ctx) classifyHandler(exp *template.Expr) *template.Expr {
	if exp == nil {
		return nil
	}
	src := strings.TrimSpace(exp.Content)
	if strings.Contains(src, "=>") || strings.HasPrefix(src, "function") {
		return exp
	}
	if isMethodReference(src) {
		return exp
	}
	return &template.Expr{Kind: template.ExprSimple, Content: "$event => (" + src + ")"}
}

func isMethodReference(src string) bool {
	if src == "" {
		return false
	}
	for _, r := range src {
		if !(r == '.' || r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

// step 5: v-bind normalization (spec §4.4, step 5).

func (c *ctx) normalizeVBind(child *template.Child) {
	c.walkElements(child, func(el *template.Child) {
		var classBind, styleBind *template.Prop
		var staticClass, staticStyle *template.Prop
		for _, p := range el.Props {
			switch {
			case p.Kind == template.PropDirective && p.DirName == "bind" && p.Arg != nil && p.Arg.Content == "class":
				classBind = p
			case p.Kind == template.PropDirective && p.DirName == "bind" && p.Arg != nil && p.Arg.Content == "style":
				styleBind = p
			case p.Kind == template.PropAttribute && p.Name == "class":
				staticClass = p
			case p.Kind == template.PropAttribute && p.Name == "style":
				staticStyle = p
			case p.Kind == template.PropDirective && p.DirName == "bind":
				for _, m := range p.Modifiers {
					switch m {
					case "camel":
						p.Arg.Content = toCamel(p.Arg.Content)
					case "prop", "attr":
						// key transform is purely a codegen-time hint; arg stays as-is.
					}
				}
			}
		}
		if classBind != nil && staticClass != nil {
			classBind.Exp = &template.Expr{
				Kind:    template.ExprSimple,
				Content: "[" + quoteJS(staticClass.Value) + ", " + exprContentOf(classBind.Exp) + "]",
			}
			el.Props = removeProp(el.Props, staticClass)
			c.root.AddHelper("normalizeClass")
		}
		if styleBind != nil && staticStyle != nil {
			styleBind.Exp = &template.Expr{
				Kind:    template.ExprSimple,
				Content: "[" + quoteJS(staticStyle.Value) + ", " + exprContentOf(styleBind.Exp) + "]",
			}
			el.Props = removeProp(el.Props, staticStyle)
			c.root.AddHelper("normalizeStyle")
		}
	})
}

func quoteJS(v *string) string {
	if v == nil {
		return `""`
	}
	return `"` + strings.ReplaceAll(*v, `"`, `\"`) + `"`
}

func removeProp(props []*template.Prop, drop *template.Prop) []*template.Prop {
	out := props[:0:0]
	for _, p := range props {
		if p != drop {
			out = append(out, p)
		}
	}
	return out
}

func toCamel(s string) string {
	var sb strings.Builder
	upperNext := false
	for _, r := range s {
		if r == '-' {
			upperNext = true
			continue
		}
		if upperNext {
			sb.WriteRune(r - ('a' - 'A'))
			upperNext = false
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// walkElements visits child and every descendant Element, including
// those nested inside If/For/IfBranch wrapper nodes.
func (c *ctx) walkElements(child *template.Child, fn func(*template.Child)) {
	if child == nil {
		return
	}
	switch child.Kind {
	case template.KindElement:
		fn(child)
		for _, sub := range child.Children {
			c.walkElements(sub, fn)
		}
	case template.KindIf:
		for _, b := range child.Branches {
			c.walkElements(b, fn)
		}
	case template.KindIfBranch, template.KindFor:
		for _, sub := range child.Children {
			c.walkElements(sub, fn)
		}
	}
}
