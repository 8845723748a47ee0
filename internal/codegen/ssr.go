package codegen

import (
	"fmt"
	"strings"

	"github.com/rex-template-analyzer/sfc/internal/template"
)

// genSSRFunction emits the template-literal-based SSR render function
// (spec §4.5, "SSR"). Every text node, interpolation, element open tag
// and element close tag is written with its own _push call; adjacent
// static runs are not merged into one.
func (g *gen) genSSRFunction() string {
	var sb strings.Builder
	sb.WriteString("return function ssrRender(_ctx, _push, _parent, _attrs) {\n")
	for _, c := range nonWhitespace(g.root.Children) {
		g.genSSRChild(&sb, c)
	}
	sb.WriteString("}\n")
	return sb.String()
}

func (g *gen) genSSRChild(sb *strings.Builder, c *template.Child) {
	switch c.Kind {
	case template.KindText, template.KindHoisted:
		fmt.Fprintf(sb, "  _push(%s)\n", jsString(literalTextOf(c)))
	case template.KindInterpolation, template.KindTextCall:
		fmt.Fprintf(sb, "  _push(%s(%s))\n", g.use(HelperSSRInterpolate), exprText(c.Expr))
	case template.KindElement:
		g.genSSRElement(sb, c)
	case template.KindIf:
		for i, b := range c.Branches {
			kw := "if"
			if i > 0 {
				kw = "else if"
			}
			if b.Condition == nil {
				fmt.Fprintf(sb, "  else {\n")
			} else {
				fmt.Fprintf(sb, "  %s (%s) {\n", kw, exprText(b.Condition))
			}
			for _, sub := range nonWhitespace(b.Children) {
				g.genSSRChild(sb, sub)
			}
			sb.WriteString("  }\n")
		}
	case template.KindFor:
		value := "_item"
		if c.ValueAlias != nil {
			value = exprText(c.ValueAlias)
		}
		fmt.Fprintf(sb, "  %s(%s, (%s) => {\n", g.use(HelperSSRRenderList), exprText(c.Source), value)
		for _, sub := range nonWhitespace(c.Children) {
			g.genSSRChild(sb, sub)
		}
		sb.WriteString("  })\n")
	}
}

func literalTextOf(c *template.Child) string {
	if c.Kind == template.KindHoisted {
		return c.Content
	}
	return c.Content
}

func (g *gen) genSSRElement(sb *strings.Builder, el *template.Child) {
	if el.TagType == template.TagComponent {
		fmt.Fprintf(sb, "  %s(_component_%s, %s, _parent)\n", g.use(HelperSSRRenderComponent), el.Tag, g.genProps(el))
		return
	}
	fmt.Fprintf(sb, "  _push(`<%s${%s(_attrs, %s)}>`)\n", el.Tag, g.use(HelperSSRRenderAttrs), g.genProps(el))
	for _, sub := range nonWhitespace(el.Children) {
		g.genSSRChild(sb, sub)
	}
	fmt.Fprintf(sb, "  _push(\"</%s>\")\n", el.Tag)
}
