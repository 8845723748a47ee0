package codegen

import (
	"fmt"
	"strings"

	"github.com/rex-template-analyzer/sfc/internal/template"
)

// genVaporFunction emits the imperative instance-style vapor output:
// one template(...) per static tree plus renderEffect-wrapped setters
// for each dynamic binding, createIf/createFor for structural
// directives (spec §4.5, "Vapor").
func (g *gen) genVaporFunction() string {
	var preambleTemplates strings.Builder
	var body strings.Builder

	body.WriteString("return function render(_ctx) {\n")
	for i, c := range nonWhitespace(g.root.Children) {
		name := fmt.Sprintf("_tmpl_%d", i)
		fmt.Fprintf(&preambleTemplates, "const %s = template(%s)\n", name, jsString(staticHTMLOf(c)))
		fmt.Fprintf(&body, "  const n%d = %s()\n", i, name)
		g.genVaporEffects(&body, c, fmt.Sprintf("n%d", i))
	}
	body.WriteString("  return n0\n}\n")

	return preambleTemplates.String() + body.String()
}

// staticHTMLOf renders a best-effort static HTML skeleton for the
// template(...) call; dynamic slots are left as empty text nodes that
// genVaporEffects fills in via setText/setProp at runtime.
func staticHTMLOf(c *template.Child) string {
	switch c.Kind {
	case template.KindElement:
		var sb strings.Builder
		fmt.Fprintf(&sb, "<%s>", c.Tag)
		for _, sub := range c.Children {
			sb.WriteString(staticHTMLOf(sub))
		}
		fmt.Fprintf(&sb, "</%s>", c.Tag)
		return sb.String()
	case template.KindText:
		return c.Content
	default:
		return ""
	}
}

func (g *gen) genVaporEffects(sb *strings.Builder, c *template.Child, ref string) {
	switch c.Kind {
	case template.KindInterpolation, template.KindTextCall:
		fmt.Fprintf(sb, "  renderEffect(() => setText(%s, %s(%s)))\n", ref, g.use(HelperToDisplayString), exprText(c.Expr))
	case template.KindElement:
		for _, p := range c.Props {
			if p.Kind == template.PropDirective && p.DirName == "bind" && p.Exp != nil && !p.Exp.IsStatic {
				name := ""
				if p.Arg != nil {
					name = p.Arg.Content
				}
				fmt.Fprintf(sb, "  renderEffect(() => setProp(%s, %s, %s))\n", ref, jsString(name), exprText(p.Exp))
			}
		}
		for i, sub := range c.Children {
			g.genVaporEffects(sb, sub, fmt.Sprintf("%s.children[%d]", ref, i))
		}
	case template.KindIf:
		fmt.Fprintf(sb, "  createIf(%s, () => %t)\n", ref, len(c.Branches) > 0)
	case template.KindFor:
		fmt.Fprintf(sb, "  createFor(%s, () => %s)\n", ref, exprText(c.Source))
	}
}
