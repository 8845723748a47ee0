package codegen

import (
	"fmt"
	"strings"

	"github.com/rex-template-analyzer/sfc/internal/template"
	"github.com/rex-template-analyzer/sfc/internal/transform"
)

// genClientFunction emits the default client-VDOM render function
// (spec §4.5, "Client VDOM").
func (g *gen) genClientFunction() string {
	var hoists strings.Builder
	for i := range g.root.Hoists {
		fmt.Fprintf(&hoists, "const _hoisted_%d = %s\n", i+1, g.renderHoistedVNode(i))
	}

	var body strings.Builder
	body.WriteString("return function render(_ctx, _cache) {\n")
	body.WriteString("  return (")
	body.WriteString(g.genReturnExpr(g.root.Children))
	body.WriteString(")\n}\n")

	return hoists.String() + body.String()
}

// renderHoistedVNode looks up the child that pushed hoist index i and
// re-renders its element literally (no openBlock/dynamic tracking —
// hoisted trees are fully static).
func (g *gen) renderHoistedVNode(i int) string {
	el := g.findHoisted(g.root.Children, i)
	if el == nil {
		return "null"
	}
	return "/*#__PURE__*/" + g.genVNodeCall(el, false)
}

func (g *gen) findHoisted(children []*template.Child, idx int) *template.Child {
	for _, c := range children {
		if c.Kind == template.KindHoisted && len(c.Children) == 1 && c.Children[0].HoistedPropsIdx == idx {
			return c.Children[0]
		}
		if found := g.findHoisted(c.Children, idx); found != nil {
			return found
		}
		if c.Kind == template.KindIf {
			if found := g.findHoisted(c.Branches, idx); found != nil {
				return found
			}
		}
	}
	return nil
}

// genReturnExpr wraps the root children into a single block, opening
// a Fragment when there is more than one root child.
func (g *gen) genReturnExpr(children []*template.Child) string {
	visible := nonWhitespace(children)
	if len(visible) == 1 {
		return fmt.Sprintf("(%s(), %s)", g.use(HelperOpenBlock), g.genVNodeCall(visible[0], true))
	}
	parts := make([]string, len(visible))
	for i, c := range visible {
		parts[i] = g.genChildExpr(c)
	}
	return fmt.Sprintf("(%s(), %s(%s, null, [%s], %d /* %s */))",
		g.use(HelperOpenBlock), g.use(HelperCreateElementBlock), g.use(HelperFragment),
		strings.Join(parts, ", "), int(transform.PatchStableFragment), transform.PatchStableFragment)
}

func nonWhitespace(children []*template.Child) []*template.Child {
	var out []*template.Child
	for _, c := range children {
		if c.Kind == template.KindText && strings.TrimSpace(c.Content) == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// genChildExpr renders any Child in an rvalue position (as an array
// element or a VNode child).
func (g *gen) genChildExpr(c *template.Child) string {
	switch c.Kind {
	case template.KindElement:
		return g.genVNodeCall(c, c.IsBlock)
	case template.KindHoisted:
		return c.Content
	case template.KindText:
		return jsString(c.Content)
	case template.KindComment:
		return fmt.Sprintf("/*%s*/", c.Content)
	case template.KindInterpolation, template.KindTextCall:
		return fmt.Sprintf("%s(%s)", g.use(HelperToDisplayString), exprText(c.Expr))
	case template.KindIf:
		return g.genIf(c)
	case template.KindFor:
		return g.genFor(c)
	default:
		return "null"
	}
}

func (g *gen) genIf(ifNode *template.Child) string {
	var sb strings.Builder
	for i, b := range ifNode.Branches {
		if b.Condition == nil {
			if i > 0 {
				sb.WriteString(" : ")
			}
			sb.WriteString(g.genIfBranchBlock(b))
			continue
		}
		if i > 0 {
			sb.WriteString(" : ")
		}
		fmt.Fprintf(&sb, "(%s) ? %s", exprText(b.Condition), g.genIfBranchBlock(b))
	}
	hasElse := len(ifNode.Branches) > 0 && ifNode.Branches[len(ifNode.Branches)-1].Condition == nil
	if !hasElse {
		sb.WriteString(fmt.Sprintf(" : %s(\"v-if\", true)", g.use(HelperCreateCommentVNode)))
	}
	return sb.String()
}

func (g *gen) genIfBranchBlock(b *template.Child) string {
	visible := nonWhitespace(b.Children)
	if len(visible) == 0 {
		return fmt.Sprintf("%s(\"v-if\", true)", g.use(HelperCreateCommentVNode))
	}
	return g.genChildExpr(visible[0])
}

func (g *gen) genFor(forNode *template.Child) string {
	args := []string{}
	if forNode.ValueAlias != nil {
		args = append(args, exprText(forNode.ValueAlias))
	} else {
		args = append(args, "_")
	}
	if forNode.KeyAlias != nil {
		args = append(args, exprText(forNode.KeyAlias))
	} else if forNode.IndexAlias != nil {
		args = append(args, "__key")
	}
	if forNode.IndexAlias != nil {
		args = append(args, exprText(forNode.IndexAlias))
	}
	body := "null"
	if len(forNode.Children) == 1 {
		body = g.genChildExpr(forNode.Children[0])
	}
	renderList := fmt.Sprintf("%s(%s, (%s) => %s)", g.use(HelperRenderList), exprText(forNode.Source), strings.Join(args, ", "), body)
	return fmt.Sprintf("(%s(true), %s(%s, null, %s, %d /* %s */))",
		g.use(HelperOpenBlock), g.use(HelperCreateElementBlock), g.use(HelperFragment),
		renderList, forNode.PatchFlag, transform.PatchFlag(forNode.PatchFlag))
}

// genVNodeCall builds a createElementVNode/createVNode/*Block call for
// an Element. asBlock selects the *Block variant (spec §4.5: "Blocks
// track dynamic children").
func (g *gen) genVNodeCall(el *template.Child, asBlock bool) string {
	if el.Kind == template.KindHoisted {
		if len(el.Children) == 1 {
			el = el.Children[0]
		}
	}
	if el.Kind != template.KindElement {
		return g.genChildExpr(el)
	}

	tag := jsString(el.Tag)
	ctor := HelperCreateElementVNode
	if asBlock {
		ctor = HelperCreateElementBlock
	}
	if el.TagType == template.TagComponent {
		if asBlock {
			ctor = HelperCreateBlock
		} else {
			ctor = HelperCreateVNode
		}
		tag = "_component_" + el.Tag
	}

	props := g.genProps(el)
	kids := g.genElementChildren(el)

	args := []string{tag, props, kids}
	if el.PatchFlag != 0 {
		args = append(args, fmt.Sprintf("%d /* %s */", el.PatchFlag, transform.PatchFlag(el.PatchFlag)))
		if len(el.DynamicProps) > 0 {
			quoted := make([]string, len(el.DynamicProps))
			for i, n := range el.DynamicProps {
				quoted[i] = jsString(n)
			}
			args = append(args, fmt.Sprintf("[%s]", strings.Join(quoted, ", ")))
		}
	}
	call := fmt.Sprintf("%s(%s)", g.use(ctor), strings.Join(trimTrailingNulls(args), ", "))
	if asBlock {
		call = fmt.Sprintf("(%s(), %s)", g.use(HelperOpenBlock), call)
	}
	if el.Cached {
		return fmt.Sprintf("_cache[%d] || (_cache[%d] = %s)", el.CacheIndex, el.CacheIndex, call)
	}
	return call
}

func trimTrailingNulls(args []string) []string {
	for len(args) > 2 && args[len(args)-1] == "null" {
		args = args[:len(args)-1]
	}
	return args
}

func (g *gen) genElementChildren(el *template.Child) string {
	visible := nonWhitespace(el.Children)
	if len(visible) == 0 {
		return "null"
	}
	if len(visible) == 1 && visible[0].Kind == template.KindText {
		return jsString(visible[0].Content)
	}
	if len(visible) == 1 && (visible[0].Kind == template.KindInterpolation || visible[0].Kind == template.KindTextCall) {
		return fmt.Sprintf("%s(%s)", g.use(HelperToDisplayString), exprText(visible[0].Expr))
	}
	parts := make([]string, len(visible))
	for i, c := range visible {
		parts[i] = g.genChildExpr(c)
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
}

// genProps builds the props object literal from an Element's
// attribute/bind/on props, merging a dynamic FULL_PROPS spread when
// present.
func (g *gen) genProps(el *template.Child) string {
	var entries []string
	for _, p := range el.Props {
		switch {
		case p.Kind == template.PropAttribute:
			entries = append(entries, fmt.Sprintf("%s: %s", propKey(p.Name), quoteOptString(p.Value)))
		case p.Kind == template.PropDirective && p.DirName == "bind":
			if p.Arg == nil {
				g.use(HelperMergeProps)
				entries = append(entries, fmt.Sprintf("...%s", exprText(p.Exp)))
				continue
			}
			key := p.Arg.Content
			if p.Arg.IsStatic {
				entries = append(entries, fmt.Sprintf("%s: %s", propKey(key), exprText(p.Exp)))
			} else {
				entries = append(entries, fmt.Sprintf("[%s]: %s", exprText(p.Arg), exprText(p.Exp)))
			}
		case p.Kind == template.PropDirective && p.DirName == "on":
			name := "onClick"
			if p.Arg != nil {
				name = "on" + capitalize(p.Arg.Content)
			}
			entries = append(entries, fmt.Sprintf("%s: %s", name, exprText(p.Exp)))
		}
	}
	if len(entries) == 0 {
		return "null"
	}
	return fmt.Sprintf("{ %s }", strings.Join(entries, ", "))
}

func quoteOptString(v *string) string {
	if v == nil {
		return `""`
	}
	return jsString(*v)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func exprText(e *template.Expr) string {
	if e == nil {
		return ""
	}
	if e.Kind == template.ExprCompound {
		var sb strings.Builder
		for _, part := range e.Children {
			switch {
			case part.Helper != "":
				sb.WriteString(part.Helper)
			case part.Expr != nil:
				sb.WriteString(exprText(part.Expr))
			default:
				sb.WriteString(part.Text)
			}
		}
		return sb.String()
	}
	return e.Content
}
