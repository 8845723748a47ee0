package transform

import "github.com/rex-template-analyzer/sfc/internal/template"

// step 7: static hoisting (spec §4.4, step 7). hoist returns the
// (possibly replaced) child: a hoistable Element gets the next
// _hoisted_N name, that name is appended to root.Hoists, and the
// element is replaced in its parent's children by a KindHoisted
// reference that carries the name and wraps the element, from which
// codegen renders the hoisted VNode.
func (c *ctx) hoist(child *template.Child) *template.Child {
	if child == nil {
		return nil
	}
	switch child.Kind {
	case template.KindElement:
		for i, sub := range child.Children {
			child.Children[i] = c.hoist(sub)
		}
		if c.isHoistable(child) {
			return c.pushHoist(child)
		}
		return child
	case template.KindIf:
		for i, b := range child.Branches {
			child.Branches[i] = c.hoist(b)
		}
		return child
	case template.KindIfBranch, template.KindFor:
		for i, sub := range child.Children {
			child.Children[i] = c.hoist(sub)
		}
		return child
	default:
		return child
	}
}

// isHoistable implements the exact rule from spec §4.4 step 7: every
// sub-expression is static, no directive other than class/style/id is
// present, and there are no dynamic bindings.
func (c *ctx) isHoistable(el *template.Child) bool {
	if el.Kind != template.KindElement {
		return false
	}
	for _, p := range el.Props {
		if p.Kind == template.PropAttribute {
			continue
		}
		switch p.DirName {
		case "bind":
			name := ""
			if p.Arg != nil {
				name = p.Arg.Content
			}
			if name != "class" && name != "style" && name != "id" {
				return false
			}
			if p.Exp == nil || !p.Exp.IsStatic {
				return false
			}
		default:
			return false
		}
	}
	for _, sub := range el.Children {
		if !c.isHoistableChild(sub) {
			return false
		}
	}
	return true
}

func (c *ctx) isHoistableChild(child *template.Child) bool {
	switch child.Kind {
	case template.KindText, template.KindComment:
		return true
	case template.KindElement:
		return c.isHoistable(child)
	case template.KindInterpolation, template.KindTextCall:
		return child.Expr != nil && child.Expr.IsStatic
	default:
		return false
	}
}

func (c *ctx) pushHoist(el *template.Child) *template.Child {
	name := c.nextHoistName()
	ref := c.root.NewHoistedNode(el.Loc)
	ref.Content = name
	el.HoistedPropsIdx = len(c.root.Hoists)
	c.root.Hoists = append(c.root.Hoists, &template.Expr{
		Kind:     template.ExprSimple,
		Content:  name,
		IsStatic: true,
	})
	ref.Children = []*template.Child{el}
	return ref
}
