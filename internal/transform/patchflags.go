package transform

import "github.com/rex-template-analyzer/sfc/internal/template"

// step 8: patch-flag computation (spec §4.4, step 8). Post-order:
// each element aggregates its own dynamic bindings into a PatchFlag
// bitmask; v-once marks CACHED and allocates a cache slot, v-memo
// allocates an element-level cache slot keyed by the memo expression.
func (c *ctx) computePatchFlags(child *template.Child) {
	if child == nil {
		return
	}
	switch child.Kind {
	case template.KindElement:
		for _, sub := range child.Children {
			c.computePatchFlags(sub)
		}
		c.computeElementFlags(child)
	case template.KindIf:
		for _, b := range child.Branches {
			c.computePatchFlags(b)
		}
	case template.KindIfBranch, template.KindFor:
		for _, sub := range child.Children {
			c.computePatchFlags(sub)
		}
		if child.Kind == template.KindFor {
			flag := PatchFlag(child.PatchFlag)
			if child.KeyProp != nil {
				flag |= PatchKeyedFragment
			} else {
				flag |= PatchUnkeyedFragment
			}
			child.PatchFlag = int(flag)
		}
	}
}

func (c *ctx) computeElementFlags(el *template.Child) {
	var once, memo *template.Prop
	// DYNAMIC_SLOTS was set by slot analysis (step 6) and is kept.
	flag := PatchFlag(el.PatchFlag) & PatchDynamicSlots
	var dynamicProps []string

	for _, p := range el.Props {
		if p.Kind != template.PropDirective {
			continue
		}
		switch p.DirName {
		case "once":
			once = p
		case "memo":
			memo = p
		case "bind":
			name := ""
			if p.Arg != nil {
				name = p.Arg.Content
			}
			if p.Exp == nil || p.Exp.IsStatic {
				continue
			}
			switch name {
			case "class":
				flag |= PatchClass
			case "style":
				flag |= PatchStyle
			case "":
				flag |= PatchFullProps
			default:
				flag |= PatchProps
				dynamicProps = append(dynamicProps, name)
			}
		case "on":
			flag |= PatchProps
		}
	}

	hasDynamicText := false
	for _, sub := range el.Children {
		if (sub.Kind == template.KindInterpolation || sub.Kind == template.KindTextCall) &&
			(sub.Expr == nil || !sub.Expr.IsStatic) {
			hasDynamicText = true
		}
	}
	if hasDynamicText && len(el.Children) == 1 {
		flag |= PatchText
	}

	el.DynamicProps = dynamicProps
	el.PatchFlag = int(flag)

	if memo != nil {
		el.Cached = true
		el.CacheIndex = c.nextCacheSlot()
		c.root.AddHelper("isMemoSame")
	}
	if once != nil {
		el.PatchFlag = int(PatchCached)
		el.Cached = true
		el.CacheIndex = c.nextCacheSlot()
		c.root.AddHelper("setBlockTracking")
	}
}
