package transform

import (
	"github.com/rex-template-analyzer/sfc/internal/diag"
	"github.com/rex-template-analyzer/sfc/internal/template"
)

// SlotDef is one extracted named-slot definition (spec §4.4, step 6).
type SlotDef struct {
	Name     string
	Dynamic  bool
	Props    *template.Expr // the v-slot scope binding, e.g. "{ item }"
	Children []*template.Child
	FnFlag   string // "STABLE" or "DYNAMIC"
}

// step 6: slot analysis. Named slot templates stay in place as
// <template v-slot:name> children; this pass records each name on
// root.Directives as a "slot:<name>" marker and flags the component
// DYNAMIC_SLOTS when any slot name is computed (spec §4.4, step 6).
func (c *ctx) analyzeSlots(child *template.Child) {
	c.walkElements(child, func(el *template.Child) {
		if el.TagType != template.TagComponent {
			return
		}
		hasDynamic := false
		seen := make(map[string]bool)
		for _, sub := range el.Children {
			if sub.Kind != template.KindElement || sub.TagType != template.TagTemplate {
				continue
			}
			for _, p := range sub.Props {
				if p.Kind != template.PropDirective || p.DirName != "slot" {
					continue
				}
				if p.IsDynamic {
					hasDynamic = true
					continue
				}
				name := "default"
				if p.Arg != nil {
					name = p.Arg.Content
				}
				if seen[name] {
					c.bag.Addf(diag.CodeDuplicateSlotName, diag.SeverityError,
						diag.Range{Start: p.Loc.Start, End: p.Loc.End}, "transform",
						"duplicate slot name %q", name)
				}
				seen[name] = true
				c.root.Directives = append(c.root.Directives, "slot:"+name)
			}
			if keyProp := findKeyProp(sub); keyProp != nil {
				c.bag.Addf(diag.CodeKeyOnTemplateSlot, diag.SeverityWarning,
					diag.Range{Start: keyProp.Loc.Start, End: keyProp.Loc.End}, "transform",
					"key is not valid on a slot outlet template")
			}
		}
		if hasDynamic {
			el.PatchFlag |= int(PatchDynamicSlots)
			c.root.AddHelper("createSlots")
		}
	})
}
