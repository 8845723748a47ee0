package codegen

import (
	"fmt"
	"strings"

	"github.com/rex-template-analyzer/sfc/internal/script"
	"github.com/rex-template-analyzer/sfc/internal/template"
	"github.com/rex-template-analyzer/sfc/internal/transform"
)

// gen carries the mutable state of one Generate call. usedHelpers
// records every helper referenced while emitting, hoist emission
// included, and feeds the preamble (spec §4.5, "a secondary walker
// collects helpers used only during hoist emission"). No cache-slot
// counter lives here: cached nodes reuse the CacheIndex the transform
// pipeline assigned.
type gen struct {
	root    *template.Root
	summary *script.SetupSummary
	opts    Options

	usedHelpers map[HelperID]bool
	sb          strings.Builder
	indent      int
}

// Generate serializes root (already transformed by internal/transform)
// into a render function body plus preamble (spec §4.5).
func Generate(root *template.Root, summary *script.SetupSummary, opts Options) *Result {
	g := &gen{root: root, summary: summary, opts: opts, usedHelpers: make(map[HelperID]bool)}

	var body string
	switch opts.Target {
	case TargetSSR:
		body = g.genSSRFunction()
	case TargetVapor:
		body = g.genVaporFunction()
	default:
		body = g.genClientFunction()
	}

	return &Result{
		Code:     body,
		Preamble: g.genPreamble(),
	}
}

func (g *gen) use(id HelperID) string {
	g.usedHelpers[id] = true
	return id.Alias()
}

// --- preamble -------------------------------------------------------

func (g *gen) genPreamble() string {
	var names []HelperID
	for _, h := range orderedHelperIDs() {
		if g.usedHelpers[h] || g.root.Helpers[h.Name()] {
			names = append(names, h)
		}
	}
	// helper accounting from the transform pass registers names not
	// otherwise referenced directly by this walker (e.g. normalizeClass
	// merged during v-bind normalization).
	for name := range g.root.Helpers {
		if id, ok := lookupHelper(name); ok {
			found := false
			for _, h := range names {
				if h == id {
					found = true
					break
				}
			}
			if !found {
				names = append(names, id)
			}
		}
	}
	if len(names) == 0 {
		return ""
	}

	var parts []string
	for _, id := range names {
		parts = append(parts, fmt.Sprintf("%s as %s", id.Name(), id.Alias()))
	}
	module := g.opts.RuntimeModuleName
	if module == "" {
		module = "vue"
	}
	if g.opts.Mode == transform.ModeFunction {
		global := g.opts.RuntimeGlobalName
		if global == "" {
			global = "Vue"
		}
		return fmt.Sprintf("const { %s } = %s\n", destructureAliases(names), global)
	}
	return fmt.Sprintf("import { %s } from %q\n", strings.Join(parts, ", "), module)
}

func destructureAliases(ids []HelperID) string {
	var parts []string
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%s: %s", id.Name(), id.Alias()))
	}
	return strings.Join(parts, ", ")
}

func orderedHelperIDs() []HelperID {
	return []HelperID{
		HelperOpenBlock, HelperCreateElementBlock, HelperCreateElementVNode,
		HelperCreateVNode, HelperCreateBlock, HelperToDisplayString,
		HelperNormalizeClass, HelperNormalizeStyle, HelperWithDirectives,
		HelperWithModifiers, HelperWithKeys, HelperResolveComponent,
		HelperResolveDirective, HelperCreateCommentVNode, HelperFragment,
		HelperKeepAlive, HelperVModelText, HelperVModelCheckbox, HelperVModelRadio,
		HelperVModelSelect, HelperVShow, HelperRenderList, HelperRenderSlot,
		HelperMergeProps, HelperToHandlers, HelperVModelDynamic, HelperCreateSlots,
		HelperIsMemoSame, HelperSetBlockTracking,
	}
}
