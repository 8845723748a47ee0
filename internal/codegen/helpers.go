// Package codegen implements the C5 VDOM code generator: it walks a
// transformed template.Root and SetupSummary and serializes JavaScript
// source text in client, SSR, or vapor mode (spec §4.5).
package codegen

// HelperID enumerates every runtime helper the generator can reference
// (spec §4.5). Each has a stable local alias ("_" + name) used both in
// the preamble import/destructure and at every call site.
type HelperID int

const (
	HelperOpenBlock HelperID = iota
	HelperCreateElementBlock
	HelperCreateElementVNode
	HelperCreateVNode
	HelperCreateBlock
	HelperToDisplayString
	HelperNormalizeClass
	HelperNormalizeStyle
	HelperWithDirectives
	HelperWithModifiers
	HelperWithKeys
	HelperResolveComponent
	HelperResolveDirective
	HelperCreateCommentVNode
	HelperFragment
	HelperKeepAlive
	HelperVModelText
	HelperVModelCheckbox
	HelperVModelRadio
	HelperVModelSelect
	HelperVShow
	HelperRenderList
	HelperRenderSlot
	HelperMergeProps
	HelperToHandlers
	HelperVModelDynamic
	HelperCreateSlots
	HelperIsMemoSame
	HelperSetBlockTracking

	// SSR-only.
	HelperSSRInterpolate
	HelperSSRRenderAttr
	HelperSSRRenderAttrs
	HelperSSRRenderClass
	HelperSSRRenderStyle
	HelperSSRRenderComponent
	HelperSSRRenderList
	HelperSSRRenderSlot
)

var helperNames = map[HelperID]string{
	HelperOpenBlock:          "openBlock",
	HelperCreateElementBlock: "createElementBlock",
	HelperCreateElementVNode: "createElementVNode",
	HelperCreateVNode:        "createVNode",
	HelperCreateBlock:        "createBlock",
	HelperToDisplayString:    "toDisplayString",
	HelperNormalizeClass:     "normalizeClass",
	HelperNormalizeStyle:     "normalizeStyle",
	HelperWithDirectives:     "withDirectives",
	HelperWithModifiers:      "withModifiers",
	HelperWithKeys:           "withKeys",
	HelperResolveComponent:   "resolveComponent",
	HelperResolveDirective:   "resolveDirective",
	HelperCreateCommentVNode: "createCommentVNode",
	HelperFragment:           "Fragment",
	HelperKeepAlive:          "KeepAlive",
	HelperVModelText:         "vModelText",
	HelperVModelCheckbox:     "vModelCheckbox",
	HelperVModelRadio:        "vModelRadio",
	HelperVModelSelect:       "vModelSelect",
	HelperVShow:              "vShow",
	HelperRenderList:         "renderList",
	HelperRenderSlot:         "renderSlot",
	HelperMergeProps:         "mergeProps",
	HelperToHandlers:         "toHandlers",
	HelperVModelDynamic:      "vModelDynamic",
	HelperCreateSlots:        "createSlots",
	HelperIsMemoSame:         "isMemoSame",
	HelperSetBlockTracking:   "setBlockTracking",

	HelperSSRInterpolate:     "ssrInterpolate",
	HelperSSRRenderAttr:      "ssrRenderAttr",
	HelperSSRRenderAttrs:     "ssrRenderAttrs",
	HelperSSRRenderClass:     "ssrRenderClass",
	HelperSSRRenderStyle:     "ssrRenderStyle",
	HelperSSRRenderComponent: "ssrRenderComponent",
	HelperSSRRenderList:      "ssrRenderList",
	HelperSSRRenderSlot:      "ssrRenderSlot",
}

var helperIDByName = func() map[string]HelperID {
	m := make(map[string]HelperID, len(helperNames))
	for id, name := range helperNames {
		m[name] = id
	}
	return m
}()

func (h HelperID) Name() string  { return helperNames[h] }
func (h HelperID) Alias() string { return "_" + helperNames[h] }

// lookupHelper resolves a helper name (as registered by the transform
// pipeline into template.Root.Helpers) back to its HelperID.
func lookupHelper(name string) (HelperID, bool) {
	id, ok := helperIDByName[name]
	return id, ok
}
