package transform

// PatchFlag bit values. These match the downstream runtime and must
// never be renumbered (spec §4.4.8, reaffirmed as an open question in
// spec §9).
type PatchFlag int

const (
	PatchText             PatchFlag = 1
	PatchClass            PatchFlag = 2
	PatchStyle            PatchFlag = 4
	PatchProps            PatchFlag = 8
	PatchFullProps        PatchFlag = 16
	PatchNeedHydration    PatchFlag = 32
	PatchStableFragment   PatchFlag = 64
	PatchKeyedFragment    PatchFlag = 128
	PatchUnkeyedFragment  PatchFlag = 256
	PatchNeedPatch        PatchFlag = 512
	PatchDynamicSlots     PatchFlag = 1024
	PatchDevRootFragment  PatchFlag = 2048
	PatchCached           PatchFlag = -1
	PatchBail             PatchFlag = -2
)

var patchFlagNames = map[PatchFlag]string{
	PatchText:            "TEXT",
	PatchClass:           "CLASS",
	PatchStyle:           "STYLE",
	PatchProps:           "PROPS",
	PatchFullProps:       "FULL_PROPS",
	PatchNeedHydration:   "NEED_HYDRATION",
	PatchStableFragment:  "STABLE_FRAGMENT",
	PatchKeyedFragment:   "KEYED_FRAGMENT",
	PatchUnkeyedFragment: "UNKEYED_FRAGMENT",
	PatchNeedPatch:       "NEED_PATCH",
	PatchDynamicSlots:    "DYNAMIC_SLOTS",
	PatchDevRootFragment: "DEV_ROOT_FRAGMENT",
	PatchCached:          "CACHED",
	PatchBail:            "BAIL",
}

// String renders a bitmask as codegen's "1 /* TEXT */"-style comment
// body, e.g. "TEXT, PROPS" for 1|8.
func (f PatchFlag) String() string {
	if f == PatchCached || f == PatchBail {
		return patchFlagNames[f]
	}
	if f == 0 {
		return ""
	}
	out := ""
	for _, bit := range []PatchFlag{
		PatchText, PatchClass, PatchStyle, PatchProps, PatchFullProps,
		PatchNeedHydration, PatchStableFragment, PatchKeyedFragment,
		PatchUnkeyedFragment, PatchNeedPatch, PatchDynamicSlots, PatchDevRootFragment,
	} {
		if f&bit != 0 {
			if out != "" {
				out += ", "
			}
			out += patchFlagNames[bit]
		}
	}
	return out
}
