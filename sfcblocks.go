package sfc

import "regexp"

// Block is one `<template>`/`<script>` region of an SFC source file:
// its inner text plus the byte offset of that text within the whole
// source, so downstream stages (virtualts, diagnostics) can report
// positions in terms of the original file rather than the block.
type Block struct {
	Content string
	Offset  int
	Lang    string
	Setup   bool
}

// StyleBlock is one `<style>` region, passed through untouched; the
// CSS compiler that would normalize it is an external collaborator
// (spec §1, "Out of scope: ... the CSS compiler (delegated)").
type StyleBlock struct {
	Content string
	Offset  int
	Lang    string
	Scoped  bool
}

// Blocks is the SFC block splitter's output (spec §1: "the SFC block
// splitter (produces { template?, script?, script_setup?, styles[] })").
type Blocks struct {
	Template    *Block
	Script      *Block
	ScriptSetup *Block
	Styles      []StyleBlock
}

var (
	templateRe = regexp.MustCompile(`(?s)<template(\s[^>]*)?>(.*)</template\s*>`)
	scriptRe   = regexp.MustCompile(`(?s)<script(\s[^>]*)?>(.*?)</script\s*>`)
	styleRe    = regexp.MustCompile(`(?s)<style(\s[^>]*)?>(.*?)</style\s*>`)
	langAttrRe = regexp.MustCompile(`lang\s*=\s*"([^"]*)"|lang\s*=\s*'([^']*)'`)
	setupAttrRe = regexp.MustCompile(`(^|\s)setup(\s|=|$)`)
	scopedAttrRe = regexp.MustCompile(`(^|\s)scoped(\s|=|$)`)
)

// splitBlocks is this module's minimal stand-in for the out-of-scope
// SFC block splitter collaborator: plain top-level tag extraction, the
// same "HTML-ish markup, not a full grammar" territory as
// internal/token, not a JS/TS parser. `<script>` and `<style>` blocks
// don't nest same-named tags, so non-greedy regexps are sufficient for
// them; the `<template>` block can contain nested `<template>` elements,
// so its regexp runs to the last `</template>` in the source.
func splitBlocks(source string) Blocks {
	var b Blocks

	if m := templateRe.FindStringSubmatchIndex(source); m != nil {
		attrs := ""
		if m[2] >= 0 {
			attrs = source[m[2]:m[3]]
		}
		b.Template = &Block{
			Content: source[m[4]:m[5]],
			Offset:  m[4],
			Lang:    langOf(attrs),
		}
	}

	for _, m := range scriptRe.FindAllStringSubmatchIndex(source, -1) {
		attrs := ""
		if m[2] >= 0 {
			attrs = source[m[2]:m[3]]
		}
		blk := &Block{
			Content: source[m[4]:m[5]],
			Offset:  m[4],
			Lang:    langOf(attrs),
			Setup:   setupAttrRe.MatchString(attrs),
		}
		if blk.Setup {
			b.ScriptSetup = blk
		} else {
			b.Script = blk
		}
	}

	for _, m := range styleRe.FindAllStringSubmatchIndex(source, -1) {
		attrs := ""
		if m[2] >= 0 {
			attrs = source[m[2]:m[3]]
		}
		b.Styles = append(b.Styles, StyleBlock{
			Content: source[m[4]:m[5]],
			Offset:  m[4],
			Lang:    langOf(attrs),
			Scoped:  scopedAttrRe.MatchString(attrs),
		})
	}

	return b
}

func langOf(attrs string) string {
	if m := langAttrRe.FindStringSubmatch(attrs); m != nil {
		if m[1] != "" {
			return m[1]
		}
		return m[2]
	}
	return ""
}
