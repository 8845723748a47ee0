package template

import (
	"strings"

	"github.com/rex-template-analyzer/sfc/internal/diag"
	"github.com/rex-template-analyzer/sfc/internal/token"
)

// IsNativeTag classifies a tag name for the Native/Component split;
// callers supply their own (e.g. an HTML element allowlist) — the
// parser ships a reasonable default covering common HTML elements.
type IsNativeTag func(tag string) bool

// DefaultIsNativeTag recognizes the common HTML element set. Anything
// else (PascalCase or kebab-case custom names) is a Component.
func DefaultIsNativeTag(tag string) bool {
	_, ok := nativeTags[strings.ToLower(tag)]
	return ok
}

var nativeTags = func() map[string]struct{} {
	names := []string{
		"a", "abbr", "address", "area", "article", "aside", "audio", "b", "base",
		"bdi", "bdo", "blockquote", "body", "br", "button", "canvas", "caption",
		"cite", "code", "col", "colgroup", "data", "datalist", "dd", "del",
		"details", "dfn", "dialog", "div", "dl", "dt", "em", "embed", "fieldset",
		"figcaption", "figure", "footer", "form", "h1", "h2", "h3", "h4", "h5",
		"h6", "head", "header", "hgroup", "hr", "html", "i", "iframe", "img",
		"input", "ins", "kbd", "label", "legend", "li", "link", "main", "map",
		"mark", "menu", "meta", "meter", "nav", "noscript", "object", "ol",
		"optgroup", "option", "output", "p", "param", "picture", "pre",
		"progress", "q", "rp", "rt", "ruby", "s", "samp", "script", "section",
		"select", "small", "source", "span", "strong", "style", "sub", "summary",
		"sup", "table", "tbody", "td", "template", "textarea", "tfoot", "th",
		"thead", "time", "title", "tr", "track", "u", "ul", "var", "video", "wbr",
	}
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}()

var voidElements = map[string]struct{}{
	"area": {}, "base": {}, "br": {}, "col": {}, "embed": {}, "hr": {}, "img": {},
	"input": {}, "link": {}, "meta": {}, "param": {}, "source": {}, "track": {}, "wbr": {},
}

// Options configures the parser.
type Options struct {
	IsNativeTag IsNativeTag
	TokenOpts   token.Options
}

func DefaultOptions() Options {
	return Options{IsNativeTag: DefaultIsNativeTag, TokenOpts: token.DefaultOptions()}
}

type frame struct {
	el       *Child
	vPre     bool // true if this element (or an ancestor) is under v-pre
	children []*Child
}

// Parser consumes tokenizer events into an element stack and builds a
// Root (spec §4.2).
type Parser struct {
	src    []byte
	opts   Options
	root   *Root
	bag    *diag.Bag
	tk     *token.Tokenizer
	stack  []*frame
	rootKids []*Child

	// attribute-collection scratch for the element currently being opened
	curEl       *Child
	curVPre     bool
	pendingName string
	pendingDir  bool
	pendingArg  *string
	pendingMods []string
	pendingLoc  Loc
	pendingDynamic bool
}

// Parse runs the tokenizer over src and returns the resulting Root
// together with a diagnostics bag (never nil; may be empty).
func Parse(src []byte, opts Options) (*Root, *diag.Bag) {
	if opts.IsNativeTag == nil {
		opts.IsNativeTag = DefaultIsNativeTag
	}
	p := &Parser{
		src:  src,
		opts: opts,
		root: NewRoot(),
		bag:  diag.NewBag(),
	}
	p.tk = token.New(src, p, opts.TokenOpts)
	p.tk.Tokenize()
	p.root.Children = p.rootKids
	return p.root, p.bag
}

func (p *Parser) currentVPre() bool {
	if len(p.stack) == 0 {
		return false
	}
	return p.stack[len(p.stack)-1].vPre
}

// IsInVPre implements token.Callbacks.
func (p *Parser) IsInVPre() bool { return p.currentVPre() }

func (p *Parser) appendChild(c *Child) {
	if len(p.stack) == 0 {
		p.rootKids = append(p.rootKids, c)
		return
	}
	top := p.stack[len(p.stack)-1]
	top.children = append(top.children, c)
}

func (p *Parser) OnText(start, end int) {
	if end <= start {
		return
	}
	c := p.root.newChild(KindText, Loc{start, end})
	c.Content = string(p.src[start:end])
	p.appendChild(c)
}

func (p *Parser) OnInterpolationStart(delimEnd int) {}

func (p *Parser) OnInterpolationEnd(contentStart, contentEnd, delimStart int) {
	content := strings.TrimSpace(string(p.src[contentStart:contentEnd]))
	c := p.root.newChild(KindInterpolation, Loc{contentStart, contentEnd})
	c.Expr = p.root.newExpr(ExprSimple, Loc{contentStart, contentEnd})
	c.Expr.Content = content
	c.Expr.IsStatic = false
	p.appendChild(c)
}

func (p *Parser) OnComment(start, end int) {
	c := p.root.newChild(KindComment, Loc{start, end})
	c.Content = string(p.src[start:end])
	p.appendChild(c)
}

func (p *Parser) OnTagOpen(name string, nameStart, nameEnd int) {
	name = p.root.intern(name)
	tagType := TagNative
	switch {
	case name == "slot":
		tagType = TagSlot
	case name == "template":
		tagType = TagTemplate
	case !p.opts.IsNativeTag(name):
		tagType = TagComponent
	}
	c := p.root.newChild(KindElement, Loc{Start: nameStart})
	c.Tag = name
	c.TagType = tagType
	p.curEl = c
	p.curVPre = p.currentVPre()
}

func (p *Parser) finishAttr(valueStart, valueEnd int, value *string) {
	if p.curEl == nil {
		return
	}
	if p.pendingDir {
		prop := p.root.newProp(PropDirective, p.pendingLoc)
		prop.DirName = p.pendingName
		prop.Modifiers = p.pendingMods
		prop.IsDynamic = p.pendingDynamic
		if p.pendingArg != nil {
			prop.Arg = p.root.newExpr(ExprSimple, Loc{})
			prop.Arg.Content = *p.pendingArg
			prop.Arg.IsStatic = !p.pendingDynamic
		}
		if value != nil {
			prop.Exp = p.root.newExpr(ExprSimple, Loc{Start: valueStart, End: valueEnd})
			prop.Exp.Content = *value
			prop.Exp.IsStatic = false
		}
		for _, existing := range p.curEl.Props {
			if existing.Kind == PropDirective && existing.DirName == prop.DirName &&
				exprContent(existing.Arg) == exprContent(prop.Arg) {
				p.bag.Addf(diag.CodeDuplicateAttribute, diag.SeverityWarning, diag.Range{Start: p.pendingLoc.Start, End: p.pendingLoc.End}, "template", "duplicate directive %q", prop.DirName)
			}
		}
		p.curEl.Props = append(p.curEl.Props, prop)
		if prop.DirName == "pre" {
			p.curVPre = true
		}
		return
	}

	prop := p.root.newProp(PropAttribute, p.pendingLoc)
	prop.Name = p.pendingName
	prop.Value = value
	for _, existing := range p.curEl.Props {
		if existing.Kind == PropAttribute && existing.Name == prop.Name {
			p.bag.Addf(diag.CodeDuplicateAttribute, diag.SeverityError, diag.Range{Start: p.pendingLoc.Start, End: p.pendingLoc.End}, "template", "duplicate attribute %q", prop.Name)
		}
	}
	p.curEl.Props = append(p.curEl.Props, prop)
}

func (p *Parser) OnAttrName(raw string, shorthand token.DirectiveShorthand, isDynamicArg bool, start, end int) {
	p.pendingLoc = Loc{start, end}
	dirName, arg, mods, isDir, dyn := classifyAttrName(raw, shorthand, isDynamicArg)
	p.pendingDir = isDir
	p.pendingName = dirName
	p.pendingArg = arg
	p.pendingMods = mods
	p.pendingDynamic = dyn
	if !isDir {
		p.pendingName = raw
	}
}

func (p *Parser) OnAttrValue(value string, quote token.QuoteType, start, end int) {
	v := value
	p.finishAttr(start, end, &v)
}

func (p *Parser) OnAttrNoValue(start, end int) {
	p.finishAttr(start, end, nil)
}

func (p *Parser) OnTagOpenEnd(selfClosing bool, pos int) {
	if p.curEl == nil {
		return
	}
	el := p.curEl
	el.Loc.End = pos
	p.curEl = nil
	if el.TagType == TagComponent {
		p.root.Components = append(p.root.Components, el.Tag)
	}
	_, isVoid := voidElements[el.Tag]
	if selfClosing || isVoid {
		p.appendChild(el)
		return
	}
	p.stack = append(p.stack, &frame{el: el, vPre: p.curVPre})
}

func (p *Parser) OnTagClose(name string, nameStart, nameEnd int) {
	name = p.root.intern(name)
	idx := -1
	for i := len(p.stack) - 1; i >= 0; i-- {
		if p.stack[i].el.Tag == name {
			idx = i
			break
		}
	}
	if idx == -1 {
		// Unmatched close tag; ignore per "best-effort AST" (spec §4.1).
		return
	}
	// Implicit-close any tags above idx (HTML auto-close rule,
	// simplified: everything nested deeper than the matching tag is
	// closed along with it).
	for len(p.stack) > idx {
		top := p.stack[len(p.stack)-1]
		top.el.Children = top.children
		p.stack = p.stack[:len(p.stack)-1]
		p.appendChild(top.el)
	}
}

func exprContent(e *Expr) string {
	if e == nil {
		return ""
	}
	return e.Content
}

// classifyAttrName turns a raw tokenizer-reported attribute name into
// a directive name + argument + modifiers, transducing shorthand
// prefixes per spec §4.1: ":" -> bind, "@" -> on, "." -> bind.prop,
// "#" -> slot.
func classifyAttrName(raw string, shorthand token.DirectiveShorthand, isDynamicArg bool) (dirName string, arg *string, mods []string, isDirective bool, dynamic bool) {
	switch shorthand {
	case token.ShorthandBind:
		return splitArgMods("bind", raw[1:], isDynamicArg)
	case token.ShorthandOn:
		return splitArgMods("on", raw[1:], isDynamicArg)
	case token.ShorthandBindProp:
		n, a, m, _, dyn := splitArgMods("bind", raw[1:], isDynamicArg)
		m = append(m, "prop")
		return n, a, m, true, dyn
	case token.ShorthandSlot:
		return splitArgMods("slot", raw[1:], isDynamicArg)
	}
	if !strings.HasPrefix(raw, "v-") {
		return "", nil, nil, false, false
	}
	rest := raw[2:]
	// modifiers always start with '.', after the directive's name:arg.
	parts := strings.Split(rest, ".")
	head := parts[0]
	modifiers := parts[1:]
	name := head
	var argStr *string
	if i := strings.IndexByte(head, ':'); i >= 0 {
		name = head[:i]
		a := head[i+1:]
		argStr = &a
	}
	if isDynamicArg && argStr != nil {
		trimmed := strings.TrimSuffix(strings.TrimPrefix(*argStr, "["), "]")
		argStr = &trimmed
	}
	return name, argStr, modifiers, true, isDynamicArg
}

func splitArgMods(name, rest string, isDynamicArg bool) (string, *string, []string, bool, bool) {
	parts := strings.Split(rest, ".")
	argPart := parts[0]
	mods := parts[1:]
	var arg *string
	if argPart != "" {
		a := argPart
		if isDynamicArg {
			a = strings.TrimSuffix(strings.TrimPrefix(a, "["), "]")
		}
		arg = &a
	}
	return name, arg, mods, true, isDynamicArg
}

func (p *Parser) OnError(code diag.Code, pos int) {
	p.bag.Add(diag.Diagnostic{
		Code:     code,
		Severity: diag.SeverityError,
		Range:    diag.Range{Start: pos, End: pos},
		Source:   "template",
		Message:  code.String(),
	})
}
