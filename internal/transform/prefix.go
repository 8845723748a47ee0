package transform

import (
	"regexp"
	"strings"

	"github.com/rex-template-analyzer/sfc/internal/script"
	"github.com/rex-template-analyzer/sfc/internal/template"
)

// identifierRe finds bare identifier tokens in a JS expression string,
// skipping over string/template literals and property-access tails
// (".foo") and object-key positions ("foo:").
var identifierRe = regexp.MustCompile(`[A-Za-z_$][A-Za-z0-9_$]*`)

// step 2: expression prefixing (spec §4.4, step 2).

func (c *ctx) prefixChild(child *template.Child) {
	switch child.Kind {
	case template.KindElement:
		for _, p := range child.Props {
			c.prefixProp(p)
		}
		c.prefixChildren(child.Children)
	case template.KindInterpolation, template.KindTextCall:
		c.prefixExpr(child.Expr)
	case template.KindIf:
		for _, b := range child.Branches {
			c.prefixChild(b)
		}
	case template.KindIfBranch:
		c.prefixExpr(child.Condition)
		c.prefixChildren(child.Children)
	case template.KindFor:
		names := localNamesOf(child.ValueAlias, child.KeyAlias, child.IndexAlias)
		c.prefixExpr(child.Source)
		c.pushLocals(names)
		c.prefixChildren(child.Children)
		c.popLocals()
	}
}

func (c *ctx) prefixChildren(children []*template.Child) {
	for _, ch := range children {
		c.prefixChild(ch)
	}
}

func localNamesOf(exprs ...*template.Expr) []string {
	var out []string
	for _, e := range exprs {
		if e == nil {
			continue
		}
		for _, m := range identifierRe.FindAllString(e.Content, -1) {
			out = append(out, m)
		}
	}
	return out
}

func (c *ctx) prefixProp(p *template.Prop) {
	if p.Kind != template.PropDirective {
		return
	}
	if p.DirName == "for" || p.DirName == "slot" {
		return // handled by their own passes with their own local frames
	}
	c.prefixExpr(p.Arg)
	c.prefixExpr(p.Exp)
}

// prefixExpr rewrites free identifiers in e.Content in place. Static
// expressions (hoisted literals, already-resolved content) are left
// untouched.
func (c *ctx) prefixExpr(e *template.Expr) {
	if e == nil || e.Kind != template.ExprSimple || e.IsStatic || e.Content == "" {
		return
	}
	e.Content = c.prefixSource(e.Content)
}

func (c *ctx) prefixSource(src string) string {
	var sb strings.Builder
	last := 0
	for _, loc := range identifierRe.FindAllStringIndex(src, -1) {
		start, end := loc[0], loc[1]
		name := src[start:end]
		if isReservedOrKeyword(name) {
			continue
		}
		if start > 0 && src[start-1] == '.' {
			continue // property-access tail, not a free identifier
		}
		// object-key shorthand target (`foo:`) vs. shorthand property (`{ foo }`)
		isKey := false
		j := end
		for j < len(src) && (src[j] == ' ' || src[j] == '\t') {
			j++
		}
		if j < len(src) && src[j] == ':' && (start == 0 || src[start-1] == '{' || src[start-1] == ',' || src[start-1] == ' ') {
			isKey = true
		}
		if isKey {
			continue
		}
		prefix, ok := c.prefixFor(name)
		if !ok {
			continue
		}
		sb.WriteString(src[last:start])
		sb.WriteString(prefix)
		sb.WriteString(name)
		last = end
	}
	sb.WriteString(src[last:])
	return sb.String()
}

// prefixFor returns the $props./$setup./_ctx. prefix for name, or
// ("", false) when name is a local, a template global, or (with
// Inline) a setup binding. A name unknown to the SetupSummary, a
// global like Math or console included, gets "_ctx.".
func (c *ctx) prefixFor(name string) (string, bool) {
	if c.isLocal(name) {
		return "", false
	}
	if c.opts.isTemplateGlobal(name) {
		return "", false
	}
	if kind, ok := c.bindingKind(name); ok {
		switch kind {
		case script.Props, script.PropsAliased:
			return "$props.", true
		default:
			if c.opts.Inline {
				return "", false
			}
			return "$setup.", true
		}
	}
	if c.summary != nil {
		if _, ok := c.summary.Reactivity[name]; !ok {
			return "_ctx.", true
		}
	}
	return "_ctx.", true
}

func (c *ctx) bindingKind(name string) (script.BindingKind, bool) {
	if c.opts.BindingMetadata != nil {
		raw, ok := c.opts.BindingMetadata[name]
		if !ok {
			return 0, false
		}
		return bindingKindFromString(raw), true
	}
	if c.summary == nil {
		return 0, false
	}
	kind, ok := c.summary.Bindings[name]
	return kind, ok
}

func bindingKindFromString(s string) script.BindingKind {
	switch s {
	case "props":
		return script.Props
	case "props-aliased":
		return script.PropsAliased
	case "setup-const":
		return script.SetupConst
	case "setup-ref":
		return script.SetupRef
	case "setup-reactive-const":
		return script.SetupReactiveConst
	case "setup-maybe-ref":
		return script.SetupMaybeRef
	case "setup-let":
		return script.SetupLet
	default:
		return script.SetupConst
	}
}

var jsKeywords = map[string]bool{
	"true": true, "false": true, "null": true, "undefined": true, "this": true,
	"typeof": true, "in": true, "of": true, "new": true, "void": true,
	"delete": true, "instanceof": true,
}

func isReservedOrKeyword(name string) bool { return jsKeywords[name] }
