package transform

import (
	"strconv"
	"strings"

	"github.com/rex-template-analyzer/sfc/internal/diag"
	"github.com/rex-template-analyzer/sfc/internal/script"
	"github.com/rex-template-analyzer/sfc/internal/template"
)

// ctx threads everything a pass needs without widening every
// function's signature; it is built once per Run call.
type ctx struct {
	root    *template.Root
	summary *script.SetupSummary
	opts    Options
	bag     *diag.Bag

	cacheSlot int
	hoistN    int
	locals    []map[string]bool // stack of v-for alias names that suppress prefixing; slot-scope and arrow-function parameters are not tracked and are prefixed like free names
}

// Run executes the fixed nine-step pipeline in order (spec §4.4). It
// mutates root in place and returns the diagnostics collected along
// the way.
func Run(root *template.Root, summary *script.SetupSummary, opts Options) *diag.Bag {
	c := &ctx{root: root, summary: summary, opts: opts, bag: diag.NewBag()}

	c.liftStructuralDirectives(&root.Children)
	if opts.PrefixIdentifiers {
		c.pushLocals(nil)
		for _, child := range root.Children {
			c.prefixChild(child)
		}
		c.popLocals()
	}
	for _, child := range root.Children {
		c.normalizeVModel(child)
		c.normalizeVOn(child)
		c.normalizeVBind(child)
	}
	for _, child := range root.Children {
		c.analyzeSlots(child)
	}
	if opts.HoistStatic {
		for i, child := range root.Children {
			root.Children[i] = c.hoist(child)
		}
	}
	for _, child := range root.Children {
		c.computePatchFlags(child)
	}
	return c.bag
}

func (c *ctx) pushLocals(names []string) {
	frame := make(map[string]bool, len(names))
	for _, n := range names {
		frame[n] = true
	}
	c.locals = append(c.locals, frame)
}

func (c *ctx) popLocals() { c.locals = c.locals[:len(c.locals)-1] }

func (c *ctx) isLocal(name string) bool {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i][name] {
			return true
		}
	}
	return false
}

func (c *ctx) nextHoistName() string {
	c.hoistN++
	return "_hoisted_" + strconv.Itoa(c.hoistN)
}

func (c *ctx) nextCacheSlot() int {
	slot := c.cacheSlot
	c.cacheSlot++
	return slot
}

// --- step 1: structural directive lifting -------------------------------

// liftStructuralDirectives converts v-if/v-else-if/v-else runs on
// consecutive siblings into a single If node, and wraps any element
// carrying v-for into a For node (spec §4.4.1). A <template v-if
// v-for> lifts v-if outside v-for per the edge case in §4.4's closing
// paragraph.
func (c *ctx) liftStructuralDirectives(children *[]*template.Child) {
	out := make([]*template.Child, 0, len(*children))
	for i := 0; i < len(*children); i++ {
		child := (*children)[i]
		if child.Kind != template.KindElement {
			out = append(out, child)
			continue
		}
		c.liftStructuralDirectives(&child.Children)

		forProp := extractDirective(child, "for")
		ifProp := extractDirective(child, "if")

		if forProp != nil {
			wrapped := c.wrapFor(child, forProp)
			if ifProp != nil {
				// v-if lifts outside v-for: the If wraps the For.
				out = append(out, c.wrapIfChain(wrapped, ifProp, children, &i))
			} else {
				out = append(out, wrapped)
			}
			continue
		}

		if ifProp != nil {
			out = append(out, c.wrapIfChain(child, ifProp, children, &i))
			continue
		}

		out = append(out, child)
	}
	*children = out
}

func extractDirective(el *template.Child, name string) *template.Prop {
	for idx, p := range el.Props {
		if p.Kind == template.PropDirective && p.DirName == name {
			el.Props = append(el.Props[:idx], el.Props[idx+1:]...)
			return p
		}
	}
	return nil
}

func (c *ctx) wrapFor(el *template.Child, forProp *template.Prop) *template.Child {
	node := c.root.NewForNode(el.Loc)
	value, key, index, source := parseForExpression(forProp.Exp)
	if value == nil && source == forProp.Exp {
		c.bag.Addf(diag.CodeInvalidVForExpression, diag.SeverityError,
			diag.Range{Start: forProp.Loc.Start, End: forProp.Loc.End}, "transform",
			"invalid v-for expression %q", exprContentOf(forProp.Exp))
	}
	node.ValueAlias = value
	node.KeyAlias = key
	node.IndexAlias = index
	node.Source = source
	node.Children = []*template.Child{el}
	if keyProp := findKeyProp(el); keyProp != nil {
		node.KeyProp = keyProp.Exp
	}
	return node
}

// parseForExpression is the recursive-descent parser for
// `(item, key, index) in source` / `item in source`, including object
// destructuring patterns written verbatim in the alias slot (spec
// §4.4.1).
func parseForExpression(exp *template.Expr) (value, key, index, source *template.Expr) {
	if exp == nil {
		return nil, nil, nil, nil
	}
	content := exp.Content
	inIdx := findTopLevelIn(content)
	if inIdx < 0 {
		return nil, nil, nil, exp
	}
	lhs := strings.TrimSpace(content[:inIdx])
	rhs := strings.TrimSpace(content[inIdx+3:])
	source = &template.Expr{Kind: template.ExprSimple, Content: rhs}

	lhs = strings.TrimPrefix(lhs, "(")
	lhs = strings.TrimSuffix(lhs, ")")
	parts := splitTopLevelComma(lhs)
	mk := func(s string) *template.Expr {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		return &template.Expr{Kind: template.ExprSimple, Content: s}
	}
	if len(parts) > 0 {
		value = mk(parts[0])
	}
	if len(parts) > 1 {
		key = mk(parts[1])
	}
	if len(parts) > 2 {
		index = mk(parts[2])
	}
	return
}

func findTopLevelIn(s string) int {
	depth := 0
	for i := 0; i+2 <= len(s); i++ {
		switch s[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		}
		if depth == 0 && i+1 < len(s) && s[i] == ' ' && strings.HasPrefix(s[i:], " in ") {
			return i + 1
		}
	}
	return -1
}

func splitTopLevelComma(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// wrapIfChain collects this element plus any immediately following
// v-else-if/v-else siblings into a single If node (spec §4.4.1).
func (c *ctx) wrapIfChain(first *template.Child, ifProp *template.Prop, siblings *[]*template.Child, i *int) *template.Child {
	branch := c.root.NewIfBranchNode(first.Loc)
	branch.Condition = ifProp.Exp
	branch.UserKey = findKeyProp(first)
	branch.Children = []*template.Child{first}

	ifNode := c.root.NewIfNode(first.Loc)
	ifNode.Branches = []*template.Child{branch}

	for *i+1 < len(*siblings) {
		next := (*siblings)[*i+1]
		if next.Kind == template.KindElement && isWhitespaceOnly(next) {
			*i++
			continue
		}
		if next.Kind != template.KindElement {
			break
		}
		elseIfProp := extractDirective(next, "else-if")
		elseProp := extractDirective(next, "else")
		if elseIfProp == nil && elseProp == nil {
			break
		}
		b := c.root.NewIfBranchNode(next.Loc)
		b.Children = []*template.Child{next}
		if elseIfProp != nil {
			b.Condition = elseIfProp.Exp
			b.UserKey = findKeyProp(next)
		}
		ifNode.Branches = append(ifNode.Branches, b)
		*i++
		if elseProp != nil {
			break
		}
	}
	return ifNode
}

func findKeyProp(el *template.Child) *template.Prop {
	for _, p := range el.Props {
		if p.Kind == template.PropDirective && p.DirName == "bind" && p.Arg != nil && p.Arg.Content == "key" {
			return p
		}
	}
	return nil
}

func isWhitespaceOnly(c *template.Child) bool {
	return c.Kind == template.KindText && strings.TrimSpace(c.Content) == ""
}
