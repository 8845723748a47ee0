package script

import (
	"regexp"

	"github.com/rex-template-analyzer/sfc/internal/jsast"
)

var composableName = regexp.MustCompile(`^use[A-Z]`)

var refAPIs = map[string]bool{"ref": true, "customRef": true}
var shallowRefAPIs = map[string]bool{"shallowRef": true}
var reactiveAPIs = map[string]bool{"reactive": true}
var shallowReactiveAPIs = map[string]bool{"shallowReactive": true}
var readonlyAPIs = map[string]bool{"readonly": true}
var shallowReadonlyAPIs = map[string]bool{"shallowReadonly": true}

// vueAPIs is the set of lifecycle/reactivity calls that are only valid
// in setup context (spec §4.3.4); it purposely includes provide/inject
// since both must run during setup.
var vueAPIs = map[string]bool{
	"ref": true, "shallowRef": true, "reactive": true, "shallowReactive": true,
	"readonly": true, "shallowReadonly": true, "computed": true, "watch": true,
	"watchEffect": true, "provide": true, "inject": true, "onMounted": true,
	"onUnmounted": true, "onUpdated": true, "onBeforeMount": true,
	"onBeforeUnmount": true, "getCurrentInstance": true, "toRefs": true, "toRef": true,
}

// Options configures one Analyze call.
type Options struct {
	// IsScriptSetup marks a compact "<script setup>" block, where any
	// top-level value export is invalid (spec §4.3.6).
	IsScriptSetup bool
}

type analyzer struct {
	sum         *SetupSummary
	scopeStack  []ScopeID
	funcStack   []FunctionID
	funcUsesAPI map[FunctionID]bool
}

// Analyze performs the C3 single pre-order traversal over prog,
// producing a SetupSummary. It never returns an error; problems are
// recorded as Loss/InvalidExport entries inside the summary for the
// caller to translate into diag.Diagnostics.
func Analyze(prog *jsast.Program, opts Options) *SetupSummary {
	a := &analyzer{sum: newSummary(), funcUsesAPI: make(map[FunctionID]bool)}

	rootKind := ScopeModule
	if opts.IsScriptSetup {
		rootKind = ScopeSetup
	}
	rootScope := a.pushScope(rootKind, "", spanOf(prog))
	a.sum.RootScope = rootScope

	rootFn := a.pushFunction("<setup>", rootScope, false, false)

	for _, stmt := range prog.Body {
		a.walkStmt(stmt, opts)
	}

	a.popFunction()
	a.popScope()

	a.resolveCallGraph(rootFn)
	a.finalizeComposableCalls()
	return a.sum
}

// finalizeComposableCalls fills in InSetupContext on every composable
// call site recorded during the traversal: SetupContext is only known
// once resolveCallGraph's BFS has run, so this can't be decided inline
// at the call site itself (spec §4.3.4).
func (a *analyzer) finalizeComposableCalls() {
	for i := range a.sum.CallGraph.ComposableCalls {
		c := &a.sum.CallGraph.ComposableCalls[i]
		c.InSetupContext = a.sum.CallGraph.SetupContext[c.Caller]
	}
}

func spanOf(n jsast.Node) Span {
	s := n.Span()
	return Span{Start: s.Start, End: s.End}
}

func (a *analyzer) currentScope() ScopeID {
	if len(a.scopeStack) == 0 {
		return NoScope
	}
	return a.scopeStack[len(a.scopeStack)-1]
}

func (a *analyzer) currentFunction() FunctionID {
	if len(a.funcStack) == 0 {
		return -1
	}
	return a.funcStack[len(a.funcStack)-1]
}

func (a *analyzer) pushScope(kind ScopeKind, subKind string, span Span) ScopeID {
	id := ScopeID(len(a.sum.Scopes))
	parent := NoScope
	if len(a.scopeStack) > 0 {
		parent = a.scopeStack[len(a.scopeStack)-1]
	}
	sc := &Scope{ID: id, Kind: kind, SubKind: subKind, Span: span, Parent: parent, Locals: make(map[string]BindingKind)}
	a.sum.Scopes = append(a.sum.Scopes, sc)
	if parent != NoScope {
		a.sum.Scopes[parent].Children = append(a.sum.Scopes[parent].Children, id)
	}
	a.scopeStack = append(a.scopeStack, id)
	return id
}

func (a *analyzer) popScope() {
	a.scopeStack = a.scopeStack[:len(a.scopeStack)-1]
}

func (a *analyzer) pushFunction(name string, scopeID ScopeID, isArrow, isAsync bool) FunctionID {
	parent := FunctionID(-1)
	if len(a.funcStack) > 0 {
		parent = a.funcStack[len(a.funcStack)-1]
	}
	id := FunctionID(len(a.sum.CallGraph.Functions))
	a.sum.CallGraph.Functions = append(a.sum.CallGraph.Functions, FunctionDef{
		ID: id, Name: name, ScopeID: scopeID, Parent: parent, IsArrow: isArrow, IsAsync: isAsync,
	})
	a.funcStack = append(a.funcStack, id)
	return id
}

func (a *analyzer) popFunction() {
	a.funcStack = a.funcStack[:len(a.funcStack)-1]
}

func (a *analyzer) declareLocal(name string, kind BindingKind, span Span) {
	a.sum.Bindings[name] = kind
	a.sum.BindingSpans[name] = span
	if sc := a.currentScope(); sc != NoScope {
		a.sum.Scopes[sc].Locals[name] = kind
	}
}

func (a *analyzer) canonicalCallee(name string) string {
	if alias, ok := a.sum.Aliases[name]; ok {
		return alias
	}
	return name
}

func (a *analyzer) recordReactivity(name string, origin OriginKind, detail string) *Reactivity {
	r := &Reactivity{Origin: origin, OriginDetail: detail, State: StateActive}
	a.sum.Reactivity[name] = r
	return r
}

func (a *analyzer) addLoss(name string, kind LossKind, severity DiagSeverity, span Span, suggestion string) {
	r, ok := a.sum.Reactivity[name]
	if !ok {
		r = &Reactivity{State: StateActive}
		a.sum.Reactivity[name] = r
	}
	r.Losses = append(r.Losses, Loss{Severity: severity, Kind: kind, Span: span, Suggestion: suggestion})
	switch kind {
	case LossReassignment:
		r.State = StateReassigned
	case LossValueExtraction, LossDestructure, LossSpread:
		r.State = StateReactivityLost
	}
}

func (a *analyzer) walkStmt(n jsast.Node, opts Options) {
	if n == nil {
		return
	}
	switch s := n.(type) {
	case *jsast.ImportDecl:
		a.walkImport(s)
	case *jsast.VarDecl:
		a.walkVarDecl(s)
	case *jsast.FunctionDecl:
		a.walkFunctionDecl(s)
	case *jsast.ExpressionStatement:
		a.walkExpr(s.Expression)
	case *jsast.ReturnStatement:
		a.walkExpr(s.Argument)
	case *jsast.IfStatement:
		a.walkExpr(s.Test)
		a.walkStmt(s.Consequent, opts)
		a.walkStmt(s.Alternate, opts)
	case *jsast.BlockStatement:
		a.pushScope(ScopeBlock, "block", spanOf(s))
		for _, st := range s.Body {
			a.walkStmt(st, opts)
		}
		a.popScope()
	case *jsast.ExportNamedDecl:
		if opts.IsScriptSetup {
			a.sum.InvalidExports = append(a.sum.InvalidExports, spanOf(s))
		}
		a.walkStmt(s.Declaration, opts)
	case *jsast.ExportTypeDecl:
		a.sum.TypeExports = append(a.sum.TypeExports, s.Name)
	}
}

func (a *analyzer) walkImport(d *jsast.ImportDecl) {
	for _, spec := range d.Specifiers {
		local := spec.Local
		if spec.IsDefault || spec.IsNamespace {
			a.declareLocal(local, ExternalModule, spanOf(spec))
			continue
		}
		if d.Source == "vue" && spec.Imported != local {
			a.sum.Aliases[local] = spec.Imported
		}
		if isKnownVueHook(spec.Imported) {
			a.declareLocal(local, SetupMaybeRef, spanOf(spec))
		} else {
			a.declareLocal(local, ExternalModule, spanOf(spec))
		}
	}
}

func isKnownVueHook(name string) bool {
	return vueAPIs[name] || name == "defineProps" || name == "defineEmits" ||
		name == "defineModel" || name == "defineExpose" || name == "withDefaults" ||
		name == "toRefs"
}

func (a *analyzer) walkFunctionDecl(f *jsast.FunctionDecl) {
	scopeID := a.pushScope(ScopeClosure, "", spanOf(f))
	a.pushFunction(f.Name, scopeID, false, f.IsAsync)
	a.declareLocal(f.Name, SetupConst, spanOf(f))
	for _, p := range f.Params {
		a.declareParam(p)
	}
	for _, st := range f.Body.Body {
		a.walkStmt(st, Options{})
	}
	a.popFunction()
	a.popScope()
}

func (a *analyzer) declareParam(p jsast.Node) {
	switch pt := p.(type) {
	case *jsast.Identifier:
		a.declareLocal(pt.Name, TemplateLocal, spanOf(pt))
	case *jsast.ObjectPattern:
		for _, prop := range pt.Properties {
			if id, ok := prop.Value.(*jsast.Identifier); ok {
				a.declareLocal(id.Name, TemplateLocal, spanOf(id))
			}
		}
		if pt.Rest != nil {
			a.declareLocal(pt.Rest.Name, TemplateLocal, spanOf(pt.Rest))
		}
	case *jsast.ArrayPattern:
		for _, el := range pt.Elements {
			if id, ok := el.(*jsast.Identifier); ok {
				a.declareLocal(id.Name, TemplateLocal, spanOf(id))
			}
		}
	}
}

func (a *analyzer) walkVarDecl(d *jsast.VarDecl) {
	for _, decl := range d.Declarators {
		a.walkDeclarator(d.DeclKind, decl)
	}
}

func (a *analyzer) walkDeclarator(declKind jsast.DeclKind, decl *jsast.Declarator) {
	switch id := decl.Id.(type) {
	case *jsast.Identifier:
		kind, origin, detail := a.classifyInit(declKind, decl.Init)
		a.declareLocal(id.Name, kind, spanOf(decl))
		if origin >= 0 {
			a.recordReactivity(id.Name, origin, detail)
		}
		a.maybeValueExtraction(id.Name, decl.Init)
		a.walkExpr(decl.Init)
	case *jsast.ObjectPattern:
		a.walkObjectPatternFromInit(id, decl.Init)
	case *jsast.ArrayPattern:
		for _, el := range id.Elements {
			if ident, ok := el.(*jsast.Identifier); ok {
				a.declareLocal(ident.Name, TemplateLocal, spanOf(ident))
			}
		}
		a.walkExpr(decl.Init)
	}
}

// maybeValueExtraction detects `const plain = someRef.value` (spec
// §4.3.2: "extracting .value into a plain binding").
func (a *analyzer) maybeValueExtraction(newName string, init jsast.Node) {
	mem, ok := init.(*jsast.MemberExpr)
	if !ok || mem.Computed {
		return
	}
	prop, ok := mem.Property.(*jsast.Identifier)
	if !ok || prop.Name != "value" {
		return
	}
	obj, ok := mem.Object.(*jsast.Identifier)
	if !ok {
		return
	}
	if _, tracked := a.sum.Reactivity[obj.Name]; !tracked {
		return
	}
	a.addLoss(obj.Name, LossValueExtraction, SevWarning, spanOf(mem), "keep the ref and read .value at the use site instead")
}

// classifyInit implements spec §4.3.1's classification rules. origin
// is -1 when the binding isn't reactive.
func (a *analyzer) classifyInit(declKind jsast.DeclKind, init jsast.Node) (BindingKind, OriginKind, string) {
	if init == nil {
		if declKind == jsast.DeclLet {
			return SetupLet, -1, ""
		}
		return SetupConst, -1, ""
	}
	switch n := init.(type) {
	case *jsast.Literal:
		return LiteralConst, -1, ""
	case *jsast.TemplateLiteral:
		if !n.HasExpressions {
			return LiteralConst, -1, ""
		}
		return SetupConst, -1, ""
	case *jsast.UnaryExpr:
		if n.Operator == "-" {
			if _, ok := n.Argument.(*jsast.Literal); ok {
				return LiteralConst, -1, ""
			}
		}
		return SetupConst, -1, ""
	case *jsast.ArrowFunction, *jsast.FunctionExpr:
		return SetupConst, -1, ""
	case *jsast.CallExpr:
		callee, ok := n.Callee.(*jsast.Identifier)
		if !ok {
			return SetupConst, -1, ""
		}
		resolved := a.canonicalCallee(callee.Name)
		a.recordVueAPICall(resolved)
		switch {
		case resolved == "computed":
			return SetupRef, OriginComputed, ""
		case resolved == "toRef":
			return SetupRef, OriginToRef, toRefPropertyOf(n)
		case refAPIs[resolved]:
			return SetupRef, OriginRef, ""
		case shallowRefAPIs[resolved]:
			return SetupRef, OriginShallowRef, ""
		case reactiveAPIs[resolved]:
			return SetupReactiveConst, OriginReactive, ""
		case shallowReactiveAPIs[resolved]:
			return SetupReactiveConst, OriginShallowReactive, ""
		case readonlyAPIs[resolved]:
			return SetupReactiveConst, OriginReadonly, ""
		case shallowReadonlyAPIs[resolved]:
			return SetupReactiveConst, OriginShallowReadonly, ""
		case resolved == "inject":
			return SetupMaybeRef, OriginInject, injectKeyOf(n)
		case resolved == "defineProps":
			return Props, OriginProps, ""
		case resolved == "withDefaults":
			if len(n.Args) > 0 {
				if inner, ok := n.Args[0].(*jsast.CallExpr); ok {
					if id, ok := inner.Callee.(*jsast.Identifier); ok && a.canonicalCallee(id.Name) == "defineProps" {
						return Props, OriginProps, ""
					}
				}
			}
			return SetupConst, -1, ""
		case composableName.MatchString(resolved):
			a.sum.CallGraph.ComposableCalls = append(a.sum.CallGraph.ComposableCalls, ComposableCallInfo{
				Name:   resolved,
				Span:   Span{Start: n.Span().Start, End: n.Span().End},
				Caller: a.currentFunction(),
			})
			return SetupRef, OriginComposableReturn, resolved
		default:
			return SetupConst, -1, ""
		}
	case *jsast.Identifier:
		if _, reactive := a.sum.Reactivity[n.Name]; reactive {
			return SetupConst, OriginDerived, n.Name
		}
		return SetupConst, -1, ""
	default:
		return SetupConst, -1, ""
	}
}

func injectKeyOf(call *jsast.CallExpr) string {
	if len(call.Args) == 0 {
		return ""
	}
	if lit, ok := call.Args[0].(*jsast.Literal); ok {
		return lit.Raw
	}
	return ""
}

// toRefPropertyOf extracts `toRef(source, 'prop')`'s second argument so
// OriginToRef's Detail records which property the ref aliases.
func toRefPropertyOf(call *jsast.CallExpr) string {
	if len(call.Args) < 2 {
		return ""
	}
	if lit, ok := call.Args[1].(*jsast.Literal); ok {
		return lit.Raw
	}
	return ""
}

func (a *analyzer) recordVueAPICall(name string) {
	if !vueAPIs[name] {
		return
	}
	a.sum.CallGraph.VueAPICalls = append(a.sum.CallGraph.VueAPICalls, name)
	if fn := a.currentFunction(); fn >= 0 {
		a.funcUsesAPI[fn] = true
	}
}

// walkObjectPatternFromInit handles both destructured-props
// (`const { a, b } = defineProps(...)`) and destructured-inject
// (`const { a } = inject(...)`) forms, plus the general
// reactive-binding-destructure loss for any other reactive source.
func (a *analyzer) walkObjectPatternFromInit(pat *jsast.ObjectPattern, init jsast.Node) {
	call, isCall := init.(*jsast.CallExpr)
	var calleeName string
	if isCall {
		if id, ok := call.Callee.(*jsast.Identifier); ok {
			calleeName = a.canonicalCallee(id.Name)
		}
	}

	switch calleeName {
	case "defineProps":
		for _, prop := range pat.Properties {
			local, key := destructureNames(prop)
			a.declareLocal(local, PropsAliased, spanOf(prop))
			a.sum.Macros.DestructuredProps[key] = DestructuredPropInfo{Local: local}
		}
		return
	case "inject":
		var props []string
		for _, prop := range pat.Properties {
			local, key := destructureNames(prop)
			props = append(props, key)
			a.declareLocal(local, SetupMaybeRef, spanOf(prop))
		}
		a.sum.ProvideInject.Injects = append(a.sum.ProvideInject.Injects, InjectEntry{
			Pattern: InjectPattern{Kind: InjectObjectDestructure, Props: props},
			Span:    spanOf(pat),
		})
		a.addLoss("<inject>", LossDestructure, SevWarning, spanOf(pat), "")
		return
	}

	if srcID, ok := init.(*jsast.Identifier); ok {
		if _, reactive := a.sum.Reactivity[srcID.Name]; reactive {
			a.addLoss(srcID.Name, LossDestructure, SevWarning, spanOf(pat), "access fields via the reactive object instead of destructuring")
		}
	}
	for _, prop := range pat.Properties {
		local, _ := destructureNames(prop)
		a.declareLocal(local, TemplateLocal, spanOf(prop))
	}
}

func destructureNames(prop *jsast.ObjectProperty) (local, key string) {
	if id, ok := prop.Value.(*jsast.Identifier); ok {
		local = id.Name
	}
	if keyID, ok := prop.Key.(*jsast.Identifier); ok {
		key = keyID.Name
	}
	if local == "" {
		local = key
	}
	return
}

func (a *analyzer) walkExpr(n jsast.Node) {
	if n == nil {
		return
	}
	switch e := n.(type) {
	case *jsast.CallExpr:
		a.walkCall(e)
	case *jsast.MemberExpr:
		a.walkExpr(e.Object)
		if e.Computed {
			a.walkExpr(e.Property)
		}
	case *jsast.AssignmentExpr:
		a.walkAssignment(e)
	case *jsast.ArrowFunction:
		a.walkArrow(e)
	case *jsast.FunctionExpr:
		a.walkFunctionExprValue(e)
	case *jsast.ObjectExpr:
		for _, p := range e.Properties {
			a.walkExpr(p.Value)
		}
		for _, sp := range e.Spreads {
			if id, ok := sp.(*jsast.Identifier); ok {
				if _, reactive := a.sum.Reactivity[id.Name]; reactive {
					a.addLoss(id.Name, LossSpread, SevWarning, spanOf(sp), "")
				}
			}
			a.walkExpr(sp)
		}
	case *jsast.ArrayExpr:
		for _, el := range e.Elements {
			a.walkExpr(el)
		}
	case *jsast.SpreadElement:
		a.walkExpr(e.Argument)
	case *jsast.UnaryExpr:
		a.walkExpr(e.Argument)
	}
}

func (a *analyzer) walkCall(call *jsast.CallExpr) {
	if id, ok := call.Callee.(*jsast.Identifier); ok {
		resolved := a.canonicalCallee(id.Name)
		a.recordVueAPICall(resolved)
		if caller := a.currentFunction(); caller >= 0 {
			a.sum.CallGraph.Edges = append(a.sum.CallGraph.Edges, CallEdge{Caller: caller, Callee: resolved})
		}
		switch resolved {
		case "provide":
			a.handleProvide(call)
		case "toRefs":
			a.handleToRefs(call)
		}
	} else {
		a.walkExpr(call.Callee)
	}
	for _, arg := range call.Args {
		a.walkExpr(arg)
	}
}

func (a *analyzer) handleProvide(call *jsast.CallExpr) {
	if len(call.Args) == 0 {
		return
	}
	key := ""
	if lit, ok := call.Args[0].(*jsast.Literal); ok {
		key = lit.Raw
	}
	a.sum.ProvideInject.Provides = append(a.sum.ProvideInject.Provides, ProvideEntry{Key: key, Span: spanOf(call)})
}

func (a *analyzer) handleToRefs(call *jsast.CallExpr) {
	if len(call.Args) == 0 {
		return
	}
	id, ok := call.Args[0].(*jsast.Identifier)
	if !ok {
		return
	}
	r, tracked := a.sum.Reactivity[id.Name]
	if !tracked || (r.Origin != OriginReactive && r.Origin != OriginShallowReactive) {
		a.addLoss(id.Name, LossToRefsOnNonReactive, SevWarning, spanOf(call), "toRefs expects a reactive() source")
	}
}

func (a *analyzer) walkAssignment(asn *jsast.AssignmentExpr) {
	a.walkExpr(asn.Value)
	switch target := asn.Target.(type) {
	case *jsast.Identifier:
		kind, hasKind := a.sum.Bindings[target.Name]
		if r, tracked := a.sum.Reactivity[target.Name]; tracked {
			r.UseSites = append(r.UseSites, UseSite{Span: spanOf(asn), Kind: UseWrite})
			if hasKind && (kind == SetupReactiveConst || kind == Props) {
				a.addLoss(target.Name, LossReassignment, SevWarning, spanOf(asn), "mutate a property instead of reassigning the whole binding")
			}
		}
		if hasKind && (kind == LiteralConst || kind == SetupConst || kind == Props) {
			a.addLoss(target.Name, LossConstReassignment, SevError, spanOf(asn), "declare with let to allow reassignment")
		}
	case *jsast.MemberExpr:
		a.maybeComputedWrite(target)
		a.walkExpr(target.Object)
	}
}

// maybeComputedWrite flags `someComputed.value = x` (spec
// §4.3.2-adjacent: computed() is read-only — Vue throws at runtime
// when its .value is assigned, mirroring reactivity_tracking.rs's
// distinct Computed origin).
func (a *analyzer) maybeComputedWrite(target *jsast.MemberExpr) {
	if target.Computed {
		return
	}
	prop, ok := target.Property.(*jsast.Identifier)
	if !ok || prop.Name != "value" {
		return
	}
	obj, ok := target.Object.(*jsast.Identifier)
	if !ok {
		return
	}
	r, tracked := a.sum.Reactivity[obj.Name]
	if !tracked || r.Origin != OriginComputed {
		return
	}
	a.addLoss(obj.Name, LossComputedWrite, SevError, spanOf(target),
		"computed() is read-only; use a writable computed or a separate ref instead")
}

func (a *analyzer) walkArrow(fn *jsast.ArrowFunction) {
	scopeID := a.pushScope(ScopeClosure, "", spanOf(fn))
	a.pushFunction("", scopeID, true, fn.IsAsync)
	for _, p := range fn.Params {
		a.declareParam(p)
	}
	if fn.Body != nil {
		for _, st := range fn.Body.Body {
			a.walkStmt(st, Options{})
		}
	} else {
		a.walkExpr(fn.ExprBody)
	}
	a.popFunction()
	a.popScope()
}

func (a *analyzer) walkFunctionExprValue(fn *jsast.FunctionExpr) {
	scopeID := a.pushScope(ScopeClosure, "", spanOf(fn))
	a.pushFunction(fn.Name, scopeID, false, fn.IsAsync)
	for _, p := range fn.Params {
		a.declareParam(p)
	}
	for _, st := range fn.Body.Body {
		a.walkStmt(st, Options{})
	}
	a.popFunction()
	a.popScope()
}

// resolveCallGraph runs the BFS described in spec §4.3.5: seed
// SetupContext with the root function, then follow name-resolved call
// edges marking every reached function as called_in_setup.
func (a *analyzer) resolveCallGraph(root FunctionID) {
	byName := make(map[string][]FunctionID)
	for _, fn := range a.sum.CallGraph.Functions {
		if fn.Name != "" {
			byName[fn.Name] = append(byName[fn.Name], fn.ID)
		}
	}
	a.sum.CallGraph.SetupContext[root] = true
	queue := []FunctionID{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, edge := range a.sum.CallGraph.Edges {
			if edge.Caller != cur {
				continue
			}
			for _, callee := range byName[edge.Callee] {
				if !a.sum.CallGraph.SetupContext[callee] {
					a.sum.CallGraph.SetupContext[callee] = true
					queue = append(queue, callee)
				}
			}
		}
	}
}
