package script

import (
	"testing"

	"github.com/rex-template-analyzer/sfc/internal/jsast"
)

func sp(a, b int) jsast.Span { return jsast.Span{Start: a, End: b} }

func TestBindingClassification(t *testing.T) {
	// const msg = 'hi'; const count = ref(0); const state = reactive({})
	prog := jsast.NewProgram(sp(0, 80), []jsast.Node{
		jsast.NewVarDecl(sp(0, 20), jsast.DeclConst, []*jsast.Declarator{
			jsast.NewDeclarator(sp(6, 19), jsast.NewIdentifier(sp(6, 9), "msg"), jsast.NewLiteral(sp(12, 19), jsast.LitString, `"hi"`)),
		}),
		jsast.NewVarDecl(sp(21, 45), jsast.DeclConst, []*jsast.Declarator{
			jsast.NewDeclarator(sp(27, 44), jsast.NewIdentifier(sp(27, 32), "count"),
				jsast.NewCallExpr(sp(35, 44), jsast.NewIdentifier(sp(35, 38), "ref"), []jsast.Node{jsast.NewLiteral(sp(39, 40), jsast.LitNumber, "0")})),
		}),
		jsast.NewVarDecl(sp(46, 80), jsast.DeclConst, []*jsast.Declarator{
			jsast.NewDeclarator(sp(52, 79), jsast.NewIdentifier(sp(52, 57), "state"),
				jsast.NewCallExpr(sp(60, 79), jsast.NewIdentifier(sp(60, 68), "reactive"), []jsast.Node{jsast.NewObjectExpr(sp(69, 71), nil, nil)})),
		}),
	})

	sum := Analyze(prog, Options{IsScriptSetup: true})

	if sum.Bindings["msg"] != LiteralConst {
		t.Errorf("msg = %v, want LiteralConst", sum.Bindings["msg"])
	}
	if sum.Bindings["count"] != SetupRef {
		t.Errorf("count = %v, want SetupRef", sum.Bindings["count"])
	}
	if sum.Bindings["state"] != SetupReactiveConst {
		t.Errorf("state = %v, want SetupReactiveConst", sum.Bindings["state"])
	}
	if r := sum.Reactivity["state"]; r == nil || r.Origin != OriginReactive {
		t.Errorf("state reactivity = %+v, want OriginReactive", r)
	}
}

func TestDestructuringReactiveBindingIsLoss(t *testing.T) {
	// const state = reactive({}); const { a } = state
	prog := jsast.NewProgram(sp(0, 60), []jsast.Node{
		jsast.NewVarDecl(sp(0, 30), jsast.DeclConst, []*jsast.Declarator{
			jsast.NewDeclarator(sp(6, 29), jsast.NewIdentifier(sp(6, 11), "state"),
				jsast.NewCallExpr(sp(14, 29), jsast.NewIdentifier(sp(14, 22), "reactive"), []jsast.Node{jsast.NewObjectExpr(sp(23, 25), nil, nil)})),
		}),
		jsast.NewVarDecl(sp(31, 60), jsast.DeclConst, []*jsast.Declarator{
			jsast.NewDeclarator(sp(37, 59),
				jsast.NewObjectPattern(sp(37, 44), []*jsast.ObjectProperty{
					jsast.NewObjectProperty(sp(39, 40), jsast.NewIdentifier(sp(39, 40), "a"), jsast.NewIdentifier(sp(39, 40), "a"), true, false),
				}, nil),
				jsast.NewIdentifier(sp(51, 56), "state")),
		}),
	})

	sum := Analyze(prog, Options{IsScriptSetup: true})

	r := sum.Reactivity["state"]
	if r == nil || len(r.Losses) != 1 || r.Losses[0].Kind != LossDestructure {
		t.Fatalf("state losses = %+v, want one LossDestructure", r)
	}
	if r.State != StateReactivityLost {
		t.Errorf("state.State = %v, want StateReactivityLost", r.State)
	}
}

func TestProvideInject(t *testing.T) {
	// provide('key', 1); const injected = inject('key')
	prog := jsast.NewProgram(sp(0, 60), []jsast.Node{
		jsast.NewExpressionStatement(sp(0, 20),
			jsast.NewCallExpr(sp(0, 19), jsast.NewIdentifier(sp(0, 7), "provide"), []jsast.Node{
				jsast.NewLiteral(sp(8, 13), jsast.LitString, `"key"`),
				jsast.NewLiteral(sp(15, 16), jsast.LitNumber, "1"),
			})),
		jsast.NewVarDecl(sp(21, 60), jsast.DeclConst, []*jsast.Declarator{
			jsast.NewDeclarator(sp(27, 59), jsast.NewIdentifier(sp(27, 35), "injected"),
				jsast.NewCallExpr(sp(38, 59), jsast.NewIdentifier(sp(38, 44), "inject"), []jsast.Node{jsast.NewLiteral(sp(45, 50), jsast.LitString, `"key"`)})),
		}),
	})

	sum := Analyze(prog, Options{IsScriptSetup: true})

	if len(sum.ProvideInject.Provides) != 1 || sum.ProvideInject.Provides[0].Key != `"key"` {
		t.Fatalf("Provides = %+v", sum.ProvideInject.Provides)
	}
	if sum.Bindings["injected"] != SetupMaybeRef {
		t.Errorf("injected = %v, want SetupMaybeRef", sum.Bindings["injected"])
	}
	if r := sum.Reactivity["injected"]; r == nil || r.Origin != OriginInject {
		t.Errorf("injected reactivity = %+v, want OriginInject", r)
	}
}

func TestSetupContextBFSMarksComposableCallers(t *testing.T) {
	// function helper() { ref(0) }  -- called directly from setup top
	helperBody := jsast.NewBlockStatement(sp(20, 30), []jsast.Node{
		jsast.NewExpressionStatement(sp(21, 29),
			jsast.NewCallExpr(sp(21, 28), jsast.NewIdentifier(sp(21, 24), "ref"), []jsast.Node{jsast.NewLiteral(sp(25, 26), jsast.LitNumber, "0")})),
	})
	helperDecl := jsast.NewFunctionDecl(sp(0, 30), "helper", nil, helperBody, false)
	callHelper := jsast.NewExpressionStatement(sp(31, 40), jsast.NewCallExpr(sp(31, 39), jsast.NewIdentifier(sp(31, 37), "helper"), nil))

	prog := jsast.NewProgram(sp(0, 40), []jsast.Node{helperDecl, callHelper})
	sum := Analyze(prog, Options{IsScriptSetup: true})

	var helperID FunctionID = -1
	for _, fn := range sum.CallGraph.Functions {
		if fn.Name == "helper" {
			helperID = fn.ID
		}
	}
	if helperID < 0 {
		t.Fatal("helper function not found in call graph")
	}
	if !sum.CallGraph.SetupContext[helperID] {
		t.Errorf("helper should be reachable from setup context")
	}
}

func TestComputedOriginDistinctFromRef(t *testing.T) {
	// const double = computed(() => 1)
	decl := jsast.NewVarDecl(sp(0, 35), jsast.DeclConst, []*jsast.Declarator{
		jsast.NewDeclarator(sp(6, 34), jsast.NewIdentifier(sp(6, 12), "double"),
			jsast.NewCallExpr(sp(15, 34), jsast.NewIdentifier(sp(15, 23), "computed"), []jsast.Node{
				jsast.NewArrowFunction(sp(24, 33), nil, nil, jsast.NewLiteral(sp(30, 31), jsast.LitNumber, "1"), false),
			})),
	})

	prog := jsast.NewProgram(sp(0, 35), []jsast.Node{decl})
	sum := Analyze(prog, Options{IsScriptSetup: true})

	if sum.Bindings["double"] != SetupRef {
		t.Errorf("double = %v, want SetupRef", sum.Bindings["double"])
	}
	if r := sum.Reactivity["double"]; r == nil || r.Origin != OriginComputed {
		t.Errorf("double reactivity = %+v, want OriginComputed", r)
	}
}

func TestComputedValueWriteIsError(t *testing.T) {
	// const double = computed(() => 1); double.value = 2
	decl := jsast.NewVarDecl(sp(0, 35), jsast.DeclConst, []*jsast.Declarator{
		jsast.NewDeclarator(sp(6, 34), jsast.NewIdentifier(sp(6, 12), "double"),
			jsast.NewCallExpr(sp(15, 34), jsast.NewIdentifier(sp(15, 23), "computed"), []jsast.Node{
				jsast.NewArrowFunction(sp(24, 33), nil, nil, jsast.NewLiteral(sp(30, 31), jsast.LitNumber, "1"), false),
			})),
	})
	write := jsast.NewExpressionStatement(sp(36, 54),
		jsast.NewAssignmentExpr(sp(36, 53), "=",
			jsast.NewMemberExpr(sp(36, 48), jsast.NewIdentifier(sp(36, 42), "double"), jsast.NewIdentifier(sp(43, 48), "value"), false),
			jsast.NewLiteral(sp(51, 52), jsast.LitNumber, "2")))

	prog := jsast.NewProgram(sp(0, 54), []jsast.Node{decl, write})
	sum := Analyze(prog, Options{IsScriptSetup: true})

	r := sum.Reactivity["double"]
	if r == nil || len(r.Losses) != 1 || r.Losses[0].Kind != LossComputedWrite {
		t.Fatalf("double losses = %+v, want one LossComputedWrite", r)
	}
	if r.Losses[0].Severity != SevError {
		t.Errorf("severity = %v, want SevError", r.Losses[0].Severity)
	}
}

func TestComposableCallRecordsSiteAndSetupContext(t *testing.T) {
	// const mouse = useMouse()
	decl := jsast.NewVarDecl(sp(0, 25), jsast.DeclConst, []*jsast.Declarator{
		jsast.NewDeclarator(sp(6, 24), jsast.NewIdentifier(sp(6, 11), "mouse"),
			jsast.NewCallExpr(sp(14, 24), jsast.NewIdentifier(sp(14, 22), "useMouse"), nil)),
	})

	prog := jsast.NewProgram(sp(0, 25), []jsast.Node{decl})
	sum := Analyze(prog, Options{IsScriptSetup: true})

	if len(sum.CallGraph.ComposableCalls) != 1 {
		t.Fatalf("expected 1 composable call, got %d", len(sum.CallGraph.ComposableCalls))
	}
	call := sum.CallGraph.ComposableCalls[0]
	if call.Name != "useMouse" {
		t.Errorf("Name = %q, want useMouse", call.Name)
	}
	if call.Span != (Span{Start: 14, End: 24}) {
		t.Errorf("Span = %+v, want {14 24}", call.Span)
	}
	if !call.InSetupContext {
		t.Error("top-level <script setup> call should be in setup context")
	}
}
