package jsast

import "testing"

func TestNodeKindsAreDistinct(t *testing.T) {
	id := NewIdentifier(Span{0, 3}, "foo")
	lit := NewLiteral(Span{4, 7}, LitString, `"hi"`)
	if id.Kind() != KindIdentifier {
		t.Errorf("Identifier.Kind() = %v", id.Kind())
	}
	if lit.Kind() != KindLiteral {
		t.Errorf("Literal.Kind() = %v", lit.Kind())
	}
	if id.Span() != (Span{0, 3}) {
		t.Errorf("Identifier.Span() = %+v", id.Span())
	}
}

func TestProgramHoldsBodyNodesPolymorphically(t *testing.T) {
	decl := NewVarDecl(Span{0, 20}, DeclConst, []*Declarator{
		NewDeclarator(Span{6, 19}, NewIdentifier(Span{6, 9}, "msg"), NewLiteral(Span{12, 19}, LitString, `"hi"`)),
	})
	prog := NewProgram(Span{0, 20}, []Node{decl})
	if len(prog.Body) != 1 || prog.Body[0].Kind() != KindVarDecl {
		t.Fatalf("prog.Body = %+v", prog.Body)
	}
}
