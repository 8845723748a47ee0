package diag

import "testing"

func TestCodeCategory(t *testing.T) {
	tests := []struct {
		code Code
		want Category
	}{
		{CodeEofInTag, CategoryLex},
		{CodeDuplicateAttribute, CategoryLex},
		{CodeInvalidVForExpression, CategoryTransform},
		{CodeReactivityLoss, CategoryAnalysis},
		{CodeUnmappableExpression, CategorySynthesis},
		{CodeTimeout, CategoryOrchestrator},
	}
	for _, tt := range tests {
		if got := tt.code.Category(); got != tt.want {
			t.Errorf("%s.Category() = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestBagOrdersBySourceRange(t *testing.T) {
	b := NewBag()
	b.Add(Diagnostic{Code: CodeReactivityLoss, Severity: SeverityWarning, Range: Range{Start: 20, End: 25}})
	b.Add(Diagnostic{Code: CodeEofInTag, Severity: SeverityError, Range: Range{Start: 5, End: 5}})
	b.Add(Diagnostic{Code: CodeDuplicateAttribute, Severity: SeverityError, Range: Range{Start: 5, End: 9}})

	items := b.Items()
	if len(items) != 3 {
		t.Fatalf("len(items) = %d, want 3", len(items))
	}
	if items[0].Range.Start != 5 || items[0].Code != CodeEofInTag {
		t.Errorf("items[0] = %+v, want the lower code at offset 5 first", items[0])
	}
	if items[2].Range.Start != 20 {
		t.Errorf("items[2].Range.Start = %d, want 20", items[2].Range.Start)
	}
}

func TestBagHasErrors(t *testing.T) {
	b := NewBag()
	b.Add(Diagnostic{Severity: SeverityWarning})
	if b.HasErrors() {
		t.Fatal("HasErrors() = true with only a warning")
	}
	b.Add(Diagnostic{Severity: SeverityError})
	if !b.HasErrors() {
		t.Fatal("HasErrors() = false with an error present")
	}
}
