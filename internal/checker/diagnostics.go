package checker

import (
	"fmt"
	"sync"

	"github.com/rex-template-analyzer/sfc/internal/diag"
)

// Position is a zero-based line/character position (spec §6, "Checker
// wire protocol").
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is the wire-level span shape, distinct from diag.Range (which
// is a byte offset pair) because the checker speaks line/character.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// RelatedInformation mirrors one entry of a diagnostic's
// relatedInformation array.
type RelatedInformation struct {
	Range   Range  `json:"range"`
	Message string `json:"message"`
}

// Diagnostic is one checker-reported diagnostic, wire shape per spec
// §6: `{range, severity, code, message, source?, relatedInformation?}`.
type Diagnostic struct {
	Range    Range               `json:"range"`
	Severity diag.Severity       `json:"severity"`
	Code     any                 `json:"code,omitempty"` // number or "TS<number>" string
	Message  string              `json:"message"`
	Source   string              `json:"source,omitempty"`
	Related  []RelatedInformation `json:"relatedInformation,omitempty"`
}

// droppedNumericCodes and droppedStringCodes reflect the
// single-file-module limitation, not real errors (spec §4.7).
var droppedNumericCodes = map[float64]bool{2307: true, 2666: true}
var droppedStringCodes = map[string]bool{"TS2307": true, "TS2666": true}

// IsDropped reports whether d should be filtered from the final
// diagnostics list.
func (d Diagnostic) IsDropped() bool {
	switch c := d.Code.(type) {
	case float64:
		return droppedNumericCodes[c]
	case int:
		return droppedNumericCodes[float64(c)]
	case string:
		return droppedStringCodes[c]
	default:
		return false
	}
}

// FilterDropped returns diags with the always-dropped categories
// removed.
func FilterDropped(diags []Diagnostic) []Diagnostic {
	out := diags[:0:0]
	for _, d := range diags {
		if !d.IsDropped() {
			out = append(out, d)
		}
	}
	return out
}

// DiagnosticsCache merges push (textDocument/publishDiagnostics) and
// pull (textDocument/diagnostic) results, keyed by URI. It is built
// concurrently during a batch and read after every subprocess's
// reader task has settled, mirroring the teacher's
// processTemplateFilesConcurrently (sync.Map during the concurrent
// phase, converted to a plain map after wg.Wait()).
type DiagnosticsCache struct {
	mu sync.RWMutex
	m  map[string][]Diagnostic
}

func NewDiagnosticsCache() *DiagnosticsCache {
	return &DiagnosticsCache{m: make(map[string][]Diagnostic)}
}

func (c *DiagnosticsCache) Set(uri string, diags []Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[uri] = FilterDropped(diags)
}

func (c *DiagnosticsCache) Get(uri string) []Diagnostic {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.m[uri]
}

// Snapshot returns a shallow copy of the whole cache, safe to range
// over after the batch completes.
func (c *DiagnosticsCache) Snapshot() map[string][]Diagnostic {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string][]Diagnostic, len(c.m))
	for k, v := range c.m {
		out[k] = v
	}
	return out
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s", d.Source, d.Range.Start.Line+1, d.Range.Start.Character+1, d.Message)
}
