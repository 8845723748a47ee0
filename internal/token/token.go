// Package token implements the SFC template tokenizer (C1): a
// single-pass, explicit-state byte-wise scanner that reports text, tag,
// attribute, directive, interpolation, and comment events through a
// callback interface. It allocates no AST nodes itself; all ranges are
// half-open byte offsets into the caller's input slice, in the spirit
// of the teacher's own `{{`/`}}` scanning loops
// (analyzer/validator/template_parser.go, content_validator.go), here
// generalized into a full state machine.
package token

import (
	"sort"

	"github.com/rex-template-analyzer/sfc/internal/diag"
)

// Options configures delimiters. DelimOpen/DelimClose default to the
// classic "{{"/"}}" pair but are pluggable so a differently-delimited
// SFC dialect needs no state-machine changes (SPEC_FULL §4.1).
type Options struct {
	DelimOpen  string
	DelimClose string
}

// DefaultOptions returns the "{{ }}" delimiter pair.
func DefaultOptions() Options {
	return Options{DelimOpen: "{{", DelimClose: "}}"}
}

// QuoteType records how an attribute value was quoted, reported on
// close per spec §4.1.
type QuoteType int

const (
	QuoteNone QuoteType = iota
	QuoteDouble
	QuoteSingle
)

// DirectiveShorthand identifies a transduced shorthand prefix.
type DirectiveShorthand int

const (
	ShorthandNone DirectiveShorthand = iota
	ShorthandBind                    // :
	ShorthandOn                      // @
	ShorthandBindProp                // . (bind.prop)
	ShorthandSlot                    // #
)

// Callbacks is implemented by the template parser (C2); the tokenizer
// never allocates an AST node itself.
type Callbacks interface {
	// IsInVPre is polled before each text iteration; while true,
	// interpolation and directive parsing are suppressed (spec §4.1).
	IsInVPre() bool

	OnText(start, end int)
	OnInterpolationStart(delimEnd int)
	OnInterpolationEnd(contentStart, contentEnd, delimStart int)
	OnComment(start, end int)

	OnTagOpen(name string, nameStart, nameEnd int)
	OnTagOpenEnd(selfClosing bool, pos int)
	OnTagClose(name string, nameStart, nameEnd int)

	// OnAttrName reports a raw attribute name together with any
	// shorthand the tokenizer transduced from a leading :/@/./# and the
	// dynamic-argument flag (name was wrapped in [...]).
	OnAttrName(raw string, shorthand DirectiveShorthand, isDynamicArg bool, start, end int)
	OnAttrValue(value string, quote QuoteType, start, end int)
	// OnAttrNoValue reports a boolean/valueless attribute.
	OnAttrNoValue(start, end int)

	OnError(code diag.Code, pos int)
}

type state int

const (
	stData state = iota
	stTagOpen
	stTagName
	stEndTagOpen
	stEndTagName
	stBeforeAttrName
	stAttrName
	stAfterAttrName
	stBeforeAttrValue
	stAttrValueDouble
	stAttrValueSingle
	stAttrValueUnquoted
	stSelfClosingStart
	stComment
	stInterpolation
	stBogusComment
)

// Tokenizer holds the scan cursor and lazily built newline-offset table
// used by GetPos for binary-search line/column lookup.
type Tokenizer struct {
	input       []byte
	opts        Options
	cb          Callbacks
	newlineOffs []int
	nlBuilt     bool
}

// New returns a Tokenizer bound to input and cb. opts.DelimOpen/Close
// fall back to DefaultOptions when empty.
func New(input []byte, cb Callbacks, opts Options) *Tokenizer {
	if opts.DelimOpen == "" {
		opts.DelimOpen = "{{"
	}
	if opts.DelimClose == "" {
		opts.DelimClose = "}}"
	}
	return &Tokenizer{input: input, cb: cb, opts: opts}
}

// GetPos converts a byte offset to a 1-based (line, column) pair via
// binary search over a lazily built newline-offset vector (spec §4.1).
func (t *Tokenizer) GetPos(index int) (line, col int) {
	if !t.nlBuilt {
		for i, b := range t.input {
			if b == '\n' {
				t.newlineOffs = append(t.newlineOffs, i)
			}
		}
		t.nlBuilt = true
	}
	lineNo := sort.SearchInts(t.newlineOffs, index) + 1
	lineStart := 0
	if lineNo > 1 {
		lineStart = t.newlineOffs[lineNo-2] + 1
	}
	return lineNo, index - lineStart + 1
}

// Tokenize drains the input, invoking callbacks as events are
// recognized. On EOF in a non-terminal state it emits the matching
// EofIn* diagnostic and best-effort flushes (spec §4.1).
func (t *Tokenizer) Tokenize() {
	n := len(t.input)
	pos := 0
	st := stData
	textStart := 0
	nameStart := 0
	var curTagName string
	attrStart := 0
	valStart := 0
	var shorthand DirectiveShorthand
	var isDynArg bool
	commentStart := 0
	interpStart := 0
	var pendingAttrName string
	var pendingAttrStart, pendingAttrEnd int
	openLen := len(t.opts.DelimOpen)
	closeLen := len(t.opts.DelimClose)

	flushText := func(end int) {
		if end > textStart {
			t.cb.OnText(textStart, end)
		}
	}

	for pos < n {
		switch st {
		case stData:
			if !t.cb.IsInVPre() && matchAt(t.input, pos, t.opts.DelimOpen) {
				flushText(pos)
				st = stInterpolation
				interpStart = pos
				t.cb.OnInterpolationStart(pos + openLen)
				pos += openLen
				continue
			}
			if t.input[pos] == '<' {
				if matchAt(t.input, pos, "<!--") {
					flushText(pos)
					st = stComment
					commentStart = pos + 4
					pos += 4
					continue
				}
				if pos+1 < n && t.input[pos+1] == '/' {
					flushText(pos)
					st = stEndTagOpen
					pos += 2
					continue
				}
				if pos+1 < n && (isAlpha(t.input[pos+1])) {
					flushText(pos)
					st = stTagOpen
					pos++
					continue
				}
			}
			pos++

		case stInterpolation:
			if matchAt(t.input, pos, t.opts.DelimClose) {
				t.cb.OnInterpolationEnd(interpStart+openLen, pos, pos)
				pos += closeLen
				textStart = pos
				st = stData
				continue
			}
			pos++

		case stComment:
			if matchAt(t.input, pos, "-->") {
				t.cb.OnComment(commentStart, pos)
				pos += 3
				textStart = pos
				st = stData
				continue
			}
			pos++

		case stTagOpen:
			nameStart = pos
			for pos < n && isTagNameChar(t.input[pos]) {
				pos++
			}
			curTagName = string(t.input[nameStart:pos])
			t.cb.OnTagOpen(curTagName, nameStart, pos)
			st = stBeforeAttrName

		case stEndTagOpen:
			nameStart = pos
			for pos < n && isTagNameChar(t.input[pos]) {
				pos++
			}
			if pos == nameStart {
				t.cb.OnError(diag.CodeMissingEndTagName, pos)
				st = stBogusComment
				continue
			}
			curTagName = string(t.input[nameStart:pos])
			st = stEndTagName

		case stEndTagName:
			for pos < n && t.input[pos] != '>' {
				pos++
			}
			if pos >= n {
				t.cb.OnError(diag.CodeEofInTag, pos)
				break
			}
			t.cb.OnTagClose(curTagName, nameStart, pos)
			pos++
			textStart = pos
			st = stData

		case stBogusComment:
			for pos < n && t.input[pos] != '>' {
				pos++
			}
			if pos < n {
				pos++
			}
			textStart = pos
			st = stData

		case stBeforeAttrName:
			for pos < n && isSpace(t.input[pos]) {
				pos++
			}
			if pos >= n {
				break
			}
			switch t.input[pos] {
			case '>':
				t.cb.OnTagOpenEnd(false, pos)
				pos++
				textStart = pos
				st = stData
				continue
			case '/':
				st = stSelfClosingStart
				pos++
				continue
			}
			attrStart = pos
			shorthand, isDynArg = ShorthandNone, false
			switch t.input[pos] {
			case ':':
				shorthand = ShorthandBind
			case '@':
				shorthand = ShorthandOn
			case '.':
				shorthand = ShorthandBindProp
			case '#':
				shorthand = ShorthandSlot
			}
			st = stAttrName

		case stAttrName:
			if t.input[pos] == '[' {
				isDynArg = true
				depth := 0
				for pos < n {
					if t.input[pos] == '[' {
						depth++
					} else if t.input[pos] == ']' {
						depth--
						if depth == 0 {
							pos++
							break
						}
					}
					pos++
				}
				continue
			}
			for pos < n && isAttrNameChar(t.input[pos]) {
				if t.input[pos] == '[' {
					break
				}
				pos++
			}
			st = stAfterAttrName

		case stAfterAttrName:
			raw := string(t.input[attrStart:pos])
			for pos < n && isSpace(t.input[pos]) {
				pos++
			}
			if pos < n && t.input[pos] == '=' {
				pos++
				for pos < n && isSpace(t.input[pos]) {
					pos++
				}
				st = stBeforeAttrValue
				pendingAttrName = raw
				pendingAttrStart = attrStart
				pendingAttrEnd = endOfName(attrStart, raw)
				continue
			}
			t.cb.OnAttrName(raw, shorthand, isDynArg, attrStart, endOfName(attrStart, raw))
			t.cb.OnAttrNoValue(attrStart, endOfName(attrStart, raw))
			st = stBeforeAttrName

		case stBeforeAttrValue:
			if pos >= n {
				break
			}
			switch t.input[pos] {
			case '"':
				valStart = pos + 1
				pos++
				st = stAttrValueDouble
			case '\'':
				valStart = pos + 1
				pos++
				st = stAttrValueSingle
			default:
				valStart = pos
				st = stAttrValueUnquoted
			}

		case stAttrValueDouble:
			for pos < n && t.input[pos] != '"' {
				pos++
			}
			t.cb.OnAttrName(pendingAttrName, shorthand, isDynArg, pendingAttrStart, pendingAttrEnd)
			t.cb.OnAttrValue(string(t.input[valStart:pos]), QuoteDouble, valStart, pos)
			if pos < n {
				pos++
			}
			st = stBeforeAttrName

		case stAttrValueSingle:
			for pos < n && t.input[pos] != '\'' {
				pos++
			}
			t.cb.OnAttrName(pendingAttrName, shorthand, isDynArg, pendingAttrStart, pendingAttrEnd)
			t.cb.OnAttrValue(string(t.input[valStart:pos]), QuoteSingle, valStart, pos)
			if pos < n {
				pos++
			}
			st = stBeforeAttrName

		case stAttrValueUnquoted:
			for pos < n && !isSpace(t.input[pos]) && t.input[pos] != '>' {
				pos++
			}
			t.cb.OnAttrName(pendingAttrName, shorthand, isDynArg, pendingAttrStart, pendingAttrEnd)
			t.cb.OnAttrValue(string(t.input[valStart:pos]), QuoteNone, valStart, pos)
			st = stBeforeAttrName

		case stSelfClosingStart:
			if pos < n && t.input[pos] == '>' {
				t.cb.OnTagOpenEnd(true, pos)
				pos++
				textStart = pos
				st = stData
				continue
			}
			st = stBeforeAttrName
		}
	}

	switch st {
	case stData:
		flushText(n)
	case stTagOpen, stTagName, stBeforeAttrName, stAttrName, stAfterAttrName,
		stBeforeAttrValue, stAttrValueDouble, stAttrValueSingle, stAttrValueUnquoted,
		stSelfClosingStart, stEndTagOpen, stEndTagName:
		t.cb.OnError(diag.CodeEofInTag, n)
	case stComment, stBogusComment:
		t.cb.OnError(diag.CodeEofInComment, n)
	case stInterpolation:
		flushText(interpStart)
	}
}

func endOfName(start int, raw string) int { return start + len(raw) }

func matchAt(b []byte, pos int, s string) bool {
	if pos+len(s) > len(b) {
		return false
	}
	return string(b[pos:pos+len(s)]) == s
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }

func isAlpha(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }

func isTagNameChar(b byte) bool {
	return isAlpha(b) || (b >= '0' && b <= '9') || b == '-' || b == '_' || b == '.' || b == ':'
}

func isAttrNameChar(b byte) bool {
	return !isSpace(b) && b != '=' && b != '>' && b != '"' && b != '\''
}
