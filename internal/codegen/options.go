package codegen

import "github.com/rex-template-analyzer/sfc/internal/transform"

// Target selects which of the three emission strategies spec §4.5
// describes.
type Target int

const (
	TargetClient Target = iota
	TargetSSR
	TargetVapor
)

// Options is transform.Options (preamble style, runtime module name,
// binding metadata, …) plus the codegen-specific output Target.
type Options struct {
	transform.Options
	Target Target
}

// Result is the C5 deliverable: the render function body plus the
// preamble that imports/destructures every helper it used.
type Result struct {
	Code     string
	Preamble string
}
