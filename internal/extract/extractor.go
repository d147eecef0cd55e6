package extract

import (
	"github.com/mikey/mail-threat-scanner/internal/core"
)

// TreeExtractor adapts the package-level extraction functions to the
// core.Extractor port
type TreeExtractor struct{}

// NewTreeExtractor creates a new tree extractor
func NewTreeExtractor() *TreeExtractor {
	return &TreeExtractor{}
}

// Extract walks the payload tree
func (TreeExtractor) Extract(payload *core.Part, messageID string) core.ExtractedContent {
	return Extract(payload, messageID)
}

// URLs returns the distinct URLs in the text, first-seen order
func (TreeExtractor) URLs(text string) []string {
	return URLs(text)
}
