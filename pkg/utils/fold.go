package utils

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// FoldText normalises s for case-insensitive substring matching. Both the
// stored text and the query go through it, so "STRASSE" matches "straße".
func FoldText(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}
