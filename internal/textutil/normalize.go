package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeFilename maps a raw remote filename to its canonical form.
// The steps run in a fixed order: lowercase, trim, collapse whitespace runs
// to "-". Applying it twice yields the same result as applying it once.
func NormalizeFilename(name string) string {
	lowered := cases.Lower(language.Und).String(name)
	trimmed := strings.TrimFunc(lowered, unicode.IsSpace)
	if trimmed == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(trimmed))
	inSpace := false
	for _, r := range trimmed {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('-')
				inSpace = true
			}
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
