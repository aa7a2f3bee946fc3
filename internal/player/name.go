package player

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/l1jgo/authority/internal/component"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

const maxDisplayNameRunes = 32

// normalizeDisplayName folds full-width forms, composes to NFC, drops
// control runes, collapses whitespace and caps the length. An empty result
// falls back to "Player <id>".
func normalizeDisplayName(raw string, id component.PlayerID) string {
	s := width.Fold.String(raw)
	s = norm.NFC.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > maxDisplayNameRunes {
		s = strings.TrimSpace(string(r[:maxDisplayNameRunes]))
	}
	if s == "" {
		return fmt.Sprintf("Player %d", id)
	}
	return s
}
