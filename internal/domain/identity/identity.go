// Package identity holds the alias and display-name conventions shared by
// every layer that touches participant identity.
package identity

import "strings"

// NormalizeAlias canonicalizes a participant identifier: trimmed and
// lower-cased. The result is the stable document key; an empty result marks
// the input as unusable for persistence.
func NormalizeAlias(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ResolveDisplayName returns the name to show for a record: the display name
// when present, otherwise the alias.
func ResolveDisplayName(alias, displayName string) string {
	if name := strings.TrimSpace(displayName); name != "" {
		return name
	}
	return alias
}

// TitleCase upper-cases the first letter of each whitespace-separated word.
// Used to pretty up display names derived from raw aliases.
func TitleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
