package derive

import "strings"

// BareLabel strips a leading ordinal prefix such as "4. " from a pillar
// label, so "4. Capital Social" becomes "Capital Social".
func BareLabel(label string) string {
	i := 0
	for i < len(label) && label[i] >= '0' && label[i] <= '9' {
		i++
	}
	if i == 0 || !strings.HasPrefix(label[i:], ". ") {
		return label
	}
	return strings.TrimLeft(label[i+2:], " ")
}
