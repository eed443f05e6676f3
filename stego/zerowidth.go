package stego

import "strings"

const (
	Zero = '\u200b' // zero-width space
	One  = '\u200c' // zero-width non-joiner

	// a marker is injected after each of these
	boundaries = " .,!?;:"
)

func isBoundary(r rune) bool {
	return strings.ContainsRune(boundaries, r)
}

func marker(bit byte) rune {
	if bit == 1 {
		return One
	}
	return Zero
}

// Capacity returns how many bits fit into cover text before markers spill to the end.
func Capacity(cover string) int {
	n := 0
	for _, r := range cover {
		if isBoundary(r) {
			n++
		}
	}
	return n
}

// Embed copies cover and places one marker after each boundary character
// until the bits run out. Bits left over are appended at the end.
func Embed(cover string, bits Bits) string {
	var sb strings.Builder
	sb.Grow(len(cover) + 3*len(bits))

	i := 0
	for _, r := range cover {
		sb.WriteRune(r)
		if i < len(bits) && isBoundary(r) {
			sb.WriteRune(marker(bits[i]))
			i++
		}
	}
	for ; i < len(bits); i++ {
		sb.WriteRune(marker(bits[i]))
	}
	return sb.String()
}

// Extract returns the bits carried by markers, in order. Other characters are ignored.
func Extract(stego string) Bits {
	var bits Bits
	for _, r := range stego {
		switch r {
		case Zero:
			bits = append(bits, 0)
		case One:
			bits = append(bits, 1)
		}
	}
	return bits
}

// Visible strips all markers.
func Visible(stego string) string {
	return strings.Map(func(r rune) rune {
		if r == Zero || r == One {
			return -1
		}
		return r
	}, stego)
}

// HasHidden reports whether stego carries at least one marker.
func HasHidden(stego string) bool {
	return strings.ContainsRune(stego, Zero) || strings.ContainsRune(stego, One)
}

// Visualize replaces markers with [0] and [1]. For debugging only.
func Visualize(stego string) string {
	return strings.NewReplacer(string(Zero), "[0]", string(One), "[1]").Replace(stego)
}
