package expr

// MaxSuggestionDistance bounds the edit distance of "did you mean" candidates.
const MaxSuggestionDistance = 2

// Levenshtein returns the edit distance between a and b, counting rune
// insertions, deletions and substitutions.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) < len(rb) {
		ra, rb = rb, ra
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i, ca := range ra {
		curr[0] = i + 1
		for j, cb := range rb {
			cost := 1
			if ca == cb {
				cost = 0
			}
			curr[j+1] = min(prev[j+1]+1, curr[j]+1, prev[j]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// FindSimilar returns the names closest to name, provided they are within
// maxDistance edits. All names tied at the smallest distance are returned in
// the order given.
func FindSimilar(name string, names []string, maxDistance int) []string {
	best := maxDistance + 1
	var out []string
	for _, candidate := range names {
		d := Levenshtein(name, candidate)
		switch {
		case d > maxDistance || d > best:
			continue
		case d < best:
			best = d
			out = []string{candidate}
		default:
			out = append(out, candidate)
		}
	}
	return out
}
