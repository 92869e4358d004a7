package expr

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

var testNames = []string{"A", "b", "flag_1", "Zeta"}

// randomTree builds a pseudo-random tree of at most the given depth. With
// vars false only literals appear at the leaves.
func randomTree(r *rand.Rand, depth int, vars bool) Node {
	if depth <= 0 || r.Intn(4) == 0 {
		if vars && r.Intn(2) == 0 {
			return Var(testNames[r.Intn(len(testNames))])
		}
		return Lit(r.Intn(2) == 0)
	}
	switch r.Intn(3) {
	case 0:
		return Not(randomTree(r, depth-1, vars))
	case 1:
		return And(randomTree(r, depth-1, vars), randomTree(r, depth-1, vars))
	default:
		return Or(randomTree(r, depth-1, vars), randomTree(r, depth-1, vars))
	}
}

func randomTrees(seed int64, n, depth int, vars bool) []Node {
	r := rand.New(rand.NewSource(seed))
	out := make([]Node, n)
	for i := range out {
		out[i] = randomTree(r, depth, vars)
	}
	return out
}

func mustParse(t testing.TB, source string) Node {
	t.Helper()
	n, err := Parse(source)
	require.NoError(t, err, "parse %q", source)
	return n
}
