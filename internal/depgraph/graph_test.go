package depgraph

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func indexOf(order []string, name string) int {
	for i, n := range order {
		if n == name {
			return i
		}
	}
	return -1
}

func TestSortParentsFirst(t *testing.T) {
	g := New()
	g.AddEdge("orders", "customers")

	order, err := g.Sort()
	require.NoError(t, err)
	require.Equal(t, []string{"customers", "orders"}, order)
	require.Zero(t, g.EdgeCount())
}

func TestSortRespectsEveryEdge(t *testing.T) {
	edges := [][2]string{
		{"posts", "users"},
		{"comments", "posts"},
		{"comments", "users"},
		{"user_posts", "users"},
		{"user_posts", "posts"},
		{"attachments", "comments"},
	}
	g := New()
	g.AddNode("settings")
	for _, e := range edges {
		g.AddEdge(e[0], e[1])
	}

	order, err := g.Sort()
	require.NoError(t, err)
	require.Len(t, order, 6)
	for _, e := range edges {
		require.Less(t, indexOf(order, e[1]), indexOf(order, e[0]),
			"%s must come before %s in %v", e[1], e[0], order)
	}
	require.Zero(t, g.EdgeCount(), "a completed sort consumes every edge")
}

func TestSortTiesBrokenByName(t *testing.T) {
	g := New()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		g.AddNode(name)
	}
	g.AddEdge("beta", "alpha")

	order, err := g.Sort()
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "beta", "mid", "zeta"}, order)
}

func TestSortEmpty(t *testing.T) {
	order, err := New().Sort()
	require.NoError(t, err)
	require.Empty(t, order)
}

func TestSortDetectsCycle(t *testing.T) {
	g := New()
	g.AddEdge("a", "b")
	g.AddEdge("b", "a")
	g.AddEdge("c", "a")
	g.AddNode("d")

	order, err := g.Sort()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrGraphInconsistency))
	require.Equal(t, []string{"d"}, order)

	var inconsistency *InconsistencyError
	require.True(t, errors.As(err, &inconsistency))
	require.Equal(t, []string{"a", "b", "c"}, inconsistency.Remaining)
	require.Equal(t, [][]string{{"a", "b"}}, inconsistency.Cycles)
	require.Contains(t, err.Error(), "cycle: a <-> b")
}

func TestSelfReferenceIsACycle(t *testing.T) {
	g := New()
	g.AddEdge("categories", "categories")

	require.Equal(t, [][]string{{"categories"}}, g.Cycles())
	_, err := g.Sort()
	require.True(t, errors.Is(err, ErrGraphInconsistency))
}

func TestEdgeOperations(t *testing.T) {
	g := New()
	g.AddEdge("orders", "customers")
	g.AddEdge("orders", "customers")
	g.AddEdge("invoices", "orders")

	require.True(t, g.HasNode("customers"))
	require.False(t, g.HasNode("payments"))
	require.Equal(t, []string{"customers", "invoices", "orders"}, g.Nodes())
	require.Equal(t, []string{"orders"}, g.Dependents("customers"))
	require.Equal(t, 2, g.EdgeCount())

	g.RemoveEdge("orders", "customers")
	g.RemoveEdge("orders", "customers")
	g.RemoveEdge("payments", "orders")
	require.Equal(t, 1, g.EdgeCount())
	require.Empty(t, g.Dependents("customers"))
	require.Empty(t, g.Cycles())
}
