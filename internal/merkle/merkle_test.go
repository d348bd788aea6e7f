package merkle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLeaf string

func (f fakeLeaf) Digest() string { return string(f) }

func leaves(digests ...string) []Leaf {
	out := make([]Leaf, len(digests))
	for i, d := range digests {
		out[i] = fakeLeaf(d)
	}
	return out
}

func TestEmptyTreeRoot(t *testing.T) {
	tr := New(nil)
	assert.Equal(t, "", tr.Root())
}

func TestSingleLeafRootIsLeafHash(t *testing.T) {
	tr := New(leaves("a"))
	assert.NotEmpty(t, tr.Root())

	other := New(leaves("a"))
	assert.Equal(t, tr.Root(), other.Root(), "same single leaf must hash deterministically")
}

func TestRootChangesWithLeafSet(t *testing.T) {
	tr1 := New(leaves("a", "b", "c"))
	tr2 := New(leaves("a", "b", "d"))
	assert.NotEqual(t, tr1.Root(), tr2.Root())
}

func TestProofVerifiesForEveryLeaf(t *testing.T) {
	digests := []string{"a", "b", "c", "d", "e"}
	tr := New(leaves(digests...))
	root := tr.Root()

	for _, d := range digests {
		proof, ok := tr.Proof(fakeLeaf(d))
		require.True(t, ok, "leaf %s should produce a proof", d)
		assert.True(t, Verify(proof, root), "proof for %s should verify", d)
	}
}

func TestProofFailsForNonMember(t *testing.T) {
	tr := New(leaves("a", "b", "c"))
	_, ok := tr.Proof(fakeLeaf("not-in-tree"))
	assert.False(t, ok)
}

func TestProofRejectsWrongRoot(t *testing.T) {
	tr := New(leaves("a", "b", "c"))
	proof, ok := tr.Proof(fakeLeaf("a"))
	require.True(t, ok)
	assert.False(t, Verify(proof, "some-other-root"))
}

func TestOddLeafCountProofs(t *testing.T) {
	digests := []string{"a", "b", "c"}
	tr := New(leaves(digests...))
	root := tr.Root()
	for _, d := range digests {
		proof, ok := tr.Proof(fakeLeaf(d))
		require.True(t, ok)
		assert.True(t, Verify(proof, root))
	}
}
