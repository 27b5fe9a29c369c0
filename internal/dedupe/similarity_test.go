package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringSim_Identical(t *testing.T) {
	assert.InDelta(t, 1.0, stringSim("acme cleaners", "acme cleaners"), 0.001)
}

func TestStringSim_Empty(t *testing.T) {
	assert.Zero(t, stringSim("", "acme"))
	assert.Zero(t, stringSim("acme", ""))
	assert.Zero(t, stringSim("", ""))
}

func TestStringSim_MinorTypo(t *testing.T) {
	s := stringSim("acme cleaners", "acme cleanres")
	assert.Greater(t, s, 0.8)
}

func TestStringSim_TokenReorder(t *testing.T) {
	// Token overlap rescues word-order swaps that edit distance punishes.
	s := stringSim("j and b cleaners", "cleaners j and b")
	assert.Greater(t, s, 0.9)
}

func TestStringSim_Unrelated(t *testing.T) {
	s := stringSim("acme cleaners", "zebra books")
	assert.Less(t, s, 0.4)
}

func TestJaccard(t *testing.T) {
	assert.InDelta(t, 1.0, jaccard([]string{"a", "b"}, []string{"b", "a"}), 0.001)
	assert.InDelta(t, 1.0/3.0, jaccard([]string{"a", "b"}, []string{"b", "c"}), 0.001)
	assert.Zero(t, jaccard([]string{"a"}, []string{"b"}))
	assert.Zero(t, jaccard(nil, []string{"b"}))
}

func TestNameSim_CrossCompares(t *testing.T) {
	a := FromFields("1", "Joe's Diner", "JD Restaurant Group LLC", "", "", "", "", "")
	b := FromFields("2", "", "Joes Diner", "", "", "", "", "")
	assert.Greater(t, nameSim(a.Fields, b.Fields), 0.9)
}

func TestSimilarity_NearDuplicate(t *testing.T) {
	a := FromFields("1", "ACME CO.", "", "123 Main St", "Springfield", "il", "62701", "81")
	b := FromFields("2", "acme co", "", "123 main street", "springfield", "il", "62701", "81")
	assert.Greater(t, Similarity(a.Fields, b.Fields), 0.8)
}

func TestSimilarity_DistinctSameZip(t *testing.T) {
	a := FromFields("1", "Acme Cleaners", "", "123 Main St", "Springfield", "il", "62701", "81")
	b := FromFields("2", "Zebra Books", "", "900 Oak Ave", "Springfield", "il", "62701", "45")
	assert.Less(t, Similarity(a.Fields, b.Fields), 0.5)
}

func TestSimilarity_StateMismatchPenalty(t *testing.T) {
	a := FromFields("1", "Acme Cleaners", "", "123 Main St", "Springfield", "il", "", "")
	b := FromFields("2", "Acme Cleaners", "", "123 Main St", "Springfield", "mo", "", "")
	same := FromFields("3", "Acme Cleaners", "", "123 Main St", "Springfield", "il", "", "")

	assert.Less(t, Similarity(a.Fields, b.Fields), Similarity(a.Fields, same.Fields))
}

func TestSimilarity_Symmetric(t *testing.T) {
	a := FromFields("1", "Acme Cleaners", "", "123 Main St", "Springfield", "il", "62701", "81")
	b := FromFields("2", "Acme Cleaning Co", "", "125 Main St", "Springfield", "il", "62701", "81")
	assert.InDelta(t, Similarity(a.Fields, b.Fields), Similarity(b.Fields, a.Fields), 1e-9)
}
