package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(caseID, trade, street, city, state, zip string) Record {
	return FromFields(caseID, trade, "", street, city, state, zip, "")
}

func TestBlockKeys_ZipAndCity(t *testing.T) {
	rec := testRecord("1", "Acme Cleaners", "123 Main St", "Springfield", "IL", "62701")
	keys := BlockKeys(rec.Fields)
	require.Len(t, keys, 2)
	assert.Equal(t, "z:62701:acme", keys[0])
	assert.Equal(t, "c:il:springfield:123", keys[1])
}

func TestBlockKeys_ZipPlusFour(t *testing.T) {
	rec := testRecord("1", "Acme Cleaners", "", "", "", "62701-1234")
	keys := BlockKeys(rec.Fields)
	require.Len(t, keys, 1)
	// Folding drops the dash; only the first five digits go into the key.
	assert.Equal(t, "z:62701:acme", keys[0])
}

func TestBlockKeys_FallsBackToLegalName(t *testing.T) {
	rec := FromFields("1", "", "Acme Cleaners Inc", "", "", "", "62701", "")
	keys := BlockKeys(rec.Fields)
	require.Len(t, keys, 1)
	assert.Equal(t, "z:62701:acme", keys[0])
}

func TestBlockKeys_ShortName(t *testing.T) {
	rec := testRecord("1", "Bo", "", "", "", "62701")
	keys := BlockKeys(rec.Fields)
	require.Len(t, keys, 1)
	assert.Equal(t, "z:62701:bo", keys[0])
}

func TestBlockKeys_NoUsableFields(t *testing.T) {
	rec := testRecord("1", "", "", "", "", "")
	assert.Empty(t, BlockKeys(rec.Fields))
}

func TestCandidatePairs_SharedZipBlock(t *testing.T) {
	records := []Record{
		testRecord("1", "Acme Cleaners", "123 Main St", "Springfield", "IL", "62701"),
		testRecord("2", "Acme Cleaners Inc", "123 Main Street", "Springfield", "IL", "62701"),
		testRecord("3", "Zebra Books", "9 Oak Ave", "Peoria", "IL", "61601"),
	}
	pairs := CandidatePairs(records)
	require.Len(t, pairs, 1)
	assert.Equal(t, Pair{A: 0, B: 1}, pairs[0])
}

func TestCandidatePairs_EachPairOnce(t *testing.T) {
	// Records sharing both blocking keys must still be compared once.
	records := []Record{
		testRecord("1", "Acme Cleaners", "123 Main St", "Springfield", "IL", "62701"),
		testRecord("2", "Acme Cleaners", "123 Main St", "Springfield", "IL", "62701"),
	}
	pairs := CandidatePairs(records)
	require.Len(t, pairs, 1)
	assert.Equal(t, Pair{A: 0, B: 1}, pairs[0])
}

func TestCandidatePairs_Deterministic(t *testing.T) {
	records := []Record{
		testRecord("1", "Acme Cleaners", "123 Main St", "Springfield", "IL", "62701"),
		testRecord("2", "Acme Cleaning", "123 Main St", "Springfield", "IL", "62701"),
		testRecord("3", "Acme Cafe", "125 Main St", "Springfield", "IL", "62701"),
		testRecord("4", "Brown Bakery", "7 Elm St", "Springfield", "IL", "62701"),
	}
	first := CandidatePairs(records)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, CandidatePairs(records))
	}
}

func TestCandidatePairs_Empty(t *testing.T) {
	assert.Empty(t, CandidatePairs(nil))
	assert.Empty(t, CandidatePairs([]Record{testRecord("1", "Acme", "", "", "", "62701")}))
}
