//go:build !integration

package main

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dedupeInput = `case_id,trade_nm,legal_name,street_addr_1_txt,cty_nm,st_cd,zip_cd,naic_cd
100,Acme Cleaners,"ACME CLEANERS, LLC",123 Main St,Springfield,IL,62701,812320
200,ACME Cleaners Inc,,123 Main Street,Springfield,IL,62701,812320
300,Zebra Books,Zebra Books LLC,900 Oak Ave,Springfield,IL,62701,451211
`

func TestDedupeCommand_EndToEnd(t *testing.T) {
	testConfig(t)

	dir := t.TempDir()
	inPath := filepath.Join(dir, "input.csv")
	outPath := filepath.Join(dir, "output.csv")
	require.NoError(t, os.WriteFile(inPath, []byte(dedupeInput), 0o644))

	dedupeCmd.SetContext(context.Background())
	require.NoError(t, dedupeCmd.RunE(dedupeCmd, []string{inPath, outPath}))

	out, err := os.Open(outPath)
	require.NoError(t, err)
	defer out.Close()
	rows, err := csv.NewReader(out).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	header := rows[0]
	require.Len(t, header, 11)
	assert.Equal(t, []string{"entity_id", "confidence_score", "id"}, header[8:])

	// The two Acme rows collapse into one entity; Zebra stays alone.
	assert.Equal(t, rows[1][8], rows[2][8])
	assert.NotEqual(t, rows[1][8], rows[3][8])
	assert.Equal(t, "1.000000", rows[3][9])

	// Surrogate ids are assigned in row order.
	assert.Equal(t, "0", rows[1][10])
	assert.Equal(t, "1", rows[2][10])
	assert.Equal(t, "2", rows[3][10])
}

func TestDedupeCommand_MissingInput(t *testing.T) {
	testConfig(t)

	dedupeCmd.SetContext(context.Background())
	err := dedupeCmd.RunE(dedupeCmd, []string{"no-such-file.csv", filepath.Join(t.TempDir(), "out.csv")})
	require.Error(t, err)
}
