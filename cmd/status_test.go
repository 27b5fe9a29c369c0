//go:build !integration

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lbd-works/gazetteer-cli/internal/gazetteer"
	"github.com/lbd-works/gazetteer-cli/internal/pipeline"
)

func TestFormatStageStatuses_Empty(t *testing.T) {
	var buf bytes.Buffer
	formatStageStatuses(&buf, nil)

	output := buf.String()
	assert.Contains(t, output, "STAGE")
	assert.Contains(t, output, "STATE")
	assert.Contains(t, output, "REASON")
}

func TestFormatStageStatuses_MixedStates(t *testing.T) {
	statuses := []pipeline.StageStatus{
		{Name: "fetch-whd", Stale: true, Reason: "output data/whd.csv missing", Outputs: []string{"data/whd.csv"}},
		{Name: "dedupe", Stale: false, Outputs: []string{"data/deduped.csv"}},
	}

	var buf bytes.Buffer
	formatStageStatuses(&buf, statuses)

	output := buf.String()
	assert.Contains(t, output, "fetch-whd")
	assert.Contains(t, output, "stale")
	assert.Contains(t, output, "whd.csv missing")
	assert.Contains(t, output, "dedupe")
	assert.Contains(t, output, "up to date")
	assert.Contains(t, output, "deduped.csv")
}

func TestFormatStoreStats_NotAssembled(t *testing.T) {
	var buf bytes.Buffer
	formatStoreStats(&buf, &gazetteer.Stats{})

	assert.Contains(t, buf.String(), "not assembled")
}

func TestFormatStoreStats_Assembled(t *testing.T) {
	stats := &gazetteer.Stats{
		Assembled:  true,
		Canonical:  1200,
		EntityMap:  1200,
		Entities:   950,
		BlockKeys:  2400,
		NAICSCodes: 2125,
	}

	var buf bytes.Buffer
	formatStoreStats(&buf, stats)

	output := buf.String()
	assert.Contains(t, output, "canonical")
	assert.Contains(t, output, "1200")
	assert.Contains(t, output, "950")
	assert.Contains(t, output, "2125")
}
