package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lbd-works/gazetteer-cli/internal/config"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// testConfig populates the package-level cfg with defaults so command
// helpers can run outside the cobra lifecycle.
func testConfig(t *testing.T) {
	t.Helper()
	c, err := config.Load()
	require.NoError(t, err)
	c.Pipeline.DataDir = t.TempDir()
	cfg = c
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"fetch", "dedupe", "build", "run", "search", "serve", "status"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "gazetteer", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestDedupeCommand_Flags(t *testing.T) {
	for _, flagName := range []string{"threshold", "workers"} {
		flag := dedupeCmd.Flags().Lookup(flagName)
		assert.NotNil(t, flag, "dedupe should have --%s flag", flagName)
	}
}

func TestFetchCommand_Flags(t *testing.T) {
	for _, flagName := range []string{"dataset", "force"} {
		flag := fetchCmd.Flags().Lookup(flagName)
		assert.NotNil(t, flag, "fetch should have --%s flag", flagName)
	}
}

func TestSearchCommand_Flags(t *testing.T) {
	flag := searchCmd.Flags().Lookup("identifier")
	require.NotNil(t, flag, "search should have --identifier flag")
	assert.Equal(t, "case_id", flag.DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestPipelineStages_Order(t *testing.T) {
	testConfig(t)

	stages, err := pipelineStages()
	require.NoError(t, err)

	var names []string
	for _, s := range stages {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"fetch-whd", "fetch-osha", "fetch-naics", "dedupe", "build"}, names)

	// dedupe consumes the whd artifact, build consumes the dedupe artifact.
	assert.Contains(t, stages[3].Inputs[0], "whd.csv")
	assert.Contains(t, stages[4].Inputs[0], "deduped.csv")
}
