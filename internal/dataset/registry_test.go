package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lbd-works/gazetteer-cli/internal/config"
)

func TestRegistry_All(t *testing.T) {
	r := NewRegistry(&config.Config{})
	assert.Equal(t, []string{"whd", "osha", "naics"}, r.AllNames())
	assert.Len(t, r.All(), 3)
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry(&config.Config{})

	d, err := r.Get("whd")
	require.NoError(t, err)
	assert.Equal(t, "whd", d.Name())

	_, err = r.Get("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown dataset")
}

func TestRegistry_Select(t *testing.T) {
	r := NewRegistry(&config.Config{})

	t.Run("empty selects all", func(t *testing.T) {
		ds, err := r.Select(nil)
		require.NoError(t, err)
		assert.Len(t, ds, 3)
	})

	t.Run("named subset", func(t *testing.T) {
		ds, err := r.Select([]string{"osha", "whd"})
		require.NoError(t, err)
		require.Len(t, ds, 2)
		assert.Equal(t, "osha", ds[0].Name())
		assert.Equal(t, "whd", ds[1].Name())
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := r.Select([]string{"whd", "bogus"})
		require.Error(t, err)
	})
}
