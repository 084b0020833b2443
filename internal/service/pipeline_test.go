package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeline_Run(t *testing.T) {
	record := func(ran *[]string, name string, err error) func(context.Context) error {
		return func(context.Context) error {
			*ran = append(*ran, name)
			return err
		}
	}

	t.Run("runs every stage in order", func(t *testing.T) {
		var ran []string
		out, err := NewPipeline("test",
			Stage{Name: "a", Run: record(&ran, "a", nil)},
			Stage{Name: "b", Optional: true, Artifact: true, Run: record(&ran, "b", nil)},
			Stage{Name: "c", Run: record(&ran, "c", nil)},
		).Run(context.Background())

		require.NoError(t, err)
		assert.False(t, out.Degraded)
		assert.Equal(t, []string{"a", "b", "c"}, ran)
	})

	t.Run("required failure aborts", func(t *testing.T) {
		var ran []string
		boom := errors.New("boom")
		_, err := NewPipeline("test",
			Stage{Name: "a", Run: record(&ran, "a", boom)},
			Stage{Name: "b", Run: record(&ran, "b", nil)},
		).Run(context.Background())

		require.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "test: a")
		assert.Equal(t, []string{"a"}, ran)
	})

	t.Run("optional failure degrades and skips artifact stages", func(t *testing.T) {
		var ran []string
		out, err := NewPipeline("test",
			Stage{Name: "render", Optional: true, Artifact: true, Run: record(&ran, "render", errors.New("bad font"))},
			Stage{Name: "upload", Optional: true, Artifact: true, Run: record(&ran, "upload", nil)},
			Stage{Name: "save-url", Optional: true, Artifact: true, Run: record(&ran, "save-url", nil)},
			Stage{Name: "notify", Run: record(&ran, "notify", nil)},
		).Run(context.Background())

		require.NoError(t, err)
		assert.True(t, out.Degraded)
		assert.Equal(t, "render", out.FailedStage)
		assert.Equal(t, []string{"upload", "save-url"}, out.Skipped)
		assert.Equal(t, []string{"render", "notify"}, ran)
	})
}
