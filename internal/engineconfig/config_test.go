package engineconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestValidateRejectsBadBackend(t *testing.T) {
	cfg := Default()
	cfg.Backend = "s3"
	assert.Error(t, cfg.Validate())
}

func TestLoadOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: directory\nwriter:\n  segment_workers: 8\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendDirectory, cfg.Backend)
	assert.Equal(t, 8, cfg.Writer.SegmentWorkers)
	// Untouched fields keep their defaults.
	assert.Equal(t, Default().Aggregation.MaxNestingDepth, cfg.Aggregation.MaxNestingDepth)
}
