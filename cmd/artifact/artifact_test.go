package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"stillopen-api/internal/classifier"
	"stillopen-api/internal/features"
	"stillopen-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeExport(t *testing.T, dir string, schema features.Schema) string {
	t.Helper()
	export := classifier.Artifact{
		ModelVersion: "logit-2026-10",
		Schema:       schema,
		Kind:         classifier.KindLogistic,
		Logistic: &classifier.Logistic{
			Intercept: 0.3,
			Weights:   make([]float64, schema.Len()),
		},
	}
	data, err := yaml.Marshal(&export)
	require.NoError(t, err)
	path := filepath.Join(dir, "export.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestPackAndInspect(t *testing.T) {
	dir := t.TempDir()
	schema := features.NewPipeline(features.Options{}).Schema()
	out := filepath.Join(dir, "model.bin")

	err := runPack(packOptions{in: writeExport(t, dir, schema), out: out, compression: "lz4"})
	require.NoError(t, err)

	model, err := classifier.Load(out, schema)
	require.NoError(t, err)
	assert.Equal(t, "logit-2026-10", model.Version())

	var buf bytes.Buffer
	require.NoError(t, runInspect(&buf, out))
	assert.Contains(t, buf.String(), "model_version: logit-2026-10")
	assert.Contains(t, buf.String(), "kind:          logistic")
	assert.Contains(t, buf.String(), "days_since_last_update")
	assert.Contains(t, buf.String(), "fingerprint "+schema.Fingerprint())
}

func TestPack_SchemaCheck(t *testing.T) {
	dir := t.TempDir()
	schema := features.NewPipeline(features.Options{}).Schema()
	schema.Features = schema.Features[:len(schema.Features)-1]
	export := writeExport(t, dir, schema)
	out := filepath.Join(dir, "model.bin")

	err := runPack(packOptions{in: export, out: out, compression: "zstd"})
	assert.ErrorIs(t, err, models.ErrSchemaMismatch)
	assert.NoFileExists(t, out)

	err = runPack(packOptions{in: export, out: out, compression: "zstd", skipCheck: true})
	require.NoError(t, err)
	assert.FileExists(t, out)
}

func TestPack_UnknownCompression(t *testing.T) {
	err := runPack(packOptions{in: "unused.yaml", compression: "gzip"})
	assert.ErrorContains(t, err, "unknown compression tag")
}
