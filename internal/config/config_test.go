package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/improbable-research/keanu-sub009/internal/mcmc"
	"github.com/improbable-research/keanu-sub009/internal/optim"
)

const sample = `
sampler:
  seed: 42
  proposal: gaussian
  sigma: 0.5
  selector: random
gradient:
  algorithm: adam
  max_evaluations: 2000
  adam:
    lr: 0.1
non_gradient:
  bounds_range: 10
  function_tolerance: 1e-6
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "algorithms.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(42), cfg.Sampler.Seed)
	assert.Equal(t, mcmc.Gaussian, cfg.Sampler.Proposal)
	assert.Equal(t, 0.5, cfg.Sampler.Sigma)
	assert.Equal(t, mcmc.Random, cfg.Sampler.Selector)
	assert.Equal(t, optim.AdamAscent, cfg.Gradient.Algorithm)
	assert.Equal(t, 2000, cfg.Gradient.MaxEvaluations)
	assert.Equal(t, 0.1, cfg.Gradient.Adam.LR)
	assert.Equal(t, 10.0, cfg.NonGradient.BoundsRange)
	assert.Equal(t, 1e-6, cfg.NonGradient.FunctionTolerance)
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Config{}, cfg)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := Parse(strings.NewReader("sampler:\n  sede: 1\n"))
	assert.ErrorContains(t, err, "sede")
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Config{}, cfg)
}
