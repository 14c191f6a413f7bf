package main

import (
	"context"
	"encoding/json"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/memegen/caption"
	"github.com/ByLCY/memegen/config"
	"github.com/ByLCY/memegen/layout"
	"github.com/ByLCY/memegen/meme"
	"github.com/ByLCY/memegen/renderer"
)

func TestApplyFlags(t *testing.T) {
	cfg := config.Defaults()
	f := cliFlags{humor: "absurd", format: "pdf", font: "embed:GoRegular", serve: ":9000", offline: true}
	applyFlags(&cfg, f, map[string]bool{"humor": true, "format": true, "font": true, "serve": true, "offline": true})

	assert.Equal(t, "absurd", cfg.Humor)
	assert.Equal(t, "pdf", cfg.Format)
	assert.Equal(t, "embed:GoRegular", cfg.Fonts[0])
	assert.Equal(t, ":9000", cfg.Listen)
	assert.True(t, cfg.Offline)

	untouched := config.Defaults()
	applyFlags(&untouched, cliFlags{humor: "absurd"}, map[string]bool{})
	assert.Equal(t, config.Defaults().Humor, untouched.Humor)
}

func TestRunOffline(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "photo.jpg")
	require.NoError(t, imaging.Save(imaging.New(480, 360, color.NRGBA{R: 90, G: 90, B: 90, A: 255}), input))

	cfg := config.Defaults()
	cfg.Offline = true
	cfg.Fonts = []string{filepath.Join(dir, "missing.ttf")}
	gen, err := newGenerator(cfg)
	require.NoError(t, err)

	output := filepath.Join(dir, "out", "ai_meme.png")
	debugPath := filepath.Join(dir, "debug", "layout.json")
	out, err := run(context.Background(), gen, input, output, debugPath, meme.Request{
		Humor:  caption.HumorClassic,
		Format: renderer.FormatPNG,
	})
	require.NoError(t, err)
	assert.Equal(t, caption.FallbackCaption, out.Caption)

	written, err := imaging.Open(output)
	require.NoError(t, err)
	assert.Equal(t, 480, written.Bounds().Dx())
	assert.Equal(t, 360, written.Bounds().Dy())

	data, err := os.ReadFile(debugPath)
	require.NoError(t, err)
	var res layout.Result
	require.NoError(t, json.Unmarshal(data, &res))
	assert.Equal(t, 480, res.Width)
	require.Len(t, res.Blocks, 2)
	assert.Equal(t, "WHEN THE AI WORKS", res.Blocks[0].Text)
}

func TestRunMissingInput(t *testing.T) {
	cfg := config.Defaults()
	cfg.Offline = true
	gen, err := newGenerator(cfg)
	require.NoError(t, err)
	_, err = run(context.Background(), gen, filepath.Join(t.TempDir(), "nope.png"), "out.png", "", meme.Request{})
	assert.Error(t, err)
}
