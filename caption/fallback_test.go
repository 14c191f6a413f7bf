package caption

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSource struct{ err error }

func (f failingSource) Generate(context.Context, image.Image, Humor) (Caption, error) {
	return Caption{}, f.err
}

func TestWithFallback(t *testing.T) {
	ctx := context.Background()

	got, err := WithFallback(failingSource{err: ErrRateLimited}).Generate(ctx, nil, HumorClassic)
	require.NoError(t, err)
	assert.Equal(t, FallbackCaption, got)

	got, err = WithFallback(failingSource{err: errors.New("network down")}).Generate(ctx, nil, HumorClassic)
	require.NoError(t, err)
	assert.Equal(t, FallbackCaption, got)

	want := Caption{Top: "a", Bottom: "b"}
	got, err = WithFallback(Static(want)).Generate(ctx, nil, HumorAbsurd)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = WithFallback(nil).Generate(ctx, nil, HumorClassic)
	require.NoError(t, err)
	assert.Equal(t, FallbackCaption, got)
}
