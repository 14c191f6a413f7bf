package layout

import (
	"errors"
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTypesetter 是一个最小实现，仅用于测试，避免引入 renderer 造成循环依赖。
// 每个字符宽 0.6 倍字号，上升部 0.8 倍字号。
type stubTypesetter struct {
	calls int
}

func (s *stubTypesetter) MeasureText(text string, size float64) (TextMetrics, error) {
	s.calls++
	n := float64(utf8.RuneCountInString(text))
	return TextMetrics{Width: n * size * 3 / 5, Height: size, Ascent: size * 4 / 5}, nil
}

type failingTypesetter struct{}

func (failingTypesetter) MeasureText(string, float64) (TextMetrics, error) {
	return TextMetrics{}, errors.New("boom")
}

func defaultOpts() Options {
	return Options{Typesetter: &stubTypesetter{}, Config: DefaultConfig()}
}

func TestFitFontSizeWithinBounds(t *testing.T) {
	texts := []string{
		"HI",
		"WHEN THE BUILD PASSES",
		"ONE DOES NOT SIMPLY WALK INTO MORDOR WITHOUT A PROPER DEPLOYMENT PIPELINE AND A ROLLBACK PLAN",
		"SUPERCALIFRAGILISTICEXPIALIDOCIOUS",
	}
	sizes := [][2]int{{100, 100}, {320, 240}, {1000, 800}, {640, 1400}, {3000, 200}}
	opts := defaultOpts()
	for _, dim := range sizes {
		for _, text := range texts {
			for _, region := range []Region{RegionTop, RegionBottom} {
				block, err := Fit(dim[0], dim[1], text, region, opts)
				require.NoError(t, err)
				upper := max(dim[1]/opts.Config.InitialSizeDivisor, opts.Config.MinFontSize)
				assert.GreaterOrEqual(t, block.FontSize, opts.Config.MinFontSize, "%dx%d %q", dim[0], dim[1], text)
				assert.LessOrEqual(t, block.FontSize, upper, "%dx%d %q", dim[0], dim[1], text)
				assert.NotEmpty(t, block.Lines)
			}
		}
	}
}

func TestFitIsDeterministic(t *testing.T) {
	opts := defaultOpts()
	a, err := Fit(1000, 800, "BUT NOBODY WROTE A TEST", RegionBottom, opts)
	require.NoError(t, err)
	b, err := Fit(1000, 800, "BUT NOBODY WROTE A TEST", RegionBottom, opts)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

// 去掉末尾单词后，所需字号不应变小。
func TestFitShorterTextNeverShrinksFurther(t *testing.T) {
	words := strings.Fields("WHEN YOU FINALLY FIX THE FLAKY TEST AND THEN CI RUNS OUT OF DISK SPACE ON THE VERY NEXT COMMIT")
	opts := defaultOpts()
	for _, dim := range [][2]int{{1000, 800}, {400, 300}, {800, 1200}} {
		full, err := Fit(dim[0], dim[1], strings.Join(words, " "), RegionTop, opts)
		require.NoError(t, err)
		prev := full.FontSize
		for n := len(words) - 1; n > 0; n-- {
			shorter, err := Fit(dim[0], dim[1], strings.Join(words[:n], " "), RegionTop, opts)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, shorter.FontSize, prev, "%d words at %dx%d", n, dim[0], dim[1])
			prev = shorter.FontSize
		}
	}
}

func TestFitEmptyText(t *testing.T) {
	opts := defaultOpts()
	for _, text := range []string{"", "   ", "\n\t"} {
		for _, region := range []Region{RegionTop, RegionBottom} {
			block, err := Fit(1000, 800, text, region, opts)
			require.NoError(t, err)
			assert.True(t, block.Empty())
			assert.Zero(t, block.Height)
			assert.Zero(t, block.FontSize)
			assert.Zero(t, block.StrokeWidth)
		}
	}
}

func TestFitCentersEachLine(t *testing.T) {
	block, err := Fit(1000, 800, "HELLO", RegionTop, defaultOpts())
	require.NoError(t, err)
	require.Len(t, block.Lines, 1)
	line := block.Lines[0]
	assert.InDelta(t, 1000-line.X, line.X+line.Width, 1)

	block, err = Fit(1000, 800, "WHEN THE BUILD PASSES", RegionTop, defaultOpts())
	require.NoError(t, err)
	for _, line := range block.Lines {
		assert.InDelta(t, 1000-line.X, line.X+line.Width, 1, line.Content)
	}
}

func TestAnchorYBottom(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LineSpacing = 8
	cfg.BottomMargin = 40
	blockHeight := float64(2 * (60 + cfg.LineSpacing))
	assert.Equal(t, 624.0, anchorY(RegionBottom, 800, blockHeight, cfg))
	assert.Equal(t, float64(cfg.TopMargin), anchorY(RegionTop, 800, blockHeight, cfg))
}

// 在 1000x800 的图片上，字号从 100 按步长 5 缩小，60 时恰好折成两行放下。
func TestFitBottomAnchorAfterSearch(t *testing.T) {
	opts := defaultOpts()
	opts.Config.SizeStep = 5
	text := "AAAAAAAAAAAA BBBBBBBBBBBB CCCCCCCCCCCC DDDDDDDDDDDD"

	block, err := Fit(1000, 800, text, RegionBottom, opts)
	require.NoError(t, err)
	assert.Equal(t, 60, block.FontSize)
	require.Len(t, block.Lines, 2)
	assert.Equal(t, 136.0, block.Height)
	assert.Equal(t, 624.0, block.StartY)
	assert.Equal(t, 624.0, block.Lines[0].Y)
	assert.Equal(t, 692.0, block.Lines[1].Y)
	assert.Equal(t, 624.0+48, block.Lines[0].Baseline)
	assert.False(t, block.Overflow)
	assert.Equal(t, 4, block.StrokeWidth)
}

func TestBuildEndToEnd(t *testing.T) {
	opts := defaultOpts()
	res, err := Build(1000, 800, "WHEN THE BUILD PASSES", "BUT NOBODY WROTE A TEST", opts)
	require.NoError(t, err)
	require.Len(t, res.Blocks, 2)

	top, ok := res.Block(RegionTop)
	require.True(t, ok)
	bottom, ok := res.Block(RegionBottom)
	require.True(t, ok)

	for _, b := range []Block{top, bottom} {
		assert.False(t, b.Overflow, b.Text)
		assert.Less(t, b.FontSize, 100, "应当从 100 缩小")
		assert.LessOrEqual(t, b.Height, 200.0)
		for _, line := range b.Lines {
			assert.LessOrEqual(t, line.Width, 900.0, line.Content)
		}
	}
	assert.Equal(t, 20.0, top.StartY)
	assert.Equal(t, 800-bottom.Height-40, bottom.StartY)
	assert.Less(t, bottom.StartY+bottom.Height, 800.0-40+1)
}

func TestFitOverflowAtFloor(t *testing.T) {
	opts := defaultOpts()
	block, err := Fit(100, 100, "SUPERCALIFRAGILISTICEXPIALIDOCIOUS", RegionTop, opts)
	require.NoError(t, err)
	assert.Equal(t, opts.Config.MinFontSize, block.FontSize)
	assert.True(t, block.Overflow)
	require.Len(t, block.Lines, 1, "超长单词不应在词内拆分")
	assert.Greater(t, block.Lines[0].Width, 90.0)
	assert.Less(t, block.Lines[0].X, 0.0)
}

func TestFitFloorIsAlwaysTried(t *testing.T) {
	opts := defaultOpts()
	opts.Config.SizeStep = 7
	// 初始 100，步长 7 不会正好落到 15，但最终必须停在下限。
	block, err := Fit(200, 800, strings.Repeat("WORD ", 60), RegionTop, opts)
	require.NoError(t, err)
	assert.Equal(t, 15, block.FontSize)
	assert.True(t, block.Overflow)
}

func TestStrokeWidth(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 2, strokeWidth(15, cfg))
	assert.Equal(t, 2, strokeWidth(44, cfg))
	assert.Equal(t, 4, strokeWidth(60, cfg))
	assert.Equal(t, 6, strokeWidth(100, cfg))
	cfg.StrokeDivisor = 10
	assert.Equal(t, 10, strokeWidth(100, cfg))
}

func TestWrapWords(t *testing.T) {
	cases := []struct {
		name   string
		text   string
		budget int
		want   []string
	}{
		{"single", "HELLO", 10, []string{"HELLO"}},
		{"greedy", "AA BB CC DD", 5, []string{"AA BB", "CC DD"}},
		{"exact", "AAA BBB", 7, []string{"AAA BBB"}},
		{"long word alone", "A SUPERLONGWORD B", 5, []string{"A", "SUPERLONGWORD", "B"}},
		{"budget one", "A B", 1, []string{"A", "B"}},
		{"collapses spaces", "A    B", 10, []string{"A B"}},
		{"runes not bytes", "ÉÉÉ ÜÜÜ", 7, []string{"ÉÉÉ ÜÜÜ"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, wrapWords(strings.Fields(tc.text), tc.budget))
		})
	}
	assert.Empty(t, wrapWords(nil, 10))
}

func TestFitRejectsInvalidInput(t *testing.T) {
	opts := defaultOpts()
	_, err := Fit(0, 800, "X", RegionTop, opts)
	assert.Error(t, err)
	_, err = Fit(100, 100, "X", Region("middle"), opts)
	assert.Error(t, err)
	_, err = Fit(100, 100, "X", RegionTop, Options{Config: DefaultConfig()})
	assert.Error(t, err)

	bad := opts
	bad.Config.SizeStep = 0
	_, err = Fit(100, 100, "X", RegionTop, bad)
	assert.Error(t, err)
}

func TestFitPropagatesTypesetterError(t *testing.T) {
	_, err := Fit(1000, 800, "X", RegionTop, Options{Typesetter: failingTypesetter{}, Config: DefaultConfig()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.MaxWidthRatio = 1.5
	cfg.MinFontSize = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maxWidthRatio")
	assert.Contains(t, err.Error(), "minFontSize")
}

func TestParseRegion(t *testing.T) {
	r, err := ParseRegion(" Bottom ")
	require.NoError(t, err)
	assert.Equal(t, RegionBottom, r)
	_, err = ParseRegion("left")
	assert.Error(t, err)
}

func TestFitUsesMeasuredAscent(t *testing.T) {
	block, err := Fit(1000, 800, "HELLO", RegionTop, defaultOpts())
	require.NoError(t, err)
	line := block.Lines[0]
	assert.InDelta(t, float64(block.FontSize)*0.8, line.Baseline-line.Y, 1e-9)
	assert.False(t, math.IsNaN(line.X))
}
