package layout

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Build 为上、下两条字幕分别执行缩放搜索，返回整张图片的绘制指令。
// 两个字幕块互不影响：各自从初始字号开始搜索，各自决定描边与位置。
func Build(width, height int, top, bottom string, opts Options) (*Result, error) {
	res := &Result{Width: width, Height: height}
	for _, caption := range []struct {
		region Region
		text   string
	}{
		{RegionTop, top},
		{RegionBottom, bottom},
	} {
		block, err := Fit(width, height, caption.text, caption.region, opts)
		if err != nil {
			return nil, err
		}
		res.Blocks = append(res.Blocks, block)
	}
	return res, nil
}

// Fit 对单条字幕执行有界的缩小搜索：从与图片高度成比例的字号开始，每次减小 SizeStep，
// 直到折行后的文本块同时满足高度与宽度上限，或到达 MinFontSize。
// 到达最小字号时即使仍然溢出也返回该字号的结果（Overflow=true），不截断文本。
func Fit(width, height int, text string, region Region, opts Options) (Block, error) {
	if width <= 0 || height <= 0 {
		return Block{}, fmt.Errorf("layout: 图片尺寸无效 %dx%d", width, height)
	}
	if opts.Typesetter == nil {
		return Block{}, fmt.Errorf("layout: 缺少排版后端 Typesetter")
	}
	if region != RegionTop && region != RegionBottom {
		return Block{}, fmt.Errorf("layout: 未知的字幕区域 %q", region)
	}
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return Block{}, fmt.Errorf("layout: 参数无效: %w", err)
	}

	block := Block{Region: region, Text: text, LineSpacing: cfg.LineSpacing}
	words := strings.Fields(text)
	if len(words) == 0 {
		// 空字幕不占用纵向空间，也不绘制任何像素。
		block.StartY = anchorY(region, height, 0, cfg)
		return block, nil
	}

	maxWidth := float64(width) * cfg.MaxWidthRatio
	maxHeight := float64(height) * cfg.MaxHeightRatio

	var (
		attempt fitAttempt
		err     error
	)
	size := initialSize(height, cfg)
	for {
		attempt, err = tryFit(words, size, maxWidth, maxHeight, opts.Typesetter, cfg)
		if err != nil {
			return Block{}, err
		}
		if attempt.fits || size <= cfg.MinFontSize {
			break
		}
		size -= cfg.SizeStep
		if size < cfg.MinFontSize {
			size = cfg.MinFontSize
		}
	}

	// 底部锚定依赖最终行数与字号，必须在搜索结束后计算。
	block.FontSize = attempt.size
	block.StrokeWidth = strokeWidth(attempt.size, cfg)
	block.Height = attempt.blockHeight
	block.Overflow = !attempt.fits
	block.StartY = anchorY(region, height, attempt.blockHeight, cfg)

	advance := float64(attempt.size + cfg.LineSpacing)
	y := block.StartY
	block.Lines = make([]TextLine, 0, len(attempt.lines))
	for i, line := range attempt.lines {
		block.Lines = append(block.Lines, TextLine{
			Content:  line,
			X:        centerX(width, attempt.widths[i]),
			Y:        y,
			Baseline: y + attempt.ascent,
			Width:    attempt.widths[i],
		})
		y += advance
	}
	return block, nil
}

type fitAttempt struct {
	size        int
	lines       []string
	widths      []float64
	ascent      float64
	blockHeight float64
	fits        bool
}

// tryFit 在给定字号下折行并检查文本块是否放得下。
// 每行字符数按平均字宽估算；宽度检查使用逐行的精确测量。
func tryFit(words []string, size int, maxWidth, maxHeight float64, ts Typesetter, cfg Config) (fitAttempt, error) {
	fontSize := float64(size)
	sample := cfg.glyphSample()
	sm, err := ts.MeasureText(sample, fontSize)
	if err != nil {
		return fitAttempt{}, fmt.Errorf("layout: 测量字宽失败: %w", err)
	}

	budget := 1
	if avg := sm.Width / float64(utf8.RuneCountInString(sample)); avg > 0 {
		if n := int(maxWidth / avg); n > 1 {
			budget = n
		}
	}

	lines := wrapWords(words, budget)
	attempt := fitAttempt{
		size:        size,
		lines:       lines,
		widths:      make([]float64, len(lines)),
		ascent:      sm.Ascent,
		blockHeight: float64(len(lines) * (size + cfg.LineSpacing)),
	}
	widest := 0.0
	for i, line := range lines {
		lm, err := ts.MeasureText(line, fontSize)
		if err != nil {
			return fitAttempt{}, fmt.Errorf("layout: 测量文本 %q 失败: %w", line, err)
		}
		attempt.widths[i] = lm.Width
		if lm.Width > widest {
			widest = lm.Width
		}
	}
	attempt.fits = attempt.blockHeight <= maxHeight && widest <= maxWidth
	return attempt, nil
}

// wrapWords 贪心地在词边界折行，每行不超过 budget 个字符。
// 单个超长单词独占一行，不在词内拆分。
func wrapWords(words []string, budget int) []string {
	var (
		lines   []string
		builder strings.Builder
		current int
	)
	for _, word := range words {
		n := utf8.RuneCountInString(word)
		if current > 0 && current+1+n > budget {
			lines = append(lines, builder.String())
			builder.Reset()
			current = 0
		}
		if current > 0 {
			builder.WriteByte(' ')
			current++
		}
		builder.WriteString(word)
		current += n
	}
	if builder.Len() > 0 {
		lines = append(lines, builder.String())
	}
	return lines
}

func initialSize(height int, cfg Config) int {
	size := height / cfg.InitialSizeDivisor
	if size < cfg.MinFontSize {
		return cfg.MinFontSize
	}
	return size
}

func strokeWidth(size int, cfg Config) int {
	return max(cfg.MinStrokeWidth, size/cfg.StrokeDivisor)
}

func anchorY(region Region, height int, blockHeight float64, cfg Config) float64 {
	if region == RegionBottom {
		return float64(height) - blockHeight - float64(cfg.BottomMargin)
	}
	return float64(cfg.TopMargin)
}

func centerX(width int, lineWidth float64) float64 {
	return (float64(width) - lineWidth) / 2
}
