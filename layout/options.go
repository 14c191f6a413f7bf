package layout

import (
	"errors"
	"fmt"
)

// DefaultGlyphSample 用于估算平均字宽；字幕默认全大写，所以取大写字母表。
const DefaultGlyphSample = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Options 配置布局阶段所需的依赖与参数。
type Options struct {
	Typesetter Typesetter
	Config     Config
}

// Typesetter 负责按给定字号测量文本。实现方必须使用实际加载到的字体进行测量，
// 字号与返回值均为像素。
type Typesetter interface {
	MeasureText(text string, size float64) (TextMetrics, error)
}

// Config 汇总缩放搜索与排版的全部可调参数。
type Config struct {
	// 单个字幕块可占用的最大宽度/高度（相对图片尺寸的比例）。
	MaxWidthRatio  float64 `json:"maxWidthRatio" yaml:"max_width_ratio"`
	MaxHeightRatio float64 `json:"maxHeightRatio" yaml:"max_height_ratio"`
	// 初始字号 = 图片高度 / InitialSizeDivisor。
	InitialSizeDivisor int `json:"initialSizeDivisor" yaml:"initial_size_divisor"`
	MinFontSize        int `json:"minFontSize" yaml:"min_font_size"`
	SizeStep           int `json:"sizeStep" yaml:"size_step"`
	LineSpacing        int `json:"lineSpacing" yaml:"line_spacing"`
	// 描边宽度 = max(MinStrokeWidth, 字号 / StrokeDivisor)。
	StrokeDivisor  int    `json:"strokeDivisor" yaml:"stroke_divisor"`
	MinStrokeWidth int    `json:"minStrokeWidth" yaml:"min_stroke_width"`
	TopMargin      int    `json:"topMargin" yaml:"top_margin"`
	BottomMargin   int    `json:"bottomMargin" yaml:"bottom_margin"`
	GlyphSample    string `json:"glyphSample" yaml:"glyph_sample"`
}

// DefaultConfig 返回默认参数。
func DefaultConfig() Config {
	return Config{
		MaxWidthRatio:      0.9,
		MaxHeightRatio:     0.25,
		InitialSizeDivisor: 8,
		MinFontSize:        15,
		SizeStep:           3,
		LineSpacing:        8,
		StrokeDivisor:      15,
		MinStrokeWidth:     2,
		TopMargin:          20,
		BottomMargin:       40,
		GlyphSample:        DefaultGlyphSample,
	}
}

// Validate 检查参数是否可用于一次有界搜索。
func (c Config) Validate() error {
	var errs []error
	if c.MaxWidthRatio <= 0 || c.MaxWidthRatio > 1 {
		errs = append(errs, fmt.Errorf("maxWidthRatio 必须位于 (0,1]，当前为 %g", c.MaxWidthRatio))
	}
	if c.MaxHeightRatio <= 0 || c.MaxHeightRatio > 1 {
		errs = append(errs, fmt.Errorf("maxHeightRatio 必须位于 (0,1]，当前为 %g", c.MaxHeightRatio))
	}
	if c.InitialSizeDivisor <= 0 {
		errs = append(errs, fmt.Errorf("initialSizeDivisor 必须为正数"))
	}
	if c.MinFontSize <= 0 {
		errs = append(errs, fmt.Errorf("minFontSize 必须为正数"))
	}
	if c.SizeStep <= 0 {
		errs = append(errs, fmt.Errorf("sizeStep 必须为正数"))
	}
	if c.LineSpacing < 0 {
		errs = append(errs, fmt.Errorf("lineSpacing 不能为负数"))
	}
	if c.StrokeDivisor <= 0 {
		errs = append(errs, fmt.Errorf("strokeDivisor 必须为正数"))
	}
	if c.MinStrokeWidth < 0 {
		errs = append(errs, fmt.Errorf("minStrokeWidth 不能为负数"))
	}
	if c.TopMargin < 0 || c.BottomMargin < 0 {
		errs = append(errs, fmt.Errorf("边距不能为负数"))
	}
	return errors.Join(errs...)
}

func (c Config) glyphSample() string {
	if c.GlyphSample == "" {
		return DefaultGlyphSample
	}
	return c.GlyphSample
}
