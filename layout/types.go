package layout

import (
	"fmt"
	"strings"
)

// 该文件定义排版结果，供布局计算、渲染与调试 JSON 共用。所有坐标与尺寸单位均为像素，原点为图片左上角。

// Region 表示字幕块的锚定区域。
type Region string

const (
	RegionTop    Region = "top"
	RegionBottom Region = "bottom"
)

// ParseRegion 解析 top/bottom（大小写不敏感）。
func ParseRegion(s string) (Region, error) {
	switch Region(strings.ToLower(strings.TrimSpace(s))) {
	case RegionTop:
		return RegionTop, nil
	case RegionBottom:
		return RegionBottom, nil
	default:
		return "", fmt.Errorf("未知的字幕区域：%q", s)
	}
}

// Result 保存一张图片上全部字幕块的绘制指令。
type Result struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Blocks []Block `json:"blocks"`
}

// Block 是单个字幕经过缩放搜索与折行后的结果。
// FontSize 为 0 表示空字幕：没有行，也不占用高度。
type Block struct {
	Region      Region     `json:"region"`
	Text        string     `json:"text"`
	FontSize    int        `json:"fontSize"`
	StrokeWidth int        `json:"strokeWidth"`
	LineSpacing int        `json:"lineSpacing"`
	StartY      float64    `json:"startY"`
	Height      float64    `json:"height"`
	Lines       []TextLine `json:"lines"`
	// Overflow 为 true 时表示已降到最小字号仍超出目标区域。
	Overflow bool `json:"overflow,omitempty"`
}

// TextLine 表示一行已定位的文本。Y 为行顶部，Baseline 为基线位置。
type TextLine struct {
	Content  string  `json:"content"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Baseline float64 `json:"baseline"`
	Width    float64 `json:"width"`
}

// TextMetrics 是排版后端返回的文字度量（像素）。
type TextMetrics struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Ascent float64 `json:"ascent"`
}

// Empty 报告字幕块是否没有任何可绘制的行。
func (b Block) Empty() bool { return len(b.Lines) == 0 }

// Block 返回指定区域的字幕块。
func (r *Result) Block(region Region) (Block, bool) {
	if r == nil {
		return Block{}, false
	}
	for _, b := range r.Blocks {
		if b.Region == region {
			return b, true
		}
	}
	return Block{}, false
}
