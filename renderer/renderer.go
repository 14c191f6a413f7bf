package renderer

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/ByLCY/memegen/layout"
)

// Renderer 将排版结果绘制到图片上并编码输出，例如 PNG、JPEG 或 PDF。
// Render 不得修改 src；返回编码后的字节数据以及可能的错误。
type Renderer interface {
	Render(src image.Image, result *layout.Result, format Format) ([]byte, error)
}

// ErrUnsupportedFormat 表示请求了无法输出的格式。
var ErrUnsupportedFormat = errors.New("unsupported format")

// Format 是输出文件格式。
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatPDF  Format = "pdf"
)

// ParseFormat 解析格式名，接受 jpg 等常见别名；空字符串视为 png。
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "", "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// ContentType 返回格式对应的 MIME 类型。
func (f Format) ContentType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPDF:
		return "application/pdf"
	default:
		return "image/png"
	}
}

// Ext 返回不带点的文件扩展名。
func (f Format) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}
	if f == "" {
		return string(FormatPNG)
	}
	return string(f)
}
