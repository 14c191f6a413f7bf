package meme

import (
	"context"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/ByLCY/memegen/caption"
	"github.com/ByLCY/memegen/layout"
	"github.com/ByLCY/memegen/renderer"
)

// Generator 串起字幕生成、排版与绘制。零值不可用，至少需要 Renderer 与 Typesetter。
type Generator struct {
	Captions   caption.Source
	Renderer   renderer.Renderer
	Typesetter layout.Typesetter
	Layout     layout.Config
	Uppercase  bool
}

// Request 描述一次生成。Top/Bottom 任一非空时视为手动指定，不再调用 Captions。
type Request struct {
	Image  image.Image
	Humor  caption.Humor
	Top    string
	Bottom string
	Format renderer.Format
}

// Output 是一次生成的全部产物。
type Output struct {
	// Suggested 为字幕来源给出的原始字幕（未做大小写处理）。
	Suggested caption.Caption
	Caption   caption.Caption
	Layout    *layout.Result
	Bytes     []byte
	Format    renderer.Format
}

// Decode 读取上传的图片并按 EXIF 方向摆正。
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("解码图片失败: %w", err)
	}
	return img, nil
}

// Generate 执行完整流水线，同步返回。
func (g *Generator) Generate(ctx context.Context, req Request) (*Output, error) {
	if req.Image == nil {
		return nil, fmt.Errorf("meme: 图片为空")
	}
	if g.Renderer == nil || g.Typesetter == nil {
		return nil, fmt.Errorf("meme: 缺少渲染器或排版后端")
	}
	format := req.Format
	if format == "" {
		format = renderer.FormatPNG
	}

	suggested, err := g.caption(ctx, req)
	if err != nil {
		return nil, err
	}
	final := suggested
	if g.Uppercase {
		final = final.Upper()
	}

	bounds := req.Image.Bounds()
	res, err := layout.Build(bounds.Dx(), bounds.Dy(), final.Top, final.Bottom, layout.Options{
		Typesetter: g.Typesetter,
		Config:     g.Layout,
	})
	if err != nil {
		return nil, fmt.Errorf("meme: 排版失败: %w", err)
	}

	data, err := g.Renderer.Render(req.Image, res, format)
	if err != nil {
		return nil, fmt.Errorf("meme: 渲染失败: %w", err)
	}
	return &Output{
		Suggested: suggested,
		Caption:   final,
		Layout:    res,
		Bytes:     data,
		Format:    format,
	}, nil
}

func (g *Generator) caption(ctx context.Context, req Request) (caption.Caption, error) {
	if strings.TrimSpace(req.Top) != "" || strings.TrimSpace(req.Bottom) != "" {
		return caption.Caption{Top: req.Top, Bottom: req.Bottom}, nil
	}
	src := g.Captions
	if src == nil {
		return caption.FallbackCaption, nil
	}
	c, err := src.Generate(ctx, req.Image, req.Humor)
	if err != nil {
		return caption.Caption{}, fmt.Errorf("meme: 生成字幕失败: %w", err)
	}
	return c, nil
}
