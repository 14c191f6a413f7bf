package caption

import (
	"context"
	"image"
	"log"
)

// FallbackCaption 是生成失败时使用的固定字幕。
var FallbackCaption = Caption{Top: "WHEN THE AI WORKS", Bottom: "BUT THE PARSING FAILS"}

type fallbackSource struct {
	src Source
}

// WithFallback 包装 src：任何错误（网络、限流、解析）都只记录日志，
// 并返回 FallbackCaption，保证流水线总能出图。ctx 已取消时同样如此。
func WithFallback(src Source) Source {
	return fallbackSource{src: src}
}

func (f fallbackSource) Generate(ctx context.Context, img image.Image, humor Humor) (Caption, error) {
	if f.src == nil {
		return FallbackCaption, nil
	}
	c, err := f.src.Generate(ctx, img, humor)
	if err != nil {
		log.Printf("字幕生成失败，使用默认字幕: %v", err)
		return FallbackCaption, nil
	}
	return c, nil
}
