package caption

import (
	"context"
	"errors"
	"image"
	"strings"
)

var (
	// ErrReplyInvalid 表示模型回复中找不到 TOP:/BOTTOM: 标记，或回复为空。
	ErrReplyInvalid = errors.New("caption reply invalid")
	// ErrRateLimited 表示上游返回 429 或本地限流器拒绝了请求。
	ErrRateLimited = errors.New("caption rate limited")
	// ErrMissingAPIKey 表示既没有配置 api_key，也没有设置对应的环境变量。
	ErrMissingAPIKey = errors.New("caption api key missing")
)

// Caption 是一对上下字幕。
type Caption struct {
	Top    string `json:"top"`
	Bottom string `json:"bottom"`
}

// Upper 返回全大写的副本（image macro 的传统样式）。
func (c Caption) Upper() Caption {
	return Caption{Top: strings.ToUpper(c.Top), Bottom: strings.ToUpper(c.Bottom)}
}

// Empty 报告上下两行是否都为空白。
func (c Caption) Empty() bool {
	return strings.TrimSpace(c.Top) == "" && strings.TrimSpace(c.Bottom) == ""
}

// Source 为图片生成字幕。实现方可以阻塞（网络请求），需遵守 ctx 的取消。
type Source interface {
	Generate(ctx context.Context, img image.Image, humor Humor) (Caption, error)
}

// Static 总是返回固定字幕，用于命令行覆盖与测试。
type Static Caption

func (s Static) Generate(context.Context, image.Image, Humor) (Caption, error) {
	return Caption(s), nil
}
