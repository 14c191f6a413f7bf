package caption

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/time/rate"
)

// GeminiOptions: Google Generative Language API 的最小配置。
type GeminiOptions struct {
	BaseURL   string `yaml:"base_url"`    // https://generativelanguage.googleapis.com
	Model     string `yaml:"model"`       // 默认 gemini-2.5-flash
	APIKeyEnv string `yaml:"api_key_env"` // 默认 GEMINI_API_KEY
	APIKey    string `yaml:"api_key"`
	// 客户端超时（秒）。未设置或 <=0 时采用默认 60 秒。
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// 上传前把图片长边缩到不超过该值；<=0 时默认 1024。
	MaxImageSide int `yaml:"max_image_side"`
	// 每分钟最多请求数；0 表示不限。
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	Prompt            string `yaml:"prompt"` // 为空时使用 DefaultPrompt
}

func (o *GeminiOptions) defaults() {
	if o.BaseURL == "" {
		o.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if o.Model == "" {
		o.Model = "gemini-2.5-flash"
	}
	if o.APIKeyEnv == "" {
		o.APIKeyEnv = "GEMINI_API_KEY"
	}
	if o.TimeoutSeconds <= 0 {
		o.TimeoutSeconds = 60
	}
	if o.MaxImageSide <= 0 {
		o.MaxImageSide = 1024
	}
	if o.Prompt == "" {
		o.Prompt = DefaultPrompt
	}
}

// GeminiClient 调用 generateContent，让模型看图写字幕。
type GeminiClient struct {
	url     string
	apiKey  string
	maxSide int
	prompt  string
	limiter *rate.Limiter
	do      func(*http.Request) (*http.Response, error)
}

var _ Source = (*GeminiClient)(nil)

// NewGemini 创建客户端。找不到 API key 时返回 ErrMissingAPIKey。
func NewGemini(opts GeminiOptions) (*GeminiClient, error) {
	opts.defaults()
	key := opts.APIKey
	if key == "" {
		key = os.Getenv(opts.APIKeyEnv)
	}
	if key == "" {
		return nil, fmt.Errorf("gemini: %w: 请设置 %s", ErrMissingAPIKey, opts.APIKeyEnv)
	}
	endpoint := strings.TrimRight(opts.BaseURL, "/") + "/v1beta/models/" + url.PathEscape(opts.Model) + ":generateContent"
	hc := &http.Client{Timeout: time.Duration(opts.TimeoutSeconds) * time.Second}
	c := &GeminiClient{
		url:     endpoint,
		apiKey:  key,
		maxSide: opts.MaxImageSide,
		prompt:  opts.Prompt,
		do:      hc.Do,
	}
	if opts.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}
	return c, nil
}

// 请求/响应（最小字段）。
type gmInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}
type gmPart struct {
	Text       string        `json:"text,omitempty"`
	InlineData *gmInlineData `json:"inline_data,omitempty"`
}
type gmContent struct {
	Role  string   `json:"role,omitempty"`
	Parts []gmPart `json:"parts"`
}
type gmReq struct {
	Contents []gmContent `json:"contents"`
}
type gmResp struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// upstreamError 保留上游的状态码与消息，便于日志排查。
type upstreamError struct {
	status int
	msg    string
}

func (e upstreamError) Error() string   { return fmt.Sprintf("gemini upstream %d: %s", e.status, e.msg) }
func (e upstreamError) Temporary() bool { return e.status/100 == 5 }

// StatusCode 返回上游 HTTP 状态码。
func (e upstreamError) StatusCode() int { return e.status }

// Generate 上传（缩小后的）图片与提示词，并解析回复中的 TOP/BOTTOM。
func (c *GeminiClient) Generate(ctx context.Context, img image.Image, humor Humor) (Caption, error) {
	if img == nil {
		return Caption{}, fmt.Errorf("gemini: 图片为空")
	}
	if c.limiter != nil {
		// 排队等待令牌；ctx 结束或截止时间内等不到时视为限流。
		if err := c.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Caption{}, ctxErr
			}
			return Caption{}, fmt.Errorf("gemini: %w: %v", ErrRateLimited, err)
		}
	}

	body, err := c.encodeRequest(img, humor)
	if err != nil {
		return Caption{}, err
	}
	u, err := url.Parse(c.url)
	if err != nil {
		return Caption{}, fmt.Errorf("gemini: invalid url: %w", err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return Caption{}, fmt.Errorf("gemini: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Caption{}, ctxErr
			}
		}
		return Caption{}, fmt.Errorf("gemini: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return Caption{}, fmt.Errorf("gemini: %w", ErrRateLimited)
	}
	if resp.StatusCode/100 != 2 {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return Caption{}, upstreamError{status: resp.StatusCode, msg: strings.TrimSpace(string(slurp))}
	}

	var gr gmResp
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return Caption{}, fmt.Errorf("gemini: decode: %v: %w", err, ErrReplyInvalid)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return Caption{}, fmt.Errorf("gemini: 没有候选回复: %w", ErrReplyInvalid)
	}
	var text strings.Builder
	for _, part := range gr.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return ParseReply(text.String())
}

func (c *GeminiClient) encodeRequest(img image.Image, humor Humor) ([]byte, error) {
	b := img.Bounds()
	if b.Dx() > c.maxSide || b.Dy() > c.maxSide {
		img = imaging.Fit(img, c.maxSide, c.maxSide, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("gemini: 编码图片失败: %w", err)
	}
	req := gmReq{Contents: []gmContent{{
		Role: "user",
		Parts: []gmPart{
			{Text: BuildPrompt(c.prompt, humor)},
			{InlineData: &gmInlineData{MIMEType: "image/jpeg", Data: base64.StdEncoding.EncodeToString(buf.Bytes())}},
		},
	}}}
	return json.Marshal(&req)
}
