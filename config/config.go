package config

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ByLCY/memegen/caption"
	"github.com/ByLCY/memegen/layout"
	"github.com/ByLCY/memegen/renderer"
	"github.com/ByLCY/memegen/web"
)

// Config 汇总命令行与 Web 服务的全部配置。
type Config struct {
	Listen    string   `yaml:"listen"`
	LogFile   string   `yaml:"log_file"`
	Humor     string   `yaml:"humor"`
	Uppercase bool     `yaml:"uppercase"`
	Format    string   `yaml:"format"`
	Fonts     []string `yaml:"fonts"` // 按优先级尝试，embed:GoBold 总是最后兜底
	Colors    Colors   `yaml:"colors"`
	// Offline 为 true 时不调用模型，直接使用默认字幕。
	Offline bool                  `yaml:"offline"`
	Layout  layout.Config         `yaml:"layout"`
	Gemini  caption.GeminiOptions `yaml:"gemini"`
	Web     web.Options           `yaml:"web"`
}

// Colors 使用 #RGB / #RRGGBB / #RRGGBBAA 形式。
type Colors struct {
	Fill   string `yaml:"fill"`
	Stroke string `yaml:"stroke"`
}

// Defaults 返回带有默认值的配置。
func Defaults() Config {
	return Config{
		Listen:    ":8080",
		Humor:     string(caption.HumorClassic),
		Uppercase: true,
		Format:    string(renderer.FormatPNG),
		Fonts:     []string{"Impact.ttf", "system:Impact"},
		Colors:    Colors{Fill: "#FFFFFF", Stroke: "#000000"},
		Layout:    layout.DefaultConfig(),
		Web:       web.DefaultOptions(),
	}
}

// Load 在默认值之上叠加 YAML 文件（未知字段视为错误）。path 为空时只返回默认值。
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: 读取 %s 失败: %w", path, err)
	}
	if err := decode(bytes.NewReader(data), &cfg); err != nil {
		return cfg, fmt.Errorf("config: 解析 %s 失败: %w", path, err)
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate 检查全部字段，一次性返回所有问题。
func (c Config) Validate() error {
	var errs []error
	if _, err := caption.ParseHumor(c.Humor); err != nil {
		errs = append(errs, fmt.Errorf("humor: %w", err))
	}
	if _, err := renderer.ParseFormat(c.Format); err != nil {
		errs = append(errs, fmt.Errorf("format: %w", err))
	}
	if _, err := ParseColor(c.Colors.Fill); err != nil {
		errs = append(errs, fmt.Errorf("colors.fill: %w", err))
	}
	if _, err := ParseColor(c.Colors.Stroke); err != nil {
		errs = append(errs, fmt.Errorf("colors.stroke: %w", err))
	}
	if err := c.Layout.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("layout: %w", err))
	}
	if c.Web.MaxUploadBytes < 0 {
		errs = append(errs, errors.New("web.max_upload_bytes 不能为负数"))
	}
	if c.Web.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("web.requests_per_second 不能为负数"))
	}
	if c.Gemini.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("gemini.requests_per_minute 不能为负数"))
	}
	return errors.Join(errs...)
}

// WebOptions 返回补全了默认风格与格式的 web.Options。
func (c Config) WebOptions() web.Options {
	opts := c.Web
	if h, err := caption.ParseHumor(c.Humor); err == nil {
		opts.DefaultHumor = h
	}
	if f, err := renderer.ParseFormat(c.Format); err == nil {
		opts.DefaultFormat = f
	}
	return opts
}

// ParseColor 解析 #RGB、#RRGGBB 或 #RRGGBBAA。
func ParseColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("无效的颜色 %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("无效的颜色 %q", s)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
