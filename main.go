package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ByLCY/memegen/caption"
	"github.com/ByLCY/memegen/config"
	"github.com/ByLCY/memegen/layout"
	"github.com/ByLCY/memegen/logging"
	"github.com/ByLCY/memegen/meme"
	"github.com/ByLCY/memegen/renderer"
	canvasrenderer "github.com/ByLCY/memegen/renderer/canvas"
	"github.com/ByLCY/memegen/web"
)

type cliFlags struct {
	input, output, top, bottom string
	humor, format, font        string
	debug, serve, logFile      string
	offline                    bool
}

func main() {
	configPath := flag.String("config", "", "YAML 配置文件路径")
	var f cliFlags
	flag.StringVar(&f.input, "in", "", "输入图片路径")
	flag.StringVar(&f.output, "out", "", "输出路径（默认 ai_meme.<格式扩展名>）")
	flag.StringVar(&f.top, "top", "", "手动指定顶部字幕（跳过 AI）")
	flag.StringVar(&f.bottom, "bottom", "", "手动指定底部字幕（跳过 AI）")
	flag.StringVar(&f.humor, "humor", "", "幽默风格：classic/sarcastic/wholesome/absurd/dad-joke")
	flag.StringVar(&f.format, "format", "", "输出格式：png/jpeg/pdf")
	flag.StringVar(&f.font, "font", "", "优先使用的字体（文件路径、system:<名称> 或 embed:<名称>）")
	flag.StringVar(&f.debug, "debug", "", "布局调试 JSON 输出路径")
	flag.StringVar(&f.serve, "serve", "", "以 Web 模式监听的地址，例如 :8080")
	flag.StringVar(&f.logFile, "log", "", "日志文件路径（按大小轮转）")
	flag.BoolVar(&f.offline, "offline", false, "不调用模型，使用默认字幕")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	set := map[string]bool{}
	flag.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	applyFlags(&cfg, f, set)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("配置无效: %v", err)
	}

	closer, err := logging.Setup(cfg.LogFile)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer closer.Close()

	gen, err := newGenerator(cfg)
	if err != nil {
		log.Fatalf("初始化失败: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if f.serve != "" {
		if err := web.NewServer(gen, cfg.WebOptions()).ListenAndServe(ctx, cfg.Listen); err != nil {
			log.Fatalf("Web 服务异常退出: %v", err)
		}
		return
	}

	if f.input == "" {
		flag.Usage()
		os.Exit(2)
	}
	humor, _ := caption.ParseHumor(cfg.Humor)
	format, _ := renderer.ParseFormat(cfg.Format)
	outputPath := f.output
	if outputPath == "" {
		outputPath = web.DownloadName + "." + format.Ext()
	}
	out, err := run(ctx, gen, f.input, outputPath, f.debug, meme.Request{
		Humor:  humor,
		Top:    f.top,
		Bottom: f.bottom,
		Format: format,
	})
	if err != nil {
		log.Fatalf("生成表情包失败: %v", err)
	}
	fmt.Printf("AI suggested: %s | %s\n", out.Suggested.Top, out.Suggested.Bottom)
	fmt.Printf("已生成：%s\n", outputPath)
}

// applyFlags 用显式给出的命令行参数覆盖配置文件。
func applyFlags(cfg *config.Config, f cliFlags, set map[string]bool) {
	if set["humor"] {
		cfg.Humor = f.humor
	}
	if set["format"] {
		cfg.Format = f.format
	}
	if set["font"] && f.font != "" {
		cfg.Fonts = append([]string{f.font}, cfg.Fonts...)
	}
	if set["log"] {
		cfg.LogFile = f.logFile
	}
	if set["serve"] && f.serve != "" {
		cfg.Listen = f.serve
	}
	if set["offline"] {
		cfg.Offline = f.offline
	}
}

// newGenerator 按配置组装字体、渲染器与字幕来源。
// 没有 API key 时不会失败，而是退回默认字幕。
func newGenerator(cfg config.Config) (*meme.Generator, error) {
	fill, err := config.ParseColor(cfg.Colors.Fill)
	if err != nil {
		return nil, err
	}
	stroke, err := config.ParseColor(cfg.Colors.Stroke)
	if err != nil {
		return nil, err
	}
	r := canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{
		Fonts:       cfg.Fonts,
		FillColor:   fill,
		StrokeColor: stroke,
	})
	name, err := r.FontName()
	if err != nil {
		return nil, err
	}
	log.Printf("字幕字体：%s", name)

	var src caption.Source
	if !cfg.Offline {
		client, err := caption.NewGemini(cfg.Gemini)
		switch {
		case errors.Is(err, caption.ErrMissingAPIKey):
			log.Printf("未配置 Gemini API key，使用默认字幕: %v", err)
		case err != nil:
			return nil, err
		default:
			src = client
		}
	}
	return &meme.Generator{
		Captions:   caption.WithFallback(src),
		Renderer:   r,
		Typesetter: r,
		Layout:     cfg.Layout,
		Uppercase:  cfg.Uppercase,
	}, nil
}

// run 串联读图、生成与写出。
func run(ctx context.Context, gen *meme.Generator, inputPath, outputPath, debugPath string, req meme.Request) (*meme.Output, error) {
	if gen == nil {
		return nil, fmt.Errorf("generator 不能为空")
	}
	file, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("无法打开图片 %s: %w", inputPath, err)
	}
	defer file.Close()

	req.Image, err = meme.Decode(file)
	if err != nil {
		return nil, err
	}
	out, err := gen.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	if debugPath != "" {
		if err := writeDebug(out.Layout, debugPath); err != nil {
			return nil, err
		}
	}
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("创建输出目录失败: %w", err)
		}
	}
	if err := os.WriteFile(outputPath, out.Bytes, 0o644); err != nil {
		return nil, fmt.Errorf("写入文件失败: %w", err)
	}
	return out, nil
}

func writeDebug(result *layout.Result, debugPath string) error {
	if err := layout.WriteDebugJSON(result, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
