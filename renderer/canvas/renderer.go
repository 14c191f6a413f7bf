package canvasrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"github.com/tdewolff/canvas/renderers/rasterizer"

	"github.com/ByLCY/memegen/fonts"
	"github.com/ByLCY/memegen/layout"
	"github.com/ByLCY/memegen/renderer"
)

const defaultJPEGQuality = 95

// Renderer draws layout results via github.com/tdewolff/canvas.
// It also measures text for the layout engine, always with the font it actually loaded.
type Renderer struct {
	baseDir string
	sources []string

	// injected resources
	fontBlobs map[string][]byte // by unique name

	fill        color.Color
	stroke      color.Color
	jpegQuality int

	fontMu     sync.Mutex
	family     *canvas.FontFamily
	familyName string
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Typesetter = (*Renderer)(nil)
)

// Options configures the canvas renderer.
type Options struct {
	BaseDir string
	// Fonts lists font sources in priority order: a file path, system:<name>,
	// built-in:<name> or embed:<name>. embed:GoBold is always tried last.
	Fonts       []string
	Builtin     map[string]Resource // built-in fonts accessible via built-in:<name>
	FillColor   color.Color
	StrokeColor color.Color
	JPEGQuality int
}

// Resource can be provided either by Bytes or by Path.
type Resource struct {
	Bytes []byte
	Path  string
}

// NewRenderer creates a renderer that tries the given font sources in order.
func NewRenderer(fontSources ...string) *Renderer {
	return NewRendererWithOptions(Options{Fonts: fontSources})
}

// NewRendererWithOptions creates a renderer with injected resources and optional baseDir.
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		baseDir:     opts.BaseDir,
		sources:     append([]string(nil), opts.Fonts...),
		fontBlobs:   map[string][]byte{},
		fill:        opts.FillColor,
		stroke:      opts.StrokeColor,
		jpegQuality: opts.JPEGQuality,
	}
	if r.fill == nil {
		r.fill = color.White
	}
	if r.stroke == nil {
		r.stroke = color.Black
	}
	if r.jpegQuality <= 0 || r.jpegQuality > 100 {
		r.jpegQuality = defaultJPEGQuality
	}
	// ingest fonts
	for name, res := range opts.Builtin {
		if name == "" {
			continue
		}
		if len(res.Bytes) > 0 {
			r.fontBlobs[name] = res.Bytes
			continue
		}
		if res.Path != "" {
			data, _ := os.ReadFile(res.Path) // ignore error here; the source is skipped when resolved
			if len(data) > 0 {
				r.fontBlobs[name] = data
			}
		}
	}
	return r
}

// MeasureText 实现 layout.Typesetter：size 与返回值均为像素。
func (r *Renderer) MeasureText(text string, size float64) (layout.TextMetrics, error) {
	face, err := r.fontFace(size)
	if err != nil {
		return layout.TextMetrics{}, err
	}
	metrics := face.Metrics()
	return layout.TextMetrics{
		Width:  face.TextWidth(text),
		Height: metrics.Ascent + metrics.Descent,
		Ascent: metrics.Ascent,
	}, nil
}

// FontName 返回实际加载的字体来源，例如 "system:Impact" 或 "embed:GoBold"。
func (r *Renderer) FontName() (string, error) {
	if _, err := r.ensureFontFamily(); err != nil {
		return "", err
	}
	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	return r.familyName, nil
}

// Render 在 src 的副本上绘制字幕并编码为指定格式，src 本身不会被修改。
func (r *Renderer) Render(src image.Image, result *layout.Result, format renderer.Format) ([]byte, error) {
	if src == nil {
		return nil, fmt.Errorf("源图片为空")
	}
	if result == nil {
		return nil, fmt.Errorf("排版结果为空")
	}

	var buf bytes.Buffer
	switch format {
	case renderer.FormatPNG, renderer.FormatJPEG:
		b := src.Bounds()
		dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		if err := r.Draw(dst, result); err != nil {
			return nil, err
		}
		if err := r.encode(&buf, dst, format); err != nil {
			return nil, err
		}
	case renderer.FormatPDF:
		if err := r.renderPDF(&buf, src, result); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", renderer.ErrUnsupportedFormat, format)
	}
	return buf.Bytes(), nil
}

// Draw 将排版结果直接绘制到 dst 上（调用方负责提供可写副本）。
// 画布单位与像素一比一对应。
func (r *Renderer) Draw(dst draw.Image, result *layout.Result) error {
	if result == nil {
		return fmt.Errorf("排版结果为空")
	}
	bounds := dst.Bounds()
	width, height := float64(bounds.Dx()), float64(bounds.Dy())
	c := canvas.New(width, height)
	ctx := canvas.NewContext(c)
	if err := r.drawCaptions(ctx, height, result); err != nil {
		return err
	}

	// 光栅化器只能写入原点为 (0,0) 的 *image.RGBA，其他类型先画到临时图上再拷回。
	target, ok := dst.(*image.RGBA)
	if !ok || bounds.Min != (image.Point{}) {
		target = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(target, target.Bounds(), dst, bounds.Min, draw.Src)
	}
	// 照片本身未做线性化，颜色按原值混合。
	c.RenderTo(rasterizer.FromImage(target, canvas.DPMM(1.0), canvas.LinearColorSpace{}))
	if target != dst {
		draw.Draw(dst, bounds, target, image.Point{}, draw.Src)
	}
	return nil
}

func (r *Renderer) renderPDF(buf *bytes.Buffer, src image.Image, result *layout.Result) error {
	bounds := src.Bounds()
	pageW, pageH := layout.PageSizeMM(bounds.Dx(), bounds.Dy())
	c := canvas.New(pageW, pageH)
	ctx := canvas.NewContext(c)
	// 以像素为单位绘制，再整体缩放到 96 DPI 的页面尺寸。
	ctx.SetView(canvas.Identity.Scale(layout.PxToMm, layout.PxToMm))
	ctx.DrawImage(0, 0, src, canvas.DPMM(1.0))
	if err := r.drawCaptions(ctx, float64(bounds.Dy()), result); err != nil {
		return err
	}

	writer := pdf.New(buf, pageW, pageH, nil)
	r.applyMeta(writer, result)
	c.RenderTo(writer)
	if err := writer.Close(); err != nil {
		return fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return nil
}

func (r *Renderer) applyMeta(writer *pdf.PDF, result *layout.Result) {
	var captions []string
	for _, block := range result.Blocks {
		if text := strings.TrimSpace(block.Text); text != "" {
			captions = append(captions, text)
		}
	}
	writer.SetInfo(strings.Join(captions, " / "), "meme", "", "", "memegen")
}

// drawCaptions 逐行绘制字幕。排版坐标以左上角为原点，画布以左下角为原点，
// 因此基线需要按 pageHeight 翻转。
func (r *Renderer) drawCaptions(ctx *canvas.Context, pageHeight float64, result *layout.Result) error {
	ctx.SetStrokeJoiner(canvas.RoundJoin)
	for _, block := range result.Blocks {
		if block.Empty() {
			continue
		}
		face, err := r.fontFace(float64(block.FontSize))
		if err != nil {
			return err
		}
		// 描边以轮廓为中心，宽度加倍后外侧可见部分正好是 StrokeWidth。
		strokeWidth := 2 * float64(block.StrokeWidth)
		for _, line := range block.Lines {
			path, _, err := face.ToPath(line.Content)
			if err != nil {
				return fmt.Errorf("生成文字轮廓 %q 失败: %w", line.Content, err)
			}
			x, y := line.X, pageHeight-line.Baseline

			// 先画描边，再在其上填充，避免描边吃掉字形本身。
			ctx.SetFillColor(color.RGBA{0, 0, 0, 0})
			ctx.SetStrokeColor(r.stroke)
			ctx.SetStrokeWidth(strokeWidth)
			ctx.DrawPath(x, y, path)

			ctx.SetFillColor(r.fill)
			ctx.SetStrokeColor(color.RGBA{0, 0, 0, 0})
			ctx.DrawPath(x, y, path)
		}
	}
	return nil
}

func (r *Renderer) encode(buf *bytes.Buffer, img image.Image, format renderer.Format) error {
	var err error
	switch format {
	case renderer.FormatJPEG:
		err = imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(r.jpegQuality))
	default:
		err = imaging.Encode(buf, img, imaging.PNG)
	}
	if err != nil {
		return fmt.Errorf("编码 %s 失败: %w", format, err)
	}
	return nil
}

func (r *Renderer) fontFace(size float64) (*canvas.FontFace, error) {
	family, err := r.ensureFontFamily()
	if err != nil {
		return nil, err
	}
	return family.Face(layout.PxToPt(size), r.fill, canvas.FontRegular, canvas.FontNormal), nil
}

// ensureFontFamily 按优先级依次尝试字体来源，第一个加载成功的会被缓存，
// 之后的测量与绘制都使用它。全部失败时回退到内置字体。
func (r *Renderer) ensureFontFamily() (*canvas.FontFamily, error) {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if r.family != nil {
		return r.family, nil
	}

	for _, src := range r.sources {
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		family, err := r.loadFamily(src)
		if err != nil {
			log.Printf("字体 %s 不可用，尝试下一个: %v", src, err)
			continue
		}
		r.family, r.familyName = family, src
		return family, nil
	}

	fallback := "embed:" + fonts.Default
	family, err := r.loadFamily(fallback)
	if err != nil {
		return nil, fmt.Errorf("加载内置字体 %s 失败: %w", fallback, err)
	}
	if len(r.sources) > 0 {
		log.Printf("配置的字体均不可用，使用内置字体 %s", fallback)
	}
	r.family, r.familyName = family, fallback
	return family, nil
}

func (r *Renderer) loadFamily(src string) (*canvas.FontFamily, error) {
	family := canvas.NewFontFamily("memegen")
	if name, ok := strings.CutPrefix(src, "system:"); ok {
		if err := family.LoadSystemFont(name, canvas.FontRegular); err != nil {
			return nil, err
		}
		return family, nil
	}
	data, err := r.loadFontBytes(src)
	if err != nil {
		return nil, err
	}
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, err
	}
	return family, nil
}

func (r *Renderer) loadFontBytes(src string) ([]byte, error) {
	if strings.HasPrefix(src, "built-in:") || strings.HasPrefix(src, "builtin:") {
		name := strings.TrimPrefix(strings.TrimPrefix(src, "built-in:"), "builtin:")
		if blob, ok := r.fontBlobs[name]; ok {
			return blob, nil
		}
		return nil, fmt.Errorf("找不到内置字体资源 built-in:%s", name)
	}
	if strings.HasPrefix(src, "embed:") {
		return fonts.Load(src)
	}
	// Path based
	path := src
	if r.baseDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(r.baseDir, path)
	}
	return os.ReadFile(path)
}
