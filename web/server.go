package web

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/ByLCY/memegen/caption"
	"github.com/ByLCY/memegen/meme"
	"github.com/ByLCY/memegen/renderer"
)

// DownloadName 是下载文件的基础名，扩展名随输出格式变化。
const DownloadName = "ai_meme"

// Options 配置上传表单服务。
type Options struct {
	MaxUploadBytes    int64   `yaml:"max_upload_bytes"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 表示不限流
	Burst             int     `yaml:"burst"`
	MaxConcurrent     int64   `yaml:"max_concurrent"`
	ShutdownSeconds   int     `yaml:"shutdown_seconds"`

	DefaultHumor  caption.Humor   `yaml:"-"`
	DefaultFormat renderer.Format `yaml:"-"`
}

// DefaultOptions 返回默认参数：10 MiB 上传上限，4 路并发渲染。
func DefaultOptions() Options {
	return Options{
		MaxUploadBytes:    10 << 20,
		RequestsPerSecond: 2,
		Burst:             5,
		MaxConcurrent:     4,
		ShutdownSeconds:   10,
		DefaultHumor:      caption.HumorClassic,
		DefaultFormat:     renderer.FormatPNG,
	}
}

func (o *Options) defaults() {
	d := DefaultOptions()
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = d.MaxUploadBytes
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = d.MaxConcurrent
	}
	if o.Burst <= 0 {
		o.Burst = d.Burst
	}
	if o.ShutdownSeconds <= 0 {
		o.ShutdownSeconds = d.ShutdownSeconds
	}
	if o.DefaultHumor == "" {
		o.DefaultHumor = d.DefaultHumor
	}
	if o.DefaultFormat == "" {
		o.DefaultFormat = d.DefaultFormat
	}
}

// Server 提供上传表单、结果页与原始图片接口。
type Server struct {
	mux     *http.ServeMux
	gen     *meme.Generator
	opts    Options
	limiter *rate.Limiter
	sem     *semaphore.Weighted
}

// NewServer creates a new upload server around gen.
func NewServer(gen *meme.Generator, opts Options) *Server {
	opts.defaults()
	s := &Server{
		mux:  http.NewServeMux(),
		gen:  gen,
		opts: opts,
		sem:  semaphore.NewWeighted(opts.MaxConcurrent),
	}
	if opts.RequestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /meme", s.handleMeme)
	s.mux.HandleFunc("POST /api/meme", s.handleAPIMeme)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// Handler returns the HTTP handler for the server, with request ids and access logs.
func (s *Server) Handler() http.Handler {
	return withRequestID(s.mux)
}

// ListenAndServe 阻塞直到 ctx 结束，随后在 ShutdownSeconds 内优雅退出。
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("memegen 监听 %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(s.opts.ShutdownSeconds)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("关闭服务失败: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	data := struct {
		Humors  []caption.Humor
		Humor   caption.Humor
		Formats []renderer.Format
		Format  renderer.Format
	}{
		Humors:  caption.Humors(),
		Humor:   s.opts.DefaultHumor,
		Formats: []renderer.Format{renderer.FormatPNG, renderer.FormatJPEG, renderer.FormatPDF},
		Format:  s.opts.DefaultFormat,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexPage.Execute(w, data); err != nil {
		log.Printf("渲染首页失败: %v", err)
	}
}

func (s *Server) handleMeme(w http.ResponseWriter, r *http.Request) {
	out, err := s.generate(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	data := struct {
		Inline      bool
		DataURI     template.URL
		ContentType string
		Filename    string
		Suggested   caption.Caption
	}{
		Inline:      out.Format != renderer.FormatPDF,
		DataURI:     template.URL("data:" + out.Format.ContentType() + ";base64," + base64.StdEncoding.EncodeToString(out.Bytes)),
		ContentType: out.Format.ContentType(),
		Filename:    downloadFilename(out.Format),
		Suggested:   out.Suggested,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := resultPage.Execute(w, data); err != nil {
		log.Printf("[%s] 渲染结果页失败: %v", RequestID(r.Context()), err)
	}
}

func (s *Server) handleAPIMeme(w http.ResponseWriter, r *http.Request) {
	out, err := s.generate(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h := w.Header()
	h.Set("Content-Type", out.Format.ContentType())
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", downloadFilename(out.Format)))
	h.Set("X-Meme-Top", headerSafe(out.Caption.Top))
	h.Set("X-Meme-Bottom", headerSafe(out.Caption.Bottom))
	_, _ = w.Write(out.Bytes)
}

// generate 解析上传表单并执行流水线，错误统一为 *statusError。
func (s *Server) generate(w http.ResponseWriter, r *http.Request) (*meme.Output, error) {
	if s.limiter != nil && !s.limiter.Allow() {
		return nil, &statusError{status: http.StatusTooManyRequests, msg: "too many requests"}
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return nil, &statusError{status: http.StatusRequestEntityTooLarge, msg: "upload too large", err: err}
		}
		return nil, &statusError{status: http.StatusBadRequest, msg: "invalid upload", err: err}
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, &statusError{status: http.StatusBadRequest, msg: "missing image", err: err}
	}
	defer file.Close()
	img, err := meme.Decode(file)
	if err != nil {
		return nil, &statusError{status: http.StatusBadRequest, msg: "unsupported image", err: err}
	}

	humor := s.opts.DefaultHumor
	if v := r.FormValue("humor"); v != "" {
		if humor, err = caption.ParseHumor(v); err != nil {
			return nil, &statusError{status: http.StatusBadRequest, msg: err.Error(), err: err}
		}
	}
	format := s.opts.DefaultFormat
	if v := r.FormValue("format"); v != "" {
		if format, err = renderer.ParseFormat(v); err != nil {
			return nil, &statusError{status: http.StatusBadRequest, msg: "unsupported format", err: err}
		}
	}

	if err := s.sem.Acquire(r.Context(), 1); err != nil {
		return nil, &statusError{status: http.StatusServiceUnavailable, msg: "server busy", err: err}
	}
	defer s.sem.Release(1)

	out, err := s.gen.Generate(r.Context(), meme.Request{
		Image:  img,
		Humor:  humor,
		Top:    r.FormValue("top"),
		Bottom: r.FormValue("bottom"),
		Format: format,
	})
	if err != nil {
		if errors.Is(err, caption.ErrRateLimited) {
			return nil, &statusError{status: http.StatusTooManyRequests, msg: "caption service rate limited", err: err}
		}
		return nil, &statusError{status: http.StatusInternalServerError, msg: "meme generation failed", err: err}
	}
	log.Printf("[%s] 生成 %dx%d %s，字幕 %q | %q", RequestID(r.Context()),
		img.Bounds().Dx(), img.Bounds().Dy(), out.Format, out.Caption.Top, out.Caption.Bottom)
	return out, nil
}

func downloadFilename(f renderer.Format) string {
	return DownloadName + "." + f.Ext()
}

// headerSafe 去掉换行等控制字符，避免破坏响应头。
func headerSafe(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, s)
}

type statusError struct {
	status int
	msg    string
	err    error
}

func (e *statusError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%d %s: %v", e.status, e.msg, e.err)
	}
	return fmt.Sprintf("%d %s", e.status, e.msg)
}

func (e *statusError) Unwrap() error { return e.err }

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := http.StatusInternalServerError, "internal error"
	var se *statusError
	if errors.As(err, &se) {
		status, msg = se.status, se.msg
	}
	log.Printf("[%s] %s %s 失败: %v", RequestID(r.Context()), r.Method, r.URL.Path, err)
	http.Error(w, msg, status)
}
