package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup 配置标准库 log。path 为空时输出到 stderr；否则写入按大小轮转的日志文件。
// 返回的 io.Closer 用于在退出前关闭日志文件。
func Setup(path string) (io.Closer, error) {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if path == "" {
		log.SetOutput(os.Stderr)
		return io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("创建日志目录失败: %w", err)
	}
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 2,
		MaxAge:     28, // days
		Compress:   true,
	}
	log.SetOutput(w)
	return w, nil
}
