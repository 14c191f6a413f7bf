package renderer

import (
	"errors"
	"testing"
)

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{
		"":     FormatPNG,
		"PNG":  FormatPNG,
		".jpg": FormatJPEG,
		"jpeg": FormatJPEG,
		"pdf":  FormatPDF,
	}
	for in, want := range cases {
		got, err := ParseFormat(in)
		if err != nil {
			t.Fatalf("ParseFormat(%q) error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseFormat(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ParseFormat("webp"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("webp 应返回 ErrUnsupportedFormat，实际 %v", err)
	}
}

func TestFormatMetadata(t *testing.T) {
	if FormatJPEG.Ext() != "jpg" || FormatJPEG.ContentType() != "image/jpeg" {
		t.Fatalf("jpeg 元数据错误: %s %s", FormatJPEG.Ext(), FormatJPEG.ContentType())
	}
	if FormatPDF.ContentType() != "application/pdf" {
		t.Fatalf("pdf MIME 错误: %s", FormatPDF.ContentType())
	}
	if Format("").Ext() != "png" {
		t.Fatalf("空格式的扩展名应为 png")
	}
}
