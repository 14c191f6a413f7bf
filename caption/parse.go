package caption

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	replyLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "TopMarker", Pattern: `(?i)top\s*:`},
		{Name: "BottomMarker", Pattern: `(?i)bottom\s*:`},
		{Name: "Markup", Pattern: "[*#>`~]+"},
		{Name: "Whitespace", Pattern: `\s+`},
		{Name: "Word", Pattern: "[^\\s*#>`~]+"},
	})

	replyParser = participle.MustBuild[reply](
		participle.Lexer(replyLexer),
		participle.Elide("Whitespace", "Markup"),
	)
)

// reply 是模型回复的语法：任意前言，随后是 TOP: 与 BOTTOM: 两段。
// Markdown 强调符号与空白在词法阶段被丢弃。
type reply struct {
	Preamble []string `parser:"@Word*"`
	Top      []string `parser:"TopMarker @Word*"`
	Bottom   []string `parser:"BottomMarker @Word*"`
}

// ParseReply 从模型回复中提取上下字幕，词之间统一用单个空格连接。
func ParseReply(text string) (Caption, error) {
	r, err := replyParser.ParseString("", text)
	if err != nil {
		return Caption{}, fmt.Errorf("%w: %v", ErrReplyInvalid, err)
	}
	c := Caption{
		Top:    strings.Join(r.Top, " "),
		Bottom: strings.Join(r.Bottom, " "),
	}
	if c.Empty() {
		return Caption{}, fmt.Errorf("%w: 字幕为空", ErrReplyInvalid)
	}
	return c, nil
}
