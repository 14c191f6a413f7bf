package caption

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultPrompt 是发送给模型的提示词模板，${...} 占位符由 Interpolate 展开。
const DefaultPrompt = `Analyze this image and create a funny meme caption.
${humor.instruction}
Return the result in exactly this format:
TOP: [Top text]
BOTTOM: [Bottom text]
Keep it short, witty, and relevant to the objects or expressions in the image.`

var placeholder = regexp.MustCompile(`\$\{([^}]+)\}`)

// BuildPrompt 用 humor 展开模板，并去掉展开后为空的行。
func BuildPrompt(template string, humor Humor) string {
	if template == "" {
		template = DefaultPrompt
	}
	vars := map[string]any{
		"humor": map[string]any{
			"name":        string(humor),
			"instruction": humor.Instruction(),
		},
	}
	expanded := Interpolate(template, vars)
	lines := strings.Split(expanded, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// Interpolate 将 ${a.b[0].c} 形式的占位符替换为 vars 中对应的值。
// 路径不存在时保留原占位符。
func Interpolate(text string, vars map[string]any) string {
	if len(vars) == 0 {
		return text
	}
	return placeholder.ReplaceAllStringFunc(text, func(match string) string {
		path := strings.TrimSpace(match[2 : len(match)-1])
		if path == "" {
			return match
		}
		if val, ok := lookup(vars, path); ok {
			return fmt.Sprint(val)
		}
		return match
	})
}

func lookup(vars map[string]any, path string) (any, bool) {
	var current any = vars
	for _, segment := range strings.Split(path, ".") {
		key, indexes, ok := splitIndexes(segment)
		if !ok {
			return nil, false
		}
		if key != "" {
			m, isMap := current.(map[string]any)
			if !isMap {
				return nil, false
			}
			if current, ok = m[key]; !ok {
				return nil, false
			}
		}
		for _, idx := range indexes {
			list, isList := current.([]any)
			if !isList || idx < 0 || idx >= len(list) {
				return nil, false
			}
			current = list[idx]
		}
	}
	return current, true
}

// splitIndexes 把 "items[1][0]" 拆成 "items" 与 [1 0]。
func splitIndexes(segment string) (string, []int, bool) {
	open := strings.IndexByte(segment, '[')
	if open == -1 {
		return segment, nil, true
	}
	key, rest := segment[:open], segment[open:]
	var indexes []int
	for rest != "" {
		end := strings.IndexByte(rest, ']')
		if rest[0] != '[' || end == -1 {
			return "", nil, false
		}
		n, err := strconv.Atoi(rest[1:end])
		if err != nil {
			return "", nil, false
		}
		indexes = append(indexes, n)
		rest = rest[end+1:]
	}
	return key, indexes, true
}
