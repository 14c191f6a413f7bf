package caption

import (
	"fmt"
	"strings"
)

// Humor 选择提示词中的幽默风格。
type Humor string

const (
	HumorClassic   Humor = "classic"
	HumorSarcastic Humor = "sarcastic"
	HumorWholesome Humor = "wholesome"
	HumorAbsurd    Humor = "absurd"
	HumorDadJoke   Humor = "dad-joke"
)

var humorInstructions = map[Humor]string{
	HumorClassic:   "",
	HumorSarcastic: "Make it dry and sarcastic.",
	HumorWholesome: "Keep it wholesome and kind, something you could show your grandmother.",
	HumorAbsurd:    "Go for surreal, absurd humor.",
	HumorDadJoke:   "Make it a groan-worthy dad joke or pun.",
}

// Humors 返回全部可选风格，顺序固定。
func Humors() []Humor {
	return []Humor{HumorClassic, HumorSarcastic, HumorWholesome, HumorAbsurd, HumorDadJoke}
}

// ParseHumor 解析风格名（大小写不敏感，允许 dad_joke 写法）；空字符串视为 classic。
func ParseHumor(s string) (Humor, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.ReplaceAll(name, "_", "-")
	if name == "" {
		return HumorClassic, nil
	}
	h := Humor(name)
	if _, ok := humorInstructions[h]; !ok {
		return "", fmt.Errorf("未知的幽默风格 %q", s)
	}
	return h, nil
}

// Instruction 返回追加到提示词中的风格说明；classic 为空。
func (h Humor) Instruction() string {
	return humorInstructions[h]
}
