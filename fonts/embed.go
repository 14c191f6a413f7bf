package fonts

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
)

// Default 是找不到 Impact 时使用的内置字体。
const Default = "GoBold"

var builtin = map[string][]byte{
	"GoBold":     gobold.TTF,
	"GoRegular":  goregular.TTF,
	"GoMonoBold": gomonobold.TTF,
}

// Load 返回内置字体的字节数据，name 可写为 "embed:GoBold" 或直接 "GoBold"（大小写不敏感）。
func Load(name string) ([]byte, error) {
	clean := strings.TrimSpace(strings.TrimPrefix(name, "embed:"))
	for key, data := range builtin {
		if strings.EqualFold(key, clean) {
			return data, nil
		}
	}
	return nil, fmt.Errorf("内置字体 %s 不存在（可用：%s）", clean, strings.Join(Names(), ", "))
}

// Names 返回全部内置字体名称（已排序）。
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
