package fundamental

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var unitSuffixes = []struct {
	suffix string
	scale  float64
}{
	{"万亿", 1e12},
	{"亿", 1e8},
	{"万", 1e4},
}

// ParseNumber 解析数据源返回的数值单元格。
// 支持带 %、千分位逗号以及 万/亿 单位的字符串，空值和 "--" 视为缺失。
func ParseNumber(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		return x, !math.IsNaN(x) && !math.IsInf(x, 0)
	case float32:
		return ParseNumber(float64(x))
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		return parseNumberString(x)
	default:
		return 0, false
	}
}

func parseNumberString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "-", "--", "nan", "none", "null", "false":
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")

	scale := 1.0
	for _, u := range unitSuffixes {
		if strings.HasSuffix(s, u.suffix) {
			s = strings.TrimSuffix(s, u.suffix)
			scale = u.scale
			break
		}
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f * scale, true
}

// numberPtr 解析成功返回指针
func numberPtr(v interface{}) *float64 {
	f, ok := ParseNumber(v)
	if !ok {
		return nil
	}
	return &f
}

// toString 单元格转字符串，整数形式的浮点数不带小数
func toString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
