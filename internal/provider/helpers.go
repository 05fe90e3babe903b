package provider

import (
	"fmt"
	"strconv"
	"strings"
)

// 辅助函数
func cell(item []interface{}, index int) interface{} {
	if index < 0 || index >= len(item) {
		return nil
	}
	return item[index]
}

func getString(item []interface{}, index int) string {
	switch v := cell(item, index).(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func getFloat(item []interface{}, index int) float64 {
	switch v := cell(item, index).(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
