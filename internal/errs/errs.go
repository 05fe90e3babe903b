package errs

import (
	"errors"
	"fmt"
)

// ErrNotFound 数据源返回空数据或记录不存在
var ErrNotFound = errors.New("数据不存在")

// ErrPersistence 持久化写入失败，调用方只记录不返回
var ErrPersistence = errors.New("持久化失败")

// UpstreamError 外部数据源调用失败或返回结构不符合预期
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Upstream 包装数据源错误
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	return &UpstreamError{Op: op, Err: err}
}

// IsUpstream 判断是否为数据源错误
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

// Truncate 截断错误信息，错误日志最多保留 limit 个字符
func Truncate(msg string, limit int) string {
	r := []rune(msg)
	if len(r) <= limit {
		return msg
	}
	return string(r[:limit])
}
