package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpstreamError(t *testing.T) {
	base := errors.New("connection refused")
	err := fmt.Errorf("获取估值失败: %w", Upstream("stock_zh_valuation_baidu", base))

	assert.True(t, IsUpstream(err))
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "stock_zh_valuation_baidu")
	assert.Nil(t, Upstream("noop", nil))
	assert.False(t, IsUpstream(ErrNotFound))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 500))
	long := strings.Repeat("错", 600)
	assert.Len(t, []rune(Truncate(long, 500)), 500)
}
