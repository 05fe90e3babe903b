package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"stock_signal/internal/config"
	"stock_signal/internal/errs"
	"stock_signal/internal/metrics"
	"stock_signal/internal/models"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// 数据源接口名
const (
	APIDailyHistory      = "stock_zh_a_hist"
	APIIndividualInfo    = "stock_individual_info_em"
	APIValuation         = "stock_zh_valuation_baidu"
	APIFinancialAbstract = "stock_financial_abstract"
	APIQuarterlyReport   = "stock_financial_abstract_ths"
	APIDividend          = "stock_dividend"
)

// Client 行情与基本面数据源客户端
type Client struct {
	token   string
	baseURL string
	retry   int
	backoff time.Duration
	client  *http.Client
	limiter *rate.Limiter
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// Request 数据源请求结构
type Request struct {
	APIName string                 `json:"api_name"`
	Token   string                 `json:"token"`
	Params  map[string]interface{} `json:"params"`
	Fields  string                 `json:"fields,omitempty"`
}

// Response 数据源响应结构
type Response struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// Table 表格数据，Items 的每一行与 Fields 按位置对应
type Table struct {
	Fields []string        `json:"fields"`
	Items  [][]interface{} `json:"items"`
}

// NewClient 创建数据源客户端
func NewClient(cfg *config.ProviderConfig, m *metrics.Metrics, logger *zap.Logger) *Client {
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		token:   cfg.Token,
		baseURL: cfg.BaseURL,
		retry:   cfg.Retry,
		backoff: time.Second,
		client: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		metrics: m,
		logger:  logger,
	}
}

// request 发送请求
func (c *Client) request(ctx context.Context, apiName string, params map[string]interface{}) (*Table, error) {
	start := time.Now()
	data, err := c.doWithRetry(ctx, apiName, params)
	c.metrics.ObserveProvider(apiName, start, err)
	if err != nil {
		c.logger.Warn("数据源请求失败",
			zap.String("api", apiName),
			zap.Any("params", params),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, errs.Upstream(apiName, err)
	}
	return data, nil
}

func (c *Client) doWithRetry(ctx context.Context, apiName string, params map[string]interface{}) (*Table, error) {
	reqData := Request{
		APIName: apiName,
		Token:   c.token,
		Params:  params,
	}

	jsonData, err := json.Marshal(reqData)
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	var resp *Response
	var lastErr error

	// 重试机制
	for i := 0; i <= c.retry; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("等待限流失败: %w", err)
		}
		resp, lastErr = c.doRequest(ctx, jsonData)
		if lastErr == nil && resp.Code == 0 {
			break
		}
		if i < c.retry {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff * time.Duration(i+1)):
			}
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}

	if resp.Code != 0 {
		return nil, fmt.Errorf("API 返回错误: %s", resp.Msg)
	}

	var data Table
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("解析响应数据失败: %w", err)
	}

	return &data, nil
}

// doRequest 执行 HTTP 请求
func (c *Client) doRequest(ctx context.Context, jsonData []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP 状态码异常: %d", httpResp.StatusCode)
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}

	return &resp, nil
}

// GetDailyHistory 获取日线行情
// startDate/endDate: YYYYMMDD，adjust: qfq 前复权 hfq 后复权 空-不复权
func (c *Client) GetDailyHistory(ctx context.Context, stockCode, startDate, endDate, adjust string) ([]models.PriceBar, error) {
	params := map[string]interface{}{
		"symbol":     stockCode,
		"period":     "daily",
		"start_date": startDate,
		"end_date":   endDate,
		"adjust":     adjust,
	}

	data, err := c.request(ctx, APIDailyHistory, params)
	if err != nil {
		return nil, err
	}

	return parseDailyHistory(data), nil
}

// GetIndividualInfo 获取个股基本信息（item/value 键值表）
func (c *Client) GetIndividualInfo(ctx context.Context, stockCode string) (map[string]interface{}, error) {
	data, err := c.request(ctx, APIIndividualInfo, map[string]interface{}{"symbol": stockCode})
	if err != nil {
		return nil, err
	}

	itemIdx, valueIdx := data.Index("item"), data.Index("value")
	if itemIdx < 0 || valueIdx < 0 {
		return nil, errs.Upstream(APIIndividualInfo, fmt.Errorf("缺少 item/value 列"))
	}

	result := make(map[string]interface{}, len(data.Items))
	for _, item := range data.Items {
		key := getString(item, itemIdx)
		if key == "" {
			continue
		}
		result[key] = cell(item, valueIdx)
	}
	return result, nil
}

// GetValuation 获取估值数据，最后一行为最新
func (c *Client) GetValuation(ctx context.Context, stockCode string) (*Table, error) {
	return c.request(ctx, APIValuation, map[string]interface{}{"symbol": stockCode})
}

// GetFinancialAbstract 获取财务摘要，首两列为 选项/指标，其余每列为一个报告期
func (c *Client) GetFinancialAbstract(ctx context.Context, stockCode string) (*Table, error) {
	return c.request(ctx, APIFinancialAbstract, map[string]interface{}{"symbol": stockCode})
}

// GetQuarterlyRevenue 获取单季度营业收入（报告期/值）
func (c *Client) GetQuarterlyRevenue(ctx context.Context, stockCode string) (*Table, error) {
	return c.request(ctx, APIQuarterlyReport, map[string]interface{}{
		"symbol":    stockCode,
		"indicator": "营业收入",
	})
}

// GetDividends 获取分红记录，第一行为最近一次
func (c *Client) GetDividends(ctx context.Context, stockCode string) (*Table, error) {
	return c.request(ctx, APIDividend, map[string]interface{}{"symbol": stockCode})
}

// parseDailyHistory 解析日线数据
func parseDailyHistory(data *Table) []models.PriceBar {
	result := make([]models.PriceBar, 0, len(data.Items))

	fieldMap := data.fieldMap()
	idx := func(name string) int {
		if i, ok := fieldMap[name]; ok {
			return i
		}
		return -1
	}

	for _, item := range data.Items {
		bar := models.PriceBar{
			Date:   getString(item, idx("日期")),
			Open:   getFloat(item, idx("开盘")),
			Close:  getFloat(item, idx("收盘")),
			Low:    getFloat(item, idx("最低")),
			High:   getFloat(item, idx("最高")),
			Volume: getFloat(item, idx("成交量")),
		}
		result = append(result, bar)
	}

	return result
}

// Len 行数
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Items)
}

// Index 返回字段所在列，不存在时返回 -1
func (t *Table) Index(field string) int {
	if t == nil {
		return -1
	}
	for i, f := range t.Fields {
		if f == field {
			return i
		}
	}
	return -1
}

// Cell 读取单元格，越界时返回 nil
func (t *Table) Cell(row, col int) interface{} {
	if t == nil || row < 0 || row >= len(t.Items) {
		return nil
	}
	return cell(t.Items[row], col)
}

// Value 按字段名读取单元格
func (t *Table) Value(row int, field string) interface{} {
	return t.Cell(row, t.Index(field))
}

func (t *Table) fieldMap() map[string]int {
	fieldMap := make(map[string]int, len(t.Fields))
	for i, field := range t.Fields {
		fieldMap[field] = i
	}
	return fieldMap
}
