package api

import (
	"errors"
	"fmt"
	"net/http"
	"stock_signal/internal/errs"
	"stock_signal/internal/metrics"
	"stock_signal/internal/service"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler API 处理器
type Handler struct {
	reports *service.ReportService
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewHandler 创建处理器
func NewHandler(reports *service.ReportService, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		reports: reports,
		metrics: m,
		logger:  logger,
	}
}

// Response 统一错误响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	api := r.Group("/api")
	{
		// 健康检查
		api.GET("/health", h.HealthCheck)

		// 股票分析
		api.GET("/stock/:code", h.GetStock)
		api.GET("/stock/:code/strategies", h.GetStrategies)

		// 自选股
		api.GET("/stocks", h.ListStocks)
		api.DELETE("/stock/:code", h.DeleteStock)
	}
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "OK",
		Data: gin.H{
			"status": "healthy",
		},
	})
}

// GetStock 获取日线数据和全部策略结果，并保存到自选股
func (h *Handler) GetStock(c *gin.Context) {
	code := stockCode(c)
	h.logger.Info("收到股票分析请求", zap.String("stock_code", code))

	report, err := h.reports.StockReport(c.Request.Context(), code)
	h.metrics.Analysis("stock", err)
	if err != nil {
		h.analysisError(c, code, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetStrategies 只返回策略分析结果
func (h *Handler) GetStrategies(c *gin.Context) {
	code := stockCode(c)

	report, err := h.reports.StrategyReport(c.Request.Context(), code)
	h.metrics.Analysis("strategies", err)
	if err != nil {
		h.analysisError(c, code, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// ListStocks 获取已保存的自选股
func (h *Handler) ListStocks(c *gin.Context) {
	entries, err := h.reports.Watchlist(c.Request.Context())
	if err != nil {
		h.logger.Error("查询自选股失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{
			Code:    500,
			Message: err.Error(),
		})
		return
	}

	stocks := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		stocks = append(stocks, gin.H{
			"stock_code": e.StockCode,
			"stock_name": e.StockName,
			"added_time": e.AddedTime,
			"highlight":  e.Highlight,
			"strategies": e.Strategies,
		})
	}

	c.JSON(http.StatusOK, gin.H{"stocks": stocks})
}

// DeleteStock 删除自选股
func (h *Handler) DeleteStock(c *gin.Context) {
	code := stockCode(c)

	err := h.reports.RemoveFromWatchlist(c.Request.Context(), code)
	if errors.Is(err, errs.ErrNotFound) {
		c.JSON(http.StatusNotFound, Response{
			Code:    404,
			Message: "股票不存在",
		})
		return
	}
	if err != nil {
		h.logger.Error("删除自选股失败", zap.String("stock_code", code), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{
			Code:    500,
			Message: err.Error(),
		})
		return
	}

	h.logger.Info("自选股已删除", zap.String("stock_code", code))
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("股票 %s 已删除", code)})
}

func (h *Handler) analysisError(c *gin.Context, code string, err error) {
	if errors.Is(err, errs.ErrNotFound) {
		c.JSON(http.StatusNotFound, Response{
			Code:    404,
			Message: "未找到该股票代码的数据",
		})
		return
	}

	h.logger.Error("股票分析失败", zap.String("stock_code", code), zap.Error(err))
	c.JSON(http.StatusInternalServerError, Response{
		Code:    500,
		Message: err.Error(),
	})
}

func stockCode(c *gin.Context) string {
	return strings.TrimSpace(c.Param("code"))
}
