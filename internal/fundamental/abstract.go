package fundamental

import (
	"fmt"
	"regexp"
	"sort"
	"stock_signal/internal/errs"
	"stock_signal/internal/provider"
	"time"
)

// 财务摘要中按指标名匹配的行
var (
	rowPE        = regexp.MustCompile(`P/E`)
	rowPB        = regexp.MustCompile(`市净率`)
	rowROE       = regexp.MustCompile(`ROE|净资产收益率`)
	rowDebtRatio = regexp.MustCompile(`资产负债率`)
	rowRevenue   = regexp.MustCompile(`营业总收入`)
)

const (
	abstractIndicatorField = "指标"
	periodLayout           = "20060102"
	// 报告期列无法识别时按位置读取：第 3 列为最新一期，第 7 列为去年同期
	positionalLatest  = 2
	positionalYearAgo = 6
)

type period struct {
	col  int
	date time.Time
}

// abstractTable 财务摘要表：一列指标名，其余每列为一个报告期
type abstractTable struct {
	table        *provider.Table
	indicatorCol int
	periods      []period // 按报告期降序
	dated        bool
}

func newAbstractTable(t *provider.Table) (*abstractTable, error) {
	if t.Len() == 0 {
		return nil, errs.Upstream(provider.APIFinancialAbstract, fmt.Errorf("财务摘要为空"))
	}
	col := t.Index(abstractIndicatorField)
	if col < 0 {
		return nil, errs.Upstream(provider.APIFinancialAbstract, fmt.Errorf("缺少 %s 列", abstractIndicatorField))
	}

	a := &abstractTable{table: t, indicatorCol: col, dated: true}
	for i, field := range t.Fields {
		if i <= col {
			continue
		}
		d, err := time.Parse(periodLayout, field)
		if err != nil {
			a.dated = false
			break
		}
		a.periods = append(a.periods, period{col: i, date: d})
	}
	if a.dated && len(a.periods) > 0 {
		sort.SliceStable(a.periods, func(i, j int) bool {
			return a.periods[i].date.After(a.periods[j].date)
		})
	} else {
		a.periods = nil
		a.dated = false
	}
	return a, nil
}

// row 第一个指标名匹配 pattern 的行
func (a *abstractTable) row(pattern *regexp.Regexp) (int, bool) {
	for i := range a.table.Items {
		name, _ := a.table.Cell(i, a.indicatorCol).(string)
		if name != "" && pattern.MatchString(name) {
			return i, true
		}
	}
	return -1, false
}

// latestColumn 最新报告期所在列
func (a *abstractTable) latestColumn() (int, bool) {
	if a.dated {
		return a.periods[0].col, true
	}
	if len(a.table.Fields) > positionalLatest {
		return positionalLatest, true
	}
	return -1, false
}

// yearAgoColumn 去年同期所在列
func (a *abstractTable) yearAgoColumn() (int, bool) {
	if a.dated {
		return a.columnFor(a.periods[0].date.AddDate(-1, 0, 0))
	}
	if len(a.table.Fields) > positionalYearAgo {
		return positionalYearAgo, true
	}
	return -1, false
}

// halfYearColumns 最近一期半年报及其去年同期所在列，仅在报告期可识别时可用
func (a *abstractTable) halfYearColumns() (int, int, bool) {
	if !a.dated {
		return -1, -1, false
	}
	for _, p := range a.periods {
		if p.date.Month() != time.June || p.date.Day() != 30 {
			continue
		}
		prev, ok := a.columnFor(p.date.AddDate(-1, 0, 0))
		if !ok {
			return -1, -1, false
		}
		return p.col, prev, true
	}
	return -1, -1, false
}

func (a *abstractTable) columnFor(d time.Time) (int, bool) {
	for _, p := range a.periods {
		if p.date.Equal(d) {
			return p.col, true
		}
	}
	return -1, false
}

// latest 指标在最新报告期的值
func (a *abstractTable) latest(pattern *regexp.Regexp) (*float64, error) {
	col, ok := a.latestColumn()
	if !ok {
		return nil, errs.Upstream(provider.APIFinancialAbstract, fmt.Errorf("缺少报告期列"))
	}
	return a.value(pattern, col)
}

func (a *abstractTable) value(pattern *regexp.Regexp, col int) (*float64, error) {
	row, ok := a.row(pattern)
	if !ok {
		return nil, errs.Upstream(provider.APIFinancialAbstract, fmt.Errorf("未找到指标 %s", pattern))
	}
	v := numberPtr(a.table.Cell(row, col))
	if v == nil {
		return nil, errs.Upstream(provider.APIFinancialAbstract,
			fmt.Errorf("指标 %s 的值无法解析: %v", pattern, a.table.Cell(row, col)))
	}
	return v, nil
}

// growth 同一指标在两列之间的同比增长率（%），基期必须为正
func (a *abstractTable) growth(pattern *regexp.Regexp, latestCol, baseCol int) (*float64, error) {
	latest, err := a.value(pattern, latestCol)
	if err != nil {
		return nil, err
	}
	base, err := a.value(pattern, baseCol)
	if err != nil {
		return nil, err
	}
	return growthRate(*latest, *base)
}

func growthRate(latest, base float64) (*float64, error) {
	if base <= 0 {
		return nil, fmt.Errorf("基期值非正: %v", base)
	}
	g := (latest - base) / base * 100
	return &g, nil
}
