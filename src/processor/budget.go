// budget.go
package processor

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"AdOpsAutomation/src/utils"
)

// 固定列名
const (
	ColPackageName = "Package Name"
	ColStartDate   = "Start Date"
	ColBudget      = "Budget"

	// 稀疏宽表中动态列的前缀，如 Header_2024-06-01 / Values_2024-06-01
	HeaderPrefix = "Header_"
	ValuesPrefix = "Values_"
)

// MissingColumnError 输入表缺少必需列
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("输入表缺少必需列: %s", e.Column)
}

// DivisionByZeroError 某个(包名, 开始日期)组合有预算但没有任何航班行
type DivisionByZeroError struct {
	Package   string
	StartDate string
}

func (e *DivisionByZeroError) Error() string {
	return fmt.Sprintf("无法分摊预算: 包 %q 开始日期 %q 没有匹配的航班行", e.Package, e.StartDate)
}

// dateColumns 一个开始日期对应的(标记列, 数值列)列名
type dateColumns struct {
	header string
	values string
}

// dateColumnIndex 开始日期 -> (Header_, Values_)列名映射
// 只收录预算表中实际存在的列，按日期集合构建一次，避免每次查询重新拼接字符串
type dateColumnIndex map[string]dateColumns

func newDateColumnIndex(budgets dataframe.DataFrame, startDates []string) dateColumnIndex {
	idx := make(dateColumnIndex, len(startDates))
	for _, d := range startDates {
		header := HeaderPrefix + d
		values := ValuesPrefix + d
		if utils.HasColumn(budgets, header) && utils.HasColumn(budgets, values) {
			idx[d] = dateColumns{header: header, values: values}
		}
	}
	return idx
}

// CountFlights 统计包名和开始日期都精确匹配的航班行数，无匹配返回0
func CountFlights(flights dataframe.DataFrame, pkg, startDate string) (int, error) {
	for _, col := range []string{ColPackageName, ColStartDate} {
		if !utils.HasColumn(flights, col) {
			return 0, &MissingColumnError{Column: col}
		}
	}
	if flights.Nrow() == 0 {
		return 0, nil
	}

	matched := flights.FilterAggregation(
		dataframe.And,
		dataframe.F{Colname: ColPackageName, Comparator: series.Eq, Comparando: pkg},
		dataframe.F{Colname: ColStartDate, Comparator: series.Eq, Comparando: startDate},
	)
	if matched.Err != nil {
		return 0, fmt.Errorf("过滤航班表失败(包 %q 日期 %q): %w", pkg, startDate, matched.Err)
	}
	return matched.Nrow(), nil
}

// AggregateBudget 汇总某个包在某个开始日期下的总预算
// 预算表为稀疏宽表: 当 Header_<date> 列的值等于该日期时，对应行的 Values_<date> 计入合计
// 没有匹配行(或该日期的列根本没有出现在表里)返回0，不视为错误
func AggregateBudget(budgets dataframe.DataFrame, pkg, startDate string) (float64, error) {
	idx := newDateColumnIndex(budgets, []string{startDate})
	return aggregateBudget(budgets, idx, pkg, startDate)
}

func aggregateBudget(budgets dataframe.DataFrame, idx dateColumnIndex, pkg, startDate string) (float64, error) {
	if !utils.HasColumn(budgets, ColPackageName) {
		return 0, &MissingColumnError{Column: ColPackageName}
	}

	cols, ok := idx[startDate]
	if !ok {
		// 该日期在预算表中没有物化出列，视为零预算
		return 0, nil
	}
	if budgets.Nrow() == 0 {
		return 0, nil
	}

	matched := budgets.FilterAggregation(
		dataframe.And,
		dataframe.F{Colname: ColPackageName, Comparator: series.Eq, Comparando: pkg},
		dataframe.F{Colname: cols.header, Comparator: series.Eq, Comparando: startDate},
	)
	if matched.Err != nil {
		return 0, fmt.Errorf("过滤预算表失败(包 %q 日期 %q): %w", pkg, startDate, matched.Err)
	}
	if matched.Nrow() == 0 {
		return 0, nil
	}

	// 清洗层把无法解析的单元置为NaN，求和时跳过
	total := 0.0
	for _, v := range matched.Col(cols.values).Float() {
		if !math.IsNaN(v) {
			total += v
		}
	}
	return total, nil
}

// ApplyFlightBudget 将匹配(包名, 开始日期)的每一行的 Budget 置为 value
// 不匹配的行保持原值。gota 的操作返回新表，调用方持有的输入不会被改写
func ApplyFlightBudget(flights dataframe.DataFrame, pkg, startDate string, value float64) (dataframe.DataFrame, error) {
	for _, col := range []string{ColPackageName, ColStartDate, ColBudget} {
		if !utils.HasColumn(flights, col) {
			return flights, &MissingColumnError{Column: col}
		}
	}

	packages := flights.Col(ColPackageName).Records()
	startDates := flights.Col(ColStartDate).Records()
	budgets := flights.Col(ColBudget).Float()

	for i := 0; i < flights.Nrow(); i++ {
		if packages[i] == pkg && startDates[i] == startDate {
			budgets[i] = value
		}
	}

	updated := flights.Mutate(series.New(budgets, series.Float, ColBudget))
	if updated.Err != nil {
		return flights, fmt.Errorf("写回 Budget 列失败: %w", updated.Err)
	}
	return updated, nil
}

// allocation 第一阶段算出的(键 -> 单航班预算)
type allocation struct {
	pkg       string
	startDate string
	perFlight float64
}

// ReallocateBudgets 按(包名, 开始日期)分组把包级预算平均分摊到航班行
//
// packages 和 startDates 允许重复，内部先去重再遍历笛卡尔积。
// 分两阶段执行: 先为所有组合算出单航班预算，任何一个组合出错都在写入前返回，
// 因此不会出现部分更新。某组合没有航班行时:
//   - 合计预算不为零 -> 返回 DivisionByZeroError(预算会凭空消失，必须报错)
//   - 合计预算为零   -> 跳过(笛卡尔积中本来就不存在的组合)
//
// 返回更新后的新表，调用方的输入表不会被原地修改
func ReallocateBudgets(flights, budgets dataframe.DataFrame, packages, startDates []string) (dataframe.DataFrame, error) {
	for _, col := range []string{ColPackageName, ColStartDate, ColBudget} {
		if !utils.HasColumn(flights, col) {
			return flights, &MissingColumnError{Column: col}
		}
	}

	uniquePackages := uniqueStrings(packages)
	uniqueStartDates := uniqueStrings(startDates)
	idx := newDateColumnIndex(budgets, uniqueStartDates)

	// 第一阶段: 只计算，不写入
	var plan []allocation
	for _, pkg := range uniquePackages {
		for _, startDate := range uniqueStartDates {
			numFlights, err := CountFlights(flights, pkg, startDate)
			if err != nil {
				return flights, err
			}

			total, err := aggregateBudget(budgets, idx, pkg, startDate)
			if err != nil {
				return flights, err
			}

			if numFlights == 0 {
				if total != 0 {
					return flights, &DivisionByZeroError{Package: pkg, StartDate: startDate}
				}
				continue
			}

			plan = append(plan, allocation{
				pkg:       pkg,
				startDate: startDate,
				perFlight: total / float64(numFlights),
			})
		}
	}

	// 第二阶段: 逐组写入，组之间的行集合互不相交
	var err error
	for _, a := range plan {
		flights, err = ApplyFlightBudget(flights, a.pkg, a.startDate, a.perFlight)
		if err != nil {
			return flights, err
		}
	}
	return flights, nil
}

// uniqueStrings 去重并保持首次出现的顺序
func uniqueStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	var result []string
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			result = append(result, v)
		}
	}
	return result
}
