// merge.go
package processor

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"

	"AdOpsAutomation/src/utils"
)

// 合并时左右表同名列的后缀: 左表为实际投放数据，右表为素材预测数据
const (
	suffixActual     = "_actual"
	suffixPrediction = "_prediction"
)

// 合并后报表保留的列，顺序即输出顺序
var reportColumns = []string{
	"Flight ID",
	"Target Name",
	"Target ID",
	"Ad Name",
	"Package Name_actual",
	"Ad ID_actual",
	"Target Type",
	"Ad Type_actual",
	"Ad Type Name",
	"Ad Unit_actual",
	"Ad Unit Name",
	"Ad Dimensions",
	ColStartDate,
	"End Date",
	"Run Time",
	ColBudget,
	"Paused",
	"Completed",
	"Creative Name",
}

// 去掉_actual后缀还原的列
var reportRenames = map[string]string{
	"Package Name_actual": "Package Name",
	"Ad ID_actual":        "Ad ID",
	"Ad Type_actual":      "Ad Type",
	"Ad Unit_actual":      "Ad Unit",
}

// MapCreativeNameToFlights 把素材表的 Creative Name 关联到航班表
//
// 以 mergeOn 列做左连接: 左表每行按键找右表，多个匹配时逐一展开，
// 没有匹配时右表字段留空。两表同名的非键列分别加 _actual / _prediction 后缀，
// 之后只保留报表需要的列并把 _actual 后缀还原
func MapCreativeNameToFlights(df1, df2 dataframe.DataFrame, mergeOn string) (dataframe.DataFrame, error) {
	if !utils.HasColumn(df1, mergeOn) {
		return df1, &MissingColumnError{Column: mergeOn}
	}
	if !utils.HasColumn(df2, mergeOn) {
		return df2, &MissingColumnError{Column: mergeOn}
	}

	leftNames := df1.Names()
	rightNames := df2.Names()

	// 两表共有的非键列
	overlap := make(map[string]bool)
	for _, name := range rightNames {
		if name != mergeOn && utils.Contains(leftNames, name) {
			overlap[name] = true
		}
	}

	// 输出表头: 左表全部列 + 右表除键以外的列
	header := make([]string, 0, len(leftNames)+len(rightNames)-1)
	for _, name := range leftNames {
		if overlap[name] {
			name += suffixActual
		}
		header = append(header, name)
	}
	rightWidth := 0
	for _, name := range rightNames {
		if name == mergeOn {
			continue
		}
		if overlap[name] {
			name += suffixPrediction
		}
		header = append(header, name)
		rightWidth++
	}

	// 右表按键建索引
	rightKeys := df2.Col(mergeOn).Records()
	rightRows := df2.Records()[1:]
	rightIndex := make(map[string][]int, len(rightKeys))
	for i, key := range rightKeys {
		rightIndex[key] = append(rightIndex[key], i)
	}

	mergeOnPos := 0
	for i, name := range rightNames {
		if name == mergeOn {
			mergeOnPos = i
		}
	}

	leftKeys := df1.Col(mergeOn).Records()
	leftRows := df1.Records()[1:]

	out := make([][]string, 0, len(leftRows)+1)
	out = append(out, header)
	for i, leftRow := range leftRows {
		matches := rightIndex[leftKeys[i]]
		if len(matches) == 0 {
			// 左连接: 无匹配时右侧字段留空
			row := append(append([]string{}, leftRow...), make([]string, rightWidth)...)
			out = append(out, row)
			continue
		}
		for _, j := range matches {
			row := append([]string{}, leftRow...)
			for k, v := range rightRows[j] {
				if k == mergeOnPos {
					continue
				}
				row = append(row, v)
			}
			out = append(out, row)
		}
	}

	merged := dataframe.LoadRecords(out)
	if merged.Err != nil {
		return merged, fmt.Errorf("构建合并表失败: %w", merged.Err)
	}

	merged = merged.Select(reportColumns)
	if merged.Err != nil {
		return merged, fmt.Errorf("选取报表列失败: %w", merged.Err)
	}

	for old, updated := range reportRenames {
		merged = merged.Rename(updated, old)
		if merged.Err != nil {
			return merged, fmt.Errorf("还原列名 %q 失败: %w", old, merged.Err)
		}
	}
	return merged, nil
}
