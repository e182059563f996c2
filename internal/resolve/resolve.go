// Package resolve 把 TIC ID 映射到 bucket 内的光变曲线文件路径。
//
// 对每个 ID，按“表顺序 -> 行顺序”线性扫描所有 lookup 表，
// 收集文件名中包含搜索串的全部行。不建索引、不去重、不缓存。
package resolve

import (
	"strings"

	"github.com/John-Robertt/ticpath/internal/domain"
)

// SearchToken 返回用于匹配文件名的搜索串："_" + id + ".pkl"。
//
// 前缀 "_" 与后缀 ".pkl" 把 ID 两端都钉住：123 不会匹配到 ..._9123.pkl，也不会匹配到 ..._1234.pkl。
func SearchToken(id domain.TICID) string {
	return "_" + string(id) + ".pkl"
}

// Resolve 返回 id 在所有 lookup 表中的全部匹配文件名（可能为空，可能重复）。
// 未命中不是错误：返回空切片（非 nil）。
func Resolve(id domain.TICID, tables []domain.LookupTable) []string {
	out := []string{}
	if id == "" {
		return out
	}
	token := SearchToken(id)
	for i := range tables {
		rows := tables[i].Rows
		for j := range rows {
			if strings.Contains(rows[j].Filename, token) {
				out = append(out, rows[j].Filename)
			}
		}
	}
	return out
}

// Resolver 对一组星表逐条解析，并可选地回报进度。
type Resolver struct {
	Tables []domain.LookupTable

	// OnProgress 在每个 ID 解析完成后调用（done 从 1 开始，按星表分别计数）。
	OnProgress func(catalog string, done, total int)
}

// All 按“星表顺序 -> 条目顺序”解析全部 ID。
//
// 返回：每个 ID 的解析结果，以及拼接后的路径列表。
// 不变量：len(paths) == Σ len(res[i].Paths)。
func (r Resolver) All(catalogs []domain.Catalog) (res []domain.Resolution, paths []string) {
	n := 0
	for i := range catalogs {
		n += len(catalogs[i].Entries)
	}
	res = make([]domain.Resolution, 0, n)
	paths = []string{}

	for i := range catalogs {
		c := catalogs[i]
		total := len(c.Entries)
		for j, e := range c.Entries {
			ps := Resolve(e.ID, r.Tables)
			res = append(res, domain.Resolution{
				ID:      e.ID,
				Catalog: c.Name,
				Paths:   ps,
			})
			paths = append(paths, ps...)

			if r.OnProgress != nil {
				r.OnProgress(c.Name, j+1, total)
			}
		}
	}
	return res, paths
}
