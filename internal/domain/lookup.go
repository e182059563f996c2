package domain

// LookupRow 是 sector lookup 表的一行：光变曲线文件名 -> TIC ID。
// 两个字段都按原样保留为字符串（不做数值推断）。
type LookupRow struct {
	Filename string
	ID       string
	Sector   int
}

// LookupTable 是单个 sector 的 lookup 表（行顺序与源文件一致）。
type LookupTable struct {
	Sector int
	Name   string // bucket 内的对象名，例如 sector1lookup.csv
	Rows   []LookupRow
}

// Resolution 是单个 TIC ID 的解析结果。
//
// Paths 保持“表顺序 -> 行顺序”，允许为空，也允许重复。
type Resolution struct {
	ID      TICID
	Catalog string
	Paths   []string
}
