package domain

// CatalogEntry 是星表中的一行（只读，加载一次）。
//
// 数值字段缺失或无法解析时为 NaN；NaN 永远不会通过星等过滤。
type CatalogEntry struct {
	ID     TICID
	Tmag   float64
	Period float64
	RA     float64
	Dec    float64

	Source string // 星表名称（配置中的 name）
	Line   int    // 源文件中的行号（从 1 开始），用于定位坏数据
}

// Catalog 是一份已加载并过滤后的星表。
type Catalog struct {
	Name   string
	Format string
	Path   string

	// Total 是过滤前的条目数；len(Entries) 是过滤后的条目数。
	Total   int
	Entries []CatalogEntry
}
