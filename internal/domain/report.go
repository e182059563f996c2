package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusResolved = "resolved"
	StatusMissing  = "missing"
	StatusFailed   = "failed"
)

const (
	ErrCodeConfigNotFound = "config_not_found"
	ErrCodeConfigInvalid  = "config_invalid"
	ErrCodeMountFailed    = "mount_failed"
	ErrCodeCatalogFailed  = "catalog_failed"
	ErrCodeLookupFailed   = "lookup_failed"
	ErrCodeWriteFailed    = "write_failed"
	ErrCodeCanceled       = "canceled"
)

// RunReport 是对外稳定输出（stdout JSON）的结构。
type RunReport struct {
	Path   string `json:"path"`   // bucket 描述（挂载目录 / URL / s3://）
	Output string `json:"output"` // 路径列表文件
	DryRun bool   `json:"dry_run"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary  ReportSummary    `json:"summary"`
	Catalogs []CatalogSummary `json:"catalogs"`
	Items    []ItemResult     `json:"items"`
}

type ReportSummary struct {
	IDs      int `json:"ids"`
	Resolved int `json:"resolved"`
	Missing  int `json:"missing"`
	Failed   int `json:"failed"`
	Paths    int `json:"paths"`

	// Tables/Rows 由 lookup 阶段填写，Finalize 不改动。
	Tables int `json:"tables"`
	Rows   int `json:"rows"`
}

type CatalogSummary struct {
	Name     string `json:"name"`
	Format   string `json:"format"`
	Path     string `json:"path"`
	Total    int    `json:"total"`
	Selected int    `json:"selected"`
}

type ItemResult struct {
	ID      string `json:"id"`
	Catalog string `json:"catalog"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	Paths []string `json:"paths"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) id=="" 的合成失败条目移到最后，其余条目保持解析顺序（与输出文件行序一致）
// 3) summary 的计数由 items 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		return r.Items[i].ID != "" && r.Items[j].ID == ""
	})

	s := ReportSummary{Tables: r.Summary.Tables, Rows: r.Summary.Rows}
	for _, it := range r.Items {
		if it.ID != "" {
			s.IDs++
		}
		switch it.Status {
		case StatusResolved:
			s.Resolved++
		case StatusMissing:
			s.Missing++
		case StatusFailed:
			s.Failed++
		}
		s.Paths += len(it.Paths)
	}
	r.Summary = s
}

// MarshalJSON 集中约束输出的稳定性：nil 切片输出为 []，而不是 null。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	a := Alias(r)
	if a.Catalogs == nil {
		a.Catalogs = []CatalogSummary{}
	}
	if a.Items == nil {
		a.Items = []ItemResult{}
	}
	return json.Marshal(a)
}
