package catalog

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/John-Robertt/ticpath/internal/domain"
)

// Reader 把“星表文件格式的差异”限制在 catalog 包内部；核心流程只依赖 []CatalogEntry。
//
// 约束：
// - Read 只解析，不过滤（星等过滤由 FilterMagnitude 统一完成）
// - 数值字段解析失败记为 NaN；只有 TIC ID 解析失败才返回 *ParseError
type Reader interface {
	Name() string
	Read(r io.Reader) ([]domain.CatalogEntry, error)
}

// ParseError 是某一行无法解析时的可定位错误。
type ParseError struct {
	Format string
	Line   int
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s 第 %d 行解析失败：%v", e.Format, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Spec 描述一份要加载的星表（由 config 生成）。
type Spec struct {
	Name   string
	Path   string
	Format string

	// Filter=false 时不做星等过滤；否则保留 MagMin < Tmag < MagMax 的条目。
	Filter bool
	MagMin float64
	MagMax float64
}

// LoadFile 按 spec 读取、解析并过滤一份星表。
func LoadFile(reg Registry, spec Spec) (domain.Catalog, error) {
	rd, ok := reg.Get(spec.Format)
	if !ok {
		return domain.Catalog{}, fmt.Errorf("未知星表格式：%q", spec.Format)
	}

	f, err := os.Open(spec.Path)
	if err != nil {
		return domain.Catalog{}, err
	}
	defer f.Close()

	entries, err := rd.Read(f)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("读取星表 %q 失败：%w", spec.Path, err)
	}
	for i := range entries {
		entries[i].Source = spec.Name
	}

	total := len(entries)
	if spec.Filter {
		entries = FilterMagnitude(entries, spec.MagMin, spec.MagMax)
	}

	return domain.Catalog{
		Name:    spec.Name,
		Format:  rd.Name(),
		Path:    spec.Path,
		Total:   total,
		Entries: entries,
	}, nil
}

// FilterMagnitude 保留 min < Tmag < max 的条目（严格不等；NaN 一律排除），顺序不变。
func FilterMagnitude(entries []domain.CatalogEntry, min, max float64) []domain.CatalogEntry {
	out := make([]domain.CatalogEntry, 0, len(entries))
	for _, e := range entries {
		if e.Tmag > min && e.Tmag < max {
			out = append(out, e)
		}
	}
	return out
}

// parseFloat 宽松解析数值：空串/非法值记为 NaN。
func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func nan() float64 { return math.NaN() }

// field 返回第 i 列；越界时返回空串（parseFloat 视为 NaN）。
func field(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}

func parseID(s string) (domain.TICID, error) {
	id, ok := domain.ParseTICID(s)
	if !ok {
		return "", fmt.Errorf("非法 TIC ID：%q", strings.TrimSpace(s))
	}
	return id, nil
}
