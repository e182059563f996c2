// Package lookup 读取 bucket 中按 sector 划分的 lookup 表（filename -> TIC ID）。
package lookup

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/John-Robertt/ticpath/internal/domain"
)

const (
	// DefaultPattern 是 lookup 表对象名的默认模板（%d 为 sector 号）。
	DefaultPattern = "sector%dlookup.csv"
	// DefaultFrom/DefaultTo 是默认的 sector 范围（闭区间）。
	DefaultFrom = 1
	DefaultTo   = 26
)

// 列布局（固定，第一行为表头，直接跳过）：filename, RA, dec, TIC ID, sector, camera, CCD, mag。
// 只保留 filename 与 TIC ID；只有 filename 是必需的，缺少 TIC ID 列时 ID 为空。
const (
	colFilename = 0
	colID       = 3
)

// Opener 是读取 lookup 表所需的最小能力（bucket.Store 满足该接口）。
type Opener interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// ParseError 是 lookup 表某一行无法解析时的可定位错误。
type ParseError struct {
	Name string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("lookup 表 %s 第 %d 行解析失败：%v", e.Name, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Read 解析单个 sector 的 lookup 表。字段按原样保留为字符串。
func Read(r io.Reader, sector int, name string) (domain.LookupTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	t := domain.LookupTable{
		Sector: sector,
		Name:   name,
		Rows:   make([]domain.LookupRow, 0, 4096),
	}

	header := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.LookupTable{}, fmt.Errorf("lookup 表 %s：%w", name, err)
		}
		if header {
			header = false
			continue
		}
		if strings.TrimSpace(rec[colFilename]) == "" {
			line, _ := cr.FieldPos(0)
			return domain.LookupTable{}, &ParseError{Name: name, Line: line, Err: errors.New("filename 为空")}
		}
		row := domain.LookupRow{Filename: rec[colFilename], Sector: sector}
		if colID < len(rec) {
			row.ID = rec[colID]
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ObjectName 按模板生成 sector 的对象名；pattern 为空时使用 DefaultPattern。
func ObjectName(pattern string, sector int) string {
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultPattern
	}
	return fmt.Sprintf(pattern, sector)
}

// Sectors 返回闭区间 [from, to] 内的 sector 号；from > to 时返回空。
func Sectors(from, to int) []int {
	if from > to {
		return []int{}
	}
	out := make([]int, 0, to-from+1)
	for s := from; s <= to; s++ {
		out = append(out, s)
	}
	return out
}

// PatternRE 把对象名模板编译为匹配正则（%d 捕获 sector 号）。
func PatternRE(pattern string) (*regexp.Regexp, error) {
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultPattern
	}
	if strings.Count(pattern, "%d") != 1 {
		return nil, fmt.Errorf("lookup 模板必须恰好包含一个 %%d：%q", pattern)
	}
	parts := strings.SplitN(pattern, "%d", 2)
	return regexp.Compile("^" + regexp.QuoteMeta(parts[0]) + `([0-9]+)` + regexp.QuoteMeta(parts[1]) + "$")
}

// Discover 从 bucket 的对象名列表中提取 sector 号（升序、去重）。
func Discover(pattern string, names []string) ([]int, error) {
	re, err := PatternRE(pattern)
	if err != nil {
		return nil, err
	}
	seen := map[int]struct{}{}
	out := make([]int, 0, 32)
	for _, n := range names {
		m := re.FindStringSubmatch(strings.TrimSpace(n))
		if len(m) != 2 {
			continue
		}
		s, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Ints(out)
	return out, nil
}

// LoadAll 按 sector 顺序逐个加载 lookup 表（串行）。
// 任一表失败即中止，错误中带对象名。onTable 可为 nil。
func LoadAll(ctx context.Context, src Opener, sectors []int, pattern string, onTable func(idx, total int, t domain.LookupTable)) ([]domain.LookupTable, error) {
	tables := make([]domain.LookupTable, 0, len(sectors))
	for i, s := range sectors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := ObjectName(pattern, s)
		t, err := load(ctx, src, s, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
		if onTable != nil {
			onTable(i+1, len(sectors), t)
		}
	}
	return tables, nil
}

func load(ctx context.Context, src Opener, sector int, name string) (domain.LookupTable, error) {
	rc, err := src.Open(ctx, name)
	if err != nil {
		return domain.LookupTable{}, fmt.Errorf("打开 lookup 表 %s 失败：%w", name, err)
	}
	defer rc.Close()
	return Read(rc, sector, name)
}
