package catalog

import (
	"bufio"
	"io"
	"strings"

	"github.com/John-Robertt/ticpath/internal/domain"
)

// JustesenHeaderLines 是 Justesen & Albrecht table 2 机器可读版的表头行数。
const JustesenHeaderLines = 21

// Justesen 解析 Justesen & Albrecht (2021) table 2 的空格分隔文本。
//
// 列（固定）：TIC ID, Period, t1, t2, ecosw, d1, d2, Tmag。
// 行首空白与列间多个空格都被容忍；空行跳过；列数不足时缺失列为 NaN。
type Justesen struct {
	// SkipLines 为 0 时使用 JustesenHeaderLines。
	SkipLines int
}

func (Justesen) Name() string { return "justesen" }

func (j Justesen) Read(r io.Reader) ([]domain.CatalogEntry, error) {
	skip := j.SkipLines
	if skip <= 0 {
		skip = JustesenHeaderLines
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	entries := make([]domain.CatalogEntry, 0, 1024)
	line := 0
	for sc.Scan() {
		line++
		if line <= skip {
			continue
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		id, err := parseID(fields[0])
		if err != nil {
			return nil, &ParseError{Format: "justesen", Line: line, Err: err}
		}
		// 缺失的尾部列按 NaN 处理。
		entries = append(entries, domain.CatalogEntry{
			ID:     id,
			Period: parseFloat(field(fields, 1)),
			Tmag:   parseFloat(field(fields, 7)),
			RA:     nan(),
			Dec:    nan(),
			Line:   line,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
