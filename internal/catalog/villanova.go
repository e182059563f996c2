package catalog

import (
	"encoding/csv"
	"errors"
	"io"

	"github.com/John-Robertt/ticpath/internal/domain"
)

// Villanova 列下标（固定布局，第一行为表头，直接跳过）：
// TIC ID, Signal ID, BJD0, BJD0_uncert, Period, Period_uncert, Morph, Morph_dist,
// RA, Dec, Tmag, GLon, GLat, Teff, Log g, Abundance
const (
	villanovaColID     = 0
	villanovaColPeriod = 4
	villanovaColRA     = 8
	villanovaColDec    = 9
	villanovaColTmag   = 10
)

// Villanova 解析 Villanova TESS EB 星表的 CSV 导出。
// 短行保留 TIC ID，缺失列为 NaN。
type Villanova struct{}

func (Villanova) Name() string { return "villanova" }

func (Villanova) Read(r io.Reader) ([]domain.CatalogEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	entries := make([]domain.CatalogEntry, 0, 1024)
	header := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		if header {
			header = false
			continue
		}
		id, err := parseID(field(rec, villanovaColID))
		if err != nil {
			return nil, &ParseError{Format: "villanova", Line: line, Err: err}
		}
		entries = append(entries, domain.CatalogEntry{
			ID:     id,
			Period: parseFloat(field(rec, villanovaColPeriod)),
			RA:     parseFloat(field(rec, villanovaColRA)),
			Dec:    parseFloat(field(rec, villanovaColDec)),
			Tmag:   parseFloat(field(rec, villanovaColTmag)),
			Line:   line,
		})
	}
	return entries, nil
}
