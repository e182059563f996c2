package catalog

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/ticpath/internal/domain"
)

// VillanovaHTML 解析 Villanova TESS EB 网站的 HTML 表格导出。
//
// 与 CSV 版不同，HTML 版的列顺序随站点改版漂移，因此按表头名称定位列，而不是按下标。
// 只读取文档中的第一个 <table>。
type VillanovaHTML struct{}

func (VillanovaHTML) Name() string { return "villanova-html" }

var htmlHeaderAliases = map[string]string{
	"tic id": "id",
	"tic":    "id",
	"ticid":  "id",
	"tic_id": "id",
	"tmag":   "tmag",
	"t mag":  "tmag",
	"period": "period",
	"ra":     "ra",
	"dec":    "dec",
}

func (VillanovaHTML) Read(r io.Reader) ([]domain.CatalogEntry, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, errors.New("HTML 中没有 <table>")
	}

	rows := table.Find("tr")
	cols := map[string]int{}
	headerSeen := false
	entries := make([]domain.CatalogEntry, 0, rows.Length())

	for i := 0; i < rows.Length(); i++ {
		tr := rows.Eq(i)

		if !headerSeen {
			ths := tr.Find("th")
			if ths.Length() == 0 {
				continue
			}
			ths.Each(func(idx int, th *goquery.Selection) {
				key, ok := htmlHeaderAliases[normHeader(th.Text())]
				if !ok {
					return
				}
				if _, dup := cols[key]; !dup {
					cols[key] = idx
				}
			})
			if _, ok := cols["id"]; !ok {
				return nil, errors.New("HTML 表头缺少 TIC ID 列")
			}
			headerSeen = true
			continue
		}

		tds := tr.Find("td")
		if tds.Length() == 0 {
			continue
		}
		cells := make([]string, tds.Length())
		tds.Each(func(idx int, td *goquery.Selection) {
			cells[idx] = strings.TrimSpace(td.Text())
		})

		line := i + 1
		idCol := cols["id"]
		if idCol >= len(cells) {
			return nil, &ParseError{Format: "villanova-html", Line: line, Err: fmt.Errorf("缺少第 %d 列", idCol+1)}
		}
		id, err := parseID(cells[idCol])
		if err != nil {
			return nil, &ParseError{Format: "villanova-html", Line: line, Err: err}
		}

		entries = append(entries, domain.CatalogEntry{
			ID:     id,
			Tmag:   cell(cells, cols, "tmag"),
			Period: cell(cells, cols, "period"),
			RA:     cell(cells, cols, "ra"),
			Dec:    cell(cells, cols, "dec"),
			Line:   line,
		})
	}

	if !headerSeen {
		return nil, errors.New("HTML 表格没有表头行（<th>）")
	}
	return entries, nil
}

func cell(cells []string, cols map[string]int, key string) float64 {
	idx, ok := cols[key]
	if !ok || idx >= len(cells) {
		return nan()
	}
	return parseFloat(cells[idx])
}

func normHeader(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
