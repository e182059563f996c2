package catalog

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/John-Robertt/ticpath/internal/domain"
)

func justesenText(rows ...string) string {
	var b strings.Builder
	for i := 0; i < JustesenHeaderLines; i++ {
		b.WriteString("# header line\n")
	}
	for _, r := range rows {
		b.WriteString(r)
		b.WriteString("\n")
	}
	return b.String()
}

func TestJustesen_Read(t *testing.T) {
	txt := justesenText(
		" 229742722 1.0876 0.1 0.2 0.003 0.4 0.5 11.20",
		"",
		"  9123   2.5     0.1 0.2 0.003 0.4 0.5 16.0",
	)

	got, err := Justesen{}.Read(strings.NewReader(txt))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 2 {
		t.Fatalf("期望 2 行，实际 %d", len(got))
	}
	if got[0].ID != "229742722" || got[0].Tmag != 11.20 || got[0].Period != 1.0876 {
		t.Fatalf("第 1 行解析不正确：%+v", got[0])
	}
	if got[0].Line != JustesenHeaderLines+1 {
		t.Fatalf("行号不正确：%d", got[0].Line)
	}
	if !math.IsNaN(got[0].RA) {
		t.Fatalf("justesen 没有坐标列，RA 应为 NaN：%v", got[0].RA)
	}
	if got[1].ID != "9123" || got[1].Line != JustesenHeaderLines+3 {
		t.Fatalf("第 2 行解析不正确：%+v", got[1])
	}
}

func TestJustesen_ShortRowFilledWithNaN(t *testing.T) {
	txt := justesenText(
		"111 1.0 0 0 0 0 0 12.0",
		"222 2.0 0 0 0 0",
		"333 3.0 0 0 0 0 0 13.0",
	)

	got, err := Justesen{}.Read(strings.NewReader(txt))
	if err != nil {
		t.Fatalf("短行不应导致错误：%v", err)
	}
	if len(got) != 3 {
		t.Fatalf("期望 3 行，实际 %d", len(got))
	}
	if got[1].ID != "222" || got[1].Period != 2.0 || !math.IsNaN(got[1].Tmag) {
		t.Fatalf("短行缺失列应为 NaN：%+v", got[1])
	}

	kept := FilterMagnitude(got, 10, 15)
	if len(kept) != 2 || kept[0].ID != "111" || kept[1].ID != "333" {
		t.Fatalf("Tmag 为 NaN 的短行应被过滤：%+v", kept)
	}
}

func TestJustesen_BadIDStillFails(t *testing.T) {
	txt := justesenText("abc 1.0 0 0 0 0 0 12.0")

	_, err := Justesen{}.Read(strings.NewReader(txt))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("期望 *ParseError，实际：%v", err)
	}
	if pe.Line != JustesenHeaderLines+1 {
		t.Fatalf("期望行号 %d，实际 %d", JustesenHeaderLines+1, pe.Line)
	}
}

func TestJustesen_CustomSkip(t *testing.T) {
	got, err := Justesen{SkipLines: 1}.Read(strings.NewReader("hdr\n5 1 1 1 1 1 1 12\n"))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 1 || got[0].ID != "5" {
		t.Fatalf("解析结果不正确：%+v", got)
	}
}

const villanovaCSV = `TIC ID,Signal ID,BJD0,BJD0_uncert,Period,Period_uncert,Morph,Morph_dist,RA,Dec,Tmag,GLon,GLat,Teff,Log g,Abundance
 12345,1,1325.1,0.001,2.5,0.0001,0.3,0.01,10.5,-20.25,12.3,200.1,-30.2,5800,4.4,0.0
9123,1,1326.1,0.001,,0.0001,0.3,0.01,11.5,-21.25,,200.1,-30.2,,,
`

func TestVillanova_Read(t *testing.T) {
	got, err := Villanova{}.Read(strings.NewReader(villanovaCSV))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 2 {
		t.Fatalf("期望 2 行，实际 %d", len(got))
	}
	e := got[0]
	if e.ID != "12345" || e.Period != 2.5 || e.RA != 10.5 || e.Dec != -20.25 || e.Tmag != 12.3 || e.Line != 2 {
		t.Fatalf("第 1 行解析不正确：%+v", e)
	}
	if !math.IsNaN(got[1].Tmag) || !math.IsNaN(got[1].Period) {
		t.Fatalf("空数值应为 NaN：%+v", got[1])
	}
}

func TestVillanova_BadID(t *testing.T) {
	in := "hdr\nnot-a-tic,1,2,3,4,5,6,7,8,9,10\n"
	_, err := Villanova{}.Read(strings.NewReader(in))
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Line != 2 {
		t.Fatalf("期望第 2 行 *ParseError，实际：%v", err)
	}
}

const villanovaHTML = `<html><body>
<table>
  <thead><tr><th>Signal</th><th>TIC ID</th><th>Period</th><th>T mag</th><th>RA</th><th>Dec</th></tr></thead>
  <tbody>
    <tr><td>1</td><td> 12345 </td><td>2.5</td><td>12.3</td><td>10.5</td><td>-20.25</td></tr>
    <tr><td>1</td><td>9123</td><td>3.5</td><td></td><td>11.5</td><td>-21.25</td></tr>
  </tbody>
</table>
<table><tr><th>TIC ID</th></tr><tr><td>999</td></tr></table>
</body></html>`

func TestVillanova_ShortRowKeepsID(t *testing.T) {
	in := "hdr\n444,1,1325.1,0.001,2.5\n12345,1,2,3,4,5,6,7,8,9,12.0\n"
	got, err := Villanova{}.Read(strings.NewReader(in))
	if err != nil {
		t.Fatalf("短行不应导致错误：%v", err)
	}
	if len(got) != 2 {
		t.Fatalf("期望 2 行，实际 %d", len(got))
	}
	e := got[0]
	if e.ID != "444" || e.Period != 2.5 || e.Line != 2 {
		t.Fatalf("短行解析不正确：%+v", e)
	}
	if !math.IsNaN(e.RA) || !math.IsNaN(e.Dec) || !math.IsNaN(e.Tmag) {
		t.Fatalf("缺失列应为 NaN：%+v", e)
	}
}

func TestVillanovaHTML_Read(t *testing.T) {
	got, err := VillanovaHTML{}.Read(strings.NewReader(villanovaHTML))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 2 {
		t.Fatalf("只应读取第一个表格，期望 2 行，实际 %d", len(got))
	}
	if got[0].ID != "12345" || got[0].Tmag != 12.3 || got[0].Period != 2.5 || got[0].Dec != -20.25 {
		t.Fatalf("第 1 行解析不正确：%+v", got[0])
	}
	if got[1].ID != "9123" || !math.IsNaN(got[1].Tmag) {
		t.Fatalf("第 2 行解析不正确：%+v", got[1])
	}
}

func TestVillanovaHTML_MissingIDColumn(t *testing.T) {
	_, err := VillanovaHTML{}.Read(strings.NewReader(`<table><tr><th>Tmag</th></tr><tr><td>1</td></tr></table>`))
	if err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
}

func TestFilterMagnitude_StrictAndNaN(t *testing.T) {
	in := []domain.CatalogEntry{
		{ID: "1", Tmag: 10},
		{ID: "2", Tmag: 10.01},
		{ID: "3", Tmag: math.NaN()},
		{ID: "4", Tmag: 14.99},
		{ID: "5", Tmag: 15},
	}
	got := FilterMagnitude(in, 10, 15)
	if len(got) != 2 || got[0].ID != "2" || got[1].ID != "4" {
		t.Fatalf("过滤结果不正确：%+v", got)
	}
}

func TestLoadFile_FilterAndSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "j.txt")
	txt := justesenText(
		"1 1 1 1 1 1 1 9.5",
		"2 1 1 1 1 1 1 11",
		"3 1 1 1 1 1 1 16",
	)
	if err := os.WriteFile(path, []byte(txt), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}

	c, err := LoadFile(DefaultRegistry(), Spec{
		Name: "justesen", Path: path, Format: "justesen",
		Filter: true, MagMin: 10, MagMax: 15,
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if c.Total != 3 || len(c.Entries) != 1 || c.Entries[0].ID != "2" {
		t.Fatalf("过滤不正确：total=%d entries=%+v", c.Total, c.Entries)
	}
	if c.Entries[0].Source != "justesen" {
		t.Fatalf("Source 未填写：%+v", c.Entries[0])
	}
}

func TestLoadFile_UnknownFormatAndMissingFile(t *testing.T) {
	if _, err := LoadFile(DefaultRegistry(), Spec{Format: "nope", Path: "x"}); err == nil {
		t.Fatalf("未知格式应报错")
	}
	_, err := LoadFile(DefaultRegistry(), Spec{Format: "villanova", Path: filepath.Join(t.TempDir(), "missing.csv")})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("期望 os.ErrNotExist，实际：%v", err)
	}
}

func TestNewRegistry_RejectsDuplicate(t *testing.T) {
	if _, err := NewRegistry(Justesen{}, Justesen{SkipLines: 3}); err == nil {
		t.Fatalf("重复注册应报错")
	}
	reg := DefaultRegistry()
	if _, ok := reg.Get(" Villanova-HTML "); !ok {
		t.Fatalf("Get 应忽略大小写与空白")
	}
}
