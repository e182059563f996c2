package domain

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestRunReport_Finalize_OrderAndSummaryAndUTC(t *testing.T) {
	r := RunReport{
		Path:       "/abs/tesslcs",
		StartedAt:  time.Date(2026, 2, 9, 10, 0, 0, 0, time.FixedZone("X", 8*3600)),
		FinishedAt: time.Date(2026, 2, 9, 10, 0, 1, 0, time.FixedZone("X", 8*3600)),
		Summary:    ReportSummary{Tables: 26, Rows: 1000},
		Items: []ItemResult{
			{ID: "9123", Status: StatusResolved, Paths: []string{"a_9123.pkl", "b_9123.pkl"}},
			{ID: "", Status: StatusFailed}, // 合成失败项
			{ID: "123", Status: StatusMissing, Paths: []string{}},
			{ID: "77", Status: StatusResolved, Paths: []string{"c_77.pkl"}},
		},
	}

	r.Finalize()

	// 解析顺序必须保留（与输出文件行序一致）；id=="" 排在最后。
	got := []string{r.Items[0].ID, r.Items[1].ID, r.Items[2].ID, r.Items[3].ID}
	want := []string{"9123", "123", "77", ""}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("items 排序不符合契约：got=%v want=%v", got, want)
		}
	}

	s := r.Summary
	if s.IDs != 3 || s.Resolved != 2 || s.Missing != 1 || s.Failed != 1 || s.Paths != 3 {
		t.Fatalf("summary 统计不正确：%+v", s)
	}
	if s.Tables != 26 || s.Rows != 1000 {
		t.Fatalf("Finalize 不应改动 tables/rows：%+v", s)
	}

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	if !bytes.Contains(b, []byte("\"started_at\":\"2026-02-09T02:00:00Z\"")) {
		t.Fatalf("started_at 不是 UTC RFC3339：%s", string(b))
	}
}

func TestRunReport_MarshalJSON_EmptySlices(t *testing.T) {
	b, err := json.Marshal(RunReport{})
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	if !bytes.Contains(b, []byte(`"items":[]`)) || !bytes.Contains(b, []byte(`"catalogs":[]`)) {
		t.Fatalf("空切片应输出为 []：%s", string(b))
	}
}
