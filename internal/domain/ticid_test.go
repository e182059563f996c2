package domain

import "testing"

func TestParseTICID(t *testing.T) {
	ok := map[string]TICID{
		"12345":      "12345",
		"  12345":    "12345",
		"12345 ":     "12345",
		"007":        "7",
		"0":          "0",
		"12345.0":    "12345",
		"1.2345e4":   "12345",
		"229742722":  "229742722",
		"\t9123\r\n": "9123",
	}
	for in, want := range ok {
		got, good := ParseTICID(in)
		if !good {
			t.Fatalf("期望 %q 可解析", in)
		}
		if got != want {
			t.Fatalf("ParseTICID(%q)：期望 %q，实际 %q", in, want, got)
		}
	}

	bad := []string{"", "   ", "-5", "12.5", "abc", "12a", "NaN", "Inf", "1e300"}
	for _, in := range bad {
		if got, good := ParseTICID(in); good {
			t.Fatalf("期望 %q 被拒绝，实际得到 %q", in, got)
		}
	}
}
