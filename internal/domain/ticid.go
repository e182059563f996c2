package domain

import (
	"math"
	"strconv"
	"strings"
)

// TICID 是 TESS Input Catalog 标识符（规范化后为无前导零的十进制数字串）。
//
// 约束：两份星表与 lookup 表对同一颗星给出的写法可能不同（前导空格、"12345.0"），
// 比对前必须先规范化，否则 "_<id>.pkl" 的搜索串会悄悄失配。
type TICID string

// maxTICID 超出 float64 可精确表示的整数范围后，浮点写法不再可信。
const maxTICID = 1 << 53

// ParseTICID 解析并规范化一个 TIC ID。
//
// 接受：纯数字（允许前后空白/前导零）、整数值的浮点写法（例如 "12345.0"、"1.2345e4"）。
// 拒绝：空串、负数、非整数、非数字。
func ParseTICID(s string) (TICID, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	if isDigits(s) {
		s = strings.TrimLeft(s, "0")
		if s == "" {
			s = "0"
		}
		return TICID(s), true
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	if f < 0 || f != math.Trunc(f) || f > maxTICID {
		return "", false
	}
	return TICID(strconv.FormatInt(int64(f), 10)), true
}

func (id TICID) String() string { return string(id) }

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
