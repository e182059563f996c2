package catalog

import (
	"fmt"
	"strings"
)

// Registry 是星表 Reader 的只读注册表（按格式名索引）。
type Registry struct {
	byName map[string]Reader
}

func NewRegistry(readers ...Reader) (Registry, error) {
	byName := make(map[string]Reader, len(readers))
	for _, r := range readers {
		if r == nil {
			return Registry{}, fmt.Errorf("reader 不能为空")
		}
		name := strings.ToLower(strings.TrimSpace(r.Name()))
		if name == "" {
			return Registry{}, fmt.Errorf("reader.Name 不能为空")
		}
		if _, ok := byName[name]; ok {
			return Registry{}, fmt.Errorf("重复的星表格式：%q", name)
		}
		byName[name] = r
	}
	return Registry{byName: byName}, nil
}

// DefaultRegistry 注册全部内置格式。
func DefaultRegistry() Registry {
	reg, err := NewRegistry(Justesen{}, Villanova{}, VillanovaHTML{})
	if err != nil {
		panic(err)
	}
	return reg
}

func (r Registry) Get(name string) (Reader, bool) {
	if r.byName == nil {
		return nil, false
	}
	name = strings.ToLower(strings.TrimSpace(name))
	rd, ok := r.byName[name]
	return rd, ok
}
