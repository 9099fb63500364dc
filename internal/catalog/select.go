package catalog

import "fmt"

// Selection 描述要测试哪些服务器，各项可以组合使用
type Selection struct {
	Keys     []string
	Default  bool
	All      bool
	Region   string
	Provider Provider // 限定 All 和 Region 的范围，空表示全部
	Defaults []string // 覆盖 DefaultSet
}

// Select 根据 Selection 生成去重后的键值列表，保持给出的顺序。
// 什么都没有指定时使用默认组合。
func (c *Catalog) Select(sel Selection) ([]string, error) {
	providers := SearchOrder
	if sel.Provider != "" {
		providers = []Provider{sel.Provider}
	}
	defaults := sel.Defaults
	if len(defaults) == 0 {
		defaults = DefaultSet
	}

	var keys []string
	seen := make(map[string]bool)
	add := func(items ...string) {
		for _, k := range items {
			if k != "" && !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}

	add(sel.Keys...)
	if sel.Default {
		add(defaults...)
	}
	if sel.All {
		for _, p := range providers {
			add(c.Keys(p)...)
		}
	}
	if sel.Region != "" {
		before := len(keys)
		for _, p := range providers {
			add(c.InRegion(p, sel.Region)...)
		}
		if len(keys) == before && !sel.All {
			return nil, fmt.Errorf("区域 %q 中没有服务器", sel.Region)
		}
	}

	if len(keys) == 0 {
		add(defaults...)
	}
	return keys, nil
}
