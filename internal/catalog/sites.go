package catalog

import (
	"fmt"
	"strings"
)

// Site 是连接测试使用的站点
type Site struct {
	Label  string
	Host   string
	Region string
}

// 连接测试的区域使用展示用的名称，与速度测试的区域标签不同
var globalSites = []Site{
	{"Taipei, Taiwan", "www.gov.tw", "Asia"},
	{"Tokyo, Japan", "www.yahoo.co.jp", "Asia"},
	{"Seoul, South Korea", "www.naver.com", "Asia"},
	{"Singapore", "www.straitstimes.com", "Asia"},
	{"Hong Kong, China", "www.scmp.com", "Asia"},
	{"Kuala Lumpur, Malaysia", "www.thestar.com.my", "Asia"},
	{"Sydney, Australia", "www.abc.net.au", "Oceania"},
	{"London, UK", "www.bbc.com", "Europe"},
	{"Frankfurt, Germany", "www.spiegel.de", "Europe"},
	{"New York, US", "www.nytimes.com", "North America"},
	{"Los Angeles, US", "www.latimes.com", "North America"},
}

var siteRegions = map[string]string{
	RegionAsia:         "Asia",
	RegionEurope:       "Europe",
	RegionNorthAmerica: "North America",
	RegionSouthAmerica: "South America",
	RegionAfrica:       "Africa",
	RegionOceania:      "Oceania",
}

// SiteKind 选择连接测试的站点集合
type SiteKind string

const (
	SitesGlobal SiteKind = "global"
	SitesVultr  SiteKind = "vultr"
	SitesAll    SiteKind = "all"
)

// Sites 返回连接测试站点。vultr 站点由目录中的 Vultr 条目生成。
func (c *Catalog) Sites(kind SiteKind) ([]Site, error) {
	var vultrSites []Site
	for _, e := range c.Entries(ProviderVultr) {
		vultrSites = append(vultrSites, Site{
			Label:  e.Name(DefaultLocale) + " (Vultr)",
			Host:   e.Host,
			Region: siteRegions[e.Region],
		})
	}

	switch kind {
	case SitesGlobal:
		return append([]Site(nil), globalSites...), nil
	case SitesVultr:
		return vultrSites, nil
	case SitesAll, "":
		out := append([]Site(nil), globalSites...)
		return append(out, vultrSites...), nil
	}
	return nil, fmt.Errorf("未知的站点类型: %q", kind)
}

// FilterSites 只保留指定区域的站点，region 为空时原样返回。
// region 可以是展示名称（Asia）也可以是区域标签（asia）。
func FilterSites(sites []Site, region string) []Site {
	if region == "" {
		return sites
	}
	want := region
	if name, ok := siteRegions[strings.ToLower(region)]; ok {
		want = name
	}
	var out []Site
	for _, s := range sites {
		if strings.EqualFold(s.Region, want) {
			out = append(out, s)
		}
	}
	return out
}
