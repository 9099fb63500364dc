package catalog

import "fmt"

// 区域标签
const (
	RegionTaiwan       = "taiwan"
	RegionAsia         = "asia"
	RegionEurope       = "europe"
	RegionNorthAmerica = "north_america"
	RegionSouthAmerica = "south_america"
	RegionAfrica       = "africa"
	RegionOceania      = "oceania"
)

// DefaultSet 是推荐的测试组合
var DefaultSet = []string{"hinet_250m", "tokyo", "singapore", "new_york", "paris", "sydney"}

func names(en, zh string) map[string]string {
	return map[string]string{"en": en, "zh": zh}
}

func vultr(key, region, host, ip, en, zh string) Entry {
	return Entry{
		Key:      key,
		Names:    names(en, zh),
		Host:     host,
		IP:       ip,
		Provider: ProviderVultr,
		Region:   region,
	}
}

// linode 的测试文件位于 speedtest.{dc}.linode.com/{size}-{dc}.bin
func linode(key, region, dc, en, zh string) Entry {
	host := fmt.Sprintf("speedtest.%s.linode.com", dc)
	return Entry{
		Key:   key,
		Names: names(en+" (Linode)", zh+" (Linode)"),
		Host:  host,
		Download: SizedURLs(map[SizeClass]string{
			Size100MB: fmt.Sprintf("http://%s/100MB-%s.bin", host, dc),
			Size1GB:   fmt.Sprintf("http://%s/1000MB-%s.bin", host, dc),
		}),
		Provider: ProviderLinode,
		Region:   region,
	}
}

var hinetServers = []Entry{
	{
		Key:      "hinet_250m",
		Names:    names("Taiwan HiNet (250MB)", "台湾-HiNet (250MB)"),
		Host:     "http.speed.hinet.net",
		Download: DirectURL("http://http.speed.hinet.net/test_250m.zip"),
		Provider: ProviderHiNet,
		Region:   RegionTaiwan,
	},
	{
		Key:      "hinet_2g",
		Names:    names("Taiwan HiNet (2GB)", "台湾-HiNet (2GB)"),
		Host:     "http.speed.hinet.net",
		Download: DirectURL("http://http.speed.hinet.net/test_2048m.zip"),
		Provider: ProviderHiNet,
		Region:   RegionTaiwan,
	},
}

var vultrServers = []Entry{
	vultr("tokyo", RegionAsia, "hnd-jp-ping.vultr.com", "108.61.201.151", "Tokyo, Japan", "日本-东京"),
	vultr("osaka", RegionAsia, "osk-jp-ping.vultr.com", "64.176.34.94", "Osaka, Japan", "日本-大阪"),
	vultr("seoul", RegionAsia, "sel-kor-ping.vultr.com", "141.164.34.61", "Seoul, South Korea", "韩国-首尔"),
	vultr("singapore", RegionAsia, "sgp-ping.vultr.com", "45.32.100.168", "Singapore", "新加坡"),
	vultr("bangalore", RegionAsia, "blr-in-ping.vultr.com", "139.84.130.100", "Bangalore, India", "印度-班加罗尔"),
	vultr("delhi", RegionAsia, "del-in-ping.vultr.com", "139.84.162.104", "Delhi NCR, India", "印度-德里NCR"),
	vultr("mumbai", RegionAsia, "bom-in-ping.vultr.com", "65.20.66.100", "Mumbai, India", "印度-孟买"),
	vultr("tel_aviv", RegionAsia, "tlv-il-ping.vultr.com", "64.176.162.16", "Tel Aviv, Israel", "以色列-特拉维夫"),

	vultr("london", RegionEurope, "lon-gb-ping.vultr.com", "108.61.196.101", "London, UK", "英国-伦敦"),
	vultr("manchester", RegionEurope, "man-uk-ping.vultr.com", "64.176.178.136", "Manchester, UK", "英国-曼彻斯特"),
	vultr("frankfurt", RegionEurope, "fra-de-ping.vultr.com", "108.61.210.117", "Frankfurt, Germany", "德国-法兰克福"),
	vultr("paris", RegionEurope, "par-fr-ping.vultr.com", "108.61.209.127", "Paris, France", "法国-巴黎"),
	vultr("amsterdam", RegionEurope, "ams-nl-ping.vultr.com", "108.61.198.102", "Amsterdam, Netherlands", "荷兰-阿姆斯特丹"),
	vultr("warsaw", RegionEurope, "waw-pl-ping.vultr.com", "70.34.242.24", "Warsaw, Poland", "波兰-华沙"),
	vultr("stockholm", RegionEurope, "sto-se-ping.vultr.com", "70.34.194.86", "Stockholm, Sweden", "瑞典-斯德哥尔摩"),
	vultr("madrid", RegionEurope, "mad-es-ping.vultr.com", "208.76.222.30", "Madrid, Spain", "西班牙-马德里"),

	vultr("atlanta", RegionNorthAmerica, "ga-us-ping.vultr.com", "108.61.193.166", "Atlanta, US", "美国-亚特兰大"),
	vultr("chicago", RegionNorthAmerica, "il-us-ping.vultr.com", "107.191.51.12", "Chicago, US", "美国-芝加哥"),
	vultr("dallas", RegionNorthAmerica, "tx-us-ping.vultr.com", "108.61.224.175", "Dallas, US", "美国-达拉斯"),
	vultr("honolulu", RegionNorthAmerica, "hon-hi-us-ping.vultr.com", "208.72.154.76", "Honolulu, US", "美国-火奴鲁鲁"),
	vultr("los_angeles", RegionNorthAmerica, "lax-ca-us-ping.vultr.com", "108.61.219.200", "Los Angeles, US", "美国-洛杉矶"),
	vultr("miami", RegionNorthAmerica, "fl-us-ping.vultr.com", "104.156.244.232", "Miami, US", "美国-迈阿密"),
	vultr("new_york", RegionNorthAmerica, "nj-us-ping.vultr.com", "108.61.149.182", "New York (NJ), US", "美国-纽约"),
	vultr("seattle", RegionNorthAmerica, "wa-us-ping.vultr.com", "108.61.194.105", "Seattle, US", "美国-西雅图"),
	vultr("silicon_valley", RegionNorthAmerica, "sjo-ca-us-ping.vultr.com", "104.156.230.107", "Silicon Valley, US", "美国-硅谷"),
	vultr("toronto", RegionNorthAmerica, "tor-ca-ping.vultr.com", "149.248.50.81", "Toronto, Canada", "加拿大-多伦多"),
	vultr("mexico_city", RegionNorthAmerica, "mex-mx-ping.vultr.com", "216.238.66.16", "Mexico City, Mexico", "墨西哥-墨西哥城"),

	vultr("sao_paulo", RegionSouthAmerica, "sao-br-ping.vultr.com", "216.238.98.118", "São Paulo, Brazil", "巴西-圣保罗"),
	vultr("santiago", RegionSouthAmerica, "scl-cl-ping.vultr.com", "64.176.2.7", "Santiago, Chile", "智利-圣地亚哥"),

	vultr("johannesburg", RegionAfrica, "jnb-za-ping.vultr.com", "139.84.226.78", "Johannesburg, South Africa", "南非-约翰内斯堡"),

	vultr("melbourne", RegionOceania, "mel-au-ping.vultr.com", "67.219.110.24", "Melbourne, Australia", "澳大利亚-墨尔本"),
	vultr("sydney", RegionOceania, "syd-au-ping.vultr.com", "108.61.212.117", "Sydney, Australia", "澳大利亚-悉尼"),
}

var linodeServers = []Entry{
	linode("tokyo", RegionAsia, "tokyo2", "Tokyo, Japan", "日本-东京"),
	linode("singapore", RegionAsia, "singapore", "Singapore", "新加坡"),
	linode("mumbai", RegionAsia, "mumbai1", "Mumbai, India", "印度-孟买"),
	linode("london", RegionEurope, "london", "London, UK", "英国-伦敦"),
	linode("frankfurt", RegionEurope, "frankfurt", "Frankfurt, Germany", "德国-法兰克福"),
	linode("newark", RegionNorthAmerica, "newark", "Newark, US", "美国-纽瓦克"),
	linode("atlanta", RegionNorthAmerica, "atlanta", "Atlanta, US", "美国-亚特兰大"),
	linode("dallas", RegionNorthAmerica, "dallas", "Dallas, US", "美国-达拉斯"),
	linode("fremont", RegionNorthAmerica, "fremont", "Fremont, US", "美国-弗里蒙特"),
	linode("toronto", RegionNorthAmerica, "toronto1", "Toronto, Canada", "加拿大-多伦多"),
	linode("sydney", RegionOceania, "syd1", "Sydney, Australia", "澳大利亚-悉尼"),
}

// Builtin 返回编译进程序的服务器目录
func Builtin() *Catalog {
	entries := make([]Entry, 0, len(hinetServers)+len(vultrServers)+len(linodeServers))
	entries = append(entries, hinetServers...)
	entries = append(entries, vultrServers...)
	entries = append(entries, linodeServers...)
	c, err := New(entries)
	if err != nil {
		// 内置表在编译期固定，出错只可能是表本身写错
		panic(err)
	}
	return c
}
