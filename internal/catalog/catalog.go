package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound 表示在目录中找不到指定的服务器键值
var ErrNotFound = errors.New("server not found")

// Provider 是目录的命名空间
type Provider string

const (
	ProviderHiNet  Provider = "hinet"
	ProviderVultr  Provider = "vultr"
	ProviderLinode Provider = "linode"
)

// SearchOrder 是未指定 provider 时的查找顺序
var SearchOrder = []Provider{ProviderHiNet, ProviderVultr, ProviderLinode}

// ParseProvider 将命令行或配置中的字符串转换为 Provider，空字符串表示不限定
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return "", nil
	}
	for _, known := range SearchOrder {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("未知的 provider: %q", s)
}

// SizeClass 是下载测试文件大小
type SizeClass string

const (
	Size100MB SizeClass = "100MB"
	Size1GB   SizeClass = "1GB"
)

// ParseSizeClass 校验文件大小参数
func ParseSizeClass(s string) (SizeClass, error) {
	switch SizeClass(strings.ToUpper(strings.TrimSpace(s))) {
	case Size100MB, "":
		return Size100MB, nil
	case Size1GB:
		return Size1GB, nil
	}
	return "", fmt.Errorf("无效的文件大小 %q (可选: %s, %s)", s, Size100MB, Size1GB)
}

// DownloadKind 区分下载地址的三种来源
type DownloadKind int

const (
	// Conventional 根据 host 和文件大小拼出厂商约定的路径
	Conventional DownloadKind = iota
	// Direct 固定的单一下载地址
	Direct
	// Sized 按文件大小区分的下载地址表
	Sized
)

// DownloadSpec 描述一个服务器的下载地址
type DownloadSpec struct {
	Kind  DownloadKind
	URL   string
	Sizes map[SizeClass]string
}

// DirectURL 构造固定地址
func DirectURL(u string) DownloadSpec { return DownloadSpec{Kind: Direct, URL: u} }

// SizedURLs 构造按大小区分的地址表
func SizedURLs(sizes map[SizeClass]string) DownloadSpec {
	return DownloadSpec{Kind: Sized, Sizes: sizes}
}

// ConventionalURL 返回 http://{host}/vultr.com.{size}.bin 形式的地址
func ConventionalURL(host string, size SizeClass) string {
	if size == Size100MB {
		return fmt.Sprintf("http://%s/vultr.com.100MB.bin", host)
	}
	return fmt.Sprintf("http://%s/vultr.com.1000MB.bin", host)
}

// Resolve 根据文件大小得到最终的测试地址。
// Sized 表中缺少对应大小时退回到 100MB 的地址。
func (d DownloadSpec) Resolve(host string, size SizeClass) string {
	switch d.Kind {
	case Direct:
		return d.URL
	case Sized:
		if u, ok := d.Sizes[size]; ok {
			return u
		}
		if u, ok := d.Sizes[Size100MB]; ok {
			return u
		}
	}
	return ConventionalURL(host, size)
}

// DefaultLocale 是显示名称的回退语言
const DefaultLocale = "en"

// Entry 是目录中的一个服务器，创建后不再修改
type Entry struct {
	Key      string
	Names    map[string]string
	Host     string
	IP       string
	Download DownloadSpec
	Provider Provider
	Region   string
}

// Name 返回指定语言的显示名称，依次回退到默认语言、任意名称和键值
func (e Entry) Name(lang string) string {
	if n, ok := e.Names[lang]; ok && n != "" {
		return n
	}
	if n, ok := e.Names[DefaultLocale]; ok && n != "" {
		return n
	}
	for _, n := range e.Names {
		if n != "" {
			return n
		}
	}
	return e.Key
}

// TestURL 返回该服务器在指定大小下的下载地址
func (e Entry) TestURL(size SizeClass) string {
	return e.Download.Resolve(e.Host, size)
}

// namespace 保留目录中的插入顺序
type namespace struct {
	provider Provider
	order    []string
	entries  map[string]Entry
}

// Catalog 是只读的服务器目录，按 provider 划分命名空间
type Catalog struct {
	spaces map[Provider]*namespace
}

// New 用给定的条目构造目录。同一 provider 内键值重复会返回错误。
func New(entries []Entry) (*Catalog, error) {
	c := &Catalog{spaces: make(map[Provider]*namespace)}
	for _, e := range entries {
		if e.Key == "" || e.Host == "" {
			return nil, fmt.Errorf("目录条目缺少 key 或 host: %+v", e)
		}
		ns, ok := c.spaces[e.Provider]
		if !ok {
			ns = &namespace{provider: e.Provider, entries: make(map[string]Entry)}
			c.spaces[e.Provider] = ns
		}
		if _, dup := ns.entries[e.Key]; dup {
			return nil, fmt.Errorf("provider %s 中键值重复: %s", e.Provider, e.Key)
		}
		ns.entries[e.Key] = e
		ns.order = append(ns.order, e.Key)
	}
	return c, nil
}

// Resolve 查找服务器。hint 为空时按 SearchOrder 依次查找，
// 否则只在 hint 指定的命名空间中查找，不会回退到其他 provider。
func (c *Catalog) Resolve(key string, hint Provider) (Entry, error) {
	if hint != "" {
		if ns, ok := c.spaces[hint]; ok {
			if e, ok := ns.entries[key]; ok {
				return e, nil
			}
		}
		return Entry{}, fmt.Errorf("%w: %s (%s)", ErrNotFound, key, hint)
	}
	for _, p := range SearchOrder {
		ns, ok := c.spaces[p]
		if !ok {
			continue
		}
		if e, ok := ns.entries[key]; ok {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, key)
}

// Entries 返回某个 provider 下的全部条目，保持定义顺序
func (c *Catalog) Entries(p Provider) []Entry {
	ns, ok := c.spaces[p]
	if !ok {
		return nil
	}
	out := make([]Entry, 0, len(ns.order))
	for _, k := range ns.order {
		out = append(out, ns.entries[k])
	}
	return out
}

// Keys 返回某个 provider 下的全部键值
func (c *Catalog) Keys(p Provider) []string {
	ns, ok := c.spaces[p]
	if !ok {
		return nil
	}
	return append([]string(nil), ns.order...)
}

// AllKeys 按 SearchOrder 返回所有键值，跨 provider 重复的键值会出现多次
func (c *Catalog) AllKeys() []string {
	var keys []string
	for _, p := range SearchOrder {
		keys = append(keys, c.Keys(p)...)
	}
	return keys
}

// Regions 返回某个 provider 下出现过的区域，按首次出现排序
func (c *Catalog) Regions(p Provider) []string {
	seen := make(map[string]bool)
	var regions []string
	for _, e := range c.Entries(p) {
		if !seen[e.Region] {
			seen[e.Region] = true
			regions = append(regions, e.Region)
		}
	}
	return regions
}

// InRegion 返回某个 provider 在指定区域的键值
func (c *Catalog) InRegion(p Provider, region string) []string {
	var keys []string
	for _, e := range c.Entries(p) {
		if e.Region == region {
			keys = append(keys, e.Key)
		}
	}
	return keys
}
