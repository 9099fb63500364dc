package config

import (
	"Global_SpeedTest_Go/internal/logging"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 结构用于映射 config.yaml 文件的内容
type Config struct {
	TimeoutSeconds     float64  `yaml:"timeout_seconds" json:"timeout_seconds"`
	CooldownSeconds    float64  `yaml:"cooldown_seconds" json:"cooldown_seconds"`
	TestSize           string   `yaml:"test_size" json:"test_size"` // 100MB 或 1GB
	QuickTest          bool     `yaml:"quick_test" json:"quick_test"`
	ShowProgress       bool     `yaml:"show_progress" json:"show_progress"`
	Lang               string   `yaml:"lang" json:"lang"`
	Zone               string   `yaml:"zone" json:"zone"` // hinet / vultr / linode，空表示按默认顺序查找
	RateLimitMB        float64  `yaml:"rate_limit_mb" json:"rate_limit_mb"`
	PingCount          int      `yaml:"ping_count" json:"ping_count"`
	PingTimeoutSeconds float64  `yaml:"ping_timeout_seconds" json:"ping_timeout_seconds"`
	NetcheckTimeout    float64  `yaml:"netcheck_timeout_seconds" json:"netcheck_timeout_seconds"`
	LogLevel           string   `yaml:"log_level" json:"log_level"`
	HistoryDB          string   `yaml:"history_db" json:"history_db"`
	ServerPort         int      `yaml:"server_port" json:"server_port"`
	DefaultServers     []string `yaml:"default_servers" json:"default_servers"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		TimeoutSeconds:     30,
		CooldownSeconds:    2,
		TestSize:           "100MB",
		ShowProgress:       true,
		Lang:               "en",
		PingCount:          3,
		PingTimeoutSeconds: 10,
		NetcheckTimeout:    10,
		LogLevel:           "info",
		ServerPort:         8080,
	}
}

// ApplyDefaults 为未设置的字段填入默认值。
// cooldown_seconds 为 0 表示不等待，因此只修正负数。
func (c *Config) ApplyDefaults() {
	d := Default()
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = d.TimeoutSeconds
	}
	if c.CooldownSeconds < 0 {
		logging.Warnf("cooldown_seconds 为负数 (%v)，已调整为 0", c.CooldownSeconds)
		c.CooldownSeconds = 0
	}
	if c.TestSize == "" {
		c.TestSize = d.TestSize
	}
	if c.Lang == "" {
		c.Lang = d.Lang
	}
	if c.PingCount <= 0 {
		c.PingCount = d.PingCount
	}
	if c.PingTimeoutSeconds <= 0 {
		c.PingTimeoutSeconds = d.PingTimeoutSeconds
	}
	if c.NetcheckTimeout <= 0 {
		c.NetcheckTimeout = d.NetcheckTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.ServerPort <= 0 {
		c.ServerPort = d.ServerPort
	}
}

// Validate 检查配置中的取值
func (c *Config) Validate() error {
	var errs []error
	switch strings.ToUpper(c.TestSize) {
	case "100MB", "1GB":
	default:
		errs = append(errs, fmt.Errorf("test_size 必须是 100MB 或 1GB，当前为 %q", c.TestSize))
	}
	switch strings.ToLower(c.Zone) {
	case "", "hinet", "vultr", "linode":
	default:
		errs = append(errs, fmt.Errorf("未知的 zone: %q", c.Zone))
	}
	if c.RateLimitMB < 0 {
		errs = append(errs, fmt.Errorf("rate_limit_mb 不能为负数"))
	}
	if c.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("server_port 超出范围: %d", c.ServerPort))
	}
	return errors.Join(errs...)
}

// Timeout 返回单次下载的超时时间
func (c *Config) Timeout() time.Duration {
	return seconds(c.TimeoutSeconds)
}

// Cooldown 返回两次测试之间的等待时间
func (c *Config) Cooldown() time.Duration {
	return seconds(c.CooldownSeconds)
}

// PingTimeout 返回 ping 命令的超时时间
func (c *Config) PingTimeout() time.Duration {
	return seconds(c.PingTimeoutSeconds)
}

// ConnectivityTimeout 返回连接测试每个阶段的超时时间
func (c *Config) ConnectivityTimeout() time.Duration {
	return seconds(c.NetcheckTimeout)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Parse 解析 YAML 内容，填入默认值并校验
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig 从指定路径加载和解析 YAML 配置文件
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// SaveWithComments 只更新配置文件中已有的键，保留原有的注释和顺序
func SaveWithComments(cfgPath string, newValues map[string]interface{}) error {
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return err
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return err
	}
	if len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return fmt.Errorf("配置文件 %s 不是 YAML 映射", cfgPath)
	}

	// yaml.v3 解析出的是文档节点，需要取其内容
	docNode := root.Content[0]
	for i := 0; i+1 < len(docNode.Content); i += 2 {
		keyNode := docNode.Content[i]
		valNode := docNode.Content[i+1]
		if newValue, ok := newValues[keyNode.Value]; ok {
			setNodeValue(valNode, newValue)
		}
	}

	out, err := yaml.Marshal(&root)
	if err != nil {
		return err
	}
	// 写入前确认结果仍是合法配置
	if _, err := Parse(out); err != nil {
		return err
	}
	return os.WriteFile(cfgPath, out, 0644)
}

// setNodeValue 根据传入的值更新 yaml.Node，支持基本类型和切片
func setNodeValue(node *yaml.Node, value interface{}) {
	if slice, isSlice := value.([]interface{}); isSlice {
		node.Kind = yaml.SequenceNode
		node.Tag = "!!seq"
		node.Style = yaml.FlowStyle
		node.Value = ""
		node.Content = []*yaml.Node{}
		for _, item := range slice {
			itemNode := &yaml.Node{}
			setNodeValue(itemNode, item)
			node.Content = append(node.Content, itemNode)
		}
		return
	}

	s := fmt.Sprintf("%v", value)
	node.Value = s
	node.Kind = yaml.ScalarNode
	node.Content = nil
	node.Style = 0

	// 根据内容猜测类型标签
	if s == "true" || s == "false" {
		node.Tag = "!!bool"
	} else if _, err := strToInt(s); err == nil {
		node.Tag = "!!int"
	} else if _, err := strToFloat(s); err == nil {
		node.Tag = "!!float"
	} else {
		node.Tag = "!!str"
	}
}

func strToFloat(s string) (float64, error) {
	var f float64
	return f, json.Unmarshal([]byte(s), &f)
}

func strToInt(s string) (int, error) {
	var i int
	return i, json.Unmarshal([]byte(s), &i)
}
