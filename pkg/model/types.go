package model

import "encoding/json"

// ProbeResult 是一次批量测试中单个服务器的测试结果
// 成功时填写下载相关字段，失败时只填写 ErrorMessage
type ProbeResult struct {
	Key          string  `json:"key"`
	ResolvedName string  `json:"resolvedName"`
	Host         string  `json:"host"`
	IP           string  `json:"ip"`
	Region       string  `json:"region"`
	PingMs       float64 `json:"pingMs"` // -1 表示无法测量
	TimestampUTC string  `json:"timestampUtc"`

	DownloadMbps    float64 `json:"downloadMbps,omitempty"`
	DownloadedBytes int64   `json:"downloadedBytes,omitempty"`
	ElapsedSeconds  float64 `json:"elapsedSeconds,omitempty"`
	TestURL         string  `json:"testUrl,omitempty"`

	ErrorMessage string `json:"errorMessage,omitempty"`
	ErrorKind    string `json:"errorKind,omitempty"`
}

// Succeeded 报告该结果是否为成功的下载测试
func (r ProbeResult) Succeeded() bool {
	return r.ErrorMessage == ""
}

// MarshalJSON 让成功的结果总是带有下载字段（即使为 0），失败的结果只带 errorMessage
func (r ProbeResult) MarshalJSON() ([]byte, error) {
	type plain ProbeResult
	if !r.Succeeded() {
		return json.Marshal(plain(r))
	}
	return json.Marshal(struct {
		plain
		DownloadMbps    float64 `json:"downloadMbps"`
		DownloadedBytes int64   `json:"downloadedBytes"`
		ElapsedSeconds  float64 `json:"elapsedSeconds"`
		TestURL         string  `json:"testUrl"`
	}{plain(r), r.DownloadMbps, r.DownloadedBytes, r.ElapsedSeconds, r.TestURL})
}

// PingMeasured 报告延迟是否测量成功
func (r ProbeResult) PingMeasured() bool {
	return r.PingMs >= 0
}

// ConnectivityResult 包含一次 DNS/TCP/HTTP 连接测试的结果
type ConnectivityResult struct {
	Label        string  `json:"label"`
	Host         string  `json:"host"`
	IP           string  `json:"ip,omitempty"`
	Region       string  `json:"region"`
	Success      bool    `json:"success"`
	DNSMs        float64 `json:"dnsMs"`
	TCPMs        float64 `json:"tcpMs"`
	HTTPMs       float64 `json:"httpMs"`
	TotalMs      float64 `json:"totalMs"`
	Score        int     `json:"score"`
	ErrorMessage string  `json:"errorMessage,omitempty"`
	HTTPError    string  `json:"httpError,omitempty"` // HTTP 阶段失败不影响 DNS/TCP 结果
}

// RegionStat 是按区域聚合后的统计数据
type RegionStat struct {
	Region            string  `json:"region"`
	Count             int     `json:"count"`
	AvgPingMs         float64 `json:"avgPingMs"` // 仅统计测量成功的延迟
	PingSamples       int     `json:"pingSamples"`
	AvgElapsedSeconds float64 `json:"avgElapsedSeconds"`
	AvgMbps           float64 `json:"avgMbps"`
	AvgLatencyMs      float64 `json:"avgLatencyMs,omitempty"` // 连接测试的平均总延迟
}
