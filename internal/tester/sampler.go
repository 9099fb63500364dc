package tester

import (
	"Global_SpeedTest_Go/internal/catalog"
	"time"

	"github.com/VividCortex/ewma"
)

const (
	// ChunkSize 每次读取的字节数
	ChunkSize = 8192
	// ProgressInterval 两次进度回调之间的最短间隔
	ProgressInterval = 500 * time.Millisecond

	mib = 1 << 20

	quickMinElapsed = 5 * time.Second
	quickMinBytes   = 1 * mib
	// 100MB 测试在快速模式下至少下载 10MB 或持续 10 秒
	quickHoldBytes   = 10 * mib
	quickHoldElapsed = 10 * time.Second
)

// StopReason 下载循环结束的原因
type StopReason int

const (
	Continue StopReason = iota
	StopComplete
	StopTimeout
	StopQuick
	StopEOF
)

func (r StopReason) String() string {
	switch r {
	case StopComplete:
		return "complete"
	case StopTimeout:
		return "timeout"
	case StopQuick:
		return "quick"
	case StopEOF:
		return "eof"
	}
	return "continue"
}

// Progress 是一次进度回调的数据
type Progress struct {
	Downloaded int64
	Total      int64
	Elapsed    time.Duration
	Percent    float64
	Mbps       float64 // 从开始到现在的平均速度
	WindowMbps float64 // 各回调区间速度的 EWMA，仅用于显示
}

// ProgressFunc 接收进度更新，为 nil 时不显示进度
type ProgressFunc func(Progress)

// SamplerConfig 下载采样参数
type SamplerConfig struct {
	Total      int64
	Size       catalog.SizeClass
	Quick      bool
	Timeout    time.Duration
	Interval   time.Duration
	OnProgress ProgressFunc
}

// Sampler 累计下载量并判断何时结束下载
type Sampler struct {
	cfg        SamplerConfig
	downloaded int64
	lastEmit   time.Duration
	lastBytes  int64
	window     ewma.MovingAverage
}

// NewSampler 创建采样器
func NewSampler(cfg SamplerConfig) *Sampler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Interval <= 0 {
		cfg.Interval = ProgressInterval
	}
	return &Sampler{cfg: cfg, window: ewma.NewMovingAverage()}
}

// Downloaded 返回已累计的字节数
func (s *Sampler) Downloaded() int64 { return s.downloaded }

// Add 记录一次读取，elapsed 为从测试开始到现在的时长。
// 返回 Continue 以外的值时下载应当结束。
func (s *Sampler) Add(n int, elapsed time.Duration) StopReason {
	s.downloaded += int64(n)

	if s.cfg.OnProgress != nil && elapsed-s.lastEmit >= s.cfg.Interval {
		s.emit(elapsed)
	}

	if s.downloaded >= s.cfg.Total {
		return StopComplete
	}
	if elapsed > s.cfg.Timeout {
		return StopTimeout
	}
	if s.quickStop(elapsed) {
		return StopQuick
	}
	return Continue
}

func (s *Sampler) quickStop(elapsed time.Duration) bool {
	if !s.cfg.Quick || elapsed < quickMinElapsed || s.downloaded < quickMinBytes {
		return false
	}
	if s.cfg.Size == catalog.Size100MB && s.downloaded < quickHoldBytes && elapsed < quickHoldElapsed {
		return false
	}
	return true
}

func (s *Sampler) emit(elapsed time.Duration) {
	if elapsed <= 0 {
		return
	}
	if span := elapsed - s.lastEmit; span > 0 {
		s.window.Add(ThroughputMbps(s.downloaded-s.lastBytes, span))
	}
	s.lastEmit = elapsed
	s.lastBytes = s.downloaded

	var percent float64
	if s.cfg.Total > 0 {
		percent = float64(s.downloaded) / float64(s.cfg.Total) * 100
	}
	s.cfg.OnProgress(Progress{
		Downloaded: s.downloaded,
		Total:      s.cfg.Total,
		Elapsed:    elapsed,
		Percent:    percent,
		Mbps:       ThroughputMbps(s.downloaded, elapsed),
		WindowMbps: s.window.Value(),
	})
}

// ThroughputMbps 将字节数和时长换算为 Mbps (1 Mb = 2^20 bit)
func ThroughputMbps(bytes int64, elapsed time.Duration) float64 {
	secs := elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(bytes) / secs / mib * 8
}
