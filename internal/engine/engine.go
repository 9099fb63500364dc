package engine

import (
	"Global_SpeedTest_Go/internal/catalog"
	"Global_SpeedTest_Go/internal/config"
	"Global_SpeedTest_Go/internal/logging"
	"Global_SpeedTest_Go/internal/tester"
	"Global_SpeedTest_Go/pkg/model"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNoTestsCompleted 表示在完成任何测试之前就被中断
var ErrNoTestsCompleted = errors.New("no tests completed")

// NotFoundMessage 是目录中找不到服务器时写入结果的错误信息
const NotFoundMessage = "server not found"

// InterruptedError 表示批量测试被中断，已完成的结果仍保留在 Batch 中
type InterruptedError struct {
	Completed int
	Total     int
}

func (e *InterruptedError) Error() string {
	if e.Completed == 0 {
		return fmt.Sprintf("interrupted: %v", ErrNoTestsCompleted)
	}
	return fmt.Sprintf("interrupted: %d/%d completed", e.Completed, e.Total)
}

// Is 让 errors.Is 可以匹配 tester.ErrInterrupted 和 ErrNoTestsCompleted
func (e *InterruptedError) Is(target error) bool {
	switch target {
	case tester.ErrInterrupted:
		return true
	case ErrNoTestsCompleted:
		return e.Completed == 0
	}
	return false
}

// EventKind 是进度事件的类型
type EventKind int

const (
	EventStart EventKind = iota
	EventProgress
	EventResult
)

// Event 是批量测试过程中的一次进度通知
type Event struct {
	Kind  EventKind
	Index int // 从 0 开始
	Total int
	Key   string
	Name  string
	Host  string

	Progress     tester.Progress
	Result       *model.ProbeResult
	Connectivity *model.ConnectivityResult
}

// ProgressCallback 是一个用于报告进度的回调函数类型
type ProgressCallback func(Event)

// LatencyProber 测量到主机的平均延迟
type LatencyProber interface {
	Measure(ctx context.Context, host string) (float64, error)
}

// DownloadProber 执行一次下载测速
type DownloadProber interface {
	Measure(ctx context.Context, req tester.DownloadRequest) (*tester.DownloadOutcome, error)
}

// ConnectivityProber 测量 DNS/TCP/HTTP 连接耗时
type ConnectivityProber interface {
	Probe(ctx context.Context, host string) (model.ConnectivityResult, error)
}

// Options 是 Runner 的配置
type Options struct {
	Catalog    *catalog.Catalog
	Size       catalog.SizeClass
	Quick      bool
	Cooldown   time.Duration
	Hint       catalog.Provider
	Locale     string
	OnProgress ProgressCallback
	Now        func() time.Time
}

// Batch 是一次批量测试的结果，Results 按测试顺序排列
type Batch struct {
	RunID       string              `json:"runId"`
	Total       int                 `json:"total"`
	StartedAt   time.Time           `json:"startedAt"`
	Interrupted bool                `json:"interrupted"`
	Results     []model.ProbeResult `json:"results"`
}

// ConnectivityBatch 是一次连接测试的结果
type ConnectivityBatch struct {
	RunID       string                     `json:"runId"`
	Total       int                        `json:"total"`
	StartedAt   time.Time                  `json:"startedAt"`
	Interrupted bool                       `json:"interrupted"`
	Results     []model.ConnectivityResult `json:"results"`
}

// Runner 依次测试每个服务器，任何时刻只有一个测试在进行
type Runner struct {
	opts         Options
	latency      LatencyProber
	download     DownloadProber
	connectivity ConnectivityProber
}

// NewRunner 用给定的测试器创建 Runner，未提供的测试器在使用时会报错
func NewRunner(opts Options, latency LatencyProber, download DownloadProber, connectivity ConnectivityProber) *Runner {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Size == "" {
		opts.Size = catalog.Size100MB
	}
	if opts.Locale == "" {
		opts.Locale = catalog.DefaultLocale
	}
	return &Runner{opts: opts, latency: latency, download: download, connectivity: connectivity}
}

// FromConfig 根据配置创建使用系统 ping 和 HTTP 下载的 Runner
func FromConfig(cfg *config.Config, cat *catalog.Catalog, onProgress ProgressCallback) (*Runner, error) {
	size, err := catalog.ParseSizeClass(cfg.TestSize)
	if err != nil {
		return nil, err
	}
	hint, err := catalog.ParseProvider(cfg.Zone)
	if err != nil {
		return nil, err
	}
	timeout := cfg.Timeout()
	opts := Options{
		Catalog:    cat,
		Size:       size,
		Quick:      cfg.QuickTest,
		Cooldown:   cfg.Cooldown(),
		Hint:       hint,
		Locale:     cfg.Lang,
		OnProgress: onProgress,
	}
	return NewRunner(opts,
		tester.NewPinger(cfg.PingCount, cfg.PingTimeout()),
		tester.NewDownloader(timeout, cfg.RateLimitMB),
		tester.NewConnectivity(cfg.ConnectivityTimeout()),
	), nil
}

// Options 返回 Runner 当前使用的配置
func (r *Runner) Options() Options { return r.opts }

func (r *Runner) emit(ev Event) {
	if r.opts.OnProgress != nil {
		r.opts.OnProgress(ev)
	}
}

func (r *Runner) timestamp() string {
	return r.opts.Now().UTC().Format(time.RFC3339)
}

// Run 按顺序测试 keys 中的每个服务器。
// 单个服务器的失败记录在结果中，不会中断批量测试；
// ctx 被取消时立即停止，返回已完成的部分结果和 *InterruptedError。
func (r *Runner) Run(ctx context.Context, keys []string) (Batch, error) {
	batch := Batch{
		RunID:     uuid.NewString(),
		Total:     len(keys),
		StartedAt: r.opts.Now().UTC(),
		Results:   make([]model.ProbeResult, 0, len(keys)),
	}
	if r.opts.Catalog == nil {
		return batch, errors.New("engine: 未设置服务器目录")
	}
	if r.latency == nil || r.download == nil {
		return batch, errors.New("engine: 未设置测速器")
	}

	for i, key := range keys {
		if ctx.Err() != nil {
			return r.interruptBatch(batch)
		}

		result, err := r.probeOne(ctx, i, len(keys), key)
		if err != nil {
			if tester.IsInterrupted(err) {
				return r.interruptBatch(batch)
			}
			return batch, err
		}
		batch.Results = append(batch.Results, result)
		r.emit(Event{Kind: EventResult, Index: i, Total: len(keys), Key: key, Name: result.ResolvedName, Host: result.Host, Result: &result})

		if i < len(keys)-1 && r.opts.Cooldown > 0 {
			if err := tester.Sleep(ctx, r.opts.Cooldown); err != nil {
				return r.interruptBatch(batch)
			}
		}
	}
	return batch, nil
}

func (r *Runner) interruptBatch(batch Batch) (Batch, error) {
	batch.Interrupted = true
	logging.Warnf("批量测试被中断，已完成 %d/%d", len(batch.Results), batch.Total)
	return batch, &InterruptedError{Completed: len(batch.Results), Total: batch.Total}
}

// probeOne 测试单个服务器。除中断外的所有错误都转换为失败的结果。
func (r *Runner) probeOne(ctx context.Context, index, total int, key string) (model.ProbeResult, error) {
	entry, err := r.opts.Catalog.Resolve(key, r.opts.Hint)
	if err != nil {
		logging.Warnf("%v", err)
		return model.ProbeResult{
			Key:          key,
			ResolvedName: key,
			PingMs:       tester.Unmeasurable,
			TimestampUTC: r.timestamp(),
			ErrorMessage: NotFoundMessage,
			ErrorKind:    "not_found",
		}, nil
	}

	name := entry.Name(r.opts.Locale)
	r.emit(Event{Kind: EventStart, Index: index, Total: total, Key: key, Name: name, Host: entry.Host})

	result := model.ProbeResult{
		Key:          key,
		ResolvedName: name,
		Host:         entry.Host,
		IP:           entry.IP,
		Region:       entry.Region,
		PingMs:       tester.Unmeasurable,
	}

	ping, err := r.latency.Measure(ctx, entry.Host)
	if err != nil {
		if tester.IsInterrupted(err) {
			return result, err
		}
		logging.Debugf("%s 延迟测试失败: %v", entry.Host, err)
	} else {
		result.PingMs = ping
	}

	var onProgress tester.ProgressFunc
	if r.opts.OnProgress != nil {
		onProgress = func(p tester.Progress) {
			r.emit(Event{Kind: EventProgress, Index: index, Total: total, Key: key, Name: name, Host: entry.Host, Progress: p})
		}
	}
	testURL := entry.TestURL(r.opts.Size)
	outcome, err := r.download.Measure(ctx, tester.DownloadRequest{
		URL:        testURL,
		Size:       r.opts.Size,
		Quick:      r.opts.Quick,
		OnProgress: onProgress,
	})
	result.TimestampUTC = r.timestamp()
	if err != nil {
		if tester.IsInterrupted(err) {
			return result, err
		}
		logging.Warnf("%s (%s) 测试失败: %v", name, entry.Host, err)
		result.ErrorMessage = err.Error()
		result.ErrorKind = tester.Kind(err)
		return result, nil
	}

	logging.Debugf("%s 下载结束 (%s): %d 字节, %.2f Mbps", entry.Host, outcome.Stop, outcome.Downloaded, outcome.Mbps)
	result.DownloadMbps = outcome.Mbps
	result.DownloadedBytes = outcome.Downloaded
	result.ElapsedSeconds = outcome.Elapsed.Seconds()
	result.TestURL = outcome.URL
	return result, nil
}

// RunConnectivity 依次对每个站点做连接测试，失败的站点记录在结果中。
// 连接测试只占用很少的带宽，站点之间不等待 Cooldown。
func (r *Runner) RunConnectivity(ctx context.Context, sites []catalog.Site) (ConnectivityBatch, error) {
	batch := ConnectivityBatch{
		RunID:     uuid.NewString(),
		Total:     len(sites),
		StartedAt: r.opts.Now().UTC(),
		Results:   make([]model.ConnectivityResult, 0, len(sites)),
	}
	if r.connectivity == nil {
		return batch, errors.New("engine: 未设置连接测试器")
	}

	interrupt := func() (ConnectivityBatch, error) {
		batch.Interrupted = true
		logging.Warnf("连接测试被中断，已完成 %d/%d", len(batch.Results), batch.Total)
		return batch, &InterruptedError{Completed: len(batch.Results), Total: batch.Total}
	}

	for i, site := range sites {
		if ctx.Err() != nil {
			return interrupt()
		}
		r.emit(Event{Kind: EventStart, Index: i, Total: len(sites), Key: site.Label, Name: site.Label, Host: site.Host})

		res, err := r.connectivity.Probe(ctx, site.Host)
		if err != nil {
			if tester.IsInterrupted(err) {
				return interrupt()
			}
			res = model.ConnectivityResult{Host: site.Host, ErrorMessage: err.Error()}
		}
		res.Label = site.Label
		res.Region = site.Region
		batch.Results = append(batch.Results, res)
		r.emit(Event{Kind: EventResult, Index: i, Total: len(sites), Key: site.Label, Name: site.Label, Host: site.Host, Connectivity: &res})
	}
	return batch, nil
}
