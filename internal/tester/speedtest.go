package tester

import (
	"Global_SpeedTest_Go/internal/catalog"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DownloadRequest 描述一次下载测试
type DownloadRequest struct {
	URL        string
	Size       catalog.SizeClass
	Quick      bool
	OnProgress ProgressFunc
}

// DownloadOutcome 包含一次下载速度测试的结果
type DownloadOutcome struct {
	URL        string
	Downloaded int64
	Total      int64
	Elapsed    time.Duration
	Mbps       float64
	Stop       StopReason
}

// Downloader 执行流式下载测速
type Downloader struct {
	Client      *http.Client
	Timeout     time.Duration
	RateLimitMB float64 // MB/s，0 表示不限速

	now func() time.Time
}

// NewDownloader 创建下载测速器
func NewDownloader(timeout time.Duration, rateLimitMB float64) *Downloader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Downloader{
		Client:      newStreamingClient(timeout),
		Timeout:     timeout,
		RateLimitMB: rateLimitMB,
		now:         time.Now,
	}
}

// FallbackSize 在响应没有 Content-Length 时根据 URL 推断文件大小
func FallbackSize(testURL string) int64 {
	lower := strings.ToLower(testURL)
	switch {
	case strings.Contains(lower, "250m"):
		return 250 * mib
	case strings.Contains(lower, "2048m"):
		return 2048 * mib
	case strings.Contains(testURL, "1000MB") || strings.Contains(testURL, "1GB"):
		return 1000 * mib
	}
	return 100 * mib
}

func (d *Downloader) newLimiter() *rate.Limiter {
	if d.RateLimitMB <= 0 {
		return nil
	}
	// 转换为 B/s，桶大小至少容纳一次读取
	limit := d.RateLimitMB * mib
	burst := int(limit)
	if burst < ChunkSize {
		burst = ChunkSize
	}
	return rate.NewLimiter(rate.Limit(limit), burst)
}

// Measure 下载 req.URL 并计算平均速度。
// 计时从发出请求开始，包含连接建立的时间。
func (d *Downloader) Measure(ctx context.Context, req DownloadRequest) (*DownloadOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, interrupted(err)
	}
	now := d.now
	if now == nil {
		now = time.Now
	}

	reqCtx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: 创建请求失败: %v", ErrDownload, err)
	}
	httpReq.Header.Set("User-Agent", userAgent)

	start := now()
	response, err := d.Client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, interrupted(ctx.Err())
		}
		return nil, classifyTransportError(err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, fmt.Errorf("%w: 无效的状态码: %d", ErrDownload, response.StatusCode)
	}

	total := response.ContentLength
	if total < 0 {
		total = FallbackSize(req.URL)
	}

	sampler := NewSampler(SamplerConfig{
		Total:      total,
		Size:       req.Size,
		Quick:      req.Quick,
		Timeout:    d.Timeout,
		OnProgress: req.OnProgress,
	})
	limiter := d.newLimiter()
	buffer := make([]byte, ChunkSize)
	stop := Continue

	for stop == Continue && sampler.Downloaded() < total {
		if err := ctx.Err(); err != nil {
			return nil, interrupted(err)
		}
		if limiter != nil {
			if err := limiter.WaitN(reqCtx, len(buffer)); err != nil {
				if ctx.Err() != nil {
					return nil, interrupted(ctx.Err())
				}
				stop = StopTimeout
				break
			}
		}

		n, readErr := response.Body.Read(buffer)
		if n > 0 {
			stop = sampler.Add(n, now().Sub(start))
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				if stop == Continue {
					stop = StopEOF
				}
				break
			}
			if ctx.Err() != nil {
				return nil, interrupted(ctx.Err())
			}
			if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
				stop = StopTimeout
				break
			}
			return nil, fmt.Errorf("%w: %v", ErrDownload, readErr)
		}
	}
	if stop == Continue {
		stop = StopComplete
	}
	// 超时前一个字节都没有收到，视为失败而不是 0 Mbps
	if stop == StopTimeout && sampler.Downloaded() == 0 {
		return nil, fmt.Errorf("%w: %v 内没有收到数据", ErrDownload, d.Timeout)
	}

	elapsed := now().Sub(start)
	if elapsed <= 0 {
		return nil, ErrShortDuration
	}

	return &DownloadOutcome{
		URL:        req.URL,
		Downloaded: sampler.Downloaded(),
		Total:      total,
		Elapsed:    elapsed,
		Mbps:       ThroughputMbps(sampler.Downloaded(), elapsed),
		Stop:       stop,
	}, nil
}
