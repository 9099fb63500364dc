package tester

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"
)

const (
	// DefaultHTTPPort 连接测试使用的端口
	DefaultHTTPPort = 80
	// DefaultTimeout 单次测试的默认超时
	DefaultTimeout = 30 * time.Second

	userAgent = "Global-SpeedTest/1.0"
)

// joinHostPort 组合地址，IPv6 地址会加上方括号
func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// getDialContext 创建一个自定义的拨号上下文，强制通过指定的 IP 地址进行连接，
// 这样 HTTP 阶段不会再次做 DNS 解析
func getDialContext(ip string, port int, timeout time.Duration) func(ctx context.Context, network, address string) (net.Conn, error) {
	addr := joinHostPort(ip, port)
	return func(ctx context.Context, network, address string) (net.Conn, error) {
		return (&net.Dialer{Timeout: timeout}).DialContext(ctx, network, addr)
	}
}

// newStreamingClient 创建用于流式下载的客户端。
// 不设置 Client.Timeout，整体时长由下载循环自己控制。
func newStreamingClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
			ResponseHeaderTimeout: timeout,
			DisableCompression:    true,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > 10 { // 限制最多重定向 10 次
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// sleepContext 等待指定时长，期间可被取消
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Sleep 是可取消的等待，被取消时返回 ErrInterrupted
func Sleep(ctx context.Context, d time.Duration) error {
	if err := sleepContext(ctx, d); err != nil {
		return interrupted(err)
	}
	return nil
}

func toMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
