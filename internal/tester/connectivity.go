package tester

import (
	"Global_SpeedTest_Go/pkg/model"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// httpProbeBytes HTTP 阶段最多读取的字节数
const httpProbeBytes = 1024

// Connectivity 测量到一个站点的 DNS、TCP 和 HTTP 耗时
type Connectivity struct {
	Timeout  time.Duration
	Port     int
	Resolver *net.Resolver

	now func() time.Time
}

// NewConnectivity 创建连接测试器
func NewConnectivity(timeout time.Duration) *Connectivity {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Connectivity{
		Timeout:  timeout,
		Port:     DefaultHTTPPort,
		Resolver: net.DefaultResolver,
		now:      time.Now,
	}
}

// Score 根据总延迟给出 0-100 的评分
func Score(r model.ConnectivityResult) int {
	if !r.Success {
		return 0
	}
	switch total := r.TotalMs; {
	case total < 50:
		return 100
	case total < 100:
		return 90
	case total < 200:
		return 80
	case total < 500:
		return 60
	case total < 1000:
		return 40
	case total < 2000:
		return 20
	}
	return 10
}

// Probe 依次测量 DNS、TCP 和 HTTP。
// DNS 或 TCP 失败时结果为失败且各阶段耗时为 0；
// HTTP 失败只记录在 HTTPError 中，结果仍然成功。只有 ctx 被取消时才返回错误。
func (c *Connectivity) Probe(ctx context.Context, host string) (model.ConnectivityResult, error) {
	result := model.ConnectivityResult{Host: host}
	if err := ctx.Err(); err != nil {
		return result, interrupted(err)
	}
	now := c.now
	if now == nil {
		now = time.Now
	}
	resolver := c.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	port := c.Port
	if port == 0 {
		port = DefaultHTTPPort
	}

	// 1. DNS 解析时间
	dnsCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	dnsStart := now()
	addrs, err := resolver.LookupIPAddr(dnsCtx, host)
	dnsTime := now().Sub(dnsStart)
	cancel()
	if ctx.Err() != nil {
		return result, interrupted(ctx.Err())
	}
	if err != nil || len(addrs) == 0 {
		if err == nil {
			err = fmt.Errorf("no addresses")
		}
		result.ErrorMessage = fmt.Sprintf("%v: %v", ErrDNS, err)
		return result, nil
	}
	ip := pickAddress(addrs)
	result.IP = ip

	// 2. TCP 连接时间
	dialer := &net.Dialer{Timeout: c.Timeout}
	tcpStart := now()
	conn, err := dialer.DialContext(ctx, "tcp", joinHostPort(ip, port))
	tcpTime := now().Sub(tcpStart)
	if ctx.Err() != nil {
		return result, interrupted(ctx.Err())
	}
	if err != nil {
		result.ErrorMessage = fmt.Sprintf("%v: %v", ErrTCP, err)
		return result, nil
	}
	conn.Close()

	// 3. HTTP 请求时间，只读取前 1KB
	httpTime, err := c.httpProbe(ctx, host, ip, port, now)
	if ctx.Err() != nil {
		return result, interrupted(ctx.Err())
	}
	if err != nil {
		result.HTTPError = err.Error()
		httpTime = 0
	}

	result.Success = true
	result.DNSMs = toMs(dnsTime)
	result.TCPMs = toMs(tcpTime)
	result.HTTPMs = toMs(httpTime)
	result.TotalMs = result.DNSMs + result.TCPMs + result.HTTPMs
	result.Score = Score(result)
	return result, nil
}

func (c *Connectivity) httpProbe(ctx context.Context, host, ip string, port int, now func() time.Time) (time.Duration, error) {
	hc := http.Client{
		Timeout: c.Timeout,
		Transport: &http.Transport{
			DialContext:       getDialContext(ip, port, c.Timeout),
			DisableKeepAlives: true,
		},
	}
	target := fmt.Sprintf("http://%s/", host)
	if port != DefaultHTTPPort {
		target = fmt.Sprintf("http://%s/", joinHostPort(host, port))
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrHTTPProbe, err)
	}
	request.Header.Set("User-Agent", userAgent)

	start := now()
	response, err := hc.Do(request)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrHTTPProbe, err)
	}
	defer response.Body.Close()
	if _, err := io.ReadFull(response.Body, make([]byte, httpProbeBytes)); err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return 0, fmt.Errorf("%w: %v", ErrHTTPProbe, err)
	}
	if response.StatusCode >= 400 {
		return 0, fmt.Errorf("%w: 无效的状态码: %d", ErrHTTPProbe, response.StatusCode)
	}
	return now().Sub(start), nil
}

// pickAddress 优先选择 IPv4 地址
func pickAddress(addrs []net.IPAddr) string {
	for _, a := range addrs {
		if a.IP.To4() != nil {
			return a.IP.String()
		}
	}
	return addrs[0].IP.String()
}
