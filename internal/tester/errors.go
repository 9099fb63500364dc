package tester

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrInterrupted 表示测试被外部取消，调用方必须原样向上传递
	ErrInterrupted = errors.New("interrupted")

	ErrDNS           = errors.New("DNS resolution failed")
	ErrTCP           = errors.New("TCP connection failed")
	ErrHTTPProbe     = errors.New("HTTP probe failed")
	ErrShortDuration = errors.New("test duration too short")
	ErrDownload      = errors.New("download failed")
)

// interrupted 把上下文取消转换为 ErrInterrupted，同时保留原因
func interrupted(cause error) error {
	return fmt.Errorf("%w: %v", ErrInterrupted, cause)
}

// IsInterrupted 判断错误链中是否包含 ErrInterrupted
func IsInterrupted(err error) bool {
	return errors.Is(err, ErrInterrupted)
}

// classifyTransportError 根据底层错误判断失败阶段
func classifyTransportError(err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: %v", ErrDNS, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return fmt.Errorf("%w: %v", ErrTCP, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTCP, err)
	}
	return fmt.Errorf("%w: %v", ErrDownload, err)
}

// Kind 返回错误的简短分类，用于结果中的 errorKind 字段
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDNS):
		return "dns"
	case errors.Is(err, ErrTCP):
		return "tcp"
	case errors.Is(err, ErrHTTPProbe):
		return "http"
	case errors.Is(err, ErrShortDuration):
		return "short_duration"
	case errors.Is(err, ErrInterrupted):
		return "interrupted"
	}
	return "download"
}
