package tester

import (
	"context"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"
)

const (
	// Unmeasurable 表示延迟无法测量
	Unmeasurable = -1.0

	DefaultPingCount   = 3
	DefaultPingTimeout = 10 * time.Second
)

var (
	// rtt min/avg/max/mdev = 1.1/2.2/3.3/0.4 ms (Linux)
	// round-trip min/avg/max/stddev = ... (macOS, busybox)
	unixAvgRegexp = regexp.MustCompile(`min/avg/max\S*\s*=\s*[\d.]+/([\d.]+)/`)
	// Average = 12ms (Windows)，中文系统为 平均 = 12ms
	windowsAvgRegexp = regexp.MustCompile(`(?:Average|平均)\s*=\s*(\d+(?:\.\d+)?)\s*ms`)
	msRegexp         = regexp.MustCompile(`(\d+\.?\d*)\s*ms`)
)

// CommandRunner 执行外部命令并返回标准输出
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Pinger 通过系统 ping 命令测量平均往返延迟
type Pinger struct {
	Count   int
	Timeout time.Duration
	Run     CommandRunner
}

// NewPinger 创建使用系统 ping 命令的 Pinger
func NewPinger(count int, timeout time.Duration) *Pinger {
	if count <= 0 {
		count = DefaultPingCount
	}
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}
	return &Pinger{Count: count, Timeout: timeout, Run: execRunner}
}

func (p *Pinger) args(host string) []string {
	countFlag := "-c"
	if runtime.GOOS == "windows" {
		countFlag = "-n"
	}
	return []string{countFlag, strconv.Itoa(p.Count), host}
}

// Measure 返回以毫秒为单位的平均延迟，无法测量时返回 Unmeasurable。
// 只有 ctx 被取消时才返回错误。
func (p *Pinger) Measure(ctx context.Context, host string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return Unmeasurable, interrupted(err)
	}
	runCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	run := p.Run
	if run == nil {
		run = execRunner
	}
	out, err := run(runCtx, "ping", p.args(host)...)
	if ctx.Err() != nil {
		return Unmeasurable, interrupted(ctx.Err())
	}
	if err != nil {
		return Unmeasurable, nil
	}
	avg, ok := ParsePingAverage(string(out))
	if !ok {
		return Unmeasurable, nil
	}
	return avg, nil
}

// ParsePingAverage 从 ping 的输出中找出平均往返时间
func ParsePingAverage(out string) (float64, bool) {
	for _, line := range strings.Split(out, "\n") {
		if m := unixAvgRegexp.FindStringSubmatch(line); m != nil {
			return parseFloat(m[1])
		}
		if m := windowsAvgRegexp.FindStringSubmatch(line); m != nil {
			return parseFloat(m[1])
		}
	}
	// 其他格式：取包含 avg 的行里第一个带 ms 的数字
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "avg") && !strings.Contains(line, "平均") {
			continue
		}
		if m := msRegexp.FindStringSubmatch(line); m != nil {
			return parseFloat(m[1])
		}
	}
	return 0, false
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
