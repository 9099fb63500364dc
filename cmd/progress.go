package main

import (
	"Global_SpeedTest_Go/internal/engine"
	"Global_SpeedTest_Go/internal/locales"
	"Global_SpeedTest_Go/internal/output"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// stdoutIsTerminal 报告标准输出是否为终端，重定向到文件时不显示进度条
func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// consoleProgress 把测试事件输出到终端
type consoleProgress struct {
	out     io.Writer
	loc     locales.Localizer
	showBar bool
	barOpen bool
}

func (p *consoleProgress) handle(ev engine.Event) {
	switch ev.Kind {
	case engine.EventStart:
		fmt.Fprintln(p.out, p.loc.T("testing_server", ev.Index+1, ev.Total, ev.Name, ev.Host))
	case engine.EventProgress:
		if !p.showBar {
			return
		}
		fmt.Fprintf(p.out, "\r  %s", output.ProgressBar(ev.Progress))
		p.barOpen = true
	case engine.EventResult:
		if p.barOpen {
			fmt.Fprintln(p.out)
			p.barOpen = false
		}
		p.printResult(ev)
	}
}

func (p *consoleProgress) printResult(ev engine.Event) {
	if c := ev.Connectivity; c != nil {
		if !c.Success {
			fmt.Fprintf(p.out, "  %s: %s\n", p.loc.T("failed"), c.ErrorMessage)
			return
		}
		fmt.Fprintf(p.out, "  DNS %.1f ms, TCP %.1f ms, HTTP %.1f ms, %s %.1f ms, %s %d\n",
			c.DNSMs, c.TCPMs, c.HTTPMs, p.loc.T("col_total"), c.TotalMs, p.loc.T("col_score"), c.Score)
		if c.HTTPError != "" {
			fmt.Fprintf(p.out, "  HTTP: %s\n", c.HTTPError)
		}
		return
	}

	r := ev.Result
	if r == nil {
		return
	}
	if !r.Succeeded() {
		fmt.Fprintf(p.out, "  %s: %s (%s)\n", p.loc.T("test_failed"), r.Key, r.ErrorMessage)
		return
	}
	ping := output.FormatPing(p.loc, r.PingMs)
	if r.PingMeasured() {
		ping += " ms"
	}
	fmt.Fprintf(p.out, "  %s: %s, %s: %.2f Mbps (%.1f MB / %.1f s)\n",
		p.loc.T("ping"), ping,
		p.loc.T("download_speed"), r.DownloadMbps,
		float64(r.DownloadedBytes)/(1<<20), r.ElapsedSeconds)
}
