package output

import (
	"Global_SpeedTest_Go/internal/engine"
	"Global_SpeedTest_Go/internal/locales"
	"Global_SpeedTest_Go/internal/tester"
	"Global_SpeedTest_Go/pkg/model"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/width"
)

// BarBlocks 是进度条的格数，每格代表 5%
const BarBlocks = 20

// DisplayWidth 返回字符串在终端中占用的列数，全角字符占两列
func DisplayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}

// PadRight 用空格把 s 补齐到指定的显示宽度
func PadRight(s string, w int) string {
	if pad := w - DisplayWidth(s); pad > 0 {
		return s + strings.Repeat(" ", pad)
	}
	return s
}

// ProgressBar 渲染下载进度，例如 [██████░░░░░░░░░░░░░░]  30.0%    85.21 Mbps    30.0 MB。
// 速度是从开始到现在的平均值。
func ProgressBar(p tester.Progress) string {
	filled := int(p.Percent / (100 / BarBlocks))
	if filled < 0 {
		filled = 0
	}
	if filled > BarBlocks {
		filled = BarBlocks
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", BarBlocks-filled)
	return fmt.Sprintf("[%s] %5.1f%% %8.2f Mbps %7.1f MB", bar, p.Percent, p.Mbps, float64(p.Downloaded)/(1<<20))
}

// FormatPing 格式化延迟，无法测量时显示本地化的提示
func FormatPing(loc locales.Localizer, ms float64) string {
	if ms < 0 {
		return loc.T("ping_unmeasurable")
	}
	return fmt.Sprintf("%.1f", ms)
}

// Table 是按显示宽度对齐的文本表格
type Table struct {
	Headers []string
	Rows    [][]string
}

// Render 把表格写入 w，列之间用两个空格分隔
func (t Table) Render(w io.Writer) error {
	widths := make([]int, len(t.Headers))
	measure := func(row []string) {
		for i, cell := range row {
			if i < len(widths) && DisplayWidth(cell) > widths[i] {
				widths[i] = DisplayWidth(cell)
			}
		}
	}
	measure(t.Headers)
	for _, row := range t.Rows {
		measure(row)
	}

	writeRow := func(row []string) error {
		cells := make([]string, len(widths))
		for i := range widths {
			if i < len(row) {
				cells[i] = row[i]
			}
			if i < len(widths)-1 {
				cells[i] = PadRight(cells[i], widths[i])
			}
		}
		_, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, "  "), " "))
		return err
	}

	if err := writeRow(t.Headers); err != nil {
		return err
	}
	sep := make([]string, len(widths))
	for i, n := range widths {
		sep[i] = strings.Repeat("-", n)
	}
	if _, err := fmt.Fprintln(w, strings.Join(sep, "  ")); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := writeRow(row); err != nil {
			return err
		}
	}
	return nil
}

// ResultsTable 按测试顺序列出每个服务器的结果
func ResultsTable(loc locales.Localizer, results []model.ProbeResult) Table {
	t := Table{Headers: []string{
		loc.T("col_key"), loc.T("col_server"), loc.T("col_region"),
		loc.T("col_ping"), loc.T("col_speed"), loc.T("col_status"),
	}}
	for _, r := range results {
		speed, status := "-", loc.T("ok")
		if r.Succeeded() {
			speed = fmt.Sprintf("%.2f", r.DownloadMbps)
		} else {
			status = loc.T("failed") + ": " + r.ErrorMessage
		}
		t.Rows = append(t.Rows, []string{
			r.Key, r.ResolvedName, loc.Region(r.Region), FormatPing(loc, r.PingMs), speed, status,
		})
	}
	return t
}

// WriteSummary 输出成功数量、平均速度、最快的服务器和区域统计
func WriteSummary(w io.Writer, loc locales.Localizer, s engine.Summary) {
	fmt.Fprintln(w, loc.T("test_summary"))
	fmt.Fprintf(w, "  %s %d/%d %s\n", loc.T("successful_tests"), len(s.Successes), s.Total, loc.T("servers"))
	avg, ok := s.Average()
	if !ok {
		fmt.Fprintf(w, "  %s\n", loc.T("no_successful_tests"))
		return
	}
	fmt.Fprintf(w, "  %s %.2f Mbps\n", loc.T("avg_download_speed"), avg)
	fmt.Fprintf(w, "  %s %s (%.2f Mbps)\n", loc.T("fastest_server"), s.Fastest.ResolvedName, s.Fastest.DownloadMbps)

	if len(s.Regions) == 0 {
		return
	}
	fmt.Fprintln(w, loc.T("region_stats"))
	t := Table{Headers: []string{loc.T("col_region"), "#", loc.T("col_ping"), loc.T("col_speed")}}
	for _, r := range s.Regions {
		t.Rows = append(t.Rows, []string{
			loc.Region(r.Region), fmt.Sprint(r.Count), FormatPing(loc, r.AvgPingMs), fmt.Sprintf("%.2f", r.AvgMbps),
		})
	}
	t.Render(w)
}

// ConnectivityTable 按总延迟排名列出成功的连接测试，失败的排在最后
func ConnectivityTable(loc locales.Localizer, s engine.ConnectivitySummary, all []model.ConnectivityResult) Table {
	t := Table{Headers: []string{
		"#", loc.T("col_server"), loc.T("col_host"), "DNS", "TCP", "HTTP", loc.T("col_total"), loc.T("col_score"),
	}}
	for i, r := range s.Ranked {
		httpCell := fmt.Sprintf("%.1f", r.HTTPMs)
		if r.HTTPError != "" {
			httpCell = "-"
		}
		t.Rows = append(t.Rows, []string{
			fmt.Sprint(i + 1), r.Label, r.Host,
			fmt.Sprintf("%.1f", r.DNSMs), fmt.Sprintf("%.1f", r.TCPMs), httpCell,
			fmt.Sprintf("%.1f", r.TotalMs), fmt.Sprint(r.Score),
		})
	}
	for _, r := range all {
		if !r.Success {
			t.Rows = append(t.Rows, []string{"-", r.Label, r.Host, "-", "-", "-", loc.T("failed"), r.ErrorMessage})
		}
	}
	return t
}
