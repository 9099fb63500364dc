package output

import (
	"Global_SpeedTest_Go/pkg/model"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

var csvHeader = []string{
	"Key",
	"Name",
	"Host",
	"IP",
	"Region",
	"Ping (ms)",
	"Download (Mbps)",
	"Downloaded (bytes)",
	"Elapsed (s)",
	"Test URL",
	"Timestamp (UTC)",
	"Error",
}

// WriteCSV 将测速结果写入 w，失败的结果只填写错误信息
func WriteCSV(w io.Writer, results []model.ProbeResult) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("写入 CSV 表头失败: %w", err)
	}

	for _, r := range results {
		ping := ""
		if r.PingMeasured() {
			ping = fmt.Sprintf("%.2f", r.PingMs)
		}
		row := []string{r.Key, r.ResolvedName, r.Host, r.IP, r.Region, ping, "", "", "", "", r.TimestampUTC, r.ErrorMessage}
		if r.Succeeded() {
			row[6] = fmt.Sprintf("%.2f", r.DownloadMbps)
			row[7] = strconv.FormatInt(r.DownloadedBytes, 10)
			row[8] = fmt.Sprintf("%.2f", r.ElapsedSeconds)
			row[9] = r.TestURL
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("写入 CSV 行失败: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteCSVFile 将测速结果列表写入到指定的 CSV 文件中
func WriteCSVFile(filePath string, results []model.ProbeResult) error {
	return writeFile(filePath, func(w io.Writer) error { return WriteCSV(w, results) })
}
