package output

import (
	"Global_SpeedTest_Go/internal/engine"
	"Global_SpeedTest_Go/internal/locales"
	"Global_SpeedTest_Go/internal/tester"
	"Global_SpeedTest_Go/pkg/model"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleResults = []model.ProbeResult{
	{
		Key: "tokyo", ResolvedName: "Tokyo, Japan", Host: "hnd-jp-ping.vultr.com", IP: "108.61.201.151",
		Region: "asia", PingMs: 35.4, TimestampUTC: "2025-01-02T03:04:05Z",
		DownloadMbps: 100, DownloadedBytes: 104857600, ElapsedSeconds: 8, TestURL: "http://hnd-jp-ping.vultr.com/vultr.com.100MB.bin",
	},
	{
		Key: "missing", ResolvedName: "missing", PingMs: -1, TimestampUTC: "2025-01-02T03:04:07Z",
		ErrorMessage: "server not found", ErrorKind: "not_found",
	},
}

func TestWriteJSONFieldNames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleResults))

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)

	ok := decoded[0]
	for _, k := range []string{"key", "resolvedName", "host", "ip", "region", "pingMs", "timestampUtc", "downloadMbps", "downloadedBytes", "elapsedSeconds", "testUrl"} {
		assert.Contains(t, ok, k)
	}
	assert.NotContains(t, ok, "errorMessage")

	failed := decoded[1]
	assert.Equal(t, "server not found", failed["errorMessage"])
	assert.Equal(t, -1.0, failed["pingMs"])
	assert.NotContains(t, failed, "downloadMbps")
	assert.NotContains(t, failed, "testUrl")

	assert.True(t, strings.HasPrefix(buf.String(), "[\n  {"))
}

func TestWriteJSONFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, WriteJSONFile(path, sampleResults))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var back []model.ProbeResult
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, sampleResults, back)

	require.NoError(t, WriteJSONFile(path, nil))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestWriteJSONFileBadPath(t *testing.T) {
	err := WriteJSONFile(filepath.Join(t.TempDir(), "no", "such", "dir.json"), sampleResults)
	assert.Error(t, err)
}

func TestWriteConnectivityJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netcheck.json")
	results := []model.ConnectivityResult{{Label: "London, UK", Host: "www.bbc.com", Success: true, TotalMs: 42, Score: 100}}
	require.NoError(t, WriteConnectivityJSONFile(path, results))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"label": "London, UK"`)
	assert.Contains(t, string(data), `"score": 100`)
}

func TestResultsFileName(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "speedtest_results_20250102_030405.json", ResultsFileName(ts))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleResults))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, "tokyo", records[1][0])
	assert.Equal(t, "35.40", records[1][5])
	assert.Equal(t, "100.00", records[1][6])
	assert.Equal(t, "104857600", records[1][7])
	assert.Equal(t, "", records[2][5])
	assert.Equal(t, "", records[2][6])
	assert.Equal(t, "server not found", records[2][11])
}

func TestDisplayWidthAndPadding(t *testing.T) {
	assert.Equal(t, 5, DisplayWidth("Tokyo"))
	assert.Equal(t, 4, DisplayWidth("東京"))
	assert.Equal(t, 6, DisplayWidth("東京AB"))
	assert.Equal(t, 2, DisplayWidth("Ｘ"))
	assert.Equal(t, "東京  ", PadRight("東京", 6))
	assert.Equal(t, "toolong", PadRight("toolong", 3))
}

func TestProgressBar(t *testing.T) {
	bar := ProgressBar(tester.Progress{Percent: 50, Mbps: 12.5, WindowMbps: 99, Downloaded: 5 << 20})
	assert.Contains(t, bar, strings.Repeat("█", 10)+strings.Repeat("░", 10))
	assert.Contains(t, bar, "50.0%")
	assert.Contains(t, bar, "12.50 Mbps")
	assert.Contains(t, bar, "5.0 MB")
	assert.NotContains(t, bar, "99.00")

	assert.Contains(t, ProgressBar(tester.Progress{Percent: 4.9}), "["+strings.Repeat("░", 20)+"]")
	assert.Contains(t, ProgressBar(tester.Progress{Percent: 130}), "["+strings.Repeat("█", 20)+"]")
}

func TestTableRenderAlignsWideCharacters(t *testing.T) {
	tbl := Table{
		Headers: []string{"Name", "Mbps"},
		Rows: [][]string{
			{"東京", "1.00"},
			{"London", "22.00"},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, tbl.Render(&buf))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Name    Mbps", lines[0])
	assert.Equal(t, "------  -----", lines[1])
	assert.Equal(t, "東京    1.00", lines[2])
	assert.Equal(t, "London  22.00", lines[3])
}

func TestResultsTableAndSummary(t *testing.T) {
	loc := locales.Default().For("zh")
	tbl := ResultsTable(loc, sampleResults)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "亞洲", tbl.Rows[0][2])
	assert.Equal(t, "35.4", tbl.Rows[0][3])
	assert.Equal(t, "無法測量", tbl.Rows[1][3])
	assert.Equal(t, "失敗: server not found", tbl.Rows[1][5])

	var buf bytes.Buffer
	WriteSummary(&buf, loc, engine.Summarize(sampleResults))
	out := buf.String()
	assert.Contains(t, out, "成功測試: 1/2 個機房")
	assert.Contains(t, out, "平均下載速度: 100.00 Mbps")
	assert.Contains(t, out, "最快機房: Tokyo, Japan")
	assert.Contains(t, out, "亞洲")
}

func TestWriteSummaryWithoutSuccesses(t *testing.T) {
	var buf bytes.Buffer
	WriteSummary(&buf, locales.Default().For("en"), engine.Summarize(sampleResults[1:]))
	assert.Contains(t, buf.String(), "No successful tests")
	assert.NotContains(t, buf.String(), "Average download speed")
}

func TestConnectivityTable(t *testing.T) {
	results := []model.ConnectivityResult{
		{Label: "Slow", Host: "slow.example", Success: true, TotalMs: 300, Score: 60, HTTPError: "HTTP probe failed"},
		{Label: "Down", Host: "down.example", ErrorMessage: "DNS resolution failed"},
		{Label: "Fast", Host: "fast.example", Success: true, DNSMs: 1, TCPMs: 2, HTTPMs: 3, TotalMs: 6, Score: 100},
	}
	tbl := ConnectivityTable(locales.Default().For("en"), engine.SummarizeConnectivity(results), results)
	require.Len(t, tbl.Rows, 3)
	assert.Equal(t, "Fast", tbl.Rows[0][1])
	assert.Equal(t, "3.0", tbl.Rows[0][5])
	assert.Equal(t, "Slow", tbl.Rows[1][1])
	assert.Equal(t, "-", tbl.Rows[1][5])
	assert.Equal(t, "Down", tbl.Rows[2][1])
	assert.Equal(t, "DNS resolution failed", tbl.Rows[2][7])
}
