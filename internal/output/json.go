package output

import (
	"Global_SpeedTest_Go/pkg/model"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// ResultsFileName 返回默认的结果文件名，例如 speedtest_results_20250102_030405.json
func ResultsFileName(t time.Time) string {
	return fmt.Sprintf("speedtest_results_%s.json", t.Format("20060102_150405"))
}

// WriteJSON 把结果以缩进格式写入 w，结果为空时写入空数组
func WriteJSON(w io.Writer, results []model.ProbeResult) error {
	if results == nil {
		results = []model.ProbeResult{}
	}
	return encodeIndented(w, results)
}

// WriteJSONFile 将测速结果列表写入到指定的 JSON 文件中
func WriteJSONFile(filePath string, results []model.ProbeResult) error {
	return writeFile(filePath, func(w io.Writer) error { return WriteJSON(w, results) })
}

// WriteConnectivityJSONFile 将连接测试结果写入到指定的 JSON 文件中
func WriteConnectivityJSONFile(filePath string, results []model.ConnectivityResult) error {
	if results == nil {
		results = []model.ConnectivityResult{}
	}
	return writeFile(filePath, func(w io.Writer) error { return encodeIndented(w, results) })
}

func encodeIndented(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("无法将结果序列化为 JSON: %w", err)
	}
	return nil
}

func writeFile(filePath string, write func(io.Writer) error) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("无法创建文件 '%s': %w", filePath, err)
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("无法写入文件 '%s': %w", filePath, err)
	}
	return nil
}
