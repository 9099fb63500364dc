package datasource

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadKeysFromFile 从指定路径的文件中读取服务器键值列表。
// 它会忽略空行和以 '#' 开头的注释行，一行可以写多个键值。
func LoadKeysFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("无法打开服务器列表文件 '%s': %w", filePath, err)
	}
	defer file.Close()

	keys, err := ReadKeys(file)
	if err != nil {
		return nil, fmt.Errorf("读取服务器列表文件时出错: %w", err)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("服务器列表文件 '%s' 为空或未包含有效键值", filePath)
	}
	return keys, nil
}

// ReadKeys 逐行读取键值，去掉重复项并保持首次出现的顺序
func ReadKeys(r io.Reader) ([]string, error) {
	var keys []string
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		keys = appendUnique(keys, seen, SplitKeys(line)...)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// SplitKeys 按逗号或空白分隔键值，例如 "tokyo, singapore new_york"
func SplitKeys(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}

// MergeKeys 合并多组键值，去重并保持顺序
func MergeKeys(groups ...[]string) []string {
	var keys []string
	seen := make(map[string]struct{})
	for _, g := range groups {
		keys = appendUnique(keys, seen, g...)
	}
	return keys
}

func appendUnique(keys []string, seen map[string]struct{}, items ...string) []string {
	for _, k := range items {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}
