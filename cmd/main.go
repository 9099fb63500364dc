package main

import (
	"Global_SpeedTest_Go/internal/catalog"
	"Global_SpeedTest_Go/internal/config"
	"Global_SpeedTest_Go/internal/history"
	"Global_SpeedTest_Go/internal/locales"
	"Global_SpeedTest_Go/internal/logging"
	"context"
	_ "embed"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
)

//go:embed default_config.yaml
var defaultConfigData []byte

// ensureFile 检查文件是否存在于可执行文件目录，如果不存在，则使用提供的默认数据创建它。
func ensureFile(fileName string, defaultData []byte) (string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("无法获取可执行文件路径: %w", err)
	}
	return ensureFileIn(filepath.Dir(exePath), fileName, defaultData)
}

func ensureFileIn(dir, fileName string, defaultData []byte) (string, error) {
	filePath := filepath.Join(dir, fileName)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		if err := os.WriteFile(filePath, defaultData, 0644); err != nil {
			return "", fmt.Errorf("无法写入默认文件 %s: %w", fileName, err)
		}
		logging.Infof("首次运行，已在 %s 生成默认 %s 文件", dir, fileName)
	} else if err != nil {
		return "", fmt.Errorf("检查文件 %s 时出错: %w", fileName, err)
	}
	return filePath, nil
}

// rootOptions 是所有子命令共用的参数
type rootOptions struct {
	configPath string
	lang       string
	logLevel   string
	historyDB  string
}

// appEnv 是执行子命令需要的依赖
type appEnv struct {
	cfgPath string
	cfg     *config.Config
	catalog *catalog.Catalog
	locales *locales.Bundle
}

func (e *appEnv) loc() locales.Localizer {
	return e.locales.For(e.cfg.Lang)
}

// openHistory 在配置了 history_db 时打开历史数据库，否则返回 nil
func (e *appEnv) openHistory() (*history.Store, error) {
	if e.cfg.HistoryDB == "" {
		return nil, nil
	}
	path := e.cfg.HistoryDB
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(e.cfgPath), path)
	}
	return history.Open(path)
}

func loadEnv(cmd *cobra.Command, opts *rootOptions) (*appEnv, error) {
	cfgPath := opts.configPath
	if cfgPath == "" {
		var err error
		cfgPath, err = ensureFile("config.yaml", defaultConfigData)
		if err != nil {
			return nil, err
		}
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("加载配置文件失败: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("lang") {
		cfg.Lang = opts.lang
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("history-db") {
		cfg.HistoryDB = opts.historyDB
	}
	if !logging.SetLevel(cfg.LogLevel) {
		logging.Warnf("未知的日志级别 %q，保持当前级别", cfg.LogLevel)
	}

	return &appEnv{
		cfgPath: cfgPath,
		cfg:     cfg,
		catalog: catalog.Builtin(),
		locales: locales.Default(),
	}, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "speedtest",
		Short:         "Global network speed test",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "配置文件路径，默认使用可执行文件目录下的 config.yaml")
	pf.StringVar(&opts.lang, "lang", "en", "显示语言 (en, zh, ja)")
	pf.StringVar(&opts.logLevel, "log-level", "info", "日志级别 (debug, info, warn, error)")
	pf.StringVar(&opts.historyDB, "history-db", "", "测试历史数据库路径")

	env := func(cmd *cobra.Command) (*appEnv, error) { return loadEnv(cmd, opts) }
	root.AddCommand(
		newSpeedCmd(env),
		newNetcheckCmd(env),
		newListCmd(env),
		newHistoryCmd(env),
		newServeCmd(env),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logging.Errorf("%v", err)
		stop()
		os.Exit(1)
	}
}
