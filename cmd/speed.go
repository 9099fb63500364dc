package main

import (
	"Global_SpeedTest_Go/internal/catalog"
	"Global_SpeedTest_Go/internal/config"
	"Global_SpeedTest_Go/internal/datasource"
	"Global_SpeedTest_Go/internal/engine"
	"Global_SpeedTest_Go/internal/logging"
	"Global_SpeedTest_Go/internal/output"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type runnerFactory func(cfg *config.Config, cat *catalog.Catalog, cb engine.ProgressCallback) (*engine.Runner, error)

type speedOptions struct {
	servers    []string
	serverList string
	useDefault bool
	all        bool
	region     string
	keysFile   string
	size       string
	quick      bool
	cooldown   float64
	timeout    float64
	noProgress bool
	zone       string
	output     string
	csv        string
}

func newSpeedCmd(env func(*cobra.Command) (*appEnv, error)) *cobra.Command {
	var opts speedOptions
	cmd := &cobra.Command{
		Use:   "speed",
		Short: "依次测试服务器的延迟和下载速度",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := env(cmd)
			if err != nil {
				return err
			}
			applySpeedFlags(cmd, e.cfg, &opts)
			if err := e.cfg.Validate(); err != nil {
				return err
			}
			// 位置参数也作为服务器键值
			opts.servers = append(opts.servers, args...)
			showBar := e.cfg.ShowProgress && stdoutIsTerminal()
			return runSpeed(cmd.Context(), cmd.OutOrStdout(), e, opts, showBar, engine.FromConfig)
		},
	}
	bindSpeedFlags(cmd.Flags(), &opts)
	return cmd
}

func bindSpeedFlags(f *pflag.FlagSet, opts *speedOptions) {
	f.StringArrayVarP(&opts.servers, "server", "s", nil, "要测试的服务器键值，可重复")
	f.StringVar(&opts.serverList, "servers", "", "以逗号或空格分隔的服务器键值列表")
	f.BoolVar(&opts.useDefault, "default", false, "测试推荐的默认组合")
	f.BoolVar(&opts.all, "all", false, "测试所有服务器")
	f.StringVar(&opts.region, "region", "", "测试指定区域的所有服务器 (asia, europe, north_america, ...)")
	f.StringVar(&opts.keysFile, "keys-file", "", "从文件读取服务器键值，每行一个或多个")
	f.StringVar(&opts.size, "size", "", "下载文件大小 (100MB, 1GB)")
	f.BoolVar(&opts.quick, "quick", false, "快速测试，下载足够的数据后提前结束")
	f.Float64Var(&opts.cooldown, "cooldown", 0, "两次测试之间的等待秒数")
	f.Float64Var(&opts.timeout, "timeout", 0, "单次下载的超时秒数")
	f.BoolVar(&opts.noProgress, "no-progress", false, "不显示进度条")
	f.StringVar(&opts.zone, "zone", "", "只在指定的 provider 中查找 (hinet, vultr, linode)")
	f.StringVarP(&opts.output, "output", "o", "", "把结果写入 JSON 文件")
	f.StringVar(&opts.csv, "csv", "", "把结果写入 CSV 文件")
}

// applySpeedFlags 用命令行中显式给出的参数覆盖配置
func applySpeedFlags(cmd *cobra.Command, cfg *config.Config, opts *speedOptions) {
	f := cmd.Flags()
	if f.Changed("size") {
		cfg.TestSize = opts.size
	}
	if f.Changed("quick") {
		cfg.QuickTest = opts.quick
	}
	if f.Changed("cooldown") {
		cfg.CooldownSeconds = opts.cooldown
	}
	if f.Changed("timeout") {
		cfg.TimeoutSeconds = opts.timeout
	}
	if f.Changed("zone") {
		cfg.Zone = opts.zone
	}
	if opts.noProgress {
		cfg.ShowProgress = false
	}
	cfg.ApplyDefaults()
}

func selectKeys(e *appEnv, opts speedOptions) ([]string, error) {
	keys := datasource.MergeKeys(opts.servers, datasource.SplitKeys(opts.serverList))
	if opts.keysFile != "" {
		fromFile, err := datasource.LoadKeysFromFile(opts.keysFile)
		if err != nil {
			return nil, err
		}
		keys = datasource.MergeKeys(keys, fromFile)
	}
	hint, err := catalog.ParseProvider(e.cfg.Zone)
	if err != nil {
		return nil, err
	}
	return e.catalog.Select(catalog.Selection{
		Keys:     keys,
		Default:  opts.useDefault,
		All:      opts.all,
		Region:   opts.region,
		Provider: hint,
		Defaults: e.cfg.DefaultServers,
	})
}

func runSpeed(ctx context.Context, out io.Writer, e *appEnv, opts speedOptions, showBar bool, newRunner runnerFactory) error {
	loc := e.loc()
	keys, err := selectKeys(e, opts)
	if err != nil {
		return err
	}

	progress := &consoleProgress{out: out, loc: loc, showBar: showBar}
	runner, err := newRunner(e.cfg, e.catalog, progress.handle)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, loc.T("title"))
	if len(keys) == 1 {
		fmt.Fprintln(out, loc.T("testing_single"))
	} else {
		fmt.Fprintln(out, loc.T("testing_multiple", len(keys)))
	}

	batch, runErr := runner.Run(ctx, keys)
	if runErr != nil && !batch.Interrupted {
		return runErr
	}

	fmt.Fprintln(out)
	if batch.Interrupted {
		fmt.Fprintln(out, loc.T("test_interrupted"))
		if errors.Is(runErr, engine.ErrNoTestsCompleted) {
			fmt.Fprintln(out, loc.T("no_tests_completed"))
			return nil
		}
		fmt.Fprintln(out, loc.T("completed_of", len(batch.Results), batch.Total))
	}

	output.ResultsTable(loc, batch.Results).Render(out)
	fmt.Fprintln(out)
	output.WriteSummary(out, loc, engine.Summarize(batch.Results))

	if opts.output != "" {
		if err := output.WriteJSONFile(opts.output, batch.Results); err != nil {
			return err
		}
		fmt.Fprintln(out, loc.T("results_saved", opts.output))
	}
	if opts.csv != "" {
		if err := output.WriteCSVFile(opts.csv, batch.Results); err != nil {
			return err
		}
		fmt.Fprintln(out, loc.T("results_saved", opts.csv))
	}

	store, err := e.openHistory()
	if err != nil {
		logging.Warnf("无法打开历史数据库: %v", err)
		return nil
	}
	if store != nil {
		defer store.Close()
		// 中断后 ctx 已取消，保存时使用新的上下文
		if err := store.SaveBatch(context.Background(), batch); err != nil {
			logging.Warnf("保存测试历史失败: %v", err)
		}
	}
	return nil
}
