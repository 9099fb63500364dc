package main

import (
	"Global_SpeedTest_Go/internal/catalog"
	"Global_SpeedTest_Go/internal/engine"
	"Global_SpeedTest_Go/internal/output"
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type netcheckOptions struct {
	sites   string
	region  string
	timeout float64
	output  string
}

func newNetcheckCmd(env func(*cobra.Command) (*appEnv, error)) *cobra.Command {
	var opts netcheckOptions
	cmd := &cobra.Command{
		Use:   "netcheck",
		Short: "测试到各地站点的 DNS、TCP 和 HTTP 连接延迟",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := env(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("timeout") {
				e.cfg.NetcheckTimeout = opts.timeout
				e.cfg.ApplyDefaults()
			}
			return runNetcheck(cmd.Context(), cmd.OutOrStdout(), e, opts, engine.FromConfig)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.sites, "sites", string(catalog.SitesAll), "站点集合 (global, vultr, all)")
	f.StringVar(&opts.region, "region", "", "只测试指定区域的站点")
	f.Float64Var(&opts.timeout, "timeout", 0, "每个阶段的超时秒数，默认使用配置中的 netcheck_timeout_seconds")
	f.StringVarP(&opts.output, "output", "o", "", "把结果写入 JSON 文件")
	return cmd
}

func runNetcheck(ctx context.Context, out io.Writer, e *appEnv, opts netcheckOptions, newRunner runnerFactory) error {
	loc := e.loc()
	sites, err := e.catalog.Sites(catalog.SiteKind(opts.sites))
	if err != nil {
		return err
	}
	sites = catalog.FilterSites(sites, opts.region)
	if len(sites) == 0 {
		return fmt.Errorf("区域 %q 中没有站点", opts.region)
	}

	progress := &consoleProgress{out: out, loc: loc}
	runner, err := newRunner(e.cfg, e.catalog, progress.handle)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, loc.T("netcheck_title"))
	batch, runErr := runner.RunConnectivity(ctx, sites)
	if runErr != nil && !batch.Interrupted {
		return runErr
	}
	fmt.Fprintln(out)
	if batch.Interrupted {
		fmt.Fprintln(out, loc.T("test_interrupted"))
		if len(batch.Results) == 0 {
			fmt.Fprintln(out, loc.T("no_tests_completed"))
			return nil
		}
		fmt.Fprintln(out, loc.T("completed_of", len(batch.Results), batch.Total))
	}

	summary := engine.SummarizeConnectivity(batch.Results)
	fmt.Fprintln(out, loc.T("netcheck_ranking"))
	output.ConnectivityTable(loc, summary, batch.Results).Render(out)
	if summary.Best != nil {
		fmt.Fprintf(out, "\n%s %s (%s) %.1f ms\n", loc.T("netcheck_best"), summary.Best.Label, summary.Best.Host, summary.Best.TotalMs)
	}
	if len(summary.Regions) > 0 {
		fmt.Fprintln(out, loc.T("region_stats"))
		t := output.Table{Headers: []string{loc.T("col_region"), "#", loc.T("col_total")}}
		for _, r := range summary.Regions {
			t.Rows = append(t.Rows, []string{r.Region, fmt.Sprint(r.Count), fmt.Sprintf("%.1f", r.AvgLatencyMs)})
		}
		t.Render(out)
	}

	if opts.output != "" {
		if err := output.WriteConnectivityJSONFile(opts.output, batch.Results); err != nil {
			return err
		}
		fmt.Fprintln(out, loc.T("results_saved", opts.output))
	}
	return nil
}
