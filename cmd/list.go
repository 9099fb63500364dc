package main

import (
	"Global_SpeedTest_Go/internal/catalog"
	"Global_SpeedTest_Go/internal/output"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newListCmd(env func(*cobra.Command) (*appEnv, error)) *cobra.Command {
	var provider, region string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "列出目录中的服务器",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := env(cmd)
			if err != nil {
				return err
			}
			return listServers(cmd.OutOrStdout(), e, provider, region)
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "只列出指定 provider 的服务器 (hinet, vultr, linode)")
	cmd.Flags().StringVar(&region, "region", "", "只列出指定区域的服务器")
	return cmd
}

func listServers(out io.Writer, e *appEnv, provider, region string) error {
	hint, err := catalog.ParseProvider(provider)
	if err != nil {
		return err
	}
	providers := catalog.SearchOrder
	if hint != "" {
		providers = []catalog.Provider{hint}
	}

	loc := e.loc()
	t := output.Table{Headers: []string{
		loc.T("col_key"), loc.T("col_server"), loc.T("col_host"), "Provider", loc.T("col_region"),
	}}
	for _, p := range providers {
		for _, entry := range e.catalog.Entries(p) {
			if region != "" && entry.Region != region {
				continue
			}
			t.Rows = append(t.Rows, []string{
				entry.Key, entry.Name(loc.Lang()), entry.Host, string(entry.Provider), loc.Region(entry.Region),
			})
		}
	}
	if len(t.Rows) == 0 {
		return fmt.Errorf("没有符合条件的服务器")
	}
	return t.Render(out)
}
