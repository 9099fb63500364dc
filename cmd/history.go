package main

import (
	"Global_SpeedTest_Go/internal/output"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newHistoryCmd(env func(*cobra.Command) (*appEnv, error)) *cobra.Command {
	var limit int
	var key string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "查看保存的测试历史",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := env(cmd)
			if err != nil {
				return err
			}
			return showHistory(cmd, cmd.OutOrStdout(), e, key, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "最多显示的记录数")
	cmd.Flags().StringVar(&key, "key", "", "只显示指定服务器的成功记录")
	return cmd
}

func showHistory(cmd *cobra.Command, out io.Writer, e *appEnv, key string, limit int) error {
	loc := e.loc()
	store, err := e.openHistory()
	if err != nil {
		return err
	}
	if store == nil {
		fmt.Fprintln(out, loc.T("history_empty"))
		return nil
	}
	defer store.Close()

	if key != "" {
		results, err := store.ServerHistory(cmd.Context(), key, limit)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Fprintln(out, loc.T("history_empty"))
			return nil
		}
		return output.ResultsTable(loc, results).Render(out)
	}

	runs, err := store.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, loc.T("history_empty"))
		return nil
	}
	for _, run := range runs {
		status := loc.T("ok")
		if run.Interrupted {
			status = loc.T("test_interrupted")
		}
		fmt.Fprintf(out, "%s  %s  %d/%d  %s\n",
			run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.RunID, len(run.Results), run.Total, status)
		output.ResultsTable(loc, run.Results).Render(out)
		fmt.Fprintln(out)
	}
	return nil
}
