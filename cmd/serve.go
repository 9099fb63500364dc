package main

import (
	"Global_SpeedTest_Go/internal/server"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newServeCmd(env func(*cobra.Command) (*appEnv, error)) *cobra.Command {
	var port int
	var noBrowser bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 Web 界面",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := env(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("port") {
				port = e.cfg.ServerPort
			}
			store, err := e.openHistory()
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}
			s := server.New(e.cfgPath, filepath.Dir(e.cfgPath), e.catalog, e.locales, store)
			return server.Start(cmd.Context(), port, s, !noBrowser)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "监听端口，默认使用配置中的 server_port")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "启动后不自动打开浏览器")
	return cmd
}
