// Command http-server runs an httpkit.Server with a small demo route
// table, the Go counterpart of original_source's demo/http_server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tidalcore/reactor/httpkit"
	"github.com/tidalcore/reactor/internal/config"
	"github.com/tidalcore/reactor/internal/rlog"
)

func main() {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "http-server",
		Short: "Multi-reactor HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			if err := rlog.Init(cfg.Development); err != nil {
				return fmt.Errorf("http-server: init logging: %w", err)
			}
			return run(cfg)
		},
	}
	config.BindFlags(cmd, v)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.ServerConfig) error {
	server, err := httpkit.NewServer(cfg.Port)
	if err != nil {
		return fmt.Errorf("http-server: %w", err)
	}
	server.SetThreadNum(cfg.WorkerCount)
	if cfg.BaseDir != "" {
		server.SetBaseDir(cfg.BaseDir)
	}

	server.SetGetHandler("/get", func(req *httpkit.Request, resp *httpkit.Response) {
		resp.SetBody(req.Body, "text/plain")
	})
	server.SetPostHandler("/post", func(req *httpkit.Request, resp *httpkit.Response) {
		rlog.Infof("http-server: POST /post, %d byte body", len(req.Body))
	})
	server.SetPutHandler("/put", func(req *httpkit.Request, resp *httpkit.Response) {
		rlog.Infof("http-server: PUT /put, %d byte body", len(req.Body))
	})
	server.SetDeleteHandler("/delete", func(req *httpkit.Request, resp *httpkit.Response) {
		rlog.Infof("http-server: DELETE /delete")
	})

	rlog.Infof("http-server: listening on port %d with %d workers, base dir %q", cfg.Port, cfg.WorkerCount, cfg.BaseDir)
	server.Start()
	return nil
}
