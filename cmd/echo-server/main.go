// Command echo-server runs a reactor.TcpServer that echoes every byte it
// receives back to the sender, the Go counterpart of original_source's
// demo/echo_server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tidalcore/reactor"
	"github.com/tidalcore/reactor/internal/config"
	"github.com/tidalcore/reactor/internal/rlog"
)

func main() {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "echo-server",
		Short: "Multi-reactor TCP echo server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			if err := rlog.Init(cfg.Development); err != nil {
				return fmt.Errorf("echo-server: init logging: %w", err)
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
	server, err := reactor.NewTcpServer(cfg.Port)
	if err != nil {
		return fmt.Errorf("echo-server: %w", err)
	}
	server.SetThreadNum(cfg.WorkerCount)
	server.EnableIdleRelease(cfg.IdleTimeoutSecs)
	server.SetConnectedCallback(func(conn *reactor.Connection) {
		rlog.Infof("echo-server: connection %s established (fd %d)", conn.ID(), conn.Fd())
	})
	server.SetMessageCallback(func(conn *reactor.Connection, buf *reactor.Buffer) {
		data := make([]byte, buf.Readable())
		copy(data, buf.ReadPtr())
		buf.AdvanceRead(len(data))
		if err := conn.Send(data); err != nil {
			rlog.Debugf("echo-server: connection %s: send: %v", conn.ID(), err)
		}
	})
	server.SetOuterCloseCallback(func(conn *reactor.Connection) {
		rlog.Infof("echo-server: connection %s closed", conn.ID())
	})

	rlog.Infof("echo-server: listening on port %d with %d workers", cfg.Port, cfg.WorkerCount)
	server.Start()
	return nil
}
