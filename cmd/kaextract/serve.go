package main

import (
	"github.com/spf13/cobra"

	"github.com/byteowlz/kaextract/internal/server"
	adextract "github.com/byteowlz/kaextract/pkg/extractor"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the extraction API (/api/extract, /health)",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "listen address, default from config")
}

func runServe(cmd *cobra.Command, args []string) error {
	opts := server.DefaultOptions()
	opts.Addr = cfg.Server.Addr
	if listenAddr != "" {
		opts.Addr = listenAddr
	}
	opts.ResponseTimeout = cfg.Server.ResponseTimeout()

	srv := server.New(adextract.New(cfg), opts)
	if err := srv.Listen(); err != nil {
		return exitError(ExitNetworkError, "%v", err)
	}

	if err := srv.Run(cmd.Context(), cfg.Server.ShutdownTimeout()); err != nil {
		return exitError(ExitNetworkError, "%v", err)
	}
	return nil
}
