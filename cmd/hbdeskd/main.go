package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hbimpianti/hbdesk/internal/cli"
)

func main() {
	addr := flag.String("addr", os.Getenv("HBDESKD_ADDR"), "Listen address (default from config, 127.0.0.1:7421)")
	unixPath := flag.String("unix", os.Getenv("HBDESKD_UNIX"), "Listen on unix socket path")
	token := flag.String("token", os.Getenv("HBDESKD_TOKEN"), "Shared token for local auth")
	dbPath := flag.String("db", "", "Database path override (defaults to config)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := cli.DaemonOptions{
		Addr:   *addr,
		Unix:   *unixPath,
		Token:  *token,
		DBPath: *dbPath,
	}

	if err := cli.ServeDaemon(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
