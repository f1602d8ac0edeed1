package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/talkincode/toughcrm/config"
	"github.com/talkincode/toughcrm/internal/adminapi"
	"github.com/talkincode/toughcrm/internal/app"
	"github.com/talkincode/toughcrm/internal/webserver"
)

var (
	BuildVersion = "latest"
	BuildTime    = "unknown"
)

var (
	h        = flag.Bool("h", false, "help usage")
	showVer  = flag.Bool("v", false, "show version")
	conffile = flag.String("c", "", "config yaml file")
	initcfg  = flag.Bool("initcfg", false, "write default config > /etc/toughcrm.yml")
)

func printVersion() {
	fmt.Fprintf(os.Stdout, "version:    %s\n", BuildVersion)
	fmt.Fprintf(os.Stdout, "build time: %s\n", BuildTime)
	fmt.Fprintf(os.Stdout, "go:         %s\n", runtime.Version())
}

func printHelp() {
	if *h {
		ustr := fmt.Sprintf("toughcrm version: %s, Usage: toughcrm -h\nOptions:", BuildVersion)
		_, _ = fmt.Fprint(os.Stderr, ustr)
		flag.PrintDefaults()
		os.Exit(0)
	}
}

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())
	flag.Parse()

	if *showVer {
		printVersion()
		os.Exit(0)
	}
	printHelp()

	if *initcfg {
		if err := config.DefaultAppConfig.Save("/etc/toughcrm.yml"); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg := config.LoadConfig(*conffile)
	if cfg.System.Workdir != "" {
		cfg.InitDirs()
	}
	if _, err := app.InitLogger(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}

	application := app.NewApplication(cfg)
	if err := application.Init(); err != nil {
		zap.L().Fatal("application init failed", zap.Error(err))
	}
	defer application.Release()

	srv := webserver.NewServer(cfg)
	adminapi.Init(srv, application)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		zap.S().Info("shutting down web server")
		return srv.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		zap.L().Error("server exited", zap.Error(err))
	}
}
