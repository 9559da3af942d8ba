package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pumpwatch.com/internal/monitor"
	"pumpwatch.com/pkg/config"
	"pumpwatch.com/pkg/logger"
)

var (
	flagEndpoint  = flag.String("endpoint", "", "endpoint selection (default: all)")
	flagToken     = flag.String("api-token", "", "API token")
	flagServerURL = flag.String("server-url", "", "Standby server URL")
	flagQuiet     = flag.Bool("quiet", false, "quiet mode (errors and statistics only)")
	flagDebug     = flag.Bool("debug", false, "enable debug logging")
	flagNoSave    = flag.Bool("no-save", false, "disable file logging")
	flagOutput    = flag.String("output-file", "", "output filename")
	flagShowRaw   = flag.Bool("show-raw", false, "enable raw data display")
	flagList      = flag.Bool("list-endpoints", false, "list available endpoints and exit")
	flagCheck     = flag.Bool("config-check", false, "check configuration and exit")
)

func main() {
	flag.Parse()

	if *flagList {
		printEndpoints()
		return
	}

	cfg := monitor.DefaultConfig()
	if _, err := config.LoadAndWatch("pumpwatch", cfg); err != nil {
		fmt.Fprintf(os.Stderr, "❌ load config: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg)
	cfg.Normalize()

	for _, w := range cfg.Warnings() {
		fmt.Printf("⚠️ %s\n", w)
	}
	if err := cfg.Validate(); err != nil {
		// 配置错误是唯一的启动期 fatal
		fmt.Fprintf(os.Stderr, "🔧 Configuration issues:\n%v\n", err)
		os.Exit(1)
	}

	if *flagCheck {
		printSummary(cfg)
		fmt.Println("✅ Configuration is valid!")
		return
	}

	level := "info"
	if cfg.Display.Debug {
		level = "debug"
	}
	logger.Init("pumpwatch", level)
	defer logger.Sync()

	printBanner()
	printSummary(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// debug 口：prometheus metrics + pprof
	var debugSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

		debugSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := debugSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn(ctx, "debug server stopped", zap.Error(err))
			}
		}()
	}

	mon, err := monitor.New(cfg)
	if err != nil {
		logger.Fatal(ctx, "init monitor", zap.Error(err))
	}

	if err := mon.Run(ctx); err != nil {
		logger.Error(ctx, "monitor exited with error", zap.Error(err))
	}

	// 优雅退出：限时关 debug 口
	if debugSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Stream.ShutdownGrace)
		defer cancel()
		_ = debugSrv.Shutdown(shutdownCtx)
	}

	fmt.Println("✅ Monitor stopped gracefully")
}

func applyFlags(cfg *monitor.Config) {
	if *flagEndpoint != "" {
		cfg.Server.Endpoint = *flagEndpoint
	}
	if *flagToken != "" {
		cfg.Server.APIToken = *flagToken
	}
	if *flagServerURL != "" {
		cfg.Server.URL = *flagServerURL
	}
	if *flagQuiet {
		cfg.Display.Quiet = true
	}
	if *flagDebug {
		cfg.Display.Debug = true
	}
	if *flagNoSave {
		cfg.Output.SaveToFile = false
	}
	if *flagOutput != "" {
		cfg.Output.File = *flagOutput
	}
	if *flagShowRaw {
		cfg.Display.ShowRaw = true
	}
}

func printBanner() {
	fmt.Println("======================================================================")
	fmt.Println("🔥 Pump.fun Real-Time Monitor")
	fmt.Println("📈 SSE client for the Standby server")
	fmt.Println("======================================================================")
}

func printSummary(cfg *monitor.Config) {
	fmt.Println("📋 Configuration Summary:")
	fmt.Printf("   📡 Server: %s\n", cfg.Server.URL)
	token := "❌ Missing"
	if cfg.Server.APIToken != "" {
		token = "✓ Configured"
	}
	fmt.Printf("   🔐 API Token: %s\n", token)
	fmt.Printf("   🎯 Endpoint: /%s\n", cfg.Server.Endpoint)
	fmt.Printf("   ⏱️ Timeout: %s\n", cfg.Stream.ConnectTimeout)
	fmt.Println("   🌊 Mode: Server-Sent Events (SSE)")
	if cfg.Output.SaveToFile {
		fmt.Printf("   📁 Data logging: %s\n", cfg.Output.File)
	} else {
		fmt.Println("   📁 Data logging: Disabled")
	}
	if cfg.Display.Quiet {
		fmt.Println("   🔇 Quiet mode: Enabled")
	}
	if cfg.Display.ShowRaw {
		fmt.Println("   📄 Raw data display: Enabled")
	}
	fmt.Println("----------------------------------------------------------------------")
}

func printEndpoints() {
	fmt.Println("🎯 Available Endpoints:")
	names := make([]string, 0, len(monitor.Endpoints))
	for name := range monitor.Endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("   • %s - %s\n", name, monitor.Endpoints[name])
	}
}
