package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"httpProxy/internal/forwardproxy"
	"httpProxy/internal/logging"
)

func main() {
	var configFile = flag.String("config", "", "optional YAML config file")
	var port = flag.Int("port", 0, "listening port (may also be given as the first argument)")
	var adminPort = flag.Int("admin", -1, "admin server port, 0 disables it")
	var logLevel = flag.String("log-level", "", "DEBUG, INFO, WARN or ERROR")

	flag.Parse()

	conf, err := forwardproxy.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if flag.NArg() > 0 {
		p, err := strconv.Atoi(flag.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "usage: %s [flags] <port>\n", os.Args[0])
			os.Exit(1)
		}
		conf.Server.Port = p
	}
	if *port != 0 {
		conf.Server.Port = *port
	}
	if *adminPort >= 0 {
		conf.Server.AdminPort = *adminPort
	}
	if *logLevel != "" {
		conf.Logger.Level = *logLevel
	}

	if err := conf.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewDefaultLogger(logging.Config{
		Level:  logging.LogLevel(conf.Logger.Level),
		File:   conf.Logger.File,
		Pretty: conf.Logger.Pretty,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	proxy, err := forwardproxy.NewForwardProxy(conf, logger)
	if err != nil {
		logger.Log(logging.LogLevelError, "failed to create proxy: %v", err)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := proxy.Start(ctx); err != nil {
		logger.Log(logging.LogLevelError, "failed to start proxy: %v", err)
		return
	}
}
