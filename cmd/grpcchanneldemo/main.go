// Command grpcchanneldemo exercises every grpcchannel request shape against
// a configured set of echo services: it loads a YAML configuration file,
// builds one ChannelPool per configured service, issues one unary, one
// unary/stream, one stream/unary, and one stream/stream request against
// each, and logs the results.
//
// Usage:
//
//	grpcchanneldemo --config /etc/grpcchanneldemo/config.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tripwire/grpcchannel"
	"github.com/tripwire/grpcchannel/internal/settingscache"
)

func main() {
	configPath := flag.String("config", "/etc/grpcchanneldemo/config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "grpcchanneldemo: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("config_path", *configPath),
		slog.Int("services", len(cfg.Services)),
		slog.String("log_level", cfg.LogLevel),
	)

	cache, err := settingscache.Open(cfg.SettingsCachePath)
	if err != nil {
		logger.Error("failed to open settings cache", slog.Any("error", err))
		os.Exit(1)
	}
	defer cache.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	forwards := grpcchannel.NewPortForwardPool("", logger)
	defer forwards.Close()

	for name, svcCfg := range cfg.Services {
		pool := buildPool(ctx, name, svcCfg, cfg, cache, forwards, logger)
		runDemo(ctx, name, pool, logger)
		pool.Stop()
	}

	logger.Info("grpcchanneldemo exited cleanly")
}

func buildPool(
	ctx context.Context,
	name string,
	svcCfg ServiceConfig,
	cfg *Config,
	cache *settingscache.Cache,
	forwards *grpcchannel.PortForwardPool,
	logger *slog.Logger,
) *grpcchannel.ChannelPool[echoHandle] {
	base := grpcchannel.StaticServiceSettings{URL: svcCfg.URL}
	settings := grpcchannel.NewCachingServiceSettings(base, cache, logger)

	resolver := grpcchannel.SSHCredentialsResolverFunc(func(_ context.Context, _ string) (grpcchannel.SSHCredentials, error) {
		if svcCfg.SSHPrivateKeyPath != "" {
			key, err := os.ReadFile(svcCfg.SSHPrivateKeyPath)
			if err != nil {
				return grpcchannel.SSHCredentials{}, err
			}
			return grpcchannel.SSHCredentials{PrivateKey: key, Passphrase: svcCfg.SSHPrivateKeyPassphrase}, nil
		}
		return grpcchannel.SSHCredentials{Password: svcCfg.SSHPassword}, nil
	})

	return grpcchannel.New(ctx, settings, echoServiceFactory{name: name}, grpcchannel.Config{
		RequestTimeout: cfg.requestTimeout(),
		PingTimeout:    cfg.pingTimeout(),
		PingInterval:   cfg.pingInterval(),
	},
		grpcchannel.WithLogger[echoHandle](logger),
		grpcchannel.WithPortForwardPool[echoHandle](forwards),
		grpcchannel.WithSSHCredentialsResolver[echoHandle](resolver),
	)
}

func runDemo(ctx context.Context, name string, pool *grpcchannel.ChannelPool[echoHandle], logger *slog.Logger) {
	ch := pool.GetChannel(grpcchannel.Single(int64(os.Getpid())))

	out, err := grpcchannel.NewUnaryRequest[echoHandle, []byte, []byte](ch, []byte("ping")).
		WithRetries(2).
		GetResponse(ctx, echoUnary)
	logResult(logger, name, "unary", out, err)

	streamed, err := grpcchannel.NewUnaryStreamRequest[echoHandle, []byte, []byte](ch, []byte("stream-out")).
		GetStreamedResponse(ctx, 0, echoStreamOut)
	if err != nil {
		logger.Warn("demo request failed", slog.String("service", name), slog.String("shape", "unary-stream"), slog.Any("error", err))
	} else {
		items, err := streamed.ToSlice(ctx)
		logResult(logger, name, "unary-stream", items, err)
	}

	req := grpcchannel.NewStreamedRequestFromSlice([][]byte{[]byte("a"), []byte("b"), []byte("c")})
	out, err = grpcchannel.NewStreamRequest[echoHandle, []byte, []byte](ch, req).GetResponse(ctx, echoStreamIn)
	logResult(logger, name, "stream-unary", out, err)

	req2 := grpcchannel.NewStreamedRequestFromSlice([][]byte{[]byte("x"), []byte("y")})
	streamed2, err := grpcchannel.NewStreamStreamRequest[echoHandle, []byte, []byte](ch, req2).
		GetStreamedResponse(ctx, 0, echoBidi)
	if err != nil {
		logger.Warn("demo request failed", slog.String("service", name), slog.String("shape", "bidi"), slog.Any("error", err))
	} else {
		items, err := streamed2.ToSlice(ctx)
		logResult(logger, name, "bidi", items, err)
	}
}

func logResult(logger *slog.Logger, service, shape string, result any, err error) {
	if err != nil {
		logger.Warn("demo request failed", slog.String("service", service), slog.String("shape", shape), slog.Any("error", err))
		return
	}
	logger.Info("demo request succeeded", slog.String("service", service), slog.String("shape", shape), slog.Any("result", result))
}

// newLogger constructs a *slog.Logger that writes JSON-structured log
// records to stderr at the requested minimum level.
func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
