// kelibe — консольный клиент kelibe: вход, регистрация и сессия
// в файловом (по умолчанию) или Redis-хранилище токенов.
//
//	kelibe [--config path] <command> [flags]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pribylovaa/kelibe/internal/config"
	apierrors "github.com/pribylovaa/kelibe/internal/errors"
	"github.com/pribylovaa/kelibe/internal/tokenstore"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	fs := flag.NewFlagSet("kelibe", flag.ExitOnError)
	fs.StringVar(&configPath, "config", "", "path to config file")
	fs.Usage = func() { usage(fs.Output()) }
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	log := setupLogger(cfg.Env, os.Stderr)
	slog.SetDefault(log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg.TokenStore)
	if err != nil {
		log.Error("token_store_open_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	err = run(ctx, newApp(cfg, store, os.Stdout), fs.Args())
	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		usage(os.Stderr)
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "error:", apierrors.Message(err))
		os.Exit(1)
	}
}

// openStore выбирает хранилище по конфигу. Cookie-хранилище живёт только
// в рамках HTTP-обмена и консольному клиенту не подходит.
func openStore(ctx context.Context, cfg config.TokenStoreConfig) (tokenstore.Store, func(), error) {
	switch cfg.Kind {
	case config.StoreFile:
		return tokenstore.NewFile(cfg.FilePath), func() {}, nil
	case config.StoreMemory:
		return tokenstore.NewMemory(), func() {}, nil
	case config.StoreRedis:
		rs, err := tokenstore.NewRedis(ctx, tokenstore.RedisOptions{
			URL:    cfg.RedisURL,
			Prefix: cfg.RedisPrefix,
			Key:    cfg.RedisKey,
			TTL:    cfg.RedisTTL,
		})
		if err != nil {
			return nil, nil, err
		}
		return rs, func() { _ = rs.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("token store %q is not supported by the cli", cfg.Kind)
	}
}

// setupLogger — логи в stderr, stdout остаётся под вывод команд.
func setupLogger(env string, w io.Writer) *slog.Logger {
	switch env {
	case envDev:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelWarn}))
	case envLocal:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}

func usage(w io.Writer) {
	fmt.Fprint(w, `usage: kelibe [--config path] <command> [flags]

commands:
  signup      --email --password [--first-name --last-name]
  verify      --email --otp
  resend-otp  --email
  login       --email [--password]   (or KELIBE_PASSWORD)
  google      --credential
  whoami      [--claims]
  refresh
  validate
  logout
`)
}
