package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/knc219-a11y/pension-list/internal/cli"
	"github.com/knc219-a11y/pension-list/internal/client"
	"github.com/knc219-a11y/pension-list/internal/config"
	"github.com/knc219-a11y/pension-list/internal/identity"
	"github.com/knc219-a11y/pension-list/internal/localstate"
	"github.com/knc219-a11y/pension-list/internal/location"
	"github.com/knc219-a11y/pension-list/internal/tui"
)

func main() {
	_ = godotenv.Load()
	cfg := config.LoadClient()

	logger, closeLog := openLog(cfg.LogFile)
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend := client.New(cfg.APIURL, logger)
	resolver := location.Resolver{Namespace: cfg.AppID}
	provider := identity.NewProvider(backend, identity.Options{
		Token:           cfg.Token,
		CredentialsPath: filepath.Join(cfg.Home, "credentials.json"),
	}, logger)

	var once sync.Once
	var signInErr error
	authenticate := func(ctx context.Context) error {
		once.Do(func() { signInErr = provider.Start(ctx) })
		return signInErr
	}
	// Registered first so every later listener sees an authenticated client.
	provider.OnChange(func(id *identity.Identity) {
		if id == nil {
			backend.SetToken("")
			return
		}
		backend.SetToken(id.Token)
	})

	code := cli.Run(ctx, os.Args[1:], cli.Env{
		Backend:      backend,
		Resolver:     resolver,
		Authenticate: authenticate,
		Interactive: func(ctx context.Context) error {
			return runInteractive(ctx, cfg, logger, backend, resolver, provider, authenticate)
		},
	})
	if code != 0 {
		fmt.Fprintln(os.Stderr)
	}
	stop()
	closeLog()
	os.Exit(code)
}

func runInteractive(
	ctx context.Context,
	cfg config.ClientConfig,
	logger *log.Logger,
	backend *client.Client,
	resolver location.Resolver,
	provider *identity.Provider,
	authenticate func(context.Context) error,
) error {
	c := newCore(localstate.Open(filepath.Join(cfg.Home, "state.json")), backend, resolver, provider, logger)
	defer c.Close()

	program := tui.NewProgram(ctx, tui.Deps{
		Rooms:     c.session,
		Items:     c.syncer,
		Mutations: c.gateway,
		Identity:  func() bool { return provider.Current() != nil },
	})
	c.syncer.OnChange(program.ItemsChanged)

	go func() {
		program.IdentityResolved(authenticate(ctx))
	}()

	return program.Run()
}

// openLog sends client logs to a file so the terminal UI stays clean.
func openLog(path string) (*log.Logger, func()) {
	if path == "" {
		return log.New(io.Discard, "", 0), func() {}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return log.New(os.Stderr, "[pension] ", log.LstdFlags), func() {}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return log.New(os.Stderr, "[pension] ", log.LstdFlags), func() {}
	}
	var once sync.Once
	return log.New(f, "[pension] ", log.LstdFlags), func() { once.Do(func() { _ = f.Close() }) }
}
