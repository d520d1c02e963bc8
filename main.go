package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"threadsctl/domain/model"
	"threadsctl/domain/repository"
	"threadsctl/infrastructure/clients/threads"
	"threadsctl/infrastructure/configuration"
	"threadsctl/infrastructure/logger"
	"threadsctl/infrastructure/persistence"
	"threadsctl/interfaces/cli"
	"threadsctl/usecase"

	"github.com/pkg/browser"
)

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
		fmt.Fprintln(os.Stderr, "Fatal:", err)
		os.Exit(2)
	}
}

func main() {
	defer recoverPanic()

	// Load env from files (non-destructive; OS env still has precedence)
	configuration.LoadEnvFromFile("config.env", ".env")
	configuration.LoadConfig()
	logger.ApplyEnv()
	conf := configuration.C.Threads

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// stdout is reserved for command results
	browser.Stdout = os.Stderr

	store := credentialStore(configuration.C)
	client := threads.NewClient(conf.BaseURL(), threads.WithObserver(func(msg string) {
		fmt.Fprintln(os.Stderr, msg)
	}))
	tokens := threads.NewTokenClient(conf.GraphURL, nil)

	auth := usecase.NewAuthUsecase(usecase.AuthConfig{
		AuthURL:         conf.AuthURL,
		TokenURL:        conf.GraphURL + "/oauth/access_token",
		Scopes:          conf.Scopes,
		TLS:             conf.TLS,
		CallbackTimeout: conf.CallbackTimeout,
	}, store, tokens,
		usecase.WithBrowserOpener(browser.OpenURL),
		usecase.WithPrompt(os.Stderr),
	)
	publish := usecase.NewPublishUsecase(client, usecase.WithProgress(func(msg string) {
		fmt.Fprintln(os.Stderr, msg)
	}))

	app := cli.NewApp(cli.Deps{
		Auth:    auth,
		Publish: publish,
		Threads: usecase.NewThreadsUsecase(client, store),
		Store:   store,
		Defaults: cli.Defaults{
			AppID:        conf.AppID,
			AppSecret:    conf.AppSecret,
			RedirectPort: conf.RedirectPort,
		},
	})
	code := app.Run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func credentialStore(c configuration.Config) repository.ICredentialStore {
	overrides := model.Credentials{
		AppID:       os.Getenv("THREADS_APP_ID"),
		AppSecret:   os.Getenv("THREADS_APP_SECRET"),
		AccessToken: os.Getenv("THREADS_ACCESS_TOKEN"),
		UserID:      os.Getenv("THREADS_USER_ID"),
	}
	if c.Threads.CredentialBackend == "redis" {
		r := c.RedisClient
		client := persistence.NewRedisClient(net.JoinHostPort(r.Host, r.Port), r.Username, r.Password, r.DB)
		logger.GetLogger().WithField("key", r.Key).Debug("Using redis credential store")
		return persistence.NewRedisCredentialRepository(client, r.Key, overrides)
	}
	logger.GetLogger().WithField("path", c.Threads.CredentialsFile).Debug("Using file credential store")
	return persistence.NewCredentialRepository(c.Threads.CredentialsFile, overrides)
}
