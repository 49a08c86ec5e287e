package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Black-And-White-Club/clan-sync-bot/app"
	"github.com/Black-And-White-Club/clan-sync-bot/app/httpapi"
	"github.com/Black-And-White-Club/clan-sync-bot/config"
	"github.com/urfave/cli/v2"
)

func main() {
	cliApp := &cli.App{
		Name:  "clan-sync-bot",
		Usage: "synchronize guild roles and nicknames with game accounts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "config.yaml",
				Usage:   "path to the configuration file",
				EnvVars: []string{"CONFIG_FILE"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the reconciliation engine and admin API",
				Action: serve,
			},
			{
				Name:  "token",
				Usage: "issue an admin API token",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "subject", Value: "admin", Usage: "token subject"},
					&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour, Usage: "token lifetime"},
				},
				Action: issueToken,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serve(c *cli.Context) error {
	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	application := &app.App{Config: cfg}
	if err := application.Initialize(ctx); err != nil {
		if application.Observability != nil {
			_ = application.Close()
		}
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	runErr := application.Run(ctx)

	shutdownDone := make(chan error, 1)
	go func() { shutdownDone <- application.Close() }()
	select {
	case err := <-shutdownDone:
		if err != nil {
			log.Printf("shutdown: %v", err)
		}
	case <-time.After(45 * time.Second):
		log.Print("shutdown timed out")
	}
	return runErr
}

func issueToken(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is not configured")
	}
	token, err := httpapi.IssueToken([]byte(cfg.JWT.Secret), c.String("subject"), c.Duration("ttl"))
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

