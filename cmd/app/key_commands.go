package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/allisson/robert/cmd/app/commands"
	"github.com/allisson/robert/internal/app"
	"github.com/allisson/robert/internal/config"
	keystoreDomain "github.com/allisson/robert/internal/keystore/domain"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-kms-key",
			Usage: "Generate a local base64key:// KMS key URI for development keystores",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunCreateKMSKey(commands.DefaultIO().Writer, cmd.String("format"))
			},
		},
		{
			Name:  "provision-keys",
			Usage: "Generate missing keystore keys and a window of day keys",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "start",
					Aliases: []string{"s"},
					Usage:   "First day of the window in YYYY-MM-DD format (defaults to today)",
				},
				&cli.IntFlag{
					Name:    "past-days",
					Aliases: []string{"p"},
					Value:   1,
					Usage:   "Days before the start date to provision",
				},
				&cli.IntFlag{
					Name:    "days",
					Aliases: []string{"d"},
					Value:   14,
					Usage:   "Days from the start date to provision",
				},
				&cli.StringFlag{
					Name:  "provider",
					Usage: "Keystore provider to write to: 'file' or 'sql' (defaults to KEYSTORE_PROVIDER)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				credentials := container.KeystoreCredentials()
				if provider := cmd.String("provider"); provider != "" {
					credentials.Provider = provider
				}
				if credentials.Provider == "" {
					credentials.Provider = keystoreDomain.ProviderFile
				}

				provisionUseCase, closeKeeper, err := container.ProvisionUseCase(ctx, credentials)
				if err != nil {
					return err
				}
				defer func() { _ = closeKeeper() }()

				return commands.RunProvisionKeys(
					ctx,
					provisionUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					time.Now(),
					cmd.String("start"),
					int(cmd.Int("past-days")),
					int(cmd.Int("days")),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "create-admin-token",
			Usage: "Generate the operator token guarding the keystore reload endpoint",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())

				tokenService, err := container.AdminTokenService()
				if err != nil {
					return err
				}

				return commands.RunCreateAdminToken(tokenService, commands.DefaultIO().Writer, cmd.String("format"))
			},
		},
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}
