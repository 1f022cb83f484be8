package main

import (
	"context"
	"fmt"
	"os"

	"github.com/expensahq/expensa/pkg/cmd"
	"github.com/expensahq/expensa/pkg/log"
	"github.com/expensahq/expensa/pkg/services"
	"github.com/urfave/cli/v3"
)

// ImportCommand loads a company bootstrap document (company, users,
// rules and flows) into the configured store.
func ImportCommand() *cli.Command {
	return &cli.Command{
		Name:    "import",
		Aliases: []string{"i"},
		Usage:   "Import a company bootstrap document",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Path to the bootstrap JSON document",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("import")

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			data, err := os.ReadFile(command.String("file"))
			if err != nil {
				return fmt.Errorf("failed to read bootstrap document: %w", err)
			}

			importer := services.NewImporter(persistence, logger)

			summary, err := importer.Import(ctx, data)
			if err != nil {
				return err
			}

			logger.InfoContext(ctx, "Import finished",
				"company_id", summary.CompanyID,
				"users", summary.Users,
				"rules", summary.Rules,
				"flows", summary.Flows,
				"steps", summary.Steps)

			return nil
		},
	}
}
