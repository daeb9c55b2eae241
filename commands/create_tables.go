package commands

import (
	"context"
	"time"

	"brandmatch_server/services"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var createTablesCmd = &cobra.Command{
	Use:   "create-tables",
	Short: "Create the DynamoDB tables and indexes",
	Long:  `Creates every table and GSI the server uses. Existing tables are left untouched.`,
	Args:  cobra.NoArgs,
	RunE:  runCreateTables,
}

func runCreateTables(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	client, err := services.InitializeDynamoDBClient(ctx, cfg.AWS)
	if err != nil {
		return err
	}
	dynamo := services.NewDynamoService(client, logger)
	if err := dynamo.CreateTables(ctx); err != nil {
		return err
	}
	logger.Info("tables ready", zap.Int("count", len(services.TableDefinitions())))
	return nil
}
