// Command schema creates or drops every table the application uses.
//
//	schema create
//	schema drop
package main

import (
	"context"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"github.com/a3888968/wiseguide-backend/internal/config"
	"github.com/a3888968/wiseguide-backend/internal/repository"
	"github.com/a3888968/wiseguide-backend/internal/store"
)

func main() {
	if len(os.Args) != 2 || (os.Args[1] != "create" && os.Args[1] != "drop") {
		fmt.Fprintln(os.Stderr, "usage: schema <create|drop>")
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		logger.Fatal("failed to load AWS config", zap.Error(err))
	}
	db := store.NewDynamo(dynamodb.NewFromConfig(awsCfg), logger)
	tables := repository.Tables{Prefix: cfg.TablePrefix}

	for _, schema := range tables.Schemas() {
		switch os.Args[1] {
		case "create":
			logger.Info("creating table", zap.String("table", schema.Name))
			if err := db.CreateTable(ctx, schema); err != nil {
				logger.Fatal("failed to create table", zap.String("table", schema.Name), zap.Error(err))
			}
		case "drop":
			logger.Info("dropping table", zap.String("table", schema.Name))
			if err := db.DeleteTable(ctx, schema.Name); err != nil {
				logger.Fatal("failed to drop table", zap.String("table", schema.Name), zap.Error(err))
			}
		}
	}
	logger.Info("done")
}
