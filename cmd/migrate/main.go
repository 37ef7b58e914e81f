package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ignite/person-registry/internal/config"
	"github.com/ignite/person-registry/internal/pkg/logger"
	"github.com/ignite/person-registry/internal/repository/postgres"

	_ "github.com/lib/pq"
)

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	listOnly := false
	for _, a := range os.Args[1:] {
		if a == "--list" {
			listOnly = true
		}
	}

	dbCfg := config.DatabaseConfig{URL: dsn, ConnectTimeoutSeconds: 5}
	db, err := sql.Open("postgres", dbCfg.DSN())
	if err != nil {
		logger.Error("connect failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("ping failed", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	if listOnly {
		if err := printColumns(ctx, db, os.Stdout); err != nil {
			logger.Error("describe schema failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := postgres.EnsureSchema(ctx, db); err != nil {
		logger.Error("schema provisioning failed", "error", err)
		os.Exit(1)
	}
	logger.Info("schema provisioned", "table", postgres.TableName)
}

func printColumns(ctx context.Context, db *sql.DB, w io.Writer) error {
	cols, err := postgres.DescribeSchema(ctx, db)
	if err != nil {
		return err
	}
	for _, c := range cols {
		null := "NOT NULL"
		if c.Nullable {
			null = "NULL"
		}
		fmt.Fprintf(w, "  %-12s %-28s %s\n", c.Name, c.DataType, null)
	}
	fmt.Fprintf(w, "Total: %d columns in %s\n", len(cols), postgres.TableName)
	return nil
}
