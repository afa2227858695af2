// Package main runs the workout recommendation MCP server over stdio (for
// local Cursor / Claude use). The same MCP server is also mounted on the main
// backend at /mcp over HTTP, so you can use either: stdio (this cmd) or the
// backend URL (no extra deploy).
package main

import (
	"context"
	"flag"
	"log"

	"github.com/thorin/workoutapp/internal/config"
	"github.com/thorin/workoutapp/internal/db"
	"github.com/thorin/workoutapp/internal/exercises"
	"github.com/thorin/workoutapp/internal/workout"
	workoutmcp "github.com/thorin/workoutapp/internal/workout/mcp"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path to TOML config file")
	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         cfg.PostgresHost,
		DBPort:         cfg.PostgresPort,
		DBName:         cfg.PostgresDBName,
		DBUser:         cfg.PostgresUser,
		TracingEnabled: false,
	})
	if err != nil {
		log.Fatalf("db pool: %v", err)
	}
	defer dbPool.Close()

	exercisesRepo := exercises.NewRepo(dbPool)
	workoutService := workout.NewService(workout.NewRepo(dbPool), exercisesRepo)
	server := workoutmcp.NewServer(exercisesRepo, workoutService)

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Fatal(err)
	}
}
