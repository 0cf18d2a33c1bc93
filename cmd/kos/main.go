package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"kos-manager/internal/commands"
	"kos-manager/internal/config"
	"kos-manager/migration"
	_ "kos-manager/migrations"
	"kos-manager/models"
)

type ModelRegistry struct{}

func (r *ModelRegistry) GetModels() map[string]interface{} {
	return models.ModelTypeRegistry
}

func init() {
	migration.GlobalModelRegistry = &ModelRegistry{}
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stderr)

	if err := commands.NewRootCmd(commands.NewApp(cfg, logger)).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
