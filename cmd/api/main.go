package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/kanjiarena/kanji-arena/internal/app"
	"github.com/kanjiarena/kanji-arena/internal/config"
)

func main() {
	if os.Getenv("APP_ENV") != "production" {
		envFile := os.Getenv("ENV_FILE")
		if envFile == "" {
			envFile = ".env"
		}
		if err := godotenv.Load(envFile); err != nil {
			log.Printf("no %s loaded: %v", envFile, err)
		}
	}

	loadCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	cfg, err := config.Load(loadCtx)
	cancel()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	instance, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap kanji-arena: %v", err)
	}
	if err := instance.Run(ctx); err != nil {
		log.Fatalf("run kanji-arena: %v", err)
	}
}
