package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/codetrack/leetcode-bot/src/leetbot/bot"
	"github.com/codetrack/leetcode-bot/src/leetbot/config"
	"github.com/codetrack/leetcode-bot/src/shared/data"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg := config.Load()
	if cfg.Token == "" {
		log.Fatal("DISCORD_TOKEN not set")
	}

	db := data.MustMySQL(cfg.MySQLDSN)
	rdb := data.MustRedis(cfg.RedisURL)

	b, err := bot.New(bot.Config{Token: cfg.Token, DB: db, Redis: rdb})
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}
	if err := b.Start(); err != nil {
		log.Fatalf("Failed to start bot: %v", err)
	}

	log.Println("leetbot is running. Press CTRL-C to exit.")

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	b.Stop()
	log.Println("leetbot stopped gracefully")
}
