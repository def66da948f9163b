package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"habitpet/internal/bot"
	"habitpet/internal/config"
	"habitpet/internal/core"
	"habitpet/internal/incubator"
	"habitpet/internal/inventory"
	"habitpet/internal/missions"
	"habitpet/internal/rewards"
	"habitpet/internal/slot"
	"habitpet/internal/store"
	"habitpet/internal/web"
)

func main() {
	configPath := flag.String("config", "habitpet.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Println("Initializing database...")
	db, err := store.NewStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	state, err := db.LoadState()
	if err != nil {
		log.Fatalf("Failed to load state: %v", err)
	}

	bus := core.NewBus()
	service := core.NewService(state, db, bus)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	inv, err := inventory.Load(db, store.InventoryKey)
	if err != nil {
		log.Fatalf("Failed to load inventory: %v", err)
	}

	tracker, err := missions.Load(db, inv, rng)
	if err != nil {
		log.Fatalf("Failed to load missions: %v", err)
	}
	tracker.Attach(bus)

	granter, err := rewards.Load(db, inv, rng)
	if err != nil {
		log.Fatalf("Failed to load rewards: %v", err)
	}
	granter.Attach(bus)

	inc, err := incubator.Load(db, inv)
	if err != nil {
		log.Fatalf("Failed to load incubator: %v", err)
	}
	inc.Attach(bus)

	machine := slot.New(inv, rng)

	log.Println("Initializing web server...")
	server, err := web.NewServer(web.Deps{
		Service:   service,
		Inventory: inv,
		Missions:  tracker,
		Slot:      machine,
		Incubator: inc,
	}, cfg.SessionSecret, cfg.LocalesDir, cfg.TemplatesDir, cfg.DefaultLocale)
	if err != nil {
		log.Fatalf("Failed to initialize web server: %v", err)
	}

	var telegramBot *bot.Bot
	if cfg.BotToken != "" {
		log.Println("Initializing Telegram bot...")
		telegramBot, err = bot.NewBot(cfg.BotToken, service, inv, tracker, server.Translator())
		if err != nil {
			log.Printf("Warning: Failed to initialize Telegram bot: %v", err)
			log.Println("Continuing without Telegram bot...")
			telegramBot = nil
		} else {
			go telegramBot.Start()
		}
	} else {
		log.Println("Bot token not set, Telegram bot will not be started")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	service.StartMidnightWorker(ctx)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting HTTP server on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("Received signal %v, initiating graceful shutdown...", sig)

	cancel()
	if telegramBot != nil {
		telegramBot.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}

	log.Println("Shutdown complete")
}
