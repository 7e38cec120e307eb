package main

import (
	"os"
	"time"

	"ringback/automation"
	"ringback/config"
	dbpkg "ringback/db"
	"ringback/middleware"
	"ringback/router"
	"ringback/tools"
	"ringback/workers"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := "config.json"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg := config.Get(configPath)

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	dbpkg.SetConfigurations(cfg)
	db, err := dbpkg.Connect()
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	backend := tools.NewBackendClient(cfg.Remote.BaseURL, cfg.Remote.BearerToken)

	grace := time.Duration(cfg.Automation.GraceWindowSeconds) * time.Second
	sync, err := automation.NewSynchronizer(db, backend, grace, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("config synchronizer init failed")
	}

	ledger := automation.NewLedger(db, cfg.Automation.LedgerSize, log.Logger)

	creds := automation.StaticCredentials{ID: cfg.Remote.UserID}
	tokens := automation.NewTokenManager(db, backend, creds, sync.DeviceID(), cfg.Remote.ChatBaseURL, log.Logger)

	contacts := automation.StaticContactSource{
		Permission: cfg.Contacts.Granted,
		Contacts:   []automation.Contact{{DisplayName: "saved", PhoneNumbers: cfg.Contacts.Numbers}},
	}
	filter := automation.NewContactFilter(contacts, cfg.Automation.CountryCode, log.Logger)

	dispatcher := automation.NewDispatcher(log.Logger,
		automation.NewGatewayChannel(cfg.Delivery.GatewayURL),
		automation.NewRelayChannel(cfg.Delivery.RelayURL),
	)

	orchestrator := automation.NewOrchestrator(sync, filter, ledger, tokens, dispatcher, cfg.Automation.QueueSize, log.Logger)
	orchestrator.Start()
	defer orchestrator.Stop()

	workers.StartReconciler(sync, ledger, time.Duration(cfg.Automation.ReconcileSeconds)*time.Second)

	services := &automation.Services{
		Sync:         sync,
		Ledger:       ledger,
		Tokens:       tokens,
		Orchestrator: orchestrator,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())
	r.Use(dbpkg.SetDBtoContext(db))
	r.Use(automation.SetToContext(services))

	router.Initialize(r)

	log.Info().Str("port", cfg.ApiPort).Msg("ringback listening")
	if err := r.Run(":" + cfg.ApiPort); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
