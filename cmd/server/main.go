package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stgrky/d2d-sales-calculator/internal/archive"
	"github.com/stgrky/d2d-sales-calculator/internal/config"
	"github.com/stgrky/d2d-sales-calculator/internal/db"
	"github.com/stgrky/d2d-sales-calculator/internal/document"
	"github.com/stgrky/d2d-sales-calculator/internal/metrics"
	"github.com/stgrky/d2d-sales-calculator/internal/migrations"
	"github.com/stgrky/d2d-sales-calculator/internal/partner"
	"github.com/stgrky/d2d-sales-calculator/internal/seed"
	"github.com/stgrky/d2d-sales-calculator/internal/session"
	"github.com/stgrky/d2d-sales-calculator/internal/store"
)

type server struct {
	partners   *partner.Directory
	store      store.Store
	sessions   *session.Registry
	docs       document.Generator
	archive    archive.Archiver
	metrics    *metrics.Metrics
	adminToken string
}

func main() {
	cfg := config.Load()
	ctx := context.Background()

	database, err := db.Open(ctx, cfg.DBDriver, cfg.DSN())
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	if cfg.MigrateOnStart {
		if err := migrations.Up(database, cfg.DBDriver); err != nil {
			log.Fatalf("failed to run database migrations: %v", err)
		}
	}

	stats, err := seed.Run(database, seed.Config{Dialect: cfg.DBDriver, DemoPartner: cfg.SeedDemo})
	if err != nil {
		log.Fatalf("failed to seed database: %v", err)
	}
	log.Printf("seed complete inserts=%d updates=%d", stats.Inserts, stats.Updates)

	var arch archive.Archiver = archive.Nop{}
	if cfg.ArchiveBucket != "" {
		s3Archive, err := archive.NewS3(ctx, cfg.Archive())
		if err != nil {
			log.Fatalf("failed to configure document archive: %v", err)
		}
		arch = s3Archive
		log.Printf("archiving documents bucket=%s", cfg.ArchiveBucket)
	}

	partners := partner.NewDirectory(database, cfg.DBDriver)
	campaign := cfg.Discount
	registry := session.NewRegistry(partners, &campaign)

	srv := &server{
		partners:   partners,
		store:      store.NewSQLStore(database, cfg.DBDriver),
		sessions:   registry,
		docs:       document.NewPDFGenerator(),
		archive:    arch,
		metrics:    metrics.New(registry.Len),
		adminToken: cfg.AdminToken,
	}

	addr := ":" + cfg.Port
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("listening on %s driver=%s discount=%t", addr, cfg.DBDriver, campaign.Active())
	if err := httpServer.ListenAndServe(); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/partners", s.handlePartnersList)
		r.Get("/financing/estimate", s.handleFinancingEstimate)

		r.Post("/sessions", s.handleSessionOpen)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleSessionGet)
			r.Delete("/", s.handleSessionClose)
			r.Put("/configuration", s.handleConfigurationReplace)
			r.Patch("/configuration", s.handleConfigurationPatch)
			r.Post("/sections/{kind}", s.handleSectionAdd)
			r.Put("/sections/{kind}/{index}", s.handleSectionUpdate)
			r.Delete("/sections/{kind}/{index}", s.handleSectionRemove)
			r.Post("/adjustments", s.handleAdjustmentAdd)
			r.Put("/adjustments/{index}", s.handleAdjustmentUpdate)
			r.Delete("/adjustments/{index}", s.handleAdjustmentRemove)
			r.Put("/customer", s.handleCustomerUpdate)
			r.Put("/details", s.handleDetailsUpdate)
			r.Post("/calculate", s.handleCalculate)
			r.Put("/discount", s.handleDiscountToggle)
			r.Post("/save", s.handleSave)
			r.Get("/document", s.handleDocument)
			r.Get("/financing", s.handleSessionFinancing)
			r.Post("/load/{quoteID}", s.handleLoad)
			r.Post("/reset", s.handleReset)
		})

		r.Get("/quotes", s.handleQuotesList)
		r.Get("/quotes/by-number/{number}", s.handleQuoteByNumber)
		r.Get("/quotes/{id}", s.handleQuoteGet)
		r.Get("/quotes/{id}/breakdown", s.handleQuoteBreakdown)

		r.Group(func(r chi.Router) {
			r.Use(s.adminMiddleware)
			r.Get("/admin/stats", s.handleAdminStats)
			r.Delete("/admin/quotes/{id}", s.handleAdminQuoteDelete)
		})
	})
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
