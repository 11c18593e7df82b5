package main

import (
	"database/sql"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/babbittintl/quotecore/internal/catalog"
	"github.com/babbittintl/quotecore/internal/config"
	"github.com/babbittintl/quotecore/internal/db"
	"github.com/babbittintl/quotecore/internal/migrations"
	"github.com/babbittintl/quotecore/internal/quotes"
	"github.com/babbittintl/quotecore/internal/seed"
)

type server struct {
	db     *sql.DB
	ref    *catalog.Reference
	quotes *quotes.Store
}

func main() {
	cfg := config.Load()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	if err := migrations.Up(database, "migrations"); err != nil {
		log.Fatalf("failed to run database migrations: %v", err)
	}

	stats, err := seed.Run(database)
	if err != nil {
		log.Fatalf("failed to seed reference catalog: %v", err)
	}
	if stats.Inserts > 0 {
		log.Printf("seeded %d reference rows", stats.Inserts)
	}

	ref, err := catalog.Load(database)
	if err != nil {
		log.Fatalf("failed to load reference catalog: %v", err)
	}

	srv := &server{db: database, ref: ref, quotes: quotes.NewStore(database)}

	addr := ":" + cfg.Port
	log.Printf("listening on %s", addr)
	if err := http.ListenAndServe(addr, srv.router(cfg.IsDev())); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

// router wires the JSON API. Model codes may contain slashes (LS7000/2), so
// the model detail route uses a catch-all parameter.
func (s *server) router(dev bool) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if dev {
		r.Use(middleware.Logger)
	}

	r.Get("/healthz", s.handleHealth)
	r.Post("/api/quote", s.handlePriceQuote)
	r.Post("/api/spares/resolve", s.handleSpareResolve)
	r.Get("/api/models", s.handleModelsList)
	r.Get("/api/models/*", s.handleModelDetail)
	r.Get("/api/quotes", s.handleQuotesList)
	r.Post("/api/quotes", s.handleQuoteCreate)
	r.Get("/api/quotes/{number}", s.handleQuoteDetail)

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
