package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lbd-works/gazetteer-cli/internal/gazetteer"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP lookup server over the assembled gazetteer",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, err := gazetteer.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		searcher := gazetteer.NewSearcher(store, cfg.Dedupe.Threshold, cfg.Serve.MaxMatches)

		ttl := time.Duration(cfg.Serve.CacheTTLMins) * time.Minute
		mux := buildMux(store, searcher, cache.New(ttl, 2*ttl))

		port := servePort
		if port == 0 {
			port = cfg.Serve.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// buildMux wires the health and lookup routes over the store.
func buildMux(store gazetteer.Store, searcher *gazetteer.Searcher, lookupCache *cache.Cache) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := store.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /lookup", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		q := gazetteer.Query{
			Name:   r.URL.Query().Get("name"),
			Street: r.URL.Query().Get("street"),
			City:   r.URL.Query().Get("city"),
			State:  r.URL.Query().Get("state"),
			Zip:    r.URL.Query().Get("zip"),
			NAICS:  r.URL.Query().Get("naics"),
		}
		if q.Name == "" {
			http.Error(w, `{"error":"name is required"}`, http.StatusBadRequest)
			return
		}

		key := strings.Join([]string{q.Name, q.Street, q.City, q.State, q.Zip, q.NAICS}, "|")
		if cached, ok := lookupCache.Get(key); ok {
			json.NewEncoder(w).Encode(cached)
			return
		}

		matches, err := searcher.Search(r.Context(), q)
		if err != nil {
			zap.L().Error("lookup failed", zap.String("name", q.Name), zap.Error(err))
			http.Error(w, `{"error":"lookup failed"}`, http.StatusInternalServerError)
			return
		}

		resp := map[string]any{"matches": matches}
		lookupCache.Set(key, resp, cache.DefaultExpiration)
		json.NewEncoder(w).Encode(resp)
	})

	return mux
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
