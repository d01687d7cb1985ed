package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crazynala/axisprod/internal/coverage"
	"github.com/crazynala/axisprod/internal/risk"
	"github.com/crazynala/axisprod/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		evaluator, err := newEvaluator(ctx, st)
		if err != nil {
			return err
		}

		router := newRouter(st, evaluator, newRiskBuilder(), cfg.Server.AllowedOrigins)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}

		// Graceful shutdown. The signal context is already canceled here,
		// so drain on a fresh timeout instead.
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown incomplete", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// newRouter builds the dashboard API. Every assembly endpoint evaluates
// fresh from the store; nothing is served from stale evaluation runs.
func newRouter(st store.Store, evaluator *coverage.Evaluator, builder *risk.Builder, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/assemblies", func(w http.ResponseWriter, req *http.Request) {
			assemblies, err := st.ListAssemblies(req.Context(), store.AssemblyFilter{JobID: req.URL.Query().Get("job")})
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, assemblies)
		})

		r.Route("/assemblies/{assemblyID}", func(r chi.Router) {
			evaluate := func(req *http.Request) (*assemblyResult, error) {
				id := chi.URLParam(req, "assemblyID")
				return evaluateAssembly(req.Context(), st, evaluator, builder, id, time.Now())
			}

			r.Get("/stages", func(w http.ResponseWriter, req *http.Request) {
				result, err := evaluate(req)
				if err != nil {
					writeError(w, err)
					return
				}
				writeJSON(w, http.StatusOK, map[string]any{
					"assembly": result.Assembly,
					"rows":     result.Rows,
				})
			})

			r.Get("/coverage", func(w http.ResponseWriter, req *http.Request) {
				result, err := evaluate(req)
				if err != nil {
					writeError(w, err)
					return
				}
				writeJSON(w, http.StatusOK, result.Coverage)
			})

			r.Get("/risk", func(w http.ResponseWriter, req *http.Request) {
				result, err := evaluate(req)
				if err != nil {
					writeError(w, err)
					return
				}
				writeJSON(w, http.StatusOK, result.Signals)
			})
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, pgx.ErrNoRows) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "assembly not found"})
		return
	}
	zap.L().Error("request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
