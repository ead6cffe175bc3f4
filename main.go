package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"Storey/internal/auth"
	"Storey/internal/calc/drift"
	"Storey/internal/calc/reformat"
	"Storey/internal/calc/report"
	"Storey/internal/calc/torsion"
	"Storey/internal/check"
	"Storey/internal/config"
	"Storey/internal/engine"
	"Storey/internal/logging"
	"Storey/internal/repo"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var wg sync.WaitGroup

func CORS(mux *mux.Router) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Expose-Headers", "X-Run-ID, X-Sheet")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})
}

// HandleList registers the API routes on mux.
func HandleList(mux *mux.Router, cfg *config.Config, runner *check.Runner, log *zap.Logger) {
	authEnv := &auth.Authenv{
		JWTkey:        []byte(cfg.TokenKey),
		OperatorLogin: cfg.OperatorLogin,
		OperatorHash:  cfg.OperatorPasswordHash,
		Log:           log,
		Insecure:      cfg.TLSCert == "",
	}
	limiter := auth.NewIPRateLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)

	api := mux.PathPrefix("/api").Subrouter()
	api.Use(limiter.LimitMiddleware)
	api.HandleFunc("/login", authEnv.AuthHandler).Methods("POST")

	secureApi := api.PathPrefix("/user").Subrouter()
	secureApi.Use(authEnv.AuthMiddleware)

	driftH := &drift.Handler{Runner: runner, Limit: cfg.DriftLimit}
	torsionH := &torsion.Handler{Runner: runner}
	reformatH := &reformat.Handler{Log: log}
	reportH := &report.Handler{Runner: runner, Limit: cfg.DriftLimit}

	secureApi.HandleFunc("/tools/drift/calc", driftH.Calc).Methods("POST")
	secureApi.HandleFunc("/tools/torsion/calc", torsionH.Calc).Methods("POST")
	secureApi.HandleFunc("/tools/drift/reformat", reformatH.Upload).Methods("POST")
	secureApi.HandleFunc("/tools/report/pdf", reportH.PDF).Methods("POST")
	secureApi.HandleFunc("/tools/report/xlsx", reportH.Workbook).Methods("POST")
	secureApi.HandleFunc("/models/{model}/combos", runner.Combos).Methods("GET")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	if err := cfg.ValidateServer(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	var opener engine.Opener
	if cfg.DatabaseDriver != "" {
		db, err := repo.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("result database unavailable", zap.Error(err))
		}
		defer db.Close()
		opener = db
	} else {
		log.Warn("no result database configured; only inline snapshots can be checked")
	}
	sessions := engine.NewManager(opener, log)
	defer sessions.Close()

	mux := mux.NewRouter()
	HandleList(mux, cfg, check.NewRunner(sessions, log), log)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           CORS(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("starting server", zap.String("addr", cfg.Addr), zap.Bool("tls", cfg.TLSCert != ""))
		var err error
		if cfg.TLSCert != "" {
			err = server.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}
	wg.Wait()
	log.Info("server stopped")
}
