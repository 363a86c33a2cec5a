package main

import (
	"encoding/json"
	"log"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/aj9599/rent-ledger/backend/config"
	"github.com/aj9599/rent-ledger/backend/database"
	"github.com/aj9599/rent-ledger/backend/handlers"
	"github.com/aj9599/rent-ledger/backend/metrics"
	"github.com/aj9599/rent-ledger/backend/services"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("PANIC RECOVERED: %v", err)
				log.Printf("Stack trace: %s", debug.Stack())

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "Internal server error",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s - completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func main() {
	log.Println("Starting Rent Ledger...")
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := config.Load()

	db, err := database.InitDB(cfg.AuditDBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	m := metrics.NewMetrics()
	activity := services.NewActivityLogService(db)

	ledger, err := services.NewLedger(services.Options{
		DataDir:           cfg.DataDir,
		FirstMonth:        cfg.FirstMonth,
		LastMonth:         cfg.LastMonth,
		EnergyRate:        &cfg.EnergyRate,
		SecondFloorOffset: cfg.SecondFloorOffset,
		Activity:          activity,
		Observer:          m,
	})
	if err != nil {
		log.Fatalf("Failed to load ledgers from %s: %v", cfg.DataDir, err)
	}

	receipts := services.NewPDFGenerator(services.PayeeInfo{
		Name:     cfg.PayeeName,
		UPIID:    cfg.PayeeUPIID,
		Currency: cfg.Currency,
	})

	r := NewRouter(ledger, activity, receipts, m)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		Debug:            false,
	})

	server := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      c.Handler(r),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  180 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.ServerAddress)
	log.Printf("Ledger files in %s, activity log in %s", cfg.DataDir, cfg.AuditDBPath)
	log.Println("===========================================")

	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

// NewRouter wires every API route onto a gorilla/mux router.
func NewRouter(ledger *services.Ledger, logs handlers.ActivityLister, receipts *services.PDFGenerator, m *metrics.Metrics) *mux.Router {
	meterHandler := handlers.NewMeterHandler(ledger)
	rentHandler := handlers.NewRentHandler(ledger, receipts)
	tenantHandler := handlers.NewTenantHandler(ledger)
	dashboardHandler := handlers.NewDashboardHandler(ledger, logs)
	exportHandler := handlers.NewExportHandler(ledger)

	r := mux.NewRouter()

	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)
	r.Use(m.Middleware)

	r.HandleFunc("/api/health", healthCheck).Methods("GET")
	r.Handle("/metrics", m.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/meters/{series}", meterHandler.List).Methods("GET")
	api.HandleFunc("/meters/{series}", meterHandler.Update).Methods("POST")
	api.HandleFunc("/meters/{series}/{month}", meterHandler.Get).Methods("GET")

	api.HandleFunc("/months", meterHandler.Months).Methods("GET")
	api.HandleFunc("/months/next", meterHandler.NextMonth).Methods("GET")
	api.HandleFunc("/months/{month}/exists", meterHandler.MonthExists).Methods("GET")

	api.HandleFunc("/rent/{month}", rentHandler.ListMonth).Methods("GET")
	api.HandleFunc("/rent/{month}/generate", rentHandler.Generate).Methods("POST")
	api.HandleFunc("/rent/{month}/{tenant}", rentHandler.Get).Methods("GET")
	api.HandleFunc("/rent/{month}/{tenant}", rentHandler.Adjust).Methods("PUT")
	api.HandleFunc("/rent/{month}/{tenant}/paid", rentHandler.MarkPaid).Methods("POST")
	api.HandleFunc("/rent/{month}/{tenant}/receipt", rentHandler.Receipt).Methods("GET")

	api.HandleFunc("/tenants", tenantHandler.List).Methods("GET")
	api.HandleFunc("/tenants/{tenant}", tenantHandler.Get).Methods("GET")
	api.HandleFunc("/tenants/{tenant}", tenantHandler.Update).Methods("PUT")

	api.HandleFunc("/dashboard", dashboardHandler.GetDashboard).Methods("GET")
	api.HandleFunc("/logs", dashboardHandler.GetLogs).Methods("GET")
	api.HandleFunc("/export", exportHandler.ExportData).Methods("GET")

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}
