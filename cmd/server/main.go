/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the filing engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (optional) and parse command-line flags
  2. Initialize SQLite store
  3. Build the tax configuration (default constants or a rate table file)
  4. Wire the submission gateway with the HMAC signer
  5. Assemble the filing service and API handler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port        HTTP server port (default: 8080)
  -db          SQLite database path (default: filings.db)
               Use ":memory:" for in-memory database
  -year        Tax year for the default rate constants (default: 2024)
  -rates       Optional rate table JSON file overriding the defaults
  -gateway     Base URL of the external e-filing endpoint

ENVIRONMENT:
  EFILE_SIGNING_SECRET   HMAC secret for wire payload signatures (required)
  EFILE_GATEWAY_URL      Gateway base URL (flag takes precedence)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database and the built-in 2024 constants
  EFILE_SIGNING_SECRET=dev ./server -db="./data/filings.db"

  # Run with a published rate table
  EFILE_SIGNING_SECRET=dev ./server -rates=./rates/2024.json

SEE ALSO:
  - api/server.go: Router configuration
  - factory/ratetable.go: Rate table parsing
  - efile/gateway.go: Gateway implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/warp/filing-engine/api"
	"github.com/warp/filing-engine/efile"
	"github.com/warp/filing-engine/factory"
	"github.com/warp/filing-engine/filing"
	"github.com/warp/filing-engine/form940"
	"github.com/warp/filing-engine/form941"
	"github.com/warp/filing-engine/store/sqlite"
)

func main() {
	// .env is optional; real deployments inject environment directly.
	_ = godotenv.Load()

	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "filings.db", "SQLite database path")
	taxYear := flag.Int("year", 2024, "tax year for the default rate constants")
	ratesPath := flag.String("rates", "", "rate table JSON file (overrides -year defaults)")
	gatewayURL := flag.String("gateway", os.Getenv("EFILE_GATEWAY_URL"), "e-filing gateway base URL")
	flag.Parse()

	secret := os.Getenv("EFILE_SIGNING_SECRET")
	if secret == "" {
		log.Fatal("EFILE_SIGNING_SECRET must be set")
	}
	if *gatewayURL == "" {
		log.Fatal("gateway base URL required (-gateway flag or EFILE_GATEWAY_URL)")
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Tax configuration: built-in constants, or a published rate table
	cfg := filing.DefaultTaxConfig(*taxYear)
	if *ratesPath != "" {
		data, err := os.ReadFile(*ratesPath)
		if err != nil {
			log.Fatalf("Failed to read rate table: %v", err)
		}
		if cfg, err = factory.ParseRateTable(data); err != nil {
			log.Fatalf("Failed to parse rate table: %v", err)
		}
	}

	// Gateway with HMAC payload signing
	signer, err := efile.NewHMACSigner(secret)
	if err != nil {
		log.Fatalf("Failed to create signer: %v", err)
	}
	gateway := efile.NewGateway(*gatewayURL, signer)

	// Filing service with both form families registered
	service := filing.NewFilingService(cfg, store, store, store, gateway,
		form941.New(cfg), form940.New(cfg))

	// Create router
	handler := api.NewHandler(service, store)
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Filing engine listening on http://localhost:%d (tax year %d)", *port, cfg.Year)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
