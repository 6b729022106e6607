package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/hikoneportal/transit-api/assistant"
	"github.com/hikoneportal/transit-api/config"
	"github.com/hikoneportal/transit-api/handlers"
	"github.com/hikoneportal/transit-api/places"
	"github.com/hikoneportal/transit-api/repository"
	"github.com/hikoneportal/transit-api/transit"
)

func main() {
	// Load base .env first, then .env.local (which overrides for local development)
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local") // Overload forces override of existing values

	cfg := config.Load()
	creds := config.NewResolver()

	// Route cache store: Postgres when DATABASE_URL is set, SQLite otherwise
	var routeCache handlers.RouteCache
	if cfg.DatabaseURL != "" {
		log.Println("Connecting to Postgres route cache")
		repo, err := repository.NewRouteCacheRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize Postgres route cache: %v", err)
		}
		defer repo.Close()
		routeCache = repo
	} else {
		log.Printf("Connecting to SQLite route cache: %s", cfg.SQLitePath)
		sqliteDB, err := repository.NewSQLiteDB(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite route cache: %v", err)
		}
		defer sqliteDB.Close()

		repo, err := repository.NewSQLiteRouteCacheRepository(sqliteDB.GetDB())
		if err != nil {
			log.Fatalf("Failed to initialize route cache repository: %v", err)
		}
		routeCache = repo
	}
	log.Println("Route cache store ready")

	// Provider clients. The two ODPT clients target different hosts on
	// purpose; see config.Config.
	odptSearch := transit.NewODPTClient(cfg.ODPTSearchBaseURL, creds, cfg.ProviderTimeout)
	odptLookup := transit.NewODPTClient(cfg.ODPTLookupBaseURL, creds, cfg.ProviderTimeout)
	ekispert := transit.NewEkispertClient(cfg.EkispertBaseURL, creds, cfg.ProviderTimeout)
	google := transit.NewGoogleDirectionsClient(cfg.GoogleMapsBaseURL, creds, cfg.ProviderTimeout)
	navitime := transit.NewNavitimeClient(cfg.NavitimeBaseURL, cfg.NavitimeRapidHost, creds, cfg.ProviderTimeout)
	placesClient := places.NewClient(cfg.GoogleMapsBaseURL, creds, cfg.ProviderTimeout)

	// Fallback chain in declared priority order
	coordinator := transit.NewCoordinator([]transit.RouteProvider{
		ekispert,
		google,
		navitime,
	}, cfg.ProviderTimeout)

	mascot, err := assistant.New(context.Background(), creds, cfg.GeminiModel)
	if err != nil {
		log.Fatalf("Failed to initialize assistant: %v", err)
	}
	if mascot.MockMode() {
		log.Println("Assistant running with mock replies")
	}

	// Handlers
	stationHandler := handlers.NewStationHandler(odptSearch, odptLookup, ekispert)
	routeHandler := handlers.NewRouteHandler(google, navitime, coordinator, routeCache, cfg.RouteCacheTTL)
	timetableHandler := handlers.NewTimetableHandler(odptLookup, cfg.TimetableCacheSize, cfg.TimetableCacheTTL)
	geocodeHandler := handlers.NewGeocodeHandler(placesClient)
	chatHandler := handlers.NewChatHandler(mascot)

	// Setup router
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	// Health check endpoint with datastore connectivity test
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := routeCache.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":    "error",
				"database":  "disconnected",
				"timestamp": time.Now().UTC(),
				"error":     err.Error(),
			})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    "ok",
			"database":  "connected",
			"timestamp": time.Now().UTC(),
		})
	})

	// Plain liveness endpoint
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Transit routes
	r.Get("/transit/station-search", stationHandler.SearchStations)
	r.Get("/transit/station", stationHandler.LookupStation)
	r.Get("/transit/stations", stationHandler.SuggestStations)
	r.Get("/transit/route", routeHandler.RawRoute)
	r.Get("/transit/navitime-route", routeHandler.NavitimeRoute)
	r.Get("/transit/routes", routeHandler.SearchRoutes)
	r.Get("/transit/timetable", timetableHandler.GetTimetable)

	// Shop directory routes
	r.Post("/geocode", geocodeHandler.Geocode)
	r.Post("/place-photos", geocodeHandler.PlacePhotos)

	// Mascot assistant
	r.Post("/chat", chatHandler.Chat)

	log.Printf("API server starting on :%s", cfg.Port)
	log.Println("Transit endpoints:")
	log.Println("  GET /transit/station-search")
	log.Println("  GET /transit/station")
	log.Println("  GET /transit/stations")
	log.Println("  GET /transit/route")
	log.Println("  GET /transit/navitime-route")
	log.Println("  GET /transit/routes")
	log.Println("  GET /transit/timetable")
	log.Println("Shop endpoints:")
	log.Println("  POST /geocode")
	log.Println("  POST /place-photos")
	log.Println("Assistant:")
	log.Println("  POST /chat")
	log.Println("Health:")
	log.Println("  GET /health (with datastore check)")

	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
