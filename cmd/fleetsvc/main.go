package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"

	config "github.com/fleetwise/fleet-services/configs"
	"github.com/fleetwise/fleet-services/internal/fleetsvc/audit"
	svcconfig "github.com/fleetwise/fleet-services/internal/fleetsvc/config"
	"github.com/fleetwise/fleet-services/internal/fleetsvc/db"
	handlers "github.com/fleetwise/fleet-services/internal/fleetsvc/handlers"
	"github.com/fleetwise/fleet-services/internal/fleetsvc/resolve"
	"github.com/fleetwise/fleet-services/internal/fleetsvc/service"
	"github.com/fleetwise/fleet-services/internal/fleetsvc/store"
	nats "github.com/fleetwise/fleet-services/internal/nats"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "fleet"

var instanceId string

func init() {
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	cfg := svcconfig.Load()

	// document store connection
	mongoDB, cancelDB, err := db.Connect(cfg.MongoURI)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer cancelDB()
	log.Printf("mongo connection established successfully")

	idxCtx, cancelIdx := context.WithTimeout(context.Background(), 15*time.Second)
	if err := db.EnsureDeviceIndexes(idxCtx, mongoDB); err != nil {
		cancelIdx()
		log.Fatalf("Failed to ensure device indexes: %v", err)
	}
	cancelIdx()

	// Connect to NATS for the best-effort audit trail
	n, err := nats.Connect()
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(0)
	}
	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	auditPub := audit.NewPublisher(n.Conn, SERVICE_NAME)

	refStore := store.NewRefStore(mongoDB)
	resolver := resolve.NewResolver(refStore)

	deviceStore := store.NewDeviceStore(mongoDB)
	deviceService := service.NewDeviceService(deviceStore, resolver)

	vehicleStore := store.NewVehicleStore(mongoDB)
	vehicleService := service.NewVehicleService(vehicleStore, resolver)

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	rateLimitStr := os.Getenv("RATE_LIMIT")
	rateLimit, err := strconv.Atoi(rateLimitStr)
	if err != nil {
		log.Fatalf("Invalid RATE_LIMIT value: %v", err)
	}
	r.Use(httprate.LimitByIP(rateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(deviceService, vehicleService, auditPub)
	h.InitAuth()
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + os.Getenv("FLEET_SERVICE_PORT"),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
