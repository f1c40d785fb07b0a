package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"

	config "github.com/fleetwise/fleet-services/configs"
	"github.com/fleetwise/fleet-services/internal/auditsvc/db"
	"github.com/fleetwise/fleet-services/internal/auditsvc/handlers"
	"github.com/fleetwise/fleet-services/internal/auditsvc/store"
	"github.com/fleetwise/fleet-services/internal/comm"
	"github.com/fleetwise/fleet-services/internal/fleetsvc/audit"
	natscli "github.com/fleetwise/fleet-services/internal/nats"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "audit"

var instanceId string

func init() {
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	// pg connection
	dbpool, err := db.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.ClosePool()
	log.Printf("pg connection established successfully")

	auditStore := store.NewAuditStore(dbpool)

	// NATS connection
	n, err := natscli.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer n.Conn.Close()
	log.Infof("NATS connected at %s", n.Url)

	// ----------------------------------------------------------------
	// Persist every audit event fleetsvc publishes. The trail is best
	// effort end to end: a bad event is dropped with a log line, never
	// bounced back to the producer.
	sub, err := n.Conn.Subscribe(audit.Subject, func(m *nats.Msg) {
		handleEvent(auditStore, m)
	})
	if err != nil {
		log.Fatalf("Subscribe %s error: %v", audit.Subject, err)
	}

	// Setup router for the read surface (recent events, health)
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
	h := handlers.NewHandler(auditStore)
	h.InitAuth()
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + os.Getenv("AUDIT_SERVICE_PORT"),
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

	sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}

func handleEvent(auditStore *store.AuditStore, msg *nats.Msg) {
	var ev comm.AuditEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		log.Errorf("invalid AuditEvent: %v", err)
		return
	}
	if ev.Resource == "" || ev.Action == "" {
		log.Warnf("audit event missing resource or action, dropped")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id, err := auditStore.Insert(ctx, ev)
	if err != nil {
		log.Errorf("persist audit event: %v", err)
		return
	}

	log.Debugf("audit event %d stored: %s %s %s", id, ev.Service, ev.Resource, ev.Action)
}
