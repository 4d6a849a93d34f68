package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"vastra_back_end/internal/audit"
	"vastra_back_end/internal/auth"
	"vastra_back_end/internal/cache"
	"vastra_back_end/internal/config"
	"vastra_back_end/internal/database"
	"vastra_back_end/internal/gateway"
	"vastra_back_end/internal/handlers"
	"vastra_back_end/internal/handlers/admin"
	"vastra_back_end/internal/handlers/payment"
	"vastra_back_end/internal/handlers/product"
	"vastra_back_end/internal/handlers/user"
	"vastra_back_end/internal/notify"
	"vastra_back_end/internal/pricing"
	"vastra_back_end/internal/realtime"
	"vastra_back_end/internal/routes"
	"vastra_back_end/internal/search"
	"vastra_back_end/internal/services/account"
	"vastra_back_end/internal/services/catalog"
	"vastra_back_end/internal/services/orders"
	paymentsvc "vastra_back_end/internal/services/payment"
	"vastra_back_end/internal/storage"
	"vastra_back_end/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Configuration invalide: %v", err)
	}

	dbs, err := database.ConnectDatabases(cfg)
	if err != nil {
		log.Fatalf("❌ Connexion aux bases impossible: %v", err)
	}
	defer dbs.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Stores et infrastructure
	products := store.NewMongoProducts(dbs.Mongo)
	ordersStore := store.NewMongoOrders(dbs.Mongo)
	users := store.NewMongoUsers(dbs.Mongo)
	rc := cache.New(dbs.Redis)

	var recorder audit.Recorder = audit.LogRecorder{}
	var auditReader admin.AuditReader
	if dbs.Scylla != nil {
		scylla := audit.NewScyllaRecorder(dbs.Scylla)
		if err := scylla.EnsureSchema(); err != nil {
			log.Printf("⚠️ Schéma audit ScyllaDB: %v", err)
		} else {
			recorder = scylla
			auditReader = scylla
		}
	}

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.SMTPHost != "" {
		notifier = notify.NewMailer(cfg)
		log.Println("✅ Envoi d'e-mails activé")
	}

	hub := realtime.NewHub(dbs.Redis, cfg.CORSOrigins)
	index := search.NewIndex(dbs.Elastic)
	images := storage.NewImageStore(dbs.MinIO, cfg.MinioBucket, cfg.MinioUseSSL)

	// Passerelles de paiement
	var gws []gateway.Gateway
	var webhooks paymentsvc.WebhookParser
	if cfg.RazorpayKeyID != "" && cfg.RazorpayKeySecret != "" {
		gws = append(gws, gateway.NewRazorpay(cfg.RazorpayKeyID, cfg.RazorpayKeySecret))
		log.Println("✅ Razorpay initialisé")
	}
	if cfg.StripeSecretKey != "" {
		st := gateway.NewStripe(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
		gws = append(gws, st)
		webhooks = st
		log.Println("✅ Stripe initialisé")
	}
	if len(gws) == 0 {
		log.Println("⚠️ Aucune passerelle de paiement configurée, seul le COD est disponible")
	}
	registry := gateway.NewRegistry(gws...)

	// Services
	policy := pricing.NewPolicy(cfg.FreeShippingThreshold, cfg.ShippingFlatFee)
	orderSvc := orders.New(orders.Deps{
		Orders:     ordersStore,
		Products:   products,
		Users:      users,
		Policy:     policy,
		Gateways:   registry,
		Notifier:   notifier,
		Publisher:  hub,
		Audit:      recorder,
		PendingTTL: cfg.PendingOrderTTL,
	})
	paySvc := paymentsvc.New(paymentsvc.Deps{
		Orders:         ordersStore,
		Lifecycle:      orderSvc,
		Gateways:       registry,
		Webhooks:       webhooks,
		Locker:         rc,
		Audit:          recorder,
		RazorpaySecret: cfg.RazorpayKeySecret,
		Currency:       cfg.Currency,
		UPIVPA:         cfg.StoreUPIVPA,
		StoreName:      cfg.StoreName,
	})
	accountSvc := account.New(users, ordersStore, products, rc)
	catalogSvc := catalog.New(products, index, images, policy, recorder)

	tokens := auth.NewTokens(cfg.JWTSecret)
	resolver := auth.NewResolver(users, rc)
	accounts := auth.NewService(users, tokens, recorder)
	auth.InitOAuthProviders(cfg)

	go orderSvc.RunSweeper(ctx, cfg.PendingSweepInterval)

	// Routeur
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Stripe-Signature"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Deps{
		Tokens:   tokens,
		Resolver: resolver,
		Limiter:  rc,
		Audit:    recorder,
		Health: map[string]handlers.Pinger{
			"mongo": func(ctx context.Context) error { return dbs.MongoClient.Ping(ctx, nil) },
			"redis": func(ctx context.Context) error { return dbs.Redis.Ping(ctx).Err() },
		},
		Auth:     &user.Auth{Accounts: accounts},
		Orders:   &user.Orders{Orders: orderSvc, Live: hub, QR: paySvc},
		Account:  &user.Account{Account: accountSvc},
		Products: &product.Handler{Catalog: catalogSvc},
		Payments: &payment.Handler{Payments: paySvc},
		Admin: &admin.Handler{
			Orders:   orderSvc,
			Payments: paySvc,
			Catalog:  catalogSvc,
			Account:  accountSvc,
			Audit:    auditReader,
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Println("🚀 Serveur Vastra lancé sur le port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Serveur arrêté: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Arrêt du serveur...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Arrêt forcé: %v", err)
	}
}
