// Package app wires configuration into the running processes: the HTTP API and the event consumers.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/example/pharmacy-storefront/internal/api"
	"github.com/example/pharmacy-storefront/internal/auth"
	"github.com/example/pharmacy-storefront/internal/checkout"
	"github.com/example/pharmacy-storefront/internal/command"
	"github.com/example/pharmacy-storefront/internal/config"
	"github.com/example/pharmacy-storefront/internal/coupon"
	"github.com/example/pharmacy-storefront/internal/domain/cart"
	"github.com/example/pharmacy-storefront/internal/domain/category"
	"github.com/example/pharmacy-storefront/internal/domain/order"
	"github.com/example/pharmacy-storefront/internal/domain/product"
	"github.com/example/pharmacy-storefront/internal/domain/user"
	"github.com/example/pharmacy-storefront/internal/email"
	"github.com/example/pharmacy-storefront/internal/infrastructure/eventbus"
	"github.com/example/pharmacy-storefront/internal/infrastructure/kafka"
	"github.com/example/pharmacy-storefront/internal/infrastructure/redisstore"
	"github.com/example/pharmacy-storefront/internal/infrastructure/store"
	"github.com/example/pharmacy-storefront/internal/notification"
	"github.com/example/pharmacy-storefront/internal/payment"
	"github.com/example/pharmacy-storefront/internal/projection"
	"github.com/example/pharmacy-storefront/internal/query"
	"github.com/example/pharmacy-storefront/internal/report"
)

const ServiceName = "pharmacy-storefront"

// Consumer groups used when the API keeps its own in-memory read models in Kafka mode
const (
	apiProjectorGroup = "pharmacy-api-projector"
	apiNotifierGroup  = "pharmacy-api-notifier"
)

// Services are the event-sourced domain services
type Services struct {
	Products   *product.Service
	Categories *category.Service
	Carts      *cart.Service
	Orders     *order.Service
	Users      *user.Service
}

func NewServices(es store.EventStoreInterface) *Services {
	return &Services{
		Products:   product.NewService(es),
		Categories: category.NewService(es),
		Carts:      cart.NewService(es),
		Orders:     order.NewService(es),
		Users:      user.NewService(es),
	}
}

// NewMailer returns nil when SMTP is not configured
func NewMailer(cfg *config.Config) notification.Mailer {
	if !cfg.EmailEnabled() {
		return nil
	}
	log.Printf("[App] Order confirmations via SMTP %s:%s", cfg.SMTPHost, cfg.SMTPPort)
	return email.NewService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
}

// LoadCoupons reads COUPONS_FILE, or falls back to the built-in catalogue
func LoadCoupons(cfg *config.Config) (*coupon.Catalogue, error) {
	if cfg.CouponsFile == "" {
		return coupon.Defaults(), nil
	}
	c, err := coupon.LoadFile(cfg.CouponsFile)
	if err != nil {
		return nil, fmt.Errorf("load coupons: %w", err)
	}
	return c, nil
}

type subscription struct {
	consumer *kafka.Consumer
	handler  kafka.EventHandler
}

// API is the HTTP service together with everything it owns
type API struct {
	Handler http.Handler

	subscriptions []subscription
	closers       []func() error
	wg            sync.WaitGroup
}

// NewAPI connects every backend named by cfg and builds the router.
// Call Start to begin background consumption and Close on shutdown.
func NewAPI(ctx context.Context, cfg *config.Config) (*API, error) {
	a := &API{}
	built := false
	defer func() {
		if !built {
			a.Close()
		}
	}()

	var (
		pub store.Publisher
		bus *eventbus.Local
	)
	if cfg.KafkaEnabled() {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		a.closers = append(a.closers, producer.Close)
		pub = producer
		log.Printf("[API] Publishing events to Kafka %v topic %s", cfg.KafkaBrokers, cfg.KafkaTopic)
	} else {
		bus = eventbus.NewLocal()
		pub = bus
	}

	stores, err := OpenStores(ctx, cfg, pub)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, stores.Close)

	svc := NewServices(stores.Events)
	projector := projection.NewProjector(stores.Reads)
	notifier := notification.NewHandler(svc.Orders, stores.Reads, NewMailer(cfg))

	switch {
	case bus != nil:
		if cfg.EventStore == config.StoreDynamoDB {
			log.Println("[API] DynamoDB events reach read models through the stream consumers")
		}
		bus.Subscribe("Projector", projector.HandleEvent)
		bus.Subscribe("Notifier", notifier.HandleEvent)
	case !stores.PersistentReads:
		a.subscribe(kafka.NewConsumer("API Projector", cfg.KafkaBrokers, cfg.KafkaTopic, apiProjectorGroup), projector.HandleEvent)
		a.subscribe(kafka.NewConsumer("API Notifier", cfg.KafkaBrokers, cfg.KafkaTopic, apiNotifierGroup), notifier.HandleEvent)
	}

	if !stores.PersistentReads && cfg.EventStore != config.StoreMemory {
		if err := replay(ctx, stores.Events, projector); err != nil {
			return nil, err
		}
	}

	sessions, err := a.openSessions(ctx, cfg)
	if err != nil {
		return nil, err
	}
	coupons, err := LoadCoupons(cfg)
	if err != nil {
		return nil, err
	}
	jwtService, err := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenExpiry, cfg.RefreshTokenExpiry)
	if err != nil {
		return nil, err
	}

	var gateway checkout.Gateway
	if cfg.PaymentEnabled() {
		gateway = payment.NewClient(payment.Config{
			ServerKey:    cfg.MidtransServerKey,
			ClientKey:    cfg.MidtransClientKey,
			IsProduction: cfg.MidtransIsProduction,
			SnapURL:      cfg.MidtransSnapURL,
			APIURL:       cfg.MidtransAPIURL,
			Timeout:      cfg.PaymentTimeout,
		})
		log.Printf("[API] Midtrans enabled (production=%t)", cfg.MidtransIsProduction)
	} else {
		log.Println("[API] WARNING: Midtrans keys not set, pay-online checkout is disabled")
	}

	queries := query.NewHandler(stores.Reads)
	if err := SeedAdmin(ctx, cfg, svc.Users, queries); err != nil {
		return nil, err
	}

	deps := api.Deps{
		Commands:      command.NewHandler(svc.Products, svc.Categories, svc.Carts, svc.Orders, stores.Reads),
		Queries:       queries,
		Carts:         svc.Carts,
		Orders:        svc.Orders,
		Users:         svc.Users,
		Notifications: notification.NewService(stores.Reads),
		Reports:       report.NewService(queries),
		Coupons:       coupons,
		JWT:           jwtService,
		Gateway:       gateway,
		ClientKey:     cfg.MidtransClientKey,
		Checkout: checkout.NewService(svc.Carts, svc.Orders, checkout.Options{
			Gateway:   gateway,
			ServerKey: cfg.MidtransServerKey,
			Coupons:   coupons,
			Sessions:  sessions,
			IDs:       order.NewIDGenerator(cfg.OrderIDPrefix),
		}),
	}
	if gateway == nil {
		deps.ClientKey = ""
	}

	a.Handler = api.NewRouter(api.NewHandlers(deps), api.RouterConfig{
		WebDir:      cfg.WebDir,
		CORSOrigin:  cfg.CORSOrigin,
		ServiceName: ServiceName,
	})
	built = true
	return a, nil
}

func (a *API) subscribe(c *kafka.Consumer, handler kafka.EventHandler) {
	a.subscriptions = append(a.subscriptions, subscription{consumer: c, handler: handler})
	a.closers = append(a.closers, c.Close)
}

func (a *API) openSessions(ctx context.Context, cfg *config.Config) (checkout.SessionStore, error) {
	if cfg.RedisURL == "" {
		return checkout.NewMemorySessionStore(cfg.CheckoutSessionTTL), nil
	}
	client, err := redisstore.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)
	log.Println("[API] Checkout sessions in Redis")
	return redisstore.NewSessionStore(client, cfg.CheckoutSessionTTL), nil
}

// Start runs the in-process Kafka consumers, if any, until ctx is cancelled
func (a *API) Start(ctx context.Context) {
	for _, s := range a.subscriptions {
		a.wg.Add(1)
		go func(s subscription) {
			defer a.wg.Done()
			if err := s.consumer.Consume(ctx, s.handler); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("[API] Consumer stopped: %v", err)
			}
		}(s)
	}
}

// Close waits for consumers to stop and releases connections in reverse order
func (a *API) Close() {
	a.wg.Wait()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("[API] Close error: %v", err)
		}
	}
	a.closers = nil
}

// SeedAdmin creates the ADMIN_EMAIL account unless it already exists
func SeedAdmin(ctx context.Context, cfg *config.Config, users *user.Service, queries *query.Handler) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}
	_, found, err := queries.FindUserByEmail(ctx, cfg.AdminEmail)
	if err != nil {
		return fmt.Errorf("look up admin: %w", err)
	}
	if found {
		return nil
	}
	if _, err := users.RegisterAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, "Administrator"); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	log.Printf("[API] Created admin account %s", cfg.AdminEmail)
	return nil
}

func replay(ctx context.Context, es store.EventStoreInterface, projector *projection.Projector) error {
	events, err := es.GetAllEvents(ctx)
	if err != nil {
		return fmt.Errorf("load events for replay: %w", err)
	}
	log.Printf("[API] Replaying %d events into in-memory read models...", len(events))
	if err := projector.Replay(ctx, events); err != nil {
		return err
	}
	log.Println("[API] Event replay completed")
	return nil
}
