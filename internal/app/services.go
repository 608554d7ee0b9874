// Package app assembles the domain services shared by the API and worker binaries.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lensbook/lensbook-backend/internal/albums"
	"github.com/lensbook/lensbook-backend/internal/complaints"
	"github.com/lensbook/lensbook-backend/internal/ledger"
	"github.com/lensbook/lensbook-backend/internal/notifications"
	"github.com/lensbook/lensbook-backend/internal/orders"
	"github.com/lensbook/lensbook-backend/internal/paymentmethods"
	"github.com/lensbook/lensbook-backend/internal/servicefees"
	"github.com/lensbook/lensbook-backend/internal/settlement"
	"github.com/lensbook/lensbook-backend/pkg/config"
	"github.com/lensbook/lensbook-backend/pkg/db"
	"github.com/lensbook/lensbook-backend/pkg/logger"
	"github.com/lensbook/lensbook-backend/pkg/maps"
	"github.com/lensbook/lensbook-backend/pkg/metrics"
	"github.com/lensbook/lensbook-backend/pkg/outbox"
)

// Services is the wired domain layer.
type Services struct {
	OrdersRepo     orders.Repository
	Orders         orders.Service
	Settlement     settlement.Service
	Albums         albums.Service
	Complaints     complaints.Service
	ComplaintsRepo complaints.Repository
	ServiceFees    servicefees.Service
	PaymentMethods paymentmethods.Service
	Ledger         ledger.Service
	Notifications  notifications.Service
	NotifyRepo     notifications.Repository
	Outbox         *outbox.Repository
}

// BuildServices wires repositories and services over one database client.
// reg may be nil, in which case metrics are not exported.
func BuildServices(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, reg prometheus.Registerer) (*Services, error) {
	conn := dbClient.DB()
	orderMetrics := metrics.NewOrderMetrics(reg)
	outboxRepo := outbox.NewRepository(conn)
	emitter := outbox.NewService(outboxRepo, logg)

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("ledger service: %w", err)
	}
	feeSvc, err := servicefees.NewService(servicefees.NewRepository(conn), dbClient)
	if err != nil {
		return nil, fmt.Errorf("service fee service: %w", err)
	}
	accountSvc, err := paymentmethods.NewService(paymentmethods.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("payment method service: %w", err)
	}

	router, err := maps.NewClient(cfg.Routing)
	if err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "distance provider disabled, travel fees fall back to zero")
	}

	ordersRepo := orders.NewRepository(conn)
	orderParams := orders.ServiceParams{
		Repo:     ordersRepo,
		Tx:       dbClient,
		Outbox:   emitter,
		Fees:     feeSvc,
		Ledger:   ledgerSvc,
		Accounts: accountSvc,
		Metrics:  orderMetrics,
		Logger:   logg,
		Booking:  cfg.Booking,
		Flags:    cfg.FeatureFlags,
		Location: cfg.App.Location(),
	}
	if router != nil {
		orderParams.Router = router
	}
	ordersSvc, err := orders.NewService(orderParams)
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}

	settlementSvc, err := settlement.NewService(settlement.ServiceParams{
		Repo:    settlement.NewRepository(conn),
		Tx:      dbClient,
		Outbox:  emitter,
		Ledger:  ledgerSvc,
		Metrics: orderMetrics,
		Logger:  logg,
	})
	if err != nil {
		return nil, fmt.Errorf("settlement service: %w", err)
	}

	albumsSvc, err := albums.NewService(albums.ServiceParams{
		Repo:     albums.NewRepository(conn),
		Tx:       dbClient,
		Outbox:   emitter,
		Listener: ordersSvc,
		Metrics:  orderMetrics,
		Logger:   logg,
		Booking:  cfg.Booking,
	})
	if err != nil {
		return nil, fmt.Errorf("albums service: %w", err)
	}

	complaintsRepo := complaints.NewRepository(conn)
	complaintsSvc, err := complaints.NewService(complaints.ServiceParams{
		Repo:   complaintsRepo,
		Tx:     dbClient,
		Outbox: emitter,
		Orders: ordersSvc,
		Ledger: ledgerSvc,
		Logger: logg,
	})
	if err != nil {
		return nil, fmt.Errorf("complaints service: %w", err)
	}

	notifyRepo := notifications.NewRepository(conn)
	notifySvc, err := notifications.NewService(notifyRepo)
	if err != nil {
		return nil, fmt.Errorf("notifications service: %w", err)
	}

	return &Services{
		OrdersRepo:     ordersRepo,
		Orders:         ordersSvc,
		Settlement:     settlementSvc,
		Albums:         albumsSvc,
		Complaints:     complaintsSvc,
		ComplaintsRepo: complaintsRepo,
		ServiceFees:    feeSvc,
		PaymentMethods: accountSvc,
		Ledger:         ledgerSvc,
		Notifications:  notifySvc,
		NotifyRepo:     notifyRepo,
		Outbox:         outboxRepo,
	}, nil
}
