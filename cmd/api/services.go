package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/ttml-backend/api/routes"
	"github.com/angelmondragon/ttml-backend/internal/audit"
	"github.com/angelmondragon/ttml-backend/internal/auth"
	"github.com/angelmondragon/ttml-backend/internal/commissions"
	"github.com/angelmondragon/ttml-backend/internal/coupons"
	"github.com/angelmondragon/ttml-backend/internal/employees"
	"github.com/angelmondragon/ttml-backend/internal/letters"
	"github.com/angelmondragon/ttml-backend/internal/payments"
	"github.com/angelmondragon/ttml-backend/internal/purchases"
	"github.com/angelmondragon/ttml-backend/internal/subscriptions"
	"github.com/angelmondragon/ttml-backend/internal/users"
	"github.com/angelmondragon/ttml-backend/pkg/auth/session"
	"github.com/angelmondragon/ttml-backend/pkg/config"
	"github.com/angelmondragon/ttml-backend/pkg/db"
	"github.com/angelmondragon/ttml-backend/pkg/email"
	"github.com/angelmondragon/ttml-backend/pkg/llm"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
	"github.com/angelmondragon/ttml-backend/pkg/metrics"
	"github.com/angelmondragon/ttml-backend/pkg/outbox"
	"github.com/angelmondragon/ttml-backend/pkg/redis"
	"github.com/angelmondragon/ttml-backend/pkg/stripe"
)

// buildRouterParams assembles repositories and services on top of the shared clients.
func buildRouterParams(
	ctx context.Context,
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	sessions *session.Manager,
) (routes.Params, error) {
	conn := dbClient.DB()
	domainMetrics := metrics.NewDomainMetrics(prometheus.DefaultRegisterer)
	auditService := audit.NewService(audit.NewRepository(conn), logg)
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)

	userRepo := users.NewRepository(conn)
	couponRepo := coupons.NewRepository(conn)
	purchaseRepo := purchases.NewRepository(conn)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessions,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		AdminConfig:    cfg.Admin,
		Audit:          auditService,
	})
	if err != nil {
		return routes.Params{}, fmt.Errorf("auth service: %w", err)
	}

	userService, err := users.NewService(users.ServiceParams{Repository: userRepo, Audit: auditService})
	if err != nil {
		return routes.Params{}, fmt.Errorf("user service: %w", err)
	}

	commissionService, err := commissions.NewService(commissions.ServiceParams{
		Repository:        commissions.NewRepository(conn),
		Outbox:            outboxService,
		TransactionRunner: dbClient,
		Audit:             auditService,
	})
	if err != nil {
		return routes.Params{}, fmt.Errorf("commission service: %w", err)
	}

	couponService, err := coupons.NewService(coupons.ServiceParams{
		Repository: couponRepo,
		Roles:      userRepo,
		Audit:      auditService,
	})
	if err != nil {
		return routes.Params{}, fmt.Errorf("coupon service: %w", err)
	}

	processor, err := paymentProcessor(ctx, cfg, logg)
	if err != nil {
		return routes.Params{}, fmt.Errorf("payment processor: %w", err)
	}
	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repository:        subscriptions.NewRepository(conn),
		Coupons:           couponRepo,
		Commissions:       commissionService,
		Users:             userRepo,
		Purchases:         purchaseRepo,
		Payments:          processor,
		Outbox:            outboxService,
		TransactionRunner: dbClient,
		Audit:             auditService,
		Metrics:           domainMetrics,
		Logger:            logg,
	})
	if err != nil {
		return routes.Params{}, fmt.Errorf("subscription service: %w", err)
	}

	completer, err := letterCompleter(ctx, cfg, logg)
	if err != nil {
		return routes.Params{}, fmt.Errorf("llm client: %w", err)
	}
	mailer, err := letterMailer(ctx, cfg, logg)
	if err != nil {
		return routes.Params{}, fmt.Errorf("smtp sender: %w", err)
	}
	letterService, err := letters.NewService(letters.ServiceParams{
		Repository:        letters.NewRepository(conn),
		Quota:             subscriptionService,
		Profiles:          userRepo,
		Completer:         completer,
		Mailer:            mailer,
		Outbox:            outboxService,
		TransactionRunner: dbClient,
		Audit:             auditService,
		Metrics:           domainMetrics,
		Logger:            logg,
		AppName:           cfg.App.Name,
		PublicURL:         cfg.App.BaseURL(),
	})
	if err != nil {
		return routes.Params{}, fmt.Errorf("letter service: %w", err)
	}

	employeeService, err := employees.NewService(employees.ServiceParams{
		Repository:  employees.NewRepository(conn),
		Profiles:    userRepo,
		Commissions: commissionService,
	})
	if err != nil {
		return routes.Params{}, fmt.Errorf("employee service: %w", err)
	}

	purchaseService, err := purchases.NewService(purchases.ServiceParams{
		Repository:  purchaseRepo,
		Profiles:    userRepo,
		PlanNamer:   subscriptions.NameAndPrice,
		CompanyName: cfg.App.Name,
	})
	if err != nil {
		return routes.Params{}, fmt.Errorf("purchase service: %w", err)
	}

	return routes.Params{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Redis:         redisClient,
		Sessions:      sessions,
		Audit:         auditService,
		Auth:          authService,
		Users:         userService,
		Letters:       letterService,
		AllLetters:    letterService,
		Quota:         subscriptionService,
		Checkout:      subscriptionService,
		Subscriptions: subscriptionService,
		SubList:       subscriptionService,
		Coupons:       couponService,
		CouponCheck:   couponService,
		Commissions:   commissionService,
		Earnings:      commissionService,
		Purchases:     purchaseService,
		Employees:     employeeService,
		AuditLogs:     auditService,
	}, nil
}

func paymentProcessor(ctx context.Context, cfg *config.Config, logg *logger.Logger) (payments.Processor, error) {
	if !cfg.Stripe.Enabled {
		logg.Warn(ctx, "stripe disabled, checkout payments are simulated")
		return payments.NewStubProcessor(logg), nil
	}
	client, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		return nil, err
	}
	processor, err := payments.NewStripeProcessor(client)
	if err != nil {
		return nil, err
	}
	return processor, nil
}

func letterCompleter(ctx context.Context, cfg *config.Config, logg *logger.Logger) (llm.Completer, error) {
	if !cfg.LLM.Enabled() {
		logg.Warn(ctx, "llm api key not set, letter generation will fail")
		return llm.Disabled{}, nil
	}
	client, err := llm.NewClient(cfg.LLM, logg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func letterMailer(ctx context.Context, cfg *config.Config, logg *logger.Logger) (email.Sender, error) {
	if !cfg.SMTP.Enabled() {
		logg.Warn(ctx, "smtp not configured, outgoing mail is logged only")
		return email.NewLogSender(logg), nil
	}
	sender, err := email.NewSMTPSender(cfg.SMTP)
	if err != nil {
		return nil, err
	}
	return sender, nil
}
