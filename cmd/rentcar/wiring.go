package main

import (
	"log/slog"
	"time"

	"rentcar/internal/app/access"
	"rentcar/internal/app/commands"
	"rentcar/internal/app/dto"
	adminapp "rentcar/internal/app/handlers/admin"
	bookingapp "rentcar/internal/app/handlers/bookings"
	carapp "rentcar/internal/app/handlers/cars"
	ledgerapp "rentcar/internal/app/handlers/ledger"
	"rentcar/internal/app/middleware"
	"rentcar/internal/app/outbox"
	"rentcar/internal/app/policies"
	"rentcar/internal/app/queries"
	"rentcar/internal/app/validation"
	domainpricing "rentcar/internal/domain/pricing"
	"rentcar/internal/infra/config"
	"rentcar/internal/infra/metrics"
)

type buses struct {
	commands commands.Bus
	queries  queries.Bus
}

// buildBuses registers every handler and wraps the buses in the middleware chain.
func buildBuses(cfg config.Config, b *backend, blobs policies.BlobStorage, registry *metrics.Registry, logger *slog.Logger) buses {
	clock := time.Now
	pricing := domainpricing.NewEngine(cfg.PricingLocation)
	encoder := outbox.JSONEventEncoder{}
	rules := cfg.BookingRules

	var ledgerMetrics policies.LedgerMetrics
	var observer middleware.Observer
	if registry != nil {
		ledgerMetrics = registry
		observer = registry
	}

	cmdBus := commands.NewInMemoryBus()
	commands.RegisterHandler[bookingapp.CreateBookingCommand, *bookingapp.BookingResult](cmdBus, &bookingapp.CreateBookingHandler{
		UoWFactory: b.factory,
		Outbox:     b.outbox,
		Encoder:    encoder,
		Pricing:    pricing,
		Rules:      rules,
		Clock:      clock,
		Metrics:    ledgerMetrics,
		Logger:     logger,
	})
	commands.RegisterHandler[bookingapp.CancelBookingCommand, *bookingapp.BookingResult](cmdBus, &bookingapp.CancelBookingHandler{
		Outbox: b.outbox, Encoder: encoder, Rules: rules, Clock: clock, Logger: logger,
	})
	commands.RegisterHandler[bookingapp.CompleteBookingCommand, *bookingapp.BookingResult](cmdBus, &bookingapp.CompleteBookingHandler{
		Blobs: blobs, Outbox: b.outbox, Encoder: encoder, Rules: rules, Clock: clock, Logger: logger,
	})
	commands.RegisterHandler[bookingapp.MarkPaidCommand, *bookingapp.BookingResult](cmdBus, &bookingapp.MarkPaidHandler{
		Outbox: b.outbox, Encoder: encoder, Clock: clock, Logger: logger,
	})
	commands.RegisterHandler[carapp.CreateCarCommand, *carapp.CarResult](cmdBus, &carapp.CreateCarHandler{
		Currency: cfg.Currency, Clock: clock, Logger: logger,
	})
	commands.RegisterHandler[carapp.UpdateCarCommand, *carapp.CarResult](cmdBus, &carapp.UpdateCarHandler{Clock: clock, Logger: logger})
	commands.RegisterHandler[carapp.SetAvailabilityCommand, *carapp.CarResult](cmdBus, &carapp.SetAvailabilityHandler{Clock: clock, Logger: logger})
	commands.RegisterHandler[carapp.DeleteCarCommand, *carapp.DeleteResult](cmdBus, &carapp.DeleteCarHandler{Blobs: blobs, Logger: logger})
	commands.RegisterHandler[carapp.UploadCarFileCommand, *carapp.CarResult](cmdBus, &carapp.UploadCarFileHandler{Blobs: blobs, Clock: clock, Logger: logger})
	commands.RegisterHandler[adminapp.SetApprovalCommand, *adminapp.BookingResult](cmdBus, &adminapp.SetApprovalHandler{Clock: clock, Logger: logger})
	commands.RegisterHandler[adminapp.RefundBookingCommand, *adminapp.RefundResult](cmdBus, &adminapp.RefundBookingHandler{Clock: clock, Logger: logger})
	commands.RegisterHandler[adminapp.VerifyUserCommand, *adminapp.UserResult](cmdBus, &adminapp.VerifyUserHandler{Clock: clock, Logger: logger})
	commands.RegisterHandler[adminapp.BlockUserCommand, *adminapp.UserResult](cmdBus, &adminapp.BlockUserHandler{Clock: clock, Logger: logger})
	commands.RegisterHandler[ledgerapp.ReconcileCommand, *ledgerapp.ReconcileReport](cmdBus, &ledgerapp.ReconcileHandler{
		UoWFactory: b.factory, Locker: b.locker, Clock: clock, Metrics: ledgerMetrics, Logger: logger,
	})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler[bookingapp.QuoteBookingQuery, bookingapp.QuoteResult](queryBus, &bookingapp.QuoteBookingHandler{
		UoWFactory: b.factory, Pricing: pricing, Rules: rules, Clock: clock, Logger: logger,
	})
	queries.RegisterHandler[bookingapp.ListBookingsQuery, dto.BookingCollection](queryBus, &bookingapp.ListBookingsHandler{UoWFactory: b.factory, Logger: logger})
	queries.RegisterHandler[bookingapp.GetBookingQuery, dto.BookingDTO](queryBus, &bookingapp.GetBookingHandler{UoWFactory: b.factory})
	queries.RegisterHandler[carapp.GetCarQuery, dto.CarDTO](queryBus, &carapp.GetCarHandler{UoWFactory: b.factory})
	queries.RegisterHandler[carapp.ListMyCarsQuery, dto.CarCollection](queryBus, &carapp.ListMyCarsHandler{UoWFactory: b.factory})
	queries.RegisterHandler[carapp.ListCitiesQuery, carapp.CitiesResult](queryBus, &carapp.ListCitiesHandler{UoWFactory: b.factory})
	queries.RegisterHandler[ledgerapp.ListTransactionsQuery, dto.TransactionCollection](queryBus, &ledgerapp.ListTransactionsHandler{UoWFactory: b.factory})
	queries.RegisterHandler[ledgerapp.SummaryQuery, ledgerapp.SummaryResult](queryBus, &ledgerapp.SummaryHandler{UoWFactory: b.factory, Clock: clock, Logger: logger})
	queries.RegisterHandler[adminapp.ListUsersQuery, dto.UserCollection](queryBus, &adminapp.ListUsersHandler{UoWFactory: b.factory})

	validator := validation.New()
	guard := access.RoleGuard{}
	return buses{
		commands: middleware.ChainCommands(cmdBus,
			middleware.Instrument(observer, logger),
			middleware.Serialize(b.locker),
			middleware.Idempotency(b.idempotency, nil),
			middleware.Authorization(guard),
			middleware.Validation(validator),
			middleware.Transaction(b.factory, nil),
			middleware.OutboxFlush(b.outbox),
		),
		queries: middleware.ChainQueries(queryBus,
			middleware.QueryInstrument(observer, logger),
			middleware.QueryAuthorization(guard),
			middleware.QueryValidation(validator),
		),
	}
}
