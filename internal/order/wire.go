package order

import (
	"go.uber.org/zap"

	"decobot/internal/config"
	"decobot/internal/domain"
	"decobot/internal/order/controller"
	"decobot/internal/order/service"
	"decobot/internal/order/usecase"
)

// Notifier is satisfied by the notification dispatcher.
type Notifier interface {
	service.Notifier
	usecase.Notifier
}

type Dependencies struct {
	Repository service.OrderRepository
	Pricing    service.PricingCalculator
	Notifier   Notifier
	Sessions   usecase.SessionStore
	Cart       usecase.CartService
	Catalog    usecase.Catalog
	Reference  *domain.ReferenceData
}

type Module struct {
	Engine     *service.Engine
	UseCase    *usecase.HandleEventUseCase
	Controller *controller.EventController
	Reminders  *service.ReminderWorker
}

func NewModule(deps Dependencies, cfg *config.Config, logger *zap.Logger) *Module {
	records := service.NewRecordStore(deps.Repository, cfg.Order.UpdateMaxAttempts, logger)
	coordinator := service.NewCoordinator(deps.Reference, cfg.Bot.AdminGroupChatID)

	engine := service.NewEngine(
		records,
		deps.Pricing,
		coordinator,
		deps.Notifier,
		cfg.Order.TransitionTimeout,
		logger,
	)

	useCase := usecase.NewHandleEventUseCase(
		deps.Sessions,
		deps.Cart,
		deps.Catalog,
		engine,
		coordinator,
		deps.Notifier,
		cfg.Bot,
		logger,
	)

	return &Module{
		Engine:     engine,
		UseCase:    useCase,
		Controller: controller.NewEventController(useCase, engine, cfg.Server.AdminAPIToken, cfg.Server.WebhookSecret, logger),
		Reminders:  service.NewReminderWorker(engine, cfg.Reminder.Interval, cfg.Reminder.BatchSize, logger),
	}
}
