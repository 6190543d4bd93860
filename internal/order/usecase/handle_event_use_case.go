package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"decobot/internal/chat"
	"decobot/internal/domain"
	"decobot/internal/dto"
	apperrors "decobot/internal/errors"
	"decobot/internal/notify"
	"decobot/internal/session"
)

type SessionStore interface {
	Resolve(chatID int64) (session.Session, error)
	Authenticate(chatID int64, code string) (session.Session, error)
	SetNavigation(chatID int64, category string, page int) error
	Logout(chatID int64)
}

type CartService interface {
	Add(ctx context.Context, chatID int64, item domain.LineItem) ([]domain.LineItem, error)
	Items(ctx context.Context, chatID int64) ([]domain.LineItem, error)
	Clear(ctx context.Context, chatID int64) error
}

// Catalog prices a cart line from the product catalog.
type Catalog interface {
	LineItem(ctx context.Context, productID, size string, qty int) (domain.LineItem, error)
}

type OrderEngine interface {
	Checkout(ctx context.Context, customer domain.Customer, chatID int64, items []domain.LineItem) (*domain.Order, error)
	Apply(ctx context.Context, orderID string, ev domain.Event) (*domain.Order, error)
	Get(ctx context.Context, orderID string) (*domain.Order, error)
	ActiveOrder(ctx context.Context, customerID string) (*domain.Order, error)
}

type Keyboards interface {
	AdminKeyboard(o *domain.Order) chat.Keyboard
	CustomerKeyboard(o *domain.Order) chat.Keyboard
}

type Notifier interface {
	Notify(ctx context.Context, intents ...notify.Intent)
}

type AdminPolicy interface {
	IsAdmin(chatID int64) bool
	GroupChatID() int64
}

// HandleEventUseCase routes inbound chat updates to the session store, the
// cart and the order engine, and answers the chat when something is refused.
type HandleEventUseCase struct {
	sessions  SessionStore
	cart      CartService
	catalog   Catalog
	engine    OrderEngine
	keyboards Keyboards
	notifier  Notifier
	admins    AdminPolicy
	logger    *zap.Logger
}

func NewHandleEventUseCase(
	sessions SessionStore,
	cart CartService,
	catalog Catalog,
	engine OrderEngine,
	keyboards Keyboards,
	notifier Notifier,
	admins AdminPolicy,
	logger *zap.Logger,
) *HandleEventUseCase {
	return &HandleEventUseCase{
		sessions:  sessions,
		cart:      cart,
		catalog:   catalog,
		engine:    engine,
		keyboards: keyboards,
		notifier:  notifier,
		admins:    admins,
		logger:    logger,
	}
}

func (uc *HandleEventUseCase) Handle(ctx context.Context, req dto.EventRequest) (*dto.EventResult, error) {
	var (
		result *dto.EventResult
		err    error
	)

	switch req.Kind {
	case dto.EventKindCommand:
		result, err = uc.handleCommand(ctx, req)
	case dto.EventKindCallback:
		result, err = uc.handleCallback(ctx, req)
	case dto.EventKindPhoto:
		result, err = uc.handlePhoto(ctx, req)
	case dto.EventKindText:
		result, err = uc.handleText(ctx, req)
	default:
		err = apperrors.NewValidationError(fmt.Sprintf("unsupported event kind %q", req.Kind), apperrors.ValidationDetail{
			Field:   "kind",
			Message: "kind must be one of command, callback, photo, text",
		})
	}

	if err != nil {
		uc.reply(ctx, req.ChatIdentity, replyFor(err))
		return nil, err
	}
	return result, nil
}

func (uc *HandleEventUseCase) handleCommand(ctx context.Context, req dto.EventRequest) (*dto.EventResult, error) {
	fields := strings.Fields(req.Payload)
	if len(fields) == 0 {
		return nil, apperrors.NewValidationError("empty command")
	}
	name := strings.ToLower(fields[0])
	// Group commands may carry a bot mention: /order@decobot
	if at := strings.IndexByte(name, '@'); at > 0 {
		name = name[:at]
	}
	args := fields[1:]

	switch name {
	case "/start":
		return uc.start(ctx, req)
	case "/login":
		if len(args) != 1 {
			return nil, apperrors.NewValidationError("usage: /login <code>")
		}
		return uc.login(ctx, req, args[0])
	case "/logout":
		uc.sessions.Logout(req.ChatIdentity)
		uc.reply(ctx, req.ChatIdentity, "👋 از حساب خود خارج شدید.")
		return &dto.EventResult{Action: "logout"}, nil
	case "/browse":
		return uc.browse(ctx, req, args)
	case "/add":
		return uc.addToCart(ctx, req, args)
	case "/checkout":
		return uc.checkout(ctx, req)
	case "/invoice":
		return uc.invoice(ctx, req)
	case "/status":
		return uc.status(ctx, req)
	case "/order":
		return uc.adminOrder(ctx, req, args)
	case "/cancel":
		return uc.adminCancel(ctx, req, args)
	}
	return nil, apperrors.NewValidationError(fmt.Sprintf("unknown command %s", name))
}

func (uc *HandleEventUseCase) start(ctx context.Context, req dto.EventRequest) (*dto.EventResult, error) {
	sess, err := uc.sessions.Resolve(req.ChatIdentity)
	if err != nil {
		uc.reply(ctx, req.ChatIdentity, "👋 به ربات سفارش خوش آمدید!\n🔐 لطفاً کد ۶ رقمی مشتری خود را وارد کنید.")
		return &dto.EventResult{Action: "start"}, nil
	}

	order, err := uc.engine.ActiveOrder(ctx, sess.Customer.Code)
	if err == nil && order.Stage == domain.StageBalanceRecoveryPending {
		// Only the recovery path is offered until the balance is settled.
		uc.notifier.Notify(ctx, notify.Intent{
			Audience: notify.AudienceCustomer,
			ChatID:   req.ChatIdentity,
			Template: notify.TemplateBalanceRecovery,
			Order:    order,
			Keyboard: uc.keyboards.CustomerKeyboard(order),
		})
		return resultFor("start", order), nil
	}

	uc.reply(ctx, req.ChatIdentity, fmt.Sprintf("👋 %s عزیز، خوش آمدید!", sess.Customer.Name))
	return &dto.EventResult{Action: "start"}, nil
}

func (uc *HandleEventUseCase) login(ctx context.Context, req dto.EventRequest, code string) (*dto.EventResult, error) {
	sess, err := uc.sessions.Authenticate(req.ChatIdentity, code)
	if err != nil {
		return nil, err
	}
	uc.reply(ctx, req.ChatIdentity, fmt.Sprintf("✅ %s عزیز، با موفقیت وارد شدید.", sess.Customer.Name))
	return &dto.EventResult{Action: "login"}, nil
}

func (uc *HandleEventUseCase) browse(ctx context.Context, req dto.EventRequest, args []string) (*dto.EventResult, error) {
	if len(args) == 0 {
		return nil, apperrors.NewValidationError("usage: /browse <category> [page]")
	}
	page := 1
	if len(args) > 1 {
		p, err := strconv.Atoi(args[1])
		if err != nil || p < 1 {
			return nil, apperrors.NewValidationError("page must be a positive integer")
		}
		page = p
	}
	if err := uc.sessions.SetNavigation(req.ChatIdentity, args[0], page); err != nil {
		return nil, err
	}
	return &dto.EventResult{Action: "browse"}, nil
}

func (uc *HandleEventUseCase) addToCart(ctx context.Context, req dto.EventRequest, args []string) (*dto.EventResult, error) {
	if _, err := uc.sessions.Resolve(req.ChatIdentity); err != nil {
		return nil, err
	}
	if len(args) != 3 {
		return nil, apperrors.NewValidationError("usage: /add <productID> <size> <qty>")
	}
	qty, err := strconv.Atoi(args[2])
	if err != nil {
		return nil, apperrors.NewValidationError("quantity must be an integer")
	}

	item, err := uc.catalog.LineItem(ctx, args[0], args[1], qty)
	if err != nil {
		return nil, err
	}
	items, err := uc.cart.Add(ctx, req.ChatIdentity, item)
	if err != nil {
		return nil, err
	}
	uc.reply(ctx, req.ChatIdentity, fmt.Sprintf("🛒 به سبد خرید اضافه شد. (%d قلم)", len(items)))
	return &dto.EventResult{Action: "add"}, nil
}

func (uc *HandleEventUseCase) checkout(ctx context.Context, req dto.EventRequest) (*dto.EventResult, error) {
	sess, err := uc.sessions.Resolve(req.ChatIdentity)
	if err != nil {
		return nil, err
	}
	items, err := uc.cart.Items(ctx, req.ChatIdentity)
	if err != nil {
		return nil, fmt.Errorf("loading cart: %w", err)
	}

	order, err := uc.engine.Checkout(ctx, sess.Customer, req.ChatIdentity, items)
	if err != nil {
		return nil, err
	}
	if err := uc.cart.Clear(ctx, req.ChatIdentity); err != nil {
		uc.logger.Warn("failed to clear cart after checkout", zap.Int64("chatId", req.ChatIdentity), zap.String("orderId", order.ID), zap.Error(err))
	}

	order, err = uc.engine.Apply(ctx, order.ID, uc.customerEvent(req, domain.EventShowInvoice))
	if err != nil {
		return nil, err
	}
	return resultFor("checkout", order), nil
}

func (uc *HandleEventUseCase) invoice(ctx context.Context, req dto.EventRequest) (*dto.EventResult, error) {
	order, err := uc.activeOrderFor(ctx, req)
	if err != nil {
		return nil, err
	}
	order, err = uc.engine.Apply(ctx, order.ID, uc.customerEvent(req, domain.EventShowInvoice))
	if err != nil {
		return nil, err
	}
	return resultFor("invoice", order), nil
}

func (uc *HandleEventUseCase) status(ctx context.Context, req dto.EventRequest) (*dto.EventResult, error) {
	order, err := uc.activeOrderFor(ctx, req)
	if _, ok := apperrors.IsNotFoundError(err); ok {
		uc.reply(ctx, req.ChatIdentity, "📭 سفارش فعالی ندارید.")
		return &dto.EventResult{Action: "status"}, nil
	}
	if err != nil {
		return nil, err
	}

	uc.notifier.Notify(ctx, notify.Intent{
		Audience: notify.AudienceCustomer,
		ChatID:   req.ChatIdentity,
		Template: notify.TemplateOrderStatus,
		Order:    order,
		Keyboard: uc.keyboards.CustomerKeyboard(order),
	})
	return resultFor("status", order), nil
}

func (uc *HandleEventUseCase) adminOrder(ctx context.Context, req dto.EventRequest, args []string) (*dto.EventResult, error) {
	if !uc.admins.IsAdmin(uc.sender(req)) {
		return nil, apperrors.NewForbiddenError("admin command")
	}
	if len(args) != 1 {
		return nil, apperrors.NewValidationError("usage: /order <orderID>")
	}

	order, err := uc.engine.Get(ctx, args[0])
	if err != nil {
		return nil, err
	}
	uc.notifier.Notify(ctx, notify.Intent{
		Audience: notify.AudienceAdminGroup,
		ChatID:   req.ChatIdentity,
		Template: notify.TemplateOrderStatus,
		Order:    order,
		Keyboard: uc.keyboards.AdminKeyboard(order),
	})
	return resultFor("order", order), nil
}

func (uc *HandleEventUseCase) adminCancel(ctx context.Context, req dto.EventRequest, args []string) (*dto.EventResult, error) {
	if !uc.admins.IsAdmin(uc.sender(req)) {
		return nil, apperrors.NewForbiddenError("admin command")
	}
	if len(args) < 1 || len(args) > 2 {
		return nil, apperrors.NewValidationError("usage: /cancel <orderID> [paid]")
	}

	ev := uc.adminEvent(req, domain.EventAdminCancel)
	if len(args) == 2 {
		paid, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return nil, apperrors.NewValidationError("paid amount must be an integer")
		}
		ev.PaidAmount = &paid
	}

	order, err := uc.engine.Apply(ctx, args[0], ev)
	if err != nil {
		return nil, err
	}
	return resultFor("cancel", order), nil
}

func (uc *HandleEventUseCase) handleCallback(ctx context.Context, req dto.EventRequest) (*dto.EventResult, error) {
	cb, err := chat.ParseCallback(req.Payload)
	if err != nil {
		return nil, err
	}

	kind := domain.EventKind(cb.Action)
	actor, ok := kind.ActorFor()
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown callback action %q", cb.Action))
	}

	var ev domain.Event
	if actor == domain.ActorAdmin {
		if !uc.admins.IsAdmin(uc.sender(req)) {
			return nil, apperrors.NewForbiddenError("admin action")
		}
		ev = uc.adminEvent(req, kind)
	} else {
		if _, err := uc.sessions.Resolve(req.ChatIdentity); err != nil {
			return nil, err
		}
		ev = uc.customerEvent(req, kind)
	}

	switch kind {
	case domain.EventSelectMethod:
		m, ok := chat.ParseMethodArg(cb.Arg)
		if !ok {
			return nil, apperrors.NewValidationError(fmt.Sprintf("unknown payment method %q", cb.Arg))
		}
		ev.Method = m
	case domain.EventSelectType:
		ev.Type = domain.PaymentType(cb.Arg)
	case domain.EventAssignRecipient:
		ev.Recipient = cb.Arg
	case domain.EventInstallmentPaid:
		n, err := strconv.Atoi(cb.Arg)
		if err != nil || n < 1 {
			return nil, apperrors.NewValidationError(fmt.Sprintf("invalid installment number %q", cb.Arg))
		}
		ev.Installment = n
	}

	order, err := uc.engine.Apply(ctx, cb.OrderID, ev)
	if err != nil {
		return nil, err
	}
	return resultFor(cb.Action, order), nil
}

func (uc *HandleEventUseCase) handlePhoto(ctx context.Context, req dto.EventRequest) (*dto.EventResult, error) {
	if strings.TrimSpace(req.Payload) == "" {
		return nil, apperrors.NewValidationError("photo reference is required")
	}
	order, err := uc.activeOrderFor(ctx, req)
	if _, ok := apperrors.IsNotFoundError(err); ok {
		return nil, apperrors.NewMissingPaymentContextError("photo received without an active order")
	}
	if err != nil {
		return nil, err
	}

	ev := uc.customerEvent(req, domain.EventAttachEvidence)
	ev.PhotoRef = req.Payload
	order, err = uc.engine.Apply(ctx, order.ID, ev)
	if err != nil {
		return nil, err
	}
	return resultFor(string(domain.EventAttachEvidence), order), nil
}

func (uc *HandleEventUseCase) handleText(ctx context.Context, req dto.EventRequest) (*dto.EventResult, error) {
	text := strings.TrimSpace(req.Payload)
	if isCustomerCode(text) {
		return uc.login(ctx, req, text)
	}
	uc.reply(ctx, req.ChatIdentity, "ℹ️ برای شروع /start را بفرستید.")
	return &dto.EventResult{Action: "text"}, nil
}

func (uc *HandleEventUseCase) activeOrderFor(ctx context.Context, req dto.EventRequest) (*domain.Order, error) {
	sess, err := uc.sessions.Resolve(req.ChatIdentity)
	if err != nil {
		return nil, err
	}
	return uc.engine.ActiveOrder(ctx, sess.Customer.Code)
}

func (uc *HandleEventUseCase) customerEvent(req dto.EventRequest, kind domain.EventKind) domain.Event {
	return domain.Event{Kind: kind, Actor: domain.ActorCustomer, ActorID: req.ChatIdentity, ActorName: req.SenderName}
}

func (uc *HandleEventUseCase) adminEvent(req dto.EventRequest, kind domain.EventKind) domain.Event {
	return domain.Event{Kind: kind, Actor: domain.ActorAdmin, ActorID: uc.sender(req), ActorName: req.SenderName}
}

func (uc *HandleEventUseCase) sender(req dto.EventRequest) int64 {
	return req.Sender(uc.admins.GroupChatID())
}

func (uc *HandleEventUseCase) reply(ctx context.Context, chatID int64, text string) {
	uc.notifier.Notify(ctx, notify.Intent{
		Audience: notify.AudienceCustomer,
		ChatID:   chatID,
		Template: notify.TemplateNotice,
		Note:     text,
	})
}

func resultFor(action string, o *domain.Order) *dto.EventResult {
	return &dto.EventResult{Action: action, OrderID: o.ID, Stage: string(o.Stage)}
}

func isCustomerCode(s string) bool {
	if len(s) != 6 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
