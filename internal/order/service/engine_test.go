package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"decobot/internal/domain"
	apperrors "decobot/internal/errors"
	"decobot/internal/notify"
	"decobot/internal/order/repository"
	"decobot/internal/pricing"
)

const (
	customerChat = int64(5001)
	adminChat    = int64(9001)
	adminGroup   = int64(-4804296164)
)

type recordingNotifier struct {
	mu      sync.Mutex
	intents []notify.Intent
}

func (n *recordingNotifier) Notify(ctx context.Context, intents ...notify.Intent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.intents = append(n.intents, intents...)
}

func (n *recordingNotifier) reset() []notify.Intent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.intents
	n.intents = nil
	return out
}

func (n *recordingNotifier) count(tmpl notify.Template) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, in := range n.intents {
		if in.Template == tmpl {
			c++
		}
	}
	return c
}

type mockPricing struct {
	ComputeFunc func(items []domain.LineItem, method domain.PaymentMethod) (domain.Totals, error)
	PreviewFunc func(items []domain.LineItem) ([]domain.Totals, error)
}

func (m *mockPricing) Compute(items []domain.LineItem, method domain.PaymentMethod) (domain.Totals, error) {
	return m.ComputeFunc(items, method)
}

func (m *mockPricing) Preview(items []domain.LineItem) ([]domain.Totals, error) {
	return m.PreviewFunc(items)
}

type fixture struct {
	engine   *Engine
	repo     *repository.MemoryOrderRepository
	notifier *recordingNotifier
	ref      *domain.ReferenceData
}

func newFixture(t *testing.T, calc PricingCalculator) *fixture {
	t.Helper()
	if calc == nil {
		c, err := pricing.NewCalculator("0")
		require.NoError(t, err)
		calc = c
	}
	ref := &domain.ReferenceData{Recipients: domain.DefaultRecipients()}
	repo := repository.NewMemoryOrderRepository()
	notifier := &recordingNotifier{}
	engine := NewEngine(
		NewRecordStore(repo, 3, zap.NewNop()),
		calc,
		NewCoordinator(ref, adminGroup),
		notifier,
		5*time.Second,
		zap.NewNop(),
	)
	return &fixture{engine: engine, repo: repo, notifier: notifier, ref: ref}
}

var testCustomer = domain.Customer{Code: "123456", Name: "فروشگاه آرش", City: "تهران"}

func (f *fixture) checkout(t *testing.T, items ...domain.LineItem) *domain.Order {
	t.Helper()
	if len(items) == 0 {
		items = []domain.LineItem{{ProductID: "p-1", ProductName: "کاغذ دیواری", Size: "50x50", Quantity: 1, UnitPrice: 4780000}}
	}
	order, err := f.engine.Checkout(context.Background(), testCustomer, customerChat, items)
	require.NoError(t, err)
	return order
}

func (f *fixture) apply(t *testing.T, orderID string, ev domain.Event) *domain.Order {
	t.Helper()
	order, err := f.engine.Apply(context.Background(), orderID, ev)
	require.NoError(t, err)
	return order
}

func customerEvent(kind domain.EventKind) domain.Event {
	return domain.Event{Kind: kind, Actor: domain.ActorCustomer, ActorID: customerChat}
}

func adminEvent(kind domain.EventKind) domain.Event {
	return domain.Event{Kind: kind, Actor: domain.ActorAdmin, ActorID: adminChat, ActorName: "مدیر"}
}

func methodEvent(m domain.PaymentMethod) domain.Event {
	ev := customerEvent(domain.EventSelectMethod)
	ev.Method = m
	return ev
}

func typeEvent(pt domain.PaymentType) domain.Event {
	ev := customerEvent(domain.EventSelectType)
	ev.Type = pt
	return ev
}

func photoEvent(ref string) domain.Event {
	ev := customerEvent(domain.EventAttachEvidence)
	ev.PhotoRef = ref
	return ev
}

func assignEvent(key string) domain.Event {
	ev := adminEvent(domain.EventAssignRecipient)
	ev.Recipient = key
	return ev
}

// driveToRecipientPending runs a check order up to the recipient choice.
func (f *fixture) driveToRecipientPending(t *testing.T, method domain.PaymentMethod) *domain.Order {
	t.Helper()
	order := f.checkout(t)
	f.apply(t, order.ID, customerEvent(domain.EventShowInvoice))
	f.apply(t, order.ID, methodEvent(method))
	f.apply(t, order.ID, typeEvent(domain.PaymentTypeCheck))
	return f.apply(t, order.ID, photoEvent("check-photo-1"))
}

func stagesOf(o *domain.Order) []domain.Stage {
	var out []domain.Stage
	for _, h := range o.History {
		out = append(out, h.To)
	}
	return out
}

func TestEngine_SixtyDayCheckFlow(t *testing.T) {
	f := newFixture(t, nil)
	order := f.checkout(t)
	assert.Equal(t, domain.StageCheckoutPending, order.Stage)

	order = f.apply(t, order.ID, customerEvent(domain.EventShowInvoice))
	assert.Equal(t, domain.StagePaymentMethodSelection, order.Stage)
	intents := f.notifier.reset()
	require.Len(t, intents, 1)
	assert.Len(t, intents[0].Options, 3)
	assert.Len(t, intents[0].Keyboard.Buttons(), 3)
	assert.Nil(t, order.Totals)

	order = f.apply(t, order.ID, methodEvent(domain.PaymentMethodInstallment60))
	require.NotNil(t, order.Totals)
	assert.Equal(t, int64(3585000), order.Totals.GrandTotal)
	assert.Equal(t, domain.StagePaymentTypeSelection, order.Stage)

	order = f.apply(t, order.ID, typeEvent(domain.PaymentTypeCheck))
	assert.Equal(t, domain.StageAwaitingCheckPhoto, order.Stage)
	f.notifier.reset()

	order = f.apply(t, order.ID, photoEvent("check-photo-1"))
	assert.Equal(t, domain.StageRecipientAssignmentPending, order.Stage)
	intents = f.notifier.reset()
	require.Len(t, intents, 2)
	assert.Equal(t, notify.TemplateCheckForwarded, intents[0].Template)
	assert.Equal(t, customerChat, intents[0].ChatID)
	assert.Equal(t, notify.TemplateRecipientRequest, intents[1].Template)
	assert.Equal(t, adminGroup, intents[1].ChatID)
	assert.Equal(t, "check-photo-1", intents[1].PhotoRef)
	assert.Len(t, intents[1].Keyboard.Buttons(), 4)

	order = f.apply(t, order.ID, assignEvent("nima"))
	assert.Equal(t, domain.StageCustomerDeliveryConfirmationPending, order.Stage)
	assert.Equal(t, "nima", order.AssignedRecipient)
	intents = f.notifier.reset()
	require.NotEmpty(t, intents)
	assert.Equal(t, notify.TemplateRecipientAssigned, intents[0].Template)
	require.NotNil(t, intents[0].Recipient)
	assert.Equal(t, "نیما کریمی", intents[0].Recipient.Name)
	assert.Equal(t, "0451640594", intents[0].Recipient.NationalID)

	order = f.apply(t, order.ID, customerEvent(domain.EventConfirmDelivery))
	assert.Equal(t, domain.StageFinalInvoiceSentToAdmin, order.Stage)
	assert.Equal(t, int64(3585000), order.PaidAmount)

	intents = f.notifier.reset()
	var bundles []notify.Intent
	for _, in := range intents {
		if in.Audience == notify.AudienceAdminGroup {
			bundles = append(bundles, in)
		}
	}
	require.Len(t, bundles, 1)
	bundle := bundles[0]
	assert.Equal(t, notify.TemplateFinalInvoice, bundle.Template)
	assert.Equal(t, "check-photo-1", bundle.PhotoRef)

	var labels []string
	for _, b := range bundle.Keyboard.Buttons() {
		labels = append(labels, b.Text)
	}
	assert.Equal(t, []string{"✅ تایید سفارش", "🔄 در حال پیگیری", "🚚 سفارش ارسال شد"}, labels)

	text := notify.NewRenderer(f.ref).Render(bundle)
	assert.Contains(t, text, "نیما کریمی")
	assert.Contains(t, text, "0451640594")
	assert.Contains(t, text, "کاغذ دیواری")

	order = f.apply(t, order.ID, adminEvent(domain.EventAdminTrack))
	assert.Equal(t, domain.StageTracking, order.Stage)
	order = f.apply(t, order.ID, adminEvent(domain.EventAdminShip))
	assert.Equal(t, domain.StageShipped, order.Stage)

	assert.Equal(t, []domain.Stage{
		domain.StagePaymentMethodSelection,
		domain.StagePaymentTypeSelection,
		domain.StageAwaitingCheckPhoto,
		domain.StageRecipientAssignmentPending,
		domain.StageCustomerDeliveryConfirmationPending,
		domain.StageFinalInvoiceSentToAdmin,
		domain.StageTracking,
		domain.StageShipped,
	}, stagesOf(order))
}

func ninetyDayPricing(calls *int) *mockPricing {
	return &mockPricing{
		ComputeFunc: func(items []domain.LineItem, method domain.PaymentMethod) (domain.Totals, error) {
			*calls++
			return domain.Totals{
				Method:     method,
				Subtotal:   7466667,
				Discount:   1866667,
				GrandTotal: 5600000,
				Advance:    1400000,
			}, nil
		},
		PreviewFunc: func(items []domain.LineItem) ([]domain.Totals, error) {
			return []domain.Totals{{}, {}, {}}, nil
		},
	}
}

func TestEngine_NinetyDayCashCancelAndRecovery(t *testing.T) {
	calls := 0
	f := newFixture(t, ninetyDayPricing(&calls))
	order := f.checkout(t)

	f.apply(t, order.ID, customerEvent(domain.EventShowInvoice))
	f.apply(t, order.ID, methodEvent(domain.PaymentMethodInstallment90))
	order = f.apply(t, order.ID, typeEvent(domain.PaymentTypeCash))
	assert.Equal(t, domain.StageAwaitingCashReceipt, order.Stage)

	f.apply(t, order.ID, photoEvent("receipt-1"))
	order = f.apply(t, order.ID, customerEvent(domain.EventSubmitEvidence))
	assert.Equal(t, domain.StageAdminReview, order.Stage)
	assert.Equal(t, int64(1400000), order.PaidAmount)
	f.notifier.reset()

	order = f.apply(t, order.ID, adminEvent(domain.EventAdminCancel))
	assert.Equal(t, domain.StageBalanceRecoveryPending, order.Stage)
	assert.Equal(t, int64(4200000), order.RemainingBalance)
	stages := stagesOf(order)
	assert.Equal(t, []domain.Stage{domain.StageCancelled, domain.StageBalanceRecoveryPending}, stages[len(stages)-2:])

	intents := f.notifier.reset()
	require.NotEmpty(t, intents)
	assert.Equal(t, notify.TemplateBalanceRecovery, intents[0].Template)
	buttons := intents[0].Keyboard.Buttons()
	require.Len(t, buttons, 1)
	assert.Equal(t, "start_recovery:"+order.ID, buttons[0].Data)

	order = f.apply(t, order.ID, customerEvent(domain.EventStartRecovery))
	assert.Equal(t, domain.StageAwaitingRecoveryReceipt, order.Stage)
	assert.Nil(t, order.Evidence)

	f.apply(t, order.ID, photoEvent("receipt-2"))
	order = f.apply(t, order.ID, customerEvent(domain.EventSubmitEvidence))
	assert.Equal(t, domain.StageAdminReview, order.Stage)
	assert.True(t, order.Recovery)

	intents = f.notifier.reset()
	var review notify.Intent
	for _, in := range intents {
		if in.Template == notify.TemplateReviewRequest {
			review = in
		}
	}
	assert.Equal(t, "receipt-2", review.PhotoRef)
	var kinds []string
	for _, b := range review.Keyboard.Buttons() {
		kinds = append(kinds, b.Data)
	}
	assert.Equal(t, []string{"admin_confirm:" + order.ID, "admin_contact_support:" + order.ID}, kinds)

	_, err := f.engine.Apply(context.Background(), order.ID, adminEvent(domain.EventAdminCancel))
	_, isStale := apperrors.IsStaleTransitionError(err)
	assert.True(t, isStale)

	before := order.Version
	order = f.apply(t, order.ID, adminEvent(domain.EventAdminContactSupport))
	assert.Equal(t, domain.StageAdminReview, order.Stage)
	assert.Equal(t, before, order.Version)
	assert.Equal(t, 1, f.notifier.count(notify.TemplateSupportContact))

	order = f.apply(t, order.ID, adminEvent(domain.EventAdminConfirm))
	assert.Equal(t, domain.StageConfirmed, order.Stage)
	assert.Equal(t, int64(5600000), order.PaidAmount)
	assert.Equal(t, int64(0), order.RemainingBalance)
	assert.Len(t, order.EvidenceLog, 2)
	assert.Equal(t, 1, calls)
}

func TestEngine_StaleEventLeavesOrderUntouched(t *testing.T) {
	f := newFixture(t, nil)
	order := f.checkout(t)
	f.apply(t, order.ID, customerEvent(domain.EventShowInvoice))
	order = f.apply(t, order.ID, methodEvent(domain.PaymentMethodCash))
	f.notifier.reset()

	_, err := f.engine.Apply(context.Background(), order.ID, adminEvent(domain.EventAdminConfirm))
	staleErr, ok := apperrors.IsStaleTransitionError(err)
	require.True(t, ok)
	assert.Equal(t, string(domain.StagePaymentTypeSelection), staleErr.Stage)

	stored, err := f.repo.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.Version, stored.Version)
	assert.Equal(t, order.History, stored.History)
	assert.Empty(t, f.notifier.reset())
}

func TestEngine_TotalsComputedOnce(t *testing.T) {
	calls := 0
	f := newFixture(t, ninetyDayPricing(&calls))
	order := f.checkout(t)
	f.apply(t, order.ID, customerEvent(domain.EventShowInvoice))
	order = f.apply(t, order.ID, methodEvent(domain.PaymentMethodInstallment90))
	f.notifier.reset()

	again := f.apply(t, order.ID, customerEvent(domain.EventShowInvoice))
	assert.Equal(t, order.Version, again.Version)
	assert.Equal(t, *order.Totals, *again.Totals)

	intents := f.notifier.reset()
	require.Len(t, intents, 1)
	assert.Equal(t, notify.TemplatePaymentTypeOptions, intents[0].Template)

	_, err := f.engine.Apply(context.Background(), order.ID, methodEvent(domain.PaymentMethodCash))
	_, isStale := apperrors.IsStaleTransitionError(err)
	assert.True(t, isStale)
	assert.Equal(t, 1, calls)
}

func TestEngine_ShowInvoiceRepeatsMethodOptions(t *testing.T) {
	f := newFixture(t, nil)
	order := f.checkout(t)
	first := f.apply(t, order.ID, customerEvent(domain.EventShowInvoice))
	second := f.apply(t, order.ID, customerEvent(domain.EventShowInvoice))

	assert.Equal(t, first.Version, second.Version)
	assert.Equal(t, 2, f.notifier.count(notify.TemplateInvoiceOptions))
}

func TestEngine_AssignRecipientIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	order := f.driveToRecipientPending(t, domain.PaymentMethodInstallment60)

	order = f.apply(t, order.ID, assignEvent("nima"))
	f.notifier.reset()

	repeat := f.apply(t, order.ID, assignEvent("nima"))
	assert.Equal(t, order.Version, repeat.Version)
	assert.Empty(t, f.notifier.reset())

	_, err := f.engine.Apply(context.Background(), order.ID, assignEvent("vahid"))
	dup, ok := apperrors.IsDuplicateAssignmentError(err)
	require.True(t, ok)
	assert.Equal(t, "nima", dup.Assigned)

	stored, err := f.repo.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, "nima", stored.AssignedRecipient)
}

func TestEngine_UnknownRecipientRejected(t *testing.T) {
	f := newFixture(t, nil)
	order := f.driveToRecipientPending(t, domain.PaymentMethodCash)

	_, err := f.engine.Apply(context.Background(), order.ID, assignEvent("nobody"))
	_, ok := apperrors.IsValidationError(err)
	assert.True(t, ok)
}

func TestEngine_ConfirmDeliveryRetryDoesNotResendBundle(t *testing.T) {
	f := newFixture(t, nil)
	order := f.driveToRecipientPending(t, domain.PaymentMethodInstallment60)
	f.apply(t, order.ID, assignEvent("farank"))
	f.apply(t, order.ID, customerEvent(domain.EventConfirmDelivery))

	_, err := f.engine.Apply(context.Background(), order.ID, customerEvent(domain.EventConfirmDelivery))
	_, isStale := apperrors.IsStaleTransitionError(err)
	assert.True(t, isStale)
	assert.Equal(t, 1, f.notifier.count(notify.TemplateFinalInvoice))
}

func TestEngine_MissingPaymentContext(t *testing.T) {
	f := newFixture(t, nil)
	order := f.checkout(t)

	_, err := f.engine.Apply(context.Background(), order.ID, photoEvent("early"))
	_, ok := apperrors.IsMissingPaymentContextError(err)
	assert.True(t, ok)

	f.apply(t, order.ID, customerEvent(domain.EventShowInvoice))
	_, err = f.engine.Apply(context.Background(), order.ID, photoEvent("early"))
	_, ok = apperrors.IsMissingPaymentContextError(err)
	assert.True(t, ok)

	f.apply(t, order.ID, methodEvent(domain.PaymentMethodCash))
	f.apply(t, order.ID, typeEvent(domain.PaymentTypeCheck))

	for _, kind := range []domain.EventKind{domain.EventSubmitEvidence, domain.EventShowInvoice, domain.EventConfirmDelivery} {
		_, err = f.engine.Apply(context.Background(), order.ID, customerEvent(kind))
		_, ok = apperrors.IsMissingPaymentContextError(err)
		assert.True(t, ok, "event %s", kind)
	}

	_, err = f.engine.Apply(context.Background(), order.ID, adminEvent(domain.EventAdminConfirm))
	_, isStale := apperrors.IsStaleTransitionError(err)
	assert.True(t, isStale)
}

func TestEngine_RetriedTypeWhileAwaitingCheckPhoto(t *testing.T) {
	f := newFixture(t, nil)
	order := f.checkout(t)
	f.apply(t, order.ID, customerEvent(domain.EventShowInvoice))
	f.apply(t, order.ID, methodEvent(domain.PaymentMethodInstallment60))
	order = f.apply(t, order.ID, typeEvent(domain.PaymentTypeCheck))
	require.Equal(t, domain.StageAwaitingCheckPhoto, order.Stage)

	_, err := f.engine.Apply(context.Background(), order.ID, typeEvent(domain.PaymentTypeCheck))
	me, ok := apperrors.IsMissingPaymentContextError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.MissingCheckPhoto, me.Missing)

	current, err := f.engine.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.Version, current.Version)
}

func TestEngine_SubmitWithoutReceipt(t *testing.T) {
	f := newFixture(t, nil)
	order := f.checkout(t)
	f.apply(t, order.ID, customerEvent(domain.EventShowInvoice))
	f.apply(t, order.ID, methodEvent(domain.PaymentMethodCash))
	f.apply(t, order.ID, typeEvent(domain.PaymentTypeCash))

	_, err := f.engine.Apply(context.Background(), order.ID, customerEvent(domain.EventSubmitEvidence))
	me, ok := apperrors.IsMissingPaymentContextError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.MissingReceipt, me.Missing)

	f.apply(t, order.ID, photoEvent("first"))
	order = f.apply(t, order.ID, photoEvent("second"))
	assert.Equal(t, "second", order.Evidence.PhotoRef)
	assert.Equal(t, domain.StageAwaitingCashReceipt, order.Stage)

	order = f.apply(t, order.ID, customerEvent(domain.EventSubmitEvidence))
	assert.Equal(t, domain.StageAdminReview, order.Stage)
	assert.Equal(t, order.Totals.GrandTotal, order.PaidAmount)
}

func TestEngine_SecondCheckoutRejectedWhileActive(t *testing.T) {
	f := newFixture(t, nil)
	order := f.checkout(t)

	_, err := f.engine.Checkout(context.Background(), testCustomer, customerChat, []domain.LineItem{{ProductID: "p-2", Size: "s", Quantity: 1, UnitPrice: 10}})
	active, ok := apperrors.IsActiveOrderError(err)
	require.True(t, ok)
	assert.Equal(t, order.ID, active.OrderID)

	_, err = f.engine.Checkout(context.Background(), testCustomer, customerChat, nil)
	_, ok = apperrors.IsValidationError(err)
	assert.True(t, ok)
}

func TestEngine_FullyPaidCancelIsTerminal(t *testing.T) {
	f := newFixture(t, nil)
	order := f.checkout(t)
	f.apply(t, order.ID, customerEvent(domain.EventShowInvoice))
	f.apply(t, order.ID, methodEvent(domain.PaymentMethodCash))
	f.apply(t, order.ID, typeEvent(domain.PaymentTypeCash))
	f.apply(t, order.ID, photoEvent("receipt"))
	f.apply(t, order.ID, customerEvent(domain.EventSubmitEvidence))

	order = f.apply(t, order.ID, adminEvent(domain.EventAdminCancel))
	assert.Equal(t, domain.StageCancelled, order.Stage)
	assert.Equal(t, int64(0), order.RemainingBalance)
	assert.Equal(t, 1, f.notifier.count(notify.TemplateOrderCancelled))

	_, err := f.engine.Apply(context.Background(), order.ID, customerEvent(domain.EventStartRecovery))
	_, isStale := apperrors.IsStaleTransitionError(err)
	assert.True(t, isStale)

	next := f.checkout(t)
	assert.NotEqual(t, order.ID, next.ID)
}

func TestEngine_CancelWithPaidOverride(t *testing.T) {
	f := newFixture(t, nil)
	order := f.driveToRecipientPending(t, domain.PaymentMethodInstallment60)
	f.apply(t, order.ID, assignEvent("majid"))
	f.apply(t, order.ID, customerEvent(domain.EventConfirmDelivery))

	tooMuch := int64(99999999)
	ev := adminEvent(domain.EventAdminCancel)
	ev.PaidAmount = &tooMuch
	_, err := f.engine.Apply(context.Background(), order.ID, ev)
	_, ok := apperrors.IsValidationError(err)
	assert.True(t, ok)

	paid := int64(1000000)
	ev.PaidAmount = &paid
	order = f.apply(t, order.ID, ev)
	assert.Equal(t, domain.StageBalanceRecoveryPending, order.Stage)
	assert.Equal(t, int64(2585000), order.RemainingBalance)
	assert.False(t, order.HasRecipient())
}

func TestEngine_ForbiddenActors(t *testing.T) {
	f := newFixture(t, nil)
	order := f.checkout(t)

	ev := customerEvent(domain.EventShowInvoice)
	ev.ActorID = 4242
	_, err := f.engine.Apply(context.Background(), order.ID, ev)
	_, ok := apperrors.IsForbiddenError(err)
	assert.True(t, ok)

	ev = customerEvent(domain.EventAdminConfirm)
	_, err = f.engine.Apply(context.Background(), order.ID, ev)
	_, ok = apperrors.IsForbiddenError(err)
	assert.True(t, ok)

	_, err = f.engine.Apply(context.Background(), "missing", customerEvent(domain.EventShowInvoice))
	_, ok = apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestEngine_ConcurrentAssignmentsBindOneRecipient(t *testing.T) {
	f := newFixture(t, nil)
	order := f.driveToRecipientPending(t, domain.PaymentMethodInstallment60)
	f.notifier.reset()

	keys := []string{"farank", "nima", "majid", "vahid"}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			_, err := f.engine.Apply(context.Background(), order.ID, assignEvent(key))
			if err != nil {
				_, ok := apperrors.IsDuplicateAssignmentError(err)
				assert.True(t, ok, "unexpected error %v", err)
			}
		}(keys[i%len(keys)])
	}
	wg.Wait()

	stored, err := f.repo.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageCustomerDeliveryConfirmationPending, stored.Stage)
	assert.Contains(t, keys, stored.AssignedRecipient)
	assert.Equal(t, 1, f.notifier.count(notify.TemplateRecipientAssigned))
}

func TestEngine_ConcurrentConfirmDeliverySendsOneBundle(t *testing.T) {
	f := newFixture(t, nil)
	order := f.driveToRecipientPending(t, domain.PaymentMethodInstallment60)
	f.apply(t, order.ID, assignEvent("nima"))

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.engine.Apply(context.Background(), order.ID, customerEvent(domain.EventConfirmDelivery)); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, f.notifier.count(notify.TemplateFinalInvoice))
}
