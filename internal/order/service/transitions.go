package service

import (
	"fmt"

	"decobot/internal/domain"
	apperrors "decobot/internal/errors"
	"decobot/internal/notify"
)

func (e *Engine) transition(o *domain.Order, ev domain.Event) ([]notify.Intent, error) {
	// While a check photo is outstanding the customer can only send it.
	if o.Stage == domain.StageAwaitingCheckPhoto && ev.Actor == domain.ActorCustomer && ev.Kind != domain.EventAttachEvidence {
		return nil, apperrors.NewMissingEvidenceError(apperrors.MissingCheckPhoto, "waiting for the check photo")
	}

	switch ev.Kind {
	case domain.EventShowInvoice:
		return e.showInvoice(o, ev)
	case domain.EventSelectMethod:
		return e.selectMethod(o, ev)
	case domain.EventSelectType:
		return e.selectType(o, ev)
	case domain.EventAttachEvidence:
		return e.attachEvidence(o, ev)
	case domain.EventSubmitEvidence:
		return e.submitEvidence(o, ev)
	case domain.EventAssignRecipient:
		return e.assignRecipient(o, ev)
	case domain.EventConfirmDelivery:
		return e.confirmDelivery(o, ev)
	case domain.EventAdminConfirm:
		return e.adminConfirm(o, ev)
	case domain.EventAdminTrack:
		return e.adminTrack(o, ev)
	case domain.EventAdminShip:
		return e.adminShip(o, ev)
	case domain.EventAdminCancel:
		return e.adminCancel(o, ev)
	case domain.EventAdminContactSupport:
		return e.adminContactSupport(o, ev)
	case domain.EventStartRecovery:
		return e.startRecovery(o, ev)
	case domain.EventInstallmentPaid:
		return e.installmentPaid(o, ev)
	}
	return nil, apperrors.NewValidationError(fmt.Sprintf("unknown event %q", ev.Kind))
}

func stale(o *domain.Order, ev domain.Event) error {
	return apperrors.NewStaleTransitionError(o.ID, string(o.Stage), string(ev.Kind))
}

// moveTo changes stage along a graph edge and records it in history.
func (e *Engine) moveTo(o *domain.Order, to domain.Stage, ev domain.Event) error {
	if !domain.CanTransition(o.Stage, to) {
		return apperrors.NewInternalError(fmt.Sprintf("illegal move %s -> %s", o.Stage, to), nil)
	}
	o.History = append(o.History, domain.HistoryEntry{
		From:  o.Stage,
		To:    to,
		Event: ev.Kind,
		Actor: ev.Actor,
		By:    ev.ActorName,
		At:    e.now().UTC(),
	})
	o.Stage = to
	return nil
}

func (e *Engine) showInvoice(o *domain.Order, ev domain.Event) ([]notify.Intent, error) {
	switch o.Stage {
	case domain.StageCheckoutPending, domain.StagePaymentMethodSelection:
		options, err := e.pricing.Preview(o.Items)
		if err != nil {
			return nil, err
		}
		result := error(ErrNoChange)
		if o.Stage == domain.StageCheckoutPending {
			if err := e.moveTo(o, domain.StagePaymentMethodSelection, ev); err != nil {
				return nil, err
			}
			result = nil
		}
		in := e.coord.CustomerIntent(o, notify.TemplateInvoiceOptions)
		in.Options = options
		return []notify.Intent{in}, result

	case domain.StagePaymentTypeSelection:
		// Totals were fixed when the method was chosen; show them as stored.
		return []notify.Intent{e.coord.CustomerIntent(o, notify.TemplatePaymentTypeOptions)}, ErrNoChange
	}
	return nil, stale(o, ev)
}

func (e *Engine) selectMethod(o *domain.Order, ev domain.Event) ([]notify.Intent, error) {
	if o.Stage != domain.StagePaymentMethodSelection || o.Totals != nil {
		return nil, stale(o, ev)
	}
	if !ev.Method.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown payment method %q", ev.Method))
	}

	totals, err := e.pricing.Compute(o.Items, ev.Method)
	if err != nil {
		return nil, err
	}
	o.Totals = &totals
	o.PaymentMethod = ev.Method
	if err := e.moveTo(o, domain.StagePaymentTypeSelection, ev); err != nil {
		return nil, err
	}
	return []notify.Intent{e.coord.CustomerIntent(o, notify.TemplatePaymentTypeOptions)}, nil
}

func (e *Engine) selectType(o *domain.Order, ev domain.Event) ([]notify.Intent, error) {
	if o.Stage != domain.StagePaymentTypeSelection {
		return nil, stale(o, ev)
	}
	if !ev.Type.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown payment type %q", ev.Type))
	}

	o.PaymentType = ev.Type
	if ev.Type == domain.PaymentTypeCash {
		if err := e.moveTo(o, domain.StageAwaitingCashReceipt, ev); err != nil {
			return nil, err
		}
		return []notify.Intent{e.coord.CustomerIntent(o, notify.TemplateCashInstructions)}, nil
	}

	o.CheckCycle++
	if err := e.moveTo(o, domain.StageAwaitingCheckPhoto, ev); err != nil {
		return nil, err
	}
	return []notify.Intent{e.coord.CustomerIntent(o, notify.TemplateCheckInstructions)}, nil
}

func (e *Engine) attachEvidence(o *domain.Order, ev domain.Event) ([]notify.Intent, error) {
	if ev.PhotoRef == "" {
		return nil, apperrors.NewValidationError("photo reference is required")
	}
	if o.PaymentMethod == "" || o.PaymentType == "" || o.Totals == nil {
		return nil, apperrors.NewMissingPaymentContextError("choose a payment method and type before sending a photo")
	}
	if !o.Stage.CollectsEvidence() {
		return nil, stale(o, ev)
	}

	evidence := domain.Evidence{PhotoRef: ev.PhotoRef, UploadedAt: e.now().UTC()}
	o.Evidence = &evidence
	o.EvidenceLog = append(o.EvidenceLog, evidence)

	if o.Stage != domain.StageAwaitingCheckPhoto {
		return []notify.Intent{e.coord.CustomerIntent(o, notify.TemplateEvidenceStaged)}, nil
	}

	if err := e.moveTo(o, domain.StageRecipientAssignmentPending, ev); err != nil {
		return nil, err
	}
	return []notify.Intent{
		e.coord.CustomerIntent(o, notify.TemplateCheckForwarded),
		e.coord.RecipientRequest(o),
	}, nil
}

func (e *Engine) submitEvidence(o *domain.Order, ev domain.Event) ([]notify.Intent, error) {
	switch o.Stage {
	case domain.StageAwaitingCashReceipt, domain.StageAwaitingRecoveryReceipt:
	default:
		return nil, stale(o, ev)
	}
	if o.Evidence == nil {
		return nil, apperrors.NewMissingEvidenceError(apperrors.MissingReceipt, "send the receipt photo first")
	}

	if o.Stage == domain.StageAwaitingRecoveryReceipt {
		o.Recovery = true
	} else {
		o.PaidAmount = o.Totals.AmountDue()
	}
	if err := e.moveTo(o, domain.StageAdminReview, ev); err != nil {
		return nil, err
	}
	return []notify.Intent{
		e.coord.CustomerIntent(o, notify.TemplateOrderSubmitted),
		e.coord.ReviewRequest(o),
	}, nil
}

func (e *Engine) assignRecipient(o *domain.Order, ev domain.Event) ([]notify.Intent, error) {
	changed, err := e.coord.Assign(o, ev.Recipient, ev.ActorName)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, ErrNoChange
	}
	if err := e.moveTo(o, domain.StageCustomerDeliveryConfirmationPending, ev); err != nil {
		return nil, err
	}

	rc, _ := e.coord.ref.Recipient(ev.Recipient)
	customer := e.coord.CustomerIntent(o, notify.TemplateRecipientAssigned)
	customer.Recipient = &rc
	return []notify.Intent{
		customer,
		e.coord.AdminUpdate(o, ev.ActorName, "گیرنده چک: "+rc.Name),
	}, nil
}

func (e *Engine) confirmDelivery(o *domain.Order, ev domain.Event) ([]notify.Intent, error) {
	if o.Stage != domain.StageCustomerDeliveryConfirmationPending {
		return nil, stale(o, ev)
	}
	if o.Evidence == nil || !o.HasRecipient() {
		return nil, apperrors.NewMissingPaymentContextError("check photo or recipient missing")
	}

	o.PaidAmount = o.Totals.AmountDue()
	if err := e.moveTo(o, domain.StageFinalInvoiceSentToAdmin, ev); err != nil {
		return nil, err
	}
	return []notify.Intent{
		e.coord.CustomerIntent(o, notify.TemplateOrderSubmitted),
		e.coord.BundleFinalInvoice(o),
	}, nil
}

func (e *Engine) adminConfirm(o *domain.Order, ev domain.Event) ([]notify.Intent, error) {
	switch o.Stage {
	case domain.StageAdminReview, domain.StageFinalInvoiceSentToAdmin:
	default:
		return nil, stale(o, ev)
	}

	if o.Stage == domain.StageAdminReview && o.Recovery {
		o.PaidAmount += o.RemainingBalance
		o.RemainingBalance = 0
	}
	e.ensureSchedule(o)
	if err := e.moveTo(o, domain.StageConfirmed, ev); err != nil {
		return nil, err
	}
	return []notify.Intent{
		e.coord.CustomerIntent(o, notify.TemplateOrderConfirmed),
		e.coord.AdminUpdate(o, ev.ActorName, "✅ سفارش تایید شد"),
	}, nil
}

func (e *Engine) adminTrack(o *domain.Order, ev domain.Event) ([]notify.Intent, error) {
	switch o.Stage {
	case domain.StageFinalInvoiceSentToAdmin, domain.StageConfirmed:
	default:
		return nil, stale(o, ev)
	}
	e.ensureSchedule(o)
	if err := e.moveTo(o, domain.StageTracking, ev); err != nil {
		return nil, err
	}
	return []notify.Intent{
		e.coord.CustomerIntent(o, notify.TemplateOrderTracking),
		e.coord.AdminUpdate(o, ev.ActorName, "🔄 در حال پیگیری"),
	}, nil
}

func (e *Engine) adminShip(o *domain.Order, ev domain.Event) ([]notify.Intent, error) {
	switch o.Stage {
	case domain.StageFinalInvoiceSentToAdmin, domain.StageConfirmed, domain.StageTracking:
	default:
		return nil, stale(o, ev)
	}
	e.ensureSchedule(o)
	if err := e.moveTo(o, domain.StageShipped, ev); err != nil {
		return nil, err
	}
	return []notify.Intent{
		e.coord.CustomerIntent(o, notify.TemplateOrderShipped),
		e.coord.AdminUpdate(o, ev.ActorName, "🚚 سفارش ارسال شد"),
	}, nil
}

func (e *Engine) adminCancel(o *domain.Order, ev domain.Event) ([]notify.Intent, error) {
	switch {
	case o.Stage == domain.StageAdminReview && !o.Recovery:
	case o.Stage == domain.StageFinalInvoiceSentToAdmin, o.Stage == domain.StageTracking:
	default:
		return nil, stale(o, ev)
	}

	var grand int64
	if o.Totals != nil {
		grand = o.Totals.GrandTotal
	}
	paid := o.PaidAmount
	if ev.PaidAmount != nil {
		paid = *ev.PaidAmount
		if paid < 0 || paid > grand {
			return nil, apperrors.NewValidationError(fmt.Sprintf("paid amount must be between 0 and %d", grand))
		}
	}
	o.PaidAmount = paid
	o.RemainingBalance = grand - paid

	if err := e.moveTo(o, domain.StageCancelled, ev); err != nil {
		return nil, err
	}
	// Closing the cycle releases the recipient binding.
	if o.PaymentType == domain.PaymentTypeCheck {
		o.CheckCycle++
	}
	o.Schedule.Cancel()

	if o.RemainingBalance <= 0 {
		o.RemainingBalance = 0
		return []notify.Intent{
			e.coord.CustomerIntent(o, notify.TemplateOrderCancelled),
			e.coord.AdminUpdate(o, ev.ActorName, "❌ سفارش لغو شد"),
		}, nil
	}

	if err := e.moveTo(o, domain.StageBalanceRecoveryPending, ev); err != nil {
		return nil, err
	}
	return []notify.Intent{
		e.coord.CustomerIntent(o, notify.TemplateBalanceRecovery),
		e.coord.AdminUpdate(o, ev.ActorName, "❌ سفارش لغو شد، در انتظار واریز مانده"),
	}, nil
}

func (e *Engine) adminContactSupport(o *domain.Order, ev domain.Event) ([]notify.Intent, error) {
	if o.Stage != domain.StageAdminReview || !o.Recovery {
		return nil, stale(o, ev)
	}
	return []notify.Intent{
		e.coord.CustomerIntent(o, notify.TemplateSupportContact),
		e.coord.AdminUpdate(o, ev.ActorName, "📞 پشتیبانی با مشتری تماس می‌گیرد"),
	}, ErrNoChange
}

func (e *Engine) startRecovery(o *domain.Order, ev domain.Event) ([]notify.Intent, error) {
	if o.Stage != domain.StageBalanceRecoveryPending {
		return nil, stale(o, ev)
	}
	// The recovery receipt is a new piece of evidence.
	o.Evidence = nil
	if err := e.moveTo(o, domain.StageAwaitingRecoveryReceipt, ev); err != nil {
		return nil, err
	}
	return []notify.Intent{e.coord.CustomerIntent(o, notify.TemplateRecoveryInstructions)}, nil
}

// ensureSchedule opens the payment schedule of an installment order the first
// time an admin approves it. Recovered orders keep their cancelled schedule.
func (e *Engine) ensureSchedule(o *domain.Order) {
	if o.Schedule != nil || o.Recovery || o.Totals == nil {
		return
	}
	o.Schedule = domain.NewPaymentSchedule(o.PaymentMethod, *o.Totals, e.now().UTC())
}

func (e *Engine) installmentPaid(o *domain.Order, ev domain.Event) ([]notify.Intent, error) {
	switch o.Stage {
	case domain.StageConfirmed, domain.StageTracking, domain.StageShipped:
	default:
		return nil, stale(o, ev)
	}
	if o.Schedule == nil || o.Schedule.Status == domain.ScheduleCancelled {
		return nil, stale(o, ev)
	}

	changed, err := o.Schedule.MarkPaid(ev.Installment, e.now().UTC())
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if !changed {
		return nil, ErrNoChange
	}

	note := fmt.Sprintf("💵 قسط %d پرداخت شد", ev.Installment)
	if o.Schedule.Status == domain.ScheduleCompleted {
		note += "، همه اقساط تسویه شد"
	}
	return []notify.Intent{e.coord.AdminUpdate(o, ev.ActorName, note)}, nil
}
