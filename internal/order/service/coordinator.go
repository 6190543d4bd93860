package service

import (
	"fmt"
	"strconv"

	"decobot/internal/chat"
	"decobot/internal/domain"
	apperrors "decobot/internal/errors"
	"decobot/internal/notify"
)

// Coordinator owns the admin side of the workflow: who the check is written
// to, which buttons each party sees, and what lands in the admin group.
type Coordinator struct {
	ref          *domain.ReferenceData
	adminGroupID int64
}

func NewCoordinator(ref *domain.ReferenceData, adminGroupChatID int64) *Coordinator {
	return &Coordinator{ref: ref, adminGroupID: adminGroupChatID}
}

func (c *Coordinator) AdminGroupChatID() int64 {
	return c.adminGroupID
}

// Assign binds a check recipient for the current check cycle. It returns
// false when the same recipient is already bound.
func (c *Coordinator) Assign(o *domain.Order, recipientKey, adminName string) (bool, error) {
	if _, ok := c.ref.Recipient(recipientKey); !ok {
		return false, apperrors.NewValidationError(fmt.Sprintf("unknown recipient %q", recipientKey))
	}

	if o.HasRecipient() {
		if o.AssignedRecipient == recipientKey {
			return false, nil
		}
		return false, apperrors.NewDuplicateAssignmentError(o.ID, o.AssignedRecipient)
	}

	if o.Stage != domain.StageRecipientAssignmentPending {
		return false, apperrors.NewStaleTransitionError(o.ID, string(o.Stage), string(domain.EventAssignRecipient))
	}

	o.AssignedRecipient = recipientKey
	o.RecipientCycle = o.CheckCycle
	o.AssignedBy = adminName
	return true, nil
}

func button(text string, kind domain.EventKind, orderID, arg string) chat.Button {
	return chat.Button{Text: text, Data: chat.EncodeCallback(string(kind), orderID, arg)}
}

// AdminKeyboard returns the admin actions valid for the order's stage.
func (c *Coordinator) AdminKeyboard(o *domain.Order) chat.Keyboard {
	switch o.Stage {
	case domain.StageAdminReview:
		if o.Recovery {
			return chat.Keyboard{{
				button("✅ تایید سفارش", domain.EventAdminConfirm, o.ID, ""),
				button("📞 تماس با پشتیبانی", domain.EventAdminContactSupport, o.ID, ""),
			}}
		}
		return chat.Keyboard{{
			button("✅ تایید سفارش", domain.EventAdminConfirm, o.ID, ""),
			button("❌ لغو سفارش", domain.EventAdminCancel, o.ID, ""),
		}}

	case domain.StageRecipientAssignmentPending:
		var kb chat.Keyboard
		for _, rc := range c.ref.Recipients {
			kb = append(kb, []chat.Button{button(rc.Name, domain.EventAssignRecipient, o.ID, rc.Key)})
		}
		return kb

	case domain.StageFinalInvoiceSentToAdmin:
		return chat.Keyboard{
			{button("✅ تایید سفارش", domain.EventAdminConfirm, o.ID, "")},
			{button("🔄 در حال پیگیری", domain.EventAdminTrack, o.ID, "")},
			{button("🚚 سفارش ارسال شد", domain.EventAdminShip, o.ID, "")},
		}

	case domain.StageConfirmed:
		return chat.Keyboard{
			{button("🔄 در حال پیگیری", domain.EventAdminTrack, o.ID, "")},
			{button("🚚 سفارش ارسال شد", domain.EventAdminShip, o.ID, "")},
		}

	case domain.StageTracking:
		return chat.Keyboard{{button("🚚 سفارش ارسال شد", domain.EventAdminShip, o.ID, "")}}
	}
	return nil
}

var methodButtonLabels = map[domain.PaymentMethod]string{
	domain.PaymentMethodCash:          "💰 نقدی (۳۰٪ تخفیف)",
	domain.PaymentMethodInstallment60: "📅 چک ۶۰ روزه (۲۵٪ تخفیف)",
	domain.PaymentMethodInstallment90: "📅 چک ۹۰ روزه (۲۵٪ پیش پرداخت)",
}

// CustomerKeyboard returns the customer actions valid for the order's stage.
func (c *Coordinator) CustomerKeyboard(o *domain.Order) chat.Keyboard {
	switch o.Stage {
	case domain.StagePaymentMethodSelection:
		var kb chat.Keyboard
		for _, m := range domain.PaymentMethods {
			kb = append(kb, []chat.Button{button(methodButtonLabels[m], domain.EventSelectMethod, o.ID, chat.MethodArg(m))})
		}
		return kb

	case domain.StagePaymentTypeSelection:
		return chat.Keyboard{{
			button("💵 واریز نقدی", domain.EventSelectType, o.ID, string(domain.PaymentTypeCash)),
			button("📝 چک", domain.EventSelectType, o.ID, string(domain.PaymentTypeCheck)),
		}}

	case domain.StageAwaitingCashReceipt, domain.StageAwaitingRecoveryReceipt:
		if o.Evidence == nil {
			return nil
		}
		return chat.Keyboard{{button("📤 ارسال فیش", domain.EventSubmitEvidence, o.ID, "")}}

	case domain.StageCustomerDeliveryConfirmationPending:
		return chat.Keyboard{{button("✅ چک را ثبت کرده ام و تا ۱۰ روز کاری ارسال خواهم کرد", domain.EventConfirmDelivery, o.ID, "")}}

	case domain.StageBalanceRecoveryPending:
		return chat.Keyboard{{button("💳 واریز مانده حساب", domain.EventStartRecovery, o.ID, "")}}
	}
	return nil
}

// ReviewRequest asks the admin group to approve a staged receipt.
func (c *Coordinator) ReviewRequest(o *domain.Order) notify.Intent {
	return c.adminIntent(o, notify.TemplateReviewRequest, true)
}

// RecipientRequest asks the admin group which recipient the check is written to.
func (c *Coordinator) RecipientRequest(o *domain.Order) notify.Intent {
	return c.adminIntent(o, notify.TemplateRecipientRequest, true)
}

// BundleFinalInvoice is the single consolidated message for a completed
// check flow: invoice, recipient and the check photo.
func (c *Coordinator) BundleFinalInvoice(o *domain.Order) notify.Intent {
	return c.adminIntent(o, notify.TemplateFinalInvoice, true)
}

// InstallmentReminder asks the admin group to follow up on a due installment.
func (c *Coordinator) InstallmentReminder(o *domain.Order, number int) notify.Intent {
	in := c.adminIntent(o, notify.TemplateInstallmentReminder, false)
	in.Installment = number
	in.Keyboard = chat.Keyboard{{
		button("✅ پرداخت انجام شد", domain.EventInstallmentPaid, o.ID, strconv.Itoa(number)),
	}}
	return in
}

// AdminUpdate reports an action taken on the order to the admin group.
func (c *Coordinator) AdminUpdate(o *domain.Order, actor, note string) notify.Intent {
	in := c.adminIntent(o, notify.TemplateAdminUpdate, false)
	in.Actor = actor
	in.Note = note
	return in
}

func (c *Coordinator) adminIntent(o *domain.Order, tmpl notify.Template, withPhoto bool) notify.Intent {
	in := notify.Intent{
		Audience: notify.AudienceAdminGroup,
		ChatID:   c.adminGroupID,
		Template: tmpl,
		Order:    o,
		Keyboard: c.AdminKeyboard(o),
	}
	if withPhoto && o.Evidence != nil {
		in.PhotoRef = o.Evidence.PhotoRef
	}
	return in
}

// CustomerIntent addresses the order's own chat.
func (c *Coordinator) CustomerIntent(o *domain.Order, tmpl notify.Template) notify.Intent {
	return notify.Intent{
		Audience: notify.AudienceCustomer,
		ChatID:   o.ChatID,
		Template: tmpl,
		Order:    o,
		Keyboard: c.CustomerKeyboard(o),
	}
}
