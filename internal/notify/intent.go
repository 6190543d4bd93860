package notify

import (
	"context"

	"decobot/internal/chat"
	"decobot/internal/domain"
)

type Audience string

const (
	AudienceCustomer   Audience = "customer"
	AudienceAdminGroup Audience = "admin_group"
)

type Template string

const (
	TemplateInvoiceOptions       Template = "invoice_options"
	TemplatePaymentTypeOptions   Template = "payment_type_options"
	TemplateCashInstructions     Template = "cash_instructions"
	TemplateCheckInstructions    Template = "check_instructions"
	TemplateEvidenceStaged       Template = "evidence_staged"
	TemplateReviewRequest        Template = "review_request"
	TemplateRecipientRequest     Template = "recipient_request"
	TemplateCheckForwarded       Template = "check_forwarded"
	TemplateRecipientAssigned    Template = "recipient_assigned"
	TemplateFinalInvoice         Template = "final_invoice"
	TemplateOrderSubmitted       Template = "order_submitted"
	TemplateOrderConfirmed       Template = "order_confirmed"
	TemplateOrderTracking        Template = "order_tracking"
	TemplateOrderShipped         Template = "order_shipped"
	TemplateOrderCancelled       Template = "order_cancelled"
	TemplateBalanceRecovery      Template = "balance_recovery"
	TemplateRecoveryInstructions Template = "recovery_instructions"
	TemplateSupportContact       Template = "support_contact"
	TemplateAdminUpdate          Template = "admin_update"
	TemplateOrderStatus          Template = "order_status"
	TemplateInstallmentReminder  Template = "installment_reminder"
	TemplateNotice               Template = "notice"
)

// Intent is one outbound message produced by a transition. Order is a
// snapshot taken after the transition committed.
type Intent struct {
	Audience  Audience
	ChatID    int64
	Template  Template
	Order     *domain.Order
	Keyboard  chat.Keyboard
	PhotoRef  string
	Options   []domain.Totals
	Recipient *domain.Recipient
	Actor     string
	Note      string
	// Installment is the installment number a reminder is about.
	Installment int
}

// Transport is the outbound half of the chat boundary.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard chat.Keyboard) error
	SendPhoto(ctx context.Context, chatID int64, photoRef, caption string, keyboard chat.Keyboard) error
}
