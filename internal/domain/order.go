package domain

import "time"

type Stage string

const (
	StageCheckoutPending                     Stage = "CHECKOUT_PENDING"
	StagePaymentMethodSelection              Stage = "PAYMENT_METHOD_SELECTION"
	StagePaymentTypeSelection                Stage = "PAYMENT_TYPE_SELECTION"
	StageAwaitingCashReceipt                 Stage = "AWAITING_CASH_RECEIPT"
	StageAdminReview                         Stage = "ADMIN_REVIEW"
	StageAwaitingCheckPhoto                  Stage = "AWAITING_CHECK_PHOTO"
	StageRecipientAssignmentPending          Stage = "RECIPIENT_ASSIGNMENT_PENDING"
	StageCustomerDeliveryConfirmationPending Stage = "CUSTOMER_DELIVERY_CONFIRMATION_PENDING"
	StageFinalInvoiceSentToAdmin             Stage = "FINAL_INVOICE_SENT_TO_ADMIN"
	StageConfirmed                           Stage = "CONFIRMED"
	StageTracking                            Stage = "TRACKING"
	StageShipped                             Stage = "SHIPPED"
	StageCancelled                           Stage = "CANCELLED"
	StageBalanceRecoveryPending              Stage = "BALANCE_RECOVERY_PENDING"
	StageAwaitingRecoveryReceipt             Stage = "AWAITING_RECOVERY_RECEIPT"
)

// stageEdges is the complete lifecycle graph. Anything not listed here is an
// off-graph move.
var stageEdges = map[Stage][]Stage{
	StageCheckoutPending:                     {StagePaymentMethodSelection},
	StagePaymentMethodSelection:              {StagePaymentTypeSelection},
	StagePaymentTypeSelection:                {StageAwaitingCashReceipt, StageAwaitingCheckPhoto},
	StageAwaitingCashReceipt:                 {StageAdminReview},
	StageAdminReview:                         {StageConfirmed, StageCancelled},
	StageAwaitingCheckPhoto:                  {StageRecipientAssignmentPending},
	StageRecipientAssignmentPending:          {StageCustomerDeliveryConfirmationPending},
	StageCustomerDeliveryConfirmationPending: {StageFinalInvoiceSentToAdmin},
	StageFinalInvoiceSentToAdmin:             {StageConfirmed, StageTracking, StageShipped, StageCancelled},
	StageConfirmed:                           {StageTracking, StageShipped},
	StageTracking:                            {StageShipped, StageCancelled},
	StageCancelled:                           {StageBalanceRecoveryPending},
	StageBalanceRecoveryPending:              {StageAwaitingRecoveryReceipt},
	StageAwaitingRecoveryReceipt:             {StageAdminReview},
}

// CanTransition reports whether from -> to is an edge of the lifecycle graph.
func CanTransition(from, to Stage) bool {
	for _, next := range stageEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsActive reports whether an order in this stage still blocks a new checkout
// for the same customer.
func (s Stage) IsActive() bool {
	switch s {
	case StageConfirmed, StageTracking, StageShipped, StageCancelled:
		return false
	}
	return true
}

// CollectsEvidence reports whether a receipt or check photo may be attached
// (or replaced) in this stage.
func (s Stage) CollectsEvidence() bool {
	switch s {
	case StageAwaitingCashReceipt, StageAwaitingCheckPhoto, StageAwaitingRecoveryReceipt:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCash          PaymentMethod = "cash"
	PaymentMethodInstallment60 PaymentMethod = "installment-60"
	PaymentMethodInstallment90 PaymentMethod = "installment-90"
)

var PaymentMethods = []PaymentMethod{
	PaymentMethodCash,
	PaymentMethodInstallment60,
	PaymentMethodInstallment90,
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodInstallment60, PaymentMethodInstallment90:
		return true
	}
	return false
}

type PaymentType string

const (
	PaymentTypeCash  PaymentType = "cash"
	PaymentTypeCheck PaymentType = "check"
)

func (t PaymentType) Valid() bool {
	return t == PaymentTypeCash || t == PaymentTypeCheck
}

// LineItem is one row of the cart snapshot taken at checkout.
type LineItem struct {
	ProductID   string `json:"productId" bson:"productId"`
	ProductName string `json:"productName,omitempty" bson:"productName,omitempty"`
	Size        string `json:"size" bson:"size"`
	Quantity    int    `json:"quantity" bson:"quantity"`
	UnitPrice   int64  `json:"unitPrice" bson:"unitPrice"`
}

func (i LineItem) Total() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// Totals are whole toman amounts for one payment method.
type Totals struct {
	Method     PaymentMethod `json:"method" bson:"method"`
	Subtotal   int64         `json:"subtotal" bson:"subtotal"`
	Discount   int64         `json:"discount" bson:"discount"`
	Tax        int64         `json:"tax" bson:"tax"`
	GrandTotal int64         `json:"grandTotal" bson:"grandTotal"`
	Advance    int64         `json:"advance,omitempty" bson:"advance,omitempty"`
}

// AmountDue is what the customer pays up front: the advance when one is
// required, the grand total otherwise.
func (t Totals) AmountDue() int64 {
	if t.Advance > 0 {
		return t.Advance
	}
	return t.GrandTotal
}

type Evidence struct {
	PhotoRef   string    `json:"photoRef" bson:"photoRef"`
	UploadedAt time.Time `json:"uploadedAt" bson:"uploadedAt"`
}

type HistoryEntry struct {
	From  Stage     `json:"from" bson:"from"`
	To    Stage     `json:"to" bson:"to"`
	Event EventKind `json:"event" bson:"event"`
	Actor Actor     `json:"actor" bson:"actor"`
	By    string    `json:"by,omitempty" bson:"by,omitempty"`
	At    time.Time `json:"at" bson:"at"`
}

type Order struct {
	ID            string        `json:"id" bson:"id"`
	CustomerID    string        `json:"customerId" bson:"customerId"`
	CustomerName  string        `json:"customerName" bson:"customerName"`
	City          string        `json:"city" bson:"city"`
	ChatID        int64         `json:"chatId" bson:"chatId"`
	Items         []LineItem    `json:"items" bson:"items"`
	Totals        *Totals       `json:"totals,omitempty" bson:"totals,omitempty"`
	PaymentMethod PaymentMethod `json:"paymentMethod,omitempty" bson:"paymentMethod,omitempty"`
	PaymentType   PaymentType   `json:"paymentType,omitempty" bson:"paymentType,omitempty"`
	Evidence      *Evidence     `json:"evidence,omitempty" bson:"evidence,omitempty"`
	// EvidenceLog keeps every photo ever attached, including replaced ones.
	EvidenceLog []Evidence `json:"evidenceLog,omitempty" bson:"evidenceLog,omitempty"`

	// CheckCycle counts check-payment rounds; a recipient assignment only
	// binds within the cycle it was made in.
	CheckCycle        int    `json:"checkCycle" bson:"checkCycle"`
	AssignedRecipient string `json:"assignedRecipient,omitempty" bson:"assignedRecipient,omitempty"`
	RecipientCycle    int    `json:"recipientCycle,omitempty" bson:"recipientCycle,omitempty"`
	AssignedBy        string `json:"assignedBy,omitempty" bson:"assignedBy,omitempty"`

	Stage            Stage `json:"stage" bson:"stage"`
	Recovery         bool  `json:"recovery" bson:"recovery"`
	PaidAmount       int64 `json:"paidAmount" bson:"paidAmount"`
	RemainingBalance int64 `json:"remainingBalance" bson:"remainingBalance"`

	// Schedule is set once an installment order is approved.
	Schedule *PaymentSchedule `json:"schedule,omitempty" bson:"schedule,omitempty"`

	History   []HistoryEntry `json:"history" bson:"history"`
	Version   int64          `json:"version" bson:"version"`
	CreatedAt time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt" bson:"updatedAt"`
}

// HasRecipient reports whether a recipient is bound for the current check cycle.
func (o *Order) HasRecipient() bool {
	return o.AssignedRecipient != "" && o.RecipientCycle == o.CheckCycle
}

// Clone returns a deep copy so mutations can be applied and discarded.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	if o.Items != nil {
		c.Items = append([]LineItem(nil), o.Items...)
	}
	if o.EvidenceLog != nil {
		c.EvidenceLog = append([]Evidence(nil), o.EvidenceLog...)
	}
	if o.History != nil {
		c.History = append([]HistoryEntry(nil), o.History...)
	}
	if o.Totals != nil {
		t := *o.Totals
		c.Totals = &t
	}
	if o.Evidence != nil {
		e := *o.Evidence
		c.Evidence = &e
	}
	c.Schedule = o.Schedule.Clone()
	return &c
}
