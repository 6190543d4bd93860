package domain

type Actor string

const (
	ActorCustomer Actor = "customer"
	ActorAdmin    Actor = "admin"
)

type EventKind string

const (
	EventShowInvoice         EventKind = "show_invoice"
	EventSelectMethod        EventKind = "select_method"
	EventSelectType          EventKind = "select_type"
	EventAttachEvidence      EventKind = "attach_evidence"
	EventSubmitEvidence      EventKind = "submit_evidence"
	EventAssignRecipient     EventKind = "assign_recipient"
	EventConfirmDelivery     EventKind = "confirm_delivery"
	EventAdminConfirm        EventKind = "admin_confirm"
	EventAdminTrack          EventKind = "admin_track"
	EventAdminShip           EventKind = "admin_ship"
	EventAdminCancel         EventKind = "admin_cancel"
	EventAdminContactSupport EventKind = "admin_contact_support"
	EventStartRecovery       EventKind = "start_recovery"
	EventInstallmentPaid     EventKind = "installment_paid"
)

var eventActors = map[EventKind]Actor{
	EventShowInvoice:         ActorCustomer,
	EventSelectMethod:        ActorCustomer,
	EventSelectType:          ActorCustomer,
	EventAttachEvidence:      ActorCustomer,
	EventSubmitEvidence:      ActorCustomer,
	EventConfirmDelivery:     ActorCustomer,
	EventStartRecovery:       ActorCustomer,
	EventAssignRecipient:     ActorAdmin,
	EventAdminConfirm:        ActorAdmin,
	EventAdminTrack:          ActorAdmin,
	EventAdminShip:           ActorAdmin,
	EventAdminCancel:         ActorAdmin,
	EventAdminContactSupport: ActorAdmin,
	EventInstallmentPaid:     ActorAdmin,
}

// ActorFor returns the party allowed to raise the event. ok is false for
// unknown kinds.
func (k EventKind) ActorFor() (Actor, bool) {
	a, ok := eventActors[k]
	return a, ok
}

// Event is one inbound action already resolved to an order.
type Event struct {
	Kind      EventKind
	Actor     Actor
	ActorID   int64
	ActorName string

	Method    PaymentMethod
	Type      PaymentType
	PhotoRef  string
	Recipient string

	// Installment is the installment number settled by installment_paid.
	Installment int

	// PaidAmount overrides the amount considered paid on cancellation.
	PaidAmount *int64
}
