package notify

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"decobot/internal/domain"
)

const separator = "━━━━━━━━━━━━━━━━━━━━"

var methodLabels = map[domain.PaymentMethod]string{
	domain.PaymentMethodCash:          "نقدی",
	domain.PaymentMethodInstallment60: "اقساط ۶۰ روزه",
	domain.PaymentMethodInstallment90: "اقساط ۹۰ روزه",
}

var typeLabels = map[domain.PaymentType]string{
	domain.PaymentTypeCash:  "واریز نقدی",
	domain.PaymentTypeCheck: "چک",
}

func MethodLabel(m domain.PaymentMethod) string {
	if l, ok := methodLabels[m]; ok {
		return l
	}
	return string(m)
}

func TypeLabel(t domain.PaymentType) string {
	if l, ok := typeLabels[t]; ok {
		return l
	}
	return string(t)
}

// Renderer turns intents into Persian message text.
type Renderer struct {
	printer *message.Printer
	ref     *domain.ReferenceData
}

func NewRenderer(ref *domain.ReferenceData) *Renderer {
	return &Renderer{
		printer: message.NewPrinter(language.Persian),
		ref:     ref,
	}
}

// Amount formats a toman amount with Persian digits and grouping.
func (r *Renderer) Amount(v int64) string {
	return r.printer.Sprintf("%d", v) + " تومان"
}

func (r *Renderer) Number(v int) string {
	return r.printer.Sprintf("%d", v)
}

func (r *Renderer) Render(in Intent) string {
	o := in.Order
	var b strings.Builder

	switch in.Template {
	case TemplateInvoiceOptions:
		b.WriteString("📋 پیش‌فاکتور سفارش\n" + separator + "\n")
		r.writeHeader(&b, o)
		r.writeItems(&b, o)
		b.WriteString("\n💳 روش‌های پرداخت:\n")
		for _, opt := range in.Options {
			fmt.Fprintf(&b, "• %s: %s", MethodLabel(opt.Method), r.Amount(opt.GrandTotal))
			if opt.Advance > 0 {
				fmt.Fprintf(&b, " (پیش‌پرداخت %s)", r.Amount(opt.Advance))
			}
			b.WriteString("\n")
		}
		b.WriteString("\nلطفاً روش پرداخت را انتخاب کنید.")

	case TemplatePaymentTypeOptions:
		b.WriteString("🧾 فاکتور " + MethodLabel(o.PaymentMethod) + "\n" + separator + "\n")
		r.writeHeader(&b, o)
		r.writeItems(&b, o)
		r.writeTotals(&b, o)
		b.WriteString("\nنحوه پرداخت را انتخاب کنید: واریز نقدی یا چک")

	case TemplateCashInstructions:
		fmt.Fprintf(&b, "💰 مبلغ قابل پرداخت: %s\n\n", r.Amount(o.Totals.AmountDue()))
		r.writeBank(&b)
		b.WriteString("\n📸 پس از واریز، لطفاً عکس فیش را ارسال کنید.")

	case TemplateCheckInstructions:
		fmt.Fprintf(&b, "📝 مبلغ چک: %s\n\n", r.Amount(o.Totals.AmountDue()))
		b.WriteString("لطفاً عکس چک را ارسال کنید تا تیم پشتیبانی جهت ثبت چک به اسم و کد ملی مد نظر مجموعه به شما پیام دهد.")

	case TemplateEvidenceStaged:
		b.WriteString("📸 فیش واریزی دریافت شد.\nدر صورت نیاز می‌توانید عکس دیگری ارسال کنید، سپس دکمه تایید و ارسال به پشتیبانی را بزنید.")

	case TemplateReviewRequest:
		if o.Recovery {
			b.WriteString("💳 فیش واریز مانده حساب\n" + separator + "\n")
		} else {
			b.WriteString("🧾 فیش واریزی جدید\n" + separator + "\n")
		}
		r.writeHeader(&b, o)
		r.writeItems(&b, o)
		r.writeTotals(&b, o)
		if o.Recovery {
			fmt.Fprintf(&b, "📊 مانده پرداخت شده: %s\n", r.Amount(o.RemainingBalance))
		}

	case TemplateRecipientRequest:
		b.WriteString("📝 چک جدید برای بررسی\n" + separator + "\n")
		r.writeHeader(&b, o)
		r.writeTotals(&b, o)
		b.WriteString("\n📝 لطفاً گیرنده چک را انتخاب کنید")

	case TemplateCheckForwarded:
		b.WriteString("📤 عکس چک شما برای تیم پشتیبانی ارسال شد.\n📞 به زودی اطلاعات کد ملی مورد نیاز برای ثبت چک ارسال می‌شود.")

	case TemplateRecipientAssigned:
		b.WriteString("✅ چک شما توسط تیم پشتیبانی مورد قبول قرار گرفت\n\n")
		if in.Recipient != nil {
			fmt.Fprintf(&b, "📝 لطفاً چک را به اسم %s به کد ملی: %s ثبت کنید\n\n", in.Recipient.Name, in.Recipient.NationalID)
		}
		b.WriteString("📅 تا ۱۰ روز کاری چک را به آدرس کارخانه بخش حسابداری ارسال کنید")

	case TemplateFinalInvoice:
		b.WriteString("📋 سفارش نهایی - چک\n" + separator + "\n")
		r.writeHeader(&b, o)
		fmt.Fprintf(&b, "💳 نوع پرداخت: %s\n", MethodLabel(o.PaymentMethod))
		fmt.Fprintf(&b, "💰 مبلغ چک: %s\n", r.Amount(o.Totals.AmountDue()))
		fmt.Fprintf(&b, "💰 جمع کل فاکتور: %s\n", r.Amount(o.Totals.GrandTotal))
		if rc, ok := r.ref.Recipient(o.AssignedRecipient); ok {
			fmt.Fprintf(&b, "👤 گیرنده چک: %s (%s)\n", rc.Name, rc.NationalID)
		}
		r.writeItems(&b, o)
		b.WriteString("\n🕐 چک باید طی ۱۰ روز کاری به کارخانه ارسال شود\n✅ مشتری تایید کرد - آماده پردازش")

	case TemplateOrderSubmitted:
		fmt.Fprintf(&b, "✅ سفارش شما با موفقیت ثبت شد!\n\n📋 شماره سفارش: %s\n", o.ID)
		b.WriteString("📄 مدارک پرداخت و فاکتور برای تیم پشتیبانی ارسال شد.\n🙏 از اعتماد شما متشکریم!")

	case TemplateOrderConfirmed:
		fmt.Fprintf(&b, "✅ سفارش %s تایید شد.", o.ID)
		if o.Schedule.Active() {
			b.WriteString("\n\n📅 سررسید اقساط:\n")
			for _, in := range o.Schedule.Installments {
				fmt.Fprintf(&b, "%s. %s | %s\n", r.Number(in.Number), in.DueAt.Format("2006-01-02"), r.Amount(in.Amount))
			}
		}

	case TemplateOrderTracking:
		fmt.Fprintf(&b, "🔄 سفارش %s در حال پیگیری است.", o.ID)

	case TemplateOrderShipped:
		fmt.Fprintf(&b, "🚚 سفارش %s ارسال شد.", o.ID)

	case TemplateOrderCancelled:
		fmt.Fprintf(&b, "❌ متأسفانه سفارش %s لغو شد.\n📞 برای اطلاعات بیشتر با پشتیبانی تماس بگیرید.", o.ID)

	case TemplateBalanceRecovery:
		fmt.Fprintf(&b, "❌ سفارش %s لغو شد.\n\n", o.ID)
		fmt.Fprintf(&b, "💰 مبلغ کل فاکتور: %s\n", r.Amount(o.Totals.GrandTotal))
		fmt.Fprintf(&b, "💳 مبلغ پرداخت شده: %s\n", r.Amount(o.PaidAmount))
		fmt.Fprintf(&b, "📊 مانده قابل پرداخت: %s\n\n", r.Amount(o.RemainingBalance))
		b.WriteString("برای ادامه سفارش، مانده حساب را واریز کنید.")

	case TemplateRecoveryInstructions:
		b.WriteString("💳 واریز مانده حساب\n" + separator + "\n")
		fmt.Fprintf(&b, "📋 سفارش: %s\n📊 مانده قابل پرداخت: %s\n\n", o.ID, r.Amount(o.RemainingBalance))
		r.writeBank(&b)
		b.WriteString("\n📸 پس از واریز، لطفاً عکس فیش را ارسال کنید.")

	case TemplateSupportContact:
		b.WriteString("📞 تیم پشتیبانی به زودی با شما تماس می‌گیرد.")
		if r.ref.SupportContact != "" {
			fmt.Fprintf(&b, "\nشماره پشتیبانی: %s", r.ref.SupportContact)
		}

	case TemplateAdminUpdate:
		fmt.Fprintf(&b, "%s: %s\n📋 سفارش: %s", in.Actor, in.Note, o.ID)

	case TemplateOrderStatus:
		fmt.Fprintf(&b, "📋 سفارش %s\n", o.ID)
		fmt.Fprintf(&b, "📍 وضعیت: %s\n", StageLabel(o.Stage))
		if o.Totals != nil {
			fmt.Fprintf(&b, "💰 جمع کل: %s\n", r.Amount(o.Totals.GrandTotal))
		}
		if o.RemainingBalance > 0 {
			fmt.Fprintf(&b, "📊 مانده: %s\n", r.Amount(o.RemainingBalance))
		}

	case TemplateInstallmentReminder:
		r.writeInstallmentReminder(&b, o, in.Installment)

	case TemplateNotice:
		b.WriteString(in.Note)

	default:
		b.WriteString(in.Note)
	}

	return strings.TrimRight(b.String(), "\n")
}

func (r *Renderer) writeInstallmentReminder(b *strings.Builder, o *domain.Order, number int) {
	s := o.Schedule
	in, _ := s.Installment(number)
	if len(s.Installments) == 1 {
		b.WriteString("🔔 یادآوری پرداخت " + MethodLabel(s.Method) + "\n" + separator + "\n")
	} else {
		b.WriteString("🔔 یادآوری پرداخت قسط ماهانه\n" + separator + "\n")
	}
	r.writeHeader(b, o)
	b.WriteString("\n")
	if len(s.Installments) > 1 {
		fmt.Fprintf(b, "📅 قسط شماره: %s از %s\n", r.Number(in.Number), r.Number(len(s.Installments)))
	}
	fmt.Fprintf(b, "💰 مبلغ قسط: %s\n", r.Amount(in.Amount))
	fmt.Fprintf(b, "📆 سررسید: %s\n", in.DueAt.Format("2006-01-02"))
	fmt.Fprintf(b, "📊 مانده کل: %s\n\n", r.Amount(s.Outstanding()))
	b.WriteString("📞 لطفاً با مشتری تماس بگیرید و پس از دریافت، پرداخت را ثبت کنید.")
}

func (r *Renderer) writeHeader(b *strings.Builder, o *domain.Order) {
	fmt.Fprintf(b, "📋 شماره سفارش: %s\n", o.ID)
	fmt.Fprintf(b, "👤 مشتری: %s\n", o.CustomerName)
	if o.City != "" {
		fmt.Fprintf(b, "🏙️ شهر: %s\n", o.City)
	}
	fmt.Fprintf(b, "🆔 کد مشتری: %s\n", o.CustomerID)
}

func (r *Renderer) writeItems(b *strings.Builder, o *domain.Order) {
	b.WriteString("\n📦 اقلام سفارش:\n")
	for i, item := range o.Items {
		name := item.ProductName
		if name == "" {
			name = item.ProductID
		}
		fmt.Fprintf(b, "%s. %s\n", r.Number(i+1), name)
		fmt.Fprintf(b, "   📏 %s | 📦 %s عدد | 💰 %s\n", item.Size, r.Number(item.Quantity), r.Amount(item.Total()))
	}
}

func (r *Renderer) writeTotals(b *strings.Builder, o *domain.Order) {
	if o.Totals == nil {
		return
	}
	t := o.Totals
	b.WriteString("\n")
	fmt.Fprintf(b, "💵 جمع کل: %s\n", r.Amount(t.Subtotal))
	fmt.Fprintf(b, "🎁 تخفیف: %s\n", r.Amount(t.Discount))
	if t.Tax > 0 {
		fmt.Fprintf(b, "🧾 مالیات: %s\n", r.Amount(t.Tax))
	}
	fmt.Fprintf(b, "💰 مبلغ نهایی: %s\n", r.Amount(t.GrandTotal))
	if t.Advance > 0 {
		fmt.Fprintf(b, "💳 پیش‌پرداخت: %s\n", r.Amount(t.Advance))
	}
}

func (r *Renderer) writeBank(b *strings.Builder) {
	bank := r.ref.Bank
	if bank.CardNumber == "" && bank.Sheba == "" {
		return
	}
	b.WriteString("🏧 اطلاعات حساب:\n")
	if bank.CardNumber != "" {
		fmt.Fprintf(b, "💳 شماره کارت: %s\n", bank.CardNumber)
	}
	if bank.Sheba != "" {
		fmt.Fprintf(b, "🏦 شبا: IR%s\n", shebaDigits(bank.Sheba))
	}
	if bank.AccountHolder != "" {
		fmt.Fprintf(b, "👤 به نام: %s\n", bank.AccountHolder)
	}
}

// shebaDigits accepts a sheba with or without its country prefix.
func shebaDigits(sheba string) string {
	sheba = strings.ReplaceAll(strings.TrimSpace(sheba), " ", "")
	if len(sheba) >= 2 && strings.EqualFold(sheba[:2], "IR") {
		return sheba[2:]
	}
	return sheba
}

var stageLabels = map[domain.Stage]string{
	domain.StageCheckoutPending:                     "در انتظار صدور فاکتور",
	domain.StagePaymentMethodSelection:              "انتخاب روش پرداخت",
	domain.StagePaymentTypeSelection:                "انتخاب نحوه پرداخت",
	domain.StageAwaitingCashReceipt:                 "در انتظار فیش واریزی",
	domain.StageAdminReview:                         "در حال بررسی پشتیبانی",
	domain.StageAwaitingCheckPhoto:                  "در انتظار عکس چک",
	domain.StageRecipientAssignmentPending:          "در انتظار تعیین گیرنده چک",
	domain.StageCustomerDeliveryConfirmationPending: "در انتظار تایید ارسال چک",
	domain.StageFinalInvoiceSentToAdmin:             "ارسال شده به پشتیبانی",
	domain.StageConfirmed:                           "تایید شده",
	domain.StageTracking:                            "در حال پیگیری",
	domain.StageShipped:                             "ارسال شده",
	domain.StageCancelled:                           "لغو شده",
	domain.StageBalanceRecoveryPending:              "در انتظار پرداخت مانده",
	domain.StageAwaitingRecoveryReceipt:             "در انتظار فیش مانده حساب",
}

func StageLabel(s domain.Stage) string {
	if l, ok := stageLabels[s]; ok {
		return l
	}
	return string(s)
}
