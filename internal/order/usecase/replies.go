package usecase

import apperrors "decobot/internal/errors"

// replyFor turns a refusal into the short neutral message the chat sees.
func replyFor(err error) string {
	if _, ok := apperrors.IsUnauthenticatedError(err); ok {
		return "🔐 لطفاً ابتدا با کد ۶ رقمی مشتری وارد شوید."
	}
	if _, ok := apperrors.IsStaleTransitionError(err); ok {
		return "⚠️ این گزینه دیگر معتبر نیست."
	}
	if me, ok := apperrors.IsMissingPaymentContextError(err); ok {
		switch me.Missing {
		case apperrors.MissingCheckPhoto:
			return "📷 لطفاً تصویر چک را ارسال کنید."
		case apperrors.MissingReceipt:
			return "📸 ابتدا عکس فیش واریزی را ارسال کنید."
		}
		return "📋 ابتدا روش و نوع پرداخت را انتخاب کنید."
	}
	if _, ok := apperrors.IsDuplicateAssignmentError(err); ok {
		return "⚠️ گیرنده چک قبلاً انتخاب شده است."
	}
	if _, ok := apperrors.IsActiveOrderError(err); ok {
		return "⏳ شما یک سفارش فعال دارید. تا تکمیل آن امکان ثبت سفارش جدید نیست."
	}
	if _, ok := apperrors.IsForbiddenError(err); ok {
		return "⛔ شما مجاز به انجام این عملیات نیستید."
	}
	if _, ok := apperrors.IsNotFoundError(err); ok {
		return "❓ مورد درخواستی یافت نشد."
	}
	if _, ok := apperrors.IsValidationError(err); ok {
		return "⚠️ ورودی نامعتبر است."
	}
	if _, ok := apperrors.IsConflictError(err); ok {
		return "⏳ سفارش در حال به‌روزرسانی است. لطفاً دوباره تلاش کنید."
	}
	return "❌ خطایی رخ داد. لطفاً دوباره تلاش کنید."
}
