package chat

import (
	"fmt"
	"strings"

	"decobot/internal/domain"
	apperrors "decobot/internal/errors"
)

// Callback payloads travel as "action:orderID[:arg]" and must fit the 64
// byte callback limit of the chat transport.
const maxCallbackLen = 64

// Order ids are uuids.
const orderIDLen = 36

// MaxArgLen is the room left for the argument of action once the order id
// and both separators are in place.
func MaxArgLen(action string) int {
	return maxCallbackLen - len(action) - orderIDLen - 2
}

type Callback struct {
	Action  string
	OrderID string
	Arg     string
}

func EncodeCallback(action, orderID, arg string) string {
	if arg == "" {
		return action + ":" + orderID
	}
	return action + ":" + orderID + ":" + arg
}

func ParseCallback(data string) (Callback, error) {
	if len(data) > maxCallbackLen {
		return Callback{}, apperrors.NewValidationError("callback payload too long")
	}

	parts := strings.SplitN(data, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Callback{}, apperrors.NewValidationError(fmt.Sprintf("malformed callback payload %q", data))
	}

	cb := Callback{Action: parts[0], OrderID: parts[1]}
	if len(parts) == 3 {
		cb.Arg = parts[2]
	}
	return cb, nil
}

// Payment method names are too long to fit next to a uuid, so method
// buttons carry a short code instead.
var methodArgs = map[domain.PaymentMethod]string{
	domain.PaymentMethodCash:          "c",
	domain.PaymentMethodInstallment60: "60",
	domain.PaymentMethodInstallment90: "90",
}

func MethodArg(m domain.PaymentMethod) string {
	return methodArgs[m]
}

// ParseMethodArg accepts either a short code or a full method name.
func ParseMethodArg(arg string) (domain.PaymentMethod, bool) {
	for m, code := range methodArgs {
		if code == arg || string(m) == arg {
			return m, true
		}
	}
	return "", false
}
