// Package callback encodes the data attached to inline buttons.
// Telegram limits it to 64 bytes, so the format is a short colon list:
// action first, then arguments.
package callback

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Action string

const (
	Start        Action = "start"
	MyOrders     Action = "myorders"
	Consent      Action = "consent"
	Variant      Action = "variant"
	Quantity     Action = "qty"
	More         Action = "more"
	Item         Action = "item"
	Date         Action = "date"
	Time         Action = "time"
	Name         Action = "name"
	Phone        Action = "phone"
	Order        Action = "order"
	Receipt      Action = "receipt"
	AdminConfirm Action = "adm_ok"
	AdminReject  Action = "adm_no"
	RefundBegin  Action = "refund"
	RefundAnswer Action = "refund_ans"
)

// Argument values shared by several actions.
const (
	Yes       = "yes"
	No        = "no"
	Add       = "add"
	Done      = "done"
	Suggested = "suggested"
	Manual    = "manual"
	Confirm   = "confirm"
	Revise    = "revise"
	Pickup    = "pickup"
)

const maxLen = 64

var ErrMalformed = errors.New("malformed callback data")

type Data struct {
	Action Action
	Args   []string
}

func Encode(action Action, args ...string) string {
	parts := append([]string{string(action)}, args...)
	return strings.Join(parts, ":")
}

func Parse(raw string) (Data, error) {
	if raw == "" || len(raw) > maxLen {
		return Data{}, ErrMalformed
	}
	parts := strings.Split(raw, ":")
	if parts[0] == "" {
		return Data{}, ErrMalformed
	}
	return Data{Action: Action(parts[0]), Args: parts[1:]}, nil
}

// Arg returns the i-th argument or "".
func (d Data) Arg(i int) string {
	if i < 0 || i >= len(d.Args) {
		return ""
	}
	return d.Args[i]
}

func (d Data) Int(i int) (int, error) {
	n, err := strconv.Atoi(d.Arg(i))
	if err != nil {
		return 0, fmt.Errorf("%w: argument %d of %s", ErrMalformed, i, d.Action)
	}
	return n, nil
}
