package conversation

import (
	"encoding/json"
	"fmt"
)

type envelope struct {
	Kind Kind            `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Encode serializes a state together with its kind tag.
func Encode(s State) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding %s state: %w", s.Kind(), err)
	}
	return json.Marshal(envelope{Kind: s.Kind(), Data: data})
}

func Decode(raw []byte) (State, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decoding state envelope: %w", err)
	}
	switch env.Kind {
	case KindAwaitingConsent:
		return decodeAs[AwaitingConsent](env)
	case KindSelectingVariant:
		return decodeAs[SelectingVariant](env)
	case KindSelectingQuantity:
		return decodeAs[SelectingQuantity](env)
	case KindConfirmingMoreItems:
		return decodeAs[ConfirmingMoreItems](env)
	case KindSelectingPickupDate:
		return decodeAs[SelectingPickupDate](env)
	case KindSelectingPickupTime:
		return decodeAs[SelectingPickupTime](env)
	case KindEnteringName:
		return decodeAs[EnteringName](env)
	case KindEnteringPhone:
		return decodeAs[EnteringPhone](env)
	case KindConfirmingOrder:
		return decodeAs[ConfirmingOrder](env)
	case KindAwaitingPayment:
		return decodeAs[AwaitingPayment](env)
	case KindAwaitingReceiptConfirmation:
		return decodeAs[AwaitingReceiptConfirmation](env)
	case KindConfirmingCancellation:
		return decodeAs[ConfirmingCancellation](env)
	case KindEnteringRefundAccount:
		return decodeAs[EnteringRefundAccount](env)
	default:
		return nil, fmt.Errorf("unknown state kind %q", env.Kind)
	}
}

func decodeAs[T State](env envelope) (State, error) {
	var s T
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &s); err != nil {
			return nil, fmt.Errorf("decoding %s state: %w", env.Kind, err)
		}
	}
	return s, nil
}
