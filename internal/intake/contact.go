package intake

import (
	"strings"

	"github.com/kuznetsov-tulips/tulip-bot/internal/models"
)

var phoneFormatting = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")

// NormalizePhone accepts +7XXXXXXXXXX, 8XXXXXXXXXX and 7XXXXXXXXXX and
// returns the +7 form. Spaces, dashes and parentheses are ignored.
func NormalizePhone(input string) (string, error) {
	phone := phoneFormatting.Replace(strings.TrimSpace(input))

	var digits string
	switch {
	case len(phone) == 12 && strings.HasPrefix(phone, "+7"):
		digits = phone[2:]
	case len(phone) == 11 && (phone[0] == '8' || phone[0] == '7'):
		digits = phone[1:]
	default:
		return "", ErrInvalidPhone
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", ErrInvalidPhone
		}
	}
	return "+7" + digits, nil
}

// ParseName splits "Имя Фамилия". Exactly two words are accepted; compound
// names are not supported.
func ParseName(input string) (models.PersonName, error) {
	parts := strings.Fields(input)
	if len(parts) != 2 {
		return models.PersonName{}, ErrInvalidName
	}
	return models.PersonName{First: parts[0], Last: parts[1]}, nil
}
