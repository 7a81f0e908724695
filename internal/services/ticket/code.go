package ticket

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Price is the festival base price scaled by the ticket type multiplier and
// rounded half-to-even to cents. A non-positive multiplier counts as 1.
func Price(basePrice, multiplier decimal.Decimal) decimal.Decimal {
	if !multiplier.IsPositive() {
		multiplier = decimal.NewFromInt(1)
	}
	return basePrice.Mul(multiplier).RoundBank(2)
}

// GenerateCode returns a redemption code of the form ABC-DEF-VIP: two groups
// taken from a hash over the ticket's identity and a random UUID, and the
// first three letters of the ticket type name.
func GenerateCode(festivalID, userID uint, ticketTypeName string) string {
	raw := fmt.Sprintf("%d:%d:%s:%s", festivalID, userID, ticketTypeName, uuid.NewString())
	sum := sha256.Sum256([]byte(raw))

	cleaned := alphanumericUpper(base64.StdEncoding.EncodeToString(sum[:]))
	for len(cleaned) < 6 {
		cleaned += strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	}

	return fmt.Sprintf("%s-%s-%s", cleaned[0:3], cleaned[3:6], suffix(ticketTypeName))
}

func suffix(ticketTypeName string) string {
	name := []rune(strings.ToUpper(strings.TrimSpace(ticketTypeName)))
	if len(name) >= 3 {
		return string(name[:3])
	}
	return string(name) + strings.Repeat("X", 3-len(name))
}

func alphanumericUpper(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}
