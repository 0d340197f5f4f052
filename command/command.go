// Package command converts tier purchase commands to and from the compact
// callback strings carried by chat buttons. The engine only sees Tier values.
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xraph/tierledger/tier"
)

// ErrMalformed is returned when a callback string is not a tier command.
var ErrMalformed = errors.New("command: malformed tier command")

const (
	sep         = "|"
	opExchange  = "exchange"
	kindTier    = "vip"
	flagConfirm = "confirm"
)

// Tier asks for level for days. Confirmed false means "quote only".
type Tier struct {
	Level     tier.Level `json:"level"`
	Days      int        `json:"days"`
	Confirmed bool       `json:"confirmed"`
}

// Confirm returns a copy of t marked as confirmed.
func (t Tier) Confirm() Tier {
	t.Confirmed = true
	return t
}

// Encode renders t as "exchange|vip|<level>|<days>[|confirm]".
func (t Tier) Encode() string {
	parts := []string{opExchange, kindTier, strconv.Itoa(int(t.Level)), strconv.Itoa(t.Days)}
	if t.Confirmed {
		parts = append(parts, flagConfirm)
	}
	return strings.Join(parts, sep)
}

// String implements fmt.Stringer.
func (t Tier) String() string { return t.Encode() }

// IsTier reports whether s looks like a tier command without fully parsing it.
func IsTier(s string) bool {
	return strings.HasPrefix(s, opExchange+sep+kindTier+sep)
}

// Parse decodes a callback string produced by Encode. Level and days are
// checked for shape only; the engine validates their values.
func Parse(s string) (Tier, error) {
	parts := strings.Split(s, sep)
	if len(parts) < 4 || len(parts) > 5 || parts[0] != opExchange || parts[1] != kindTier {
		return Tier{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}

	level, err := strconv.Atoi(parts[2])
	if err != nil {
		return Tier{}, fmt.Errorf("%w: level %q", ErrMalformed, parts[2])
	}
	days, err := strconv.Atoi(parts[3])
	if err != nil {
		return Tier{}, fmt.Errorf("%w: days %q", ErrMalformed, parts[3])
	}

	cmd := Tier{Level: tier.Level(level), Days: days}
	if len(parts) == 5 {
		if parts[4] != flagConfirm {
			return Tier{}, fmt.Errorf("%w: trailing %q", ErrMalformed, parts[4])
		}
		cmd.Confirmed = true
	}
	return cmd, nil
}
