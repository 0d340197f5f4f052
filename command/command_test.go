package command

import (
	"errors"
	"testing"
)

func TestEncode(t *testing.T) {
	cmd := Tier{Level: 2, Days: 30}
	if got := cmd.Encode(); got != "exchange|vip|2|30" {
		t.Errorf("Encode() = %q", got)
	}
	if got := cmd.Confirm().Encode(); got != "exchange|vip|2|30|confirm" {
		t.Errorf("Confirm().Encode() = %q", got)
	}
	if cmd.Confirmed {
		t.Error("Confirm must not mutate the receiver")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Tier
	}{
		{"exchange|vip|1|30", Tier{Level: 1, Days: 30}},
		{"exchange|vip|3|365|confirm", Tier{Level: 3, Days: 365, Confirmed: true}},
		{"exchange|vip|0|7", Tier{Level: 0, Days: 7}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
			if got.Encode() != tt.in {
				t.Errorf("Encode() = %q, want %q", got.Encode(), tt.in)
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	for _, in := range []string{
		"",
		"exchange|vip|1",
		"exchange|points|1|30",
		"cancel|vip|1|30",
		"exchange|vip|x|30",
		"exchange|vip|1|thirty",
		"exchange|vip|1|30|yes",
		"exchange|vip|1|30|confirm|extra",
	} {
		t.Run(in, func(t *testing.T) {
			if _, err := Parse(in); !errors.Is(err, ErrMalformed) {
				t.Errorf("Parse(%q) error = %v, want ErrMalformed", in, err)
			}
		})
	}
}

func TestIsTier(t *testing.T) {
	if !IsTier("exchange|vip|1|30") {
		t.Error("expected tier command")
	}
	if IsTier("feedback|1|item_x") {
		t.Error("unexpected tier command")
	}
}
