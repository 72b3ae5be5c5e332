package market

import (
	"errors"
	"testing"
)

func TestParseProduct(t *testing.T) {
	tests := []struct {
		input   string
		want    Product
		wantErr bool
	}{
		{input: "BOARS", want: Boars},
		{input: "fish", want: Fish},
		{input: " Salt ", want: Salt},
		{input: "GOLD", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseProduct(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownProduct) {
					t.Errorf("ParseProduct(%q) error = %v, want ErrUnknownProduct", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseProduct(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseProduct(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestProductPrice(t *testing.T) {
	if Boars.Price() != 3 || Fish.Price() != 2 || Salt.Price() != 1 {
		t.Errorf("unexpected prices: boars=%d fish=%d salt=%d", Boars.Price(), Fish.Price(), Salt.Price())
	}
	if Product("GOLD").Price() != 0 {
		t.Error("unknown product should have price 0")
	}
}

func TestRandomPicker(t *testing.T) {
	var p RandomPicker
	for i := 0; i < 100; i++ {
		if !p.Product().Valid() {
			t.Fatal("picked product outside the catalogue")
		}
		q := p.Quantity()
		if q < 1 || q > 5 {
			t.Fatalf("quantity %d out of range 1..5", q)
		}
	}
}

func TestTradeRequest_Validate(t *testing.T) {
	ok := TradeRequest{SequenceNumber: 1, SourcePeerID: 0, Product: Boars, Amount: 3}
	if err := ok.Validate(); err != nil {
		t.Errorf("expected valid request, got %v", err)
	}

	bad := ok
	bad.Amount = 0
	if err := bad.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}

	bad = ok
	bad.Product = "GOLD"
	if err := bad.Validate(); !errors.Is(err, ErrUnknownProduct) {
		t.Errorf("expected ErrUnknownProduct, got %v", err)
	}
}

func TestStatus(t *testing.T) {
	if !Successful.Applied() || !LowSequenceNumber.Applied() {
		t.Error("SUCCESSFUL and LOW_SEQUENCE_NUMBER should count as applied")
	}
	if NotInStock.Applied() || ErrorDuringWrite.Applied() || NotATrader.Applied() {
		t.Error("failure statuses should not count as applied")
	}
	if NotATrader.String() != "NOT_A_TRADER" {
		t.Errorf("unexpected string %q", NotATrader.String())
	}
}

func TestParseRole(t *testing.T) {
	if r, err := ParseRole("seller"); err != nil || r != Seller {
		t.Errorf("ParseRole(seller) = %v, %v", r, err)
	}
	if _, err := ParseRole("trader"); err == nil {
		t.Error("trader is not a fixed role and should be rejected")
	}
}
