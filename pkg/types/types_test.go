package types

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestStars(t *testing.T) {
	cases := []struct {
		rating float64
		want   StarRating
	}{
		{0, StarRating{Full: 0, Empty: 5}},
		{3.4, StarRating{Full: 3, Empty: 2}},
		{3.5, StarRating{Full: 3, Half: true, Empty: 1}},
		{4.99, StarRating{Full: 4, Half: true, Empty: 0}},
		{5, StarRating{Full: 5, Empty: 0}},
		{7, StarRating{Full: 5, Empty: 0}},
		{-1, StarRating{Full: 0, Empty: 5}},
	}
	for _, tc := range cases {
		if got := Stars(tc.rating); got != tc.want {
			t.Fatalf("Stars(%v) expected %+v got %+v", tc.rating, tc.want, got)
		}
	}
	if got := Stars(2.5).String(); got != "★★½☆☆" {
		t.Fatalf("unexpected render %q", got)
	}
}

func TestMoneyHelpers(t *testing.T) {
	if got := FormatMoney(decimal.RequireFromString("12.5")); got != "12.50" {
		t.Fatalf("unexpected format %q", got)
	}
	if got := RoundMoney(decimal.RequireFromString("1.005")); !got.Equal(decimal.RequireFromString("1.01")) {
		t.Fatalf("unexpected rounding %s", got)
	}
	sum := SumMoney(decimal.NewFromInt(1), decimal.RequireFromString("2.25"))
	if !sum.Equal(decimal.RequireFromString("3.25")) {
		t.Fatalf("unexpected sum %s", sum)
	}
	if !SumMoney().IsZero() {
		t.Fatalf("empty sum should be zero")
	}
}

func TestAddressString(t *testing.T) {
	addr := Address{Street: "12 Main St", City: "Pune", PostalCode: " 411001 ", Country: "IN"}
	if got := addr.String(); got != "12 Main St, Pune, 411001, IN" {
		t.Fatalf("unexpected address %q", got)
	}
	if !(Address{City: "  "}).IsZero() {
		t.Fatalf("blank address should be zero")
	}
}

func TestErrorBodyText(t *testing.T) {
	if got := (ErrorBody{Error: "bad", Message: " Product already in wishlist "}).Text(); got != "Product already in wishlist" {
		t.Fatalf("unexpected text %q", got)
	}
	if got := (ErrorBody{Error: "bad"}).Text(); got != "bad" {
		t.Fatalf("unexpected fallback %q", got)
	}
}
