package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		allowed  bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusPending, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusCancelled, true},
		{OrderStatusProcessing, OrderStatusPending, false},
		{OrderStatusPending, OrderStatusPending, false},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusPending, OrderStatus("lost"), false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Fatalf("%s -> %s expected %v got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	for _, status := range []OrderStatus{OrderStatusDelivered, OrderStatusCancelled} {
		if !status.IsTerminal() {
			t.Fatalf("%s should be terminal", status)
		}
		if next := status.NextStatuses(); len(next) != 0 {
			t.Fatalf("%s should have no next statuses, got %v", status, next)
		}
	}
	next := OrderStatusShipped.NextStatuses()
	if len(next) != 2 || next[0] != OrderStatusDelivered || next[1] != OrderStatusCancelled {
		t.Fatalf("unexpected next statuses from shipped: %v", next)
	}
}

func TestParseHelpers(t *testing.T) {
	if _, err := ParseOrderStatus("shipped"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseOrderStatus("SHIPPED"); err == nil {
		t.Fatalf("order status parsing should be exact")
	}
	if m, err := ParsePaymentMethod(" COD "); err != nil || m != PaymentMethodCOD {
		t.Fatalf("expected cod, got %q err=%v", m, err)
	}
	if PaymentMethodCOD.Label() != "COD" {
		t.Fatalf("unexpected label %q", PaymentMethodCOD.Label())
	}
	if _, err := ParsePaymentStatus("refunded"); err == nil {
		t.Fatalf("expected invalid payment status error")
	}
	if r, err := ParseRole("Seller"); err != nil || r != RoleSeller {
		t.Fatalf("expected seller role, got %q err=%v", r, err)
	}
	if s, err := ParseSortKey(""); err != nil || !s.IsDefault() {
		t.Fatalf("empty sort should be default, got %q err=%v", s, err)
	}
	if _, err := ParseSortKey("cheapest"); err == nil {
		t.Fatalf("expected invalid sort key error")
	}
}
