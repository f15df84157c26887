package session

import (
	"context"
	"encoding/json"

	"github.com/angelmondragon/storefront-client/internal/api"
	"github.com/angelmondragon/storefront-client/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
)

// userMemory stores checkout state under the signed-in user's session.
type userMemory struct {
	store  Store
	userID string
}

var _ cart.Memory = userMemory{}

func (m userMemory) SaveLastOrder(ctx context.Context, order api.Order) error {
	return m.put(ctx, FieldLastOrder, order)
}

func (m userMemory) SaveCheckoutPrefs(ctx context.Context, prefs cart.CheckoutPrefs) error {
	return m.put(ctx, FieldCheckoutPrefs, prefs)
}

func (m userMemory) LoadCheckoutPrefs(ctx context.Context) (cart.CheckoutPrefs, bool, error) {
	var prefs cart.CheckoutPrefs
	ok, err := m.get(ctx, FieldCheckoutPrefs, &prefs)
	return prefs, ok, err
}

// LastOrder returns the most recently placed order.
func (m userMemory) LastOrder(ctx context.Context) (api.Order, bool, error) {
	var order api.Order
	ok, err := m.get(ctx, FieldLastOrder, &order)
	return order, ok, err
}

func (m userMemory) put(ctx context.Context, field string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode session "+field)
	}
	return m.store.Put(ctx, m.userID, field, raw)
}

func (m userMemory) get(ctx context.Context, field string, out any) (bool, error) {
	raw, ok, err := m.store.Fetch(ctx, m.userID, field)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode session "+field)
	}
	return true, nil
}
