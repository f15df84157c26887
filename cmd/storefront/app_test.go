package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-client/internal/api"
	"github.com/angelmondragon/storefront-client/internal/session"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
)

type fakeBackend struct {
	cancels atomic.Int32
}

func (f *fakeBackend) routes() http.Handler {
	writeJSON := func(w http.ResponseWriter, body any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}
	r := chi.NewRouter()
	r.Post("/auth/login", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string]any{"token": "opaque", "userId": "u1", "userName": "Ada", "role": "buyer"})
	})
	r.Get("/products", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string]any{
			"products": []map[string]any{{"_id": "p1", "name": "Desk Lamp", "price": 12.5, "stock": 3, "averageRating": 4.5}},
			"pages":    1,
		})
	})
	r.Get("/cart/", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string]any{"items": []map[string]any{
			{"product": map[string]any{"_id": "p1", "name": "Desk Lamp", "price": 12.5}, "quantity": 2},
		}})
	})
	r.Get("/orders/buyer", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, []map[string]any{{
			"_id": "o1", "status": "pending", "paymentStatus": "pending", "paymentMethod": "cod",
			"totalAmount": 25, "createdAt": "2026-01-02T10:00:00Z",
		}})
	})
	r.Put("/orders/buyer/{id}", func(w http.ResponseWriter, req *http.Request) {
		f.cancels.Add(1)
		writeJSON(w, map[string]any{"order": map[string]any{"_id": chi.URLParam(req, "id"), "status": "cancelled"}})
	})
	return r
}

func newTestApp(t *testing.T, stdin string) (*App, *bytes.Buffer, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend.routes())
	t.Cleanup(srv.Close)

	client, err := api.NewClient(srv.URL)
	require.NoError(t, err)
	auth, err := session.NewAuthenticator(session.AuthParams{Client: client, Store: session.NewMemoryStore()})
	require.NoError(t, err)

	out := &bytes.Buffer{}
	app, err := NewApp(AppParams{Auth: auth, Stdout: out, Stdin: strings.NewReader(stdin)})
	require.NoError(t, err)
	return app, out, backend
}

func TestRunHelpListsCommands(t *testing.T) {
	app, out, _ := newTestApp(t, "")
	require.NoError(t, app.Run(context.Background(), nil))
	assert.Contains(t, out.String(), "usage: storefront")
	assert.Contains(t, out.String(), "checkout")
}

func TestRunUnknownCommand(t *testing.T) {
	app, _, _ := newTestApp(t, "")
	err := app.Run(context.Background(), []string{"teleport"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestProductsAsGuest(t *testing.T) {
	app, out, _ := newTestApp(t, "")
	require.NoError(t, app.Run(context.Background(), []string{"products", "-sort", "newest"}))
	assert.Contains(t, out.String(), "Desk Lamp")
	assert.Contains(t, out.String(), "12.50")
	assert.Contains(t, out.String(), "★★★★½")
}

func TestProductsRejectsBadPrice(t *testing.T) {
	app, _, _ := newTestApp(t, "")
	err := app.Run(context.Background(), []string{"products", "-min", "cheap"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCartRequiresSignIn(t *testing.T) {
	app, _, _ := newTestApp(t, "")
	err := app.Run(context.Background(), []string{"cart"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestShellKeepsSessionAcrossCommands(t *testing.T) {
	stdin := strings.Join([]string{
		"login -email ada@example.com -password pw",
		"cart",
		"order-cancel o1",
		"n",
		"exit",
	}, "\n") + "\n"
	app, out, backend := newTestApp(t, stdin)

	require.NoError(t, app.Run(context.Background(), []string{"shell"}))
	text := out.String()
	assert.Contains(t, text, "Signed in as Ada (buyer)")
	assert.Contains(t, text, "Subtotal  25.00")
	assert.Contains(t, text, "Total     23.75")
	assert.Contains(t, text, "Order not cancelled")
	assert.Zero(t, backend.cancels.Load())
}

func TestOrderCancelWithYes(t *testing.T) {
	stdin := "login -email ada@example.com -password pw\norder-cancel o1 -yes\n"
	app, out, backend := newTestApp(t, stdin)

	require.NoError(t, app.Run(context.Background(), []string{"shell"}))
	assert.Contains(t, out.String(), "Order cancelled")
	assert.Equal(t, int32(1), backend.cancels.Load())
}

func TestSplitLine(t *testing.T) {
	got := splitLine(`checkout -address "1 Main St, Springfield" -method cod` + "\n")
	assert.Equal(t, []string{"checkout", "-address", "1 Main St, Springfield", "-method", "cod"}, got)
	assert.Empty(t, splitLine("   \n"))
}

func TestReorderMovesFlagsFirst(t *testing.T) {
	assert.Equal(t, []string{"-yes", "o1"}, reorder([]string{"o1", "-yes"}))
	assert.Equal(t, []string{"-rating", "5", "-comment", "great", "p1"}, reorder([]string{"p1", "-rating", "5", "-comment", "great"}))
}

func TestStdinConfirmer(t *testing.T) {
	app, _, _ := newTestApp(t, "yes\n\n")
	ok, err := app.confirmer(false).Confirm(context.Background(), "Delete?")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = app.confirmer(false).Confirm(context.Background(), "Delete?")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, _ = app.confirmer(true).Confirm(context.Background(), "Delete?")
	assert.True(t, ok)
}
