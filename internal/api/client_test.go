package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/angelmondragon/storefront-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(t *testing.T, router http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	client, err := NewClient(srv.URL, opts...)
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient("  ")
	require.Error(t, err)
}

func TestListProductsOmitsAbsentParams(t *testing.T) {
	var captured string
	r := chi.NewRouter()
	r.Get("/products", func(w http.ResponseWriter, req *http.Request) {
		captured = req.URL.RawQuery
		writeJSON(w, http.StatusOK, map[string]any{
			"products": []map[string]any{{"_id": "p1", "name": "Lamp", "price": 12.5}},
			"pages":    3,
		})
	})
	client := newTestClient(t, r)

	page, err := client.ListProducts(context.Background(), ProductQuery{Page: 2, Limit: 8, Sort: enums.SortDefault})
	require.NoError(t, err)
	assert.Equal(t, "limit=8&page=2", captured)
	assert.Equal(t, 3, page.Pages)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "12.50", page.Products[0].PriceLabel())

	min := decimal.NewFromInt(10)
	_, err = client.ListProducts(context.Background(), ProductQuery{
		Search:   " lamp ",
		Category: "home",
		MinPrice: &min,
		Sort:     enums.SortPriceHighLow,
		Page:     1,
		Limit:    8,
	})
	require.NoError(t, err)
	assert.Equal(t, "category=home&limit=8&minPrice=10&page=1&search=lamp&sort=priceHighLow", captured)
}

func TestListProductsRejectsInvalidQuery(t *testing.T) {
	var calls int32
	r := chi.NewRouter()
	r.Get("/products", func(w http.ResponseWriter, req *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusOK, map[string]any{"products": []any{}, "pages": 1})
	})
	client := newTestClient(t, r)

	_, err := client.ListProducts(context.Background(), ProductQuery{Page: 0, Limit: 8})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestAuthenticatedRequestsCarryHeaders(t *testing.T) {
	var auth, requestID string
	r := chi.NewRouter()
	r.Get("/cart/", func(w http.ResponseWriter, req *http.Request) {
		auth = req.Header.Get("Authorization")
		requestID = req.Header.Get(requestIDHeader)
		writeJSON(w, http.StatusOK, map[string]any{
			"user": "u1",
			"items": []map[string]any{
				{"product": map[string]any{"_id": "p1", "name": "Lamp", "price": 10}, "quantity": 2},
				{"product": nil, "quantity": 1},
			},
		})
	})
	client := newTestClient(t, r).WithToken("tok-123")

	cart, err := client.GetCart(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", auth)
	assert.NotEmpty(t, requestID)
	assert.Equal(t, "u1", cart.User.ID)
	require.Len(t, cart.Items, 1, "lines without a product are dropped")
	assert.True(t, cart.Items[0].LineTotal().Equal(decimal.NewFromInt(20)))
}

func TestAuthRequiredWithoutTokenSendsNothing(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		t.Fatalf("no request expected, got %s", req.URL)
		return nil, nil
	})
	client, err := NewClient("http://api.test", WithHTTPClient(&http.Client{Transport: rt}))
	require.NoError(t, err)

	_, err = client.GetCart(context.Background())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestErrorMapping(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/auth/wishlist", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Token expired"})
	})
	r.Post("/auth/wishlist", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Product already in wishlist"})
	})
	r.Delete("/auth/wishlist/{id}", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"code": "NOT_FOUND", "message": "not in wishlist"})
	})
	r.Get("/products/{id}", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "<html>oops</html>")
	})
	client := newTestClient(t, r).WithToken("tok")
	ctx := context.Background()

	_, err := client.GetWishlist(ctx)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	assert.Equal(t, "Token expired", pkgerrors.UserMessage(err))
	assert.Equal(t, http.StatusUnauthorized, pkgerrors.As(err).Status())

	err = client.AddToWishlist(ctx, "p1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	err = client.RemoveFromWishlist(ctx, "p1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = client.GetProduct(ctx, "p1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))
	assert.Equal(t, pkgerrors.MetadataFor(pkgerrors.CodeInternal).PublicMessage, pkgerrors.UserMessage(err))
}

func TestTransportFailureIsTyped(t *testing.T) {
	reg := prometheus.NewRegistry()
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})
	client, err := NewClient("http://api.test",
		WithHTTPClient(&http.Client{Transport: rt}),
		WithMetrics(metrics.NewAPIMetrics(reg)),
	)
	require.NoError(t, err)

	_, err = client.ListProducts(context.Background(), ProductQuery{Page: 1, Limit: 8})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeTransport))
	assert.Equal(t, pkgerrors.MetadataFor(pkgerrors.CodeTransport).PublicMessage, pkgerrors.UserMessage(err))
	assert.NotContains(t, pkgerrors.UserMessage(err), "products.list")

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var failures float64
	for _, mf := range mfs {
		if mf.GetName() != "storefront_api_request_failure" {
			continue
		}
		for _, m := range mf.GetMetric() {
			failures += m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(1), failures)
}

func TestOrdersDecodeProductRefs(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/orders/seller", func(w http.ResponseWriter, req *http.Request) {
		_, _ = io.WriteString(w, `[
			{"_id":"o1","status":"delivered","paymentStatus":"paid","paymentMethod":"cod",
			 "items":[{"product":"p1","quantity":2,"price":5},
			          {"product":{"_id":"p2","name":"Mug","price":3},"quantity":1}],
			 "buyer":{"_id":"b1","name":"Ada"},"totalAmount":13,"createdAt":"2024-05-01T10:00:00.000Z"}
		]`)
	})
	client := newTestClient(t, r).WithToken("tok")

	orders, err := client.SellerOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	order := orders[0]
	assert.Equal(t, enums.OrderStatusDelivered, order.Status)
	assert.True(t, order.IsPaid())
	assert.Equal(t, "p1", order.Items[0].Product.ID)
	assert.Nil(t, order.Items[0].Product.Product)
	assert.Equal(t, "Mug", order.Items[1].Product.Name())
	assert.True(t, order.Items[1].UnitPrice().Equal(decimal.NewFromInt(3)))
	assert.Equal(t, "Ada", order.Buyer.Name)
	assert.Equal(t, 3, order.ItemCount())
}

func TestPlaceOrderAcceptsWrappedOrBareOrder(t *testing.T) {
	var calls int32
	r := chi.NewRouter()
	r.Post("/orders/", func(w http.ResponseWriter, req *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		var body map[string]string
		_ = json.NewDecoder(req.Body).Decode(&body)
		assert.Equal(t, "cod", body["paymentMethod"])
		if n == 1 {
			writeJSON(w, http.StatusCreated, map[string]any{"order": map[string]any{"_id": "o1", "status": "pending"}})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"_id": "o2", "status": "pending"})
	})
	client := newTestClient(t, r).WithToken("tok")
	ctx := context.Background()

	order, err := client.PlaceOrder(ctx, PlaceOrderRequest{ShippingAddress: "1 Main St", PaymentMethod: enums.PaymentMethodCOD})
	require.NoError(t, err)
	assert.Equal(t, "o1", order.ID)

	order, err = client.PlaceOrder(ctx, PlaceOrderRequest{ShippingAddress: "1 Main St", PaymentMethod: enums.PaymentMethodCOD})
	require.NoError(t, err)
	assert.Equal(t, "o2", order.ID)

	_, err = client.PlaceOrder(ctx, PlaceOrderRequest{ShippingAddress: "   ", PaymentMethod: enums.PaymentMethodCOD})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestVerifyPayment(t *testing.T) {
	var verified map[string]string
	r := chi.NewRouter()
	r.Post("/payments/verify", func(w http.ResponseWriter, req *http.Request) {
		_ = json.NewDecoder(req.Body).Decode(&verified)
		if verified["razorpay_signature"] == "bad" {
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Signature mismatch"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "order": map[string]any{"_id": "o9"}})
	})
	client := newTestClient(t, r).WithToken("tok")
	ctx := context.Background()

	proof := PaymentProof{ProviderOrderID: "order_1", PaymentID: "pay_1", Signature: "sig"}
	result, err := client.VerifyPayment(ctx, VerifyPaymentRequest{PaymentProof: proof, ShippingAddress: "1 Main St"})
	require.NoError(t, err)
	require.NotNil(t, result.Order)
	assert.Equal(t, "o9", result.Order.ID)
	assert.Equal(t, "order_1", verified["razorpay_order_id"])
	assert.Equal(t, "1 Main St", verified["shippingAddress"])

	proof.Signature = "bad"
	_, err = client.VerifyPayment(ctx, VerifyPaymentRequest{PaymentProof: proof, ShippingAddress: "1 Main St"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePaymentVerification))
	assert.Equal(t, "Signature mismatch", pkgerrors.UserMessage(err))
}

func TestCreateProductSendsMultipart(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/products/", func(w http.ResponseWriter, req *http.Request) {
		if err := req.ParseMultipartForm(1 << 20); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}
		assert.Equal(t, "Lamp", req.FormValue("name"))
		assert.Equal(t, "0", req.FormValue("stock"))
		assert.True(t, strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/form-data"))
		files := req.MultipartForm.File["images"]
		if assert.Len(t, files, 1) {
			assert.Equal(t, "lamp.jpg", files[0].Filename)
		}
		writeJSON(w, http.StatusCreated, map[string]any{"product": map[string]any{"_id": "p7", "name": "Lamp"}})
	})
	client := newTestClient(t, r).WithToken("tok")
	form := ProductForm{
		Name:        "Lamp",
		Description: "Warm light",
		Price:       decimal.RequireFromString("19.99"),
		Stock:       0,
		Category:    "home",
	}

	_, err := client.CreateProduct(context.Background(), form)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "create needs an image")

	form.Images = []Upload{{Filename: "lamp.jpg", Data: []byte("jpeg")}}
	product, err := client.CreateProduct(context.Background(), form)
	require.NoError(t, err)
	assert.Equal(t, "p7", product.ID)
}

func TestRegisterValidation(t *testing.T) {
	client, err := NewClient("http://api.test")
	require.NoError(t, err)

	_, err = client.Register(context.Background(), RegisterRequest{
		Name: "Shop", Email: "s@example.com", Password: "pw", Role: enums.RoleSeller,
	})
	require.Error(t, err)
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "shopName")

	_, err = client.Login(context.Background(), LoginRequest{Email: "not-an-email", Password: "x"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestLegacyConflictMessages(t *testing.T) {
	assert.True(t, isLegacyConflict("Email is already registered"))
	assert.True(t, isLegacyConflict("PRODUCT ALREADY IN WISHLIST"))
	assert.False(t, isLegacyConflict(strings.Repeat("x", 10)))
}
