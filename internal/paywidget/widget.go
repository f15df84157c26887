package paywidget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-client/internal/api"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const (
	defaultCallbackAddr = "127.0.0.1:0"
	defaultTimeout      = 10 * time.Minute
	shutdownTimeout     = 5 * time.Second
)

// ErrDismissed means the buyer closed the widget without paying.
var ErrDismissed = errors.New("payment widget dismissed")

// Prefill seeds the widget's contact fields.
type Prefill struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Checkout holds everything the widget is opened with.
type Checkout struct {
	Key         string
	Order       api.ProviderOrder
	StoreName   string
	Description string
	Prefill     Prefill
	ThemeColor  string
}

// Launcher shows the local checkout page to the buyer, typically by opening
// a browser or printing the URL.
type Launcher func(ctx context.Context, url string) error

type WidgetParams struct {
	Loader       *Loader
	Logger       *logger.Logger
	Launcher     Launcher
	CallbackAddr string
	Timeout      time.Duration
}

// BrowserWidget runs the hosted checkout in the buyer's browser. Each Open
// serves a one-shot local page that embeds the script and reports back the
// provider's result.
type BrowserWidget struct {
	loader   *Loader
	logg     *logger.Logger
	launch   Launcher
	addr     string
	timeout  time.Duration
	template *template.Template
}

func NewBrowserWidget(params WidgetParams) (*BrowserWidget, error) {
	if params.Loader == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "widget loader is required")
	}
	if params.Launcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "widget launcher is required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if strings.TrimSpace(params.CallbackAddr) == "" {
		params.CallbackAddr = defaultCallbackAddr
	}
	if params.Timeout <= 0 {
		params.Timeout = defaultTimeout
	}
	return &BrowserWidget{
		loader:   params.Loader,
		logg:     params.Logger,
		launch:   params.Launcher,
		addr:     params.CallbackAddr,
		timeout:  params.Timeout,
		template: checkoutPage,
	}, nil
}

// Load fetches the widget script if it is not loaded yet.
func (w *BrowserWidget) Load(ctx context.Context) error {
	return w.loader.Load(ctx)
}

type outcome struct {
	proof api.PaymentProof
	err   error
}

// Open serves the checkout page and blocks until the provider reports a
// payment, the buyer dismisses the widget, the timeout elapses or ctx ends.
func (w *BrowserWidget) Open(ctx context.Context, checkout Checkout) (api.PaymentProof, error) {
	if !w.loader.Loaded() {
		return api.PaymentProof{}, pkgerrors.New(pkgerrors.CodePaymentWidget, "payment widget is not loaded")
	}
	if checkout.Key == "" || checkout.Order.ID == "" {
		return api.PaymentProof{}, pkgerrors.New(pkgerrors.CodePaymentWidget, "payment widget needs a key and an order")
	}

	listener, err := net.Listen("tcp", w.addr)
	if err != nil {
		return api.PaymentProof{}, pkgerrors.Wrap(pkgerrors.CodePaymentWidget, err, "failed to open payment widget")
	}

	nonce := uuid.NewString()
	results := make(chan outcome, 1)
	srv := &http.Server{
		Handler:           w.routes(nonce, checkout, results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		// Shutdown makes Serve return, which closes serveErr.
		closeErr := srv.Shutdown(shutdownCtx)
		for e := range serveErr {
			closeErr = multierr.Append(closeErr, e)
		}
		if closeErr != nil {
			w.logg.WarnErr(ctx, "payment widget server shutdown failed", closeErr)
		}
	}()

	pageURL := fmt.Sprintf("http://%s/checkout/%s", listener.Addr().String(), nonce)
	logCtx := w.logg.WithFields(ctx, map[string]any{"provider_order_id": checkout.Order.ID, "widget_url": pageURL})
	if err := w.launch(ctx, pageURL); err != nil {
		return api.PaymentProof{}, pkgerrors.Wrap(pkgerrors.CodePaymentWidget, err, "failed to open payment widget")
	}
	w.logg.Info(logCtx, "payment widget opened")

	timer := time.NewTimer(w.timeout)
	defer timer.Stop()

	select {
	case res := <-results:
		return res.proof, res.err
	case <-timer.C:
		return api.PaymentProof{}, pkgerrors.Wrap(pkgerrors.CodePaymentWidget, ErrDismissed, "payment timed out")
	case <-ctx.Done():
		return api.PaymentProof{}, pkgerrors.Wrap(pkgerrors.CodePaymentWidget, ctx.Err(), "payment cancelled")
	}
}

func (w *BrowserWidget) routes(nonce string, checkout Checkout, results chan<- outcome) http.Handler {
	deliver := func(res outcome) {
		select {
		case results <- res:
		default:
		}
	}

	r := chi.NewRouter()
	r.Route("/checkout/"+nonce, func(r chi.Router) {
		r.Get("/", func(rw http.ResponseWriter, req *http.Request) {
			rw.Header().Set("Content-Type", "text/html; charset=utf-8")
			if err := w.template.Execute(rw, pageData(nonce, checkout)); err != nil {
				w.logg.WarnErr(req.Context(), "render checkout page", err)
			}
		})
		r.Get("/widget.js", func(rw http.ResponseWriter, req *http.Request) {
			rw.Header().Set("Content-Type", "application/javascript")
			_, _ = rw.Write(w.loader.Script())
		})
		r.Post("/complete", func(rw http.ResponseWriter, req *http.Request) {
			var proof api.PaymentProof
			if err := json.NewDecoder(http.MaxBytesReader(rw, req.Body, 1<<16)).Decode(&proof); err != nil {
				http.Error(rw, "invalid payload", http.StatusBadRequest)
				return
			}
			if proof.ProviderOrderID == "" || proof.PaymentID == "" || proof.Signature == "" {
				http.Error(rw, "incomplete payment", http.StatusBadRequest)
				return
			}
			deliver(outcome{proof: proof})
			rw.WriteHeader(http.StatusNoContent)
		})
		r.Post("/dismiss", func(rw http.ResponseWriter, req *http.Request) {
			deliver(outcome{err: pkgerrors.Wrap(pkgerrors.CodePaymentWidget, ErrDismissed, "payment cancelled")})
			rw.WriteHeader(http.StatusNoContent)
		})
	})
	return r
}
