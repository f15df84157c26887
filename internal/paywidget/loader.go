package paywidget

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
)

const (
	// DefaultScriptURL is the hosted checkout script.
	DefaultScriptURL       = "https://checkout.razorpay.com/v1/checkout.js"
	scriptReadLimit  int64 = 2 << 20
)

// Loader fetches the widget script once per process. Failed loads are not
// cached, so a later attempt fetches again.
type Loader struct {
	httpClient *http.Client
	scriptURL  string

	mu     sync.Mutex
	script []byte
}

// NewLoader builds a script loader. An empty scriptURL uses DefaultScriptURL.
func NewLoader(scriptURL string, httpClient *http.Client) *Loader {
	scriptURL = strings.TrimSpace(scriptURL)
	if scriptURL == "" {
		scriptURL = DefaultScriptURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Loader{httpClient: httpClient, scriptURL: scriptURL}
}

// Loaded reports whether the script is already available.
func (l *Loader) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.script != nil
}

// Load fetches the script unless it is already loaded.
func (l *Loader) Load(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.script != nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.scriptURL, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePaymentWidget, err, "failed to load payment widget")
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePaymentWidget, err, "failed to load payment widget")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return pkgerrors.Wrap(pkgerrors.CodePaymentWidget, fmt.Errorf("status %d", resp.StatusCode), "failed to load payment widget").WithStatus(resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, scriptReadLimit))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePaymentWidget, err, "failed to load payment widget")
	}
	if len(body) == 0 {
		return pkgerrors.New(pkgerrors.CodePaymentWidget, "failed to load payment widget")
	}
	l.script = body
	return nil
}

// Script returns the loaded script, or nil before a successful Load.
func (l *Loader) Script() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.script
}
