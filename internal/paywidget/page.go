package paywidget

import (
	"encoding/json"
	"html/template"
)

const defaultThemeColor = "#3399cc"

type widgetOptions struct {
	Key         string  `json:"key"`
	Amount      int64   `json:"amount"`
	Currency    string  `json:"currency"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	OrderID     string  `json:"order_id"`
	Prefill     Prefill `json:"prefill"`
	Theme       struct {
		Color string `json:"color"`
	} `json:"theme"`
}

type page struct {
	Title     string
	ScriptURL string
	Complete  string
	Dismiss   string
	Options   template.JS
}

func pageData(nonce string, checkout Checkout) page {
	opts := widgetOptions{
		Key:         checkout.Key,
		Amount:      checkout.Order.Amount.IntPart(),
		Currency:    checkout.Order.Currency,
		Name:        checkout.StoreName,
		Description: checkout.Description,
		OrderID:     checkout.Order.ID,
		Prefill:     checkout.Prefill,
	}
	opts.Theme.Color = checkout.ThemeColor
	if opts.Theme.Color == "" {
		opts.Theme.Color = defaultThemeColor
	}
	raw, err := json.Marshal(opts)
	if err != nil {
		raw = []byte("{}")
	}
	base := "/checkout/" + nonce
	return page{
		Title:     checkout.StoreName,
		ScriptURL: base + "/widget.js",
		Complete:  base + "/complete",
		Dismiss:   base + "/dismiss",
		Options:   template.JS(raw),
	}
}

var checkoutPage = template.Must(template.New("checkout").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}} checkout</title>
<script src="{{.ScriptURL}}"></script>
</head>
<body>
<p id="status">Opening payment window...</p>
<script>
(function () {
  var status = document.getElementById("status");
  function post(url, body) {
    return fetch(url, {method: "POST", headers: {"Content-Type": "application/json"}, body: JSON.stringify(body || {})});
  }
  var options = {{.Options}};
  options.handler = function (resp) {
    post({{.Complete}}, resp).then(function () { status.textContent = "Payment received. You can close this window."; });
  };
  options.modal = {ondismiss: function () {
    post({{.Dismiss}}).then(function () { status.textContent = "Payment cancelled. You can close this window."; });
  }};
  new Razorpay(options).open();
})();
</script>
</body>
</html>
`))
