package main

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/angelmondragon/storefront-client/internal/api"
	"github.com/angelmondragon/storefront-client/internal/catalog"
	"github.com/angelmondragon/storefront-client/internal/wishlist"
	"github.com/angelmondragon/storefront-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/shopspring/decimal"
)

func (a *App) commandTable() map[string]command {
	return map[string]command{
		"login":           {usage: "-email E -password P", guest: true, run: runLogin},
		"logout":          {usage: "sign out and forget the saved session", guest: true, run: runLogout},
		"register":        {usage: "-name N -email E -password P [-role buyer|seller] [-shop S]", guest: true, run: runRegister},
		"products":        {usage: "[-search S] [-category C] [-min N] [-max N] [-sort K] [-page N]", run: runProducts},
		"product":         {usage: "<id>", run: runProduct},
		"review":          {usage: "<id> -rating 1-5 -comment C", run: runReview},
		"cart":            {usage: "show the cart and its totals", run: runCart},
		"cart-add":        {usage: "<product-id>", run: runCartAdd},
		"cart-qty":        {usage: "<product-id> <quantity>", run: runCartQty},
		"cart-remove":     {usage: "<product-id>", run: runCartRemove},
		"checkout":        {usage: "[-address A] [-method cod|online]", run: runCheckout},
		"wishlist":        {usage: "show the wishlist", run: runWishlist},
		"wishlist-add":    {usage: "<product-id>", run: runWishlistAdd},
		"wishlist-remove": {usage: "<product-id>", run: runWishlistRemove},
		"orders":          {usage: "[-page N]", run: runOrders},
		"order-cancel":    {usage: "<order-id> [-yes]", run: runOrderCancel},
		"order-status":    {usage: "<order-id> <processing|shipped|delivered>", run: runOrderStatus},
		"order-mark-paid": {usage: "<order-id>", run: runOrderMarkPaid},
		"sales":           {usage: "seller sales report", run: runSales},
		"my-products":     {usage: "[-page N]", run: runMyProducts},
		"product-create":  {usage: "-name N -description D -price P -stock N -category C -image FILE...", run: runProductCreate},
		"product-delete":  {usage: "<product-id> [-yes]", run: runProductDelete},
		"profile":         {usage: "show the account profile", run: runProfile},
		"password-change": {usage: "-current P -new P", run: runPasswordChange},
		"password-forgot": {usage: "-email E", run: runPasswordForgot},
		"password-reset":  {usage: "-token T -new P", run: runPasswordReset},
		"shell":           {usage: "read commands from stdin until exit", guest: true, run: runShell},
	}
}

func runLogin(ctx context.Context, inv *invocation, args []string) error {
	email := inv.flags.String("email", "", "account email")
	password := inv.flags.String("password", "", "account password")
	if err := inv.parse(args, 0, ""); err != nil {
		return err
	}
	s, err := inv.app.auth.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	cred := s.Credential()
	inv.printf("Signed in as %s (%s)\n", cred.UserName, cred.Role)
	return nil
}

func runLogout(ctx context.Context, inv *invocation, args []string) error {
	// An expired session still gets cleared.
	s, _ := inv.app.auth.Resume(ctx)
	if err := inv.app.auth.Logout(ctx, s); err != nil {
		return err
	}
	inv.printf("Signed out\n")
	return nil
}

func runRegister(ctx context.Context, inv *invocation, args []string) error {
	name := inv.flags.String("name", "", "display name")
	email := inv.flags.String("email", "", "account email")
	password := inv.flags.String("password", "", "account password")
	role := inv.flags.String("role", enums.RoleBuyer.String(), "buyer or seller")
	shop := inv.flags.String("shop", "", "shop name, sellers only")
	if err := inv.parse(args, 0, ""); err != nil {
		return err
	}
	parsed, err := enums.ParseRole(*role)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "role must be buyer or seller")
	}
	msg, err := inv.app.auth.Register(ctx, api.RegisterRequest{Name: *name, Email: *email, Password: *password, Role: parsed, ShopName: *shop})
	if err != nil {
		return err
	}
	inv.printf("%s\n", fallback(msg, "Registered, please log in"))
	return nil
}

func runProducts(ctx context.Context, inv *invocation, args []string) error {
	search := inv.flags.String("search", "", "search text")
	category := inv.flags.String("category", "", "category")
	minPrice := inv.flags.String("min", "", "minimum price")
	maxPrice := inv.flags.String("max", "", "maximum price")
	sortKey := inv.flags.String("sort", "", "default, priceLowHigh, priceHighLow or newest")
	page := inv.flags.Int("page", 1, "page number")
	if err := inv.parse(args, 0, ""); err != nil {
		return err
	}

	params := catalog.QueryParams{Search: *search, Category: *category, Page: *page}
	var err error
	if params.MinPrice, err = optionalPrice("min", *minPrice); err != nil {
		return err
	}
	if params.MaxPrice, err = optionalPrice("max", *maxPrice); err != nil {
		return err
	}
	if params.Sort, err = enums.ParseSortKey(*sortKey); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown sort "+*sortKey)
	}

	store, err := inv.session.Catalog()
	if err != nil {
		return err
	}
	result, err := store.Query(ctx, params)
	if err != nil {
		return err
	}
	renderProducts(inv.app.out, result.Items)
	renderPager(inv.app.out, store.Pager())
	return nil
}

func runProduct(ctx context.Context, inv *invocation, args []string) error {
	if err := inv.parse(args, 1, "<id>"); err != nil {
		return err
	}
	store, err := inv.session.Catalog()
	if err != nil {
		return err
	}
	product, err := store.Product(ctx, inv.args[0])
	if err != nil {
		return err
	}
	renderProduct(inv.app.out, product)
	if list, err := inv.session.Wishlist(); err == nil && inv.session.Role() == enums.RoleBuyer {
		if _, err := list.Load(ctx); err == nil && list.IsMember(product.ID) {
			inv.printf("In your wishlist\n")
		}
	}
	return nil
}

func runReview(ctx context.Context, inv *invocation, args []string) error {
	rating := inv.flags.Int("rating", 0, "stars, 1 to 5")
	comment := inv.flags.String("comment", "", "review text")
	if err := inv.parse(reorder(args), 1, "<id>"); err != nil {
		return err
	}
	store, err := inv.session.Catalog()
	if err != nil {
		return err
	}
	product, err := store.SubmitReview(ctx, inv.args[0], *rating, *comment)
	if err != nil {
		return err
	}
	inv.printf("Review saved. %s now rated %.1f from %d reviews\n", fallback(product.Name, product.ID), product.AverageRating, product.NumReviews)
	return nil
}

func runCart(ctx context.Context, inv *invocation, args []string) error {
	basket, err := inv.session.Cart()
	if err != nil {
		return err
	}
	cart, err := basket.Load(ctx)
	if err != nil {
		return err
	}
	renderCart(inv.app.out, cart, basket.Totals())
	return nil
}

func runCartAdd(ctx context.Context, inv *invocation, args []string) error {
	if err := inv.parse(args, 1, "<product-id>"); err != nil {
		return err
	}
	basket, err := inv.session.Cart()
	if err != nil {
		return err
	}
	if _, err := basket.Load(ctx); err != nil {
		return err
	}
	if basket.Contains(inv.args[0]) {
		inv.printf("Already in cart\n")
		return nil
	}
	cart, err := basket.Add(ctx, inv.args[0])
	if err != nil {
		return err
	}
	renderCart(inv.app.out, cart, basket.Totals())
	return nil
}

func runCartQty(ctx context.Context, inv *invocation, args []string) error {
	if err := inv.parse(args, 2, "<product-id> <quantity>"); err != nil {
		return err
	}
	qty, err := strconv.Atoi(inv.args[1])
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "quantity must be a number")
	}
	basket, err := inv.session.Cart()
	if err != nil {
		return err
	}
	if _, err := basket.Load(ctx); err != nil {
		return err
	}
	cart, err := basket.SetQuantity(ctx, inv.args[0], qty)
	if err != nil {
		return err
	}
	renderCart(inv.app.out, cart, basket.Totals())
	return nil
}

func runCartRemove(ctx context.Context, inv *invocation, args []string) error {
	if err := inv.parse(args, 1, "<product-id>"); err != nil {
		return err
	}
	basket, err := inv.session.Cart()
	if err != nil {
		return err
	}
	cart, err := basket.Remove(ctx, inv.args[0])
	if err != nil {
		return err
	}
	renderCart(inv.app.out, cart, basket.Totals())
	return nil
}

func runCheckout(ctx context.Context, inv *invocation, args []string) error {
	address := inv.flags.String("address", "", "shipping address; defaults to the last one used")
	method := inv.flags.String("method", "", "cod or online; defaults to the last one used, else cod")
	if err := inv.parse(args, 0, ""); err != nil {
		return err
	}
	basket, err := inv.session.Cart()
	if err != nil {
		return err
	}

	prefs, _ := basket.CheckoutPrefs(ctx)
	if strings.TrimSpace(*address) == "" {
		*address = prefs.ShippingAddress
	}
	if *method == "" {
		*method = fallback(prefs.PaymentMethod.String(), enums.PaymentMethodCOD.String())
	}
	paymentMethod, err := enums.ParsePaymentMethod(*method)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "payment method must be cod or online")
	}

	if _, err := basket.Load(ctx); err != nil {
		return err
	}
	conf, err := basket.PlaceOrder(ctx, *address, paymentMethod)
	if err != nil {
		return err
	}
	renderConfirmation(inv.app.out, conf)
	return nil
}

func runWishlist(ctx context.Context, inv *invocation, args []string) error {
	list, err := inv.session.Wishlist()
	if err != nil {
		return err
	}
	items, err := list.Load(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		inv.printf("Your wishlist is empty\n")
		return nil
	}
	renderProducts(inv.app.out, items)
	return nil
}

func runWishlistAdd(ctx context.Context, inv *invocation, args []string) error {
	if err := inv.parse(args, 1, "<product-id>"); err != nil {
		return err
	}
	list, err := inv.session.Wishlist()
	if err != nil {
		return err
	}
	outcome, err := list.Add(ctx, inv.args[0])
	switch outcome {
	case wishlist.OutcomeAdded:
		inv.printf("Added to wishlist\n")
	case wishlist.OutcomeExists:
		inv.printf("Product already in wishlist\n")
	}
	return err
}

func runWishlistRemove(ctx context.Context, inv *invocation, args []string) error {
	if err := inv.parse(args, 1, "<product-id>"); err != nil {
		return err
	}
	list, err := inv.session.Wishlist()
	if err != nil {
		return err
	}
	if _, err := list.Remove(ctx, inv.args[0]); err != nil {
		return err
	}
	inv.printf("Removed from wishlist\n")
	return nil
}

func runOrders(ctx context.Context, inv *invocation, args []string) error {
	page := inv.flags.Int("page", 1, "page number")
	if err := inv.parse(args, 0, ""); err != nil {
		return err
	}
	view, err := inv.session.Orders()
	if err != nil {
		return err
	}
	all, err := view.Load(ctx)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		inv.printf("No orders yet\n")
		return nil
	}
	renderOrders(inv.app.out, view, view.GoToPage(*page))
	renderPager(inv.app.out, view.Pager())
	return nil
}

func runOrderCancel(ctx context.Context, inv *invocation, args []string) error {
	yes := inv.flags.Bool("yes", false, "skip the confirmation prompt")
	if err := inv.parse(reorder(args), 1, "<order-id>"); err != nil {
		return err
	}
	view, err := inv.session.Orders()
	if err != nil {
		return err
	}
	if _, err := view.Load(ctx); err != nil {
		return err
	}
	ok, err := view.Cancel(ctx, inv.args[0], inv.app.confirmer(*yes))
	if err != nil {
		return err
	}
	if !ok {
		inv.printf("Order not cancelled\n")
		return nil
	}
	inv.printf("Order cancelled\n")
	return nil
}

func runOrderStatus(ctx context.Context, inv *invocation, args []string) error {
	if err := inv.parse(args, 2, "<order-id> <status>"); err != nil {
		return err
	}
	next, err := enums.ParseOrderStatus(strings.ToLower(strings.TrimSpace(inv.args[1])))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown order status "+inv.args[1])
	}
	view, err := inv.session.Orders()
	if err != nil {
		return err
	}
	if _, err := view.Load(ctx); err != nil {
		return err
	}
	if next == enums.OrderStatusCancelled {
		ok, err := view.Cancel(ctx, inv.args[0], inv.app.confirmer(false))
		if err == nil && ok {
			inv.printf("Order cancelled\n")
		}
		return err
	}
	order, err := view.AdvanceStatus(ctx, inv.args[0], next)
	if err != nil {
		return err
	}
	inv.printf("Order %s is now %s\n", order.ID, order.Status)
	return nil
}

func runOrderMarkPaid(ctx context.Context, inv *invocation, args []string) error {
	if err := inv.parse(args, 1, "<order-id>"); err != nil {
		return err
	}
	view, err := inv.session.Orders()
	if err != nil {
		return err
	}
	if _, err := view.Load(ctx); err != nil {
		return err
	}
	order, err := view.MarkPaid(ctx, inv.args[0])
	if err != nil {
		return err
	}
	inv.printf("Order %s marked %s\n", order.ID, order.PaymentStatus)
	return nil
}

func runSales(ctx context.Context, inv *invocation, args []string) error {
	view, err := inv.session.Orders()
	if err != nil {
		return err
	}
	report, err := view.SalesReport(ctx)
	if err != nil {
		return err
	}
	renderSales(inv.app.out, report)
	return nil
}

func runMyProducts(ctx context.Context, inv *invocation, args []string) error {
	page := inv.flags.Int("page", 1, "page number")
	if err := inv.parse(args, 0, ""); err != nil {
		return err
	}
	products, err := inv.session.SellerProducts()
	if err != nil {
		return err
	}
	items, err := products.Load(ctx, *page)
	if err != nil {
		return err
	}
	renderProducts(inv.app.out, items)
	renderPager(inv.app.out, products.Pager())
	return nil
}

func runProductCreate(ctx context.Context, inv *invocation, args []string) error {
	name := inv.flags.String("name", "", "product name")
	description := inv.flags.String("description", "", "product description")
	price := inv.flags.String("price", "", "unit price")
	stock := inv.flags.Int("stock", 0, "units in stock")
	category := inv.flags.String("category", "", "category")
	var images []string
	inv.flags.Func("image", "image file, repeatable", func(path string) error {
		images = append(images, path)
		return nil
	})
	if err := inv.parse(args, 0, ""); err != nil {
		return err
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(*price))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "price must be a number")
	}
	form := api.ProductForm{Name: *name, Description: *description, Price: amount, Stock: *stock, Category: *category}
	for _, path := range images {
		data, err := os.ReadFile(path)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "cannot read image "+path)
		}
		form.Images = append(form.Images, api.Upload{Filename: filepath.Base(path), Data: data})
	}

	products, err := inv.session.SellerProducts()
	if err != nil {
		return err
	}
	product, err := products.Create(ctx, form)
	if err != nil {
		return err
	}
	inv.printf("Created %s (%s)\n", product.Name, product.ID)
	return nil
}

func runProductDelete(ctx context.Context, inv *invocation, args []string) error {
	yes := inv.flags.Bool("yes", false, "skip the confirmation prompt")
	if err := inv.parse(reorder(args), 1, "<product-id>"); err != nil {
		return err
	}
	products, err := inv.session.SellerProducts()
	if err != nil {
		return err
	}
	ok, err := products.Delete(ctx, inv.args[0], inv.app.confirmer(*yes))
	if err != nil {
		return err
	}
	if ok {
		inv.printf("Product deleted\n")
	}
	return nil
}

func runProfile(ctx context.Context, inv *invocation, args []string) error {
	svc, err := inv.session.Account()
	if err != nil {
		return err
	}
	profile, err := svc.Profile(ctx)
	if err != nil {
		return err
	}
	renderProfile(inv.app.out, profile)
	return nil
}

func runPasswordChange(ctx context.Context, inv *invocation, args []string) error {
	current := inv.flags.String("current", "", "current password")
	next := inv.flags.String("new", "", "new password")
	if err := inv.parse(args, 0, ""); err != nil {
		return err
	}
	svc, err := inv.session.Account()
	if err != nil {
		return err
	}
	msg, err := svc.ChangePassword(ctx, *current, *next)
	if err != nil {
		return err
	}
	inv.printf("%s\n", fallback(msg, "Password changed"))
	return nil
}

func runPasswordForgot(ctx context.Context, inv *invocation, args []string) error {
	email := inv.flags.String("email", "", "account email")
	if err := inv.parse(args, 0, ""); err != nil {
		return err
	}
	svc, err := inv.session.Account()
	if err != nil {
		return err
	}
	msg, err := svc.ForgotPassword(ctx, *email)
	if err != nil {
		return err
	}
	inv.printf("%s\n", fallback(msg, "Check your email for a reset link"))
	return nil
}

func runPasswordReset(ctx context.Context, inv *invocation, args []string) error {
	token := inv.flags.String("token", "", "reset token from the email")
	next := inv.flags.String("new", "", "new password")
	if err := inv.parse(args, 0, ""); err != nil {
		return err
	}
	svc, err := inv.session.Account()
	if err != nil {
		return err
	}
	msg, err := svc.ResetPassword(ctx, *token, *next)
	if err != nil {
		return err
	}
	inv.printf("%s\n", fallback(msg, "Password reset, please log in"))
	return nil
}

func optionalPrice(name, raw string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, name+" price must be a number")
	}
	return &value, nil
}

// reorder moves flags ahead of positional arguments so "<id> -yes" parses.
func reorder(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			positional = append(positional, arg)
			continue
		}
		flags = append(flags, arg)
		if !strings.Contains(arg, "=") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") && !isBoolFlag(arg) {
			flags = append(flags, args[i+1])
			i++
		}
	}
	return append(flags, positional...)
}

func isBoolFlag(arg string) bool {
	return strings.TrimLeft(arg, "-") == "yes"
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
