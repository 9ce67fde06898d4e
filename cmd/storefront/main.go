package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"storefront-checkout/internal/cart"
	"storefront-checkout/internal/checkout"
	"storefront-checkout/internal/config"
	"storefront-checkout/internal/deliverynote"
	"storefront-checkout/internal/domain"
	"storefront-checkout/internal/history"
	"storefront-checkout/internal/orderapi"
	"storefront-checkout/internal/session"
	"storefront-checkout/internal/terminal"
)

const usage = `usage: storefront <command> [flags]

commands:
  login           -user NAME [-password PASS]
  logout
  checkout        -cart FILE [-name ..] [-address ..] [-city ..] [-postal-code ..] [-phone ..] [-yes]
  history
  delivery-note   -order ID [-out DIR] [-email]
  cancel          -order ID
  summary
`

type app struct {
	cfg     config.Config
	logger  *log.Logger
	session *session.Store
	api     *orderapi.Client
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.FromEnv()
	logger := log.New(os.Stderr, "[storefront] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess, err := session.LoadFile(cfg.SessionFile)
	if err != nil {
		logger.Fatalf("load session: %v", err)
	}
	api, err := orderapi.New(cfg.APIBaseURL, &http.Client{Timeout: cfg.APITimeout}, sess, logger)
	if err != nil {
		logger.Fatalf("init api client: %v", err)
	}
	a := &app{cfg: cfg, logger: logger, session: sess, api: api}

	cmd, args := os.Args[1], os.Args[2:]
	var runErr error
	switch cmd {
	case "login":
		runErr = a.login(ctx, args)
	case "logout":
		runErr = a.logout()
	case "checkout":
		runErr = a.checkout(ctx, args)
	case "history":
		runErr = a.history(ctx)
	case "delivery-note":
		runErr = a.deliveryNote(ctx, args)
	case "cancel":
		runErr = a.cancel(ctx, args)
	case "summary":
		runErr = a.summary(ctx)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr)
		os.Exit(1)
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	username := fs.String("user", "", "Username")
	password := fs.String("password", os.Getenv("STOREFRONT_PASSWORD"), "Password (defaults to STOREFRONT_PASSWORD)")
	_ = fs.Parse(args)
	if *username == "" || *password == "" {
		fs.Usage()
		os.Exit(2)
	}

	user, token, err := a.api.Login(ctx, *username, *password)
	if err != nil {
		return err
	}
	if err := a.session.Start(*user, token); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	fmt.Printf("Logged in as %s (%s)\n", user.Username, user.Role)
	return nil
}

func (a *app) logout() error {
	if a.session.Logout() {
		fmt.Println("Logged out")
	} else {
		fmt.Println("No active session")
	}
	return nil
}

func (a *app) checkout(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ExitOnError)
	cartPath := fs.String("cart", "", "Cart file (YAML or JSON)")
	assumeYes := fs.Bool("yes", false, "Accept every confirmation")
	fields := map[string]*string{
		"name":       fs.String("name", "", "Shipping name"),
		"address":    fs.String("address", "", "Shipping address"),
		"city":       fs.String("city", "", "Shipping city"),
		"postalCode": fs.String("postal-code", "", "Shipping postal code"),
		"phone":      fs.String("phone", "", "Contact phone"),
	}
	_ = fs.Parse(args)
	if *cartPath == "" {
		fs.Usage()
		os.Exit(2)
	}

	items, err := cart.LoadFile(*cartPath)
	if err != nil {
		return err
	}
	store := cart.NewStore(items...)

	console := terminal.New(os.Stdin, os.Stdout)
	console.AssumeYes = *assumeYes
	flow := checkout.New(checkout.Deps{
		Cart:       store,
		Session:    a.session,
		Orders:     a.api,
		Notifier:   console,
		Navigator:  console,
		ScrollLock: console,
		Logger:     a.logger,
	})
	defer flow.Teardown()

	if err := flow.Activate(ctx); err != nil {
		return err
	}
	if !flow.BypassForm() {
		for name, v := range fields {
			if *v == "" {
				continue
			}
			if err := flow.Form().Set(name, *v); err != nil {
				return err
			}
		}
	}

	printCart(flow)
	created, err := flow.PlaceOrder(ctx)
	if err != nil {
		return err
	}
	if err := cart.SaveFile(*cartPath, store.Items()); err != nil {
		a.logger.Printf("clear cart file %s: %v", *cartPath, err)
	}
	fmt.Printf("Order %d created (%s, %s €)\n", created.ID, created.Status, created.Total.StringFixed(2))
	return nil
}

func printCart(flow *checkout.Flow) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PRODUCT\tCOLOR\tQTY\tPRICE\tIMAGE")
	for _, it := range flow.Items() {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", it.Name, it.Color, it.Quantity, it.UnitPrice.StringFixed(2), cart.ImageSrc(it))
	}
	fmt.Fprintf(w, "\t\t\tTOTAL\t%s\n", flow.Total().StringFixed(2))
	_ = w.Flush()
}

func (a *app) newHistory(ctx context.Context) (*history.View, error) {
	view := history.New(a.api, a.session, deliverynote.NewGenerator(a.cfg.CompanyName), a.logger)
	if err := view.Activate(ctx); err != nil {
		if errors.Is(err, history.ErrNotAuthenticated) {
			return nil, errors.New("you must log in first")
		}
		return nil, err
	}
	return view, nil
}

func (a *app) history(ctx context.Context) error {
	view, err := a.newHistory(ctx)
	if err != nil {
		return err
	}
	defer view.Teardown()

	orders := view.Orders()
	if len(orders) == 0 {
		fmt.Println("No orders yet")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tSTATUS\tTOTAL\tLINES")
	for _, o := range orders {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", o.ID, o.Date, o.Status, o.Total.StringFixed(2), len(o.Lines))
	}
	return w.Flush()
}

func (a *app) deliveryNote(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delivery-note", flag.ExitOnError)
	orderID := fs.Int64("order", 0, "Order id")
	outDir := fs.String("out", ".", "Directory to write the PDF to")
	email := fs.Bool("email", false, "Also send the delivery note by email")
	_ = fs.Parse(args)
	if *orderID <= 0 {
		fs.Usage()
		os.Exit(2)
	}

	view, err := a.newHistory(ctx)
	if err != nil {
		return err
	}
	defer view.Teardown()

	doc, err := view.DownloadDeliveryNote(ctx, *orderID)
	if err != nil {
		return err
	}
	path, err := doc.WriteFile(*outDir)
	if err != nil {
		return fmt.Errorf("write delivery note: %w", err)
	}
	fmt.Printf("Delivery note written to %s\n", path)

	if !*email {
		return nil
	}
	user, ok := a.session.Current()
	if !ok {
		return orderapi.ErrUnauthenticated
	}
	order, err := findOrder(view.Orders(), *orderID)
	if err != nil {
		return err
	}
	if err := a.api.SendDeliveryNoteByEmail(ctx, order, *user, doc.Base64()); err != nil {
		return err
	}
	fmt.Printf("Delivery note sent to %s\n", user.Email)
	return nil
}

func findOrder(orders []domain.Order, id int64) (domain.Order, error) {
	for _, o := range orders {
		if o.ID == id {
			return o, nil
		}
	}
	return domain.Order{}, fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
}

func (a *app) cancel(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cancel", flag.ExitOnError)
	orderID := fs.Int64("order", 0, "Order id")
	_ = fs.Parse(args)
	if *orderID <= 0 {
		fs.Usage()
		os.Exit(2)
	}

	o, err := a.api.CancelOrder(ctx, *orderID)
	if err != nil {
		return err
	}
	fmt.Printf("Order %d is now %s\n", o.ID, o.Status)
	return nil
}

func (a *app) summary(ctx context.Context) error {
	s, err := a.api.Summary(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Orders: %d\nSpent: %s €\n", s.TotalOrders, s.TotalSpent.StringFixed(2))
	for _, st := range []domain.Status{domain.StatusPending, domain.StatusProcessing, domain.StatusShipped, domain.StatusDelivered, domain.StatusCancelled} {
		if n := s.ByStatus[st]; n > 0 {
			fmt.Printf("  %-10s %d\n", st, n)
		}
	}
	return nil
}
