// Command exchange is the composition root: it wires the order books, the
// Balance Store, the Risk Validator, the Price Feed and the Event Sink into
// a Coordinator, then exposes it as a line-oriented command shell over
// stdin. It is a demo/operator harness, not a network service; a production
// deployment would put a wire protocol server in front of the same
// Coordinator instead of a REPL.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"fenrir/internal/config"
	"fenrir/internal/coordinator"
	"fenrir/internal/currency"
	"fenrir/internal/domain"
	"fenrir/internal/eventsink"
	"fenrir/internal/matching"
	"fenrir/internal/pricefeed"
	"fenrir/internal/risk"
	"fenrir/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	workers := flag.Int("workers", 4, "number of coordinator dispatch workers")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	setupLogging(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to open storage")
	}
	defer store.Close()

	feed := pricefeed.NewFixed()
	validator := risk.New(store.Balances(), feed, risk.Config{
		Enabled:          cfg.RiskEnabled,
		MaxExposureQuote: cfg.MaxExposureDecimal(),
		SlippageBuffer:   cfg.SlippageBufferDecimal(),
	})

	sink := eventsink.NewAsync(func(event domain.Event) error {
		log.Info().Str("kind", event.Kind.Topic()).Msg("event published")
		return nil
	})
	sink.Start(ctx)
	defer sink.Stop()

	books := matching.NewManager()
	coord := coordinator.New(store.Balances(), store.Orders(), store.Trades(), store.Deposits(),
		books, validator, sink, true)

	if err := coord.RebuildBooks(ctx); err != nil {
		log.Fatal().Err(err).Msg("unable to rebuild order books")
	}

	coord.Start(ctx, *workers)
	defer coord.Stop()

	log.Info().Msg("exchange running, reading commands from stdin")
	runShell(ctx, coord)
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// runShell reads one command per line from stdin until EOF or ctx is
// cancelled. It exists so the composition root can be exercised by hand
// without standing up a network listener.
func runShell(ctx context.Context, coord *coordinator.Coordinator) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := dispatchCommand(ctx, coord, line); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}
}

func dispatchCommand(ctx context.Context, coord *coordinator.Coordinator, line string) error {
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "deposit":
		return cmdDeposit(ctx, coord, args)
	case "withdraw":
		return cmdWithdraw(ctx, coord, args)
	case "submit":
		return cmdSubmit(ctx, coord, args)
	case "cancel":
		return cmdCancel(ctx, coord, args)
	case "book":
		return cmdBook(coord, args)
	case "balance":
		return cmdBalance(ctx, coord, args)
	case "orders":
		return cmdOrders(ctx, coord, args)
	case "order":
		return cmdOrder(ctx, coord, args)
	case "trades":
		return cmdTrades(ctx, coord, args)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// cmdDeposit: deposit <user> <currency> <amount> [idempotency-key]
func cmdDeposit(ctx context.Context, coord *coordinator.Coordinator, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: deposit <user> <currency> <amount> [idempotency-key]")
	}
	user, ccy, amount, err := parseUserCcyAmount(args)
	if err != nil {
		return err
	}
	var key *string
	if len(args) > 3 {
		key = &args[3]
	}
	wallet, err := coord.Deposit(ctx, user, ccy, amount, key)
	if err != nil {
		return err
	}
	fmt.Printf("wallet %s available=%s version=%d\n", wallet.Currency, wallet.Available, wallet.Version)
	return nil
}

// cmdWithdraw: withdraw <user> <currency> <amount>
func cmdWithdraw(ctx context.Context, coord *coordinator.Coordinator, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: withdraw <user> <currency> <amount>")
	}
	user, ccy, amount, err := parseUserCcyAmount(args)
	if err != nil {
		return err
	}
	wallet, err := coord.Withdraw(ctx, user, ccy, amount)
	if err != nil {
		return err
	}
	fmt.Printf("wallet %s available=%s version=%d\n", wallet.Currency, wallet.Available, wallet.Version)
	return nil
}

// cmdSubmit: submit <user> <limit|market> <buy|sell> <symbol> <qty> [price] [idempotency-key]
func cmdSubmit(ctx context.Context, coord *coordinator.Coordinator, args []string) error {
	if len(args) < 5 {
		return fmt.Errorf("usage: submit <user> <limit|market> <buy|sell> <symbol> <qty> [price] [idempotency-key]")
	}
	user, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("parse user: %w", err)
	}
	kind := domain.Limit
	if strings.EqualFold(args[1], "market") {
		kind = domain.Market
	}
	side := domain.Buy
	if strings.EqualFold(args[2], "sell") {
		side = domain.Sell
	}
	symbol, err := currency.ParseSymbol(args[3])
	if err != nil {
		return fmt.Errorf("parse symbol: %w", err)
	}
	qty, err := decimal.NewFromString(args[4])
	if err != nil {
		return fmt.Errorf("parse qty: %w", err)
	}

	req := coordinator.SubmitRequest{User: user, Kind: kind, Side: side, Symbol: symbol, Qty: qty}
	rest := args[5:]
	if kind == domain.Limit {
		if len(rest) == 0 {
			return fmt.Errorf("limit orders require a price")
		}
		price, err := decimal.NewFromString(rest[0])
		if err != nil {
			return fmt.Errorf("parse price: %w", err)
		}
		req.LimitPrice = &price
		rest = rest[1:]
	}
	if len(rest) > 0 {
		req.IdempotencyKey = &rest[0]
	}

	order, err := coord.Submit(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("order %s status=%s filled=%s/%s\n", order.ID, order.Status, order.FilledQty, order.OriginalQty)
	return nil
}

// cmdCancel: cancel <user> <order-id>
func cmdCancel(ctx context.Context, coord *coordinator.Coordinator, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: cancel <user> <order-id>")
	}
	user, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("parse user: %w", err)
	}
	order, err := coord.Cancel(ctx, user, args[1])
	if err != nil {
		return err
	}
	fmt.Printf("order %s status=%s\n", order.ID, order.Status)
	return nil
}

// cmdBook: book <symbol>
func cmdBook(coord *coordinator.Coordinator, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: book <symbol>")
	}
	symbol, err := currency.ParseSymbol(args[0])
	if err != nil {
		return fmt.Errorf("parse symbol: %w", err)
	}
	bids, asks := coord.OrderBookSnapshot(symbol)
	fmt.Println("bids:")
	for _, lvl := range bids {
		fmt.Printf("  %s @ %s\n", lvl.Qty, lvl.Price)
	}
	fmt.Println("asks:")
	for _, lvl := range asks {
		fmt.Printf("  %s @ %s\n", lvl.Qty, lvl.Price)
	}
	return nil
}

// cmdBalance: balance <user> [currency]
func cmdBalance(ctx context.Context, coord *coordinator.Coordinator, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: balance <user> [currency]")
	}
	user, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("parse user: %w", err)
	}
	if len(args) > 1 {
		ccy, err := currency.Parse(args[1])
		if err != nil {
			return fmt.Errorf("parse currency: %w", err)
		}
		wallet, err := coord.GetBalance(ctx, user, ccy)
		if err != nil {
			return err
		}
		fmt.Printf("%s available=%s version=%d\n", wallet.Currency, wallet.Available, wallet.Version)
		return nil
	}
	wallets, err := coord.ListBalances(ctx, user)
	if err != nil {
		return err
	}
	for _, w := range wallets {
		fmt.Printf("%s available=%s version=%d\n", w.Currency, w.Available, w.Version)
	}
	return nil
}

// cmdOrders: orders <user>
func cmdOrders(ctx context.Context, coord *coordinator.Coordinator, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: orders <user>")
	}
	user, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("parse user: %w", err)
	}
	orders, err := coord.ListOrders(ctx, user)
	if err != nil {
		return err
	}
	for _, o := range orders {
		fmt.Printf("%s %s %s %s status=%s filled=%s/%s\n",
			o.ID, o.Kind, o.Side, o.Symbol, o.Status, o.FilledQty, o.OriginalQty)
	}
	return nil
}

// cmdOrder: order <user> <order-id>
func cmdOrder(ctx context.Context, coord *coordinator.Coordinator, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: order <user> <order-id>")
	}
	user, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("parse user: %w", err)
	}
	o, err := coord.GetOrder(ctx, user, args[1])
	if err != nil {
		return err
	}
	fmt.Printf("%s %s %s %s status=%s filled=%s/%s\n",
		o.ID, o.Kind, o.Side, o.Symbol, o.Status, o.FilledQty, o.OriginalQty)
	return nil
}

// cmdTrades: trades <symbol> [limit]
func cmdTrades(ctx context.Context, coord *coordinator.Coordinator, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: trades <symbol> [limit]")
	}
	symbol, err := currency.ParseSymbol(args[0])
	if err != nil {
		return fmt.Errorf("parse symbol: %w", err)
	}
	limit := 20
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("parse limit: %w", err)
		}
		limit = n
	}
	trades, err := coord.ListTrades(ctx, symbol, limit)
	if err != nil {
		return err
	}
	for _, t := range trades {
		fmt.Printf("%s %s %s @ %s\n", t.ID, t.Symbol, t.Qty, t.Price)
	}
	return nil
}

func parseUserCcyAmount(args []string) (int64, currency.Currency, decimal.Decimal, error) {
	user, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, 0, decimal.Decimal{}, fmt.Errorf("parse user: %w", err)
	}
	ccy, err := currency.Parse(args[1])
	if err != nil {
		return 0, 0, decimal.Decimal{}, fmt.Errorf("parse currency: %w", err)
	}
	amount, err := decimal.NewFromString(args[2])
	if err != nil {
		return 0, 0, decimal.Decimal{}, fmt.Errorf("parse amount: %w", err)
	}
	return user, ccy, amount, nil
}
