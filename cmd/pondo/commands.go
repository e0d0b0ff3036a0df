package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"pondo/internal/auth"
	"pondo/internal/cli"
	"pondo/internal/export"
	apihttp "pondo/internal/http"
	"pondo/internal/middleware/ratelimit"
	"pondo/internal/services"
	"pondo/internal/syncer"
	"pondo/internal/worker"
)

const serveShutdownTimeout = 10 * time.Second

var errSignedOut = errors.New("not signed in, run `pondo login` first")

type env struct {
	rt  *cli.Runtime
	out io.Writer
}

type command struct {
	usage string
	// open commands run without a session.
	open bool
	run  func(ctx context.Context, e *env, args []string) error
}

var commands = map[string]command{
	"dashboard": {usage: "totals, goal, budgets and transactions", run: cmdDashboard},
	"budget":    {usage: "budget planner; `budget set <category> <limit>`, `budget rm <category>`", run: cmdBudget},
	"income":    {usage: "income transactions; -add with -date -desc -category -amount", run: cmdIncome},
	"expenses":  {usage: "expense transactions; -add with -date -desc -category -amount", run: cmdExpenses},
	"add":       {usage: "record a signed transaction: -date -desc -category -amount", run: cmdAdd},
	"summary":   {usage: "totals and the ten most recent transactions", run: cmdSummary},
	"savings":   {usage: "saving goal and contributions", open: true, run: cmdSavings},
	"goal":      {usage: "`goal set -title -target -date`, `goal clear`, `goal contribute -amount`", run: cmdGoal},
	"settings":  {usage: "show preferences; `settings currency <CODE>`", open: true, run: cmdSettings},
	"export":    {usage: "write transactions to a file: -format csv|xlsx -o path", run: cmdExport},
	"reconcile": {usage: "retry ledger writes for pending contributions", run: cmdReconcile},
	"login":     {usage: "-email -password", open: true, run: cmdLogin},
	"register":  {usage: "-email -password -confirm", open: true, run: cmdRegister},
	"logout":    {usage: "end the session", open: true, run: cmdLogout},
	"status":    {usage: "session and backend status", open: true, run: cmdStatus},
	"serve":     {usage: "serve the screens as a JSON API: -addr", open: true, run: cmdServe},
}

func run(ctx context.Context, args []string, rt *cli.Runtime, out io.Writer) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage(out)
		return nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		printUsage(out)
		return fmt.Errorf("unknown command %q", args[0])
	}
	e := &env{rt: rt, out: out}
	if !cmd.open {
		if err := e.requireSession(ctx); err != nil {
			return err
		}
	}
	return cmd.run(ctx, e, args[1:])
}

func printUsage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "usage: pondo <command> [flags]")
	for _, name := range names {
		fmt.Fprintf(w, "  %-10s %s\n", name, commands[name].usage)
	}
}

// requireSession resolves the session on first use. Ledgers without a
// session (memory, sheets) are always usable.
func (e *env) requireSession(ctx context.Context) error {
	s := e.rt.Session
	if s == nil {
		return nil
	}
	if resolve(ctx, s) != auth.Authenticated {
		return errSignedOut
	}
	return nil
}

func resolve(ctx context.Context, s *auth.Session) auth.State {
	if s.State() == auth.Checking {
		return s.Bootstrap(ctx)
	}
	return s.State()
}

func newFlags(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

// parseAmount treats unparseable input as zero so the service reports it.
func parseAmount(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func cmdDashboard(ctx context.Context, e *env, _ []string) error {
	renderDashboard(e.out, e.rt.App.Dashboard(ctx))
	return nil
}

func cmdSummary(ctx context.Context, e *env, _ []string) error {
	renderSummary(e.out, e.rt.App.Summary(ctx))
	return nil
}

func cmdBudget(ctx context.Context, e *env, args []string) error {
	budgets := e.rt.App.Budgets()
	if len(args) == 0 {
		renderBudget(e.out, e.rt.App.Budget(ctx))
		return nil
	}
	switch args[0] {
	case "set":
		if len(args) != 3 {
			return errors.New("usage: pondo budget set <category> <limit>")
		}
		if _, err := budgets.Upsert(ctx, args[1], parseAmount(args[2])); err != nil {
			return err
		}
		fmt.Fprintf(e.out, "Budget for %s saved.\n", strings.TrimSpace(args[1]))
	case "rm":
		if len(args) != 2 {
			return errors.New("usage: pondo budget rm <category>")
		}
		if !budgets.Remove(ctx, args[1]) {
			return fmt.Errorf("no budget for %q", args[1])
		}
		fmt.Fprintf(e.out, "Budget for %s removed.\n", args[1])
	default:
		return fmt.Errorf("unknown budget action %q", args[0])
	}
	return nil
}

// transactionFlags binds the form fields to fs.
func transactionFlags(fs *flag.FlagSet, defaultCategory string) *syncer.Fields {
	f := &syncer.Fields{}
	fs.StringVar(&f.Date, "date", "", "transaction date (YYYY-MM-DD)")
	fs.StringVar(&f.Description, "desc", "", "description")
	fs.StringVar(&f.Category, "category", defaultCategory, "category")
	fs.StringVar(&f.Amount, "amount", "", "amount in minor units")
	return f
}

func submit(ctx context.Context, e *env, form *syncer.Form, fields syncer.Fields) error {
	form.SetFields(fields)
	if _, err := form.Submit(ctx); err != nil {
		return err
	}
	fmt.Fprintln(e.out, form.Success())
	return nil
}

func cmdAdd(ctx context.Context, e *env, args []string) error {
	fs := newFlags("add", e.out)
	fields := transactionFlags(fs, "")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return submit(ctx, e, e.rt.App.DashboardForm(), *fields)
}

func cmdIncome(ctx context.Context, e *env, args []string) error {
	return ledgerScreen(ctx, e, args, "income", syncer.DefaultIncomeCategory)
}

func cmdExpenses(ctx context.Context, e *env, args []string) error {
	return ledgerScreen(ctx, e, args, "expenses", syncer.DefaultExpenseCategory)
}

func ledgerScreen(ctx context.Context, e *env, args []string, name, defaultCategory string) error {
	fs := newFlags(name, e.out)
	add := fs.Bool("add", false, "record a transaction before listing")
	fields := transactionFlags(fs, defaultCategory)
	if err := fs.Parse(args); err != nil {
		return err
	}

	app := e.rt.App
	if *add {
		form := app.ExpenseForm()
		if name == "income" {
			form = app.IncomeForm()
		}
		if err := submit(ctx, e, form, *fields); err != nil {
			return err
		}
	}
	if name == "income" {
		renderLedger(e.out, "income", "Total Income", app.Income(ctx))
	} else {
		renderLedger(e.out, "expenses", "Total Expenses", app.Expenses(ctx))
	}
	return nil
}

func cmdSavings(ctx context.Context, e *env, _ []string) error {
	renderSavings(e.out, e.rt.App.Savings(ctx))
	return nil
}

func cmdGoal(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: pondo goal set|clear|contribute")
	}
	goals := e.rt.Goals
	switch args[0] {
	case "set":
		fs := newFlags("goal set", e.out)
		title := fs.String("title", "", "goal title")
		target := fs.String("target", "0", "target amount")
		date := fs.String("date", "", "target date")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		g, err := goals.Replace(ctx, *title, parseAmount(*target), *date)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.out, "Goal %q saved.\n", g.Title)
	case "clear":
		goals.Clear(ctx)
		fmt.Fprintln(e.out, "Goal cleared.")
	case "contribute":
		fs := newFlags("goal contribute", e.out)
		amount := fs.String("amount", "", "contribution amount")
		date := fs.String("date", "", "contribution date, defaults to today")
		desc := fs.String("desc", "", "description")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		c, err := goals.AddContribution(ctx, *date, *desc, parseAmount(*amount))
		if errors.Is(err, services.ErrContributionPending) {
			fmt.Fprintln(e.out, "Contribution saved. The ledger entry will be retried.")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(e.out, "Contribution of %s saved.\n", e.rt.App.Settings().Format(ctx, c.Amount))
	default:
		return fmt.Errorf("unknown goal action %q", args[0])
	}
	return nil
}

func cmdSettings(ctx context.Context, e *env, args []string) error {
	if len(args) == 2 && args[0] == "currency" {
		s := e.rt.App.Settings().SetCurrency(ctx, args[1])
		fmt.Fprintf(e.out, "Currency set to %s (%s).\n", s.CurrencyCode, s.CurrencySymbol)
		return nil
	}
	if len(args) != 0 {
		return errors.New("usage: pondo settings [currency <CODE>]")
	}
	renderSettings(e.out, e.rt.App.SettingsPage(ctx))
	return nil
}

func cmdExport(ctx context.Context, e *env, args []string) error {
	fs := newFlags("export", e.out)
	format := fs.String("format", "csv", "csv or xlsx")
	path := fs.String("o", "", "output file, - for stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	f, err := export.ParseFormat(*format)
	if err != nil {
		return err
	}
	if *path == "" {
		*path = "pondo-export" + f.Ext()
	}

	dash := e.rt.App.Dashboard(ctx)
	report := export.Report{
		Settings:     dash.Settings,
		Transactions: dash.Recent,
		Budgets:      dash.Budgets,
		Goal:         e.rt.Goals.Current(ctx),
	}

	if *path == "-" {
		return export.Write(e.out, f, report)
	}
	file, err := os.Create(*path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := export.Write(file, f, report); err != nil {
		file.Close()
		return fmt.Errorf("write export: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}
	fmt.Fprintf(e.out, "Exported %d transactions to %s.\n", len(report.Transactions), *path)
	return nil
}

func cmdReconcile(ctx context.Context, e *env, _ []string) error {
	n, err := e.rt.Goals.ReconcilePending(ctx)
	fmt.Fprintf(e.out, "%d contribution(s) synced.\n", n)
	return err
}

func credentialFlags(name string, e *env, args []string, register bool) (auth.Credentials, error) {
	fs := newFlags(name, e.out)
	var cr auth.Credentials
	fs.StringVar(&cr.Email, "email", "", "account email")
	fs.StringVar(&cr.Password, "password", "", "password")
	if register {
		fs.StringVar(&cr.ConfirmPassword, "confirm", "", "repeat the password")
	}
	err := fs.Parse(args)
	return cr, err
}

func (e *env) session() (*auth.Session, error) {
	if e.rt.Session == nil {
		return nil, fmt.Errorf("the %s ledger has no accounts", e.rt.Config.LedgerBackend)
	}
	return e.rt.Session, nil
}

func cmdLogin(ctx context.Context, e *env, args []string) error {
	s, err := e.session()
	if err != nil {
		return err
	}
	cr, err := credentialFlags("login", e, args, false)
	if err != nil {
		return err
	}
	resolve(ctx, s)
	if err := s.Login(ctx, cr); err != nil {
		return err
	}
	fmt.Fprintln(e.out, "Signed in.")
	return nil
}

func cmdRegister(ctx context.Context, e *env, args []string) error {
	s, err := e.session()
	if err != nil {
		return err
	}
	cr, err := credentialFlags("register", e, args, true)
	if err != nil {
		return err
	}
	resolve(ctx, s)
	if err := s.Register(ctx, cr); err != nil {
		return err
	}
	fmt.Fprintln(e.out, "Account created.")
	return nil
}

func cmdLogout(ctx context.Context, e *env, _ []string) error {
	s, err := e.session()
	if err != nil {
		return err
	}
	resolve(ctx, s)
	s.Logout(ctx)
	fmt.Fprintln(e.out, "Signed out.")
	return nil
}

func cmdStatus(ctx context.Context, e *env, _ []string) error {
	cfg := e.rt.Config
	fmt.Fprintf(e.out, "Ledger:  %s\n", cfg.LedgerBackend)
	fmt.Fprintf(e.out, "Store:   %s\n", cfg.StoreBackend)
	if s := e.rt.Session; s != nil {
		fmt.Fprintf(e.out, "Session: %s\n", resolve(ctx, s))
	}
	queue := "disabled"
	if e.rt.AMQP != nil {
		queue = cfg.AMQPQueue
	}
	fmt.Fprintf(e.out, "Queue:   %s\n", queue)
	fmt.Fprintf(e.out, "Pending contributions: %d\n", len(e.rt.Goals.Current(ctx).PendingContributions()))
	return nil
}

// cmdServe runs the JSON API together with the reconcile and cache-sweep
// loop until the process is signalled.
func cmdServe(ctx context.Context, e *env, args []string) error {
	cfg := e.rt.Config
	fs := newFlags("serve", e.out)
	addr := fs.String("addr", ":"+cfg.Port, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})
	e.rt.Caches.Register(limiter)

	processor := worker.NewProcessor(worker.NewReconcileWorker(e.rt.Goals, e.rt.Logger), e.rt.Caches,
		worker.ProcessorConfig{PollInterval: cfg.ReconcileInterval}, e.rt.Logger)
	if err := processor.Start(ctx); err != nil {
		return err
	}
	defer processor.Stop(context.Background())

	srv := apihttp.NewServer(*addr, apihttp.Deps{
		App:     e.rt.App,
		Goals:   e.rt.Goals,
		Session: e.rt.Session,
		Limiter: limiter,
		Logger:  e.rt.Logger,
	})
	fmt.Fprintf(e.out, "Serving on %s\n", *addr)
	return srv.Run(ctx, serveShutdownTimeout)
}
