package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"expensetracker/internal/auth"
	"expensetracker/internal/core"
	"expensetracker/internal/expenses"
)

var errNotLoggedIn = errors.New("not logged in, run: expensectl login")

func (a *app) login(ctx context.Context, args []string) error {
	fs := a.flags("login")
	if err := fs.Parse(args); err != nil {
		return err
	}
	identifier := fs.Arg(0)
	if identifier == "" {
		var err error
		if identifier, err = a.prompt("Username or email: "); err != nil {
			return err
		}
	}
	password, err := a.password("Password: ")
	if err != nil {
		return err
	}

	flow := auth.NewLoginFlow(a.client, a.store, a.logger)
	flow.Submit(ctx, auth.Values{Identifier: identifier, Password: password})
	if !flow.Succeeded() {
		return a.authFailure(flow)
	}
	sess, _ := a.store.Load(ctx)
	fmt.Fprintf(a.out, "Logged in as %s\n", sess.Username)
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := a.flags("register")
	username := fs.String("username", "", "Username")
	email := fs.String("email", "", "Email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var err error
	if *username == "" {
		if *username, err = a.prompt("Username: "); err != nil {
			return err
		}
	}
	if *email == "" {
		if *email, err = a.prompt("Email: "); err != nil {
			return err
		}
	}
	password, err := a.password("Password: ")
	if err != nil {
		return err
	}

	flow := auth.NewRegisterFlow(a.client, a.logger)
	flow.Submit(ctx, auth.Values{Username: *username, Email: *email, Password: password})
	if !flow.Succeeded() {
		return a.authFailure(flow)
	}
	fmt.Fprintln(a.out, flow.Message)
	if flow.ServerMessage != "" && flow.ServerMessage != flow.Message {
		fmt.Fprintln(a.out, flow.ServerMessage)
	}
	return nil
}

func (a *app) authFailure(flow *auth.Flow) error {
	if len(flow.FieldErrors) > 0 {
		for _, f := range []string{auth.FieldIdentifier, auth.FieldUsername, auth.FieldEmail, auth.FieldPassword} {
			if msg, ok := flow.FieldErrors[f]; ok {
				fmt.Fprintf(a.errOut, "%s: %s\n", f, msg)
			}
		}
		return errors.New("invalid input")
	}
	return errors.New(flow.Message)
}

func (a *app) logout(ctx context.Context) error {
	if err := a.store.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	sess, ok := a.store.Load(ctx)
	if !ok {
		return errNotLoggedIn
	}
	if sess.Email != "" {
		fmt.Fprintf(a.out, "%s <%s>\n", sess.Username, sess.Email)
		return nil
	}
	fmt.Fprintln(a.out, sess.Username)
	return nil
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := a.flags("list")
	from := fs.String("from", "", "Start date, YYYY-MM-DD")
	to := fs.String("to", "", "End date, YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return err
	}
	r, err := a.dateRange(*from, *to)
	if err != nil {
		return err
	}
	page, err := a.page(ctx)
	if err != nil {
		return err
	}
	if err := page.Fetch(ctx, r); err != nil {
		return pageError(page)
	}
	return a.printList(page.List())
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := a.flags("add")
	form := expenses.Form{}
	fs.StringVar(&form.Description, "description", "", "Description")
	fs.StringVar(&form.Amount, "amount", "", "Amount, e.g. 12.50")
	fs.StringVar(&form.Category, "category", "", "One of "+categoryCodes())
	fs.StringVar(&form.Date, "date", a.now().Format(core.DateLayout), "Date, YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return err
	}
	page, err := a.page(ctx)
	if err != nil {
		return err
	}

	err = form.Submit(func(in core.ExpenseInput) error {
		return page.Create(ctx, in)
	})
	if expenses.Saved(err) {
		fmt.Fprintln(a.out, "Expense added")
		a.printNotice(page)
	}
	if err := a.formResult(page, &form, err); err != nil {
		return err
	}
	return a.printList(page.List())
}

func (a *app) edit(ctx context.Context, args []string) error {
	fs := a.flags("edit")
	description := fs.String("description", "", "New description")
	amount := fs.String("amount", "", "New amount")
	category := fs.String("category", "", "New category")
	date := fs.String("date", "", "New date, YYYY-MM-DD")
	id, err := parseID(fs, args)
	if err != nil {
		return err
	}
	page, err := a.page(ctx)
	if err != nil {
		return err
	}
	if err := page.Fetch(ctx, core.DateRange{}); err != nil {
		return pageError(page)
	}
	if !page.SelectEdit(id) {
		return fmt.Errorf("expense %d not found", id)
	}

	form := page.Form()
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "description":
			form.Description = *description
		case "amount":
			form.Amount = *amount
		case "category":
			form.Category = *category
		case "date":
			form.Date = *date
		}
	})
	err = form.Submit(func(in core.ExpenseInput) error {
		return page.Update(ctx, id, in)
	})
	if expenses.Saved(err) {
		fmt.Fprintf(a.out, "Expense %d updated\n", id)
		a.printNotice(page)
	}
	if err := a.formResult(page, &form, err); err != nil {
		return err
	}
	return a.printList(page.List())
}

func (a *app) delete(ctx context.Context, args []string) error {
	id, err := parseID(a.flags("delete"), args)
	if err != nil {
		return err
	}
	page, err := a.page(ctx)
	if err != nil {
		return err
	}
	err = page.Delete(ctx, id)
	if expenses.Saved(err) {
		fmt.Fprintf(a.out, "Expense %d deleted\n", id)
	}
	if err != nil {
		return mutationError(page, err)
	}
	return a.printList(page.List())
}

func (a *app) export(ctx context.Context, args []string) error {
	fs := a.flags("export")
	from := fs.String("from", "", "Start date, YYYY-MM-DD")
	to := fs.String("to", "", "End date, YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return err
	}
	r, err := a.dateRange(*from, *to)
	if err != nil {
		return err
	}
	if _, ok := a.store.Load(ctx); !ok {
		return errNotLoggedIn
	}
	exporter, err := a.exporter(ctx)
	if err != nil {
		return fmt.Errorf("export is not configured: %w", err)
	}
	page := expenses.NewPage(a.client, a.store,
		expenses.WithLogger(a.logger),
		expenses.WithExporter(exporter))
	page.SetFilter(r)
	if _, err := page.Export(ctx); err != nil {
		return pageError(page)
	}
	fmt.Fprintln(a.out, page.Notice)
	return nil
}

// page returns a Page bound to the stored session.
func (a *app) page(ctx context.Context) (*expenses.Page, error) {
	if _, ok := a.store.Load(ctx); !ok {
		return nil, errNotLoggedIn
	}
	return expenses.NewPage(a.client, a.store, expenses.WithLogger(a.logger)), nil
}

func (a *app) dateRange(from, to string) (core.DateRange, error) {
	r, errs := expenses.ParseFilter(from, to)
	if len(errs) == 0 {
		return r, nil
	}
	for _, f := range []string{expenses.FieldStartDate, expenses.FieldEndDate} {
		if msg, ok := errs[f]; ok {
			fmt.Fprintf(a.errOut, "%s: %s\n", f, msg)
		}
	}
	return core.DateRange{}, errors.New("invalid date range")
}

// formResult turns a Submit outcome into the command error, printing field
// messages for invalid input.
func (a *app) formResult(page *expenses.Page, form *expenses.Form, err error) error {
	if errors.Is(err, expenses.ErrInvalidForm) {
		for _, f := range []string{expenses.FieldDescription, expenses.FieldAmount, expenses.FieldCategory, expenses.FieldDate} {
			if msg, ok := form.Errors[f]; ok {
				fmt.Fprintf(a.errOut, "%s: %s\n", f, msg)
			}
		}
		return errors.New("invalid expense")
	}
	if err != nil {
		return mutationError(page, err)
	}
	return nil
}

// mutationError separates a rejected change from a reload that failed after
// the change was saved.
func mutationError(page *expenses.Page, err error) error {
	if errors.Is(err, expenses.ErrReload) && !page.Unauthorized() {
		return fmt.Errorf("saved, but the list could not be reloaded: %s", page.Error)
	}
	return pageError(page)
}

func (a *app) printNotice(page *expenses.Page) {
	if page.Notice != "" {
		fmt.Fprintln(a.out, page.Notice)
	}
}

func pageError(page *expenses.Page) error {
	if page.Unauthorized() {
		return errSessionExpired
	}
	return errors.New(page.Error)
}

func (a *app) printList(l expenses.List) error {
	if l.Empty() {
		fmt.Fprintln(a.out, l.EmptyMessage())
	} else {
		tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tDATE\tCATEGORY\tAMOUNT\tDESCRIPTION")
		for _, r := range l.Rows {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.Date, r.CategoryLabel, r.Amount, r.Description)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	fmt.Fprintf(a.out, "Total: %s\n", l.Total)
	for _, c := range l.Breakdown {
		fmt.Fprintf(a.out, "  %s: %s\n", c.Label, c.Amount)
	}
	return nil
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

// parseID accepts the id before or after the flags.
func parseID(fs *flag.FlagSet, args []string) (int64, error) {
	var raw string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		raw, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	if raw == "" {
		raw = fs.Arg(0)
	}
	if raw == "" {
		return 0, fmt.Errorf("usage: expensectl %s <id>", fs.Name())
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid expense id %q", raw)
	}
	return id, nil
}

func categoryCodes() string {
	codes := make([]string, len(core.Categories))
	for i, c := range core.Categories {
		codes[i] = c.String()
	}
	return strings.Join(codes, ", ")
}
