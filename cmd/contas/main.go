package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"contas/internal/cli"
	"contas/internal/core"
	applog "contas/internal/log"
	"contas/internal/services"
)

const usage = `Usage: contas <command> [flags]

Bills:
  add         Add a bill (one-off, installment or recurring)
  edit        Edit a bill
  delete      Delete a bill
  list        List all bills
  report      Monthly report
  overview    Dashboard overview
  sweep       Advance due installment and recurring bills

Payment instruments:
  card-add          Add a credit card
  account-add       Add a bank account
  instruments       List payment instruments
  instrument-delete Delete an unused payment instrument

Categories:
  category-add     Add a category
  categories       List categories
  category-delete  Delete a category
`

type app struct {
	bills       *services.BillService
	instruments *services.InstrumentService
	categories  *services.CategoryService
	reports     *services.ReportService
	rollover    *services.RolloverService
	userID      int64
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentCLI)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient := cli.InitAMQP(logger, cfg)
	defer amqpClient.Close()

	ctx := context.Background()
	userID, err := repo.EnsureUser(ctx, cfg.DefaultUsername)
	if err != nil {
		logger.Error("Failed to resolve user", applog.FieldError, err)
		os.Exit(1)
	}

	reports := services.NewReportService(repo)
	a := &app{
		bills:       services.NewBillService(repo, repo, amqpClient, reports),
		instruments: services.NewInstrumentService(repo, repo),
		categories:  services.NewCategoryService(repo),
		reports:     reports,
		rollover:    services.NewRolloverService(repo, repo, amqpClient, reports),
		userID:      userID,
	}

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "add":
		return a.addBill(ctx, args)
	case "edit":
		return a.editBill(ctx, args)
	case "delete":
		return a.deleteBill(ctx, args)
	case "list":
		return a.listBills(ctx)
	case "report":
		return a.monthlyReport(ctx, args)
	case "overview":
		return a.overview(ctx)
	case "sweep":
		return a.sweep(ctx)
	case "card-add":
		return a.addCard(ctx, args)
	case "account-add":
		return a.addAccount(ctx, args)
	case "instruments":
		return a.listInstruments(ctx)
	case "instrument-delete":
		return a.deleteInstrument(ctx, args)
	case "category-add":
		return a.addCategory(ctx, args)
	case "categories":
		return a.listCategories(ctx)
	case "category-delete":
		return a.deleteCategory(ctx, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func billFlags(fs *flag.FlagSet) (name, amount, total, due *string, category, installment, installments, instrument *int64, recurring *bool) {
	name = fs.String("name", "", "bill name")
	amount = fs.String("amount", "", "amount per occurrence, e.g. 1.234,56")
	total = fs.String("total", "", "total purchase amount for installment bills")
	due = fs.String("due", "", "due date, YYYY-MM-DD")
	category = fs.Int64("category", 0, "category ID (0 for none)")
	installment = fs.Int64("installment", 0, "current installment index (0 to keep)")
	installments = fs.Int64("installments", 0, "number of installments (0 for none)")
	instrument = fs.Int64("instrument", 0, "payment instrument ID (0 for none)")
	recurring = fs.Bool("recurring", false, "bill repeats monthly")
	return
}

func (a *app) billInput(name, amount, total, due string, category, installment, installments, instrument int64, recurring bool) (services.BillInput, error) {
	dueDate, err := core.ParseDate(due)
	if err != nil {
		return services.BillInput{}, fmt.Errorf("due date: %w", err)
	}
	in := services.BillInput{
		Name:        name,
		Amount:      amount,
		TotalAmount: total,
		DueDate:     dueDate,
		Recurring:   recurring,
	}
	if category != 0 {
		in.CategoryID = &category
	}
	if installment != 0 {
		in.Installment = &installment
	}
	if installments != 0 {
		in.Installments = &installments
	}
	if instrument != 0 {
		in.InstrumentID = &instrument
	}
	return in, nil
}

func (a *app) addBill(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	name, amount, total, due, category, installment, installments, instrument, recurring := billFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	in, err := a.billInput(*name, *amount, *total, *due, *category, *installment, *installments, *instrument, *recurring)
	if err != nil {
		return err
	}
	bill, err := a.bills.CreateBill(ctx, a.userID, in)
	if err != nil {
		return err
	}
	fmt.Printf("Added bill %d: %s %s due %s\n",
		bill.ID, bill.Name, core.FormatAmount(&bill.Amount), bill.DueDate.ISO())
	return nil
}

func (a *app) editBill(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	id := fs.Int64("id", 0, "bill ID")
	name, amount, total, due, category, installment, installments, instrument, recurring := billFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == 0 {
		return fmt.Errorf("missing -id")
	}

	in, err := a.billInput(*name, *amount, *total, *due, *category, *installment, *installments, *instrument, *recurring)
	if err != nil {
		return err
	}
	bill, err := a.bills.EditBill(ctx, a.userID, *id, in)
	if err != nil {
		return err
	}
	fmt.Printf("Updated bill %d: %s %s due %s\n",
		bill.ID, bill.Name, core.FormatAmount(&bill.Amount), bill.DueDate.ISO())
	return nil
}

func (a *app) deleteBill(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.Int64("id", 0, "bill ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == 0 {
		return fmt.Errorf("missing -id")
	}
	if err := a.bills.DeleteBill(ctx, a.userID, *id); err != nil {
		return err
	}
	fmt.Printf("Deleted bill %d\n", *id)
	return nil
}

func (a *app) listBills(ctx context.Context) error {
	bills, err := a.bills.ListBills(ctx, a.userID)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tAMOUNT\tDUE\tINSTALLMENT\tRECURRING\tCATEGORY")
	for _, b := range bills {
		recurring := ""
		if b.Recurring {
			recurring = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			b.ID, b.Name, core.FormatAmount(&b.Amount), b.DueDate.ISO(),
			b.InstallmentDisplay(), recurring, b.CategoryName)
	}
	return w.Flush()
}

func (a *app) monthlyReport(ctx context.Context, args []string) error {
	now := time.Now()
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	year := fs.Int("year", now.Year(), "report year")
	month := fs.Int("month", int(now.Month()), "report month (1-12)")
	var categories stringList
	fs.Var(&categories, "category", "category filter, repeatable")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *month < 1 || *month > 12 {
		return fmt.Errorf("invalid month %d", *month)
	}

	report, err := a.reports.Monthly(ctx, a.userID, *year, time.Month(*month), categories)
	if err != nil {
		return err
	}

	fmt.Printf("Report %d-%02d: %s across %d bills\n",
		report.Year, int(report.Month), core.FormatAmount(&report.Total), len(report.Bills))
	for _, ct := range report.ByCategory {
		fmt.Printf("  %-20s %s\n", ct.Name, core.FormatAmount(&ct.Total))
	}
	return nil
}

func (a *app) overview(ctx context.Context) error {
	// The dashboard advances past-due bills before reporting, so the
	// numbers shown always reflect the current cycle.
	if _, err := a.rollover.RunSweep(ctx, a.userID, core.DateOf(time.Now())); err != nil {
		return err
	}

	overview, err := a.reports.Overview(ctx, a.userID)
	if err != nil {
		return err
	}
	fmt.Printf("Total committed: %s\n", core.FormatAmount(&overview.Total))
	fmt.Println("By category:")
	for _, ct := range overview.ByCategory {
		fmt.Printf("  %-20s %s\n", ct.Name, core.FormatAmount(&ct.Total))
	}
	fmt.Println("By due date:")
	for _, dt := range overview.ByDueDate {
		fmt.Printf("  %s  %s\n", dt.DueDate.ISO(), core.FormatAmount(&dt.Total))
	}
	return nil
}

func (a *app) sweep(ctx context.Context) error {
	result, err := a.rollover.RunSweep(ctx, a.userID, core.DateOf(time.Now()))
	if err != nil {
		return err
	}
	fmt.Printf("Sweep done: %d advanced, %d skipped\n", result.Advanced, result.Skipped)
	return nil
}

func (a *app) addCard(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("card-add", flag.ExitOnError)
	name := fs.String("name", "", "card name")
	limit := fs.String("limit", "", "credit limit, e.g. 10.000,00")
	if err := fs.Parse(args); err != nil {
		return err
	}
	card, err := a.instruments.CreateCard(ctx, a.userID, *name, *limit)
	if err != nil {
		return err
	}
	fmt.Printf("Added card %d: %s limit %s\n",
		card.ID, card.Name, core.FormatAmount(&card.CreditLimit))
	return nil
}

func (a *app) addAccount(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("account-add", flag.ExitOnError)
	name := fs.String("name", "", "account name")
	balance := fs.String("balance", "", "opening balance, e.g. 2.500,00")
	if err := fs.Parse(args); err != nil {
		return err
	}
	acct, err := a.instruments.CreateBankAccount(ctx, a.userID, *name, *balance)
	if err != nil {
		return err
	}
	fmt.Printf("Added account %d: %s balance %s\n",
		acct.ID, acct.Name, core.FormatAmount(&acct.Balance))
	return nil
}

func (a *app) listInstruments(ctx context.Context) error {
	instruments, err := a.instruments.ListInstruments(ctx, a.userID)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tKIND\tLIMIT\tAVAILABLE\tBALANCE")
	for _, inst := range instruments {
		switch inst.Kind {
		case core.KindCard:
			fmt.Fprintf(w, "%d\t%s\tcard\t%s\t%s\t\n",
				inst.ID, inst.Name,
				core.FormatAmount(&inst.CreditLimit), core.FormatAmount(&inst.AvailableLimit))
		case core.KindBankAccount:
			fmt.Fprintf(w, "%d\t%s\tbank account\t\t\t%s\n",
				inst.ID, inst.Name, core.FormatAmount(&inst.Balance))
		}
	}
	return w.Flush()
}

func (a *app) deleteInstrument(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("instrument-delete", flag.ExitOnError)
	id := fs.Int64("id", 0, "instrument ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == 0 {
		return fmt.Errorf("missing -id")
	}
	if err := a.instruments.DeleteInstrument(ctx, a.userID, *id); err != nil {
		return err
	}
	fmt.Printf("Deleted instrument %d\n", *id)
	return nil
}

func (a *app) addCategory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("category-add", flag.ExitOnError)
	name := fs.String("name", "", "category name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cat, err := a.categories.CreateCategory(ctx, a.userID, *name)
	if err != nil {
		return err
	}
	fmt.Printf("Added category %d: %s\n", cat.ID, cat.Name)
	return nil
}

func (a *app) listCategories(ctx context.Context) error {
	categories, err := a.categories.ListCategories(ctx, a.userID)
	if err != nil {
		return err
	}
	for _, cat := range categories {
		fmt.Printf("%d\t%s\n", cat.ID, cat.Name)
	}
	return nil
}

func (a *app) deleteCategory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("category-delete", flag.ExitOnError)
	id := fs.Int64("id", 0, "category ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == 0 {
		return fmt.Errorf("missing -id")
	}
	if err := a.categories.DeleteCategory(ctx, a.userID, *id); err != nil {
		return err
	}
	fmt.Printf("Deleted category %d\n", *id)
	return nil
}

// stringList collects repeated flag values.
type stringList []string

func (s *stringList) String() string { return fmt.Sprint([]string(*s)) }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}
