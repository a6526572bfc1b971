package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dvloznov/ledgr/internal/domain"
	"github.com/dvloznov/ledgr/internal/jobs"
	"github.com/dvloznov/ledgr/internal/parser"
	"github.com/dvloznov/ledgr/internal/syncer"
	"github.com/dvloznov/ledgr/internal/warehouse"
	"github.com/dvloznov/ledgr/internal/worker"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.FgHiBlack)
)

func runImport(log zerolog.Logger) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	accountID := fs.Int64("account", 0, "Account ID to import into")
	fs.Parse(os.Args[2:])

	if *accountID == 0 || fs.NArg() == 0 {
		log.Fatal().Msg("Usage: cli import -account ID FILE...")
	}

	files := make([]parser.File, 0, fs.NArg())
	for _, path := range fs.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatal().Err(err).Str("file", path).Msg("Failed to read statement")
		}
		files = append(files, parser.File{Name: filepath.Base(path), Data: data})
	}

	s := openSession(log)
	defer s.close()

	job := call[*jobs.ImportJob](s, worker.ImportFilesRequest{AccountID: *accountID, Files: files})
	if job.Imported() > 0 {
		s.save()
	}
	printImportJob(job)
}

func printImportJob(job *jobs.ImportJob) {
	for _, r := range job.Results {
		if r.Success {
			okColor.Printf("  OK    ")
			fmt.Printf("%s: %d new transactions\n", r.File, r.NumTransactions)
			continue
		}
		failColor.Printf("  FAIL  ")
		msg := "unknown error"
		if r.Error != nil {
			msg = fmt.Sprintf("%s (%s)", r.Error.Message, r.Error.Kind)
		}
		fmt.Printf("%s: %s\n", r.File, msg)
	}
	dimColor.Printf("Job %s %s, %d transactions imported\n", job.JobID, job.Status, job.Imported())
}

func runTransactions(log zerolog.Logger) {
	fs := flag.NewFlagSet("transactions", flag.ExitOnError)
	search := fs.String("search", "", "Case-insensitive description search")
	categories := fs.String("category", "", "Comma-separated category values")
	direction := fs.String("type", "", "Direction: debit or credit")
	from := fs.String("from", "", "Start date (YYYY-MM-DD)")
	to := fs.String("to", "", "End date (YYYY-MM-DD)")
	limit := fs.Int("limit", 50, "Page size")
	offset := fs.Int("offset", 0, "Page offset")
	fs.Parse(os.Args[2:])

	filters, err := buildFilters(*search, *categories, *direction, *from, *to)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid filters")
	}

	s := openSession(log)
	defer s.close()

	page := call[worker.TransactionsPage](s, worker.GetTransactionsRequest{Filters: filters, Offset: *offset, Limit: *limit})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tTYPE\tAMOUNT\tCATEGORY\tDESCRIPTION")
	for _, t := range page.Transactions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\t%s\n",
			t.ID, t.Date.Format(dateLayout), t.Direction, t.Amount, t.CategoryOrUntagged(), t.Description)
	}
	w.Flush()

	cf := page.CashFlow
	fmt.Printf("\n%d transactions, in %.2f (%d), out %.2f (%d)\n",
		cf.Count, cf.Incoming, cf.IncomingCount, cf.Outgoing, cf.OutgoingCount)
}

// buildFilters turns the flag values into a filter set. Dates are taken as
// whole days in UTC.
func buildFilters(search, categories, direction, from, to string) (domain.Filters, error) {
	f := domain.Filters{Search: search, Direction: domain.Direction(direction)}
	if f.Direction != "" && !f.Direction.Valid() {
		return f, fmt.Errorf("unknown type %q", direction)
	}
	for _, c := range strings.Split(categories, ",") {
		if c = strings.TrimSpace(c); c != "" {
			f.Categories = append(f.Categories, c)
		}
	}
	if from == "" && to == "" {
		return f, nil
	}

	r := &domain.DateRange{Start: time.Time{}, End: time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)}
	if from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			return f, fmt.Errorf("parse -from: %w", err)
		}
		r.Start = t
	}
	if to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			return f, fmt.Errorf("parse -to: %w", err)
		}
		r.End = t
	}
	f.DateRange = r
	return f, nil
}

func runStats(log zerolog.Logger) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	recompute := fs.Bool("recompute", false, "Recompute instead of reading the cached stats")
	fs.Parse(os.Args[2:])

	s := openSession(log)
	defer s.close()

	var stats domain.CashFlowStats
	if *recompute {
		stats = call[domain.CashFlowStats](s, worker.ComputeStatsRequest{})
	} else {
		stats = call[domain.CashFlowStats](s, worker.GetStatsRequest{})
	}

	printGrouped("MONTH", stats.MonthlyCashFlow)
	fmt.Println()
	printGrouped("CATEGORY", stats.CategoryCashFlow)
}

func printGrouped(title string, groups []domain.GroupedCashFlow) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "%s\tIN\tOUT\tNET\tCOUNT\t\n", title)
	for _, g := range groups {
		cf := g.CashFlow
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f\t%d\t\n", g.GroupKey, cf.Incoming, cf.Outgoing, cf.Incoming-cf.Outgoing, cf.Count)
	}
	w.Flush()
}

func runUntagged(log zerolog.Logger) {
	fs := flag.NewFlagSet("untagged", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Maximum number of groups")
	fs.Parse(os.Args[2:])

	s := openSession(log)
	defer s.close()

	groups := call[[]domain.TransactionGroup](s, worker.GetUntaggedGroupsRequest{Limit: *limit})
	if len(groups) == 0 {
		okColor.Println("Nothing left to tag.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COUNT\tTOTAL\tDESCRIPTION\tIDS")
	for _, g := range groups {
		ids := make([]string, 0, len(g.Transactions))
		for _, t := range g.Transactions {
			ids = append(ids, t.ID)
		}
		fmt.Fprintf(w, "%d\t%.2f\t%s\t%s\n", g.Count, g.TotalValue, g.Display, strings.Join(ids, ","))
	}
	w.Flush()
}

func runTag(log zerolog.Logger) {
	fs := flag.NewFlagSet("tag", flag.ExitOnError)
	id := fs.String("id", "", "Transaction ID")
	ids := fs.String("ids", "", "Comma-separated transaction IDs")
	search := fs.String("search", "", "Tag every transaction whose description matches")
	category := fs.String("category", "", "Category value")
	fs.Parse(os.Args[2:])

	if *category == "" || (*id == "" && *ids == "" && *search == "") {
		log.Fatal().Msg("Usage: cli tag -category VALUE (-id ID | -ids ID,ID | -search TEXT)")
	}

	s := openSession(log)
	defer s.close()

	if *id != "" {
		call[string](s, worker.TagTransactionRequest{ID: *id, Category: *category})
		s.save()
		fmt.Printf("Tagged %s as %s\n", *id, *category)
		return
	}

	req := worker.TagTransactionsRequest{Category: *category}
	if *ids != "" {
		req.IDs = strings.Split(*ids, ",")
	} else {
		req.Filters = domain.Filters{Search: *search}
	}
	tagged := call[[]string](s, req)
	if len(tagged) > 0 {
		s.save()
	}
	fmt.Printf("Tagged %d transactions as %s\n", len(tagged), *category)
}

func runCategories(log zerolog.Logger) {
	fs := flag.NewFlagSet("categories", flag.ExitOnError)
	add := fs.String("add", "", "Value of a category to add")
	name := fs.String("name", "", "Display name of the added category")
	parent := fs.Int64("parent", 0, "Parent category ID of the added category")
	exclude := fs.Bool("exclude", false, "Exclude the added category from cash flow")
	del := fs.Int64("delete", 0, "ID of a category to delete")
	fs.Parse(os.Args[2:])

	s := openSession(log)
	defer s.close()

	switch {
	case *add != "":
		c := domain.Category{Value: *add, Name: *name, IsEnabled: true, ExcludeFromCashFlow: *exclude}
		if c.Name == "" {
			c.Name = *add
		}
		if *parent != 0 {
			c.ParentID = parent
		}
		created := call[domain.Category](s, worker.AddCategoryRequest{Category: c})
		s.save()
		fmt.Printf("Added category %d (%s)\n", created.ID, created.Value)

	case *del != 0:
		retagged := call[[]string](s, worker.DeleteCategoryRequest{ID: *del})
		s.save()
		fmt.Printf("Deleted category %d, %d transactions moved to %s\n", *del, len(retagged), domain.Untagged)

	default:
		cats := call[[]domain.Category](s, worker.GetAllCategoriesRequest{})
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tVALUE\tNAME\tPARENT\tENABLED\tEXCLUDED")
		for _, c := range cats {
			parentID := "-"
			if c.ParentID != nil {
				parentID = fmt.Sprint(*c.ParentID)
			}
			fmt.Fprintf(w, "%d\t%s\t%s %s\t%s\t%t\t%t\n", c.ID, c.Value, c.Emoji, c.Name, parentID, c.IsEnabled, c.ExcludeFromCashFlow)
		}
		w.Flush()
	}
}

func runAccounts(log zerolog.Logger) {
	fs := flag.NewFlagSet("accounts", flag.ExitOnError)
	bank := fs.String("bank", "", "Institution of a new account: hdfc, icici or sbi")
	kind := fs.String("type", string(domain.BankAccount), "Kind of a new account: bank or credit_card")
	name := fs.String("name", "", "Display name of a new account")
	fs.Parse(os.Args[2:])

	s := openSession(log)
	defer s.close()

	if *bank != "" {
		account := call[domain.Account](s, worker.CreateAccountRequest{Account: domain.Account{
			Name:        *name,
			Institution: domain.Institution(*bank),
			Kind:        domain.AccountKind(*kind),
		}})
		s.save()
		fmt.Printf("Created account %d (%s %s)\n", account.ID, account.Institution, account.Kind)
		return
	}

	accounts := call[[]domain.Account](s, worker.GetAllAccountsRequest{})
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tBANK\tTYPE\tNAME")
	for _, a := range accounts {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", a.ID, a.Institution, a.Kind, a.Name)
	}
	w.Flush()
}

func runExport(log zerolog.Logger) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	out := fs.String("out", "", "Output file (defaults to stdout)")
	fs.Parse(os.Args[2:])

	s := openSession(log)
	defer s.close()

	snap := call[domain.Snapshot](s, worker.ExportSnapshotRequest{})
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode snapshot")
	}

	if *out == "" {
		os.Stdout.Write(append(data, '\n'))
		return
	}
	if err := os.WriteFile(*out, data, 0o600); err != nil {
		log.Fatal().Err(err).Str("file", *out).Msg("Failed to write snapshot")
	}
	fmt.Printf("Exported version %d to %s\n", snap.Version, *out)
}

func runSync(log zerolog.Logger) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	fs.Parse(os.Args[2:])

	s := openSession(log)
	defer s.close()

	client, err := s.app.SyncClient()
	if err != nil {
		log.Fatal().Err(err).Msg("Sync is not configured")
	}

	res, err := client.Sync(s.ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}
	// Every outcome records the sync time, and a pull replaces the ledger.
	s.save()
	if res.Outcome == syncer.OutcomePulled {
		okColor.Printf("Pulled ")
	}
	fmt.Printf("Sync %s at version %d\n", res.Outcome, res.Version)
}

func runMirror(log zerolog.Logger) {
	fs := flag.NewFlagSet("mirror", flag.ExitOnError)
	project := fs.String("project", "", "BigQuery project (defaults to BQ_PROJECT)")
	dataset := fs.String("dataset", "", "BigQuery dataset (defaults to BQ_DATASET)")
	fs.Parse(os.Args[2:])

	s := openSession(log)
	defer s.close()

	cfg := s.app.Config
	if *project == "" {
		*project = cfg.BQProject
	}
	if *dataset == "" {
		*dataset = cfg.BQDataset
	}
	if *project == "" || *dataset == "" || cfg.UserID == "" {
		log.Fatal().Msg("Mirror needs a project, a dataset and LEDGR_USER_ID")
	}

	snap := call[domain.Snapshot](s, worker.ExportSnapshotRequest{})
	stats := call[domain.CashFlowStats](s, worker.GetStatsRequest{})

	m, err := warehouse.New(s.ctx, *project, *dataset, cfg.UserID, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer m.Close()

	if err := mirror(s.ctx, m, snap, stats); err != nil {
		log.Fatal().Err(err).Msg("Mirror failed")
	}
}

func mirror(ctx context.Context, m *warehouse.Mirror, snap domain.Snapshot, stats domain.CashFlowStats) error {
	if err := m.EnsureTables(ctx); err != nil {
		return err
	}
	res, err := m.Mirror(ctx, snap, stats)
	if err != nil {
		return err
	}
	fmt.Printf("Mirrored version %d: %d transactions, %d months\n", res.Version, res.Transactions, res.Months)
	return nil
}
