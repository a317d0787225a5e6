package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/labkeeper/internal/audit"
	"github.com/dmitrijs2005/labkeeper/internal/auth"
	"github.com/dmitrijs2005/labkeeper/internal/common"
	"github.com/dmitrijs2005/labkeeper/internal/orders"
)

const (
	historyLimit = 50
	recentLimit  = 20
)

func (a *App) NewOrder(ctx context.Context) error {
	ctx, _, err := a.session(ctx, auth.ActionCreateOrder)
	if err != nil {
		return err
	}

	in, err := a.readNewOrder(ctx)
	if err != nil {
		return err
	}

	folio, err := a.orders.CreateOrder(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Order %s registered\n", folio)
	return nil
}

func (a *App) readNewOrder(ctx context.Context) (orders.NewOrder, error) {
	var in orders.NewOrder
	var err error

	if in.Folio, err = a.ask("Folio (empty for automatic)"); err != nil {
		return in, err
	}

	date, err := a.ask("Scheduled date YYYY-MM-DD (empty for today)")
	if err != nil {
		return in, err
	}
	if date != "" {
		if in.ScheduledAt, err = time.ParseInLocation(orders.DateLayout, date, time.Local); err != nil {
			return in, fmt.Errorf("%w: scheduled date %q", common.ErrorValidation, date)
		}
	}

	if in.PatientName, err = a.ask("Patient name"); err != nil {
		return in, err
	}

	age, err := a.ask("Age (empty if unknown)")
	if err != nil {
		return in, err
	}
	if age != "" {
		n, err := strconv.Atoi(age)
		if err != nil {
			return in, fmt.Errorf("%w: age %q", common.ErrorValidation, age)
		}
		in.Age = &n
	}

	if in.Gender, err = a.ask("Gender"); err != nil {
		return in, err
	}
	if in.Phone, err = a.ask("Phone"); err != nil {
		return in, err
	}
	if in.Address, err = a.ask("Address"); err != nil {
		return in, err
	}

	emails, err := getMultiline(a.reader, "Emails, one per line or comma separated", a.out)
	if err != nil {
		return in, err
	}
	in.Emails = orders.ParseEmails(emails)

	if names, err := a.catalog.ListNames(ctx, true); err == nil && len(names) > 0 {
		fmt.Fprintln(a.out, "Available studies:", strings.Join(names, ", "))
	}
	studies, err := a.ask("Studies, separated by ';' or ','")
	if err != nil {
		return in, err
	}
	in.StudyTypes = orders.SplitList(strings.ReplaceAll(studies, ",", ";"))

	if in.Notes, err = a.ask("Notes"); err != nil {
		return in, err
	}

	cost, err := a.ask("Cost MXN (empty to price from the catalog)")
	if err != nil {
		return in, err
	}
	if cost == "" {
		in.AutoCost = true
	} else if in.Cost, err = strconv.ParseFloat(cost, 64); err != nil {
		return in, fmt.Errorf("%w: cost %q", common.ErrorValidation, cost)
	}

	return in, nil
}

// Capture stores results for a folio. release signs the order.
func (a *App) Capture(ctx context.Context, args []string, release bool) error {
	ctx, _, err := a.session(ctx, auth.ActionCaptureResults)
	if err != nil {
		return err
	}

	folio, err := a.argOrAsk(args, "Folio")
	if err != nil {
		return err
	}
	results, err := getMultiline(a.reader, "Results (JSON object or free text)", a.out)
	if err != nil {
		return err
	}

	status, err := a.orders.CaptureResults(ctx, folio, results, release)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Order %s is now %s\n", folio, status)
	return nil
}

func (a *App) Folios(ctx context.Context, args []string) error {
	ctx, _, err := a.session(ctx, auth.ActionViewRecords)
	if err != nil {
		return err
	}

	statuses := make([]orders.Status, 0, len(args))
	for _, arg := range args {
		st := orders.Status(strings.ToLower(arg))
		if !st.Valid() {
			return fmt.Errorf("%w: unknown status %q", common.ErrorValidation, arg)
		}
		statuses = append(statuses, st)
	}

	folios, err := a.orders.ListFolios(ctx, statuses...)
	if err != nil {
		return err
	}
	if len(folios) == 0 {
		fmt.Fprintln(a.out, "No orders")
		return nil
	}
	for _, f := range folios {
		fmt.Fprintln(a.out, f)
	}
	return nil
}

func (a *App) Show(ctx context.Context, args []string) error {
	ctx, _, err := a.session(ctx, auth.ActionViewRecords)
	if err != nil {
		return err
	}
	folio, err := a.argOrAsk(args, "Folio")
	if err != nil {
		return err
	}

	s, err := a.orders.GetSummary(ctx, folio)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Folio:\t%s\n", s.Folio)
	fmt.Fprintf(tw, "Registered:\t%s\n", s.RegisteredAt)
	fmt.Fprintf(tw, "Scheduled:\t%s\n", s.ScheduledAt)
	fmt.Fprintf(tw, "Status:\t%s\n", s.Status)
	fmt.Fprintf(tw, "Studies:\t%s\n", s.StudyType)
	fmt.Fprintf(tw, "Patient:\t%s\n", s.Name)
	fmt.Fprintf(tw, "Phone:\t%s\n", s.Phone)
	fmt.Fprintf(tw, "Address:\t%s\n", s.Address)
	fmt.Fprintf(tw, "Emails:\t%s\n", s.Emails)
	fmt.Fprintf(tw, "Notes:\t%s\n", s.Notes)
	fmt.Fprintf(tw, "Results:\t%s\n", s.Results)
	return tw.Flush()
}

func (a *App) Report(ctx context.Context, args []string) error {
	ctx, _, err := a.session(ctx, auth.ActionViewRecords)
	if err != nil {
		return err
	}
	folio, err := a.argOrAsk(args, "Folio")
	if err != nil {
		return err
	}

	rep, err := a.orders.Report(ctx, folio)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s  %s  %s  [%s]\n", rep.Summary.Folio, rep.Summary.Name, rep.Summary.StudyType, rep.Summary.Status)
	if rep.Results == nil {
		fmt.Fprintln(a.out, rep.Summary.Results)
		return nil
	}

	names := make([]string, 0, len(rep.Results))
	for name := range rep.Results {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Analyte\tValue\tUnit\tRange")
	for _, name := range names {
		r := rep.Results[name]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, r.Value, r.Unit, r.Range)
	}
	return tw.Flush()
}

func (a *App) Search(ctx context.Context, args []string) error {
	ctx, _, err := a.session(ctx, auth.ActionViewRecords)
	if err != nil {
		return err
	}

	rows, err := a.orders.Search(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Folio\tScheduled\tPatient\tStudies\tStatus")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Folio, r.ScheduledAt, r.Name, r.StudyType, r.Status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d order(s)\n", len(rows))
	return nil
}

func (a *App) Export(ctx context.Context, args []string) error {
	ctx, _, err := a.session(ctx, auth.ActionViewRecords)
	if err != nil {
		return err
	}

	path, n, err := a.orders.ExportFile(ctx, a.config.Path(a.config.ExportDir), strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Exported %d order(s) to %s\n", n, path)
	return nil
}

func (a *App) Studies(ctx context.Context) error {
	ctx, _, err := a.session(ctx, "")
	if err != nil {
		return err
	}

	names, err := a.catalog.ListNames(ctx, true)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(a.out, "Catalog is empty")
		return nil
	}
	for _, n := range names {
		fmt.Fprintln(a.out, n)
	}
	return nil
}

// History prints the audit trail of a folio or username, or the latest
// events when no subject is given.
func (a *App) History(ctx context.Context, args []string) error {
	ctx, _, err := a.session(ctx, auth.ActionViewRecords)
	if err != nil {
		return err
	}

	var events []audit.Event
	if len(args) > 0 {
		events, err = a.audit.History(ctx, args[0], historyLimit)
	} else {
		events, err = a.audit.Recent(ctx, recentLimit)
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "When\tActor\tAction\tSubject\tDetail")
	for _, e := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.At.Local().Format(time.DateTime), e.Actor, e.Action, e.Subject, e.Detail)
	}
	return tw.Flush()
}
