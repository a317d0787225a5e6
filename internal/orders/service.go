package orders

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/labkeeper/internal/audit"
	"github.com/dmitrijs2005/labkeeper/internal/common"
	"github.com/dmitrijs2005/labkeeper/internal/filex"
	"github.com/dmitrijs2005/labkeeper/internal/logging"
	"github.com/dmitrijs2005/labkeeper/internal/metrics"
	"github.com/dmitrijs2005/labkeeper/internal/validation"
)

// Envelope encrypts and opens individual field values.
type Envelope interface {
	Encrypt(plaintext string) (string, error)
	Opener
}

// PriceList prices a selection of studies.
type PriceList interface {
	TotalCost(ctx context.Context, names []string) (float64, error)
}

type Options struct {
	// StrictLifecycle refuses to capture results on signed orders.
	StrictLifecycle bool
	CountryCode     string
	Prices          PriceList
}

// Service is the order store. Every mutation is a whole-table
// read-modify-write under mu; other processes writing the same file are
// not coordinated with.
type Service struct {
	repo   Repository
	cipher Envelope
	audit  audit.Recorder
	logger logging.Logger
	opts   Options
	now    func() time.Time
	mu     sync.Mutex
}

func NewService(repo Repository, cipher Envelope, recorder audit.Recorder, logger logging.Logger, opts Options) *Service {
	if opts.CountryCode == "" {
		opts.CountryCode = "+52"
	}
	return &Service{
		repo:   repo,
		cipher: cipher,
		audit:  recorder,
		logger: logger,
		opts:   opts,
		now:    time.Now,
	}
}

// CreateOrder appends a pending order and returns its folio. An explicit
// folio already in the table is rejected with common.ErrorAlreadyExists; a
// clock-derived folio that collides gets a "-2", "-3"... suffix.
func (s *Service) CreateOrder(ctx context.Context, in NewOrder) (string, error) {
	if err := validation.Struct(in); err != nil {
		return "", err
	}

	cost := in.Cost
	if in.AutoCost {
		cost = 0
		if s.opts.Prices != nil {
			c, err := s.opts.Prices.TotalCost(ctx, in.StudyTypes)
			if err != nil {
				return "", fmt.Errorf("price studies: %w", err)
			}
			cost = c
		}
	}
	if math.IsNaN(cost) || math.IsInf(cost, 0) || cost < 0 {
		return "", fmt.Errorf("%w: cost %v", common.ErrorValidation, cost)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.repo.Load(ctx)
	if err != nil {
		return "", err
	}

	now := s.now()
	folio, err := s.assignFolio(rows, strings.TrimSpace(in.Folio), now)
	if err != nil {
		return "", err
	}

	scheduled := in.ScheduledAt
	if scheduled.IsZero() {
		scheduled = now
	}

	o := Order{
		Folio:        folio,
		RegisteredAt: now.Format(RegisteredAtLayout),
		ScheduledAt:  scheduled.Format(DateLayout),
		Cost:         cost,
		Age:          in.Age,
		Gender:       strings.TrimSpace(in.Gender),
		StudyType:    JoinList(in.StudyTypes),
		Status:       StatusPending,
	}

	fields := []struct {
		dst   *string
		value string
	}{
		{&o.NameEnc, strings.TrimSpace(in.PatientName)},
		{&o.PhoneEnc, NormalizePhone(in.Phone, s.opts.CountryCode)},
		{&o.AddressEnc, strings.TrimSpace(in.Address)},
		{&o.EmailsEnc, JoinList(in.Emails)},
		{&o.NotesEnc, strings.TrimSpace(in.Notes)},
		{&o.ResultsEnc, ""},
	}
	for _, f := range fields {
		if *f.dst, err = s.cipher.Encrypt(f.value); err != nil {
			return "", fmt.Errorf("encrypt order field: %w", err)
		}
	}

	if err := s.repo.Save(ctx, append(rows, o)); err != nil {
		return "", err
	}

	metrics.OrdersCreatedTotal.Inc()
	s.logger.Info(ctx, "order created", "folio", folio, "studies", len(in.StudyTypes))
	s.record(ctx, audit.ActionOrderCreated, folio, string(StatusPending))
	return folio, nil
}

func (s *Service) assignFolio(rows []Order, explicit string, now time.Time) (string, error) {
	taken := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		taken[r.Folio] = struct{}{}
	}

	if explicit != "" {
		if _, ok := taken[explicit]; ok {
			return "", fmt.Errorf("%w: folio %s", common.ErrorAlreadyExists, explicit)
		}
		return explicit, nil
	}

	base := AutoFolio(now)
	folio := base
	for n := 2; ; n++ {
		if _, ok := taken[folio]; !ok {
			return folio, nil
		}
		folio = base + "-" + strconv.Itoa(n)
	}
}

// CaptureResults stores results for folio and moves it to captured, or to
// signed when release is set. Every row carrying the folio is updated.
func (s *Service) CaptureResults(ctx context.Context, folio, results string, release bool) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.repo.Load(ctx)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", common.ErrEmptyStore
	}

	var matched []int
	for i := range rows {
		if rows[i].Folio == folio {
			matched = append(matched, i)
		}
	}
	if len(matched) == 0 {
		return "", fmt.Errorf("%w: folio %s", common.ErrorNotFound, folio)
	}

	var next Status
	for _, i := range matched {
		if next, err = rows[i].Status.Advance(release, s.opts.StrictLifecycle); err != nil {
			return "", err
		}
	}

	enc, err := s.cipher.Encrypt(results)
	if err != nil {
		return "", fmt.Errorf("encrypt results: %w", err)
	}
	for _, i := range matched {
		rows[i].ResultsEnc = enc
		rows[i].Status = next
	}

	if err := s.repo.Save(ctx, rows); err != nil {
		return "", err
	}

	metrics.ResultsCapturedTotal.WithLabelValues(string(next)).Inc()
	s.logger.Info(ctx, "results captured", "folio", folio, "status", next)
	s.record(ctx, audit.ActionResultsCapture, folio, string(next))
	return next, nil
}

// ListFolios returns folios in table order, restricted to statuses when
// any are given.
func (s *Service) ListFolios(ctx context.Context, statuses ...Status) ([]string, error) {
	rows, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	want := make(map[Status]struct{}, len(statuses))
	for _, st := range statuses {
		want[st] = struct{}{}
	}

	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if len(want) > 0 {
			if _, ok := want[r.Status]; !ok {
				continue
			}
		}
		out = append(out, r.Folio)
	}
	return out, nil
}

// GetSummary returns the first order with folio, decrypted.
func (s *Service) GetSummary(ctx context.Context, folio string) (*Summary, error) {
	rows, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	for _, r := range rows {
		if r.Folio != folio {
			continue
		}
		view := s.decrypt(ctx, []Order{r})[0]
		return &Summary{
			Folio:        view.Folio,
			RegisteredAt: view.RegisteredAt,
			ScheduledAt:  view.ScheduledAt,
			Status:       view.Status,
			StudyType:    view.StudyType,
			Name:         view.Name,
			Phone:        view.Phone,
			Address:      view.Address,
			Emails:       view.Emails,
			Notes:        view.Notes,
			Results:      view.Results,
		}, nil
	}
	return nil, fmt.Errorf("%w: folio %s", common.ErrorNotFound, folio)
}

// View returns the decrypted view of the whole table.
func (s *Service) View(ctx context.Context) ([]ViewRow, error) {
	rows, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.decrypt(ctx, rows), nil
}

// Search returns the decrypted rows matching query.
func (s *Service) Search(ctx context.Context, query string) ([]ViewRow, error) {
	view, err := s.View(ctx)
	if err != nil {
		return nil, err
	}
	return Search(view, query), nil
}

// Export writes the rows matching query as CSV to w and returns how many
// rows were written.
func (s *Service) Export(ctx context.Context, w io.Writer, query string) (int, error) {
	view, err := s.Search(ctx, query)
	if err != nil {
		return 0, err
	}
	if err := ExportCSV(w, view); err != nil {
		return 0, fmt.Errorf("export orders: %w", err)
	}

	s.record(ctx, audit.ActionOrdersExported, "", strconv.Itoa(len(view)))
	return len(view), nil
}

// ExportFile exports the rows matching query into a new file in dir.
func (s *Service) ExportFile(ctx context.Context, dir, query string) (string, int, error) {
	dir, err := filex.EnsureDir(dir)
	if err != nil {
		return "", 0, fmt.Errorf("export directory: %w", err)
	}

	var buf bytes.Buffer
	n, err := s.Export(ctx, &buf, query)
	if err != nil {
		return "", 0, err
	}

	path := filepath.Join(dir, "solicitudes_"+s.now().Format(FolioLayout)+".csv")
	if err := filex.WriteFileAtomic(path, buf.Bytes(), 0o600); err != nil {
		return "", 0, fmt.Errorf("write export: %w", err)
	}
	s.logger.Info(ctx, "orders exported", "path", path, "rows", n)
	return path, n, nil
}

// Report returns the summary of folio with its results parsed for a
// renderer. Results that are not JSON leave Report.Results nil.
func (s *Service) Report(ctx context.Context, folio string) (*Report, error) {
	sum, err := s.GetSummary(ctx, folio)
	if err != nil {
		return nil, err
	}

	rep := &Report{Summary: *sum}
	if results, err := ParseResults(sum.Results); err == nil {
		rep.Results = results
	} else {
		s.logger.Debug(ctx, "results are free text", "folio", folio)
	}
	return rep, nil
}

func (s *Service) load(ctx context.Context) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.Load(ctx)
}

func (s *Service) decrypt(ctx context.Context, rows []Order) []ViewRow {
	view, failures := DecryptedView(rows, s.cipher)
	for _, f := range failures {
		metrics.DecryptFailuresTotal.WithLabelValues(f.Column).Inc()
		s.logger.Warn(ctx, "field could not be decrypted", "folio", f.Folio, "column", f.Column, "error", f.Err)
	}
	return view
}

func (s *Service) record(ctx context.Context, action, subject, detail string) {
	if err := s.audit.Record(ctx, action, subject, detail); err != nil {
		s.logger.Warn(ctx, "audit event dropped", "action", action, "error", err)
	}
}
