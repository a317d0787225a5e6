package orders

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/labkeeper/internal/filex"
	"github.com/dmitrijs2005/labkeeper/internal/logging"
	"github.com/dmitrijs2005/labkeeper/internal/metrics"
)

// Repository loads and stores the whole order table at once.
type Repository interface {
	Load(ctx context.Context) ([]Order, error)
	Save(ctx context.Context, orders []Order) error
}

// CSVRepository keeps the order table in a CSV file. Columns are matched by
// header name, so files missing a later column (e.g. Emails_enc) still load.
type CSVRepository struct {
	path   string
	logger logging.Logger
}

func NewCSVRepository(path string, logger logging.Logger) *CSVRepository {
	return &CSVRepository{path: path, logger: logger}
}

// Init creates the table with its header when the file does not exist.
func (r *CSVRepository) Init(ctx context.Context) error {
	_, err := os.Stat(r.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat order table: %w", err)
	}

	if err := r.Save(ctx, nil); err != nil {
		return err
	}
	r.logger.Info(ctx, "order table created", "path", r.path)
	return nil
}

func (r *CSVRepository) Load(ctx context.Context) ([]Order, error) {
	if err := r.Init(ctx); err != nil {
		return nil, err
	}

	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open order table: %w", err)
	}
	defer f.Close()

	orders, bad, err := decodeTable(f)
	if err != nil {
		return nil, fmt.Errorf("read order table %s: %w", r.path, err)
	}
	for _, b := range bad {
		r.logger.Warn(ctx, "unreadable cell loaded as empty", "path", r.path, "line", b.Line, "folio", b.Folio, "error", b.Err)
	}
	metrics.StoreRows.Set(float64(len(orders)))
	return orders, nil
}

func (r *CSVRepository) Save(_ context.Context, orders []Order) error {
	start := time.Now()

	var buf bytes.Buffer
	if err := encodeTable(&buf, orders); err != nil {
		return fmt.Errorf("encode order table: %w", err)
	}
	if err := filex.WriteFileAtomic(r.path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write order table: %w", err)
	}

	metrics.StoreRewriteDuration.Observe(time.Since(start).Seconds())
	metrics.StoreRows.Set(float64(len(orders)))
	return nil
}

func encodeTable(w io.Writer, orders []Order) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, o := range orders {
		if err := cw.Write(encodeRow(o)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func encodeRow(o Order) []string {
	return []string{
		o.Folio,
		o.RegisteredAt,
		o.ScheduledAt,
		formatCost(o.Cost),
		o.NameEnc,
		formatAge(o.Age),
		o.Gender,
		o.PhoneEnc,
		o.AddressEnc,
		o.EmailsEnc,
		o.StudyType,
		o.NotesEnc,
		o.ResultsEnc,
		string(o.Status),
	}
}

// CellError is a numeric cell that did not parse. The row is still loaded
// with the cell treated as empty.
type CellError struct {
	Line  int
	Folio string
	Err   error
}

func decodeTable(r io.Reader) ([]Order, []CellError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []Order{}, nil, nil
		}
		return nil, nil, err
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	orders := []Order{}
	var bad []CellError
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}

		o, errs := decodeRow(rec, idx)
		if len(errs) > 0 {
			line, _ := cr.FieldPos(0)
			for _, e := range errs {
				bad = append(bad, CellError{Line: line, Folio: o.Folio, Err: e})
			}
		}
		orders = append(orders, o)
	}
	return orders, bad, nil
}

// decodeRow never drops a row: cost and age cells that do not parse come
// back as 0 and nil, and are reported in errs.
func decodeRow(rec []string, idx map[string]int) (Order, []error) {
	var errs []error
	get := func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	cost, err := parseCost(get(ColCost))
	if err != nil {
		errs = append(errs, err)
	}
	age, err := parseAge(get(ColAge))
	if err != nil {
		errs = append(errs, err)
	}

	return Order{
		Folio:        get(ColFolio),
		RegisteredAt: get(ColRegisteredAt),
		ScheduledAt:  get(ColScheduledAt),
		Cost:         cost,
		NameEnc:      get(ColNameEnc),
		Age:          age,
		Gender:       get(ColGender),
		PhoneEnc:     get(ColPhoneEnc),
		AddressEnc:   get(ColAddressEnc),
		EmailsEnc:    get(ColEmailsEnc),
		StudyType:    get(ColStudyType),
		NotesEnc:     get(ColNotesEnc),
		ResultsEnc:   get(ColResultsEnc),
		Status:       Status(get(ColStatus)),
	}, errs
}

// formatCost always keeps a fractional part ("350.0"), as existing tables do.
func formatCost(c float64) string {
	s := strconv.FormatFloat(c, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func parseCost(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return 0, nil
	}
	c, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(c) || math.IsInf(c, 0) || c < 0 {
		return 0, fmt.Errorf("bad %s %q", ColCost, s)
	}
	return c, nil
}

func formatAge(a *int) string {
	if a == nil {
		return ""
	}
	return strconv.Itoa(*a)
}

// parseAge accepts "35" as well as "35.0", which is how ages come back
// from tables that went through a float column.
func parseAge(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return nil, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return &n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return nil, fmt.Errorf("bad %s %q", ColAge, s)
	}
	n := int(f)
	return &n, nil
}
