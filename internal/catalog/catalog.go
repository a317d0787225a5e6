// Package catalog reads the study catalog: a CSV reference table with the
// columns Codigo, Nombre, Categoria, Precio_MXN and Activo.
package catalog

import (
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
)

const (
	ColCode     = "Codigo"
	ColName     = "Nombre"
	ColCategory = "Categoria"
	ColPrice    = "Precio_MXN"
	ColActive   = "Activo"
)

type Study struct {
	Code     string
	Name     string
	Category string
	Price    float64
	Active   bool
}

type Catalog struct {
	Studies []Study
}

// Load reads the catalog at path. A missing file is an empty catalog.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Catalog{}, nil
		}
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse reads a catalog from r. Unknown columns are ignored and missing
// ones read as empty; rows without a name are dropped.
func Parse(r io.Reader) (*Catalog, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &Catalog{}, nil
		}
		return nil, err
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		idx[strings.ToLower(h)] = i
	}
	field := func(rec []string, col string) string {
		i, ok := idx[strings.ToLower(col)]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	c := &Catalog{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		name := field(rec, ColName)
		if name == "" {
			continue
		}
		price := parsePrice(field(rec, ColPrice))

		c.Studies = append(c.Studies, Study{
			Code:     field(rec, ColCode),
			Name:     name,
			Category: field(rec, ColCategory),
			Price:    price,
			Active:   parseActive(field(rec, ColActive)),
		})
	}
	return c, nil
}

// parsePrice reads a missing, unparsable, non-finite ("nan", "inf") or
// negative price as 0.
func parsePrice(s string) float64 {
	p, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
		return 0
	}
	return p
}

// parseActive treats only explicit negatives as inactive; a blank cell
// means active.
func parseActive(s string) bool {
	switch strings.ToLower(s) {
	case "false", "0", "no", "n", "falso":
		return false
	default:
		return true
	}
}

// TotalCost sums the prices of active studies whose name is in names.
func (c *Catalog) TotalCost(names []string) float64 {
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}

	var total float64
	for _, s := range c.Studies {
		if _, ok := want[s.Name]; ok && s.Active {
			total += s.Price
		}
	}
	return total
}

// ListNames returns study names in file order, skipping inactive studies
// when activeOnly is set.
func (c *Catalog) ListNames(activeOnly bool) []string {
	out := make([]string, 0, len(c.Studies))
	for _, s := range c.Studies {
		if activeOnly && !s.Active {
			continue
		}
		out = append(out, s.Name)
	}
	return out
}

// Source re-reads the catalog file on every call, so edits to the file are
// picked up without a restart.
type Source struct {
	path string
}

func NewSource(path string) *Source {
	return &Source{path: path}
}

func (s *Source) TotalCost(_ context.Context, names []string) (float64, error) {
	c, err := Load(s.path)
	if err != nil {
		return 0, err
	}
	return c.TotalCost(names), nil
}

func (s *Source) ListNames(_ context.Context, activeOnly bool) ([]string, error) {
	c, err := Load(s.path)
	if err != nil {
		return nil, err
	}
	return c.ListNames(activeOnly), nil
}
