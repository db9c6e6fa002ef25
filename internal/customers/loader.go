// Package customers loads the reference customer pool from CSV and XLSX
// files.
package customers

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-match/internal/model"
)

// Sentinel errors.
var (
	ErrMissingColumns = eris.New("customers: missing required columns")
	ErrNoRecords      = eris.New("customers: no valid customer records")
	ErrUnsupported    = eris.New("customers: unsupported file type")
)

// aliases maps English headers onto the canonical field names.
var aliases = map[string]string{
	"company":           model.FieldCompany,
	"core activity":     model.FieldCoreActivity,
	"products/services": model.FieldProducts,
	"products":          model.FieldProducts,
	"sales model":       model.FieldSalesModel,
	"service model":     model.FieldServiceModel,
	"customer profile":  model.FieldCustomerProfile,
	"deal size":         model.FieldDealSize,
	"core process":      model.FieldCoreProcess,
}

var placeholderHeader = regexp.MustCompile(`^Column \d+$`)

// Load reads a customer file, choosing the parser by extension.
func Load(ctx context.Context, path string) ([]model.CustomerRecord, error) {
	var rows [][]string
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		var err error
		rows, err = ReadXLSX(path, XLSXOptions{})
		if err != nil {
			return nil, err
		}
	case ".csv", ".tsv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "customers: open file")
		}
		defer f.Close() //nolint:errcheck
		rows, err = ReadCSV(ctx, f, CSVOptions{})
		if err != nil {
			return nil, err
		}
	default:
		return nil, eris.Wrapf(ErrUnsupported, "extension %q", ext)
	}

	records, err := FromRows(rows)
	if err != nil {
		return nil, eris.Wrapf(err, "customers: load %s", filepath.Base(path))
	}
	zap.L().Info("customers: loaded pool",
		zap.String("path", path),
		zap.Int("customers", len(records)),
	)
	return records, nil
}

// Parse reads CSV customer data from r.
func Parse(ctx context.Context, r io.Reader) ([]model.CustomerRecord, error) {
	rows, err := ReadCSV(ctx, r, CSVOptions{})
	if err != nil {
		return nil, err
	}
	return FromRows(rows)
}

// FromRows maps a header row plus data rows to customer records. Placeholder
// "Column N" headers are ignored and rows without a company are dropped.
func FromRows(rows [][]string) ([]model.CustomerRecord, error) {
	rows = dropBlank(rows)
	if len(rows) == 0 {
		return nil, ErrNoRecords
	}

	header := make([]string, len(rows[0]))
	var valid []string
	seen := make(map[string]bool)
	for i, h := range rows[0] {
		h = canonical(h)
		if h == "" || placeholderHeader.MatchString(h) {
			continue
		}
		header[i] = h
		valid = append(valid, h)
		seen[h] = true
	}

	var missing []string
	for _, req := range model.RequiredFields {
		if !seen[req] {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return nil, eris.Wrapf(ErrMissingColumns, "missing %s; found %s",
			strings.Join(missing, ", "), strings.Join(valid, ", "))
	}

	var out []model.CustomerRecord
	for _, row := range rows[1:] {
		rec := make(model.CustomerRecord, len(valid))
		for i, h := range header {
			if h == "" || i >= len(row) {
				continue
			}
			rec[h] = row[i]
		}
		if rec.Company() == "" {
			continue
		}
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, ErrNoRecords
	}
	return out, nil
}

// canonical resolves English aliases; Dutch headers pass through unchanged.
func canonical(h string) string {
	h = cleanCell(h)
	if c, ok := aliases[strings.ToLower(h)]; ok {
		return c
	}
	return h
}

func dropBlank(rows [][]string) [][]string {
	out := rows[:0:0]
	for _, row := range rows {
		if strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}
		out = append(out, row)
	}
	return out
}
