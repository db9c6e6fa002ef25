package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-match/internal/customers"
	"github.com/sells-group/prospect-match/internal/export"
	"github.com/sells-group/prospect-match/internal/model"
	"github.com/sells-group/prospect-match/internal/refine"
)

const testCustomersCSV = `Bedrijf;Kernactiviteit;Sector;Dealsize
Van Dijk Shipping;maritiem transport en logistiek;Transport;12000000
Softco;SaaS software;Software;3000000
Bakkerij Jansen;brood en banket;Food;800000
`

func writeCustomers(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "klanten.csv")
	require.NoError(t, os.WriteFile(path, []byte(testCustomersCSV), 0o644))
	return path
}

func TestReadDescription(t *testing.T) {
	desc, err := readDescription("Sector: Transport", "")
	require.NoError(t, err)
	assert.Equal(t, "Sector: Transport", desc)

	path := filepath.Join(t.TempDir(), "prospect.txt")
	require.NoError(t, os.WriteFile(path, []byte("Kernactiviteit: software"), 0o644))
	desc, err = readDescription("", path)
	require.NoError(t, err)
	assert.Equal(t, "Kernactiviteit: software", desc)

	_, err = readDescription("  ", "")
	assert.Error(t, err)

	_, err = readDescription("", filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestRunMatch_Local(t *testing.T) {
	pool, err := customers.Load(context.Background(), writeCustomers(t))
	require.NoError(t, err)

	opts := refine.DefaultOptions()
	opts.Stagger = 0
	res := runMatch(context.Background(), nil, opts, "Sector: Transport\nKernactiviteit: maritiem transport", pool, true)

	require.Equal(t, model.OutcomeMatched, res.Outcome)
	require.NotEmpty(t, res.Matches)
	assert.Equal(t, "Van Dijk Shipping", res.Matches[0].Customer.Company())
	assert.Equal(t, 0, res.Iterations)
}

func TestWriteResult_Stdout(t *testing.T) {
	res := &model.MatchResult{
		Outcome: model.OutcomeMatched,
		Matches: []model.MatchCandidate{{
			Customer:   model.CustomerRecord{model.FieldCompany: "Van Dijk Shipping", model.FieldSector: "Transport"},
			TotalScore: 0.8,
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, "", export.FormatCSV, res, time.Now()))
	assert.Contains(t, buf.String(), `"Van Dijk Shipping"`)
}

func TestWriteResult_Directory(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	res := &model.MatchResult{Outcome: model.OutcomeNoMatches}

	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, dir, export.FormatJSON, res, day))
	assert.Empty(t, buf.String())

	b, err := os.ReadFile(filepath.Join(dir, "matches_2026-03-09.json"))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"outcome": "no_matches"`)
}

func TestWriteResult_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	res := &model.MatchResult{Outcome: model.OutcomeNoMatches}

	require.NoError(t, writeResult(&bytes.Buffer{}, path, export.FormatTable, res, time.Now()))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}
