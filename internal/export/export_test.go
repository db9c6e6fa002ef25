package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-match/internal/model"
)

func sampleResult() *model.MatchResult {
	ai := 0.82
	return &model.MatchResult{
		Outcome: model.OutcomeMatched,
		Summary: "Search optimized via 1 iteration(s)",
		Matches: []model.MatchCandidate{
			{
				Customer: model.CustomerRecord{
					model.FieldCompany:      "Van Dijk Shipping",
					model.FieldSector:       "Transport",
					model.FieldCoreActivity: "maritieme dienstverlening",
					model.FieldSalesModel:   "dealer netwerk",
					model.FieldDealSize:     "€250k",
				},
				TotalScore:  0.784,
				AIScore:     &ai,
				AIInsight:   &model.CandidateJudgment{Relevance: ai, Strength: "strong", SalesAngle: "Same \"harbour\" network"},
				Explanation: "🌟 STRONG strategic fit • Strong sector alignment in Transport",
			},
			{
				Customer: model.CustomerRecord{
					model.FieldCompany: "Rederij Noord",
					model.FieldSector:  "Logistiek",
				},
				TotalScore:  0.41,
				Explanation: "Related sector, Logistiek",
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		err  bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"CSV", FormatCSV, false},
		{" json ", FormatJSON, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestRow(t *testing.T) {
	r := sampleResult()

	row := Row(1, r.Matches[0])
	require.Len(t, row, len(Columns))
	assert.Equal(t, "1", row[0])
	assert.Equal(t, "Van Dijk Shipping", row[1])
	assert.Equal(t, "78%", row[2])
	assert.Equal(t, "€250k", row[7])
	assert.Equal(t, "strong", row[8])
	assert.Equal(t, `Same "harbour" network`, row[9])

	row = Row(2, r.Matches[1])
	assert.Equal(t, "41%", row[2])
	assert.Equal(t, "N/A", row[8])
	assert.Equal(t, "N/A", row[9])
	assert.Empty(t, row[4])
}

func TestWriteCSV_QuotesEveryValue(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleResult().Matches))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `"Rank","Company","Score","Sector","CoreActivity","SalesModel","ServiceModel","DealSize","StrategicFit","SalesAngle","KeyInsights"`, lines[0])
	assert.True(t, strings.HasPrefix(lines[1], `"1","Van Dijk Shipping","78%","Transport",`))
	assert.Contains(t, lines[1], `"Same ""harbour"" network"`)
	assert.True(t, strings.HasPrefix(lines[2], `"2","Rederij Noord","41%","Logistiek","",`))
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, sampleResult()))
	out := buf.String()

	assert.Contains(t, out, "RANK")
	assert.Contains(t, out, "Van Dijk Shipping")
	assert.Contains(t, out, "82%")
	assert.Contains(t, out, "1. Van Dijk Shipping\n   🌟 STRONG strategic fit")
	assert.True(t, strings.HasSuffix(out, "Search optimized via 1 iteration(s)\n"))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sampleResult()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "matched", decoded["outcome"])
	matches, ok := decoded["matches"].([]any)
	require.True(t, ok)
	assert.Len(t, matches, 2)
}

func TestWrite_UnknownFormat(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, Format("xml"), sampleResult()))
}

func TestFileName(t *testing.T) {
	day := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "matches_2026-03-14.csv", FileName(day, FormatCSV))
	assert.Equal(t, "matches_2026-03-14.json", FileName(day, FormatJSON))
	assert.Equal(t, "matches_2026-03-14.txt", FileName(day, FormatTable))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "maritie...", truncate("maritieme dienstverlening", 10))
}
