// Package export writes ranked matches as CSV, an aligned text table or JSON.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-match/internal/model"
)

// Format selects an output encoding.
type Format string

// Supported formats.
const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
)

// ParseFormat validates a format name; "" selects the table.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", eris.Errorf("export: unknown format %q (want table, csv or json)", s)
	}
}

// Columns defines the ordered export columns.
var Columns = []string{
	"Rank",
	"Company",
	"Score",
	"Sector",
	"CoreActivity",
	"SalesModel",
	"ServiceModel",
	"DealSize",
	"StrategicFit",
	"SalesAngle",
	"KeyInsights",
}

const notAvailable = "N/A"

// Write encodes a result in the given format.
func Write(w io.Writer, f Format, r *model.MatchResult) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, r.Matches)
	case FormatJSON:
		return WriteJSON(w, r)
	case FormatTable, "":
		return WriteTable(w, r)
	default:
		return eris.Errorf("export: unknown format %q", f)
	}
}

// FileName is the default export file name for a day.
func FileName(day time.Time, f Format) string {
	ext := string(f)
	if f == FormatTable || f == "" {
		ext = "txt"
	}
	return fmt.Sprintf("matches_%s.%s", day.Format("2006-01-02"), ext)
}

// Row maps one ranked match to the export columns.
func Row(rank int, m model.MatchCandidate) []string {
	fit, angle := notAvailable, notAvailable
	if m.AIInsight != nil {
		if s := strings.TrimSpace(m.AIInsight.Strength); s != "" {
			fit = s
		}
		if s := strings.TrimSpace(m.AIInsight.SalesAngle); s != "" {
			angle = s
		}
	}
	c := m.Customer
	return []string{
		fmt.Sprintf("%d", rank), // Rank
		c.Company(),             // Company
		Percent(m.TotalScore),   // Score
		c.Sector(),              // Sector
		c.CoreActivity(),        // CoreActivity
		c.SalesModel(),          // SalesModel
		c.ServiceModel(),        // ServiceModel
		c.DealSize(),            // DealSize
		fit,                     // StrategicFit
		angle,                   // SalesAngle
		m.Explanation,           // KeyInsights
	}
}

// Percent renders a score in [0,1] as a rounded percentage.
func Percent(score float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(score*100)))
}

// WriteCSV writes the matches with a header row; every value is quoted.
func WriteCSV(w io.Writer, matches []model.MatchCandidate) error {
	if err := writeQuoted(w, Columns); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for i, m := range matches {
		if err := writeQuoted(w, Row(i+1, m)); err != nil {
			return eris.Wrap(err, "export: write row")
		}
	}
	return nil
}

func writeQuoted(w io.Writer, fields []string) error {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	_, err := io.WriteString(w, strings.Join(quoted, ",")+"\n")
	return err
}

// WriteTable writes a compact aligned table followed by the summary line.
func WriteTable(out io.Writer, r *model.MatchResult) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RANK\tCOMPANY\tSCORE\tAI\tSECTOR\tCORE ACTIVITY")
	_, _ = fmt.Fprintln(w, "----\t-------\t-----\t--\t------\t-------------")
	for i, m := range r.Matches {
		ai := "-"
		if m.AIScore != nil {
			ai = Percent(*m.AIScore)
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			i+1,
			truncate(m.Customer.Company(), 30),
			Percent(m.TotalScore),
			ai,
			truncate(m.Customer.Sector(), 20),
			truncate(m.Customer.CoreActivity(), 40),
		)
	}
	if err := w.Flush(); err != nil {
		return eris.Wrap(err, "export: write table")
	}

	for i, m := range r.Matches {
		if _, err := fmt.Fprintf(out, "\n%d. %s\n   %s\n", i+1, m.Customer.Company(), m.Explanation); err != nil {
			return eris.Wrap(err, "export: write table")
		}
	}
	if r.Summary != "" {
		if _, err := fmt.Fprintf(out, "\n%s\n", r.Summary); err != nil {
			return eris.Wrap(err, "export: write table")
		}
	}
	return nil
}

// WriteJSON writes the full result as indented JSON.
func WriteJSON(w io.Writer, r *model.MatchResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return eris.Wrap(err, "export: encode json")
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
