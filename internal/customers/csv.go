package customers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/saintfish/chardet"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Delimiters are tried on the header line; the most frequent wins.
var Delimiters = []rune{',', ';', '\t', '|'}

const sniffBytes = 4096

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	Delimiter rune // 0 = sniff from the header line
}

// StreamCSV decodes r to UTF-8, detects the delimiter and sends trimmed
// rows to a channel. The first row sent is the header. Both channels are
// closed when processing completes.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		br, err := decode(r)
		if err != nil {
			errCh <- err
			return
		}

		comma := opts.Delimiter
		if comma == 0 {
			head, _ := br.Peek(sniffBytes)
			comma = SniffDelimiter(firstLine(head))
		}

		reader := csv.NewReader(br)
		reader.Comma = comma
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1 // allow variable fields

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}
			for i, field := range record {
				record[i] = cleanCell(field)
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// ReadCSV collects every row of r, header first.
func ReadCSV(ctx context.Context, r io.Reader, opts CSVOptions) ([][]string, error) {
	rowCh, errCh := StreamCSV(ctx, r, opts)
	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return rows, nil
}

// SniffDelimiter picks the delimiter occurring most often in line, ','
// when none occurs.
func SniffDelimiter(line string) rune {
	best, most := ',', 0
	for _, d := range Delimiters {
		if n := strings.Count(line, string(d)); n > most {
			best, most = d, n
		}
	}
	return best
}

func firstLine(b []byte) string {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// decode wraps r in a UTF-8 decoder chosen from the detected charset and
// drops a leading byte order mark.
func decode(r io.Reader) (*bufio.Reader, error) {
	br := bufio.NewReaderSize(r, sniffBytes)
	peek, err := br.Peek(sniffBytes)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, eris.Wrap(err, "csv: peek input")
	}

	var enc encoding.Encoding
	cs := "utf-8"
	if len(peek) > 0 && !validUTF8Prefix(peek, len(peek) == sniffBytes) {
		if det, derr := chardet.NewTextDetector().DetectBest(peek); derr == nil && det != nil {
			cs = strings.ToLower(det.Charset)
		}
		switch cs {
		case "iso-8859-1":
			enc = charmap.ISO8859_1
		case "iso-8859-15":
			enc = charmap.ISO8859_15
		case "windows-1251":
			enc = charmap.Windows1251
		default:
			// Spreadsheet exports that are not UTF-8 are almost always cp1252.
			cs = "windows-1252"
			enc = charmap.Windows1252
		}
	}
	if enc != nil {
		zap.L().Debug("customers: decoding csv", zap.String("charset", cs))
		br = bufio.NewReaderSize(transform.NewReader(br, enc.NewDecoder()), sniffBytes)
	}

	if bom, _ := br.Peek(3); bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}
	return br, nil
}

// validUTF8Prefix reports whether b is valid UTF-8. When truncated is set a
// rune cut off at the end of the buffer is ignored.
func validUTF8Prefix(b []byte, truncated bool) bool {
	if !truncated {
		return utf8.Valid(b)
	}
	for i := 0; i < utf8.UTFMax && len(b) > 0; i++ {
		if utf8.Valid(b) {
			return true
		}
		b = b[:len(b)-1]
	}
	return utf8.Valid(b)
}

// cleanCell trims whitespace and one pair of stray surrounding quotes.
func cleanCell(s string) string {
	s = strings.TrimSpace(strings.TrimPrefix(s, "\ufeff"))
	s = strings.TrimPrefix(s, "\"")
	s = strings.TrimPrefix(s, "'")
	s = strings.TrimSuffix(s, "\"")
	s = strings.TrimSuffix(s, "'")
	return strings.TrimSpace(s)
}
