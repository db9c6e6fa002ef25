package customers

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/sells-group/prospect-match/internal/model"
)

func writeTestFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func createTestXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Klanten")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "pool.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		line string
		want rune
	}{
		{"Bedrijf,Sector,Kernactiviteit", ','},
		{"Bedrijf;Sector;Kernactiviteit", ';'},
		{"Bedrijf\tSector\tKernactiviteit", '\t'},
		{"Bedrijf|Sector|Kernactiviteit", '|'},
		{"Bedrijf;Sector,Kernactiviteit;Producten", ';'},
		{"Bedrijf", ','},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SniffDelimiter(tt.line), tt.line)
	}
}

func TestParse_Semicolon(t *testing.T) {
	data := "\ufeffBedrijf;Sector;Kernactiviteit;Column 4\n" +
		"Van Dijk Shipping;Transport;maritieme dienstverlening;x\n" +
		"\n" +
		"'Rederij Noord';\"Logistiek\";scheepvaart;y\n"

	recs, err := Parse(context.Background(), strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Van Dijk Shipping", recs[0].Company())
	assert.Equal(t, "maritieme dienstverlening", recs[0].CoreActivity())
	assert.Equal(t, "Rederij Noord", recs[1].Company())
	assert.Equal(t, "Logistiek", recs[1].Sector())
	_, hasPlaceholder := recs[0]["Column 4"]
	assert.False(t, hasPlaceholder)
}

func TestParse_EnglishAliases(t *testing.T) {
	data := "Company,Sector,Core Activity,Sales Model,Deal Size\n" +
		"Softco,Software,SaaS platform,partners,€50k\n"

	recs, err := Parse(context.Background(), strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Softco", recs[0].Company())
	assert.Equal(t, "SaaS platform", recs[0].CoreActivity())
	assert.Equal(t, "partners", recs[0].SalesModel())
	assert.Equal(t, "€50k", recs[0].DealSize())
}

func TestParse_MissingColumns(t *testing.T) {
	_, err := Parse(context.Background(), strings.NewReader("Bedrijf,Producten\nSoftco,SaaS\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingColumns)
	assert.Contains(t, err.Error(), "missing Kernactiviteit, Sector")
	assert.Contains(t, err.Error(), "found Bedrijf, Producten")
}

func TestParse_RowsWithoutCompanyDropped(t *testing.T) {
	data := "Bedrijf,Sector,Kernactiviteit\n,Transport,vervoer\n  ,Bouw,aannemer\n"
	_, err := Parse(context.Background(), strings.NewReader(data))
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse(context.Background(), strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestParse_ShortRows(t *testing.T) {
	data := "Bedrijf,Sector,Kernactiviteit,Producten/Diensten\nSoftco,Software\n"
	recs, err := Parse(context.Background(), strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Software", recs[0].Sector())
	assert.Empty(t, recs[0].CoreActivity())
}

func TestParse_Windows1252(t *testing.T) {
	utf := "Bedrijf;Sector;Kernactiviteit\n" +
		strings.Repeat("Café Noord;Horeca;café en restaurant met terras\n", 20)
	encoded, err := charmap.Windows1252.NewEncoder().String(utf)
	require.NoError(t, err)

	recs, err := Parse(context.Background(), strings.NewReader(encoded))
	require.NoError(t, err)
	require.Len(t, recs, 20)
	assert.Equal(t, "Café Noord", recs[0].Company())
	assert.Equal(t, "café en restaurant met terras", recs[0].CoreActivity())
}

func TestParse_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Parse(ctx, strings.NewReader("Bedrijf,Sector,Kernactiviteit\nA,B,C\n"))
	assert.Error(t, err)
}

func TestLoad_CSV(t *testing.T) {
	path := writeTestFile(t, "pool.csv", []byte("Bedrijf\tSector\tKernactiviteit\nSoftco\tSoftware\tSaaS\n"))
	recs, err := Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, model.CustomerRecord{
		model.FieldCompany:      "Softco",
		model.FieldSector:       "Software",
		model.FieldCoreActivity: "SaaS",
	}, recs[0])
}

func TestLoad_XLSX(t *testing.T) {
	path := createTestXLSX(t, [][]string{
		{"Bedrijf", "Sector", "Kernactiviteit", "Dealsize"},
		{"Van Dijk Shipping", "Transport", "maritieme dienstverlening", " €250k "},
		{"", "Bouw", "aannemer", ""},
	})
	recs, err := Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "€250k", recs[0].DealSize())
}

func TestLoad_Unsupported(t *testing.T) {
	path := writeTestFile(t, "pool.json", []byte("[]"))
	_, err := Load(context.Background(), path)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestReadXLSX_SheetSelection(t *testing.T) {
	path := createTestXLSX(t, [][]string{{"Bedrijf"}})

	_, err := ReadXLSX(path, XLSXOptions{SheetName: "Other"})
	assert.Error(t, err)

	_, err = ReadXLSX(path, XLSXOptions{SheetIndex: 3})
	assert.Error(t, err)

	rows, err := ReadXLSX(path, XLSXOptions{SheetName: "Klanten"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Bedrijf"}}, rows)
}
