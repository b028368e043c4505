package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tgranger/pkg/models"
)

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("csv")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, format)

	format, err = ParseFormat("excel")
	require.NoError(t, err)
	assert.Equal(t, FormatExcel, format)

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
	_, err = ParseFormat("")
	assert.Error(t, err)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "csv", FormatCSV.Extension())
	assert.Equal(t, "xlsx", FormatExcel.Extension())
}

func TestFileName(t *testing.T) {
	name := FileName(FormatCSV)
	assert.True(t, strings.HasPrefix(name, "members_export_"))
	assert.True(t, strings.HasSuffix(name, ".csv"))

	name = FileName(FormatExcel)
	assert.True(t, strings.HasSuffix(name, ".xlsx"))
}

func TestCSV(t *testing.T) {
	scraped := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	members := []models.Member{
		{
			GroupID: "g1", UserID: "user_1", Username: "alice_crypto0",
			FirstName: "Alice", LastName: "Smith", Phone: "+15551234567",
			IsHidden: true, IsOnline: false, LastSeen: "2026-03-13T08:00:00Z",
			RiskLevel: "high", PrivacyScore: 77, ScrapedAt: scraped,
		},
		{
			GroupID: "g1", UserID: "user_2",
			FirstName: "Bob", RiskLevel: "low",
		},
	}

	blob, err := CSV(members)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(blob)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3, "header plus two rows")

	assert.Equal(t, columns, records[0])

	assert.Equal(t, []string{
		"g1", "user_1", "alice_crypto0", "Alice", "Smith", "+15551234567",
		"true", "false", "2026-03-13T08:00:00Z", "high", "77",
		"2026-03-14T09:26:53Z",
	}, records[1])

	// Zero-value timestamps render empty, not as the epoch.
	assert.Equal(t, "", records[2][11])
}

func TestCSVEmpty(t *testing.T) {
	blob, err := CSV(nil)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(blob)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1, "header only")
}

func TestExcel(t *testing.T) {
	members := []models.Member{
		{GroupID: "g1", UserID: "user_1", Username: "alice_crypto0", RiskLevel: "high", PrivacyScore: 90},
		{GroupID: "g1", UserID: "user_2", Username: "bob_trader1", RiskLevel: "low"},
	}

	blob, err := Excel(members)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(blob))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Members")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "group_id", rows[0][0])
	assert.Equal(t, "user_1", rows[1][1])
	assert.Equal(t, "alice_crypto0", rows[1][2])
	assert.Equal(t, "high", rows[1][9])
	assert.Equal(t, "user_2", rows[2][1])
}

func TestExportDispatch(t *testing.T) {
	members := []models.Member{{GroupID: "g1", UserID: "user_1"}}

	blob, err := Export(members, FormatCSV)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(blob), "group_id,"))

	blob, err = Export(members, FormatExcel)
	require.NoError(t, err)
	assert.NotEmpty(t, blob)

	_, err = Export(members, Format("pdf"))
	assert.Error(t, err)
}
