package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"tgranger/pkg/errors"
	"tgranger/pkg/models"
)

// Format selects the output encoding.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
)

// ParseFormat validates a client-supplied format tag.
func ParseFormat(v string) (Format, error) {
	switch Format(v) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatExcel:
		return FormatExcel, nil
	}
	return "", errors.InvalidInput("unsupported export format: %q", v)
}

// Extension returns the file extension for the format.
func (f Format) Extension() string {
	if f == FormatExcel {
		return "xlsx"
	}
	return "csv"
}

var columns = []string{
	"group_id", "user_id", "username", "first_name", "last_name", "phone",
	"is_hidden", "is_online", "last_seen", "risk_level", "privacy_score",
	"scraped_at",
}

// Export encodes the rows in the requested format.
func Export(rows []models.Member, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return CSV(rows)
	case FormatExcel:
		return Excel(rows)
	}
	return nil, errors.InvalidInput("unsupported export format: %q", string(format))
}

// FileName builds the download name for an export produced now.
func FileName(format Format) string {
	return fmt.Sprintf("members_export_%s.%s",
		time.Now().UTC().Format("20060102_150405"), format.Extension())
}

// CSV writes the rows as a header-prefixed CSV blob.
func CSV(rows []models.Member) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(columns); err != nil {
		return nil, fmt.Errorf("export: write csv header: %w", err)
	}
	for _, m := range rows {
		if err := w.Write(record(m)); err != nil {
			return nil, fmt.Errorf("export: write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("export: flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// Excel writes the rows as a single-sheet xlsx blob.
func Excel(rows []models.Member) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Members"
	f.SetSheetName("Sheet1", sheet)

	for col, name := range columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("export: header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return nil, fmt.Errorf("export: write header: %w", err)
		}
	}

	for i, m := range rows {
		for col, value := range record(m) {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("export: row cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("export: write row: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("export: write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func record(m models.Member) []string {
	scrapedAt := ""
	if !m.ScrapedAt.IsZero() {
		scrapedAt = m.ScrapedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		m.GroupID,
		m.UserID,
		m.Username,
		m.FirstName,
		m.LastName,
		m.Phone,
		strconv.FormatBool(m.IsHidden),
		strconv.FormatBool(m.IsOnline),
		m.LastSeen,
		m.RiskLevel,
		strconv.Itoa(m.PrivacyScore),
		scrapedAt,
	}
}
