// Package bulk parses product CSV imports.
package bulk

import (
	"encoding/csv" // CSV reader
	"errors"       // Error values
	"fmt"          // Error formatting
	"io"           // Reader interface
	"strconv"      // Numeric columns
	"strings"      // String manipulation
)

// Columns every import file must carry, in any order
var Columns = []string{"title", "price", "manufacturer", "inStock", "mainImage", "description", "slug", "categoryId"}

// MaxRows bounds a single import
const MaxRows = 1000

// Row is a validated product line
type Row struct {
	Line         int // 1-based data row number, header excluded
	Title        string
	Price        int
	Manufacturer string
	InStock      int
	MainImage    string
	Description  string
	Slug         string
	CategoryID   uint
}

// RowError describes why a line was rejected
type RowError struct {
	Line    int    `json:"row"`
	Title   string `json:"title,omitempty"`
	Slug    string `json:"slug,omitempty"`
	Message string `json:"error"`
}

var (
	ErrEmptyFile   = errors.New("CSV file is empty")
	ErrTooManyRows = fmt.Errorf("CSV file has more than %d rows", MaxRows)
)

// Parse reads the header and validates each row on its own.
// It only fails as a whole when the file is unreadable or the header is
// missing columns; bad rows come back as RowErrors.
func Parse(r io.Reader) ([]Row, []RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Ragged rows are reported per row
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrEmptyFile
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read CSV header: %w", err)
	}
	index, err := columnIndex(header)
	if err != nil {
		return nil, nil, err
	}

	var rows []Row
	var rowErrors []RowError
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if line > MaxRows {
			return nil, nil, ErrTooManyRows
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				rowErrors = append(rowErrors, RowError{Line: line, Message: parseErr.Err.Error()})
				continue
			}
			return nil, nil, fmt.Errorf("read CSV row %d: %w", line, err)
		}
		if isBlank(record) {
			line-- // Blank lines do not count as rows
			continue
		}
		row, err := parseRow(line, record, index)
		if err != nil {
			rowErrors = append(rowErrors, RowError{Line: line, Title: field(record, index, "title"), Slug: field(record, index, "slug"), Message: err.Error()})
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 && len(rowErrors) == 0 {
		return nil, nil, ErrEmptyFile
	}
	return rows, rowErrors, nil
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) // Excel writes a BOM
		index[strings.ToLower(name)] = i
	}
	var missing []string
	for _, col := range Columns {
		if _, ok := index[strings.ToLower(col)]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return index, nil
}

func field(record []string, index map[string]int, col string) string {
	i := index[strings.ToLower(col)]
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseRow(line int, record []string, index map[string]int) (Row, error) {
	row := Row{
		Line:         line,
		Title:        field(record, index, "title"),
		Manufacturer: field(record, index, "manufacturer"),
		MainImage:    field(record, index, "mainImage"),
		Description:  field(record, index, "description"),
		Slug:         field(record, index, "slug"),
	}

	var problems []string
	if row.Title == "" {
		problems = append(problems, "title is required")
	}
	if row.Manufacturer == "" { // Required by the product model
		problems = append(problems, "manufacturer is required")
	}
	if row.Slug == "" {
		problems = append(problems, "slug is required")
	}

	price, err := strconv.Atoi(field(record, index, "price")) // Prices are whole currency units
	switch {
	case err != nil:
		problems = append(problems, "price must be a whole number")
	case price < 0:
		problems = append(problems, "price must not be negative")
	default:
		row.Price = price
	}

	if raw := field(record, index, "inStock"); raw != "" { // Empty means none in stock
		stock, err := strconv.Atoi(raw)
		if err != nil || stock < 0 {
			problems = append(problems, "inStock must be a non-negative whole number")
		} else {
			row.InStock = stock
		}
	}

	categoryID, err := strconv.ParseUint(field(record, index, "categoryId"), 10, 64)
	if err != nil || categoryID == 0 {
		problems = append(problems, "categoryId must be a positive integer")
	} else {
		row.CategoryID = uint(categoryID)
	}

	if len(problems) > 0 {
		// Every problem of the line in one message
		return Row{}, errors.New(strings.Join(problems, "; "))
	}
	return row, nil
}

// isBlank reports a line holding only separators and spaces
func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
