package sales

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

var saleLineHeader = []string{"product_name", "quantity", "retail_price", "time"}

// ParseSaleLines reads sale records from CSV. The first two columns are
// required; retail_price and time (RFC 3339) may be omitted entirely or left
// blank per row.
func ParseSaleLines(reader io.Reader) ([]SaleLine, error) {
	records, err := csv.NewReader(reader).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read sales csv: %w", err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("sales csv must have a header and at least one data row")
	}

	header := records[0]
	if len(header) < 2 || len(header) > len(saleLineHeader) {
		return nil, fmt.Errorf("sales csv header mismatch: expected a prefix of %v, got %v", saleLineHeader, header)
	}
	for idx, column := range header {
		if strings.TrimSpace(strings.ToLower(column)) != saleLineHeader[idx] {
			return nil, fmt.Errorf("sales csv header mismatch: expected a prefix of %v, got %v", saleLineHeader, header)
		}
	}

	lines := make([]SaleLine, 0, len(records)-1)
	for rowIdx, record := range records[1:] {
		if len(record) != len(header) {
			return nil, fmt.Errorf("sales csv row %d: expected %d columns, got %d", rowIdx+2, len(header), len(record))
		}

		line, err := parseSaleRecord(record)
		if err != nil {
			return nil, fmt.Errorf("sales csv row %d: %w", rowIdx+2, err)
		}
		lines = append(lines, line)
	}

	return lines, nil
}

func parseSaleRecord(record []string) (SaleLine, error) {
	line := SaleLine{ProductName: strings.TrimSpace(record[0])}
	if line.ProductName == "" {
		return SaleLine{}, fmt.Errorf("product_name must not be empty")
	}

	quantity, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
	if err != nil {
		return SaleLine{}, fmt.Errorf("parse quantity %q: %w", record[1], err)
	}
	line.Quantity = quantity

	if len(record) > 2 {
		if value := strings.TrimSpace(record[2]); value != "" {
			price, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return SaleLine{}, fmt.Errorf("parse retail_price %q: %w", record[2], err)
			}
			line.RetailPrice = &price
		}
	}

	if len(record) > 3 {
		if value := strings.TrimSpace(record[3]); value != "" {
			soldAt, err := time.Parse(time.RFC3339, value)
			if err != nil {
				return SaleLine{}, fmt.Errorf("parse time %q: %w", record[3], err)
			}
			line.Time = &soldAt
		}
	}

	return line, nil
}
