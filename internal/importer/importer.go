package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"storefront/internal/domain"
)

type VariantLookup interface {
	GetVariantBySKU(ctx context.Context, sku string) (*domain.Variant, error)
}

type StockWriter interface {
	GetLevels(ctx context.Context, variantIDs []string) (map[string]domain.InventoryLevel, error)
	SetLevel(ctx context.Context, level domain.InventoryLevel) error
}

// Report summarises a stock import run.
type Report struct {
	Updated     int
	UnknownSKUs []string
}

// CSVImporter reads "sku,on_hand[,committed]" rows and overwrites inventory levels.
type CSVImporter struct {
	reader   *csv.Reader
	variants VariantLookup
	stock    StockWriter
}

func NewCSVImporter(r io.Reader, variants VariantLookup, stock StockWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{
		reader:   csvr,
		variants: variants,
		stock:    stock,
	}
}

type csvRow struct {
	Line         int
	SKU          string
	OnHand       int
	Committed    int
	HasCommitted bool
}

// Run applies every row. Unknown SKUs are reported and skipped; malformed rows abort the run.
func (i *CSVImporter) Run(ctx context.Context) (Report, error) {
	var report Report

	headers, err := i.reader.Read()
	if err != nil {
		return report, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["sku"]; !ok {
		return report, errors.New("missing sku column")
	}
	if _, ok := index["on_hand"]; !ok {
		return report, errors.New("missing on_hand column")
	}

	line := 1
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return report, fmt.Errorf("read row %d: %w", line, err)
		}

		row, err := parseRow(record, index, line)
		if err != nil {
			return report, err
		}
		if row == nil {
			continue
		}

		updated, err := i.save(ctx, row)
		if err != nil {
			return report, err
		}
		if !updated {
			report.UnknownSKUs = append(report.UnknownSKUs, row.SKU)
			continue
		}
		report.Updated++
	}

	return report, nil
}

func (i *CSVImporter) save(ctx context.Context, row *csvRow) (bool, error) {
	variant, err := i.variants.GetVariantBySKU(ctx, row.SKU)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup sku %q: %w", row.SKU, err)
	}

	level := domain.InventoryLevel{
		VariantID: variant.ID,
		OnHand:    row.OnHand,
		Committed: row.Committed,
	}
	if !row.HasCommitted {
		current, err := i.stock.GetLevels(ctx, []string{variant.ID})
		if err != nil {
			return false, fmt.Errorf("read stock for sku %q: %w", row.SKU, err)
		}
		level.Committed = current[variant.ID].Committed
	}

	if err := i.stock.SetLevel(ctx, level); err != nil {
		return false, fmt.Errorf("set stock for sku %q: %w", row.SKU, err)
	}
	return true, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int, line int) (*csvRow, error) {
	sku := pick(record, index, "sku")
	onHand := pick(record, index, "on_hand")
	committed := pick(record, index, "committed")

	if sku == "" && onHand == "" {
		return nil, nil
	}
	if sku == "" {
		return nil, fmt.Errorf("row %d: sku is required", line)
	}

	row := &csvRow{Line: line, SKU: sku}
	n, err := parseCount(onHand)
	if err != nil {
		return nil, fmt.Errorf("row %d: on_hand: %w", line, err)
	}
	row.OnHand = n

	if committed != "" {
		c, err := parseCount(committed)
		if err != nil {
			return nil, fmt.Errorf("row %d: committed: %w", line, err)
		}
		row.Committed = c
		row.HasCommitted = true
	}
	return row, nil
}

func parseCount(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid count %q", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("count must not be negative, got %d", n)
	}
	return n, nil
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
