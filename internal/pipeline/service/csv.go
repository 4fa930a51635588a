package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/kitmed/catalogsync/internal/pipeline/domain"
)

// Recognized column headers. Locale-suffixed columns (nom_fr, description_en,
// ficheTechnique_fr) are matched by prefix.
const (
	colReference  = "referenceFournisseur"
	colMaker      = "constructeur"
	colCategory   = "categoryId"
	colNamePrefix = "nom_"
	colDescPrefix = "description_"
	colTechPrefix = "ficheTechnique_"
	colPDF        = "pdfBrochureUrl"
	colImages     = "imageUrls"
	colStatus     = "status"
	colFeatured   = "featured"
)

// ParseCSV reads a supplier batch. The first line is the header; data rows are
// numbered from 2 so they match what an operator sees in a spreadsheet. Rows
// with the wrong field count come back as a parse error naming the line.
func ParseCSV(r io.Reader) ([]domain.RawRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := map[string]int{}
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	if _, ok := cols[colMaker]; !ok {
		return nil, fmt.Errorf("header has no %s column", colMaker)
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}
	localeFields := func(rec []string, prefix string) map[string]string {
		out := map[string]string{}
		for name, i := range cols {
			if strings.HasPrefix(name, prefix) && i < len(rec) && rec[i] != "" {
				out[strings.TrimPrefix(name, prefix)] = rec[i]
			}
		}
		return out
	}

	var rows []domain.RawRow
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, domain.RawRow{
			Row:             line,
			SupplierSKU:     field(rec, colReference),
			ManufacturerRaw: field(rec, colMaker),
			CategoryRaw:     field(rec, colCategory),
			Names:           localeFields(rec, colNamePrefix),
			Descriptions:    localeFields(rec, colDescPrefix),
			TechnicalSheets: localeFields(rec, colTechPrefix),
			ImageURLs:       field(rec, colImages),
			PDFURL:          field(rec, colPDF),
			Status:          field(rec, colStatus),
			Featured:        field(rec, colFeatured),
		})
	}
	return rows, nil
}
