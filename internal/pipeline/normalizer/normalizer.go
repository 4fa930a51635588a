package normalizer

import (
	"regexp"
	"strings"

	"github.com/kitmed/catalogsync/internal/pipeline/domain"
)

// skuPattern covers the SKU conventions seen in supplier catalogs: 1-3
// uppercase letters, hyphen, 2-3 digits (VRS-19, TR-17, SP-150).
var skuPattern = regexp.MustCompile(`(?i)\b([A-Z]{1,3}-[0-9]{2,3})\b`)

type Normalizer struct {
	primaryLocale string
	maxImages     int
}

func New(primaryLocale string, maxImages int) *Normalizer {
	if primaryLocale == "" {
		primaryLocale = "fr"
	}
	if maxImages <= 0 {
		maxImages = 5
	}
	return &Normalizer{primaryLocale: primaryLocale, maxImages: maxImages}
}

// Normalize turns a raw CSV row into a canonical SupplierRecord. Pure; does no
// I/O. A missing SKU is not an error here: the record is passed through so the
// run reporter can attribute the skip.
func (n *Normalizer) Normalize(row domain.RawRow) (domain.SupplierRecord, error) {
	names := trimMap(row.Names)
	if len(names) == 0 || names[n.primaryLocale] == "" {
		return domain.SupplierRecord{}, &domain.NormalizationError{
			Row:    row.Row,
			Reason: "missing " + n.primaryLocale + " name",
		}
	}

	manufacturer := strings.TrimSpace(row.ManufacturerRaw)
	if manufacturer == "" {
		return domain.SupplierRecord{}, &domain.NormalizationError{
			Row:    row.Row,
			Reason: "missing manufacturer",
		}
	}

	descriptions := trimMap(row.Descriptions)

	sku := strings.TrimSpace(row.SupplierSKU)
	extracted := false
	if sku == "" {
		sku = extractSKU(names[n.primaryLocale], descriptions[n.primaryLocale])
		extracted = sku != ""
	}

	status := strings.ToLower(strings.TrimSpace(row.Status))
	if status == "" {
		status = "active"
	}

	return domain.SupplierRecord{
		Row:             row.Row,
		SupplierSKU:     sku,
		SKUExtracted:    extracted,
		ManufacturerRaw: manufacturer,
		ManufacturerKey: ManufacturerKey(manufacturer),
		CategoryRaw:     strings.TrimSpace(row.CategoryRaw),
		Names:           names,
		Descriptions:    descriptions,
		TechnicalSheets: trimMap(row.TechnicalSheets),
		ImageURLs:       SplitMediaURLs(row.ImageURLs, n.maxImages),
		PDFURL:          validURL(strings.TrimSpace(row.PDFURL)),
		Status:          status,
		IsFeatured:      row.Featured == "true" || row.Featured == "1",
	}, nil
}

// ManufacturerKey lower-cases a manufacturer label and strips everything
// outside [a-z0-9]; the key used for alias lookups.
func ManufacturerKey(label string) string {
	var b strings.Builder
	b.Grow(len(label))
	for _, r := range strings.ToLower(label) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SplitMediaURLs splits a pipe-delimited URL list, trims entries, drops
// empties and non-HTTP(S) values, and de-duplicates exact repeats preserving
// first-seen order. Order matters: the first image becomes primary.
func SplitMediaURLs(raw string, max int) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, part := range strings.Split(raw, "|") {
		u := validURL(strings.TrimSpace(part))
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}

func extractSKU(name, description string) string {
	if m := skuPattern.FindString(name); m != "" {
		return strings.ToUpper(m)
	}
	if m := skuPattern.FindString(description); m != "" {
		return strings.ToUpper(m)
	}
	return ""
}

func validURL(u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return ""
}

func trimMap(in map[string]string) map[string]string {
	out := map[string]string{}
	for k, v := range in {
		v = strings.TrimSpace(v)
		if v != "" {
			out[strings.TrimSpace(k)] = v
		}
	}
	return out
}
