package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tienda-barrio/internal/domain"
	"tienda-barrio/internal/slug"
)

type ProductWriter interface {
	UpsertBySlug(ctx context.Context, p domain.Product) (*domain.Product, error)
	UpsertVariant(ctx context.Context, v domain.Variant) (*domain.Variant, error)
}

type CategoryWriter interface {
	Upsert(ctx context.Context, c domain.Category) (*domain.Category, error)
}

// Result counts what a run wrote.
type Result struct {
	Products   int
	Variants   int
	Categories int
}

// CSVImporter loads catalog rows grouped by product slug. A row with a slug
// starts a product; following rows with an empty slug add variants to it.
type CSVImporter struct {
	reader     *csv.Reader
	products   ProductWriter
	categories CategoryWriter

	categoryIDs map[string]string
}

func NewCSVImporter(r io.Reader, products ProductWriter, categories CategoryWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{
		reader:      csvr,
		products:    products,
		categories:  categories,
		categoryIDs: map[string]string{},
	}
}

type csvVariant struct {
	Name      string
	Price     decimal.Decimal
	Available bool
}

type csvProduct struct {
	line        int
	Slug        string
	Name        string
	Category    string
	Description string
	ImageURL    string
	UnitKind    domain.UnitKind
	BasePrice   *decimal.Decimal
	Available   bool
	Variants    []csvVariant
}

// Run parses every row and upserts products with their variants.
func (i *CSVImporter) Run(ctx context.Context) (Result, error) {
	var res Result
	headers, err := i.reader.Read()
	if err != nil {
		return res, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["name"]; !ok {
		return res, errors.New("read headers: missing name column")
	}

	var current *csvProduct
	line := 1
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read row: %w", err)
		}
		line++

		name := pick(record, index, "name")
		variantName := pick(record, index, "variant_name")
		if name == "" && variantName == "" {
			continue
		}

		if name != "" {
			if current != nil {
				if err := i.save(ctx, current, &res); err != nil {
					return res, err
				}
			}
			current, err = parseProduct(record, index, line)
			if err != nil {
				return res, err
			}
		} else if current == nil {
			return res, fmt.Errorf("line %d: variant row before any product", line)
		}

		if variantName != "" {
			v, err := parseVariant(record, index, line, variantName)
			if err != nil {
				return res, err
			}
			current.Variants = append(current.Variants, v)
		}
	}

	if current != nil {
		if err := i.save(ctx, current, &res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (i *CSVImporter) save(ctx context.Context, row *csvProduct, res *Result) error {
	hasVariants := len(row.Variants) > 0
	if !hasVariants && row.BasePrice == nil {
		return fmt.Errorf("line %d: product %q needs base_price or variant rows", row.line, row.Name)
	}

	p := domain.Product{
		Name:        row.Name,
		Slug:        row.Slug,
		Description: row.Description,
		ImageURL:    row.ImageURL,
		HasVariants: hasVariants,
		IsAvailable: row.Available,
		UnitKind:    row.UnitKind,
	}
	if p.Slug == "" {
		p.Slug = slug.Make(row.Name)
	}
	if !hasVariants {
		p.BasePrice = row.BasePrice
	}
	if row.Category != "" {
		id, created, err := i.categoryID(ctx, row.Category)
		if err != nil {
			return fmt.Errorf("line %d: category %q: %w", row.line, row.Category, err)
		}
		if created {
			res.Categories++
		}
		p.CategoryID = &id
	}

	saved, err := i.products.UpsertBySlug(ctx, p)
	if err != nil {
		return fmt.Errorf("upsert product %q: %w", p.Slug, err)
	}
	res.Products++

	for pos, v := range row.Variants {
		_, err := i.products.UpsertVariant(ctx, domain.Variant{
			ProductID:   saved.ID,
			Name:        v.Name,
			Price:       v.Price,
			IsAvailable: v.Available,
			Position:    pos,
		})
		if err != nil {
			return fmt.Errorf("upsert variant %q of %q: %w", v.Name, p.Slug, err)
		}
		res.Variants++
	}
	return nil
}

// categoryID accepts an existing category id or a category name, which is
// upserted by slug once per run.
func (i *CSVImporter) categoryID(ctx context.Context, ref string) (string, bool, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id.String(), false, nil
	}
	key := slug.Make(ref)
	if key == "" {
		return "", false, fmt.Errorf("%w: unusable category name", domain.ErrInvalidInput)
	}
	if id, ok := i.categoryIDs[key]; ok {
		return id, false, nil
	}
	if i.categories == nil {
		return "", false, errors.New("no category writer configured")
	}
	c, err := i.categories.Upsert(ctx, domain.Category{Name: ref, Slug: key})
	if err != nil {
		return "", false, err
	}
	i.categoryIDs[key] = c.ID
	return c.ID, true, nil
}

func parseProduct(record []string, index map[string]int, line int) (*csvProduct, error) {
	p := &csvProduct{
		line:        line,
		Slug:        slug.Make(pick(record, index, "slug")),
		Name:        pick(record, index, "name"),
		Category:    pick(record, index, "category"),
		Description: pick(record, index, "description"),
		ImageURL:    pick(record, index, "image_url"),
		UnitKind:    domain.UnitKind(strings.ToLower(pick(record, index, "unit_kind"))),
	}
	if p.UnitKind == "" {
		p.UnitKind = domain.UnitKindUnit
	}
	if !p.UnitKind.Valid() {
		return nil, fmt.Errorf("line %d: unknown unit_kind %q", line, p.UnitKind)
	}

	available, err := parseBool(pick(record, index, "available"))
	if err != nil {
		return nil, fmt.Errorf("line %d: available: %w", line, err)
	}
	p.Available = available

	if raw := pick(record, index, "base_price"); raw != "" {
		price, err := parsePrice(raw)
		if err != nil {
			return nil, fmt.Errorf("line %d: base_price: %w", line, err)
		}
		p.BasePrice = &price
	}
	return p, nil
}

func parseVariant(record []string, index map[string]int, line int, name string) (csvVariant, error) {
	price, err := parsePrice(pick(record, index, "variant_price"))
	if err != nil {
		return csvVariant{}, fmt.Errorf("line %d: variant_price: %w", line, err)
	}
	available, err := parseBool(pick(record, index, "variant_available"))
	if err != nil {
		return csvVariant{}, fmt.Errorf("line %d: variant_available: %w", line, err)
	}
	return csvVariant{Name: name, Price: price, Available: available}, nil
}

func parsePrice(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, errors.New("missing")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("negative")
	}
	return d, nil
}

// parseBool treats an empty cell as true.
func parseBool(raw string) (bool, error) {
	if raw == "" {
		return true, nil
	}
	switch strings.ToLower(raw) {
	case "si", "sí":
		return true, nil
	case "no":
		return false, nil
	}
	return strconv.ParseBool(raw)
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
