// Package filter turns storefront listing query strings into product queries.
//
// Only whitelisted fields, operators and sort keys reach the database.
// Anything malformed is dropped instead of rejected, so a bad link never
// breaks a listing page.
package filter

import (
	"errors"  // Range errors from page parsing
	"math"    // Page bound
	"net/url" // Query string values
	"regexp"  // Filter key matching
	"sort"    // Deterministic key order
	"strconv" // Numeric filter values
	"strings" // String manipulation

	"storefront_api/internal/domain" // Category model

	"gorm.io/gorm" // GORM ORM library
)

const (
	// PageSize is the number of products per listing page
	PageSize = 12
	// MaxPage keeps the row offset within a 32-bit signed integer
	MaxPage = math.MaxInt32 / PageSize
)

// Field is a filterable product attribute
type Field string

const (
	FieldPrice      Field = "price"
	FieldRating     Field = "rating"
	FieldCategory   Field = "category"
	FieldInStock    Field = "inStock"
	FieldOutOfStock Field = "outOfStock"
)

// Operator is a comparison accepted in filters[field][$op]
type Operator string

const (
	OpGte      Operator = "gte"
	OpLte      Operator = "lte"
	OpGt       Operator = "gt"
	OpLt       Operator = "lt"
	OpEquals   Operator = "equals"
	OpContains Operator = "contains"
)

// SortKey selects the listing order
type SortKey string

const (
	DefaultSort SortKey = "defaultSort"
	TitleAsc    SortKey = "titleAsc"
	TitleDesc   SortKey = "titleDesc"
	LowPrice    SortKey = "lowPrice"
	HighPrice   SortKey = "highPrice"
)

var (
	filterKey = regexp.MustCompile(`^filters\[([A-Za-z]+)\]\[\$([A-Za-z]+)\]$`)

	numericOperators = map[Operator]string{
		OpGte:    ">=",
		OpLte:    "<=",
		OpGt:     ">",
		OpLt:     "<",
		OpEquals: "=",
	}

	// outOfStock compares a derived 0/1 flag rather than a stored column
	numericColumns = map[Field]string{
		FieldPrice:      "price",
		FieldRating:     "rating",
		FieldInStock:    "in_stock",
		FieldOutOfStock: "CASE WHEN in_stock = 0 THEN 1 ELSE 0 END",
	}

	orderClauses = map[SortKey]string{
		DefaultSort: "id asc",
		TitleAsc:    "title asc",
		TitleDesc:   "title desc",
		LowPrice:    "price asc",
		HighPrice:   "price desc",
	}

	categorySeparators = strings.NewReplacer("-", " ", "_", " ")
)

// Condition is one whitelisted numeric comparison
type Condition struct {
	Field    Field
	Operator Operator
	Value    int
}

// ProductQuery is the sanitized form of a listing request
type ProductQuery struct {
	Conditions []Condition
	Category   string // normalized category name, empty when unfiltered
	Sort       SortKey
	Page       int
}

// Parse builds a ProductQuery from listing query parameters.
// Keys are visited in sorted order so the result is deterministic; several
// operators on one numeric field all apply.
func Parse(values url.Values) ProductQuery {
	q := ProductQuery{Sort: DefaultSort, Page: 1}

	keys := make([]string, 0, len(values)) // Sorted below for a stable result
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		m := filterKey.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		field, op := Field(m[1]), Operator(m[2])
		raw := strings.TrimSpace(values.Get(key)) // First value wins

		switch field {
		case FieldCategory:
			// contains is accepted but still means exact equality
			if op != OpEquals && op != OpContains {
				continue
			}
			if name := NormalizeCategoryName(raw); name != "" {
				q.Category = name
			}
		case FieldPrice, FieldRating, FieldInStock, FieldOutOfStock:
			if _, ok := numericOperators[op]; !ok {
				continue
			}
			n, err := strconv.Atoi(raw)
			if err != nil {
				continue // Not a number, drop it
			}
			q.Conditions = append(q.Conditions, Condition{Field: field, Operator: op, Value: n})
		}
	}

	if cond, ok := stockModeFromCheckboxes(values); ok && !q.HasCondition(FieldInStock) {
		q.Conditions = append(q.Conditions, cond)
	}

	sortValue := values.Get("sort")
	if sortValue == "" { // Older links nest the sort under filters
		sortValue = values.Get("filters[sort]")
	}
	if _, ok := orderClauses[SortKey(sortValue)]; ok {
		q.Sort = SortKey(sortValue)
	}

	q.Page = parsePage(values.Get("page"))
	return q
}

// parsePage falls back to the first page on garbage and clamps huge pages
// to MaxPage so the offset cannot overflow.
func parsePage(raw string) int {
	raw = strings.TrimSpace(raw)
	page, err := strconv.Atoi(raw)
	switch {
	case errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(raw, "-"):
		return MaxPage
	case err != nil || page < 1:
		return 1
	case page > MaxPage:
		return MaxPage
	}
	return page
}

// HasCondition reports whether any condition targets field
func (q ProductQuery) HasCondition(field Field) bool {
	for _, c := range q.Conditions {
		if c.Field == field {
			return true
		}
	}
	return false
}

// Offset is the number of rows skipped before the current page
func (q ProductQuery) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * PageSize
}

// Apply adds the query to tx. categoryIDs restricts the listing to known
// categories and must not be empty; callers short-circuit that case.
func (q ProductQuery) Apply(tx *gorm.DB, categoryIDs []uint) *gorm.DB {
	tx = tx.Where("category_id IN ?", categoryIDs)
	for _, c := range q.Conditions {
		column, okCol := numericColumns[c.Field]
		op, okOp := numericOperators[c.Operator]
		if !okCol || !okOp {
			continue // Hand-built queries may carry unknown pairs
		}
		tx = tx.Where(column+" "+op+" ?", c.Value)
	}
	order, ok := orderClauses[q.Sort]
	if !ok {
		order = orderClauses[DefaultSort]
	}
	return tx.Order(order).Limit(PageSize).Offset(q.Offset())
}

// StockMode folds the storefront's in-stock and out-of-stock checkboxes into
// a single inStock comparison.
func StockMode(inStock, outOfStock bool) Condition {
	switch {
	case inStock && outOfStock:
		return Condition{Field: FieldInStock, Operator: OpGte, Value: 0}
	case inStock:
		return Condition{Field: FieldInStock, Operator: OpGte, Value: 1}
	case outOfStock:
		return Condition{Field: FieldInStock, Operator: OpEquals, Value: 0}
	default:
		// nothing ticked, nothing listed
		return Condition{Field: FieldInStock, Operator: OpLt, Value: 0}
	}
}

func stockModeFromCheckboxes(values url.Values) (Condition, bool) {
	_, hasIn := values["inStock"]
	_, hasOut := values["outOfStock"]
	if !hasIn && !hasOut {
		return Condition{}, false
	}
	in, errIn := parseCheckbox(values.Get("inStock"))
	out, errOut := parseCheckbox(values.Get("outOfStock"))
	if (hasIn && errIn != nil) || (hasOut && errOut != nil) {
		return Condition{}, false
	}
	return StockMode(in, out), true
}

func parseCheckbox(raw string) (bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}

// NormalizeCategoryName makes names and slugs comparable:
// "  Bazin-Riche " and "bazin riche" both become "bazin riche".
func NormalizeCategoryName(name string) string {
	name = categorySeparators.Replace(strings.ToLower(strings.TrimSpace(name)))
	return strings.Join(strings.Fields(name), " ")
}

// ResolveCategoryIDs returns the IDs of categories matching the normalized
// name, or every ID when name is empty.
func ResolveCategoryIDs(categories []domain.Category, name string) []uint {
	ids := make([]uint, 0, len(categories))
	for _, c := range categories {
		if name == "" || NormalizeCategoryName(c.Name) == name {
			ids = append(ids, c.ID)
		}
	}
	return ids
}
