package telemetry

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// maxFilterValueLen bounds user-supplied filter values. Device and
// property identifiers in the field are far shorter than this.
const maxFilterValueLen = 256

// tagFilterOrder fixes the predicate order in built queries so the same
// criteria always produce byte-identical Flux, which keeps query logs
// and store-side caches stable.
var tagFilterOrder = []string{"device_id", "building", "location", "property_id"}

// TimeWindow bounds a query in time. Exactly one form applies:
// RelativeDays when positive, the absolute [Start, End) pair when both
// are set, otherwise the last 24 hours.
type TimeWindow struct {
	RelativeDays int
	Start        time.Time
	End          time.Time
}

// QueryCriteria is a structured description of a store read. It keeps
// user input as data until BuildFlux renders it, so nothing upstream
// ever concatenates request values into query text.
type QueryCriteria struct {
	Measurement string

	// TagFilters maps tag name to required value. Only the tag names in
	// tagFilterOrder are accepted; empty values mean "no constraint"
	// and are skipped.
	TagFilters map[string]string

	// FieldFilter pins the query to a single field when non-empty.
	FieldFilter string

	Window TimeWindow

	// Descending selects most-recent-first ordering. Listings use it;
	// history reads want oldest-first for charting.
	Descending bool
}

// NewListCriteria describes a cross-device listing: most recent first.
func NewListCriteria(measurement string) QueryCriteria {
	return QueryCriteria{
		Measurement: measurement,
		TagFilters:  make(map[string]string),
		Descending:  true,
	}
}

// NewHistoryCriteria describes a time-series read: oldest first, the
// order charting clients consume without re-sorting.
func NewHistoryCriteria(measurement string) QueryCriteria {
	return QueryCriteria{
		Measurement: measurement,
		TagFilters:  make(map[string]string),
	}
}

// BuildFlux renders the criteria into Flux against the given bucket.
// Every interpolated value is validated first and the build fails
// closed: a value that cannot be proven safe is rejected outright
// rather than escaped, since readings never legitimately contain
// quotes or control characters.
func (c QueryCriteria) BuildFlux(bucket string) (string, error) {
	if err := validateFilterValue("bucket", bucket); err != nil {
		return "", err
	}
	if err := validateFilterValue("measurement", c.Measurement); err != nil {
		return "", err
	}
	if c.Measurement == "" {
		return "", fmt.Errorf("%w: measurement is required", ErrInvalidCriteria)
	}
	for name := range c.TagFilters {
		if !isAllowedTag(name) {
			return "", fmt.Errorf("%w: unrecognised tag filter %q", ErrInvalidCriteria, name)
		}
	}

	rangeClause, err := c.Window.rangeClause()
	if err != nil {
		return "", err
	}

	predicates := []string{fmt.Sprintf(`r._measurement == %q`, c.Measurement)}
	for _, name := range tagFilterOrder {
		value := strings.TrimSpace(c.TagFilters[name])
		if value == "" {
			continue
		}
		if err := validateFilterValue(name, value); err != nil {
			return "", err
		}
		predicates = append(predicates, fmt.Sprintf(`r.%s == %q`, name, value))
	}
	if field := strings.TrimSpace(c.FieldFilter); field != "" {
		if err := validateFilterValue("field", field); err != nil {
			return "", err
		}
		predicates = append(predicates, fmt.Sprintf(`r._field == %q`, field))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %q)\n", bucket)
	fmt.Fprintf(&b, "  |> %s\n", rangeClause)
	fmt.Fprintf(&b, "  |> filter(fn: (r) => %s)\n", strings.Join(predicates, " and "))
	fmt.Fprintf(&b, `  |> sort(columns: ["_time"], desc: %t)`, c.Descending)
	return b.String(), nil
}

// rangeClause renders the window. Absolute bounds are half-open
// [start, end): the range() stop parameter is exclusive, which is
// exactly the contract callers get.
func (w TimeWindow) rangeClause() (string, error) {
	switch {
	case w.RelativeDays < 0:
		return "", fmt.Errorf("%w: relative window must be positive, got %d days", ErrInvalidCriteria, w.RelativeDays)
	case w.RelativeDays > 0:
		if !w.Start.IsZero() || !w.End.IsZero() {
			return "", fmt.Errorf("%w: relative and absolute windows are mutually exclusive", ErrInvalidCriteria)
		}
		return fmt.Sprintf("range(start: -%dd)", w.RelativeDays), nil
	case !w.Start.IsZero() && !w.End.IsZero():
		if !w.End.After(w.Start) {
			return "", fmt.Errorf("%w: window end must be after start", ErrInvalidCriteria)
		}
		return fmt.Sprintf("range(start: %s, stop: %s)",
			w.Start.UTC().Format(time.RFC3339Nano),
			w.End.UTC().Format(time.RFC3339Nano)), nil
	case !w.Start.IsZero() || !w.End.IsZero():
		return "", fmt.Errorf("%w: absolute window needs both start and end", ErrInvalidCriteria)
	default:
		return "range(start: -24h)", nil
	}
}

func isAllowedTag(name string) bool {
	for _, allowed := range tagFilterOrder {
		if name == allowed {
			return true
		}
	}
	return false
}

// validateFilterValue is the fail-closed gate for interpolated values.
// Quotes, backslashes and control characters have no business in a
// device or property identifier, so their presence means either a bug
// upstream or someone probing the query layer. Either way: reject.
func validateFilterValue(name, value string) error {
	if len(value) > maxFilterValueLen {
		return fmt.Errorf("%w: %s value exceeds %d characters", ErrInvalidCriteria, name, maxFilterValueLen)
	}
	for _, r := range value {
		if r == '"' || r == '\'' || r == '\\' || r == unicode.ReplacementChar || unicode.IsControl(r) {
			return fmt.Errorf("%w: %s value contains forbidden character", ErrInvalidCriteria, name)
		}
	}
	return nil
}
