package corpus

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/errors"
)

const (
	maxTitleLength       = 1024
	maxDescriptionLength = 1 << 20
)

// ValidationError lists every problem found in a collection, keyed by the
// offending document and field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return "invalid corpus: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidParameter
}

// Validate checks ids and field lengths before a collection is indexed.
// Blank descriptions are allowed; such documents simply produce no chunks.
func Validate(docs []Document) error {
	errs := make(map[string]string)
	for i, d := range docs {
		key := fmt.Sprintf("movies[%d]", i)
		if d.ID < 0 {
			errs[key+".id"] = fmt.Sprintf("id must not be negative, got %d", d.ID)
		}
		if len(d.Title) > maxTitleLength {
			errs[key+".title"] = fmt.Sprintf("title must be at most %d bytes", maxTitleLength)
		}
		if len(d.Description) > maxDescriptionLength {
			errs[key+".description"] = fmt.Sprintf("description must be at most %d bytes", maxDescriptionLength)
		}
		if strings.TrimSpace(d.Title) == "" && strings.TrimSpace(d.Description) == "" {
			errs[key] = "title and description are both empty"
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
