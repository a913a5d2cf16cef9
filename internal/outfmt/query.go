package outfmt

import (
	"io"

	"github.com/staffline/staffline-api/internal/filter"
)

// WriteJSONFiltered writes v as JSON after applying an optional jq query.
func WriteJSONFiltered(w io.Writer, v any, query string, compact bool) error {
	if query == "" {
		return WriteJSON(w, v, compact)
	}
	data, err := filter.Normalize(v)
	if err != nil {
		return err
	}
	result, err := filter.Apply(data, query)
	if err != nil {
		return err
	}
	return WriteJSON(w, result, compact)
}
