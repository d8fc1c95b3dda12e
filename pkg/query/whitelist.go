package query

// FieldWhitelist answers whether a field name may appear in a query against
// a given stream. Implementations are supplied by the embedding application;
// this package only consumes the verdict.
type FieldWhitelist interface {
	IsFieldAllowed(stream, field string) bool
}

// MapWhitelist is a static, map-backed FieldWhitelist.
type MapWhitelist map[string]map[string]struct{}

// NewMapWhitelist builds a whitelist from stream -> allowed field names.
func NewMapWhitelist(fields map[string][]string) MapWhitelist {
	wl := make(MapWhitelist, len(fields))
	for stream, names := range fields {
		set := make(map[string]struct{}, len(names))
		for _, n := range names {
			set[n] = struct{}{}
		}
		wl[stream] = set
	}
	return wl
}

// IsFieldAllowed implements FieldWhitelist.
func (wl MapWhitelist) IsFieldAllowed(stream, field string) bool {
	set, ok := wl[stream]
	if !ok {
		return false
	}
	_, ok = set[field]
	return ok
}

// AllowAll permits every field on every stream. Useful for plain queries
// where the backend, not the client, owns field validation.
type AllowAll struct{}

// IsFieldAllowed implements FieldWhitelist.
func (AllowAll) IsFieldAllowed(string, string) bool { return true }
