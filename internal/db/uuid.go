package db

import "github.com/google/uuid"

// UUID returns id in canonical form. ok is false when id is not a UUID, in which case
// no row can match and the caller should answer not found without a query.
func UUID(id string) (string, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

// UUIDs keeps the entries of ids that are UUIDs, in canonical form.
func UUIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if canonical, ok := UUID(id); ok {
			out = append(out, canonical)
		}
	}
	return out
}
