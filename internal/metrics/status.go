package metrics

import "sort"

// StatusBucket is one aggregated response-status row.
type StatusBucket struct {
	Code  int   `json:"code"`
	Count int64 `json:"count"`
}

// FlattenStatusCodes converts a code->count map into rows sorted by
// descending count, then ascending code for stability.
func FlattenStatusCodes(codes map[int]int64) []StatusBucket {
	if len(codes) == 0 {
		return nil
	}
	rows := make([]StatusBucket, 0, len(codes))
	for code, count := range codes {
		rows = append(rows, StatusBucket{Code: code, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Code < rows[j].Code
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}

// ErrorBucket is one aggregated failure row, keyed by error type.
type ErrorBucket struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// FlattenErrors converts a type->count map into rows sorted by
// descending count, then type name for stability.
func FlattenErrors(errs map[string]int) []ErrorBucket {
	if len(errs) == 0 {
		return nil
	}
	rows := make([]ErrorBucket, 0, len(errs))
	for typ, count := range errs {
		rows = append(rows, ErrorBucket{Type: typ, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Type < rows[j].Type
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
