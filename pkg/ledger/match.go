package ledger

import "sort"

// Matches reports whether e satisfies the filters in q. Pagination and sort
// fields are ignored.
func (q *Query) Matches(e *Entry) bool {
	if q == nil {
		return true
	}
	if q.StartTime != nil && e.Timestamp.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && e.Timestamp.After(*q.EndTime) {
		return false
	}
	if q.Operation != "" && e.Operation != q.Operation {
		return false
	}
	if q.Outcome != "" && e.Outcome != q.Outcome {
		return false
	}
	return true
}

// Ascending reports whether results should be oldest first.
func (q *Query) Ascending() bool {
	return q != nil && (q.SortOrder == "asc" || q.SortOrder == "ASC")
}

// Page sorts entries by timestamp in the order q asks for and applies its
// offset and limit.
func (q *Query) Page(entries []*Entry) []*Entry {
	asc := q.Ascending()
	sort.SliceStable(entries, func(i, j int) bool {
		if asc {
			return entries[i].Timestamp.Before(entries[j].Timestamp)
		}
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	if q == nil {
		return entries
	}
	if q.Offset > 0 {
		if q.Offset >= len(entries) {
			return []*Entry{}
		}
		entries = entries[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(entries) {
		entries = entries[:q.Limit]
	}
	return entries
}
