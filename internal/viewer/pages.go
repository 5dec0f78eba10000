package viewer

import "sort"

// RenderState is the lifecycle of one page.
type RenderState string

const (
	RenderPending  RenderState = "pending"
	RenderRendered RenderState = "rendered"
	RenderFailed   RenderState = "failed"
)

// PageRecord is owned by the page renderer; one per materialized index.
type PageRecord struct {
	Index      int         `json:"index"`
	State      RenderState `json:"state"`
	Reason     string      `json:"reason,omitempty"`
	Dimensions Dimensions  `json:"dimensions"`

	surface []byte // PNG
	ticket  uint64
}

// Surface returns the encoded page, nil unless rendered.
func (r *PageRecord) Surface() []byte {
	return r.surface
}

// PageSet is the indexed record collection.
type PageSet struct {
	records map[int]*PageRecord
	tickets uint64
}

// NewPageSet returns an empty collection.
func NewPageSet() *PageSet {
	return &PageSet{records: make(map[int]*PageRecord)}
}

// Materialize makes the collection hold exactly indices. Existing records
// for kept indices are untouched; new ones start Pending.
// It returns the indices that were newly added.
func (s *PageSet) Materialize(indices []int) []int {
	keep := make(map[int]bool, len(indices))
	var added []int
	for _, idx := range indices {
		keep[idx] = true
		if _, ok := s.records[idx]; !ok {
			s.records[idx] = &PageRecord{Index: idx, State: RenderPending}
			added = append(added, idx)
		}
	}
	for idx := range s.records {
		if !keep[idx] {
			delete(s.records, idx)
		}
	}
	return added
}

// Indices returns the materialized indices in ascending order.
func (s *PageSet) Indices() []int {
	out := make([]int, 0, len(s.records))
	for idx := range s.records {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// Get returns the record for index.
func (s *PageSet) Get(index int) (*PageRecord, bool) {
	r, ok := s.records[index]
	return r, ok
}

// Begin marks index Pending for dims and issues a ticket. Any completion
// carrying an older ticket for that index will be ignored.
func (s *PageSet) Begin(index int, dims Dimensions) (uint64, bool) {
	r, ok := s.records[index]
	if !ok {
		return 0, false
	}
	s.tickets++
	r.ticket = s.tickets
	r.State = RenderPending
	r.Reason = ""
	r.Dimensions = dims
	return r.ticket, true
}

// Complete writes a render result into its own record only. It returns the
// record when the result was applied.
func (s *PageSet) Complete(index int, ticket uint64, surface []byte, err error) (*PageRecord, bool) {
	r, ok := s.records[index]
	if !ok || r.ticket != ticket {
		return nil, false
	}
	if err != nil {
		r.State = RenderFailed
		r.Reason = err.Error()
		r.surface = nil
		return r, true
	}
	r.State = RenderRendered
	r.Reason = ""
	r.surface = surface
	return r, true
}

// Snapshot copies every record in index order.
func (s *PageSet) Snapshot() []PageRecord {
	out := make([]PageRecord, 0, len(s.records))
	for _, idx := range s.Indices() {
		r := *s.records[idx]
		r.surface = nil
		out = append(out, r)
	}
	return out
}

// Reset drops every record.
func (s *PageSet) Reset() {
	s.records = make(map[int]*PageRecord)
}

// Len returns the number of records.
func (s *PageSet) Len() int {
	return len(s.records)
}
