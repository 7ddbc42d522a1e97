package store

// RecordSet is a chronological sequence of samples together with
// incrementally maintained statistics over its non-gap values.
type RecordSet struct {
	Samples []Sample
	Stats   Statistics
}

// NewRecordSet returns an empty record set.
func NewRecordSet() RecordSet {
	return RecordSet{Stats: newStatistics()}
}

// Add appends a single sample and updates the statistics.
func (r *RecordSet) Add(s Sample) {
	r.Samples = append(r.Samples, s)
	r.Stats.Observe(s.Timestamp, s.Temperature, s.Humidity)
}

// Append appends another record set, in order, and merges its statistics.
func (r *RecordSet) Append(other RecordSet) {
	r.Samples = append(r.Samples, other.Samples...)
	r.Stats.Merge(other.Stats)
}

// Len returns the number of samples in the set.
func (r RecordSet) Len() int {
	return len(r.Samples)
}

// Empty reports whether the set holds no samples.
func (r RecordSet) Empty() bool {
	return len(r.Samples) == 0
}
