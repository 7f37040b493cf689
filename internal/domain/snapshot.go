package domain

// Snapshot is the durable image of the candidate store.
type Snapshot struct {
	// Records are kept in encounter order.
	Records     []Record
	NextPost    string
	LastPostDay int
	// NoSubAlertDay is the day-of-month of the last empty-pipeline alert, 0 when never sent.
	NoSubAlertDay int
}
