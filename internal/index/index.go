package index

// EntityIndex defines the interface for registry indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type EntityIndex interface {
	UpsertEntity(row EntityRow, link *LinkRow) error
	DeleteEntity(id string) error
	GetChecksum(id string) (string, error)
	AllChecksums() (map[string]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	Backlinks(target string) ([]LinkRow, error)
	Outlinks(source string) ([]LinkRow, error)
	Count() (int, error)
	Close() error
}

// Verify *DB satisfies EntityIndex at compile time.
var _ EntityIndex = (*DB)(nil)
