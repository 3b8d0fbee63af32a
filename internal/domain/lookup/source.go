package lookup

import "context"

// Source supplies the externally maintained lookup table. Implementations
// own acquisition (file read, database query); the translation core only
// ever sees the loaded rows.
type Source interface {
	Load(ctx context.Context) ([]Row, error)
}
