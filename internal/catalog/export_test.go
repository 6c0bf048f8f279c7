package catalog

import "context"

// Truncate empties the table between integration subtests.
func (s *SQLStore) Truncate(ctx context.Context) error {
	q := `DELETE FROM products`
	if s.d.name == postgresDialect.name {
		q = `TRUNCATE products RESTART IDENTITY`
	}
	_, err := s.db.ExecContext(ctx, q)
	return err
}

var SQLiteDSN = sqliteDSN
