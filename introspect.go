package sqlsession

import "context"

// Schema introspection helpers. Each issues one fixed catalog query through
// the session's All path and projects the single name column, preserving
// row order.

// TableNames lists the tables in the public schema.
func (s *Session) TableNames(ctx context.Context) ([]string, error) {
	return s.names(ctx,
		"SELECT tablename AS name FROM pg_catalog.pg_tables WHERE schemaname = 'public' ORDER BY tablename")
}

// ViewNames lists the views in the public schema.
func (s *Session) ViewNames(ctx context.Context) ([]string, error) {
	return s.names(ctx,
		"SELECT viewname AS name FROM pg_catalog.pg_views WHERE schemaname = 'public' ORDER BY viewname")
}

// FunctionNames lists the functions in the public schema.
func (s *Session) FunctionNames(ctx context.Context) ([]string, error) {
	return s.names(ctx,
		"SELECT p.proname AS name FROM pg_catalog.pg_proc p JOIN pg_catalog.pg_namespace n ON n.oid = p.pronamespace WHERE n.nspname = 'public' ORDER BY p.proname")
}

// TriggerNames lists user-defined triggers.
func (s *Session) TriggerNames(ctx context.Context) ([]string, error) {
	return s.names(ctx,
		"SELECT tgname AS name FROM pg_catalog.pg_trigger WHERE NOT tgisinternal ORDER BY tgname")
}

// MaterializedViewNames lists the materialized views in the public schema.
func (s *Session) MaterializedViewNames(ctx context.Context) ([]string, error) {
	return s.names(ctx,
		"SELECT matviewname AS name FROM pg_catalog.pg_matviews WHERE schemaname = 'public' ORDER BY matviewname")
}

// IndexNames lists the indices on a table.
func (s *Session) IndexNames(ctx context.Context, table string) ([]string, error) {
	return s.names(ctx,
		"SELECT indexname AS name FROM pg_catalog.pg_indexes WHERE tablename = ? ORDER BY indexname", table)
}

func (s *Session) names(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.All(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		if name, ok := row["name"].(string); ok {
			names = append(names, name)
		}
	}
	return names, nil
}
