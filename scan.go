package sqlsession

import (
	"context"
	"fmt"
	"reflect"
	"unicode"
)

// Get executes the query and decodes the first row into T. It returns nil
// without error when no rows match.
func Get[T any](ctx context.Context, s *Session, query string, args ...any) (*T, error) {
	row, err := s.Get(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return decodeRow[T](row)
}

// All executes the query and decodes every row into a slice of T.
func All[T any](ctx context.Context, s *Session, query string, args ...any) ([]T, error) {
	rows, err := s.All(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		m, err := decodeRow[T](row)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, nil
}

// decodeRow maps columns onto struct fields by `db` tag, falling back to the
// snake_case form of the field name. Missing columns leave the zero value.
func decodeRow[T any](row Row) (*T, error) {
	model := new(T)
	v := reflect.ValueOf(model).Elem()
	t := v.Type()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("sqlsession: decode target must be a struct, got %s", t.Kind())
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		col := field.Tag.Get("db")
		if col == "-" {
			continue
		}
		if col == "" {
			col = snakeCase(field.Name)
		}
		val, ok := row[col]
		if !ok || val == nil {
			continue
		}
		if err := assign(v.Field(i), val); err != nil {
			return nil, fmt.Errorf("sqlsession: column %q: %w", col, err)
		}
	}

	return model, nil
}

func assign(dst reflect.Value, val any) error {
	src := reflect.ValueOf(val)
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}
	if src.Type().ConvertibleTo(dst.Type()) {
		dst.Set(src.Convert(dst.Type()))
		return nil
	}
	// Pointer fields take the value one level in
	if dst.Kind() == reflect.Ptr && src.Type().ConvertibleTo(dst.Type().Elem()) {
		p := reflect.New(dst.Type().Elem())
		p.Elem().Set(src.Convert(dst.Type().Elem()))
		dst.Set(p)
		return nil
	}
	return fmt.Errorf("cannot assign %s to %s", src.Type(), dst.Type())
}

func snakeCase(name string) string {
	var out []rune
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				out = append(out, '_')
			}
			out = append(out, unicode.ToLower(r))
		} else {
			out = append(out, r)
		}
	}
	return string(out)
}
