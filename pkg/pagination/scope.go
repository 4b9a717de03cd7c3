package pagination

import (
	"gorm.io/gorm"
)

// Scope narrows q to rows after params.Cursor and orders it newest first.
// table qualifies the columns when q joins other tables; pass "" otherwise.
// The query asks for one row more than the returned limit so Trim can tell
// whether another page follows.
func Scope(q *gorm.DB, params Params, table string) (*gorm.DB, int, error) {
	cursor, err := ParseCursor(params.Cursor)
	if err != nil {
		return nil, 0, err
	}
	createdAt, id := "created_at", "id"
	if table != "" {
		createdAt, id = table+".created_at", table+".id"
	}
	if cursor != nil {
		q = q.Where("("+createdAt+" < ? OR ("+createdAt+" = ? AND "+id+" < ?))",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	limit := NormalizeLimit(params.Limit)
	return q.Order(createdAt + " DESC").Order(id + " DESC").Limit(limit + 1), limit, nil
}

// Trim drops the look-ahead row fetched by Scope and returns the cursor for
// the next page, or nil on the last page.
func Trim[T any](rows []T, limit int, key func(T) Cursor) ([]T, *Cursor) {
	if len(rows) <= limit {
		return rows, nil
	}
	next := key(rows[limit-1])
	return rows[:limit], &next
}
