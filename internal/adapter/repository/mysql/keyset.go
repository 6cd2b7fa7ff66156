package mysql

import (
	"lendledger/pkg/cursor"

	"gorm.io/gorm"
)

// keyset applies (timeCol, idCol) ordering and the after-cursor predicate.
func keyset(q *gorm.DB, timeCol, idCol string, page cursor.Page) *gorm.DB {
	op, dir := ">", "ASC"
	if page.Dir == cursor.Descending {
		op, dir = "<", "DESC"
	}
	if page.After != nil {
		q = q.Where("(("+timeCol+" "+op+" ?) OR ("+timeCol+" = ? AND "+idCol+" "+op+" ?))",
			page.After.CreatedAt, page.After.CreatedAt, page.After.ID)
	}
	return q.Order(timeCol + " " + dir).Order(idCol + " " + dir).Limit(page.Limit + 1)
}
