package persistence

import (
	"strings"

	"gorm.io/gorm"

	"github.com/shulepay/backend/internal/domain/shared"
)

// applyOrder applies ordering from the filter, falling back to the given
// default. The order column comes from handler-level validation, never raw
// user input.
func applyOrder(query *gorm.DB, filter shared.Filter, defaultOrder string) *gorm.DB {
	if filter.OrderBy == "" {
		return query.Order(defaultOrder)
	}
	dir := "ASC"
	if strings.ToLower(filter.OrderDir) == "desc" {
		dir = "DESC"
	}
	return query.Order(filter.OrderBy + " " + dir)
}

// applyPagination applies page/page-size limits from the filter
func applyPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	return query
}
