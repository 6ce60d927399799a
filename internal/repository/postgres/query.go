package postgres

import (
	"context"
	"fmt"
	"strings"

	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/samber/lo"
)

// listQuery accumulates tenant-scoped WHERE clauses and named parameters
type listQuery struct {
	where  []string
	params map[string]interface{}
}

func newListQuery(ctx context.Context) *listQuery {
	return &listQuery{
		where: []string{"tenant_id = :tenant_id"},
		params: map[string]interface{}{
			"tenant_id": types.GetTenantID(ctx),
		},
	}
}

func (q *listQuery) and(cond string, key string, value interface{}) {
	q.where = append(q.where, cond)
	if key != "" {
		q.params[key] = value
	}
}

// status applies the soft delete filter carried by the query filter
func (q *listQuery) status(f *types.QueryFilter) {
	if f == nil || f.Status == nil {
		q.and("status = :status", "status", types.StatusPublished)
		return
	}
	q.and("status = :status", "status", *f.Status)
}

func (q *listQuery) whereClause() string {
	return " WHERE " + strings.Join(q.where, " AND ")
}

// page appends ORDER BY, LIMIT and OFFSET. Sort columns are whitelisted.
func (q *listQuery) page(f *types.QueryFilter, sortable []string) string {
	if f == nil {
		f = types.NewNoLimitQueryFilter()
	}
	sort := f.GetSort()
	if !lo.Contains(sortable, sort) {
		sort = types.FILTER_DEFAULT_SORT
	}
	order := "DESC"
	if f.GetOrder() == types.OrderAsc {
		order = "ASC"
	}
	clause := fmt.Sprintf(" ORDER BY %s %s, id %s", sort, order, order)
	if !f.IsUnlimited() {
		clause += " LIMIT :limit OFFSET :offset"
		q.params["limit"] = f.GetLimit()
		q.params["offset"] = f.GetOffset()
	}
	return clause
}

func notFound(entity, id string) error {
	return ierr.NewErrorf("%s not found", entity).
		WithHintf("%s %s was not found", entity, id).
		WithReportableDetails(map[string]any{
			"id": id,
		}).
		Mark(ierr.ErrNotFound)
}

func stringsOf[T ~string](values []T) []string {
	return lo.Map(values, func(v T, _ int) string { return string(v) })
}
