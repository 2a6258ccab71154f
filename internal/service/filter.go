package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/meqhh/simpat-api/internal/apperror"
	"github.com/meqhh/simpat-api/internal/models"
)

// filterBuilder accumulates predicates with their bound arguments. Values are
// only ever passed as placeholders.
type filterBuilder struct {
	clauses []string
	args    []any
}

func (b *filterBuilder) add(clause string, args ...any) {
	b.clauses = append(b.clauses, clause)
	b.args = append(b.args, args...)
}

func (b *filterBuilder) build() (string, []any) {
	return strings.Join(b.clauses, " AND "), b.args
}

func buildListFilter(filter ListQCChecksFilter) (string, []any, error) {
	var b filterBuilder
	b.add("qc.is_active = ?", true)

	if filter.Status != "" {
		b.add("qc.status = ?", filter.Status)
	}
	if filter.DateFrom != "" {
		from, err := parseDate(filter.DateFrom, "date_from")
		if err != nil {
			return "", nil, err
		}
		b.add("qc.production_date >= ?", from)
	}
	if filter.DateTo != "" {
		to, err := parseDate(filter.DateTo, "date_to")
		if err != nil {
			return "", nil, err
		}
		b.add("qc.production_date <= ?", to)
	}
	if filter.PartCode != "" {
		b.add("qc.part_code ILIKE ?", "%"+escapeLike(filter.PartCode)+"%")
	}
	if filter.DataFrom != "" {
		b.add("qc.data_from = ?", filter.DataFrom)
	}

	where, args := b.build()
	return where, args, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}

// parseDate accepts YYYY-MM-DD or an RFC 3339 timestamp. A timestamp keeps
// only its calendar date as written, without shifting it to UTC.
func parseDate(raw string, field string) (time.Time, error) {
	if parsed, err := time.Parse(models.ProductionDateLayout, raw); err == nil {
		return parsed, nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		year, month, day := parsed.Date()
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, apperror.New(apperror.CodeValidation, fmt.Sprintf("%s must be in YYYY-MM-DD format", field))
}
