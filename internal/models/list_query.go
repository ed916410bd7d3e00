package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

const (
	DefaultListLimit = 10
	SortASC          = "ASC"
	SortDESC         = "DESC"
)

// FilterSpec is one {property, value} predicate as sent by the admin grid
type FilterSpec struct {
	Property string      `json:"property"`
	Value    interface{} `json:"value"`
}

// SortSpec is one {property, direction} sorter
type SortSpec struct {
	Property  string `json:"property"`
	Direction string `json:"direction"`
}

type ListQuery struct {
	Filters []FilterSpec
	Sort    []SortSpec
	Limit   int
	Offset  int
}

// ParseListQuery builds a ListQuery from raw request parameters. Malformed
// filter or sort payloads are ignored and limit/start fall back to 10 and 0.
func ParseListQuery(filter, sort, limit, start string) ListQuery {
	q := ListQuery{Limit: DefaultListLimit}

	if filter != "" {
		var filters []FilterSpec
		if err := json.Unmarshal([]byte(filter), &filters); err == nil {
			q.Filters = filters
		}
	}

	if sort != "" {
		var sorters []SortSpec
		if err := json.Unmarshal([]byte(sort), &sorters); err == nil {
			q.Sort = sorters
		}
	}

	if n, err := strconv.Atoi(limit); err == nil && n >= 0 {
		q.Limit = n
	}
	if n, err := strconv.Atoi(start); err == nil && n >= 0 {
		q.Offset = n
	}

	return q
}

// LastSort returns the sorter that decides the order. Grouped grids send the
// grouping sorter first, so the last entry is the one the user picked.
func (q ListQuery) LastSort() (SortSpec, bool) {
	if len(q.Sort) == 0 {
		return SortSpec{}, false
	}
	s := q.Sort[len(q.Sort)-1]
	s.Direction = strings.ToUpper(s.Direction)
	return s, true
}

// Unlimited returns a copy of q without paging, used by exports
func (q ListQuery) Unlimited() ListQuery {
	q.Limit = -1
	q.Offset = 0
	return q
}
