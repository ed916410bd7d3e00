package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// RecipientGroup is the flat representation of one selected group as used by
// the admin API. Customer segments carry a groupkey, manual groups an
// internalId.
type RecipientGroup struct {
	InternalID      *int64  `json:"internalId" mapstructure:"internalId"`
	GroupKey        *string `json:"groupkey" mapstructure:"groupkey"`
	Name            string  `json:"name" mapstructure:"name"`
	Number          int     `json:"number" mapstructure:"number"`
	IsCustomerGroup bool    `json:"isCustomerGroup" mapstructure:"isCustomerGroup"`
}

// GroupSelection is what a campaign stores about its target groups:
// customer segment key -> count and manual group id -> count.
type GroupSelection struct {
	Customer map[string]int
	Manual   map[int64]int
}

// NewGroupSelection partitions a flat selection list by IsCustomerGroup.
// Entries without their identifying key are ignored; a repeated key keeps
// the later count.
func NewGroupSelection(groups []RecipientGroup) GroupSelection {
	sel := GroupSelection{
		Customer: make(map[string]int),
		Manual:   make(map[int64]int),
	}

	for _, g := range groups {
		if g.IsCustomerGroup {
			if g.GroupKey == nil || *g.GroupKey == "" {
				continue
			}
			sel.Customer[*g.GroupKey] = g.Number
			continue
		}
		if g.InternalID == nil {
			continue
		}
		sel.Manual[*g.InternalID] = g.Number
	}

	return sel
}

// Flatten expands the selection back into flat records, customer segments
// first, each part ordered by key.
func (s GroupSelection) Flatten() []RecipientGroup {
	flat := make([]RecipientGroup, 0, len(s.Customer)+len(s.Manual))

	keys := make([]string, 0, len(s.Customer))
	for key := range s.Customer {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		groupKey := key
		flat = append(flat, RecipientGroup{
			GroupKey:        &groupKey,
			Number:          s.Customer[key],
			IsCustomerGroup: true,
		})
	}

	ids := make([]int64, 0, len(s.Manual))
	for id := range s.Manual {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		internalID := id
		flat = append(flat, RecipientGroup{
			InternalID: &internalID,
			Number:     s.Manual[id],
		})
	}

	return flat
}

// Encode serializes the selection as a two element array of mappings
func (s GroupSelection) Encode() ([]byte, error) {
	customer := s.Customer
	if customer == nil {
		customer = map[string]int{}
	}
	manual := make(map[string]int, len(s.Manual))
	for id, n := range s.Manual {
		manual[strconv.FormatInt(id, 10)] = n
	}
	return json.Marshal([2]map[string]int{customer, manual})
}

// DecodeGroupSelection parses the stored representation. Empty input yields
// an empty selection.
func DecodeGroupSelection(data []byte) (GroupSelection, error) {
	sel := GroupSelection{
		Customer: make(map[string]int),
		Manual:   make(map[int64]int),
	}
	if len(data) == 0 {
		return sel, nil
	}

	var pair []map[string]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return sel, fmt.Errorf("decode group selection: %w", err)
	}

	if len(pair) > 0 {
		for key, n := range pair[0] {
			sel.Customer[key] = n
		}
	}
	if len(pair) > 1 {
		for key, n := range pair[1] {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return sel, fmt.Errorf("decode group selection: manual group id %q: %w", key, err)
			}
			sel.Manual[id] = n
		}
	}

	return sel, nil
}

// Value implements driver.Valuer
func (s GroupSelection) Value() (driver.Value, error) {
	data, err := s.Encode()
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (s *GroupSelection) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("group selection: unsupported type %T", src)
	}

	sel, err := DecodeGroupSelection(data)
	if err != nil {
		return err
	}
	*s = sel
	return nil
}

// MarshalJSON renders the flat form the admin UI consumes
func (s GroupSelection) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Flatten())
}
