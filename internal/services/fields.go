package services

import (
	"github.com/alimgiray/newsletter-manager/internal/models"
	"github.com/mitchellh/mapstructure"
)

// Fields is the merged parameter map of a request: route params, query
// string and body
type Fields map[string]interface{}

// decodeValue decodes input onto out with weak typing. Keys missing from
// input leave out untouched, so a pre-filled struct acts as the default.
func decodeValue(input interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

func decodeFields(fields Fields, out interface{}) error {
	return decodeValue(map[string]interface{}(fields), out)
}

// parseID decodes a single id value. nil stays nil.
func parseID(raw interface{}) (*int64, error) {
	if raw == nil {
		return nil, nil
	}
	var id int64
	if err := decodeValue(raw, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

// optionalID reads the "id" field. A missing or null id is nil.
func optionalID(fields Fields) (*int64, error) {
	id, err := parseID(fields["id"])
	if err != nil {
		return nil, &models.ValidationError{Field: "id", Message: "Invalid ID"}
	}
	return id, nil
}

// idList reads a batch of ids from fields[listKey], a list of objects
// carrying idKey. Without the list the single idKey field is used. Empty,
// zero and malformed ids are skipped; an explicitly empty list is an error.
func idList(fields Fields, listKey, idKey string) ([]int64, error) {
	raw, ok := fields[listKey]
	if !ok || raw == nil {
		raw = []interface{}{map[string]interface{}{idKey: fields[idKey]}}
	}

	var entries []map[string]interface{}
	if err := decodeValue(raw, &entries); err != nil {
		return nil, &models.ValidationError{Field: listKey, Message: "Invalid ID list"}
	}
	if len(entries) == 0 {
		return nil, &models.ValidationError{Field: listKey, Message: "No ID passed"}
	}

	ids := make([]int64, 0, len(entries))
	for _, entry := range entries {
		id, err := parseID(entry[idKey])
		if err != nil || id == nil || *id == 0 {
			continue
		}
		ids = append(ids, *id)
	}

	return ids, nil
}
