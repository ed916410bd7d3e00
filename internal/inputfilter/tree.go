package inputfilter

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// intParams are coerced to integers before the walk
var intParams = []string{"sCategory", "sContent", "sCustom"}

// FromValues converts form or query values into a walkable tree. Every key
// maps to the list of its values.
func FromValues(values url.Values) map[string]interface{} {
	tree := make(map[string]interface{}, len(values))
	for key, list := range values {
		items := make([]interface{}, len(list))
		for i, v := range list {
			items[i] = v
		}
		tree[key] = items
	}
	return tree
}

// ToValues turns a sanitized tree back into url.Values. Blocked values
// become empty strings.
func ToValues(tree map[string]interface{}) url.Values {
	values := make(url.Values, len(tree))
	for key, value := range tree {
		switch v := value.(type) {
		case []interface{}:
			list := make([]string, len(v))
			for i, item := range v {
				list[i] = scalarString(item)
			}
			values[key] = list
		default:
			values[key] = []string{scalarString(v)}
		}
	}
	return values
}

// FromHeader converts request headers into a walkable tree
func FromHeader(header http.Header) map[string]interface{} {
	return FromValues(url.Values(header))
}

// ToHeader rebuilds headers from a sanitized tree. Blocked values are
// removed and a header without values is removed entirely.
func ToHeader(tree map[string]interface{}) http.Header {
	header := make(http.Header, len(tree))
	for key, value := range tree {
		list, ok := value.([]interface{})
		if !ok {
			list = []interface{}{value}
		}
		for _, item := range list {
			if item == nil {
				continue
			}
			header[key] = append(header[key], scalarString(item))
		}
	}
	return header
}

// FromCookies converts cookies into a walkable tree. With repeated names the
// first cookie wins, matching how they are read.
func FromCookies(cookies []*http.Cookie) map[string]interface{} {
	tree := make(map[string]interface{}, len(cookies))
	for _, c := range cookies {
		if _, ok := tree[c.Name]; ok {
			continue
		}
		tree[c.Name] = c.Value
	}
	return tree
}

// CookieHeader renders a sanitized cookie tree as a Cookie header value with
// names in lexical order. Blocked values become empty strings.
func CookieHeader(tree map[string]interface{}) string {
	names := make([]string, 0, len(tree))
	for name := range tree {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		c := &http.Cookie{Name: name, Value: scalarString(tree[name])}
		if s := c.String(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "; ")
}

// CoerceIntValues replaces the integer parameters of values with their
// leading integer. Empty values are left alone.
func CoerceIntValues(values url.Values) {
	for _, name := range intParams {
		list, ok := values[name]
		if !ok {
			continue
		}
		for i, v := range list {
			if v != "" {
				list[i] = strconv.FormatInt(leadingInt(v), 10)
			}
		}
	}
}

// CoerceIntFields does the same for a decoded JSON object. Non-empty objects
// and lists count as 1, true as 1.
func CoerceIntFields(tree map[string]interface{}) {
	for _, name := range intParams {
		value, ok := tree[name]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case string:
			if v != "" {
				tree[name] = json.Number(strconv.FormatInt(leadingInt(v), 10))
			}
		case json.Number:
			tree[name] = json.Number(strconv.FormatInt(leadingInt(v.String()), 10))
		case bool:
			if v {
				tree[name] = json.Number("1")
			}
		case map[string]interface{}:
			if len(v) > 0 {
				tree[name] = json.Number("1")
			}
		case []interface{}:
			if len(v) > 0 {
				tree[name] = json.Number("1")
			}
		}
	}
}

// leadingInt parses an optional sign and the digits that follow leading
// whitespace. Anything else yields 0; overflow saturates.
func leadingInt(s string) int64 {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)

	negative := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		negative = s[0] == '-'
		s = s[1:]
	}

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}

	digits := s[:end]
	if negative {
		digits = "-" + digits
	}
	// ParseInt returns the saturated value on range errors
	n, _ := strconv.ParseInt(digits, 10, 64)
	return n
}

func scalarString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
