package inputfilter

import (
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

const (
	sqlPattern = `s_core_|s_order_|s_user|benchmark.*\(|(?:insert|replace).+into|update.+set|(?:delete|select).+from|(?:alter|rename|create|drop|truncate).+(?:database|table)|union.+select`
	xssPattern = `javascript:|src\s*=|on[a-z]+\s*=|style\s*=`
	rfiPattern = `\.\./|\x00`

	// DefaultMaxDepth bounds the nesting the walk follows
	DefaultMaxDepth = 32

	// maxUnescapeRounds bounds the strip/unescape loop for values that keep
	// producing markup when their entities are decoded
	maxUnescapeRounds = 8
)

var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Filter strips markup from request data and blanks out values that match
// the configured blocklist. It is immutable once built and safe for
// concurrent use.
type Filter struct {
	pattern  *regexp.Regexp
	policy   *bluemonday.Policy
	maxDepth int
}

// New compiles the enabled sub-patterns into one case-insensitive, multiline,
// dot-all expression. An own filter that does not compile is an error.
func New(settings Settings, maxDepth int) (*Filter, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	var parts []string
	if settings.SQLProtection {
		parts = append(parts, sqlPattern)
	}
	if settings.XSSProtection {
		parts = append(parts, xssPattern)
	}
	if settings.RFIProtection {
		parts = append(parts, rfiPattern)
	}
	if own := strings.TrimSpace(settings.OwnFilter); own != "" {
		if _, err := regexp.Compile(own); err != nil {
			return nil, fmt.Errorf("own filter: %w", err)
		}
		parts = append(parts, own)
	}

	f := &Filter{
		policy:   bluemonday.StrictPolicy(),
		maxDepth: maxDepth,
	}
	if len(parts) == 0 {
		return f, nil
	}

	pattern, err := regexp.Compile("(?msi)" + strings.Join(parts, "|"))
	if err != nil {
		return nil, err
	}
	f.pattern = pattern

	return f, nil
}

// Enabled reports whether at least one sub-pattern is active. A disabled
// filter leaves requests untouched.
func (f *Filter) Enabled() bool {
	return f != nil && f.pattern != nil
}

// Pattern returns the combined expression, empty when disabled
func (f *Filter) Pattern() string {
	if !f.Enabled() {
		return ""
	}
	return f.pattern.String()
}

// Strip removes all tags. Entities are decoded again after each pass so
// encoded markup cannot survive; if that does not settle the escaped form is
// returned. Values the tokenizer only changed by normalizing line endings
// are returned as given.
func (f *Filter) Strip(s string) string {
	stripped := f.strip(s)
	if stripped != s && stripped == newlines.Replace(s) {
		return s
	}
	return stripped
}

func (f *Filter) strip(s string) string {
	current := s
	for i := 0; i < maxUnescapeRounds; i++ {
		next := html.UnescapeString(f.policy.Sanitize(current))
		if next == current {
			return next
		}
		current = next
	}
	return f.policy.Sanitize(current)
}

// FilterValue strips s and tests it against the blocklist. Empty strings are
// returned as they are.
func (f *Filter) FilterValue(s string) (string, bool) {
	if s == "" {
		return s, false
	}
	stripped := f.Strip(s)
	if f.pattern.MatchString(stripped) {
		return "", true
	}
	return stripped, false
}

// Report counts what a walk removed
type Report struct {
	Values     int
	Keys       int
	Collisions int
	Depth      int
}

func (r *Report) Add(other Report) {
	r.Values += other.Values
	r.Keys += other.Keys
	r.Collisions += other.Collisions
	r.Depth += other.Depth
}

func (r Report) Total() int {
	return r.Values + r.Keys + r.Collisions + r.Depth
}

// node is one container still to be copied. dst has already been linked into
// its parent, so filling it completes the new tree.
type node struct {
	src   interface{}
	dst   interface{}
	depth int
}

// Sanitize returns a filtered copy of root. Strings are stripped and nil when
// blocked, map keys are stripped and the entry dropped when the key is
// blocked, and containers nested deeper than the depth cap are dropped (nil
// inside lists). Other scalars pass unchanged. root itself is never modified.
func (f *Filter) Sanitize(root interface{}) (interface{}, Report) {
	var report Report
	if !f.Enabled() {
		return root, report
	}

	out, ok := f.shallow(root, &report)
	if !ok {
		return out, report
	}

	stack := []node{{src: root, dst: out, depth: 0}}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch src := n.src.(type) {
		case map[string]interface{}:
			dst := n.dst.(map[string]interface{})
			for _, key := range f.orderedKeys(src, &report) {
				child := src[key.original]
				if isContainer(child) && n.depth+1 > f.maxDepth {
					report.Depth++
					continue
				}
				value, container := f.shallow(child, &report)
				dst[key.filtered] = value
				if container {
					stack = append(stack, node{src: child, dst: value, depth: n.depth + 1})
				}
			}
		case []interface{}:
			dst := n.dst.([]interface{})
			for i, child := range src {
				if isContainer(child) && n.depth+1 > f.maxDepth {
					report.Depth++
					continue
				}
				value, container := f.shallow(child, &report)
				dst[i] = value
				if container {
					stack = append(stack, node{src: child, dst: value, depth: n.depth + 1})
				}
			}
		}
	}

	return out, report
}

// SanitizeMap is Sanitize for the common map root
func (f *Filter) SanitizeMap(tree map[string]interface{}) (map[string]interface{}, Report) {
	out, report := f.Sanitize(tree)
	if out == nil {
		return nil, report
	}
	return out.(map[string]interface{}), report
}

// shallow filters a scalar or allocates the empty copy of a container. The
// bool result is true for containers that still need to be filled.
func (f *Filter) shallow(v interface{}, report *Report) (interface{}, bool) {
	switch val := v.(type) {
	case map[string]interface{}:
		return make(map[string]interface{}, len(val)), true
	case []interface{}:
		return make([]interface{}, len(val)), true
	case string:
		filtered, blocked := f.FilterValue(val)
		if blocked {
			report.Values++
			return nil, false
		}
		return filtered, false
	default:
		return v, false
	}
}

type keyPair struct {
	original string
	filtered string
}

// orderedKeys filters the keys of src and resolves collisions. Keys that were
// already clean are placed first and win over keys that only became equal to
// them after stripping. Blocked keys are left out.
func (f *Filter) orderedKeys(src map[string]interface{}, report *Report) []keyPair {
	originals := make([]string, 0, len(src))
	for key := range src {
		originals = append(originals, key)
	}
	sort.Strings(originals)

	var clean, changed []keyPair
	for _, key := range originals {
		filtered, blocked := f.FilterValue(key)
		if blocked {
			report.Keys++
			continue
		}
		if filtered == key {
			clean = append(clean, keyPair{original: key, filtered: filtered})
		} else {
			changed = append(changed, keyPair{original: key, filtered: filtered})
		}
	}

	taken := make(map[string]bool, len(clean)+len(changed))
	for _, k := range clean {
		taken[k.filtered] = true
	}

	pairs := clean
	for _, k := range changed {
		if taken[k.filtered] {
			report.Collisions++
			continue
		}
		taken[k.filtered] = true
		pairs = append(pairs, k)
	}

	return pairs
}

func isContainer(v interface{}) bool {
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		return true
	}
	return false
}
