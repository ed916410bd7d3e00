package inputfilter

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFilter(t *testing.T) *Filter {
	t.Helper()
	f, err := New(DefaultSettings(), DefaultMaxDepth)
	require.NoError(t, err)
	return f
}

func TestNew(t *testing.T) {
	t.Run("All sub-patterns disabled", func(t *testing.T) {
		f, err := New(Settings{}, 0)
		require.NoError(t, err)
		assert.False(t, f.Enabled())
		assert.Empty(t, f.Pattern())
	})

	t.Run("Own filter alone enables the filter", func(t *testing.T) {
		f, err := New(Settings{OwnFilter: "forbidden"}, 0)
		require.NoError(t, err)
		assert.True(t, f.Enabled())
		assert.Equal(t, "(?msi)forbidden", f.Pattern())
	})

	t.Run("Malformed own filter", func(t *testing.T) {
		_, err := New(Settings{SQLProtection: true, OwnFilter: "(unclosed"}, 0)
		assert.Error(t, err)
	})

	t.Run("Only the enabled parts are joined", func(t *testing.T) {
		f, err := New(Settings{XSSProtection: true, RFIProtection: true}, 0)
		require.NoError(t, err)
		assert.Equal(t, "(?msi)"+xssPattern+"|"+rfiPattern, f.Pattern())
	})
}

func TestFilterValue(t *testing.T) {
	f := newTestFilter(t)

	testCases := []struct {
		name     string
		input    string
		expected string
		blocked  bool
	}{
		{"Empty", "", "", false},
		{"Plain text", "hello world", "hello world", false},
		{"Tags are stripped", "<b>bold</b> text", "bold text", false},
		{"Encoded tags are stripped", "&lt;i&gt;x&lt;/i&gt;", "x", false},
		{"Comparison survives", "1 < 2 & 3 > 2", "1 < 2 & 3 > 2", false},
		{"SQL select", "1 UNION SELECT password FROM s_user", "", true},
		{"SQL across lines", "delete\nfrom users", "", true},
		{"SQL table prefix", "s_core_config", "", true},
		{"Benchmark", "BENCHMARK(1000000,md5(1))", "", true},
		{"XSS javascript scheme", "JavaScript:alert(1)", "", true},
		{"XSS event handler in text", "x onload = y", "", true},
		{"XSS attribute inside stripped tag", `<img src="x" onerror="alert(1)">`, "", false},
		{"RFI traversal", "../../etc/passwd", "", true},
		{"RFI null byte", "file\x00.php", "", true},
		{"Harmless words", "selection of updates", "selection of updates", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			value, blocked := f.FilterValue(tc.input)
			assert.Equal(t, tc.blocked, blocked)
			assert.Equal(t, tc.expected, value)
		})
	}
}

func TestStripReachesFixedPoint(t *testing.T) {
	f := newTestFilter(t)

	nested := "&amp;lt;script&amp;gt;alert(1)&amp;lt;/script&amp;gt;ok"
	stripped := f.Strip(nested)

	assert.NotContains(t, stripped, "<script")
	assert.Contains(t, stripped, "ok")
}

func TestStripKeepsLineEndings(t *testing.T) {
	f := newTestFilter(t)

	assert.Equal(t, "a\r\nb", f.Strip("a\r\nb"))
	assert.Equal(t, "line one\r\nline two\r\n", f.Strip("line one\r\nline two\r\n"))
	assert.Equal(t, "a\nb", f.Strip("<b>a</b>\r\nb"))
}

func TestSanitizeDisabledReturnsInputUntouched(t *testing.T) {
	f, err := New(Settings{}, 0)
	require.NoError(t, err)

	tree := map[string]interface{}{
		"q":  []interface{}{"<b>x</b>", "union select 1 from t"},
		"<k": "v",
	}

	out, report := f.SanitizeMap(tree)

	assert.Equal(t, tree, out)
	assert.Zero(t, report.Total())
}

func TestSanitizeBlocksValuesAndKeys(t *testing.T) {
	f := newTestFilter(t)

	tree := map[string]interface{}{
		"name":                []interface{}{"<em>Jane</em>"},
		"comment":             []interface{}{"ok", "select * from s_user"},
		"javascript:alert(1)": []interface{}{"value"},
		"nested":              map[string]interface{}{"path": "../secret", "n": json.Number("3")},
		"flag":                true,
		"<b>title</b>":        "clean",
	}

	out, report := f.SanitizeMap(tree)

	assert.Equal(t, []interface{}{"Jane"}, out["name"])
	assert.Equal(t, []interface{}{"ok", nil}, out["comment"])
	assert.NotContains(t, out, "javascript:alert(1)")
	assert.Equal(t, map[string]interface{}{"path": nil, "n": json.Number("3")}, out["nested"])
	assert.Equal(t, true, out["flag"])
	assert.Equal(t, "clean", out["title"])

	assert.Equal(t, 2, report.Values)
	assert.Equal(t, 1, report.Keys)
	assert.Zero(t, report.Collisions)

	// input tree is not modified
	assert.Equal(t, []interface{}{"ok", "select * from s_user"}, tree["comment"])
}

func TestSanitizeKeyCollision(t *testing.T) {
	f := newTestFilter(t)

	tree := map[string]interface{}{
		"<i>id</i>": "from-markup",
		"id":        "original",
	}

	out, report := f.SanitizeMap(tree)

	assert.Equal(t, map[string]interface{}{"id": "original"}, out)
	assert.Equal(t, 1, report.Collisions)
}

func TestSanitizeDepthCap(t *testing.T) {
	f, err := New(DefaultSettings(), 2)
	require.NoError(t, err)

	tree := map[string]interface{}{
		"a": map[string]interface{}{
			"b": map[string]interface{}{
				"c": map[string]interface{}{"d": "too deep"},
				"v": "kept",
			},
		},
		"list": []interface{}{[]interface{}{[]interface{}{"deep"}}},
	}

	out, report := f.SanitizeMap(tree)

	b := out["a"].(map[string]interface{})["b"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"v": "kept"}, b)

	inner := out["list"].([]interface{})[0].([]interface{})
	assert.Equal(t, []interface{}{nil}, inner)

	assert.Equal(t, 2, report.Depth)
}

func TestSanitizeScalarRoot(t *testing.T) {
	f := newTestFilter(t)

	out, report := f.Sanitize("drop table users")
	assert.Nil(t, out)
	assert.Equal(t, 1, report.Values)
}

func TestValuesRoundTrip(t *testing.T) {
	f := newTestFilter(t)

	values := url.Values{
		"q":    {"shoes", "<b>red</b>"},
		"evil": {"1 union select 2"},
	}

	out, _ := f.SanitizeMap(FromValues(values))
	result := ToValues(out)

	assert.Equal(t, []string{"shoes", "red"}, result["q"])
	assert.Equal(t, []string{""}, result["evil"])
}

func TestHeaderRoundTrip(t *testing.T) {
	f := newTestFilter(t)

	header := http.Header{
		"User-Agent": {"Mozilla/5.0"},
		"X-Evil":     {"javascript:alert(1)"},
		"Accept":     {"text/html", "../../x"},
	}

	out, _ := f.SanitizeMap(FromHeader(header))
	result := ToHeader(out)

	assert.Equal(t, "Mozilla/5.0", result.Get("User-Agent"))
	assert.NotContains(t, result, "X-Evil")
	assert.Equal(t, []string{"text/html"}, result["Accept"])
}

func TestCookieHeader(t *testing.T) {
	f := newTestFilter(t)

	cookies := []*http.Cookie{
		{Name: "session", Value: "abc"},
		{Name: "tracking", Value: "s_order_details"},
		{Name: "session", Value: "second"},
	}

	out, report := f.SanitizeMap(FromCookies(cookies))

	assert.Equal(t, "session=abc; tracking=", CookieHeader(out))
	assert.Equal(t, 1, report.Values)
}

func TestCoerceIntValues(t *testing.T) {
	values := url.Values{
		"sCategory": {"12abc"},
		"sContent":  {""},
		"sCustom":   {"  -7"},
		"other":     {"12abc"},
	}

	CoerceIntValues(values)

	assert.Equal(t, "12", values.Get("sCategory"))
	assert.Equal(t, "", values.Get("sContent"))
	assert.Equal(t, "-7", values.Get("sCustom"))
	assert.Equal(t, "12abc", values.Get("other"))
}

func TestCoerceIntFields(t *testing.T) {
	tree := map[string]interface{}{
		"sCategory": "abc",
		"sContent":  map[string]interface{}{"x": 1},
		"sCustom":   json.Number("4.9"),
	}

	CoerceIntFields(tree)

	assert.Equal(t, json.Number("0"), tree["sCategory"])
	assert.Equal(t, json.Number("1"), tree["sContent"])
	assert.Equal(t, json.Number("4"), tree["sCustom"])
}

func TestLeadingInt(t *testing.T) {
	assert.Equal(t, int64(42), leadingInt("42"))
	assert.Equal(t, int64(3), leadingInt("+3px"))
	assert.Equal(t, int64(0), leadingInt("px3"))
	assert.Equal(t, int64(0), leadingInt("-"))
	assert.Equal(t, int64(9223372036854775807), leadingInt(strings.Repeat("9", 30)))
}

func TestRefererCheck(t *testing.T) {
	check := NewRefererCheck("shop.example", "secure.shop.example:8443")

	testCases := []struct {
		name    string
		referer string
		wantErr bool
	}{
		{"No referer", "", false},
		{"Not http", "android-app://com.example", false},
		{"Shop host", "http://shop.example/account", false},
		{"Shop host with port", "http://shop.example:8080/x", false},
		{"Secure host with port", "https://secure.shop.example:8443/account", false},
		{"Secure host without port", "https://secure.shop.example/account", true},
		{"Foreign host", "http://evil.example/form", true},
		{"Lookalike host", "http://shop.example.evil.example/", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := check.Check(tc.referer)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrRefererCheckFailed)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	assert.True(t, check.Applies(http.MethodPost, "account"))
	assert.False(t, check.Applies(http.MethodGet, "account"))
	assert.False(t, check.Applies(http.MethodPost, "checkout"))
}

func TestLoadSettings(t *testing.T) {
	t.Run("Missing file", func(t *testing.T) {
		settings, err := LoadSettings(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultSettings(), settings)
	})

	t.Run("Partial file keeps defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "filter.yaml")
		require.NoError(t, os.WriteFile(path, []byte("xss_protection: false\nown_filter: \"forbidden\"\n"), 0o644))

		settings, err := LoadSettings(path)
		require.NoError(t, err)
		assert.True(t, settings.SQLProtection)
		assert.False(t, settings.XSSProtection)
		assert.Equal(t, "forbidden", settings.OwnFilter)
		assert.True(t, settings.RefererCheck)
	})

	t.Run("Empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "filter.yaml")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		settings, err := LoadSettings(path)
		require.NoError(t, err)
		assert.Equal(t, DefaultSettings(), settings)
	})

	t.Run("Invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "filter.yaml")
		require.NoError(t, os.WriteFile(path, []byte("sql_protection: [\n"), 0o644))

		_, err := LoadSettings(path)
		assert.Error(t, err)
	})
}
