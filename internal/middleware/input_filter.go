package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/alimgiray/newsletter-manager/internal/inputfilter"
	"github.com/alimgiray/newsletter-manager/pkg/logger"
	"github.com/alimgiray/newsletter-manager/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	moduleFrontend = "frontend"
	moduleBackend  = "backend"
	moduleAPI      = "api"

	maxFilteredBody      = 10 << 20
	maxMultipartInMemory = 32 << 20
)

var errMalformedBody = errors.New("malformed request body")

// InputFilter runs the referer check and sanitizes every container of a
// storefront request before handlers see it
type InputFilter struct {
	filter  *inputfilter.Filter
	referer *inputfilter.RefererCheck
}

// NewInputFilter wires the filter. A nil referer check disables it.
func NewInputFilter(filter *inputfilter.Filter, referer *inputfilter.RefererCheck) *InputFilter {
	return &InputFilter{filter: filter, referer: referer}
}

// RouteContext derives module and controller from the request path the way
// storefront URLs are dispatched
func RouteContext(path string) (module, controller string) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	first := strings.ToLower(segments[0])

	if first == moduleBackend || first == moduleAPI {
		controller = "index"
		if len(segments) > 1 && segments[1] != "" {
			controller = strings.ToLower(segments[1])
		}
		return first, controller
	}

	if first == "" {
		first = "index"
	}
	return moduleFrontend, first
}

func (m *InputFilter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		module, controller := RouteContext(c.Request.URL.Path)
		if module != moduleFrontend {
			c.Next()
			return
		}

		log := logger.FromContext(c.Request.Context()).WithFields(logrus.Fields{
			"module":     module,
			"controller": controller,
		})

		if m.referer != nil && m.referer.Applies(c.Request.Method, controller) {
			if err := m.referer.Check(c.GetHeader("Referer")); err != nil {
				metrics.RefererRejected.Inc()
				log.WithField("referer", c.GetHeader("Referer")).Warn("Referer check failed")
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"success": false,
					"message": err.Error(),
				})
				return
			}
		}

		if !m.filter.Enabled() {
			c.Next()
			return
		}

		reports := make(map[string]inputfilter.Report)

		reports["query"] = m.filterQuery(c.Request)

		bodyReport, err := m.filterBody(c.Request)
		if err != nil {
			log.WithError(err).Warn("Rejected unreadable request body")
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Malformed request body",
			})
			return
		}
		reports["body"] = bodyReport

		reports["header"] = m.filterHeaders(c.Request)
		reports["cookie"] = m.filterCookies(c.Request)
		reports["params"] = m.filterParams(c)

		m.record(log, reports)

		c.Next()
	}
}

func (m *InputFilter) filterQuery(r *http.Request) inputfilter.Report {
	if r.URL.RawQuery == "" {
		return inputfilter.Report{}
	}

	values := r.URL.Query()
	inputfilter.CoerceIntValues(values)

	out, report := m.filter.SanitizeMap(inputfilter.FromValues(values))
	r.URL.RawQuery = inputfilter.ToValues(out).Encode()
	r.Form = nil

	return report
}

func (m *InputFilter) filterBody(r *http.Request) (inputfilter.Report, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return inputfilter.Report{}, nil
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return inputfilter.Report{}, nil
	}

	switch mediaType {
	case "application/x-www-form-urlencoded":
		return m.filterFormBody(r)
	case "application/json":
		return m.filterJSONBody(r)
	case "multipart/form-data":
		return m.filterMultipartBody(r)
	}

	return inputfilter.Report{}, nil
}

func (m *InputFilter) filterFormBody(r *http.Request) (inputfilter.Report, error) {
	raw, err := readBody(r)
	if err != nil {
		return inputfilter.Report{}, err
	}

	values, err := url.ParseQuery(string(raw))
	if err != nil {
		return inputfilter.Report{}, errMalformedBody
	}
	inputfilter.CoerceIntValues(values)

	out, report := m.filter.SanitizeMap(inputfilter.FromValues(values))
	replaceBody(r, []byte(inputfilter.ToValues(out).Encode()))

	return report, nil
}

func (m *InputFilter) filterJSONBody(r *http.Request) (inputfilter.Report, error) {
	raw, err := readBody(r)
	if err != nil {
		return inputfilter.Report{}, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		replaceBody(r, raw)
		return inputfilter.Report{}, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var root interface{}
	if err := decoder.Decode(&root); err != nil {
		return inputfilter.Report{}, errMalformedBody
	}
	if tree, ok := root.(map[string]interface{}); ok {
		inputfilter.CoerceIntFields(tree)
	}

	out, report := m.filter.Sanitize(root)
	encoded, err := json.Marshal(out)
	if err != nil {
		return inputfilter.Report{}, err
	}
	replaceBody(r, encoded)

	return report, nil
}

// filterMultipartBody parses the form, sanitizes its values and publishes
// them as PostForm and Form so later parsing does not read the raw values.
// Uploaded files are left untouched.
func (m *InputFilter) filterMultipartBody(r *http.Request) (inputfilter.Report, error) {
	if err := r.ParseMultipartForm(maxMultipartInMemory); err != nil {
		return inputfilter.Report{}, errMalformedBody
	}

	values := url.Values(r.MultipartForm.Value)
	inputfilter.CoerceIntValues(values)

	out, report := m.filter.SanitizeMap(inputfilter.FromValues(values))
	sanitized := inputfilter.ToValues(out)

	r.MultipartForm.Value = sanitized
	r.PostForm = make(url.Values, len(sanitized))
	r.Form = make(url.Values, len(sanitized))
	for key, list := range sanitized {
		r.PostForm[key] = append([]string(nil), list...)
		r.Form[key] = append([]string(nil), list...)
	}
	for key, list := range r.URL.Query() {
		r.Form[key] = append(r.Form[key], list...)
	}

	return report, nil
}

func (m *InputFilter) filterHeaders(r *http.Request) inputfilter.Report {
	cookie := r.Header.Values("Cookie")
	headers := r.Header.Clone()
	headers.Del("Cookie")

	out, report := m.filter.SanitizeMap(inputfilter.FromHeader(headers))
	r.Header = inputfilter.ToHeader(out)
	if len(cookie) > 0 {
		r.Header["Cookie"] = cookie
	}
	if r.ContentLength >= 0 && r.Header.Get("Content-Length") != "" {
		r.Header.Set("Content-Length", strconv.FormatInt(r.ContentLength, 10))
	}

	return report
}

func (m *InputFilter) filterCookies(r *http.Request) inputfilter.Report {
	cookies := r.Cookies()
	if len(cookies) == 0 {
		return inputfilter.Report{}
	}

	out, report := m.filter.SanitizeMap(inputfilter.FromCookies(cookies))
	r.Header.Set("Cookie", inputfilter.CookieHeader(out))

	return report
}

func (m *InputFilter) filterParams(c *gin.Context) inputfilter.Report {
	if len(c.Params) == 0 {
		return inputfilter.Report{}
	}

	values := make(url.Values, len(c.Params))
	for _, p := range c.Params {
		values.Add(p.Key, p.Value)
	}

	out, report := m.filter.SanitizeMap(inputfilter.FromValues(values))
	sanitized := inputfilter.ToValues(out)
	for i := range c.Params {
		c.Params[i].Value = sanitized.Get(c.Params[i].Key)
	}

	return report
}

func (m *InputFilter) record(log *logrus.Entry, reports map[string]inputfilter.Report) {
	fields := logrus.Fields{}
	for container, report := range reports {
		metrics.RecordBlocked(container, "value", report.Values)
		metrics.RecordBlocked(container, "key", report.Keys)
		metrics.RecordBlocked(container, "collision", report.Collisions)
		metrics.RecordBlocked(container, "depth", report.Depth)

		if report.Total() > 0 {
			fields[container] = report.Total()
		}
		if report.Collisions > 0 {
			log.WithField("container", container).Warnf("Dropped %d entries whose keys collided after stripping", report.Collisions)
		}
	}

	if len(fields) > 0 {
		log.WithFields(fields).Warn("Input filter removed request data")
	}
}

func readBody(r *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxFilteredBody+1))
	r.Body.Close()
	if err != nil {
		return nil, err
	}
	if len(raw) > maxFilteredBody {
		return nil, errMalformedBody
	}
	return raw, nil
}

func replaceBody(r *http.Request, body []byte) {
	r.Body = io.NopCloser(bytes.NewReader(body))
	r.ContentLength = int64(len(body))
	r.Header.Set("Content-Length", strconv.Itoa(len(body)))
	r.Form = nil
	r.PostForm = nil
}
