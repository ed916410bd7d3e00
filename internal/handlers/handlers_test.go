package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/alimgiray/newsletter-manager/internal/inputfilter"
	"github.com/alimgiray/newsletter-manager/internal/middleware"
	"github.com/alimgiray/newsletter-manager/internal/repositories"
	"github.com/alimgiray/newsletter-manager/internal/services"
	"github.com/alimgiray/newsletter-manager/pkg/config"
	"github.com/alimgiray/newsletter-manager/pkg/database"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Total   *int            `json:"total"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	db     *sql.DB
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	previous := config.AppConfig
	config.AppConfig = &config.Config{Session: config.SessionConfig{Secret: "test-secret"}}
	t.Cleanup(func() { config.AppConfig = previous })

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunSQLScripts(db, "../../migrations"))

	addressRepo := repositories.NewAddressRepository(db)
	campaignService := services.NewCampaignService(
		repositories.NewCampaignRepository(db), addressRepo, repositories.NewOrderRepository(db), nil)

	filter, err := inputfilter.New(inputfilter.DefaultSettings(), inputfilter.DefaultMaxDepth)
	require.NoError(t, err)

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.NewInputFilter(filter, inputfilter.NewRefererCheck("shop.example")).Handler())

	RegisterRoutes(router, Handlers{
		Auth:         NewAuthHandler(),
		Health:       NewHealthHandler(db),
		NotFound:     NewNotFoundHandler(),
		Newsletter:   NewNewsletterHandler(campaignService),
		Recipient:    NewRecipientHandler(services.NewRecipientService(addressRepo), services.NewRecipientExportService(addressRepo)),
		Sender:       NewSenderHandler(services.NewSenderService(repositories.NewSenderRepository(db))),
		Group:        NewGroupHandler(services.NewGroupService(repositories.NewGroupRepository(db))),
		Subscription: NewSubscriptionHandler(services.NewSubscriptionService(addressRepo, 1)),
	}, middleware.NewStaticACL(config.ParseRolePrivileges("admin:read,write,delete;viewer:read")))

	return &testServer{t: t, router: router, db: db}
}

func (s *testServer) exec(query string, args ...interface{}) {
	s.t.Helper()
	_, err := s.db.ExecContext(context.Background(), query, args...)
	require.NoError(s.t, err)
}

// do sends a request as role; an empty role sends no session cookie
func (s *testServer) do(method, target, role string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		value, err := middleware.EncodeSession(middleware.NewSessionData("1", "tester", role))
		require.NoError(s.t, err)
		req.AddCookie(&http.Cookie{Name: "backend_session", Value: value})
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

const api = "/backend/newsletter-manager"

func TestAdminRoutesRequireSessionAndPrivilege(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(http.MethodGet, api+"/senders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, api+"/senders", "viewer", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, api+"/senders", "viewer", map[string]interface{}{"email": "a@example.com"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Insufficient Permissions", decodeEnvelope(t, w).Message)
}

func TestSenderEndpoints(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(http.MethodPost, api+"/senders", "admin", map[string]interface{}{"name": "Shop"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for _, email := range []string{"info@example.com", "news@example.com", "sale@example.com"} {
		w = s.do(http.MethodPost, api+"/senders", "admin", map[string]interface{}{"email": email, "name": "Shop"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w = s.do(http.MethodPut, api+"/senders/2", "admin", map[string]interface{}{"name": "Newsletter"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":2,"email":"news@example.com","name":"Newsletter"}`, string(decodeEnvelope(t, w).Data))

	w = s.do(http.MethodPut, api+"/senders/9", "admin", map[string]interface{}{"name": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Sender not found", decodeEnvelope(t, w).Message)

	w = s.do(http.MethodDelete, api+"/senders", "admin", map[string]interface{}{
		"sender": []map[string]interface{}{{"id": 1}, {"id": 42}, {"id": 3}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodDelete, api+"/senders", "admin", map[string]interface{}{"sender": []interface{}{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No ID passed", decodeEnvelope(t, w).Message)

	w = s.do(http.MethodGet, api+"/senders?limit=10&start=0", "admin", nil)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Total)
	assert.Equal(t, 1, *env.Total)
	assert.JSONEq(t, `[{"id":2,"email":"news@example.com","name":"Newsletter"}]`, string(env.Data))
}

func TestRecipientEndpoints(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(http.MethodPost, api+"/recipients", "admin", map[string]interface{}{"email": "a@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "email and groupId needed", decodeEnvelope(t, w).Message)

	w = s.do(http.MethodPost, api+"/recipients", "admin", map[string]interface{}{"email": "a@example.com", "groupId": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(http.MethodPost, api+"/recipients", "admin", map[string]interface{}{"email": "b@example.com", "groupId": "1"})
	require.Equal(t, http.StatusOK, w.Code)

	filter := url.QueryEscape(`[{"property":"email","value":"b@"}]`)
	w = s.do(http.MethodGet, api+"/recipients?filter="+filter, "admin", nil)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Total)
	assert.Equal(t, 1, *env.Total)

	var addresses []struct {
		ID         int64  `json:"id"`
		Email      string `json:"email"`
		GroupName  string `json:"groupName"`
		IsCustomer bool   `json:"isCustomer"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &addresses))
	require.Len(t, addresses, 1)
	assert.Equal(t, "b@example.com", addresses[0].Email)
	assert.Equal(t, "Newsletter-Empfänger", addresses[0].GroupName)
	assert.False(t, addresses[0].IsCustomer)

	w = s.do(http.MethodPut, api+"/recipients/1", "admin", map[string]interface{}{"email": "c@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Id, groupId and email needed", decodeEnvelope(t, w).Message)

	w = s.do(http.MethodPut, api+"/recipients/77", "admin", map[string]interface{}{"email": "c@example.com", "groupId": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Recipient not found", decodeEnvelope(t, w).Message)

	w = s.do(http.MethodGet, api+"/recipients/export", "admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	rows, err := f.GetRows("Recipients")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	f.Close()

	w = s.do(http.MethodDelete, api+"/recipients/1", "admin", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var remaining int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM newsletter_addresses`).Scan(&remaining))
	assert.Equal(t, 1, remaining)
}

func TestGroupEndpoints(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(http.MethodPost, api+"/newsletter-groups", "admin", map[string]interface{}{"name": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, api+"/newsletter-groups", "admin", map[string]interface{}{"name": "VIP"})
	require.Equal(t, http.StatusOK, w.Code)

	s.exec(`INSERT INTO newsletter_addresses (email, group_id, customer) VALUES ('a@example.com', 1, 0), ('b@example.com', 1, 0)`)
	s.exec(`INSERT INTO customers (email, customergroup) VALUES ('c@example.com', 'EK')`)
	s.exec(`INSERT INTO newsletter_addresses (email, group_id, customer) VALUES ('c@example.com', 0, 1)`)

	sort := url.QueryEscape(`[{"property":"number","direction":"DESC"}]`)
	w = s.do(http.MethodGet, api+"/groups?sort="+sort, "admin", nil)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Total)
	assert.Equal(t, 3, *env.Total)

	var groups []struct {
		InternalID      *int64  `json:"internalId"`
		GroupKey        *string `json:"groupkey"`
		Name            string  `json:"name"`
		Number          int     `json:"number"`
		IsCustomerGroup bool    `json:"isCustomerGroup"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &groups))
	require.Len(t, groups, 3)
	assert.Equal(t, "Newsletter-Empfänger", groups[0].Name)
	assert.Equal(t, 2, groups[0].Number)
	assert.Equal(t, "Shopkunden", groups[1].Name)
	assert.True(t, groups[1].IsCustomerGroup)
	require.NotNil(t, groups[1].GroupKey)
	assert.Equal(t, "EK", *groups[1].GroupKey)
	assert.Equal(t, "VIP", groups[2].Name)
	assert.Equal(t, 0, groups[2].Number)

	w = s.do(http.MethodDelete, api+"/recipient-groups/2", "admin", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, api+"/newsletter-groups", "admin", nil)
	env = decodeEnvelope(t, w)
	require.NotNil(t, env.Total)
	assert.Equal(t, 1, *env.Total)
}

func TestNewsletterEndpoints(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(http.MethodPost, api+"/newsletters", "admin", map[string]interface{}{
		"subject": "Spring",
		"groups": []map[string]interface{}{
			{"internalId": 1, "number": 2, "isCustomerGroup": false},
			{"groupkey": "EK", "number": 5, "isCustomerGroup": true},
		},
		"containers": []map[string]interface{}{
			{"type": "ctText", "position": 1, "text": []map[string]interface{}{{"headline": "Hello", "content": "<p>Hi</p>"}}},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"id":1}`, string(decodeEnvelope(t, w).Data))

	var stored string
	require.NoError(t, s.db.QueryRow(`SELECT group_selection FROM newsletter_campaigns WHERE id = 1`).Scan(&stored))
	assert.Equal(t, `[{"EK":5},{"1":2}]`, stored)

	s.exec(`INSERT INTO newsletter_campaigns (subject, status) VALUES ('preview', -1)`)
	s.exec(`INSERT INTO newsletter_addresses (email, group_id, last_mailing) VALUES ('a@example.com', 1, 1), ('b@example.com', 1, 1)`)
	s.exec(`INSERT INTO orders (invoice_amount_net, invoice_shipping_net, currency_factor, status, partner_id) VALUES
		(100, 5, 1, 0, 'sCampaign1'), (50, 0, 1, 4, 'sCampaign1'), (10, 0, 1, 0, ''),
		(50, 0, 0, 0, 'sCampaign2')`)

	w = s.do(http.MethodGet, api+"/newsletters/previews", "admin", nil)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Total)
	assert.Equal(t, 1, *env.Total)

	w = s.do(http.MethodGet, api+"/newsletters", "admin", nil)
	env = decodeEnvelope(t, w)
	require.NotNil(t, env.Total)
	assert.Equal(t, 1, *env.Total)

	var items []struct {
		ID         int64    `json:"id"`
		Subject    string   `json:"subject"`
		Addresses  int      `json:"addresses"`
		Revenue    *float64 `json:"revenue"`
		Containers []struct {
			Text struct {
				Headline string `json:"headline"`
			} `json:"text"`
		} `json:"containers"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Addresses)
	require.NotNil(t, items[0].Revenue)
	assert.Equal(t, 95.0, *items[0].Revenue)
	require.Len(t, items[0].Containers, 1)
	assert.Equal(t, "Hello", items[0].Containers[0].Text.Headline)

	w = s.do(http.MethodPut, api+"/newsletters/1", "admin", map[string]interface{}{
		"subject":    "Spring sale",
		"containers": []map[string]interface{}{},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var containers int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM newsletter_container_texts`).Scan(&containers))
	assert.Zero(t, containers)

	w = s.do(http.MethodPut, api+"/newsletters/5", "admin", map[string]interface{}{"subject": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "newsletter not found", decodeEnvelope(t, w).Message)

	w = s.do(http.MethodDelete, api+"/newsletters/1", "admin", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodDelete, api+"/newsletters/1", "admin", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Newsletter not found", decodeEnvelope(t, w).Message)
}

func TestMalformedBody(t *testing.T) {
	s := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, api+"/senders", strings.NewReader(`{"email":`))
	req.Header.Set("Content-Type", "application/json")
	value, err := middleware.EncodeSession(middleware.NewSessionData("1", "tester", "admin"))
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: "backend_session", Value: value})

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubscriptionEndpoints(t *testing.T) {
	s := setupTestServer(t)

	form := url.Values{"email": {"<b>jane@example.com</b>"}}
	req := httptest.NewRequest(http.MethodPost, "/newsletter", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"created":true}`, string(decodeEnvelope(t, w).Data))

	w = s.do(http.MethodPost, "/newsletter", "", map[string]interface{}{"email": "jane@example.com"})
	assert.JSONEq(t, `{"created":false}`, string(decodeEnvelope(t, w).Data))

	req = httptest.NewRequest(http.MethodPost, "/account/newsletter", strings.NewReader(`{"email":"jane@example.com","subscribe":false}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Referer", "http://evil.example/")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/account/newsletter", strings.NewReader(`{"email":"jane@example.com","subscribe":false}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Referer", "http://shop.example/account")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"subscribed":false}`, string(decodeEnvelope(t, w).Data))

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM newsletter_addresses`).Scan(&count))
	assert.Zero(t, count)
}

func TestSessionHealthAndNotFound(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(http.MethodGet, "/backend/session", "viewer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"role":"viewer"`)

	w = s.do(http.MethodGet, "/backend/session", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, decodeEnvelope(t, w).Success)
}
