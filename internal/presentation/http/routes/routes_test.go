package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afritokeni/ussd-gateway/internal/application/container"
	"github.com/afritokeni/ussd-gateway/internal/application/menus"
	"github.com/afritokeni/ussd-gateway/internal/application/services"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/caching/stores"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/messaging"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/observability/logging"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/observability/performance"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/security"
	walletclient "github.com/afritokeni/ussd-gateway/internal/infrastructure/wallet"
)

const testSecret = "route-test-secret"

type recordingSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *recordingSender) Send(ctx context.Context, phone, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, phone+":"+message)
	return nil
}

func (s *recordingSender) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

func newTestContainer(t *testing.T, sender messaging.Sender) *container.Container {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logging.NewDiscardLogger()
	tracker := performance.NewTracker()
	catalog := menus.NewCatalog()
	prefs := stores.NewPreferencesStore(logger)
	sessions := stores.NewSessionsStore(3*time.Minute, prefs, logger)
	queue := messaging.NewNotificationQueue(sender, messaging.QueueConfig{Workers: 1, QueueSize: 8}, logger, tracker)
	t.Cleanup(func() { _ = queue.Shutdown(context.Background()) })

	actions := walletclient.NewClient("", security.NewServiceTokenSigner(testSecret, time.Minute), time.Second, logger, tracker)
	registry, err := menus.NewDefaultRegistry(&menus.Deps{
		Actions:     actions,
		Notifier:    queue,
		Preferences: prefs,
		Catalog:     catalog,
		Logger:      logger,
	})
	require.NoError(t, err)

	return &container.Container{
		Logger:        logger,
		PerfTracker:   tracker,
		Sessions:      sessions,
		Preferences:   prefs,
		Notifications: queue,
		Wallet:        actions,
		Catalog:       catalog,
		USSDService:   services.NewUSSDService(sessions, registry, catalog, nil, logger, tracker),
		ServiceSecret: testSecret,
	}
}

func postForm(r http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUSSDCallbackFormEncoded(t *testing.T) {
	r := SetupRoutes(newTestContainer(t, &recordingSender{}))

	for _, path := range []string{"/ussd", "/api/ussd"} {
		w := postForm(r, path, url.Values{
			"sessionId":   {"ATUid_route_" + path},
			"serviceCode": {"*384*22948#"},
			"phoneNumber": {"+256700111222"},
			"text":        {""},
		})

		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
		assert.True(t, strings.HasPrefix(w.Body.String(), "CON Welcome to MoneyTransfer USSD Service"), w.Body.String())
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	}
}

func TestUSSDCallbackJSON(t *testing.T) {
	r := SetupRoutes(newTestContainer(t, &recordingSender{}))

	body := `{"sessionId":"ATUid_json","serviceCode":"*384#","phoneNumber":"256700111222","text":"4"}`
	req := httptest.NewRequest(http.MethodPost, "/ussd", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "END "), w.Body.String())
}

func TestUSSDCallbackMissingFieldsStill200(t *testing.T) {
	r := SetupRoutes(newTestContainer(t, &recordingSender{}))

	w := postForm(r, "/ussd", url.Values{"text": {"1"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "END Invalid request.", w.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/ussd", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "END Invalid request.", w.Body.String())
}

func TestUSSDSessionContinuesAcrossCallbacks(t *testing.T) {
	r := SetupRoutes(newTestContainer(t, &recordingSender{}))
	form := func(text string) url.Values {
		return url.Values{
			"sessionId":   {"ATUid_multi"},
			"serviceCode": {"*384#"},
			"phoneNumber": {"256700111222"},
			"text":        {text},
		}
	}

	assert.True(t, strings.HasPrefix(postForm(r, "/ussd", form("")).Body.String(), "CON "))
	second := postForm(r, "/ussd", form("1")).Body.String()
	assert.True(t, strings.HasPrefix(second, "CON "), second)
	assert.Contains(t, second, "Enter recipient phone number")
}

func TestUSSDInfo(t *testing.T) {
	r := SetupRoutes(newTestContainer(t, &recordingSender{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ussd", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "AfriTokeni USSD API", body["service"])
	assert.Equal(t, "active", body["status"])
	assert.Equal(t, "POST /ussd", body["endpoint"])
}

func TestHealth(t *testing.T) {
	r := SetupRoutes(newTestContainer(t, &recordingSender{}))

	for _, path := range []string{"/health", "/api/health"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

		require.Equal(t, http.StatusOK, w.Code, path)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "OK", body["status"])
		_, err := time.Parse(time.RFC3339Nano, body["timestamp"])
		assert.NoError(t, err)
	}
}

func TestMetricsExposed(t *testing.T) {
	r := SetupRoutes(newTestContainer(t, &recordingSender{}))
	postForm(r, "/ussd", url.Values{
		"sessionId":   {"ATUid_metrics"},
		"serviceCode": {"*384#"},
		"phoneNumber": {"256700111222"},
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ussd_requests_total")
}

func TestSendNotificationRequiresServiceToken(t *testing.T) {
	sender := &recordingSender{}
	r := SetupRoutes(newTestContainer(t, sender))
	payload := `{"phoneNumber":"+256700111222","message":"Your deposit was received"}`

	req := httptest.NewRequest(http.MethodPost, "/api/send-notification", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	forged, err := security.NewServiceTokenSigner("other-secret", time.Minute).Sign("256700111222")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/api/send-notification", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+forged)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Empty(t, sender.messages())
}

func TestSendNotificationQueuesMessage(t *testing.T) {
	sender := &recordingSender{}
	r := SetupRoutes(newTestContainer(t, sender))

	token, err := security.NewServiceTokenSigner(testSecret, time.Minute).Sign("256700111222")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/send-notification",
		strings.NewReader(`{"phoneNumber":"+256700111222","message":"Your deposit was received"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Eventually(t, func() bool {
		msgs := sender.messages()
		return len(msgs) == 1 && msgs[0] == "256700111222:Your deposit was received"
	}, 2*time.Second, 10*time.Millisecond)

	req = httptest.NewRequest(http.MethodPost, "/api/send-notification", strings.NewReader(`{"message":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
