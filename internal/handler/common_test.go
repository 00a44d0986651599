package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eventstage/internal/handler"
	"eventstage/internal/model"
	"eventstage/internal/notify"
	"eventstage/internal/queue"
	"eventstage/internal/redeem"
	"eventstage/internal/repository/memory"
	"eventstage/internal/service"
	"eventstage/internal/service/mocks"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const (
	testSecret  = "handler-test-secret"
	InvalidJSON = `{"invalid": json}`
)

// create HTTP request with JSON body
func createJSONHTTPRequest(method, url string, data interface{}) *http.Request {
	var body *bytes.Buffer
	if s, ok := data.(string); ok {
		body = bytes.NewBufferString(s)
	} else {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil
		}
		body = bytes.NewBuffer(raw)
	}
	req := httptest.NewRequest(method, url, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func authorize(t *testing.T, req *http.Request, uid string) *http.Request {
	t.Helper()
	token, err := handler.SignToken(testSecret, uid, time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type mockServices struct {
	events    *mocks.EventServiceMock
	tickets   *mocks.TicketServiceMock
	purchases *mocks.PurchaseServiceMock
}

func setupMockRouter() (*gin.Engine, *mockServices) {
	gin.SetMode(gin.TestMode)
	m := &mockServices{
		events:    mocks.NewEventServiceMock(),
		tickets:   mocks.NewTicketServiceMock(),
		purchases: mocks.NewPurchaseServiceMock(),
	}
	router := handler.NewRouter(handler.Services{
		Events:    m.events,
		Tickets:   m.tickets,
		Purchases: m.purchases,
	}, testSecret)
	return router, m
}

// setupMemoryRouter wires the real services onto the in-memory store.
func setupMemoryRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	store.PutGroup(&model.Group{
		ID:      "group-1",
		Name:    "Hikers",
		Members: []model.GroupMember{{UserID: "group-admin", Role: model.GroupRoleAdmin}},
	})
	codec, err := redeem.NewCodec(make([]byte, redeem.KeySize))
	require.NoError(t, err)
	sink := notify.NewQueueSink(queue.NewNotificationQueue(100, 3), time.Second)

	tickets := service.NewTicketService(store.Events(), store.Tiers(), nil)
	return handler.NewRouter(handler.Services{
		Events:     service.NewEventService(store.Events(), store.Tiers(), store.Purchases(), store.Users(), store.Groups(), tickets, sink),
		Tickets:    tickets,
		Purchases:  service.NewPurchaseService(store.Events(), store.Tiers(), store.Purchases(), store.Ledger(), store.Users(), nil, codec, sink),
		StagePosts: service.NewStagePostService(store.Events()),
	}, testSecret)
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}
