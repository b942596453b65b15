package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cuongbtq/gigmarket/internal/api/dto"
	"github.com/cuongbtq/gigmarket/internal/auth"
	"github.com/cuongbtq/gigmarket/internal/domain"
	"github.com/cuongbtq/gigmarket/internal/marketplace"
	"github.com/cuongbtq/gigmarket/internal/realtime"
	"github.com/cuongbtq/gigmarket/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	callerID = "2f1c7a4e-5d0b-4c1e-9f3a-1b2c3d4e5f60"
	jobID    = "6a9e1f3c-2b4d-4e8f-a1c2-3d4e5f607182"
	bidID    = "7b0f2a4d-3c5e-4f90-b2d3-4e5f60718293"
	peerID   = "8c1a3b5e-4d6f-4a01-c3e4-5f60718293a4"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := dto.RegisterValidators(); err != nil {
		panic(err)
	}
}

// stubMarketplace implements only what a test sets; anything else panics
type stubMarketplace struct {
	Marketplace

	postJob      func(ctx context.Context, draft domain.JobDraft) (*domain.Job, error)
	getJob       func(ctx context.Context, jobID string) (*domain.Job, error)
	listOpenJobs func(ctx context.Context, pageSize int, cursor *storage.JobCursor) (*marketplace.JobPage, error)
	listBids     func(ctx context.Context, jobID string) ([]domain.Bid, error)
	placeBid     func(ctx context.Context, jobID string, amount int64) (*domain.Bid, error)
	acceptBid    func(ctx context.Context, jobID, bidID string) (*domain.Hire, error)
	confirm      func(ctx context.Context, contractID string, c marketplace.PaymentConfirmation) (*domain.Contract, error)
	failure      func(ctx context.Context, contractID string, f marketplace.PaymentFailure) error
	sendMessage  func(ctx context.Context, jobID, receiverID, content string, clientRef *string) (*domain.Message, error)
	listChat     func(ctx context.Context, jobID, otherID string) ([]domain.Message, error)
}

func (s *stubMarketplace) PostJob(ctx context.Context, _ *domain.Identity, draft domain.JobDraft) (*domain.Job, error) {
	return s.postJob(ctx, draft)
}

func (s *stubMarketplace) GetJob(ctx context.Context, _ *domain.Identity, jobID string) (*domain.Job, error) {
	return s.getJob(ctx, jobID)
}

func (s *stubMarketplace) ListOpenJobs(ctx context.Context, _ *domain.Identity, pageSize int, cursor *storage.JobCursor) (*marketplace.JobPage, error) {
	return s.listOpenJobs(ctx, pageSize, cursor)
}

func (s *stubMarketplace) ListBids(ctx context.Context, _ *domain.Identity, jobID string) ([]domain.Bid, error) {
	return s.listBids(ctx, jobID)
}

func (s *stubMarketplace) PlaceBid(ctx context.Context, _ *domain.Identity, jobID string, amount int64) (*domain.Bid, error) {
	return s.placeBid(ctx, jobID, amount)
}

func (s *stubMarketplace) AcceptBid(ctx context.Context, _ *domain.Identity, jobID, bidID string) (*domain.Hire, error) {
	return s.acceptBid(ctx, jobID, bidID)
}

func (s *stubMarketplace) ConfirmPayment(ctx context.Context, _ *domain.Identity, contractID string, c marketplace.PaymentConfirmation) (*domain.Contract, error) {
	return s.confirm(ctx, contractID, c)
}

func (s *stubMarketplace) RecordPaymentFailure(ctx context.Context, _ *domain.Identity, contractID string, f marketplace.PaymentFailure) error {
	return s.failure(ctx, contractID, f)
}

func (s *stubMarketplace) SendMessage(ctx context.Context, _ *domain.Identity, jobID, receiverID, content string, clientRef *string) (*domain.Message, error) {
	return s.sendMessage(ctx, jobID, receiverID, content, clientRef)
}

func (s *stubMarketplace) ListChat(ctx context.Context, _ *domain.Identity, jobID, otherID string) ([]domain.Message, error) {
	return s.listChat(ctx, jobID, otherID)
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// signedIn stands in for the auth middleware
func signedIn(c *gin.Context) {
	auth.SetClaims(c, &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{ID: "jti-1", Subject: callerID},
		Name:             "Ravi",
	})
	c.Next()
}

func newTestRouter(h *Handler) *gin.Engine {
	r := gin.New()
	v1 := r.Group("/api/v1", signedIn)
	v1.POST("/jobs", h.CreateJob)
	v1.GET("/jobs", h.ListJobs)
	v1.GET("/jobs/:job_id", h.GetJob)
	v1.POST("/jobs/:job_id/bids", h.PlaceBid)
	v1.POST("/jobs/:job_id/bids/:bid_id/accept", h.AcceptBid)
	v1.POST("/jobs/:job_id/messages", h.SendMessage)
	v1.GET("/jobs/:job_id/messages/:user_id/stream", h.StreamChat)
	v1.POST("/contracts/:contract_id/payment/confirm", h.ConfirmPayment)
	v1.POST("/contracts/:contract_id/payment/failure", h.RecordPaymentFailure)
	v1.GET("/notifications/unread/stream", h.StreamUnreadCount)
	return r
}

func newTestHandler(m Marketplace) *Handler {
	return New(&Dependencies{Logger: discard(), Marketplace: m, WriteOpTimeout: time.Second})
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCodeOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Code
}

func TestPlaceBid_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "budget exceeded", err: domain.ErrBudgetExceeded, wantStatus: http.StatusBadRequest, wantCode: "BUDGET_EXCEEDED"},
		{name: "not signed in", err: domain.ErrNotAuthenticated, wantStatus: http.StatusUnauthorized, wantCode: "NOT_AUTHENTICATED"},
		{name: "own job", err: domain.ErrOwnJob, wantStatus: http.StatusForbidden, wantCode: "OWN_JOB"},
		{name: "job missing", err: domain.ErrJobNotFound, wantStatus: http.StatusNotFound, wantCode: "JOB_NOT_FOUND"},
		{name: "duplicate", err: domain.ErrDuplicateBid, wantStatus: http.StatusConflict, wantCode: "DUPLICATE_BID"},
		{name: "database down", err: domain.Unavailable(errors.New("dial tcp")), wantStatus: http.StatusServiceUnavailable, wantCode: "REMOTE_UNAVAILABLE"},
		{name: "unclassified", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &stubMarketplace{placeBid: func(context.Context, string, int64) (*domain.Bid, error) {
				return nil, tt.err
			}}
			r := newTestRouter(newTestHandler(m))

			w := doJSON(t, r, http.MethodPost, "/api/v1/jobs/"+jobID+"/bids", `{"amount": 100}`)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, errorCodeOf(t, w))
			assert.NotContains(t, w.Body.String(), "dial tcp")
		})
	}
}

func TestPlaceBid_Amounts(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantAmount int64
		wantCode   string
	}{
		{name: "number", body: `{"amount": 300}`, wantStatus: http.StatusCreated, wantAmount: 300},
		{name: "numeric string", body: `{"amount": "450"}`, wantStatus: http.StatusCreated, wantAmount: 450},
		{name: "fraction", body: `{"amount": 12.5}`, wantStatus: http.StatusBadRequest, wantCode: "INVALID_AMOUNT"},
		{name: "text", body: `{"amount": "lots"}`, wantStatus: http.StatusBadRequest, wantCode: "INVALID_AMOUNT"},
		{name: "missing", body: `{}`, wantStatus: http.StatusBadRequest, wantCode: "INVALID_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got int64
			m := &stubMarketplace{placeBid: func(_ context.Context, jobID string, amount int64) (*domain.Bid, error) {
				got = amount
				return &domain.Bid{ID: bidID, JobID: jobID, WorkerID: callerID, BidAmount: amount}, nil
			}}
			r := newTestRouter(newTestHandler(m))

			w := doJSON(t, r, http.MethodPost, "/api/v1/jobs/"+jobID+"/bids", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCodeOf(t, w))
				return
			}
			assert.Equal(t, tt.wantAmount, got)
		})
	}
}

func TestInvalidPathParameter(t *testing.T) {
	r := newTestRouter(newTestHandler(&stubMarketplace{}))

	w := doJSON(t, r, http.MethodPost, "/api/v1/jobs/not-a-uuid/bids", `{"amount": 1}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INPUT", errorCodeOf(t, w))
}

func TestCreateJob_Validation(t *testing.T) {
	var posted domain.JobDraft
	m := &stubMarketplace{postJob: func(_ context.Context, draft domain.JobDraft) (*domain.Job, error) {
		posted = draft
		return &domain.Job{ID: jobID, Title: draft.Title, Budget: draft.Budget, Status: domain.JobStatusOpen}, nil
	}}
	r := newTestRouter(newTestHandler(m))

	w := doJSON(t, r, http.MethodPost, "/api/v1/jobs", `{"title": "   ", "budget": 100}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/jobs", `{"title": "Logo", "budget": 0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/jobs", `{"title": "Logo", "description": "vector", "budget": 500}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, domain.JobDraft{Title: "Logo", Description: "vector", Budget: 500}, posted)
}

func TestListJobs_Cursor(t *testing.T) {
	createdAt := time.Date(2024, 5, 1, 10, 0, 0, 123, time.UTC)
	var seen []*storage.JobCursor
	m := &stubMarketplace{listOpenJobs: func(_ context.Context, pageSize int, cursor *storage.JobCursor) (*marketplace.JobPage, error) {
		seen = append(seen, cursor)
		if cursor == nil {
			return &marketplace.JobPage{
				Jobs:       []domain.Job{{ID: jobID, CreatedAt: createdAt}},
				NextCursor: &storage.JobCursor{CreatedAt: createdAt, JobID: jobID},
			}, nil
		}
		return &marketplace.JobPage{}, nil
	}}
	r := newTestRouter(newTestHandler(m))

	w := doJSON(t, r, http.MethodGet, "/api/v1/jobs?page_size=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var first dto.ListJobsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	require.NotEmpty(t, first.NextCursor)

	w = doJSON(t, r, http.MethodGet, "/api/v1/jobs?cursor="+first.NextCursor, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"jobs": []}`, w.Body.String())

	require.Len(t, seen, 2)
	assert.Equal(t, jobID, seen[1].JobID)
	assert.True(t, createdAt.Equal(seen[1].CreatedAt))

	w = doJSON(t, r, http.MethodGet, "/api/v1/jobs?cursor=!!!", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetJob_IncludesBids(t *testing.T) {
	m := &stubMarketplace{
		getJob: func(_ context.Context, id string) (*domain.Job, error) {
			return &domain.Job{ID: id, Title: "Logo", Status: domain.JobStatusOpen}, nil
		},
		listBids: func(context.Context, string) ([]domain.Bid, error) {
			return nil, nil
		},
	}
	r := newTestRouter(newTestHandler(m))

	w := doJSON(t, r, http.MethodGet, "/api/v1/jobs/"+jobID, "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"bids":[]`)
	assert.Contains(t, w.Body.String(), `"title":"Logo"`)
}

func TestAcceptBid_AlreadyAssigned(t *testing.T) {
	m := &stubMarketplace{acceptBid: func(context.Context, string, string) (*domain.Hire, error) {
		return nil, domain.ErrJobAlreadyAssigned
	}}
	r := newTestRouter(newTestHandler(m))

	w := doJSON(t, r, http.MethodPost, "/api/v1/jobs/"+jobID+"/bids/"+bidID+"/accept", "")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "JOB_ALREADY_ASSIGNED", errorCodeOf(t, w))
}

func TestWritesOutliveClientDisconnect(t *testing.T) {
	started := make(chan struct{})
	var writeErr error
	m := &stubMarketplace{acceptBid: func(ctx context.Context, jobID, bidID string) (*domain.Hire, error) {
		close(started)
		time.Sleep(20 * time.Millisecond)
		writeErr = ctx.Err()
		_, hasDeadline := ctx.Deadline()
		if !hasDeadline {
			writeErr = errors.New("write has no deadline")
		}
		return &domain.Hire{Job: &domain.Job{ID: jobID}, Contract: &domain.Contract{JobID: jobID}}, nil
	}}
	r := newTestRouter(newTestHandler(m))

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/"+jobID+"/bids/"+bidID+"/accept", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	go func() {
		<-started
		cancel()
	}()

	r.ServeHTTP(w, req)

	assert.NoError(t, writeErr)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestConfirmPayment(t *testing.T) {
	m := &stubMarketplace{confirm: func(_ context.Context, contractID string, c marketplace.PaymentConfirmation) (*domain.Contract, error) {
		if c.Signature != "good" {
			return nil, domain.PaymentDeclined("signature verification failed")
		}
		return &domain.Contract{ID: contractID, Status: domain.ContractStatusFunded}, nil
	}}
	r := newTestRouter(newTestHandler(m))
	path := "/api/v1/contracts/" + bidID + "/payment/confirm"

	w := doJSON(t, r, http.MethodPost, path, `{"razorpay_order_id":"order_1","razorpay_payment_id":"pay_1","razorpay_signature":"good"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"funded"`)

	w = doJSON(t, r, http.MethodPost, path, `{"razorpay_order_id":"order_1","razorpay_payment_id":"pay_1","razorpay_signature":"bad"}`)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "PAYMENT_DECLINED", errorCodeOf(t, w))

	w = doJSON(t, r, http.MethodPost, path, `{"razorpay_order_id":"order_1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordPaymentFailure(t *testing.T) {
	var got marketplace.PaymentFailure
	m := &stubMarketplace{failure: func(_ context.Context, _ string, f marketplace.PaymentFailure) error {
		got = f
		return domain.PaymentDeclined(f.Code)
	}}
	r := newTestRouter(newTestHandler(m))

	w := doJSON(t, r, http.MethodPost, "/api/v1/contracts/"+bidID+"/payment/failure", `{"code":"BAD_REQUEST_ERROR","description":"card declined"}`)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "card declined", got.Description)
}

func TestSendMessage_ClientRef(t *testing.T) {
	var ref *string
	m := &stubMarketplace{sendMessage: func(_ context.Context, jobID, receiverID, content string, clientRef *string) (*domain.Message, error) {
		ref = clientRef
		return &domain.Message{ID: "m1", JobID: jobID, ReceiverID: receiverID, Content: content, ClientRef: clientRef}, nil
	}}
	r := newTestRouter(newTestHandler(m))

	w := doJSON(t, r, http.MethodPost, "/api/v1/jobs/"+jobID+"/messages", `{"receiver_id":"`+peerID+`","content":"hi","client_ref":"tmp-1"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, ref)
	assert.Equal(t, "tmp-1", *ref)
	assert.Contains(t, w.Body.String(), `"client_ref":"tmp-1"`)

	w = doJSON(t, r, http.MethodPost, "/api/v1/jobs/"+jobID+"/messages", `{"receiver_id":"`+peerID+`","content":"  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendMessage_ReceiverMustBeUUID(t *testing.T) {
	m := &stubMarketplace{sendMessage: func(context.Context, string, string, string, *string) (*domain.Message, error) {
		t.Fatal("an invalid receiver must not reach the service")
		return nil, nil
	}}
	r := newTestRouter(newTestHandler(m))

	w := doJSON(t, r, http.MethodPost, "/api/v1/jobs/"+jobID+"/messages", `{"receiver_id":"u2","content":"hi"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendMessage_UnknownReceiver(t *testing.T) {
	m := &stubMarketplace{sendMessage: func(context.Context, string, string, string, *string) (*domain.Message, error) {
		return nil, domain.ErrUserNotFound
	}}
	r := newTestRouter(newTestHandler(m))

	w := doJSON(t, r, http.MethodPost, "/api/v1/jobs/"+jobID+"/messages", `{"receiver_id":"`+peerID+`","content":"hi"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "USER_NOT_FOUND", errorCodeOf(t, w))
}

type stubCounter struct {
	mu    sync.Mutex
	count int
	err   error
}

func (c *stubCounter) CountUnread(context.Context, string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count, c.err
}

func (c *stubCounter) set(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count = n
}

type idleSource struct{ ch chan *pq.Notification }

func (s idleSource) NotificationChannel() <-chan *pq.Notification { return s.ch }
func (s idleSource) Ping() error                                  { return nil }
func (s idleSource) Close() error                                 { return nil }

func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var event, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "" && event != "":
			return event, data
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
}

func TestStreamUnreadCount(t *testing.T) {
	hub := realtime.NewHub(idleSource{ch: make(chan *pq.Notification)}, realtime.Config{}, nil, discard())
	counter := &stubCounter{count: 2}
	h := New(&Dependencies{Logger: discard(), Counter: counter, Subscriber: hub, KeepAliveInterval: time.Hour})
	server := httptest.NewServer(newTestRouter(h))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/v1/notifications/unread/stream", nil)
	require.NoError(t, err)
	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	event, data := readEvent(t, reader)
	assert.Equal(t, "unread_count", event)
	assert.JSONEq(t, `{"count":2}`, data)

	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 5*time.Millisecond)
	counter.set(3)
	hub.Dispatch(realtime.Event{Table: "notifications", Op: realtime.OpInsert, Record: map[string]interface{}{"user_id": callerID}})

	_, data = readEvent(t, reader)
	assert.JSONEq(t, `{"count":3}`, data)

	cancel()
	require.Eventually(t, func() bool { return hub.Len() == 0 }, time.Second, 5*time.Millisecond, "subscription must be released on disconnect")
}

func TestStreamUnreadCount_SeedFailure(t *testing.T) {
	hub := realtime.NewHub(idleSource{ch: make(chan *pq.Notification)}, realtime.Config{}, nil, discard())
	counter := &stubCounter{err: errors.New("connection refused")}
	h := New(&Dependencies{Logger: discard(), Counter: counter, Subscriber: hub})
	r := newTestRouter(h)

	w := doJSON(t, r, http.MethodGet, "/api/v1/notifications/unread/stream", "")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, 0, hub.Len())
}

type chatLog struct {
	mu       sync.Mutex
	messages []domain.Message
}

func (l *chatLog) list(context.Context, string, string) ([]domain.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Message(nil), l.messages...), nil
}

func (l *chatLog) add(m domain.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append([]domain.Message{m}, l.messages...)
}

func TestStreamChat(t *testing.T) {
	hub := realtime.NewHub(idleSource{ch: make(chan *pq.Notification)}, realtime.Config{}, nil, discard())
	chat := &chatLog{messages: []domain.Message{{ID: "m1", JobID: jobID, SenderID: peerID, ReceiverID: callerID, Content: "hello"}}}
	h := New(&Dependencies{
		Logger:            discard(),
		Marketplace:       &stubMarketplace{listChat: chat.list},
		Subscriber:        hub,
		KeepAliveInterval: time.Hour,
	})
	server := httptest.NewServer(newTestRouter(h))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/v1/jobs/"+jobID+"/messages/"+peerID+"/stream", nil)
	require.NoError(t, err)
	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	event, data := readEvent(t, reader)
	assert.Equal(t, "messages", event)
	var seeded dto.MessagesResponse
	require.NoError(t, json.Unmarshal([]byte(data), &seeded))
	require.Len(t, seeded.Messages, 1)

	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	// someone else's message on the same job is not pushed
	hub.Dispatch(realtime.Event{Table: "messages", Op: realtime.OpInsert, Record: map[string]interface{}{
		"job_id": jobID, "sender_id": bidID, "receiver_id": callerID,
	}})

	chat.add(domain.Message{ID: "m2", JobID: jobID, SenderID: callerID, ReceiverID: peerID, Content: "tomorrow works"})
	hub.Dispatch(realtime.Event{Table: "messages", Op: realtime.OpInsert, Record: map[string]interface{}{
		"job_id": jobID, "sender_id": callerID, "receiver_id": peerID,
	}})

	event, data = readEvent(t, reader)
	assert.Equal(t, "messages", event)
	var updated dto.MessagesResponse
	require.NoError(t, json.Unmarshal([]byte(data), &updated))
	require.Len(t, updated.Messages, 2)
	assert.Equal(t, "m2", updated.Messages[0].ID)

	cancel()
	require.Eventually(t, func() bool { return hub.Len() == 0 }, time.Second, 5*time.Millisecond, "subscription must be released on disconnect")
}

func TestStreamChat_SeedFailure(t *testing.T) {
	hub := realtime.NewHub(idleSource{ch: make(chan *pq.Notification)}, realtime.Config{}, nil, discard())
	m := &stubMarketplace{listChat: func(context.Context, string, string) ([]domain.Message, error) {
		return nil, domain.Unavailable(errors.New("connection refused"))
	}}
	h := New(&Dependencies{Logger: discard(), Marketplace: m, Subscriber: hub})
	r := newTestRouter(h)

	w := doJSON(t, r, http.MethodGet, "/api/v1/jobs/"+jobID+"/messages/"+peerID+"/stream", "")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, 0, hub.Len())

	w = doJSON(t, r, http.MethodGet, "/api/v1/jobs/"+jobID+"/messages/not-a-uuid/stream", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
