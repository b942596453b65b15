package marketplace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cuongbtq/gigmarket/internal/domain"
	"github.com/cuongbtq/gigmarket/internal/events"
	"github.com/cuongbtq/gigmarket/internal/payment"
	"github.com/cuongbtq/gigmarket/internal/storage"
)

// memStore mirrors the conditional writes of the SQL store under one mutex
type memStore struct {
	mu        sync.Mutex
	seq       int
	clock     time.Time
	jobs      map[string]*domain.Job
	bids      map[string]*domain.Bid
	contracts map[string]*domain.Contract
	messages  []*domain.Message
	notifs    []domain.Notification
	users     map[string]string

	failContractInsert error
}

func newMemStore() *memStore {
	return &memStore{
		clock:     time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC),
		jobs:      map[string]*domain.Job{},
		bids:      map[string]*domain.Bid{},
		contracts: map[string]*domain.Contract{},
		users:     map[string]string{},
	}
}

func (m *memStore) next(prefix string) (string, time.Time) {
	m.seq++
	m.clock = m.clock.Add(time.Second)
	return fmt.Sprintf("%s-%d", prefix, m.seq), m.clock
}

func (m *memStore) CreateJob(_ context.Context, job *domain.Job) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := *job
	j.ID, j.CreatedAt = m.next("job")
	j.UpdatedAt = j.CreatedAt
	j.Status = domain.JobStatusOpen
	m.jobs[j.ID] = &j
	out := j
	return &out, nil
}

func (m *memStore) GetJob(_ context.Context, jobID string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	out := *j
	return &out, nil
}

func (m *memStore) ListOpenJobs(_ context.Context, filter storage.JobFilter) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Job
	for _, j := range m.jobs {
		if j.Status != domain.JobStatusOpen {
			continue
		}
		if c := filter.Cursor; c != nil && !j.CreatedAt.Before(c.CreatedAt) {
			continue
		}
		out = append(out, *j)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	if len(out) > filter.PageSize+1 {
		out = out[:filter.PageSize+1]
	}
	return out, nil
}

func (m *memStore) ListJobsByClient(_ context.Context, clientID string) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Job
	for _, j := range m.jobs {
		if j.ClientID == clientID {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (m *memStore) InsertBid(_ context.Context, bid *domain.Bid) (*domain.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[bid.JobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	for _, b := range m.bids {
		if b.JobID == bid.JobID && b.WorkerID == bid.WorkerID {
			return nil, domain.ErrDuplicateBid
		}
	}
	if j.Status != domain.JobStatusOpen {
		return nil, domain.ErrJobNotOpen
	}
	b := *bid
	b.ID, b.CreatedAt = m.next("bid")
	b.UpdatedAt = b.CreatedAt
	m.bids[b.ID] = &b
	out := b
	return &out, nil
}

func (m *memStore) GetBid(_ context.Context, bidID string) (*domain.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bids[bidID]
	if !ok {
		return nil, domain.ErrBidNotFound
	}
	out := *b
	return &out, nil
}

func (m *memStore) UpdateBidAmount(_ context.Context, bidID, workerID string, amount int64) (*domain.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bids[bidID]
	if !ok {
		return nil, domain.ErrBidNotFound
	}
	if b.WorkerID != workerID {
		return nil, domain.ErrNotBidOwner
	}
	if m.jobs[b.JobID].Status != domain.JobStatusOpen {
		return nil, domain.ErrJobNotOpen
	}
	_, b.UpdatedAt = m.next("tick")
	b.BidAmount = amount
	out := *b
	return &out, nil
}

func (m *memStore) ListBidsByJob(_ context.Context, jobID string) ([]domain.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Bid{}
	for _, b := range m.bids {
		if b.JobID == jobID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	return out, nil
}

func (m *memStore) ListBidsByWorker(_ context.Context, workerID string) ([]domain.WorkerBid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.WorkerBid
	for _, b := range m.bids {
		if b.WorkerID == workerID {
			j := m.jobs[b.JobID]
			out = append(out, domain.WorkerBid{Bid: *b, JobTitle: j.Title, JobBudget: j.Budget, JobStatus: j.Status})
		}
	}
	return out, nil
}

func (m *memStore) AcceptBid(_ context.Context, jobID, bidID string) (*domain.Hire, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bids[bidID]
	if !ok || b.JobID != jobID {
		return nil, domain.ErrBidNotFound
	}
	j, ok := m.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	if j.Status != domain.JobStatusOpen {
		return nil, domain.ErrJobAlreadyAssigned
	}
	// all-or-nothing: fail before touching the job
	if m.failContractInsert != nil {
		return nil, m.failContractInsert
	}

	workerID, amount := b.WorkerID, b.BidAmount
	j.Status = domain.JobStatusInProgress
	j.AcceptedWorkerID = &workerID
	j.FinalAmount = &amount

	c := &domain.Contract{
		JobID:    jobID,
		ClientID: j.ClientID,
		WorkerID: workerID,
		Amount:   amount,
		Status:   domain.ContractStatusUnfunded,
	}
	c.ID, c.CreatedAt = m.next("contract")
	m.contracts[c.ID] = c

	job, contract := *j, *c
	return &domain.Hire{Job: &job, Contract: &contract}, nil
}

func (m *memStore) GetContract(_ context.Context, contractID string) (*domain.Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contracts[contractID]
	if !ok {
		return nil, domain.ErrContractNotFound
	}
	out := *c
	return &out, nil
}

func (m *memStore) SetPaymentOrder(_ context.Context, contractID, orderID string) (*domain.Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contracts[contractID]
	if !ok {
		return nil, domain.ErrContractNotFound
	}
	if c.IsFunded() {
		return nil, domain.ErrContractAlreadyFunded
	}
	c.PaymentOrderID = &orderID
	out := *c
	return &out, nil
}

func (m *memStore) MarkContractFunded(_ context.Context, contractID, orderID, paymentID string) (*domain.Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contracts[contractID]
	if !ok {
		return nil, domain.ErrContractNotFound
	}
	if c.IsFunded() {
		if c.PaymentID != nil && *c.PaymentID == paymentID {
			out := *c
			return &out, nil
		}
		return nil, domain.ErrContractAlreadyFunded
	}
	if c.PaymentOrderID == nil || *c.PaymentOrderID != orderID {
		return nil, domain.ErrPaymentOrderMismatch
	}
	c.Status = domain.ContractStatusFunded
	c.PaymentID = &paymentID
	_, fundedAt := m.next("tick")
	c.FundedAt = &fundedAt
	out := *c
	return &out, nil
}

func (m *memStore) CountUnread(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, x := range m.notifs {
		if x.UserID == userID && !x.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListNotifications(_ context.Context, userID string) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Notification
	for i := len(m.notifs) - 1; i >= 0; i-- {
		if m.notifs[i].UserID == userID {
			out = append(out, m.notifs[i])
		}
	}
	return out, nil
}

func (m *memStore) MarkAllRead(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.notifs {
		if m.notifs[i].UserID == userID && !m.notifs[i].IsRead {
			m.notifs[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (m *memStore) InsertMessage(_ context.Context, msg *domain.Message) (*domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg.ClientRef != nil {
		for _, existing := range m.messages {
			if existing.SenderID == msg.SenderID && existing.ClientRef != nil && *existing.ClientRef == *msg.ClientRef {
				out := *existing
				return &out, nil
			}
		}
	}
	c := *msg
	c.ID, c.CreatedAt = m.next("msg")
	m.messages = append(m.messages, &c)
	out := c
	return &out, nil
}

func (m *memStore) ListMessagesForUser(_ context.Context, userID string) ([]domain.InboxMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.InboxMessage
	for i := len(m.messages) - 1; i >= 0; i-- {
		msg := m.messages[i]
		if msg.SenderID != userID && msg.ReceiverID != userID {
			continue
		}
		im := domain.InboxMessage{Message: *msg}
		if name, ok := m.users[msg.SenderID]; ok {
			im.SenderFullName = &name
		}
		if name, ok := m.users[msg.ReceiverID]; ok {
			im.ReceiverFullName = &name
		}
		if j, ok := m.jobs[msg.JobID]; ok {
			title := j.Title
			im.JobTitle = &title
		}
		out = append(out, im)
	}
	return out, nil
}

func (m *memStore) ListChat(_ context.Context, jobID, userID, otherID string) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Message
	for i := len(m.messages) - 1; i >= 0; i-- {
		msg := m.messages[i]
		if msg.JobID != jobID {
			continue
		}
		if (msg.SenderID == userID && msg.ReceiverID == otherID) || (msg.SenderID == otherID && msg.ReceiverID == userID) {
			out = append(out, *msg)
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e *events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) ofType(eventType string) []*events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*events.Event
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fakeGateway struct {
	orders    int
	createErr error
	validSig  string
}

func (g *fakeGateway) CreateOrder(_ context.Context, amount int64) (*payment.Order, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.orders++
	return &payment.Order{
		ID:       fmt.Sprintf("order_%d", g.orders),
		Amount:   payment.ToMinorUnits(amount),
		Currency: "INR",
	}, nil
}

func (g *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return signature == g.validSig+":"+orderID+":"+paymentID
}

func (g *fakeGateway) Checkout(order *payment.Order, description string, prefill payment.Prefill) *payment.CheckoutConfig {
	return &payment.CheckoutConfig{
		Key:         "rzp_test_key",
		OrderID:     order.ID,
		Amount:      order.Amount,
		Currency:    order.Currency,
		Description: description,
		Prefill:     prefill,
	}
}

type memIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
	err  error
}

func (s *memIdempotency) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *memIdempotency) Forget(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}

type fixture struct {
	svc       *Service
	store     *memStore
	publisher *recordingPublisher
	gateway   *fakeGateway
	idem      *memIdempotency
}

func newFixture() *fixture {
	store := newMemStore()
	publisher := &recordingPublisher{}
	gateway := &fakeGateway{validSig: "sig"}
	idem := &memIdempotency{keys: map[string]bool{}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &fixture{
		svc:       NewService(store, publisher, gateway, idem, nil, Config{DefaultPageSize: 2, MaxPageSize: 5}, logger),
		store:     store,
		publisher: publisher,
		gateway:   gateway,
		idem:      idem,
	}
}

var errBoom = errors.New("boom")

var (
	client   = &domain.Identity{ID: "client-1", Name: "Asha", Email: "asha@example.com"}
	ravi     = &domain.Identity{ID: "worker-1", Name: "Ravi"}
	meena    = &domain.Identity{ID: "worker-2", Name: "Meena"}
	nameless = &domain.Identity{ID: "worker-3"}
)
