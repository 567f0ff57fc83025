package wizard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"tablebook/internal/calendar"
	"tablebook/internal/submission"

	"github.com/gin-gonic/gin"
)

type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	claims   map[string]bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: make(map[string]Session), claims: make(map[string]bool)}
}

func (m *memoryStore) ClaimSubmit(ctx context.Context, id string) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claims[id] {
		return nil, ErrInvalidState
	}
	m.claims[id] = true
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.claims, id)
	}, nil
}

func (m *memoryStore) Load(ctx context.Context, id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return s, nil
}

func (m *memoryStore) Save(ctx context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

type fakeAvailability struct {
	dates []string
	err   error
}

func (f fakeAvailability) GetFullyBookedDates(ctx context.Context) ([]string, error) {
	return f.dates, f.err
}

type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Message    string          `json:"message"`
	Data       SessionResponse `json:"data"`
	Errors     json.RawMessage `json:"errors"`
}

type harness struct {
	t      *testing.T
	engine *gin.Engine
	store  *memoryStore
}

func newHarness(t *testing.T, availability FullyBookedSource, gw Gateway) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := newMemoryStore()
	svc := NewService(testMachine(), store, availability, gw)

	engine := gin.New()
	SetupWizardRoutes(engine.Group("/api/v1"), NewController(svc))
	return &harness{t: t, engine: engine, store: store}
}

func (h *harness) do(method, path string, body any) (int, envelope) {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			h.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		h.t.Fatalf("decode %s %s: %v (%s)", method, path, err, rec.Body.String())
	}
	return rec.Code, env
}

func (h *harness) create() string {
	h.t.Helper()
	code, env := h.do(http.MethodPost, "/api/v1/wizard/sessions", nil)
	if code != http.StatusCreated {
		h.t.Fatalf("create status = %d (%s)", code, env.Message)
	}
	return env.Data.Session.ID
}

func (h *harness) act(id string, req ActionRequest, wantCode int) envelope {
	h.t.Helper()
	code, env := h.do(http.MethodPost, "/api/v1/wizard/sessions/"+id+"/actions", req)
	if code != wantCode {
		h.t.Fatalf("%s: status = %d, want %d (%s %s)", req.Type, code, wantCode, env.Message, env.Errors)
	}
	return env
}

func TestWizardFlowOverHTTP(t *testing.T) {
	gw := &fakeGateway{}
	h := newHarness(t, fakeAvailability{dates: []string{"2025-04-12"}}, gw)
	id := h.create()

	env := h.act(id, ActionRequest{Type: ActionSelectDate, Value: "2025-04-12"}, http.StatusBadRequest)
	if env.Data.Calendar == nil {
		t.Fatal("rejected action should still render the calendar")
	}
	if cell, _ := env.Data.Calendar.Cell("2025-04-12"); cell.Class != calendar.ClassFullyBooked {
		t.Errorf("2025-04-12 class = %s", cell.Class)
	}

	h.act(id, ActionRequest{Type: ActionSelectDate, Value: "2025-04-10"}, http.StatusOK)
	h.act(id, ActionRequest{Type: ActionSelectTimeSlot, Value: "lunch-12:00"}, http.StatusOK)
	env = h.act(id, ActionRequest{Type: ActionSelectPartySize, Value: "2"}, http.StatusOK)
	if env.Data.CanProceed {
		t.Error("can_proceed before a course is chosen")
	}
	h.act(id, ActionRequest{Type: ActionProceedToDetails}, http.StatusBadRequest)

	env = h.act(id, ActionRequest{Type: ActionSelectCourse, Value: "lunch-grill"}, http.StatusOK)
	if !env.Data.CanProceed || env.Data.Summary == nil || env.Data.Summary.Course != "グリルランチ（¥1,800）" {
		t.Errorf("after course: can_proceed=%v summary=%+v", env.Data.CanProceed, env.Data.Summary)
	}

	env = h.act(id, ActionRequest{Type: ActionProceedToDetails}, http.StatusOK)
	if env.Data.Step != "entering_details" {
		t.Errorf("step = %s", env.Data.Step)
	}

	bad := validDetails
	bad.Name = ""
	bad.Email = "nope"
	env = h.act(id, ActionRequest{Type: ActionProceedToConfirmation, Details: &bad}, http.StatusUnprocessableEntity)
	var verr ValidationError
	if err := json.Unmarshal(env.Errors, &verr); err != nil || verr.Field != FieldName {
		t.Errorf("errors = %s", env.Errors)
	}
	if stored, _ := h.store.Load(context.Background(), id); stored.Draft.Email != "nope" {
		t.Errorf("typed details not kept after validation failure: %+v", stored.Draft.Details)
	}

	good := validDetails
	env = h.act(id, ActionRequest{Type: ActionProceedToConfirmation, Details: &good}, http.StatusOK)
	if env.Data.Confirmation == nil || env.Data.Confirmation.Requests != "（なし）" {
		t.Errorf("confirmation = %+v", env.Data.Confirmation)
	}

	h.act(id, ActionRequest{Type: ActionSubmit}, http.StatusBadRequest)
	h.act(id, ActionRequest{Type: ActionSetPolicyAgreement, Agree: true}, http.StatusOK)
	env = h.act(id, ActionRequest{Type: ActionSubmit}, http.StatusOK)

	if env.Data.Step != "completed" || env.Data.Session.ReservationNumber == "" {
		t.Errorf("after submit: %+v", env.Data.Session)
	}
	if len(gw.got) != 1 || gw.got[0].Time != "12:00" || gw.got[0].Guests != 2 {
		t.Errorf("gateway records = %+v", gw.got)
	}

	h.act(id, ActionRequest{Type: ActionBack}, http.StatusConflict)
	env = h.act(id, ActionRequest{Type: ActionRestart}, http.StatusOK)
	if env.Data.Step != "selecting_schedule" || env.Data.Session.Draft != (Draft{}) {
		t.Errorf("after restart: %+v", env.Data.Session)
	}
}

func TestSubmitDispatchFailureOverHTTP(t *testing.T) {
	cache := submission.NewMemoryCache()
	gw := submission.NewGateway(failingDispatcher{}, cache, nil)
	h := newHarness(t, nil, gw)

	id := h.create()
	s := must(t)(testMachine().SetPolicyAgreement(confirming(t, testMachine()), true))
	s.ID = id
	if err := h.store.Save(context.Background(), s); err != nil {
		t.Fatal(err)
	}

	env := h.act(id, ActionRequest{Type: ActionSubmit}, http.StatusBadGateway)
	if !Has(env.Data.Effects, EffectShowMessage) {
		t.Errorf("effects = %+v", env.Data.Effects)
	}

	stored, _ := h.store.Load(context.Background(), id)
	if stored.Step != StepConfirming || stored.Submitting {
		t.Errorf("stored session = %+v", stored)
	}
	if records, _ := cache.List(context.Background()); len(records) != 1 {
		t.Errorf("cached records = %d, want 1", len(records))
	}
}

func TestWizardRequestErrors(t *testing.T) {
	h := newHarness(t, fakeAvailability{err: errors.New("sheet offline")}, &fakeGateway{})

	code, _ := h.do(http.MethodGet, "/api/v1/wizard/sessions/missing", nil)
	if code != http.StatusNotFound {
		t.Errorf("unknown session status = %d", code)
	}

	id := h.create()
	code, _ = h.do(http.MethodPost, "/api/v1/wizard/sessions/"+id+"/actions", map[string]string{"type": "teleport"})
	if code != http.StatusBadRequest {
		t.Errorf("unknown action status = %d", code)
	}

	// availability failure degrades to a calendar with nothing booked
	code, env := h.do(http.MethodGet, "/api/v1/wizard/sessions/"+id, nil)
	if code != http.StatusOK || env.Data.Calendar == nil {
		t.Fatalf("get status = %d, calendar = %v", code, env.Data.Calendar)
	}
	for _, c := range env.Data.Calendar.Cells {
		if c.Class == calendar.ClassFullyBooked {
			t.Errorf("%s marked fully booked without data", c.Date)
		}
	}

	h.act(id, ActionRequest{Type: ActionUpdateDetails, Details: &validDetails}, http.StatusConflict)
}

// blockingGateway holds every Submit until release is closed.
type blockingGateway struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (g *blockingGateway) Submit(ctx context.Context, rec submission.Record) (submission.Record, error) {
	if g.calls.Add(1) == 1 {
		close(g.started)
	}
	<-g.release
	rec.DeliveryStatus = submission.StatusUnconfirmed
	return rec, nil
}

func TestConcurrentSubmitDispatchesOnce(t *testing.T) {
	gw := &blockingGateway{started: make(chan struct{}), release: make(chan struct{})}
	h := newHarness(t, nil, gw)

	id := h.create()
	s := must(t)(testMachine().SetPolicyAgreement(confirming(t, testMachine()), true))
	s.ID = id
	if err := h.store.Save(context.Background(), s); err != nil {
		t.Fatal(err)
	}

	path := "/api/v1/wizard/sessions/" + id + "/actions"
	first := make(chan int, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(`{"type":"submit"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.engine.ServeHTTP(rec, req)
		first <- rec.Code
	}()
	<-gw.started

	stored, _ := h.store.Load(context.Background(), id)
	if !stored.Submitting {
		t.Error("submitting state not saved while the gateway call is in flight")
	}

	env := h.act(id, ActionRequest{Type: ActionSubmit}, http.StatusConflict)
	if e, _ := Find(env.Data.Effects, EffectSetConfirmControl); e.Enabled || e.Label != SubmittingLabel {
		t.Errorf("confirm control during flight = %+v", e)
	}
	h.act(id, ActionRequest{Type: ActionRestart}, http.StatusConflict)

	close(gw.release)
	if code := <-first; code != http.StatusOK {
		t.Errorf("first submit status = %d", code)
	}
	if n := gw.calls.Load(); n != 1 {
		t.Errorf("gateway calls = %d, want 1", n)
	}

	// the claim is gone, but the completed session refuses another submit
	h.act(id, ActionRequest{Type: ActionSubmit}, http.StatusConflict)
	if n := gw.calls.Load(); n != 1 {
		t.Errorf("gateway calls after completion = %d, want 1", n)
	}
	stored, _ = h.store.Load(context.Background(), id)
	if stored.Step != StepCompleted || stored.Submitting {
		t.Errorf("stored session = %+v", stored)
	}
}

type okDispatcher struct{}

func (okDispatcher) Dispatch(ctx context.Context, rec submission.Record) error { return nil }

type brokenCache struct{}

func (brokenCache) Append(ctx context.Context, rec submission.Record) error {
	return errors.New("disk full")
}
func (brokenCache) List(ctx context.Context) ([]submission.Record, error) { return nil, nil }

func TestSubmitCacheFailureOffersPhone(t *testing.T) {
	h := newHarness(t, nil, submission.NewGateway(okDispatcher{}, brokenCache{}, nil))

	id := h.create()
	s := must(t)(testMachine().SetPolicyAgreement(confirming(t, testMachine()), true))
	s.ID = id
	if err := h.store.Save(context.Background(), s); err != nil {
		t.Fatal(err)
	}

	env := h.act(id, ActionRequest{Type: ActionSubmit}, http.StatusBadGateway)
	msg, _ := Find(env.Data.Effects, EffectShowMessage)
	if !strings.Contains(msg.Message, "03-1234-5678") {
		t.Errorf("message = %q, want the restaurant phone", msg.Message)
	}
	if env.Data.Step != "confirming" || env.Data.Session.ReservationNumber != "" {
		t.Errorf("session = %+v", env.Data.Session)
	}
}
