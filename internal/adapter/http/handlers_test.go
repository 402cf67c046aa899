package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/daskhq/dask/internal/adapter/ws"
	"github.com/daskhq/dask/internal/domain"
	"github.com/daskhq/dask/internal/domain/claim"
	"github.com/daskhq/dask/internal/domain/identity"
	"github.com/daskhq/dask/internal/domain/oplog"
	"github.com/daskhq/dask/internal/domain/task"
	"github.com/daskhq/dask/internal/ledger"
	"github.com/daskhq/dask/internal/middleware"
	"github.com/daskhq/dask/internal/service"
)

type memJournal struct {
	recs []oplog.Record
}

func (j *memJournal) Append(_ context.Context, rec *oplog.Record) error {
	j.recs = append(j.recs, *rec)
	return nil
}

func (j *memJournal) Load(_ context.Context) ([]oplog.Record, error) {
	return append([]oplog.Record(nil), j.recs...), nil
}

type memIdentityStore struct {
	byPrefix map[string]*identity.Identity
	byAddr   map[identity.Address]*identity.Identity
}

func newMemIdentityStore() *memIdentityStore {
	return &memIdentityStore{
		byPrefix: make(map[string]*identity.Identity),
		byAddr:   make(map[identity.Address]*identity.Identity),
	}
}

func (s *memIdentityStore) CreateIdentity(_ context.Context, id *identity.Identity) error {
	if _, ok := s.byAddr[id.Address]; ok {
		return domain.ErrConflict
	}
	s.byAddr[id.Address] = id
	s.byPrefix[id.KeyPrefix] = id
	return nil
}

func (s *memIdentityStore) GetIdentityByKeyPrefix(_ context.Context, prefix string) (*identity.Identity, error) {
	id, ok := s.byPrefix[prefix]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return id, nil
}

func (s *memIdentityStore) GetIdentity(_ context.Context, addr identity.Address) (*identity.Identity, error) {
	id, ok := s.byAddr[addr]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return id, nil
}

func (s *memIdentityStore) ListIdentities(_ context.Context) ([]identity.Identity, error) {
	out := make([]identity.Identity, 0, len(s.byAddr))
	for _, id := range s.byAddr {
		out = append(out, *id)
	}
	return out, nil
}

func addr(n byte) identity.Address {
	return identity.Address(fmt.Sprintf("0x%040x", n))
}

var (
	admin  = addr(0xaa)
	owner  = addr(1)
	worker = addr(2)
)

type testServer struct {
	router chi.Router
}

// newTestServer stands up the full router over a live engine with funded
// owner and worker accounts. The caller identity comes from the X-Caller
// header, standing in for the API-key middleware.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	eng, err := ledger.New(ledger.Config{
		Admin:      admin,
		FeePercent: 1,
		FeeBase:    100,
		Journal:    &memJournal{},
	})
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	ctx := context.Background()
	for _, a := range []identity.Address{owner, worker} {
		if err := eng.Deposit(ctx, admin, a, 10_000); err != nil {
			t.Fatalf("deposit: %v", err)
		}
	}

	svc, err := service.NewLedgerService(service.LedgerConfig{
		Engine:  eng,
		Journal: &memJournal{},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	keyring := service.NewKeyring(newMemIdentityStore())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if caller, err := identity.Parse(req.Header.Get("X-Caller")); err == nil {
				req = req.WithContext(middleware.WithCaller(req.Context(), caller))
			}
			next.ServeHTTP(w, req)
		})
	})
	MountRoutes(r, NewHandlers(svc, keyring), ws.NewHub())

	return &testServer{router: r}
}

func (ts *testServer) do(t *testing.T, method, path string, caller identity.Address, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if caller != identity.Zero {
		req.Header.Set("X-Caller", string(caller))
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func wantError(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	resp := decode[errorResponse](t, rec)
	if resp.Error != message {
		t.Fatalf("error = %q, want %q", resp.Error, message)
	}
}

func (ts *testServer) createTask(t *testing.T) task.Task {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/v1/tasks", owner, task.CreateRequest{
		Name:           "fix pagination",
		DescriptionRef: "QmRef1",
		Reward:         1000,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create task: status = %d, body %s", rec.Code, rec.Body.String())
	}
	return decode[task.Task](t, rec)
}

func (ts *testServer) assignTask(t *testing.T, id int64) {
	t.Helper()
	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/assign", id), owner,
		assignRequest{Assignee: worker})
	if rec.Code != http.StatusOK {
		t.Fatalf("assign task: status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func (ts *testServer) completeTask(t *testing.T, id int64) {
	t.Helper()
	for _, caller := range []identity.Address{owner, worker} {
		rec := ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/complete", id), caller, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("complete task as %s: status = %d, body %s", caller, rec.Code, rec.Body.String())
		}
	}
}

func TestCreateTaskEndpoint(t *testing.T) {
	ts := newTestServer(t)

	got := ts.createTask(t)
	if got.ID != 1 {
		t.Errorf("ID = %d, want 1", got.ID)
	}
	if got.Owner != owner {
		t.Errorf("Owner = %s, want %s", got.Owner, owner)
	}
	if got.Reward != 1000 {
		t.Errorf("Reward = %d, want 1000", got.Reward)
	}
	if got.Status != task.StatusNew {
		t.Errorf("Status = %s, want %s", got.Status, task.StatusNew)
	}
}

func TestCreateTaskZeroReward(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/tasks", owner, task.CreateRequest{
		Name: "freebie", DescriptionRef: "QmRef", Reward: 0,
	})
	wantError(t, rec, http.StatusBadRequest, "reward can't be zero")
}

func TestCreateTaskMalformedBody(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", strings.NewReader("{not json"))
	req.Header.Set("X-Caller", string(owner))
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	wantError(t, rec, http.StatusBadRequest, "invalid request body")
}

func TestAssignTaskEndpoint(t *testing.T) {
	ts := newTestServer(t)
	created := ts.createTask(t)

	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/assign", created.ID), owner,
		assignRequest{Assignee: worker})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	got := decode[task.Task](t, rec)
	if got.Status != task.StatusAssigned {
		t.Errorf("Status = %s, want %s", got.Status, task.StatusAssigned)
	}
	if got.Assignee != worker {
		t.Errorf("Assignee = %s, want %s", got.Assignee, worker)
	}
}

func TestAssignTaskNotOwner(t *testing.T) {
	ts := newTestServer(t)
	created := ts.createTask(t)

	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/assign", created.ID), worker,
		assignRequest{Assignee: worker})
	wantError(t, rec, http.StatusForbidden, "only task owner")
}

func TestAssignTaskBadAssignee(t *testing.T) {
	ts := newTestServer(t)
	created := ts.createTask(t)

	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/assign", created.ID), owner,
		map[string]string{"assignee": "not-an-address"})
	wantError(t, rec, http.StatusBadRequest, "invalid assignee")
}

func TestGetTaskNotFound(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/tasks/42", owner, nil)
	wantError(t, rec, http.StatusNotFound, "task not found")
}

func TestGetTaskBadID(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/tasks/banana", owner, nil)
	wantError(t, rec, http.StatusBadRequest, "invalid id")
}

func TestGetTaskByRef(t *testing.T) {
	ts := newTestServer(t)
	created := ts.createTask(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/tasks/by-ref/QmRef1", owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	got := decode[task.Task](t, rec)
	if got.ID != created.ID {
		t.Errorf("ID = %d, want %d", got.ID, created.ID)
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/tasks/by-ref/QmMissing", owner, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing ref: status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestListTasksMemberFilter(t *testing.T) {
	ts := newTestServer(t)
	ts.createTask(t)
	created := ts.createTask(t)
	ts.assignTask(t, created.ID)

	rec := ts.do(t, http.MethodGet, "/api/v1/tasks", owner, nil)
	if got := decode[[]task.Task](t, rec); len(got) != 2 {
		t.Errorf("all tasks: len = %d, want 2", len(got))
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/tasks?member="+string(worker), owner, nil)
	got := decode[[]task.Task](t, rec)
	if len(got) != 1 || got[0].ID != created.ID {
		t.Errorf("member filter: got %+v, want the assigned task only", got)
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/tasks?member=bogus", owner, nil)
	wantError(t, rec, http.StatusBadRequest, "invalid member")
}

func TestCompleteAndRewardFlow(t *testing.T) {
	ts := newTestServer(t)
	created := ts.createTask(t)
	ts.assignTask(t, created.ID)
	ts.completeTask(t, created.ID)

	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/reward", created.ID), worker, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reward: status = %d, body %s", rec.Code, rec.Body.String())
	}
	got := decode[task.Task](t, rec)
	if !got.Paid || got.Reward != 0 {
		t.Errorf("after payout: Paid = %v, Reward = %d", got.Paid, got.Reward)
	}

	// 1% fee on 1000: worker nets 990 on top of the initial 10k.
	rec = ts.do(t, http.MethodGet, "/api/v1/accounts/"+string(worker), owner, nil)
	if bal := decode[balanceResponse](t, rec); bal.Balance != 10_990 {
		t.Errorf("worker balance = %d, want 10990", bal.Balance)
	}
}

func TestRewardNotAssignee(t *testing.T) {
	ts := newTestServer(t)
	created := ts.createTask(t)
	ts.assignTask(t, created.ID)
	ts.completeTask(t, created.ID)

	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/reward", created.ID), owner, nil)
	wantError(t, rec, http.StatusForbidden, "only task assignee")
}

func TestRecallCancelledTask(t *testing.T) {
	ts := newTestServer(t)
	created := ts.createTask(t)

	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/cancel", created.ID), owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/recall", created.ID), owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("recall: status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Recall is fee-free: the full escrow returns.
	rec = ts.do(t, http.MethodGet, "/api/v1/accounts/"+string(owner), owner, nil)
	if bal := decode[balanceResponse](t, rec); bal.Balance != 10_000 {
		t.Errorf("owner balance = %d, want 10000", bal.Balance)
	}
}

func TestCompleteWrongState(t *testing.T) {
	ts := newTestServer(t)
	created := ts.createTask(t)

	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/complete", created.ID), owner, nil)
	wantError(t, rec, http.StatusConflict, "task must be in progress")
}

func TestClaimFlow(t *testing.T) {
	ts := newTestServer(t)
	created := ts.createTask(t)
	ts.assignTask(t, created.ID)

	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/claims", created.ID), worker,
		raiseClaimRequest{Amount: 400})
	if rec.Code != http.StatusCreated {
		t.Fatalf("raise claim: status = %d, body %s", rec.Code, rec.Body.String())
	}
	raised := decode[claim.Claim](t, rec)
	if raised.Resolution != claim.ResolutionOpen {
		t.Errorf("Resolution = %s, want %s", raised.Resolution, claim.ResolutionOpen)
	}

	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/claims", created.ID), worker,
		raiseClaimRequest{Amount: 700})
	wantError(t, rec, http.StatusBadRequest, "claim too high")

	path := fmt.Sprintf("/api/v1/admin/tasks/%d/claims/%d/settle", created.ID, raised.ID)
	rec = ts.do(t, http.MethodPost, path, admin,
		settleClaimRequest{Claimant: worker, Resolution: claim.ResolutionApproved})
	if rec.Code != http.StatusOK {
		t.Fatalf("settle: status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/accounts/"+string(worker), owner, nil)
	if bal := decode[balanceResponse](t, rec); bal.Balance != 10_400 {
		t.Errorf("worker balance = %d, want 10400", bal.Balance)
	}

	rec = ts.do(t, http.MethodPost, path, worker,
		settleClaimRequest{Claimant: worker, Resolution: claim.ResolutionApproved})
	wantError(t, rec, http.StatusForbidden, "only admin")
}

func TestListTaskClaims(t *testing.T) {
	ts := newTestServer(t)
	created := ts.createTask(t)
	ts.assignTask(t, created.ID)

	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/claims", created.ID), worker,
		raiseClaimRequest{Amount: 100})
	if rec.Code != http.StatusCreated {
		t.Fatalf("raise claim: status = %d", rec.Code)
	}

	path := fmt.Sprintf("/api/v1/tasks/%d/claims?claimant=%s", created.ID, worker)
	rec = ts.do(t, http.MethodGet, path, owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list claims: status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := decode[[]claim.Claim](t, rec); len(got) != 1 || got[0].Amount != 100 {
		t.Errorf("claims = %+v, want one claim of 100", got)
	}

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/tasks/%d/claims", created.ID), owner, nil)
	wantError(t, rec, http.StatusBadRequest, "invalid claimant")
}

func TestGetClaimNotFound(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/claims/9", owner, nil)
	wantError(t, rec, http.StatusNotFound, "claim not found")
}

func TestPausedLedgerReturns503(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/admin/pause", admin, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("pause: status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/tasks", owner, task.CreateRequest{
		Name: "while paused", DescriptionRef: "QmRef", Reward: 100,
	})
	wantError(t, rec, http.StatusServiceUnavailable, "ledger is paused")

	rec = ts.do(t, http.MethodPost, "/api/v1/admin/unpause", admin, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("unpause: status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestPauseNotAdmin(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/admin/pause", owner, nil)
	wantError(t, rec, http.StatusForbidden, "only admin")
}

func TestAdminDepositAndFees(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/admin/deposits", admin,
		depositRequest{Account: addr(9), Amount: 500})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("deposit: status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = ts.do(t, http.MethodGet, "/api/v1/accounts/"+string(addr(9)), owner, nil)
	if bal := decode[balanceResponse](t, rec); bal.Balance != 500 {
		t.Errorf("balance = %d, want 500", bal.Balance)
	}

	rec = ts.do(t, http.MethodPut, "/api/v1/admin/fees", admin,
		updateFeesRequest{FeePercent: 5, FeeBase: 100})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("update fees: status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = ts.do(t, http.MethodGet, "/api/v1/fees", owner, nil)
	fees := decode[service.FeeInfo](t, rec)
	if fees.FeePercent != 5 || fees.FeeBase != 100 {
		t.Errorf("fees = %+v, want 5/100", fees)
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/admin/fees/withdraw", admin,
		takeFeesRequest{Amount: 1})
	wantError(t, rec, http.StatusBadRequest, "amount too large")
}

func TestTransferOwnership(t *testing.T) {
	ts := newTestServer(t)
	next := addr(0xbb)

	rec := ts.do(t, http.MethodPost, "/api/v1/admin/transfer", admin,
		transferRequest{NewAdmin: next})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("transfer: status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/admin/pause", admin, nil)
	wantError(t, rec, http.StatusForbidden, "only admin")

	rec = ts.do(t, http.MethodPost, "/api/v1/admin/pause", next, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("new admin pause: status = %d", rec.Code)
	}
}

func TestRefundEndpoint(t *testing.T) {
	ts := newTestServer(t)
	created := ts.createTask(t)
	ts.assignTask(t, created.ID)
	ts.completeTask(t, created.ID)

	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/tasks/%d/refund", created.ID), admin,
		refundRequest{Member: owner, Amount: 300})
	if rec.Code != http.StatusOK {
		t.Fatalf("refund: status = %d, body %s", rec.Code, rec.Body.String())
	}
	got := decode[task.Task](t, rec)
	if got.Reward != 1000 {
		t.Errorf("Reward = %d, want 1000", got.Reward)
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/accounts/"+string(owner), owner, nil)
	if bal := decode[balanceResponse](t, rec); bal.Balance != 9_300 {
		t.Errorf("owner balance = %d, want 9300", bal.Balance)
	}
}

func TestRegisterIdentity(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/admin/identities", admin,
		registerRequest{Address: addr(7)})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decode[registerResponse](t, rec)
	if !strings.HasPrefix(resp.APIKey, "dask_") {
		t.Errorf("APIKey = %q, want dask_ prefix", resp.APIKey)
	}
	if resp.Identity == nil || resp.Identity.Address != addr(7) {
		t.Errorf("Identity = %+v, want address %s", resp.Identity, addr(7))
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/admin/identities", admin, nil)
	if got := decode[[]identity.Identity](t, rec); len(got) != 1 {
		t.Errorf("identities: len = %d, want 1", len(got))
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/admin/identities", admin,
		registerRequest{Address: addr(7)})
	wantError(t, rec, http.StatusConflict, "already exists")
}

func TestRegisterIdentityNotAdmin(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/admin/identities", worker,
		registerRequest{Address: addr(0x99)})
	wantError(t, rec, http.StatusForbidden, "only admin")

	// The attempt must not have registered anything.
	rec = ts.do(t, http.MethodGet, "/api/v1/admin/identities", admin, nil)
	if got := decode[[]identity.Identity](t, rec); len(got) != 0 {
		t.Errorf("identities: len = %d, want 0", len(got))
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/admin/identities", worker, nil)
	wantError(t, rec, http.StatusForbidden, "only admin")
}

func TestRegisterIdentityFollowsAdminTransfer(t *testing.T) {
	ts := newTestServer(t)
	next := addr(0xbb)

	rec := ts.do(t, http.MethodPost, "/api/v1/admin/transfer", admin,
		transferRequest{NewAdmin: next})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("transfer: status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/admin/identities", admin,
		registerRequest{Address: addr(0x99)})
	wantError(t, rec, http.StatusForbidden, "only admin")

	rec = ts.do(t, http.MethodPost, "/api/v1/admin/identities", next,
		registerRequest{Address: addr(0x99)})
	if rec.Code != http.StatusCreated {
		t.Errorf("new admin register: status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestStatusEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.createTask(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/status", owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	st := decode[service.Status](t, rec)
	if st.Admin != admin {
		t.Errorf("Admin = %s, want %s", st.Admin, admin)
	}
	if st.Paused {
		t.Error("Paused = true, want false")
	}
	if st.Tasks != 1 {
		t.Errorf("Tasks = %d, want 1", st.Tasks)
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", identity.Zero, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode[map[string]string](t, rec); got["status"] != "ok" {
		t.Errorf("body = %v, want status ok", got)
	}
}
