package http

import (
	"net/http"

	"github.com/daskhq/dask/internal/domain/claim"
	"github.com/daskhq/dask/internal/domain/identity"
	"github.com/daskhq/dask/internal/domain/task"
	"github.com/daskhq/dask/internal/ledger"
	"github.com/daskhq/dask/internal/middleware"
	"github.com/daskhq/dask/internal/service"
)

// Handlers bundles the services the HTTP surface dispatches to.
type Handlers struct {
	ledger  *service.LedgerService
	keyring *service.Keyring
}

// NewHandlers creates the HTTP handler set.
func NewHandlers(ledgerSvc *service.LedgerService, keyring *service.Keyring) *Handlers {
	return &Handlers{ledger: ledgerSvc, keyring: keyring}
}

// ---------------------------------------------------------------------------
// Tasks
// ---------------------------------------------------------------------------

// CreateTask handles POST /api/v1/tasks.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[task.CreateRequest](w, r)
	if !ok {
		return
	}
	caller := middleware.CallerFromContext(r.Context())
	t, err := h.ledger.CreateTask(r.Context(), caller, req)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

type assignRequest struct {
	Assignee identity.Address `json:"assignee"`
}

// AssignTask handles POST /api/v1/tasks/{id}/assign.
func (h *Handlers) AssignTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	req, ok := readJSON[assignRequest](w, r)
	if !ok {
		return
	}
	assignee, err := identity.Parse(string(req.Assignee))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid assignee")
		return
	}
	caller := middleware.CallerFromContext(r.Context())
	t, err := h.ledger.AssignTask(r.Context(), caller, taskID, assignee)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// CancelTask handles POST /api/v1/tasks/{id}/cancel.
func (h *Handlers) CancelTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	caller := middleware.CallerFromContext(r.Context())
	t, err := h.ledger.CancelTask(r.Context(), caller, taskID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// CompleteTask handles POST /api/v1/tasks/{id}/complete.
func (h *Handlers) CompleteTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	caller := middleware.CallerFromContext(r.Context())
	t, err := h.ledger.CompleteTask(r.Context(), caller, taskID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// TakeReward handles POST /api/v1/tasks/{id}/reward.
func (h *Handlers) TakeReward(w http.ResponseWriter, r *http.Request) {
	taskID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	caller := middleware.CallerFromContext(r.Context())
	t, err := h.ledger.TakeReward(r.Context(), caller, taskID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// RecallReward handles POST /api/v1/tasks/{id}/recall.
func (h *Handlers) RecallReward(w http.ResponseWriter, r *http.Request) {
	taskID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	caller := middleware.CallerFromContext(r.Context())
	t, err := h.ledger.RecallReward(r.Context(), caller, taskID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ListTasks handles GET /api/v1/tasks. An optional ?member= filter scopes
// the list to tasks the address owns or is assigned to.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	var (
		tasks []task.Task
		err   error
	)
	if member := r.URL.Query().Get("member"); member != "" {
		addr, perr := identity.Parse(member)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid member")
			return
		}
		tasks, err = h.ledger.TasksByMember(r.Context(), addr)
	} else {
		tasks, err = h.ledger.ListTasks(r.Context())
	}
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// GetTask handles GET /api/v1/tasks/{id}.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	t, err := h.ledger.GetTask(r.Context(), taskID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// GetTaskByRef handles GET /api/v1/tasks/by-ref/{ref}.
func (h *Handlers) GetTaskByRef(w http.ResponseWriter, r *http.Request) {
	ref := urlParam(r, "ref")
	if ref == "" {
		writeError(w, http.StatusBadRequest, "ref is required")
		return
	}
	t, err := h.ledger.GetTaskByRef(r.Context(), ref)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ---------------------------------------------------------------------------
// Claims
// ---------------------------------------------------------------------------

type raiseClaimRequest struct {
	Amount int64 `json:"amount"`
}

// RaiseClaim handles POST /api/v1/tasks/{id}/claims.
func (h *Handlers) RaiseClaim(w http.ResponseWriter, r *http.Request) {
	taskID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	req, ok := readJSON[raiseClaimRequest](w, r)
	if !ok {
		return
	}
	caller := middleware.CallerFromContext(r.Context())
	c, err := h.ledger.RaiseClaim(r.Context(), caller, taskID, req.Amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// ListTaskClaims handles GET /api/v1/tasks/{id}/claims?claimant=0x...
func (h *Handlers) ListTaskClaims(w http.ResponseWriter, r *http.Request) {
	taskID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	claimant, err := identity.Parse(r.URL.Query().Get("claimant"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid claimant")
		return
	}
	claims, err := h.ledger.TaskClaims(r.Context(), taskID, claimant)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if claims == nil {
		claims = []claim.Claim{}
	}
	writeJSON(w, http.StatusOK, claims)
}

// GetClaim handles GET /api/v1/claims/{id}.
func (h *Handlers) GetClaim(w http.ResponseWriter, r *http.Request) {
	claimID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	c, err := h.ledger.GetClaim(r.Context(), claimID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type settleClaimRequest struct {
	Claimant   identity.Address `json:"claimant"`
	Resolution claim.Resolution `json:"resolution"`
}

// SettleClaim handles POST /api/v1/admin/tasks/{taskID}/claims/{claimID}/settle.
func (h *Handlers) SettleClaim(w http.ResponseWriter, r *http.Request) {
	taskID, ok := idParam(w, r, "taskID")
	if !ok {
		return
	}
	claimID, ok := idParam(w, r, "claimID")
	if !ok {
		return
	}
	req, ok := readJSON[settleClaimRequest](w, r)
	if !ok {
		return
	}
	claimant, err := identity.Parse(string(req.Claimant))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid claimant")
		return
	}
	caller := middleware.CallerFromContext(r.Context())
	c, err := h.ledger.SettleClaim(r.Context(), caller, taskID, claimant, claimID, req.Resolution)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// ---------------------------------------------------------------------------
// Refunds and administration
// ---------------------------------------------------------------------------

type refundRequest struct {
	Member identity.Address `json:"member"`
	Amount int64            `json:"amount"`
}

// Refund handles POST /api/v1/admin/tasks/{id}/refund.
func (h *Handlers) Refund(w http.ResponseWriter, r *http.Request) {
	taskID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	req, ok := readJSON[refundRequest](w, r)
	if !ok {
		return
	}
	member, err := identity.Parse(string(req.Member))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid member")
		return
	}
	caller := middleware.CallerFromContext(r.Context())
	t, err := h.ledger.Refund(r.Context(), caller, taskID, member, req.Amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type transferRequest struct {
	NewAdmin identity.Address `json:"new_admin"`
}

// TransferOwnership handles POST /api/v1/admin/transfer.
func (h *Handlers) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[transferRequest](w, r)
	if !ok {
		return
	}
	newAdmin, err := identity.Parse(string(req.NewAdmin))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid new_admin")
		return
	}
	caller := middleware.CallerFromContext(r.Context())
	if err := h.ledger.TransferOwnership(r.Context(), caller, newAdmin); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Pause handles POST /api/v1/admin/pause.
func (h *Handlers) Pause(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerFromContext(r.Context())
	if err := h.ledger.Pause(r.Context(), caller); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Unpause handles POST /api/v1/admin/unpause.
func (h *Handlers) Unpause(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerFromContext(r.Context())
	if err := h.ledger.Unpause(r.Context(), caller); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type updateFeesRequest struct {
	FeePercent int64 `json:"fee_percent"`
	FeeBase    int64 `json:"fee_base"`
}

// UpdateFees handles PUT /api/v1/admin/fees.
func (h *Handlers) UpdateFees(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[updateFeesRequest](w, r)
	if !ok {
		return
	}
	caller := middleware.CallerFromContext(r.Context())
	if err := h.ledger.UpdateFees(r.Context(), caller, req.FeePercent, req.FeeBase); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type takeFeesRequest struct {
	Amount int64 `json:"amount"`
}

// TakeFees handles POST /api/v1/admin/fees/withdraw.
func (h *Handlers) TakeFees(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[takeFeesRequest](w, r)
	if !ok {
		return
	}
	caller := middleware.CallerFromContext(r.Context())
	if err := h.ledger.TakeFees(r.Context(), caller, req.Amount); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type depositRequest struct {
	Account identity.Address `json:"account"`
	Amount  int64            `json:"amount"`
}

// Deposit handles POST /api/v1/admin/deposits.
func (h *Handlers) Deposit(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[depositRequest](w, r)
	if !ok {
		return
	}
	account, err := identity.Parse(string(req.Account))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account")
		return
	}
	caller := middleware.CallerFromContext(r.Context())
	if err := h.ledger.Deposit(r.Context(), caller, account, req.Amount); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type registerRequest struct {
	Address identity.Address `json:"address"`
}

type registerResponse struct {
	Identity *identity.Identity `json:"identity"`
	APIKey   string             `json:"api_key"`
}

// RegisterIdentity handles POST /api/v1/admin/identities. Only the current
// administrator may mint keys; anyone holding one could otherwise register an
// address and pass every role check as it. The raw API key appears in this
// response and nowhere else.
func (h *Handlers) RegisterIdentity(w http.ResponseWriter, r *http.Request) {
	if middleware.CallerFromContext(r.Context()) != h.ledger.Admin() {
		writeLedgerError(w, ledger.ErrOnlyAdmin)
		return
	}
	req, ok := readJSON[registerRequest](w, r)
	if !ok {
		return
	}
	addr, err := identity.Parse(string(req.Address))
	if err != nil || addr.IsZero() {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	id, key, err := h.keyring.Register(r.Context(), addr)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{Identity: id, APIKey: key})
}

// ListIdentities handles GET /api/v1/admin/identities. Admin-only: the
// listing exposes key prefixes.
func (h *Handlers) ListIdentities(w http.ResponseWriter, r *http.Request) {
	if middleware.CallerFromContext(r.Context()) != h.ledger.Admin() {
		writeLedgerError(w, ledger.ErrOnlyAdmin)
		return
	}
	ids, err := h.keyring.List(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if ids == nil {
		ids = []identity.Identity{}
	}
	writeJSON(w, http.StatusOK, ids)
}

// ---------------------------------------------------------------------------
// Accounts, fees, status
// ---------------------------------------------------------------------------

type balanceResponse struct {
	Address identity.Address `json:"address"`
	Balance int64            `json:"balance"`
}

// GetAccount handles GET /api/v1/accounts/{address}.
func (h *Handlers) GetAccount(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r, "address")
	if !ok {
		return
	}
	bal, err := h.ledger.Balance(r.Context(), addr)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Address: addr, Balance: bal})
}

// GetFees handles GET /api/v1/fees.
func (h *Handlers) GetFees(w http.ResponseWriter, r *http.Request) {
	fees, err := h.ledger.Fees(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fees)
}

// GetStatus handles GET /api/v1/status.
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.ledger.GetStatus(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
