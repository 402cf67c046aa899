package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/daskhq/dask/internal/adapter/ws"
)

// MountRoutes wires the full API surface onto the router. Authentication
// and request-ID middleware are expected to be installed by the caller.
func MountRoutes(r chi.Router, h *Handlers, hub *ws.Hub) {
	r.Get("/health", handleHealth)
	r.Get("/ws", hub.HandleWS)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.ListTasks)
			r.Post("/", h.CreateTask)
			r.Get("/by-ref/{ref}", h.GetTaskByRef)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetTask)
				r.Post("/assign", h.AssignTask)
				r.Post("/cancel", h.CancelTask)
				r.Post("/complete", h.CompleteTask)
				r.Post("/reward", h.TakeReward)
				r.Post("/recall", h.RecallReward)
				r.Get("/claims", h.ListTaskClaims)
				r.Post("/claims", h.RaiseClaim)
			})
		})

		r.Get("/claims/{id}", h.GetClaim)
		r.Get("/accounts/{address}", h.GetAccount)
		r.Get("/fees", h.GetFees)
		r.Get("/status", h.GetStatus)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/pause", h.Pause)
			r.Post("/unpause", h.Unpause)
			r.Post("/transfer", h.TransferOwnership)
			r.Put("/fees", h.UpdateFees)
			r.Post("/fees/withdraw", h.TakeFees)
			r.Post("/deposits", h.Deposit)
			r.Post("/tasks/{id}/refund", h.Refund)
			r.Post("/tasks/{taskID}/claims/{claimID}/settle", h.SettleClaim)
			r.Post("/identities", h.RegisterIdentity)
			r.Get("/identities", h.ListIdentities)
		})
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
