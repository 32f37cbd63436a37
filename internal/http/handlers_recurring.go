package http

import (
	"net/http"

	"budgetmanager/internal/log"
)

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	rules, err := s.recurring.List(r.Context(), userID(r.Context()))
	if err != nil {
		respondServiceError(w, r, log.OpList, err)
		return
	}
	respond(w, r, http.StatusOK, mapSlice(rules, newRecurringExpenseResponse))
}

func (s *Server) handleGetRecurring(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	rule, err := s.recurring.Get(r.Context(), userID(r.Context()), id)
	if err != nil {
		respondServiceError(w, r, log.OpRead, err)
		return
	}
	respond(w, r, http.StatusOK, newRecurringExpenseResponse(rule))
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringExpenseRequest
	if !s.decode(w, r, &req) {
		return
	}
	rule, err := req.toRule()
	if err != nil {
		respondServiceError(w, r, log.OpCreate, err)
		return
	}

	ctx := r.Context()
	created, err := s.recurring.Create(ctx, userID(ctx), rule)
	if err != nil {
		respondServiceError(w, r, log.OpCreate, err)
		return
	}

	log.FromContext(ctx).WithComponent(log.ComponentRecurring).InfoContext(ctx, "Recurring expense created",
		log.FieldRecurringExpenseID, created.ID,
		log.FieldAmountCents, created.Amount.Cents)
	respond(w, r, http.StatusCreated, newRecurringExpenseResponse(created))
}

func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req recurringExpenseUpdate
	if !s.decode(w, r, &req) {
		return
	}

	ctx := r.Context()
	uid := userID(ctx)

	// Recurrence fields merge over the stored variant, so load it first.
	current, err := s.recurring.Get(ctx, uid, id)
	if err != nil {
		respondServiceError(w, r, log.OpUpdate, err)
		return
	}
	upd, err := req.toUpdate(current.Recurrence)
	if err != nil {
		respondServiceError(w, r, log.OpUpdate, err)
		return
	}

	updated, err := s.recurring.Update(ctx, uid, id, upd)
	if err != nil {
		respondServiceError(w, r, log.OpUpdate, err)
		return
	}
	log.FromContext(ctx).WithComponent(log.ComponentRecurring).InfoContext(ctx, "Recurring expense updated",
		log.FieldRecurringExpenseID, id)
	respond(w, r, http.StatusOK, newRecurringExpenseResponse(updated))
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	ctx := r.Context()
	if err := s.recurring.Delete(ctx, userID(ctx), id); err != nil {
		respondServiceError(w, r, log.OpDelete, err)
		return
	}
	log.FromContext(ctx).WithComponent(log.ComponentRecurring).InfoContext(ctx, "Recurring expense deleted",
		log.FieldRecurringExpenseID, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleRecurring(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	ctx := r.Context()
	rule, err := s.recurring.ToggleActive(ctx, userID(ctx), id)
	if err != nil {
		respondServiceError(w, r, log.OpUpdate, err)
		return
	}
	respond(w, r, http.StatusOK, newRecurringExpenseResponse(rule))
}
