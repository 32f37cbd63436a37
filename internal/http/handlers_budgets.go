package http

import (
	"net/http"

	"budgetmanager/internal/core"
	"budgetmanager/internal/log"
)

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.budgets.ListTemplates(r.Context(), userID(r.Context()))
	if err != nil {
		respondServiceError(w, r, log.OpList, err)
		return
	}
	respond(w, r, http.StatusOK, mapSlice(templates, newTemplateResponse))
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if !s.decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	created, err := s.budgets.CreateTemplate(ctx, userID(ctx), req.toTemplate())
	if err != nil {
		respondServiceError(w, r, log.OpCreate, err)
		return
	}
	respond(w, r, http.StatusCreated, newTemplateResponse(created))
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	t, err := s.budgets.GetTemplate(r.Context(), userID(r.Context()), id)
	if err != nil {
		respondServiceError(w, r, log.OpRead, err)
		return
	}
	respond(w, r, http.StatusOK, newTemplateResponse(t))
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req templateRequest
	if !s.decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	t, err := s.budgets.UpdateTemplate(ctx, userID(ctx), id, req.toTemplate())
	if err != nil {
		respondServiceError(w, r, log.OpUpdate, err)
		return
	}
	respond(w, r, http.StatusOK, newTemplateResponse(t))
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	ctx := r.Context()
	if err := s.budgets.DeleteTemplate(ctx, userID(ctx), id); err != nil {
		respondServiceError(w, r, log.OpDelete, err)
		return
	}
	log.FromContext(ctx).WithComponent(log.ComponentBudget).InfoContext(ctx, "Template deleted",
		log.FieldTemplateID, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetDefaultTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	ctx := r.Context()
	t, err := s.budgets.SetDefaultTemplate(ctx, userID(ctx), id)
	if err != nil {
		respondServiceError(w, r, log.OpUpdate, err)
		return
	}
	respond(w, r, http.StatusOK, newTemplateResponse(t))
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.budgets.ListBudgets(r.Context(), userID(r.Context()))
	if err != nil {
		respondServiceError(w, r, log.OpList, err)
		return
	}
	respond(w, r, http.StatusOK, mapSlice(budgets, newBudgetResponse))
}

func (s *Server) handleGenerateBudget(w http.ResponseWriter, r *http.Request) {
	var req generateBudgetRequest
	if !s.decode(w, r, &req) {
		return
	}
	month, err := core.ParseMonth(req.Month)
	if err != nil {
		respondServiceError(w, r, log.OpGenerate, err)
		return
	}

	ctx := r.Context()
	gen, err := s.budgets.GenerateBudget(ctx, userID(ctx), month)
	if err != nil {
		respondServiceError(w, r, log.OpGenerate, err)
		return
	}

	s.metrics.BudgetGenerated()
	s.metrics.ObserveMaterialization(gen.Materialization)

	fields := log.NewFields().
		WithOperation(log.OpGenerate).
		WithBudget(gen.Budget.ID, month.String())
	log.FromContext(ctx).WithComponent(log.ComponentBudget).InfoContext(ctx, "Budget generated",
		append(fields.ToSlice(), "recurring_expenses_created", gen.Materialization.Created())...)
	respond(w, r, http.StatusCreated, newGenerationResponse(gen))
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	b, err := s.budgets.GetBudget(r.Context(), userID(r.Context()), id)
	if err != nil {
		respondServiceError(w, r, log.OpRead, err)
		return
	}
	respond(w, r, http.StatusOK, newBudgetResponse(b))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	expenses, err := s.budgets.BudgetExpenses(r.Context(), userID(r.Context()), id)
	if err != nil {
		respondServiceError(w, r, log.OpList, err)
		return
	}
	respond(w, r, http.StatusOK, mapSlice(expenses, newExpenseResponse))
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req expenseRequest
	if !s.decode(w, r, &req) {
		return
	}
	e, err := req.toExpense()
	if err != nil {
		respondServiceError(w, r, log.OpCreate, err)
		return
	}

	ctx := r.Context()
	created, err := s.budgets.AddExpense(ctx, userID(ctx), id, e)
	if err != nil {
		respondServiceError(w, r, log.OpCreate, err)
		return
	}
	log.FromContext(ctx).WithComponent(log.ComponentBudget).InfoContext(ctx, "Expense added",
		log.FieldBudgetID, id, log.FieldExpenseID, created.ID, log.FieldAmountCents, created.Amount.Cents)
	respond(w, r, http.StatusCreated, newExpenseResponse(created))
}

// handleRematerialize books recurring expenses again. Repeated calls add
// duplicate expenses.
func (s *Server) handleRematerialize(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	ctx := r.Context()
	res, err := s.budgets.Rematerialize(ctx, userID(ctx), id)
	if err != nil {
		respondServiceError(w, r, log.OpMaterialize, err)
		return
	}
	s.metrics.ObserveMaterialization(res)
	respond(w, r, http.StatusOK, newMaterializationResponse(res))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	overview, err := s.budgets.Summary(r.Context(), userID(r.Context()), id)
	if err != nil {
		respondServiceError(w, r, log.OpRead, err)
		return
	}
	respond(w, r, http.StatusOK, newSummaryResponse(overview))
}
