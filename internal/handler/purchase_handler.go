package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/campuspoint/internal/middleware"
	"github.com/hitoshi/campuspoint/internal/model"
	"github.com/hitoshi/campuspoint/internal/points"
)

// PurchaseServiceInterface は購入ハンドラーが必要とするサービスインターフェース。
type PurchaseServiceInterface interface {
	// RecordPurchase は購入を台帳に追記し、換算ポイントを残高に加算する。
	RecordPurchase(ctx context.Context, studentID, item string, amount float64) (*points.PurchaseResult, error)
	// ListPurchases は直近の取引と当月集計を返す。
	ListPurchases(ctx context.Context, studentID string) (*points.PurchaseHistory, error)
}

// PurchaseHandler は購入記録・履歴参照のHTTPハンドラー。
type PurchaseHandler struct {
	service PurchaseServiceInterface
}

// NewPurchaseHandler はPurchaseHandlerを生成する。
func NewPurchaseHandler(service PurchaseServiceInterface) *PurchaseHandler {
	return &PurchaseHandler{
		service: service,
	}
}

// createPurchaseRequest は購入記録リクエストのボディ。
type createPurchaseRequest struct {
	Item   string  `json:"item"`
	Amount float64 `json:"amount"`
}

// Create は購入を記録する。
// POST /api/purchases
func (h *PurchaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenMissingError())
		return
	}

	var req createPurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("Invalid request body"))
		return
	}

	if req.Item == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("Item is required"))
		return
	}
	if req.Amount <= 0 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("Amount must be a positive number"))
		return
	}

	result, err := h.service.RecordPurchase(r.Context(), identity.StudentID, req.Item, req.Amount)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// List は直近の取引と当月集計を返す。
// GET /api/purchases
func (h *PurchaseHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenMissingError())
		return
	}

	history, err := h.service.ListPurchases(r.Context(), identity.StudentID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, history)
}
