package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/campuspoint/internal/middleware"
	"github.com/hitoshi/campuspoint/internal/model"
	"github.com/hitoshi/campuspoint/internal/points"
)

// PointsServiceInterface はポイント交換ハンドラーが必要とするサービスインターフェース。
type PointsServiceInterface interface {
	// Convert はポイントをバウチャーに交換する。
	Convert(ctx context.Context, studentID string, pointsRequired, discountAmount int) (*points.ConversionResult, error)
}

// PointsHandler はポイント交換のHTTPハンドラー。
type PointsHandler struct {
	service PointsServiceInterface
}

// NewPointsHandler はPointsHandlerを生成する。
func NewPointsHandler(service PointsServiceInterface) *PointsHandler {
	return &PointsHandler{
		service: service,
	}
}

// convertRequest はポイント交換リクエストのボディ。
type convertRequest struct {
	PointsRequired int `json:"pointsRequired"`
	DiscountAmount int `json:"discountAmount"`
}

// Convert はポイントをバウチャーに交換する。
// POST /api/points/convert
func (h *PointsHandler) Convert(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenMissingError())
		return
	}

	var req convertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("Invalid request body"))
		return
	}

	if req.PointsRequired <= 0 || req.DiscountAmount <= 0 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("Points required and discount amount must be positive"))
		return
	}

	result, err := h.service.Convert(r.Context(), identity.StudentID, req.PointsRequired, req.DiscountAmount)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
