package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/campuspoint/internal/model"
	"github.com/hitoshi/campuspoint/internal/points"
)

// --- モック定義 ---

type mockPointsService struct {
	convertFn func(ctx context.Context, studentID string, pointsRequired, discountAmount int) (*points.ConversionResult, error)
}

func (m *mockPointsService) Convert(ctx context.Context, studentID string, pointsRequired, discountAmount int) (*points.ConversionResult, error) {
	if m.convertFn != nil {
		return m.convertFn(ctx, studentID, pointsRequired, discountAmount)
	}
	return &points.ConversionResult{}, nil
}

// --- テスト ---

func TestPointsConvert_Success_ReturnsVoucher(t *testing.T) {
	service := &mockPointsService{
		convertFn: func(ctx context.Context, studentID string, pointsRequired, discountAmount int) (*points.ConversionResult, error) {
			if pointsRequired != 20 || discountAmount != 5 {
				t.Errorf("convert called with (%d, %d)", pointsRequired, discountAmount)
			}
			return &points.ConversionResult{Voucher: "DISC5-1756000000000", Points: 22}, nil
		},
	}
	h := NewPointsHandler(service)

	body := `{"pointsRequired":20,"discountAmount":5}`
	w := httptest.NewRecorder()
	h.Convert(w, authenticatedRequest(http.MethodPost, "/api/points/convert", strings.NewReader(body)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var result points.ConversionResult
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Voucher != "DISC5-1756000000000" || result.Points != 22 {
		t.Errorf("result = %+v", result)
	}
}

func TestPointsConvert_InsufficientBalance_Returns400(t *testing.T) {
	service := &mockPointsService{
		convertFn: func(ctx context.Context, studentID string, pointsRequired, discountAmount int) (*points.ConversionResult, error) {
			return nil, model.NewInsufficientBalanceError(pointsRequired, 7)
		},
	}
	h := NewPointsHandler(service)

	body := `{"pointsRequired":20,"discountAmount":5}`
	w := httptest.NewRecorder()
	h.Convert(w, authenticatedRequest(http.MethodPost, "/api/points/convert", strings.NewReader(body)))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if got := decodeErrorBody(t, w); got.Message != "Insufficient points: required 20, available 7" {
		t.Errorf("message = %q", got.Message)
	}
}

func TestPointsConvert_NonPositiveInput_Returns400(t *testing.T) {
	service := &mockPointsService{
		convertFn: func(ctx context.Context, studentID string, pointsRequired, discountAmount int) (*points.ConversionResult, error) {
			t.Fatal("service should not be called for invalid input")
			return nil, nil
		},
	}
	h := NewPointsHandler(service)

	body := `{"pointsRequired":0,"discountAmount":5}`
	w := httptest.NewRecorder()
	h.Convert(w, authenticatedRequest(http.MethodPost, "/api/points/convert", strings.NewReader(body)))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
