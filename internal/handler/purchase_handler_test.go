package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/campuspoint/internal/model"
	"github.com/hitoshi/campuspoint/internal/points"
)

// --- モック定義 ---

type mockPurchaseService struct {
	recordPurchaseFn func(ctx context.Context, studentID, item string, amount float64) (*points.PurchaseResult, error)
	listPurchasesFn  func(ctx context.Context, studentID string) (*points.PurchaseHistory, error)
}

func (m *mockPurchaseService) RecordPurchase(ctx context.Context, studentID, item string, amount float64) (*points.PurchaseResult, error) {
	if m.recordPurchaseFn != nil {
		return m.recordPurchaseFn(ctx, studentID, item, amount)
	}
	return &points.PurchaseResult{}, nil
}

func (m *mockPurchaseService) ListPurchases(ctx context.Context, studentID string) (*points.PurchaseHistory, error) {
	if m.listPurchasesFn != nil {
		return m.listPurchasesFn(ctx, studentID)
	}
	return &points.PurchaseHistory{}, nil
}

// --- テスト ---

func TestPurchaseCreate_Success_Returns201(t *testing.T) {
	var capturedItem string
	var capturedAmount float64
	service := &mockPurchaseService{
		recordPurchaseFn: func(ctx context.Context, studentID, item string, amount float64) (*points.PurchaseResult, error) {
			capturedItem = item
			capturedAmount = amount
			return &points.PurchaseResult{
				Transaction: model.Transaction{Item: item, Amount: amount, PointsEarned: 3},
				Points:      13,
			}, nil
		},
	}
	h := NewPurchaseHandler(service)

	body := `{"item":"Textbook","amount":150}`
	w := httptest.NewRecorder()
	h.Create(w, authenticatedRequest(http.MethodPost, "/api/purchases", strings.NewReader(body)))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if capturedItem != "Textbook" || capturedAmount != 150 {
		t.Errorf("captured = (%q, %v)", capturedItem, capturedAmount)
	}

	var result points.PurchaseResult
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Transaction.PointsEarned != 3 || result.Points != 13 {
		t.Errorf("result = %+v", result)
	}
}

func TestPurchaseCreate_MissingItem_Returns400(t *testing.T) {
	service := &mockPurchaseService{
		recordPurchaseFn: func(ctx context.Context, studentID, item string, amount float64) (*points.PurchaseResult, error) {
			t.Fatal("service should not be called for invalid input")
			return nil, nil
		},
	}
	h := NewPurchaseHandler(service)

	body := `{"amount":150}`
	w := httptest.NewRecorder()
	h.Create(w, authenticatedRequest(http.MethodPost, "/api/purchases", strings.NewReader(body)))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestPurchaseCreate_NonPositiveAmount_Returns400(t *testing.T) {
	h := NewPurchaseHandler(&mockPurchaseService{})

	body := `{"item":"Textbook","amount":-10}`
	w := httptest.NewRecorder()
	h.Create(w, authenticatedRequest(http.MethodPost, "/api/purchases", strings.NewReader(body)))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestPurchaseCreate_UnknownAccount_Returns404(t *testing.T) {
	service := &mockPurchaseService{
		recordPurchaseFn: func(ctx context.Context, studentID, item string, amount float64) (*points.PurchaseResult, error) {
			// サービス層が付ける文脈でラップされていても型付きエラーとして解決されること
			return nil, fmt.Errorf("failed to add points: %w", model.NewAccountNotFoundError())
		},
	}
	h := NewPurchaseHandler(service)

	body := `{"item":"Textbook","amount":150}`
	w := httptest.NewRecorder()
	h.Create(w, authenticatedRequest(http.MethodPost, "/api/purchases", strings.NewReader(body)))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}

	errBody := decodeErrorBody(t, w)
	if errBody.Code != model.ErrCodeAccountNotFound {
		t.Errorf("code = %q, want %q", errBody.Code, model.ErrCodeAccountNotFound)
	}
}

func TestPurchaseList_ReturnsHistory(t *testing.T) {
	service := &mockPurchaseService{
		listPurchasesFn: func(ctx context.Context, studentID string) (*points.PurchaseHistory, error) {
			if studentID != "S12345" {
				t.Errorf("studentID = %q, want %q", studentID, "S12345")
			}
			return &points.PurchaseHistory{
				Transactions: []model.Transaction{{ID: "t1", Item: "Textbook"}},
				Monthly:      points.MonthlySummary{Spend: 450, PointsEarned: 9},
			}, nil
		},
	}
	h := NewPurchaseHandler(service)

	w := httptest.NewRecorder()
	h.List(w, authenticatedRequest(http.MethodGet, "/api/purchases", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var history points.PurchaseHistory
	if err := json.NewDecoder(w.Body).Decode(&history); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(history.Transactions) != 1 || history.Monthly.PointsEarned != 9 {
		t.Errorf("history = %+v", history)
	}
}
