// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/campuspoint/internal/auth"
	"github.com/hitoshi/campuspoint/internal/middleware"
	"github.com/hitoshi/campuspoint/internal/model"
)

// birthdateFormat は登録・更新リクエストのbirthdateフィールドの形式。
const birthdateFormat = "2006-01-02"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Register は新規アカウントとプロフィールを作成する。
	Register(ctx context.Context, input auth.RegisterInput) error
	// Login は資格情報を検証し、トークンとアカウント要約を返す。
	Login(ctx context.Context, studentID, password string) (*auth.LoginResult, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler は登録・ログイン・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// registerRequest は登録リクエストのボディ。
type registerRequest struct {
	IDNumber  string `json:"idNumber"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Program   string `json:"program"`
	Birthdate string `json:"birthdate"`
	Password  string `json:"password"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	IDNumber string `json:"idNumber"`
	Password string `json:"password"`
}

// Register は新規登録を処理する。
// POST /api/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("Invalid request body"))
		return
	}

	if req.IDNumber == "" || req.FirstName == "" || req.LastName == "" ||
		req.Program == "" || req.Birthdate == "" || req.Password == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("All fields are required"))
		return
	}

	birthdate, err := time.Parse(birthdateFormat, req.Birthdate)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("Birthdate must be in YYYY-MM-DD format"))
		return
	}

	input := auth.RegisterInput{
		StudentID: req.IDNumber,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Program:   req.Program,
		Birthdate: birthdate,
		Password:  req.Password,
	}
	if err := h.service.Register(r.Context(), input); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "Account created",
	})
}

// Login はログインを処理し、セッションCookieを設定する。
// POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("Invalid request body"))
		return
	}

	if req.IDNumber == "" || req.Password == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("ID number and password are required"))
		return
	}

	result, err := h.service.Login(r.Context(), req.IDNumber, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// セッショントークンをHTTP Only Cookieに設定
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    result.Token,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, result.Summary)
}

// Logout はセッションCookieをクリアする。
// サーバー側の状態変更はない（トークン自体は有効期限まで暗号的に有効なまま）。
// POST /api/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out",
	})
}

// --- ヘルパー関数 ---

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidation, model.ErrCodeDuplicateAccount, model.ErrCodeDuplicateProfile:
		return http.StatusBadRequest
	case model.ErrCodeInvalidCredentials, model.ErrCodeInsufficientBalance:
		return http.StatusBadRequest
	case model.ErrCodeTokenMissing:
		return http.StatusUnauthorized
	case model.ErrCodeTokenInvalid:
		return http.StatusForbidden
	case model.ErrCodeUnsupportedMedia:
		return http.StatusUnsupportedMediaType
	case model.ErrCodeUploadTooLarge:
		return http.StatusRequestEntityTooLarge
	case model.ErrCodeAccountNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
