package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/campuspoint/internal/middleware"
	"github.com/hitoshi/campuspoint/internal/model"
	"github.com/hitoshi/campuspoint/internal/profile"
)

// uploadFieldName はアバターアップロードのmultipartフィールド名。
const uploadFieldName = "profilePic"

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	// Get はアカウントとプロフィールを結合したビューを返す。
	Get(ctx context.Context, studentID string) (*model.ProfileView, error)
	// Update は可変フィールドを上書きし、更新後のビューを返す。
	Update(ctx context.Context, studentID string, input profile.UpdateInput) (*model.ProfileView, error)
	// UpdateAvatar はアバター参照を更新する。
	UpdateAvatar(ctx context.Context, studentID, avatarURL string) error
}

// AvatarStore はアバター画像の保存インターフェース。
type AvatarStore interface {
	// Put はオブジェクトを保存し、公開URLを返す。
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// ProfileHandler はプロフィール参照・更新・アバターアップロードのHTTPハンドラー。
type ProfileHandler struct {
	service       ProfileServiceInterface
	store         AvatarStore
	uploadMaxSize int64
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface, store AvatarStore, uploadMaxSize int64) *ProfileHandler {
	return &ProfileHandler{
		service:       service,
		store:         store,
		uploadMaxSize: uploadMaxSize,
	}
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
type updateProfileRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Program   string `json:"program"`
	Birthdate string `json:"birthdate"`
}

// Get はプロフィールを取得する。
// GET /api/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenMissingError())
		return
	}

	view, err := h.service.Get(r.Context(), identity.StudentID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// Update はプロフィールを更新する。
// PUT /api/profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenMissingError())
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("Invalid request body"))
		return
	}

	if req.FirstName == "" || req.LastName == "" || req.Program == "" || req.Birthdate == "" {
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

	view, err := h.service.Update(r.Context(), identity.StudentID, profile.UpdateInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Program:   req.Program,
		Birthdate: birthdate,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// UploadAvatar はアバター画像のアップロードを処理する。
// 画像以外のコンテンツタイプとサイズ上限超過は保存前に拒否する。
// POST /api/upload-profile-pic
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenMissingError())
		return
	}

	// multipart全体のサイズ上限（フィールドのオーバーヘッド分の余裕を含む）
	r.Body = http.MaxBytesReader(w, r.Body, h.uploadMaxSize+64*1024)

	file, header, err := r.FormFile(uploadFieldName)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			middleware.WriteErrorResponse(w, http.StatusRequestEntityTooLarge,
				model.NewUploadTooLargeError(h.uploadMaxSize))
			return
		}
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError(fmt.Sprintf("Missing file field %q", uploadFieldName)))
		return
	}
	defer file.Close()

	if header.Size > h.uploadMaxSize {
		middleware.WriteErrorResponse(w, http.StatusRequestEntityTooLarge,
			model.NewUploadTooLargeError(h.uploadMaxSize))
		return
	}

	contentType, err := detectImageContentType(file, header.Header.Get("Content-Type"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// 識別子＋一意サフィックス＋元の拡張子でキーを構成する
	key := fmt.Sprintf("avatars/%s-%s%s",
		identity.StudentID, uuid.New().String(), filepath.Ext(header.Filename))

	avatarURL, err := h.store.Put(r.Context(), key, contentType, file)
	if err != nil {
		handleServiceError(w, fmt.Errorf("failed to store avatar: %w", err))
		return
	}

	if err := h.service.UpdateAvatar(r.Context(), identity.StudentID, avatarURL); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"avatarUrl": avatarURL,
	})
}

// detectImageContentType は申告されたコンテンツタイプと先頭バイトのスニッフィングの
// 両方で画像であることを確認し、確定したコンテンツタイプを返す。
// 読み取り位置はファイル先頭に巻き戻す。
func detectImageContentType(file io.ReadSeeker, declared string) (string, error) {
	// application/octet-streamは未申告として扱い、スニッフィングの結果に委ねる
	if declared != "" && declared != "application/octet-stream" && !strings.HasPrefix(declared, "image/") {
		return "", model.NewUnsupportedMediaError(declared)
	}

	head := make([]byte, 512)
	n, err := file.Read(head)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind upload: %w", err)
	}

	sniffed := http.DetectContentType(head[:n])
	if !strings.HasPrefix(sniffed, "image/") {
		return "", model.NewUnsupportedMediaError(sniffed)
	}

	return sniffed, nil
}
