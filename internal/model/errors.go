// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, points, upload, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeDuplicateAccount    = "DUPLICATE_ACCOUNT"
	ErrCodeDuplicateProfile    = "DUPLICATE_PROFILE"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeTokenMissing        = "AUTH_TOKEN_MISSING"
	ErrCodeTokenInvalid        = "AUTH_TOKEN_INVALID"
	ErrCodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	ErrCodeUnsupportedMedia    = "UNSUPPORTED_MEDIA"
	ErrCodeUploadTooLarge      = "UPLOAD_TOO_LARGE"
	ErrCodeAccountNotFound     = "ACCOUNT_NOT_FOUND"
)

// NewValidationError は必須フィールド欠落・形式不正エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "Check the request fields and try again.",
	}
}

// NewDuplicateAccountError は学籍番号が既に登録済みの場合のエラーを生成する。
func NewDuplicateAccountError(studentID string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateAccount,
		Message:  fmt.Sprintf("Account already exists: %s", studentID),
		Category: "validation",
		Action:   "Log in with the existing account, or use a different ID number.",
	}
}

// NewDuplicateProfileError はプロフィールが既に登録済みの場合のエラーを生成する。
func NewDuplicateProfileError(studentID string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateProfile,
		Message:  fmt.Sprintf("Profile already exists: %s", studentID),
		Category: "validation",
		Action:   "Log in with the existing account, or use a different ID number.",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// アカウント不存在とパスワード不一致を区別せず、同一のメッセージを返す。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid credentials",
		Category: "auth",
		Action:   "Check your ID number and password.",
	}
}

// NewTokenMissingError はセッショントークン未提示エラーを生成する。
func NewTokenMissingError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenMissing,
		Message:  "Access token required",
		Category: "auth",
		Action:   "Log in to obtain a session token.",
	}
}

// NewTokenInvalidError はセッショントークンの署名不正・期限切れエラーを生成する。
func NewTokenInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenInvalid,
		Message:  "Invalid token",
		Category: "auth",
		Action:   "Log in again to obtain a new session token.",
	}
}

// NewInsufficientBalanceError はポイント残高不足エラーを生成する。
// 必要ポイントと現在の残高の両方を含める。
func NewInsufficientBalanceError(required, available int) *APIError {
	return &APIError{
		Code:     ErrCodeInsufficientBalance,
		Message:  fmt.Sprintf("Insufficient points: required %d, available %d", required, available),
		Category: "points",
		Action:   "Earn more points before converting.",
	}
}

// NewUnsupportedMediaError は画像以外のアップロードを拒否するエラーを生成する。
func NewUnsupportedMediaError(contentType string) *APIError {
	return &APIError{
		Code:     ErrCodeUnsupportedMedia,
		Message:  fmt.Sprintf("Unsupported file type: %s", contentType),
		Category: "upload",
		Action:   "Upload an image file (PNG, JPEG, GIF or WebP).",
	}
}

// NewUploadTooLargeError はサイズ上限超過エラーを生成する。
func NewUploadTooLargeError(maxBytes int64) *APIError {
	return &APIError{
		Code:     ErrCodeUploadTooLarge,
		Message:  fmt.Sprintf("File exceeds the maximum size of %d bytes", maxBytes),
		Category: "upload",
		Action:   "Upload a smaller image.",
	}
}

// NewAccountNotFoundError は認証済みリクエストで参照先アカウントが存在しない場合の
// エラーを生成する。ログイン時はNewInvalidCredentialsErrorに畳み込む。
func NewAccountNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountNotFound,
		Message:  "Account not found",
		Category: "auth",
		Action:   "Log in again.",
	}
}
