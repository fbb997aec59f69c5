package handler

import (
	"net/http"
	"path/filepath"

	"github.com/hitoshi/campuspoint/internal/middleware"
)

// PageHandler は静的ページ配信のHTTPハンドラー。
// APIの中核ではなく、同梱のフロントエンドページを返すだけの配管。
type PageHandler struct {
	verifier  middleware.TokenVerifier
	staticDir string
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(verifier middleware.TokenVerifier, staticDir string) *PageHandler {
	return &PageHandler{
		verifier:  verifier,
		staticDir: staticDir,
	}
}

// Index はトップページ（登録・ログインフォーム）を返す。
// GET /
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(h.staticDir, "index.html"))
}

// Dashboard はダッシュボードページを返す。
// セッションCookieが欠落・無効な場合はトップページへリダイレクトする。
// GET /dashboard
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if _, err := h.verifier.Verify(cookie.Value); err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	http.ServeFile(w, r, filepath.Join(h.staticDir, "dashboard.html"))
}
