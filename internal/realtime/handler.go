package realtime

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/hitoshi/campuspoint/internal/middleware"
	"github.com/hitoshi/campuspoint/internal/model"
	"github.com/hitoshi/campuspoint/internal/token"
)

// wsConn は*websocket.Connを書き込みミューテックス付きでラップする。
// gorilla/websocketは同時書き込みを許可しないため、ディスパッチャの
// 非同期書き込みと制御フレーム送信を直列化する。
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// WriteJSON はイベントをJSONとして書き込む。
func (c *wsConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Close は接続を閉じる。
func (c *wsConn) Close() error {
	return c.conn.Close()
}

// ConnectionCounter はライブ接続数の変化を記録するインターフェース。
type ConnectionCounter interface {
	SetLiveConnections(n int)
}

// Handler はWebSocketハンドシェイクの認証と接続台帳の管理を行う。
//
// ハンドシェイクはHTTPミドルウェアチェーンの外の独立した入口であり、
// セッションCookieをハンドシェイクリクエストから自前で取り出して検証する。
// 検証に失敗した場合、接続は確立されない。
type Handler struct {
	verifier  middleware.TokenVerifier
	directory *Directory
	counter   ConnectionCounter
	upgrader  websocket.Upgrader
}

// NewHandler はHandlerを生成する。
// allowedOriginはCORSと同じ単一オリジン。空文字列の場合は同一ホストのみ許可する。
func NewHandler(verifier middleware.TokenVerifier, directory *Directory, counter ConnectionCounter, allowedOrigin string) *Handler {
	return &Handler{
		verifier:  verifier,
		directory: directory,
		counter:   counter,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return origin == allowedOrigin
			},
		},
	}
}

// ServeHTTP はWebSocketハンドシェイクを処理する。
// GET /ws
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 1. ハンドシェイクリクエストのCookieからトークンを取得
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenMissingError())
		return
	}

	// 2. トークンの検証（失敗した場合はアップグレードしない）
	claims, err := h.verifier.Verify(cookie.Value)
	if err != nil {
		if errors.Is(err, token.ErrTokenMissing) {
			middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenMissingError())
			return
		}
		middleware.WriteErrorResponse(w, http.StatusForbidden, model.NewTokenInvalidError())
		return
	}

	// 3. WebSocketへアップグレード
	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgradeは失敗時に自身でエラーレスポンスを書き込む
		slog.Warn("websocket upgrade failed",
			slog.String("student_id", claims.StudentID),
			slog.String("error", err.Error()),
		)
		return
	}

	conn := &wsConn{conn: raw}

	// 4. 台帳に登録（同一学籍番号の既存接続は置き換え）
	if prev := h.directory.Set(claims.StudentID, conn); prev != nil {
		prev.Close()
	}
	h.counter.SetLiveConnections(h.directory.Len())

	slog.Info("realtime connection established",
		slog.String("student_id", claims.StudentID),
	)

	// 5. 切断検知のための読み取りループ（クライアントからのメッセージは破棄）
	for {
		if _, _, err := raw.ReadMessage(); err != nil {
			break
		}
	}

	// 6. 登録中の接続が自分自身の場合のみ台帳から除去する。
	// 新しい接続が先に登録されている場合、そのエントリは保持される。
	h.directory.RemoveIfMatch(claims.StudentID, conn)
	conn.Close()
	h.counter.SetLiveConnections(h.directory.Len())

	slog.Info("realtime connection closed",
		slog.String("student_id", claims.StudentID),
	)
}
