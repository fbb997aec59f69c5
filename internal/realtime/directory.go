// Package realtime は認証済みユーザーへのリアルタイム通知チャネルを提供する。
//
// 接続台帳（ConnectionDirectory）はプロセス内メモリのみで管理され、
// 再起動時には空の状態から再構築される。永続化は行わない。
package realtime

import "sync"

// Conn はライブ接続への書き込みハンドル。
// *websocket.Connを直接持たず、テストで差し替え可能なインターフェースとして扱う。
type Conn interface {
	// WriteJSON はイベントをJSONとして接続に書き込む。
	WriteJSON(v any) error
	// Close は接続を閉じる。
	Close() error
}

// Directory は学籍番号からライブ接続へのマッピングを保持する。
// 1学籍番号につき最大1エントリ。Set/Get/RemoveIfMatchのみを公開し、
// 外部からの直接のマップ操作は許さない。
type Directory struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

// NewDirectory は空のDirectoryを生成する。
func NewDirectory() *Directory {
	return &Directory{
		conns: make(map[string]Conn),
	}
}

// Set は学籍番号に接続を登録する。既存エントリは上書きされ（last-write-wins）、
// 以後の通知は最新の接続のみに届く。上書きされた旧接続を返す（なければnil）。
func (d *Directory) Set(studentID string, conn Conn) Conn {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev := d.conns[studentID]
	d.conns[studentID] = conn
	return prev
}

// Get は学籍番号のライブ接続を返す。存在しない場合はfalseを返す。
func (d *Directory) Get(studentID string) (Conn, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	conn, ok := d.conns[studentID]
	return conn, ok
}

// RemoveIfMatch は登録中の接続がconnと一致する場合のみエントリを削除する。
// 旧接続の切断処理が新接続のエントリを消してしまう順序競合を防ぐ。
// 削除した場合はtrueを返す。
func (d *Directory) RemoveIfMatch(studentID string, conn Conn) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	current, ok := d.conns[studentID]
	if !ok || current != conn {
		return false
	}
	delete(d.conns, studentID)
	return true
}

// Len は現在のエントリ数を返す。メトリクスおよびテスト用。
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.conns)
}
