package realtime

import (
	"log/slog"

	"github.com/hitoshi/campuspoint/internal/metrics"
)

// Event はライブ接続へ配信するイベントのワイヤフォーマット。
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Dispatcher は状態変更イベントをライブ接続へベストエフォートで配信する。
// 接続が存在しない場合は何もしない（イベントは失われ、後から再配信されない）。
// 確認応答・再送・キューイングは行わない。
type Dispatcher struct {
	directory *Directory
	collector metrics.NotificationMetrics
}

// NewDispatcher はDispatcherを生成する。
func NewDispatcher(directory *Directory, collector metrics.NotificationMetrics) *Dispatcher {
	return &Dispatcher{
		directory: directory,
		collector: collector,
	}
}

// Notify は学籍番号のライブ接続へイベントを非同期に配信する。
// 接続が存在しない場合は静かに何もしない。書き込みに失敗した場合は
// 接続を閉じて台帳から除去する（リトライしない）。
func (d *Dispatcher) Notify(studentID, event string, payload any) {
	conn, ok := d.directory.Get(studentID)
	if !ok {
		d.collector.RecordNotificationDropped(event)
		return
	}

	go func() {
		if err := conn.WriteJSON(Event{Event: event, Data: payload}); err != nil {
			slog.Warn("failed to push notification",
				slog.String("student_id", studentID),
				slog.String("event", event),
				slog.String("error", err.Error()),
			)
			conn.Close()
			d.directory.RemoveIfMatch(studentID, conn)
			d.collector.RecordNotificationDropped(event)
			return
		}
		d.collector.RecordNotificationDelivered(event)
	}()
}
