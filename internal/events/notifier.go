package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jwebster45206/saga-engine/pkg/turn"
)

// LogNotifier writes notifications to the structured log
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(ctx context.Context, n turn.Notification) {
	level := slog.LevelInfo
	switch n.Kind {
	case turn.KindPersistenceWarning, turn.KindError:
		level = slog.LevelWarn
	}
	l.logger.Log(ctx, level, "Notification",
		"kind", n.Kind,
		"world_id", n.WorldID,
		"character_id", n.CharacterID,
		"message", n.Message)
}

// Multi fans a notification out to every notifier in order
type Multi []turn.Notifier

func (m Multi) Notify(ctx context.Context, n turn.Notification) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.Notify(ctx, n)
		}
	}
}

// Recorder keeps every notification it receives
type Recorder struct {
	mu            sync.Mutex
	notifications []turn.Notification
}

func (r *Recorder) Notify(_ context.Context, n turn.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
}

// Notifications returns a copy of everything recorded so far
func (r *Recorder) Notifications() []turn.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]turn.Notification, len(r.notifications))
	copy(out, r.notifications)
	return out
}

// Kinds returns the recorded notification kinds in order
func (r *Recorder) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]string, len(r.notifications))
	for i, n := range r.notifications {
		kinds[i] = n.Kind
	}
	return kinds
}
