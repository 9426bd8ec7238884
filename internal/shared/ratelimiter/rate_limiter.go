package ratelimiter

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Limiter は外部呼び出しの頻度を制限するインターフェースです。
type Limiter interface {
	Wait(ctx context.Context) error
}

// MinDelay は連続する呼び出しの間隔を最低 delay 空けるレートリミッターです。
// 1 インスタンスを 1 プロバイダクライアントが所有し、ゴルーチン間で共有できます。
type MinDelay struct {
	mu    sync.Mutex
	delay time.Duration
	last  time.Time
	name  string
}

// NewMinDelay は新しい MinDelay を生成します。delay <= 0 の場合は待機しません。
func NewMinDelay(name string, delay time.Duration) *MinDelay {
	return &MinDelay{name: name, delay: delay}
}

// Wait は前回の呼び出しから delay 経過するまでブロックし、今回の呼び出し時刻を記録します。
// ctx がキャンセルされた場合は ctx.Err() を返し、時刻は記録しません。
func (l *MinDelay) Wait(ctx context.Context) error {
	if l.delay <= 0 {
		return ctx.Err()
	}

	// 待機中もロックを保持し、呼び出し同士を直列化する
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.last.IsZero() {
		if remaining := l.delay - time.Since(l.last); remaining > 0 {
			slog.Debug("rate limit wait", "limiter", l.name, "sleep", remaining)
			timer := time.NewTimer(remaining)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	l.last = time.Now()
	return nil
}
