package entity

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout は取引日の文字列表現 (YYYY-MM-DD) です。
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

// Date は UTC 0時の取引日を返します。
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// TruncateDay は時刻成分を落として UTC 0時にそろえます。
// t のタイムゾーン上の暦日を保ちます。
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// ParseDate は日付または日時文字列を取引日に変換します。
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return TruncateDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// FormatDate は取引日を YYYY-MM-DD で返します。
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DateWindow は両端を含む取引日の区間です。Start <= End を前提とします。
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// NewDateWindow は両端を日単位に丸めた DateWindow を返します。
// start が end より後の場合はエラーを返します。
func NewDateWindow(start, end time.Time) (DateWindow, error) {
	w := DateWindow{Start: TruncateDay(start), End: TruncateDay(end)}
	if w.Start.After(w.End) {
		return DateWindow{}, fmt.Errorf("start %s is after end %s", FormatDate(w.Start), FormatDate(w.End))
	}
	return w, nil
}

// Days は区間に含まれる暦日数です。
func (w DateWindow) Days() int {
	return int(w.End.Sub(w.Start).Hours()/24) + 1
}

// Contains は d が区間内 (両端含む) にあるかを判定します。
func (w DateWindow) Contains(d time.Time) bool {
	d = TruncateDay(d)
	return !d.Before(w.Start) && !d.After(w.End)
}

func (w DateWindow) String() string {
	return FormatDate(w.Start) + ".." + FormatDate(w.End)
}
