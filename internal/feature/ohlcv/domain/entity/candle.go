package entity

import (
	"strconv"
	"time"

	"github.com/guregu/null/v6"
)

// Column names carried by a provider frame.
const (
	ColDate   = "date"
	ColOpen   = "open"
	ColHigh   = "high"
	ColLow    = "low"
	ColClose  = "close"
	ColVolume = "volume"
)

// RequiredColumns はどのプロバイダ出力にも必須の列です。
var RequiredColumns = []string{ColDate, ColOpen, ColHigh, ColLow, ColClose, ColVolume}

// RawCandle はプロバイダが返した 1 行分の未検証データです。
// 値は文字列のまま保持し、正規化で数値に変換します。
type RawCandle struct {
	Date   null.String
	Open   null.String
	High   null.String
	Low    null.String
	Close  null.String
	Volume null.String
}

// RawFrame はプロバイダ出力です。Columns は実際にペイロードに含まれていた列を表します。
type RawFrame struct {
	Columns []string
	Rows    []RawCandle
}

// NewRawFrame は全列を持つ RawFrame を返します。
func NewRawFrame(rows []RawCandle) RawFrame {
	cols := make([]string, len(RequiredColumns))
	copy(cols, RequiredColumns)
	return RawFrame{Columns: cols, Rows: rows}
}

// InferRawFrame は少なくとも 1 行に値がある列だけを Columns に含めます。
// 列の有無がペイロード依存のプロバイダで使います。
func InferRawFrame(rows []RawCandle) RawFrame {
	seen := map[string]bool{}
	for _, r := range rows {
		seen[ColDate] = seen[ColDate] || r.Date.Valid
		seen[ColOpen] = seen[ColOpen] || r.Open.Valid
		seen[ColHigh] = seen[ColHigh] || r.High.Valid
		seen[ColLow] = seen[ColLow] || r.Low.Valid
		seen[ColClose] = seen[ColClose] || r.Close.Valid
		seen[ColVolume] = seen[ColVolume] || r.Volume.Valid
	}
	cols := make([]string, 0, len(RequiredColumns))
	for _, c := range RequiredColumns {
		if seen[c] {
			cols = append(cols, c)
		}
	}
	return RawFrame{Columns: cols, Rows: rows}
}

func (f RawFrame) Len() int { return len(f.Rows) }

// HasColumn reports whether the payload carried column c.
func (f RawFrame) HasColumn(c string) bool {
	for _, col := range f.Columns {
		if col == c {
			return true
		}
	}
	return false
}

// FilterWindow は日付が w に含まれる行だけを残します。日付が読めない行は落とします。
func (f RawFrame) FilterWindow(w DateWindow) RawFrame {
	out := make([]RawCandle, 0, len(f.Rows))
	for _, r := range f.Rows {
		if !r.Date.Valid {
			continue
		}
		d, err := ParseDate(r.Date.String)
		if err != nil || !w.Contains(d) {
			continue
		}
		out = append(out, r)
	}
	return RawFrame{Columns: f.Columns, Rows: out}
}

// Candle は正規化済みの日足です。
// 不変条件: 価格はすべて正、Low <= High、Volume >= 0、AsOfDate は UTC 0時。
type Candle struct {
	AsOfDate time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   int64
}

// ToRaw は Candle をプロバイダ出力と同じ形に戻します。
func (c Candle) ToRaw() RawCandle {
	f := func(v float64) null.String { return null.StringFrom(strconv.FormatFloat(v, 'f', -1, 64)) }
	return RawCandle{
		Date:   null.StringFrom(FormatDate(c.AsOfDate)),
		Open:   f(c.Open),
		High:   f(c.High),
		Low:    f(c.Low),
		Close:  f(c.Close),
		Volume: null.StringFrom(strconv.FormatInt(c.Volume, 10)),
	}
}
