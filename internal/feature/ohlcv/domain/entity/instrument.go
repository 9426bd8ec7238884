package entity

import "github.com/google/uuid"

// Instrument は取り込み対象の銘柄です。
// Exchange が空の場合はターゲットの既定取引所を使います。
type Instrument struct {
	ID       uuid.UUID
	Ticker   string
	Country  string
	Exchange string
}
