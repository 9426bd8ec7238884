// Package dto defines the Yahoo chart API payload.
package dto

// ChartResponse is the top-level container.
type ChartResponse struct {
	Chart ChartData `json:"chart"`
}

type ChartData struct {
	Result []Result    `json:"result"`
	Error  *ChartError `json:"error"`
}

type ChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type Result struct {
	Meta       Meta       `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators Indicators `json:"indicators"`
}

// Meta carries the exchange offset used to map timestamps onto trading days.
type Meta struct {
	Symbol       string `json:"symbol"`
	ExchangeName string `json:"exchangeName"`
	GMTOffset    int    `json:"gmtoffset"`
}

type Indicators struct {
	Quote []Quote `json:"quote"`
}

// Quote holds parallel arrays; null entries decode as nil.
type Quote struct {
	Low    []*float64 `json:"low"`
	High   []*float64 `json:"high"`
	Open   []*float64 `json:"open"`
	Volume []*float64 `json:"volume"`
	Close  []*float64 `json:"close"`
}
