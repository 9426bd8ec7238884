// Package dto defines data transfer objects for the Twelve Data API responses.
package dto

import "github.com/guregu/null/v6"

// TimeSeriesResponse represents the JSON response from the Twelve Data time_series endpoint.
// Values stay as strings; absent or null fields decode as invalid null.String.
type TimeSeriesResponse struct {
	Status  string `json:"status"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Meta    struct {
		Symbol   string `json:"symbol"`
		Interval string `json:"interval"`
		Exchange string `json:"exchange"`
	} `json:"meta"`
	Values []struct {
		Datetime null.String `json:"datetime"`
		Open     null.String `json:"open"`
		High     null.String `json:"high"`
		Low      null.String `json:"low"`
		Close    null.String `json:"close"`
		Volume   null.String `json:"volume"`
	} `json:"values"`
}
