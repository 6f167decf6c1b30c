package domain

// VelocitySnapshot holds per-customer and per-IP activity counts over rolling
// windows. It is derived on demand from persisted records and cached with a
// short TTL; it is never authoritative.
type VelocitySnapshot struct {
	CustomerTxCount1h  int     `json:"customer_tx_count_1h"`
	CustomerTxCount24h int     `json:"customer_tx_count_24h"`
	CustomerTxCount7d  int     `json:"customer_tx_count_7d"`
	CustomerAmount1h   float64 `json:"customer_amount_1h"`
	CustomerAmount24h  float64 `json:"customer_amount_24h"`
	CustomerAmount7d   float64 `json:"customer_amount_7d"`
	IPTxCount1h        int     `json:"ip_tx_count_1h"`
	IPTxCount24h       int     `json:"ip_tx_count_24h"`
	DeviceTxCount1h    int     `json:"device_tx_count_1h"`
	DeviceTxCount24h   int     `json:"device_tx_count_24h"`
}
