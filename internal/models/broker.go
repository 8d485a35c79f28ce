package models

// BrokerTradeRequest is the order body sent to the remote broker.
type BrokerTradeRequest struct {
	Ticker   string    `json:"ticker"`
	Action   TradeType `json:"action"`
	Quantity float64   `json:"quantity"`
	Price    float64   `json:"price"`
}

// BrokerTradeResponse is the broker's confirmation of an executed order.
type BrokerTradeResponse struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	Ticker      string  `json:"ticker"`
	TradeType   string  `json:"trade_type"`
	Quantity    float64 `json:"quantity"`
	Price       float64 `json:"price"`
	TotalAmount float64 `json:"total_amount"`
	Timestamp   string  `json:"timestamp"`
}
