package rest

// HistoryMessage is a chat message as returned by the history endpoint.
type HistoryMessage struct {
	OrderID string `json:"orderId"`
	From    string `json:"from"`
	FromID  string `json:"fromId"`
	Content string `json:"content"`
}

// Lot is a surplus food lot offered by a store.
type Lot struct {
	ID        string  `json:"id"`
	StoreID   string  `json:"storeId"`
	StoreName string  `json:"storeName"`
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	ExpiresAt string  `json:"expiresAt"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
}

// Reservation is a rider's claim on a lot. OrderID doubles as the chat room
// identifier; PickupCode is shown as a QR code at the store.
type Reservation struct {
	OrderID    string `json:"orderId"`
	LotID      string `json:"lotId"`
	LotTitle   string `json:"lotTitle"`
	StoreName  string `json:"storeName"`
	Status     string `json:"status"` // reserved, picked_up, delivered, cancelled
	PickupCode string `json:"pickupCode"`
}
