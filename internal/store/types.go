package store

// Room represents an archived chat room. OrderID is the room key; the
// general room uses "general".
type Room struct {
	OrderID       string
	Label         string
	LastMessageAt int64
	LastPreview   string
}

// Message represents an archived chat message. Seq is the message's position
// within its room as seen by the client; (OrderID, Seq) is unique.
type Message struct {
	ID        int64
	OrderID   string
	Seq       int
	FromID    string
	FromLabel string
	Body      string
	Timestamp int64
}

// SearchResult holds a message with a search snippet.
type SearchResult struct {
	Message Message
	Snippet string
}
