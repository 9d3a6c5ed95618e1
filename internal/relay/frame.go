package relay

// Frame type discriminators used on the relay wire.
const (
	TypeIdentify             = "identify"
	TypeJoin                 = "join"
	TypeMessage              = "message"
	TypeReservationCancelled = "reservation_cancelled"
)

// Frame is a single JSON frame exchanged with the relay server. One flat
// struct covers every frame type; unused fields are omitted on the wire.
//
// Outbound: identify{userId,userType}, join{orderId,userType,userId},
// message{orderId,content,userId,userType}.
// Inbound: identify (ack), message{orderId,from,fromId,content},
// reservation_cancelled{message}.
type Frame struct {
	Type     string `json:"type"`
	OrderID  string `json:"orderId,omitempty"`
	UserID   string `json:"userId,omitempty"`
	UserType string `json:"userType,omitempty"`
	Content  string `json:"content,omitempty"`
	From     string `json:"from,omitempty"`
	FromID   string `json:"fromId,omitempty"`
	Message  string `json:"message,omitempty"`
}
