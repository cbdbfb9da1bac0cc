package autopush

type Status int

const (
	OK           Status = 200
	SERVER_ERROR Status = 500
)

type MessageType string

const (
	PING         MessageType = "ping"
	ACK          MessageType = "ack"
	HELLO        MessageType = "hello"
	NOTIFICATION MessageType = "notification"
)

// Message is decoded first to dispatch on the message type.
type Message struct {
	Type MessageType `json:"messageType"`
}

type HelloRequest struct {
	Type       MessageType `json:"messageType"`
	UAID       string      `json:"uaid"`
	ChannelIDs []string    `json:"channelIDs"`
	UseWebPush bool        `json:"use_webpush,omitempty"`
}

type HelloResponse struct {
	Type       MessageType `json:"messageType"`
	UAID       string      `json:"uaid"`
	Status     Status      `json:"status"`
	UseWebPush bool        `json:"use_webpush,omitempty"`
}

// Notification is a push message as relayed by autopush. Data is the
// base64url encoded aes128gcm body.
type Notification struct {
	Type      MessageType         `json:"messageType"`
	ChannelID string              `json:"channelID"`
	Version   string              `json:"version"`
	Data      string              `json:"data"`
	Headers   NotificationHeaders `json:"headers"`
}

type NotificationHeaders struct {
	Encryption string `json:"encryption"`
	CryptoKey  string `json:"crypto_key"`
	Encoding   string `json:"encoding"`
}

type Ack struct {
	Type    MessageType `json:"messageType"`
	Updates []AckUpdate `json:"updates"`
}

type AckUpdate struct {
	ChannelID string `json:"channelID"`
	Version   string `json:"version"`
}
