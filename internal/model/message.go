package model

// CheckTask is the body of an inbound message.
// Expected format: {"url": "https://example.com/page", ...}. Other fields are carried through untouched.
type CheckTask struct {
	URL string `json:"url"`
}

// WorkItem is a message received from the broker. Ack must be called exactly once.
type WorkItem struct {
	Body       []byte
	RoutingKey string
	Ack        func() error
}

type DLQMessage struct {
	ServiceName  string `json:"service_name"`
	Body         string `json:"body"`
	RoutingKey   string `json:"routing_key"`
	ErrorMessage string `json:"error_message"`
}
