package publisher

// Publisher represents a sink for finished catalog documents
type Publisher interface {
	// Publish stores a complete document under name
	Publish(name string, document []byte) error

	// Close releases any resources held by the publisher
	Close() error
}
