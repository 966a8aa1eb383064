package events

type ProducerOptions func(e *EventProducer)

// WithOutputTopic sets the topic handed to the writer. An empty topic keeps the default.
func WithOutputTopic(topic string) ProducerOptions {
	return func(e *EventProducer) {
		if topic != "" {
			e.topic = topic
		}
	}
}

// WithBufferCapacity bounds the number of events waiting for the writer.
func WithBufferCapacity(capacity int) ProducerOptions {
	return func(e *EventProducer) {
		e.buffer = newBuffer(capacity)
	}
}
