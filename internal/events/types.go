package events

// Event names as published on the broker.
const (
	EventMessageCreated = "MESSAGE_CREATED"
)

// Aggregate type constants
const (
	AggregateTypeMessage = "message"
)

// ChannelPrefixEvent namespaces broker channels on shared Redis instances.
const ChannelPrefixEvent = "channel:event:"
