package domain

// MessageBus decouples conversation surfaces from the agent loop: channels
// publish what the user said and register a handler per channel name for
// what the assistant answers.
type MessageBus interface {
	Publish(msg InboundMessage)
	Subscribe() <-chan InboundMessage
	SendOutbound(msg OutboundMessage)
	OnOutbound(channelName string, handler func(OutboundMessage))
	Close()
}
