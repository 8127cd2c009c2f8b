package event

import "context"

// Emitter records integration events for asynchronous publication
type Emitter interface {
	Emit(ctx context.Context, eventType string, payload interface{}) error
}

// NopEmitter drops every event
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, string, interface{}) error { return nil }
