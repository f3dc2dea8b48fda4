package notify

import "context"

// NopGateway discards all notifications.
type NopGateway struct{}

// Notify does nothing.
func (NopGateway) Notify(context.Context, int64, string, map[string]any) error { return nil }

var _ Gateway = NopGateway{}
