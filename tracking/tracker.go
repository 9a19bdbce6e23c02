package tracking

import (
	"context"
)

type Tracker interface {
	TrackLinkCreated(ctx context.Context, payload *LinkCreatedPayload) error
	TrackLinkLookup(ctx context.Context, payload *LinkLookupPayload) error
}
