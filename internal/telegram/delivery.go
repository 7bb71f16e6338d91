package telegram

import (
	"context"

	"eventsbot/internal/routing"
)

// Delivery binds the client to the object store that image references
// resolve against. It is the production transport for the dispatcher.
type Delivery struct {
	Client  *Client
	Objects ObjectStore
}

func (d Delivery) SendText(ctx context.Context, m Text) (int, error) {
	return d.Client.SendText(ctx, m)
}

func (d Delivery) SendEventPhoto(ctx context.Context, dest routing.Destination, imageRef string) (int, error) {
	return d.Client.SendPhotoFromStore(ctx, d.Objects, dest, imageRef)
}
