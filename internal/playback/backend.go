// Package playback keeps embedded player backends in step with the player
// store. Every backend is driven through the same Handle contract in
// normalized units: seconds for time and 0-100 for volume.
package playback

import (
	"context"

	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

// Listener receives handle events. A handle delivers OnReady once the media
// can accept commands; if it is already ready when Bind is called it reports
// OnReady from within Bind.
type Listener interface {
	OnReady()
	OnTime(seconds float64)
	OnDuration(seconds float64)
	OnEnded()
	OnError(err error)
}

// Handle controls one loaded media resource.
type Handle interface {
	Bind(l Listener)
	Unbind()
	Play() error
	Pause() error
	Seek(seconds float64) error
	SetVolume(volume int) error
	Destroy() error
}

// Backend creates handles for one media type.
type Backend interface {
	Type() types.MediaType
	// LoadSDK prepares the vendor runtime. It is called through SDKLoader so
	// it runs at most once successfully per process.
	LoadSDK(ctx context.Context) error
	ResourceID(song types.Song) (string, error)
	Create(ctx context.Context, resourceID string) (Handle, error)
}

type AdapterState int

const (
	StateUninitialized AdapterState = iota
	StateLoadingSDK
	StateCreatingHandle
	StateReady
	StateDestroyed
)

func (s AdapterState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoadingSDK:
		return "loading_sdk"
	case StateCreatingHandle:
		return "creating_handle"
	case StateReady:
		return "ready"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}
