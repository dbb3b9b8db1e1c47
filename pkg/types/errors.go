package types

import "errors"

var (
	ErrInvalidSubreddit = errors.New("invalid subreddit name")
	ErrInvalidQuery     = errors.New("invalid search query")
	ErrInvalidCursor    = errors.New("invalid pagination cursor")
	ErrNoResource       = errors.New("song has no playable resource")
	ErrHandleGone       = errors.New("player handle no longer exists")
	ErrSDKUnavailable   = errors.New("player sdk unavailable")
)
