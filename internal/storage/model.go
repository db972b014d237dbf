package storage

import (
	"time"
)

// Session describes a stored dataset.
type Session struct {
	ID         int64     `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	Name       string    `json:"name"`
	Source     string    `json:"source"`
	BinCount   int       `json:"binCount"`
	FrameCount int       `json:"frameCount"`
}

type sessionData struct {
	ID         int64
	CreatedAt  time.Time
	Name       string
	Source     string
	Freqs      string // JSON array
	FrameCount int
}

type frameData struct {
	SessionID  int64
	FrameIndex int
	Begin      string
	Spectrum   string // JSON array
}
