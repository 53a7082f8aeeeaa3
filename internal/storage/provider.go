package storage

import (
	"context"
	"time"

	"reelsync/internal/title"
)

// RemoteAsset is one object already present at the storage backend.
type RemoteAsset struct {
	RawName      string    `json:"raw_name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	Collection   string    `json:"collection"`
}

// PutResult identifies a successfully uploaded asset.
type PutResult struct {
	RemoteID  string `json:"remote_id"`
	RemoteURL string `json:"remote_url"`
}

// Provider is the capability a storage backend must expose. PutAsset
// performs exactly one upload attempt; retries are the dispatcher's job.
type Provider interface {
	Name() string
	ListAssets(ctx context.Context) ([]RemoteAsset, error)
	PutAsset(ctx context.Context, localPath, desiredName string, content title.ContentType) (PutResult, error)
	TestConnection(ctx context.Context) error
}
