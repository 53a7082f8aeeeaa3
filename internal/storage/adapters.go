package storage

import (
	"context"

	"reelsync/internal/storage/archive"
	"reelsync/internal/storage/pixeldrain"
	"reelsync/internal/title"
)

// pixeldrainProvider adapts the PixelDrain client to the Provider capability.
// PixelDrain has a single flat bucket, so every asset reports the same
// collection and the content category only matters for naming.
type pixeldrainProvider struct {
	client *pixeldrain.Client
}

func (p *pixeldrainProvider) Name() string { return "pixeldrain" }

func (p *pixeldrainProvider) ListAssets(ctx context.Context) ([]RemoteAsset, error) {
	files, err := p.client.ListFiles(ctx)
	if err != nil {
		return nil, err
	}
	assets := make([]RemoteAsset, len(files))
	for i, file := range files {
		assets[i] = RemoteAsset{
			RawName:      file.Name,
			Size:         file.Size,
			LastModified: file.Uploaded,
			Collection:   "pixeldrain",
		}
	}
	return assets, nil
}

func (p *pixeldrainProvider) PutAsset(ctx context.Context, localPath, desiredName string, _ title.ContentType) (PutResult, error) {
	uploaded, err := p.client.Upload(ctx, localPath, desiredName)
	if err != nil {
		return PutResult{}, err
	}
	return PutResult{RemoteID: uploaded.ID, RemoteURL: uploaded.URL}, nil
}

func (p *pixeldrainProvider) TestConnection(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// archiveProvider adapts the Internet Archive client, routing uploads to the
// movie or episodic collection.
type archiveProvider struct {
	client  *archive.Client
	movies  string
	tvshows string
}

func (p *archiveProvider) Name() string { return "archive" }

func (p *archiveProvider) collectionFor(content title.ContentType) string {
	if content == title.ContentEpisodic {
		return p.tvshows
	}
	return p.movies
}

func (p *archiveProvider) ListAssets(ctx context.Context) ([]RemoteAsset, error) {
	objects, err := p.client.ListObjects(ctx, p.movies, p.tvshows)
	if err != nil {
		return nil, err
	}
	assets := make([]RemoteAsset, len(objects))
	for i, object := range objects {
		assets[i] = RemoteAsset{
			RawName:      object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			Collection:   object.Collection,
		}
	}
	return assets, nil
}

func (p *archiveProvider) PutAsset(ctx context.Context, localPath, desiredName string, content title.ContentType) (PutResult, error) {
	uploaded, err := p.client.Upload(ctx, localPath, desiredName, p.collectionFor(content))
	if err != nil {
		return PutResult{}, err
	}
	return PutResult{RemoteID: uploaded.ID, RemoteURL: uploaded.URL}, nil
}

func (p *archiveProvider) TestConnection(ctx context.Context) error {
	return p.client.Ping(ctx, p.movies)
}
