package config

const (
	defaultStagingDir = "~/.local/share/reelsync/staging"
	defaultDataDir    = "~/.local/share/reelsync/data"
	defaultLogDir     = "~/.local/share/reelsync/logs"
	defaultAPIBind    = "127.0.0.1:7512"

	defaultThreshold        = 0.45
	defaultSimilarityWeight = 0.65
	defaultTokenWeight      = 0.35

	defaultMaxAttempts       = 3
	defaultAttemptRetryDelay = 3
	defaultInterItemDelay    = 5
	defaultElementWait       = 2
	defaultNewContextWait    = 30
	defaultChallengeWait     = 15
	defaultDownloadTimeout   = 600

	defaultProvider           = "pixeldrain"
	defaultUploadRetries      = 3
	defaultPixelDrainBaseURL  = "https://pixeldrain.com/api"
	defaultArchiveEndpoint    = "https://s3.us.archive.org"
	defaultMoviesCollection   = "reelsync-movies"
	defaultTVShowsCollection  = "reelsync-tvshows"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Matching: Matching{
			Threshold:        defaultThreshold,
			SimilarityWeight: defaultSimilarityWeight,
			TokenWeight:      defaultTokenWeight,
		},
		Acquisition: Acquisition{
			MaxAttempts:       defaultMaxAttempts,
			AttemptRetryDelay: defaultAttemptRetryDelay,
			InterItemDelay:    defaultInterItemDelay,
			ElementWait:       defaultElementWait,
			NewContextWait:    defaultNewContextWait,
			ChallengeWait:     defaultChallengeWait,
			DownloadTimeout:   defaultDownloadTimeout,
		},
		Storage: Storage{
			Provider:      defaultProvider,
			UploadRetries: defaultUploadRetries,
			PixelDrain: PixelDrain{
				BaseURL: defaultPixelDrainBaseURL,
			},
			Archive: Archive{
				Endpoint:          defaultArchiveEndpoint,
				MoviesCollection:  defaultMoviesCollection,
				TVShowsCollection: defaultTVShowsCollection,
			},
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
