package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	remote remoteConfig
}

type remoteConfig struct {
	baseURL string
	token   string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithRemote makes RunMCP edit notes on a running blocknote server at
// baseURL instead of opening the local database.
func WithRemote(baseURL, token string) Option {
	return func(a *application) {
		a.remote = remoteConfig{baseURL: baseURL, token: token}
	}
}

func newApplication(opts []Option) *application {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	return app
}
