package cfg

type Cfg struct {
	// Storage
	DBPath string

	// Application configuration
	Port         string
	FeedsDir     string
	WorkerCount  int
	FetchTimeout int // seconds
	APIAccessKey string

	// Feed provider selection
	Provider        string // "local" or "push"
	PushEndpoint    string
	WebhookSecret   string
	CallbackBaseURL string
	RegistryPort    string

	// Application metadata
	UserAgent string
	Debug     bool
	Version   string
}
