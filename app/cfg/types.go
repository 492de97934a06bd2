package cfg

type Cfg struct {
	// Storage
	DBPath string

	// Application configuration
	SourcesDir        string
	ParsersConfig     string
	Port              string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Normalization
	AttemptTimeout int
	FetchTimeout   int
	MaxBodySize    int64
	CacheTTL       int
	RateLimit      float64
	RateBurst      int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
