package config

// StoreConfig configures the Artifact Store (C1).
type StoreConfig struct {
	DatabasePath         string `yaml:"database_path"`
	VectorSimilarityFunc string `yaml:"vector_similarity_func"` // cosine
	RequireVectorIndex   bool   `yaml:"require_vector_index"`   // fail fast if sqlite-vec unavailable
}

// SchedulerConfig configures the Priority Scheduler (C2).
type SchedulerConfig struct {
	Workers            int `yaml:"workers"`
	QueueCapacity      int `yaml:"queue_capacity"`
	BackgroundMinGapMS int `yaml:"background_min_gap_ms"`
}

// CronConfig configures the Cron Manager (C3).
type CronConfig struct {
	PersistPath   string `yaml:"persist_path"`
	MaxConsecErrs int    `yaml:"max_consecutive_errors"`
}

// RegistryConfig configures the Node Registry & Runner (C5).
type RegistryConfig struct {
	RootDir    string `yaml:"root_dir"`
	IndexPath  string `yaml:"index_path"`
	RunTimeout string `yaml:"run_timeout"`
	WatchIndex bool   `yaml:"watch_index"`
}

// RepairConfig configures the Repair Engine (C10) and Fix Pattern Library (C11).
type RepairConfig struct {
	FixPatternSuccessThreshold float64 `yaml:"fix_pattern_success_threshold"`
}
