package config

// DomainConfig holds the configurable business rules of the cosmos store.
type DomainConfig struct {
	// World constraints
	MaxWorldNameLength  int
	MaxSeedPromptLength int
	DefaultWarmth       int
	RootTimelineTitle   string
	RootBranchPrompt    string

	// Timeline constraints
	MaxTitleLength        int
	MaxBranchPromptLength int

	// Archive
	MaxArchiveContentBytes int

	// Sharing
	PackageSuffix           string
	ImportedNameSuffix      string
	DefaultCreditName       string
	DefaultCreditRole       string
	NetworkThumbnail        string
	StorageWarningThreshold int
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MaxWorldNameLength:  200,
		MaxSeedPromptLength: 4000,
		DefaultWarmth:       60,
		RootTimelineTitle:   "Prime Timeline",
		RootBranchPrompt:    "root timeline",

		MaxTitleLength:        200,
		MaxBranchPromptLength: 4000,

		MaxArchiveContentBytes: 8 * 1024,

		PackageSuffix:           ".agentora",
		ImportedNameSuffix:      " (Imported)",
		DefaultCreditName:       "Local Family",
		DefaultCreditRole:       "host",
		NetworkThumbnail:        "🌌",
		StorageWarningThreshold: 100,
	}
}
