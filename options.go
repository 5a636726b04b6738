package kmerhash

// Option is a functional option for Window, Hashes and NewRoller.
type Option func(*config)

type config struct {
	canonical bool
	encoder   Encoder
}

func defaultConfig() *config {
	return &config{
		canonical: false,
		encoder:   Bases,
	}
}

func newConfig(opts []Option) *config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.encoder == nil {
		cfg.encoder = Bases
	}
	return cfg
}

// WithCanonical selects strand-independent hashing: each k-mer hashes to
// the minimum of its forward and reverse-complement hashes.
func WithCanonical(canonical bool) Option {
	return func(c *config) {
		c.canonical = canonical
	}
}

// WithEncoder replaces the default Bases encoder.
func WithEncoder(enc Encoder) Option {
	return func(c *config) {
		c.encoder = enc
	}
}
