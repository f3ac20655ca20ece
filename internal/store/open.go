package store

import "log/slog"

// Open returns the backend selected by the configured DSN: in-memory when empty,
// PostgreSQL for postgres DSNs and SQLite otherwise.
func Open(opts ...Option) (Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Debug("Store.Open: no DSN configured, using in-memory store")
		return NewInMemoryStore(), nil
	}
	if DetectDSNType(cfg.DSN) == DSNTypePostgres {
		pg, err := NewPostgresStore(opts...)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	lite, err := NewSQLiteStore(opts...)
	if err != nil {
		return nil, err
	}
	return lite, nil
}
