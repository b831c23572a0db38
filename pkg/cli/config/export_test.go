package config

// SetPath sets the config file path, bypassing flag parsing
func (p *Pipeline) SetPath(path string) {
	p.path = path
}

// SetDSN sets the Sentry DSN, bypassing flag parsing
func (s *Sentry) SetDSN(dsn string) {
	s.dsn = dsn
}
