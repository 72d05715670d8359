package postgres

// dbObserver is satisfied by observability.Prom. Repos without an observer
// run their queries unwrapped, which keeps tests free of metrics plumbing.
type dbObserver interface {
	ObserveDB(op string, fn func() error) error
}

func observe(obs dbObserver, op string, fn func() error) error {
	if obs == nil {
		return fn()
	}

	return obs.ObserveDB(op, fn)
}
