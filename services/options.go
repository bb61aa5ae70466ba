package services

import (
	"log/slog"
	"time"
)

type options struct {
	logger   *slog.Logger
	now      func() time.Time
	location *time.Location
}

// Option configures a service.
type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock overrides the time source used for defaults such as the current month.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLocation sets the time zone used to bucket lesson dates.
func WithLocation(loc *time.Location) Option {
	return func(o *options) { o.location = loc }
}

func buildOptions(opts []Option) options {
	o := options{
		logger:   slog.Default(),
		now:      time.Now,
		location: time.Local,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) today() time.Time {
	return o.now().In(o.location)
}
