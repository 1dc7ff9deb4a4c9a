package srv

import (
	"context"
	"errors"
)

// cleanupService releases resources at shutdown and does nothing on start.
type cleanupService struct {
	cleanups []func() error
}

func (c *cleanupService) Start(ctx context.Context) error {
	return nil
}

func (c *cleanupService) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range c.cleanups {
		if fn == nil {
			continue
		}
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func NewCleanup(fns ...func() error) Service {
	return &cleanupService{cleanups: fns}
}
