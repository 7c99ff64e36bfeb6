// Package directory pushes the current duty holder of each hero to an
// external chat directory.
package directory

import (
	"context"
	"fmt"

	"github.com/Soar-Robotics/HeroOfTheDay/internal/config"
	"go.uber.org/zap"
)

// Syncer sets member as the sole holder of the hero's duty group. An empty
// member clears the group. Implementations must be idempotent: the same
// call is repeated on every reconciliation tick.
type Syncer interface {
	SetHolder(ctx context.Context, hero, member string) error
}

type Nop struct{}

func (Nop) SetHolder(context.Context, string, string) error {
	return nil
}

// FromConfig builds the configured Syncer. The returned close function
// releases any connection held by the syncer.
func FromConfig(cfg config.DirectoryConfig, logger *zap.Logger) (Syncer, func() error, error) {
	noClose := func() error { return nil }
	switch cfg.Kind {
	case config.DirectoryNone, "":
		return Nop{}, noClose, nil
	case config.DirectorySlack:
		return NewSlack(cfg.SlackToken, logger), noClose, nil
	case config.DirectoryRealtime:
		rd, err := NewRealtime(cfg.RealtimeURL, logger)
		if err != nil {
			return nil, nil, err
		}
		return rd, rd.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported directory kind %q", cfg.Kind)
	}
}
