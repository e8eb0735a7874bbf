package archive

import (
	"context"
	"errors"

	"github.com/wricardo/kalah-game/game/service"
)

// Multi fans events out to several recorders. Every recorder sees every
// event; errors are joined.
type Multi []service.Recorder

var _ service.Recorder = Multi(nil)

func (m Multi) RecordStart(ctx context.Context, game *service.Game) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.RecordStart(ctx, game))
	}
	return errors.Join(errs...)
}

func (m Multi) RecordMove(ctx context.Context, game *service.Game, move service.MoveInfo) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.RecordMove(ctx, game, move))
	}
	return errors.Join(errs...)
}

func (m Multi) RecordEnd(ctx context.Context, game *service.Game) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.RecordEnd(ctx, game))
	}
	return errors.Join(errs...)
}
