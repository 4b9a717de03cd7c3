package letters

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/ttml-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ttml-backend/pkg/errors"
	"github.com/angelmondragon/ttml-backend/pkg/outbox"
)

const stuckFailureReason = "generation did not finish"

type SweeperParams struct {
	Repository        Repository
	Outbox            outbox.Emitter
	TransactionRunner txRunner
	Now               func() time.Time
}

// Sweeper fails letters left in generating by a crashed request or a status
// write that did not land. Quota spent on them stays spent.
type Sweeper struct {
	svc *service
}

func NewSweeper(params SweeperParams) (*Sweeper, error) {
	switch {
	case params.Repository == nil:
		return nil, fmt.Errorf("letter repository required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.TransactionRunner == nil:
		return nil, fmt.Errorf("transaction runner required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Sweeper{svc: &service{
		repo:     params.Repository,
		outbox:   params.Outbox,
		txRunner: params.TransactionRunner,
		now:      now,
	}}, nil
}

// FailStuck moves up to limit letters that have been generating for longer
// than after to failed. A letter that completes meanwhile is left alone.
func (s *Sweeper) FailStuck(ctx context.Context, after time.Duration, limit int) (int, error) {
	now := s.svc.clock()
	stuck, err := s.svc.repo.ListStuck(ctx, enums.LetterStatusGenerating, now.Add(-after), limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stuck letters")
	}

	var (
		failed int
		errs   error
	)
	for i := range stuck {
		letter := &stuck[i]
		err := s.svc.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
			return s.svc.transition(ctx, tx, letter, enums.LetterStatusFailed, map[string]any{
				"failure_reason": stuckFailureReason,
				"updated_at":     now,
			}, enums.EventLetterFailed)
		})
		switch {
		case err == nil:
			failed++
		case pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition):
			// finished while the sweep was running
		default:
			errs = multierr.Append(errs, fmt.Errorf("fail letter %s: %w", letter.ID, err))
		}
	}
	return failed, errs
}
