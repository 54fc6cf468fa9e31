package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/99minutos/user-directory/internal/core/domain"
	"github.com/99minutos/user-directory/internal/core/ports"
)

// errUnchanged lets a mutation declare that the record already has the wanted
// shape, so no write is issued.
var errUnchanged = errors.New("record unchanged")

// recordWriter owns every single-record read-modify-write. Each one is a
// compare-and-swap on the record version, re-read and retried on conflict.
type recordWriter struct {
	store  ports.UserStore
	opts   options
	logger zerolog.Logger
}

// mutate loads id, lets fn modify it, and writes it back. fn runs again on a
// fresh copy after every conflict, so it must be a pure function of the record.
func (w *recordWriter) mutate(ctx context.Context, op, id string, fn func(*domain.UserDB) error) (*domain.UserDB, error) {
	for attempt := 1; ; attempt++ {
		rec, err := w.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		if err := fn(rec); err != nil {
			if errors.Is(err, errUnchanged) {
				return rec, nil
			}
			return nil, err
		}
		rec.UpdatedAt = w.opts.stamp(rec.UpdatedAt)

		err = w.store.Put(ctx, rec)
		if err == nil {
			return rec, nil
		}
		if !w.retry(op, id, attempt, err) {
			return nil, err
		}
	}
}

// retry reports whether a failed write should be attempted again.
func (w *recordWriter) retry(op, id string, attempt int, err error) bool {
	if !errors.Is(err, domain.ErrConflict) || attempt >= w.opts.maxAttempts {
		return false
	}
	w.opts.metrics.ObserveConflict(op)
	w.logger.Debug().Str("op", op).Str("user_id", id).Int("attempt", attempt).Msg("write conflict, retrying")
	return true
}

// attach adds subID to the manager's in_charge set. The manager is re-checked
// inside the read-modify-write so that a concurrent deactivation is honoured.
func (w *recordWriter) attach(ctx context.Context, op, managerID, subID string) error {
	_, err := w.mutate(ctx, op, managerID, func(m *domain.UserDB) error {
		if !m.CanSupervise() {
			return domain.InvalidManagerError("invalid manager with id=%s: it must be activated and hold the manager or admin role", managerID)
		}
		if m.InCharge.Has(subID) {
			return errUnchanged
		}
		m.InCharge.Add(subID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("attach %s to manager %s: %w", subID, managerID, err)
	}
	return nil
}

// detach drops subID from the manager's in_charge set. The manager is
// rewritten even when subID is absent: the version bump makes a concurrent
// operation that is about to add subID back conflict and start over. A manager
// that no longer exists has nothing to repair.
func (w *recordWriter) detach(ctx context.Context, op, managerID, subID string) error {
	_, err := w.mutate(ctx, op, managerID, func(m *domain.UserDB) error {
		m.InCharge.Remove(subID)
		return nil
	})
	if errors.Is(err, domain.ErrUserNotFound) {
		w.logger.Warn().Str("op", op).Str("manager_id", managerID).Str("user_id", subID).Msg("dangling manager reference skipped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("detach %s from manager %s: %w", subID, managerID, err)
	}
	return nil
}

// release clears the subordinate's managed_by, but only while it still points
// at managerID.
func (w *recordWriter) release(ctx context.Context, op, managerID, subID string) error {
	_, err := w.mutate(ctx, op, subID, func(s *domain.UserDB) error {
		if s.ManagedBy != managerID {
			return errUnchanged
		}
		s.ManagedBy = ""
		return nil
	})
	if errors.Is(err, domain.ErrUserNotFound) {
		w.logger.Warn().Str("op", op).Str("manager_id", managerID).Str("user_id", subID).Msg("dangling subordinate reference skipped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("release %s from manager %s: %w", subID, managerID, err)
	}
	return nil
}

// reparent points every id in subIDs at managerID.
func (w *recordWriter) reparent(ctx context.Context, op, managerID string, subIDs domain.IDSet) error {
	for _, subID := range subIDs.Sorted() {
		if err := w.reparentOne(ctx, op, managerID, subID); err != nil {
			return err
		}
	}
	return nil
}

// reparentOne removes subID from its previous manager before writing the new
// managed_by, so once all writes land the id sits in exactly one in_charge
// set. The previous manager is looked up again on every retry.
func (w *recordWriter) reparentOne(ctx context.Context, op, managerID, subID string) error {
	for attempt := 1; ; attempt++ {
		sub, err := w.store.Get(ctx, subID)
		if err != nil {
			return fmt.Errorf("subordinate %s: %w", subID, err)
		}
		if sub.ManagedBy == managerID {
			return nil
		}

		if prev := sub.ManagedBy; prev != "" {
			if err := w.detach(ctx, op, prev, subID); err != nil {
				return err
			}
		}

		sub.ManagedBy = managerID
		sub.UpdatedAt = w.opts.stamp(sub.UpdatedAt)
		if err := sub.Validate(); err != nil {
			return err
		}

		err = w.store.Put(ctx, sub)
		if err == nil {
			return nil
		}
		if !w.retry(op, subID, attempt, err) {
			return fmt.Errorf("reparent %s to %s: %w", subID, managerID, err)
		}
	}
}

// linkChanges collects the neighbour links an update may have written before
// its primary record. Entries are intents; every revert step is idempotent.
type linkChanges struct {
	attachedSubs     domain.IDSet
	releasedSubs     domain.IDSet
	attachedManagers domain.IDSet
	detachedManagers domain.IDSet
}

func newLinkChanges() *linkChanges {
	return &linkChanges{
		attachedSubs:     domain.NewIDSet(),
		releasedSubs:     domain.NewIDSet(),
		attachedManagers: domain.NewIDSet(),
		detachedManagers: domain.NewIDSet(),
	}
}

// record notes the links reconcile is about to write for old -> next.
func (c *linkChanges) record(old, next *domain.User) {
	if old.ManagedBy != next.ManagedBy {
		if next.ManagedBy != "" {
			c.attachedManagers.Add(next.ManagedBy)
		}
		if old.ManagedBy != "" {
			c.detachedManagers.Add(old.ManagedBy)
		}
	}
	for id := range next.InCharge.Minus(old.InCharge) {
		c.attachedSubs.Add(id)
	}
	for id := range old.InCharge.Minus(next.InCharge) {
		c.releasedSubs.Add(id)
	}
}

func (c *linkChanges) empty() bool {
	return c.attachedSubs.Len() == 0 &&
		c.releasedSubs.Len() == 0 &&
		c.attachedManagers.Len() == 0 &&
		c.detachedManagers.Len() == 0
}

// revert brings the neighbours touched by c back in line with the stored
// primary record. stored is nil when the primary no longer exists. A
// subordinate taken from another manager is left without one.
func (w *recordWriter) revert(ctx context.Context, op, id string, stored *domain.User, c *linkChanges) error {
	var managedBy string
	inCharge := domain.NewIDSet()
	if stored != nil {
		managedBy = stored.ManagedBy
		inCharge = stored.InCharge
	}

	for _, subID := range c.attachedSubs.Sorted() {
		if inCharge.Has(subID) {
			continue
		}
		if err := w.release(ctx, op, id, subID); err != nil {
			return err
		}
	}
	for _, subID := range c.releasedSubs.Sorted() {
		if !inCharge.Has(subID) {
			continue
		}
		if err := w.reclaim(ctx, op, id, subID); err != nil {
			return err
		}
	}
	for _, managerID := range c.attachedManagers.Sorted() {
		if managerID == managedBy {
			continue
		}
		if err := w.detach(ctx, op, managerID, id); err != nil {
			return err
		}
	}
	if managedBy != "" && c.detachedManagers.Has(managedBy) {
		if err := w.attach(ctx, op, managedBy, id); err != nil {
			return err
		}
	}
	return nil
}

// reclaim points a released subordinate back at managerID while it has no
// other manager.
func (w *recordWriter) reclaim(ctx context.Context, op, managerID, subID string) error {
	_, err := w.mutate(ctx, op, subID, func(s *domain.UserDB) error {
		if s.ManagedBy != "" {
			return errUnchanged
		}
		s.ManagedBy = managerID
		return nil
	})
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reclaim %s for manager %s: %w", subID, managerID, err)
	}
	return nil
}
