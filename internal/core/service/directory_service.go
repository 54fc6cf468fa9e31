package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/99minutos/user-directory/internal/core/domain"
	"github.com/99minutos/user-directory/internal/core/ports"
)

// subordinateFetchLimit caps concurrent reads when listing direct reports.
const subordinateFetchLimit = 8

// DirectoryService keeps the managed_by / in_charge references of the whole
// directory consistent on top of a store that only offers single-record
// compare-and-swap. The primary record of an operation is always written
// last; if that write conflicts the operation is replayed from a fresh read.
type DirectoryService struct {
	store  ports.UserStore
	hasher ports.PasswordHasher
	logger zerolog.Logger
	opts   options
	w      *recordWriter
}

func NewDirectoryService(store ports.UserStore, hasher ports.PasswordHasher, logger zerolog.Logger, opts ...Option) *DirectoryService {
	o := buildOptions(opts)
	return &DirectoryService{
		store:  store,
		hasher: hasher,
		logger: logger,
		opts:   o,
		w:      &recordWriter{store: store, opts: o, logger: logger},
	}
}

func (s *DirectoryService) observe(op string, start time.Time, err *error) {
	s.opts.metrics.ObserveOperation(op, *err, time.Since(start))
}

// partial flags an error raised after some records were already written.
func (s *DirectoryService) partial(op, id string, err error) error {
	s.opts.metrics.ObservePartialWrite(op)
	s.logger.Error().Err(err).Str("op", op).Str("user_id", id).Msg("operation may have been partially applied")
	return fmt.Errorf("%s %s: %w: %w", op, id, domain.ErrPartialWrite, err)
}

// Create stores a new user and links it into the hierarchy. A managed_by
// reference is added to the manager's in_charge set; an in_charge list
// re-parents every listed subordinate to the new user.
func (s *DirectoryService) Create(ctx context.Context, in ports.CreateUserInput) (_ *domain.User, err error) {
	const op = "create"
	defer s.observe(op, time.Now(), &err)

	if in.ID != "" {
		_, err := s.store.Get(ctx, in.ID)
		if err == nil {
			return nil, fmt.Errorf("%s %s: %w", op, in.ID, domain.ErrUserExists)
		}
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("%s %s: %w", op, in.ID, err)
		}
	}
	if in.Password == "" {
		return nil, domain.NewValidationError("password is required")
	}

	now := s.opts.clock().UnixNano()
	user, err := domain.NewUser(domain.UserParams{
		ID:          in.ID,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Gender:      in.Gender,
		Roles:       in.Roles,
		IsActivated: in.IsActivated,
		ManagedBy:   in.ManagedBy,
		InCharge:    in.InCharge,
	}, now)
	if err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: hash password: %w", op, err)
	}

	if user.ManagedBy != "" {
		if _, err := s.supervisor(ctx, user.ManagedBy, true); err != nil {
			return nil, err
		}
	}
	if err := s.requireAll(ctx, user.InCharge); err != nil {
		return nil, err
	}

	rec := &domain.UserDB{User: *user, HashedPassword: hashed}
	if err := s.store.Put(ctx, rec); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("%s %s: %w", op, user.ID, domain.ErrUserExists)
		}
		return nil, fmt.Errorf("%s %s: %w", op, user.ID, err)
	}

	if user.ManagedBy != "" {
		if err := s.w.attach(ctx, op, user.ManagedBy, user.ID); err != nil {
			return nil, s.partial(op, user.ID, err)
		}
	}
	if user.InCharge.Len() > 0 {
		if err := s.w.reparent(ctx, op, user.ID, user.InCharge); err != nil {
			return nil, s.partial(op, user.ID, err)
		}
	}

	s.logger.Info().Str("user_id", user.ID).Str("managed_by", user.ManagedBy).Int("in_charge", user.InCharge.Len()).Msg("user created")
	return &rec.User, nil
}

func (s *DirectoryService) Get(ctx context.Context, id string) (*domain.User, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	return &rec.User, nil
}

// List returns up to limit users ordered by id. limit <= 0 means all.
func (s *DirectoryService) List(ctx context.Context, limit int) (_ []*domain.User, err error) {
	const op = "list"
	defer s.observe(op, time.Now(), &err)

	recs, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := make([]*domain.User, 0, len(recs))
	for _, rec := range recs {
		out = append(out, &rec.User)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Update replaces every mutable field. Omitted managed_by and in_charge mean
// none; the password and activation flag keep their prior values when omitted.
func (s *DirectoryService) Update(ctx context.Context, id string, in ports.UpdateUserInput) (_ *domain.User, err error) {
	const op = "update"
	defer s.observe(op, time.Now(), &err)

	roles := in.Roles
	if roles == nil {
		roles = []domain.Role{}
	}
	patch := domain.UserPatch{
		FirstName:       &in.FirstName,
		LastName:        &in.LastName,
		Gender:          &in.Gender,
		Roles:           roles,
		IsActivated:     in.IsActivated,
		ManagedBy:       &in.ManagedBy,
		InCharge:        in.InCharge,
		ReplaceInCharge: true,
	}
	if in.Password != "" {
		patch.Password = &in.Password
	}

	rec, err := s.applyPatch(ctx, op, id, patch)
	if err != nil {
		return nil, err
	}
	return &rec.User, nil
}

// Patch changes only the fields set in patch.
func (s *DirectoryService) Patch(ctx context.Context, id string, patch domain.UserPatch) (_ *domain.User, err error) {
	const op = "patch"
	defer s.observe(op, time.Now(), &err)

	rec, err := s.applyPatch(ctx, op, id, patch)
	if err != nil {
		return nil, err
	}
	return &rec.User, nil
}

// applyPatch is the procedure shared by Update, Patch and the subordinate
// operations: validate, reconcile the neighbours, then write the primary.
func (s *DirectoryService) applyPatch(ctx context.Context, op, id string, patch domain.UserPatch) (*domain.UserDB, error) {
	if patch.IsEmpty() {
		return nil, domain.NewValidationError("no field modified")
	}

	var hashed string
	if patch.Password != nil {
		if *patch.Password == "" {
			return nil, domain.NewValidationError("password cannot be empty")
		}
		h, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			return nil, fmt.Errorf("%s %s: hash password: %w", op, id, err)
		}
		hashed = h
	}

	links := newLinkChanges()
	for attempt := 1; ; attempt++ {
		old, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, s.abandon(ctx, op, id, links, fmt.Errorf("%s %s: %w", op, id, err))
		}

		next := &domain.UserDB{
			User:           patch.Apply(old.User),
			HashedPassword: old.HashedPassword,
			Version:        old.Version,
		}
		next.ID = old.ID
		next.ActivatedAt = old.ActivatedAt
		next.UpdatedAt = s.opts.stamp(old.UpdatedAt)
		if hashed != "" {
			next.HashedPassword = hashed
		}
		if err := next.Validate(); err != nil {
			return nil, s.abandon(ctx, op, id, links, err)
		}
		if err := s.checkReferences(ctx, &old.User, &next.User); err != nil {
			return nil, s.abandon(ctx, op, id, links, err)
		}

		moved := old.ManagedBy != next.ManagedBy || !old.InCharge.Equal(next.InCharge)
		links.record(&old.User, &next.User)
		if err := s.reconcile(ctx, op, &old.User, &next.User); err != nil {
			return nil, s.abandon(ctx, op, id, links, err)
		}

		err = s.store.Put(ctx, next)
		if err == nil {
			s.logger.Info().Str("op", op).Str("user_id", id).Bool("hierarchy_changed", moved).Msg("user updated")
			return next, nil
		}
		if s.w.retry(op, id, attempt, err) {
			continue
		}
		return nil, s.abandon(ctx, op, id, links, fmt.Errorf("%s %s: %w", op, id, err))
	}
}

// abandon gives up on an update whose primary record was not written. Any
// neighbour link written on the way is reverted against the stored primary;
// when that fails too the error is reported as a partial write.
func (s *DirectoryService) abandon(ctx context.Context, op, id string, links *linkChanges, cause error) error {
	if links.empty() {
		return cause
	}

	var stored *domain.User
	rec, err := s.store.Get(ctx, id)
	switch {
	case err == nil:
		stored = &rec.User
	case !errors.Is(err, domain.ErrUserNotFound):
		s.logger.Error().Err(err).Str("op", op).Str("user_id", id).Msg("reload for revert failed")
		return s.partial(op, id, cause)
	}

	if err := s.w.revert(ctx, op, id, stored, links); err != nil {
		s.logger.Error().Err(err).Str("op", op).Str("user_id", id).Msg("revert of neighbour links failed")
		return s.partial(op, id, cause)
	}
	s.logger.Warn().Err(cause).Str("op", op).Str("user_id", id).Msg("neighbour links reverted")
	return cause
}

// checkReferences runs before any write so that bad input never leaves the
// store half-modified.
func (s *DirectoryService) checkReferences(ctx context.Context, old, next *domain.User) error {
	if next.ManagedBy != "" && next.ManagedBy != old.ManagedBy {
		if _, err := s.supervisor(ctx, next.ManagedBy, false); err != nil {
			return err
		}
	}
	return s.requireAll(ctx, next.InCharge.Minus(old.InCharge))
}

// reconcile brings the manager and the subordinates in line with next.
func (s *DirectoryService) reconcile(ctx context.Context, op string, old, next *domain.User) error {
	if old.ManagedBy != next.ManagedBy {
		if old.ManagedBy != "" {
			if err := s.w.detach(ctx, op, old.ManagedBy, next.ID); err != nil {
				return err
			}
		}
		if next.ManagedBy != "" {
			if err := s.w.attach(ctx, op, next.ManagedBy, next.ID); err != nil {
				return err
			}
		}
	}

	if old.InCharge.Equal(next.InCharge) {
		return nil
	}
	for _, subID := range old.InCharge.Minus(next.InCharge).Sorted() {
		if err := s.w.release(ctx, op, next.ID, subID); err != nil {
			return err
		}
	}
	return s.w.reparent(ctx, op, next.ID, next.InCharge)
}

// supervisor loads a prospective manager and checks it may supervise. A
// missing manager is reported as an invalid manager when missingIsInvalid is
// set, as not found otherwise.
func (s *DirectoryService) supervisor(ctx context.Context, id string, missingIsInvalid bool) (*domain.UserDB, error) {
	m, err := s.store.Get(ctx, id)
	if errors.Is(err, domain.ErrUserNotFound) && missingIsInvalid {
		return nil, domain.InvalidManagerError("manager with id=%s does not exist", id)
	}
	if err != nil {
		return nil, fmt.Errorf("manager %s: %w", id, err)
	}
	if !m.CanSupervise() {
		return nil, domain.InvalidManagerError("invalid manager with id=%s: it must be activated and hold the manager or admin role", id)
	}
	return m, nil
}

func (s *DirectoryService) requireAll(ctx context.Context, ids domain.IDSet) error {
	for _, id := range ids.Sorted() {
		if _, err := s.store.Get(ctx, id); err != nil {
			return fmt.Errorf("subordinate %s: %w", id, err)
		}
	}
	return nil
}

// Delete removes a user after detaching it from its manager and clearing the
// managed_by of every subordinate.
func (s *DirectoryService) Delete(ctx context.Context, id string) (_ *domain.User, err error) {
	const op = "delete"
	defer s.observe(op, time.Now(), &err)

	for attempt := 1; ; attempt++ {
		rec, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", op, id, err)
		}
		linked := rec.ManagedBy != "" || rec.InCharge.Len() > 0

		if rec.ManagedBy != "" {
			if err := s.w.detach(ctx, op, rec.ManagedBy, id); err != nil {
				return nil, s.partial(op, id, err)
			}
		}
		for _, subID := range rec.InCharge.Sorted() {
			if err := s.w.release(ctx, op, id, subID); err != nil {
				return nil, s.partial(op, id, err)
			}
		}

		err = s.store.Delete(ctx, id, rec.Version)
		if err == nil {
			s.logger.Info().Str("user_id", id).Int("released", rec.InCharge.Len()).Msg("user deleted")
			return &rec.User, nil
		}
		if s.w.retry(op, id, attempt, err) {
			continue
		}
		if linked {
			return nil, s.partial(op, id, err)
		}
		return nil, fmt.Errorf("%s %s: %w", op, id, err)
	}
}

func (s *DirectoryService) DeleteAll(ctx context.Context) (err error) {
	const op = "delete_all"
	defer s.observe(op, time.Now(), &err)

	if err := s.store.DeleteAll(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Warn().Msg("all users deleted")
	return nil
}

// ListSubordinates returns the direct reports of managerID ordered by id.
// Ids that no longer resolve are skipped.
func (s *DirectoryService) ListSubordinates(ctx context.Context, managerID string) ([]*domain.User, error) {
	m, err := s.store.Get(ctx, managerID)
	if err != nil {
		return nil, fmt.Errorf("list subordinates of %s: %w", managerID, err)
	}

	ids := m.InCharge.Sorted()
	found := make([]*domain.User, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(subordinateFetchLimit)
	for i, subID := range ids {
		i, subID := i, subID
		g.Go(func() error {
			rec, err := s.store.Get(gctx, subID)
			if errors.Is(err, domain.ErrUserNotFound) {
				s.logger.Warn().Str("manager_id", managerID).Str("user_id", subID).Msg("dangling subordinate reference skipped")
				return nil
			}
			if err != nil {
				return fmt.Errorf("subordinate %s: %w", subID, err)
			}
			found[i] = &rec.User
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("list subordinates of %s: %w", managerID, err)
	}

	out := make([]*domain.User, 0, len(found))
	for _, u := range found {
		if u != nil {
			out = append(out, u)
		}
	}
	return out, nil
}

// AddSubordinate puts subordinateID under managerID, detaching it from any
// previous manager.
func (s *DirectoryService) AddSubordinate(ctx context.Context, managerID, subordinateID string) (_ []*domain.User, err error) {
	const op = "add_subordinate"
	defer s.observe(op, time.Now(), &err)

	if _, err := s.requireManagerRole(ctx, managerID); err != nil {
		return nil, err
	}
	if _, err := s.store.Get(ctx, subordinateID); err != nil {
		return nil, fmt.Errorf("subordinate %s: %w", subordinateID, err)
	}
	if _, err := s.applyPatch(ctx, op, managerID, domain.UserPatch{AddInCharge: []string{subordinateID}}); err != nil {
		return nil, err
	}
	return s.ListSubordinates(ctx, managerID)
}

// RemoveSubordinate takes subordinateID out of managerID's in_charge set and
// clears its managed_by.
func (s *DirectoryService) RemoveSubordinate(ctx context.Context, managerID, subordinateID string) (_ []*domain.User, err error) {
	const op = "remove_subordinate"
	defer s.observe(op, time.Now(), &err)

	m, err := s.requireManagerRole(ctx, managerID)
	if err != nil {
		return nil, err
	}
	if !m.InCharge.Has(subordinateID) {
		return nil, domain.NewValidationError("user %s is not managed by %s", subordinateID, managerID)
	}
	if _, err := s.applyPatch(ctx, op, managerID, domain.UserPatch{RemoveInCharge: []string{subordinateID}}); err != nil {
		return nil, err
	}
	return s.ListSubordinates(ctx, managerID)
}

func (s *DirectoryService) requireManagerRole(ctx context.Context, id string) (*domain.UserDB, error) {
	m, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("manager %s: %w", id, err)
	}
	if !m.Roles.Has(domain.RoleManager) {
		return nil, domain.NewValidationError("user %s is not a manager", id)
	}
	return m, nil
}
