package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/99minutos/user-directory/internal/core/domain"
	"github.com/99minutos/user-directory/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub store with compare-and-swap semantics
// ---------------------------------------------------------------------------

type stubStore struct {
	mu      sync.Mutex
	records map[string]*domain.UserDB
	puts    int

	// failPut, when set, is consulted before every write. A non-nil return
	// aborts the write with that error.
	failPut func(rec *domain.UserDB, n int) error
	// conflicts makes the next N writes to an id fail with ErrConflict, as if
	// another writer had got there first.
	conflicts map[string]int
	listErr   error
}

func newStubStore() *stubStore {
	return &stubStore{
		records:   make(map[string]*domain.UserDB),
		conflicts: make(map[string]int),
	}
}

func (s *stubStore) Get(_ context.Context, id string) (*domain.UserDB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return rec.Clone(), nil
}

func (s *stubStore) Put(_ context.Context, rec *domain.UserDB) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.puts++
	if s.failPut != nil {
		if err := s.failPut(rec, s.puts); err != nil {
			return err
		}
	}

	cur, exists := s.records[rec.ID]
	if n := s.conflicts[rec.ID]; n > 0 {
		s.conflicts[rec.ID] = n - 1
		if exists {
			cur.Version++
		}
		return domain.ErrConflict
	}
	if rec.Version == 0 && exists {
		return domain.ErrConflict
	}
	if rec.Version != 0 && (!exists || cur.Version != rec.Version) {
		return domain.ErrConflict
	}
	rec.Version++
	s.records[rec.ID] = rec.Clone()
	return nil
}

func (s *stubStore) Delete(_ context.Context, id string, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.records[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	if cur.Version != version {
		return domain.ErrConflict
	}
	delete(s.records, id)
	return nil
}

func (s *stubStore) List(_ context.Context, limit int) ([]*domain.UserDB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]*domain.UserDB, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubStore) DeleteAll(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*domain.UserDB)
	return nil
}

func (s *stubStore) Ping(context.Context) error { return nil }

// seed writes rec directly, bypassing every check.
func (s *stubStore) seed(rec *domain.UserDB) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := rec.Clone()
	if c.Version == 0 {
		c.Version = 1
	}
	s.records[c.ID] = c
}

func (s *stubStore) record(id string) *domain.UserDB {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[id]; ok {
		return rec.Clone()
	}
	return nil
}

// ---------------------------------------------------------------------------
// Stub hasher and token issuer
// ---------------------------------------------------------------------------

type stubHasher struct{ err error }

func (h stubHasher) Hash(plain string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "hashed:" + plain, nil
}

func (stubHasher) Verify(plain, digest string) bool { return digest == "hashed:"+plain }

type stubTokens struct{ issueErr error }

func (t stubTokens) Issue(subject string) (string, time.Time, error) {
	if t.issueErr != nil {
		return "", time.Time{}, t.issueErr
	}
	return "token-for:" + subject, time.Unix(1_700_000_000, 0).Add(30 * time.Minute), nil
}

func (stubTokens) Decode(token string) (string, error) {
	sub, ok := strings.CutPrefix(token, "token-for:")
	if !ok {
		return "", errors.New("malformed token")
	}
	return sub, nil
}

// ---------------------------------------------------------------------------
// Metrics recorder
// ---------------------------------------------------------------------------

type recordingMetrics struct {
	mu        sync.Mutex
	ops       map[string]int
	conflicts int
	partials  []string
	logins    []string
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{ops: make(map[string]int)}
}

func (m *recordingMetrics) ObserveOperation(op string, _ error, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops[op]++
}

func (m *recordingMetrics) ObserveConflict(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflicts++
}

func (m *recordingMetrics) ObservePartialWrite(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.partials = append(m.partials, op)
}

func (m *recordingMetrics) ObserveLogin(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins = append(m.logins, result)
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

const (
	idManager  = "6f1c2d3e-0000-4000-8000-000000000001"
	idManager2 = "6f1c2d3e-0000-4000-8000-000000000002"
	idUser1    = "6f1c2d3e-0000-4000-8000-000000000011"
	idUser2    = "6f1c2d3e-0000-4000-8000-000000000012"
	idAdmin    = "6f1c2d3e-0000-4000-8000-000000000021"
	idMissing  = "6f1c2d3e-0000-4000-8000-0000000000ff"
)

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

func seedUser(s *stubStore, id string, roles []domain.Role, managedBy string, inCharge ...string) {
	s.seed(&domain.UserDB{
		User: domain.User{
			ID:          id,
			FirstName:   "name-" + id[len(id)-2:],
			Gender:      domain.GenderOther,
			Roles:       domain.NewRoles(roles...),
			IsActivated: true,
			ActivatedAt: 1,
			UpdatedAt:   1,
			ManagedBy:   managedBy,
			InCharge:    domain.NewIDSet(inCharge...),
		},
		HashedPassword: "hashed:secret",
	})
}

func managerRoles() []domain.Role { return []domain.Role{domain.RoleManager} }

func userRoles() []domain.Role { return []domain.Role{domain.RoleUser} }

func createInput(id string) ports.CreateUserInput {
	return ports.CreateUserInput{
		ID:        id,
		FirstName: "Ada",
		LastName:  "Lovelace",
		Gender:    domain.GenderFemale,
		Roles:     userRoles(),
		Password:  "secret",
	}
}
