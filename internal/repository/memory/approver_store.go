package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ahmadqo/event-certificate-service/internal/model"
	"github.com/ahmadqo/event-certificate-service/internal/repository"
	"github.com/google/uuid"
)

var _ repository.ApproverRepository = (*ApproverStore)(nil)

// ApproverStore menegakkan aturan yang sama dengan partial unique index di PostgreSQL:
// hanya satu approver aktif per role.
type ApproverStore struct {
	mu        sync.RWMutex
	approvers map[uuid.UUID]*model.Approver

	locksMu sync.Mutex
	locks   map[model.Role]*sync.Mutex
}

func NewApproverStore() *ApproverStore {
	return &ApproverStore{
		approvers: make(map[uuid.UUID]*model.Approver),
		locks:     make(map[model.Role]*sync.Mutex),
	}
}

func (s *ApproverStore) FindByID(ctx context.Context, id uuid.UUID) (*model.Approver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.approvers[id]
	if !ok {
		return nil, nil
	}
	return copyApprover(a), nil
}

func (s *ApproverStore) FindActiveWithActiveSignature(ctx context.Context, role model.Role) (*model.Approver, error) {
	return s.latest(role, func(a *model.Approver) bool {
		return a.IsActive && a.Signature.IsActive && a.Signature.HasImage()
	}), nil
}

func (s *ApproverStore) FindActive(ctx context.Context, role model.Role) (*model.Approver, error) {
	return s.latest(role, func(a *model.Approver) bool { return a.IsActive }), nil
}

func (s *ApproverStore) FindAny(ctx context.Context, role model.Role) (*model.Approver, error) {
	return s.latest(role, func(a *model.Approver) bool { return true }), nil
}

// latest approver paling baru diubah yang cocok, sama dengan ORDER BY updated_at DESC
func (s *ApproverStore) latest(role model.Role, match func(*model.Approver) bool) *model.Approver {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *model.Approver
	for _, a := range s.approvers {
		if a.Role != role || !match(a) {
			continue
		}
		if found == nil || a.UpdatedAt.After(found.UpdatedAt) {
			found = a
		}
	}
	if found == nil {
		return nil
	}
	return copyApprover(found)
}

func (s *ApproverStore) FindAll(ctx context.Context, role model.Role) ([]*model.Approver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*model.Approver{}
	for _, a := range s.approvers {
		if a.Role == role {
			out = append(out, copyApprover(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *ApproverStore) Create(ctx context.Context, approver *model.Approver) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.approvers[approver.ID]; exists {
		return repository.ErrDuplicate
	}
	if approver.IsActive && s.otherActive(approver.Role, approver.ID) {
		return repository.ErrActiveConflict
	}

	stored := copyApprover(approver)
	stored.CreatedAt = s.tick()
	stored.UpdatedAt = stored.CreatedAt
	s.approvers[approver.ID] = stored
	return nil
}

func (s *ApproverStore) Update(ctx context.Context, approver *model.Approver) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.approvers[approver.ID]
	if !ok {
		return repository.ErrNoRows
	}
	if approver.IsActive && s.otherActive(current.Role, approver.ID) {
		return repository.ErrActiveConflict
	}

	stored := copyApprover(approver)
	stored.Role = current.Role
	stored.CreatedAt = current.CreatedAt
	stored.UpdatedAt = s.tick()
	s.approvers[approver.ID] = stored
	return nil
}

func (s *ApproverStore) UpdateMany(ctx context.Context, scope model.ApproverScope, patch model.ApproverPatch) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if patch.IsActive == nil && patch.SignatureActive == nil {
		return 0, nil
	}

	var n int64
	for id, a := range s.approvers {
		if a.Role != scope.Role || (scope.ExcludeID != nil && id == *scope.ExcludeID) {
			continue
		}
		if patch.IsActive != nil {
			a.IsActive = *patch.IsActive
		}
		if patch.SignatureActive != nil {
			a.Signature.IsActive = *patch.SignatureActive
		}
		a.UpdatedAt = s.tick()
		n++
	}
	return n, nil
}

// WithRoleLock serialisasi per role. Jika fn gagal, perubahan di-rollback dari snapshot.
func (s *ApproverStore) WithRoleLock(ctx context.Context, role model.Role, fn func(repo repository.ApproverRepository) error) error {
	lock := s.roleLock(role)
	lock.Lock()
	defer lock.Unlock()

	snapshot := s.snapshot()
	if err := fn(lockedApproverStore{s}); err != nil {
		s.mu.Lock()
		s.approvers = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// ActiveCount jumlah approver aktif per role, dipakai test invariant
func (s *ApproverStore) ActiveCount(role model.Role) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, a := range s.approvers {
		if a.Role == role && a.IsActive {
			n++
		}
	}
	return n
}

func (s *ApproverStore) roleLock(role model.Role) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	l, ok := s.locks[role]
	if !ok {
		l = &sync.Mutex{}
		s.locks[role] = l
	}
	return l
}

func (s *ApproverStore) snapshot() map[uuid.UUID]*model.Approver {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[uuid.UUID]*model.Approver, len(s.approvers))
	for id, a := range s.approvers {
		out[id] = copyApprover(a)
	}
	return out
}

func (s *ApproverStore) otherActive(role model.Role, id uuid.UUID) bool {
	for otherID, a := range s.approvers {
		if otherID != id && a.Role == role && a.IsActive {
			return true
		}
	}
	return false
}

// tick waktu yang selalu naik supaya urutan updated_at tidak seri
func (s *ApproverStore) tick() time.Time {
	now := time.Now()
	for _, a := range s.approvers {
		if !a.UpdatedAt.Before(now) {
			now = a.UpdatedAt.Add(time.Nanosecond)
		}
	}
	return now
}

// lockedApproverStore dipakai di dalam WithRoleLock supaya panggilan bersarang tidak deadlock
type lockedApproverStore struct {
	*ApproverStore
}

func (l lockedApproverStore) WithRoleLock(ctx context.Context, role model.Role, fn func(repo repository.ApproverRepository) error) error {
	return fn(l)
}

func copyApprover(a *model.Approver) *model.Approver {
	cp := *a
	cp.Signature.ImageData = append([]byte(nil), a.Signature.ImageData...)
	cp.Signature.UploadedAt = copyTime(a.Signature.UploadedAt)
	return &cp
}
