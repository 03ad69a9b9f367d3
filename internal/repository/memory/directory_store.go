package memory

import (
	"context"
	"sync"

	"github.com/ahmadqo/event-certificate-service/internal/model"
	"github.com/ahmadqo/event-certificate-service/internal/repository"
)

var (
	_ repository.ParticipantRepository = (*DirectoryStore)(nil)
	_ repository.UserRepository        = (*UserStore)(nil)
)

// DirectoryStore data peserta dan event milik modul registrasi
type DirectoryStore struct {
	mu           sync.RWMutex
	participants map[string]model.Participant
	events       map[string]model.Event
}

func NewDirectoryStore() *DirectoryStore {
	return &DirectoryStore{
		participants: make(map[string]model.Participant),
		events:       make(map[string]model.Event),
	}
}

func (s *DirectoryStore) PutParticipant(p model.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants[p.ID] = p
}

func (s *DirectoryStore) DeleteParticipant(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.participants, id)
}

func (s *DirectoryStore) PutEvent(e model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.Skills = append([]string(nil), e.Skills...)
	s.events[e.ID] = e
}

func (s *DirectoryStore) FindByID(ctx context.Context, id string) (*model.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.participants[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// Events adapter EventRepository di atas store yang sama
func (s *DirectoryStore) Events() repository.EventRepository {
	return eventView{s}
}

type eventView struct {
	s *DirectoryStore
}

func (v eventView) FindByID(ctx context.Context, id string) (*model.Event, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	e, ok := v.s.events[id]
	if !ok {
		return nil, nil
	}
	e.Skills = append([]string(nil), e.Skills...)
	return &e, nil
}

type UserStore struct {
	mu    sync.RWMutex
	users map[string]model.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]model.User)}
}

func (s *UserStore) Put(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}
