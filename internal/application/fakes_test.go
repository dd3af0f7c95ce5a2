package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/lessonhub/internal/domain/entity"
	"github.com/oksasatya/lessonhub/internal/domain/gateway"
	repo "github.com/oksasatya/lessonhub/internal/domain/repository"
	"github.com/oksasatya/lessonhub/pkg/helpers"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type memUsers struct {
	mu    sync.Mutex
	seq   int
	users map[string]*entity.User
	fail  error
}

func newMemUsers() *memUsers { return &memUsers{users: map[string]*entity.User{}} }

func (m *memUsers) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	for _, u := range m.users {
		if u.Email == entity.NormalizeEmail(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *memUsers) FindByID(_ context.Context, id string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) Create(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = entity.NormalizeEmail(u.Email)
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return repo.ErrEmailTaken
		}
	}
	m.seq++
	u.ID = fmt.Sprintf("u%d", m.seq)
	u.CreatedAt = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) Update(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.users[u.ID]
	if !ok {
		return repo.ErrNotFound
	}
	stored.Name, stored.Institution = u.Name, u.Institution
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	stored.PasswordHash = hash
	return nil
}

func (m *memUsers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

// fakeHasher mimics the real hasher's contract without bcrypt's cost.
type fakeHasher struct {
	mu       sync.Mutex
	verifies int
}

func (h *fakeHasher) Hash(plain string) (string, error) {
	if len(plain) < helpers.MinPasswordLength {
		return "", helpers.ErrWeakPassword
	}
	return "hashed:" + plain, nil
}

func (h *fakeHasher) Verify(plain, digest string) bool {
	h.mu.Lock()
	h.verifies++
	h.mu.Unlock()
	return digest == "hashed:"+plain
}

type fakeTokens struct{}

func (fakeTokens) Issue(userID, email string) (string, time.Time, error) {
	return "tok-" + userID, time.Now().Add(24 * time.Hour), nil
}

type memMaterials struct {
	mu         sync.Mutex
	seq        int
	materials  map[string]*entity.Material
	failCreate error
}

func newMemMaterials() *memMaterials { return &memMaterials{materials: map[string]*entity.Material{}} }

func (m *memMaterials) Create(_ context.Context, mat *entity.Material) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return m.failCreate
	}
	m.seq++
	mat.ID = fmt.Sprintf("m%d", m.seq)
	cp := *mat
	m.materials[mat.ID] = &cp
	return nil
}

func (m *memMaterials) FindByID(_ context.Context, id string) (*entity.Material, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mat, ok := m.materials[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *mat
	return &cp, nil
}

func (m *memMaterials) OwnerOf(ctx context.Context, id string) (string, error) {
	mat, err := m.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	return mat.OwnerID, nil
}

func (m *memMaterials) Update(_ context.Context, mat *entity.Material) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.materials[mat.ID]; !ok {
		return repo.ErrNotFound
	}
	cp := *mat
	m.materials[mat.ID] = &cp
	return nil
}

func (m *memMaterials) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.materials[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.materials, id)
	return nil
}

func (m *memMaterials) IncrementDownloads(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mat, ok := m.materials[id]
	if !ok {
		return repo.ErrNotFound
	}
	mat.Downloads++
	return nil
}

type memStorage struct {
	objects map[string][]byte
	fail    error
}

func (s *memStorage) Upload(_ context.Context, objectPath, _ string, r io.Reader) (string, error) {
	if s.fail != nil {
		return "", s.fail
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if s.objects == nil {
		s.objects = map[string][]byte{}
	}
	s.objects[objectPath] = b
	return "https://storage.example.test/" + objectPath, nil
}

type stubGenerator struct {
	out  []byte
	err  error
	got  gateway.GenerationRequest
	hits int
}

func (g *stubGenerator) Generate(_ context.Context, req gateway.GenerationRequest) ([]byte, error) {
	g.hits++
	g.got = req
	return g.out, g.err
}

var errDBDown = errors.New("db down")
