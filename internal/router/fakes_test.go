package router

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/lessonhub/config"
	"github.com/oksasatya/lessonhub/internal/container"
	"github.com/oksasatya/lessonhub/internal/domain/entity"
	"github.com/oksasatya/lessonhub/internal/domain/gateway"
	repo "github.com/oksasatya/lessonhub/internal/domain/repository"
	"github.com/oksasatya/lessonhub/internal/ratelimit"
	"github.com/oksasatya/lessonhub/pkg/helpers"
)

type memUsers struct {
	mu    sync.Mutex
	seq   int
	users map[string]*entity.User
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
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

// memMaterials keeps the owner's material_count in step like the
// postgres repository does.
type memMaterials struct {
	mu        sync.Mutex
	seq       int
	users     *memUsers
	materials map[string]*entity.Material
}

func (m *memMaterials) adjustCount(owner string, delta int) {
	m.users.mu.Lock()
	defer m.users.mu.Unlock()
	if u, ok := m.users.users[owner]; ok {
		u.MaterialCount += delta
	}
}

func (m *memMaterials) Create(_ context.Context, mat *entity.Material) error {
	m.mu.Lock()
	m.seq++
	mat.ID = fmt.Sprintf("m%d", m.seq)
	mat.CreatedAt, mat.UpdatedAt = time.Now(), time.Now()
	cp := *mat
	m.materials[mat.ID] = &cp
	m.mu.Unlock()
	m.adjustCount(mat.OwnerID, 1)
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
	mat, ok := m.materials[id]
	if !ok {
		m.mu.Unlock()
		return repo.ErrNotFound
	}
	delete(m.materials, id)
	m.mu.Unlock()
	m.adjustCount(mat.OwnerID, -1)
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
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *memStorage) Upload(_ context.Context, objectPath, _ string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectPath] = b
	return "https://storage.example.test/" + objectPath, nil
}

type fakeHasher struct{}

func (fakeHasher) Hash(plain string) (string, error) {
	if len(plain) < helpers.MinPasswordLength {
		return "", helpers.ErrWeakPassword
	}
	return "hashed:" + plain, nil
}

func (fakeHasher) Verify(plain, digest string) bool { return digest == "hashed:"+plain }

type stubGenerator struct {
	out []byte
	err error
}

func (g *stubGenerator) Generate(context.Context, gateway.GenerationRequest) ([]byte, error) {
	return g.out, g.err
}

type recordingPublisher struct {
	mu   sync.Mutex
	jobs []any
}

func (p *recordingPublisher) PublishJSON(_ context.Context, body any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, body)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.jobs)
}

type testApp struct {
	*container.Container
	users     *memUsers
	materials *memMaterials
	storage   *memStorage
	generator *stubGenerator
	publisher *recordingPublisher
}

func newTestApp() *testApp {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := config.Load()
	cfg.Env = "test"
	cfg.HTTPLogEnabled = false
	cfg.TrustedProxies = ""
	cfg.MaxUploadBytes = 1 << 10

	users := &memUsers{users: map[string]*entity.User{}}
	materials := &memMaterials{users: users, materials: map[string]*entity.Material{}}
	storage := &memStorage{objects: map[string][]byte{}}
	gen := &stubGenerator{}
	pub := &recordingPublisher{}

	return &testApp{
		Container: &container.Container{
			Config:    cfg,
			Logger:    logger,
			Users:     users,
			Materials: materials,
			Hasher:    fakeHasher{},
			JWT:       helpers.NewJWTManager("0123456789abcdef0123456789abcdef", "lessonhub-api", "lessonhub-web", 24*time.Hour),
			Cookies:   helpers.NewSessionCookie("", false, 24*time.Hour),
			Limiter:   ratelimit.NewMemory(10, 15*time.Minute),
			Storage:   storage,
			Generator: gen,
			Publisher: pub,
		},
		users:     users,
		materials: materials,
		storage:   storage,
		generator: gen,
		publisher: pub,
	}
}
