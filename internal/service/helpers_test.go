package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"fanova-be/internal/dto"
	"fanova-be/internal/entity"
	"fanova-be/internal/pkg/auth"
	"fanova-be/internal/pkg/logger"
	"fanova-be/internal/repository/specification"
	"fanova-be/internal/repository/unitofwork"
	"fanova-be/internal/testutil"
	"fanova-be/pkg/gemini"
	"fanova-be/pkg/wavespeed"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var nopLogger = logger.NewNopLogger()

func newFactory(t *testing.T) unitofwork.RepositoryFactory {
	t.Helper()
	return unitofwork.NewRepositoryFactory(testutil.NewTestDB(t))
}

func seedProfile(t *testing.T, f unitofwork.RepositoryFactory, credits int, plan string) *entity.Profile {
	t.Helper()
	id := uuid.New()
	p := &entity.Profile{
		Id:           id,
		Email:        fmt.Sprintf("user-%s@example.com", id.String()[:8]),
		FullName:     "Test User",
		Credits:      credits,
		ReferralCode: strings.ToUpper(id.String()[:8]),
	}
	if plan != "" {
		p.SubscriptionPlan = &plan
	}
	require.NoError(t, f.NewUnitOfWork(context.Background()).ProfileRepository().Create(context.Background(), p))
	return p
}

func seedPersona(t *testing.T, f unitofwork.RepositoryFactory, userId uuid.UUID) *entity.Persona {
	t.Helper()
	p := &entity.Persona{
		Id:     uuid.New(),
		UserId: userId,
		Name:   "Luna Vale",
		Attributes: map[string]interface{}{
			"hairColor": "auburn",
		},
	}
	require.NoError(t, f.NewUnitOfWork(context.Background()).PersonaRepository().Create(context.Background(), p))
	return p
}

func reloadProfile(t *testing.T, f unitofwork.RepositoryFactory, id uuid.UUID) *entity.Profile {
	t.Helper()
	p, err := f.NewUnitOfWork(context.Background()).ProfileRepository().FindOne(context.Background(), specification.ByID{ID: id})
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}

func ledgerOf(t *testing.T, f unitofwork.RepositoryFactory, userId uuid.UUID) []*entity.CreditTransaction {
	t.Helper()
	rows, err := f.NewUnitOfWork(context.Background()).CreditTransactionRepository().FindAll(context.Background(),
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at"},
	)
	require.NoError(t, err)
	return rows
}

func principalFor(p *entity.Profile) *auth.Principal {
	return principalOf(p)
}

// --- fakes ---

type fakePublisher struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

type fakeComposer struct {
	prompt string
	err    error
	calls  int
}

func (f *fakeComposer) ComposePrompt(_ context.Context, c gemini.Character, message string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if f.prompt != "" {
		return f.prompt, nil
	}
	return c.Name + ": " + message, nil
}

type fakeGenerator struct {
	mu        sync.Mutex
	requests  []wavespeed.Request
	err       error
	downloads int
}

func (f *fakeGenerator) Generate(_ context.Context, req wavespeed.Request, onProgress func(int)) ([]string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	count := req.Count
	if count == 0 {
		count = 1
	}
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, fmt.Sprintf("https://cdn.wavespeed.test/out-%d.png", i))
		if onProgress != nil {
			onProgress((i + 1) * 100 / count)
		}
	}
	return out, nil
}

func (f *fakeGenerator) Download(_ context.Context, url string) ([]byte, string, error) {
	f.mu.Lock()
	f.downloads++
	f.mu.Unlock()
	return []byte("png:" + url), "image/png", nil
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeWatermarker struct {
	applied int
}

func (f *fakeWatermarker) Apply(data []byte) ([]byte, string, error) {
	f.applied++
	return append([]byte("wm:"), data...), "image/jpeg", nil
}

type fakeStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{files: map[string][]byte{}}
}

func (f *fakeStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[key] = data
	return "https://storage.test/" + key, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	updates []*dto.JobUpdateMessage
}

func (r *recordingNotifier) SendJobUpdate(_ uuid.UUID, update *dto.JobUpdateMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, update)
}

func (r *recordingNotifier) last() *dto.JobUpdateMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.updates) == 0 {
		return nil
	}
	return r.updates[len(r.updates)-1]
}

var errUpstream = errors.New("upstream exploded")
