package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/meinhoongagan/urban-services/models"
	"github.com/meinhoongagan/urban-services/repository"
	"github.com/meinhoongagan/urban-services/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testEnv struct {
	svc   *Service
	repo  *repository.AccountRepository
	db    *gorm.DB
	mr    *miniredis.Miniredis
	clock *fakeClock
	sent  *recordingDelivery
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingDelivery struct {
	mu    sync.Mutex
	codes []string
	err   error
}

func (d *recordingDelivery) DeliverOTP(_ context.Context, _ *models.Account, code string, _ time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.codes = append(d.codes, code)
	return d.err
}

func newTestEnv(t *testing.T, mutate ...func(*Options)) *testEnv {
	t.Helper()

	gdb := testutil.NewDB(t)
	mr, rdb := testutil.NewRedis(t)
	repo := repository.NewAccountRepository(gdb)

	opts := DefaultOptions()
	opts.BcryptCost = bcrypt.MinCost
	for _, m := range mutate {
		m(&opts)
	}

	clock := &fakeClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
	sent := &recordingDelivery{}
	svc := NewService(repo, NewRedisPendingStore(rdb, 30*time.Minute), sent, opts, nil)
	svc.Now = clock.Now

	return &testEnv{svc: svc, repo: repo, db: gdb, mr: mr, clock: clock, sent: sent}
}

func (e *testEnv) register(t *testing.T, in Registration) *models.Account {
	t.Helper()
	acc, err := e.svc.Register(context.Background(), in)
	require.NoError(t, err)
	return acc
}

func fixedCode(code string) func() (string, error) {
	return func() (string, error) { return code, nil }
}

var errDeliveryDown = errors.New("gateway down")
