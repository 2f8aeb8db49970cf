package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/meinhoongagan/urban-services/models"
	"github.com/meinhoongagan/urban-services/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestRepo(t *testing.T) (*AccountRepository, *gorm.DB) {
	t.Helper()
	gdb := testutil.NewDB(t)
	return NewAccountRepository(gdb), gdb
}

func newCustomer(username, email string) NewAccount {
	return NewAccount{
		Username:     username,
		Email:        email,
		PasswordHash: "hash",
		Role:         models.RoleCustomer,
	}
}

func TestCreateAccount_CreatesAccountAndProfile(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	acc, err := repo.CreateAccount(ctx, NewAccount{
		Username:     "plumber1",
		Email:        "Plumber@Example.com",
		PasswordHash: "hash",
		Phone:        "+15550001",
		Role:         models.RoleProvider,
	})
	require.NoError(t, err)
	require.NotZero(t, acc.ID)
	assert.True(t, acc.IsActive)
	assert.False(t, acc.IsStaff)
	assert.Equal(t, "plumber@example.com", acc.EmailKey)

	got, err := repo.FindByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.Profile.AccountID)
	require.NotNil(t, got.Profile.Phone)
	assert.Equal(t, "+15550001", *got.Profile.Phone)
	assert.Nil(t, got.Profile.VerificationCode)
	assert.Nil(t, got.Profile.VerificationExpiry)
}

func TestCreateAccount_DuplicateUsernameDifferentCase(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.CreateAccount(ctx, newCustomer("Alice", "alice@example.com"))
	require.NoError(t, err)

	_, err = repo.CreateAccount(ctx, newCustomer("ALICE", "other@example.com"))
	assert.ErrorIs(t, err, ErrDuplicateIdentity)
}

func TestCreateAccount_DuplicateEmailDifferentCase(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.CreateAccount(ctx, newCustomer("alice", "alice@example.com"))
	require.NoError(t, err)

	_, err = repo.CreateAccount(ctx, newCustomer("bob", "Alice@EXAMPLE.com"))
	assert.ErrorIs(t, err, ErrDuplicateIdentity)
}

func TestCreateAccount_ProfileFailureRollsBackAccount(t *testing.T) {
	repo, gdb := newTestRepo(t)
	ctx := context.Background()

	boom := errors.New("profile insert failed")
	err := gdb.Callback().Create().Before("gorm:create").Register("test:fail_profile", func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Table == "profiles" {
			_ = tx.AddError(boom)
		}
	})
	require.NoError(t, err)

	_, err = repo.CreateAccount(ctx, newCustomer("carol", "carol@example.com"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, boom)

	var accounts, profiles int64
	require.NoError(t, gdb.Model(&models.Account{}).Count(&accounts).Error)
	require.NoError(t, gdb.Model(&models.Profile{}).Count(&profiles).Error)
	assert.Zero(t, accounts)
	assert.Zero(t, profiles)
}

func TestFindByEmail_CaseInsensitive(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateAccount(ctx, newCustomer("dave", "Dave@Example.com"))
	require.NoError(t, err)

	got, err := repo.FindByEmail(ctx, "dAVE@example.COM")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestFindByUsername_Exact(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.CreateAccount(ctx, newCustomer("Erin", "erin@example.com"))
	require.NoError(t, err)

	_, err = repo.FindByUsername(ctx, "Erin")
	require.NoError(t, err)

	_, err = repo.FindByUsername(ctx, "erin")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestFindByPhone(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	in := newCustomer("frank", "frank@example.com")
	in.Phone = "+15550002"
	created, err := repo.CreateAccount(ctx, in)
	require.NoError(t, err)

	got, err := repo.FindByPhone(ctx, "+15550002")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = repo.FindByPhone(ctx, "+19999999")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestConsumeVerificationCode(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	acc, err := repo.CreateAccount(ctx, newCustomer("gina", "gina@example.com"))
	require.NoError(t, err)

	issued := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	expiry := issued.Add(5 * time.Minute)
	require.NoError(t, repo.SetVerificationCode(ctx, acc.ID, "042917", expiry))

	ok, err := repo.ConsumeVerificationCode(ctx, acc.ID, "000000", issued.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, ok, "wrong code must not consume")

	ok, err = repo.ConsumeVerificationCode(ctx, acc.ID, "042917", expiry)
	require.NoError(t, err)
	assert.False(t, ok, "expiry is exclusive")

	got, err := repo.FindByID(ctx, acc.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Profile.VerificationCode)
	assert.Equal(t, "042917", *got.Profile.VerificationCode)

	ok, err = repo.ConsumeVerificationCode(ctx, acc.ID, "042917", issued.Add(100*time.Second))
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = repo.FindByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Profile.VerificationCode)
	assert.Nil(t, got.Profile.VerificationExpiry)
	assert.True(t, got.Profile.IsVerified)

	ok, err = repo.ConsumeVerificationCode(ctx, acc.ID, "042917", issued.Add(100*time.Second))
	require.NoError(t, err)
	assert.False(t, ok, "a code is consumed at most once")
}

func TestConsumeVerificationCode_UnknownAccount(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.ConsumeVerificationCode(context.Background(), 42, "123456", time.Now())
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestClearExpiredCodes(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	stale, err := repo.CreateAccount(ctx, newCustomer("hank", "hank@example.com"))
	require.NoError(t, err)
	fresh, err := repo.CreateAccount(ctx, newCustomer("ivy", "ivy@example.com"))
	require.NoError(t, err)

	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SetVerificationCode(ctx, stale.ID, "111111", now.Add(-time.Minute)))
	require.NoError(t, repo.SetVerificationCode(ctx, fresh.ID, "222222", now.Add(time.Minute)))

	n, err := repo.ClearExpiredCodes(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := repo.FindByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Profile.VerificationCode)
	assert.Nil(t, got.Profile.VerificationExpiry)

	got, err = repo.FindByID(ctx, fresh.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Profile.VerificationCode)
	assert.Equal(t, "222222", *got.Profile.VerificationCode)
}

func TestSetActiveAndUpdatePassword(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	acc, err := repo.CreateAccount(ctx, newCustomer("jack", "jack@example.com"))
	require.NoError(t, err)

	require.NoError(t, repo.SetActive(ctx, acc.ID, false))
	require.NoError(t, repo.UpdatePassword(ctx, acc.ID, "new-hash"))

	got, err := repo.FindByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, "new-hash", got.Password)

	assert.ErrorIs(t, repo.SetActive(ctx, 999, true), ErrAccountNotFound)
}

func TestConsumeVerificationCode_ConcurrentOnlyOneSucceeds(t *testing.T) {
	repo, gdb := newTestRepo(t)
	ctx := context.Background()

	// sqlite allows a single writer; one connection keeps the transactions queued instead of busy.
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	acc, err := repo.CreateAccount(ctx, newCustomer("kim", "kim@example.com"))
	require.NoError(t, err)
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SetVerificationCode(ctx, acc.ID, "042917", now.Add(5*time.Minute)))

	const consumers = 8
	var wg sync.WaitGroup
	type result struct {
		ok  bool
		err error
	}
	results := make(chan result, consumers)
	for i := 0; i < consumers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.ConsumeVerificationCode(ctx, acc.ID, "042917", now.Add(time.Minute))
			results <- result{ok: ok, err: err}
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for r := range results {
		require.NoError(t, r.err)
		if r.ok {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestConsumeVerificationCode_LosesToConsumerBetweenReadAndWrite(t *testing.T) {
	repo, gdb := newTestRepo(t)
	ctx := context.Background()

	acc, err := repo.CreateAccount(ctx, newCustomer("lee", "lee@example.com"))
	require.NoError(t, err)
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SetVerificationCode(ctx, acc.ID, "042917", now.Add(5*time.Minute)))

	// Another consumer clears the code right after this one has read the row.
	var once sync.Once
	err = gdb.Callback().Query().After("gorm:query").Register("test:steal_code", func(tx *gorm.DB) {
		if tx.Statement.Schema == nil || tx.Statement.Schema.Table != "profiles" {
			return
		}
		once.Do(func() {
			_ = tx.Session(&gorm.Session{NewDB: true}).
				Exec("UPDATE profiles SET verification_code = NULL, verification_expiry = NULL WHERE account_id = ?", acc.ID).Error
		})
	})
	require.NoError(t, err)

	ok, err := repo.ConsumeVerificationCode(ctx, acc.ID, "042917", now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, ok, "the conditional update must find nothing left to consume")

	require.NoError(t, gdb.Callback().Query().Remove("test:steal_code"))
	got, err := repo.FindByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.False(t, got.Profile.IsVerified)
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"gorm duplicated key", gorm.ErrDuplicatedKey, true},
		{"postgres unique violation", &pgconn.PgError{Code: "23505"}, true},
		{"wrapped postgres unique violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"postgres foreign key violation", &pgconn.PgError{Code: "23503"}, false},
		{"unrelated", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err))
		})
	}
}

func TestCreateAccount_InsertRaceMapsToDuplicate(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantDup bool
	}{
		{"gorm duplicated key", gorm.ErrDuplicatedKey, true},
		{"postgres unique violation", &pgconn.PgError{Code: "23505"}, true},
		{"unrelated", errors.New("disk full"), false},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, gdb := newTestRepo(t)

			// The pre-check has passed; the insert then loses to a concurrent registration.
			err := gdb.Callback().Create().Before("gorm:create").Register("test:insert_race", func(tx *gorm.DB) {
				if tx.Statement.Schema != nil && tx.Statement.Schema.Table == "accounts" {
					_ = tx.AddError(tt.err)
				}
			})
			require.NoError(t, err)

			_, err = repo.CreateAccount(context.Background(), newCustomer(fmt.Sprintf("racer%d", i), fmt.Sprintf("racer%d@example.com", i)))
			require.Error(t, err)
			if tt.wantDup {
				assert.ErrorIs(t, err, ErrDuplicateIdentity)
				assert.NotErrorIs(t, err, ErrPersistence)
			} else {
				assert.ErrorIs(t, err, ErrPersistence)
				assert.NotErrorIs(t, err, ErrDuplicateIdentity)
			}
		})
	}
}
