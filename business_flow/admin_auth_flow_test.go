package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/velmart/velmart-backend/app/dto"
	"github.com/velmart/velmart-backend/app/services"
	"github.com/velmart/velmart-backend/config"
	"github.com/velmart/velmart-backend/models"
	"github.com/velmart/velmart-backend/repository"
	"github.com/velmart/velmart-backend/utils"
)

type fakeCaptchaService struct {
	accept bool
}

func (f *fakeCaptchaService) GenerateRotate(ctx context.Context) (*services.RotateChallenge, error) {
	return &services.RotateChallenge{ID: "challenge-1", MasterImageBase64: "master", ThumbImageBase64: "thumb"}, nil
}

func (f *fakeCaptchaService) VerifyRotate(ctx context.Context, challengeID string, userAngle float64) bool {
	return f.accept
}

type fakeAdminRepo struct {
	repository.AdminRepository
	admins    map[string]*models.Admin
	saved     []*models.Admin
	count     int64
	lastLogin []uint
}

func (f *fakeAdminRepo) ByUsername(ctx context.Context, username string) (*models.Admin, error) {
	return f.admins[username], nil
}

func (f *fakeAdminRepo) UpdateLastLogin(ctx context.Context, adminID uint) error {
	f.lastLogin = append(f.lastLogin, adminID)
	return nil
}

func (f *fakeAdminRepo) CountAll(ctx context.Context) (int64, error) {
	return f.count, nil
}

func (f *fakeAdminRepo) Save(ctx context.Context, admin *models.Admin) error {
	f.saved = append(f.saved, admin)
	return nil
}

func newAuthTokenService(t *testing.T) services.TokenService {
	t.Helper()
	svc, err := services.NewTokenService(
		time.Hour, 24*time.Hour,
		"velmart-test", "velmart-admin",
		false, "", "",
		"test-secret-key-for-jwt-signing-32-chars",
	)
	require.NoError(t, err)
	return svc
}

func testAdmin(t *testing.T, username, password string) *models.Admin {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.Admin{
		ID:           1,
		UUID:         uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         "ADMIN",
		IsActive:     utils.ToPtr(true),
	}
}

func TestAdminLogin(t *testing.T) {
	admin := testAdmin(t, "root", "correct-horse-battery")
	repo := &fakeAdminRepo{admins: map[string]*models.Admin{"root": admin}}
	tokens := newAuthTokenService(t)

	t.Run("successful login issues a token pair", func(t *testing.T) {
		flow := NewAdminAuthFlow(repo, tokens, &fakeCaptchaService{accept: true})

		resp, err := flow.Login(context.Background(), &dto.AdminLoginRequest{
			ChallengeID: "challenge-1",
			Username:    "root",
			Password:    "correct-horse-battery",
			UserAngle:   42,
		}, nil)
		require.NoError(t, err)

		assert.Equal(t, "root", resp.Admin.Username)
		assert.NotEmpty(t, resp.Session.AccessToken)
		assert.NotEmpty(t, resp.Session.RefreshToken)
		assert.Equal(t, "Bearer", resp.Session.TokenType)
		assert.Contains(t, repo.lastLogin, uint(1))

		claims, err := tokens.ValidateAdminToken(resp.Session.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, uint(1), claims.AdminID)
	})

	t.Run("failed captcha blocks credential check", func(t *testing.T) {
		flow := NewAdminAuthFlow(repo, tokens, &fakeCaptchaService{accept: false})

		_, err := flow.Login(context.Background(), &dto.AdminLoginRequest{
			ChallengeID: "challenge-1",
			Username:    "root",
			Password:    "correct-horse-battery",
			UserAngle:   42,
		}, nil)
		assert.ErrorIs(t, err, ErrCaptchaFailed)
	})

	t.Run("wrong password", func(t *testing.T) {
		flow := NewAdminAuthFlow(repo, tokens, &fakeCaptchaService{accept: true})

		_, err := flow.Login(context.Background(), &dto.AdminLoginRequest{
			ChallengeID: "challenge-1",
			Username:    "root",
			Password:    "guess",
			UserAngle:   42,
		}, nil)
		assert.ErrorIs(t, err, ErrIncorrectPassword)
	})

	t.Run("unknown admin", func(t *testing.T) {
		flow := NewAdminAuthFlow(repo, tokens, &fakeCaptchaService{accept: true})

		_, err := flow.Login(context.Background(), &dto.AdminLoginRequest{
			ChallengeID: "challenge-1",
			Username:    "nobody",
			Password:    "correct-horse-battery",
			UserAngle:   42,
		}, nil)
		assert.ErrorIs(t, err, ErrAdminNotFound)
	})

	t.Run("inactive admin", func(t *testing.T) {
		disabled := testAdmin(t, "frozen", "correct-horse-battery")
		disabled.IsActive = utils.ToPtr(false)
		repo := &fakeAdminRepo{admins: map[string]*models.Admin{"frozen": disabled}}
		flow := NewAdminAuthFlow(repo, tokens, &fakeCaptchaService{accept: true})

		_, err := flow.Login(context.Background(), &dto.AdminLoginRequest{
			ChallengeID: "challenge-1",
			Username:    "frozen",
			Password:    "correct-horse-battery",
			UserAngle:   42,
		}, nil)
		assert.ErrorIs(t, err, ErrAdminInactive)
	})
}

func TestAdminRefreshAndLogout(t *testing.T) {
	admin := testAdmin(t, "root", "correct-horse-battery")
	repo := &fakeAdminRepo{admins: map[string]*models.Admin{"root": admin}}
	tokens := newAuthTokenService(t)
	flow := NewAdminAuthFlow(repo, tokens, &fakeCaptchaService{accept: true})

	resp, err := flow.Login(context.Background(), &dto.AdminLoginRequest{
		ChallengeID: "challenge-1",
		Username:    "root",
		Password:    "correct-horse-battery",
		UserAngle:   42,
	}, nil)
	require.NoError(t, err)

	session, err := flow.Refresh(context.Background(), &dto.AdminRefreshRequest{RefreshToken: resp.Session.RefreshToken}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)

	// The rotated-out refresh token is dead.
	_, err = flow.Refresh(context.Background(), &dto.AdminRefreshRequest{RefreshToken: resp.Session.RefreshToken}, nil)
	assert.Error(t, err)

	require.NoError(t, flow.Logout(context.Background(), session.AccessToken, nil))
	_, err = tokens.ValidateAdminToken(session.AccessToken)
	assert.ErrorIs(t, err, services.ErrTokenRevoked)
}

func TestSeedDefaultAdmin(t *testing.T) {
	ctx := context.Background()
	tokens := newAuthTokenService(t)

	t.Run("seeds when table is empty", func(t *testing.T) {
		repo := &fakeAdminRepo{}
		flow := NewAdminAuthFlow(repo, tokens, nil)

		require.NoError(t, flow.SeedDefaultAdmin(ctx, config.AdminConfig{Login: "root", Password: "bootstrap-password"}))
		require.Len(t, repo.saved, 1)
		assert.Equal(t, "root", repo.saved[0].Username)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.saved[0].PasswordHash), []byte("bootstrap-password")))
	})

	t.Run("skips when admins exist", func(t *testing.T) {
		repo := &fakeAdminRepo{count: 2}
		flow := NewAdminAuthFlow(repo, tokens, nil)

		require.NoError(t, flow.SeedDefaultAdmin(ctx, config.AdminConfig{Login: "root", Password: "bootstrap-password"}))
		assert.Empty(t, repo.saved)
	})

	t.Run("skips when unconfigured", func(t *testing.T) {
		repo := &fakeAdminRepo{}
		flow := NewAdminAuthFlow(repo, tokens, nil)

		require.NoError(t, flow.SeedDefaultAdmin(ctx, config.AdminConfig{}))
		assert.Empty(t, repo.saved)
	})
}
