package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/astrobyab/consult-backend/internal/models"
	"github.com/astrobyab/consult-backend/internal/pkg/apperror"
)

var otpInText = regexp.MustCompile(`[0-9]{6}`)

type authFixture struct {
	auth     *AuthService
	users    *mockUserRepository
	otpRepo  *mockOTPRepository
	notifier *mockNotifier
	clock    *fakeClock
	tokens   *TokenManager
}

func newAuthFixture() *authFixture {
	otpSvc, otpRepo, notifier, clock := newTestOTPService()
	users := newMockUserRepository()
	tokens := NewTokenManager("test-secret-test-secret-test-secret", time.Hour)
	auth := NewAuthService(users, otpSvc, tokens)
	auth.now = clock.Now
	return &authFixture{auth: auth, users: users, otpRepo: otpRepo, notifier: notifier, clock: clock, tokens: tokens}
}

func (f *authFixture) lastCode(t *testing.T) string {
	t.Helper()
	code := otpInText.FindString(f.notifier.last().Text)
	require.NotEmpty(t, code)
	return code
}

func TestAuthService_SignupFlow(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	err := f.auth.StartSignup(ctx, SignupInput{Email: "Asha@Example.com", Password: "s3cretpass", Name: "Asha"})
	require.NoError(t, err)

	// до подтверждения пользователя нет
	_, err = f.users.GetByEmail(ctx, "asha@example.com")
	require.Error(t, err)

	result, err := f.auth.CompleteSignup(ctx, "asha@example.com", f.lastCode(t))
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", result.User.Email)
	assert.Equal(t, "Asha", result.User.Name)
	assert.Equal(t, models.RoleUser, result.User.Role)
	require.NotNil(t, result.User.EmailVerifiedAt)
	require.NotNil(t, result.User.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*result.User.PasswordHash), []byte("s3cretpass")))

	userID, role, err := f.tokens.ParseAccess(result.Token.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, userID)
	assert.Equal(t, models.RoleUser, role)

	assert.Equal(t, 0, f.otpRepo.count("asha@example.com", models.OTPPurposeSignup))

	login, err := f.auth.Login(ctx, "asha@example.com", "s3cretpass")
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, login.User.ID)
}

func TestAuthService_SignupExistingEmail(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	require.NoError(t, f.users.Create(ctx, &models.User{Email: "guest@example.com", Role: models.RoleUser}))

	err := f.auth.StartSignup(ctx, SignupInput{Email: "guest@example.com", Password: "s3cretpass", Name: "Guest"})
	assert.ErrorIs(t, err, apperror.ErrEmailTaken)
	assert.Empty(t, f.notifier.sent)
}

func TestAuthService_SignupValidation(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	cases := []SignupInput{
		{Email: "bad-email", Password: "s3cretpass", Name: "Asha"},
		{Email: "asha@example.com", Password: "short1", Name: "Asha"},
		{Email: "asha@example.com", Password: "s3cretpass", Name: ""},
	}
	for _, in := range cases {
		err := f.auth.StartSignup(ctx, in)
		assert.True(t, apperror.IsValidation(err), "input %+v", in)
	}
}

func TestAuthService_CompleteSignupWrongCode(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	require.NoError(t, f.auth.StartSignup(ctx, SignupInput{Email: "asha@example.com", Password: "s3cretpass", Name: "Asha"}))

	code := f.lastCode(t)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	_, err := f.auth.CompleteSignup(ctx, "asha@example.com", wrong)
	assert.ErrorIs(t, err, apperror.ErrInvalidOrExpiredOTP)
}

func TestAuthService_PasswordResetFlow(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	require.NoError(t, f.users.Create(ctx, &models.User{Email: "guest@example.com", Role: models.RoleUser}))

	require.NoError(t, f.auth.RequestPasswordReset(ctx, "guest@example.com"))
	code := f.lastCode(t)
	assert.Equal(t, "Your AstrobyAB password reset OTP", f.notifier.last().Subject)

	// шаг проверки не гасит код, его можно повторить перед сменой пароля
	require.NoError(t, f.auth.VerifyPasswordReset(ctx, "guest@example.com", code))
	require.NoError(t, f.auth.VerifyPasswordReset(ctx, "guest@example.com", code))

	require.NoError(t, f.auth.ConfirmPasswordReset(ctx, "guest@example.com", code, "n3wpassword"))

	_, err := f.auth.Login(ctx, "guest@example.com", "n3wpassword")
	require.NoError(t, err)

	err = f.auth.ConfirmPasswordReset(ctx, "guest@example.com", code, "an0therpass")
	assert.ErrorIs(t, err, apperror.ErrInvalidOrExpiredOTP)
}

func TestAuthService_PasswordResetUnknownEmail(t *testing.T) {
	f := newAuthFixture()

	err := f.auth.RequestPasswordReset(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, apperror.ErrUserNotFound)
	assert.Empty(t, f.notifier.sent)
}

func TestAuthService_LoginGuestWithoutPassword(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	require.NoError(t, f.users.Create(ctx, &models.User{Email: "guest@example.com", Role: models.RoleUser}))

	_, err := f.auth.Login(ctx, "guest@example.com", "anything1")
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)

	_, err = f.auth.Login(ctx, "nobody@example.com", "anything1")
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
}

func TestTokenManager_RejectsForeignSecret(t *testing.T) {
	issuer := NewTokenManager("secret-one-secret-one-secret-one", time.Hour)
	checker := NewTokenManager("secret-two-secret-two-secret-two", time.Hour)

	token, err := issuer.Issue(&models.User{Role: models.RoleAdmin})
	require.NoError(t, err)

	_, _, err = checker.ParseAccess(token.Token)
	assert.Error(t, err)
}
