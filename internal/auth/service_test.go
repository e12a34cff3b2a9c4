package auth

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazaarly/bazaarly-backend/pkg/config"
	"github.com/bazaarly/bazaarly-backend/pkg/db/models"
	"github.com/bazaarly/bazaarly-backend/pkg/enums"
	pkgerrors "github.com/bazaarly/bazaarly-backend/pkg/errors"
	"github.com/bazaarly/bazaarly-backend/pkg/logger"
	"github.com/bazaarly/bazaarly-backend/pkg/security"
	"github.com/bazaarly/bazaarly-backend/pkg/storage"
)

type stubUserRepo struct {
	users map[uuid.UUID]*models.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: map[uuid.UUID]*models.User{}}
}

func (r *stubUserRepo) add(u *models.User) *models.User {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.users[u.ID] = u
	return u
}

func (r *stubUserRepo) Create(_ context.Context, user *models.User) (*models.User, error) {
	return r.add(user), nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	if u, err := r.FindByUsername(ctx, identifier); err == nil {
		return u, nil
	}
	return r.FindByEmail(ctx, identifier)
}

func (r *stubUserRepo) FindByTokenDigest(_ context.Context, kind enums.TokenKind, digest string) (*models.User, error) {
	for _, u := range r.users {
		if stored := tokenDigestOf(u, kind); stored != nil && *stored == digest {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) Save(_ context.Context, user *models.User) (*models.User, error) {
	r.users[user.ID] = user
	return user, nil
}

func (r *stubUserRepo) SetRefreshToken(_ context.Context, id uuid.UUID, token *string) error {
	if u, ok := r.users[id]; ok {
		u.RefreshToken = token
	}
	return nil
}

func (r *stubUserRepo) RevokeSessions(_ context.Context, id uuid.UUID) error {
	if u, ok := r.users[id]; ok {
		u.TokenVersion++
		u.RefreshToken = nil
	}
	return nil
}

func (r *stubUserRepo) SetTokenDigest(_ context.Context, id uuid.UUID, kind enums.TokenKind, digest *string, expiry *time.Time) error {
	u, ok := r.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	switch kind {
	case enums.TokenKindVerifyEmail:
		u.EmailVerificationToken, u.EmailVerificationExpiry = digest, expiry
	case enums.TokenKindResetPassword:
		u.PasswordResetToken, u.PasswordResetExpiry = digest, expiry
	default:
		u.DeleteAccountToken, u.DeleteAccountExpiry = digest, expiry
	}
	return nil
}

func (r *stubUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.users, id)
	return nil
}

func tokenDigestOf(u *models.User, kind enums.TokenKind) *string {
	switch kind {
	case enums.TokenKindVerifyEmail:
		return u.EmailVerificationToken
	case enums.TokenKindResetPassword:
		return u.PasswordResetToken
	default:
		return u.DeleteAccountToken
	}
}

type stubAnonymizers struct {
	reviewerIDs []uuid.UUID
	issuerIDs   []uuid.UUID
	cartUserIDs []uuid.UUID
	offerErr    error
}

func (a *stubAnonymizers) AnonymizeReviewer(_ context.Context, reviewerID uuid.UUID) error {
	a.reviewerIDs = append(a.reviewerIDs, reviewerID)
	return nil
}

func (a *stubAnonymizers) AnonymizeIssuer(_ context.Context, issuerID uuid.UUID, _ time.Time) error {
	if a.offerErr != nil {
		return a.offerErr
	}
	a.issuerIDs = append(a.issuerIDs, issuerID)
	return nil
}

func (a *stubAnonymizers) DeleteByUser(_ context.Context, userID uuid.UUID) error {
	a.cartUserIDs = append(a.cartUserIDs, userID)
	return nil
}

type stubStore struct {
	uploads []string
	deletes []string
}

func (s *stubStore) Upload(_ context.Context, key, _ string, _ io.Reader) (storage.UploadedObject, error) {
	s.uploads = append(s.uploads, key)
	return storage.UploadedObject{URL: "https://cdn.test/" + key, PublicID: key}, nil
}

func (s *stubStore) Delete(_ context.Context, publicID string) error {
	s.deletes = append(s.deletes, publicID)
	return nil
}

type sentMail struct {
	kind string
	to   string
	link string
}

type stubMailer struct {
	sent chan sentMail
}

func newStubMailer() *stubMailer {
	return &stubMailer{sent: make(chan sentMail, 4)}
}

func (m *stubMailer) SendVerificationEmail(_ context.Context, to, _, link string) error {
	m.sent <- sentMail{kind: "verification", to: to, link: link}
	return nil
}

func (m *stubMailer) SendPasswordResetEmail(_ context.Context, to, _, link string) error {
	m.sent <- sentMail{kind: "reset", to: to, link: link}
	return nil
}

func (m *stubMailer) SendAccountDeletionEmail(_ context.Context, to, _, link string) error {
	m.sent <- sentMail{kind: "deletion", to: to, link: link}
	return nil
}

func (m *stubMailer) waitForMail(t *testing.T) sentMail {
	t.Helper()
	select {
	case mail := <-m.sent:
		return mail
	case <-time.After(2 * time.Second):
		t.Fatal("expected a mail to be sent")
		return sentMail{}
	}
}

type authFixture struct {
	svc     Service
	repo    *stubUserRepo
	anon    *stubAnonymizers
	store   *stubStore
	mail    *stubMailer
	nowTime time.Time
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8 * 1024,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	f := &authFixture{
		repo:    newStubUserRepo(),
		anon:    &stubAnonymizers{},
		store:   &stubStore{},
		mail:    newStubMailer(),
		nowTime: time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC),
	}

	logg := logger.New(logger.Options{ServiceName: "auth-test", Output: io.Discard})
	svc, err := NewService(ServiceParams{
		Users:       f.repo,
		Ratings:     f.anon,
		Offers:      f.anon,
		Carts:       f.anon,
		ObjectStore: f.store,
		Mailer:      f.mail,
		Logger:      logg,
		JWT: config.JWTConfig{
			Secret:                 "test-secret",
			Issuer:                 "bazaarly-test",
			AccessTTLMinutes:       15,
			RefreshTokenTTLMinutes: 60,
		},
		Password: testPasswordConfig(),
		Token:    config.TokenConfig{TemporaryTTL: 20 * time.Minute},
		Frontend: config.FrontendConfig{BaseURL: "https://shop.test"},
		Now:      func() time.Time { return f.nowTime },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

func (f *authFixture) seedUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, testPasswordConfig())
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return f.repo.add(&models.User{
		Username:     "ana",
		Email:        "ana@example.com",
		FullName:     "Ana Silva",
		PasswordHash: hash,
		Role:         enums.UserRoleCustomer,
	})
}

func assertCode(t *testing.T, err error, want pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", want)
	}
	if got := pkgerrors.As(err).Code(); got != want {
		t.Fatalf("expected code %s, got %s (%v)", want, got, err)
	}
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	user := f.seedUser(t, "s3cret-pass")

	t.Run("unknown identifier", func(t *testing.T) {
		_, err := f.svc.Login(context.Background(), LoginRequest{Identifier: "nobody", Password: "x"})
		assertCode(t, err, pkgerrors.CodeNotFound)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.svc.Login(context.Background(), LoginRequest{Identifier: "ana", Password: "wrong"})
		assertCode(t, err, pkgerrors.CodeUnauthorized)
	})

	t.Run("by username and by email", func(t *testing.T) {
		for _, identifier := range []string{"ana", "ana@example.com"} {
			resp, err := f.svc.Login(context.Background(), LoginRequest{Identifier: identifier, Password: "s3cret-pass"})
			if err != nil {
				t.Fatalf("Login(%q): %v", identifier, err)
			}
			if resp.AccessToken == "" || resp.RefreshToken == "" {
				t.Fatal("expected a full token pair")
			}
			if resp.User == nil || resp.User.ID != user.ID {
				t.Fatal("expected the user in the response")
			}
		}
		if user.RefreshToken == nil {
			t.Fatal("expected the refresh token to be persisted")
		}
	})
}

func TestRefreshRotation(t *testing.T) {
	f := newAuthFixture(t)
	user := f.seedUser(t, "s3cret-pass")

	resp, err := f.svc.Login(context.Background(), LoginRequest{Identifier: "ana", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	t.Run("garbage token", func(t *testing.T) {
		_, err := f.svc.Refresh(context.Background(), "not-a-jwt")
		assertCode(t, err, pkgerrors.CodeUnauthorized)
	})

	t.Run("valid token rotates", func(t *testing.T) {
		pair, err := f.svc.Refresh(context.Background(), resp.RefreshToken)
		if err != nil {
			t.Fatalf("Refresh: %v", err)
		}
		if *user.RefreshToken != pair.RefreshToken {
			t.Fatal("expected the stored token to be the new one")
		}
	})

	t.Run("superseded token conflicts", func(t *testing.T) {
		_, err := f.svc.Refresh(context.Background(), resp.RefreshToken)
		assertCode(t, err, pkgerrors.CodeConflict)
	})

	t.Run("deleted account forbidden", func(t *testing.T) {
		current := *user.RefreshToken
		delete(f.repo.users, user.ID)
		_, err := f.svc.Refresh(context.Background(), current)
		assertCode(t, err, pkgerrors.CodeForbidden)
	})
}

func TestLogoutRevokesRefreshTokens(t *testing.T) {
	f := newAuthFixture(t)
	user := f.seedUser(t, "s3cret-pass")

	resp, err := f.svc.Login(context.Background(), LoginRequest{Identifier: "ana", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := f.svc.Logout(context.Background(), user.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if user.TokenVersion != 1 || user.RefreshToken != nil {
		t.Fatalf("expected version bump and cleared token, got version=%d", user.TokenVersion)
	}

	// The pre-logout token embeds the old version and must be rejected even
	// if it were somehow re-stored.
	f.repo.users[user.ID].RefreshToken = &resp.RefreshToken
	_, err = f.svc.Refresh(context.Background(), resp.RefreshToken)
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestChangePassword(t *testing.T) {
	f := newAuthFixture(t)
	user := f.seedUser(t, "old-password")

	t.Run("confirmation mismatch", func(t *testing.T) {
		_, err := f.svc.ChangePassword(context.Background(), user.ID, ChangePasswordRequest{
			OldPassword: "old-password", NewPassword: "a", ConfirmPassword: "b",
		})
		assertCode(t, err, pkgerrors.CodeValidation)
	})

	t.Run("new equals old", func(t *testing.T) {
		_, err := f.svc.ChangePassword(context.Background(), user.ID, ChangePasswordRequest{
			OldPassword: "old-password", NewPassword: "old-password", ConfirmPassword: "old-password",
		})
		assertCode(t, err, pkgerrors.CodeValidation)
	})

	t.Run("wrong old password", func(t *testing.T) {
		_, err := f.svc.ChangePassword(context.Background(), user.ID, ChangePasswordRequest{
			OldPassword: "nope", NewPassword: "new-password", ConfirmPassword: "new-password",
		})
		assertCode(t, err, pkgerrors.CodeUnauthorized)
	})

	t.Run("success revokes and reissues", func(t *testing.T) {
		pair, err := f.svc.ChangePassword(context.Background(), user.ID, ChangePasswordRequest{
			OldPassword: "old-password", NewPassword: "new-password", ConfirmPassword: "new-password",
		})
		if err != nil {
			t.Fatalf("ChangePassword: %v", err)
		}
		if user.TokenVersion != 1 {
			t.Fatalf("expected token version 1, got %d", user.TokenVersion)
		}
		if pair.RefreshToken == "" || user.RefreshToken == nil || *user.RefreshToken != pair.RefreshToken {
			t.Fatal("expected a fresh refresh token to be stored")
		}
		if ok, _ := security.VerifyPassword("new-password", user.PasswordHash); !ok {
			t.Fatal("expected the new password to verify")
		}
	})
}

func TestRegister(t *testing.T) {
	f := newAuthFixture(t)

	validReq := func() RegisterRequest {
		return RegisterRequest{
			Username: "bruno",
			Email:    "Bruno@Example.com",
			FullName: "Bruno Costa",
			Password: "s3cret-pass",
		}
	}
	avatar := func() AvatarUpload {
		return AvatarUpload{Body: strings.NewReader("img"), ContentType: "image/png"}
	}

	t.Run("avatar required", func(t *testing.T) {
		_, err := f.svc.Register(context.Background(), validReq(), AvatarUpload{})
		assertCode(t, err, pkgerrors.CodeValidation)
	})

	t.Run("invalid role", func(t *testing.T) {
		req := validReq()
		req.Role = "superuser"
		_, err := f.svc.Register(context.Background(), req, avatar())
		assertCode(t, err, pkgerrors.CodeValidation)
	})

	t.Run("success defaults to customer and mails verification", func(t *testing.T) {
		dto, err := f.svc.Register(context.Background(), validReq(), avatar())
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		if dto.Role != "customer" {
			t.Fatalf("expected customer role, got %s", dto.Role)
		}
		if dto.Email != "bruno@example.com" {
			t.Fatalf("expected lowercased email, got %s", dto.Email)
		}
		if len(f.store.uploads) != 1 || !strings.HasPrefix(f.store.uploads[0], "avatars/") {
			t.Fatalf("expected one avatar upload, got %v", f.store.uploads)
		}

		mail := f.mail.waitForMail(t)
		if mail.kind != "verification" || mail.to != "bruno@example.com" {
			t.Fatalf("unexpected mail %+v", mail)
		}
		if !strings.HasPrefix(mail.link, "https://shop.test/verify-email/") {
			t.Fatalf("unexpected verification link %s", mail.link)
		}
	})

	t.Run("duplicate username conflicts", func(t *testing.T) {
		req := validReq()
		req.Email = "other@example.com"
		_, err := f.svc.Register(context.Background(), req, avatar())
		assertCode(t, err, pkgerrors.CodeConflict)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		req := validReq()
		req.Username = "someoneelse"
		_, err := f.svc.Register(context.Background(), req, avatar())
		assertCode(t, err, pkgerrors.CodeConflict)
	})
}

func TestVerifyEmailFlow(t *testing.T) {
	f := newAuthFixture(t)
	dto, err := f.svc.Register(context.Background(), RegisterRequest{
		Username: "carla",
		Email:    "carla@example.com",
		FullName: "Carla Dias",
		Password: "s3cret-pass",
	}, AvatarUpload{Body: strings.NewReader("img"), ContentType: "image/jpeg"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	mail := f.mail.waitForMail(t)
	raw := mail.link[strings.LastIndex(mail.link, "/")+1:]

	t.Run("expired token rejected", func(t *testing.T) {
		f.nowTime = f.nowTime.Add(25 * time.Minute)
		_, err := f.svc.VerifyEmail(context.Background(), raw)
		assertCode(t, err, pkgerrors.CodeNotFound)
		f.nowTime = f.nowTime.Add(-25 * time.Minute)
	})

	t.Run("valid token verifies once", func(t *testing.T) {
		verified, err := f.svc.VerifyEmail(context.Background(), raw)
		if err != nil {
			t.Fatalf("VerifyEmail: %v", err)
		}
		if !verified.IsEmailVerified {
			t.Fatal("expected the account to be verified")
		}

		_, err = f.svc.VerifyEmail(context.Background(), raw)
		assertCode(t, err, pkgerrors.CodeNotFound)
	})

	t.Run("resend conflicts once verified", func(t *testing.T) {
		err := f.svc.ResendEmailVerification(context.Background(), dto.ID)
		assertCode(t, err, pkgerrors.CodeConflict)
	})
}

func TestPasswordResetFlow(t *testing.T) {
	f := newAuthFixture(t)
	user := f.seedUser(t, "old-password")

	t.Run("unknown email", func(t *testing.T) {
		err := f.svc.ForgotPassword(context.Background(), ForgotPasswordRequest{Email: "ghost@example.com"})
		assertCode(t, err, pkgerrors.CodeNotFound)
	})

	if err := f.svc.ForgotPassword(context.Background(), ForgotPasswordRequest{Email: "ANA@example.com"}); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	mail := f.mail.waitForMail(t)
	if mail.kind != "reset" {
		t.Fatalf("expected a reset mail, got %+v", mail)
	}
	raw := mail.link[strings.LastIndex(mail.link, "/")+1:]

	if err := f.svc.ResetPassword(context.Background(), raw, ResetPasswordRequest{NewPassword: "brand-new-pass"}); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if ok, _ := security.VerifyPassword("brand-new-pass", user.PasswordHash); !ok {
		t.Fatal("expected the new password to verify")
	}
	if user.TokenVersion != 1 {
		t.Fatalf("expected sessions revoked, version=%d", user.TokenVersion)
	}
	if user.PasswordResetToken != nil {
		t.Fatal("expected the reset token slot to be cleared")
	}
}

func TestAccountDeletionCascade(t *testing.T) {
	f := newAuthFixture(t)
	seller := f.repo.add(&models.User{
		Username:       "dona-loja",
		Email:          "loja@example.com",
		FullName:       "Dona Loja",
		PasswordHash:   "irrelevant",
		Role:           enums.UserRoleSeller,
		AvatarPublicID: "avatars/old.png",
	})

	if err := f.svc.RequestAccountDeletion(context.Background(), seller.ID); err != nil {
		t.Fatalf("RequestAccountDeletion: %v", err)
	}
	mail := f.mail.waitForMail(t)
	if mail.kind != "deletion" {
		t.Fatalf("expected a deletion mail, got %+v", mail)
	}
	raw := mail.link[strings.LastIndex(mail.link, "/")+1:]

	if err := f.svc.ConfirmAccountDeletion(context.Background(), raw); err != nil {
		t.Fatalf("ConfirmAccountDeletion: %v", err)
	}

	if _, ok := f.repo.users[seller.ID]; ok {
		t.Fatal("expected the user row to be gone")
	}
	if len(f.anon.reviewerIDs) != 1 || f.anon.reviewerIDs[0] != seller.ID {
		t.Fatal("expected review anonymization for the deleted user")
	}
	if len(f.anon.cartUserIDs) != 1 {
		t.Fatal("expected the cart to be removed")
	}
	if len(f.anon.issuerIDs) != 1 {
		t.Fatal("expected offer anonymization for a seller account")
	}
	if len(f.store.deletes) != 1 || f.store.deletes[0] != "avatars/old.png" {
		t.Fatalf("expected the avatar object to be removed, got %v", f.store.deletes)
	}
}

func TestAccountDeletionCleanupErrorsSwallowed(t *testing.T) {
	f := newAuthFixture(t)
	f.anon.offerErr = pkgerrors.New(pkgerrors.CodeDependency, "offers down")
	seller := f.repo.add(&models.User{
		Username:     "eva",
		Email:        "eva@example.com",
		FullName:     "Eva Braga",
		PasswordHash: "irrelevant",
		Role:         enums.UserRoleSeller,
	})

	if err := f.svc.RequestAccountDeletion(context.Background(), seller.ID); err != nil {
		t.Fatalf("RequestAccountDeletion: %v", err)
	}
	mail := f.mail.waitForMail(t)
	raw := mail.link[strings.LastIndex(mail.link, "/")+1:]

	if err := f.svc.ConfirmAccountDeletion(context.Background(), raw); err != nil {
		t.Fatalf("cleanup failure must not surface: %v", err)
	}
	if _, ok := f.repo.users[seller.ID]; ok {
		t.Fatal("expected the user row to be gone despite cleanup failure")
	}
}
