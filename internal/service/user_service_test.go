package service

import (
	"context"
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/xinodeprinz/edstock-server/internal/domain"
	"github.com/xinodeprinz/edstock-server/internal/repository"
)

const testSecret = "test-secret"

// Mock repositories for testing
type mockUserRepository struct {
	users      map[string]*domain.User
	referenced map[string]bool
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users:      make(map[string]*domain.User),
		referenced: make(map[string]bool),
	}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) Delete(ctx context.Context, id string) error {
	for email, user := range m.users {
		if user.UserID == id {
			if m.referenced[id] {
				return repository.ErrUserReferenced
			}
			delete(m.users, email)
			return nil
		}
	}
	return repository.ErrUserNotFound
}

func (m *mockUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	users := []*domain.User{}
	for _, user := range m.users {
		users = append(users, user)
	}
	return users, nil
}

func (m *mockUserRepository) ListByRole(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	users := []*domain.User{}
	for _, user := range m.users {
		if user.Role == role {
			users = append(users, user)
		}
	}
	return users, nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, exists := m.users[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	for _, user := range m.users {
		if user.UserID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func newTestUserService(repo repository.UserRepository) UserService {
	return NewUserService(repo, testSecret, 0, zap.NewNop())
}

func parseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return claims, err
}

func TestSignIn_TokenIsHS256WithSubject(t *testing.T) {
	svc := newTestUserService(newMockUserRepository())
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateUserInput{Name: "Ada", Email: "ada@edstock.test", Role: domain.RoleStaff, Password: "password123"})
	require.NoError(t, err)

	token, _, err := svc.SignIn(ctx, "ada@edstock.test", "password123")
	require.NoError(t, err)

	parsed, _, err := jwt.NewParser().ParseUnverified(token, &Claims{})
	require.NoError(t, err)
	assert.Equal(t, "HS256", parsed.Method.Alg())

	subject, err := parsed.Claims.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, created.UserID, subject)
}

func fewTests() *gopter.TestParameters {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 15
	return parameters
}

func TestProperty_CreatedUsersHaveHashedPasswords(t *testing.T) {
	properties := gopter.NewProperties(fewTests())

	properties.Property("passwords are hashed with bcrypt and not stored as plaintext", prop.ForAll(
		func(email string, password string, name string) bool {
			svc := newTestUserService(newMockUserRepository())

			user, err := svc.Create(context.Background(), CreateUserInput{
				Name:     name,
				Email:    email,
				Role:     domain.RoleStaff,
				Password: password,
			})
			if err != nil {
				t.Logf("FAIL: create failed: %v", err)
				return false
			}

			if user.PasswordHash == password {
				t.Logf("FAIL: Password stored as plaintext for email %s", email)
				return false
			}

			if user.UserID == "" {
				t.Logf("FAIL: no user id generated")
				return false
			}

			return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
		},
		gen.RegexMatch(`[a-z]{3,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
	))

	properties.TestingRun(t)
}

func TestProperty_SignInTokensCarryClaims(t *testing.T) {
	properties := gopter.NewProperties(fewTests())

	properties.Property("tokens carry user_id, email and role and expire in seven days", prop.ForAll(
		func(email string, password string, role string) bool {
			svc := newTestUserService(newMockUserRepository())
			ctx := context.Background()

			created, err := svc.Create(ctx, CreateUserInput{Name: "Ada", Email: email, Role: domain.Role(role), Password: password})
			if err != nil {
				return false
			}

			token, user, err := svc.SignIn(ctx, email, password)
			if err != nil {
				t.Logf("FAIL: sign in failed: %v", err)
				return false
			}

			claims, err := parseClaims(token)
			if err != nil {
				t.Logf("FAIL: token invalid: %v", err)
				return false
			}

			if claims.UserID != created.UserID || claims.Email != email || string(claims.Role) != role || user.UserID != created.UserID {
				t.Logf("FAIL: claims mismatch: %+v", claims)
				return false
			}

			lifetime := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
			return lifetime == TokenExpiration
		},
		gen.RegexMatch(`[a-z]{3,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
		gen.OneConstOf(string(domain.RoleSuperAdmin), string(domain.RoleAdmin), string(domain.RoleStaff)),
	))

	properties.TestingRun(t)
}

func TestProperty_WrongPasswordNeverYieldsToken(t *testing.T) {
	properties := gopter.NewProperties(fewTests())

	properties.Property("a wrong password fails exactly like an unknown email", prop.ForAll(
		func(password string, wrong string) bool {
			if password == wrong {
				return true
			}
			svc := newTestUserService(newMockUserRepository())
			ctx := context.Background()

			if _, err := svc.Create(ctx, CreateUserInput{Name: "Ada", Email: "ada@edstock.test", Role: domain.RoleAdmin, Password: password}); err != nil {
				return false
			}

			token, user, err := svc.SignIn(ctx, "ada@edstock.test", wrong)
			if token != "" || user != nil || !errors.Is(err, ErrInvalidCredentials) {
				return false
			}

			_, _, unknownErr := svc.SignIn(ctx, "nobody@edstock.test", password)
			return errors.Is(unknownErr, ErrInvalidCredentials) && unknownErr.Error() == err.Error()
		},
		gen.RegexMatch(`[A-Za-z0-9]{8,16}`),
		gen.RegexMatch(`[A-Za-z0-9]{1,16}`),
	))

	properties.TestingRun(t)
}

func TestUserService_CreateValidation(t *testing.T) {
	svc := newTestUserService(newMockUserRepository())
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreateUserInput
		field string
	}{
		{"missing name", CreateUserInput{Email: "a@b.com", Role: domain.RoleStaff, Password: "password123"}, "name"},
		{"missing email", CreateUserInput{Name: "A", Role: domain.RoleStaff, Password: "password123"}, "email"},
		{"unknown role", CreateUserInput{Name: "A", Email: "a@b.com", Role: "OWNER", Password: "password123"}, "role"},
		{"short password", CreateUserInput{Name: "A", Email: "a@b.com", Role: domain.RoleStaff, Password: "short"}, "password"},
		{"no password", CreateUserInput{Name: "A", Email: "a@b.com", Role: domain.RoleStaff}, "password"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.input)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestUserService_CreateDuplicateEmail(t *testing.T) {
	svc := newTestUserService(newMockUserRepository())
	ctx := context.Background()

	input := CreateUserInput{Name: "A", Email: "a@b.com", Role: domain.RoleStaff, Password: "password123"}
	_, err := svc.Create(ctx, input)
	require.NoError(t, err)

	_, err = svc.Create(ctx, input)
	assert.ErrorIs(t, err, repository.ErrUserAlreadyExists)
}

func TestUserService_Delete(t *testing.T) {
	repo := newMockUserRepository()
	svc := newTestUserService(repo)
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateUserInput{UserID: "u1", Name: "A", Email: "a@b.com", Role: domain.RoleStaff, Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "u1", user.UserID)

	repo.referenced["u1"] = true
	assert.ErrorIs(t, svc.Delete(ctx, "u1"), repository.ErrUserReferenced)

	repo.referenced["u1"] = false
	require.NoError(t, svc.Delete(ctx, "u1"))
	assert.ErrorIs(t, svc.Delete(ctx, "u1"), repository.ErrUserNotFound)
}
