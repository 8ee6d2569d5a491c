package accounts

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func registerTestUser(t *testing.T, repository *UserRepository, email string, role Role) *User {
	t.Helper()
	user, err := repository.Create(context.Background(), NewUser{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     email,
		Password:  "Str0ng!Pass",
		Role:      role,
	})
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return user
}

func TestUserRepositoryCreateHashesPassword(t *testing.T) {
	repository := openTestDatabase(t).Users()
	user := registerTestUser(t, repository, "  Jane@Example.com ", "")

	if user.UserID == "" {
		t.Fatalf("expected generated user id")
	}
	if user.Email != "jane@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.Role != RoleUser {
		t.Fatalf("expected default role user, got %q", user.Role)
	}
	if user.PasswordHash == "" || user.PasswordHash == "Str0ng!Pass" {
		t.Fatalf("password must be stored hashed")
	}
}

func TestUserRepositoryCreateRejectsDuplicateEmail(t *testing.T) {
	repository := openTestDatabase(t).Users()
	registerTestUser(t, repository, "dup@example.com", RoleUser)

	_, err := repository.Create(context.Background(), NewUser{
		FirstName: "Other",
		LastName:  "Person",
		Email:     "DUP@example.com",
		Password:  "Str0ng!Pass",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUserRepositoryCreateRejectsUnknownRole(t *testing.T) {
	repository := openTestDatabase(t).Users()
	_, err := repository.Create(context.Background(), NewUser{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "role@example.com",
		Password:  "Str0ng!Pass",
		Role:      Role("superuser"),
	})
	if err == nil {
		t.Fatalf("expected error for unknown role")
	}
}

func TestUserRepositoryAuthenticate(t *testing.T) {
	repository := openTestDatabase(t).Users()
	registered := registerTestUser(t, repository, "login@example.com", RoleUser)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "valid", email: "login@example.com", password: "Str0ng!Pass"},
		{name: "case insensitive email", email: "LOGIN@example.com", password: "Str0ng!Pass"},
		{name: "wrong password", email: "login@example.com", password: "Wr0ng!Pass", wantErr: ErrInvalidCredentials},
		{name: "empty password", email: "login@example.com", password: "", wantErr: ErrInvalidCredentials},
		{name: "unknown email", email: "nobody@example.com", password: "Str0ng!Pass", wantErr: ErrInvalidCredentials},
	}
	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			user, err := repository.Authenticate(context.Background(), testCase.email, testCase.password)
			if testCase.wantErr != nil {
				if !errors.Is(err, testCase.wantErr) {
					t.Fatalf("expected %v, got %v", testCase.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if user.UserID != registered.UserID {
				t.Fatalf("expected user %s, got %s", registered.UserID, user.UserID)
			}
		})
	}
}

func TestUserRepositoryCreateRejectsOversizedPassword(t *testing.T) {
	repository := openTestDatabase(t).Users()

	_, err := repository.Create(context.Background(), NewUser{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "bytes@example.com",
		Password:  "Aa1" + strings.Repeat("€", 29),
	})
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword for a password over 72 bytes, got %v", err)
	}

	_, err = repository.EnsureAdmin(context.Background(), "root@example.com", strings.Repeat("Ä", 40))
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword from bootstrap admin, got %v", err)
	}
}

func TestUserRepositoryUnknownEmailUsesRepositoryCost(t *testing.T) {
	database := openTestDatabase(t)
	repository := NewUserRepository(database.db, bcrypt.MinCost+1)

	_, err := repository.Authenticate(context.Background(), "nobody@example.com", "Str0ng!Pass")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	cost, costErr := bcrypt.Cost([]byte(repository.decoyPasswordHash()))
	if costErr != nil {
		t.Fatalf("decoy hash must be a bcrypt hash: %v", costErr)
	}
	if cost != bcrypt.MinCost+1 {
		t.Fatalf("expected decoy hash at cost %d, got %d", bcrypt.MinCost+1, cost)
	}
}

func TestUserRepositoryFindByIdentityRequiresMatchingRole(t *testing.T) {
	repository := openTestDatabase(t).Users()
	user := registerTestUser(t, repository, "identity@example.com", RoleUser)

	found, err := repository.FindByIdentity(context.Background(), user.UserID, RoleUser)
	if err != nil {
		t.Fatalf("expected identity match, got %v", err)
	}
	if found.Email != "identity@example.com" {
		t.Fatalf("unexpected user %q", found.Email)
	}

	if _, err := repository.FindByIdentity(context.Background(), user.UserID, RoleAdmin); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for role mismatch, got %v", err)
	}
	if _, err := repository.FindByIdentity(context.Background(), "missing", RoleUser); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for unknown id, got %v", err)
	}
}

func TestUserRepositoryUpdateNameKeepsEmptyFields(t *testing.T) {
	repository := openTestDatabase(t).Users()
	user := registerTestUser(t, repository, "rename@example.com", RoleUser)

	if err := repository.UpdateName(context.Background(), user, NameUpdate{MiddleName: "Quinn", LastName: "Smith"}); err != nil {
		t.Fatalf("update name: %v", err)
	}
	reloaded, err := repository.FindByUserID(context.Background(), user.UserID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if reloaded.FirstName != "Jane" || reloaded.MiddleName != "Quinn" || reloaded.LastName != "Smith" {
		t.Fatalf("unexpected name after update: %+v", reloaded.View().Name)
	}
}

func TestUserRepositoryListOrdersByCreation(t *testing.T) {
	repository := openTestDatabase(t).Users()
	first := registerTestUser(t, repository, "first@example.com", RoleUser)
	second := registerTestUser(t, repository, "second@example.com", RoleAdmin)

	users, err := repository.List(context.Background())
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	if users[0].UserID != first.UserID || users[1].UserID != second.UserID {
		t.Fatalf("unexpected order")
	}
}

func TestUserRepositoryEnsureAdmin(t *testing.T) {
	repository := openTestDatabase(t).Users()

	created, err := repository.EnsureAdmin(context.Background(), "admin@example.com", "Adm1n!Pass")
	if err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	if !created {
		t.Fatalf("expected admin to be created")
	}
	admin, err := repository.FindByEmail(context.Background(), "admin@example.com")
	if err != nil {
		t.Fatalf("find admin: %v", err)
	}
	if !admin.IsAdmin() || admin.FirstName != "Admin" || admin.LastName != "User" {
		t.Fatalf("unexpected bootstrap admin: %+v", admin.View())
	}

	createdAgain, err := repository.EnsureAdmin(context.Background(), "other-admin@example.com", "Adm1n!Pass")
	if err != nil {
		t.Fatalf("ensure admin second call: %v", err)
	}
	if createdAgain {
		t.Fatalf("expected no second admin")
	}
}

func TestUserViewOmitsCredentials(t *testing.T) {
	repository := openTestDatabase(t).Users()
	user := registerTestUser(t, repository, "view@example.com", RoleUser)
	view := user.View()
	if view.UserID != user.UserID || view.Name.First != "Jane" || view.Role != RoleUser {
		t.Fatalf("unexpected view: %+v", view)
	}
}

func TestValidatePasswordFormat(t *testing.T) {
	tests := []struct {
		name     string
		password string
		valid    bool
	}{
		{name: "valid", password: "Str0ng!Pass", valid: true},
		{name: "too short", password: "S0!a", valid: false},
		{name: "too long", password: "Str0ng!Pass" + strings.Repeat("x", 30), valid: false},
		{name: "missing digit", password: "Strong!Pass", valid: false},
		{name: "missing lower", password: "STR0NG!PASS", valid: false},
		{name: "missing upper", password: "str0ng!pass", valid: false},
		{name: "missing special", password: "Str0ngPass1", valid: false},
		{name: "exactly eight", password: "Aa1!aaaa", valid: true},
		{name: "multibyte within 72 bytes", password: "Aa1" + strings.Repeat("€", 23), valid: true},
		{name: "multibyte over 72 bytes", password: "Aa1" + strings.Repeat("€", 29), valid: false},
	}
	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			err := ValidatePasswordFormat(testCase.password)
			if testCase.valid && err != nil {
				t.Fatalf("expected valid password, got %v", err)
			}
			if !testCase.valid && !errors.Is(err, ErrWeakPassword) {
				t.Fatalf("expected ErrWeakPassword, got %v", err)
			}
		})
	}
}
