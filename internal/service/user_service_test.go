package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luis-domingues/taskly/internal/models"
	"github.com/luis-domingues/taskly/internal/utils"
)

// ---- in-memory store ----

type memStore struct {
	users []*models.User
}

func (m *memStore) Create(_ context.Context, user *models.User) error {
	for _, u := range m.users {
		if u.Username == user.Username {
			return models.ErrUsernameTaken
		}
		if u.Email == user.Email {
			return models.ErrEmailTaken
		}
	}
	clone := *user
	m.users = append(m.users, &clone)
	return nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*models.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			clone := *u
			return &clone, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (m *memStore) GetByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (m *memStore) UsernameExists(_ context.Context, username string) (bool, error) {
	for _, u := range m.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) EmailExists(_ context.Context, email string) (bool, error) {
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) PasswordHashes(_ context.Context) ([]string, error) {
	var hashes []string
	for _, u := range m.users {
		hashes = append(hashes, u.PasswordHash)
	}
	return hashes, nil
}

func (m *memStore) Update(_ context.Context, user *models.User) error {
	for i, u := range m.users {
		if u.ID == user.ID {
			clone := *user
			m.users[i] = &clone
			return nil
		}
	}
	return models.ErrUserNotFound
}

func (m *memStore) Delete(_ context.Context, id string) error {
	for i, u := range m.users {
		if u.ID == id {
			m.users = append(m.users[:i], m.users[i+1:]...)
			return nil
		}
	}
	return models.ErrUserNotFound
}

func (m *memStore) Search(_ context.Context, filter models.SearchFilter) ([]models.UserView, error) {
	var views []models.UserView
	for _, u := range m.users {
		if filter.FullName != "" && !strings.Contains(u.FullName, filter.FullName) {
			continue
		}
		if filter.Username != "" && !strings.Contains(u.Username, filter.Username) {
			continue
		}
		if filter.Email != "" && !strings.Contains(u.Email, filter.Email) {
			continue
		}
		views = append(views, *u.View())
	}
	return views, nil
}

// ---- no-op collaborators ----

type memViews struct {
	store *memStore
}

func (v *memViews) GetByID(ctx context.Context, id string) (*models.UserView, error) {
	user, err := v.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user.View(), nil
}

func (v *memViews) CacheUserView(context.Context, *models.UserView) {}
func (v *memViews) InvalidateUserView(context.Context, string)      {}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, string, any) error { return nil }

func newTestService() (*UserService, *memStore) {
	store := &memStore{}
	return NewUserService(store, &memViews{store: store}, noopPublisher{}), store
}

func register(t *testing.T, svc *UserService, username, email, password string) *models.User {
	t.Helper()
	user, err := svc.Register(context.Background(), RegisterCommand{
		FullName: "Test User",
		Username: username,
		Email:    email,
		Password: password,
		TitleJob: "Developer",
	})
	require.NoError(t, err)
	return user
}

// ---- registration ----

func TestRegisterAssignsIDAndHashesPassword(t *testing.T) {
	svc, _ := newTestService()

	user := register(t, svc, "alice01", "alice@example.com", "hunter22")

	assert.True(t, strings.HasPrefix(user.ID, "usr-"))
	assert.False(t, user.CreatedAt.IsZero())
	assert.NotEqual(t, "hunter22", user.PasswordHash)
	assert.True(t, utils.CheckPassword("hunter22", user.PasswordHash))
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, _ := newTestService()
	register(t, svc, "alice01", "alice@example.com", "hunter22")

	_, err := svc.Register(context.Background(), RegisterCommand{
		FullName: "Other", Username: "alice01", Email: "other@example.com",
		Password: "different1", TitleJob: "Designer",
	})
	assert.ErrorIs(t, err, models.ErrUsernameTaken)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	register(t, svc, "alice01", "alice@example.com", "hunter22")

	_, err := svc.Register(context.Background(), RegisterCommand{
		FullName: "Other", Username: "bobby01", Email: "alice@example.com",
		Password: "different1", TitleJob: "Designer",
	})
	assert.ErrorIs(t, err, models.ErrEmailTaken)
}

func TestRegisterDuplicatePassword(t *testing.T) {
	svc, _ := newTestService()
	register(t, svc, "alice01", "alice@example.com", "hunter22")

	// Different username and email, same plaintext password.
	_, err := svc.Register(context.Background(), RegisterCommand{
		FullName: "Other", Username: "bobby01", Email: "bob@example.com",
		Password: "hunter22", TitleJob: "Designer",
	})
	assert.ErrorIs(t, err, models.ErrPasswordTaken)
}

// ---- login ----

func TestLoginRoundTrip(t *testing.T) {
	svc, _ := newTestService()
	created := register(t, svc, "alice01", "alice@example.com", "hunter22")

	user, err := svc.Login(context.Background(), "alice01", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	_, err = svc.Login(context.Background(), "alice01", "wrongpass")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestLoginUnknownUsername(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Login(context.Background(), "doesNotExist", "anything")
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

// ---- update ----

func TestUpdateEmptyUsernameAndPasswordKeepExisting(t *testing.T) {
	svc, store := newTestService()
	created := register(t, svc, "alice01", "alice@example.com", "hunter22")

	view, err := svc.Update(context.Background(), UpdateCommand{
		UserID:   created.ID,
		FullName: "Alice Renamed",
		TitleJob: "Lead Developer",
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice Renamed", view.FullName)
	assert.Equal(t, "alice01", view.Username)

	stored, err := store.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.PasswordHash, stored.PasswordHash)
}

func TestUpdateOverwritesFullNameAndTitleJobWithEmpty(t *testing.T) {
	svc, _ := newTestService()
	created := register(t, svc, "alice01", "alice@example.com", "hunter22")

	view, err := svc.Update(context.Background(), UpdateCommand{UserID: created.ID})
	require.NoError(t, err)
	assert.Empty(t, view.FullName)
	assert.Empty(t, view.TitleJob)
}

func TestUpdateUsernameConflict(t *testing.T) {
	svc, _ := newTestService()
	register(t, svc, "alice01", "alice@example.com", "hunter22")
	bob := register(t, svc, "bobby01", "bob@example.com", "different1")

	_, err := svc.Update(context.Background(), UpdateCommand{
		UserID:   bob.ID,
		FullName: "Bob",
		Username: "alice01",
		TitleJob: "Designer",
	})
	assert.ErrorIs(t, err, models.ErrUsernameTaken)
}

func TestUpdateUsernameToOwnOrFreeSucceeds(t *testing.T) {
	svc, _ := newTestService()
	created := register(t, svc, "alice01", "alice@example.com", "hunter22")

	// Same username as the user already holds.
	view, err := svc.Update(context.Background(), UpdateCommand{
		UserID: created.ID, FullName: "Alice", Username: "alice01", TitleJob: "Dev",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice01", view.Username)

	// A username nobody holds.
	view, err = svc.Update(context.Background(), UpdateCommand{
		UserID: created.ID, FullName: "Alice", Username: "alice02", TitleJob: "Dev",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice02", view.Username)
}

func TestUpdateReplacesPassword(t *testing.T) {
	svc, store := newTestService()
	created := register(t, svc, "alice01", "alice@example.com", "hunter22")

	_, err := svc.Update(context.Background(), UpdateCommand{
		UserID:   created.ID,
		FullName: "Alice",
		Password: "newsecret1",
		TitleJob: "Dev",
	})
	require.NoError(t, err)

	stored, err := store.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, utils.CheckPassword("newsecret1", stored.PasswordHash))
	assert.False(t, utils.CheckPassword("hunter22", stored.PasswordHash))
}

func TestUpdateUnknownUser(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Update(context.Background(), UpdateCommand{
		UserID: "usr-missing", FullName: "Nobody", TitleJob: "Ghost",
	})
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

// ---- delete ----

func TestDeleteRemovesUser(t *testing.T) {
	svc, _ := newTestService()
	created := register(t, svc, "alice01", "alice@example.com", "hunter22")

	require.NoError(t, svc.Delete(context.Background(), created.ID))

	_, err := svc.GetUser(context.Background(), created.ID)
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

func TestDeleteUnknownUser(t *testing.T) {
	svc, _ := newTestService()

	err := svc.Delete(context.Background(), "usr-missing")
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

// ---- search ----

func TestSearchNoFiltersReturnsAll(t *testing.T) {
	svc, _ := newTestService()
	register(t, svc, "alice01", "alice@example.com", "hunter22")
	register(t, svc, "bobby01", "bob@example.com", "different1")

	views, err := svc.Search(context.Background(), models.SearchFilter{})
	require.NoError(t, err)
	assert.Len(t, views, 2)
}

func TestSearchSubstringIsCaseSensitive(t *testing.T) {
	svc, _ := newTestService()
	register(t, svc, "annabel", "anna@example.com", "hunter22")
	register(t, svc, "Annette", "annette@example.com", "different1")
	register(t, svc, "bobby01", "bob@example.com", "another12")

	views, err := svc.Search(context.Background(), models.SearchFilter{Username: "ann"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "annabel", views[0].Username)
}

func TestSearchCombinesFiltersWithAnd(t *testing.T) {
	svc, _ := newTestService()
	register(t, svc, "annabel", "anna@corp.com", "hunter22")
	register(t, svc, "annette", "annette@example.com", "different1")

	views, err := svc.Search(context.Background(), models.SearchFilter{
		Username: "ann",
		Email:    "corp",
	})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "annabel", views[0].Username)
}

func TestSearchEmptyResultIsNotAnError(t *testing.T) {
	svc, _ := newTestService()
	register(t, svc, "alice01", "alice@example.com", "hunter22")

	views, err := svc.Search(context.Background(), models.SearchFilter{Username: "zzz"})
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestSearchResultsNeverContainPasswordHash(t *testing.T) {
	svc, _ := newTestService()
	created := register(t, svc, "alice01", "alice@example.com", "hunter22")

	views, err := svc.Search(context.Background(), models.SearchFilter{})
	require.NoError(t, err)
	require.Len(t, views, 1)

	payload, err := json.Marshal(views)
	require.NoError(t, err)
	assert.NotContains(t, string(payload), created.PasswordHash)
	assert.NotContains(t, string(payload), "password")
}
