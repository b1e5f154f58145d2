package service

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/luis-domingues/taskly/internal/events"
	"github.com/luis-domingues/taskly/internal/models"
	"github.com/luis-domingues/taskly/internal/utils"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// UserStore is the write-side persistence used by UserService. Implementations
// must return models.ErrUserNotFound for missing records and the conflict
// sentinels for store-level unique violations.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	PasswordHashes(ctx context.Context) ([]string, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, filter models.SearchFilter) ([]models.UserView, error)
}

// UserViews is the read-side projection store.
type UserViews interface {
	GetByID(ctx context.Context, id string) (*models.UserView, error)
	CacheUserView(ctx context.Context, view *models.UserView)
	InvalidateUserView(ctx context.Context, userID string)
}

// Publisher emits lifecycle events to the event stream.
type Publisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// UserService owns the account lifecycle: registration, authentication,
// profile update, deletion and search. It is stateless between calls; all
// state lives in the injected stores.
type UserService struct {
	store     UserStore
	views     UserViews
	publisher Publisher
}

func NewUserService(store UserStore, views UserViews, publisher Publisher) *UserService {
	return &UserService{
		store:     store,
		views:     views,
		publisher: publisher,
	}
}

type RegisterCommand struct {
	FullName string
	Username string
	Email    string
	Password string
	TitleJob string
}

type UpdateCommand struct {
	UserID   string
	FullName string
	Username string
	Password string
	TitleJob string
}

// Register creates a new account. All three uniqueness checks run before any
// mutation; the schema-level unique constraints remain the backstop for
// concurrent registrations racing on the same username or email.
func (s *UserService) Register(ctx context.Context, cmd RegisterCommand) (*models.User, error) {
	taken, err := s.store.UsernameExists(ctx, cmd.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, models.ErrUsernameTaken
	}

	taken, err = s.store.EmailExists(ctx, cmd.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, models.ErrEmailTaken
	}

	// Cross-user password reuse is disallowed. bcrypt salts every hash, so the
	// only way to detect reuse is to verify the candidate against each stored
	// hash in turn.
	hashes, err := s.store.PasswordHashes(ctx)
	if err != nil {
		return nil, err
	}
	for _, hash := range hashes {
		if utils.CheckPassword(cmd.Password, hash) {
			return nil, models.ErrPasswordTaken
		}
	}

	passwordHash, err := utils.HashPassword(cmd.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           utils.GenerateID("usr"),
		FullName:     cmd.FullName,
		Username:     cmd.Username,
		Email:        cmd.Email,
		PasswordHash: passwordHash,
		TitleJob:     cmd.TitleJob,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, err
	}

	s.views.CacheUserView(ctx, user.View())
	if err := s.publisher.Publish(ctx, events.UserEventsStream, events.UserRegistered, events.UserRegisteredEvent{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	}); err != nil {
		logger.Error().Err(err).Str("userId", user.ID).Msg("failed to publish user.registered event")
	}
	return user, nil
}

// Login authenticates by username and plaintext password. It is stateless and
// single-shot: no lockout, no attempt counting.
func (s *UserService) Login(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(password, user.PasswordHash) {
		return nil, models.ErrInvalidCredentials
	}
	return user, nil
}

// Update overwrites fullName and titleJob with the supplied values (empty
// values included), and replaces username and password only when the supplied
// value is non-empty. The password reuse check is not repeated here.
func (s *UserService) Update(ctx context.Context, cmd UpdateCommand) (*models.UserView, error) {
	user, err := s.store.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	if cmd.Username != "" && cmd.Username != user.Username {
		taken, err := s.store.UsernameExists(ctx, cmd.Username)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, models.ErrUsernameTaken
		}
	}

	user.FullName = cmd.FullName
	user.TitleJob = cmd.TitleJob

	if cmd.Username != "" {
		user.Username = cmd.Username
	}
	if cmd.Password != "" {
		passwordHash, err := utils.HashPassword(cmd.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = passwordHash
	}

	if err := s.store.Update(ctx, user); err != nil {
		return nil, err
	}

	view := user.View()
	s.views.CacheUserView(ctx, view)
	if err := s.publisher.Publish(ctx, events.UserEventsStream, events.UserUpdated, events.UserUpdatedEvent{
		UserID:   user.ID,
		Username: user.Username,
	}); err != nil {
		logger.Error().Err(err).Str("userId", user.ID).Msg("failed to publish user.updated event")
	}
	return view, nil
}

// Delete removes the account permanently. The boundary layer is responsible
// for ensuring the caller may only delete their own account.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	if err := s.store.Delete(ctx, userID); err != nil {
		return err
	}

	s.views.InvalidateUserView(ctx, userID)
	if err := s.publisher.Publish(ctx, events.UserEventsStream, events.UserDeleted, events.UserDeletedEvent{
		UserID: userID,
	}); err != nil {
		logger.Error().Err(err).Str("userId", userID).Msg("failed to publish user.deleted event")
	}
	return nil
}

// GetUser returns the public projection of a single user.
func (s *UserService) GetUser(ctx context.Context, userID string) (*models.UserView, error) {
	return s.views.GetByID(ctx, userID)
}

// Search returns public projections of all users matching the filter.
// An empty result is a valid outcome, not an error.
func (s *UserService) Search(ctx context.Context, filter models.SearchFilter) ([]models.UserView, error) {
	return s.store.Search(ctx, filter)
}
