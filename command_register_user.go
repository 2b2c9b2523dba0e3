package auth

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Bio       string `json:"bio"`
	Password  string `json:"password"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Validate checks the registration payload before it touches storage.
func (e RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Username,
			validation.Required,
			validation.Length(3, 50),
		),
		validation.Field(&e.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(&e.Password,
			validation.Required,
			validation.Length(8, 128),
		),
	)
}

// RegisterUserHandler creates accounts. New users start as pending
// with the regular user role; an admin activates them before they can
// authenticate.
type RegisterUserHandler struct {
	repo  RepositoryManager
	sink  ActivitySink
	loggr Logger
	now   func() time.Time
}

// NewRegisterUserHandler builds the handler around the given manager.
func NewRegisterUserHandler(repo RepositoryManager, opts ...RegisterUserOption) *RegisterUserHandler {
	h := &RegisterUserHandler{
		repo:  repo,
		sink:  noopActivitySink{},
		loggr: defLogger{},
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// RegisterUserOption configures the handler.
type RegisterUserOption func(*RegisterUserHandler)

// WithRegisterActivitySink wires a sink for registration events.
func WithRegisterActivitySink(sink ActivitySink) RegisterUserOption {
	return func(h *RegisterUserHandler) {
		h.sink = normalizeActivitySink(sink)
	}
}

// WithRegisterLogger sets the logger used for best-effort failures.
func WithRegisterLogger(logger Logger) RegisterUserOption {
	return func(h *RegisterUserHandler) {
		if logger != nil {
			h.loggr = logger
		}
	}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	if err := event.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration payload").
			WithTextCode("VALIDATION_ERROR")
	}

	user := &User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		username := getUsername(event.Username, event.Email)

		if taken, err := h.repo.Users().ExistsByUsername(ctx, username); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check username")
		} else if taken {
			return ErrIdentifierTaken
		}

		if taken, err := h.repo.Users().ExistsByEmail(ctx, event.Email); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email")
		} else if taken {
			return ErrIdentifierTaken
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Email = strings.TrimSpace(event.Email)
		user.FirstName = event.FirstName
		user.LastName = event.LastName
		user.Bio = event.Bio
		user.Username = username
		user.Role = RoleUser
		user.Status = UserStatusPending

		if user, err = h.repo.Users().RegisterTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	h.recordRegistration(ctx, user)

	return user, nil
}

func (h *RegisterUserHandler) recordRegistration(ctx context.Context, user *User) {
	event := ActivityEvent{
		EventType: ActivityEventUserRegistered,
		Actor:     actorFromUser(user),
		UserID:    user.ID.String(),
		Metadata: map[string]any{
			"username": user.Username,
		},
		OccurredAt: h.now(),
	}

	if err := h.sink.Record(ctx, event); err != nil {
		h.loggr.Warn("activity sink rejected registration event: %v", err)
	}
}

func getUsername(username, email string) string {
	username = strings.TrimSpace(username)
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
