package authkit

import (
	"context"

	"github.com/goliatone/go-authkit/binding"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// CrudService is the generic entity service. Every operation delegates to
// the repository after validation.
type CrudService[T any, ID comparable] interface {
	Save(ctx context.Context, record T) (T, error)
	SaveAll(ctx context.Context, records []T) ([]T, error)
	Delete(ctx context.Context, id ID) error
	DeleteAll(ctx context.Context, ids []ID) error
	FindAll(ctx context.Context) ([]T, error)
	FindAllByID(ctx context.Context, ids []ID) ([]T, error)
	FindOne(ctx context.Context, id ID) (T, bool, error)
}

type crudService[T any, ID comparable] struct {
	repo     CrudRepository[T, ID]
	validate func(T) error
}

// NewCrudService wraps repo. validate may be nil.
func NewCrudService[T any, ID comparable](repo CrudRepository[T, ID], validate func(T) error) CrudService[T, ID] {
	if validate == nil {
		validate = func(T) error { return nil }
	}
	return &crudService[T, ID]{
		repo:     repo,
		validate: validate,
	}
}

func (s *crudService[T, ID]) Save(ctx context.Context, record T) (T, error) {
	if err := s.validate(record); err != nil {
		var zero T
		return zero, err
	}
	return s.repo.Save(ctx, record)
}

func (s *crudService[T, ID]) SaveAll(ctx context.Context, records []T) ([]T, error) {
	for _, record := range records {
		if err := s.validate(record); err != nil {
			return nil, err
		}
	}
	return s.repo.SaveAll(ctx, records)
}

func (s *crudService[T, ID]) Delete(ctx context.Context, id ID) error {
	return s.repo.Delete(ctx, id)
}

func (s *crudService[T, ID]) DeleteAll(ctx context.Context, ids []ID) error {
	return s.repo.DeleteAll(ctx, ids)
}

func (s *crudService[T, ID]) FindAll(ctx context.Context) ([]T, error) {
	return s.repo.FindAll(ctx)
}

func (s *crudService[T, ID]) FindAllByID(ctx context.Context, ids []ID) ([]T, error) {
	return s.repo.FindAllByID(ctx, ids)
}

func (s *crudService[T, ID]) FindOne(ctx context.Context, id ID) (T, bool, error) {
	return s.repo.FindOne(ctx, id)
}

// LoginRoleService manages login roles
type LoginRoleService interface {
	CrudService[*LoginRole, uuid.UUID]
	FindByName(ctx context.Context, name string) (*LoginRole, bool, error)
}

type loginRoleService struct {
	CrudService[*LoginRole, uuid.UUID]
	repo LoginRoles
}

func NewLoginRoleService(repo LoginRoles) LoginRoleService {
	return &loginRoleService{
		CrudService: NewCrudService(repo, validateLoginRole),
		repo:        repo,
	}
}

func validateLoginRole(r *LoginRole) error {
	if r == nil {
		return invalidRecord(goerrors.New("login role is required", goerrors.CategoryBadInput), "invalid login role")
	}
	return r.Validate()
}

func (s *loginRoleService) FindByName(ctx context.Context, name string) (*LoginRole, bool, error) {
	return s.repo.FindByName(ctx, name)
}

// UserLoginService manages user logins, their lock state and credentials
type UserLoginService interface {
	CrudService[*UserLogin, uuid.UUID]
	FindByUsername(ctx context.Context, username string) (*UserLogin, bool, error)
	FindByActiveUsername(ctx context.Context, username string) (*UserLogin, bool, error)
	FindDetailsByUsername(ctx context.Context, username string) (*UserLoginInfo, bool, error)
	CountByName(ctx context.Context, username string) (int, error)
	Lock(ctx context.Context, username string) (*UserLogin, error)
	Unlock(ctx context.Context, username string) (*UserLogin, error)
	SetPassword(ctx context.Context, username, password string) (*UserLogin, error)
	SetAvatar(ctx context.Context, id uuid.UUID, img *binding.EmbeddableImage) (*UserLogin, error)
	VerifyCredentials(ctx context.Context, username, password string) (*UserLogin, error)
}

type userLoginService struct {
	CrudService[*UserLogin, uuid.UUID]
	repo   UserLogins
	logger Logger
}

// UserLoginServiceOption configures the user login service
type UserLoginServiceOption func(*userLoginService)

// WithUserLoginLogger sets the service logger
func WithUserLoginLogger(logger Logger) UserLoginServiceOption {
	return func(s *userLoginService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewUserLoginService(repo UserLogins, opts ...UserLoginServiceOption) UserLoginService {
	s := &userLoginService{
		CrudService: NewCrudService(repo, validateUserLogin),
		repo:        repo,
		logger:      defLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func validateUserLogin(u *UserLogin) error {
	if u == nil {
		return invalidRecord(goerrors.New("user login is required", goerrors.CategoryBadInput), "invalid user login")
	}
	return u.Validate()
}

func (s *userLoginService) FindByUsername(ctx context.Context, username string) (*UserLogin, bool, error) {
	return s.repo.FindByUsername(ctx, username)
}

func (s *userLoginService) FindByActiveUsername(ctx context.Context, username string) (*UserLogin, bool, error) {
	return s.repo.FindByActiveUsername(ctx, username)
}

func (s *userLoginService) FindDetailsByUsername(ctx context.Context, username string) (*UserLoginInfo, bool, error) {
	return s.repo.FindDetailsByUsername(ctx, username)
}

func (s *userLoginService) CountByName(ctx context.Context, username string) (int, error) {
	return s.repo.CountByUsername(ctx, username)
}

func (s *userLoginService) Lock(ctx context.Context, username string) (*UserLogin, error) {
	user, err := s.repo.Lock(ctx, username)
	if err != nil {
		return nil, err
	}

	auditor, _ := CurrentAuditor(ctx)
	s.logger.Info("user login locked", "username", user.Username, "locked_by", auditor)

	return user, nil
}

func (s *userLoginService) Unlock(ctx context.Context, username string) (*UserLogin, error) {
	user, err := s.repo.Unlock(ctx, username)
	if err != nil {
		return nil, err
	}

	auditor, _ := CurrentAuditor(ctx)
	s.logger.Info("user login unlocked", "username", user.Username, "unlocked_by", auditor)

	return user, nil
}

func (s *userLoginService) SetPassword(ctx context.Context, username, password string) (*UserLogin, error) {
	user, found, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, NewNotFound("user login not found").
			WithMetadata(map[string]any{
				"username": username,
			})
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user.PasswordHash = hash
	return s.repo.Save(ctx, user)
}

func (s *userLoginService) SetAvatar(ctx context.Context, id uuid.UUID, img *binding.EmbeddableImage) (*UserLogin, error) {
	if img == nil {
		return s.repo.UpdateAvatar(ctx, id, nil, "")
	}

	// only sniffed image types are stored, the declared type is client input
	contentType := img.DetectedType
	if !binding.IsImageContentType(contentType) {
		contentType = "application/octet-stream"
	}

	return s.repo.UpdateAvatar(ctx, id, img.Data, contentType)
}

// VerifyCredentials checks a username and password pair. Unknown users and
// wrong passwords yield the same error.
func (s *userLoginService) VerifyCredentials(ctx context.Context, username, password string) (*UserLogin, error) {
	user, found, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if !found {
		compareDummyHash(password)
		s.logger.Debug("credentials rejected", "username", username, "reason", "unknown")
		return nil, ErrMismatchedHashAndPassword
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		s.logger.Debug("credentials rejected", "username", username, "reason", "password")
		return nil, ErrMismatchedHashAndPassword
	}

	if user.Locked {
		return nil, ErrUserLocked
	}

	if !user.Active {
		return nil, ErrUserInactive
	}

	if err := s.repo.TrackSuccessfulLogin(ctx, user); err != nil {
		s.logger.Warn("failed to track login", "username", username, "error", err)
	}

	return user, nil
}
