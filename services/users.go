package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kendall-kelly/home-services-api/apperrors"
	"github.com/kendall-kelly/home-services-api/models"
	"github.com/kendall-kelly/home-services-api/repository"
	"github.com/kendall-kelly/home-services-api/utils"
)

// UpsertUserInput is the profile sent on sign-in. Role is honoured on first
// creation and for the customer to provider step only.
type UpsertUserInput struct {
	Email         *string         `json:"email" validate:"omitempty,email"`
	Name          *string         `json:"name"`
	DisplayName   *string         `json:"displayName"`
	Phone         *string         `json:"phone"`
	PhoneVerified *bool           `json:"phoneVerified"`
	FCMToken      *string         `json:"fcmToken"`
	Location      *models.Address `json:"location"`
	PhotoURL      *string         `json:"photoURL"`
	Role          string          `json:"role" validate:"omitempty,role"`
}

// UserListInput filters the admin user list.
type UserListInput struct {
	Role string
	Page repository.Page
}

// UserService manages accounts and roles.
type UserService struct {
	users     *repository.UserRepository
	userInfo  UserInfoFetcher
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewUserService returns a user service. userInfo may be nil.
func NewUserService(users *repository.UserRepository, userInfo UserInfoFetcher, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, userInfo: userInfo, validator: validate, logger: logger, now: time.Now}
}

// Upsert creates the caller's record on first contact or updates it. The
// boolean reports whether a record was created.
func (s *UserService) Upsert(ctx context.Context, actor Identity, accessToken string, in UpsertUserInput) (*models.User, bool, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, false, validationError(err)
	}

	existing, err := s.users.FindByID(ctx, actor.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, apperrors.FromError(err)
	}

	if existing == nil {
		user, err := s.create(ctx, actor, accessToken, in)
		if err == nil {
			return sanitizeUser(user, actor), true, nil
		}
		if !apperrors.IsDuplicateKey(err) {
			return nil, false, apperrors.FromError(err)
		}
		// A concurrent sign-in created the record first.
		if existing, err = s.users.FindByID(ctx, actor.ID); err != nil {
			return nil, false, apperrors.FromError(err)
		}
	}

	if in.Role == models.RoleProvider && existing.Role == models.RoleCustomer {
		if _, err := s.users.EscalateToProvider(ctx, existing.ID); err != nil {
			return nil, false, apperrors.FromError(err)
		}
		s.logger.Info("user escalated to provider", zap.String("user_id", existing.ID))
	}

	user, err := s.applyProfile(ctx, existing.ID, in)
	if err != nil {
		return nil, false, err
	}
	return sanitizeUser(user, actor), false, nil
}

func (s *UserService) create(ctx context.Context, actor Identity, accessToken string, in UpsertUserInput) (*models.User, error) {
	user := &models.User{
		ID:          actor.ID,
		Email:       firstNonEmpty(deref(in.Email), actor.Email),
		Name:        firstNonEmpty(deref(in.Name), actor.Name),
		DisplayName: deref(in.DisplayName),
		Phone:       firstNonEmpty(deref(in.Phone), actor.Phone),
		PhoneNumber: firstNonEmpty(deref(in.Phone), actor.Phone),
		FCMToken:    in.FCMToken,
		Location:    in.Location,
		PhotoURL:    deref(in.PhotoURL),
		Role:        models.RoleCustomer,
	}
	if in.PhoneVerified != nil {
		user.PhoneVerified = *in.PhoneVerified
	}
	// Admin is only ever granted by another admin.
	if in.Role == models.RoleProvider {
		user.Role = models.RoleProvider
	}

	if (user.Email == "" || user.Name == "") && s.userInfo != nil && accessToken != "" {
		info, err := s.userInfo.GetUserInfo(ctx, accessToken)
		if err != nil {
			s.logger.Warn("failed to fetch user profile from identity provider",
				zap.String("user_id", actor.ID),
				zap.Error(err),
			)
		} else {
			user.Email = firstNonEmpty(user.Email, info.Email)
			user.Name = firstNonEmpty(user.Name, info.Name)
			user.PhotoURL = firstNonEmpty(user.PhotoURL, info.Picture)
			if user.PhoneNumber == "" {
				user.Phone, user.PhoneNumber = info.PhoneNumber, info.PhoneNumber
			}
		}
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", user.Role))
	return user, nil
}

// applyProfile writes the profile fields present in in. Role is never touched.
func (s *UserService) applyProfile(ctx context.Context, id string, in UpsertUserInput) (*models.User, error) {
	var patch models.User
	var columns []string
	if in.Email != nil {
		patch.Email = *in.Email
		columns = append(columns, "email")
	}
	if in.Name != nil {
		patch.Name = *in.Name
		columns = append(columns, "name")
	}
	if in.DisplayName != nil {
		patch.DisplayName = *in.DisplayName
		columns = append(columns, "display_name")
	}
	if in.Phone != nil {
		patch.Phone, patch.PhoneNumber = *in.Phone, *in.Phone
		columns = append(columns, "phone", "phone_number")
	}
	if in.PhoneVerified != nil {
		patch.PhoneVerified = *in.PhoneVerified
		columns = append(columns, "phone_verified")
	}
	if in.FCMToken != nil {
		patch.FCMToken = in.FCMToken
		columns = append(columns, "fcm_token")
	}
	if in.Location != nil {
		patch.Location = in.Location
		columns = append(columns, "location")
	}
	if in.PhotoURL != nil {
		patch.PhotoURL = *in.PhotoURL
		columns = append(columns, "photo_url")
	}

	if err := s.users.Update(ctx, id, patch, columns...); err != nil {
		return nil, apperrors.FromError(err)
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	return user, nil
}

// Me returns the caller's own record.
func (s *UserService) Me(ctx context.Context, actor Identity) (*models.User, error) {
	user, err := s.find(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user, actor), nil
}

// UpdateMe patches the caller's profile. Any role in the payload is ignored.
func (s *UserService) UpdateMe(ctx context.Context, actor Identity, in UpsertUserInput) (*models.User, error) {
	in.Role = ""
	if err := s.validator.Struct(in); err != nil {
		return nil, validationError(err)
	}
	if _, err := s.find(ctx, actor.ID); err != nil {
		return nil, err
	}
	user, err := s.applyProfile(ctx, actor.ID, in)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user, actor), nil
}

// Get returns a user with contact fields hidden from anyone but the user and admins.
func (s *UserService) Get(ctx context.Context, actor Identity, id string) (*models.User, error) {
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user, actor), nil
}

// UpdateFCMToken stores the caller's push token.
func (s *UserService) UpdateFCMToken(ctx context.Context, actor Identity, userID, token string) error {
	if userID != actor.ID {
		return apperrors.Forbidden("You can only update your own FCM token")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return apperrors.Validation("FCM token is required")
	}
	if _, err := s.find(ctx, userID); err != nil {
		return err
	}
	if err := s.users.Update(ctx, userID, models.User{FCMToken: &token}, "fcm_token"); err != nil {
		return apperrors.FromError(err)
	}
	return nil
}

// List returns users for admins, optionally filtered by role.
func (s *UserService) List(ctx context.Context, actor Identity, in UserListInput) ([]models.User, int64, error) {
	if in.Role != "" && !models.IsValidRole(in.Role) {
		return nil, 0, apperrors.Validation("Invalid role filter")
	}
	users, total, err := s.users.List(ctx, in.Role, in.Page)
	if err != nil {
		return nil, 0, apperrors.FromError(err)
	}
	for i := range users {
		users[i].FCMToken = nil
	}
	return users, total, nil
}

// ChangeRole is the admin override of a user's role. Every change is logged.
func (s *UserService) ChangeRole(ctx context.Context, actor Identity, userID, role string) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Admin access required").WithKey("common.forbidden")
	}
	if !models.IsValidRole(role) {
		return nil, apperrors.Validation("Invalid role. Must be one of: customer, provider, admin")
	}
	if userID == actor.ID {
		return nil, apperrors.Validation("Admins cannot change their own role")
	}

	user, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		return user, nil
	}

	entry := &models.RoleChangeLog{
		ID:            utils.NewObjectID(),
		UserID:        user.ID,
		OldRole:       user.Role,
		NewRole:       role,
		ChangedBy:     actor.ID,
		ChangedByName: actor.Name,
		ChangedAt:     s.now(),
	}
	if err := s.users.ChangeRole(ctx, user.ID, role, entry); err != nil {
		return nil, apperrors.FromError(err)
	}

	s.logger.Info("user role changed",
		zap.String("user_id", user.ID),
		zap.String("old_role", entry.OldRole),
		zap.String("new_role", role),
		zap.String("changed_by", actor.ID),
	)
	return s.find(ctx, user.ID)
}

// RoleChanges returns the role audit trail for a user.
func (s *UserService) RoleChanges(ctx context.Context, userID string) ([]models.RoleChangeLog, error) {
	out, err := s.users.RoleChanges(ctx, userID)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	return out, nil
}

func (s *UserService) find(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("User not found")
	}
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	return user, nil
}

// sanitizeUser hides the push token from everyone but admins, and contact
// fields from anyone who is neither the user nor an admin.
func sanitizeUser(u *models.User, viewer Identity) *models.User {
	out := *u
	if viewer.IsAdmin() {
		return &out
	}
	out.FCMToken = nil
	if viewer.ID != u.ID {
		out.Email = ""
		out.Phone = ""
		out.PhoneNumber = ""
	}
	return &out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
