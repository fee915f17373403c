package casdoor

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"

	"github.com/SAP-F-2025/exam-attempt-service/internal/cache"
	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories"
)

// CasdoorConfig holds the configuration for Casdoor connection
type CasdoorConfig struct {
	Endpoint         string
	ClientID         string
	ClientSecret     string
	Certificate      string
	OrganizationName string
	ApplicationName  string
}

// userDirectory is the subset of the Casdoor client used here
type userDirectory interface {
	GetUserByUserId(userId string) (*casdoorsdk.User, error)
	GetUsers() ([]*casdoorsdk.User, error)
}

type UserCasdoor struct {
	client userDirectory
	cache  *cache.CacheHelper

	userTTL time.Duration
	roleTTL time.Duration
}

func NewUserCasdoor(config CasdoorConfig, userCache *cache.CacheHelper) repositories.UserRepository {
	client := casdoorsdk.NewClient(
		config.Endpoint,
		config.ClientID,
		config.ClientSecret,
		config.Certificate,
		config.OrganizationName,
		config.ApplicationName,
	)
	return newUserCasdoor(client, userCache)
}

func newUserCasdoor(client userDirectory, userCache *cache.CacheHelper) *UserCasdoor {
	if userCache == nil {
		userCache = cache.NewCacheHelper(nil, cache.UserCacheConfig.Prefix)
	}
	return &UserCasdoor{
		client:  client,
		cache:   userCache,
		userTTL: cache.UserCacheConfig.TTL,
		roleTTL: time.Minute,
	}
}

// ===== CONVERSION METHODS =====

// ConvertUser maps a Casdoor user onto the identity model. The university is
// read from the affiliation field.
func ConvertUser(casdoorUser *casdoorsdk.User) *models.User {
	if casdoorUser == nil {
		return nil
	}
	return &models.User{
		ID:          casdoorUser.Id,
		DisplayName: casdoorUser.DisplayName,
		Email:       casdoorUser.Email,
		Roles:       MapRoles(casdoorUser),
		University:  strings.TrimSpace(casdoorUser.Affiliation),
	}
}

// MapRoles collects the internal roles of a Casdoor user; users without a
// recognised role are students.
func MapRoles(casdoorUser *casdoorsdk.User) []models.UserRole {
	var roles []models.UserRole
	add := func(role models.UserRole, ok bool) {
		if ok && !slices.Contains(roles, role) {
			roles = append(roles, role)
		}
	}

	if casdoorUser.IsAdmin {
		add(models.RoleAdmin, true)
	}
	for _, r := range casdoorUser.Roles {
		if r != nil {
			add(MapRoleName(r.Name))
		}
	}
	add(MapRoleName(casdoorUser.Type))

	if len(roles) == 0 {
		roles = append(roles, models.RoleStudent)
	}
	return roles
}

// MapRoleName maps a Casdoor role or user type name to an internal role.
func MapRoleName(name string) (models.UserRole, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "admin", "administrator":
		return models.RoleAdmin, true
	case "educator", "teacher", "instructor":
		return models.RoleEducator, true
	case "student", "learner":
		return models.RoleStudent, true
	default:
		return "", false
	}
}

// ===== READ OPERATIONS =====

// GetByID retrieves a user by ID
func (u *UserCasdoor) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := u.cache.CacheOrExecute(ctx, "id:"+id, &user, u.userTTL, func() (interface{}, error) {
		casdoorUser, err := u.client.GetUserByUserId(id)
		if err != nil {
			return nil, fmt.Errorf("failed to get user from Casdoor: %w", err)
		}
		if casdoorUser == nil {
			return nil, fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
		}
		return ConvertUser(casdoorUser), nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByIDs retrieves the users that can be resolved; unknown ids are skipped.
func (u *UserCasdoor) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	users := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		user, err := u.GetByID(ctx, id)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				continue
			}
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// ListByRole lists every user of the organization holding role.
func (u *UserCasdoor) ListByRole(ctx context.Context, role models.UserRole) ([]*models.User, error) {
	var users []*models.User
	err := u.cache.CacheOrExecute(ctx, "role:"+string(role), &users, u.roleTTL, func() (interface{}, error) {
		casdoorUsers, err := u.client.GetUsers()
		if err != nil {
			return nil, fmt.Errorf("failed to list users from Casdoor: %w", err)
		}
		matched := make([]*models.User, 0)
		for _, cu := range casdoorUsers {
			if user := ConvertUser(cu); user != nil && user.HasRole(role) {
				matched = append(matched, user)
			}
		}
		return matched, nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}
