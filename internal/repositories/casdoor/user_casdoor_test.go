package casdoor

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/exam-attempt-service/internal/cache"
	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories"
)

type fakeDirectory struct {
	users     map[string]*casdoorsdk.User
	byIDCalls int
	listCalls int
}

func (f *fakeDirectory) GetUserByUserId(id string) (*casdoorsdk.User, error) {
	f.byIDCalls++
	return f.users[id], nil
}

func (f *fakeDirectory) GetUsers() ([]*casdoorsdk.User, error) {
	f.listCalls++
	out := make([]*casdoorsdk.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{users: map[string]*casdoorsdk.User{
		"s1": {Id: "s1", DisplayName: "Sara", Affiliation: "Cairo University", Type: "normal-user",
			Roles: []*casdoorsdk.Role{{Name: "Student"}}},
		"e1": {Id: "e1", DisplayName: "Dr. Omar", Affiliation: " Ain Shams ",
			Roles: []*casdoorsdk.Role{{Name: "Educator"}}},
		"a1": {Id: "a1", DisplayName: "Root", IsAdmin: true},
	}}
}

func TestMapRoles(t *testing.T) {
	tests := []struct {
		name string
		user *casdoorsdk.User
		want []models.UserRole
	}{
		{name: "default student", user: &casdoorsdk.User{Type: "normal-user"}, want: []models.UserRole{models.RoleStudent}},
		{name: "admin flag", user: &casdoorsdk.User{IsAdmin: true}, want: []models.UserRole{models.RoleAdmin}},
		{
			name: "roles and type deduplicated",
			user: &casdoorsdk.User{Type: "teacher", Roles: []*casdoorsdk.Role{{Name: "Educator"}, {Name: "student"}}},
			want: []models.UserRole{models.RoleEducator, models.RoleStudent},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapRoles(tt.user)
			if len(got) != len(tt.want) {
				t.Fatalf("MapRoles() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("MapRoles()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestGetByIDUsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	dir := newFakeDirectory()
	repo := newUserCasdoor(dir, cache.NewCacheManager(client).User)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		user, err := repo.GetByID(ctx, "e1")
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if user.University != "Ain Shams" {
			t.Errorf("University = %q, want trimmed affiliation", user.University)
		}
		if !user.HasRole(models.RoleEducator) {
			t.Errorf("Roles = %v, want educator", user.Roles)
		}
	}
	if dir.byIDCalls != 1 {
		t.Errorf("Casdoor called %d times, want 1", dir.byIDCalls)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	repo := newUserCasdoor(newFakeDirectory(), nil)

	_, err := repo.GetByID(context.Background(), "ghost")
	if !repositories.IsNotFoundError(err) {
		t.Fatalf("error = %v, want not found", err)
	}

	users, err := repo.GetByIDs(context.Background(), []string{"ghost", "s1"})
	if err != nil {
		t.Fatalf("GetByIDs() error = %v", err)
	}
	if len(users) != 1 || users[0].ID != "s1" {
		t.Errorf("GetByIDs() = %v, want only s1", users)
	}
}

func TestListByRole(t *testing.T) {
	repo := newUserCasdoor(newFakeDirectory(), nil)

	educators, err := repo.ListByRole(context.Background(), models.RoleEducator)
	if err != nil {
		t.Fatalf("ListByRole() error = %v", err)
	}
	if len(educators) != 1 || educators[0].ID != "e1" {
		t.Errorf("ListByRole(educator) = %v", educators)
	}
}

type failingDirectory struct{ fakeDirectory }

func (f *failingDirectory) GetUserByUserId(string) (*casdoorsdk.User, error) {
	return nil, errors.New("casdoor down")
}

func TestGetByIDsPropagatesOutage(t *testing.T) {
	repo := newUserCasdoor(&failingDirectory{}, nil)
	if _, err := repo.GetByIDs(context.Background(), []string{"s1"}); err == nil {
		t.Fatalf("GetByIDs() should surface provider errors")
	}
}
