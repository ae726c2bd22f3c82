package testutil

import (
	"testing"

	"github.com/specialistvlad/querycore/internal/model"
	"github.com/stretchr/testify/require"
)

// BlogSchema builds the schema most tests run against:
//
//	User    { id (autoincrement), email (unique), name, posts[], profile? }
//	Post    { id (autoincrement), title, author_id -> User.id, author }
//	Profile { id (autoincrement), bio, user_id -> User.id (unique), user }
func BlogSchema(t *testing.T) *model.Schema {
	t.Helper()

	user := model.NewModel("User",
		model.Scalar("id", model.TypeInt, model.ID(), model.AutoGenerated()),
		model.Scalar("email", model.TypeString, model.Required(), model.Unique()),
		model.Scalar("name", model.TypeString),
		model.Relation("posts", "UserPosts", "Post", model.List()),
		model.Relation("profile", "UserProfile", "Profile"),
	)
	post := model.NewModel("Post",
		model.Scalar("id", model.TypeInt, model.ID(), model.AutoGenerated()),
		model.Scalar("title", model.TypeString, model.Required()),
		model.Scalar("author_id", model.TypeInt, model.Required()),
		model.Relation("author", "UserPosts", "User", model.Required(), model.Inline([]string{"author_id"})),
	)
	profile := model.NewModel("Profile",
		model.Scalar("id", model.TypeInt, model.ID(), model.AutoGenerated()),
		model.Scalar("bio", model.TypeString),
		model.Scalar("user_id", model.TypeInt, model.Unique()),
		model.Relation("user", "UserProfile", "User", model.Inline([]string{"user_id"})),
	)

	s, err := model.NewSchema(user, post, profile)
	require.NoError(t, err)
	return s
}

// Model fetches a model of s by name or fails the test.
func Model(t *testing.T, s *model.Schema, name string) *model.Model {
	t.Helper()
	m, err := s.Model(name)
	require.NoError(t, err)
	return m
}
