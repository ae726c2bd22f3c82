package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteFiles writes the given files, keyed by relative path, into a fresh
// temporary directory and returns the directory.
func WriteFiles(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for name, content := range files {
		filePath := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))
	}
	return root
}

// BlogHCL declares the same data model as BlogSchema.
const BlogHCL = `
model "User" {
  field "id" {
    type    = Int
    id      = true
    default = autoincrement()
  }
  field "email" {
    type   = String
    unique = true
  }
  field "name" {
    type = optional(String)
  }
  field "posts" {
    type     = list(Post)
    relation = "UserPosts"
  }
  field "profile" {
    type     = optional(Profile)
    relation = "UserProfile"
  }
}

model "Post" {
  field "id" {
    type    = Int
    id      = true
    default = autoincrement()
  }
  field "title" {
    type = String
  }
  field "author_id" {
    type = Int
  }
  field "author" {
    type       = User
    relation   = "UserPosts"
    fields     = ["author_id"]
    references = ["id"]
  }
}

model "Profile" {
  field "id" {
    type    = Int
    id      = true
    default = autoincrement()
  }
  field "bio" {
    type = optional(String)
  }
  field "user_id" {
    type   = optional(Int)
    unique = true
  }
  field "user" {
    type     = optional(User)
    relation = "UserProfile"
    fields   = ["user_id"]
  }
}
`
