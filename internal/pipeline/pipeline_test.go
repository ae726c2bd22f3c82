package pipeline_test

import (
	"context"
	"testing"

	"github.com/specialistvlad/querycore/internal/builder"
	"github.com/specialistvlad/querycore/internal/connector"
	"github.com/specialistvlad/querycore/internal/connector/memconnector"
	"github.com/specialistvlad/querycore/internal/model"
	"github.com/specialistvlad/querycore/internal/operation"
	"github.com/specialistvlad/querycore/internal/pipeline"
	"github.com/specialistvlad/querycore/internal/query"
	"github.com/specialistvlad/querycore/internal/record"
	"github.com/specialistvlad/querycore/internal/response"
	"github.com/specialistvlad/querycore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

type fixture struct {
	ctx    context.Context
	logs   *testutil.SafeBuffer
	schema *model.Schema
	conn   connector.Connection
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx, logs := testutil.NewContext(t)
	raw := func(_ context.Context, q string, params []cty.Value) (record.ManyRecords, error) {
		out := record.NewManyRecords([]string{"query", "n"})
		out.Push(record.NewRecord(cty.StringVal(q), cty.NumberIntVal(int64(len(params)))))
		return out, nil
	}
	conn, err := memconnector.New(memconnector.WithRawHandler(raw)).GetConnection(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &fixture{ctx: ctx, logs: logs, schema: testutil.BlogSchema(t), conn: conn}
}

func (f *fixture) run(t *testing.T, op operation.Operation) (*response.ResponseData, error) {
	t.Helper()
	qt, err := builder.Build(f.ctx, op, f.schema)
	require.NoError(t, err)
	return pipeline.New(f.conn, qt).Execute(f.ctx)
}

func (f *fixture) mustRun(t *testing.T, op operation.Operation) *response.ResponseData {
	t.Helper()
	out, err := f.run(t, op)
	require.NoError(t, err)
	return out
}

func str(s string) cty.Value { return cty.StringVal(s) }

func createUserWithPosts(t *testing.T, f *fixture, email string, titles ...string) *response.ResponseData {
	t.Helper()
	op := operation.Operation{
		Action: operation.CreateOne,
		Model:  "User",
		Data:   map[string]cty.Value{"email": str(email)},
	}
	for _, title := range titles {
		op.Nested = append(op.Nested, operation.Nested{
			Field: "posts",
			Op:    operation.Operation{Action: operation.CreateOne, Data: map[string]cty.Value{"title": str(title)}},
		})
	}
	return f.mustRun(t, op)
}

func TestExecute_CreateUserWithPost(t *testing.T) {
	f := newFixture(t)
	out := createUserWithPosts(t, f, "a@example.com", "Hello")

	require.True(t, out.Single)
	require.Len(t, out.Items, 1)
	userID, ok := out.Value(0, "id")
	require.True(t, ok)
	assert.True(t, userID.RawEquals(cty.NumberIntVal(1)))

	posts := out.Items[0].Nested["posts"]
	require.NotNil(t, posts)
	require.Len(t, posts.Items, 1)
	authorID, _ := posts.Value(0, "author_id")
	assert.True(t, authorID.RawEquals(userID))

	parent := posts.Items[0].ParentID
	require.NotNil(t, parent)
	v, ok := parent.Get("id")
	require.True(t, ok)
	assert.True(t, v.RawEquals(userID), "the post carries its author's identifier")

	val := out.ToCty()
	assert.True(t, val.GetAttr("email").RawEquals(str("a@example.com")))
	assert.Equal(t, 1, val.GetAttr("posts").LengthInt())
	assert.True(t, val.GetAttr("posts").Index(cty.NumberIntVal(0)).GetAttr("title").RawEquals(str("Hello")))

	assert.Contains(t, f.logs.String(), "Query graph finalized.")
}

func TestExecute_NestedReads(t *testing.T) {
	f := newFixture(t)
	createUserWithPosts(t, f, "a@example.com", "one", "two")
	createUserWithPosts(t, f, "b@example.com", "three")

	t.Run("children by parent identifier", func(t *testing.T) {
		out := f.mustRun(t, operation.Operation{
			Action: operation.FindUnique,
			Model:  "User",
			Where:  map[string]cty.Value{"email": str("a@example.com")},
			Select: []string{"email"},
			Nested: []operation.Nested{
				{Field: "posts", Op: operation.Operation{Action: operation.FindMany, Select: []string{"title"}}},
			},
		})
		require.Len(t, out.Items, 1)
		assert.Equal(t, []string{"email"}, out.FieldNames)

		posts := out.Items[0].Nested["posts"]
		assert.Equal(t, []string{"title"}, posts.FieldNames)
		require.Len(t, posts.Items, 2)
		first, _ := posts.Value(0, "title")
		second, _ := posts.Value(1, "title")
		assert.Equal(t, "one", first.AsString())
		assert.Equal(t, "two", second.AsString())
	})

	t.Run("parent by foreign key", func(t *testing.T) {
		out := f.mustRun(t, operation.Operation{
			Action: operation.FindMany,
			Model:  "Post",
			Nested: []operation.Nested{
				{Field: "author", Op: operation.Operation{Action: operation.FindUnique, Select: []string{"email"}}},
			},
		})
		require.Len(t, out.Items, 3)
		want := []string{"a@example.com", "a@example.com", "b@example.com"}
		for i, item := range out.Items {
			author := item.Nested["author"]
			require.True(t, author.Single)
			require.Len(t, author.Items, 1)
			email, _ := author.Value(0, "email")
			assert.Equal(t, want[i], email.AsString())
		}
	})

	t.Run("unique miss is empty", func(t *testing.T) {
		out := f.mustRun(t, operation.Operation{
			Action: operation.FindUnique,
			Model:  "User",
			Where:  map[string]cty.Value{"id": cty.NumberIntVal(99)},
			Nested: []operation.Nested{{Field: "posts", Op: operation.Operation{Action: operation.FindMany}}},
		})
		assert.Empty(t, out.Items)
		assert.True(t, out.ToCty().IsNull())
	})
}

func TestExecute_Writes(t *testing.T) {
	f := newFixture(t)
	createUserWithPosts(t, f, "a@example.com", "one", "two")
	createUserWithPosts(t, f, "b@example.com", "three")

	t.Run("update many reports a count", func(t *testing.T) {
		out := f.mustRun(t, operation.Operation{
			Action: operation.UpdateMany,
			Model:  "Post",
			Where:  map[string]cty.Value{"author_id": cty.NumberIntVal(1)},
			Data:   map[string]cty.Value{"title": str("edited")},
		})
		assert.True(t, out.CountOnly)
		assert.Equal(t, 2, out.Count)
		assert.True(t, out.ToCty().GetAttr("count").RawEquals(cty.NumberIntVal(2)))
	})

	t.Run("delete one with nested delete", func(t *testing.T) {
		out := f.mustRun(t, operation.Operation{
			Action: operation.DeleteOne,
			Model:  "User",
			Where:  map[string]cty.Value{"email": str("a@example.com")},
			Nested: []operation.Nested{{Field: "posts", Op: operation.Operation{Action: operation.DeleteMany}}},
		})
		require.Len(t, out.Items, 1)

		left := f.mustRun(t, operation.Operation{Action: operation.FindMany, Model: "Post"})
		require.Len(t, left.Items, 1)
		title, _ := left.Value(0, "title")
		assert.Equal(t, "three", title.AsString())
	})

	t.Run("delete one of nothing fails", func(t *testing.T) {
		_, err := f.run(t, operation.Operation{
			Action: operation.DeleteOne,
			Model:  "User",
			Where:  map[string]cty.Value{"id": cty.NumberIntVal(42)},
		})
		var notFound *query.RecordNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "User", notFound.Model)
	})

	t.Run("statically empty single write fails before running", func(t *testing.T) {
		_, err := f.run(t, operation.Operation{
			Action: operation.UpdateOne,
			Model:  "User",
			Where:  map[string]cty.Value{"id": cty.ListValEmpty(cty.Number)},
			Data:   map[string]cty.Value{"name": str("x")},
		})
		var notFound *query.RecordNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "n0", notFound.Node)
	})

	t.Run("constraint violation surfaces", func(t *testing.T) {
		_, err := f.run(t, operation.Operation{
			Action: operation.CreateOne,
			Model:  "User",
			Data:   map[string]cty.Value{"email": str("b@example.com")},
		})
		assert.ErrorIs(t, err, connector.ErrUniqueConstraint)
	})
}

func TestExecute_Raw(t *testing.T) {
	f := newFixture(t)

	out := f.mustRun(t, operation.Operation{
		Action: operation.QueryRaw,
		Query:  "SELECT 1",
		Params: []cty.Value{cty.True, cty.False},
	})
	require.Len(t, out.Items, 1)
	n, _ := out.Value(0, "n")
	assert.True(t, n.RawEquals(cty.NumberIntVal(2)))

	out = f.mustRun(t, operation.Operation{Action: operation.ExecuteRaw, Query: "TOUCH"})
	assert.True(t, out.CountOnly)
	assert.Equal(t, 1, out.Count)
}
