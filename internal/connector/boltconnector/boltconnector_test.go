package boltconnector_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/querycore/internal/connector"
	"github.com/specialistvlad/querycore/internal/connector/boltconnector"
	"github.com/specialistvlad/querycore/internal/record"
	"github.com/specialistvlad/querycore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func openTemp(t *testing.T) *boltconnector.Connector {
	t.Helper()
	c, err := boltconnector.Open(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestBolt_CreateAndFind(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	s := testutil.BlogSchema(t)
	user := testutil.Model(t, s, "User")
	post := testutil.Model(t, s, "Post")

	c := openTemp(t)
	assert.Equal(t, "bolt", c.Name())

	conn, err := c.GetConnection(ctx)
	require.NoError(t, err)
	defer conn.Close()

	u, err := conn.CreateRecord(ctx, user, connector.WriteArgs{"email": cty.StringVal("a@example.com"), "name": cty.StringVal("Ann")})
	require.NoError(t, err)
	uid, err := u.FieldValue("id")
	require.NoError(t, err)
	assert.True(t, uid.RawEquals(cty.NumberIntVal(1)))

	_, err = conn.CreateRecord(ctx, post, connector.WriteArgs{"title": cty.StringVal("Hi"), "author_id": uid})
	require.NoError(t, err)

	_, err = conn.CreateRecord(ctx, user, connector.WriteArgs{"email": cty.StringVal("a@example.com")})
	assert.ErrorIs(t, err, connector.ErrUniqueConstraint)

	ri := record.Placeholder(user.PrimaryIdentifier())
	ri.AddAutogenValue(uid)
	got, err := conn.GetManyRecords(ctx, user, connector.ByIdentifiers(ri), []string{"name"})
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	assert.True(t, got.Records[0].Values[0].RawEquals(cty.StringVal("Ann")))

	posts, err := conn.GetManyRecords(ctx, post, connector.MatchAll(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "title", "author_id"}, posts.FieldNames)
	assert.Equal(t, 1, posts.Len())
}

func TestBolt_UpdateDelete(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	s := testutil.BlogSchema(t)
	user := testutil.Model(t, s, "User")

	c := openTemp(t)
	conn, err := c.GetConnection(ctx)
	require.NoError(t, err)
	defer conn.Close()

	for _, email := range []string{"a@example.com", "b@example.com"} {
		_, err := conn.CreateRecord(ctx, user, connector.WriteArgs{"email": cty.StringVal(email)})
		require.NoError(t, err)
	}

	updated, err := conn.UpdateRecords(ctx, user, connector.MatchAll(), connector.WriteArgs{"name": cty.StringVal("same")})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Len())

	deleted, err := conn.DeleteRecords(ctx, user, connector.MatchAll())
	require.NoError(t, err)
	assert.Equal(t, 2, deleted.Len())

	rest, err := conn.GetManyRecords(ctx, user, connector.MatchAll(), nil)
	require.NoError(t, err)
	assert.True(t, rest.IsEmpty())
}

func TestBolt_TransactionHoldsWriterSlot(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	s := testutil.BlogSchema(t)
	user := testutil.Model(t, s, "User")

	c := openTemp(t)
	conn, err := c.GetConnection(ctx)
	require.NoError(t, err)
	defer conn.Close()

	tx, err := conn.StartTransaction(ctx)
	require.NoError(t, err)
	_, err = tx.CreateRecord(ctx, user, connector.WriteArgs{"email": cty.StringVal("tx@example.com")})
	require.NoError(t, err)

	other, err := c.GetConnection(ctx)
	require.NoError(t, err)
	defer other.Close()

	expired, cancel := context.WithTimeout(ctx, 0)
	defer cancel()
	_, err = other.StartTransaction(expired)
	assert.ErrorIs(t, err, connector.ErrAcquisitionTimeout)

	require.NoError(t, tx.Rollback(ctx))
	assert.ErrorIs(t, tx.Commit(ctx), connector.ErrTransactionClosed)

	rows, err := other.GetManyRecords(ctx, user, connector.MatchAll(), nil)
	require.NoError(t, err)
	assert.True(t, rows.IsEmpty())

	tx2, err := other.StartTransaction(ctx)
	require.NoError(t, err)
	_, err = tx2.CreateRecord(ctx, user, connector.WriteArgs{"email": cty.StringVal("kept@example.com")})
	require.NoError(t, err)
	require.NoError(t, tx2.Commit(ctx))

	rows, err = conn.GetManyRecords(ctx, user, connector.MatchAll(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, rows.Len())
}

func TestBolt_RawUnsupported(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	c := openTemp(t)
	conn, err := c.GetConnection(ctx)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.QueryRaw(ctx, "anything", nil)
	assert.ErrorIs(t, err, connector.ErrUnsupported)
	assert.False(t, c.Capabilities().RawQueries)
}
