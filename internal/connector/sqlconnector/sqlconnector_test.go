package sqlconnector_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/specialistvlad/querycore/internal/connector"
	"github.com/specialistvlad/querycore/internal/connector/sqlconnector"
	"github.com/specialistvlad/querycore/internal/executor"
	"github.com/specialistvlad/querycore/internal/record"
	"github.com/specialistvlad/querycore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
	sqlmock "gopkg.in/DATA-DOG/go-sqlmock.v1"
)

func newMock(t *testing.T) (*sqlconnector.Connector, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlconnector.New(db, sqlconnector.WithPoolSize(2)), mock
}

func TestCreateRecord_FillsGeneratedID(t *testing.T) {
	ctx, logs := testutil.NewContext(t)
	s := testutil.BlogSchema(t)
	user := testutil.Model(t, s, "User")

	c, mock := newMock(t)
	assert.Equal(t, "mysql", c.Name())

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `User` (`email`, `name`) VALUES (?, ?)")).
		WithArgs("a@example.com", "Ann").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`, `email`, `name` FROM `User` WHERE (`id` = ?)")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name"}).AddRow(int64(7), "a@example.com", "Ann"))

	conn, err := c.GetConnection(ctx)
	require.NoError(t, err)
	defer conn.Close()

	rec, err := conn.CreateRecord(ctx, user, connector.WriteArgs{
		"email": cty.StringVal("a@example.com"),
		"name":  cty.StringVal("Ann"),
	})
	require.NoError(t, err)

	id, err := rec.Identifier(user.PrimaryIdentifier())
	require.NoError(t, err)
	v, _ := id.Get("id")
	assert.True(t, v.RawEquals(cty.NumberIntVal(7)))
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Contains(t, logs.String(), "INSERT INTO")
}

func TestCreateRecord_UniqueViolation(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	s := testutil.BlogSchema(t)
	user := testutil.Model(t, s, "User")

	c, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `User` (`email`) VALUES (?)")).
		WithArgs("a@example.com").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@example.com'"})

	conn, err := c.GetConnection(ctx)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.CreateRecord(ctx, user, connector.WriteArgs{"email": cty.StringVal("a@example.com")})
	assert.ErrorIs(t, err, connector.ErrUniqueConstraint)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRecords_InTransaction(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	s := testutil.BlogSchema(t)
	post := testutil.Model(t, s, "Post")

	c, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`, `title`, `author_id` FROM `Post` WHERE (`author_id` = ?)")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "author_id"}).
			AddRow(int64(1), []byte("one"), int64(3)).
			AddRow(int64(2), []byte("two"), int64(3)))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `Post` WHERE (`author_id` = ?)")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	conn, err := c.GetConnection(ctx)
	require.NoError(t, err)
	defer conn.Close()

	tx, err := conn.StartTransaction(ctx)
	require.NoError(t, err)

	author, _ := post.RelationField("author")
	fk := record.NewRecordIdentifier(record.Pair{Field: author.DataSourceFields()[0], Value: cty.NumberIntVal(3)})
	deleted, err := tx.DeleteRecords(ctx, post, connector.ByIdentifiers(fk))
	require.NoError(t, err)
	require.Equal(t, 2, deleted.Len())
	assert.True(t, deleted.Records[1].Values[1].RawEquals(cty.StringVal("two")))

	require.NoError(t, tx.Commit(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetManyRecords_StaticallyEmptySkipsBackend(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	s := testutil.BlogSchema(t)
	user := testutil.Model(t, s, "User")

	c, mock := newMock(t)
	conn, err := c.GetConnection(ctx)
	require.NoError(t, err)
	defer conn.Close()

	rows, err := conn.GetManyRecords(ctx, user, connector.ByIdentifiers(), nil)
	require.NoError(t, err)
	assert.True(t, rows.IsEmpty())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRawPassthrough(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	c, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS n FROM Post WHERE author_id = ?")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(2)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE Post SET title = ?")).
		WithArgs("x").
		WillReturnResult(sqlmock.NewResult(0, 5))

	conn, err := c.GetConnection(ctx)
	require.NoError(t, err)
	defer conn.Close()

	rows, err := conn.QueryRaw(ctx, "SELECT COUNT(*) AS n FROM Post WHERE author_id = ?", []cty.Value{cty.NumberIntVal(3)})
	require.NoError(t, err)
	assert.Equal(t, []string{"n"}, rows.FieldNames)
	assert.True(t, rows.Records[0].Values[0].RawEquals(cty.NumberIntVal(2)))

	n, err := conn.ExecuteRaw(ctx, "UPDATE Post SET title = ?", []cty.Value{cty.StringVal("x")})
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen_InvalidDSN(t *testing.T) {
	_, err := sqlconnector.Open("not a dsn")
	assert.ErrorIs(t, err, connector.ErrConnectionFailure)
}

func TestGetConnection_ExpiredContextOnIdlePool(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	c, mock := newMock(t)

	expired, cancel := context.WithTimeout(ctx, 0)
	defer cancel()
	conn, err := c.GetConnection(expired)
	require.NoError(t, err, "a free slot is taken without waiting")

	mock.ExpectBegin()
	mock.ExpectRollback()
	txn, err := conn.StartTransaction(expired)
	require.NoError(t, err)
	require.NoError(t, txn.Rollback(ctx))
	require.NoError(t, conn.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStartTx_ZeroAcquisition(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	c, mock := newMock(t)
	exec := executor.New(ctx, c)
	t.Cleanup(func() { _ = exec.Close(ctx) })

	mock.ExpectBegin()
	mock.ExpectCommit()
	id, err := exec.StartTx(ctx, 0, 30*time.Second)
	require.NoError(t, err)
	require.NoError(t, exec.CommitTx(ctx, id))
	assert.NoError(t, mock.ExpectationsWereMet())

	t.Run("saturated pool", func(t *testing.T) {
		held := make([]connector.Connection, 0, 2)
		for i := 0; i < 2; i++ {
			conn, err := c.GetConnection(ctx)
			require.NoError(t, err)
			held = append(held, conn)
		}
		defer func() {
			for _, conn := range held {
				_ = conn.Close()
			}
		}()

		_, err := exec.StartTx(ctx, 0, 30*time.Second)
		assert.ErrorIs(t, err, connector.ErrAcquisitionTimeout)
	})
}
