package query

import (
	"context"

	"github.com/specialistvlad/querycore/internal/connector"
	"github.com/specialistvlad/querycore/internal/record"
)

// Execute runs q against a connection or transaction. Writes with
// ExpectOne that affect nothing fail with a RecordNotFoundError.
func Execute(ctx context.Context, db connector.Queryable, q Query) (Result, error) {
	var (
		rows record.ManyRecords
		err  error
	)
	switch q := q.(type) {
	case *FindRecords:
		rows, err = db.GetManyRecords(ctx, q.M, q.Filter, q.Columns)
	case *CreateRecord:
		var single record.SingleRecord
		single, err = db.CreateRecord(ctx, q.M, q.Args)
		rows = single.ToMany()
	case *UpdateRecords:
		rows, err = db.UpdateRecords(ctx, q.M, q.Filter, q.Args)
	case *DeleteRecords:
		rows, err = db.DeleteRecords(ctx, q.M, q.Filter)
	}
	if err != nil {
		return Result{}, err
	}

	if rows.IsEmpty() && ExpectationOf(q) == ExpectOne {
		return Result{}, &RecordNotFoundError{Model: q.Model().Name, Reason: q.String()}
	}
	return Result{Model: q.Model(), Records: rows, Count: rows.Len()}, nil
}
