package record_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/querycore/internal/model"
	"github.com/specialistvlad/querycore/internal/record"
	"github.com/specialistvlad/querycore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestIdentifier_LengthMatchesColumns(t *testing.T) {
	s := testutil.BlogSchema(t)
	post := testutil.Model(t, s, "Post")

	title, _ := post.Field("title")
	author, _ := post.Field("author")
	id, _ := post.Field("id")

	testCases := []struct {
		name   string
		fields []model.Field
		want   int
	}{
		{name: "single scalar", fields: []model.Field{id}, want: 1},
		{name: "scalar and relation", fields: []model.Field{title, author}, want: 2},
		{name: "relation only", fields: []model.Field{author}, want: 1},
	}

	rec := record.NewRecord(cty.NumberIntVal(7), cty.StringVal("hello"), cty.NumberIntVal(3))
	names := post.ColumnNames()

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mid := model.NewModelIdentifier(tc.fields...)
			m := len(mid.DataSourceFields())
			require.Equal(t, tc.want, m)

			ri, err := rec.Identifier(names, mid)
			require.NoError(t, err)
			assert.Equal(t, m, ri.Len())
			assert.Equal(t, m, record.Placeholder(mid).Len())
		})
	}
}

func TestIdentifier_CompoundRelation(t *testing.T) {
	tenant := model.NewModel("Tenant",
		model.Scalar("region", model.TypeString, model.ID()),
		model.Scalar("slug", model.TypeString, model.ID()),
	)
	site := model.NewModel("Site",
		model.Scalar("id", model.TypeInt, model.ID()),
		model.Relation("tenant", "TenantSites", "Tenant", model.Inline([]string{"tenant_region", "tenant_slug"})),
	)
	_, err := model.NewSchema(tenant, site)
	require.NoError(t, err)

	tf, _ := site.Field("tenant")
	idf, _ := site.Field("id")
	mid := model.NewModelIdentifier(idf, tf)
	assert.Equal(t, 2, mid.Len())

	rec := record.NewRecord(cty.NumberIntVal(1), cty.StringVal("eu"), cty.StringVal("acme"))
	ri, err := rec.Identifier(site.ColumnNames(), mid)
	require.NoError(t, err)
	assert.Equal(t, 3, ri.Len())
	assert.Equal(t, "id=1,tenant_region=\"eu\",tenant_slug=\"acme\"", ri.Key())
}

func TestIdentifier_FieldNotFound(t *testing.T) {
	s := testutil.BlogSchema(t)
	user := testutil.Model(t, s, "User")

	rec := record.NewRecord(cty.StringVal("a@b.c"))
	_, err := rec.Identifier([]string{"email"}, user.PrimaryIdentifier())

	var notFound *model.FieldNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "id", notFound.Name)
}

func TestAddAutogenValue_FillsOnce(t *testing.T) {
	s := testutil.BlogSchema(t)
	user := testutil.Model(t, s, "User")

	ri := record.Placeholder(user.PrimaryIdentifier())
	require.True(t, ri.MissesAutogenValue())

	assert.True(t, ri.AddAutogenValue(cty.NumberIntVal(42)))
	assert.False(t, ri.MissesAutogenValue())
	assert.False(t, ri.AddAutogenValue(cty.NumberIntVal(43)), "second fill must report no missing slot")

	v, ok := ri.Get("id")
	require.True(t, ok)
	assert.True(t, v.RawEquals(cty.NumberIntVal(42)))
}

func TestAddAutogenValue_OnlyFirstSlot(t *testing.T) {
	a := &model.DataSourceField{Name: "a", Type: model.TypeInt}
	b := &model.DataSourceField{Name: "b", Type: model.TypeInt}
	ri := record.NewRecordIdentifier(
		record.Pair{Field: a, Value: cty.NullVal(cty.Number)},
		record.Pair{Field: b, Value: cty.NullVal(cty.Number)},
	)

	require.True(t, ri.AddAutogenValue(cty.NumberIntVal(1)))
	assert.True(t, ri.MissesAutogenValue())
	got, _ := ri.Get("b")
	assert.True(t, got.IsNull())
	assert.Equal(t, 2, ri.Len())
}

func TestIdentifier_RemapAndEqual(t *testing.T) {
	s := testutil.BlogSchema(t)
	user := testutil.Model(t, s, "User")
	post := testutil.Model(t, s, "Post")
	author, _ := post.RelationField("author")

	rec := record.NewRecord(cty.NumberIntVal(5), cty.StringVal("x@y.z"), cty.NullVal(cty.String))
	ri, err := rec.Identifier(user.ColumnNames(), user.PrimaryIdentifier())
	require.NoError(t, err)

	fk, err := ri.Remap(author.DataSourceFields())
	require.NoError(t, err)
	v, ok := fk.Get("author_id")
	require.True(t, ok)
	assert.True(t, v.RawEquals(cty.NumberIntVal(5)))
	assert.False(t, fk.Equal(ri))

	again, err := rec.Identifier(user.ColumnNames(), user.PrimaryIdentifier())
	require.NoError(t, err)
	assert.True(t, again.Equal(ri))
	assert.Equal(t, again.Key(), ri.Key())

	_, err = ri.Remap(nil)
	assert.Error(t, err)
}

func TestManyRecords(t *testing.T) {
	many := record.NewManyRecords([]string{"id", "title"})
	many.Push(record.NewRecord(cty.NumberIntVal(1), cty.StringVal("first")))
	many.Push(record.NewRecord(cty.NumberIntVal(2), cty.StringVal("second")))

	t.Run("single to many", func(t *testing.T) {
		single := record.SingleRecord{Record: many.Records[0], FieldNames: many.FieldNames}
		m := single.ToMany()
		assert.Equal(t, 1, m.Len())
		assert.Equal(t, many.FieldNames, m.FieldNames)
	})

	t.Run("project", func(t *testing.T) {
		p, err := many.Project([]string{"title"})
		require.NoError(t, err)
		want := record.ManyRecords{
			FieldNames: []string{"title"},
			Records: []record.Record{
				record.NewRecord(cty.StringVal("first")),
				record.NewRecord(cty.StringVal("second")),
			},
		}
		if diff := cmp.Diff(want, p, testutil.CtyComparer); diff != "" {
			t.Errorf("Project() mismatch (-want +got):\n%s", diff)
		}

		_, err = many.Project([]string{"body"})
		assert.Error(t, err)
	})
}
