package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_AppendAddsUnknownColumns(t *testing.T) {
	tbl := NewTable("reg_no")
	tbl.Append(map[string]string{"reg_no": "R1"})
	tbl.Append(map[string]string{"reg_no": "R2", "status": "Approved"})

	assert.Equal(t, []string{"reg_no", "status"}, tbl.Columns)
	assert.Equal(t, "", tbl.Value(0, "status"))
	assert.Equal(t, "Approved", tbl.Value(1, "status"))
}

func TestTable_EnsureColumnsKeepsOrder(t *testing.T) {
	tbl := &Table{}
	tbl.EnsureColumns("name", "college", "reg_no")
	tbl.EnsureColumns("reg_no", "event")
	assert.Equal(t, []string{"name", "college", "reg_no", "event"}, tbl.Columns)
}

func TestTable_FindAndSet(t *testing.T) {
	tbl := NewTable("reg_no", "status")
	tbl.Append(map[string]string{"reg_no": "R1", "status": "Needs Review"})
	tbl.Append(map[string]string{"reg_no": "R2", "status": "Approved"})
	tbl.Append(map[string]string{"reg_no": "R1", "status": "Needs Review"})

	rows := tbl.Find("reg_no", "R1")
	require.Equal(t, []int{0, 2}, rows)
	for _, r := range rows {
		tbl.Set(r, "status", "Rejected")
	}
	assert.Equal(t, "Rejected", tbl.Value(2, "status"))
	assert.Equal(t, "Approved", tbl.Value(1, "status"))
	assert.Nil(t, tbl.Find("missing", "R1"))
}

func TestTable_Records(t *testing.T) {
	tbl := NewTable("reg_no", "status")
	tbl.Append(map[string]string{"reg_no": "R1", "status": "Approved"})

	recs := tbl.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, map[string]string{"reg_no": "R1", "status": "Approved"}, recs[0])
	assert.Equal(t, "", tbl.Value(5, "status"))
}
