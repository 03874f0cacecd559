package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLCommand_Text(t *testing.T) {
	out, _, err := execute(t, NewSQLCommand(&RootOptions{Format: "text"}), "testdata/adults.yaml")
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT "s"."Name" AS "value" FROM "Students" AS "s" WHERE ("s"."Age" > ?) ORDER BY "s".rowid ASC`+"\n"+
			"-- args: [18]\n",
		out)
}

func TestSQLCommand_NoStableOrder(t *testing.T) {
	out, _, err := execute(t, NewSQLCommand(&RootOptions{Format: "text"}), "testdata/adults.yaml", "--no-stable-order")
	require.NoError(t, err)
	assert.NotContains(t, out, "rowid")
}

func TestSQLCommand_JSON(t *testing.T) {
	out, _, err := execute(t, NewSQLCommand(&RootOptions{Format: "json"}), "testdata/top_two.cue")
	require.NoError(t, err)
	assert.Contains(t, out, `"sql": "SELECT \"s\".* FROM`, "SQL must not be HTML-escaped")

	var resp struct {
		Status string    `json:"status"`
		Data   SQLResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t,
		`SELECT "s".* FROM "Students" AS "s" ORDER BY "s"."Age" DESC, "s".rowid ASC LIMIT ?`,
		resp.Data.SQL)
	assert.Equal(t, []any{float64(2)}, resp.Data.Args)
}

func TestSQLCommand_Unsupported(t *testing.T) {
	out, _, err := execute(t, NewSQLCommand(&RootOptions{Format: "text"}), "testdata/group_join.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeSQLFailed+"]")
	assert.Contains(t, out, "group join orders")
}
