package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValueSealed(t *testing.T) {
	// Verify all types implement IRValue (compile-time check via assignment)
	var _ IRValue = IRNull{}
	var _ IRValue = IRString("test")
	var _ IRValue = IRInt(42)
	var _ IRValue = IRBool(true)
	var _ IRValue = IRArray{IRString("a"), IRInt(1)}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name  string
		value IRValue
		want  string
	}{
		{"null", IRNull{}, "null"},
		{"nil interface", nil, "null"},
		{"string", IRString("Seattle"), `"Seattle"`},
		{"string with quote", IRString(`say "hi"`), `"say \"hi\""`},
		{"int", IRInt(-7), "-7"},
		{"bool", IRBool(true), "true"},
		{"array", IRArray{IRInt(1), IRString("a")}, `{1, "a"}`},
		{"empty array", IRArray{}, "{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.value))
		})
	}
}

func TestFromGo(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  IRValue
	}{
		{"nil", nil, IRNull{}},
		{"string", "x", IRString("x")},
		{"bool", false, IRBool(false)},
		{"int", 3, IRInt(3)},
		{"int64", int64(4), IRInt(4)},
		{"uint64", uint64(5), IRInt(5)},
		{"integral float", float64(6), IRInt(6)},
		{"already IRValue", IRString("y"), IRString("y")},
		{"array", []any{1, "a"}, IRArray{IRInt(1), IRString("a")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromGo(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromGo_Rejects(t *testing.T) {
	_, err := FromGo(1.5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats are not allowed")

	_, err = FromGo([]any{"ok", 2.25})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "array[1]")

	_, err = FromGo(map[string]any{"a": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported constant type")
}

func TestToParam(t *testing.T) {
	p, err := ToParam(IRString("widgets"))
	require.NoError(t, err)
	assert.Equal(t, "widgets", p)

	p, err = ToParam(IRInt(42))
	require.NoError(t, err)
	assert.Equal(t, int64(42), p)

	p, err = ToParam(IRBool(true))
	require.NoError(t, err)
	assert.Equal(t, true, p)

	p, err = ToParam(IRNull{})
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = ToParam(IRArray{IRInt(1)})
	assert.Error(t, err)
}
