package lookup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpression(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		handler string
		query   string
		args    map[string]string
	}{
		{
			name:    "handler only",
			raw:     "${noop}",
			handler: "noop",
		},
		{
			name:    "handler and query",
			raw:     "${output vpc.VpcId}",
			handler: "output",
			query:   "vpc.VpcId",
		},
		{
			name:    "single arg",
			raw:     "${var region::default=us-east-1}",
			handler: "var",
			query:   "region",
			args:    map[string]string{"default": "us-east-1"},
		},
		{
			name:    "multiple args",
			raw:     "${output db.Config::load=json,get=host,transform=str}",
			handler: "output",
			query:   "db.Config",
			args:    map[string]string{"load": "json", "get": "host", "transform": "str"},
		},
		{
			name:    "nested expression in query",
			raw:     "${output ${var target}.VpcId}",
			handler: "output",
			query:   "${var target}.VpcId",
		},
		{
			name:    "args separator inside nested expression ignored",
			raw:     "${output ${var a::default=x}.Id::default=y}",
			handler: "output",
			query:   "${var a::default=x}.Id",
			args:    map[string]string{"default": "y"},
		},
		{
			name:    "whitespace trimmed",
			raw:     "${ var  name :: default = d }",
			handler: "var",
			query:   "name",
			args:    map[string]string{"default": "d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segs, err := split(tt.raw)
			require.NoError(t, err)
			require.Len(t, segs, 1)
			e := segs[0].expr
			require.NotNil(t, e)

			assert.Equal(t, tt.handler, e.Handler)
			assert.Equal(t, tt.query, e.Query)
			if tt.args == nil {
				assert.Empty(t, e.Args)
			} else {
				assert.Equal(t, tt.args, e.Args)
			}
			assert.Equal(t, tt.raw, e.Raw)
		})
	}
}

func TestSplit_MixedLiteralsAndExpressions(t *testing.T) {
	segs, err := split("arn:aws:s3:::${var bucket}/logs/${var prefix}")
	require.NoError(t, err)
	require.Len(t, segs, 4)

	assert.Equal(t, "arn:aws:s3:::", segs[0].literal)
	require.NotNil(t, segs[1].expr)
	assert.Equal(t, "var", segs[1].expr.Handler)
	assert.Equal(t, "/logs/", segs[2].literal)
	require.NotNil(t, segs[3].expr)
	assert.Equal(t, "prefix", segs[3].expr.Query)
}

func TestSplit_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"unterminated", "${var foo", "unterminated"},
		{"unterminated nested", "${output ${var a.Id}", "unterminated"},
		{"malformed argument", "${var foo::bare}", "malformed lookup argument"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := split(tt.raw)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestContainsExpression(t *testing.T) {
	assert.True(t, ContainsExpression("${var x}"))
	assert.True(t, ContainsExpression("prefix ${var x}"))
	assert.False(t, ContainsExpression("plain text"))
	assert.False(t, ContainsExpression("$not {an expression}"))
}

func TestSplitOutputQuery(t *testing.T) {
	stack, output, err := SplitOutputQuery("vpc.VpcId")
	require.NoError(t, err)
	assert.Equal(t, "vpc", stack)
	assert.Equal(t, "VpcId", output)

	// Only the first dot separates stack from output.
	stack, output, err = SplitOutputQuery("vpc.Outputs.Nested")
	require.NoError(t, err)
	assert.Equal(t, "vpc", stack)
	assert.Equal(t, "Outputs.Nested", output)

	for _, bad := range []string{"nodot", ".Output", "stack.", ""} {
		_, _, err := SplitOutputQuery(bad)
		assert.Error(t, err, bad)
	}
}
