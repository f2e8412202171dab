package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxpert/tagcodec/encoding"
)

func TestRun_Commands(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		stdin string
		want  string
	}{
		{"starttag", []string{"starttag", "div", `class="button"`, "disabled"}, "", "[div class=\"button\" disabled]\n"},
		{"starttag closed", []string{"starttag", "-closed", "hr"}, "", "[[hr]]\n"},
		{"endtag", []string{"endtag", "div"}, "", "[/div]\n"},
		{"attr", []string{"attr", `say "hi"`}, "", "\"say \\\"hi\\\"\"\n"},
		{"content", []string{"content", "[b]", "bold"}, "", "[b] bold\n"},
		{"escape", []string{"escape", "a[b"}, "", "a[]b\n"},
		{"decode args", []string{"decode", "André"}, "", "André\n"},
		{"decode stdin", []string{"decode"}, "André", "André\n"},
		{"decode-attr", []string{"decode-attr", `"a\"b"`}, "", "a\"b\n"},
		{"version", []string{"version"}, "", "tagcodec dev\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			err := run(context.Background(), tc.args, strings.NewReader(tc.stdin), &out)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out.String())
		})
	}
}

func TestRun_Usage(t *testing.T) {
	tests := [][]string{
		nil,
		{"parse"},
		{"endtag"},
		{"starttag"},
		{"starttag", "-bogus", "x"},
	}

	for _, args := range tests {
		var out bytes.Buffer
		err := run(context.Background(), args, strings.NewReader(""), &out)
		assert.ErrorIs(t, err, errUsage, "args %v", args)
		assert.Zero(t, out.Len())
	}
}

func TestRun_DecodeStrictError(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"decode"}, strings.NewReader("Andr\xe9"), &out)
	assert.Error(t, err)
	assert.Zero(t, out.Len())
}

func TestRun_Batch(t *testing.T) {
	var in, out bytes.Buffer
	fw := encoding.NewFrameWriter(&in)
	require.NoError(t, fw.Write(&encoding.Request{ID: 9, Op: encoding.OpEndTag, Name: []byte("p")}))
	require.NoError(t, fw.Flush())

	require.NoError(t, run(context.Background(), []string{"batch"}, &in, &out))

	var resp encoding.Response
	require.NoError(t, encoding.NewFrameReader(&out, 1024).Read(&resp))
	assert.Equal(t, uint64(9), resp.ID)
	assert.Equal(t, "[/p]", string(resp.Data))
}
