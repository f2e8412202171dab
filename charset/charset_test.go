package charset

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestLookup_Names(t *testing.T) {
	tests := []struct {
		name string
		kind kind
	}{
		{"utf-8", kindUTF8},
		{"UTF8", kindUTF8},
		{" utf_8 ", kindUTF8},
		{"ascii", kindASCII},
		{"US-ASCII", kindASCII},
		{"latin-1", kindCharmap},
		{"ISO-8859-1", kindCharmap},
		{"cp1252", kindCharmap},
		{"windows-1252", kindCharmap},
		{"utf-16le", kindGeneric},
		{"shift_jis", kindGeneric},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, err := Lookup(tc.name)
			require.NoError(t, err)
			assert.Equal(t, tc.kind, c.kind)
			assert.NotEmpty(t, c.Name())
		})
	}
}

func TestLookup_Unknown(t *testing.T) {
	_, err := Lookup("foo")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupported)

	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "lookup", cerr.Op)
	assert.Equal(t, "foo", cerr.Encoding)
}

func TestResolver_Caches(t *testing.T) {
	r, err := NewResolver(2)
	require.NoError(t, err)

	a, err := r.Lookup("utf-8")
	require.NoError(t, err)
	b, err := r.Lookup("utf-8")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, r.Len())

	_, err = r.Lookup("latin-1")
	require.NoError(t, err)
	_, err = r.Lookup("ascii")
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len(), "cache is bounded")
}

func TestNewResolver_InvalidSize(t *testing.T) {
	_, err := NewResolver(0)
	assert.Error(t, err)
}

func TestRegister(t *testing.T) {
	Register("My_Latin", charmap.ISO8859_1)
	defer Unregister("my-latin")

	c, err := Lookup("my-latin")
	require.NoError(t, err)
	assert.Equal(t, kindCharmap, c.kind)

	out, err := c.Encode("André")
	require.NoError(t, err)
	assert.Equal(t, []byte("Andr\xe9"), out)

	Unregister("my-latin")
	_, err = Lookup("my-latin")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestRegister_NilPanics(t *testing.T) {
	assert.Panics(t, func() { Register("nothing", nil) })
}

func TestCodec_Encode(t *testing.T) {
	tests := []struct {
		encoding string
		in       string
		want     []byte
	}{
		{"utf-8", "André", []byte("Andr\xc3\xa9")},
		{"latin-1", "André", []byte("Andr\xe9")},
		{"ascii", "Andre", []byte("Andre")},
		{"cp1252", "€", []byte{0x80}},
		{"utf-16le", "A", []byte{'A', 0}},
	}

	for _, tc := range tests {
		t.Run(tc.encoding, func(t *testing.T) {
			c, err := Lookup(tc.encoding)
			require.NoError(t, err)
			got, err := c.Encode(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCodec_EncodeUnrepresentable(t *testing.T) {
	tests := []struct {
		encoding string
		in       string
		offset   int
	}{
		{"ascii", "André", 4},
		{"latin-1", "ab€", 2},
		{"utf-8", "ab\xff", 2},
		{"latin-1", "a\xff", 1},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("%s/%q", tc.encoding, tc.in), func(t *testing.T) {
			c, err := Lookup(tc.encoding)
			require.NoError(t, err)
			_, err = c.Encode(tc.in)
			require.ErrorIs(t, err, ErrEncode)

			var cerr *Error
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, "encode", cerr.Op)
			assert.Equal(t, tc.offset, cerr.Offset)
		})
	}
}

func TestCodec_EncodeValue(t *testing.T) {
	c, err := Lookup("utf-8")
	require.NoError(t, err)

	raw := []byte("Andr\xe9")
	got, err := c.EncodeValue(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, got, "bytes pass through unchanged")

	got, err = c.EncodeValue(42)
	require.NoError(t, err)
	assert.Equal(t, []byte("42"), got)
}

func TestCodec_Decode(t *testing.T) {
	utf8c, err := Lookup("utf-8")
	require.NoError(t, err)

	s, err := utf8c.Decode([]byte("Andr\xc3\xa9"), Strict)
	require.NoError(t, err)
	assert.Equal(t, "André", s)

	_, err = utf8c.Decode([]byte("Andr\xe9"), Strict)
	require.ErrorIs(t, err, ErrDecode)
	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, 4, cerr.Offset)

	s, err = utf8c.Decode([]byte("Andr\xe9!"), Replace)
	require.NoError(t, err)
	assert.Equal(t, "Andr�!", s)

	s, err = utf8c.Decode([]byte("Andr\xe9!"), Ignore)
	require.NoError(t, err)
	assert.Equal(t, "Andr!", s)

	latin, err := Lookup("latin-1")
	require.NoError(t, err)
	s, err = latin.Decode([]byte("Andr\xe9"), Strict)
	require.NoError(t, err)
	assert.Equal(t, "André", s)

	ascii, err := Lookup("ascii")
	require.NoError(t, err)
	_, err = ascii.Decode([]byte("a\x80"), Strict)
	assert.ErrorIs(t, err, ErrDecode)
	s, err = ascii.Decode([]byte("a\x80b"), Ignore)
	require.NoError(t, err)
	assert.Equal(t, "ab", s)
	s, err = ascii.Decode([]byte("a\x80b"), Replace)
	require.NoError(t, err)
	assert.Equal(t, "a�b", s)

	u16, err := Lookup("utf-16le")
	require.NoError(t, err)
	s, err = u16.Decode([]byte{'h', 0, 'i', 0}, Strict)
	require.NoError(t, err)
	assert.Equal(t, "hi", s)
}

func TestCodec_DecodeReplacementCharacter(t *testing.T) {
	u16, err := Lookup("utf-16le")
	require.NoError(t, err)

	// U+FFFD is a valid character and must survive a strict round trip
	encoded, err := u16.Encode("\uFFFDa")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xfd, 0xff, 'a', 0}, encoded)

	s, err := u16.Decode(encoded, Strict)
	require.NoError(t, err)
	assert.Equal(t, "\uFFFDa", s)

	// A lone high surrogate is invalid input
	lone := []byte{0x00, 0xd8, 'a', 0}
	_, err = u16.Decode(lone, Strict)
	assert.ErrorIs(t, err, ErrDecode)

	s, err = u16.Decode(lone, Ignore)
	require.NoError(t, err)
	assert.Equal(t, "a", s)

	s, err = u16.Decode(lone, Replace)
	require.NoError(t, err)
	assert.Equal(t, "\uFFFDa", s)
}

func TestParsePolicy(t *testing.T) {
	for name, want := range map[string]Policy{
		"":        Strict,
		"strict":  Strict,
		"Replace": Replace,
		"ignore":  Ignore,
	} {
		got, err := ParsePolicy(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParsePolicy("backslashreplace")
	assert.ErrorIs(t, err, ErrPolicy)

	assert.Equal(t, "replace", Replace.String())
	assert.Equal(t, "Policy(9)", Policy(9).String())
}

type stringer struct{}

func (stringer) String() string { return "stringer" }

func TestStringify(t *testing.T) {
	assert.Equal(t, "abc", Stringify("abc"))
	assert.Equal(t, "abc", Stringify([]byte("abc")))
	assert.Equal(t, "42", Stringify(42))
	assert.Equal(t, "stringer", Stringify(stringer{}))
	assert.Equal(t, "boom", Stringify(errors.New("boom")))
	assert.Equal(t, "true", Stringify(true))
}

func TestLookup_Concurrent(t *testing.T) {
	names := []string{"utf-8", "latin-1", "ascii", "cp1252", "utf-16le"}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				c, err := Lookup(names[(id+j)%len(names)])
				if err != nil {
					t.Errorf("Lookup failed: %v", err)
					return
				}
				if _, err := c.Encode("abc"); err != nil {
					t.Errorf("Encode failed: %v", err)
					return
				}
			}
		}(i)
	}
	wg.Wait()
}
