package batch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxpert/tagcodec/attr"
	"github.com/maxpert/tagcodec/cfg"
	"github.com/maxpert/tagcodec/charset"
	"github.com/maxpert/tagcodec/encoding"
	"github.com/maxpert/tagcodec/markup/text"
)

func newProcessor(t *testing.T, output, input string) *Processor {
	t.Helper()
	enc, err := text.NewEncoder(output)
	require.NoError(t, err)
	dec, err := text.NewDecoder(input)
	require.NoError(t, err)
	return NewProcessor(enc, dec, charset.Strict)
}

func TestProcessor_Process(t *testing.T) {
	p := newProcessor(t, "utf-8", "utf-8")

	attrs, err := attr.FromSlice([][]any{{"a", "1"}, {"b", nil}})
	require.NoError(t, err)

	tests := []struct {
		name string
		req  encoding.Request
		data string
		text string
		fail bool
	}{
		{"starttag", encoding.Request{Op: encoding.OpStartTag, Name: []byte("x"), Attrs: attrs}, "[x a=1 b]", "", false},
		{"starttag closed", encoding.Request{Op: encoding.OpStartTag, Name: []byte("hr"), Closed: true}, "[[hr]]", "", false},
		{"endtag", encoding.Request{Op: encoding.OpEndTag, Name: []byte("div")}, "[/div]", "", false},
		{"name", encoding.Request{Op: encoding.OpName, Value: "André"}, "Andr\xc3\xa9", "", false},
		{"attribute", encoding.Request{Op: encoding.OpAttribute, Value: "button"}, `"button"`, "", false},
		{"content", encoding.Request{Op: encoding.OpContent, Value: []byte("[x]")}, "[x]", "", false},
		{"encode", encoding.Request{Op: encoding.OpEncode, Value: int64(5)}, "5", "", false},
		{"escape bytes", encoding.Request{Op: encoding.OpEscape, Value: []byte("a[b")}, "a[]b", "", false},
		{"escape text", encoding.Request{Op: encoding.OpEscape, Value: "a[b"}, "", "a[]b", false},
		{"decode", encoding.Request{Op: encoding.OpDecode, Value: []byte("Andr\xc3\xa9")}, "", "André", false},
		{"decode attribute", encoding.Request{Op: encoding.OpDecodeAttribute, Value: `"a\"b"`}, "", `a"b`, false},
		{"decode strict", encoding.Request{Op: encoding.OpDecode, Value: []byte("Andr\xe9")}, "", "", true},
		{"decode replace", encoding.Request{Op: encoding.OpDecode, Value: []byte("Andr\xe9"), Errors: "replace"}, "", "Andr�", false},
		{"decode bad policy", encoding.Request{Op: encoding.OpDecode, Value: []byte("x"), Errors: "nope"}, "", "", true},
		{"decode bad value", encoding.Request{Op: encoding.OpDecode, Value: int64(1)}, "", "", true},
		{"unknown", encoding.Request{Op: "parse"}, "", "", true},
	}

	for i, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.req.ID = uint64(i)
			resp := p.Process(&tc.req)
			assert.Equal(t, uint64(i), resp.ID)
			if tc.fail {
				assert.NotEmpty(t, resp.Error)
				assert.Empty(t, resp.Data)
				assert.Empty(t, resp.Text)
				return
			}
			require.Empty(t, resp.Error)
			assert.Equal(t, tc.data, string(resp.Data))
			assert.Equal(t, tc.text, resp.Text)
		})
	}
}

func TestProcessor_DecodeBadValueError(t *testing.T) {
	p := newProcessor(t, "utf-8", "utf-8")
	_, err := p.decode(&encoding.Request{Op: encoding.OpDecode, Value: 3.5})
	assert.True(t, errors.Is(err, ErrValueType))
}

func writeRequests(t *testing.T, w io.Writer, reqs ...*encoding.Request) {
	t.Helper()
	fw := encoding.NewFrameWriter(w)
	for _, req := range reqs {
		require.NoError(t, fw.Write(req))
	}
	require.NoError(t, fw.Flush())
}

func readResponses(t *testing.T, r io.Reader) []encoding.Response {
	t.Helper()
	fr := encoding.NewFrameReader(r, 1<<20)
	var out []encoding.Response
	for {
		var resp encoding.Response
		err := fr.Read(&resp)
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, resp)
	}
}

func sampleRequests() []*encoding.Request {
	return []*encoding.Request{
		{ID: 1, Op: encoding.OpEndTag, Name: []byte("div")},
		{ID: 2, Op: encoding.OpAttribute, Value: `say "hi"`},
		{ID: 3, Op: encoding.OpDecode, Value: []byte("Andr\xe9")},
	}
}

func TestRun_Plain(t *testing.T) {
	p := newProcessor(t, "utf-8", "utf-8")

	var in, out bytes.Buffer
	writeRequests(t, &in, sampleRequests()...)

	stats, err := p.Run(context.Background(), &in, &out, Options{Compression: cfg.CompressionNone, MaxFrameBytes: 1024})
	require.NoError(t, err)
	assert.Equal(t, Stats{Frames: 3, Failed: 1}, stats)

	resps := readResponses(t, &out)
	require.Len(t, resps, 3)
	assert.Equal(t, "[/div]", string(resps[0].Data))
	assert.Equal(t, `"say \"hi\""`, string(resps[1].Data))
	assert.Equal(t, uint64(3), resps[2].ID)
	assert.Contains(t, resps[2].Error, "decode")
}

func TestRun_Zstd(t *testing.T) {
	p := newProcessor(t, "utf-8", "utf-8")

	var in bytes.Buffer
	zw, err := zstd.NewWriter(&in)
	require.NoError(t, err)
	writeRequests(t, zw, sampleRequests()...)
	require.NoError(t, zw.Close())

	var out bytes.Buffer
	stats, err := p.Run(context.Background(), &in, &out, Options{Compression: cfg.CompressionZstd, MaxFrameBytes: 1024})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Frames)

	zr, err := zstd.NewReader(&out)
	require.NoError(t, err)
	defer zr.Close()

	resps := readResponses(t, zr)
	require.Len(t, resps, 3)
	assert.Equal(t, "[/div]", string(resps[0].Data))
}

func TestRun_ZstdPoolReuse(t *testing.T) {
	p := newProcessor(t, "utf-8", "utf-8")

	for i := 0; i < 3; i++ {
		var in bytes.Buffer
		zw, err := zstd.NewWriter(&in)
		require.NoError(t, err)
		writeRequests(t, zw, &encoding.Request{ID: uint64(i), Op: encoding.OpEndTag, Name: []byte("p")})
		require.NoError(t, zw.Close())

		var out bytes.Buffer
		_, err = p.Run(context.Background(), &in, &out, Options{Compression: cfg.CompressionZstd, MaxFrameBytes: 1024})
		require.NoError(t, err)

		zr, err := zstd.NewReader(&out)
		require.NoError(t, err)
		resps := readResponses(t, zr)
		zr.Close()
		require.Len(t, resps, 1)
		assert.Equal(t, uint64(i), resps[0].ID)
	}
}

func TestRun_Empty(t *testing.T) {
	p := newProcessor(t, "utf-8", "utf-8")

	var out bytes.Buffer
	stats, err := p.Run(context.Background(), bytes.NewReader(nil), &out, Options{MaxFrameBytes: 1024})
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
	assert.Zero(t, out.Len())
}

func TestRun_FrameTooLarge(t *testing.T) {
	p := newProcessor(t, "utf-8", "utf-8")

	var in, out bytes.Buffer
	writeRequests(t, &in,
		&encoding.Request{ID: 1, Op: encoding.OpEndTag, Name: []byte("a")},
		&encoding.Request{ID: 2, Op: encoding.OpContent, Value: string(make([]byte, 512))},
	)

	stats, err := p.Run(context.Background(), &in, &out, Options{MaxFrameBytes: 64})
	require.ErrorIs(t, err, encoding.ErrFrameTooLarge)
	assert.Equal(t, 1, stats.Frames)

	resps := readResponses(t, &out)
	require.Len(t, resps, 1, "responses before the bad frame are flushed")
}

func TestRun_Canceled(t *testing.T) {
	p := newProcessor(t, "utf-8", "utf-8")

	var in, out bytes.Buffer
	writeRequests(t, &in, sampleRequests()...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Run(ctx, &in, &out, Options{MaxFrameBytes: 1024})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessor_Concurrent(t *testing.T) {
	p := newProcessor(t, "latin-1", "latin-1")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				resp := p.Process(&encoding.Request{Op: encoding.OpAttribute, Value: "Grüße"})
				if resp.Error != "" || string(resp.Data) != "\"Gr\xfc\xdfe\"" {
					t.Errorf("unexpected response: %+v", resp)
					return
				}
			}
		}()
	}
	wg.Wait()
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestRun_ZstdOutputError(t *testing.T) {
	p := newProcessor(t, "utf-8", "utf-8")

	var in bytes.Buffer
	zw, err := zstd.NewWriter(&in)
	require.NoError(t, err)
	writeRequests(t, zw, &encoding.Request{ID: 1, Op: encoding.OpEndTag, Name: []byte("div")})
	require.NoError(t, zw.Close())

	stats, err := p.Run(context.Background(), &in, failingWriter{}, Options{Compression: cfg.CompressionZstd, MaxFrameBytes: 1024})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, stats.Frames)
}

func TestRun_PlainOutputError(t *testing.T) {
	p := newProcessor(t, "utf-8", "utf-8")

	var in bytes.Buffer
	writeRequests(t, &in, &encoding.Request{ID: 1, Op: encoding.OpEndTag, Name: []byte("div")})

	_, err := p.Run(context.Background(), &in, failingWriter{}, Options{MaxFrameBytes: 1024})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestRun_EmptyFrameMidStream(t *testing.T) {
	p := newProcessor(t, "utf-8", "utf-8")

	var in bytes.Buffer
	writeRequests(t, &in, &encoding.Request{ID: 1, Op: encoding.OpEndTag, Name: []byte("a")})
	in.Write([]byte{0, 0, 0, 0})
	writeRequests(t, &in, &encoding.Request{ID: 2, Op: encoding.OpEndTag, Name: []byte("b")})

	var out bytes.Buffer
	stats, err := p.Run(context.Background(), &in, &out, Options{MaxFrameBytes: 1024})
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, 1, stats.Frames)

	resps := readResponses(t, &out)
	require.Len(t, resps, 1)
	assert.Equal(t, uint64(1), resps[0].ID)
}
