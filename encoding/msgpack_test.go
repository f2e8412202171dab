package encoding

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/maxpert/tagcodec/attr"
)

func TestMarshal_Basic(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
	}{
		{"string", "hello world"},
		{"bytes", []byte("Andr\xe9")},
		{"int", 12345},
		{"bool", true},
		{"request", &Request{ID: 1, Op: OpEndTag, Name: []byte("div")}},
		{"response", &Response{ID: 1, Data: []byte("[/div]")}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := Marshal(tc.input)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if len(data) == 0 {
				t.Error("Expected non-empty result")
			}
		})
	}
}

func TestMarshal_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	numGoroutines := 50
	iterations := 500

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				req := &Request{ID: uint64(id*iterations + j), Op: OpAttribute, Value: "some test data"}
				data, err := Marshal(req)
				if err != nil {
					t.Errorf("Marshal failed: %v", err)
					return
				}
				var got Request
				if err := Unmarshal(data, &got); err != nil {
					t.Errorf("Unmarshal failed: %v", err)
					return
				}
				if got.ID != req.ID {
					t.Errorf("ID mismatch: got %d, want %d", got.ID, req.ID)
					return
				}
			}
		}(i)
	}

	wg.Wait()
}

func TestUnmarshal_PreservesBytesAndStrings(t *testing.T) {
	// The codec quotes []byte as is and encodes strings first, so the two
	// must survive a round trip as distinct types.
	tests := []struct {
		name  string
		value interface{}
	}{
		{"string", "André"},
		{"bytes", []byte("Andr\xe9")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := Marshal(&Request{Op: OpAttribute, Value: tc.value})
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			var got Request
			if err := Unmarshal(data, &got); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			switch want := tc.value.(type) {
			case string:
				s, ok := got.Value.(string)
				if !ok || s != want {
					t.Fatalf("Expected string %q, got %T %v", want, got.Value, got.Value)
				}
			case []byte:
				b, ok := got.Value.([]byte)
				if !ok || !bytes.Equal(b, want) {
					t.Fatalf("Expected bytes %q, got %T %v", want, got.Value, got.Value)
				}
			}
		})
	}
}

func TestUnmarshal_EmptyStringValue(t *testing.T) {
	data, err := Marshal(&Request{Op: OpAttribute, Value: ""})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var got Request
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if s, ok := got.Value.(string); !ok || s != "" {
		t.Fatalf("Expected empty string, got %T %v", got.Value, got.Value)
	}
}

func TestRequest_Attrs(t *testing.T) {
	attrs, err := attr.FromSlice([][]any{{"class", `"button"`}, {"disabled", nil}})
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}

	data, err := Marshal(&Request{ID: 7, Op: OpStartTag, Name: []byte("input"), Attrs: attrs, Closed: true})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var got Request
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.Op != OpStartTag || !got.Closed || string(got.Name) != "input" {
		t.Fatalf("Unexpected request: %+v", got)
	}
	if got.Attrs.Len() != 2 {
		t.Fatalf("Expected 2 attributes, got %d", got.Attrs.Len())
	}

	it := got.Attrs.Iter()
	a, _ := it.Next()
	if string(a.Key) != "class" || string(a.Value) != `"button"` || !a.HasValue {
		t.Errorf("Unexpected first attribute: %+v", a)
	}
	a, _ = it.Next()
	if string(a.Key) != "disabled" || a.HasValue {
		t.Errorf("Unexpected second attribute: %+v", a)
	}
}

func TestUnmarshal_Error(t *testing.T) {
	var got Request
	err := Unmarshal([]byte{0xc1}, &got)
	if err == nil {
		t.Fatal("Expected error for invalid msgpack")
	}
	var merr *MarshalError
	if !errors.As(err, &merr) {
		t.Fatalf("Expected *MarshalError, got %T", err)
	}
}

func TestOp_Valid(t *testing.T) {
	for _, op := range Ops {
		if !op.Valid() {
			t.Errorf("%s should be valid", op)
		}
	}
	if Op("parse").Valid() {
		t.Error("parse should not be valid")
	}
}

func TestFrames_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	fw := NewFrameWriter(&buf)
	for i := 0; i < 3; i++ {
		if err := fw.Write(&Response{ID: uint64(i), Text: "ok"}); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := fw.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	fr := NewFrameReader(&buf, 1024)
	for i := 0; i < 3; i++ {
		var resp Response
		if err := fr.Read(&resp); err != nil {
			t.Fatalf("Read %d failed: %v", i, err)
		}
		if resp.ID != uint64(i) || resp.Text != "ok" {
			t.Errorf("Unexpected frame %d: %+v", i, resp)
		}
	}

	var resp Response
	if err := fr.Read(&resp); err != io.EOF {
		t.Fatalf("Expected io.EOF, got %v", err)
	}
}

func TestFrames_TooLarge(t *testing.T) {
	var buf bytes.Buffer
	fw := NewFrameWriter(&buf)
	if err := fw.Write(&Response{Text: string(make([]byte, 100))}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := fw.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	var resp Response
	err := NewFrameReader(&buf, 10).Read(&resp)
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("Expected ErrFrameTooLarge, got %v", err)
	}
}

func TestFrames_Truncated(t *testing.T) {
	var buf bytes.Buffer
	fw := NewFrameWriter(&buf)
	if err := fw.Write(&Response{Text: "truncated"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := fw.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	data := buf.Bytes()[:buf.Len()-2]
	var resp Response
	err := NewFrameReader(bytes.NewReader(data), 1024).Read(&resp)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("Expected io.ErrUnexpectedEOF, got %v", err)
	}

	err = NewFrameReader(bytes.NewReader([]byte{0, 0}), 1024).Read(&resp)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("Expected io.ErrUnexpectedEOF for short header, got %v", err)
	}
}

func TestFrames_EmptyBody(t *testing.T) {
	var buf bytes.Buffer
	fw := NewFrameWriter(&buf)
	if err := fw.Write(&Response{ID: 1}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := fw.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	buf.Write([]byte{0, 0, 0, 0})

	fr := NewFrameReader(&buf, 1024)
	var resp Response
	if err := fr.Read(&resp); err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	err := fr.Read(&resp)
	if errors.Is(err, io.EOF) {
		t.Fatalf("Empty frame must not read as end of stream, got %v", err)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("Expected io.ErrUnexpectedEOF, got %v", err)
	}
}

func BenchmarkMarshal(b *testing.B) {
	req := &Request{ID: 12345, Op: OpAttribute, Value: "benchmark test"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Marshal(req)
	}
}

func BenchmarkMarshal_Parallel(b *testing.B) {
	req := &Request{ID: 12345, Op: OpAttribute, Value: "benchmark test"}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = Marshal(req)
		}
	})
}
