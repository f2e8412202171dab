package admin

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"

	"github.com/maxpert/tagcodec/attr"
	"github.com/maxpert/tagcodec/batch"
	"github.com/maxpert/tagcodec/cfg"
	"github.com/maxpert/tagcodec/charset"
	"github.com/maxpert/tagcodec/encoding"
	"github.com/rs/zerolog/log"
)

// AdminHandlers serves codec operations over JSON
type AdminHandlers struct {
	proc *batch.Processor
	opts batch.Options
}

// NewAdminHandlers creates a new AdminHandlers instance
func NewAdminHandlers(proc *batch.Processor, opts batch.Options) *AdminHandlers {
	return &AdminHandlers{proc: proc, opts: opts}
}

// codecRequest is the JSON body of every codec endpoint. Exactly one of
// Value and ValueBase64 carries the operand; base64 marks already encoded
// bytes, a plain value is text.
type codecRequest struct {
	Name        string  `json:"name"`
	NameBase64  string  `json:"name_base64"`
	Attrs       [][]any `json:"attrs"`
	Closed      bool    `json:"closed"`
	Value       any     `json:"value"`
	ValueBase64 string  `json:"value_base64"`
	Errors      string  `json:"errors"`
}

// codecResult is the JSON form of a codec response
type codecResult struct {
	Base64 string `json:"base64,omitempty"`
	Text   string `json:"text"`
}

func (h *AdminHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, map[string]interface{}{
		"status":          "ok",
		"output_encoding": h.proc.Encoder().Encoding(),
		"input_encoding":  h.proc.Decoder().Encoding(),
		"errors":          h.proc.Policy().String(),
		"cached_charsets": charset.Default().Len(),
	})
}

func (h *AdminHandlers) handleOps(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, encoding.Ops)
}

// handleOp returns the handler running op for a decoded JSON request
func (h *AdminHandlers) handleOp(op encoding.Op) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body codecRequest
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&body); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeErrorResponse(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
			return
		}

		req, err := body.toRequest(op)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		defer req.Attrs.Clear()

		resp := h.proc.Process(req)
		if resp.Error != "" {
			writeErrorResponse(w, http.StatusUnprocessableEntity, resp.Error)
			return
		}

		if resp.Data == nil {
			writeJSONResponse(w, codecResult{Text: resp.Text})
			return
		}
		result := codecResult{Base64: encodeBase64(resp.Data)}
		if utf8.Valid(resp.Data) {
			result.Text = string(resp.Data)
		}
		writeJSONResponse(w, result)
	}
}

func (b *codecRequest) toRequest(op encoding.Op) (*encoding.Request, error) {
	req := &encoding.Request{Op: op, Closed: b.Closed, Errors: b.Errors}

	name, err := decodeBase64OrText("name", b.NameBase64, b.Name)
	if err != nil {
		return nil, err
	}
	req.Name = name

	if b.ValueBase64 != "" {
		if req.Value, err = decodeBase64("value_base64", b.ValueBase64); err != nil {
			return nil, err
		}
	} else {
		req.Value = b.Value
	}

	if len(b.Attrs) > 0 {
		if req.Attrs, err = attr.FromSlice(b.Attrs); err != nil {
			return nil, fmt.Errorf("invalid attrs: %w", err)
		}
	}
	return req, nil
}

func (h *AdminHandlers) handleBatch(w http.ResponseWriter, r *http.Request) {
	opts := h.opts
	if c := r.URL.Query().Get("compression"); c != "" {
		switch opts.Compression = cfg.CompressionType(c); opts.Compression {
		case cfg.CompressionNone, cfg.CompressionZstd:
		default:
			writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("unknown compression %q", c))
			return
		}
	}

	w.Header().Set("Content-Type", "application/x-msgpack")
	stats, err := h.proc.Run(r.Context(), r.Body, w, opts)
	if err != nil {
		// Response frames may already be on the wire; report in a trailer
		log.Warn().Err(err).Int("frames", stats.Frames).Msg("Batch request aborted")
		w.Header().Set(http.TrailerPrefix+"X-Batch-Error", err.Error())
	}
}

// writeJSONResponse writes a successful JSON response
func writeJSONResponse(w http.ResponseWriter, data interface{}) {
	response := map[string]interface{}{
		"data": data,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error JSON response
func writeErrorResponse(w http.ResponseWriter, status int, message string) {
	response := map[string]interface{}{
		"error": message,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("Failed to encode error response")
	}
}

// encodeBase64 encodes byte slices as base64 strings
func encodeBase64(data []byte) string {
	if data == nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

func decodeBase64(field, s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", field, err)
	}
	return data, nil
}

func decodeBase64OrText(field, b64, text string) ([]byte, error) {
	if b64 != "" {
		return decodeBase64(field+"_base64", b64)
	}
	if text == "" {
		return nil, nil
	}
	return []byte(text), nil
}
