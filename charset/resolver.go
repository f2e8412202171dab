// Package charset resolves character-encoding names and converts between Go
// text and encoded bytes for the markup encoders and decoders.
//
// Names are matched case-insensitively against the IANA registry, then the
// WHATWG label set, after applying a small table of common aliases such as
// "latin-1", "utf8" and "ascii". Resolved codecs are cached in an LRU keyed by
// XXH64 of the normalized name. Callers may register additional encodings
// under their own names; registrations take precedence over the indexes.
package charset

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// DefaultCacheSize is the LRU capacity of the default resolver.
const DefaultCacheSize = 64

var aliases = map[string]string{
	"utf8":           "utf-8",
	"u8":             "utf-8",
	"utf":            "utf-8",
	"cp65001":        "utf-8",
	"latin-1":        "iso-8859-1",
	"latin1":         "iso-8859-1",
	"latin":          "iso-8859-1",
	"l1":             "iso-8859-1",
	"iso8859-1":      "iso-8859-1",
	"8859":           "iso-8859-1",
	"cp819":          "iso-8859-1",
	"ascii":          "us-ascii",
	"646":            "us-ascii",
	"us":             "us-ascii",
	"ansi-x3.4-1968": "us-ascii",
	"cp1252":         "windows-1252",
	"cp1251":         "windows-1251",
	"cp1250":         "windows-1250",
	"latin-9":        "iso-8859-15",
	"latin9":         "iso-8859-15",
	"iso8859-15":     "iso-8859-15",
}

var registry = xsync.NewMapOf[string, *Codec]()

var defaultResolver atomic.Pointer[Resolver]

func init() {
	r, err := NewResolver(DefaultCacheSize)
	if err != nil {
		panic("failed to create charset resolver: " + err.Error())
	}
	defaultResolver.Store(r)
}

// Resolver maps encoding names to codecs. It is safe for concurrent use.
type Resolver struct {
	cache *lru.Cache[uint64, *Codec]
}

// NewResolver creates a resolver whose cache holds up to size codecs.
func NewResolver(size int) (*Resolver, error) {
	cache, err := lru.New[uint64, *Codec](size)
	if err != nil {
		return nil, err
	}
	return &Resolver{cache: cache}, nil
}

// Lookup returns the codec for name.
func (r *Resolver) Lookup(name string) (*Codec, error) {
	key := Normalize(name)
	if c, ok := registry.Load(key); ok {
		return c, nil
	}

	hash := xxhash.Sum64String(key)
	if c, ok := r.cache.Get(hash); ok && c.key == key {
		return c, nil
	}

	c, err := resolve(key)
	if err != nil {
		return nil, &Error{Op: "lookup", Encoding: name, Offset: -1, Err: err}
	}
	r.cache.Add(hash, c)

	log.Debug().
		Str("encoding", name).
		Str("canonical", c.name).
		Msg("Resolved character encoding")
	return c, nil
}

// Len returns the number of cached codecs.
func (r *Resolver) Len() int {
	return r.cache.Len()
}

func resolve(key string) (*Codec, error) {
	canon := key
	if alias, ok := aliases[key]; ok {
		canon = alias
	}

	// Handled natively: the WHATWG index folds ASCII into windows-1252.
	switch canon {
	case "utf-8":
		return newCodec(key, "UTF-8", unicode.UTF8), nil
	case "us-ascii":
		return newCodec(key, "US-ASCII", nil), nil
	}

	enc, err := ianaindex.IANA.Encoding(canon)
	if err != nil || enc == nil {
		enc, err = htmlindex.Get(canon)
		if err != nil || enc == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnsupported, key)
		}
	}
	return newCodec(key, canonicalName(enc, canon), enc), nil
}

func canonicalName(enc encoding.Encoding, fallback string) string {
	if name, err := ianaindex.MIME.Name(enc); err == nil && name != "" {
		return name
	}
	if name, err := ianaindex.IANA.Name(enc); err == nil && name != "" {
		return name
	}
	if name, err := htmlindex.Name(enc); err == nil && name != "" {
		return name
	}
	return fallback
}

var nameReplacer = strings.NewReplacer("_", "-", " ", "-")

// Normalize folds an encoding name to its lookup key.
func Normalize(name string) string {
	return nameReplacer.Replace(strings.ToLower(strings.TrimSpace(name)))
}

// Lookup resolves name with the default resolver.
func Lookup(name string) (*Codec, error) {
	return defaultResolver.Load().Lookup(name)
}

// Default returns the resolver behind the package-level Lookup.
func Default() *Resolver {
	return defaultResolver.Load()
}

// SetCacheSize replaces the default resolver with one of the given capacity.
func SetCacheSize(size int) error {
	r, err := NewResolver(size)
	if err != nil {
		return err
	}
	defaultResolver.Store(r)
	return nil
}

// Register makes enc available under name, overriding any index entry with
// the same normalized name. enc must not be nil.
func Register(name string, enc encoding.Encoding) {
	if enc == nil {
		panic("charset: Register encoding is nil for " + name)
	}
	key := Normalize(name)
	registry.Store(key, newCodec(key, name, enc))
	log.Debug().Str("encoding", name).Msg("Registered character encoding")
}

// Unregister removes an encoding added with Register.
func Unregister(name string) {
	registry.Delete(Normalize(name))
}
