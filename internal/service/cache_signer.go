package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/stellaephile/whats-up-doc/internal/model"
)

// CacheSigner signs the Stage 1 cache handed to clients so a clarification
// follow-up cannot forge the emergency flags. The signature binds the cache
// to the symptoms it was computed for.
type CacheSigner struct {
	secret []byte
}

// NewCacheSigner returns a signer for secret. An empty secret disables
// signing and every cache verifies.
func NewCacheSigner(secret string) *CacheSigner {
	if secret == "" {
		return nil
	}
	return &CacheSigner{secret: []byte(secret)}
}

// Enabled reports whether caches are signed
func (s *CacheSigner) Enabled() bool {
	return s != nil && len(s.secret) > 0
}

// Sign returns a copy of cache carrying a signature over its content and symptoms.
func (s *CacheSigner) Sign(cache *model.Stage1Result, symptoms string) *model.Stage1Result {
	signed := canonicalCache(cache)
	if !s.Enabled() {
		return signed
	}
	signed.Signature = s.mac(signed, symptoms)
	return signed
}

// Verify checks the cache signature against symptoms
func (s *CacheSigner) Verify(cache *model.Stage1Result, symptoms string) bool {
	if !s.Enabled() {
		return true
	}
	if cache == nil || cache.Signature == "" {
		return false
	}

	want := s.mac(canonicalCache(cache), symptoms)
	return hmac.Equal([]byte(want), []byte(cache.Signature))
}

func (s *CacheSigner) mac(cache *model.Stage1Result, symptoms string) string {
	unsigned := *cache
	unsigned.Signature = ""

	// json.Marshal of a struct is field-ordered, so this is stable
	data, _ := json.Marshal(&unsigned)

	h := hmac.New(sha256.New, s.secret)
	h.Write(data)
	h.Write([]byte{'\n'})
	h.Write([]byte(strings.TrimSpace(symptoms)))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// canonicalCache copies cache with nil sequences replaced by empty ones so
// a cache that went through a client round-trip hashes the same.
func canonicalCache(cache *model.Stage1Result) *model.Stage1Result {
	c := *cache
	c.DetectedKeywords = nonNil(c.DetectedKeywords)
	c.ClarifyingQuestions = nonNil(c.ClarifyingQuestions)
	c.RedFlags = nonNil(c.RedFlags)
	return &c
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
