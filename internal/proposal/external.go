package proposal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/bookwright/steward/internal/event"
)

// draftSchema is the contract external draft sources must satisfy. The
// external source is untrusted: every draft is schema-checked before it
// enters normalization, and the normal validation pipeline still applies
// after that.
const draftSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["domain", "action", "description", "confidence"],
  "properties": {
    "domain": {"type": "string", "minLength": 1},
    "action": {"type": "string", "minLength": 1},
    "description": {"type": "string", "minLength": 1},
    "confidence": {"type": "number", "minimum": 0, "maximum": 100},
    "evidenceEventIds": {"type": "array", "items": {"type": "string"}}
  },
  "additionalProperties": false
}`

var compiledDraftSchema = jsonschema.MustCompileString("draft.schema.json", draftSchema)

// ExternalSource supplies raw proposal drafts from outside the engine
// (in production, an LLM behind a service boundary). Implementations must
// honor the context deadline.
type ExternalSource interface {
	Drafts(ctx context.Context, window []event.Event, activeDomains []string) ([]json.RawMessage, error)
}

// validateExternalDraft schema-checks one raw draft and decodes it.
func validateExternalDraft(raw json.RawMessage) (Draft, error) {
	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return Draft{}, fmt.Errorf("external draft: %w", err)
	}
	if err := compiledDraftSchema.Validate(generic); err != nil {
		return Draft{}, fmt.Errorf("external draft schema: %w", err)
	}

	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return Draft{}, fmt.Errorf("external draft decode: %w", err)
	}
	d.Source = SourceExternal
	return d, nil
}

// HTTPSource fetches drafts from an external HTTP endpoint. It posts the
// recent window and active domain set, and expects {"drafts": [...]} back.
type HTTPSource struct {
	URL     string
	Timeout time.Duration
	Client  *http.Client
}

type externalRequest struct {
	ActiveDomains []string      `json:"activeDomains"`
	Window        []event.Event `json:"window"`
}

type externalResponse struct {
	Drafts []json.RawMessage `json:"drafts"`
}

// Drafts implements ExternalSource. The call is bounded by the source
// timeout; on any failure the caller degrades to rule-only generation.
func (s *HTTPSource) Drafts(ctx context.Context, window []event.Event, activeDomains []string) ([]json.RawMessage, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(externalRequest{ActiveDomains: activeDomains, Window: window})
	if err != nil {
		return nil, fmt.Errorf("external source: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("external source: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("external source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("external source: status %d", resp.StatusCode)
	}

	var parsed externalResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("external source: %w", err)
	}
	return parsed.Drafts, nil
}

// normalizeConfidence maps external confidence conventions into [0,1].
// Values in (1,100] are assumed to be a 0-100 scale. Values outside [0,100]
// are invalid: the draft is dropped, not clamped.
func normalizeConfidence(c float64) (float64, error) {
	if c < 0 || c > 100 {
		return 0, fmt.Errorf("confidence %v out of range", c)
	}
	if c > 1 {
		return c / 100, nil
	}
	return c, nil
}

// trimmedEmpty reports whether a required string field is effectively empty.
func trimmedEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}
