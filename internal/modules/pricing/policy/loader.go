package policy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML policy file over the defaults and validates it.
// An empty path returns the validated defaults.
func Load(path string) (Policy, error) {
	if path == "" {
		p := Default()
		return p, Validate(p)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to read policy file %s: %w", path, err)
	}

	p, err := Parse(data)
	if err != nil {
		return Policy{}, fmt.Errorf("policy file %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes YAML policy bytes over the defaults and validates the result.
// Unknown keys are rejected so that a misspelt threshold cannot silently fall
// back to its default.
func Parse(data []byte) (Policy, error) {
	p := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Policy{}, fmt.Errorf("failed to decode policy: %w", err)
	}

	if err := Validate(p); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// ParseJSON is Parse for a JSON document, as sent with dry-run requests.
// Omitted fields keep their defaults.
func ParseJSON(data []byte) (Policy, error) {
	p := Default()

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Policy{}, fmt.Errorf("failed to decode policy: %w", err)
	}

	if err := Validate(p); err != nil {
		return Policy{}, err
	}
	return p, nil
}
