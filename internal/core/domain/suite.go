package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/zeebo/xxh3"
)

// Suite is a named, ordered collection of expectations.
type Suite struct {
	Name         string        `json:"name" yaml:"name"`
	Expectations []Expectation `json:"expectations" yaml:"expectations"`
	CreatedAt    time.Time     `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" yaml:"updated_at"`
}

// NewSuite returns an empty suite.
func NewSuite(name string) *Suite {
	now := time.Now().UTC()
	return &Suite{Name: name, CreatedAt: now, UpdatedAt: now}
}

// AddExpectation validates e and appends it. A rule with the same type and
// column as an existing one is rejected with ErrDuplicateExpectation.
func (s *Suite) AddExpectation(e Expectation) error {
	if err := e.Validate(); err != nil {
		return err
	}
	key := e.Key()
	for _, existing := range s.Expectations {
		if existing.Key() == key {
			return fmt.Errorf("%w: %s in suite %q", ErrDuplicateExpectation, key, s.Name)
		}
	}
	s.Expectations = append(s.Expectations, e)
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Types lists the expectation type of every rule, in suite order.
func (s *Suite) Types() []ExpectationType {
	out := make([]ExpectationType, len(s.Expectations))
	for i, e := range s.Expectations {
		out[i] = e.Type
	}
	return out
}

// Fingerprint hashes the rule list. Two suites with the same rules in the
// same order share a fingerprint; the name and timestamps are ignored.
func (s *Suite) Fingerprint() string {
	exps := s.Expectations
	if exps == nil {
		exps = []Expectation{}
	}
	// Marshal of plain structs with float pointers cannot fail.
	data, _ := json.Marshal(exps)
	return strconv.FormatUint(xxh3.Hash(data), 16)
}
