package heuristics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Feature is the evaluated result of one rule. Value is a bool for simple
// rules and a []string for rules that collect matches.
type Feature struct {
	Name      string
	Value     any
	Triggered bool
	Weight    int
}

// Features holds one entry per rule, in rule order. It marshals to a JSON
// object that keeps that order.
type Features []Feature

// Get returns the feature named name.
func (fs Features) Get(name string) (Feature, bool) {
	for _, f := range fs {
		if f.Name == name {
			return f, true
		}
	}
	return Feature{}, false
}

// Triggered returns the names of the rules that added to the score.
func (fs Features) Triggered() []string {
	var out []string
	for _, f := range fs {
		if f.Triggered {
			out = append(out, f.Name)
		}
	}
	return out
}

// Reason summarizes the triggered rules and their weights in one line.
func (fs Features) Reason() string {
	var (
		reasons []string
		score   int
	)
	for _, f := range fs {
		if f.Triggered {
			score += f.Weight
			reasons = append(reasons, fmt.Sprintf("%s (+%d)", f.Name, f.Weight))
		}
	}
	if len(reasons) == 0 {
		return "No heuristic rules triggered"
	}
	return fmt.Sprintf("Rule score %d from %s", score, strings.Join(reasons, ", "))
}

// MarshalJSON implements json.Marshaler.
func (fs Features) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
