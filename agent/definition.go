package agent

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/researchflow/schema"
	"github.com/hupe1980/researchflow/tool"
)

// Contract is the shape an agent promises to respond with.
type Contract string

const (
	ContractText         Contract = "text"
	ContractStrictJSON   Contract = "strict_json_schema"
	ContractMessageTable Contract = "message_table"
)

// ResponseFormat declares the contract and, for strict JSON, the schema name.
type ResponseFormat struct {
	Type   Contract `yaml:"type" json:"type"`
	Schema string   `yaml:"schema,omitempty" json:"schema,omitempty"`
}

// Definition is the immutable description of one agent.
type Definition struct {
	Name           string         `yaml:"name" json:"name"`
	Description    string         `yaml:"description,omitempty" json:"description,omitempty"`
	Model          string         `yaml:"model" json:"model"`
	Instructions   string         `yaml:"instructions" json:"instructions"`
	Tool           tool.Kind      `yaml:"tool,omitempty" json:"tool,omitempty"`
	ResponseFormat ResponseFormat `yaml:"response_format" json:"response_format"`
	Temperature    *float64       `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	MaxTokens      int64          `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
}

// Contract returns the response contract, defaulting to text.
func (d Definition) Contract() Contract {
	if d.ResponseFormat.Type == "" {
		return ContractText
	}
	return d.ResponseFormat.Type
}

// Validate checks the definition is complete and internally consistent.
func (d Definition) Validate() error {
	var errs []error

	if strings.TrimSpace(d.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if strings.TrimSpace(d.Model) == "" {
		errs = append(errs, errors.New("model is required"))
	}
	if strings.TrimSpace(d.Instructions) == "" {
		errs = append(errs, errors.New("instructions are required"))
	}
	if d.Tool != "" && !d.Tool.Valid() {
		errs = append(errs, fmt.Errorf("unknown tool %q", d.Tool))
	}
	if d.Temperature != nil && (*d.Temperature < 0 || *d.Temperature > 2) {
		errs = append(errs, fmt.Errorf("temperature %v out of range [0,2]", *d.Temperature))
	}
	if d.MaxTokens < 0 {
		errs = append(errs, errors.New("max_tokens must not be negative"))
	}

	switch d.Contract() {
	case ContractText:
	case ContractStrictJSON:
		if d.ResponseFormat.Schema == "" {
			errs = append(errs, errors.New("strict_json_schema requires a schema name"))
		} else if _, ok := schema.Lookup(d.ResponseFormat.Schema); !ok {
			errs = append(errs, fmt.Errorf("unknown schema %q", d.ResponseFormat.Schema))
		}
	case ContractMessageTable:
		if d.Tool == "" {
			errs = append(errs, errors.New("message_table requires a tool"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown response contract %q", d.ResponseFormat.Type))
	}

	if len(errs) > 0 {
		return fmt.Errorf("agent %q: %w", d.Name, errors.Join(errs...))
	}

	return nil
}

// Digest is a stable fingerprint of the definition used to detect changes.
func (d Definition) Digest() string {
	data, _ := json.Marshal(d)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
