// Package common holds the transport-neutral contract between the NER
// pipeline and the server that hosts the token-classification model.
package common

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/turtacn/MedRecord-NER/pkg/errors"
)

// InputFormat tells the model server how InputData is laid out.
type InputFormat int

const (
	// FormatJSON is an opaque JSON document.
	FormatJSON InputFormat = iota
	// FormatTokens is a JSON array of subword surfaces, sentinels included.
	FormatTokens
)

func (f InputFormat) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatTokens:
		return "tokens"
	}
	return "unknown"
}

// Output keys a backend may fill in PredictResponse.Outputs.  A server
// returns either probabilities (one row per token, one column per label) or
// labels with optional scores.
const (
	OutputProbabilities = "probabilities"
	OutputLabels        = "labels"
	OutputScores        = "scores"
)

// ModelBackend invokes a token-classification model hosted elsewhere.
type ModelBackend interface {
	Predict(ctx context.Context, req *PredictRequest) (*PredictResponse, error)
	Healthy(ctx context.Context) error
	Close() error
}

// PredictRequest is one tagging call for a single chunk.
type PredictRequest struct {
	ModelName    string            `json:"model_name"`
	ModelVersion string            `json:"model_version,omitempty"`
	InputData    []byte            `json:"input_data"`
	InputFormat  InputFormat       `json:"input_format"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

func (r *PredictRequest) Validate() error {
	switch {
	case r == nil:
		return errors.New(errors.ErrCodeAIInputInvalid, "nil request")
	case r.ModelName == "":
		return errors.New(errors.ErrCodeAIInputInvalid, "model_name is required")
	case len(r.InputData) == 0:
		return errors.New(errors.ErrCodeAIInputInvalid, "input_data is required")
	}
	return nil
}

// PredictResponse carries the raw JSON outputs of one inference call, keyed
// by output name.  Decoding is left to the tagger, which knows the label
// order.
type PredictResponse struct {
	ModelName       string            `json:"model_name"`
	ModelVersion    string            `json:"model_version"`
	Outputs         map[string][]byte `json:"outputs"`
	InferenceTimeMs int64             `json:"inference_time_ms"`
}

// EncodeTokenList encodes token surfaces as a JSON array.
func EncodeTokenList(tokens []string) []byte {
	b, _ := json.Marshal(tokens)
	return b
}

// DecodeTokenList decodes a JSON string array such as a labels output.
func DecodeTokenList(data []byte) ([]string, error) {
	var tokens []string
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

// DecodeFloat64Slice decodes a JSON number array such as a scores output.
func DecodeFloat64Slice(data []byte) ([]float64, error) {
	var out []float64
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeFloat64Matrix decodes a probabilities output.  Rows may differ in
// length here; the tagger checks them against its label set.
func DecodeFloat64Matrix(data []byte) ([][]float64, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty probability matrix")
	}
	var mat [][]float64
	if err := json.Unmarshal(data, &mat); err != nil {
		return nil, fmt.Errorf("decode probability matrix: %w", err)
	}
	return mat, nil
}

//Personal.AI order the ending
