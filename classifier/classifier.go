// SPDX-License-Identifier: GPL-3.0-or-later

// Package classifier loads the trained phishing model and scores normalized
// email text. The model is a token-weight export of the trained network: a
// vocabulary file mapping tokens to indices and a weights file with one
// weight per index plus a bias. Both artifacts are loaded once at startup
// and never mutated afterwards.
package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/AkshayRane05/Phishing-Detection-Tool/log"

	"github.com/sirupsen/logrus"
)

// MaxSequenceLength is the fixed token window the model was trained with.
// Longer inputs are truncated, shorter ones are implicitly zero-padded
// (padding indices carry no weight).
const MaxSequenceLength = 100

type vocabFile struct {
	WordIndex map[string]int `json:"word_index"`
	OovIndex  int            `json:"oov_token_index"`
}

type modelFile struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

type Model struct {
	vocab    map[string]int
	oovIndex int
	weights  []float64
	bias     float64

	l *logrus.Logger
}

// Load reads the artifact pair. A missing or malformed artifact is a startup
// failure, there is no fallback scoring path.
func Load(modelPath, vocabPath string) (*Model, error) {
	vocabData, err := os.ReadFile(vocabPath)
	if err != nil {
		return nil, fmt.Errorf("could not read vocabulary: %w", err)
	}

	vocab := &vocabFile{}
	err = json.Unmarshal(vocabData, vocab)
	if err != nil {
		return nil, fmt.Errorf("could not parse vocabulary: %w", err)
	}
	if len(vocab.WordIndex) == 0 {
		return nil, fmt.Errorf("vocabulary is empty")
	}

	modelData, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, fmt.Errorf("could not read model weights: %w", err)
	}

	model := &modelFile{}
	err = json.Unmarshal(modelData, model)
	if err != nil {
		return nil, fmt.Errorf("could not parse model weights: %w", err)
	}
	if len(model.Weights) == 0 {
		return nil, fmt.Errorf("model has no weights")
	}

	l := log.Logger(log.LOG_CLASSIFIER)
	l.WithFields(logrus.Fields{"vocabulary": len(vocab.WordIndex), "weights": len(model.Weights)}).Info("Loaded model artifacts")

	return &Model{
		vocab:    vocab.WordIndex,
		oovIndex: vocab.OovIndex,
		weights:  model.Weights,
		bias:     model.Bias,
		l:        l,
	}, nil
}

// Score returns the phishing probability for normalized text.
func (m *Model) Score(text string) (float64, error) {
	tokens := strings.Fields(text)
	if len(tokens) > MaxSequenceLength {
		tokens = tokens[:MaxSequenceLength]
	}

	sum := m.bias
	for _, token := range tokens {
		idx, ok := m.vocab[token]
		if !ok {
			idx = m.oovIndex
		}
		if idx >= 0 && idx < len(m.weights) {
			sum += m.weights[idx]
		}
	}

	return sigmoid(sum), nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
