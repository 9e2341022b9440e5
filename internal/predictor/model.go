// Copyright (C) 2024 mflvn.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package predictor wraps the pre-trained AKI classifier. The
// classifier is opaque to the rest of the pipeline: a fixed-shape
// feature vector goes in, a binary label comes out. The shipped
// implementation loads a rule artifact and compiles its decision
// expression with expr; any model with the same feature contract can
// be dropped in behind the Model interface.
package predictor

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/mflvn/AKI-Detection-System/pkg/log"
)

// NumCreatinineResults is the number of creatinine samples the
// classifier consumes; shorter histories are padded by the caller.
const NumCreatinineResults = 5

// Model classifies a feature vector [age, sex, c1..c5] into
// 0 (no AKI) or 1 (AKI).
type Model interface {
	Predict(features []float64) (int, error)
}

// ModelFile is the on-disk artifact format.
type ModelFile struct {
	// Name identifies the trained artifact version.
	Name string `json:"name"`
	// Features names the vector components, in order.
	Features []string `json:"features"`
	// Rule is the boolean decision expression over the features.
	Rule string `json:"rule"`
}

var defaultFeatures = []string{
	"age", "sex",
	"creatinine_1", "creatinine_2", "creatinine_3", "creatinine_4", "creatinine_5",
}

// RuleModel is a Model backed by a compiled decision expression.
// Reload swaps the compiled program atomically, so a model update on
// disk never changes an in-flight prediction.
type RuleModel struct {
	mu       sync.RWMutex
	name     string
	features []string
	program  *vm.Program
}

// Load reads and compiles a model artifact. A failure here is fatal
// to the caller: the service must not start without a classifier.
func Load(path string) (*RuleModel, error) {
	m := &RuleModel{}
	if err := m.Reload(path); err != nil {
		return nil, err
	}
	return m, nil
}

// Reload recompiles the artifact at path and swaps it in.
func (m *RuleModel) Reload(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading model artifact: %w", err)
	}

	var mf ModelFile
	if err := json.Unmarshal(raw, &mf); err != nil {
		return fmt.Errorf("decoding model artifact %s: %w", path, err)
	}
	if len(mf.Features) == 0 {
		mf.Features = defaultFeatures
	}
	if mf.Rule == "" {
		return fmt.Errorf("model artifact %s has no decision rule", path)
	}

	env := make(map[string]interface{}, len(mf.Features))
	for _, name := range mf.Features {
		env[name] = float64(0)
	}
	program, err := expr.Compile(mf.Rule, expr.Env(env), expr.AsBool())
	if err != nil {
		return fmt.Errorf("compiling model rule: %w", err)
	}

	m.mu.Lock()
	m.name = mf.Name
	m.features = mf.Features
	m.program = program
	m.mu.Unlock()

	log.Infof("Loaded model '%s' with %d features", mf.Name, len(mf.Features))
	return nil
}

// Name returns the loaded artifact's version name.
func (m *RuleModel) Name() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.name
}

func (m *RuleModel) Predict(features []float64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(features) != len(m.features) {
		return 0, fmt.Errorf("model '%s' expects %d features, got %d",
			m.name, len(m.features), len(features))
	}

	env := make(map[string]interface{}, len(features))
	for i, name := range m.features {
		env[name] = features[i]
	}

	out, err := expr.Run(m.program, env)
	if err != nil {
		return 0, fmt.Errorf("evaluating model '%s': %w", m.name, err)
	}
	if out.(bool) {
		return 1, nil
	}
	return 0, nil
}
