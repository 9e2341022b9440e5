// Copyright (C) 2024 mflvn.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mflvn/AKI-Detection-System/internal/hospital"
	"github.com/mflvn/AKI-Detection-System/internal/predictor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubModel records the feature vectors it was asked about and
// answers with a fixed label.
type stubModel struct {
	label    int
	features [][]float64
}

func (s *stubModel) Predict(features []float64) (int, error) {
	s.features = append(s.features, append([]float64(nil), features...))
	return s.label, nil
}

func newTestManager(t *testing.T, model predictor.Model) *Manager {
	t.Helper()
	if model == nil {
		model = &stubModel{}
	}
	return New(filepath.Join(t.TempDir(), "message_log.csv"), model)
}

func loadRatioModel(t *testing.T) *predictor.RuleModel {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"name": "aki-ratio-v1",
		"features": ["age", "sex", "creatinine_1", "creatinine_2", "creatinine_3", "creatinine_4", "creatinine_5"],
		"rule": "creatinine_5 > 1.4 * ((creatinine_1 + creatinine_2 + creatinine_3 + creatinine_4) / 4.0)"
	}`), 0o644))
	model, err := predictor.Load(path)
	require.NoError(t, err)
	return model
}

// A patient's lab results must survive discharge and be accessible on
// re-admission through the history map.
func TestPatientDataPersistenceAcrossAdmissions(t *testing.T) {
	m := newTestManager(t, nil)

	m.AddAdmission(hospital.NewAdmission("001", "John Doe", "1980-01-01", "M"))
	require.NoError(t, m.AddTestResult(hospital.NewTestResult("001", "2023-01-01", "08:00", 1.2)))

	patient := m.patients["001"]
	require.NotNil(t, patient)
	assert.Equal(t, &Patient{
		Name:              "John Doe",
		DateOfBirth:       "1980-01-01",
		Sex:               "M",
		CreatinineResults: []float64{1.2},
	}, patient)

	require.NoError(t, m.UpdateHistory(hospital.NewDischarge("001")))
	require.NoError(t, m.RemovePatient(hospital.NewDischarge("001")))

	m.AddAdmission(hospital.NewAdmission("001", "John Doe", "1980-01-01", "M"))
	assert.Equal(t, []float64{1.2}, m.patients["001"].CreatinineResults)
}

func TestAddTestResultRequiresAdmission(t *testing.T) {
	m := newTestManager(t, nil)
	assert.Error(t, m.AddTestResult(hospital.NewTestResult("404", "2023-01-01", "08:00", 1.2)))
}

func TestRemovePatientRequiresAdmission(t *testing.T) {
	m := newTestManager(t, nil)
	assert.Error(t, m.RemovePatient(hospital.NewDischarge("404")))
	assert.Error(t, m.UpdateHistory(hospital.NewDischarge("404")))
}

func TestReadmissionOverwritesRecord(t *testing.T) {
	m := newTestManager(t, nil)

	m.AddAdmission(hospital.NewAdmission("007", "Jane Doe", "1991-01-01", "F"))
	require.NoError(t, m.AddTestResult(hospital.NewTestResult("007", "2023-01-01", "08:00", 2.5)))
	m.MarkPositive("007")

	m.AddAdmission(hospital.NewAdmission("007", "Jane Doe", "1991-01-01", "F"))
	assert.Empty(t, m.patients["007"].CreatinineResults)
	assert.True(t, m.NoPositiveSoFar("007"))
}

func TestPredictAKIPositiveCase(t *testing.T) {
	m := newTestManager(t, loadRatioModel(t))
	m.patients["12345"] = &Patient{
		Name:              "Jane Doe",
		DateOfBirth:       "1990-01-01",
		Sex:               "f",
		CreatinineResults: []float64{60.7, 62.3, 53, 80, 165, 204.56},
	}

	prediction, err := m.PredictAKI("12345")
	require.NoError(t, err)
	assert.Equal(t, 1, prediction)
}

func TestPredictAKINegativeCase(t *testing.T) {
	m := newTestManager(t, loadRatioModel(t))
	m.patients["654321"] = &Patient{
		Name:              "Jon Doe",
		DateOfBirth:       "1950-01-01",
		Sex:               "m",
		CreatinineResults: []float64{60.7, 60.7, 61.7},
	}

	prediction, err := m.PredictAKI("654321")
	require.NoError(t, err)
	assert.Equal(t, 0, prediction)
}

// Short creatinine sequences are right-padded with their last value
// until the model's expected five samples are reached.
func TestPredictAKIPadsShortSequences(t *testing.T) {
	model := &stubModel{}
	m := newTestManager(t, model)
	m.patients["001"] = &Patient{
		Name:              "John Doe",
		DateOfBirth:       "1980-01-01",
		Sex:               "M",
		CreatinineResults: []float64{1.0, 2.0},
	}

	_, err := m.PredictAKI("001")
	require.NoError(t, err)

	require.Len(t, model.features, 1)
	assert.Equal(t, []float64{1.0, 2.0, 2.0, 2.0, 2.0}, model.features[0][2:])
	// sex code: 0 for male
	assert.Equal(t, 0.0, model.features[0][1])
}

func TestPredictAKIUsesLastFiveResults(t *testing.T) {
	model := &stubModel{}
	m := newTestManager(t, model)
	m.patients["002"] = &Patient{
		Name:              "Jane Doe",
		DateOfBirth:       "1990-01-01",
		Sex:               "F",
		CreatinineResults: []float64{1, 2, 3, 4, 5, 6, 7},
	}

	_, err := m.PredictAKI("002")
	require.NoError(t, err)

	require.Len(t, model.features, 1)
	assert.Equal(t, []float64{3, 4, 5, 6, 7}, model.features[0][2:])
	assert.Equal(t, 1.0, model.features[0][1])
}

func TestPredictAKIRequiresResults(t *testing.T) {
	m := newTestManager(t, nil)
	m.patients["003"] = &Patient{Name: "John Doe", DateOfBirth: "1980-01-01", Sex: "M"}

	_, err := m.PredictAKI("003")
	assert.Error(t, err)

	_, err = m.PredictAKI("404")
	assert.Error(t, err)
}

func TestPositiveFlagIsMonotonic(t *testing.T) {
	m := newTestManager(t, nil)
	m.AddAdmission(hospital.NewAdmission("001", "John Doe", "1980-01-01", "M"))

	assert.True(t, m.NoPositiveSoFar("001"))
	m.MarkPositive("001")
	assert.False(t, m.NoPositiveSoFar("001"))

	// Further results never reset the flag.
	require.NoError(t, m.AddTestResult(hospital.NewTestResult("001", "2023-01-01", "08:00", 1.2)))
	assert.False(t, m.NoPositiveSoFar("001"))
}

func TestDetermineAge(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	age, err := determineAge("1990-06-15", now)
	require.NoError(t, err)
	assert.Equal(t, 34, age)

	age, err = determineAge("1990-06-16", now)
	require.NoError(t, err)
	assert.Equal(t, 33, age)

	_, err = determineAge("not-a-date", now)
	assert.Error(t, err)
}

func TestLogRowGrammar(t *testing.T) {
	now := time.Date(2024, 2, 1, 13, 53, 0, 0, time.UTC)

	row, err := logRow(hospital.NewAdmission("497030", "ROSCOE DOHERTY", "1987-05-15", "M"), now)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"2024-02-01 13:53:00", "PatientAdmission", "497030",
		"Name: ROSCOE DOHERTY. DOB: 1987-05-15. Sex: M",
	}, row)

	row, err = logRow(hospital.NewDischarge("497030"), now)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-02-01 13:53:00", "PatientDischarge", "497030", ""}, row)

	row, err = logRow(hospital.NewTestResult("853291", "2024-08-04", "08:26:00", 80.3), now)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"2024-02-01 13:53:00", "TestResult", "853291",
		"Test Date: 2024-08-04. Test Time: 08:26:00. Creatinine Value: 80.3",
	}, row)
}
