// Copyright (C) 2024 mflvn.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package storage owns the in-memory view of currently admitted
// patients and their creatinine history, the append-only message log
// the view is rebuilt from after a crash, and the gate that limits
// AKI paging to once per admission episode.
//
// All maps are owned by the listener goroutine; no locking is needed
// as long as mutation stays on that single writer.
package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/mflvn/AKI-Detection-System/internal/hospital"
	"github.com/mflvn/AKI-Detection-System/internal/predictor"
	"github.com/mflvn/AKI-Detection-System/internal/util"
)

// Patient is one entry of the current-patients map.
type Patient struct {
	Name        string
	DateOfBirth string
	Sex         string

	// CreatinineResults is append-only during an admission. It is
	// seeded from the history map on admission and copied back on a
	// live discharge.
	CreatinineResults []float64

	// PreviousPositiveAKIPrediction only ever flips false to true
	// within an admission; discharge erases it with the record.
	PreviousPositiveAKIPrediction bool
}

// Manager holds the patient state and drives predictions.
type Manager struct {
	// history keeps creatinine results known from prior admissions,
	// keyed by MRN. Populated from the bootstrap CSV and, during live
	// processing only, at discharge time.
	history map[string][]float64

	// patients keys the currently admitted patients by MRN.
	patients map[string]*Patient

	logPath string
	model   predictor.Model
}

func New(logPath string, model predictor.Model) *Manager {
	return &Manager{
		history:  make(map[string][]float64),
		patients: make(map[string]*Patient),
		logPath:  logPath,
		model:    model,
	}
}

// AddAdmission creates the patient's current record. If the history
// map knows the MRN, the record starts with a snapshot of those
// results. A re-admission of an already present MRN overwrites the
// old record.
func (m *Manager) AddAdmission(msg hospital.AdmissionMessage) {
	results := []float64{}
	if known, ok := m.history[msg.MRN]; ok {
		results = append([]float64(nil), known...)
	}
	m.patients[msg.MRN] = &Patient{
		Name:              msg.Name,
		DateOfBirth:       msg.DateOfBirth,
		Sex:               msg.Sex,
		CreatinineResults: results,
	}
}

// AddTestResult appends the creatinine value to the admitted
// patient's sequence.
func (m *Manager) AddTestResult(msg hospital.TestResultMessage) error {
	patient, ok := m.patients[msg.MRN]
	if !ok {
		return fmt.Errorf("the lab results of patient %s cannot be processed, "+
			"since there is no record of an HL7 admission message for this patient", msg.MRN)
	}
	patient.CreatinineResults = append(patient.CreatinineResults, msg.CreatinineValue)
	return nil
}

// RemovePatient deletes the admitted patient's record. Copying the
// departing results into the history map is UpdateHistory's job and
// must happen before this call during live processing; replay skips
// it (see reinstateAllPastMessages).
func (m *Manager) RemovePatient(msg hospital.DischargeMessage) error {
	if _, ok := m.patients[msg.MRN]; !ok {
		return fmt.Errorf("the discharge of patient %s cannot be processed, "+
			"since there is no record of an HL7 admission message for this patient", msg.MRN)
	}
	delete(m.patients, msg.MRN)
	return nil
}

// UpdateHistory stores a snapshot of the departing patient's
// accumulated results in the history map.
func (m *Manager) UpdateHistory(msg hospital.DischargeMessage) error {
	patient, ok := m.patients[msg.MRN]
	if !ok {
		return fmt.Errorf("the discharge of patient %s cannot be processed, "+
			"since there is no record of an HL7 admission message for this patient", msg.MRN)
	}
	m.history[msg.MRN] = append([]float64(nil), patient.CreatinineResults...)
	return nil
}

// GetPatient returns a copy of the admitted patient's record.
func (m *Manager) GetPatient(mrn string) (Patient, bool) {
	patient, ok := m.patients[mrn]
	if !ok {
		return Patient{}, false
	}
	snapshot := *patient
	snapshot.CreatinineResults = append([]float64(nil), patient.CreatinineResults...)
	return snapshot, true
}

// GetHistory returns a copy of the creatinine results known for the
// MRN from prior admissions.
func (m *Manager) GetHistory(mrn string) ([]float64, bool) {
	known, ok := m.history[mrn]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), known...), true
}

// NoPositiveSoFar reports whether the admitted patient has not yet
// triggered a positive AKI prediction.
func (m *Manager) NoPositiveSoFar(mrn string) bool {
	patient, ok := m.patients[mrn]
	return ok && !patient.PreviousPositiveAKIPrediction
}

// MarkPositive records that a positive AKI prediction was triggered.
func (m *Manager) MarkPositive(mrn string) {
	if patient, ok := m.patients[mrn]; ok {
		patient.PreviousPositiveAKIPrediction = true
	}
}

// PredictAKI builds the feature vector for the admitted patient and
// delegates to the model. The creatinine features are the last five
// results; shorter sequences are right-padded by repeating the last
// value.
func (m *Manager) PredictAKI(mrn string) (int, error) {
	patient, ok := m.patients[mrn]
	if !ok {
		return 0, fmt.Errorf("patient with MRN %s not found in current patients", mrn)
	}
	if len(patient.CreatinineResults) == 0 {
		return 0, fmt.Errorf("patient %s has no creatinine results to predict from", mrn)
	}

	age, err := determineAge(patient.DateOfBirth, time.Now())
	if err != nil {
		return 0, err
	}
	sex := 1.0
	if strings.ToLower(patient.Sex) == "m" {
		sex = 0.0
	}

	features := make([]float64, 0, 2+predictor.NumCreatinineResults)
	features = append(features, float64(age), sex)
	features = append(features, recentResults(patient.CreatinineResults)...)

	return m.model.Predict(features)
}

// InitialiseDatabase loads the bootstrap history CSV and prepares the
// message log: a missing log file is created with its header row, an
// existing one is either wiped (wipeLog) or replayed into memory.
func (m *Manager) InitialiseDatabase(historyPath string, wipeLog bool) error {
	if err := m.loadHistory(historyPath); err != nil {
		return err
	}

	if !util.CheckFileExists(m.logPath) || wipeLog {
		return m.writeLogHeader()
	}
	return m.reinstateAllPastMessages()
}

// recentResults returns the last NumCreatinineResults values,
// right-padding shorter sequences with their final value.
func recentResults(results []float64) []float64 {
	n := predictor.NumCreatinineResults
	if len(results) >= n {
		return results[len(results)-n:]
	}
	recent := append([]float64(nil), results...)
	for len(recent) < n {
		recent = append(recent, recent[len(recent)-1])
	}
	return recent
}

// determineAge computes full years between the date of birth and now.
func determineAge(dateOfBirth string, now time.Time) (int, error) {
	dob, err := time.Parse("2006-01-02", dateOfBirth)
	if err != nil {
		return 0, fmt.Errorf("malformed date of birth %q: %w", dateOfBirth, err)
	}
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age, nil
}
