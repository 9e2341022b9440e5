// Copyright (C) 2024 mflvn.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mflvn/AKI-Detection-System/internal/hospital"
	"github.com/mflvn/AKI-Detection-System/internal/metrics"
	"github.com/mflvn/AKI-Detection-System/pkg/log"
)

// Message log row layout. The timestamp column is wall clock at the
// moment of logging, not the clinical time carried by the message.
var logFields = []string{"timestamp", "type", "mrn", "additional_info"}

const (
	typeAdmission  = "PatientAdmission"
	typeDischarge  = "PatientDischarge"
	typeTestResult = "TestResult"

	logTimeLayout = "2006-01-02 15:04:05"
)

// AppendToLog serializes msg into a single CSV row at the end of the
// message log. The file is opened and closed per call so every
// accepted message reaches the disk as one atomic line write.
func (m *Manager) AppendToLog(msg hospital.Message) error {
	row, err := logRow(msg, time.Now())
	if err != nil {
		return err
	}

	f, err := os.OpenFile(m.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening message log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		return fmt.Errorf("appending to message log: %w", err)
	}
	w.Flush()
	return w.Error()
}

func logRow(msg hospital.Message, now time.Time) ([]string, error) {
	ts := now.Format(logTimeLayout)
	switch v := msg.(type) {
	case hospital.AdmissionMessage:
		info := fmt.Sprintf("Name: %s. DOB: %s. Sex: %s", v.Name, v.DateOfBirth, v.Sex)
		return []string{ts, typeAdmission, v.MRN, info}, nil
	case hospital.DischargeMessage:
		return []string{ts, typeDischarge, v.MRN, ""}, nil
	case hospital.TestResultMessage:
		info := fmt.Sprintf("Test Date: %s. Test Time: %s. Creatinine Value: %s",
			v.TestDate, v.TestTime, formatCreatinine(v.CreatinineValue))
		return []string{ts, typeTestResult, v.MRN, info}, nil
	default:
		return nil, fmt.Errorf("cannot serialize message of type %T", msg)
	}
}

// writeLogHeader creates (or truncates) the message log and writes
// its header row.
func (m *Manager) writeLogHeader() error {
	f, err := os.Create(m.logPath)
	if err != nil {
		return fmt.Errorf("creating message log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(logFields); err != nil {
		return fmt.Errorf("writing message log header: %w", err)
	}
	w.Flush()
	return w.Error()
}

// reinstateAllPastMessages replays the message log in file order to
// rebuild the current-patients map. Positive predictions are
// recomputed so the paging gate survives a restart, but the pager is
// never invoked here, and discharges do not touch the history map:
// the bootstrap CSV is the authoritative source of pre-admission
// history, and re-deriving it from log discharges would double-count.
func (m *Manager) reinstateAllPastMessages() error {
	f, err := os.Open(m.logPath)
	if err != nil {
		return fmt.Errorf("opening message log for replay: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)

	// Skip the header row.
	if _, err := r.Read(); err != nil && err != io.EOF {
		return fmt.Errorf("reading message log header: %w", err)
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading message log: %w", err)
		}

		metrics.SumOfAllMessages.Inc()
		metrics.ReinstatedOverall.Inc()
		m.reinstate(row[1], row[2], row[3])
	}
}

func (m *Manager) reinstate(messageType, mrn, info string) {
	switch messageType {
	case typeAdmission:
		name, dob, sex, err := parseAdmissionInfo(info)
		if err != nil {
			log.Warnf("replay: %v", err)
			metrics.ReinstantiationErrors.Inc()
			return
		}
		m.AddAdmission(hospital.NewAdmission(mrn, name, dob, sex))
		metrics.ReinstatedAdmission.Inc()

	case typeDischarge:
		// No history update on replay.
		if err := m.RemovePatient(hospital.NewDischarge(mrn)); err != nil {
			metrics.ReinstantiationErrors.Inc()
			return
		}
		metrics.ReinstatedDischarge.Inc()

	case typeTestResult:
		msg, err := parseTestResultInfo(mrn, info)
		if err != nil {
			log.Warnf("replay: %v", err)
			metrics.ReinstantiationErrors.Inc()
			return
		}
		if err := m.AddTestResult(msg); err != nil {
			metrics.ReinstantiationErrors.Inc()
			return
		}
		metrics.ReinstatedTestResult.Inc()

		if m.NoPositiveSoFar(mrn) {
			prediction, err := m.PredictAKI(mrn)
			if err != nil {
				log.Warnf("replay: predicting for %s: %v", mrn, err)
				return
			}
			if prediction == 1 {
				m.MarkPositive(mrn)
				metrics.SumOfPositiveAKIPredictions.Inc()
			}
		}

	default:
		metrics.ReinstantiationErrors.Inc()
	}
}

func parseAdmissionInfo(info string) (name, dob, sex string, err error) {
	parts := strings.Split(info, ". ")
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("malformed admission info: %q", info)
	}
	name, err = infoValue(parts[0])
	if err != nil {
		return "", "", "", err
	}
	dob, err = infoValue(parts[1])
	if err != nil {
		return "", "", "", err
	}
	sex, err = infoValue(parts[2])
	if err != nil {
		return "", "", "", err
	}
	return name, dob, sex, nil
}

func parseTestResultInfo(mrn, info string) (hospital.TestResultMessage, error) {
	parts := strings.Split(info, ". ")
	if len(parts) != 3 {
		return hospital.TestResultMessage{}, fmt.Errorf("malformed test result info: %q", info)
	}
	testDate, err := infoValue(parts[0])
	if err != nil {
		return hospital.TestResultMessage{}, err
	}
	testTime, err := infoValue(parts[1])
	if err != nil {
		return hospital.TestResultMessage{}, err
	}
	rawValue, err := infoValue(parts[2])
	if err != nil {
		return hospital.TestResultMessage{}, err
	}
	value, err := strconv.ParseFloat(rawValue, 64)
	if err != nil {
		return hospital.TestResultMessage{}, fmt.Errorf("malformed creatinine value %q: %w", rawValue, err)
	}
	return hospital.NewTestResult(mrn, testDate, testTime, value), nil
}

// infoValue extracts the value from a 'Key: value' pair.
func infoValue(part string) (string, error) {
	_, value, found := strings.Cut(part, ": ")
	if !found {
		return "", fmt.Errorf("malformed info field: %q", part)
	}
	return value, nil
}

func formatCreatinine(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
