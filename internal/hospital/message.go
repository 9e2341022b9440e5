// Copyright (C) 2024 mflvn.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package hospital defines the three message variants flowing through
// the detection pipeline. Values are frozen at construction; all
// downstream components pass them by value.
package hospital

import "strings"

// Message is implemented by the three hospital message variants.
type Message interface {
	message()
}

// AdmissionMessage records a patient entering the hospital (ADT^A01).
type AdmissionMessage struct {
	MRN         string
	Name        string
	DateOfBirth string // '2021-01-01'
	Sex         string // 'M' or 'F'
}

// DischargeMessage records a patient leaving the hospital (ADT^A03).
type DischargeMessage struct {
	MRN string
}

// TestResultMessage records a creatinine result (ORU^R01).
// Timestamp is the compact 'YYYYMMDDHHMMSS' form of TestDate and
// TestTime and is what the pager receives.
type TestResultMessage struct {
	MRN             string
	TestDate        string // '2021-01-01'
	TestTime        string // '08:00:00'
	CreatinineValue float64
	Timestamp       string
}

func (AdmissionMessage) message()  {}
func (DischargeMessage) message()  {}
func (TestResultMessage) message() {}

func NewAdmission(mrn, name, dateOfBirth, sex string) AdmissionMessage {
	return AdmissionMessage{MRN: mrn, Name: name, DateOfBirth: dateOfBirth, Sex: sex}
}

func NewDischarge(mrn string) DischargeMessage {
	return DischargeMessage{MRN: mrn}
}

func NewTestResult(mrn, testDate, testTime string, creatinineValue float64) TestResultMessage {
	return TestResultMessage{
		MRN:             mrn,
		TestDate:        testDate,
		TestTime:        testTime,
		CreatinineValue: creatinineValue,
		Timestamp:       strings.ReplaceAll(testDate, "-", "") + strings.ReplaceAll(testTime, ":", ""),
	}
}
