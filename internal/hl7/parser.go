// Copyright (C) 2024 mflvn.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package hl7 turns deframed HL7 v2 segment lists into hospital
// message values. Only the three transaction types the feed emits are
// understood; everything else is a parse error that the listener
// counts and acknowledges without touching state.
package hl7

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mflvn/AKI-Detection-System/internal/hospital"
	"github.com/mflvn/AKI-Detection-System/internal/metrics"
)

// Segment type and field positions per the HL7 v2.5 grammar the feed
// uses: message type in MSH field 8, MRN in PID field 3, observation
// timestamp in OBR field 7, result value in OBX field 5.
const (
	mshTypeField  = 8
	pidMRNField   = 3
	pidNameField  = 5
	pidDOBField   = 7
	pidSexField   = 8
	obrTimeField  = 7
	obxValueField = 5
)

// MaxCreatinineValue is the ceiling imposed on reported results
// before they reach storage.
const MaxCreatinineValue = 200.0

// Parse maps an HL7 segment list onto one of the three hospital
// message variants.
func Parse(segments []string) (hospital.Message, error) {
	msg, err := parse(segments)
	if err != nil {
		return nil, err
	}
	metrics.SuccessfulMessageParsing.Inc()
	return msg, nil
}

func parse(segments []string) (hospital.Message, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("empty HL7 message")
	}
	msh := strings.Split(segments[0], "|")
	if len(msh) <= mshTypeField {
		return nil, fmt.Errorf("malformed MSH segment: %q", segments[0])
	}

	switch messageType := msh[mshTypeField]; messageType {
	case "ADT^A01":
		return parseAdmission(segments)
	case "ADT^A03":
		return parseDischarge(segments)
	case "ORU^R01":
		return parseTestResult(segments)
	default:
		return nil, fmt.Errorf("unknown message type: %s", messageType)
	}
}

func parseAdmission(segments []string) (hospital.Message, error) {
	pid, err := splitSegment(segments, 1, "PID", pidSexField)
	if err != nil {
		return nil, err
	}
	dob := pid[pidDOBField]
	if len(dob) < 8 {
		return nil, fmt.Errorf("malformed date of birth: %q", dob)
	}
	dob = dob[0:4] + "-" + dob[4:6] + "-" + dob[6:8]
	return hospital.NewAdmission(pid[pidMRNField], pid[pidNameField], dob, pid[pidSexField]), nil
}

func parseDischarge(segments []string) (hospital.Message, error) {
	pid, err := splitSegment(segments, 1, "PID", pidMRNField)
	if err != nil {
		return nil, err
	}
	return hospital.NewDischarge(pid[pidMRNField]), nil
}

func parseTestResult(segments []string) (hospital.Message, error) {
	pid, err := splitSegment(segments, 1, "PID", pidMRNField)
	if err != nil {
		return nil, err
	}
	obr, err := splitSegment(segments, 2, "OBR", obrTimeField)
	if err != nil {
		return nil, err
	}
	obx, err := splitSegment(segments, 3, "OBX", obxValueField)
	if err != nil {
		return nil, err
	}

	raw := obr[obrTimeField]
	if len(raw) < 14 {
		return nil, fmt.Errorf("malformed observation timestamp: %q", raw)
	}
	testDate := raw[0:4] + "-" + raw[4:6] + "-" + raw[6:8]
	testTime := raw[8:10] + ":" + raw[10:12] + ":" + raw[12:]

	value, err := strconv.ParseFloat(obx[obxValueField], 64)
	if err != nil {
		return nil, fmt.Errorf("malformed creatinine value: %w", err)
	}
	value = min(value, MaxCreatinineValue)

	return hospital.NewTestResult(pid[pidMRNField], testDate, testTime, value), nil
}

// splitSegment splits segments[index] on '|' and verifies the result
// reaches at least field maxField.
func splitSegment(segments []string, index int, name string, maxField int) ([]string, error) {
	if len(segments) <= index {
		return nil, fmt.Errorf("message is missing its %s segment", name)
	}
	fields := strings.Split(segments[index], "|")
	if len(fields) <= maxField {
		return nil, fmt.Errorf("malformed %s segment: %q", name, segments[index])
	}
	return fields, nil
}
