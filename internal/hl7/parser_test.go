// Copyright (C) 2024 mflvn.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package hl7_test

import (
	"testing"

	"github.com/mflvn/AKI-Detection-System/internal/hl7"
	"github.com/mflvn/AKI-Detection-System/internal/hospital"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAdmissionMessage(t *testing.T) {
	segments := []string{
		"MSH|^~\\&|SIMULATION|SOUTH RIVERSIDE|||20240102135300||ADT^A01|||2.5",
		"PID|1||497030||ROSCOE DOHERTY||19870515|M",
	}

	msg, err := hl7.Parse(segments)
	require.NoError(t, err)

	admission, ok := msg.(hospital.AdmissionMessage)
	require.True(t, ok, "expected an admission message, got %T", msg)
	assert.Equal(t, hospital.NewAdmission("497030", "ROSCOE DOHERTY", "1987-05-15", "M"), admission)
}

func TestParseDischargeMessage(t *testing.T) {
	segments := []string{
		"MSH|^~\\&|SIMULATION|SOUTH RIVERSIDE|||20240804082900||ADT^A03|||2.5",
		"PID|1||583036",
	}

	msg, err := hl7.Parse(segments)
	require.NoError(t, err)

	discharge, ok := msg.(hospital.DischargeMessage)
	require.True(t, ok, "expected a discharge message, got %T", msg)
	assert.Equal(t, "583036", discharge.MRN)
}

func TestParseTestResultMessage(t *testing.T) {
	segments := []string{
		"MSH|^~\\&|SIMULATION|SOUTH RIVERSIDE|||20240804082600||ORU^R01|||2.5",
		"PID|1||853291",
		"OBR|1||||||20240804082600",
		"OBX|1|SN|CREATININE||80.3",
	}

	msg, err := hl7.Parse(segments)
	require.NoError(t, err)

	result, ok := msg.(hospital.TestResultMessage)
	require.True(t, ok, "expected a test result message, got %T", msg)
	assert.Equal(t, "853291", result.MRN)
	assert.Equal(t, "2024-08-04", result.TestDate)
	assert.Equal(t, "08:26:00", result.TestTime)
	assert.Equal(t, 80.3, result.CreatinineValue)
}

// The compact observation timestamp must survive the split into date
// and time unchanged.
func TestParseTestResultTimestampRoundTrip(t *testing.T) {
	segments := []string{
		"MSH|^~\\&|SIMULATION|SOUTH RIVERSIDE|||20240804082600||ORU^R01|||2.5",
		"PID|1||853291",
		"OBR|1||||||20240804082600",
		"OBX|1|SN|CREATININE||80.36829888959176",
	}

	msg, err := hl7.Parse(segments)
	require.NoError(t, err)

	result := msg.(hospital.TestResultMessage)
	assert.Equal(t, "20240804082600", result.Timestamp)
	assert.Equal(t, 80.36829888959176, result.CreatinineValue)
}

func TestParseClampsCreatinineValue(t *testing.T) {
	segments := []string{
		"MSH|^~\\&|SIMULATION|SOUTH RIVERSIDE|||20240804082600||ORU^R01|||2.5",
		"PID|1||853291",
		"OBR|1||||||20240804082600",
		"OBX|1|SN|CREATININE||243.68",
	}

	msg, err := hl7.Parse(segments)
	require.NoError(t, err)
	assert.Equal(t, 200.0, msg.(hospital.TestResultMessage).CreatinineValue)
}

func TestParseRejectsUnknownMessageType(t *testing.T) {
	segments := []string{
		"MSH|^~\\&|SIMULATION|SOUTH RIVERSIDE|||20240804082600||ORM^O01|||2.5",
		"PID|1||853291",
	}

	_, err := hl7.Parse(segments)
	assert.ErrorContains(t, err, "unknown message type")
}

func TestParseRejectsMalformedSegments(t *testing.T) {
	cases := map[string][]string{
		"empty message":  {},
		"truncated MSH":  {"MSH|^~\\&|SIMULATION"},
		"missing PID":    {"MSH|^~\\&|SIMULATION|SOUTH RIVERSIDE|||20240102135300||ADT^A01|||2.5"},
		"truncated PID":  {"MSH|^~\\&|SIMULATION|SOUTH RIVERSIDE|||20240102135300||ADT^A01|||2.5", "PID|1"},
		"missing OBX":    {"MSH|^~\\&|SIMULATION|SOUTH RIVERSIDE|||20240804082600||ORU^R01|||2.5", "PID|1||853291", "OBR|1||||||20240804082600"},
		"bad value":      {"MSH|^~\\&|SIMULATION|SOUTH RIVERSIDE|||20240804082600||ORU^R01|||2.5", "PID|1||853291", "OBR|1||||||20240804082600", "OBX|1|SN|CREATININE||abc"},
		"short OBR time": {"MSH|^~\\&|SIMULATION|SOUTH RIVERSIDE|||20240804082600||ORU^R01|||2.5", "PID|1||853291", "OBR|1||||||2024", "OBX|1|SN|CREATININE||80.3"},
	}

	for name, segments := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := hl7.Parse(segments)
			assert.Error(t, err)
		})
	}
}
