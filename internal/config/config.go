// Copyright (C) 2024 mflvn.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"os"
	"time"
)

// ProgramConfig holds every runtime option of the detection service.
// Defaults below match the container layout used in the hospital
// deployment; the address options can be overridden via environment
// variables (see Init).
type ProgramConfig struct {
	// Address of the MLLP feed to connect to ('host:port').
	MLLPAddress string

	// Address of the pager endpoint ('host:port'). Pages are POSTed
	// to http://<PagerAddress>/page.
	PagerAddress string

	// Address the metrics/health HTTP server binds to.
	MetricsAddr string

	// Optional NATS server for mirroring page events. Empty disables it.
	NatsAddress string

	// Path to the bootstrap CSV with creatinine results from prior
	// admissions.
	HistoryCSVPath string

	// Path to the append-only message log used for crash recovery.
	MessageLogPath string

	// Path to the serialized classifier artifact.
	ModelPath string

	// Drop root permissions once the metrics port was taken.
	User  string
	Group string

	// Reconnection policy of the MLLP listener.
	ReconnectRetries    int
	ReconnectStartDelay time.Duration
	ReconnectMaxDelay   time.Duration
}

var Keys ProgramConfig = ProgramConfig{
	MLLPAddress:         "localhost:8440",
	PagerAddress:        "localhost:8441",
	MetricsAddr:         ":8000",
	NatsAddress:         "",
	HistoryCSVPath:      "/hospital-history/history.csv",
	MessageLogPath:      "/state/message_log.csv",
	ModelPath:           "model/model.json",
	ReconnectRetries:    20,
	ReconnectStartDelay: 1 * time.Second,
	ReconnectMaxDelay:   30 * time.Second,
}

// Init overrides the defaults from the process environment.
// MLLP_ADDRESS and PAGER_ADDRESS carry 'host:port' values.
func Init() {
	if v := os.Getenv("MLLP_ADDRESS"); v != "" {
		Keys.MLLPAddress = v
	}
	if v := os.Getenv("PAGER_ADDRESS"); v != "" {
		Keys.PagerAddress = v
	}
	if v := os.Getenv("NATS_ADDRESS"); v != "" {
		Keys.NatsAddress = v
	}
}
