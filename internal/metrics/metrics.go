// Copyright (C) 2024 mflvn.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics holds the process-wide Prometheus collectors. All
// pipeline components write here as a side channel; the registry is
// scraped through the HTTP server in cmd/aki-detector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Latency buckets in seconds, from sub-10ms handling up to a pager
// that exhausted all its retries.
var latencyBuckets = []float64{
	0.01, 0.05, 0.1, 0.5, 1, 2, 3, 4, 5, 10, 20, 40, 60, 120, 600, 1200,
}

// Totals spanning live processing and log replay.
var (
	SumOfAllMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sum_of_all_messages",
		Help: "Number of all messages received AND reinstated",
	})
	SumOfPositiveAKIPredictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sum_of_positive_aki_predictions",
		Help: "Number of all aki predictions from received AND reinstated",
	})
)

// Replay counters, kept separate from the live family so a restart
// does not double the observability numbers.
var (
	ReinstatedOverall = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reinstantiated_overall",
		Help: "Number of overall messages reinstantiated from log",
	})
	ReinstatedAdmission = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reinstantiated_admission",
		Help: "Number of admission messages reinstantiated",
	})
	ReinstatedDischarge = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reinstantiated_discharge",
		Help: "Number of discharge messages reinstantiated",
	})
	ReinstatedTestResult = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reinstantiated_test_result",
		Help: "Number of test result messages reinstantiated",
	})
	ReinstantiationErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reinstantiation_errors",
		Help: "Number of errors during message reinstantiation",
	})
)

// General message metrics.
var (
	SuccessfulMessageParsing = promauto.NewCounter(prometheus.CounterOpts{
		Name: "successful_message_parsing",
		Help: "Number of successful message parsing",
	})
	OverallMessagesReceived = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "overall_messages_received",
		Help: "Number of overall messages received",
	})
	OverallMessagesAcknowledged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "overall_messages_acknowledged",
		Help: "Number of overall messages acknowledged",
	})
	MessageErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "message_errors",
		Help: "Number of times a message was badly handled",
	})
	MessagesAddedToLog = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messages_added_to_log",
		Help: "Number of messages added to the log",
	})
)

// Message type and handling metrics.
var (
	AdmissionMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "admission_messages_received",
		Help: "Number of valid admission messages received",
	})
	SuccessfulAdmissionHandlings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "successful_admission_message_handlings",
		Help: "Number of valid admission messages received and handled correctly",
	})
	DischargeMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discharge_messages_received",
		Help: "Number of discharge messages received",
	})
	SuccessfulDischargeHandlings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "successful_discharge_message_handlings",
		Help: "Number of valid discharge messages received and handled correctly",
	})
	TestResultMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "test_result_messages_received",
		Help: "Number of test result messages received",
	})
	SuccessfulTestResultHandlings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "test_result_successful_handled",
		Help: "Number of test results added to currently admitted patients",
	})
)

// Predictions and pagings.
var (
	PositiveAKIPredictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "positive_aki_predictions",
		Help: "Number of positive aki predictions",
	})
	NegativeAKIPredictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "negative_aki_predictions",
		Help: "Number of negative aki predictions",
	})
	NumberOfPagings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "number_of_pagings",
		Help: "Number of times hospital staff has been paged",
	})
	FailedPagings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "failed_pagings",
		Help: "Number of times paging failed",
	})
)

// Latency metrics.
var (
	PagingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "paging_latency",
		Help:    "Time to page positive aki prediction",
		Buckets: latencyBuckets,
	})
	MessageLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "message_latency",
		Help:    "Time to process message",
		Buckets: latencyBuckets,
	})
)

// Connection and reconnection metrics.
var (
	ConnectionClosedError = promauto.NewCounter(prometheus.CounterOpts{
		Name: "connection_closed_error",
		Help: "Number of times socket connection closed",
	})
	ConnectionAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "number_of_connection_attempts",
		Help: "Number of times socket connection was attempted",
	})
)

// State directory bookkeeping, refreshed by the taskmanager worker.
var (
	MessageLogSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "message_log_size_bytes",
		Help: "Current size of the message log file",
	})
	StateDiskUsage = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "state_dir_disk_usage_mbytes",
		Help: "Disk usage of the state directory in megabytes",
	})
)
