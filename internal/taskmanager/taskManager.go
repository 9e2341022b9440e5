// Copyright (C) 2024 mflvn.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package taskmanager schedules the service's background workers on a
// gocron scheduler. Workers only read state or update gauges; the
// patient maps stay owned by the listener.
package taskmanager

import (
	"github.com/go-co-op/gocron/v2"
	"github.com/mflvn/AKI-Detection-System/pkg/log"
)

var s gocron.Scheduler

// Start creates the scheduler and registers all workers.
func Start() {
	var err error
	s, err = gocron.NewScheduler()
	if err != nil {
		log.Fatalf("Taskmanager Start: Could not create gocron scheduler.\nError: %s\n", err.Error())
	}

	RegisterLogSizeWorker()

	s.Start()
}

// Shutdown stops the task manager and its scheduler.
func Shutdown() {
	if s != nil {
		s.Shutdown()
	}
}
