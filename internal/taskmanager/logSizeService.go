// Copyright (C) 2024 mflvn.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package taskmanager

import (
	"path/filepath"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/mflvn/AKI-Detection-System/internal/config"
	"github.com/mflvn/AKI-Detection-System/internal/metrics"
	"github.com/mflvn/AKI-Detection-System/internal/util"
	"github.com/mflvn/AKI-Detection-System/pkg/log"
)

// RegisterLogSizeWorker keeps the message-log size and state
// directory disk usage gauges current.
func RegisterLogSizeWorker() {
	frequency := 1 * time.Minute
	log.Infof("Register log size service with %s interval", frequency)

	s.NewJob(gocron.DurationJob(frequency),
		gocron.NewTask(
			func() {
				logPath := config.Keys.MessageLogPath
				if util.CheckFileExists(logPath) {
					metrics.MessageLogSize.Set(float64(util.GetFilesize(logPath)))
				}
				metrics.StateDiskUsage.Set(util.DiskUsage(filepath.Dir(logPath)))
			}))
}
