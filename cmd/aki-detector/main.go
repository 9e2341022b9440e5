// Copyright (C) 2024 mflvn.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// aki-detector ingests the hospital's HL7 feed over MLLP, keeps an
// in-memory view of admitted patients and their creatinine results,
// scores every new result with the trained classifier and pages
// clinicians on the first positive AKI prediction of an admission.
// State is recovered from the append-only message log on restart.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/gops/agent"
	"github.com/joho/godotenv"
	"github.com/mflvn/AKI-Detection-System/internal/alert"
	"github.com/mflvn/AKI-Detection-System/internal/config"
	"github.com/mflvn/AKI-Detection-System/internal/listener"
	"github.com/mflvn/AKI-Detection-System/internal/predictor"
	"github.com/mflvn/AKI-Detection-System/internal/storage"
	"github.com/mflvn/AKI-Detection-System/internal/taskmanager"
	"github.com/mflvn/AKI-Detection-System/internal/util"
	"github.com/mflvn/AKI-Detection-System/pkg/log"
	"github.com/mflvn/AKI-Detection-System/pkg/nats"
	"github.com/mflvn/AKI-Detection-System/pkg/runtimeEnv"
)

var version = "1.1.0"

// modelReloader recompiles the classifier artifact when its file
// changes on disk.
type modelReloader struct {
	model *predictor.RuleModel
	path  string
}

func (r *modelReloader) EventMatch(event string) bool {
	return strings.Contains(event, filepath.Base(r.path))
}

func (r *modelReloader) EventCallback() {
	if err := r.model.Reload(r.path); err != nil {
		log.Errorf("reloading model: %v", err)
		return
	}
	log.Infof("Model '%s' reloaded", r.model.Name())
}

func main() {
	cliInit()

	if flagVersion {
		fmt.Printf("aki-detector %s\n", version)
		return
	}

	log.SetLogLevel(flagLogLevel)
	log.SetLogDateTime(flagLogDateTime)

	// See https://github.com/google/gops (Runtime overhead is almost zero)
	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			log.Fatalf("gops/agent.Listen failed: %s", err.Error())
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("parsing './.env' file failed: %s", err.Error())
	}

	config.Init()
	if flagHistoryDir != "" {
		config.Keys.HistoryCSVPath = flagHistoryDir
	}

	// The classifier must load before anything else: without it the
	// paging gate cannot be recomputed during replay.
	model, err := predictor.Load(config.Keys.ModelPath)
	if err != nil {
		log.Fatalf("loading model: %s", err.Error())
	}
	util.AddListener(filepath.Dir(config.Keys.ModelPath),
		&modelReloader{model: model, path: config.Keys.ModelPath})

	store := storage.New(config.Keys.MessageLogPath, model)
	if err := store.InitialiseDatabase(config.Keys.HistoryCSVPath, flagWipeLog); err != nil {
		log.Fatalf("initialising database: %s", err.Error())
	}

	startMetricsServer(config.Keys.MetricsAddr)

	// The metrics port is taken, root is no longer needed.
	if err := runtimeEnv.DropPrivileges(config.Keys.Group, config.Keys.User); err != nil {
		log.Fatalf("error while changing user: %s", err.Error())
	}

	nats.Connect(config.Keys.NatsAddress)
	taskmanager.Start()

	pager := alert.New(config.Keys.PagerAddress)
	feed := listener.New(store, pager, config.Keys.MLLPAddress,
		config.Keys.ReconnectRetries,
		config.Keys.ReconnectStartDelay, config.Keys.ReconnectMaxDelay)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Print("graceful shutdown")
		runtimeEnv.SystemdNotifiy(false, "shutting down")
		feed.Stop()
		taskmanager.Shutdown()
		util.FsWatcherShutdown()
		nats.Shutdown()
		os.Exit(0)
	}()

	runtimeEnv.SystemdNotifiy(true, "running")
	feed.Run()

	taskmanager.Shutdown()
	util.FsWatcherShutdown()
	nats.Shutdown()
	log.Print("Graceful shutdown completed!")
}
