// Copyright (C) 2024 mflvn.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/mflvn/AKI-Detection-System/pkg/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// startMetricsServer binds the metrics/health HTTP server and serves
// it on a background goroutine. The metrics worker only reads
// counter/gauge/histogram state, which the Prometheus client makes
// safe against the listener's writes. A bind failure is fatal: an
// unobservable instance must not run.
func startMetricsServer(addr string) *http.Server {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.HandleFunc("/health", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Add("Content-Type", "application/json")
		json.NewEncoder(rw).Encode(map[string]string{"status": "ok"})
	})
	router.Use(handlers.RecoveryHandler(handlers.PrintRecoveryStack(true)))

	handler := handlers.CustomLoggingHandler(io.Discard, router, func(_ io.Writer, params handlers.LogFormatterParams) {
		if strings.HasPrefix(params.Request.RequestURI, "/metrics") {
			log.Debugf("%s %s (%d, %.02fkb, %dms)",
				params.Request.Method, params.URL.RequestURI(),
				params.StatusCode, float32(params.Size)/1024,
				time.Since(params.TimeStamp).Milliseconds())
		}
	})

	server := &http.Server{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		Handler:      handler,
		Addr:         addr,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("starting metrics server: %s", err.Error())
	}
	log.Printf("Metrics server listening at %s...", addr)

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	return server
}
