// Copyright (C) 2024 mflvn.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package alert pages clinicians through the hospital's alerting
// endpoint. Paging is synchronous and bounded: it blocks the caller
// for up to NumPagingRetries attempts, because a page must not race
// with subsequent test results for the same patient.
package alert

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mflvn/AKI-Detection-System/pkg/log"
	"github.com/mflvn/AKI-Detection-System/pkg/nats"
)

// NumPagingRetries bounds the attempts of a single page.
const NumPagingRetries = 10

// PageEventSubject is the NATS subject successful pages are mirrored
// to, when a NATS connection is configured.
const PageEventSubject = "aki.page"

// Manager handles the communication with the hospital's alerting
// system.
type Manager struct {
	pagerURL   string
	client     *http.Client
	retrySleep time.Duration
}

// New builds a Manager paging http://<pagerAddress>/page.
func New(pagerAddress string) *Manager {
	return &Manager{
		pagerURL:   fmt.Sprintf("http://%s/page", pagerAddress),
		client:     &http.Client{Timeout: 1 * time.Second},
		retrySleep: 1 * time.Second,
	}
}

// SendAlert pages for the given patient. The body is
// '<mrn>,<timestamp>' with the compact YYYYMMDDHHMMSS clinical
// timestamp. A status from 200 to 300 inclusive is success; other statuses sleep a second
// and retry, transport errors retry immediately. Exhausting the
// attempt budget returns an error; the caller decides whether the
// patient still counts as paged.
func (a *Manager) SendAlert(patientMRN string, timestamp string) error {
	body := patientMRN + "," + timestamp

	var lastErr error
	for attempt := 1; attempt <= NumPagingRetries; attempt++ {
		resp, err := a.client.Post(a.pagerURL, "text/plain", strings.NewReader(body))
		if err != nil {
			lastErr = err
			continue
		}

		status := resp.StatusCode
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if status >= 200 && status <= 300 {
			a.publishPageEvent(body)
			return nil
		}

		lastErr = fmt.Errorf("pager returned status %d", status)
		time.Sleep(a.retrySleep)
	}

	return fmt.Errorf("failed to page for patient %s after %d attempts: %w",
		patientMRN, NumPagingRetries, lastErr)
}

func (a *Manager) publishPageEvent(body string) {
	client := nats.GetClient()
	if client == nil {
		return
	}
	if err := client.Publish(PageEventSubject, []byte(body)); err != nil {
		log.Warnf("mirroring page event: %v", err)
	}
}
