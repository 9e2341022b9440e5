// Copyright (C) 2024 mflvn.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package listener drives the MLLP connection to the hospital feed:
// it reads frames, parses them, applies them to storage, pages on
// positive predictions and acknowledges every inbound message.
//
// The loop processes one message end-to-end before reading the next;
// frames decoded from a single read wait in the decoder and are handled
// one per cycle before the socket is read again, so back-pressure is the
// TCP receive window. A slow pager therefore stalls ingestion, which
// is deliberate: a page must complete before further results for the
// same patient are looked at.
package listener

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mflvn/AKI-Detection-System/internal/hl7"
	"github.com/mflvn/AKI-Detection-System/internal/hospital"
	"github.com/mflvn/AKI-Detection-System/internal/metrics"
	"github.com/mflvn/AKI-Detection-System/internal/mllp"
	"github.com/mflvn/AKI-Detection-System/internal/storage"
	"github.com/mflvn/AKI-Detection-System/pkg/log"
)

// Pager is the alerting capability the listener needs.
type Pager interface {
	SendAlert(patientMRN string, timestamp string) error
}

// Listener owns the feed socket and the decode buffer.
type Listener struct {
	storage *storage.Manager
	pager   Pager

	address    string
	retries    int
	startDelay time.Duration
	maxDelay   time.Duration

	stopping atomic.Bool

	mu   sync.Mutex
	conn net.Conn

	dec mllp.Decoder
}

// New builds a listener connecting to address ('host:port') with the
// given reconnect policy.
func New(store *storage.Manager, pager Pager, address string,
	retries int, startDelay, maxDelay time.Duration,
) *Listener {
	return &Listener{
		storage:    store,
		pager:      pager,
		address:    address,
		retries:    retries,
		startDelay: startDelay,
		maxDelay:   maxDelay,
	}
}

// Stop flags the listener to terminate and unblocks a pending read.
func (l *Listener) Stop() {
	l.stopping.Store(true)
	l.mu.Lock()
	if l.conn != nil {
		l.conn.Close()
	}
	l.mu.Unlock()
}

// Stopped reports whether the listener has shut down or exhausted its
// reconnect budget.
func (l *Listener) Stopped() bool {
	return l.stopping.Load()
}

// Run connects to the feed and processes messages until Stop is
// called or the reconnect budget is exhausted. The delay between
// reconnect attempts starts at startDelay, doubles per failed attempt
// and is capped at maxDelay; a successful connection resets both the
// attempt counter and the delay.
func (l *Listener) Run() {
	attemptCount := 0
	delay := l.startDelay

	for !l.stopping.Load() && attemptCount < l.retries {
		log.Print("Attempting to connect...")
		metrics.ConnectionAttempts.Inc()

		conn, err := net.Dial("tcp", l.address)
		if err == nil {
			log.Print("Connected!")
			attemptCount = 0
			delay = l.startDelay

			l.setConn(conn)
			err = l.serveConn(conn)
			l.setConn(nil)
			conn.Close()
			metrics.ConnectionClosedError.Inc()
		}

		if l.stopping.Load() {
			break
		}
		if err != nil {
			log.Errorf("An error occurred: %v", err)
		}

		time.Sleep(delay)
		delay = min(delay*2, l.maxDelay)
		attemptCount++
		log.Printf("Attempting to reconnect, attempt %d.", attemptCount)
	}

	if attemptCount >= l.retries {
		log.Print("Maximum reconnection attempts reached, stopping.")
		l.stopping.Store(true)
	}
	log.Print("Closing server socket.")
}

func (l *Listener) setConn(conn net.Conn) {
	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()
}

// serveConn reads from the feed until the connection breaks or the
// listener stops. Messages already decoded are processed one per
// cycle before anything new is read, so each gets its own ACK in
// arrival order.
func (l *Listener) serveConn(conn net.Conn) error {
	buf := make([]byte, 1024)
	for !l.stopping.Load() {
		if l.dec.Pending() == 0 {
			n, err := conn.Read(buf)
			if err != nil {
				if l.stopping.Load() {
					return nil
				}
				return err
			}
			if n == 0 {
				// Nothing yet. The feed keeps quiet connections open.
				continue
			}
			if err := l.dec.Write(buf[:n]); err != nil {
				return err
			}
		}

		payload, ok := l.dec.Next()
		if !ok {
			// Frame still incomplete, keep reading.
			continue
		}

		received := time.Now()
		metrics.SumOfAllMessages.Inc()
		metrics.OverallMessagesReceived.Inc()

		l.handle(payload, received)

		// Acknowledge and record latency even when handling failed.
		if err := l.sendAck(conn); err != nil {
			return err
		}
		metrics.OverallMessagesAcknowledged.Inc()
		metrics.MessageLatency.Observe(time.Since(received).Seconds())
	}
	return nil
}

// handle parses one deframed message and applies it to storage. State
// is mutated first; only accepted messages reach the log.
func (l *Listener) handle(payload []byte, received time.Time) {
	msg, err := hl7.Parse(mllp.Segments(payload))
	if err != nil {
		log.Warnf("parsing message: %v", err)
		metrics.MessageErrors.Inc()
		return
	}

	switch v := msg.(type) {
	case hospital.AdmissionMessage:
		metrics.AdmissionMessages.Inc()
		l.storage.AddAdmission(v)
		metrics.SuccessfulAdmissionHandlings.Inc()

	case hospital.TestResultMessage:
		metrics.TestResultMessages.Inc()
		if err := l.storage.AddTestResult(v); err != nil {
			log.Warnf("%v", err)
			metrics.MessageErrors.Inc()
			return
		}
		metrics.SuccessfulTestResultHandlings.Inc()
		l.maybePage(v, received)

	case hospital.DischargeMessage:
		metrics.DischargeMessages.Inc()
		if err := l.storage.UpdateHistory(v); err != nil {
			log.Warnf("%v", err)
			metrics.MessageErrors.Inc()
			return
		}
		if err := l.storage.RemovePatient(v); err != nil {
			metrics.MessageErrors.Inc()
			return
		}
		metrics.SuccessfulDischargeHandlings.Inc()
	}

	if err := l.storage.AppendToLog(msg); err != nil {
		log.Errorf("appending message to log: %v", err)
		return
	}
	metrics.MessagesAddedToLog.Inc()
}

// maybePage runs the classifier for the patient and pages on the
// first positive prediction of the admission. A page that exhausts
// its retries leaves the gate open, so the next positive result gets
// another chance to reach the pager.
func (l *Listener) maybePage(v hospital.TestResultMessage, received time.Time) {
	if !l.storage.NoPositiveSoFar(v.MRN) {
		return
	}

	prediction, err := l.storage.PredictAKI(v.MRN)
	if err != nil {
		log.Errorf("predicting for %s: %v", v.MRN, err)
		metrics.MessageErrors.Inc()
		return
	}
	if prediction == 0 {
		metrics.NegativeAKIPredictions.Inc()
		return
	}

	metrics.PositiveAKIPredictions.Inc()
	metrics.SumOfPositiveAKIPredictions.Inc()

	pageErr := l.pager.SendAlert(v.MRN, v.Timestamp)
	metrics.NumberOfPagings.Inc()
	metrics.PagingLatency.Observe(time.Since(received).Seconds())
	if pageErr != nil {
		log.Errorf("paging for %s: %v", v.MRN, pageErr)
		metrics.FailedPagings.Inc()
		return
	}
	l.storage.MarkPositive(v.MRN)
}

func (l *Listener) sendAck(conn net.Conn) error {
	segments := []string{
		fmt.Sprintf("MSH|^~\\&|||||%s||ACK|||2.5", time.Now().Format("20060102150405")),
		"MSA|AA",
	}
	if _, err := conn.Write(mllp.Encode(segments)); err != nil {
		return fmt.Errorf("sending ACK: %w", err)
	}
	return nil
}
