// Copyright (C) 2024 mflvn.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package nats mirrors alert events onto a NATS subject so other
// hospital systems can subscribe to pages without touching the pager
// endpoint. The client is a singleton initialized once at startup; if
// no address is configured it stays nil and publishing is a no-op.
package nats

import (
	"fmt"
	"sync"

	"github.com/mflvn/AKI-Detection-System/pkg/log"
	"github.com/nats-io/nats.go"
)

var (
	clientOnce     sync.Once
	clientInstance *Client
)

// Client wraps a NATS connection.
type Client struct {
	conn *nats.Conn
	mu   sync.Mutex
}

// Connect initializes the singleton client. Called with an empty
// address it logs and skips, leaving publishing disabled.
func Connect(address string) {
	clientOnce.Do(func() {
		if address == "" {
			log.Debug("NATS: no address configured, skipping connection")
			return
		}

		client, err := NewClient(address)
		if err != nil {
			log.Warnf("NATS connection failed: %v", err)
			return
		}

		clientInstance = client
	})
}

// GetClient returns the singleton client, or nil when NATS is not
// configured.
func GetClient() *Client {
	return clientInstance
}

// NewClient connects to the NATS server at address.
func NewClient(address string) (*Client, error) {
	opts := []nats.Option{
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warnf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infof("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	}

	nc, err := nats.Connect(address, opts...)
	if err != nil {
		return nil, fmt.Errorf("NATS connect failed: %w", err)
	}

	log.Infof("NATS connected to %s", address)
	return &Client{conn: nc}, nil
}

// Publish sends data to the specified subject.
func (c *Client) Publish(subject string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("NATS publish to '%s' failed: %w", subject, err)
	}
	return nil
}

// Shutdown closes the singleton connection if one exists.
func Shutdown() {
	if clientInstance != nil {
		clientInstance.conn.Close()
	}
}
