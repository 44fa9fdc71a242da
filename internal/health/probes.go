package health

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// DatabaseProbe checks connectivity to the relational store. The database
// is a critical dependency: when it is unreachable the instance cannot
// serve correct responses and must fail fast.
type DatabaseProbe struct {
	db *sql.DB
}

// NewDatabaseProbe creates a probe over an established connection pool.
func NewDatabaseProbe(db *sql.DB) *DatabaseProbe {
	return &DatabaseProbe{db: db}
}

func (p *DatabaseProbe) Name() string { return "database" }

func (p *DatabaseProbe) Critical() bool { return true }

// Check issues a SELECT 1 round trip through the pool.
func (p *DatabaseProbe) Check(ctx context.Context) error {
	var result int
	if err := p.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	if result != 1 {
		return fmt.Errorf("database returned unexpected result: %d", result)
	}
	return nil
}

// BrokerProbe checks connectivity to the message broker. The broker is
// non-critical: read traffic keeps flowing while it is impaired, only
// background task distribution is affected.
type BrokerProbe struct {
	brokers []string
}

// NewBrokerProbe creates a probe against the configured broker addresses.
func NewBrokerProbe(brokers []string) *BrokerProbe {
	return &BrokerProbe{brokers: brokers}
}

func (p *BrokerProbe) Name() string { return "broker" }

func (p *BrokerProbe) Critical() bool { return false }

// Check dials the first broker and lists partitions to confirm the broker
// is answering metadata requests, not just accepting TCP connections.
func (p *BrokerProbe) Check(ctx context.Context) error {
	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return fmt.Errorf("failed to set broker deadline: %w", err)
		}
	}

	if _, err := conn.ReadPartitions(); err != nil {
		return fmt.Errorf("failed to read broker partitions: %w", err)
	}
	return nil
}
