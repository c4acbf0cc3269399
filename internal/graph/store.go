// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package graph persists extraction results as a property graph.
// Implements: prd005-ingestion (R1-R5); docs/ARCHITECTURE § Ingestion.
package graph

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/config"
	"github.com/rs/zerolog"

	"github.com/pdiddy/scholar-graph/pkg/types"
)

// Store wraps the graph driver with constraint management and a
// rebuild-and-retry policy for dead connections.
type Store struct {
	mu     sync.Mutex
	cfg    types.GraphConfig
	driver neo4j.DriverWithContext
	log    zerolog.Logger
}

// NewStore connects to the graph database and verifies connectivity.
func NewStore(ctx context.Context, cfg types.GraphConfig, log zerolog.Logger) (*Store, error) {
	s := &Store{cfg: cfg, log: log.With().Str("component", "graph").Logger()}
	if err := s.rebuildDriver(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) rebuildDriver(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.driver != nil {
		_ = s.driver.Close(ctx)
	}
	driver, err := neo4j.NewDriverWithContext(
		s.cfg.URI,
		neo4j.BasicAuth(s.cfg.Username, s.cfg.Password, ""),
		func(c *config.Config) {
			c.MaxConnectionPoolSize = s.cfg.MaxPoolSize
			c.SocketConnectTimeout = s.cfg.ConnectTimeout
			c.ConnectionAcquisitionTimeout = s.cfg.AcquireTimeout
		},
	)
	if err != nil {
		return fmt.Errorf("creating graph driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return fmt.Errorf("verifying graph connectivity: %w", err)
	}
	s.driver = driver
	return nil
}

func (s *Store) currentDriver() neo4j.DriverWithContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.driver
}

// Close releases the driver.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.driver == nil {
		return nil
	}
	err := s.driver.Close(ctx)
	s.driver = nil
	return err
}

// constraintStatements declares the uniqueness constraints the ingester
// relies on. MERGE without these can race into duplicate nodes.
var constraintStatements = []string{
	"CREATE CONSTRAINT paper_id IF NOT EXISTS FOR (p:Paper) REQUIRE p.paper_id IS UNIQUE",
	"CREATE CONSTRAINT author_id IF NOT EXISTS FOR (a:Author) REQUIRE a.author_id IS UNIQUE",
	"CREATE CONSTRAINT institution_id IF NOT EXISTS FOR (i:Institution) REQUIRE i.institution_id IS UNIQUE",
	"CREATE CONSTRAINT theory_name IF NOT EXISTS FOR (t:Theory) REQUIRE t.name IS UNIQUE",
	"CREATE CONSTRAINT phenomenon_name IF NOT EXISTS FOR (p:Phenomenon) REQUIRE p.phenomenon_name IS UNIQUE",
	"CREATE CONSTRAINT software_name IF NOT EXISTS FOR (s:Software) REQUIRE s.software_name IS UNIQUE",
	"CREATE CONSTRAINT dataset_name IF NOT EXISTS FOR (d:Dataset) REQUIRE d.dataset_name IS UNIQUE",
	"CREATE CONSTRAINT method_identity IF NOT EXISTS FOR (m:Method) REQUIRE (m.name, m.method_type) IS UNIQUE",
	"CREATE CONSTRAINT topic_id IF NOT EXISTS FOR (t:Topic) REQUIRE t.topic_id IS UNIQUE",
	"CREATE CONSTRAINT variable_id IF NOT EXISTS FOR (v:Variable) REQUIRE v.variable_id IS UNIQUE",
	"CREATE CONSTRAINT finding_id IF NOT EXISTS FOR (f:Finding) REQUIRE f.finding_id IS UNIQUE",
	"CREATE CONSTRAINT contribution_id IF NOT EXISTS FOR (c:Contribution) REQUIRE c.contribution_id IS UNIQUE",
	"CREATE CONSTRAINT question_id IF NOT EXISTS FOR (q:ResearchQuestion) REQUIRE q.question_id IS UNIQUE",
}

// EnsureConstraints creates the uniqueness constraints if absent.
func (s *Store) EnsureConstraints(ctx context.Context) error {
	_, err := s.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, stmt := range constraintStatements {
			if _, err := tx.Run(ctx, stmt, nil); err != nil {
				return nil, fmt.Errorf("creating constraint: %w", err)
			}
		}
		return nil, nil
	})
	return err
}

// isTransientConnErr recognizes errors that a driver rebuild can cure.
func isTransientConnErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"routing", "connection", "defunct"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// ExecuteWrite runs work in a write transaction. On a routing, connection,
// or defunct error the driver is recreated and the transaction retried
// (R5.3); any other error rolls back and propagates.
func (s *Store) ExecuteWrite(ctx context.Context, work func(tx neo4j.ManagedTransaction) (any, error)) (any, error) {
	return s.execute(ctx, neo4j.AccessModeWrite, work)
}

// ExecuteRead runs work in a read transaction with the same retry policy.
func (s *Store) ExecuteRead(ctx context.Context, work func(tx neo4j.ManagedTransaction) (any, error)) (any, error) {
	return s.execute(ctx, neo4j.AccessModeRead, work)
}

func (s *Store) execute(ctx context.Context, mode neo4j.AccessMode, work func(tx neo4j.ManagedTransaction) (any, error)) (any, error) {
	attempts := s.cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 3
	}
	delay := s.cfg.RetryDelay
	if delay <= 0 {
		delay = 5 * time.Second
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			s.log.Warn().Err(lastErr).Int("attempt", attempt+1).
				Msg("graph connection lost, rebuilding driver")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			if err := s.rebuildDriver(ctx); err != nil {
				lastErr = err
				continue
			}
		}

		result, err := s.runSession(ctx, mode, work)
		if err == nil {
			return result, nil
		}
		if !isTransientConnErr(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("graph transaction failed after %d attempts: %w", attempts, lastErr)
}

func (s *Store) runSession(ctx context.Context, mode neo4j.AccessMode, work func(tx neo4j.ManagedTransaction) (any, error)) (any, error) {
	session := s.currentDriver().NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.cfg.Database,
	})
	defer session.Close(ctx)
	if mode == neo4j.AccessModeRead {
		return session.ExecuteRead(ctx, work)
	}
	return session.ExecuteWrite(ctx, work)
}
