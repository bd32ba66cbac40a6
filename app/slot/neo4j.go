package slot

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4j stores each key as a (:Slot {key, value}) node.
type Neo4j struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4j creates a slot on top of an existing driver. An empty database
// uses the server default.
func NewNeo4j(driver neo4j.DriverWithContext, database string) *Neo4j {
	return &Neo4j{driver: driver, database: database}
}

// EnsureSchema creates the uniqueness constraint on slot keys.
func (s *Neo4j) EnsureSchema(ctx context.Context) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx,
			"CREATE CONSTRAINT slot_key IF NOT EXISTS FOR (s:Slot) REQUIRE s.key IS UNIQUE",
			nil,
		)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("create slot constraint: %w", err)
	}
	return nil
}

func (s *Neo4j) Get(ctx context.Context, key string) ([]byte, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (s:Slot {key: $key}) RETURN s.value AS value",
			map[string]any{"key": key},
		)
		if err != nil {
			return nil, err
		}

		if res.Next(ctx) {
			value, ok := res.Record().Values[0].(string)
			if !ok {
				return nil, fmt.Errorf("slot %q holds a non-string value", key)
			}
			return []byte(value), nil
		}
		return nil, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("read slot %q: %w", key, err)
	}
	if result == nil {
		return nil, ErrEmpty
	}
	return result.([]byte), nil
}

func (s *Neo4j) Set(ctx context.Context, key string, value []byte) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx,
			"MERGE (s:Slot {key: $key}) "+
				"SET s.value = $value, s.updated_at = datetime()",
			map[string]any{
				"key":   key,
				"value": string(value),
			},
		)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("write slot %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying driver.
func (s *Neo4j) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Neo4j) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}
