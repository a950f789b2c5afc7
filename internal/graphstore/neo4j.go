package graphstore

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/quantmind-br/repodiagrams-go/internal/domain"
	"github.com/quantmind-br/repodiagrams-go/internal/utils"
)

// DefaultBatchSize is the number of rows per UNWIND statement
const DefaultBatchSize = 500

// Executor runs a single statement
type Executor interface {
	Execute(ctx context.Context, st Statement) error
}

// Exporter writes the code index into Neo4j
type Exporter struct {
	exec      Executor
	closer    func(ctx context.Context) error
	clean     bool
	batchSize int
	logger    *utils.Logger
}

// ExporterOptions contains options for creating an Exporter
type ExporterOptions struct {
	URI      string
	Username string
	Password string
	Database string
	// Clean removes previously exported nodes first
	Clean     bool
	BatchSize int
	Logger    *utils.Logger
	// Executor replaces the driver, for tests
	Executor Executor
}

var _ domain.GraphExporter = (*Exporter)(nil)

// NewExporter connects to Neo4j and verifies connectivity
func NewExporter(ctx context.Context, opts ExporterOptions) (*Exporter, error) {
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = DefaultBatchSize
	}
	e := &Exporter{
		exec:      opts.Executor,
		closer:    func(context.Context) error { return nil },
		clean:     opts.Clean,
		batchSize: opts.BatchSize,
		logger:    opts.Logger.WithComponent("neo4j"),
	}
	if e.exec != nil {
		return e, nil
	}

	driver, err := neo4j.NewDriverWithContext(opts.URI, neo4j.BasicAuth(opts.Username, opts.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	e.exec = &driverExecutor{driver: driver, database: opts.Database}
	e.closer = driver.Close
	return e, nil
}

// Export writes packages, classes, methods and their relationships
func (e *Exporter) Export(ctx context.Context, ix *domain.CodeIndex) error {
	start := time.Now()

	if e.clean {
		e.logger.Info().Msg("Cleaning existing graph data")
		for _, q := range cleanStatements {
			if err := e.exec.Execute(ctx, Statement{Cypher: q}); err != nil {
				return fmt.Errorf("clean graph: %w", err)
			}
		}
	}
	for _, q := range indexStatements {
		if err := e.exec.Execute(ctx, Statement{Cypher: q}); err != nil {
			return fmt.Errorf("create indexes: %w", err)
		}
	}

	statements := Statements(ix, e.batchSize)
	for i, st := range statements {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.exec.Execute(ctx, st); err != nil {
			return fmt.Errorf("statement %d/%d: %w", i+1, len(statements), err)
		}
	}

	e.logger.Info().
		Int("classes", len(ix.Classes)).
		Int("statements", len(statements)).
		Dur("duration", time.Since(start)).
		Msg("Graph exported")
	return nil
}

// Close releases the driver
func (e *Exporter) Close(ctx context.Context) error {
	return e.closer(ctx)
}

type driverExecutor struct {
	driver   neo4j.DriverWithContext
	database string
}

func (d *driverExecutor) Execute(ctx context.Context, st Statement) error {
	var opts []neo4j.ExecuteQueryConfigurationOption
	if d.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(d.database))
	}
	_, err := neo4j.ExecuteQuery(ctx, d.driver, st.Cypher, st.Params, neo4j.EagerResultTransformer, opts...)
	return err
}
