package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/roach88/querymodel/internal/expr"
	"github.com/roach88/querymodel/internal/querymodel"
)

// Builder turns a node chain into a query model.
//
// Build is synchronous and allocates a fresh ClauseGenerationContext per
// call. A Builder has no mutable state of its own beyond its id generator
// and may be reused.
type Builder struct {
	logger *slog.Logger
	ids    BuildIDGenerator
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger for build records. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) { b.logger = logger }
}

// WithBuildIDGenerator sets the build id source. Default: UUIDv7Generator.
func WithBuildIDGenerator(g BuildIDGenerator) Option {
	return func(b *Builder) { b.ids = g }
}

// NewBuilder creates a builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{logger: slog.Default(), ids: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build applies every node of the chain ending at sink, origin first, to a
// growing model. Clauses are only ever appended, so body clause order is the
// pipeline's source-to-sink order.
//
// A clause node following a result operator node first wraps the model in
// a subquery; see wrap.
//
// The finished model is validated. On any error the model is discarded and
// nil is returned.
func (b *Builder) Build(sink Node) (*querymodel.QueryModel, error) {
	buildID := b.ids.Generate()

	chain, err := collectChain(sink)
	if err != nil {
		return nil, err
	}

	b.logger.Debug("build starting",
		"build_id", buildID,
		"nodes", len(chain),
	)

	ctx := NewClauseGenerationContext()
	var m *querymodel.QueryModel
	for i, n := range chain {
		if i > 0 && !isResultOperatorNode(n) && isResultOperatorNode(n.Source()) {
			m, err = wrap(m, n.Source(), ctx)
			if err != nil {
				return nil, b.fail(buildID, i, n, err)
			}
			b.logger.Debug("model wrapped",
				"build_id", buildID,
				"index", i,
				"after", n.Source().String(),
			)
		}

		m, err = n.Apply(m, ctx)
		if err != nil {
			return nil, b.fail(buildID, i, n, err)
		}

		b.logger.Debug("node applied",
			"build_id", buildID,
			"index", i,
			"node", n.String(),
			"body_clauses", len(m.BodyClauses),
		)
	}

	if err := m.Validate(); err != nil {
		b.logger.Error("model validation failed",
			"build_id", buildID,
			"error", err,
		)
		return nil, fmt.Errorf("validate model: %w", err)
	}

	b.logger.Info("model built",
		"build_id", buildID,
		"body_clauses", len(m.BodyClauses),
		"result_operators", len(m.ResultOperators),
	)
	return m, nil
}

func (b *Builder) fail(buildID string, index int, n Node, err error) error {
	b.logger.Error("build failed",
		"build_id", buildID,
		"index", index,
		"node", n.String(),
		"error", err,
	)
	return fmt.Errorf("apply %s: %w", n, err)
}

// Build builds sink with a default builder.
func Build(sink Node) (*querymodel.QueryModel, error) {
	return NewBuilder().Build(sink)
}

// collectChain returns the nodes from the origin to sink.
func collectChain(sink Node) ([]Node, error) {
	if sink == nil {
		return nil, &ValidationError{Node: "Build", Argument: "sink", Message: "is required"}
	}

	seen := make(map[Node]bool)
	var chain []Node
	for n := sink; n != nil; n = n.Source() {
		if seen[n] {
			return nil, fmt.Errorf("%s: %w", n, ErrCyclicChain)
		}
		seen[n] = true
		chain = append(chain, n)
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	if _, ok := chain[0].(*MainSourceNode); !ok {
		return nil, fmt.Errorf("%s: %w", chain[0], ErrMissingOrigin)
	}
	return chain, nil
}

// wrapIdentifier names the from clause that wraps the model ending at
// resultOp. When the wrapped rows are still the items of the main source
// (only filters, orderings and result operators in between) they keep its
// name. Rows reshaped by a select, join, group join or select-many get a
// generated name.
func wrapIdentifier(resultOp Node, ctx *ClauseGenerationContext) string {
	for n := resultOp.Source(); n != nil; n = n.Source() {
		switch n.(type) {
		case *MainSourceNode:
			return n.AssociatedIdentifier()
		case *WhereNode, *OrderByNode, *ThenByNode:
			continue
		}
		if !isResultOperatorNode(n) {
			break
		}
	}
	return ctx.GenerateIdentifier()
}

// wrap ends the current model at a result operator and starts a new one
// over it:
//
//	from T x in {inner model} select [x]
//
// The from clause is mapped to the result operator node, so later lambdas
// resolve to the wrapped rows. See wrapIdentifier for its name.
func wrap(m *querymodel.QueryModel, resultOp Node, ctx *ClauseGenerationContext) (*querymodel.QueryModel, error) {
	sub := querymodel.NewSubQuery(m)
	item, ok := sub.Type().ElementType()
	if !ok {
		return nil, &ResolutionError{
			Node:    resultOp.String(),
			Message: fmt.Sprintf("result is %s", sub.Type()),
			Err:     ErrScalarSource,
		}
	}

	main, err := querymodel.NewMainFromClause(wrapIdentifier(resultOp, ctx), item, sub)
	if err != nil {
		return nil, err
	}
	if err := ctx.AddMapping(resultOp, main); err != nil {
		return nil, err
	}
	sel, err := querymodel.NewSelectClause(expr.NewReference(main))
	if err != nil {
		return nil, err
	}
	return querymodel.NewQueryModel(main, sel)
}
