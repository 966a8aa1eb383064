package opa

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"go.uber.org/zap"
)

const allowQuery = "data.documents.authz.allow"

type Action string

const (
	ActionRead       Action = "read"
	ActionDelete     Action = "delete"
	ActionShare      Action = "share"
	ActionShareTeam  Action = "share_team"
	ActionExtraction Action = "extraction"
)

type Principal struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

type Resource struct {
	OwnerID    string `json:"owner_id"`
	TeamShared bool   `json:"team_shared"`
}

type Input struct {
	Action   Action    `json:"action"`
	User     Principal `json:"user"`
	Document Resource  `json:"document"`
}

// Authorizer decides document access with a compiled rego policy
type Authorizer struct {
	preparedQuery rego.PreparedEvalQuery
}

func NewAuthorizerFromDir(policiesDir string) (*Authorizer, error) {
	policies, err := NewPolicyReader(policiesDir).ReadPolicies()
	if err != nil {
		return nil, fmt.Errorf("failed to read policies: %w", err)
	}

	return NewAuthorizer(policies)
}

func NewAuthorizer(policies map[string]string) (*Authorizer, error) {
	if len(policies) == 0 {
		return nil, fmt.Errorf("no policies provided for authorization")
	}

	compiler := ast.NewCompiler()
	modules := make(map[string]*ast.Module)

	for filename, content := range policies {
		module, err := ast.ParseModuleWithOpts(filename, content, ast.ParserOptions{
			RegoVersion: ast.RegoV1,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to parse policy %s: %w", filename, err)
		}
		modules[filename] = module
	}

	compiler.Compile(modules)
	if compiler.Failed() {
		return nil, fmt.Errorf("policy compilation failed: %v", compiler.Errors)
	}

	r := rego.New(
		rego.Query(allowQuery),
		rego.Compiler(compiler),
		rego.SetRegoVersion(ast.RegoV1),
	)

	preparedQuery, err := r.PrepareForEval(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego query: %w", err)
	}

	zap.S().Named("opa").Infof("authorizer initialized with %d policies", len(policies))
	return &Authorizer{preparedQuery: preparedQuery}, nil
}

// Allow evaluates the policy. Anything but an explicit true is a deny.
func (a *Authorizer) Allow(ctx context.Context, input Input) (bool, error) {
	resultSet, err := a.preparedQuery.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("policy evaluation failed: %w", err)
	}

	if len(resultSet) == 0 || len(resultSet[0].Expressions) == 0 {
		return false, nil
	}

	allowed, ok := resultSet[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("unexpected result type from policy evaluation")
	}
	return allowed, nil
}
