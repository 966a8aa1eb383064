package opa

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"go.uber.org/zap"
)

//go:embed policies/*.rego
var defaultPolicies embed.FS

// PolicyReader Handle policy discovery and file reading
type PolicyReader struct {
	fsys fs.FS
	dir  string
}

// NewPolicyReader reads the embedded policies, or the ones in policiesDir when it is set.
func NewPolicyReader(policiesDir string) *PolicyReader {
	if policiesDir == "" {
		return &PolicyReader{fsys: defaultPolicies, dir: "policies"}
	}
	return &PolicyReader{fsys: os.DirFS(policiesDir), dir: "."}
}

// ReadPolicies Read all .rego policy files, test files excluded
func (pr *PolicyReader) ReadPolicies() (map[string]string, error) {
	policies := make(map[string]string)

	entries, err := fs.ReadDir(pr.fsys, pr.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read policies directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".rego") ||
			strings.HasSuffix(entry.Name(), "_test.rego") {
			continue
		}

		content, err := fs.ReadFile(pr.fsys, pr.dir+"/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read policy file %s: %w", entry.Name(), err)
		}

		policies[entry.Name()] = string(content)
		zap.S().Named("opa").Debugf("Read policy: %s", entry.Name())
	}

	if len(policies) == 0 {
		return nil, fmt.Errorf("no .rego policy files found")
	}

	return policies, nil
}
