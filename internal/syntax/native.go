package syntax

import (
	"context"
	"encoding/json"
	"fmt"
	"go/parser"
	"go/token"
	"os"
)

// goChecker parses Go files in-process.
type goChecker struct{}

func (goChecker) Check(_ context.Context, path string) error {
	fset := token.NewFileSet()
	if _, err := parser.ParseFile(fset, path, nil, 0); err != nil {
		return fmt.Errorf("go syntax error: %w", err)
	}
	return nil
}

// jsonChecker validates JSON files in-process.
type jsonChecker struct{}

func (jsonChecker) Check(_ context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON in %s", path)
	}
	return nil
}
