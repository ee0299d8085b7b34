package graph

import (
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

const (
	OperationQuery        = string(ast.Query)
	OperationMutation     = string(ast.Mutation)
	OperationSubscription = string(ast.Subscription)
)

// OperationType returns the kind of operation a document selects. ok is false
// when the document does not parse or operationName matches nothing; execution
// reports those errors itself.
func OperationType(query, operationName string) (kind string, ok bool) {
	doc, err := parser.ParseQuery(&ast.Source{Input: query})
	if err != nil {
		return "", false
	}
	op := doc.Operations.ForName(operationName)
	if op == nil {
		return "", false
	}
	return string(op.Operation), true
}
