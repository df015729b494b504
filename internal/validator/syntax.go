package validator

import (
	"fmt"

	"github.com/go-python/gpython/ast"
	"github.com/go-python/gpython/parser"
)

// forbiddenNames are identifiers that registered-tool code may never
// reference, either as a bare name or as the base of an attribute access.
var forbiddenNames = map[string]bool{
	"os":         true,
	"sys":        true,
	"subprocess": true,
	"eval":       true,
	"exec":       true,
	"compile":    true,
	"__import__": true,
	"open":       true,
}

// ScreenSyntax parses the code as a Python module and rejects it if the
// tree contains a forbidden construct or references a forbidden name.
// Registered tools persist and run without per-call re-validation, so the
// bar here is stricter than the pattern screen: imports, global/nonlocal
// rebinding, lambdas and class definitions are rejected structurally, not
// by substring matching. A syntax error is itself a rejection. Async
// function definitions do not parse and are rejected the same way.
// Returns nil if the code passes.
func ScreenSyntax(code string) (err error) {
	// The parser is third-party code operating on hostile input; a panic
	// must surface as a rejection, never as a pass-through or a crash.
	defer func() {
		if r := recover(); r != nil {
			err = &RejectionError{Screen: "syntax", Reason: fmt.Sprintf("parser failure: %v", r)}
		}
	}()

	tree, perr := parser.ParseString(code, "exec")
	if perr != nil {
		return &RejectionError{Screen: "syntax", Reason: fmt.Sprintf("invalid syntax: %v", perr)}
	}

	var rej *RejectionError
	reject := func(reason string) {
		if rej == nil {
			rej = &RejectionError{Screen: "syntax", Reason: reason}
		}
	}

	ast.Walk(tree, func(node ast.Ast) bool {
		if rej != nil {
			return false
		}
		switch n := node.(type) {
		case *ast.Import:
			reject("import statement")
		case *ast.ImportFrom:
			reject("import statement")
		case *ast.Global:
			reject("global rebinding")
		case *ast.Nonlocal:
			reject("nonlocal rebinding")
		case *ast.Lambda:
			reject("lambda expression")
		case *ast.ClassDef:
			reject("class definition")
		case *ast.Name:
			if forbiddenNames[string(n.Id)] {
				reject(fmt.Sprintf("forbidden name %q", string(n.Id)))
			}
		case *ast.Attribute:
			if base, ok := n.Value.(*ast.Name); ok && forbiddenNames[string(base.Id)] {
				reject(fmt.Sprintf("forbidden attribute access %s.%s", string(base.Id), string(n.Attr)))
			}
		}
		return true
	})

	if rej != nil {
		return rej
	}
	return nil
}
