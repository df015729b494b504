package validator

import (
	"errors"
	"testing"
)

func TestScreenSyntax(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		rejected bool
	}{
		// Acceptable tool bodies
		{"arithmetic", "x = 2 + 2", false},
		{"function def", "def add(a, b):\n    return a + b", false},
		{"nested def", "def outer(x):\n    def inner(y):\n        return y * 2\n    return inner(x)", false},
		{"comprehension", "squares = [i * i for i in range(10)]", false},
		{"string methods", "def shout(s):\n    return s.upper()", false},

		// Forbidden node kinds
		{"import", "import os", true},
		{"import benign module", "import math", true},
		{"import from", "from sys import path", true},
		{"global", "def f():\n    global counter\n    counter = 1", true},
		{"nonlocal", "def f():\n    x = 1\n    def g():\n        nonlocal x\n        x = 2\n    g()", true},
		{"lambda", "double = lambda x: x * 2", true},
		{"class def", "class Tool:\n    pass", true},
		{"async def", "async def f():\n    return 1", true},

		// Forbidden names, with no denylisted substring tricks left to
		// the pattern screen: the parser sees the structure regardless.
		{"bare os", "x = os", true},
		{"os attribute", "os.getcwd()", true},
		{"sys attribute", "sys.exit(0)", true},
		{"subprocess attribute", "subprocess.run(['ls'])", true},
		{"eval name", "f = eval", true},
		{"exec name", "f = exec", true},
		{"compile name", "c = compile", true},
		{"dunder import name", "i = __import__", true},
		{"open call", "open('x.txt')", true},

		// Syntax errors reject, never crash
		{"broken def", "def f(:", true},
		{"unbalanced paren", "print((1)", true},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ScreenSyntax(tt.code)
			if tt.rejected && err == nil {
				t.Errorf("ScreenSyntax(%q) = nil, want rejection", tt.code)
			}
			if !tt.rejected && err != nil {
				t.Errorf("ScreenSyntax(%q) = %v, want nil", tt.code, err)
			}
			if err != nil {
				var rej *RejectionError
				if !errors.As(err, &rej) {
					t.Errorf("rejection has type %T, want *RejectionError", err)
				} else if rej.Screen != "syntax" {
					t.Errorf("rejection screen = %q, want \"syntax\"", rej.Screen)
				}
			}
		})
	}
}

// The substring screen can be dodged by assembling source at a distance;
// the structural screen cannot. This pins the split: assembled "import os"
// carries no denylisted substring risk for the parser to miss.
func TestScreensCatchDifferentShapes(t *testing.T) {
	assembled := "imp" + "ort os"
	if err := ScreenSyntax(assembled); err == nil {
		t.Fatalf("ScreenSyntax(%q) = nil, want rejection via Import node", assembled)
	}

	// The pattern screen catches shell text the parser would reject only
	// as a syntax error with no named cause.
	shell := "cmd = 'rm -rf /tmp/x'"
	if err := ScreenPatterns(shell); err == nil {
		t.Fatalf("ScreenPatterns(%q) = nil, want rejection", shell)
	}
	if err := ScreenSyntax(shell); err != nil {
		t.Fatalf("ScreenSyntax(%q) = %v, want nil (string literals are structurally inert)", shell, err)
	}
}
