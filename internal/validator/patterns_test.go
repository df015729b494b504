package validator

import (
	"errors"
	"testing"
)

func TestScreenPatterns(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		rejected bool
	}{
		// Safe code
		{"arithmetic", "print(2+2)", false},
		{"function def", "def add(a, b):\n    return a + b", false},
		{"string work", "s = 'hello'\nprint(s.upper())", false},
		{"relative open", "open('data.txt')", false},
		{"raise", "raise ValueError('x')", false},
		{"import math", "import math\nprint(math.pi)", false},

		// Blocked: process spawning
		{"os.system", "os.system('ls')", true},
		{"os.system spaced", "os.system ('ls')", true},
		{"subprocess call", "subprocess.run(['ls'])", true},
		{"subprocess spaced", "subprocess . Popen('ls')", true},

		// Blocked: dynamic evaluation
		{"eval", "eval('1+1')", true},
		{"exec", "exec('print(1)')", true},
		{"compile", "compile('1', '<s>', 'eval')", true},
		{"dunder import", "__import__('os')", true},
		{"breakpoint", "breakpoint()", true},

		// Blocked: sensitive imports
		{"import os", "import os", true},
		{"import os mixed case", "IMPORT OS", true},
		{"import subprocess", "import subprocess", true},
		{"import sys", "import sys", true},

		// Blocked: filesystem and shell
		{"absolute open", "open('/etc/passwd')", true},
		{"absolute open double quote", `open("/etc/shadow")`, true},
		{"rm -rf", "import shutil  # rm -rf /", true},
		{"rm -r root", "cmd = 'rm -r /'", true},

		// Blocked: introspection
		{"builtins", "__builtins__.__dict__", true},

		// Edge cases
		{"empty", "", false},
		{"null byte", "print(1)\x00", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ScreenPatterns(tt.code)
			if tt.rejected && err == nil {
				t.Errorf("ScreenPatterns(%q) = nil, want rejection", tt.code)
			}
			if !tt.rejected && err != nil {
				t.Errorf("ScreenPatterns(%q) = %v, want nil", tt.code, err)
			}
			if err != nil {
				var rej *RejectionError
				if !errors.As(err, &rej) {
					t.Errorf("rejection has type %T, want *RejectionError", err)
				} else if rej.Screen != "pattern" {
					t.Errorf("rejection screen = %q, want \"pattern\"", rej.Screen)
				}
			}
		})
	}
}
