// Command gcodefe is a demo driver for the G-code front end: it feeds
// stdin (REPL mode, with readline history/editing) or a file through the
// frontend facade and prints each parsed statement and diagnostic as it
// arrives. It is a developer convenience for exercising the lexer and
// parser manually, not a motion-control runtime.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/mbctl/gcodefe/ast"
	"github.com/mbctl/gcodefe/collab"
	"github.com/mbctl/gcodefe/dialect"
	"github.com/mbctl/gcodefe/frontend"
	"github.com/mbctl/gcodefe/lexer"
)

// VERSION is the demo CLI's version string.
var VERSION = "v1.0.0"

// BANNER is the ASCII banner shown at REPL startup.
var BANNER = `  ___         _       _____ ___
 / __|___ ___| |___  | __| __|
| (_ / _ \ _ \ / -_) | _|| _|
 \___\___\___/_\___| |_| |___|
`

// LINE is the separator printed around the banner.
var LINE = "----------------------------------------------------------------"

var (
	blueColor   = color.New(color.FgBlue)
	yellowColor = color.New(color.FgYellow)
	redColor    = color.New(color.FgRed)
	greenColor  = color.New(color.FgGreen)
	cyanColor   = color.New(color.FgCyan)
)

func main() {
	var dialectPath string
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--help", "-h":
			showHelp()
			return
		case "--version", "-v":
			showVersion()
			return
		case "--dialect":
			if i+1 >= len(args) {
				redColor.Fprintln(os.Stderr, "[USAGE ERROR] --dialect requires a path")
				os.Exit(1)
			}
			i++
			dialectPath = args[i]
		default:
			runFile(args[i], dialectPath)
			return
		}
	}

	runREPL(dialectPath)
}

func showHelp() {
	cyanColor.Println("gcodefe - G-code front end demo driver")
	cyanColor.Println("")
	cyanColor.Println("USAGE:")
	yellowColor.Println("  gcodefe                         Start interactive REPL mode")
	yellowColor.Println("  gcodefe <path-to-file>          Feed a file through the front end")
	yellowColor.Println("  gcodefe --dialect <path> [file] Load a dialect YAML before feeding")
	yellowColor.Println("  gcodefe --help                  Display this help message")
	yellowColor.Println("  gcodefe --version               Display version information")
}

func showVersion() {
	cyanColor.Printf("gcodefe %s\n", VERSION)
}

// loadDialect loads the optional dialect file and returns the RawPredicate
// it describes (nil, i.e. lexer.DefaultRawCommands, if no dialect path was
// given) plus the builtin-function table an Evaluator should expose,
// narrowed to cfg.Functions when the dialect file names one.
func loadDialect(dialectPath string) (lexer.RawPredicate, []*collab.Builtin) {
	builtins := collab.DefaultBuiltins()
	if dialectPath == "" {
		return nil, builtins
	}
	cfg, err := dialect.Load(dialectPath)
	if err != nil {
		redColor.Fprintf(os.Stderr, "[DIALECT ERROR] %v\n", err)
		os.Exit(1)
	}
	return cfg.RawPredicate(), cfg.FilterBuiltins(builtins)
}

// loadRawPredicate is retained for callers that only need the RawPredicate
// half of loadDialect.
func loadRawPredicate(dialectPath string) lexer.RawPredicate {
	isRaw, _ := loadDialect(dialectPath)
	return isRaw
}

// previewEvaluated renders the evaluated value of every computed field
// (an expression or function call) in root, skipping any field whose
// evaluation fails — most commonly an unbound Parameter, since this demo
// driver has no runtime variable environment to resolve one against.
// Plain literal fields are omitted since describeStatement already shows
// their value.
func previewEvaluated(ev *collab.Evaluator, tree *ast.Tree, root ast.Ref) string {
	var parts []string
	for c := tree.Child(root); c.Valid(); c = tree.Next(c) {
		if tree.Kind(c) != ast.KOperator && tree.Kind(c) != ast.KFunction {
			continue
		}
		v, err := ev.Eval(c)
		if err != nil {
			continue
		}
		parts = append(parts, v.String())
	}
	if len(parts) == 0 {
		return ""
	}
	return "  => " + strings.Join(parts, ", ")
}

func runFile(path, dialectPath string) {
	data, err := os.ReadFile(path)
	if err != nil {
		redColor.Fprintf(os.Stderr, "[FILE ERROR] could not read file %q: %v\n", path, err)
		os.Exit(1)
	}

	isRaw, builtins := loadDialect(dialectPath)

	hadErrors := false
	var ev *collab.Evaluator
	f := frontend.New(func(tree *ast.Tree, root ast.Ref) {
		yellowColor.Println(describeStatement(tree, root))
		if preview := previewEvaluated(ev, tree, root); preview != "" {
			cyanColor.Println(preview)
		}
	}, isRaw)
	ev = collab.NewEvaluator(f.Tree, nil, builtins)
	f.SetErrorHandler(func(d frontend.Diagnostic) bool {
		hadErrors = true
		redColor.Fprintf(os.Stderr, "[PARSE ERROR] %d:%d: %s\n", d.Line, d.Col, d.Message)
		return true
	})

	f.Feed(data)
	f.Finish()

	if hadErrors {
		os.Exit(1)
	}
}

func runREPL(dialectPath string) {
	printBanner()

	isRaw, builtins := loadDialect(dialectPath)

	rl, err := readline.New("gcode> ")
	if err != nil {
		panic(err)
	}
	defer rl.Close()

	var ev *collab.Evaluator
	f := frontend.New(func(tree *ast.Tree, root ast.Ref) {
		yellowColor.Println(describeStatement(tree, root))
		if preview := previewEvaluated(ev, tree, root); preview != "" {
			cyanColor.Println(preview)
		}
	}, isRaw)
	ev = collab.NewEvaluator(f.Tree, nil, builtins)
	f.SetErrorHandler(func(d frontend.Diagnostic) bool {
		redColor.Printf("[PARSE ERROR] %d:%d: %s\n", d.Line, d.Col, d.Message)
		return true
	})

	for {
		line, err := rl.Readline()
		if err != nil {
			fmt.Fprintln(os.Stdout, "Good bye!")
			return
		}
		line = strings.TrimRight(line, " \t\r")
		if line == ".exit" {
			fmt.Fprintln(os.Stdout, "Good bye!")
			return
		}
		if line == "" {
			continue
		}
		rl.SaveHistory(line)

		f.Feed([]byte(line + "\n"))
	}
}

func printBanner() {
	blueColor.Println(LINE)
	greenColor.Println(BANNER)
	blueColor.Println(LINE)
	cyanColor.Println("Type a G-code line and press enter. Type '.exit' to quit.")
	blueColor.Println(LINE)
}

// describeStatement renders a parsed Statement as a single-line
// s-expression for display.
func describeStatement(tree *ast.Tree, root ast.Ref) string {
	var b strings.Builder
	b.WriteString("STATEMENT ")
	writeNode(&b, tree, root)
	return b.String()
}

func writeNode(b *strings.Builder, tree *ast.Tree, r ast.Ref) {
	if !r.Valid() {
		b.WriteString("<nil>")
		return
	}
	switch tree.Kind(r) {
	case ast.KInteger:
		b.WriteString(strconv.FormatInt(tree.Int(r), 10))
	case ast.KFloat:
		b.WriteString(strconv.FormatFloat(tree.Float(r), 'g', -1, 64))
	case ast.KBool:
		b.WriteString(strconv.FormatBool(tree.Bool(r)))
	case ast.KString:
		b.WriteString(strconv.Quote(tree.Str(r)))
	case ast.KParameter:
		b.WriteString("$" + tree.Str(r))
	case ast.KOperator:
		b.WriteString("(op:")
		b.WriteString(strconv.Itoa(int(tree.Op(r))))
		for c := tree.Child(r); c.Valid(); c = tree.Next(c) {
			b.WriteString(" ")
			writeNode(b, tree, c)
		}
		b.WriteString(")")
	case ast.KFunction:
		b.WriteString(tree.Str(r))
		b.WriteString("(")
		first := true
		for c := tree.Child(r); c.Valid(); c = tree.Next(c) {
			if !first {
				b.WriteString(", ")
			}
			first = false
			writeNode(b, tree, c)
		}
		b.WriteString(")")
	case ast.KStatement:
		first := true
		for c := tree.Child(r); c.Valid(); c = tree.Next(c) {
			if !first {
				b.WriteString(" ")
			}
			first = false
			writeNode(b, tree, c)
		}
	default:
		b.WriteString("?")
	}
}
