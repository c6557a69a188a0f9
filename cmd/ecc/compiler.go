package main

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/davy-yusuke/ecc/ast"
	"github.com/davy-yusuke/ecc/lexer"
	"github.com/davy-yusuke/ecc/lower"
	"github.com/davy-yusuke/ecc/parser"
	"github.com/davy-yusuke/ecc/printer"
	"github.com/davy-yusuke/ecc/token"
)

// compiler tracks the state of one invocation: the mode, the output
// directory, and whether reading or parsing an input file failed.
type compiler struct {
	mode      string
	outputDir string
	failed    bool
}

func newCompiler(mode, outputDir string) *compiler {
	return &compiler{mode: mode, outputDir: outputDir}
}

// run resolves inputs, parses and merges them, lowers the result, and
// writes the output .ll file. It returns the process exit code.
func (c *compiler) run(inputs []string) int {
	files, err := collectSources(inputs)
	if err != nil {
		log.Println(err)
		return 1
	}
	if len(files) == 0 {
		log.Println("no .ec input files found")
		return 1
	}

	prog := c.parseAndMerge(files)
	if c.failed {
		return 1
	}

	if c.mode == "debug" {
		c.dumpAST(files, prog)
	}

	gen := lower.NewGenerator(func(err error) {
		fmt.Fprintf(os.Stderr, "[codegen error] %v\n", err)
	})
	m := gen.Lower(prog)
	if gen.Failed() {
		return 1
	}

	if c.mode == "debug" {
		fmt.Println(m.String())
	}

	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		log.Println(err)
		return 1
	}
	outPath := filepath.Join(c.outputDir, outputStem(files)+".ll")
	if err := os.WriteFile(outPath, []byte(m.String()), 0o644); err != nil {
		log.Println(err)
		return 1
	}
	fmt.Println("wrote", outPath)
	return 0
}

// collectSources expands each input into a list of .ec files: a file is
// taken as-is, a directory is searched recursively.
func collectSources(inputs []string) ([]string, error) {
	var files []string
	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, in)
			continue
		}
		err = filepath.WalkDir(in, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, ".ec") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

// outputStem names the output file after the single input's stem, or the
// literal "merged" when compiling more than one file.
func outputStem(files []string) string {
	if len(files) != 1 {
		return "merged"
	}
	base := filepath.Base(files[0])
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// parseAndMerge parses every file independently and concatenates their
// declarations with all StructDecls first, satisfying codegen's requirement
// that struct names exist before any function body that references them.
func (c *compiler) parseAndMerge(files []string) *ast.Program {
	var structs, rest []ast.Decl
	for _, path := range files {
		src, err := os.ReadFile(path)
		if err != nil {
			log.Println(err)
			c.failed = true
			continue
		}
		lexEh := func(pos token.Position, msg string) {
			fmt.Fprintf(os.Stderr, "[lexer error] %s:%s %s\n", path, pos, msg)
		}
		parseEh := func(pos token.Position, msg string) {
			c.failed = true
			fmt.Fprintf(os.Stderr, "[parser error] %s:%s %s\n", path, pos, msg)
		}
		prog := parser.Parse(string(src), lexEh, parseEh)
		for _, d := range prog.Decls {
			if sd, ok := d.(*ast.StructDecl); ok {
				structs = append(structs, sd)
			} else {
				rest = append(rest, d)
			}
		}
	}
	return &ast.Program{Decls: append(structs, rest...)}
}

// dumpAST re-lexes each file in isolation to print its tokens in debug
// mode, then prints the AST of the merged program (built by parseAndMerge)
// once.
func (c *compiler) dumpAST(files []string, prog *ast.Program) {
	for _, path := range files {
		src, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		fmt.Println("=== tokens:", path, "===")
		lx := lexer.New(string(src), nil)
		for {
			tok := lx.Next()
			fmt.Println(tok)
			if tok.Kind == token.EOF {
				break
			}
		}
	}
	fmt.Println("=== merged AST ===")
	printer.Program(os.Stdout, prog)
}
