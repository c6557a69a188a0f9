// ecc is the command-line driver for the EC compiler.
package main

import (
	"flag"
	"fmt"
	"os"
)

var outputDir string

func init() {
	flag.StringVar(&outputDir, "o", ".", "output directory")
	flag.StringVar(&outputDir, "output", ".", "output directory")
}

func usage() {
	const use = `
Usage: ecc [mode] [options] <input...>

Modes:
  ll      emit LLVM IR only (default)
  debug   also print tokens and AST before emitting IR
  help    print this message

Options:
`
	fmt.Fprintln(os.Stderr, use[1:])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	mode := "ll"
	if len(args) > 0 {
		switch args[0] {
		case "ll", "debug", "help":
			mode = args[0]
			args = args[1:]
		}
	}

	if mode == "help" || len(args) == 0 {
		usage()
		if mode == "help" {
			os.Exit(0)
		}
		os.Exit(1)
	}

	c := newCompiler(mode, outputDir)
	os.Exit(c.run(args))
}
