package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/k0kubun/pp/v3"
	"github.com/kdimentionaltree/sol-trace-go/trace"
	"github.com/sirupsen/logrus"
)

// readLines reads one log line per input line. A JSON array of strings, as
// found in meta.logMessages, is accepted too.
func readLines(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if trimmed := strings.TrimSpace(string(data)); strings.HasPrefix(trimmed, "[") {
		var lines []string
		if err := json.Unmarshal([]byte(trimmed), &lines); err != nil {
			return nil, fmt.Errorf("invalid json log: %w", err)
		}
		return lines, nil
	}
	lines := []string{}
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	return lines, scanner.Err()
}

func printTree(w io.Writer, node *trace.InstructionLog) {
	indent := strings.Repeat("  ", node.Depth-1)
	status := "ok"
	if !node.IsSuccess {
		status = "failed"
		if node.ErrorCode != nil {
			status += " " + node.ErrorCode.Hex
		}
	}
	name := node.ProgramId.String()
	if known := node.ProgramId.Name(); known != "" {
		name = known + " (" + name + ")"
	}
	fmt.Fprintf(w, "%s%s [%s]\n", indent, name, status)
	for _, msg := range node.Messages {
		if msg.Category == trace.CategoryMessage || msg.Category == trace.CategoryError {
			fmt.Fprintf(w, "%s  > %s\n", indent, msg.Content)
		}
	}
	for _, child := range node.Children {
		printTree(w, child)
	}
}

func main() {
	var format string
	var signature string
	var max_lines int
	flag.StringVar(&format, "format", "tree", "Output format: tree, json or pp")
	flag.StringVar(&signature, "signature", "", "Transaction signature to attach to the trace")
	flag.IntVar(&max_lines, "max-lines", trace.DefaultMaxLines, "Maximum number of log lines")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	input := os.Stdin
	if flag.NArg() > 0 {
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			logger.WithError(err).Fatal("failed to open log file")
		}
		defer f.Close()
		input = f
	}

	lines, err := readLines(input)
	if err != nil {
		logger.WithError(err).Fatal("failed to read log")
	}
	res, err := trace.ProcessTransaction(signature, lines, max_lines)
	if err != nil {
		logger.WithError(err).Fatal("failed to build trace")
	}

	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			logger.WithError(err).Fatal("failed to write trace")
		}
	case "pp":
		pp.Println(res)
	default:
		for _, root := range res.RootCalls {
			printTree(os.Stdout, root)
		}
		verdict := "success"
		if !res.IsSuccess {
			verdict = "failed"
			if res.FailedProgram != nil {
				verdict += " in " + res.FailedProgram.String()
			}
			if res.ErrorCode != nil {
				verdict += " with " + res.ErrorCode.Hex
			}
			if res.ErrorMessage != nil {
				verdict += ": " + *res.ErrorMessage
			}
		}
		fmt.Printf("transaction %s, %d programs, max depth %d\n", verdict, len(res.Programs()), res.MaxDepth())
	}
}
