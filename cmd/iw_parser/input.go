package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"iw_parser/internal/screen"
)

// readDocuments collects the screens named by paths. "-" or no path reads
// stdin. Without jsonl every input is one screen (a JSON document or raw
// text); with jsonl every non-empty line is one.
func readDocuments(paths []string, stdin io.Reader, jsonl bool) ([]screen.Document, error) {
	if len(paths) == 0 {
		paths = []string{"-"}
	}

	var docs []screen.Document
	for _, path := range paths {
		r, name, closeFn, err := openInput(path, stdin)
		if err != nil {
			return nil, err
		}
		got, err := decodeInput(r, name, jsonl)
		closeFn()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		docs = append(docs, got...)
	}
	return docs, nil
}

func openInput(path string, stdin io.Reader) (io.Reader, string, func(), error) {
	if path == "-" {
		return stdin, "stdin", func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", nil, fmt.Errorf("open input: %w", err)
	}
	return f, path, func() { _ = f.Close() }, nil
}

func decodeInput(r io.Reader, name string, jsonl bool) ([]screen.Document, error) {
	if !jsonl {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		doc := screen.DecodeDocument(data)
		if doc.Source == "" {
			doc.Source = name
		}
		return []screen.Document{doc}, nil
	}

	scanner := bufio.NewScanner(r)
	// Screens can be long; bump buffer.
	buf := make([]byte, 0, 1024*1024)
	scanner.Buffer(buf, 16*1024*1024)

	var docs []screen.Document
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		doc := screen.DecodeDocument([]byte(text))
		if doc.Source == "" {
			doc.Source = fmt.Sprintf("%s:%d", name, line)
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read line %d: %w", line+1, err)
	}
	return docs, nil
}
