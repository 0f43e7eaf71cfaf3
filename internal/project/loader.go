// Package project runs the sst pipeline over a dbt project: it loads YAML
// files, extracts table metadata, resolves templates in semantic documents,
// parses them into records and validates the result.
package project

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// Document is one YAML document decoded from a file.
type Document struct {
	Path string
	Line int // line of the document start
	Data map[string]any
}

// YAMLError is a file that could not be decoded.
type YAMLError struct {
	File    string
	Line    int
	Message string
}

func (e *YAMLError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

var yamlLinePattern = regexp.MustCompile(`line (\d+)`)

// DecodeYAML decodes every document in content. Empty documents are skipped.
// A syntax error or a non-mapping document yields a *YAMLError.
func DecodeYAML(path string, content []byte) ([]Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(content))

	var docs []Document
	for {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return docs, yamlError(path, err)
		}
		if len(node.Content) == 0 {
			continue
		}

		root := node.Content[0]
		if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
			continue
		}
		if root.Kind != yaml.MappingNode {
			return docs, &YAMLError{File: path, Line: root.Line, Message: "top-level YAML value must be a mapping"}
		}

		var data map[string]any
		if err := root.Decode(&data); err != nil {
			return docs, yamlError(path, err)
		}
		docs = append(docs, Document{Path: path, Line: root.Line, Data: data})
	}
}

func yamlError(path string, err error) *YAMLError {
	msg := strings.TrimPrefix(err.Error(), "yaml: ")
	line := 0
	if m := yamlLinePattern.FindStringSubmatch(msg); m != nil {
		line, _ = strconv.Atoi(m[1])
	}
	return &YAMLError{File: path, Line: line, Message: msg}
}

// Discover returns the YAML files under dir, sorted. Hidden files and
// directories are skipped, as is anything matching exclude.
//
// An exclude entry without '/' or '*' names a directory anywhere in the tree.
// Otherwise it is a glob matched against the path relative to dir and each of
// its parent directories; a leading "models/" is ignored.
func Discover(dir string, exclude []string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if path != dir && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			rel = path
		}

		if d.IsDir() {
			if path != dir && excluded(filepath.ToSlash(rel), name, exclude) {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".yml" && ext != ".yaml" {
			return nil
		}
		if excluded(filepath.ToSlash(rel), name, exclude) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan directory %s: %w", dir, err)
	}

	sort.Strings(files)
	return files, nil
}

func excluded(rel, name string, patterns []string) bool {
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if !strings.ContainsAny(pattern, "/*") {
			if pattern == name {
				return true
			}
			continue
		}

		pattern = strings.TrimPrefix(pattern, "models/")
		parts := strings.Split(rel, "/")
		for i := range parts {
			if ok, _ := filepath.Match(pattern, strings.Join(parts[:i+1], "/")); ok {
				return true
			}
		}
	}
	return false
}

// Load decodes every file concurrently, keeping file order. Files that fail
// to decode are returned as YAML errors; I/O failures abort the load.
func Load(ctx context.Context, files []string) ([]Document, []*YAMLError, error) {
	perFile := make([][]Document, len(files))
	perErr := make([]*YAMLError, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			docs, err := DecodeYAML(path, content)
			perFile[i] = docs
			if err != nil {
				var yerr *YAMLError
				if errors.As(err, &yerr) {
					perErr[i] = yerr
					return nil
				}
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var docs []Document
	var yamlErrs []*YAMLError
	for i := range files {
		docs = append(docs, perFile[i]...)
		if perErr[i] != nil {
			yamlErrs = append(yamlErrs, perErr[i])
		}
	}
	return docs, yamlErrs, nil
}
