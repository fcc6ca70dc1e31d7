package iojson

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// FileReader decodes a JSON document named by a string flag. The value "-"
// reads stdin.
type FileReader[T any] struct {
	name  string
	usage string
	path  string
	stdin io.Reader
}

// NewFileReader returns a reader bound to a flag called name.
func NewFileReader[T any](name, usage string) *FileReader[T] {
	return &FileReader[T]{name: name, usage: usage, stdin: os.Stdin}
}

func (fr *FileReader[T]) Flag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:        fr.name,
		Usage:       fr.usage,
		Destination: &fr.path,
	}
}

// Set reports whether the flag was given.
func (fr *FileReader[T]) Set() bool {
	return fr.path != ""
}

func (fr *FileReader[T]) Read() (T, error) {
	var input T

	var reader io.Reader
	switch fr.path {
	case "":
		return input, errors.New("no input provided")
	case "-":
		if f, ok := fr.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return input, fmt.Errorf("no input provided (stdin is a terminal); pass a file to --%s or pipe JSON input", fr.name)
		}
		reader = fr.stdin
	default:
		f, err := os.Open(fr.path)
		if err != nil {
			return input, fmt.Errorf("open file: %w", err)
		}
		defer func() { _ = f.Close() }()
		reader = f
	}

	if err := json.NewDecoder(reader).Decode(&input); err != nil {
		return input, fmt.Errorf("decode JSON: %w", err)
	}

	return input, nil
}
