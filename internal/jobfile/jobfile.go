// Package jobfile reads and writes job lists, the JSON array format shared by
// the submit, validate and analyze commands.
package jobfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/JakeFAU/primerblast-validator/internal/filelock"
	"github.com/JakeFAU/primerblast-validator/internal/primerblast"
)

// ErrNotList is returned when a file holds valid JSON that is not an array.
var ErrNotList = errors.New("json file must contain a list of records")

// Read loads a job list from path.
func Read(path string) ([]primerblast.Job, error) {
	return ReadList[primerblast.Job](path)
}

// Decode parses a job list.
func Decode(data []byte) ([]primerblast.Job, error) {
	return DecodeList[primerblast.Job](data)
}

// ReadList loads a JSON array of T from path.
func ReadList[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job list: %w", err)
	}
	return DecodeList[T](data)
}

// DecodeList parses a JSON array of T. Valid JSON of any other shape yields
// ErrNotList.
func DecodeList[T any](data []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		return nil, errors.New("decode job list: invalid json")
	}
	if trimmed[0] != '[' {
		return nil, ErrNotList
	}
	var items []T
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("decode job list: %w", err)
	}
	return items, nil
}

// Encode renders jobs as an indented JSON array. A nil list encodes as [].
func Encode(jobs []primerblast.Job) ([]byte, error) {
	if jobs == nil {
		jobs = []primerblast.Job{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jobs); err != nil {
		return nil, fmt.Errorf("encode job list: %w", err)
	}
	return buf.Bytes(), nil
}

// Write replaces path with jobs under the file's advisory lock.
func Write(ctx context.Context, path string, jobs []primerblast.Job) error {
	data, err := Encode(jobs)
	if err != nil {
		return err
	}
	if err := filelock.LockAndWrite(ctx, path, data); err != nil {
		return fmt.Errorf("write job list: %w", err)
	}
	return nil
}
