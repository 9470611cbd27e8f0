// Package directory provides a YAML-file implementation of the employee
// directory for the command-line tool: entities with their custom
// abbreviations and the employee numbers already issued.
package directory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"staffnum/internal/core/pattern"
	"staffnum/internal/domain/employeeid"
)

// ErrFileNotFound is returned by Load when the file does not exist.
var ErrFileNotFound = errors.New("directory file not found")

// EmployeeRecord is an employee and the number issued to it.
type EmployeeRecord struct {
	employeeid.Employee `yaml:",inline"`
	EmployeeNumber      string `yaml:"employee_number"`
}

// Document is the on-disk layout of a directory file.
type Document struct {
	Companies       []employeeid.DirectoryEntry `yaml:"companies,omitempty"`
	Departments     []employeeid.DirectoryEntry `yaml:"departments,omitempty"`
	Branches        []employeeid.DirectoryEntry `yaml:"branches,omitempty"`
	EmploymentTypes []employeeid.DirectoryEntry `yaml:"employment_types,omitempty"`
	Employees       []EmployeeRecord            `yaml:"employees,omitempty"`
}

func (d *Document) entries(kind pattern.Entity) []employeeid.DirectoryEntry {
	switch kind {
	case pattern.EntityCompany:
		return d.Companies
	case pattern.EntityDepartment:
		return d.Departments
	case pattern.EntityBranch:
		return d.Branches
	case pattern.EntityEmploymentType:
		return d.EmploymentTypes
	default:
		return nil
	}
}

// File is a directory loaded from a YAML file. Changes made with Record
// are kept in memory until Save.
type File struct {
	path string

	mu      sync.RWMutex
	doc     Document
	numbers map[string]struct{}
	// folded holds the lower-cased numbers for case-insensitive lookups.
	folded map[string]struct{}
}

// Ensure compile-time interface compliance.
var _ employeeid.Directory = (*File)(nil)

// New creates an empty directory that will be saved to path.
func New(path string) *File {
	return &File{
		path:    path,
		numbers: make(map[string]struct{}),
		folded:  make(map[string]struct{}),
	}
}

// Load reads a directory file. A missing file yields ErrFileNotFound.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to read directory file: %w", err)
	}

	f := New(path)
	if err := yaml.Unmarshal(raw, &f.doc); err != nil {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	for _, e := range f.doc.Employees {
		if e.EmployeeNumber != "" {
			f.add(e.EmployeeNumber)
		}
	}
	return f, nil
}

// LoadOrNew loads path, or returns an empty directory when it does not exist.
func LoadOrNew(path string) (*File, error) {
	f, err := Load(path)
	if errors.Is(err, ErrFileNotFound) {
		return New(path), nil
	}
	return f, err
}

// Path returns the file the directory is saved to.
func (f *File) Path() string {
	return f.path
}

// Abbreviation implements employeeid.AbbreviationSource.
func (f *File) Abbreviation(_ context.Context, kind pattern.Entity, name string) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, e := range f.doc.entries(kind) {
		if strings.EqualFold(e.Name, name) {
			return e.Abbreviation, nil
		}
	}
	return "", nil
}

// Exists implements employeeid.UniquenessChecker.
func (f *File) Exists(_ context.Context, number string, ignoreCase bool) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if ignoreCase {
		_, ok := f.folded[strings.ToLower(number)]
		return ok, nil
	}
	_, ok := f.numbers[number]
	return ok, nil
}

func (f *File) add(number string) {
	f.numbers[number] = struct{}{}
	f.folded[strings.ToLower(number)] = struct{}{}
}

// Entities implements employeeid.EntityLister.
func (f *File) Entities(_ context.Context, kind pattern.Entity) ([]employeeid.DirectoryEntry, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return append([]employeeid.DirectoryEntry(nil), f.doc.entries(kind)...), nil
}

// Numbers implements employeeid.NumberLister.
func (f *File) Numbers(_ context.Context) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]string, 0, len(f.doc.Employees))
	for _, e := range f.doc.Employees {
		if e.EmployeeNumber != "" {
			out = append(out, e.EmployeeNumber)
		}
	}
	return out, nil
}

// Record adds an employee with its issued number.
func (f *File) Record(emp employeeid.Employee, number string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.numbers[number]; ok {
		return fmt.Errorf("employee number %s is already recorded", number)
	}
	f.doc.Employees = append(f.doc.Employees, EmployeeRecord{Employee: emp, EmployeeNumber: number})
	f.add(number)
	return nil
}

// Save writes the directory using a temporary file and rename.
func (f *File) Save() error {
	f.mu.RLock()
	raw, err := yaml.Marshal(&f.doc)
	f.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode directory: %w", err)
	}

	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write directory file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to replace directory file: %w", err)
	}
	return nil
}
