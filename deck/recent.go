// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package deck

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

const maxRecentDirs = 10

// recentDirs is a most-recently-used list of working directories,
// stored one per line.
type recentDirs struct {
	path string

	mu      sync.Mutex
	entries []string
	loaded  bool
}

func newRecentDirs(path string) *recentDirs {
	return &recentDirs{path: path}
}

// Record moves dir to the front of the list.
func (r *recentDirs) Record(dir string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.loadLocked()
	dir = abbreviateHome(dir)
	entries = slices.DeleteFunc(entries, func(entry string) bool { return entry == dir })
	entries = slices.Insert(entries, 0, dir)
	if len(entries) > maxRecentDirs {
		entries = entries[:maxRecentDirs]
	}
	r.entries = entries

	if r.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(r.path, []byte(strings.Join(entries, "\n")+"\n"), 0o600)
}

// List returns the directories, newest first.
func (r *recentDirs) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.loadLocked())
}

func (r *recentDirs) loadLocked() []string {
	if r.loaded || r.path == "" {
		return r.entries
	}
	data, err := os.ReadFile(r.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return r.entries
	}
	r.loaded = true
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !slices.Contains(r.entries, abbreviateHome(line)) {
			r.entries = append(r.entries, abbreviateHome(line))
		}
	}
	return r.entries
}

func abbreviateHome(dir string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return dir
	}
	if dir == home {
		return "~"
	}
	if strings.HasPrefix(dir, home+string(filepath.Separator)) {
		return "~" + strings.TrimPrefix(dir, home)
	}
	return dir
}
