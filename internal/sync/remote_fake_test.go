package sync

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	apperrors "github.com/matt1as/noteeverything/internal/errors"
	"github.com/matt1as/noteeverything/internal/github"
	"github.com/matt1as/noteeverything/internal/models"
)

// fakeRemote is an in-memory RemoteTree recording every write and delete.
type fakeRemote struct {
	mu sync.Mutex

	// files maps path to content. shas maps path to its version token.
	files map[string][]byte
	shas  map[string]string

	writes  []writeCall
	deletes []deleteCall

	listErr   error
	readErr   map[string]error
	writeErr  map[string]error
	deleteErr map[string]error
}

type writeCall struct {
	path    string
	message string
	sha     string
}

type deleteCall struct {
	path    string
	message string
	sha     string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		files:     make(map[string][]byte),
		shas:      make(map[string]string),
		readErr:   make(map[string]error),
		writeErr:  make(map[string]error),
		deleteErr: make(map[string]error),
	}
}

func (f *fakeRemote) put(p, sha string, content []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.files[p] = content
	f.shas[p] = sha
}

func (f *fakeRemote) ListAll(_ context.Context, _ models.RepoConfig, root string) ([]github.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listErr != nil {
		return nil, f.listErr
	}

	var out []github.File

	for p := range f.files {
		if p == root || strings.HasPrefix(p, root+"/") {
			out = append(out, github.File{Path: p, Name: path.Base(p), SHA: f.shas[p]})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })

	return out, nil
}

func (f *fakeRemote) Read(_ context.Context, _ models.RepoConfig, p string) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.readErr[p]; err != nil {
		return nil, "", err
	}

	content, ok := f.files[p]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", apperrors.ErrNotFound, p)
	}

	return content, f.shas[p], nil
}

func (f *fakeRemote) Write(_ context.Context, _ models.RepoConfig, p string, content []byte, message, sha string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.writeErr[p]; err != nil {
		return err
	}

	f.writes = append(f.writes, writeCall{path: p, message: message, sha: sha})
	f.files[p] = content
	f.shas[p] = "sha-" + p

	return nil
}

func (f *fakeRemote) Delete(_ context.Context, _ models.RepoConfig, p, message, sha string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.deleteErr[p]; err != nil {
		return err
	}

	f.deletes = append(f.deletes, deleteCall{path: p, message: message, sha: sha})
	delete(f.files, p)
	delete(f.shas, p)

	return nil
}

func (f *fakeRemote) writtenPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	paths := make([]string, 0, len(f.writes))
	for _, w := range f.writes {
		paths = append(paths, w.path)
	}

	sort.Strings(paths)

	return paths
}
