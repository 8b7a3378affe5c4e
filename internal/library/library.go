package library

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

const logPrefix = "library.Library#"

var (
	// ErrUnknownReference informs that a video reference matches neither a URL nor any
	// media file discovered under the library's root directories.
	ErrUnknownReference = errors.New("video reference does not match any known media")

	mediaExtensions = map[string]bool{
		".avi":  true,
		".m4v":  true,
		".mkv":  true,
		".mov":  true,
		".mp4":  true,
		".mp3":  true,
		".ogg":  true,
		".webm": true,
	}

	urlSchemes = []string{"http://", "https://", "rtmp://", "rtsp://"}
)

// Config controls behaviour of the library.
type Config struct {
	ErrWriter io.Writer
	OutWriter io.Writer
}

// Library resolves video references to playable URIs. Absolute URLs pass through
// untouched; bare references are looked up among media files discovered under root
// directories, which are watched so additions and removals are tracked live.
type Library struct {
	errLog  *log.Logger
	outLog  *log.Logger
	lock    *sync.RWMutex
	entries map[string]string
	watcher *fsnotify.Watcher
}

// NewLibrary prepares a library and starts serving filesystem change events.
func NewLibrary(cfg Config) (*Library, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("could not initialize filesystem watcher: %w", err)
	}

	library := &Library{
		errLog:  log.New(cfg.ErrWriter, logPrefix, log.LstdFlags),
		outLog:  log.New(cfg.OutWriter, logPrefix, log.LstdFlags),
		lock:    &sync.RWMutex{},
		entries: map[string]string{},
		watcher: watcher,
	}

	go library.watchForFsChanges()

	return library, nil
}

// AddDirectory scans a root directory for media files and watches it for changes.
func (l *Library) AddDirectory(path string) error {
	err := filepath.Walk(path, func(entryPath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		l.addEntry(entryPath)
		return nil
	})
	if err != nil {
		return fmt.Errorf("could not scan directory '%s': %w", path, err)
	}

	err = l.watcher.Add(path)
	if err != nil {
		return fmt.Errorf("could not watch directory '%s': %w", path, err)
	}

	l.outLog.Printf("watching directory '%s' for media files\n", path)
	return nil
}

// Resolve maps a video reference to a playable URI.
func (l *Library) Resolve(videoRef string) (string, error) {
	for _, scheme := range urlSchemes {
		if strings.HasPrefix(videoRef, scheme) {
			return videoRef, nil
		}
	}

	if isMediaPath(videoRef) {
		if _, err := os.Stat(videoRef); err == nil {
			return videoRef, nil
		}
	}

	l.lock.RLock()
	defer l.lock.RUnlock()

	path, ok := l.entries[videoRef]
	if !ok {
		return "", fmt.Errorf("%w: '%s'", ErrUnknownReference, videoRef)
	}

	return path, nil
}

// Close stops watching for filesystem changes.
func (l *Library) Close() error {
	return l.watcher.Close()
}

func (l *Library) watchForFsChanges() {
	for {
		select {
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}

			l.handleFsEvent(event)
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}

			l.errLog.Printf("fs watcher returned an error: %s\n", err)
		}
	}
}

func (l *Library) handleFsEvent(event fsnotify.Event) {
	if shouldRemoveMediaPath(event.Op) {
		l.removeEntry(event.Name)

		return
	}

	if shouldAddMediaPath(event.Op) {
		l.addEntry(event.Name)
	}
}

func (l *Library) addEntry(path string) {
	if !isMediaPath(path) {
		return
	}

	ref := referenceForPath(path)

	l.lock.Lock()
	l.entries[ref] = path
	l.lock.Unlock()

	l.outLog.Printf("added media file '%s' as reference '%s'\n", path, ref)
}

func (l *Library) removeEntry(path string) {
	ref := referenceForPath(path)

	l.lock.Lock()
	defer l.lock.Unlock()

	current, ok := l.entries[ref]
	if !ok || current != path {
		return
	}

	delete(l.entries, ref)
	l.outLog.Printf("removed media file '%s'\n", path)
}

// referenceForPath derives the bare reference under which a media file is addressable -
// its base name without the extension.
func referenceForPath(path string) string {
	base := filepath.Base(path)

	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isMediaPath(path string) bool {
	return mediaExtensions[strings.ToLower(filepath.Ext(path))]
}

func shouldAddMediaPath(op fsnotify.Op) bool {
	return op&fsnotify.Create == fsnotify.Create
}

func shouldRemoveMediaPath(op fsnotify.Op) bool {
	return op&(fsnotify.Rename|fsnotify.Remove) != 0
}
