package watch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func newTestWatcher(t testing.TB, path string, debounce time.Duration) *Watcher {
	t.Helper()
	w, err := NewWatcher(path, debounce, WithOutput(io.Discard))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	t.Cleanup(func() { w.Stop() })
	return w
}

func TestNewWatcher(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name     string
		debounce time.Duration
		want     time.Duration
	}{
		{"default debounce", 0, 500 * time.Millisecond},
		{"custom debounce", time.Second, time.Second},
		{"negative debounce defaults", -time.Second, 500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWatcher(t, tmpDir, tt.debounce)

			if w.fsWatcher == nil {
				t.Error("fsWatcher should not be nil")
			}
			if w.root != tmpDir || w.target != "" {
				t.Errorf("root = %v, target = %v", w.root, w.target)
			}
			if w.pending == nil {
				t.Error("pending map should be initialized")
			}
			if w.debounce != tt.want {
				t.Errorf("debounce = %v, want %v", w.debounce, tt.want)
			}
		})
	}
}

func TestNewWatcher_File(t *testing.T) {
	tmpDir := t.TempDir()
	book := filepath.Join(tmpDir, "budget.csv")
	if err := os.WriteFile(book, []byte("=1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := newTestWatcher(t, book, time.Second)
	if w.root != tmpDir {
		t.Errorf("root = %v, want %v", w.root, tmpDir)
	}
	if w.target != book {
		t.Errorf("target = %v, want %v", w.target, book)
	}
}

func TestNewWatcher_Missing(t *testing.T) {
	if _, err := NewWatcher(filepath.Join(t.TempDir(), "nope.xlsx"), 0); err == nil {
		t.Error("NewWatcher() on a missing path should fail")
	}
}

func TestWatcher_SetCallback(t *testing.T) {
	w := newTestWatcher(t, t.TempDir(), time.Second)

	if w.callback != nil {
		t.Error("callback should be nil initially")
	}
	w.SetCallback(func(path string) {})
	if w.callback == nil {
		t.Error("callback should be set")
	}
}

func TestWatcher_handleEvent(t *testing.T) {
	tmpDir := t.TempDir()
	w := newTestWatcher(t, tmpDir, time.Second)

	tests := []struct {
		name        string
		event       fsnotify.Event
		wantPending bool
	}{
		{"write event for xlsx", fsnotify.Event{Name: filepath.Join(tmpDir, "book.xlsx"), Op: fsnotify.Write}, true},
		{"create event for csv", fsnotify.Event{Name: filepath.Join(tmpDir, "new.csv"), Op: fsnotify.Create}, true},
		{"xlsm supported", fsnotify.Event{Name: filepath.Join(tmpDir, "macro.xlsm"), Op: fsnotify.Write}, true},
		{"remove event ignored", fsnotify.Event{Name: filepath.Join(tmpDir, "removed.xlsx"), Op: fsnotify.Remove}, false},
		{"chmod event ignored", fsnotify.Event{Name: filepath.Join(tmpDir, "changed.xlsx"), Op: fsnotify.Chmod}, false},
		{"unsupported file type ignored", fsnotify.Event{Name: filepath.Join(tmpDir, "readme.txt"), Op: fsnotify.Write}, false},
		{"office lock file ignored", fsnotify.Event{Name: filepath.Join(tmpDir, "~$book.xlsx"), Op: fsnotify.Create}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w.mu.Lock()
			w.pending = make(map[string]time.Time)
			w.mu.Unlock()

			w.handleEvent(tt.event)

			w.mu.Lock()
			_, found := w.pending[tt.event.Name]
			w.mu.Unlock()

			if found != tt.wantPending {
				t.Errorf("pending[%v] = %v, want %v", tt.event.Name, found, tt.wantPending)
			}
		})
	}
}

func TestWatcher_handleEvent_Target(t *testing.T) {
	tmpDir := t.TempDir()
	book := filepath.Join(tmpDir, "budget.xlsx")
	if err := os.WriteFile(book, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	w := newTestWatcher(t, book, time.Second)

	w.handleEvent(fsnotify.Event{Name: filepath.Join(tmpDir, "other.xlsx"), Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: book, Op: fsnotify.Create})

	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) != 1 {
		t.Fatalf("pending = %v, want only the target", w.pending)
	}
	if _, ok := w.pending[book]; !ok {
		t.Errorf("target %v should be pending", book)
	}
}

func TestWatcher_processPending(t *testing.T) {
	tmpDir := t.TempDir()
	w := newTestWatcher(t, tmpDir, 50*time.Millisecond)

	var callbackPath string
	var callbackMu sync.Mutex
	done := make(chan struct{})

	w.SetCallback(func(path string) {
		callbackMu.Lock()
		callbackPath = path
		callbackMu.Unlock()
		close(done)
	})

	testFile := filepath.Join(tmpDir, "book.xlsx")

	w.mu.Lock()
	w.pending[testFile] = time.Now().Add(-100 * time.Millisecond)
	w.mu.Unlock()

	w.processPending()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("callback was not called")
	}

	callbackMu.Lock()
	gotPath := callbackPath
	callbackMu.Unlock()
	if gotPath != testFile {
		t.Errorf("callback path = %v, want %v", gotPath, testFile)
	}

	w.mu.Lock()
	_, stillPending := w.pending[testFile]
	w.mu.Unlock()
	if stillPending {
		t.Error("file should be removed from pending after processing")
	}
}

func TestWatcher_processPending_NotReady(t *testing.T) {
	tmpDir := t.TempDir()
	w := newTestWatcher(t, tmpDir, time.Hour)

	var called atomic.Bool
	w.SetCallback(func(path string) { called.Store(true) })

	testFile := filepath.Join(tmpDir, "book.xlsx")
	w.mu.Lock()
	w.pending[testFile] = time.Now()
	w.mu.Unlock()

	w.processPending()
	time.Sleep(10 * time.Millisecond)

	if called.Load() {
		t.Error("callback should not be called for file not past debounce period")
	}

	w.mu.Lock()
	_, stillPending := w.pending[testFile]
	w.mu.Unlock()
	if !stillPending {
		t.Error("file should still be in pending")
	}
}

func TestWatcher_Start_Context(t *testing.T) {
	w := newTestWatcher(t, t.TempDir(), 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Start(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("Start() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Error("Start() did not return after context cancellation")
	}
}

func TestWatcher_Start_WorkbookChange(t *testing.T) {
	tmpDir := t.TempDir()
	w := newTestWatcher(t, tmpDir, 50*time.Millisecond)

	var callbackCount int32
	var lastPath string
	var mu sync.Mutex

	w.SetCallback(func(path string) {
		atomic.AddInt32(&callbackCount, 1)
		mu.Lock()
		lastPath = path
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	time.Sleep(100 * time.Millisecond)

	testFile := filepath.Join(tmpDir, "book.csv")
	if err := os.WriteFile(testFile, []byte("=SUM(A1:A3)\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	time.Sleep(300 * time.Millisecond)

	if atomic.LoadInt32(&callbackCount) == 0 {
		t.Error("callback should be called when a workbook is written")
	}

	mu.Lock()
	gotPath := lastPath
	mu.Unlock()
	if gotPath != testFile {
		t.Errorf("callback path = %v, want %v", gotPath, testFile)
	}
}

func TestWatcher_Start_HiddenDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, ".formulint", "cache"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(tmpDir, "reports"), 0o755); err != nil {
		t.Fatal(err)
	}

	w := newTestWatcher(t, tmpDir, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	time.Sleep(100 * time.Millisecond)

	var sawReports bool
	for _, path := range w.WatchedFiles() {
		switch filepath.Base(path) {
		case ".formulint", "cache":
			t.Errorf("%s should not be watched", path)
		case "reports":
			sawReports = true
		}
	}
	if !sawReports {
		t.Error("reports directory should be watched")
	}
}

func TestWatcher_Debounce(t *testing.T) {
	tmpDir := t.TempDir()
	w := newTestWatcher(t, tmpDir, 200*time.Millisecond)

	var callbackCount int32
	w.SetCallback(func(path string) {
		atomic.AddInt32(&callbackCount, 1)
	})

	testFile := filepath.Join(tmpDir, "book.xlsx")

	// Simulate an app saving in several steps
	for i := 0; i < 5; i++ {
		w.handleEvent(fsnotify.Event{Name: testFile, Op: fsnotify.Write})
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(300 * time.Millisecond)
	w.processPending()
	time.Sleep(50 * time.Millisecond)

	if count := atomic.LoadInt32(&callbackCount); count != 1 {
		t.Errorf("callback count = %d, want 1 (debounced)", count)
	}
}

func TestWatcher_ConcurrentHandleEvent(t *testing.T) {
	tmpDir := t.TempDir()
	w := newTestWatcher(t, tmpDir, time.Hour)
	book := filepath.Join(tmpDir, "book.xlsx")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				w.handleEvent(fsnotify.Event{Name: book, Op: fsnotify.Write})
			}
		}()
	}
	wg.Wait()

	w.mu.Lock()
	_, found := w.pending[book]
	w.mu.Unlock()
	if !found {
		t.Error("file should be in pending after concurrent events")
	}
}

func BenchmarkHandleEvent(b *testing.B) {
	tmpDir := b.TempDir()
	w := newTestWatcher(b, tmpDir, time.Hour)

	event := fsnotify.Event{Name: filepath.Join(tmpDir, "book.xlsx"), Op: fsnotify.Write}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.handleEvent(event)
	}
}
