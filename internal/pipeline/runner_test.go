package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"storyboard/internal/providers/image"
	"storyboard/internal/storage"
	"storyboard/pkg/storyboard"
)

type fakeGenerator struct {
	generate func(context.Context, image.GenerateRequest) ([]byte, error)
}

func (f *fakeGenerator) Generate(ctx context.Context, req image.GenerateRequest) ([]byte, error) {
	if f.generate != nil {
		return f.generate(ctx, req)
	}
	return []byte("image-bytes"), nil
}

func collector() (*[]storyboard.Event, EmitFunc) {
	events := &[]storyboard.Event{}
	return events, func(ev storyboard.Event) error {
		*events = append(*events, ev)
		return nil
	}
}

func newTestRunner(t *testing.T, gen image.Generator) (*Runner, *storage.ImageStore) {
	t.Helper()
	store, err := storage.NewImageStore(t.TempDir(), "png")
	if err != nil {
		t.Fatalf("NewImageStore returned error: %v", err)
	}
	runner, err := NewRunner(Options{Provider: gen, Store: store})
	if err != nil {
		t.Fatalf("NewRunner returned error: %v", err)
	}
	return runner, store
}

func makeScenes(n int) []storyboard.Scene {
	scenes := make([]storyboard.Scene, 0, n)
	for i := 1; i <= n; i++ {
		scenes = append(scenes, storyboard.Scene{
			SceneNumber: i,
			Description: fmt.Sprintf("scene %d", i),
			ImagePrompt: fmt.Sprintf("prompt %d", i),
		})
	}
	return scenes
}

func countType(events []storyboard.Event, typ string) int {
	n := 0
	for _, ev := range events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func TestRunEmitsProtocolWithSingleFailure(t *testing.T) {
	gen := &fakeGenerator{generate: func(ctx context.Context, req image.GenerateRequest) ([]byte, error) {
		if req.Prompt == "prompt 5" {
			return nil, errors.New("provider timeout")
		}
		return []byte("image-bytes"), nil
	}}
	runner, _ := newTestRunner(t, gen)
	events, emit := collector()

	summary, err := runner.Run(context.Background(), makeScenes(10), emit)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if got := countType(*events, storyboard.EventProgress); got != 10 {
		t.Fatalf("progress events = %d, want 10", got)
	}
	if got := countType(*events, storyboard.EventImageSaved); got != 9 {
		t.Fatalf("image_saved events = %d, want 9", got)
	}
	if got := countType(*events, storyboard.EventError); got != 1 {
		t.Fatalf("error events = %d, want 1", got)
	}
	if got := countType(*events, storyboard.EventComplete); got != 1 {
		t.Fatalf("complete events = %d, want 1", got)
	}

	for _, ev := range *events {
		if ev.Type == storyboard.EventError && ev.SceneNumber != 5 {
			t.Fatalf("error scene_number = %d, want 5", ev.SceneNumber)
		}
	}

	last := (*events)[len(*events)-1]
	if last.Type != storyboard.EventComplete {
		t.Fatalf("last event type = %q, want complete", last.Type)
	}
	if last.SuccessCount != 9 {
		t.Fatalf("success_count = %d, want 9", last.SuccessCount)
	}
	if summary.SuccessCount != 9 {
		t.Fatalf("summary.SuccessCount = %d, want 9", summary.SuccessCount)
	}
	if summary.Results[4].Status != StatusError {
		t.Fatalf("scene 5 status = %q, want error", summary.Results[4].Status)
	}
}

func TestRunEventOrderingPerScene(t *testing.T) {
	runner, _ := newTestRunner(t, &fakeGenerator{})
	events, emit := collector()

	if _, err := runner.Run(context.Background(), makeScenes(3), emit); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if (*events)[0].Type != storyboard.EventInfo {
		t.Fatalf("first event type = %q, want info", (*events)[0].Type)
	}
	// After the banner, events alternate progress / terminal per scene,
	// strictly in input order.
	idx := 1
	for scene := 1; scene <= 3; scene++ {
		ev := (*events)[idx]
		if ev.Type != storyboard.EventProgress || ev.Current != scene {
			t.Fatalf("event %d = %+v, want progress for scene %d", idx, ev, scene)
		}
		idx++
		ev = (*events)[idx]
		if ev.Type != storyboard.EventImageSaved || ev.SceneNumber != scene {
			t.Fatalf("event %d = %+v, want image_saved for scene %d", idx, ev, scene)
		}
		idx++
	}
	if (*events)[idx].Type != storyboard.EventComplete {
		t.Fatalf("event %d type = %q, want complete", idx, (*events)[idx].Type)
	}
}

func TestRunWritesImagesWithDeterministicNames(t *testing.T) {
	runner, store := newTestRunner(t, &fakeGenerator{})
	_, emit := collector()

	if _, err := runner.Run(context.Background(), makeScenes(2), emit); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	for _, name := range []string{"scene_01.png", "scene_02.png"} {
		if _, err := os.Stat(filepath.Join(store.Dir(), name)); err != nil {
			t.Fatalf("expected %s to exist: %v", name, err)
		}
	}
}

func TestRunFailureRemovesStaleFile(t *testing.T) {
	gen := &fakeGenerator{generate: func(ctx context.Context, req image.GenerateRequest) ([]byte, error) {
		return nil, errors.New("boom")
	}}
	runner, store := newTestRunner(t, gen)

	// Simulate a leftover image from a previous run.
	if _, err := store.Save(context.Background(), 1, []byte("stale")); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	_, emit := collector()
	if _, err := runner.Run(context.Background(), makeScenes(1), emit); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(store.Dir(), "scene_01.png")); !os.IsNotExist(err) {
		t.Fatalf("stale file still present after failed generation")
	}
}

func TestRunContinuesWhenTransportDies(t *testing.T) {
	runner, store := newTestRunner(t, &fakeGenerator{})

	emitted := 0
	emit := func(storyboard.Event) error {
		emitted++
		if emitted >= 2 {
			return errors.New("broken pipe")
		}
		return nil
	}

	summary, err := runner.Run(context.Background(), makeScenes(3), emit)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.SuccessCount != 3 {
		t.Fatalf("SuccessCount = %d, want 3 despite dead transport", summary.SuccessCount)
	}
	entries, err := store.List()
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("saved images = %d, want 3", len(entries))
	}
	// After the failing write the runner must stop calling emit.
	if emitted != 2 {
		t.Fatalf("emit calls = %d, want 2", emitted)
	}
}

func TestRunRejectsEmptySceneList(t *testing.T) {
	runner, _ := newTestRunner(t, &fakeGenerator{})
	if _, err := runner.Run(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error for empty scene list")
	}
}

func TestRunPassesBoundedContextToProvider(t *testing.T) {
	var sawDeadline bool
	gen := &fakeGenerator{generate: func(ctx context.Context, req image.GenerateRequest) ([]byte, error) {
		_, sawDeadline = ctx.Deadline()
		return []byte("image-bytes"), nil
	}}
	runner, _ := newTestRunner(t, gen)
	_, emit := collector()

	if _, err := runner.Run(context.Background(), makeScenes(1), emit); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !sawDeadline {
		t.Fatal("provider context has no deadline")
	}
}
