package nanoarchive_test

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/nanoarchive/nanoarchive"
	"github.com/arthur-debert/nanoarchive/nanoarchive/store"
	"github.com/arthur-debert/nanoarchive/record"
	"github.com/arthur-debert/nanoarchive/testutil"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

// newArchiver creates an archiver rooted in a fresh temp directory
func newArchiver(t *testing.T, opts ...nanoarchive.Option) *nanoarchive.Archiver {
	t.Helper()
	a, err := nanoarchive.New(nanoarchive.Config{
		RootDir:      t.TempDir(),
		Subdirectory: "com.test.archives",
		FileLocking:  true,
	}, opts...)
	require.NoError(t, err)
	return a
}

func newWidgets(t *testing.T, a *nanoarchive.Archiver) *nanoarchive.Collection[testutil.Widget] {
	t.Helper()
	widgets, err := nanoarchive.NewCollection(a, testutil.DecodeWidget, nanoarchive.WithCollectionName("Widgets"))
	require.NoError(t, err)
	return widgets
}

func TestWidgetScenario(t *testing.T) {
	a := newArchiver(t)
	widgets := newWidgets(t, a)

	w := testutil.Widget{ID: "42", Name: "Widget"}
	require.NoError(t, widgets.TryStore(w))

	path := filepath.Join(a.ArchiveDir(), "Widgets", "42.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err, "expected the archive under Widgets/42.json")
	require.JSONEq(t, `{"id":"42","name":"Widget"}`, string(data))

	got, ok := widgets.Load("42")
	require.True(t, ok)
	require.Equal(t, w, got)

	_, ok = widgets.Load("99")
	require.False(t, ok)
}

func TestStoreThenLoad(t *testing.T) {
	catalog := testutil.LoadCatalog(t)
	widgets := newWidgets(t, newArchiver(t))

	for _, w := range catalog.Widgets {
		t.Run(w.ID, func(t *testing.T) {
			widgets.Store(w)
			got, err := widgets.TryLoad(w.ID)
			require.NoError(t, err)
			if diff := cmp.Diff(w, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("store-then-load mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDeleteRemovesPresence(t *testing.T) {
	widgets := newWidgets(t, newArchiver(t))
	w := testutil.Widget{ID: "42", Name: "Widget"}

	widgets.Store(w)
	require.True(t, widgets.Exists("42"))

	widgets.Delete(w)
	_, ok := widgets.Load("42")
	require.False(t, ok)
	require.False(t, widgets.Exists("42"))

	// Deleting again, or something never stored, is not an error
	require.NoError(t, widgets.TryDelete(w))
	require.NoError(t, widgets.TryDeleteID("never-stored"))
}

func TestCollisionLastWriteWins(t *testing.T) {
	widgets := newWidgets(t, newArchiver(t))

	widgets.Store(testutil.Widget{ID: "42", Name: "First", Quantity: 1})
	widgets.Store(testutil.Widget{ID: "42", Name: "Second", Tags: []string{"new"}})

	got, ok := widgets.Load("42")
	require.True(t, ok)
	require.Equal(t, testutil.Widget{ID: "42", Name: "Second", Tags: []string{"new"}}, got)

	ids, err := widgets.IDs()
	require.NoError(t, err)
	require.Equal(t, []string{"42"}, ids)
}

func TestLoadCollectionDropsFailures(t *testing.T) {
	a := newArchiver(t)
	widgets := newWidgets(t, a)

	widgets.StoreCollection([]testutil.Widget{
		{ID: "id1", Name: "One"},
		{ID: "id3", Name: "Three"},
		{ID: "id4", Name: "Four"},
	})

	// A corrupt file is dropped like a missing one
	corrupt, err := widgets.Location("id4")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(corrupt, []byte("{truncated"), 0644))

	got := widgets.LoadCollection([]string{"id3", "id2", "id1", "id4", "../escape"})
	require.Equal(t, []testutil.Widget{
		{ID: "id3", Name: "Three"},
		{ID: "id1", Name: "One"},
	}, got)
}

func TestTryLoadDistinguishesFailures(t *testing.T) {
	widgets := newWidgets(t, newArchiver(t))
	widgets.Store(testutil.Widget{ID: "42", Name: "Widget"})

	write := func(id, content string) {
		path, err := widgets.Location(id)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	write("corrupt", "not a record")
	write("nameless", `{"id":"nameless"}`)

	tests := []struct {
		id   string
		want error
	}{
		{"42", nil},
		{"99", nanoarchive.ErrNotFound},
		{"corrupt", nanoarchive.ErrMalformed},
		{"nameless", nanoarchive.ErrDecode},
		{"", nanoarchive.ErrInvalidID},
		{"..", nanoarchive.ErrInvalidID},
		{"a/b", nanoarchive.ErrInvalidID},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			_, err := widgets.TryLoad(tt.id)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}

	_, err := widgets.TryLoad("nameless")
	require.ErrorIs(t, err, record.ErrMissingKey, "decode errors keep their cause")
}

func TestMissingRootTolerance(t *testing.T) {
	a := newArchiver(t)
	widgets := newWidgets(t, a)

	_, ok := widgets.Load("42")
	require.False(t, ok)
	require.Empty(t, widgets.LoadCollection([]string{"1", "2"}))

	ids, err := widgets.IDs()
	require.NoError(t, err)
	require.Empty(t, ids)

	_, err = os.Stat(a.ArchiveDir())
	require.True(t, errors.Is(err, os.ErrNotExist), "load must not create directories")
}

func TestStoreInvalidID(t *testing.T) {
	widgets := newWidgets(t, newArchiver(t))

	err := widgets.TryStore(testutil.Widget{ID: "../../etc/passwd", Name: "Escape"})
	require.ErrorIs(t, err, nanoarchive.ErrInvalidID)

	err = widgets.TryStoreCollection([]testutil.Widget{
		{ID: "ok", Name: "Fine"},
		{ID: "", Name: "Empty"},
		{ID: "a/b", Name: "Slash"},
	})
	require.ErrorIs(t, err, nanoarchive.ErrInvalidID)
	require.Contains(t, err.Error(), `"a/b"`)

	// The valid entity was still stored
	_, ok := widgets.Load("ok")
	require.True(t, ok)
}

func TestStoreKeepsEncodedValuesIntact(t *testing.T) {
	for _, format := range []string{"json", "yaml"} {
		t.Run(format, func(t *testing.T) {
			a, err := nanoarchive.New(nanoarchive.Config{
				RootDir:      t.TempDir(),
				Subdirectory: "com.test.archives",
				Format:       format,
			})
			require.NoError(t, err)
			widgets := newWidgets(t, a)

			inf := testutil.Widget{ID: "inf", Name: "Unbounded", Price: math.Inf(1)}
			require.NoError(t, widgets.TryStore(inf))
			got, err := widgets.TryLoad("inf")
			require.NoError(t, err)
			require.Equal(t, inf, got)

			require.NoError(t, widgets.TryStore(testutil.Widget{ID: "nan", Name: "Unpriced", Price: math.NaN()}))
			got, err = widgets.TryLoad("nan")
			require.NoError(t, err)
			require.True(t, math.IsNaN(got.Price))

			// Invalid UTF-8 is refused instead of being rewritten on disk
			err = widgets.TryStore(testutil.Widget{ID: "bad", Name: "bad\xffname"})
			require.ErrorIs(t, err, nanoarchive.ErrWrite)
			_, err = widgets.TryLoad("bad")
			require.ErrorIs(t, err, nanoarchive.ErrNotFound)
		})
	}
}

func TestStoreFailuresAreReported(t *testing.T) {
	mockFS := store.NewMockFileSystem()
	mockFS.MkdirAllError = errors.New("read-only file system")

	var events []store.Event
	a, err := nanoarchive.New(nanoarchive.Config{RootDir: "/cache"},
		nanoarchive.WithFileSystem(mockFS),
		nanoarchive.WithEventHook(func(e store.Event) { events = append(events, e) }),
	)
	require.NoError(t, err)
	widgets := newWidgets(t, a)

	// Fire-and-forget does not surface the failure...
	widgets.Store(testutil.Widget{ID: "42", Name: "Widget"})

	// ...but the event hook sees it, and TryStore returns it
	require.NotEmpty(t, events)
	require.Equal(t, store.EventDirectoryCreateFailed, events[0].Kind)
	require.ErrorIs(t, widgets.TryStore(testutil.Widget{ID: "42", Name: "Widget"}), nanoarchive.ErrDirectoryCreate)
	require.Empty(t, mockFS.Paths())
}

func TestDefaultCollectionName(t *testing.T) {
	a := newArchiver(t)

	widgets, err := nanoarchive.NewCollection(a, testutil.DecodeWidget)
	require.NoError(t, err)
	require.Equal(t, "Widget", widgets.Name())

	pointers, err := nanoarchive.NewCollection(a, func(r record.Record) (*pointerWidget, error) {
		w, err := testutil.DecodeWidget(r)
		return &pointerWidget{w}, err
	})
	require.NoError(t, err)
	require.Equal(t, "pointerWidget", pointers.Name())

	_, err = nanoarchive.NewCollection(a, testutil.DecodeWidget, nanoarchive.WithCollectionName(".."))
	require.ErrorIs(t, err, nanoarchive.ErrInvalidCollection)

	_, err = nanoarchive.NewCollection[testutil.Widget](a, nil)
	require.ErrorIs(t, err, nanoarchive.ErrInvalidCollection)

	_, err = nanoarchive.NewCollection(nil, testutil.DecodeWidget)
	require.ErrorIs(t, err, nanoarchive.ErrInvalidCollection)
}

type pointerWidget struct {
	testutil.Widget
}

func TestCollectionsAreIsolated(t *testing.T) {
	a := newArchiver(t)
	widgets := newWidgets(t, a)
	gadgets, err := nanoarchive.NewCollection(a, testutil.DecodeWidget, nanoarchive.WithCollectionName("Gadgets"))
	require.NoError(t, err)

	widgets.Store(testutil.Widget{ID: "1", Name: "Widget"})
	gadgets.Store(testutil.Widget{ID: "1", Name: "Gadget"})

	w, _ := widgets.Load("1")
	g, _ := gadgets.Load("1")
	require.Equal(t, "Widget", w.Name)
	require.Equal(t, "Gadget", g.Name)

	names, err := a.Collections()
	require.NoError(t, err)
	require.Equal(t, []string{"Gadgets", "Widgets"}, names)
}

func TestCollectionIn(t *testing.T) {
	a := newArchiver(t)
	widgets := newWidgets(t, a)
	widgets.Store(testutil.Widget{ID: "42", Name: "Widget"})

	moved, err := a.WithRoot(t.TempDir())
	require.NoError(t, err)
	elsewhere := widgets.In(moved)

	_, ok := elsewhere.Load("42")
	require.False(t, ok, "a new root starts empty")
	_, ok = widgets.Load("42")
	require.True(t, ok, "the original collection is unaffected")

	require.Equal(t, filepath.Join(moved.ArchiveDir(), "Widgets"), elsewhere.Dir())
}
