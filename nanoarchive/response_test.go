package nanoarchive_test

import (
	"errors"
	"testing"

	"github.com/arthur-debert/nanoarchive/nanoarchive"
	"github.com/arthur-debert/nanoarchive/nanoarchive/store"
	"github.com/arthur-debert/nanoarchive/testutil"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func newBridge(t *testing.T) *nanoarchive.ResponseBridge[testutil.Widget] {
	t.Helper()
	bridge, err := nanoarchive.NewResponseBridge(newWidgets(t, newArchiver(t)), testutil.DecodeWidgetResponse)
	require.NoError(t, err)
	return bridge
}

func TestBuildAndCache(t *testing.T) {
	t.Run("caches when asked", func(t *testing.T) {
		bridge := newBridge(t)
		obj, err := nanoarchive.ParseResponse([]byte(`{"id":"42","name":"Widget","quantity":3}`))
		require.NoError(t, err)

		w, ok := bridge.BuildAndCache(obj, true)
		require.True(t, ok)
		require.Equal(t, testutil.Widget{ID: "42", Name: "Widget", Quantity: 3}, w)

		cached, ok := bridge.Collection().Load("42")
		require.True(t, ok)
		require.Equal(t, w, cached)
	})

	t.Run("skips the store when not asked", func(t *testing.T) {
		bridge := newBridge(t)
		w, ok := bridge.BuildAndCache(nanoarchive.ResponseObject{"id": "42", "name": "Widget"}, false)
		require.True(t, ok)
		require.Equal(t, "42", w.ID)
		require.False(t, bridge.Collection().Exists("42"))
	})

	t.Run("decode failure stores nothing", func(t *testing.T) {
		bridge := newBridge(t)
		_, ok := bridge.BuildAndCache(nanoarchive.ResponseObject{"name": "No ID"}, true)
		require.False(t, ok)

		_, err := bridge.TryBuildAndCache(nanoarchive.ResponseObject{"id": 42, "name": "Wrong kind"}, true)
		require.ErrorIs(t, err, nanoarchive.ErrDecode)

		ids, err := bridge.Collection().IDs()
		require.NoError(t, err)
		require.Empty(t, ids)
	})

	t.Run("store failure still returns the entity", func(t *testing.T) {
		mockFS := store.NewMockFileSystem()
		mockFS.WriteFileError = errors.New("disk full")
		a, err := nanoarchive.New(nanoarchive.Config{RootDir: "/cache"}, nanoarchive.WithFileSystem(mockFS))
		require.NoError(t, err)
		bridge, err := nanoarchive.NewResponseBridge(newWidgets(t, a), testutil.DecodeWidgetResponse)
		require.NoError(t, err)

		obj := nanoarchive.ResponseObject{"id": "42", "name": "Widget"}
		w, ok := bridge.BuildAndCache(obj, true)
		require.True(t, ok)
		require.Equal(t, "42", w.ID)

		w, err = bridge.TryBuildAndCache(obj, true)
		require.ErrorIs(t, err, nanoarchive.ErrWrite)
		require.Equal(t, "42", w.ID)
	})
}

func TestBuildAndCacheCollectionFromKey(t *testing.T) {
	catalog := testutil.LoadCatalog(t)
	bridge := newBridge(t)

	obj, err := nanoarchive.ParseResponse(catalog.Raw)
	require.NoError(t, err)

	got := bridge.BuildAndCacheCollectionFromKey(obj, "widgets")
	if diff := cmp.Diff(catalog.Widgets, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("built widgets mismatch (-want +got):\n%s", diff)
	}

	ids, err := bridge.Collection().IDs()
	require.NoError(t, err)
	require.Equal(t, []string{"flange-3", "gear-7", "sprocket-1"}, ids)

	loaded := bridge.Collection().LoadCollection([]string{"sprocket-1", "gear-7", "flange-3"})
	if diff := cmp.Diff(catalog.Widgets, loaded, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("archived widgets mismatch (-want +got):\n%s", diff)
	}

	require.Empty(t, bridge.BuildAndCacheCollectionFromKey(obj, "missing"))
	require.Empty(t, bridge.BuildAndCacheCollectionFromKey(obj, "total"))
}

func TestBuildAndCacheCollection(t *testing.T) {
	bridge := newBridge(t)

	objs, err := nanoarchive.ParseResponseList([]byte(`[
		{"id": "3", "name": "Three"},
		{"id": "1"},
		{"id": "2", "name": "Two"}
	]`))
	require.NoError(t, err)

	got := bridge.BuildAndCacheCollection(objs)
	require.Equal(t, []testutil.Widget{{ID: "3", Name: "Three"}, {ID: "2", Name: "Two"}}, got)
	require.True(t, bridge.Collection().Exists("3"))
	require.False(t, bridge.Collection().Exists("1"))
}

func TestParseResponse(t *testing.T) {
	obj, err := nanoarchive.ParseResponse([]byte(`{"count": 3, "price": 2.5}`))
	require.NoError(t, err)
	require.Equal(t, "3", obj["count"].(interface{ String() string }).String())

	for _, input := range []string{`null`, `[1,2]`, `{"a":1} {"b":2}`, `{`, ``} {
		_, err := nanoarchive.ParseResponse([]byte(input))
		require.Error(t, err, "input %q", input)
	}

	_, err = nanoarchive.ParseResponseList([]byte(`{"a":1}`))
	require.Error(t, err)
}

func TestObjectsAt(t *testing.T) {
	obj := nanoarchive.ResponseObject{
		"items": []any{map[string]any{"id": "1"}, "skip", nil, map[string]any{"id": "2"}},
		"typed": []nanoarchive.ResponseObject{{"id": "3"}},
		"other": "value",
	}

	require.Len(t, nanoarchive.ObjectsAt(obj, "items"), 2)
	require.Len(t, nanoarchive.ObjectsAt(obj, "typed"), 1)
	require.Empty(t, nanoarchive.ObjectsAt(obj, "other"))
	require.Empty(t, nanoarchive.ObjectsAt(obj, "absent"))
}

func TestNewResponseBridgeRequiresParts(t *testing.T) {
	_, err := nanoarchive.NewResponseBridge[testutil.Widget](nil, testutil.DecodeWidgetResponse)
	require.ErrorIs(t, err, nanoarchive.ErrInvalidCollection)

	_, err = nanoarchive.NewResponseBridge(newWidgets(t, newArchiver(t)), nil)
	require.ErrorIs(t, err, nanoarchive.ErrInvalidCollection)
}
