package client_test

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/appliance-io/mgmtapi/pkg/mgmtapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionLazySnapshot(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.stubRoot("2.4.1", "vms")

	var hits int32

	f.handle("/api/vms", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		writeJSON(w, map[string]any{
			"name":     "vms",
			"count":    3,
			"subcount": 3,
			"resources": []map[string]any{
				{"href": f.href("vms/1")},
				{"href": f.href("vms/2")},
				{"href": f.href("vms/3")},
			},
		})
	})

	apiClient := newClient(t, f)
	ctx := context.Background()

	vms, err := apiClient.Collection("vms")
	require.NoError(t, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits), "index lookup must not fetch")

	count, err := vms.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	subcount, err := vms.Subcount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, subcount)

	entities, err := vms.All(ctx)
	require.NoError(t, err)
	assert.Len(t, entities, 3)
	assert.False(t, entities[0].Loaded(), "non-expanded fragments stay stubs")

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "snapshot is fetched once")

	require.NoError(t, vms.Reload(ctx, false))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits), "explicit reload fetches again")
}

func TestCollectionReloadNameMismatch(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.stubRoot("2.4.1", "vms")

	f.handle("/api/vms", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"name": "hosts", "count": 0, "subcount": 0})
	})

	apiClient := newClient(t, f)

	vms, err := apiClient.Collection("vms")
	require.NoError(t, err)

	err = vms.Reload(context.Background(), false)
	assert.ErrorIs(t, err, mgmtapi.ErrCollectionNameMismatch)
}

func TestCollectionEach(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.stubRoot("2.4.1", "vms")

	f.handle("/api/vms", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "resources", r.URL.Query().Get("expand"))

		writeJSON(w, map[string]any{
			"name":     "vms",
			"count":    2,
			"subcount": 2,
			"resources": []map[string]any{
				{"id": 1, "href": f.href("vms/1"), "name": "vm-a"},
				{"id": 2, "href": f.href("vms/2"), "name": "vm-b"},
			},
		})
	})

	apiClient := newClient(t, f)

	vms, err := apiClient.Collection("vms")
	require.NoError(t, err)

	var names []string

	err = vms.Each(context.Background(), func(entity mgmtapi.Entity) error {
		assert.True(t, entity.Loaded(), "expanded fragments arrive loaded")

		name, err := entity.Attribute(context.Background(), "name")
		if err != nil {
			return err
		}

		names = append(names, name.(string))

		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"vm-a", "vm-b"}, names)
}

func TestCollectionMalformedFragment(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.stubRoot("2.4.1", "vms")

	f.handle("/api/vms", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"name":      "vms",
			"count":     1,
			"subcount":  1,
			"resources": []map[string]any{{"name": "orphan"}},
		})
	})

	apiClient := newClient(t, f)

	vms, err := apiClient.Collection("vms")
	require.NoError(t, err)

	_, err = vms.All(context.Background())
	assert.ErrorIs(t, err, mgmtapi.ErrMalformedEntity)
}

func TestCollectionFindByDialects(t *testing.T) {
	t.Parallel()

	searchDoc := func(f *fixture) map[string]any {
		return map[string]any{
			"name":     "vms",
			"count":    10,
			"subcount": 1,
			"resources": []map[string]any{
				{"href": f.href("vms/1")},
			},
		}
	}

	t.Run("legacy versions use sqlfilter", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.stubRoot("1.0", "vms")

		f.handle("/api/vms", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "name = 'vm1'", r.URL.Query().Get("sqlfilter"))
			assert.Empty(t, r.URL.Query()["filter[]"])

			writeJSON(w, searchDoc(f))
		})

		apiClient := newClient(t, f)

		vms, err := apiClient.Collection("vms")
		require.NoError(t, err)

		result, err := vms.FindBy(context.Background(), map[string]any{"name": "vm1"})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Len())
		assert.Equal(t, 10, result.Count)
	})

	t.Run("1.1 series uses filter expressions", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.stubRoot("1.1.5", "vms")

		f.handle("/api/vms", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, []string{"name=vm1"}, r.URL.Query()["filter[]"])
			assert.Empty(t, r.URL.Query().Get("sqlfilter"))

			writeJSON(w, searchDoc(f))
		})

		apiClient := newClient(t, f)

		vms, err := apiClient.Collection("vms")
		require.NoError(t, err)

		_, err = vms.FindBy(context.Background(), map[string]any{"name": "vm1"})
		require.NoError(t, err)
	})

	t.Run("2.0.0 onwards uses filter expressions", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.stubRoot("2.0.0", "vms")

		f.handle("/api/vms", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, []string{"name=vm1"}, r.URL.Query()["filter[]"])

			writeJSON(w, searchDoc(f))
		})

		apiClient := newClient(t, f)

		vms, err := apiClient.Collection("vms")
		require.NoError(t, err)

		_, err = vms.FindBy(context.Background(), map[string]any{"name": "vm1"})
		require.NoError(t, err)
	})

	t.Run("pre-release falls back to sqlfilter exactly once", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.stubRoot("2.0.0-pre", "vms")

		var hits int32

		f.handle("/api/vms", func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)

			if len(r.URL.Query()["filter[]"]) > 0 {
				writeJSON(w, map[string]any{
					"error": map[string]any{"klass": "BadRequestError", "message": "unknown parameter"},
				})

				return
			}

			assert.Equal(t, "name = 'vm1'", r.URL.Query().Get("sqlfilter"))
			writeJSON(w, searchDoc(f))
		})

		apiClient := newClient(t, f)

		vms, err := apiClient.Collection("vms")
		require.NoError(t, err)

		result, err := vms.FindBy(context.Background(), map[string]any{"name": "vm1"})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Len())
		assert.Equal(t, int32(2), atomic.LoadInt32(&hits), "one modern attempt, one legacy retry")
	})

	t.Run("pre-release does not retry on transport garbage", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.stubRoot("2.0.0-pre", "vms")

		var hits int32

		f.handle("/api/vms", func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			_, _ = w.Write([]byte("not json"))
		})

		apiClient := newClient(t, f)

		vms, err := apiClient.Collection("vms")
		require.NoError(t, err)

		_, err = vms.FindBy(context.Background(), map[string]any{"name": "vm1"})
		assert.True(t, mgmtapi.IsDecodeError(err))
		assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "only a remote rejection triggers the fallback")
	})

	t.Run("released versions surface rejections without retrying", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.stubRoot("2.0.0", "vms")

		var hits int32

		f.handle("/api/vms", func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			writeJSON(w, map[string]any{
				"error": map[string]any{"klass": "BadRequestError", "message": "nope"},
			})
		})

		apiClient := newClient(t, f)

		vms, err := apiClient.Collection("vms")
		require.NoError(t, err)

		_, err = vms.FindBy(context.Background(), map[string]any{"name": "vm1"})
		assert.True(t, mgmtapi.IsAPIError(err))
		assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	})
}

func TestCollectionGet(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.stubRoot("2.4.1", "vms")

	f.handle("/api/vms", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("filter[]") == "name=missing" {
			writeJSON(w, map[string]any{"name": "vms", "count": 10, "subcount": 0, "resources": []any{}})

			return
		}

		writeJSON(w, map[string]any{
			"name":     "vms",
			"count":    10,
			"subcount": 1,
			"resources": []map[string]any{
				{"href": f.href("vms/1")},
			},
		})
	})
	f.handle("/api/vms/1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"id": 1, "href": f.href("vms/1"), "name": "vm1", "power_state": "on"})
	})

	apiClient := newClient(t, f)
	ctx := context.Background()

	vms, err := apiClient.Collection("vms")
	require.NoError(t, err)

	t.Run("first match comes back loaded", func(t *testing.T) {
		t.Parallel()

		entity, err := vms.Get(ctx, map[string]any{"name": "vm1"})
		require.NoError(t, err)
		assert.True(t, entity.Loaded())

		state, err := entity.Attribute(ctx, "power_state")
		require.NoError(t, err)
		assert.Equal(t, "on", state)
	})

	t.Run("no match", func(t *testing.T) {
		t.Parallel()

		_, err := vms.Get(ctx, map[string]any{"name": "missing"})
		assert.ErrorIs(t, err, mgmtapi.ErrNoSuchObject)
	})
}
