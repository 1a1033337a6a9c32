package client_test

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/appliance-io/mgmtapi/pkg/mgmtapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityLazyLoad(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.stubRoot("2.4.1", "vms")

	var hits int32

	f.handle("/api/vms/42", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		writeJSON(w, map[string]any{
			"id":          42,
			"href":        f.href("vms/42"),
			"name":        "vm42",
			"power_state": "off",
		})
	})

	apiClient := newClient(t, f)
	ctx := context.Background()

	entity := apiClient.GetEntity("vms", 42)
	assert.False(t, entity.Loaded())
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits), "stub construction must not fetch")

	name, err := entity.Attribute(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, "vm42", name)
	assert.True(t, entity.Loaded())
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	// Subsequent attribute reads use the cached snapshot.
	state, err := entity.Attribute(ctx, "power_state")
	require.NoError(t, err)
	assert.Equal(t, "off", state)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	require.NoError(t, entity.Reload(ctx))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits), "explicit reload fetches again")
}

func TestEntityIdentity(t *testing.T) {
	t.Parallel()

	t.Run("numeric id before 2.0.0", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.stubRoot("1.1.5", "vms")

		f.handle("/api/vms/42", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{"id": 42, "href": f.href("vms/42"), "name": "vm42"})
		})

		apiClient := newClient(t, f)

		entity := apiClient.GetEntity("vms", 42)
		assert.Equal(t, "42", entity.Identity())

		require.NoError(t, entity.Reload(context.Background()))
		assert.Equal(t, "42", entity.Identity(), "identity stays the id after loading")
		assert.Equal(t, f.href("vms/42"), entity.Href(), "href stays fetchable")
	})

	t.Run("href at 2.0.0 and later", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.stubRoot("2.0.0", "vms")

		f.handle("/api/vms/42", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{"id": 42, "href": f.href("vms/42"), "name": "vm42"})
		})

		apiClient := newClient(t, f)

		entity := apiClient.GetEntity("vms", 42)
		assert.Equal(t, f.href("vms/42"), entity.Identity())

		require.NoError(t, entity.Reload(context.Background()))
		assert.Equal(t, f.href("vms/42"), entity.Identity())
	})
}

func TestEntityTimestamps(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.stubRoot("2.4.1", "vms")

	f.handle("/api/vms/1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"id":         1,
			"href":       f.href("vms/1"),
			"created_on": "2026-08-30T12:34:56Z",
			"updated_on": "not a timestamp",
			"name":       "vm1",
		})
	})

	apiClient := newClient(t, f)
	ctx := context.Background()

	entity := apiClient.GetEntity("vms", 1)

	t.Run("parsed timestamps come back as time values", func(t *testing.T) {
		created, err := entity.Time(ctx, "created_on")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 8, 30, 12, 34, 56, 0, time.UTC), created.UTC())

		value, err := entity.Attribute(ctx, "created_on")
		require.NoError(t, err)
		assert.IsType(t, time.Time{}, value)
	})

	t.Run("unparseable timestamps keep the raw string", func(t *testing.T) {
		value, err := entity.Attribute(ctx, "updated_on")
		require.NoError(t, err)
		assert.Equal(t, "not a timestamp", value)

		_, err = entity.Time(ctx, "updated_on")
		assert.ErrorIs(t, err, mgmtapi.ErrNoSuchAttribute)
	})
}

func TestEntityForeignKeys(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.stubRoot("2.4.1", "vms")

	f.handle("/api/vms/1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"id":       1,
			"href":     f.href("vms/1"),
			"zone_id":  7,
			"ems_id":   3,
			"guest_id": 9,
		})
	})

	apiClient := newClient(t, f)
	ctx := context.Background()

	entity := apiClient.GetEntity("vms", 1)

	t.Run("recognized keys synthesize related stubs", func(t *testing.T) {
		zone, err := entity.Related(ctx, "zone")
		require.NoError(t, err)
		assert.Equal(t, f.href("zones/7"), zone.Href())
		assert.False(t, zone.Loaded(), "related entities are stubs")

		ems, err := entity.Related(ctx, "ems")
		require.NoError(t, err)
		assert.Equal(t, f.href("providers/3"), ems.Href())
	})

	t.Run("related stubs also answer as attributes", func(t *testing.T) {
		value, err := entity.Attribute(ctx, "zone")
		require.NoError(t, err)

		zone, ok := value.(mgmtapi.Entity)
		require.True(t, ok)
		assert.Equal(t, f.href("zones/7"), zone.Href())
	})

	t.Run("raw foreign key values survive", func(t *testing.T) {
		raw, err := entity.Attribute(ctx, "zone_id")
		require.NoError(t, err)
		assert.Equal(t, float64(7), raw)
	})

	t.Run("unrecognized id fields stay plain", func(t *testing.T) {
		_, err := entity.Related(ctx, "guest")
		assert.ErrorIs(t, err, mgmtapi.ErrNoSuchAttribute)
	})
}

func TestEntityAttributeErrors(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.stubRoot("2.4.1", "vms")

	f.handle("/api/vms/1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"id": 1, "href": f.href("vms/1"), "name": "vm1"})
	})

	apiClient := newClient(t, f)

	entity := apiClient.GetEntity("vms", 1)

	_, err := entity.Attribute(context.Background(), "no_such_field")
	assert.ErrorIs(t, err, mgmtapi.ErrNoSuchAttribute)
	assert.True(t, entity.Loaded(), "the miss still triggered a load")
}

func TestEntityAttributesSnapshot(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.stubRoot("2.4.1", "vms")

	f.handle("/api/vms/1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"id": 1, "href": f.href("vms/1"), "name": "vm1"})
	})

	apiClient := newClient(t, f)
	ctx := context.Background()

	entity := apiClient.GetEntity("vms", 1)

	attrs, err := entity.Attributes(ctx)
	require.NoError(t, err)
	assert.Equal(t, "vm1", attrs["name"])

	// Mutating the copy must not leak into the entity.
	attrs["name"] = "changed"

	name, err := entity.Attribute(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, "vm1", name)
}

func TestEntityRefAndExpand(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.stubRoot("2.4.1", "vms")

	f.handle("/api/vms/1", func(w http.ResponseWriter, r *http.Request) {
		doc := map[string]any{"id": 1, "href": f.href("vms/1"), "name": "vm1"}
		if r.URL.Query().Get("expand") == "disks" {
			doc["disks"] = []any{map[string]any{"id": 10}}
		}

		writeJSON(w, doc)
	})

	apiClient := newClient(t, f)
	ctx := context.Background()

	entity := apiClient.GetEntity("vms", 1)

	assert.Equal(t, map[string]any{"href": f.href("vms/1")}, entity.Ref())

	require.NoError(t, entity.ReloadExpand(ctx, "disks"))

	disks, err := entity.Attribute(ctx, "disks")
	require.NoError(t, err)
	assert.Len(t, disks, 1)
}
