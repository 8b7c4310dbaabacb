package registry

import (
	"errors"
	"sync"
	"testing"

	"github.com/aretw0/pubflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T, names ...string) *Registry {
	t.Helper()
	r := New()
	for _, n := range names {
		require.NoError(t, r.Register(domain.NewTask(n)))
	}
	return r
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := New()
	first := domain.NewTask("build")
	first.Description = "first"
	require.NoError(t, r.Register(first))

	second := domain.NewTask("build")
	second.Description = "second"
	err := r.Register(second)

	var dup *domain.DuplicateTaskError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "build", dup.Name)
	assert.ErrorIs(t, err, domain.ErrDuplicateTask)

	got, _ := r.Get("build")
	assert.Equal(t, "first", got.Description, "registry must be unchanged after a failed register")
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_RegisterCopiesInput(t *testing.T) {
	r := New()
	task := domain.NewTask("a")
	task.Command = []string{"pub", "get"}
	require.NoError(t, r.Register(task))

	task.Command[0] = "mutated"
	got, _ := r.Get("a")
	assert.Equal(t, "pub", got.Command[0])

	got.Command[0] = "mutated"
	again, _ := r.Get("a")
	assert.Equal(t, "pub", again.Command[0])
}

func TestRegistry_Edges(t *testing.T) {
	r := newRegistry(t, "assemble", "resolve", "clean")

	require.NoError(t, r.DependsOn("assemble", "resolve"))
	require.NoError(t, r.DependsOn("assemble", "resolve"), "duplicate edges are ignored")
	require.NoError(t, r.MustRunAfter("resolve", "clean"))
	require.NoError(t, r.FinalizedBy("resolve", "clean"))

	a, _ := r.Get("assemble")
	assert.Equal(t, []string{"resolve"}, a.DependsOn)
	res, _ := r.Get("resolve")
	assert.Equal(t, []string{"clean"}, res.MustRunAfter)
	assert.Equal(t, []string{"clean"}, res.FinalizedBy)
}

func TestRegistry_EdgeToUnknownTask(t *testing.T) {
	r := newRegistry(t, "assemble")

	err := r.DependsOn("assemble", "ghost")
	var unknown *domain.UnknownTaskError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "ghost", unknown.Name)
	assert.Equal(t, "assemble", unknown.Referrer)
	assert.Equal(t, domain.RelationDependsOn, unknown.Relation)

	err = r.MustRunAfter("ghost", "assemble")
	assert.ErrorIs(t, err, domain.ErrUnknownTask)

	a, _ := r.Get("assemble")
	assert.Empty(t, a.DependsOn)
}

func TestRegistry_Configure(t *testing.T) {
	r := newRegistry(t, "runTests")

	err := r.Configure("runTests", func(task *domain.Task) error {
		task.Enabled = false
		return nil
	})
	require.NoError(t, err)
	got, _ := r.Get("runTests")
	assert.False(t, got.Enabled)

	err = r.Configure("runTests", func(task *domain.Task) error {
		task.Description = "half-applied"
		return errors.New("boom")
	})
	require.Error(t, err)
	got, _ = r.Get("runTests")
	assert.Empty(t, got.Description, "failed configure must not be applied")

	err = r.Configure("runTests", func(task *domain.Task) error {
		task.Name = "other"
		return nil
	})
	assert.Error(t, err)

	err = r.Configure("missing", func(*domain.Task) error { return nil })
	assert.ErrorIs(t, err, domain.ErrUnknownTask)
}

func TestRegistry_ValidateDanglingReference(t *testing.T) {
	r := New()
	task := domain.NewTask("publish")
	task.FinalizedBy = []string{"teardown"}
	require.NoError(t, r.Register(task))

	err := r.Validate()
	var unknown *domain.UnknownTaskError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "teardown", unknown.Name)
	assert.Equal(t, "publish", unknown.Referrer)
	assert.Equal(t, domain.RelationFinalizedBy, unknown.Relation)

	require.Error(t, r.Freeze())
	assert.False(t, r.Frozen())

	require.NoError(t, r.Register(domain.NewTask("teardown")))
	assert.NoError(t, r.Validate())
}

func TestRegistry_Freeze(t *testing.T) {
	r := newRegistry(t, "a", "b")
	require.NoError(t, r.Freeze())
	require.NoError(t, r.Freeze())
	assert.True(t, r.Frozen())

	assert.ErrorIs(t, r.Register(domain.NewTask("c")), domain.ErrRegistryFrozen)
	assert.ErrorIs(t, r.DependsOn("a", "b"), domain.ErrRegistryFrozen)
	assert.ErrorIs(t, r.Configure("a", func(*domain.Task) error { return nil }), domain.ErrRegistryFrozen)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := r.Get("a")
			assert.True(t, ok)
			assert.Len(t, r.Snapshot(), 2)
		}()
	}
	wg.Wait()
}

func TestRegistry_SnapshotSorted(t *testing.T) {
	r := newRegistry(t, "publish", "assemble", "clean")

	var names []string
	for _, task := range r.Snapshot() {
		names = append(names, task.Name)
	}
	assert.Equal(t, []string{"assemble", "clean", "publish"}, names)
	assert.Equal(t, names, r.Names())
	assert.True(t, r.Has("clean"))
	assert.False(t, r.Has("check"))
	assert.Len(t, r.Tasks(), 3)
}
